// Package configs embeds the commented configuration template written by
// `skillscope config init`.
package configs

import _ "embed"

// ConfigTemplate documents every key with its default value. It is used
// for both the project file (.skillscope.yaml) and the user config.
//
//go:embed skillscope.example.yaml
var ConfigTemplate string
