package configs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/skillscope/internal/config"
)

func TestConfigTemplate_MatchesDefaults(t *testing.T) {
	// Given: the embedded template decoded over empty values
	var got config.Config
	require.NoError(t, yaml.Unmarshal([]byte(ConfigTemplate), &got))

	// Then: every documented value equals the built-in default
	want := config.NewConfig()
	want.Cache.Dir = ""
	assert.Equal(t, *want, got)
}

func TestConfigTemplate_Validates(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, yaml.Unmarshal([]byte(ConfigTemplate), cfg))
	assert.NoError(t, cfg.Validate())
}
