// Package main provides the entry point for the skillscope CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/skillscope/cmd/skillscope/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
