// Package main is the entry point of the aistack CLI.
//
// All command handling lives in internal/cli; main only forwards the build
// metadata set through ldflags and exits with the code the command chose.
package main

import (
	"os"

	"aistack/internal/cli"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	cli.SetVersionInfo(version, commit, date)
	os.Exit(cli.Execute())
}
