// Package templates holds the template store compiled into the binary. It is
// used when no templates_dir is configured.
package templates

import "embed"

// FS contains minimal.json, standard.json and full.json.
//
//go:embed *.json
var FS embed.FS
