// Package configs provides embedded configuration templates.
//
// Templates are embedded at build time with go:embed, so they ship in
// every distribution of the binary. `devrag init` writes the project
// template as .devrag.yaml.
package configs

import _ "embed"

// ProjectConfigTemplate is the annotated template for project-level
// configuration, written by `devrag init`.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
