// Package configs embeds the starter config template shipped with cgrep.
//
// Templates are embedded at build time via go:embed so `cgrep config init`
// works the same way whether cgrep was built from source or installed as a
// binary release.
//
// Configuration hierarchy (see internal/config/config.go Load()):
//  1. Hardcoded defaults
//  2. User config (~/.config/cgrep/config.toml)
//  3. Project config (.cgreprc.toml at the project root)
package configs

import _ "embed"

// ProjectConfigTemplate is written by `cgrep config init` to .cgreprc.toml
// at the project root. It documents every section of internal/config's
// schema with its defaults commented out; the one active setting is a
// starter index.exclude_paths list.
//
//go:embed project-config.example.toml
var ProjectConfigTemplate string
