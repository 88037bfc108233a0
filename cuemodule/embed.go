// Package cuemodule provides the embedded CUE schema for setup-qt config files.
package cuemodule

import _ "embed"

// SchemaCUE defines #Inputs, the shape of the inputs block of a config file.
//
//go:embed schema/schema.cue
var SchemaCUE string

// ExampleCUE is a sample config file, printed by `setup-qt config example`.
//
//go:embed examples/setup-qt.cue
var ExampleCUE string
