// Package app wires the persistctl dependencies.
//
// It loads Config from defaults, a YAML file, PERSISTCTL_ environment
// variables and command-line flags, builds the logger, and assembles the
// storage stack (backend, metrics, optional encryption) together with a
// persist.Persister, exposing them via the Wire struct for commands to use.
package app
