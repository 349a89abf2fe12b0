// Package commands defines the persistctl CLI.
//
// Commands
//
//   - get KEY         Print the stored value as JSON
//   - set KEY JSON    Store a JSON value
//   - delete KEY      Remove a value
//   - watch KEY       Print every change made to KEY by other processes
//   - keygen          Generate a random or passphrase-derived encryption key
//
// # Implementation
//
// The root command loads the configuration (file, PERSISTCTL_ environment
// variables, flags) and builds the logger before any subcommand runs.
// Storage commands open the configured backend through app.NewWire; the
// wire is closed, and with --stats its operation counters are printed, after
// the subcommand returns.
package commands
