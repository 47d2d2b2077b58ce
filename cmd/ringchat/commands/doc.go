// Package commands defines the ringchat CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init          Create the local wallet
//   - address       Print the wallet address
//   - settings      Show or change the persisted relay and node URLs
//   - run           Start the client and open the chat UI
//
// # Implementation
//
// The root command loads the config (file, .env, environment, flags), builds
// the logger and the dependency graph before any subcommand runs, and closes
// both after it returns.
package commands
