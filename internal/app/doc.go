// Package app wires application dependencies for the CLI.
//
// It loads Config from the config file and environment, builds the stores,
// the network client factory, the session coordinator, the presence tracker and
// the name resolver, and exposes them via the Wire struct for commands to use.
package app
