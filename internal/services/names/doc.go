// Package names turns addresses into display names.
//
// Display is a pure priority chain over what the public room and the
// coordinator already know. Resolver fills in external names (ENS style) out of
// band: a reverse lookup is only trusted when the forward lookup of the returned
// name yields the same address. Verified names are cached and pushed to
// subscribers through a callback; Display never waits on a lookup.
package names
