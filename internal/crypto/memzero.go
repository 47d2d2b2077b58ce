package crypto

import "runtime"

// Wipe zeroes b in place. Best-effort: Go gives no guarantee that copies made
// elsewhere (for example by big.Int) are cleared.
//
//go:noinline
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(&b)
}
