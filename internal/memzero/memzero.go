// Package memzero clears buffers that held key material before they
// are released.
package memzero

import "math/big"

// Bytes overwrites b with zeros.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Big overwrites the absolute value of n and resets it to zero.
func Big(n *big.Int) {
	if n == nil {
		return
	}
	bits := n.Bits()
	for i := range bits {
		bits[i] = 0
	}
	n.SetInt64(0)
}
