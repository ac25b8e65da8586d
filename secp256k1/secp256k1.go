// Package secp256k1 registers the SECG secp256k1 curve with the dcrypt
// curve registry, backed by the btcec implementation. Import the
// package for its side effect:
//
//	import _ "github.com/shogo82148/dcrypt/secp256k1"
package secp256k1

import (
	"crypto/elliptic"
	"encoding/asn1"
	"math/big"

	btcec "github.com/btcsuite/btcd/btcec/v2"

	"github.com/shogo82148/dcrypt"
)

// Curve returns the secp256k1 curve.
func Curve() elliptic.Curve {
	return btcec.S256()
}

func init() {
	dcrypt.RegisterCurve(dcrypt.Curve{
		Name:  "secp256k1",
		NID:   714,
		OID:   asn1.ObjectIdentifier{1, 3, 132, 0, 10},
		Curve: btcec.S256(),

		// y^2 = x^3 + 7
		A: new(big.Int),
	})
}
