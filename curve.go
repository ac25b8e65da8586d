package dcrypt

import (
	"crypto/elliptic"
	"encoding/asn1"
	"fmt"
	"math/big"
)

// Curve describes a named elliptic curve known to the library. NID is
// the legacy numeric identifier used by the v1 textual key format; OID
// identifies the curve in v2 records and DER encodings.
type Curve struct {
	// Name is the canonical short name, e.g. "prime256v1".
	Name string

	// Aliases are additional accepted names, e.g. "P-256".
	Aliases []string

	NID int
	OID asn1.ObjectIdentifier

	Curve elliptic.Curve

	// A is the curve coefficient a. A nil A means a = p-3, the
	// convention of the standard library curves.
	A *big.Int
}

var curvesByName = map[string]Curve{}
var curvesByNID = map[int]Curve{}
var curvesByOID = map[string]Curve{}
var curvesByCurve = map[elliptic.Curve]Curve{}

// RegisterCurve registers a named curve. It is intended to be called
// from init functions; registering a duplicate name, NID or OID panics.
func RegisterCurve(crv Curve) {
	if crv.Curve == nil {
		panic("dcrypt: RegisterCurve with nil curve")
	}
	names := append([]string{crv.Name}, crv.Aliases...)
	for _, name := range names {
		if _, ok := curvesByName[name]; ok {
			panic("dcrypt: RegisterCurve of already registered curve " + name)
		}
	}
	if _, ok := curvesByNID[crv.NID]; ok {
		panic("dcrypt: RegisterCurve of already registered curve " + crv.Name)
	}
	if _, ok := curvesByOID[crv.OID.String()]; ok {
		panic("dcrypt: RegisterCurve of already registered curve " + crv.Name)
	}
	for _, name := range names {
		curvesByName[name] = crv
	}
	curvesByNID[crv.NID] = crv
	curvesByOID[crv.OID.String()] = crv
	curvesByCurve[crv.Curve] = crv
}

// CurveByName resolves a curve short name or alias.
func CurveByName(name string) (Curve, bool) {
	crv, ok := curvesByName[name]
	return crv, ok
}

// CurveByNID resolves a curve by its legacy numeric identifier.
func CurveByNID(nid int) (Curve, bool) {
	crv, ok := curvesByNID[nid]
	return crv, ok
}

// CurveByOID resolves a curve by its ASN.1 object identifier.
func CurveByOID(oid asn1.ObjectIdentifier) (Curve, bool) {
	crv, ok := curvesByOID[oid.String()]
	return crv, ok
}

// CurveOf returns the registry entry for a curve instance obtained from
// a key, such as elliptic.P256().
func CurveOf(c elliptic.Curve) (Curve, bool) {
	crv, ok := curvesByCurve[c]
	return crv, ok
}

func init() {
	RegisterCurve(Curve{
		Name:    "prime256v1",
		Aliases: []string{"P-256", "secp256r1"},
		NID:     415,
		OID:     asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7},
		Curve:   elliptic.P256(),
	})
	RegisterCurve(Curve{
		Name:    "secp384r1",
		Aliases: []string{"P-384"},
		NID:     715,
		OID:     asn1.ObjectIdentifier{1, 3, 132, 0, 34},
		Curve:   elliptic.P384(),
	})
	RegisterCurve(Curve{
		Name:    "secp521r1",
		Aliases: []string{"P-521"},
		NID:     716,
		OID:     asn1.ObjectIdentifier{1, 3, 132, 0, 35},
		Curve:   elliptic.P521(),
	})
}

func (crv Curve) byteSize() int {
	return (crv.Curve.Params().BitSize + 7) / 8
}

// EncodePoint encodes the point (x, y) in compressed form.
func (crv Curve) EncodePoint(x, y *big.Int) []byte {
	return elliptic.MarshalCompressed(crv.Curve, x, y)
}

// DecodePoint decodes a compressed or uncompressed point encoding and
// verifies that it lies on the curve.
func (crv Curve) DecodePoint(data []byte) (x, y *big.Int, err error) {
	size := crv.byteSize()
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("dcrypt: empty point encoding: %w", ErrInvalidKey)
	}
	switch data[0] {
	case 2, 3:
		if len(data) != 1+size {
			return nil, nil, fmt.Errorf("dcrypt: point encoding of %d bytes on %s: %w", len(data), crv.Name, ErrInvalidKey)
		}
		x = new(big.Int).SetBytes(data[1:])
		y, err = crv.decompressY(x, data[0]&1)
		if err != nil {
			return nil, nil, err
		}
	case 4:
		if len(data) != 1+2*size {
			return nil, nil, fmt.Errorf("dcrypt: point encoding of %d bytes on %s: %w", len(data), crv.Name, ErrInvalidKey)
		}
		x = new(big.Int).SetBytes(data[1 : 1+size])
		y = new(big.Int).SetBytes(data[1+size:])
	default:
		return nil, nil, fmt.Errorf("dcrypt: unknown point form %#02x: %w", data[0], ErrInvalidKey)
	}
	if !crv.Curve.IsOnCurve(x, y) {
		return nil, nil, fmt.Errorf("dcrypt: point is not on %s: %w", crv.Name, ErrInvalidKey)
	}
	return x, y, nil
}

// decompressY solves y^2 = x^3 + a*x + b for the root with the given
// parity. All registered curves have p = 3 mod 4, so ModSqrt is exact.
func (crv Curve) decompressY(x *big.Int, parity byte) (*big.Int, error) {
	params := crv.Curve.Params()
	p := params.P
	if x.Sign() < 0 || x.Cmp(p) >= 0 {
		return nil, fmt.Errorf("dcrypt: point coordinate out of range: %w", ErrInvalidKey)
	}
	a := crv.A
	if a == nil {
		a = new(big.Int).Sub(p, big.NewInt(3))
	}
	// x^3 + a*x + b mod p
	y2 := new(big.Int).Mul(x, x)
	y2.Mod(y2, p)
	y2.Mul(y2, x)
	y2.Add(y2, new(big.Int).Mul(a, x))
	y2.Add(y2, params.B)
	y2.Mod(y2, p)

	y := new(big.Int).ModSqrt(y2, p)
	if y == nil {
		return nil, fmt.Errorf("dcrypt: point is not on %s: %w", crv.Name, ErrInvalidKey)
	}
	if y.Bit(0) != uint(parity) {
		y.Sub(p, y)
	}
	return y, nil
}
