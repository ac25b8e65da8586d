package dcrypt

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/big"
)

var oidPublicKeyRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
var oidPublicKeyECDSA = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}

type algorithmIdentifier struct {
	Algorithm  asn1.ObjectIdentifier
	Parameters asn1.RawValue `asn1:"optional"`
}

type subjectPublicKeyInfo struct {
	Algorithm algorithmIdentifier
	PublicKey asn1.BitString
}

// RFC 5915 ECPrivateKey. The curve is omitted when the structure is
// nested inside PKCS#8; the public key is always written.
type ecPrivateKey struct {
	Version       int
	PrivateKey    []byte
	NamedCurveOID asn1.ObjectIdentifier `asn1:"optional,explicit,tag:0"`
	PublicKey     asn1.BitString        `asn1:"optional,explicit,tag:1"`
}

type pkcs8 struct {
	Version    int
	Algo       algorithmIdentifier
	PrivateKey []byte
}

// MarshalDER encodes the key as a DER SubjectPublicKeyInfo. EC points
// are encoded in compressed form; this encoding is also the input of
// the v2 key identifier.
func (k *PublicKey) MarshalDER() ([]byte, error) {
	switch k.kind {
	case KeyRSA:
		der, err := x509.MarshalPKIXPublicKey(k.rsa)
		if err != nil {
			return nil, &BackendError{Op: "marshal public key", Err: err}
		}
		return der, nil
	case KeyEC:
		crv, err := k.Curve()
		if err != nil {
			return nil, err
		}
		params, err := asn1.Marshal(crv.OID)
		if err != nil {
			return nil, &BackendError{Op: "marshal curve parameters", Err: err}
		}
		point := crv.EncodePoint(k.ec.X, k.ec.Y)
		der, err := asn1.Marshal(subjectPublicKeyInfo{
			Algorithm: algorithmIdentifier{
				Algorithm:  oidPublicKeyECDSA,
				Parameters: asn1.RawValue{FullBytes: params},
			},
			PublicKey: asn1.BitString{Bytes: point, BitLength: 8 * len(point)},
		})
		if err != nil {
			return nil, &BackendError{Op: "marshal public key", Err: err}
		}
		return der, nil
	}
	return nil, fmt.Errorf("dcrypt: unknown key kind: %w", ErrUnsupportedOperation)
}

// ParsePublicKeyDER parses a DER SubjectPublicKeyInfo. EC points are
// accepted in compressed and uncompressed form.
func ParsePublicKeyDER(der []byte) (*PublicKey, error) {
	var spki subjectPublicKeyInfo
	rest, err := asn1.Unmarshal(der, &spki)
	if err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("dcrypt: malformed public key: %w", ErrCorruptedData)
	}
	switch {
	case spki.Algorithm.Algorithm.Equal(oidPublicKeyRSA):
		pub, err := x509.ParsePKIXPublicKey(der)
		if err != nil {
			return nil, fmt.Errorf("dcrypt: malformed public key: %w", ErrCorruptedData)
		}
		return NewPublicKey(pub)
	case spki.Algorithm.Algorithm.Equal(oidPublicKeyECDSA):
		var oid asn1.ObjectIdentifier
		rest, err := asn1.Unmarshal(spki.Algorithm.Parameters.FullBytes, &oid)
		if err != nil || len(rest) != 0 {
			return nil, fmt.Errorf("dcrypt: malformed curve parameters: %w", ErrCorruptedData)
		}
		crv, ok := CurveByOID(oid)
		if !ok {
			return nil, fmt.Errorf("dcrypt: curve %s: %w", oid, ErrUnknownCurve)
		}
		x, y, err := crv.DecodePoint(spki.PublicKey.Bytes)
		if err != nil {
			return nil, err
		}
		return &PublicKey{kind: KeyEC, ec: &ecdsa.PublicKey{Curve: crv.Curve, X: x, Y: y}}, nil
	}
	return nil, fmt.Errorf("dcrypt: key algorithm %s: %w", spki.Algorithm.Algorithm, ErrUnknownAlgorithm)
}

// MarshalDER encodes the key as DER PKCS#8.
func (k *PrivateKey) MarshalDER() ([]byte, error) {
	switch k.kind {
	case KeyRSA:
		der, err := asn1.Marshal(pkcs8{
			Algo: algorithmIdentifier{
				Algorithm:  oidPublicKeyRSA,
				Parameters: asn1.NullRawValue,
			},
			PrivateKey: x509.MarshalPKCS1PrivateKey(k.rsa),
		})
		if err != nil {
			return nil, &BackendError{Op: "marshal private key", Err: err}
		}
		return der, nil
	case KeyEC:
		crv, err := k.Public().Curve()
		if err != nil {
			return nil, err
		}
		params, err := asn1.Marshal(crv.OID)
		if err != nil {
			return nil, &BackendError{Op: "marshal curve parameters", Err: err}
		}
		inner, err := marshalSEC1(crv, k.ec, false)
		if err != nil {
			return nil, err
		}
		der, err := asn1.Marshal(pkcs8{
			Algo: algorithmIdentifier{
				Algorithm:  oidPublicKeyECDSA,
				Parameters: asn1.RawValue{FullBytes: params},
			},
			PrivateKey: inner,
		})
		if err != nil {
			return nil, &BackendError{Op: "marshal private key", Err: err}
		}
		return der, nil
	}
	return nil, fmt.Errorf("dcrypt: unknown key kind: %w", ErrUnsupportedOperation)
}

// ParsePrivateKeyDER parses a DER PKCS#8 private key.
func ParsePrivateKeyDER(der []byte) (*PrivateKey, error) {
	var p8 pkcs8
	rest, err := asn1.Unmarshal(der, &p8)
	if err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("dcrypt: malformed private key: %w", ErrCorruptedData)
	}
	switch {
	case p8.Algo.Algorithm.Equal(oidPublicKeyRSA):
		priv, err := x509.ParsePKCS1PrivateKey(p8.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("dcrypt: malformed private key: %w", ErrCorruptedData)
		}
		return NewPrivateKey(priv)
	case p8.Algo.Algorithm.Equal(oidPublicKeyECDSA):
		var oid asn1.ObjectIdentifier
		rest, err := asn1.Unmarshal(p8.Algo.Parameters.FullBytes, &oid)
		if err != nil || len(rest) != 0 {
			return nil, fmt.Errorf("dcrypt: malformed curve parameters: %w", ErrCorruptedData)
		}
		crv, ok := CurveByOID(oid)
		if !ok {
			return nil, fmt.Errorf("dcrypt: curve %s: %w", oid, ErrUnknownCurve)
		}
		return parseSEC1(crv, p8.PrivateKey)
	}
	return nil, fmt.Errorf("dcrypt: key algorithm %s: %w", p8.Algo.Algorithm, ErrUnknownAlgorithm)
}

// MarshalECPrivateKey encodes an EC key as DER SEC 1 (RFC 5915) with
// the named curve included.
func MarshalECPrivateKey(k *PrivateKey) ([]byte, error) {
	crv, err := k.Public().Curve()
	if err != nil {
		return nil, err
	}
	return marshalSEC1(crv, k.ec, true)
}

// ParseECPrivateKey parses a DER SEC 1 EC private key. The named curve
// must be present.
func ParseECPrivateKey(der []byte) (*PrivateKey, error) {
	var ec ecPrivateKey
	rest, err := asn1.Unmarshal(der, &ec)
	if err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("dcrypt: malformed EC private key: %w", ErrCorruptedData)
	}
	if len(ec.NamedCurveOID) == 0 {
		return nil, fmt.Errorf("dcrypt: EC private key without named curve: %w", ErrUnknownCurve)
	}
	crv, ok := CurveByOID(ec.NamedCurveOID)
	if !ok {
		return nil, fmt.Errorf("dcrypt: curve %s: %w", ec.NamedCurveOID, ErrUnknownCurve)
	}
	return crv.PrivateKeyFromScalar(new(big.Int).SetBytes(ec.PrivateKey))
}

func marshalSEC1(crv Curve, priv *ecdsa.PrivateKey, namedCurve bool) ([]byte, error) {
	ec := ecPrivateKey{
		Version:    1,
		PrivateKey: priv.D.FillBytes(make([]byte, crv.byteSize())),
	}
	if namedCurve {
		ec.NamedCurveOID = crv.OID
	}
	point := crv.EncodePoint(priv.X, priv.Y)
	ec.PublicKey = asn1.BitString{Bytes: point, BitLength: 8 * len(point)}
	der, err := asn1.Marshal(ec)
	if err != nil {
		return nil, &BackendError{Op: "marshal EC private key", Err: err}
	}
	return der, nil
}

func parseSEC1(crv Curve, der []byte) (*PrivateKey, error) {
	var ec ecPrivateKey
	rest, err := asn1.Unmarshal(der, &ec)
	if err != nil || len(rest) != 0 {
		return nil, fmt.Errorf("dcrypt: malformed EC private key: %w", ErrCorruptedData)
	}
	if len(ec.NamedCurveOID) != 0 && !ec.NamedCurveOID.Equal(crv.OID) {
		return nil, fmt.Errorf("dcrypt: curve mismatch in EC private key: %w", ErrCorruptedData)
	}
	return crv.PrivateKeyFromScalar(new(big.Int).SetBytes(ec.PrivateKey))
}

// PrivateKeyFromScalar reconstructs an EC private key from its scalar,
// computing the public point and validating the scalar range.
func (crv Curve) PrivateKeyFromScalar(d *big.Int) (*PrivateKey, error) {
	params := crv.Curve.Params()
	if d.Sign() <= 0 || d.Cmp(params.N) >= 0 {
		return nil, fmt.Errorf("dcrypt: private scalar out of range: %w", ErrInvalidKey)
	}
	priv := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: crv.Curve},
		D:         new(big.Int).Set(d),
	}
	priv.X, priv.Y = crv.Curve.ScalarBaseMult(priv.D.Bytes())
	return &PrivateKey{kind: KeyEC, ec: priv}, nil
}
