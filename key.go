package dcrypt

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shogo82148/dcrypt/internal/memzero"
)

// KeyKind tags the algorithm family of a key.
type KeyKind int

const (
	// KeyRSA is an RSA key.
	KeyRSA KeyKind = iota

	// KeyEC is an elliptic curve key on a named curve.
	KeyEC
)

func (k KeyKind) String() string {
	switch k {
	case KeyRSA:
		return "RSA"
	case KeyEC:
		return "EC"
	}
	return "(unknown)"
}

// PublicKey is an opaque handle for an RSA or EC public key.
type PublicKey struct {
	kind KeyKind
	rsa  *rsa.PublicKey
	ec   *ecdsa.PublicKey
}

// NewPublicKey wraps a toolkit public key. EC keys must be on a
// registered curve.
func NewPublicKey(key crypto.PublicKey) (*PublicKey, error) {
	switch key := key.(type) {
	case *rsa.PublicKey:
		return &PublicKey{kind: KeyRSA, rsa: key}, nil
	case *ecdsa.PublicKey:
		if _, ok := CurveOf(key.Curve); !ok {
			return nil, fmt.Errorf("dcrypt: curve %s is not registered: %w", key.Curve.Params().Name, ErrUnknownCurve)
		}
		return &PublicKey{kind: KeyEC, ec: key}, nil
	default:
		return nil, fmt.Errorf("dcrypt: unknown public key type %T: %w", key, ErrUnsupportedOperation)
	}
}

// Kind reports whether the key is RSA or EC.
func (k *PublicKey) Kind() KeyKind {
	return k.kind
}

// RSA returns the underlying RSA public key, or nil for EC keys.
func (k *PublicKey) RSA() *rsa.PublicKey {
	return k.rsa
}

// EC returns the underlying EC public key, or nil for RSA keys.
func (k *PublicKey) EC() *ecdsa.PublicKey {
	return k.ec
}

// Curve returns the registry entry of an EC key's curve.
func (k *PublicKey) Curve() (Curve, error) {
	if k.kind != KeyEC {
		return Curve{}, fmt.Errorf("dcrypt: %s key has no curve: %w", k.kind, ErrUnsupportedOperation)
	}
	crv, ok := CurveOf(k.ec.Curve)
	if !ok {
		return Curve{}, fmt.Errorf("dcrypt: curve %s is not registered: %w", k.ec.Curve.Params().Name, ErrUnknownCurve)
	}
	return crv, nil
}

// Equal reports whether k and other represent the same public key.
func (k *PublicKey) Equal(other *PublicKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	if k.kind != other.kind {
		return false
	}
	switch k.kind {
	case KeyRSA:
		return k.rsa.Equal(other.rsa)
	case KeyEC:
		return k.ec.Equal(other.ec)
	}
	return false
}

// ID returns the key identifier: the lowercase hex SHA-256 of the DER
// SubjectPublicKeyInfo encoding of the key.
func (k *PublicKey) ID() (string, error) {
	der, err := k.MarshalDER()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:]), nil
}

// LegacyID returns the v1 key identifier: the lowercase hex SHA-256 of
// the ASCII hex encoding of the compressed public point. It is defined
// for EC keys only.
func (k *PublicKey) LegacyID() (string, error) {
	crv, err := k.Curve()
	if err != nil {
		return "", err
	}
	point := hex.EncodeToString(crv.EncodePoint(k.ec.X, k.ec.Y))
	sum := sha256.Sum256([]byte(point))
	return hex.EncodeToString(sum[:]), nil
}

// Destroy releases the key. Public keys hold no secret material.
func (k *PublicKey) Destroy() {
	k.rsa = nil
	k.ec = nil
}

// PrivateKey is an opaque handle for an RSA or EC private key.
type PrivateKey struct {
	kind KeyKind
	rsa  *rsa.PrivateKey
	ec   *ecdsa.PrivateKey
}

// NewPrivateKey wraps a toolkit private key. EC keys must be on a
// registered curve.
func NewPrivateKey(key crypto.PrivateKey) (*PrivateKey, error) {
	switch key := key.(type) {
	case *rsa.PrivateKey:
		return &PrivateKey{kind: KeyRSA, rsa: key}, nil
	case *ecdsa.PrivateKey:
		if _, ok := CurveOf(key.Curve); !ok {
			return nil, fmt.Errorf("dcrypt: curve %s is not registered: %w", key.Curve.Params().Name, ErrUnknownCurve)
		}
		return &PrivateKey{kind: KeyEC, ec: key}, nil
	default:
		return nil, fmt.Errorf("dcrypt: unknown private key type %T: %w", key, ErrUnsupportedOperation)
	}
}

// Kind reports whether the key is RSA or EC.
func (k *PrivateKey) Kind() KeyKind {
	return k.kind
}

// RSA returns the underlying RSA private key, or nil for EC keys.
func (k *PrivateKey) RSA() *rsa.PrivateKey {
	return k.rsa
}

// EC returns the underlying EC private key, or nil for RSA keys.
func (k *PrivateKey) EC() *ecdsa.PrivateKey {
	return k.ec
}

// Public derives the public half of the key.
func (k *PrivateKey) Public() *PublicKey {
	switch k.kind {
	case KeyRSA:
		return &PublicKey{kind: KeyRSA, rsa: &k.rsa.PublicKey}
	case KeyEC:
		return &PublicKey{kind: KeyEC, ec: &k.ec.PublicKey}
	}
	return nil
}

// ID returns the v2 identifier of the public half of the key.
func (k *PrivateKey) ID() (string, error) {
	return k.Public().ID()
}

// LegacyID returns the v1 identifier of the public half of the key.
func (k *PrivateKey) LegacyID() (string, error) {
	return k.Public().LegacyID()
}

// Destroy zeroizes the secret components of the key. It is idempotent.
func (k *PrivateKey) Destroy() {
	if k.rsa != nil {
		memzero.Big(k.rsa.D)
		for _, p := range k.rsa.Primes {
			memzero.Big(p)
		}
		memzero.Big(k.rsa.Precomputed.Dp)
		memzero.Big(k.rsa.Precomputed.Dq)
		memzero.Big(k.rsa.Precomputed.Qinv)
		k.rsa = nil
	}
	if k.ec != nil {
		memzero.Big(k.ec.D)
		k.ec = nil
	}
}

// KeyPair is an owned (public, private) pair.
type KeyPair struct {
	Public  *PublicKey
	Private *PrivateKey
}

// Destroy releases both halves of the pair.
func (kp *KeyPair) Destroy() {
	if kp.Public != nil {
		kp.Public.Destroy()
	}
	if kp.Private != nil {
		kp.Private.Destroy()
	}
}

// CheckPrivateKey verifies the internal consistency of a reconstructed
// private key, in the manner of the toolkit's key checks.
func CheckPrivateKey(k *PrivateKey) error {
	switch k.kind {
	case KeyRSA:
		if err := k.rsa.Validate(); err != nil {
			return fmt.Errorf("dcrypt: %v: %w", err, ErrInvalidKey)
		}
		return nil
	case KeyEC:
		return checkECPrivateKey(k.ec)
	}
	return fmt.Errorf("dcrypt: unknown key kind: %w", ErrInvalidKey)
}

func checkECPrivateKey(priv *ecdsa.PrivateKey) error {
	params := priv.Curve.Params()
	if priv.D.Sign() <= 0 || priv.D.Cmp(params.N) >= 0 {
		return fmt.Errorf("dcrypt: private scalar out of range: %w", ErrInvalidKey)
	}
	if !priv.Curve.IsOnCurve(priv.X, priv.Y) {
		return fmt.Errorf("dcrypt: public point is not on the curve: %w", ErrInvalidKey)
	}
	x, y := priv.Curve.ScalarBaseMult(priv.D.Bytes())
	if x.Cmp(priv.X) != 0 || y.Cmp(priv.Y) != 0 {
		return fmt.Errorf("dcrypt: public point does not match private scalar: %w", ErrInvalidKey)
	}
	return nil
}
