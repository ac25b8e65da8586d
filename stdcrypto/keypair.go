package stdcrypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"fmt"
	"math/big"

	"github.com/shogo82148/dcrypt"
	"github.com/shogo82148/dcrypt/internal/memzero"
)

func (*backend) GenerateKeyPair(kind dcrypt.KeyKind, bits int, curve string) (*dcrypt.KeyPair, error) {
	switch kind {
	case dcrypt.KeyRSA:
		if bits == 0 {
			bits = 2048
		}
		key, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, &dcrypt.BackendError{Op: "generate RSA key", Err: err}
		}
		return newKeyPair(key)
	case dcrypt.KeyEC:
		crv, ok := dcrypt.CurveByName(curve)
		if !ok {
			return nil, fmt.Errorf("stdcrypto: curve %s: %w", curve, dcrypt.ErrUnknownCurve)
		}
		key, err := ecdsa.GenerateKey(crv.Curve, rand.Reader)
		if err != nil {
			return nil, &dcrypt.BackendError{Op: "generate EC key", Err: err}
		}
		return newKeyPair(key)
	}
	return nil, fmt.Errorf("stdcrypto: key kind %d: %w", kind, dcrypt.ErrUnsupportedOperation)
}

func newKeyPair(key any) (*dcrypt.KeyPair, error) {
	priv, err := dcrypt.NewPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return &dcrypt.KeyPair{Public: priv.Public(), Private: priv}, nil
}

func (*backend) SharedSecret(priv *dcrypt.PrivateKey, peerPoint []byte) ([]byte, error) {
	if priv.Kind() != dcrypt.KeyEC {
		return nil, fmt.Errorf("stdcrypto: ECDH with %s key: %w", priv.Kind(), dcrypt.ErrUnsupportedOperation)
	}
	crv, err := priv.Public().Curve()
	if err != nil {
		return nil, err
	}
	x, y, err := crv.DecodePoint(peerPoint)
	if err != nil {
		return nil, err
	}
	return sharedX(crv, x, y, priv.EC().D), nil
}

func (*backend) EphemeralSharedSecret(pub *dcrypt.PublicKey) (point, secret []byte, err error) {
	crv, err := pub.Curve()
	if err != nil {
		return nil, nil, err
	}
	eph, err := ecdsa.GenerateKey(crv.Curve, rand.Reader)
	if err != nil {
		return nil, nil, &dcrypt.BackendError{Op: "generate ephemeral key", Err: err}
	}
	secret = sharedX(crv, pub.EC().X, pub.EC().Y, eph.D)
	point = crv.EncodePoint(eph.X, eph.Y)
	memzero.Big(eph.D)
	return point, secret, nil
}

// sharedX multiplies the peer point by the private scalar and returns
// the X coordinate left-padded to the curve size.
func sharedX(crv dcrypt.Curve, x, y, d *big.Int) []byte {
	sx, _ := crv.Curve.ScalarMult(x, y, d.Bytes())
	size := (crv.Curve.Params().BitSize + 7) / 8
	secret := sx.FillBytes(make([]byte, size))
	memzero.Big(sx)
	return secret
}

func (*backend) EncryptOAEP(pub *dcrypt.PublicKey, msg []byte) ([]byte, error) {
	if pub.Kind() != dcrypt.KeyRSA {
		return nil, fmt.Errorf("stdcrypto: RSA encryption with %s key: %w", pub.Kind(), dcrypt.ErrUnsupportedOperation)
	}
	data, err := rsa.EncryptOAEP(sha1.New(), rand.Reader, pub.RSA(), msg, nil)
	if err != nil {
		return nil, &dcrypt.BackendError{Op: "rsa encrypt", Err: err}
	}
	return data, nil
}

func (*backend) DecryptOAEP(priv *dcrypt.PrivateKey, data []byte) ([]byte, error) {
	if priv.Kind() != dcrypt.KeyRSA {
		return nil, fmt.Errorf("stdcrypto: RSA decryption with %s key: %w", priv.Kind(), dcrypt.ErrUnsupportedOperation)
	}
	msg, err := rsa.DecryptOAEP(sha1.New(), rand.Reader, priv.RSA(), data, nil)
	if err != nil {
		return nil, &dcrypt.BackendError{Op: "rsa decrypt", Err: err}
	}
	return msg, nil
}
