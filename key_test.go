package dcrypt

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"
)

func newTestECKey(t *testing.T) *PrivateKey {
	t.Helper()
	ec, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	key, err := NewPrivateKey(ec)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func newTestRSAKey(t *testing.T) *PrivateKey {
	t.Helper()
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	key, err := NewPrivateKey(rsaKey)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestNewPrivateKey(t *testing.T) {
	t.Run("ec", func(t *testing.T) {
		key := newTestECKey(t)
		if want, got := KeyEC, key.Kind(); want != got {
			t.Errorf("unexpected kind: want %s, got %s", want, got)
		}
		if key.EC() == nil || key.RSA() != nil {
			t.Error("unexpected underlying key")
		}
	})

	t.Run("rsa", func(t *testing.T) {
		key := newTestRSAKey(t)
		if want, got := KeyRSA, key.Kind(); want != got {
			t.Errorf("unexpected kind: want %s, got %s", want, got)
		}
		if key.RSA() == nil || key.EC() != nil {
			t.Error("unexpected underlying key")
		}
	})

	t.Run("unsupported type", func(t *testing.T) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := NewPrivateKey(priv); !errors.Is(err, ErrUnsupportedOperation) {
			t.Errorf("want ErrUnsupportedOperation, got %v", err)
		}
	})
}

func TestPublicKeyID(t *testing.T) {
	key := newTestECKey(t)
	pub := key.Public()

	der, err := pub.MarshalDER()
	if err != nil {
		t.Fatal(err)
	}
	sum := sha256.Sum256(der)
	want := hex.EncodeToString(sum[:])

	got, err := pub.ID()
	if err != nil {
		t.Fatal(err)
	}
	if want != got {
		t.Errorf("unexpected identifier: want %s, got %s", want, got)
	}

	// two independently parsed instances produce byte-equal identifiers
	parsed, err := ParsePublicKeyDER(der)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := parsed.ID()
	if err != nil {
		t.Fatal(err)
	}
	if got != id2 {
		t.Errorf("identifier is not stable: %s != %s", got, id2)
	}
}

func TestPublicKeyLegacyID(t *testing.T) {
	key := newTestECKey(t)
	crv, err := key.Public().Curve()
	if err != nil {
		t.Fatal(err)
	}

	// SHA-256 over the ASCII hex of the compressed point, not over the
	// raw point bytes.
	point := hex.EncodeToString(crv.EncodePoint(key.EC().X, key.EC().Y))
	sum := sha256.Sum256([]byte(point))
	want := hex.EncodeToString(sum[:])

	got, err := key.LegacyID()
	if err != nil {
		t.Fatal(err)
	}
	if want != got {
		t.Errorf("unexpected identifier: want %s, got %s", want, got)
	}

	if _, err := newTestRSAKey(t).LegacyID(); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("want ErrUnsupportedOperation, got %v", err)
	}
}

func TestMarshalDER_publicKey(t *testing.T) {
	t.Run("ec compressed point", func(t *testing.T) {
		pub := newTestECKey(t).Public()
		der, err := pub.MarshalDER()
		if err != nil {
			t.Fatal(err)
		}
		parsed, err := ParsePublicKeyDER(der)
		if err != nil {
			t.Fatal(err)
		}
		if !pub.Equal(parsed) {
			t.Error("public key round trip mismatch")
		}
	})

	t.Run("rsa", func(t *testing.T) {
		pub := newTestRSAKey(t).Public()
		der, err := pub.MarshalDER()
		if err != nil {
			t.Fatal(err)
		}
		parsed, err := ParsePublicKeyDER(der)
		if err != nil {
			t.Fatal(err)
		}
		if !pub.Equal(parsed) {
			t.Error("public key round trip mismatch")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ParsePublicKeyDER([]byte("not a key")); !errors.Is(err, ErrCorruptedData) {
			t.Errorf("want ErrCorruptedData, got %v", err)
		}
	})
}

func TestMarshalDER_privateKey(t *testing.T) {
	for _, key := range []*PrivateKey{newTestECKey(t), newTestRSAKey(t)} {
		t.Run(key.Kind().String(), func(t *testing.T) {
			der, err := key.MarshalDER()
			if err != nil {
				t.Fatal(err)
			}
			parsed, err := ParsePrivateKeyDER(der)
			if err != nil {
				t.Fatal(err)
			}
			if !key.Public().Equal(parsed.Public()) {
				t.Error("private key round trip mismatch")
			}
		})
	}
}

func TestMarshalECPrivateKey(t *testing.T) {
	key := newTestECKey(t)
	der, err := MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseECPrivateKey(der)
	if err != nil {
		t.Fatal(err)
	}
	if !key.Public().Equal(parsed.Public()) {
		t.Error("EC private key round trip mismatch")
	}
	if key.EC().D.Cmp(parsed.EC().D) != 0 {
		t.Error("private scalar mismatch")
	}
}

func TestPrivateKeyFromScalar(t *testing.T) {
	key := newTestECKey(t)
	crv, err := key.Public().Curve()
	if err != nil {
		t.Fatal(err)
	}
	rebuilt, err := crv.PrivateKeyFromScalar(key.EC().D)
	if err != nil {
		t.Fatal(err)
	}
	if !key.Public().Equal(rebuilt.Public()) {
		t.Error("reconstructed public key mismatch")
	}

	if _, err := crv.PrivateKeyFromScalar(big.NewInt(0)); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("want ErrInvalidKey, got %v", err)
	}
	if _, err := crv.PrivateKeyFromScalar(crv.Curve.Params().N); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("want ErrInvalidKey, got %v", err)
	}
}

func TestCheckPrivateKey(t *testing.T) {
	key := newTestECKey(t)
	if err := CheckPrivateKey(key); err != nil {
		t.Fatal(err)
	}

	// tamper the public point
	bad := &PrivateKey{
		kind: KeyEC,
		ec: &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{
				Curve: key.EC().Curve,
				X:     key.EC().X,
				Y:     new(big.Int).Add(key.EC().Y, big.NewInt(1)),
			},
			D: key.EC().D,
		},
	}
	if err := CheckPrivateKey(bad); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("want ErrInvalidKey, got %v", err)
	}
}

func TestPrivateKeyDestroy(t *testing.T) {
	key := newTestECKey(t)
	d := key.EC().D
	key.Destroy()
	if key.EC() != nil {
		t.Error("EC key is still reachable after Destroy")
	}
	if d.Sign() != 0 {
		t.Error("private scalar was not zeroized")
	}
	// Destroy is idempotent.
	key.Destroy()
}
