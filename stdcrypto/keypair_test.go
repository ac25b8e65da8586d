package stdcrypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/shogo82148/dcrypt"
	_ "github.com/shogo82148/dcrypt/secp256k1"
)

func TestGenerateKeyPair_ec(t *testing.T) {
	b := New()
	for _, name := range []string{"prime256v1", "secp384r1", "secp521r1", "secp256k1"} {
		t.Run(name, func(t *testing.T) {
			kp, err := b.GenerateKeyPair(dcrypt.KeyEC, 0, name)
			if err != nil {
				t.Fatal(err)
			}
			defer kp.Destroy()
			if want, got := dcrypt.KeyEC, kp.Private.Kind(); want != got {
				t.Errorf("unexpected kind: want %s, got %s", want, got)
			}
			crv, err := kp.Public.Curve()
			if err != nil {
				t.Fatal(err)
			}
			if crv.Name != name {
				t.Errorf("unexpected curve: want %s, got %s", name, crv.Name)
			}
			if !kp.Private.Public().Equal(kp.Public) {
				t.Error("public half does not match private half")
			}
		})
	}

	if _, err := b.GenerateKeyPair(dcrypt.KeyEC, 0, "curve25519"); !errors.Is(err, dcrypt.ErrUnknownCurve) {
		t.Errorf("want ErrUnknownCurve, got %v", err)
	}
}

func TestGenerateKeyPair_rsa(t *testing.T) {
	kp, err := New().GenerateKeyPair(dcrypt.KeyRSA, 2048, "")
	if err != nil {
		t.Fatal(err)
	}
	defer kp.Destroy()
	if want, got := dcrypt.KeyRSA, kp.Private.Kind(); want != got {
		t.Errorf("unexpected kind: want %s, got %s", want, got)
	}
	if want, got := 2048, kp.Public.RSA().N.BitLen(); want != got {
		t.Errorf("unexpected modulus size: want %d, got %d", want, got)
	}
}

func TestSharedSecret(t *testing.T) {
	b := New()
	for _, name := range []string{"prime256v1", "secp521r1", "secp256k1"} {
		t.Run(name, func(t *testing.T) {
			kp, err := b.GenerateKeyPair(dcrypt.KeyEC, 0, name)
			if err != nil {
				t.Fatal(err)
			}
			defer kp.Destroy()

			// the peer derives a secret against our public key...
			point, peerSecret, err := b.EphemeralSharedSecret(kp.Public)
			if err != nil {
				t.Fatal(err)
			}

			// ...and we derive the same secret from the ephemeral point
			localSecret, err := b.SharedSecret(kp.Private, point)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(peerSecret, localSecret) {
				t.Errorf("secrets disagree: %x != %x", peerSecret, localSecret)
			}

			crv, err := kp.Public.Curve()
			if err != nil {
				t.Fatal(err)
			}
			if want, got := (crv.Curve.Params().BitSize+7)/8, len(localSecret); want != got {
				t.Errorf("unexpected secret size: want %d, got %d", want, got)
			}
		})
	}
}

func TestSharedSecret_rsaKey(t *testing.T) {
	b := New()
	kp, err := b.GenerateKeyPair(dcrypt.KeyRSA, 2048, "")
	if err != nil {
		t.Fatal(err)
	}
	defer kp.Destroy()
	if _, err := b.SharedSecret(kp.Private, []byte{0x02}); !errors.Is(err, dcrypt.ErrUnsupportedOperation) {
		t.Errorf("want ErrUnsupportedOperation, got %v", err)
	}
	if _, _, err := b.EphemeralSharedSecret(kp.Public); !errors.Is(err, dcrypt.ErrUnsupportedOperation) {
		t.Errorf("want ErrUnsupportedOperation, got %v", err)
	}
}

func TestOAEP(t *testing.T) {
	b := New()
	kp, err := b.GenerateKeyPair(dcrypt.KeyRSA, 2048, "")
	if err != nil {
		t.Fatal(err)
	}
	defer kp.Destroy()

	secret := []byte("0123456789abcdef")
	data, err := b.EncryptOAEP(kp.Public, secret)
	if err != nil {
		t.Fatal(err)
	}

	// the output is exactly the modulus size
	if want, got := 2048/8, len(data); want != got {
		t.Errorf("unexpected ciphertext size: want %d, got %d", want, got)
	}

	got, err := b.DecryptOAEP(kp.Private, data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(secret, got) {
		t.Errorf("round trip mismatch: want %x, got %x", secret, got)
	}

	other, err := b.GenerateKeyPair(dcrypt.KeyRSA, 2048, "")
	if err != nil {
		t.Fatal(err)
	}
	defer other.Destroy()
	if _, err := b.DecryptOAEP(other.Private, data); err == nil {
		t.Error("want error for wrong key, got nil")
	}
}

func TestBackendInstall(t *testing.T) {
	if err := dcrypt.Install("stdcrypto"); err != nil {
		t.Fatal(err)
	}
	// installing the same backend again is a no-op
	if err := dcrypt.Install("stdcrypto"); err != nil {
		t.Fatal(err)
	}
	if err := dcrypt.Install("missing"); err == nil {
		t.Error("want error for another backend, got nil")
	}
	if want, got := "stdcrypto", dcrypt.CurrentBackend().Name(); want != got {
		t.Errorf("unexpected backend: want %s, got %s", want, got)
	}
}
