package secp256k1

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/asn1"
	"testing"

	"github.com/shogo82148/dcrypt"
)

func TestRegistered(t *testing.T) {
	crv, ok := dcrypt.CurveByName("secp256k1")
	if !ok {
		t.Fatal("secp256k1 is not registered")
	}
	if want, got := 714, crv.NID; want != got {
		t.Errorf("unexpected NID: want %d, got %d", want, got)
	}
	if want := (asn1.ObjectIdentifier{1, 3, 132, 0, 10}); !crv.OID.Equal(want) {
		t.Errorf("unexpected OID: want %s, got %s", want, crv.OID)
	}
	if crv.Curve != Curve() {
		t.Error("registered curve is not the btcec curve")
	}
	if _, ok := dcrypt.CurveByNID(714); !ok {
		t.Error("secp256k1 is not resolvable by NID")
	}
}

func TestPointRoundTrip(t *testing.T) {
	crv, ok := dcrypt.CurveByName("secp256k1")
	if !ok {
		t.Fatal("secp256k1 is not registered")
	}
	key, err := ecdsa.GenerateKey(Curve(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	point := crv.EncodePoint(key.X, key.Y)
	if want, got := 33, len(point); want != got {
		t.Fatalf("unexpected point size: want %d, got %d", want, got)
	}
	x, y, err := crv.DecodePoint(point)
	if err != nil {
		t.Fatal(err)
	}
	if x.Cmp(key.X) != 0 || y.Cmp(key.Y) != 0 {
		t.Error("compressed point round trip mismatch")
	}
}

func TestKeyID(t *testing.T) {
	key, err := ecdsa.GenerateKey(Curve(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	priv, err := dcrypt.NewPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}
	der, err := priv.Public().MarshalDER()
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := dcrypt.ParsePublicKeyDER(der)
	if err != nil {
		t.Fatal(err)
	}
	if !priv.Public().Equal(parsed) {
		t.Error("public key round trip mismatch")
	}

	id1, err := priv.ID()
	if err != nil {
		t.Fatal(err)
	}
	id2, err := parsed.ID()
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Errorf("identifier is not stable: %s != %s", id1, id2)
	}
}
