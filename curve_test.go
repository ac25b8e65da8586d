package dcrypt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/asn1"
	"testing"
)

func TestCurveByName(t *testing.T) {
	tests := []struct {
		name string
		nid  int
	}{
		{name: "prime256v1", nid: 415},
		{name: "P-256", nid: 415},
		{name: "secp256r1", nid: 415},
		{name: "secp384r1", nid: 715},
		{name: "P-384", nid: 715},
		{name: "secp521r1", nid: 716},
		{name: "P-521", nid: 716},
	}
	for _, tt := range tests {
		crv, ok := CurveByName(tt.name)
		if !ok {
			t.Errorf("CurveByName(%q): not found", tt.name)
			continue
		}
		if crv.NID != tt.nid {
			t.Errorf("CurveByName(%q): want NID %d, got %d", tt.name, tt.nid, crv.NID)
		}
	}

	if _, ok := CurveByName("brainpoolP256r1"); ok {
		t.Error("CurveByName(brainpoolP256r1): want not found")
	}
}

func TestCurveByNID(t *testing.T) {
	crv, ok := CurveByNID(716)
	if !ok {
		t.Fatal("CurveByNID(716): not found")
	}
	if want, got := "secp521r1", crv.Name; want != got {
		t.Errorf("unexpected curve: want %s, got %s", want, got)
	}
	if _, ok := CurveByNID(999999); ok {
		t.Error("CurveByNID(999999): want not found")
	}
}

func TestCurveByOID(t *testing.T) {
	crv, ok := CurveByOID(asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7})
	if !ok {
		t.Fatal("CurveByOID(1.2.840.10045.3.1.7): not found")
	}
	if want, got := "prime256v1", crv.Name; want != got {
		t.Errorf("unexpected curve: want %s, got %s", want, got)
	}
}

func TestCurveOf(t *testing.T) {
	crv, ok := CurveOf(elliptic.P384())
	if !ok {
		t.Fatal("CurveOf(P384): not found")
	}
	if want, got := "secp384r1", crv.Name; want != got {
		t.Errorf("unexpected curve: want %s, got %s", want, got)
	}
}

func TestDecodePoint(t *testing.T) {
	for _, name := range []string{"prime256v1", "secp384r1", "secp521r1"} {
		crv, ok := CurveByName(name)
		if !ok {
			t.Fatal("CurveByName(" + name + "): not found")
		}
		t.Run(name, func(t *testing.T) {
			key, err := ecdsa.GenerateKey(crv.Curve, rand.Reader)
			if err != nil {
				t.Fatal(err)
			}

			// compressed form
			point := crv.EncodePoint(key.X, key.Y)
			if want, got := 1+(crv.Curve.Params().BitSize+7)/8, len(point); want != got {
				t.Errorf("unexpected point size: want %d, got %d", want, got)
			}
			x, y, err := crv.DecodePoint(point)
			if err != nil {
				t.Fatal(err)
			}
			if x.Cmp(key.X) != 0 || y.Cmp(key.Y) != 0 {
				t.Error("compressed point round trip mismatch")
			}

			// uncompressed form is accepted too
			x, y, err = crv.DecodePoint(elliptic.Marshal(crv.Curve, key.X, key.Y))
			if err != nil {
				t.Fatal(err)
			}
			if x.Cmp(key.X) != 0 || y.Cmp(key.Y) != 0 {
				t.Error("uncompressed point round trip mismatch")
			}
		})
	}
}

func TestDecodePoint_invalid(t *testing.T) {
	crv, ok := CurveByName("prime256v1")
	if !ok {
		t.Fatal("CurveByName(prime256v1): not found")
	}
	key, err := ecdsa.GenerateKey(crv.Curve, rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	point := crv.EncodePoint(key.X, key.Y)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "unknown form", data: append([]byte{0x07}, point[1:]...)},
		{name: "truncated", data: point[:len(point)-1]},
		{name: "not on curve", data: flipLastBit(elliptic.Marshal(crv.Curve, key.X, key.Y))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := crv.DecodePoint(tt.data); err == nil {
				t.Error("want error, got nil")
			}
		})
	}
}

func flipLastBit(p []byte) []byte {
	q := append([]byte(nil), p...)
	q[len(q)-1] ^= 1
	return q
}
