package mpi

import (
	"bytes"
	"math/big"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		in   *big.Int
		want []byte
	}{
		{big.NewInt(0), []byte{0x00, 0x00, 0x00, 0x00}},
		{big.NewInt(1), []byte{0x00, 0x00, 0x00, 0x01, 0x01}},
		{big.NewInt(0x7f), []byte{0x00, 0x00, 0x00, 0x01, 0x7f}},

		// the sign bit forces a leading zero byte
		{big.NewInt(0x80), []byte{0x00, 0x00, 0x00, 0x02, 0x00, 0x80}},
		{big.NewInt(0x0102), []byte{0x00, 0x00, 0x00, 0x02, 0x01, 0x02}},
	}
	for _, tt := range tests {
		got := Encode(tt.in)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("Encode(%v): want %x, got %x", tt.in, tt.want, got)
		}
	}
}

func TestDecode(t *testing.T) {
	for _, s := range []string{"0", "1", "127", "128", "65537", "340282366920938463463374607431768211456"} {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			t.Fatal("failed to parse " + s)
		}
		got, err := Decode(Encode(n))
		if err != nil {
			t.Fatalf("Decode(Encode(%s)): %v", s, err)
		}
		if got.Cmp(n) != 0 {
			t.Errorf("Decode(Encode(%s)): want %v, got %v", s, n, got)
		}
	}
}

func TestDecode_invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "truncated header", data: []byte{0x00, 0x00, 0x00}},
		{name: "truncated body", data: []byte{0x00, 0x00, 0x00, 0x02, 0x01}},
		{name: "trailing data", data: []byte{0x00, 0x00, 0x00, 0x01, 0x01, 0x02}},
		{name: "negative", data: []byte{0x00, 0x00, 0x00, 0x01, 0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); err == nil {
				t.Errorf("want error, got nil")
			}
		})
	}
}
