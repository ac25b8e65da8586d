// Package mpi implements the OpenSSL MPI serialization of big integers:
// a four byte big-endian length followed by the big-endian magnitude,
// with a leading zero byte when the top bit of the magnitude is set.
package mpi

import (
	"encoding/binary"
	"errors"
	"math/big"
)

// Encode serializes the non-negative integer n.
func Encode(n *big.Int) []byte {
	mag := n.Bytes()
	pad := 0
	if len(mag) > 0 && mag[0]&0x80 != 0 {
		pad = 1
	}
	out := make([]byte, 4+pad+len(mag))
	binary.BigEndian.PutUint32(out, uint32(pad+len(mag)))
	copy(out[4+pad:], mag)
	return out
}

// Decode parses an MPI-encoded integer. The whole input must be
// consumed.
func Decode(data []byte) (*big.Int, error) {
	if len(data) < 4 {
		return nil, errors.New("mpi: truncated header")
	}
	n := binary.BigEndian.Uint32(data)
	if uint32(len(data)-4) != n {
		return nil, errors.New("mpi: length mismatch")
	}
	if n > 0 && data[4]&0x80 != 0 {
		return nil, errors.New("mpi: negative value")
	}
	return new(big.Int).SetBytes(data[4:]), nil
}
