// Package stdcrypto provides the default dcrypt backend built on the
// standard library crypto packages and golang.org/x/crypto. Importing
// the package registers the backend:
//
//	import _ "github.com/shogo82148/dcrypt/stdcrypto"
package stdcrypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/shogo82148/dcrypt"
	"golang.org/x/crypto/pbkdf2"
)

func init() {
	dcrypt.RegisterBackend("stdcrypto", New)
}

// New returns the standard library backend.
func New() dcrypt.Backend {
	return &backend{}
}

var _ dcrypt.Backend = (*backend)(nil)

type backend struct{}

func (*backend) Name() string {
	return "stdcrypto"
}

func (*backend) Rand(p []byte) error {
	if _, err := io.ReadFull(rand.Reader, p); err != nil {
		return &dcrypt.BackendError{Op: "rand", Err: err}
	}
	return nil
}

func (*backend) PBKDF2(password, salt []byte, algorithm string, rounds, length int) ([]byte, error) {
	if rounds <= 0 {
		return nil, &dcrypt.BackendError{Op: "pbkdf2", Err: errors.New("round count must be positive")}
	}
	if length <= 0 {
		return nil, &dcrypt.BackendError{Op: "pbkdf2", Err: errors.New("output length must be positive")}
	}
	h, ok := dcrypt.LookupHash(algorithm)
	if !ok {
		return nil, fmt.Errorf("stdcrypto: digest %s: %w", algorithm, dcrypt.ErrInvalidCipher)
	}
	return pbkdf2.Key(password, salt, rounds, length, h.New), nil
}
