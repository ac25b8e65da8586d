package stdcrypto

import (
	"crypto"
	"crypto/hmac"
	"errors"
	"fmt"
	"hash"

	"github.com/shogo82148/dcrypt"
	"github.com/shogo82148/dcrypt/internal/memzero"
)

func (b *backend) NewMAC(algorithm string) (dcrypt.MAC, error) {
	h, ok := dcrypt.LookupHash(algorithm)
	if !ok {
		return nil, fmt.Errorf("stdcrypto: digest %s: %w", algorithm, dcrypt.ErrInvalidCipher)
	}
	return &hmacContext{backend: b, hash: h}, nil
}

var _ dcrypt.MAC = (*hmacContext)(nil)

type hmacContext struct {
	backend *backend
	hash    crypto.Hash
	key     []byte
	keySet  bool
	mac     hash.Hash
}

func (c *hmacContext) SetKey(key []byte) {
	memzero.Bytes(c.key)
	c.key = append([]byte(nil), key...)
	c.keySet = true
}

func (c *hmacContext) SetRandomKey() error {
	key := make([]byte, c.hash.New().BlockSize())
	if err := c.backend.Rand(key); err != nil {
		return err
	}
	memzero.Bytes(c.key)
	c.key = key
	c.keySet = true
	return nil
}

func (c *hmacContext) DigestLength() int {
	return c.hash.Size()
}

func (c *hmacContext) Init() error {
	if !c.keySet {
		return &dcrypt.BackendError{Op: "hmac init", Err: errors.New("key must be set")}
	}
	c.mac = hmac.New(c.hash.New, c.key)
	return nil
}

func (c *hmacContext) Update(p []byte) error {
	if c.mac == nil {
		return &dcrypt.BackendError{Op: "hmac update", Err: errors.New("context is not initialized")}
	}
	c.mac.Write(p)
	return nil
}

func (c *hmacContext) Final(dst []byte) ([]byte, error) {
	if c.mac == nil {
		return dst, &dcrypt.BackendError{Op: "hmac final", Err: errors.New("context is not initialized")}
	}
	dst = c.mac.Sum(dst)
	c.mac = nil
	return dst, nil
}

func (c *hmacContext) Destroy() {
	memzero.Bytes(c.key)
	c.key = nil
	c.keySet = false
	c.mac = nil
}
