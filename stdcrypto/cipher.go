package stdcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/shogo82148/dcrypt"
	"github.com/shogo82148/dcrypt/internal/memzero"
)

type blockMode int

const (
	modeCTR blockMode = iota
	modeCBC
	modeGCM
)

type cipherSpec struct {
	keyLen    int
	ivLen     int
	blockSize int
	mode      blockMode
}

var ciphers = map[string]*cipherSpec{
	"aes-128-ctr": {keyLen: 16, ivLen: 16, blockSize: 1, mode: modeCTR},
	"aes-192-ctr": {keyLen: 24, ivLen: 16, blockSize: 1, mode: modeCTR},
	"aes-256-ctr": {keyLen: 32, ivLen: 16, blockSize: 1, mode: modeCTR},
	"aes-128-cbc": {keyLen: 16, ivLen: 16, blockSize: aes.BlockSize, mode: modeCBC},
	"aes-192-cbc": {keyLen: 24, ivLen: 16, blockSize: aes.BlockSize, mode: modeCBC},
	"aes-256-cbc": {keyLen: 32, ivLen: 16, blockSize: aes.BlockSize, mode: modeCBC},
	"aes-128-gcm": {keyLen: 16, ivLen: 12, blockSize: 1, mode: modeGCM},
	"aes-192-gcm": {keyLen: 24, ivLen: 12, blockSize: 1, mode: modeGCM},
	"aes-256-gcm": {keyLen: 32, ivLen: 12, blockSize: 1, mode: modeGCM},
}

const gcmTagSize = 16

func (b *backend) NewCipher(algorithm string, mode dcrypt.Mode) (dcrypt.Cipher, error) {
	spec, ok := ciphers[algorithm]
	if !ok {
		return nil, fmt.Errorf("stdcrypto: cipher %s: %w", algorithm, dcrypt.ErrInvalidCipher)
	}
	return &symCipher{
		backend: b,
		name:    algorithm,
		spec:    spec,
		mode:    mode,
		key:     make([]byte, spec.keyLen),
		iv:      make([]byte, spec.ivLen),
		padding: true,
	}, nil
}

var _ dcrypt.Cipher = (*symCipher)(nil)

// symCipher is a streaming symmetric cipher context. The underlying
// cipher state is acquired at Init and released at Final; the
// configuration and the tag produced by an AEAD Final stay readable
// until Destroy.
type symCipher struct {
	backend *backend
	name    string
	spec    *cipherSpec
	mode    dcrypt.Mode

	key     []byte
	iv      []byte
	keySet  bool
	ivSet   bool
	aad     []byte
	aadSet  bool
	tag     []byte
	padding bool

	inited bool
	stream cipher.Stream
	block  cipher.BlockMode
	aead   cipher.AEAD
	buf    []byte
}

func (c *symCipher) SetKey(key []byte) {
	memzero.Bytes(c.key)
	copy(c.key, key)
	c.keySet = true
}

func (c *symCipher) SetIV(iv []byte) {
	memzero.Bytes(c.iv)
	copy(c.iv, iv)
	c.ivSet = true
}

func (c *symCipher) SetRandomKeyIV() error {
	if err := c.backend.Rand(c.key); err != nil {
		return err
	}
	if err := c.backend.Rand(c.iv); err != nil {
		return err
	}
	c.keySet = true
	c.ivSet = true
	return nil
}

func (c *symCipher) SetPadding(padding bool) {
	c.padding = padding
}

func (c *symCipher) SetAAD(aad []byte) {
	c.aad = append([]byte(nil), aad...)
	c.aadSet = true
}

func (c *symCipher) SetTag(tag []byte) {
	c.tag = append([]byte(nil), tag...)
}

func (c *symCipher) Key() []byte { return c.key }
func (c *symCipher) IV() []byte  { return c.iv }
func (c *symCipher) AAD() []byte { return c.aad }
func (c *symCipher) Tag() []byte { return c.tag }

func (c *symCipher) KeyLength() int { return c.spec.keyLen }
func (c *symCipher) IVLength() int  { return c.spec.ivLen }
func (c *symCipher) BlockSize() int { return c.spec.blockSize }

func (c *symCipher) TagLength() int {
	if c.spec.mode == modeGCM {
		return gcmTagSize
	}
	return 0
}

func (c *symCipher) Init() error {
	if !c.keySet || !c.ivSet {
		return &dcrypt.BackendError{Op: "cipher init", Err: errors.New("key and IV must be set")}
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return &dcrypt.BackendError{Op: "cipher init", Err: err}
	}
	memzero.Bytes(c.buf)
	c.buf = nil
	switch c.spec.mode {
	case modeCTR:
		c.stream = cipher.NewCTR(block, c.iv)
	case modeCBC:
		if c.mode == dcrypt.Encrypt {
			c.block = cipher.NewCBCEncrypter(block, c.iv)
		} else {
			c.block = cipher.NewCBCDecrypter(block, c.iv)
		}
	case modeGCM:
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return &dcrypt.BackendError{Op: "cipher init", Err: err}
		}
		c.aead = aead
	}
	if c.mode == dcrypt.Encrypt {
		c.tag = nil
	}
	c.inited = true
	return nil
}

func (c *symCipher) Update(dst, src []byte) ([]byte, error) {
	if !c.inited {
		return dst, &dcrypt.BackendError{Op: "cipher update", Err: errors.New("context is not initialized")}
	}
	switch c.spec.mode {
	case modeCTR:
		n := len(dst)
		dst = append(dst, src...)
		c.stream.XORKeyStream(dst[n:], dst[n:])
		return dst, nil
	case modeCBC:
		c.buf = append(c.buf, src...)
		bs := c.spec.blockSize
		n := len(c.buf) / bs * bs
		// Hold the trailing block back when decrypting: it may carry
		// the padding that Final strips.
		if c.mode == dcrypt.Decrypt && c.padding && n == len(c.buf) {
			n -= bs
		}
		if n <= 0 {
			return dst, nil
		}
		off := len(dst)
		dst = append(dst, c.buf[:n]...)
		c.block.CryptBlocks(dst[off:], dst[off:])
		rest := append([]byte(nil), c.buf[n:]...)
		memzero.Bytes(c.buf)
		c.buf = rest
		return dst, nil
	case modeGCM:
		c.buf = append(c.buf, src...)
		return dst, nil
	}
	return dst, &dcrypt.BackendError{Op: "cipher update", Err: errors.New("unknown cipher mode")}
}

func (c *symCipher) Final(dst []byte) ([]byte, error) {
	if !c.inited {
		return dst, &dcrypt.BackendError{Op: "cipher final", Err: errors.New("context is not initialized")}
	}
	defer c.release()
	bs := c.spec.blockSize
	switch c.spec.mode {
	case modeCTR:
		return dst, nil
	case modeCBC:
		if c.mode == dcrypt.Encrypt {
			if !c.padding {
				if len(c.buf) != 0 {
					return dst, &dcrypt.BackendError{Op: "cipher final", Err: errors.New("input is not block aligned")}
				}
				return dst, nil
			}
			pad := bs - len(c.buf)%bs
			for i := 0; i < pad; i++ {
				c.buf = append(c.buf, byte(pad))
			}
			off := len(dst)
			dst = append(dst, c.buf...)
			c.block.CryptBlocks(dst[off:], dst[off:])
			return dst, nil
		}
		if !c.padding {
			if len(c.buf) != 0 {
				return dst, &dcrypt.BackendError{Op: "cipher final", Err: errors.New("input is not block aligned")}
			}
			return dst, nil
		}
		if len(c.buf) != bs {
			return dst, &dcrypt.BackendError{Op: "cipher final", Err: errors.New("bad decrypt")}
		}
		last := make([]byte, bs)
		c.block.CryptBlocks(last, c.buf)
		pad := int(last[bs-1])
		if pad <= 0 || pad > bs {
			memzero.Bytes(last)
			return dst, &dcrypt.BackendError{Op: "cipher final", Err: errors.New("bad decrypt")}
		}
		for _, b := range last[bs-pad:] {
			if int(b) != pad {
				memzero.Bytes(last)
				return dst, &dcrypt.BackendError{Op: "cipher final", Err: errors.New("bad decrypt")}
			}
		}
		dst = append(dst, last[:bs-pad]...)
		memzero.Bytes(last)
		return dst, nil
	case modeGCM:
		if c.mode == dcrypt.Encrypt {
			sealed := c.aead.Seal(nil, c.iv, c.buf, c.aad)
			n := len(sealed) - gcmTagSize
			c.tag = append([]byte(nil), sealed[n:]...)
			dst = append(dst, sealed[:n]...)
			memzero.Bytes(sealed)
			return dst, nil
		}
		if len(c.tag) != gcmTagSize {
			return dst, &dcrypt.BackendError{Op: "cipher final", Err: errors.New("authentication tag is not set")}
		}
		in := make([]byte, 0, len(c.buf)+gcmTagSize)
		in = append(in, c.buf...)
		in = append(in, c.tag...)
		plain, err := c.aead.Open(nil, c.iv, in, c.aad)
		if err != nil {
			return dst, fmt.Errorf("stdcrypto: %v: %w", err, dcrypt.ErrAuthenticationFailed)
		}
		dst = append(dst, plain...)
		memzero.Bytes(plain)
		return dst, nil
	}
	return dst, &dcrypt.BackendError{Op: "cipher final", Err: errors.New("unknown cipher mode")}
}

// release drops the live cipher state. Final calls it on both success
// and failure; the context must be re-initialized before reuse.
func (c *symCipher) release() {
	c.stream = nil
	c.block = nil
	c.aead = nil
	memzero.Bytes(c.buf)
	c.buf = nil
	c.inited = false
}

func (c *symCipher) Destroy() {
	c.release()
	memzero.Bytes(c.key)
	memzero.Bytes(c.iv)
	memzero.Bytes(c.tag)
	memzero.Bytes(c.aad)
	c.keySet = false
	c.ivSet = false
}
