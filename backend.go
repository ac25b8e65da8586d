package dcrypt

// Cipher is a streaming symmetric cipher context with a strict
// lifecycle: configure key and IV, Init, any number of Update calls,
// then Final. After Final the context must be re-initialized before it
// can be used again; configuration getters remain valid until Destroy.
type Cipher interface {
	// SetKey copies key into the context, truncating or zero-padding it
	// to the cipher's key length.
	SetKey(key []byte)

	// SetIV copies iv into the context, truncating or zero-padding it
	// to the cipher's IV length.
	SetIV(iv []byte)

	// SetRandomKeyIV fills both key and IV with cryptographically
	// strong random bytes sized to the cipher.
	SetRandomKeyIV() error

	// SetPadding enables or disables PKCS#7 padding for block modes.
	// Padding is enabled by default.
	SetPadding(padding bool)

	// SetAAD sets the additional authenticated data for AEAD ciphers.
	SetAAD(aad []byte)

	// SetTag sets the authentication tag to verify at Final when
	// decrypting with an AEAD cipher.
	SetTag(tag []byte)

	Key() []byte
	IV() []byte
	AAD() []byte

	// Tag returns the authentication tag produced by Final when
	// encrypting with an AEAD cipher.
	Tag() []byte

	KeyLength() int
	IVLength() int
	BlockSize() int

	// TagLength returns the size of the authentication tag for AEAD
	// ciphers, and 0 for ciphers without authentication.
	TagLength() int

	// Init acquires the underlying cipher state. Key and IV must be set
	// before Init is called.
	Init() error

	// Update feeds src through the cipher and appends any produced
	// output to dst, returning the extended slice.
	Update(dst, src []byte) ([]byte, error)

	// Final completes the operation, appending any remaining output to
	// dst, and releases the underlying cipher state.
	Final(dst []byte) ([]byte, error)

	// Destroy zeroizes the context's key material. It is idempotent and
	// safe to call on a partially initialized context.
	Destroy()
}

// MAC is a streaming HMAC context with the same lifecycle as Cipher.
type MAC interface {
	// SetKey copies key into the context.
	SetKey(key []byte)

	// SetRandomKey fills the key with random bytes sized to the block
	// size of the underlying digest.
	SetRandomKey() error

	// DigestLength returns the size of the digest appended by Final.
	DigestLength() int

	Init() error
	Update(p []byte) error
	Final(dst []byte) ([]byte, error)
	Destroy()
}

// Backend is the record of cryptographic entry points installed
// process-wide at initialization. All higher level operations go
// through it so an alternative toolkit can be substituted.
type Backend interface {
	Name() string

	// NewCipher returns a symmetric cipher context for the named
	// algorithm (e.g. "aes-256-ctr", "aes-256-gcm") in the given mode.
	NewCipher(algorithm string, mode Mode) (Cipher, error)

	// NewMAC returns an HMAC context over the named digest.
	NewMAC(algorithm string) (MAC, error)

	// PBKDF2 derives length bytes from password and salt using
	// PBKDF2-HMAC over the named digest.
	PBKDF2(password, salt []byte, algorithm string, rounds, length int) ([]byte, error)

	// Rand fills p with cryptographically strong random bytes.
	Rand(p []byte) error

	// GenerateKeyPair generates a new keypair. For KeyRSA, bits governs
	// the modulus size and curve is ignored; for KeyEC, curve names the
	// target curve and bits is ignored.
	GenerateKeyPair(kind KeyKind, bits int, curve string) (*KeyPair, error)

	// SharedSecret performs ECDH between priv and a peer-supplied
	// encoded point on priv's curve, returning the X coordinate bytes.
	SharedSecret(priv *PrivateKey, peerPoint []byte) ([]byte, error)

	// EphemeralSharedSecret generates an ephemeral keypair on pub's
	// curve and performs ECDH against pub. It returns the compressed
	// ephemeral public point and the shared secret.
	EphemeralSharedSecret(pub *PublicKey) (point, secret []byte, err error)

	// EncryptOAEP encrypts msg to the RSA public key with RSA-OAEP.
	EncryptOAEP(pub *PublicKey, msg []byte) ([]byte, error)

	// DecryptOAEP decrypts an RSA-OAEP blob with the RSA private key.
	DecryptOAEP(priv *PrivateKey, data []byte) ([]byte, error)
}
