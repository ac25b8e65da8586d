package dkey

import (
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/shogo82148/dcrypt"
	"github.com/shogo82148/dcrypt/internal/memzero"
)

func parsePEMPrivateKey(data, password string) (*dcrypt.PrivateKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("dkey: decoding PEM failed: %w", dcrypt.ErrCorruptedData)
	}
	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) {
		if password == "" {
			return nil, fmt.Errorf("dkey: password required to decrypt key: %w", dcrypt.ErrWrongDecryptionKey)
		}
		var err error
		der, err = x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			if errors.Is(err, x509.IncorrectPasswordError) {
				return nil, fmt.Errorf("dkey: %v: %w", err, dcrypt.ErrWrongDecryptionKey)
			}
			return nil, &dcrypt.BackendError{Op: "decrypt PEM block", Err: err}
		}
		defer memzero.Bytes(der)
	}
	switch block.Type {
	case "PRIVATE KEY":
		return dcrypt.ParsePrivateKeyDER(der)
	case "EC PRIVATE KEY":
		return dcrypt.ParseECPrivateKey(der)
	case "RSA PRIVATE KEY":
		priv, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("dkey: malformed private key: %w", dcrypt.ErrCorruptedData)
		}
		return dcrypt.NewPrivateKey(priv)
	case "ENCRYPTED PRIVATE KEY":
		return nil, fmt.Errorf("dkey: PKCS#8 encrypted private keys: %w", dcrypt.ErrUnsupportedOperation)
	}
	return nil, fmt.Errorf("dkey: unknown PEM block type %q: %w", block.Type, dcrypt.ErrCorruptedData)
}

func formatPEMPrivateKey(key *dcrypt.PrivateKey, password string) (string, error) {
	if password == "" {
		der, err := key.MarshalDER()
		if err != nil {
			return "", err
		}
		out := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
		memzero.Bytes(der)
		return string(out), nil
	}

	// The toolkit's PEM encryption is the legacy DEK-Info scheme, which
	// works on the type specific encodings.
	var blockType string
	var der []byte
	var err error
	switch key.Kind() {
	case dcrypt.KeyEC:
		blockType = "EC PRIVATE KEY"
		der, err = dcrypt.MarshalECPrivateKey(key)
		if err != nil {
			return "", err
		}
	case dcrypt.KeyRSA:
		blockType = "RSA PRIVATE KEY"
		der = x509.MarshalPKCS1PrivateKey(key.RSA())
	default:
		return "", fmt.Errorf("dkey: unknown key kind: %w", dcrypt.ErrUnsupportedOperation)
	}
	block, err := x509.EncryptPEMBlock(rand.Reader, blockType, der, []byte(password), x509.PEMCipherAES256)
	memzero.Bytes(der)
	if err != nil {
		return "", &dcrypt.BackendError{Op: "encrypt PEM block", Err: err}
	}
	return string(pem.EncodeToMemory(block)), nil
}

func parsePEMPublicKey(data string) (*dcrypt.PublicKey, error) {
	block, _ := pem.Decode([]byte(data))
	if block == nil {
		return nil, fmt.Errorf("dkey: decoding PEM failed: %w", dcrypt.ErrCorruptedData)
	}
	switch block.Type {
	case "PUBLIC KEY":
		return dcrypt.ParsePublicKeyDER(block.Bytes)
	case "CERTIFICATE":
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("dkey: malformed certificate: %w", dcrypt.ErrCorruptedData)
		}
		return dcrypt.NewPublicKey(cert.PublicKey)
	}
	return nil, fmt.Errorf("dkey: unknown PEM block type %q: %w", block.Type, dcrypt.ErrCorruptedData)
}

func formatPEMPublicKey(key *dcrypt.PublicKey) (string, error) {
	der, err := key.MarshalDER()
	if err != nil {
		return "", err
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}
