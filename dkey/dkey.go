// Package dkey implements the textual key serialization formats used
// for mail storage keys: the legacy v1 format (EC only, read only),
// the current v2 format (EC and RSA, read and write), and PEM
// import/export delegated to the toolkit.
//
// Records are single lines of TAB separated fields with lowercase hex
// for binary data; callers frame lines externally. Private keys can be
// stored unencrypted, password encrypted (PBKDF2 derived cipher key),
// or key encrypted (ECDH derived or RSA-OAEP wrapped secret).
package dkey

import (
	"fmt"
	"strings"

	"github.com/shogo82148/dcrypt"
)

const pemMarker = "-----BEGIN "

// Format distinguishes the serialization families.
type Format int

const (
	// FormatDovecot is the TAB separated textual record format.
	FormatDovecot Format = iota

	// FormatPEM is standard PEM with PKCS#8 and SubjectPublicKeyInfo
	// payloads.
	FormatPEM
)

func (f Format) String() string {
	switch f {
	case FormatDovecot:
		return "Dovecot"
	case FormatPEM:
		return "PEM"
	}
	return "(unknown)"
}

// Version is the Dovecot record version; VersionNA is reported for PEM.
type Version int

const (
	VersionNA Version = 0
	Version1  Version = 1
	Version2  Version = 2
)

func (v Version) String() string {
	switch v {
	case Version1:
		return "1"
	case Version2:
		return "2"
	}
	return "N/A"
}

// Kind distinguishes public from private key records.
type Kind int

const (
	KindPublic Kind = iota
	KindPrivate
)

func (k Kind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindPrivate:
		return "private"
	}
	return "(unknown)"
}

// EncryptionType is the on-disk private key protection mode.
type EncryptionType int

const (
	// EncryptionNone stores the key material in the clear.
	EncryptionNone EncryptionType = iota

	// EncryptionPassword derives the cipher key from a password.
	EncryptionPassword

	// EncryptionKey wraps the cipher secret to another key, either by
	// ECDH key agreement or RSA-OAEP.
	EncryptionKey
)

func (t EncryptionType) String() string {
	switch t {
	case EncryptionNone:
		return "none"
	case EncryptionPassword:
		return "password"
	case EncryptionKey:
		return "key"
	}
	return "(unknown)"
}

// ParsePrivateKey loads a private key from any supported serialization.
// password decrypts password protected records and legacy encrypted
// PEM; decryptKey unwraps key encrypted records.
func ParsePrivateKey(data string, password string, decryptKey *dcrypt.PrivateKey) (*dcrypt.PrivateKey, error) {
	if strings.Contains(data, pemMarker) {
		return parsePEMPrivateKey(data, password)
	}
	fields := strings.Split(data, "\t")
	switch fields[0] {
	case "1":
		return parsePrivateKeyV1(fields, password, decryptKey)
	case "2":
		return parsePrivateKeyV2(fields, password, decryptKey)
	}
	return nil, fmt.Errorf("dkey: unknown key version: %w", dcrypt.ErrCorruptedData)
}

// ParsePublicKey loads a public key from any supported serialization.
func ParsePublicKey(data string) (*dcrypt.PublicKey, error) {
	if strings.Contains(data, pemMarker) {
		return parsePEMPublicKey(data)
	}
	fields := strings.Split(data, "\t")
	switch fields[0] {
	case "1":
		return parsePublicKeyV1(fields)
	case "2":
		return parsePublicKeyV2(fields)
	}
	return nil, fmt.Errorf("dkey: unknown key version: %w", dcrypt.ErrCorruptedData)
}

// FormatPrivateKey serializes a private key. In FormatDovecot the v2
// record format is written; cipher selects the protection mode: empty
// for none, a cipher name (e.g. "aes-256-ctr") with password for
// password encryption, or the same name with an "ecdh-" prefix with
// encryptKey for key encryption. In FormatPEM a non-empty password
// selects the toolkit's legacy PEM encryption; cipher and encryptKey
// are not supported.
func FormatPrivateKey(key *dcrypt.PrivateKey, format Format, cipher, password string, encryptKey *dcrypt.PublicKey) (string, error) {
	switch format {
	case FormatDovecot:
		return formatPrivateKeyV2(key, cipher, password, encryptKey)
	case FormatPEM:
		if cipher != "" || encryptKey != nil {
			return "", fmt.Errorf("dkey: PEM does not support cipher selection or key encryption: %w", dcrypt.ErrUnsupportedOperation)
		}
		return formatPEMPrivateKey(key, password)
	}
	return "", fmt.Errorf("dkey: unknown format: %w", dcrypt.ErrUnsupportedOperation)
}

// FormatPublicKey serializes a public key in the requested format.
func FormatPublicKey(key *dcrypt.PublicKey, format Format) (string, error) {
	switch format {
	case FormatDovecot:
		return formatPublicKeyV2(key)
	case FormatPEM:
		return formatPEMPublicKey(key)
	}
	return "", fmt.Errorf("dkey: unknown format: %w", dcrypt.ErrUnsupportedOperation)
}

// Info describes a serialized key without loading it; no cryptographic
// operations are performed.
type Info struct {
	Format     Format
	Version    Version
	Kind       Kind
	Encryption EncryptionType

	// EncryptionKeyID is the identifier of the wrapping key when
	// Encryption is EncryptionKey.
	EncryptionKeyID string

	// KeyID is the identifier stored with the record, if any.
	KeyID string
}

// ParseInfo inspects a serialized key string.
func ParseInfo(data string) (*Info, error) {
	if strings.Contains(data, pemMarker) {
		return parsePEMInfo(data)
	}
	fields := strings.Split(data, "\t")
	switch fields[0] {
	case "1":
		return parseInfoV1(fields)
	case "2":
		return parseInfoV2(fields)
	}
	return nil, fmt.Errorf("dkey: unknown key version: %w", dcrypt.ErrCorruptedData)
}

func parsePEMInfo(data string) (*Info, error) {
	info := &Info{Format: FormatPEM, Version: VersionNA}
	switch {
	case strings.Contains(data, "ENCRYPTED PRIVATE KEY"):
		info.Kind = KindPrivate
		info.Encryption = EncryptionPassword
	case strings.Contains(data, "PRIVATE"):
		info.Kind = KindPrivate
		if strings.Contains(data, "Proc-Type: 4,ENCRYPTED") {
			info.Encryption = EncryptionPassword
		}
	case strings.Contains(data, "PUBLIC"):
		info.Kind = KindPublic
	default:
		return nil, fmt.Errorf("dkey: unknown PEM block: %w", dcrypt.ErrCorruptedData)
	}
	return info, nil
}

func parseInfoV1(fields []string) (*Info, error) {
	info := &Info{Format: FormatDovecot, Version: Version1}
	switch len(fields) {
	case 3:
		info.Kind = KindPublic
		return info, nil
	case 5:
		info.Kind = KindPrivate
		info.KeyID = fields[4]
		return info, checkEnctype(fields[2], "0")
	case 6:
		info.Kind = KindPrivate
		info.Encryption = EncryptionPassword
		info.KeyID = fields[5]
		return info, checkEnctype(fields[2], "2")
	case 7:
		info.Kind = KindPrivate
		info.Encryption = EncryptionKey
		info.EncryptionKeyID = fields[5]
		info.KeyID = fields[6]
		return info, checkEnctype(fields[2], "1")
	}
	return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
}

func parseInfoV2(fields []string) (*Info, error) {
	info := &Info{Format: FormatDovecot, Version: Version2}
	switch len(fields) {
	case 2:
		info.Kind = KindPublic
		return info, nil
	case 5:
		info.Kind = KindPrivate
		info.KeyID = fields[4]
		return info, checkEnctype(fields[2], "0")
	case 9:
		info.Kind = KindPrivate
		info.Encryption = EncryptionPassword
		info.KeyID = fields[8]
		return info, checkEnctype(fields[2], "2")
	case 11:
		info.Kind = KindPrivate
		info.Encryption = EncryptionKey
		info.EncryptionKeyID = fields[9]
		info.KeyID = fields[10]
		return info, checkEnctype(fields[2], "1")
	}
	return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
}

func checkEnctype(got, want string) error {
	if got != want {
		return fmt.Errorf("dkey: field count does not match encryption type %q: %w", got, dcrypt.ErrCorruptedData)
	}
	return nil
}
