package dkey

import (
	"crypto/x509"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/shogo82148/dcrypt"
	"github.com/shogo82148/dcrypt/internal/memzero"
	"github.com/shogo82148/dcrypt/internal/mpi"
)

// PBKDF2 parameters written by the v2 store path. Loading reads the
// parameters back from the record, so these can change without
// breaking stored keys.
const (
	keyEncryptHash   = "sha256"
	keyEncryptRounds = 2048
)

// v2 key encrypted records carry a random secret wrapped to the
// encryption key; RSA wrapping encrypts a secret of this size.
const wrapSecretSize = 16

const saltSize = 8

var oidRSA = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}

func parsePublicKeyV2(fields []string) (*dcrypt.PublicKey, error) {
	if len(fields) != 2 {
		return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
	}
	der, err := hex.DecodeString(fields[1])
	if err != nil {
		return nil, fmt.Errorf("dkey: malformed public key: %w", dcrypt.ErrCorruptedData)
	}
	return dcrypt.ParsePublicKeyDER(der)
}

func formatPublicKeyV2(key *dcrypt.PublicKey) (string, error) {
	der, err := key.MarshalDER()
	if err != nil {
		return "", err
	}
	return "2\t" + hex.EncodeToString(der), nil
}

func parsePrivateKeyV2(fields []string, password string, decryptKey *dcrypt.PrivateKey) (*dcrypt.PrivateKey, error) {
	if len(fields) < 5 {
		return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
	}
	oid, err := parseOID(fields[1])
	if err != nil {
		return nil, err
	}
	var crv dcrypt.Curve
	isRSA := oid.Equal(oidRSA)
	if !isRSA {
		var ok bool
		crv, ok = dcrypt.CurveByOID(oid)
		if !ok {
			return nil, fmt.Errorf("dkey: key algorithm %s: %w", oid, dcrypt.ErrUnknownAlgorithm)
		}
	}

	var material []byte
	switch fields[2] {
	case "0":
		if len(fields) != 5 {
			return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
		}
		material, err = hex.DecodeString(fields[3])
		if err != nil {
			return nil, fmt.Errorf("dkey: malformed key material: %w", dcrypt.ErrCorruptedData)
		}
	case "1":
		if len(fields) != 11 {
			return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
		}
		secret, err := unwrapSecret(fields[8], fields[9], decryptKey)
		if err != nil {
			return nil, err
		}
		material, err = decryptV2(fields[3], fields[4], fields[5], fields[6], fields[7], secret)
		memzero.Bytes(secret)
		if err != nil {
			return nil, err
		}
	case "2":
		if len(fields) != 9 {
			return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
		}
		if password == "" {
			return nil, fmt.Errorf("dkey: password required to decrypt key: %w", dcrypt.ErrWrongDecryptionKey)
		}
		secret := []byte(password)
		material, err = decryptV2(fields[3], fields[4], fields[5], fields[6], fields[7], secret)
		memzero.Bytes(secret)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("dkey: unknown encryption type %q: %w", fields[2], dcrypt.ErrCorruptedData)
	}

	priv, err := decodePrivateMaterial(isRSA, crv, material)
	memzero.Bytes(material)
	if err != nil {
		return nil, err
	}
	id, err := priv.ID()
	if err != nil {
		priv.Destroy()
		return nil, err
	}
	if !strings.EqualFold(id, fields[len(fields)-1]) {
		priv.Destroy()
		return nil, fmt.Errorf("dkey: stored identifier does not match key: %w", dcrypt.ErrKeyIDMismatch)
	}
	return priv, nil
}

// unwrapSecret recovers the cipher secret of a key encrypted record:
// the peer material is the RSA-OAEP wrapped secret when the wrapping
// key is RSA, and the ephemeral ECDH point when it is EC. The wrapping
// key identifier stored with the record must match decryptKey.
func unwrapSecret(peerField, encKeyID string, decryptKey *dcrypt.PrivateKey) ([]byte, error) {
	if decryptKey == nil {
		return nil, fmt.Errorf("dkey: decryption key required: %w", dcrypt.ErrWrongDecryptionKey)
	}
	id, err := decryptKey.ID()
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(id, encKeyID) {
		return nil, fmt.Errorf("dkey: key is encrypted to %s: %w", encKeyID, dcrypt.ErrWrongDecryptionKey)
	}
	peer, err := hex.DecodeString(peerField)
	if err != nil {
		return nil, fmt.Errorf("dkey: malformed peer material: %w", dcrypt.ErrCorruptedData)
	}
	b := dcrypt.CurrentBackend()
	if decryptKey.Kind() == dcrypt.KeyRSA {
		return b.DecryptOAEP(decryptKey, peer)
	}
	return b.SharedSecret(decryptKey, peer)
}

func decryptV2(cipherName, saltField, kdfHash, roundsField, dataField string, secret []byte) ([]byte, error) {
	salt, err := hex.DecodeString(saltField)
	if err != nil {
		return nil, fmt.Errorf("dkey: malformed salt: %w", dcrypt.ErrCorruptedData)
	}
	rounds, err := strconv.Atoi(roundsField)
	if err != nil || rounds <= 0 {
		return nil, fmt.Errorf("dkey: malformed round count: %w", dcrypt.ErrCorruptedData)
	}
	data, err := hex.DecodeString(dataField)
	if err != nil {
		return nil, fmt.Errorf("dkey: malformed key material: %w", dcrypt.ErrCorruptedData)
	}
	b := dcrypt.CurrentBackend()
	c, err := b.NewCipher(cipherName, dcrypt.Decrypt)
	if err != nil {
		return nil, err
	}
	defer c.Destroy()
	if tagLen := c.TagLength(); tagLen > 0 {
		if len(data) < tagLen {
			return nil, fmt.Errorf("dkey: key material shorter than authentication tag: %w", dcrypt.ErrCorruptedData)
		}
		c.SetTag(data[len(data)-tagLen:])
		data = data[:len(data)-tagLen]
	}
	kdf, err := b.PBKDF2(secret, salt, kdfHash, rounds, c.KeyLength()+c.IVLength())
	if err != nil {
		return nil, err
	}
	c.SetKey(kdf[:c.KeyLength()])
	c.SetIV(kdf[c.KeyLength():])
	memzero.Bytes(kdf)
	if err := c.Init(); err != nil {
		return nil, err
	}
	out, err := c.Update(nil, data)
	if err != nil {
		return nil, err
	}
	return c.Final(out)
}

func decodePrivateMaterial(isRSA bool, crv dcrypt.Curve, material []byte) (*dcrypt.PrivateKey, error) {
	if isRSA {
		key, err := x509.ParsePKCS1PrivateKey(material)
		if err != nil {
			return nil, &dcrypt.BackendError{Op: "parse RSA private key", Err: err}
		}
		priv, err := dcrypt.NewPrivateKey(key)
		if err != nil {
			return nil, err
		}
		if err := dcrypt.CheckPrivateKey(priv); err != nil {
			priv.Destroy()
			return nil, err
		}
		return priv, nil
	}
	d, err := mpi.Decode(material)
	if err != nil {
		return nil, &dcrypt.BackendError{Op: "decode private scalar", Err: err}
	}
	priv, err := crv.PrivateKeyFromScalar(d)
	memzero.Big(d)
	return priv, err
}

func formatPrivateKeyV2(key *dcrypt.PrivateKey, cipherName, password string, encryptKey *dcrypt.PublicKey) (string, error) {
	oidText, material, err := privateMaterial(key)
	if err != nil {
		return "", err
	}
	defer memzero.Bytes(material)

	fields := []string{"2", oidText}
	if cipherName == "" {
		fields = append(fields, "0", hex.EncodeToString(material))
	} else {
		b := dcrypt.CurrentBackend()
		salt := make([]byte, saltSize)
		if err := b.Rand(salt); err != nil {
			return "", err
		}
		var secret, peer []byte
		var encKeyID, enctype string
		if algo, ok := strings.CutPrefix(cipherName, "ecdh-"); ok {
			if encryptKey == nil {
				return "", fmt.Errorf("dkey: encryption key required for cipher %s: %w", cipherName, dcrypt.ErrUnsupportedOperation)
			}
			cipherName = algo
			enctype = "1"
			if encryptKey.Kind() == dcrypt.KeyRSA {
				secret = make([]byte, wrapSecretSize)
				if err := b.Rand(secret); err != nil {
					return "", err
				}
				peer, err = b.EncryptOAEP(encryptKey, secret)
			} else {
				peer, secret, err = b.EphemeralSharedSecret(encryptKey)
			}
			if err != nil {
				return "", err
			}
			encKeyID, err = encryptKey.ID()
			if err != nil {
				memzero.Bytes(secret)
				return "", err
			}
		} else {
			if password == "" {
				return "", fmt.Errorf("dkey: password required for cipher %s: %w", cipherName, dcrypt.ErrUnsupportedOperation)
			}
			enctype = "2"
			secret = []byte(password)
		}
		data, err := encryptV2(cipherName, salt, secret, material)
		memzero.Bytes(secret)
		if err != nil {
			return "", err
		}
		fields = append(fields, enctype, cipherName,
			hex.EncodeToString(salt), keyEncryptHash,
			strconv.Itoa(keyEncryptRounds), hex.EncodeToString(data))
		if enctype == "1" {
			fields = append(fields, hex.EncodeToString(peer), encKeyID)
		}
	}

	id, err := key.ID()
	if err != nil {
		return "", err
	}
	fields = append(fields, id)
	return strings.Join(fields, "\t"), nil
}

func encryptV2(cipherName string, salt, secret, material []byte) ([]byte, error) {
	b := dcrypt.CurrentBackend()
	c, err := b.NewCipher(cipherName, dcrypt.Encrypt)
	if err != nil {
		return nil, err
	}
	defer c.Destroy()
	kdf, err := b.PBKDF2(secret, salt, keyEncryptHash, keyEncryptRounds, c.KeyLength()+c.IVLength())
	if err != nil {
		return nil, err
	}
	c.SetKey(kdf[:c.KeyLength()])
	c.SetIV(kdf[c.KeyLength():])
	memzero.Bytes(kdf)
	if err := c.Init(); err != nil {
		return nil, err
	}
	out, err := c.Update(nil, material)
	if err != nil {
		return nil, err
	}
	out, err = c.Final(out)
	if err != nil {
		return nil, err
	}
	if c.TagLength() > 0 {
		out = append(out, c.Tag()...)
	}
	return out, nil
}

// privateMaterial serializes the raw private key material of a v2
// record: DER RSAPrivateKey for RSA, the MPI encoded scalar for EC.
// The first return value is the dotted text of the key algorithm OID.
func privateMaterial(key *dcrypt.PrivateKey) (string, []byte, error) {
	switch key.Kind() {
	case dcrypt.KeyRSA:
		return oidRSA.String(), x509.MarshalPKCS1PrivateKey(key.RSA()), nil
	case dcrypt.KeyEC:
		crv, err := key.Public().Curve()
		if err != nil {
			return "", nil, err
		}
		return crv.OID.String(), mpi.Encode(key.EC().D), nil
	}
	return "", nil, fmt.Errorf("dkey: unknown key kind: %w", dcrypt.ErrUnsupportedOperation)
}

func parseOID(text string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(text, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("dkey: key algorithm %q: %w", text, dcrypt.ErrUnknownAlgorithm)
	}
	oid := make(asn1.ObjectIdentifier, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("dkey: key algorithm %q: %w", text, dcrypt.ErrUnknownAlgorithm)
		}
		oid = append(oid, n)
	}
	return oid, nil
}
