package dkey

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shogo82148/dcrypt"
	"github.com/shogo82148/dcrypt/internal/memzero"
)

// v1 password protected records use PBKDF2-HMAC-SHA1 with a fixed
// round count; the values are part of the format.
const (
	v1KDFHash   = "sha1"
	v1KDFRounds = 16
)

// v1 records always encrypt the private scalar with AES-256-CTR and an
// all-zero IV.
const v1Cipher = "aes-256-ctr"

func parsePublicKeyV1(fields []string) (*dcrypt.PublicKey, error) {
	if len(fields) != 3 {
		return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
	}
	crv, err := curveByNIDField(fields[1])
	if err != nil {
		return nil, err
	}
	point, err := hex.DecodeString(fields[2])
	if err != nil {
		return nil, fmt.Errorf("dkey: malformed public point: %w", dcrypt.ErrCorruptedData)
	}
	x, y, err := crv.DecodePoint(point)
	if err != nil {
		return nil, err
	}
	return dcrypt.NewPublicKey(&ecdsa.PublicKey{Curve: crv.Curve, X: x, Y: y})
}

func parsePrivateKeyV1(fields []string, password string, decryptKey *dcrypt.PrivateKey) (*dcrypt.PrivateKey, error) {
	if len(fields) < 5 {
		return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
	}
	crv, err := curveByNIDField(fields[1])
	if err != nil {
		return nil, err
	}
	b := dcrypt.CurrentBackend()

	var scalar []byte
	switch fields[2] {
	case "0":
		if len(fields) != 5 {
			return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
		}
		scalar, err = hex.DecodeString(fields[3])
		if err != nil {
			return nil, fmt.Errorf("dkey: malformed private scalar: %w", dcrypt.ErrCorruptedData)
		}
	case "2":
		if len(fields) != 6 {
			return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
		}
		if password == "" {
			return nil, fmt.Errorf("dkey: password required to decrypt key: %w", dcrypt.ErrWrongDecryptionKey)
		}
		enc, err := hex.DecodeString(fields[3])
		if err != nil {
			return nil, fmt.Errorf("dkey: malformed encrypted scalar: %w", dcrypt.ErrCorruptedData)
		}
		salt, err := hex.DecodeString(fields[4])
		if err != nil {
			return nil, fmt.Errorf("dkey: malformed salt: %w", dcrypt.ErrCorruptedData)
		}
		key, err := b.PBKDF2([]byte(password), salt, v1KDFHash, v1KDFRounds, 32)
		if err != nil {
			return nil, err
		}
		scalar, err = decryptV1(enc, key)
		memzero.Bytes(key)
		if err != nil {
			return nil, err
		}
	case "1":
		if len(fields) != 7 {
			return nil, fmt.Errorf("dkey: unexpected field count %d: %w", len(fields), dcrypt.ErrCorruptedData)
		}
		if decryptKey == nil {
			return nil, fmt.Errorf("dkey: decryption key required: %w", dcrypt.ErrWrongDecryptionKey)
		}
		enc, err := hex.DecodeString(fields[3])
		if err != nil {
			return nil, fmt.Errorf("dkey: malformed encrypted scalar: %w", dcrypt.ErrCorruptedData)
		}
		point, err := hex.DecodeString(fields[4])
		if err != nil {
			return nil, fmt.Errorf("dkey: malformed ephemeral point: %w", dcrypt.ErrCorruptedData)
		}
		secret, err := b.SharedSecret(decryptKey, point)
		if err != nil {
			return nil, err
		}
		key := sha256.Sum256(secret)
		memzero.Bytes(secret)
		scalar, err = decryptV1(enc, key[:])
		memzero.Bytes(key[:])
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("dkey: unknown encryption type %q: %w", fields[2], dcrypt.ErrCorruptedData)
	}

	d := new(big.Int).SetBytes(scalar)
	memzero.Bytes(scalar)
	priv, err := crv.PrivateKeyFromScalar(d)
	memzero.Big(d)
	if err != nil {
		return nil, err
	}
	id, err := priv.LegacyID()
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

func curveByNIDField(field string) (dcrypt.Curve, error) {
	nid, err := strconv.Atoi(field)
	if err != nil {
		return dcrypt.Curve{}, fmt.Errorf("dkey: malformed curve identifier: %w", dcrypt.ErrCorruptedData)
	}
	crv, ok := dcrypt.CurveByNID(nid)
	if !ok {
		return dcrypt.Curve{}, fmt.Errorf("dkey: curve %d: %w", nid, dcrypt.ErrUnknownCurve)
	}
	return crv, nil
}

func decryptV1(data, key []byte) ([]byte, error) {
	c, err := dcrypt.CurrentBackend().NewCipher(v1Cipher, dcrypt.Decrypt)
	if err != nil {
		return nil, err
	}
	defer c.Destroy()
	c.SetKey(key)
	c.SetIV(make([]byte, c.IVLength()))
	if err := c.Init(); err != nil {
		return nil, err
	}
	out, err := c.Update(nil, data)
	if err != nil {
		return nil, err
	}
	return c.Final(out)
}
