// Package cryptox provides the authenticated-encryption primitives used to
// protect sensitive user fields at rest: AES-256-GCM field encryption with
// an explicit IV and tag, key generation, argon2id key derivation, and
// SHA-256 hashing for deterministic lookups over encrypted columns.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	// KeySize is the mandated symmetric key length (AES-256).
	KeySize = 32
	// IVSize is the fixed initialization vector length.
	IVSize = 16
	// TagSize is the fixed GCM authentication tag length.
	TagSize = 16
	// DigestSize is the SHA-256 digest length in bytes (64 hex characters).
	DigestSize = 32
)

// Envelope is the ciphertext representation of one encrypted field value.
// IV and Tag are fixed-length; a length mismatch on decrypt is treated as
// corruption, not a recoverable condition. KeyID names the keyring entry
// the value was encrypted under, so records stay readable across rotation.
type Envelope struct {
	Ciphertext []byte
	IV         []byte
	Tag        []byte
	KeyID      string
}

// GenerateKey produces length cryptographically random bytes of key material.
//
// A non-positive length yields common.ErrInvalidParameter. All-zero output
// from the randomness source yields common.ErrInsufficientEntropy; this is a
// defensive check against a broken random source, not a statistical proof.
func GenerateKey(length int) ([]byte, error) {
	if length <= 0 {
		return nil, common.ErrInvalidParameter
	}

	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, common.ErrInsufficientEntropy
	}

	degenerate := true
	for _, b := range key {
		if b != 0 {
			degenerate = false
			break
		}
	}
	if degenerate {
		return nil, common.ErrInsufficientEntropy
	}

	return key, nil
}

// DeriveKey derives a KeySize-byte key from a passphrase and salt using
// argon2id. Same inputs always yield the same key, which makes it suitable
// for bootstrapping the active keyring entry from configuration.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)
}

// Encrypt encrypts plaintext under key using AES-256-GCM with a fresh random
// 16-byte IV and returns the resulting envelope (KeyID left empty; the
// keyring stamps it). The empty string is a valid plaintext.
//
// The key must be exactly KeySize bytes, otherwise common.ErrKeyLength is
// returned. The plaintext working buffer is wiped before returning on every
// exit path.
func Encrypt(plaintext string, key []byte) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, common.ErrKeyLength
	}

	buf := []byte(plaintext)
	defer common.WipeByteArray(buf)

	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, common.ErrInsufficientEntropy
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	// Seal appends the tag to the ciphertext; split it back out so the
	// envelope carries ciphertext and tag separately.
	sealed := aesgcm.Seal(nil, iv, buf, nil)
	n := len(sealed) - TagSize

	return &Envelope{
		Ciphertext: sealed[:n],
		IV:         iv,
		Tag:        sealed[n:],
	}, nil
}

// Decrypt reverses Encrypt. All four parameters are required: a nil
// ciphertext, iv, or tag yields common.ErrMissingParameter (an empty,
// non-nil ciphertext is valid — it is what Encrypt("") produces).
//
// Any integrity failure — altered ciphertext, altered tag, or an iv/tag of
// the wrong length — yields common.ErrDecryptionFailed without revealing
// which input caused it. The decrypted buffer handed back to the caller is
// the only copy retained; intermediate state is wiped.
func Decrypt(ciphertext, key, iv, tag []byte) (string, error) {
	if ciphertext == nil || iv == nil || tag == nil {
		return "", common.ErrMissingParameter
	}
	if len(key) == 0 {
		return "", common.ErrMissingParameter
	}
	if len(key) != KeySize {
		return "", common.ErrKeyLength
	}
	if len(iv) != IVSize || len(tag) != TagSize {
		return "", common.ErrDecryptionFailed
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aesgcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", common.ErrDecryptionFailed
	}
	defer common.WipeByteArray(plaintext)

	return string(plaintext), nil
}

// Hash returns the hex-encoded SHA-256 digest of data. Deterministic and
// unsalted: same input always yields the same output, which is what allows
// equality lookups against encrypted columns. Empty input yields
// common.ErrEmptyInput.
func Hash(data string) (string, error) {
	if data == "" {
		return "", common.ErrEmptyInput
	}
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:]), nil
}

// newGCM builds an AES-GCM AEAD with the fixed IV size. The key length is
// validated by callers, so errors here indicate a broken cipher setup.
func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, common.ErrKeyLength
	}
	aesgcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return aesgcm, nil
}
