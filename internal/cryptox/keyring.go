package cryptox

import (
	"sync"

	"github.com/njdifiore91/startup-metrics-hizlkn-sub004/internal/common"
)

// Keyring holds the active encryption key plus retired keys by ID, so that
// envelopes written under a prior key remain decryptable during rollover.
// It is an injected collaborator of the user service; there is no
// process-wide key state.
//
// All methods are safe for concurrent use.
type Keyring struct {
	mu     sync.RWMutex
	active string
	keys   map[string][]byte
}

// NewKeyring creates a keyring with the given initial active key.
// The key must be exactly KeySize bytes.
func NewKeyring(key []byte) (*Keyring, error) {
	if len(key) != KeySize {
		return nil, common.ErrKeyLength
	}

	id, err := common.MakeRandHexString(8)
	if err != nil {
		return nil, common.ErrInsufficientEntropy
	}

	k := make([]byte, KeySize)
	copy(k, key)

	return &Keyring{
		active: id,
		keys:   map[string][]byte{id: k},
	}, nil
}

// NewKeyringFromPassphrase derives the initial active key from a passphrase
// and salt via argon2id.
func NewKeyringFromPassphrase(passphrase, salt []byte) (*Keyring, error) {
	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)
	return NewKeyring(key)
}

// ActiveKeyID returns the ID of the key used for new encryptions.
func (r *Keyring) ActiveKeyID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Key returns the key material registered under id, or
// common.ErrUnknownKeyID if no such key exists. The returned slice is a
// copy; callers wipe it after use.
func (r *Keyring) Key(id string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.keys[id]
	if !ok {
		return nil, common.ErrUnknownKeyID
	}

	out := make([]byte, len(key))
	copy(out, key)
	return out, nil
}

// Rotate generates a fresh key, makes it active, and retains the previous
// key under its old ID for in-flight decrypts. Returns the new active key ID.
func (r *Keyring) Rotate() (string, error) {
	key, err := GenerateKey(KeySize)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	id, err := common.MakeRandHexString(8)
	if err != nil {
		return "", common.ErrInsufficientEntropy
	}

	k := make([]byte, KeySize)
	copy(k, key)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[id] = k
	r.active = id
	return id, nil
}

// Encrypt encrypts plaintext under the active key and stamps the envelope
// with the active key ID.
func (r *Keyring) Encrypt(plaintext string) (*Envelope, error) {
	id := r.ActiveKeyID()

	key, err := r.Key(id)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	env, err := Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}
	env.KeyID = id
	return env, nil
}

// Decrypt resolves the envelope's key by ID and decrypts it.
func (r *Keyring) Decrypt(env *Envelope) (string, error) {
	if env == nil {
		return "", common.ErrMissingParameter
	}

	key, err := r.Key(env.KeyID)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(key)

	return Decrypt(env.Ciphertext, key, env.IV, env.Tag)
}

// Wipe zeroes all key material and empties the ring. The keyring is
// unusable afterwards; intended for shutdown paths.
func (r *Keyring) Wipe() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, key := range r.keys {
		common.WipeByteArray(key)
		delete(r.keys, id)
	}
	r.active = ""
}
