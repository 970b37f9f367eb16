// Package crypt encrypts the behavioral baseline at rest with a
// passphrase-derived key: PBKDF2-HMAC-SHA256 key derivation and
// AES-256-GCM sealing. The derived key lives only in memory while the
// box is unlocked; disk holds the salt and a hash of the key so a
// passphrase can be verified without storing the key itself.
//
// AEAD is a hard requirement. The legacy HMAC-only blob format
// (integrity without confidentiality) is rejected as corrupt.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/agentsentry/agentsentry/internal/store"
)

const (
	saltLen    = 32
	keyLen     = 32
	nonceLen   = 12
	kdfIters   = 100_000
	minPassLen = 8
)

var (
	// ErrLocked is returned by Encrypt/Decrypt while no key is held.
	ErrLocked = errors.New("encryption locked")
	// ErrPassphraseTooShort is returned by Setup for weak passphrases.
	ErrPassphraseTooShort = errors.New("passphrase must be at least 8 characters")
	// ErrBadCiphertext covers tampered, truncated, or legacy blobs.
	// Wrong-key and corrupted-data cases are deliberately not
	// distinguished.
	ErrBadCiphertext = errors.New("ciphertext invalid")
)

// legacyPrefix marks blobs written by the old HMAC-only fallback mode.
var legacyPrefix = []byte("HMAC")

// boxConfig is the persisted verification record.
type boxConfig struct {
	Enabled          bool   `json:"enabled"`
	Salt             string `json:"salt,omitempty"`              // base64
	VerificationHash string `json:"verification_hash,omitempty"` // hex of SHA-256(key)
}

// Box holds the encryption state for one config file.
type Box struct {
	mu     sync.Mutex
	path   string
	config boxConfig
	key    []byte // nil while locked
}

// Open loads the persisted crypto config. A missing file yields a
// disabled box; a corrupt file is an error.
func Open(path string) (*Box, error) {
	b := &Box{path: path}
	err := store.LoadJSON(path, &b.config)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return b, nil
}

// Enabled reports whether encryption has been set up.
func (b *Box) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.config.Enabled
}

// Unlocked reports whether a derived key is held in memory.
func (b *Box) Unlocked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.key != nil
}

// Setup enables encryption with a new passphrase: fresh random salt,
// derived key held in memory, verification record persisted.
func (b *Box) Setup(passphrase string) error {
	if len(passphrase) < minPassLen {
		return ErrPassphraseTooShort
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return err
	}
	key := deriveKey(passphrase, salt)
	verification := sha256.Sum256(key)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = boxConfig{
		Enabled:          true,
		Salt:             base64.StdEncoding.EncodeToString(salt),
		VerificationHash: hex.EncodeToString(verification[:]),
	}
	if err := store.SaveJSON(b.path, &b.config); err != nil {
		return err
	}
	b.key = key
	return nil
}

// Unlock re-derives the key from the stored salt and verifies it.
// A wrong passphrase leaves the box locked and returns false.
func (b *Box) Unlock(passphrase string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.config.Enabled {
		// Nothing to unlock; treated as success.
		return true, nil
	}
	salt, err := base64.StdEncoding.DecodeString(b.config.Salt)
	if err != nil {
		return false, ErrBadCiphertext
	}
	key := deriveKey(passphrase, salt)
	verification := sha256.Sum256(key)
	stored, err := hex.DecodeString(b.config.VerificationHash)
	if err != nil {
		return false, ErrBadCiphertext
	}
	if subtle.ConstantTimeCompare(verification[:], stored) != 1 {
		return false, nil
	}
	b.key = key
	return true, nil
}

// Lock discards the in-memory key. Verification metadata on disk is
// untouched, so a later Unlock with the correct passphrase restores
// access.
func (b *Box) Lock() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.key = nil
}

// Disable clears all persisted crypto metadata and the in-memory key.
// Callers must re-persist any previously encrypted data in plaintext
// afterward.
func (b *Box) Disable() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config = boxConfig{}
	b.key = nil
	return store.SaveJSON(b.path, &b.config)
}

// Encrypt seals data with a fresh nonce and returns
// base64(nonce || ciphertext). Returns ErrLocked when no key is held.
func (b *Box) Encrypt(data []byte) (string, error) {
	key := b.snapshotKey()
	if key == nil {
		return "", ErrLocked
	}

	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, data, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Tampered, truncated, or
// legacy-format blobs fail closed with ErrBadCiphertext.
func (b *Box) Decrypt(blob string) ([]byte, error) {
	key := b.snapshotKey()
	if key == nil {
		return nil, ErrLocked
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrBadCiphertext
	}
	if len(raw) >= len(legacyPrefix) && string(raw[:len(legacyPrefix)]) == string(legacyPrefix) {
		return nil, ErrBadCiphertext
	}
	if len(raw) < nonceLen {
		return nil, ErrBadCiphertext
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, raw[:nonceLen], raw[nonceLen:], nil)
	if err != nil {
		return nil, ErrBadCiphertext
	}
	return plaintext, nil
}

// Status summarizes the box for the operator surface.
type Status struct {
	Enabled  bool `json:"enabled"`
	Unlocked bool `json:"unlocked"`
}

func (b *Box) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{Enabled: b.config.Enabled, Unlocked: b.key != nil}
}

// snapshotKey copies the key under the lock so a concurrent Lock
// cannot nil it mid-operation.
func (b *Box) snapshotKey() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.key == nil {
		return nil
	}
	key := make([]byte, len(b.key))
	copy(key, b.key)
	return key
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, kdfIters, keyLen, sha256.New)
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
