package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// SealedPrefix marks a value produced by Sealer.Seal.
const SealedPrefix = "enc:v1:"

const (
	saltSize = 16

	// argon2id parameters; the key is derived once per Seal/Open.
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

var (
	ErrEmptyPassphrase = errors.New("passphrase must not be empty")
	ErrNotSealed       = errors.New("value is not sealed")
)

// Sealer encrypts short secrets (API keys) for storage using a key derived
// from a passphrase with argon2id. Each sealed value carries its own salt.
type Sealer struct {
	passphrase []byte
}

// NewSealer creates a Sealer for the given passphrase.
func NewSealer(passphrase string) (*Sealer, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return &Sealer{passphrase: []byte(passphrase)}, nil
}

// DeriveKey derives a 32-byte AES key from a passphrase and salt.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// Seal returns "enc:v1:" + base64(salt | nonce | ciphertext).
func (s *Sealer) Seal(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	box, err := encryptWithKey(DeriveKey(s.passphrase, salt), []byte(plaintext))
	if err != nil {
		return "", err
	}

	return SealedPrefix + base64.StdEncoding.EncodeToString(append(salt, box...)), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	if !IsSealed(sealed) {
		return "", ErrNotSealed
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealed, SealedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode sealed value: %w", err)
	}
	if len(raw) < saltSize {
		return "", ErrInvalidCiphertext
	}

	plaintext, err := decryptWithKey(DeriveKey(s.passphrase, raw[:saltSize]), raw[saltSize:])
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// IsSealed reports whether v looks like a value produced by Seal.
func IsSealed(v string) bool {
	return strings.HasPrefix(v, SealedPrefix)
}
