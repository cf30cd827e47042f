// Package cryptoutil encrypts stored access tokens at rest with AES-256-GCM.
// Ciphertexts carry a version prefix so the scheme can rotate later.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const versionPrefix = "v1:"

var (
	ErrEmptyKey      = errors.New("cryptoutil: key is empty")
	ErrBadCiphertext = errors.New("cryptoutil: malformed ciphertext")
)

// Encryptor seals and opens small secrets with a single symmetric key.
type Encryptor struct {
	aead cipher.AEAD
}

// New builds an Encryptor. A 32-byte key (raw or base64) is used as-is;
// any other non-empty key is stretched through sha256 so operators can
// configure a passphrase.
func New(key string) (*Encryptor, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	raw := []byte(key)
	if decoded, err := base64.StdEncoding.DecodeString(key); err == nil && len(decoded) == 32 {
		raw = decoded
	}
	if len(raw) != 32 {
		sum := sha256.Sum256([]byte(key))
		raw = sum[:]
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt seals plaintext and returns "v1:" + base64(nonce || ciphertext).
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cryptoutil: nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return versionPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, versionPrefix) {
		return "", ErrBadCiphertext
	}
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, versionPrefix))
	if err != nil {
		return "", ErrBadCiphertext
	}
	ns := e.aead.NonceSize()
	if len(sealed) < ns {
		return "", ErrBadCiphertext
	}
	plain, err := e.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return "", ErrBadCiphertext
	}
	return string(plain), nil
}
