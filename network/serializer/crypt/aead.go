// Package crypt provides the encryptor plugins of the transform pipeline.
// Encrypted bodies are laid out as nonce || ciphertext || tag with a fresh
// random nonce per body.
package crypt

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/linchenxuan/strixwire/network/serializer"
)

var (
	// ErrCiphertextTooShort is returned when a body cannot hold a nonce and tag.
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	// ErrKeySize is returned for keys of the wrong length.
	ErrKeySize = errors.New("invalid key size")
)

// KeyConfig is the config shared by the AEAD encryptors.
type KeyConfig struct {
	Tag string `mapstructure:"tag"`
	// Key is the hex-encoded secret key.
	Key string `mapstructure:"key"`
}

func (c *KeyConfig) key(size int) ([]byte, error) {
	k, err := hex.DecodeString(c.Key)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(k) != size {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrKeySize, size, len(k))
	}
	return k, nil
}

// AEAD encrypts bodies with an authenticated cipher. It is safe for concurrent use.
type AEAD struct {
	name string
	aead cipher.AEAD
}

var _ serializer.Encryptor = (*AEAD)(nil)

// FactoryName returns the name of the cipher factory that built a.
func (a *AEAD) FactoryName() string {
	return a.name
}

// Encrypt seals src under a fresh random nonce and returns nonce||ciphertext.
func (a *AEAD) Encrypt(src []byte) ([]byte, error) {
	ns := a.aead.NonceSize()
	out := make([]byte, ns, ns+len(src)+a.aead.Overhead())
	if _, err := rand.Read(out); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return a.aead.Seal(out, out[:ns], src, nil), nil
}

// Decrypt splits off the nonce and opens the rest. Tampered input fails.
func (a *AEAD) Decrypt(src []byte) ([]byte, error) {
	ns := a.aead.NonceSize()
	if len(src) < ns+a.aead.Overhead() {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertextTooShort, len(src))
	}
	return a.aead.Open(nil, src[:ns], src[ns:], nil)
}

// None is the pass-through encryptor. It keeps TagEncrypted frames flowing
// before a real cipher is configured.
type None struct{}

var _ serializer.Encryptor = None{}

// None methods return their input unchanged.

func (None) FactoryName() string                { return "none" }
func (None) Encrypt(src []byte) ([]byte, error) { return src, nil }
func (None) Decrypt(src []byte) ([]byte, error) { return src, nil }
