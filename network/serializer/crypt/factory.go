package crypt

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/linchenxuan/strixwire/plugin"
	"github.com/tjfoc/gmsm/sm4"
	"golang.org/x/crypto/chacha20poly1305"
)

// ChaChaConfig configures the chacha20poly1305 encryptor.
type ChaChaConfig struct {
	KeyConfig `mapstructure:",squash"`
	// Extended selects XChaCha20-Poly1305 with 24-byte nonces.
	Extended bool `mapstructure:"extended"`
}

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 encryptor.
func NewChaCha20Poly1305(cfg *ChaChaConfig) (*AEAD, error) {
	key, err := cfg.key(chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	newAEAD := chacha20poly1305.New
	if cfg.Extended {
		newAEAD = chacha20poly1305.NewX
	}
	a, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	return &AEAD{name: "chacha20poly1305", aead: a}, nil
}

// NewSM4GCM creates an SM4-GCM encryptor.
func NewSM4GCM(cfg *KeyConfig) (*AEAD, error) {
	key, err := cfg.key(sm4.BlockSize)
	if err != nil {
		return nil, err
	}
	block, err := sm4.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sm4: %w", err)
	}
	a, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sm4 gcm: %w", err)
	}
	return &AEAD{name: "sm4gcm", aead: a}, nil
}

type factory struct {
	name    string
	cfgType func() any
	setup   func(any) (plugin.Plugin, error)
}

func (f *factory) Type() plugin.Type     { return plugin.Encryptor }
func (f *factory) Name() string          { return f.name }
func (f *factory) ConfigType() any       { return f.cfgType() }
func (f *factory) Destroy(plugin.Plugin) {}

func (f *factory) Setup(cfgAny any) (plugin.Plugin, error) {
	return f.setup(cfgAny)
}

var errInvalidConfig = errors.New("invalid config type")

// NewNoneFactory creates the pass-through encryptor factory.
func NewNoneFactory() plugin.Factory {
	return &factory{
		name:    "none",
		cfgType: func() any { return &struct{ Tag string }{} },
		setup:   func(any) (plugin.Plugin, error) { return None{}, nil },
	}
}

// NewChaCha20Poly1305Factory creates the chacha20poly1305 encryptor factory.
func NewChaCha20Poly1305Factory() plugin.Factory {
	return &factory{
		name:    "chacha20poly1305",
		cfgType: func() any { return &ChaChaConfig{} },
		setup: func(cfgAny any) (plugin.Plugin, error) {
			cfg, ok := cfgAny.(*ChaChaConfig)
			if !ok {
				return nil, fmt.Errorf("chacha20poly1305 setup failed: %w", errInvalidConfig)
			}
			return NewChaCha20Poly1305(cfg)
		},
	}
}

// NewSM4GCMFactory creates the sm4gcm encryptor factory.
func NewSM4GCMFactory() plugin.Factory {
	return &factory{
		name:    "sm4gcm",
		cfgType: func() any { return &KeyConfig{} },
		setup: func(cfgAny any) (plugin.Plugin, error) {
			cfg, ok := cfgAny.(*KeyConfig)
			if !ok {
				return nil, fmt.Errorf("sm4gcm setup failed: %w", errInvalidConfig)
			}
			return NewSM4GCM(cfg)
		},
	}
}
