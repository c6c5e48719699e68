// Package compress provides the compressor plugins of the transform pipeline.
package compress

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/linchenxuan/strixwire/network/serializer"
	"github.com/linchenxuan/strixwire/plugin"
)

// ZstdConfig configures the zstd compressor.
type ZstdConfig struct {
	Tag string `mapstructure:"tag"`
	// Level is a zstd compression level (1-22). Zero means the library default.
	Level int `mapstructure:"level"`
	// Concurrency bounds parallel EncodeAll/DecodeAll calls. Zero means GOMAXPROCS.
	Concurrency int `mapstructure:"concurrency"`
	// MaxDecodedSize caps the output of one decompression. Zero means the library default.
	MaxDecodedSize uint64 `mapstructure:"maxDecodedSize"`
}

// Zstd compresses whole bodies with zstd. It is safe for concurrent use.
type Zstd struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

var _ serializer.Compressor = (*Zstd)(nil)

// NewZstd creates a zstd compressor. A nil cfg uses defaults.
func NewZstd(cfg *ZstdConfig) (*Zstd, error) {
	if cfg == nil {
		cfg = &ZstdConfig{}
	}

	encOpts := []zstd.EOption{zstd.WithEncoderCRC(true)}
	if cfg.Level != 0 {
		encOpts = append(encOpts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(cfg.Level)))
	}
	decOpts := []zstd.DOption{}
	if cfg.Concurrency > 0 {
		encOpts = append(encOpts, zstd.WithEncoderConcurrency(cfg.Concurrency))
		decOpts = append(decOpts, zstd.WithDecoderConcurrency(cfg.Concurrency))
	}
	if cfg.MaxDecodedSize > 0 {
		decOpts = append(decOpts, zstd.WithDecoderMaxMemory(cfg.MaxDecodedSize))
	}

	enc, err := zstd.NewWriter(nil, encOpts...)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, decOpts...)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Zstd{enc: enc, dec: dec}, nil
}

// FactoryName implements plugin.Plugin.
func (z *Zstd) FactoryName() string {
	return "zstd"
}

// Compress encodes src as a single zstd frame.
func (z *Zstd) Compress(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, make([]byte, 0, len(src)/2+64)), nil
}

// Decompress decodes a zstd frame, bounded by the decoder memory limit.
func (z *Zstd) Decompress(src []byte) ([]byte, error) {
	return z.dec.DecodeAll(src, nil)
}

// Close releases the encoder and decoder.
func (z *Zstd) Close() {
	z.enc.Close()
	z.dec.Close()
}

type zstdFactory struct{}

// NewZstdFactory creates the zstd compressor factory.
func NewZstdFactory() plugin.Factory {
	return zstdFactory{}
}

func (zstdFactory) Type() plugin.Type { return plugin.Compressor }
func (zstdFactory) Name() string      { return "zstd" }
func (zstdFactory) ConfigType() any   { return &ZstdConfig{} }

func (zstdFactory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*ZstdConfig)
	if !ok {
		return nil, errors.New("zstd setup failed: invalid config type")
	}
	return NewZstd(cfg)
}

func (zstdFactory) Destroy(p plugin.Plugin) {
	if z, ok := p.(*Zstd); ok && z != nil {
		z.Close()
	}
}
