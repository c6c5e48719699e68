package compress

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/s2"
	"github.com/linchenxuan/strixwire/network/serializer"
	"github.com/linchenxuan/strixwire/plugin"
)

// ErrDecodedTooLarge is returned when a block would decode past the configured limit.
var ErrDecodedTooLarge = errors.New("decoded size exceeds limit")

// S2Config configures the s2 compressor.
type S2Config struct {
	Tag string `mapstructure:"tag"`
	// Better trades speed for a better ratio.
	Better bool `mapstructure:"better"`
	// MaxDecodedSize caps the output of one decompression. Zero means no cap.
	MaxDecodedSize int `mapstructure:"maxDecodedSize"`
}

// S2 compresses bodies as single s2 blocks. It is stateless and safe for concurrent use.
type S2 struct {
	cfg S2Config
}

var _ serializer.Compressor = (*S2)(nil)

// NewS2 creates an s2 compressor. A nil cfg uses defaults.
func NewS2(cfg *S2Config) *S2 {
	if cfg == nil {
		cfg = &S2Config{}
	}
	return &S2{cfg: *cfg}
}

// FactoryName implements plugin.Plugin.
func (s *S2) FactoryName() string {
	return "s2"
}

// Compress encodes src as an s2 block, in better mode when configured.
func (s *S2) Compress(src []byte) ([]byte, error) {
	if s.cfg.Better {
		return s2.EncodeBetter(nil, src), nil
	}
	return s2.Encode(nil, src), nil
}

// Decompress decodes an s2 block, refusing output above MaxDecodedSize.
func (s *S2) Decompress(src []byte) ([]byte, error) {
	if s.cfg.MaxDecodedSize > 0 {
		n, err := s2.DecodedLen(src)
		if err != nil {
			return nil, err
		}
		if n > s.cfg.MaxDecodedSize {
			return nil, fmt.Errorf("%w: %d > %d", ErrDecodedTooLarge, n, s.cfg.MaxDecodedSize)
		}
	}
	return s2.Decode(nil, src)
}

type s2Factory struct{}

// NewS2Factory creates the s2 compressor factory.
func NewS2Factory() plugin.Factory {
	return s2Factory{}
}

func (s2Factory) Type() plugin.Type { return plugin.Compressor }
func (s2Factory) Name() string      { return "s2" }
func (s2Factory) ConfigType() any   { return &S2Config{} }

func (s2Factory) Setup(cfgAny any) (plugin.Plugin, error) {
	cfg, ok := cfgAny.(*S2Config)
	if !ok {
		return nil, errors.New("s2 setup failed: invalid config type")
	}
	return NewS2(cfg), nil
}

func (s2Factory) Destroy(plugin.Plugin) {}
