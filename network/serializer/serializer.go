// Package serializer applies the transform pipeline to encoded message bodies.
// The order is fixed: encode, then compress, then encrypt. Decoding runs the
// exact reverse: decrypt, then decompress, then parse. Which stages run is
// chosen per frame by a TransformTag.
package serializer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/linchenxuan/strixwire/network/codec"
	"google.golang.org/protobuf/proto"
)

// TransformTag selects the stages applied to one body.
type TransformTag uint8

const (
	// TagNone sends the encoded body as is.
	TagNone TransformTag = 0
	// TagCompressed runs the compress stage.
	TagCompressed TransformTag = 1 << 0
	// TagEncrypted runs the encrypt stage, after compression when both are set.
	TagEncrypted TransformTag = 1 << 1

	tagMask = TagCompressed | TagEncrypted
)

// ErrInvalidTag is returned for tags with bits outside the known set.
var ErrInvalidTag = errors.New("invalid transform tag")

// Has reports whether every bit of f is set in t.
func (t TransformTag) Has(f TransformTag) bool {
	return t&f == f
}

// Valid reports whether t only uses known bits.
func (t TransformTag) Valid() bool {
	return t&^tagMask == 0
}

func (t TransformTag) String() string {
	if t == TagNone {
		return "none"
	}
	var parts []string
	if t.Has(TagCompressed) {
		parts = append(parts, "compressed")
	}
	if t.Has(TagEncrypted) {
		parts = append(parts, "encrypted")
	}
	if rest := t &^ tagMask; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseTag is the inverse of String for known bits. Names may be joined with
// '|' or ','; an empty string is TagNone.
func ParseTag(s string) (TransformTag, error) {
	var t TransformTag
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		switch strings.ToLower(strings.TrimSpace(part)) {
		case "", "none":
		case "compressed":
			t |= TagCompressed
		case "encrypted":
			t |= TagEncrypted
		default:
			return TagNone, fmt.Errorf("%w: %q", ErrInvalidTag, part)
		}
	}
	return t, nil
}

// TransformFunc rewrites a byte slice. It must not modify src.
type TransformFunc func(src []byte) ([]byte, error)

// Stage is one reversible step of the pipeline.
type Stage struct {
	Forward TransformFunc
	Reverse TransformFunc
}

func passthrough(src []byte) ([]byte, error) { return src, nil }

// NopStage passes bytes through unchanged. It is the default encryption stage:
// frames tagged TagEncrypted are accepted and carried as-is until a real
// encryptor is configured.
var NopStage = Stage{Forward: passthrough, Reverse: passthrough}

func (s Stage) orNop() Stage {
	if s.Forward == nil || s.Reverse == nil {
		return NopStage
	}
	return s
}

// Serializer runs the pipeline. It is immutable and safe for concurrent use
// as long as its stages are.
type Serializer struct {
	compress Stage
	encrypt  Stage
}

// Option configures a Serializer.
type Option func(*Serializer)

// WithEncryption installs the encryption stage.
func WithEncryption(s Stage) Option {
	return func(x *Serializer) {
		x.encrypt = s.orNop()
	}
}

// New creates a serializer with the given compression stage. Without
// WithEncryption the encryption stage is NopStage.
func New(compress Stage, opts ...Option) *Serializer {
	s := &Serializer{compress: compress.orNop(), encrypt: NopStage}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply transforms a raw encoded body. TagNone returns raw itself.
func (s *Serializer) Apply(tag TransformTag, raw []byte) ([]byte, error) {
	if tag == TagNone {
		return raw, nil
	}
	if !tag.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTag, tag)
	}

	out := raw
	var err error
	if tag.Has(TagCompressed) {
		if out, err = s.compress.Forward(out); err != nil {
			return nil, fmt.Errorf("compress: %w", err)
		}
	}
	if tag.Has(TagEncrypted) {
		if out, err = s.encrypt.Forward(out); err != nil {
			return nil, fmt.Errorf("encrypt: %w", err)
		}
	}
	return out, nil
}

// Reverse undoes Apply for the same tag.
func (s *Serializer) Reverse(tag TransformTag, data []byte) ([]byte, error) {
	if tag == TagNone {
		return data, nil
	}
	if !tag.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTag, tag)
	}

	out := data
	var err error
	if tag.Has(TagEncrypted) {
		if out, err = s.encrypt.Reverse(out); err != nil {
			return nil, fmt.Errorf("decrypt: %w", err)
		}
	}
	if tag.Has(TagCompressed) {
		if out, err = s.compress.Reverse(out); err != nil {
			return nil, fmt.Errorf("decompress: %w", err)
		}
	}
	return out, nil
}

// Encode encodes m with c and applies the pipeline.
func (s *Serializer) Encode(tag TransformTag, c codec.Codec, m proto.Message) ([]byte, error) {
	raw, err := c.Encode(m, make([]byte, 0, c.Size(m)))
	if err != nil {
		return nil, err
	}
	return s.Apply(tag, raw)
}

// Decode reverses the pipeline over data and parses the result into m.
func (s *Serializer) Decode(tag TransformTag, c codec.Codec, m proto.Message, data []byte) error {
	raw, err := s.Reverse(tag, data)
	if err != nil {
		return err
	}
	return c.Decode(m, raw)
}
