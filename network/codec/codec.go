// Package codec provides the encode/decode capability the wire layer uses for message bodies.
// The default codec writes deterministic protobuf binary; a protojson codec is available
// for diagnostics where a human-readable body is wanted.
package codec

import (
	"errors"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

var (
	// errCodecNotInit is returned by the package-level helpers when no codec is set.
	errCodecNotInit = errors.New("codec not init")

	_codec Codec = DefaultCodec{}
)

// Codec is the per-type capability to size, write and parse a message body.
type Codec interface {
	// Size returns the number of bytes Encode would append for m.
	Size(m proto.Message) int
	// Encode appends the encoded form of m to b.
	Encode(m proto.Message, b []byte) ([]byte, error)
	// Decode parses b into m, replacing its contents.
	Decode(m proto.Message, b []byte) error
}

// Encode marshals m with the globally configured codec.
func Encode(m proto.Message, b []byte) ([]byte, error) {
	if _codec == nil {
		return nil, errCodecNotInit
	}
	return _codec.Encode(m, b)
}

// Decode unmarshals b into m with the globally configured codec.
func Decode(m proto.Message, b []byte) error {
	if _codec == nil {
		return errCodecNotInit
	}
	return _codec.Decode(m, b)
}

// Default returns the globally configured codec.
func Default() Codec {
	return _codec
}

// SetCodec replaces the global codec. It is not safe for concurrent use and
// should be called during initialization only.
func SetCodec(c Codec) {
	_codec = c
}

// DefaultCodec encodes protobuf binary with deterministic map ordering so that
// equal messages always produce equal frames.
type DefaultCodec struct{}

var (
	_marshalOpts   = proto.MarshalOptions{Deterministic: true}
	_unmarshalOpts = proto.UnmarshalOptions{DiscardUnknown: false}
)

// Size returns the deterministic binary length of m.
func (DefaultCodec) Size(m proto.Message) int {
	return _marshalOpts.Size(m)
}

// Encode appends the deterministic binary form of m to b.
func (DefaultCodec) Encode(m proto.Message, b []byte) ([]byte, error) {
	return _marshalOpts.MarshalAppend(b, m)
}

// Decode parses b into m. Unknown fields are kept so they survive re-encoding.
func (DefaultCodec) Decode(m proto.Message, b []byte) error {
	return _unmarshalOpts.Unmarshal(b, m)
}

// JSONCodec encodes messages as protojson. Field names follow the proto
// declaration so they match the lowercase wire naming rule.
type JSONCodec struct{}

var (
	_jsonMarshal   = protojson.MarshalOptions{UseProtoNames: true}
	_jsonUnmarshal = protojson.UnmarshalOptions{DiscardUnknown: true}
)

// Size returns the protojson length of m, or 0 when m cannot be marshaled.
// It encodes the message, so prefer Encode when the bytes are needed anyway.
func (JSONCodec) Size(m proto.Message) int {
	b, err := _jsonMarshal.Marshal(m)
	if err != nil {
		return 0
	}
	return len(b)
}

// Encode appends the protojson form of m to b.
func (JSONCodec) Encode(m proto.Message, b []byte) ([]byte, error) {
	return _jsonMarshal.MarshalAppend(b, m)
}

// Decode parses protojson b into m, ignoring unknown fields.
func (JSONCodec) Decode(m proto.Message, b []byte) error {
	return _jsonUnmarshal.Unmarshal(b, m)
}
