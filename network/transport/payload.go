package transport

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/linchenxuan/strixwire/network/codec"
	"google.golang.org/protobuf/proto"
)

// MsgCreator resolves type ids to messages while decoding.
type MsgCreator interface {
	// ContainsMsg reports whether typeID is known.
	ContainsMsg(typeID uint32) bool
	// ParseMsg creates a message of typeID and parses data into it.
	ParseMsg(typeID uint32, data []byte) (proto.Message, error)
}

// Body is the variable part of a frame.
type Body interface {
	// Size returns the encoded length of the body.
	Size() int
	// AppendTo appends the encoded body to b.
	AppendTo(b []byte) ([]byte, error)
}

// MsgBody encodes a message with a codec. A nil Codec uses codec.Default().
type MsgBody struct {
	Msg   proto.Message
	Codec codec.Codec
}

func (b MsgBody) codec() codec.Codec {
	if b.Codec == nil {
		return codec.Default()
	}
	return b.Codec
}

// Size returns the encoded length of Msg under the body codec.
func (b MsgBody) Size() int {
	return b.codec().Size(b.Msg)
}

// AppendTo encodes Msg onto dst.
func (b MsgBody) AppendTo(dst []byte) ([]byte, error) {
	return b.codec().Encode(b.Msg, dst)
}

// RawBody is an already encoded (and possibly transformed) body.
type RawBody []byte

// Size returns len(b).
func (b RawBody) Size() int {
	return len(b)
}

// AppendTo copies b onto dst.
func (b RawBody) AppendTo(dst []byte) ([]byte, error) {
	return append(dst, b...), nil
}

// DecodeStatus tells apart the outcomes of a decode that consumed a whole frame.
type DecodeStatus int

const (
	// DecodeOK means the body was parsed into Msg.
	DecodeOK DecodeStatus = iota
	// DecodeUnknownType means the type id is not registered. Msg is nil.
	DecodeUnknownType
	// DecodeInvalidBody means the body failed to parse. Msg is nil and Err holds the cause.
	DecodeInvalidBody
)

func (s DecodeStatus) String() string {
	switch s {
	case DecodeOK:
		return "ok"
	case DecodeUnknownType:
		return "unknown_type"
	case DecodeInvalidBody:
		return "invalid_body"
	default:
		return fmt.Sprintf("DecodeStatus(%d)", int(s))
	}
}

// Payload is one envelope. On the send side Body is set; on the receive side
// BodyData, Msg, Status and Err are filled by Decode.
//
// A Payload belongs to the goroutine that built or received it. The memoized size
// and the cached encoded form are guarded by a lock private to the instance, so
// concurrent Bytes calls on one instance encode it once.
type Payload struct {
	CorrelationID uint32
	TypeID        uint32
	Body          Body

	// Msg is the decoded body, nil unless Status is DecodeOK.
	Msg proto.Message
	// BodyData aliases the body region of the buffer passed to Decode.
	BodyData []byte
	Status   DecodeStatus
	Err      error

	mu      sync.Mutex
	size    int
	encoded []byte
}

// NewPayload creates a send-side envelope.
func NewPayload(correlationID, typeID uint32, body Body) *Payload {
	return &Payload{CorrelationID: correlationID, TypeID: typeID, Body: body}
}

func (p *Payload) body() Body {
	if p.Body != nil {
		return p.Body
	}
	return RawBody(p.BodyData)
}

// Size returns the total frame length, header included. The value is memoized;
// call Invalidate after changing the body.
func (p *Payload) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sizeLocked()
}

func (p *Payload) sizeLocked() int {
	if p.size == 0 {
		p.size = PAYLOAD_HEAD_SIZE + p.body().Size()
	}
	return p.size
}

// frameSizeLocked is sizeLocked bounded by what the 32-bit length field can carry.
func (p *Payload) frameSizeLocked() (int, error) {
	total := p.sizeLocked()
	if uint64(total) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: type 0x%08X needs %d bytes", ErrFrameTooLarge, p.TypeID, total)
	}
	return total, nil
}

// Invalidate drops the memoized size and the cached encoded form.
func (p *Payload) Invalidate() {
	p.mu.Lock()
	p.size = 0
	p.encoded = nil
	p.mu.Unlock()
}

// MarshalTo writes the frame into buf and returns the number of bytes written,
// which always equals the total length in the header.
func (p *Payload) MarshalTo(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.marshalLocked(buf)
}

func (p *Payload) marshalLocked(buf []byte) (int, error) {
	total, err := p.frameSizeLocked()
	if err != nil {
		return 0, err
	}
	if len(buf) < total {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooShort, total, len(buf))
	}

	EncodePayloadHead(buf, PayloadHead{
		TotalLen:      uint32(total),
		CorrelationID: p.CorrelationID,
		TypeID:        p.TypeID,
	})

	out, err := p.body().AppendTo(buf[PAYLOAD_HEAD_SIZE:PAYLOAD_HEAD_SIZE:total])
	if err != nil {
		return 0, fmt.Errorf("encode body of type 0x%08X: %w", p.TypeID, err)
	}
	if len(out) != total-PAYLOAD_HEAD_SIZE {
		return 0, fmt.Errorf("%w: type 0x%08X reported %d bytes, wrote %d",
			ErrSizeMismatch, p.TypeID, total-PAYLOAD_HEAD_SIZE, len(out))
	}
	return total, nil
}

// AppendTo appends the frame to dst.
func (p *Payload) AppendTo(dst []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	total, err := p.frameSizeLocked()
	if err != nil {
		return dst, err
	}
	start := len(dst)
	dst = slices.Grow(dst, total)
	dst = dst[:start+total]
	n, err := p.marshalLocked(dst[start:])
	if err != nil {
		return dst[:start], err
	}
	return dst[:start+n], nil
}

// Bytes returns the encoded frame, encoding it on first use. The returned slice
// is shared by later calls and must not be modified.
func (p *Payload) Bytes() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.encoded != nil {
		return p.encoded, nil
	}
	total, err := p.frameSizeLocked()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, total)
	n, err := p.marshalLocked(buf)
	if err != nil {
		return nil, err
	}
	p.encoded = buf[:n]
	return p.encoded, nil
}

// Equal compares correlation id, type id and body value. Bodies that both hold
// messages compare with proto.Equal, otherwise their encoded bytes are compared.
func (p *Payload) Equal(o *Payload) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.CorrelationID != o.CorrelationID || p.TypeID != o.TypeID {
		return false
	}
	if pm, om := p.message(), o.message(); pm != nil && om != nil {
		return proto.Equal(pm, om)
	}
	pb, err := p.body().AppendTo(nil)
	if err != nil {
		return false
	}
	ob, err := o.body().AppendTo(nil)
	if err != nil {
		return false
	}
	return bytes.Equal(pb, ob)
}

func (p *Payload) message() proto.Message {
	if p.Msg != nil {
		return p.Msg
	}
	if mb, ok := p.Body.(MsgBody); ok {
		return mb.Msg
	}
	return nil
}

// Encode builds a frame from its parts.
func Encode(correlationID, typeID uint32, body Body) ([]byte, error) {
	p := NewPayload(correlationID, typeID, body)
	buf := make([]byte, p.Size())
	n, err := p.MarshalTo(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Decode parses the frame at the start of data and returns it with the number of
// bytes it occupies. Once the header is valid and the frame fully buffered, the
// consumed count is always the declared total length: an unknown type id or an
// unparsable body is reported through Payload.Status, never as an error, so the
// caller can skip the frame and stay in sync. A nil creator treats every type as
// unknown and leaves the body raw.
//
// Errors are ErrBufferTooShort (consumed 0, retry with more data) and
// ErrMalformedHeader (stream unusable).
func Decode(data []byte, creator MsgCreator) (*Payload, int, error) {
	hdr, err := DecodePayloadHead(data)
	if err != nil {
		return nil, 0, err
	}
	if hdr.BodyLen() > len(data)-PAYLOAD_HEAD_SIZE {
		return nil, 0, fmt.Errorf("%w: frame of %d bytes, have %d", ErrBufferTooShort, hdr.TotalLen, len(data))
	}

	total := int(hdr.TotalLen)
	p := &Payload{
		CorrelationID: hdr.CorrelationID,
		TypeID:        hdr.TypeID,
		BodyData:      data[PAYLOAD_HEAD_SIZE:total:total],
		size:          total,
	}

	switch {
	case creator == nil || !creator.ContainsMsg(hdr.TypeID):
		p.Status = DecodeUnknownType
	default:
		msg, err := creator.ParseMsg(hdr.TypeID, p.BodyData)
		if err != nil {
			p.Status = DecodeInvalidBody
			p.Err = err
		} else {
			p.Msg = msg
		}
	}
	return p, total, nil
}
