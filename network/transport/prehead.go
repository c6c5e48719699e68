// Package transport implements the wire envelope: a fixed 12-byte little-endian
// header followed by the message body. Because the header carries the total frame
// length, a byte stream self-delimits and a reader can always skip a frame it
// cannot decode. The package performs no I/O.
package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PAYLOAD_HEAD_SIZE is the fixed size in bytes of the envelope header.
const PAYLOAD_HEAD_SIZE = 12 // TotalLen (4 bytes) + CorrelationID (4 bytes) + TypeID (4 bytes)

var (
	// ErrBufferTooShort means more bytes are needed before the frame can be decoded.
	// It is not a sign of corruption; retry once more input is buffered.
	ErrBufferTooShort = errors.New("buffer too short")
	// ErrMalformedHeader means the declared total length is smaller than the header.
	// No skip distance can be trusted after it; the stream should be closed.
	ErrMalformedHeader = errors.New("malformed header")
	// ErrFrameTooLarge means a frame length exceeds the configured limit, or a body
	// too big for the 32-bit length field was encoded.
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrSizeMismatch means a body wrote a different number of bytes than it reported.
	// A reused Payload whose body changed needs Invalidate.
	ErrSizeMismatch = errors.New("body size mismatch")
)

// PayloadHead is the envelope header.
type PayloadHead struct {
	TotalLen      uint32 // PAYLOAD_HEAD_SIZE plus the body length.
	CorrelationID uint32 // Request/response correlation, 0 when unused.
	TypeID        uint32 // Stable id of the body's message type.
}

// BodyLen returns the body length the header declares.
func (h PayloadHead) BodyLen() int {
	return int(h.TotalLen) - PAYLOAD_HEAD_SIZE
}

// EncodePayloadHead writes hdr into the first PAYLOAD_HEAD_SIZE bytes of buf.
func EncodePayloadHead(buf []byte, hdr PayloadHead) {
	_ = buf[PAYLOAD_HEAD_SIZE-1]
	binary.LittleEndian.PutUint32(buf[0:4], hdr.TotalLen)
	binary.LittleEndian.PutUint32(buf[4:8], hdr.CorrelationID)
	binary.LittleEndian.PutUint32(buf[8:12], hdr.TypeID)
}

// DecodePayloadHead reads and checks a header. It fails with ErrBufferTooShort when
// buf is shorter than the header and ErrMalformedHeader when the declared length
// cannot hold the header itself.
func DecodePayloadHead(buf []byte) (PayloadHead, error) {
	if len(buf) < PAYLOAD_HEAD_SIZE {
		return PayloadHead{}, ErrBufferTooShort
	}
	hdr := PayloadHead{
		TotalLen:      binary.LittleEndian.Uint32(buf[0:4]),
		CorrelationID: binary.LittleEndian.Uint32(buf[4:8]),
		TypeID:        binary.LittleEndian.Uint32(buf[8:12]),
	}
	if hdr.TotalLen < PAYLOAD_HEAD_SIZE {
		return hdr, fmt.Errorf("%w: total length %d", ErrMalformedHeader, hdr.TotalLen)
	}
	return hdr, nil
}
