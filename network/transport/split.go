package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// MaxPayloadSize is the default upper bound on a frame's total length.
const MaxPayloadSize = 16 << 20

// Limits bounds what a stream reader accepts.
type Limits struct {
	// MaxPayloadSize is the largest total length accepted. Zero means the default.
	MaxPayloadSize uint32 `mapstructure:"maxPayloadSize"`
}

func (l Limits) maxPayloadSize() int {
	if l.MaxPayloadSize == 0 {
		return MaxPayloadSize
	}
	return int(l.MaxPayloadSize)
}

// SplitFrames returns a bufio.SplitFunc yielding one whole frame per token,
// header included. Each token advances the reader by exactly the frame's total
// length, whatever its type or body. A frame longer than the limit or with a
// malformed header stops the scan.
func SplitFrames(limits Limits) bufio.SplitFunc {
	maxSize := limits.maxPayloadSize()
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		hdr, err := DecodePayloadHead(data)
		switch {
		case err == nil:
		case errors.Is(err, ErrBufferTooShort):
			return 0, nil, needMore(atEOF, len(data))
		default:
			return 0, nil, err
		}

		total := int(hdr.TotalLen)
		if total > maxSize {
			return 0, nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, total, maxSize)
		}
		if len(data) < total {
			return 0, nil, needMore(atEOF, len(data))
		}
		return total, data[:total], nil
	}
}

func needMore(atEOF bool, have int) error {
	if atEOF {
		return fmt.Errorf("%w: %d trailing bytes", io.ErrUnexpectedEOF, have)
	}
	return nil
}

// NewFrameScanner wraps r in a scanner that splits frames under limits. Its
// buffer is sized so that any accepted frame fits.
func NewFrameScanner(r io.Reader, limits Limits) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), limits.maxPayloadSize())
	s.Split(SplitFrames(limits))
	return s
}
