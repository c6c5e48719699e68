// Package packer is the entry point of the wire layer. It owns the once-only
// registry build and combines registry, transform pipeline and envelope into
// Pack/Unpack and their framed variants.
package packer

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/linchenxuan/strixwire/log"
	"github.com/linchenxuan/strixwire/metrics"
	"github.com/linchenxuan/strixwire/network/message"
	"github.com/linchenxuan/strixwire/network/serializer"
	"github.com/linchenxuan/strixwire/network/transport"
	"github.com/linchenxuan/strixwire/utils/pool"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ErrNotReady is returned by every operation before Init succeeds.
var ErrNotReady = errors.New("packer not ready")

const (
	_bufInitCap = 512
	_bufMaxCap  = 64 * 1024
)

// WirePayload is a packed message before framing.
type WirePayload struct {
	TypeID uint32
	// Body is the encoded and transformed message.
	Body []byte
	// CorrelationID is meaningful only when HasCorrelation is set.
	CorrelationID  uint32
	HasCorrelation bool
}

// Packer packs and unpacks messages. The zero value is not usable; call New.
type Packer struct {
	mu  sync.Mutex
	reg atomic.Pointer[message.Registry]

	ser     *serializer.Serializer
	limiter *rate.Limiter
	bufs    *pool.BufferPool
}

// Option configures a Packer.
type Option func(*Packer)

// WithSerializer sets the transform pipeline. The default compresses and
// encrypts with NopStage.
func WithSerializer(s *serializer.Serializer) Option {
	return func(p *Packer) {
		if s != nil {
			p.ser = s
		}
	}
}

// WithDropLogLimit bounds how often dropped frames are logged.
func WithDropLogLimit(every time.Duration, burst int) Option {
	return func(p *Packer) {
		p.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

// New creates a packer that is not ready until Init succeeds.
func New(opts ...Option) *Packer {
	p := &Packer{
		ser:     serializer.New(serializer.NopStage),
		limiter: rate.NewLimiter(rate.Every(time.Second), 10),
		bufs:    pool.NewBufferPool("packer_body", _bufInitCap, _bufMaxCap),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Init builds and validates the registry from files, exactly once. Concurrent
// and repeated calls return the registry of the first successful build and do
// not rebuild; opts and files of later calls are ignored. A failed build
// leaves the packer not ready, and Init may be called again.
//
// Beyond the registry's own checks, Init materializes the empty instance of
// every Response type so a broken status contract fails here and not at runtime.
func (p *Packer) Init(opts message.BuildOptions, files ...protoreflect.FileDescriptor) (*message.Registry, error) {
	if r := p.reg.Load(); r != nil {
		return r, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if r := p.reg.Load(); r != nil {
		return r, nil
	}

	r, err := message.Build(opts, files...)
	if err != nil {
		return nil, err
	}
	for _, pi := range r.All() {
		if !pi.IsRes() {
			continue
		}
		if _, err := r.Empty(pi); err != nil {
			log.Error().Err(err).Str("msg", pi.Name).Msg("packer init: empty response")
			return nil, err
		}
	}

	p.reg.Store(r)
	log.Info().Int("types", r.Len()).Msg("packer ready")
	return r, nil
}

// Ready reports whether Init has succeeded.
func (p *Packer) Ready() bool {
	return p.reg.Load() != nil
}

// Registry returns the registry built by Init.
func (p *Packer) Registry() (*message.Registry, error) {
	r := p.reg.Load()
	if r == nil {
		return nil, ErrNotReady
	}
	return r, nil
}

// Serializer returns the transform pipeline.
func (p *Packer) Serializer() *serializer.Serializer {
	return p.ser
}

// Pack resolves the type of m, encodes it and applies the pipeline for tag.
// A correlationID of 0 means none.
func (p *Packer) Pack(correlationID uint32, m proto.Message, tag serializer.TransformTag) (WirePayload, error) {
	r, err := p.Registry()
	if err != nil {
		return WirePayload{}, err
	}
	pi, ok := r.ByMessage(m)
	if !ok {
		packErr("not_registered")
		return WirePayload{}, fmt.Errorf("%w: %T", message.ErrNotRegistered, m)
	}

	buf := p.bufs.Get()
	defer p.bufs.Put(buf)

	raw, err := pi.Codec.Encode(m, *buf)
	if err != nil {
		packErr("encode")
		return WirePayload{}, fmt.Errorf("encode %s: %w", pi.Name, err)
	}
	*buf = raw

	body, err := p.ser.Apply(tag, raw)
	if err != nil {
		packErr("transform")
		return WirePayload{}, fmt.Errorf("pack %s: %w", pi.Name, err)
	}

	metrics.IncrCounterWithDimGroup(metrics.NamePackTotal, metrics.GroupWire, 1, metrics.Dimension{
		metrics.DimMsgName: pi.Name,
		metrics.DimTag:     tag.String(),
	})
	metrics.IncrCounterWithDimGroup(metrics.NamePackBytesTotal, metrics.GroupWire, metrics.Value(len(body))/metrics.KB,
		metrics.Dimension{metrics.DimTag: tag.String()})

	return WirePayload{
		TypeID:         pi.ID,
		Body:           bytes.Clone(body),
		CorrelationID:  correlationID,
		HasCorrelation: correlationID > 0,
	}, nil
}

// Unpack reverses the pipeline over wp.Body and parses it. An unregistered
// type id yields a nil message and a nil error.
func (p *Packer) Unpack(tag serializer.TransformTag, wp WirePayload) (proto.Message, error) {
	r, err := p.Registry()
	if err != nil {
		return nil, err
	}
	pi, ok := r.ByID(wp.TypeID)
	if !ok {
		p.drop(transport.DecodeUnknownType, wp.TypeID, len(wp.Body), nil)
		return nil, nil
	}

	m := pi.New()
	if err := p.ser.Decode(tag, pi.Codec, m, wp.Body); err != nil {
		p.drop(transport.DecodeInvalidBody, wp.TypeID, len(wp.Body), err)
		return nil, fmt.Errorf("unpack %s: %w", pi.Name, err)
	}
	unpacked(transport.DecodeOK)
	return m, nil
}

// PackFrame packs m and wraps it in an envelope.
func (p *Packer) PackFrame(correlationID uint32, m proto.Message, tag serializer.TransformTag) ([]byte, error) {
	wp, err := p.Pack(correlationID, m, tag)
	if err != nil {
		return nil, err
	}
	frame, err := transport.Encode(wp.CorrelationID, wp.TypeID, transport.RawBody(wp.Body))
	if err != nil {
		packErr("frame")
		return nil, err
	}
	frameSize("out", len(frame))
	return frame, nil
}

// UnpackFrame decodes the frame at the start of data, reversing the pipeline
// for tag before parsing. It has the skip semantics of transport.Decode: unless
// the error is non-nil, the returned count is the whole frame, and an unknown
// or unparsable body is reported through Payload.Status.
func (p *Packer) UnpackFrame(tag serializer.TransformTag, data []byte) (*transport.Payload, int, error) {
	r, err := p.Registry()
	if err != nil {
		return nil, 0, err
	}
	pl, n, err := transport.Decode(data, &tagCreator{reg: r, ser: p.ser, tag: tag})
	if err != nil {
		if errors.Is(err, transport.ErrMalformedHeader) {
			log.Error().Err(err).Int("buffered", len(data)).Msg("malformed frame header")
		}
		return nil, 0, err
	}

	frameSize("in", n)
	if pl.Status != transport.DecodeOK {
		p.drop(pl.Status, pl.TypeID, n, pl.Err)
	} else {
		unpacked(transport.DecodeOK)
	}
	return pl, n, nil
}

// Empty returns the shared placeholder instance of mt, with status set to
// message.StatusUnset when the type has one. It must not be modified.
func (p *Packer) Empty(mt protoreflect.MessageType) (proto.Message, error) {
	r, err := p.Registry()
	if err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, fmt.Errorf("%w: nil message type", message.ErrNotRegistered)
	}
	pi, ok := r.ByType(mt)
	if !ok {
		return nil, fmt.Errorf("%w: %s", message.ErrNotRegistered, mt.Descriptor().FullName())
	}
	return r.Empty(pi)
}

func (p *Packer) drop(status transport.DecodeStatus, typeID uint32, size int, cause error) {
	unpacked(status)
	if !p.limiter.Allow() {
		return
	}
	log.Warn().Str("status", status.String()).Uint32("typeId", typeID).Int("size", size).
		AnErr("cause", cause).Msg("dropping frame")
}

// tagCreator parses bodies through the pipeline for one tag.
type tagCreator struct {
	reg *message.Registry
	ser *serializer.Serializer
	tag serializer.TransformTag
}

func (c *tagCreator) ContainsMsg(typeID uint32) bool {
	return c.reg.ContainsMsg(typeID)
}

func (c *tagCreator) ParseMsg(typeID uint32, data []byte) (proto.Message, error) {
	pi, ok := c.reg.ByID(typeID)
	if !ok {
		return nil, fmt.Errorf("%w: id 0x%08X", message.ErrNotRegistered, typeID)
	}
	m := pi.New()
	if err := c.ser.Decode(c.tag, pi.Codec, m, data); err != nil {
		return nil, err
	}
	return m, nil
}

func packErr(reason string) {
	metrics.IncrCounterWithDimGroup(metrics.NamePackErrTotal, metrics.GroupWire, 1,
		metrics.Dimension{metrics.DimReason: reason})
}

func unpacked(status transport.DecodeStatus) {
	metrics.IncrCounterWithDimGroup(metrics.NameUnpackTotal, metrics.GroupWire, 1,
		metrics.Dimension{metrics.DimStatus: status.String()})
}

func frameSize(direction string, n int) {
	metrics.UpdateMaxGaugeWithDimGroup(metrics.NameFrameSizeMaxKB, metrics.GroupWire, metrics.Value(n)/metrics.KB,
		metrics.Dimension{metrics.DimDirection: direction})
}
