package message

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/linchenxuan/strixwire/log"
	"github.com/linchenxuan/strixwire/metrics"
	"github.com/linchenxuan/strixwire/network/codec"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/dynamicpb"
)

// BuildOptions controls registry construction.
type BuildOptions struct {
	// Suffixes is the set of accepted type name endings. Defaults to
	// Request, Response, Notify and Packet.
	Suffixes []string `mapstructure:"suffixes"`
	// DeprecatedSuffix marks types kept only for compatibility. Defaults to Deprecated.
	DeprecatedSuffix string `mapstructure:"deprecatedSuffix"`
	// Codec is used for every type. Defaults to codec.Default().
	Codec codec.Codec `mapstructure:"-"`
}

func (o BuildOptions) withDefaults() BuildOptions {
	if len(o.Suffixes) == 0 {
		o.Suffixes = []string{SuffixRequest, SuffixResponse, SuffixNotify, SuffixPacket}
	}
	if o.DeprecatedSuffix == "" {
		o.DeprecatedSuffix = "Deprecated"
	}
	if o.Codec == nil {
		o.Codec = codec.Default()
	}
	return o
}

// Registry is the immutable index of message types. Use Build to create one.
type Registry struct {
	infos  []*MsgProtoInfo
	byID   map[uint32]*MsgProtoInfo
	byName map[protoreflect.FullName]*MsgProtoInfo
	empty  EmptyCache

	// typeCache memoizes Lookup per Go type.
	typeCache sync.Map
}

// Build collects every top-level message of files, assigns ids and dense indexes,
// and validates the whole set. All problems are returned together in one
// *SchemaError; on error no registry is returned.
func Build(opts BuildOptions, files ...protoreflect.FileDescriptor) (*Registry, error) {
	start := time.Now()
	r, err := build(opts.withDefaults(), files)
	metrics.RecordStopwatchWithGroup(metrics.NameRegistryBuildMS, metrics.GroupWire, start)

	result := "ok"
	if err != nil {
		result = "fail"
	}
	metrics.IncrCounterWithDimGroup(metrics.NameRegistryBuildTotal, metrics.GroupWire, 1,
		metrics.Dimension{metrics.DimResult: result})
	if err != nil {
		log.Error().Err(err).Int("files", len(files)).Msg("message registry build failed")
		return nil, err
	}

	metrics.UpdateGaugeWithGroup(metrics.NameRegistryTypes, metrics.GroupWire, metrics.Value(r.Len()))
	log.Info().Int("types", r.Len()).Dur("elapsed", time.Since(start)).Msg("message registry built")
	return r, nil
}

func build(opts BuildOptions, files []protoreflect.FileDescriptor) (*Registry, error) {
	v := &validator{opts: opts}
	byName := make(map[protoreflect.FullName]*MsgProtoInfo)
	grouped := make(map[uint32][]*MsgProtoInfo)

	for _, fd := range files {
		msgs := fd.Messages()
		for i := 0; i < msgs.Len(); i++ {
			md := msgs.Get(i)
			if _, dup := byName[md.FullName()]; dup {
				continue
			}
			name := string(md.Name())
			pi := &MsgProtoInfo{
				ID:         StableID(name),
				Name:       name,
				FullName:   md.FullName(),
				Type:       messageType(md),
				MsgReqType: ReqTypeOf(name),
				Codec:      opts.Codec,
			}
			byName[md.FullName()] = pi
			grouped[pi.ID] = append(grouped[pi.ID], pi)
			v.checkType(md)
		}
	}
	v.checkCollisions(grouped)
	if err := v.result(); err != nil {
		return nil, err
	}

	r := &Registry{
		infos:  make([]*MsgProtoInfo, 0, len(byName)),
		byID:   make(map[uint32]*MsgProtoInfo, len(byName)),
		byName: byName,
	}
	for id, group := range grouped {
		r.byID[id] = group[0]
		r.infos = append(r.infos, group[0])
	}
	sort.Slice(r.infos, func(i, j int) bool { return r.infos[i].ID < r.infos[j].ID })
	for i, pi := range r.infos {
		pi.Index = i
	}
	if n := len(r.infos); n > 0 && r.infos[n-1].Index != n-1 {
		return nil, fmt.Errorf("message registry: dense index ends at %d for %d types", r.infos[n-1].Index, n)
	}
	return r, nil
}

// messageType prefers the generated Go type when one is linked in, so that
// generated messages resolve through ByMessage; otherwise it builds a dynamic type.
func messageType(md protoreflect.MessageDescriptor) protoreflect.MessageType {
	if mt, err := protoregistry.GlobalTypes.FindMessageByName(md.FullName()); err == nil {
		return mt
	}
	return dynamicpb.NewMessageType(md)
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	return len(r.infos)
}

// ByIndex returns the type at dense index i. i must be in [0, Len()).
func (r *Registry) ByIndex(i int) *MsgProtoInfo {
	return r.infos[i]
}

// ByID returns the type with the given stable id.
func (r *Registry) ByID(id uint32) (*MsgProtoInfo, bool) {
	pi, ok := r.byID[id]
	return pi, ok
}

// ByName returns the type with the given full name.
func (r *Registry) ByName(name protoreflect.FullName) (*MsgProtoInfo, bool) {
	pi, ok := r.byName[name]
	return pi, ok
}

// ByType returns the entry for a message type.
func (r *Registry) ByType(mt protoreflect.MessageType) (*MsgProtoInfo, bool) {
	if mt == nil {
		return nil, false
	}
	return r.ByName(mt.Descriptor().FullName())
}

// ByMessage returns the entry for the type of m.
func (r *Registry) ByMessage(m proto.Message) (*MsgProtoInfo, bool) {
	if m == nil {
		return nil, false
	}
	return r.ByName(m.ProtoReflect().Descriptor().FullName())
}

// All returns every registered type in dense index order. The slice is a copy.
func (r *Registry) All() []*MsgProtoInfo {
	out := make([]*MsgProtoInfo, len(r.infos))
	copy(out, r.infos)
	return out
}

// GetAllMsgList returns the names of all types accepted by checkFunc, in index order.
// Example: GetAllMsgList(func(pi *MsgProtoInfo) bool { return pi.IsRes() })
func (r *Registry) GetAllMsgList(checkFunc func(protoInfo *MsgProtoInfo) bool) []string {
	msgList := make([]string, 0, len(r.infos)/2)
	for _, pi := range r.infos {
		if checkFunc(pi) {
			msgList = append(msgList, pi.Name)
		}
	}
	return msgList
}

// Pack resolves the id of m and encodes its raw body.
func (r *Registry) Pack(m proto.Message) (uint32, []byte, error) {
	pi, ok := r.ByMessage(m)
	if !ok {
		return 0, nil, fmt.Errorf("%w: %T", ErrNotRegistered, m)
	}
	b, err := pi.Codec.Encode(m, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("encode %s: %w", pi.Name, err)
	}
	return pi.ID, b, nil
}

// ContainsMsg reports whether id is registered.
func (r *Registry) ContainsMsg(id uint32) bool {
	_, ok := r.byID[id]
	return ok
}

// ParseMsg creates a message of type id and parses data into it.
func (r *Registry) ParseMsg(id uint32, data []byte) (proto.Message, error) {
	pi, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id 0x%08X", ErrNotRegistered, id)
	}
	m := pi.New()
	if err := pi.Codec.Decode(m, data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", pi.Name, err)
	}
	return m, nil
}

// Empty returns the shared placeholder instance for pi. The instance must not be modified.
func (r *Registry) Empty(pi *MsgProtoInfo) (proto.Message, error) {
	return r.empty.Get(pi.Type)
}

// Lookup resolves the entry for the generated Go type T. The result is cached
// per registry, so repeated lookups for the same T skip the name map.
// Dynamic messages have no static type and must use ByMessage or ByType.
func Lookup[T proto.Message](r *Registry) (*MsgProtoInfo, bool) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := r.typeCache.Load(rt); ok {
		pi := v.(*MsgProtoInfo)
		return pi, pi != nil
	}

	var pi *MsgProtoInfo
	if rt.Kind() == reflect.Pointer && rt != reflect.TypeOf((**dynamicpb.Message)(nil)).Elem() {
		var zero T
		pi = r.byName[zero.ProtoReflect().Descriptor().FullName()]
	}
	r.typeCache.Store(rt, pi)
	return pi, pi != nil
}
