package message

import (
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// StatusUnset is the status of an empty message: no real status code has been assigned.
const StatusUnset = -1

// EmptyCache hands out one placeholder instance per message type. Each entry is
// built once on first request; entries for different types never contend.
// The zero value is ready to use.
type EmptyCache struct {
	entries sync.Map // protoreflect.FullName -> *emptyEntry
}

type emptyEntry struct {
	once sync.Once
	msg  proto.Message
	err  error
}

// Get returns the placeholder for mt: a zero-valued message whose status, if it
// has one, is StatusUnset. A Response type without a status field is a
// *SchemaError. The returned instance is shared and must be treated as read-only.
func (c *EmptyCache) Get(mt protoreflect.MessageType) (proto.Message, error) {
	v, _ := c.entries.LoadOrStore(mt.Descriptor().FullName(), &emptyEntry{})
	e := v.(*emptyEntry)
	e.once.Do(func() {
		e.msg, e.err = newEmpty(mt)
	})
	return e.msg, e.err
}

func newEmpty(mt protoreflect.MessageType) (proto.Message, error) {
	md := mt.Descriptor()
	m := mt.New()

	fd := md.Fields().ByName(StatusField)
	if fd == nil || !isStatusField(fd) {
		if ReqTypeOf(string(md.Name())) == MRTRes {
			return nil, &SchemaError{Violations: []Violation{{
				Type:   string(md.FullName()),
				Rule:   RuleStatus,
				Detail: fmt.Sprintf("response has no signed integer %q field", StatusField),
			}}}
		}
		return m.Interface(), nil
	}

	switch fd.Kind() {
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		m.Set(fd, protoreflect.ValueOfInt64(StatusUnset))
	default:
		m.Set(fd, protoreflect.ValueOfInt32(StatusUnset))
	}
	return m.Interface(), nil
}
