// Package message builds the message type registry: every protobuf message type the
// wire layer may carry, with its stable numeric id, dense index, role and codec.
// The registry is constructed once from schema files, validated as a whole, and is
// immutable afterwards, so any number of goroutines may read it without locking.
package message

import (
	"hash/crc32"
	"strings"

	"github.com/linchenxuan/strixwire/network/codec"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// StatusField is the field every Response type must declare.
const StatusField protoreflect.Name = "status"

// MsgProtoInfo holds the metadata of one registered message type.
type MsgProtoInfo struct {
	// Index is the position of the type when all types are sorted by ID.
	Index int
	// ID is the stable wire identifier, the CRC32 of Name.
	ID uint32
	// Name is the short message name, e.g. JoinRoomRequest.
	Name string
	// FullName is the package-qualified name, e.g. game.room.JoinRoomRequest.
	FullName protoreflect.FullName
	// Type creates instances of the message.
	Type protoreflect.MessageType
	// MsgReqType is the role derived from Name.
	MsgReqType MsgReqType
	// Codec encodes and parses the message body.
	Codec codec.Codec
}

// StableID returns the wire identifier for a message name.
func StableID(name string) uint32 {
	return crc32.ChecksumIEEE([]byte(strings.TrimSpace(name)))
}

// New returns a new, empty instance of the message.
func (pi *MsgProtoInfo) New() proto.Message {
	return pi.Type.New().Interface()
}

// IsReq returns true if the message is a request.
func (pi *MsgProtoInfo) IsReq() bool {
	return pi != nil && pi.MsgReqType == MRTReq
}

// IsRes returns true if the message is a response.
func (pi *MsgProtoInfo) IsRes() bool {
	return pi != nil && pi.MsgReqType == MRTRes
}

// IsNtf returns true if the message is a notification.
func (pi *MsgProtoInfo) IsNtf() bool {
	return pi != nil && pi.MsgReqType == MRTNtf
}

// HasStatus reports whether the message declares a usable status field.
func (pi *MsgProtoInfo) HasStatus() bool {
	if pi == nil {
		return false
	}
	fd := pi.Type.Descriptor().Fields().ByName(StatusField)
	return fd != nil && isStatusField(fd)
}

func isStatusField(fd protoreflect.FieldDescriptor) bool {
	if fd.IsList() || fd.IsMap() {
		return false
	}
	switch fd.Kind() {
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind,
		protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return true
	default:
		return false
	}
}
