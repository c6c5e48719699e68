// Package msgtest builds protobuf schemas at runtime for tests. The files it
// returns behave like compiled .proto files; their messages are dynamic.
package msgtest

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// GamePackage is the proto package of GameFile.
const GamePackage = "game.room"

type fieldType = descriptorpb.FieldDescriptorProto_Type

// Field types used by the schemas in this package.
const (
	Int32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
	Int64   = descriptorpb.FieldDescriptorProto_TYPE_INT64
	Uint64  = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	Uint32  = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	Float   = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	String  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	Bytes   = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	Bool    = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	Message = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

// Field declares a singular scalar field.
func Field(name string, num int32, typ fieldType) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:   typ.Enum(),
	}
}

// Repeated declares a repeated scalar field.
func Repeated(name string, num int32, typ fieldType) *descriptorpb.FieldDescriptorProto {
	f := Field(name, num, typ)
	f.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	return f
}

// MessageField declares a singular field of a message type in pkg.
func MessageField(name string, num int32, pkg, typeName string) *descriptorpb.FieldDescriptorProto {
	f := Field(name, num, Message)
	f.TypeName = proto.String("." + pkg + "." + typeName)
	return f
}

// Msg declares a message with the given fields.
func Msg(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:  proto.String(name),
		Field: fields,
	}
}

// Nested adds nested message declarations to m and returns it.
func Nested(m *descriptorpb.DescriptorProto, nested ...*descriptorpb.DescriptorProto) *descriptorpb.DescriptorProto {
	m.NestedType = append(m.NestedType, nested...)
	return m
}

// FileProto assembles a proto3 file declaration.
func FileProto(path, pkg string, msgs ...*descriptorpb.DescriptorProto) *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:        proto.String(path),
		Package:     proto.String(pkg),
		Syntax:      proto.String("proto3"),
		MessageType: msgs,
	}
}

// NewFile compiles a file declaration with no imports.
func NewFile(path, pkg string, msgs ...*descriptorpb.DescriptorProto) (protoreflect.FileDescriptor, error) {
	fd, err := protodesc.NewFile(FileProto(path, pkg, msgs...), new(protoregistry.Files))
	if err != nil {
		return nil, fmt.Errorf("msgtest: %s: %w", path, err)
	}
	return fd, nil
}

// MustFile is NewFile for schemas known to be valid.
func MustFile(path, pkg string, msgs ...*descriptorpb.DescriptorProto) protoreflect.FileDescriptor {
	fd, err := NewFile(path, pkg, msgs...)
	if err != nil {
		panic(err)
	}
	return fd
}

// GameFileProto is the declaration of GameFile.
func GameFileProto() *descriptorpb.FileDescriptorProto {
	return FileProto("game/room.proto", GamePackage,
		Msg("JoinRoomRequest",
			Field("room_id", 1, Uint64),
			Field("player_name", 2, String),
		),
		Msg("JoinRoomResponse",
			Field("status", 1, Int32),
			Field("room_id", 2, Uint64),
			Repeated("members", 3, String),
		),
		Msg("PlayerMoveNotify",
			Field("player_id", 1, Uint64),
			MessageField("pos", 2, GamePackage, "_Vec3"),
			Field("seq", 3, Uint32),
		),
		Msg("_Vec3",
			Field("x", 1, Float),
			Field("y", 2, Float),
			Field("z", 3, Float),
		),
		Msg("ChatPacket",
			Field("text", 1, String),
			Repeated("attachments", 2, Bytes),
			Field("whisper", 3, Bool),
		),
	)
}

// GameFile is a valid schema: a request/response pair, a notify, a packet and a
// shared type.
func GameFile() protoreflect.FileDescriptor {
	fd, err := protodesc.NewFile(GameFileProto(), new(protoregistry.Files))
	if err != nil {
		panic(err)
	}
	return fd
}

// BadFile breaks each per-type rule once: a name without a known suffix, a
// response without status, and a camelCase field inside a nested message.
func BadFile() protoreflect.FileDescriptor {
	return MustFile("game/bad.proto", "game.bad",
		Msg("JoinRoomResp", Field("status", 1, Int32)),
		Msg("LeaveRoomResponse", Field("room_id", 1, Uint64)),
		Nested(
			Msg("KickNotify", MessageField("who", 1, "game.bad.KickNotify", "Target")),
			Msg("Target", Field("playerId", 1, Uint64)),
		),
	)
}

// ResponseFile declares FooResponse, with an int32 status field when withStatus is set.
func ResponseFile(withStatus bool) protoreflect.FileDescriptor {
	fields := []*descriptorpb.FieldDescriptorProto{Field("result", 2, String)}
	if withStatus {
		fields = append(fields, Field("status", 1, Int32))
	}
	return MustFile("game/foo.proto", "game.foo", Msg("FooResponse", fields...))
}

// CollisionFile declares two types whose names have the same CRC32.
func CollisionFile() protoreflect.FileDescriptor {
	return MustFile("game/collide.proto", "game.collide",
		Msg("plumless", Field("a", 1, Int32)),
		Msg("buckeroo", Field("b", 1, Int32)),
	)
}

// NewMessage creates a message of type mt and fills it with values keyed by field
// name. Lists take []any; message fields take a proto.Message of the field's type.
func NewMessage(mt protoreflect.MessageType, values map[string]any) proto.Message {
	m := mt.New()
	fields := mt.Descriptor().Fields()
	for name, v := range values {
		fd := fields.ByName(protoreflect.Name(name))
		if fd == nil {
			panic(fmt.Sprintf("msgtest: %s has no field %q", mt.Descriptor().FullName(), name))
		}
		if fd.IsList() {
			list := m.Mutable(fd).List()
			for _, item := range v.([]any) {
				list.Append(protoreflect.ValueOf(item))
			}
			continue
		}
		if pm, ok := v.(proto.Message); ok {
			m.Set(fd, protoreflect.ValueOfMessage(pm.ProtoReflect()))
			continue
		}
		m.Set(fd, protoreflect.ValueOf(v))
	}
	return m.Interface()
}
