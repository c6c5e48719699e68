package message

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/linchenxuan/strixwire/network/message/msgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func buildGame(t *testing.T) *Registry {
	t.Helper()
	r, err := Build(BuildOptions{}, msgtest.GameFile())
	require.NoError(t, err)
	return r
}

func dynType(fd protoreflect.FileDescriptor, name string) protoreflect.MessageType {
	return dynamicpb.NewMessageType(fd.Messages().ByName(protoreflect.Name(name)))
}

func TestReqTypeOf(t *testing.T) {
	tests := []struct {
		name string
		want MsgReqType
	}{
		{"JoinRoomRequest", MRTReq},
		{"JoinRoomResponse", MRTRes},
		{"PlayerMoveNotify", MRTNtf},
		{"_Vec3", MRTShared},
		{"_SharedRequest", MRTReq},
		{"ChatPacket", MRTNone},
		{"Request", MRTReq},
		{"", MRTNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReqTypeOf(tt.name))
		})
	}
	assert.Equal(t, "Response", MRTRes.String())
	assert.Equal(t, "None", MsgReqType(99).String())
}

func TestStableID(t *testing.T) {
	assert.Equal(t, StableID("JoinRoomRequest"), StableID("  JoinRoomRequest\t"))
	assert.NotEqual(t, StableID("JoinRoomRequest"), StableID("JoinRoomResponse"))
}

func TestBuild(t *testing.T) {
	fd := msgtest.GameFile()
	r, err := Build(BuildOptions{}, fd)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Len())

	t.Run("JoinRoomLookup", func(t *testing.T) {
		byType, ok := r.ByType(dynType(fd, "JoinRoomResponse"))
		require.True(t, ok)
		byID, ok := r.ByID(StableID("JoinRoomResponse"))
		require.True(t, ok)
		assert.Same(t, byType, byID)
		assert.Equal(t, "JoinRoomResponse", byID.Name)
		assert.Equal(t, protoreflect.FullName("game.room.JoinRoomResponse"), byID.FullName)
		assert.True(t, byID.IsRes())
		assert.True(t, byID.HasStatus())

		req, ok := r.ByName("game.room.JoinRoomRequest")
		require.True(t, ok)
		assert.True(t, req.IsReq())
		assert.False(t, req.HasStatus())
	})

	t.Run("DenseIndex", func(t *testing.T) {
		for i := 0; i < r.Len(); i++ {
			pi := r.ByIndex(i)
			assert.Equal(t, i, pi.Index)
			if i > 0 {
				assert.Less(t, r.ByIndex(i-1).ID, pi.ID)
			}
		}
		all := r.All()
		require.Len(t, all, r.Len())
		all[0] = nil
		assert.NotNil(t, r.ByIndex(0))
	})

	t.Run("Absent", func(t *testing.T) {
		_, ok := r.ByID(StableID("LeaveRoomRequest"))
		assert.False(t, ok)
		_, ok = r.ByType(nil)
		assert.False(t, ok)
		_, ok = r.ByMessage(nil)
		assert.False(t, ok)
		_, ok = r.ByMessage(wrapperspb.Int32(1))
		assert.False(t, ok)
	})

	t.Run("SharedType", func(t *testing.T) {
		pi, ok := r.ByName("game.room._Vec3")
		require.True(t, ok)
		assert.Equal(t, MRTShared, pi.MsgReqType)
	})

	t.Run("GetAllMsgList", func(t *testing.T) {
		assert.Equal(t, []string{"JoinRoomResponse"}, r.GetAllMsgList(func(pi *MsgProtoInfo) bool { return pi.IsRes() }))
		assert.Len(t, r.GetAllMsgList(func(*MsgProtoInfo) bool { return true }), 5)
	})
}

func TestBuildDeduplicatesFiles(t *testing.T) {
	r, err := Build(BuildOptions{}, msgtest.GameFile(), msgtest.GameFile())
	require.NoError(t, err)
	assert.Equal(t, 5, r.Len())
}

func TestBuildAggregatesViolations(t *testing.T) {
	r, err := Build(BuildOptions{}, msgtest.BadFile())
	require.Error(t, err)
	assert.Nil(t, r)
	assert.True(t, errors.Is(err, ErrSchemaViolation))

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Violations, 3)

	rules := map[string]Rule{}
	for _, v := range se.Violations {
		rules[v.Type] = v.Rule
	}
	assert.Equal(t, map[string]Rule{
		"game.bad.JoinRoomResp":      RuleSuffix,
		"game.bad.LeaveRoomResponse": RuleStatus,
		"game.bad.KickNotify.Target": RuleFieldCase,
	}, rules)

	msg := err.Error()
	assert.Contains(t, msg, "3 problem(s)")
	assert.Contains(t, msg, "JoinRoomResp")
	assert.Contains(t, msg, "LeaveRoomResponse")
	assert.Contains(t, msg, "playerId")
}

func TestBuildCustomSuffixes(t *testing.T) {
	fd := msgtest.MustFile("game/legacy.proto", "game.legacy",
		msgtest.Msg("OldLoginDeprecated", msgtest.Field("token", 1, msgtest.String)),
		msgtest.Msg("HeartbeatPing", msgtest.Field("seq", 1, msgtest.Uint32)),
	)

	_, err := Build(BuildOptions{}, fd)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"game.legacy.HeartbeatPing"}, se.Types())

	r, err := Build(BuildOptions{Suffixes: []string{"Ping"}}, fd)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
}

func TestResponseContract(t *testing.T) {
	_, err := Build(BuildOptions{}, msgtest.ResponseFile(false))
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Violations, 1)
	assert.Equal(t, RuleStatus, se.Violations[0].Rule)
	assert.Equal(t, "game.foo.FooResponse", se.Violations[0].Type)

	r, err := Build(BuildOptions{}, msgtest.ResponseFile(true))
	require.NoError(t, err)
	pi, ok := r.ByID(StableID("FooResponse"))
	require.True(t, ok)

	empty, err := r.Empty(pi)
	require.NoError(t, err)
	fd := empty.ProtoReflect().Descriptor().Fields().ByName(StatusField)
	assert.Equal(t, int64(StatusUnset), empty.ProtoReflect().Get(fd).Int())
}

func TestResponseStatusKind(t *testing.T) {
	fd := msgtest.MustFile("game/kind.proto", "game.kind",
		msgtest.Msg("TextResponse", msgtest.Field("status", 1, msgtest.String)),
		msgtest.Msg("ListResponse", msgtest.Repeated("status", 1, msgtest.Int32)),
		msgtest.Msg("WideResponse", msgtest.Field("status", 1, msgtest.Int64)),
	)
	_, err := Build(BuildOptions{}, fd)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.ElementsMatch(t, []string{"game.kind.TextResponse", "game.kind.ListResponse"}, se.Types())
}

func TestCollision(t *testing.T) {
	require.Equal(t, StableID("plumless"), StableID("buckeroo"))

	_, err := Build(BuildOptions{Suffixes: []string{"less", "roo"}}, msgtest.CollisionFile())
	require.ErrorIs(t, err, ErrSchemaViolation)

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Empty(t, se.Violations)
	require.Len(t, se.Collisions, 1)
	assert.Equal(t, StableID("plumless"), se.Collisions[0].ID)
	assert.Equal(t, []string{"game.collide.buckeroo", "game.collide.plumless"}, se.Collisions[0].Names)
	assert.Contains(t, err.Error(), "game.collide.plumless:")
	assert.Contains(t, err.Error(), "game.collide.buckeroo:")
}

func TestPackAndParse(t *testing.T) {
	fd := msgtest.GameFile()
	r := buildGame(t)

	pi, ok := r.ByName("game.room.PlayerMoveNotify")
	require.True(t, ok)
	vecPI, ok := r.ByName("game.room._Vec3")
	require.True(t, ok)

	pos := msgtest.NewMessage(vecPI.Type, map[string]any{"x": float32(1), "y": float32(2.5), "z": float32(-3)})
	m := msgtest.NewMessage(pi.Type, map[string]any{"player_id": uint64(77), "pos": pos, "seq": uint32(9)})

	id, body, err := r.Pack(m)
	require.NoError(t, err)
	assert.Equal(t, StableID("PlayerMoveNotify"), id)
	assert.True(t, r.ContainsMsg(id))

	got, err := r.ParseMsg(id, body)
	require.NoError(t, err)
	assert.True(t, proto.Equal(m, got))

	// A message built from a separately compiled copy of the schema resolves by name.
	other := dynamicpb.NewMessage(fd.Messages().ByName("ChatPacket"))
	id, _, err = r.Pack(other)
	require.NoError(t, err)
	assert.Equal(t, StableID("ChatPacket"), id)

	_, _, err = r.Pack(wrapperspb.String("x"))
	assert.ErrorIs(t, err, ErrNotRegistered)

	_, err = r.ParseMsg(0xDEADBEEF, nil)
	assert.ErrorIs(t, err, ErrNotRegistered)
	assert.False(t, r.ContainsMsg(0xDEADBEEF))

	_, err = r.ParseMsg(id, []byte{0xFF, 0xFF, 0xFF})
	assert.Error(t, err)
}

func TestLookupGeneric(t *testing.T) {
	r, err := Build(BuildOptions{Suffixes: []string{"Value"}}, wrapperspb.File_google_protobuf_wrappers_proto)
	require.NoError(t, err)
	assert.Equal(t, 9, r.Len())

	pi, ok := Lookup[*wrapperspb.Int32Value](r)
	require.True(t, ok)
	assert.Equal(t, "Int32Value", pi.Name)

	cached, ok := r.typeCache.Load(reflect.TypeOf((**wrapperspb.Int32Value)(nil)).Elem())
	require.True(t, ok)
	assert.Same(t, pi, cached)

	again, ok := Lookup[*wrapperspb.Int32Value](r)
	require.True(t, ok)
	assert.Same(t, pi, again)

	byMsg, ok := r.ByMessage(wrapperspb.Int32(5))
	require.True(t, ok)
	assert.Same(t, pi, byMsg)

	_, ok = Lookup[*dynamicpb.Message](r)
	assert.False(t, ok)
	_, ok = Lookup[proto.Message](r)
	assert.False(t, ok)

	game := buildGame(t)
	_, ok = Lookup[*wrapperspb.Int32Value](game)
	assert.False(t, ok)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, ok := Lookup[*wrapperspb.StringValue](r)
			assert.True(t, ok)
			assert.Equal(t, "StringValue", got.Name)
		}()
	}
	wg.Wait()
}

func TestLookupGeneratedRoundTrip(t *testing.T) {
	r, err := Build(BuildOptions{Suffixes: []string{"Value"}}, wrapperspb.File_google_protobuf_wrappers_proto)
	require.NoError(t, err)

	id, body, err := r.Pack(wrapperspb.Int64(-42))
	require.NoError(t, err)
	got, err := r.ParseMsg(id, body)
	require.NoError(t, err)
	v, ok := got.(*wrapperspb.Int64Value)
	require.True(t, ok)
	assert.Equal(t, int64(-42), v.GetValue())
}
