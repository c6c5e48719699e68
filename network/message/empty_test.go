package message

import (
	"sync"
	"testing"

	"github.com/linchenxuan/strixwire/network/message/msgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

func statusOf(t *testing.T, m proto.Message) int64 {
	t.Helper()
	fd := m.ProtoReflect().Descriptor().Fields().ByName(StatusField)
	require.NotNil(t, fd)
	return m.ProtoReflect().Get(fd).Int()
}

func TestEmptyCache(t *testing.T) {
	fd := msgtest.GameFile()
	var cache EmptyCache

	t.Run("ResponseStatusUnset", func(t *testing.T) {
		m, err := cache.Get(dynType(fd, "JoinRoomResponse"))
		require.NoError(t, err)
		assert.Equal(t, int64(StatusUnset), statusOf(t, m))

		fields := m.ProtoReflect().Descriptor().Fields()
		assert.False(t, m.ProtoReflect().Has(fields.ByName("room_id")))
	})

	t.Run("NoStatusField", func(t *testing.T) {
		m, err := cache.Get(dynType(fd, "JoinRoomRequest"))
		require.NoError(t, err)
		assert.Equal(t, protoreflect.FullName("game.room.JoinRoomRequest"), m.ProtoReflect().Descriptor().FullName())
	})

	t.Run("Int64Status", func(t *testing.T) {
		wide := msgtest.MustFile("game/wide.proto", "game.wide",
			msgtest.Msg("WideResponse", msgtest.Field("status", 1, msgtest.Int64)))
		m, err := cache.Get(dynType(wide, "WideResponse"))
		require.NoError(t, err)
		assert.Equal(t, int64(StatusUnset), statusOf(t, m))
	})

	t.Run("ResponseWithoutStatus", func(t *testing.T) {
		_, err := cache.Get(dynType(msgtest.ResponseFile(false), "FooResponse"))
		require.ErrorIs(t, err, ErrSchemaViolation)
		var se *SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, RuleStatus, se.Violations[0].Rule)

		_, again := cache.Get(dynType(msgtest.ResponseFile(false), "FooResponse"))
		assert.Same(t, err, again)
	})

	t.Run("ConcurrentFirstUse", func(t *testing.T) {
		var c EmptyCache
		mt := dynType(fd, "JoinRoomResponse")
		results := make([]proto.Message, 32)

		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m, err := c.Get(mt)
				assert.NoError(t, err)
				results[i] = m
			}(i)
		}
		wg.Wait()
		for _, m := range results[1:] {
			assert.Same(t, results[0], m)
		}
	})
}
