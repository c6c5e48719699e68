package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestDefaultCodec(t *testing.T) {
	c := DefaultCodec{}
	m := wrapperspb.String("join room 42")

	prefix := []byte{0xAA, 0xBB}
	out, err := c.Encode(m, prefix)
	require.NoError(t, err)
	assert.Equal(t, prefix, out[:2])
	assert.Equal(t, c.Size(m), len(out)-2)

	got := &wrapperspb.StringValue{}
	require.NoError(t, c.Decode(got, out[2:]))
	assert.True(t, proto.Equal(m, got))
}

func TestDefaultCodecDeterministic(t *testing.T) {
	s, err := structpb.NewStruct(map[string]any{"b": 1, "a": "x", "c": true, "d": 2.5})
	require.NoError(t, err)

	c := DefaultCodec{}
	first, err := c.Encode(s, nil)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := c.Encode(s, nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestJSONCodec(t *testing.T) {
	c := JSONCodec{}
	m := wrapperspb.Int32(-1)

	out, err := c.Encode(m, nil)
	require.NoError(t, err)
	assert.Equal(t, len(out), c.Size(m))

	got := &wrapperspb.Int32Value{}
	require.NoError(t, c.Decode(got, out))
	assert.Equal(t, int32(-1), got.GetValue())
}

func TestPackageLevelCodec(t *testing.T) {
	defer SetCodec(DefaultCodec{})

	SetCodec(nil)
	_, err := Encode(wrapperspb.Bool(true), nil)
	assert.ErrorIs(t, err, errCodecNotInit)
	assert.ErrorIs(t, Decode(&wrapperspb.BoolValue{}, nil), errCodecNotInit)

	SetCodec(JSONCodec{})
	assert.IsType(t, JSONCodec{}, Default())
	out, err := Encode(wrapperspb.Bool(true), nil)
	require.NoError(t, err)
	assert.Equal(t, "true", string(out))
}
