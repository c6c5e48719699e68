package serializer_test

import (
	"bytes"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/linchenxuan/strixwire/network/serializer"
	"github.com/linchenxuan/strixwire/network/serializer/compress"
	"github.com/linchenxuan/strixwire/network/serializer/crypt"
	"github.com/linchenxuan/strixwire/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chachaKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	sm4Key    = "0123456789abcdeffedcba9876543210"
)

func newManager(t *testing.T) *plugin.Manager {
	t.Helper()
	mgr := plugin.NewManager()
	mgr.RegisterFactory(compress.NewZstdFactory())
	mgr.RegisterFactory(compress.NewS2Factory())
	mgr.RegisterFactory(crypt.NewNoneFactory())
	mgr.RegisterFactory(crypt.NewChaCha20Poly1305Factory())
	mgr.RegisterFactory(crypt.NewSM4GCMFactory())

	require.NoError(t, mgr.SetupPlugins(map[string]any{
		"compressor": map[string]any{
			"zstd": map[string]any{"level": 3},
			"s2":   map[string]any{"better": true},
		},
		"encryptor": map[string]any{
			"none":             map[string]any{},
			"chacha20poly1305": map[string]any{"key": chachaKey},
			"sm4gcm":           map[string]any{"key": sm4Key},
		},
	}))
	t.Cleanup(mgr.DestroyPlugins)
	return mgr
}

func payloads(t *testing.T) map[string][]byte {
	t.Helper()
	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)
	return map[string][]byte{
		"empty":      {},
		"short":      []byte("hi"),
		"repetitive": []byte(strings.Repeat("player moved north; ", 200)),
		"random":     random,
	}
}

func TestTransformSymmetry(t *testing.T) {
	mgr := newManager(t)
	tags := []serializer.TransformTag{
		serializer.TagNone,
		serializer.TagCompressed,
		serializer.TagEncrypted,
		serializer.TagCompressed | serializer.TagEncrypted,
	}

	for _, c := range []string{"zstd", "s2"} {
		for _, e := range []string{"none", "chacha20poly1305", "sm4gcm"} {
			s, err := serializer.FromPlugins(mgr, c, e)
			require.NoError(t, err)

			for name, data := range payloads(t) {
				for _, tag := range tags {
					t.Run(c+"/"+e+"/"+name+"/"+tag.String(), func(t *testing.T) {
						out, err := s.Apply(tag, data)
						require.NoError(t, err)
						back, err := s.Reverse(tag, out)
						require.NoError(t, err)
						assert.True(t, bytes.Equal(data, back), "got %d bytes, want %d", len(back), len(data))
					})
				}
			}
		}
	}
}

func TestCompressionShrinks(t *testing.T) {
	mgr := newManager(t)
	data := []byte(strings.Repeat("player moved north; ", 200))
	for _, c := range []string{"zstd", "s2"} {
		s, err := serializer.FromPlugins(mgr, c, "")
		require.NoError(t, err)
		out, err := s.Apply(serializer.TagCompressed, data)
		require.NoError(t, err)
		assert.Less(t, len(out), len(data)/4, c)
	}
}

func TestEncryptionTampering(t *testing.T) {
	mgr := newManager(t)
	for _, e := range []string{"chacha20poly1305", "sm4gcm"} {
		s, err := serializer.FromPlugins(mgr, "", e)
		require.NoError(t, err)

		a, err := s.Apply(serializer.TagEncrypted, []byte("secret"))
		require.NoError(t, err)
		b, err := s.Apply(serializer.TagEncrypted, []byte("secret"))
		require.NoError(t, err)
		assert.NotEqual(t, a, b, "%s nonces must differ", e)
		assert.NotContains(t, string(a), "secret")

		a[len(a)-1] ^= 0x01
		_, err = s.Reverse(serializer.TagEncrypted, a)
		assert.Error(t, err, e)

		_, err = s.Reverse(serializer.TagEncrypted, []byte{1, 2, 3})
		assert.ErrorIs(t, err, crypt.ErrCiphertextTooShort)
	}
}

func TestFromPluginsErrors(t *testing.T) {
	mgr := newManager(t)

	_, err := serializer.FromPlugins(mgr, "lz4", "")
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)
	_, err = serializer.FromPlugins(mgr, "", "aes")
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)

	require.NoError(t, mgr.RegisterPlugin(plugin.Compressor, "bogus", crypt.None{}))
	_, err = serializer.FromPlugins(mgr, "bogus", "")
	assert.ErrorContains(t, err, "not a compressor")
}

func TestCryptConfigErrors(t *testing.T) {
	_, err := crypt.NewChaCha20Poly1305(&crypt.ChaChaConfig{KeyConfig: crypt.KeyConfig{Key: "abcd"}})
	assert.ErrorIs(t, err, crypt.ErrKeySize)
	_, err = crypt.NewSM4GCM(&crypt.KeyConfig{Key: "not hex"})
	assert.Error(t, err)

	x, err := crypt.NewChaCha20Poly1305(&crypt.ChaChaConfig{KeyConfig: crypt.KeyConfig{Key: chachaKey}, Extended: true})
	require.NoError(t, err)
	out, err := x.Encrypt([]byte("x"))
	require.NoError(t, err)
	assert.Len(t, out, 24+1+16)
}

func TestS2DecodedLimit(t *testing.T) {
	s := compress.NewS2(&compress.S2Config{MaxDecodedSize: 100})
	out, err := s.Compress(make([]byte, 1000))
	require.NoError(t, err)
	_, err = s.Decompress(out)
	assert.ErrorIs(t, err, compress.ErrDecodedTooLarge)
}
