package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linchenxuan/strixwire/metrics"
	"github.com/linchenxuan/strixwire/network/message"
	"github.com/linchenxuan/strixwire/network/message/msgtest"
	"github.com/linchenxuan/strixwire/network/packer"
	"github.com/linchenxuan/strixwire/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	p := packer.New()
	_, err := p.Init(message.BuildOptions{}, msgtest.GameFile())
	require.NoError(t, err)
	return New(p, opts...)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestTypes(t *testing.T) {
	s := newServer(t)

	rr := get(t, s, "/types")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Count int        `json:"count"`
		Types []TypeView `json:"types"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Count)
	for i, tv := range body.Types {
		assert.Equal(t, i, tv.Index)
		if i > 0 {
			assert.Less(t, body.Types[i-1].ID, tv.ID)
		}
	}

	rr = get(t, s, "/types?role=response")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "JoinRoomResponse", body.Types[0].Name)
	assert.True(t, body.Types[0].HasStatus)
}

func TestTypeByID(t *testing.T) {
	s := newServer(t)
	id := message.StableID("JoinRoomRequest")

	for _, param := range []string{
		fmt.Sprint(id),
		fmt.Sprintf("0x%08X", id),
		"game.room.JoinRoomRequest",
	} {
		t.Run(param, func(t *testing.T) {
			rr := get(t, s, "/types/"+param)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			var tv TypeView
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tv))
			assert.Equal(t, id, tv.ID)
			assert.Equal(t, "Request", tv.Role)
			assert.Equal(t, "game.room.JoinRoomRequest", tv.FullName)
		})
	}

	assert.Equal(t, http.StatusNotFound, get(t, s, "/types/12345").Code)
	assert.Equal(t, http.StatusNotFound, get(t, s, "/types/game.room.Nope").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/types/99999999999").Code)
}

func TestEmptyType(t *testing.T) {
	s := newServer(t)

	rr := get(t, s, "/types/game.room.JoinRoomResponse/empty")
	require.Equal(t, http.StatusOK, rr.Code)
	var m map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	assert.EqualValues(t, -1, m["status"])

	rr = get(t, s, "/types/game.room.ChatPacket/empty")
	require.Equal(t, http.StatusOK, rr.Code)
	var chat map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &chat))
	assert.NotNil(t, chat)
	assert.Empty(t, chat)
}

func TestNotReady(t *testing.T) {
	s := New(packer.New())

	rr := get(t, s, "/health")
	require.Equal(t, http.StatusOK, rr.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, false, health["ready"])

	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/types").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/types/1").Code)
}

func TestMetrics(t *testing.T) {
	rep := metrics.NewPrometheusReporter(&metrics.PrometheusReporterConfig{Namespace: "admintest"})
	metrics.AddReporter(rep)
	defer metrics.RemoveReporter(rep)

	s := newServer(t, WithMetricsHandler(rep.Handler()))
	rr := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "admintest_")
}

func TestServe(t *testing.T) {
	s := newServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestPlugins(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, get(t, newServer(t), "/plugins").Code)

	mgr := plugin.NewManager()
	require.NoError(t, mgr.RegisterPlugin(plugin.Encryptor, "none", nopPlugin{}))
	s := newServer(t, WithPlugins(mgr))

	rr := get(t, s, "/plugins")
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"none"}, body["encryptor"])
	assert.Empty(t, body["compressor"])
}

type nopPlugin struct{}

func (nopPlugin) FactoryName() string { return "nop" }
