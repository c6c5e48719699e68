package log

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileLogging(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "wire.log")

	cfg := &LogCfg{
		LogPath:         logPath,
		LogLevel:        DebugLevel,
		FileSplitMB:     10,
		FileAppender:    true,
		ConsoleAppender: false,
	}
	require.NoError(t, Initialize(cfg))

	testMessage := "this is a test message"
	Info().Uint32("typeId", 0xABCD1234).Msg(testMessage)
	Debug().Msg("debug line")

	Refresh()
	Close()
	require.NoError(t, Initialize(nil))

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)

	out := string(content)
	assert.Contains(t, out, testMessage)
	assert.Contains(t, out, `"level":"info"`)
	assert.Contains(t, out, `"typeId":2882343476`)
	assert.Contains(t, out, "debug line")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LogCfg{LogLevel: WarnLevel})
	l.AddAppender(&bufferAppender{buf: &buf})

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", TraceLevel},
		{"DEBUG", DebugLevel},
		{" info ", InfoLevel},
		{"warning", WarnLevel},
		{"Error", ErrorLevel},
		{"fatal", FatalLevel},
		{"bogus", InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
			l, ok := LookupLevel(tt.in)
			assert.Equal(t, tt.in != "bogus", ok)
			assert.Equal(t, tt.want, l)
		})
	}
	assert.Equal(t, "WARN", WarnLevel.String())

	_, ok := LookupLevel("")
	assert.False(t, ok)
}

func TestDefaultCfgIsClean(t *testing.T) {
	cfg := DefaultCfg()
	path := cfg.LogPath
	require.NoError(t, cfg.Validate())
	assert.Equal(t, path, cfg.LogPath)
}

func TestSetDefaultLoggerConcurrent(t *testing.T) {
	prev := DefaultLogger()
	defer SetDefaultLogger(prev)

	next := NewLogger(&LogCfg{LogLevel: ErrorLevel})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				Debug().Int("j", j).Msg("spin")
			}
		}()
	}
	SetDefaultLogger(next)
	SetDefaultLogger(nil)
	wg.Wait()

	assert.Same(t, next, DefaultLogger())
}

func TestLogCfgValidate(t *testing.T) {
	cfg := DefaultCfg()
	assert.NoError(t, cfg.Validate())

	noAppender := DefaultCfg()
	noAppender.ConsoleAppender = false
	assert.Error(t, noAppender.Validate())

	noPath := DefaultCfg()
	noPath.FileAppender = true
	noPath.LogPath = ""
	assert.Error(t, noPath.Validate())

	badLevel := DefaultCfg()
	badLevel.LogLevel = 0
	assert.Error(t, badLevel.Validate())
}

type bufferAppender struct {
	buf *bytes.Buffer
}

func (b *bufferAppender) Write(p []byte) (int, error) { return b.buf.Write(p) }
func (b *bufferAppender) Refresh() error              { return nil }
func (b *bufferAppender) Close() error                { return nil }
