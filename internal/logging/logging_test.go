package logging

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type recordSink struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *recordSink) Broadcast(e Entry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func TestBroadcastCoreCarriesBotField(t *testing.T) {
	sink := &recordSink{}
	log := zap.New(NewBroadcastCore(sink, zapcore.InfoLevel))
	botLog := log.With(zap.String("bot", "Lolicute"))

	botLog.Info("spawned", zap.Int("x", 10))
	botLog.Debug("hidden")
	log.Warn("no bot")

	require.Len(t, sink.entries, 2)
	e := sink.entries[0]
	assert.Equal(t, "info", e.Level)
	assert.Equal(t, "spawned", e.Message)
	assert.Equal(t, "Lolicute", e.Bot)
	assert.Equal(t, map[string]any{"x": int64(10)}, e.Fields)
	assert.Empty(t, sink.entries[1].Bot)
}

func TestNewWritesJSONToPipeAndFile(t *testing.T) {
	var console bytes.Buffer
	sink := &recordSink{}
	file := filepath.Join(t.TempDir(), "bot.log")
	log, closeFn, err := New(Options{Verbose: true, File: file, Console: &console, Sink: sink})
	require.NoError(t, err)

	log.Debug("dig failed", zap.String("pos", "(1, 2, 3)"))
	require.NoError(t, log.Sync())
	require.NoError(t, closeFn())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(console.Bytes()), &line))
	assert.Equal(t, "dig failed", line["msg"])
	assert.Equal(t, "debug", line["level"])
	assert.Len(t, sink.entries, 1)
	assert.FileExists(t, file)
}

func TestNewDefaultLevelIsInfo(t *testing.T) {
	var console bytes.Buffer
	log, _, err := New(Options{Console: &console})
	require.NoError(t, err)
	log.Debug("quiet")
	assert.Empty(t, console.String())
}
