package log

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func makeEntry(level LogLevel, msg string, fields map[string]interface{}) LogEntry {
	return LogEntry{Timestamp: testTime, Level: level, Message: msg, Fields: fields}
}

func TestLogLevelString(t *testing.T) {
	require.Equal(t, "DEBUG", DEBUG.String())
	require.Equal(t, "FATAL", FATAL.String())
	require.Equal(t, "LEVEL(99)", LogLevel(99).String())

	require.Equal(t, WARN, LevelFromString(" warning "))
	require.Equal(t, ERROR, LevelFromString("Error"))
	require.Equal(t, INFO, LevelFromString(""))
}

func TestTextFormatter(t *testing.T) {
	out := (&TextFormatter{}).Format(makeEntry(INFO, "block applied", map[string]interface{}{
		"txs": 3, "blknum": 1000,
	}))
	require.Equal(t, "[2024-01-01 12:00:00] INFO  block applied blknum=1000 txs=3", out)

	out = (&TextFormatter{TimeFormat: time.RFC3339}).Format(makeEntry(ERROR, "x", nil))
	require.True(t, strings.HasPrefix(out, "[2024-01-01T12:00:00Z] ERROR"))
}

func TestJSONFormatter(t *testing.T) {
	out := (&JSONFormatter{}).Format(makeEntry(WARN, "rejected", map[string]interface{}{"reason": "spent"}))

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.Equal(t, "WARN", parsed["level"])
	require.Equal(t, "rejected", parsed["msg"])
	require.Equal(t, "spent", parsed["reason"])
	require.Equal(t, "2024-01-01T12:00:00Z", parsed["time"])
}

func TestColorFormatter(t *testing.T) {
	seen := make(map[string]LogLevel)
	for _, lvl := range []LogLevel{DEBUG, INFO, WARN, ERROR, FATAL} {
		out := (&ColorFormatter{}).Format(makeEntry(lvl, "msg", map[string]interface{}{"k": "v"}))
		require.Contains(t, out, "\x1b[", "level %v", lvl)
		require.Contains(t, out, levelColors[lvl].Sprint(fmt.Sprintf("%-5s", lvl.String())), "level %v", lvl)
		require.Contains(t, out, lvl.String())
		require.Contains(t, out, "k=v")

		prefix := out[:strings.Index(out, lvl.String())]
		prev, dup := seen[prefix]
		require.False(t, dup, "levels %v and %v share a colour", prev, lvl)
		seen[prefix] = lvl
	}
}

func TestFormatterHandler(t *testing.T) {
	var buf bytes.Buffer
	h := NewFormatterHandler(&buf, slog.LevelInfo, &TextFormatter{})
	l := NewWithHandler(h).Module("childchain")

	l.Debug("hidden")
	require.Zero(t, buf.Len())

	l.Info("applied", "blknum", 1000)
	line := buf.String()
	require.True(t, strings.HasSuffix(line, "\n"))
	require.Contains(t, line, "INFO  applied blknum=1000 module=childchain")

	buf.Reset()
	grouped := slog.New(h.WithGroup("chain")).With("head", 2000)
	grouped.Warn("gap", "want", 1000)
	require.Contains(t, buf.String(), "chain.head=2000 chain.want=1000")
}
