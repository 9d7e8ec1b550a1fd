package logging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		format      string
		expectLevel logrus.Level
	}{
		{name: "debug level with text format", level: "debug", format: "text", expectLevel: logrus.DebugLevel},
		{name: "info level with json format", level: "info", format: "json", expectLevel: logrus.InfoLevel},
		{name: "upper-case level", level: "WARN", format: "text", expectLevel: logrus.WarnLevel},
		{name: "invalid level defaults to info", level: "loud", format: "text", expectLevel: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogrusAdapter(tt.level, tt.format)
			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok)
			assert.Equal(t, tt.expectLevel, adapter.Level())
		})
	}
}

func TestLogrusAdapter_JSONOutputCarriesFields(t *testing.T) {
	logger := NewLogrusAdapter("debug", "json")
	adapter := logger.(*LogrusAdapter)
	var buf bytes.Buffer
	adapter.SetOutput(&buf)

	logger.WithField(FieldAccount, "acc-1").
		WithError(errors.New("boom")).
		Info("row committed", F(FieldRow, 3))

	out := buf.String()
	assert.Contains(t, out, `"account_id":"acc-1"`)
	assert.Contains(t, out, `"row":3`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"msg":"row committed"`)
}

func TestLogrusAdapter_LevelFiltering(t *testing.T) {
	logger := NewLogrusAdapter("warn", "text")
	var buf bytes.Buffer
	logger.(*LogrusAdapter).SetOutput(&buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestMockLogger_SharedRecorder(t *testing.T) {
	mock := NewMockLogger()
	child := mock.WithField("component", "writer").WithError(errors.New("timeout"))

	mock.Info("parent")
	child.Warn("child", F(FieldRow, 1))

	entries := mock.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "WARN", entries[1].Level)
	assert.EqualError(t, entries[1].Error, "timeout")
	assert.Equal(t, []Field{{Key: "component", Value: "writer"}, {Key: FieldRow, Value: 1}}, entries[1].Fields)
	assert.True(t, mock.HasMessage("child"))
	assert.Len(t, mock.GetEntriesByLevel("WARN"), 1)

	mock.Clear()
	assert.Empty(t, mock.GetEntries())
}

func TestMockLogger_FatalfDoesNotExit(t *testing.T) {
	mock := NewMockLogger()
	mock.Fatalf("bad %s", "input")
	entries := mock.GetEntriesByLevel("FATAL")
	require.Len(t, entries, 1)
	assert.Equal(t, "bad input", entries[0].Message)
}
