package observer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gavargas22/cascabel/internal/model"
	"github.com/gavargas22/cascabel/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSinkWritesHeaderOnceAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.csv")
	sink, err := NewCSVSink(path)
	require.NoError(t, err)

	frame := sim.SensorFrame{
		TimestampISO8601: "2026-01-01T00:00:00Z",
		CarID:            1,
		Status:           model.CarQueued,
		QueueID:          0,
		Latitude:         1.23,
		Longitude:        4.56,
	}
	require.NoError(t, sink.WriteFrame(frame))
	require.NoError(t, sink.WriteFrame(frame))
	assert.Equal(t, int64(2), sink.RowCount())
	require.NoError(t, sink.Finalize())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := splitLines(string(data))
	// header + 2 rows
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "timestamp_iso8601")
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
