package log

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forecastErrors "github.com/YuminosukeSato/salesforecast/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestToLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ToLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogger("info", FormatJSON, &buf))

	logger := GetLoggerWithName("fasttree.trainer").With(ModelNameKey, "FastTreeTweedie")
	logger.Debug("hidden")
	logger.Info("Training started", OperationKey, OperationFit, SamplesKey, 120)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "Training started", lines[0]["message"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "fasttree.trainer", lines[0][ComponentKey])
	assert.Equal(t, "FastTreeTweedie", lines[0][ModelNameKey])
	assert.Equal(t, OperationFit, lines[0][OperationKey])
	assert.EqualValues(t, 120, lines[0][SamplesKey])
}

func TestSetupLoggerErrorCarriesStacktrace(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogger("debug", FormatJSON, &buf))

	GetLogger().Error("save failed", errors.New("disk full"), DataPathKey, "model.zip")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "disk full", lines[0]["error"])
	assert.Equal(t, "model.zip", lines[0][DataPathKey])
	st, ok := lines[0][StacktraceKey].(string)
	require.True(t, ok, "stacktrace should be attached")
	assert.Contains(t, st, "TestSetupLoggerErrorCarriesStacktrace")
}

func TestSetupLoggerRoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogger("info", FormatJSON, &buf))

	forecastErrors.Warn(forecastErrors.NewUndefinedMetricWarning("r2", "constant labels", 0))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "r2", lines[0]["metric"])
	assert.Equal(t, "UndefinedMetricWarning", lines[0]["type"])
}

func TestSetupLoggerRejectsUnknownFormat(t *testing.T) {
	err := SetupLogger("info", "xml", &bytes.Buffer{})
	var verr *forecastErrors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestSetupLoggerConsole(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogger("info", FormatConsole, &buf))
	GetLogger().Info("Model saved", DataPathKey, "out.zip")
	assert.Contains(t, buf.String(), "Model saved")
	assert.Contains(t, buf.String(), "out.zip")
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SetupLogger("error", FormatJSON, &buf))
	assert.False(t, GetLogger().Enabled(context.Background(), LevelInfo))

	SetLevel(LevelDebug)
	logger := GetLogger()
	assert.True(t, logger.Enabled(context.Background(), LevelDebug))
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestTestLogger(t *testing.T) {
	logger := NewTestLogger(LevelInfo)
	logger.Debug("dropped")
	logger.With(PhaseKey, PhaseTraining).Info("Iteration", IterationKey, 3, LossKey, 0.25)
	logger.Error("failed", errors.New("boom"), OperationKey, OperationSave)

	entries := logger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, PhaseTraining, entries[0][PhaseKey])
	assert.Equal(t, 3.0, entries[0][IterationKey])

	failed, ok := logger.Find("failed")
	require.True(t, ok)
	assert.Equal(t, "boom", failed["error"])
	assert.Equal(t, OperationSave, failed[OperationKey])
	assert.Contains(t, failed[StacktraceKey], "TestTestLogger")

	_, ok = logger.Find("dropped")
	assert.False(t, ok)
	assert.False(t, logger.Enabled(context.Background(), LevelDebug))

	logger.Reset()
	assert.Empty(t, logger.Entries())
}
