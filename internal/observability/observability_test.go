package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_WritesJSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	obs := New(Options{ServiceName: "awbot", Environment: "test", Output: &buf})

	obs.Logger.Info("hello")

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "{"), "expected JSON output, got %q", line)
	assert.Contains(t, line, `"service":"awbot"`)
	require.NotNil(t, obs.Tracer)
}

func TestPrometheusMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg, "test")
	ctx := context.Background()

	m.RecordOperationAttempt(ctx, "Claim", "ClaimService")
	m.RecordOperationAttempt(ctx, "Claim", "ClaimService")
	m.RecordOperationFailure(ctx, "Claim", "ClaimService")
	m.RecordOperationSuccess(ctx, "Claim", "ClaimService")
	m.RecordOperationDuration(ctx, "Claim", "ClaimService", 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("Claim", "ClaimService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("Claim", "ClaimService")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.successes.WithLabelValues("Claim", "ClaimService")))
}
