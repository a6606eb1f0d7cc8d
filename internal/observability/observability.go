// Package observability builds the logger, tracer and metrics shared by
// every module.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Options controls how the observability stack is built.
type Options struct {
	ServiceName string
	Environment string
	LogLevel    string
	LogFormat   string // json|text
	Output      io.Writer
}

// Observability bundles the logger, tracer and metrics registry.
type Observability struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Registry *prometheus.Registry
	Metrics  Metrics
}

// New builds the observability stack. The tracer comes from the global otel
// provider, which is a noop unless an exporter has been installed.
func New(opts Options) Observability {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.LogLevel)}

	var handler slog.Handler
	if strings.EqualFold(opts.LogFormat, "text") {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	logger := slog.New(handler).With(
		slog.String("service", opts.ServiceName),
		slog.String("env", opts.Environment),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return Observability{
		Logger:   logger,
		Tracer:   otel.Tracer(opts.ServiceName),
		Registry: reg,
		Metrics:  NewPrometheusMetrics(reg, "awbot"),
	}
}

// NewNoop returns a stack that discards logs, traces and metrics.
func NewNoop() Observability {
	return Observability{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tracer:   noop.NewTracerProvider().Tracer("noop"),
		Registry: prometheus.NewRegistry(),
		Metrics:  NoopMetrics{},
	}
}

// ParseLevel maps a config string onto a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
