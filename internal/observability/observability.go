// Package observability configures process-wide structured logging.
//
// Logs go to stderr as text or JSON by default. With an exporter configured,
// slog records are bridged into an OpenTelemetry LoggerProvider instead and
// filtered by the same minimum level.
package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// ServiceName is the instrumentation scope of bridged log records.
const ServiceName = "github.com/florianilch/dataportal"

// Exporter selects where logs are shipped.
type Exporter string

const (
	ExporterNone     Exporter = "none"
	ExporterStdout   Exporter = "stdout"
	ExporterOTLPHTTP Exporter = "otlphttp"
	ExporterOTLPGRPC Exporter = "otlpgrpc"
)

// ShutdownFunc flushes and stops log export.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger. format is "text" or "json" and
// only applies without an exporter. OTLP exporters read their endpoint from the
// standard OTEL_EXPORTER_OTLP_* environment variables.
func Instrument(ctx context.Context, level slog.Level, format string, exporter Exporter) (ShutdownFunc, error) {
	if exporter == "" || exporter == ExporterNone {
		handler, err := newHandler(os.Stderr, level, format)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(handler))
		return func(context.Context) error { return nil }, nil
	}

	processor, err := newProcessor(ctx, exporter)
	if err != nil {
		return nil, err
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(minsev.NewLogProcessor(processor, minSeverity(level))),
	)
	global.SetLoggerProvider(provider)

	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		// Bypass the bridged logger so export failures cannot loop back into export
		fmt.Fprintf(os.Stderr, "opentelemetry: %v\n", err)
	}))

	slog.SetDefault(slog.New(otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(provider))))

	return provider.Shutdown, nil
}

func newHandler(w io.Writer, level slog.Level, format string) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "text":
		return slog.NewTextHandler(w, opts), nil
	case "json":
		return slog.NewJSONHandler(w, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

func newProcessor(ctx context.Context, exporter Exporter) (sdklog.Processor, error) {
	switch exporter {
	case ExporterStdout:
		exp, err := stdoutlog.New(stdoutlog.WithWriter(os.Stderr))
		if err != nil {
			return nil, fmt.Errorf("creating stdout log exporter: %w", err)
		}
		// Synchronous export keeps console output ordered
		return sdklog.NewSimpleProcessor(exp), nil
	case ExporterOTLPHTTP:
		exp, err := otlploghttp.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating otlp http log exporter: %w", err)
		}
		return sdklog.NewBatchProcessor(exp), nil
	case ExporterOTLPGRPC:
		exp, err := otlploggrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating otlp grpc log exporter: %w", err)
		}
		return sdklog.NewBatchProcessor(exp), nil
	default:
		return nil, fmt.Errorf("unsupported log exporter: %s", exporter)
	}
}

// minSeverity maps a slog level onto the OpenTelemetry severity scale.
func minSeverity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
