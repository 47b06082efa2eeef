package observability

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/contrib/processors/minsev"
)

func TestNewHandler(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{format: "text", want: "msg=hello"},
		{format: "", want: "msg=hello"},
		{format: "json", want: `"msg":"hello"`},
		{format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			h, err := newHandler(&buf, slog.LevelInfo, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("newHandler: %v", err)
			}

			logger := slog.New(h)
			logger.Debug("hidden")
			logger.Info("hello")

			out := buf.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q does not contain %q", out, tt.want)
			}
			if strings.Contains(out, "hidden") {
				t.Errorf("debug record leaked at info level: %q", out)
			}
		})
	}
}

func TestMinSeverity(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  minsev.Severity
	}{
		{slog.LevelDebug, minsev.SeverityDebug},
		{slog.LevelInfo, minsev.SeverityInfo},
		{slog.LevelWarn, minsev.SeverityWarn},
		{slog.LevelError, minsev.SeverityError},
	}
	for _, tt := range tests {
		if got := minSeverity(tt.level); got != tt.want {
			t.Errorf("minSeverity(%v) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestInstrumentRejectsUnknownExporter(t *testing.T) {
	if _, err := Instrument(context.Background(), slog.LevelInfo, "text", Exporter("carrier-pigeon")); err == nil {
		t.Error("expected error for unknown exporter")
	}
}
