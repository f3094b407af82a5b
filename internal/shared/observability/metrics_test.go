package observability

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestWriteMetricsFile(t *testing.T) {
	FilesProcessedTotal.WithLabelValues("external", "ok").Inc()
	CandidateSymbols.Set(3)

	path := filepath.Join(t.TempDir(), "nested", "pubscan.prom")
	require.NoError(t, WriteMetricsFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "pubscan_files_processed_total"))
	assert.True(t, strings.Contains(text, "pubscan_candidate_symbols 3"))
}

func TestTracerIsUsableWithoutProvider(t *testing.T) {
	ctx, span := Tracer.Start(context.Background(), "test")
	defer span.End()
	assert.NotNil(t, ctx)
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), "  ")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracing_InstallsProvider(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	shutdown, err := InitTracing(context.Background(), "127.0.0.1:4317")
	require.NoError(t, err)
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
