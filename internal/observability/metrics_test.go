package observability

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetrics_ExposesPipelineInstruments(t *testing.T) {
	handler, shutdown, err := InitMetrics()
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	m, err := NewPipelineMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.JobFinished(ctx, "completed")
	m.PlaceholderUsed(ctx)
	m.StageDone(ctx, "generate", 250*time.Millisecond)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "musicengine_jobs_total")
	assert.Contains(t, string(body), `status="completed"`)
	assert.Contains(t, string(body), "musicengine_stage_duration_seconds")
}

func TestNewServer_ServesMetricsOnly(t *testing.T) {
	handler, shutdown, err := InitMetrics()
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	m, err := NewPipelineMetrics()
	require.NoError(t, err)
	m.PlaceholderUsed(context.Background())

	srv := NewServer(":0", handler)
	assert.Equal(t, ":0", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "musicengine_placeholder_total")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestNopPipelineMetrics(t *testing.T) {
	m := NopPipelineMetrics()
	assert.NotPanics(t, func() {
		m.JobFinished(context.Background(), "failed")
		m.StageDone(context.Background(), "mix", time.Second)
	})
}
