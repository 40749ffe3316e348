package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SpotMap-App/internal/domain/model"
)

func TestObservePass(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMapMetrics(reg)
	require.NoError(t, err)

	ops := []model.Operation{
		{Type: model.OpRemove, Object: model.DisplayObject{ID: "a"}},
		{Type: model.OpAdd, Object: model.DisplayObject{ID: "b"}},
		{Type: model.OpAdd, Object: model.DisplayObject{ID: "c"}},
	}
	live := []model.DisplayObject{
		{Kind: model.KindPin, ID: "b"},
		{Kind: model.KindCluster, ID: "c"},
		{Kind: model.KindDraft, ID: model.DraftPinID},
		{Kind: model.KindPin, ID: "d"},
	}
	m.ObservePass(ops, live)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Passes))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("remove")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LiveObjects.WithLabelValues("pin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveObjects.WithLabelValues("cluster")))
}

func TestNewMapMetricsReusesExistingCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMapMetrics(reg)
	require.NoError(t, err)
	second, err := NewMapMetrics(reg)
	require.NoError(t, err)

	first.StaleFetches.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(second.StaleFetches))
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMapMetrics(reg)
	require.NoError(t, err)
	m.SkippedRegions.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "spotmap_region_changes_skipped_total 1"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *MapMetrics
	assert.NotPanics(t, func() { m.ObservePass(nil, nil) })
}
