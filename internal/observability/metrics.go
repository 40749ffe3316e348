package observability

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"SpotMap-App/internal/domain/model"
)

// MapMetrics 地図エンジンのPrometheusメトリクス
type MapMetrics struct {
	gatherer prometheus.Gatherer

	Passes         prometheus.Counter
	Operations     *prometheus.CounterVec
	SkippedRegions prometheus.Counter
	StaleFetches   prometheus.Counter
	FetchErrors    prometheus.Counter
	LiveObjects    *prometheus.GaugeVec
}

// NewMapMetrics はメトリクスを登録する。regがnilの場合はデフォルトのレジストリを使用
func NewMapMetrics(reg prometheus.Registerer) (*MapMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	passes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotmap_reconcile_passes_total",
		Help: "Total number of clustering and reconciliation passes.",
	}), "spotmap_reconcile_passes_total")
	if err != nil {
		return nil, err
	}

	operations, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spotmap_annotation_operations_total",
		Help: "Annotation operations applied to the map surface, labeled by type.",
	}, []string{"type"}), "spotmap_annotation_operations_total")
	if err != nil {
		return nil, err
	}

	skipped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotmap_region_changes_skipped_total",
		Help: "Region changes ignored because the viewport barely moved.",
	}), "spotmap_region_changes_skipped_total")
	if err != nil {
		return nil, err
	}

	stale, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotmap_stale_fetches_total",
		Help: "Spot list results dropped because a newer fetch was issued.",
	}), "spotmap_stale_fetches_total")
	if err != nil {
		return nil, err
	}

	fetchErrors, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spotmap_fetch_errors_total",
		Help: "Spot list fetches that failed.",
	}), "spotmap_fetch_errors_total")
	if err != nil {
		return nil, err
	}

	live, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "spotmap_live_objects",
		Help: "Objects currently displayed on the map, labeled by kind.",
	}, []string{"kind"}), "spotmap_live_objects")
	if err != nil {
		return nil, err
	}

	return &MapMetrics{
		gatherer:       gatherer,
		Passes:         passes,
		Operations:     operations,
		SkippedRegions: skipped,
		StaleFetches:   stale,
		FetchErrors:    fetchErrors,
		LiveObjects:    live,
	}, nil
}

// ObservePass は1回の反映処理の結果を記録する
func (m *MapMetrics) ObservePass(ops []model.Operation, live []model.DisplayObject) {
	if m == nil {
		return
	}
	m.Passes.Inc()
	for _, op := range ops {
		m.Operations.WithLabelValues(string(op.Type)).Inc()
	}

	counts := map[model.DisplayKind]int{
		model.KindPin:     0,
		model.KindCluster: 0,
		model.KindDraft:   0,
	}
	for _, obj := range live {
		counts[obj.Kind]++
	}
	for kind, n := range counts {
		m.LiveObjects.WithLabelValues(string(kind)).Set(float64(n))
	}
}

// RegionSkipped は無視した表示領域変更を記録する
func (m *MapMetrics) RegionSkipped() {
	if m != nil {
		m.SkippedRegions.Inc()
	}
}

// FetchDropped は破棄した古い取得結果を記録する
func (m *MapMetrics) FetchDropped() {
	if m != nil {
		m.StaleFetches.Inc()
	}
}

// FetchFailed は失敗した取得を記録する
func (m *MapMetrics) FetchFailed() {
	if m != nil {
		m.FetchErrors.Inc()
	}
}

// Handler は/metrics用のHTTPハンドラーを返す
func (m *MapMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
