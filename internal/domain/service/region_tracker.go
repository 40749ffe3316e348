package service

import (
	"SpotMap-App/internal/domain/model"
)

// RegionTracker は現在と直前の表示領域を保持し、再クラスタリングが必要かを判定する
type RegionTracker struct {
	epsilon   float64
	steps     []model.GridStep
	wideCell  float64
	current   model.Viewport
	hasRegion bool
}

// NewRegionTracker は新しいRegionTrackerインスタンスを作成
// stepsが空の場合はデフォルトの段階を使用する
func NewRegionTracker(epsilon float64, steps []model.GridStep, wideCellMeters float64) *RegionTracker {
	if epsilon <= 0 {
		epsilon = model.DefaultRegionEpsilon
	}
	if len(steps) == 0 {
		steps = model.DefaultGridSteps
	}
	if wideCellMeters <= 0 {
		wideCellMeters = model.DefaultWideCellMeters
	}
	return &RegionTracker{
		epsilon:  epsilon,
		steps:    steps,
		wideCell: wideCellMeters,
	}
}

// ShouldRecluster は2つの表示領域が「ほぼ同じ」でなければtrueを返す
func (t *RegionTracker) ShouldRecluster(previous, current model.Viewport) bool {
	return previous.Distance(current) >= t.epsilon
}

// Observe は新しい表示領域を記録し、再クラスタリングが必要かを返す
// 差分が閾値未満の場合は記録を更新しない（微小な揺れが積み重なっても検知できるように）
func (t *RegionTracker) Observe(current model.Viewport) bool {
	if !t.hasRegion {
		t.current = current
		t.hasRegion = true
		return true
	}
	if !t.ShouldRecluster(t.current, current) {
		return false
	}
	t.current = current
	return true
}

// Current は最後に採用した表示領域を返す
func (t *RegionTracker) Current() (model.Viewport, bool) {
	return t.current, t.hasRegion
}

// GridCellSizeMeters は表示範囲の緯度幅からグリッドセルサイズ（m）を決定する
func (t *RegionTracker) GridCellSizeMeters(span model.Viewport) float64 {
	for _, step := range t.steps {
		if span.SpanLat < step.MaxSpanLat {
			return step.CellMeters
		}
	}
	return t.wideCell
}
