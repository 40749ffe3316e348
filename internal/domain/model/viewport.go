package model

import (
	"math"

	"github.com/paulmach/orb"
)

// Viewport 地図の表示領域（中心と表示幅）
type Viewport struct {
	CenterLat float64 `json:"center_lat"`
	CenterLng float64 `json:"center_lng"`
	SpanLat   float64 `json:"span_lat"`
	SpanLng   float64 `json:"span_lng"`
}

// ViewportFromBound 境界ボックスを含む表示領域を作成（クラスタへのズーム用）
func ViewportFromBound(b orb.Bound) Viewport {
	center := b.Center()
	return Viewport{
		CenterLat: center.Lat(),
		CenterLng: center.Lon(),
		SpanLat:   b.Max.Lat() - b.Min.Lat(),
		SpanLng:   b.Max.Lon() - b.Min.Lon(),
	}
}

// Distance 2つの表示領域の差分合計（中心緯度・経度、表示幅の絶対差の和）
func (v Viewport) Distance(other Viewport) float64 {
	return math.Abs(v.CenterLat-other.CenterLat) +
		math.Abs(v.CenterLng-other.CenterLng) +
		math.Abs(v.SpanLat-other.SpanLat) +
		math.Abs(v.SpanLng-other.SpanLng)
}

// IsValid 表示領域として成立しているか（中心が範囲内で表示幅が正）
func (v Viewport) IsValid() bool {
	return v.CenterLat >= -90 && v.CenterLat <= 90 &&
		v.CenterLng >= -180 && v.CenterLng <= 180 &&
		v.SpanLat > 0 && v.SpanLat <= 180 &&
		v.SpanLng > 0 && v.SpanLng <= 360
}
