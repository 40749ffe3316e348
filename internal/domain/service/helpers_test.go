package service

import (
	"github.com/paulmach/orb"

	"SpotMap-App/internal/domain/model"
)

// newSpot はテスト用のスポットを作成する
func newSpot(id string, lat, lng float64, category model.Category) model.SpotRecord {
	return model.SpotRecord{
		ID:         id,
		Coordinate: model.LatLng{Lat: lat, Lng: lng},
		Category:   category,
		Approved:   true,
	}
}

// viewportAt は指定の中心と緯度幅の表示領域を作成する
func viewportAt(lat, lng, span float64) model.Viewport {
	return model.Viewport{CenterLat: lat, CenterLng: lng, SpanLat: span, SpanLng: span}
}

// recordingSurface は適用された操作を記録する描画面
type recordingSurface struct {
	ops []model.Operation
}

func (s *recordingSurface) Add(obj model.DisplayObject) {
	s.ops = append(s.ops, model.Operation{Type: model.OpAdd, Object: obj})
}

func (s *recordingSurface) Remove(obj model.DisplayObject) {
	s.ops = append(s.ops, model.Operation{Type: model.OpRemove, Object: obj})
}

func (s *recordingSurface) Update(obj model.DisplayObject) {
	s.ops = append(s.ops, model.Operation{Type: model.OpUpdate, Object: obj})
}

func (s *recordingSurface) reset() {
	s.ops = nil
}

// recordingListener は選択結果のコールバックを記録する
type recordingListener struct {
	selected []string
	expanded [][]string
	bounds   []orb.Bound
}

func (l *recordingListener) OnSpotSelected(spotID string) {
	l.selected = append(l.selected, spotID)
}

func (l *recordingListener) OnClusterExpanded(memberIDs []string, bounds orb.Bound) {
	l.expanded = append(l.expanded, memberIDs)
	l.bounds = append(l.bounds, bounds)
}

// opIDs は指定種類の操作対象IDを返す
func opIDs(ops []model.Operation, typ model.OperationType) []string {
	var ids []string
	for _, op := range ops {
		if op.Type == typ {
			ids = append(ids, op.Object.ID)
		}
	}
	return ids
}
