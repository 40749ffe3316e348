package service

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"SpotMap-App/internal/domain/helper"
	"SpotMap-App/internal/domain/model"
)

// ErrUnknownCluster は表示中に存在しないクラスタが指定された場合のエラー
var ErrUnknownCluster = errors.New("クラスタが見つかりません")

// MapListener は地図の選択結果を受け取る外部コンポーネント
type MapListener interface {
	// OnSpotSelected はスポットが選択されたときに呼ばれる（詳細シート表示用）
	OnSpotSelected(spotID string)
	// OnClusterExpanded はクラスタが展開されたときに呼ばれる（境界へのズーム用）
	OnClusterExpanded(memberIDs []string, bounds orb.Bound)
}

// MapSessionConfig はMapSessionの設定
type MapSessionConfig struct {
	RegionEpsilon  float64
	GridSteps      []model.GridStep
	WideCellMeters float64
}

// MapSession は地図表示の状態をすべて保持し、入力イベントごとに再計算と差分反映を行う
// 1つのゴルーチンからのみ呼び出すこと
type MapSession struct {
	tracker    *RegionTracker
	clusterer  *GridClusterer
	reconciler *AnnotationReconciler
	focus      *FocusStateManager
	draft      *DraftPinHandler
	listener   MapListener

	spots          []model.SpotRecord
	live           model.DisplaySet
	clusters       map[string]model.Cluster
	lastOps        []model.Operation
	animating      bool
	pendingRefresh map[string]struct{}
}

// NewMapSession は新しいMapSessionインスタンスを作成
func NewMapSession(cfg MapSessionConfig, surface AnnotationSurface, listener MapListener) *MapSession {
	tracker := NewRegionTracker(cfg.RegionEpsilon, cfg.GridSteps, cfg.WideCellMeters)
	return &MapSession{
		tracker:        tracker,
		clusterer:      NewGridClusterer(tracker),
		reconciler:     NewAnnotationReconciler(surface),
		focus:          NewFocusStateManager(),
		draft:          NewDraftPinHandler(),
		listener:       listener,
		live:           make(model.DisplaySet),
		clusters:       make(map[string]model.Cluster),
		pendingRefresh: make(map[string]struct{}),
	}
}

// ApplySpots は新しいスポット一覧を反映する（差分更新ではなく全置き換え）
// 重複したIDは先勝ち、下書きピンやクラスタと衝突するIDは除外する
func (s *MapSession) ApplySpots(records []model.SpotRecord) []model.Operation {
	s.spots = helper.UniqueSpotRecords(records)
	t := s.focus.Prune(helper.SpotIDSet(s.spots))
	return s.recompute(t.RefreshIDs())
}

// RegionWillChange は表示領域のアニメーション開始を記録する
func (s *MapSession) RegionWillChange() {
	s.animating = true
}

// ApplyViewport は表示領域の変更を反映する
// 変化が閾値未満で保留中の再描画もなければ何もしない（reclustered=false）
func (s *MapSession) ApplyViewport(viewport model.Viewport, animating bool) (ops []model.Operation, reclustered bool) {
	settled := s.animating && !animating
	s.animating = animating
	changed := s.tracker.Observe(viewport)
	if !changed && !(settled && len(s.pendingRefresh) > 0) {
		return nil, false
	}
	return s.recompute(nil), true
}

// SelectSpot はピンのタップを反映する。下書きピンは解除される
// 一覧に存在しないIDは無視する
func (s *MapSession) SelectSpot(spotID string) []model.Operation {
	if !s.hasSpot(spotID) {
		return nil
	}
	s.draft.ClearDraft()
	t := s.focus.SetFocus(spotID)
	if t.Current != "" && s.listener != nil {
		s.listener.OnSpotSelected(t.Current)
	}
	return s.recompute(t.RefreshIDs())
}

// SelectCluster はクラスタのタップを反映し、メンバーを個別表示する
func (s *MapSession) SelectCluster(clusterID string) (model.Cluster, []model.Operation, error) {
	cluster, ok := s.clusters[clusterID]
	if !ok {
		return model.Cluster{}, nil, fmt.Errorf("%w: %s", ErrUnknownCluster, clusterID)
	}
	s.focus.SetExpandedCluster(cluster.MemberIDs)
	if s.listener != nil {
		s.listener.OnClusterExpanded(cluster.MemberIDs, cluster.Bounds)
	}
	return cluster, s.recompute(nil), nil
}

// Deselect は選択とクラスタ展開を解除する
func (s *MapSession) Deselect() []model.Operation {
	t := s.focus.ClearTransientSelection()
	return s.recompute(t.RefreshIDs())
}

// SetDraft は下書きピンを設置する。選択中のスポットは解除される
func (s *MapSession) SetDraft(coordinate model.LatLng) []model.Operation {
	s.draft.SetDraft(coordinate)
	t := s.focus.ClearFocus()
	return s.recompute(t.RefreshIDs())
}

// ClearDraft は下書きピンを削除する
func (s *MapSession) ClearDraft() []model.Operation {
	if !s.draft.HasDraft() {
		return nil
	}
	s.draft.ClearDraft()
	return s.recompute(nil)
}

// Live は現在表示中のオブジェクトをID順で返す
func (s *MapSession) Live() []model.DisplayObject {
	return s.live.Sorted()
}

// LastOperations は直前の反映処理で適用した操作を返す
func (s *MapSession) LastOperations() []model.Operation {
	return s.lastOps
}

// Focus は現在の選択状態を返す
func (s *MapSession) Focus() model.FocusState {
	return s.focus.State()
}

// Draft は下書きピンを返す
func (s *MapSession) Draft() (model.DisplayObject, bool) {
	return s.draft.Draft()
}

// Viewport は最後に採用した表示領域を返す
func (s *MapSession) Viewport() (model.Viewport, bool) {
	return s.tracker.Current()
}

// Spots は現在のスポット一覧を返す
func (s *MapSession) Spots() []model.SpotRecord {
	return s.spots
}

func (s *MapSession) hasSpot(id string) bool {
	for _, spot := range s.spots {
		if spot.ID == id {
			return true
		}
	}
	return false
}

// recompute はクラスタリング→差分反映を1回実行する
func (s *MapSession) recompute(refreshIDs []string) []model.Operation {
	for _, id := range refreshIDs {
		s.pendingRefresh[id] = struct{}{}
	}

	desired := s.desiredObjects()

	var force map[string]struct{}
	if s.animating {
		// アニメーション中は再描画を保留し、停止後にまとめて反映する
		s.holdPendingFocus(desired)
	} else {
		force = s.pendingRefresh
		s.pendingRefresh = make(map[string]struct{})
	}

	s.live, s.lastOps = s.reconciler.Reconcile(s.live, desired, force)
	return s.lastOps
}

// holdPendingFocus は再描画保留中のピンの強調表示を表示中の状態に据え置く
func (s *MapSession) holdPendingFocus(desired []model.DisplayObject) {
	for i := range desired {
		if _, ok := s.pendingRefresh[desired[i].ID]; !ok {
			continue
		}
		if current, ok := s.live[desired[i].ID]; ok && current.Kind == desired[i].Kind {
			desired[i].Focused = current.Focused
		}
	}
}

// desiredObjects は現在の状態から表示すべきオブジェクトを組み立てる
func (s *MapSession) desiredObjects() []model.DisplayObject {
	var desired []model.DisplayObject
	s.clusters = make(map[string]model.Cluster)

	if viewport, ok := s.tracker.Current(); ok {
		focus := s.focus.State()
		result := s.clusterer.Cluster(s.spots, viewport, focus)
		desired = make([]model.DisplayObject, 0, len(result.Pins)+len(result.Clusters)+1)
		for _, pin := range result.Pins {
			desired = append(desired, pin.ToDisplayObject(pin.ID == focus.FocusedSpotID))
		}
		for _, c := range result.Clusters {
			desired = append(desired, c.ToDisplayObject())
			s.clusters[c.ID] = c
		}
	}

	// 下書きピンはクラスタリングの対象外
	if draft, ok := s.draft.Draft(); ok {
		desired = append(desired, draft)
	}
	return desired
}
