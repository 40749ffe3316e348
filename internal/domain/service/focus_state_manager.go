package service

import (
	"SpotMap-App/internal/domain/model"
)

// FocusTransition は選択スポットの変化（再描画が必要なID）
type FocusTransition struct {
	Previous string
	Current  string
}

// Changed は選択状態が変わったかどうか
func (t FocusTransition) Changed() bool {
	return t.Previous != t.Current
}

// RefreshIDs は再描画が必要なピンのID
func (t FocusTransition) RefreshIDs() []string {
	if !t.Changed() {
		return nil
	}
	var ids []string
	if t.Previous != "" {
		ids = append(ids, t.Previous)
	}
	if t.Current != "" {
		ids = append(ids, t.Current)
	}
	return ids
}

// FocusStateManager は選択中スポットと展開中クラスタの状態を管理する
type FocusStateManager struct {
	focusedSpotID string
	expanded      map[string]struct{}
}

// NewFocusStateManager は新しいFocusStateManagerインスタンスを作成
func NewFocusStateManager() *FocusStateManager {
	return &FocusStateManager{
		expanded: make(map[string]struct{}),
	}
}

// SetFocus はスポットを選択する。選択中のスポットを再選択した場合は選択解除になる
func (m *FocusStateManager) SetFocus(spotID string) FocusTransition {
	t := FocusTransition{Previous: m.focusedSpotID}
	if spotID != m.focusedSpotID {
		t.Current = spotID
	}
	m.focusedSpotID = t.Current
	return t
}

// ClearFocus は選択を解除する
func (m *FocusStateManager) ClearFocus() FocusTransition {
	t := FocusTransition{Previous: m.focusedSpotID}
	m.focusedSpotID = ""
	return t
}

// SetExpandedCluster は展開するクラスタのメンバーを設定する（以前の展開は置き換える）
func (m *FocusStateManager) SetExpandedCluster(memberIDs []string) {
	m.expanded = make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		m.expanded[id] = struct{}{}
	}
}

// ClearTransientSelection は選択と展開の両方を解除する
func (m *FocusStateManager) ClearTransientSelection() FocusTransition {
	m.expanded = make(map[string]struct{})
	return m.ClearFocus()
}

// Prune は最新のスポット一覧に存在しないIDを選択・展開状態から取り除く
// 何度実行しても結果は変わらない
func (m *FocusStateManager) Prune(liveSpotIDs map[string]struct{}) FocusTransition {
	for id := range m.expanded {
		if _, ok := liveSpotIDs[id]; !ok {
			delete(m.expanded, id)
		}
	}
	if m.focusedSpotID != "" {
		if _, ok := liveSpotIDs[m.focusedSpotID]; !ok {
			return m.ClearFocus()
		}
	}
	return FocusTransition{Previous: m.focusedSpotID, Current: m.focusedSpotID}
}

// State は現在の状態のコピーを返す
func (m *FocusStateManager) State() model.FocusState {
	expanded := make(map[string]struct{}, len(m.expanded))
	for id := range m.expanded {
		expanded[id] = struct{}{}
	}
	return model.FocusState{
		FocusedSpotID:            m.focusedSpotID,
		ExpandedClusterMemberIDs: expanded,
	}
}
