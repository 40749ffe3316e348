package model

import "slices"

// FocusState 選択中のスポットと展開中クラスタのメンバー
type FocusState struct {
	FocusedSpotID            string              `json:"focused_spot_id,omitempty"`
	ExpandedClusterMemberIDs map[string]struct{} `json:"-"`
}

// HasFocus スポットが選択されているか
func (f FocusState) HasFocus() bool {
	return f.FocusedSpotID != ""
}

// IsExempt クラスタリング対象外のスポットかどうか
func (f FocusState) IsExempt(id string) bool {
	if f.FocusedSpotID != "" && f.FocusedSpotID == id {
		return true
	}
	_, ok := f.ExpandedClusterMemberIDs[id]
	return ok
}

// ExpandedIDs 展開中のメンバーIDをソートして返す
func (f FocusState) ExpandedIDs() []string {
	ids := make([]string, 0, len(f.ExpandedClusterMemberIDs))
	for id := range f.ExpandedClusterMemberIDs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
