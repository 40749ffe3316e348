package model

import (
	"slices"

	"github.com/paulmach/orb"
)

// DisplayKind 地図上の表示オブジェクトの種類
type DisplayKind string

const (
	KindPin     DisplayKind = "pin"
	KindCluster DisplayKind = "cluster"
	KindDraft   DisplayKind = "draft"
)

// DisplayObject 地図に表示するピン・クラスタ・下書きピンの共通表現
// Kind によって意味のあるフィールドが異なる
type DisplayObject struct {
	Kind       DisplayKind `json:"kind"`
	ID         string      `json:"id"`
	Coordinate LatLng      `json:"coordinate"`
	Category   Category    `json:"category,omitempty"`
	Approved   bool        `json:"approved"`
	Focused    bool        `json:"focused"`              // ピンのみ
	MemberIDs  []string    `json:"member_ids,omitempty"` // クラスタのみ
	Bounds     orb.Bound   `json:"-"`                    // クラスタのみ（ズーム用）
}

// Equal 2つの表示オブジェクトが同じ描画内容かどうか
func (o DisplayObject) Equal(other DisplayObject) bool {
	return o.Kind == other.Kind &&
		o.ID == other.ID &&
		o.Coordinate == other.Coordinate &&
		o.Category == other.Category &&
		o.Approved == other.Approved &&
		o.Focused == other.Focused &&
		slices.Equal(o.MemberIDs, other.MemberIDs) &&
		o.Bounds.Equal(other.Bounds)
}

// DisplayPin 単一スポット（または下書き）のピン
type DisplayPin struct {
	ID         string   `json:"id"`
	Coordinate LatLng   `json:"coordinate"`
	Category   Category `json:"category"`
	Approved   bool     `json:"approved"`
	IsDraft    bool     `json:"is_draft"`
}

// Cluster 近接する複数スポットをまとめた表示
type Cluster struct {
	ID        string    `json:"id"`
	Centroid  LatLng    `json:"centroid"`
	MemberIDs []string  `json:"member_ids"`
	Bounds    orb.Bound `json:"-"`
	Category  Category  `json:"category"`
}

// ToDisplayObject ピンを表示オブジェクトに変換
func (p DisplayPin) ToDisplayObject(focused bool) DisplayObject {
	kind := KindPin
	if p.IsDraft {
		kind = KindDraft
	}
	return DisplayObject{
		Kind:       kind,
		ID:         p.ID,
		Coordinate: p.Coordinate,
		Category:   p.Category,
		Approved:   p.Approved,
		Focused:    focused,
	}
}

// ToDisplayObject クラスタを表示オブジェクトに変換
func (c Cluster) ToDisplayObject() DisplayObject {
	return DisplayObject{
		Kind:       KindCluster,
		ID:         c.ID,
		Coordinate: c.Centroid,
		Category:   c.Category,
		MemberIDs:  c.MemberIDs,
		Bounds:     c.Bounds,
	}
}

// DisplaySet 現在地図に表示しているオブジェクト（IDで管理）
type DisplaySet map[string]DisplayObject

// Sorted ID順に並べた表示オブジェクト一覧
func (s DisplaySet) Sorted() []DisplayObject {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	result := make([]DisplayObject, 0, len(ids))
	for _, id := range ids {
		result = append(result, s[id])
	}
	return result
}

// OperationType 地図に適用する操作の種類
type OperationType string

const (
	OpRemove OperationType = "remove"
	OpAdd    OperationType = "add"
	OpUpdate OperationType = "update"
)

// Operation 1回の反映処理で地図に適用した操作
type Operation struct {
	Type   OperationType `json:"type"`
	Object DisplayObject `json:"object"`
}
