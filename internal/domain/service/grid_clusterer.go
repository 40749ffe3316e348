package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"SpotMap-App/internal/domain/model"
)

// ClusterResult はクラスタリング結果（単独ピンとクラスタ）
type ClusterResult struct {
	Pins     []model.DisplayPin
	Clusters []model.Cluster
}

// GridClusterer は表示領域に応じたグリッドでスポットをまとめる
type GridClusterer struct {
	tracker *RegionTracker
}

// NewGridClusterer は新しいGridClustererインスタンスを作成
func NewGridClusterer(tracker *RegionTracker) *GridClusterer {
	return &GridClusterer{
		tracker: tracker,
	}
}

// gridKey はカテゴリ付きのグリッドセル座標
type gridKey struct {
	category model.Category
	x, y     int64
}

type gridMember struct {
	spot  model.SpotRecord
	point orb.Point // メルカトル座標
}

// Cluster はスポットをピンとクラスタに分割する
// 同じ入力に対しては常に同じ結果を返す
func (c *GridClusterer) Cluster(spots []model.SpotRecord, viewport model.Viewport, focus model.FocusState) ClusterResult {
	var result ClusterResult

	// Step 1: 選択中・展開中のスポットはクラスタリング対象外
	buckets := make(map[gridKey][]gridMember)
	cellSize := c.cellSizeInProjectionUnits(viewport)
	for _, spot := range spots {
		if focus.IsExempt(spot.ID) {
			result.Pins = append(result.Pins, pinFromRecord(spot))
			continue
		}

		// Step 2: メルカトル座標に投影してグリッドに振り分け
		p := project.WGS84.ToMercator(spot.Coordinate.ToPoint())
		key := gridKey{
			category: spot.Category,
			x:        int64(math.Floor(p.X() / cellSize)),
			y:        int64(math.Floor(p.Y() / cellSize)),
		}
		buckets[key] = append(buckets[key], gridMember{spot: spot, point: p})
	}

	// Step 3: 1件のセルはピン、2件以上はクラスタ
	for key, members := range buckets {
		if len(members) == 1 {
			result.Pins = append(result.Pins, pinFromRecord(members[0].spot))
			continue
		}
		result.Clusters = append(result.Clusters, buildCluster(key, members))
	}

	sort.Slice(result.Pins, func(i, j int) bool {
		return result.Pins[i].ID < result.Pins[j].ID
	})
	sort.Slice(result.Clusters, func(i, j int) bool {
		return result.Clusters[i].ID < result.Clusters[j].ID
	})
	return result
}

// cellSizeInProjectionUnits はセルサイズ（m）をメルカトル座標の単位に変換
func (c *GridClusterer) cellSizeInProjectionUnits(viewport model.Viewport) float64 {
	return c.tracker.GridCellSizeMeters(viewport) / metersPerProjectionUnit(viewport.CenterLat)
}

// metersPerProjectionUnit はWebメルカトル座標1単位あたりの実距離（m）
func metersPerProjectionUnit(lat float64) float64 {
	m := math.Cos(lat * math.Pi / 180)
	if m < 1e-6 {
		// 極付近で0除算にならないように下限を設ける
		m = 1e-6
	}
	return m
}

// ClusterID はカテゴリとセル座標からクラスタIDを生成する
func ClusterID(category model.Category, x, y int64) string {
	return fmt.Sprintf("%s%s:%d:%d", model.ClusterIDPrefix, category, x, y)
}

// buildCluster はセル内のメンバーからクラスタを作成
func buildCluster(key gridKey, members []gridMember) model.Cluster {
	// メンバー順に依存しないようにIDでソートしてから集計
	sort.Slice(members, func(i, j int) bool {
		return members[i].spot.ID < members[j].spot.ID
	})

	ids := make([]string, len(members))
	var sumX, sumY float64
	bound := members[0].spot.Coordinate.ToPoint().Bound()
	for i, m := range members {
		ids[i] = m.spot.ID
		sumX += m.point.X()
		sumY += m.point.Y()
		bound = bound.Extend(m.spot.Coordinate.ToPoint())
	}

	n := float64(len(members))
	centroid := project.Mercator.ToWGS84(orb.Point{sumX / n, sumY / n})

	return model.Cluster{
		ID:        ClusterID(key.category, key.x, key.y),
		Centroid:  model.LatLngFromPoint(centroid),
		MemberIDs: ids,
		Bounds:    bound,
		Category:  key.category,
	}
}

func pinFromRecord(spot model.SpotRecord) model.DisplayPin {
	return model.DisplayPin{
		ID:         spot.ID,
		Coordinate: spot.Coordinate,
		Category:   spot.Category,
		Approved:   spot.Approved,
	}
}
