package helper

import (
	"SpotMap-App/internal/domain/model"

	"github.com/paulmach/orb/geo"
)

// HaversineDistance は2地点間の距離を計算する (m)
func HaversineDistance(p1, p2 model.LatLng) float64 {
	return geo.DistanceHaversine(p1.ToPoint(), p2.ToPoint())
}

// ToSpotRecords はAPIから取得したスポットを地図用のSpotRecordに正規化する
// 位置情報のないスポットと未知のカテゴリは除外する（エラーにはしない）
// IDが重複するスポットは最初の1件だけ残す
func ToSpotRecords(spots []model.Spot) []model.SpotRecord {
	records := make([]model.SpotRecord, 0, len(spots))
	for i := range spots {
		coord, ok := spots[i].Coordinate()
		if !ok {
			continue
		}
		category, ok := model.ParseCategory(spots[i].Category)
		if !ok {
			continue
		}
		records = append(records, model.SpotRecord{
			ID:         spots[i].ID,
			Coordinate: coord,
			Category:   category,
			Approved:   spots[i].Approved,
		})
	}
	return UniqueSpotRecords(records)
}

// UniqueSpotRecords はIDが重複するスポットを先勝ちで1件にまとめる
// 空のIDと予約済みIDのスポットも除外する
func UniqueSpotRecords(records []model.SpotRecord) []model.SpotRecord {
	seen := make(map[string]struct{}, len(records))
	unique := make([]model.SpotRecord, 0, len(records))
	for _, r := range records {
		if r.ID == "" || model.IsReservedDisplayID(r.ID) {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		unique = append(unique, r)
	}
	return unique
}

// SpotIDSet はスポットIDの集合を作成する
func SpotIDSet(records []model.SpotRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[r.ID] = struct{}{}
	}
	return set
}

// FindNearest は基準座標に最も近いスポットを見つける
func FindNearest(origin model.LatLng, records []model.SpotRecord) (model.SpotRecord, bool) {
	if len(records) == 0 {
		return model.SpotRecord{}, false
	}
	nearest := records[0]
	best := HaversineDistance(origin, nearest.Coordinate)
	for _, r := range records[1:] {
		if d := HaversineDistance(origin, r.Coordinate); d < best {
			nearest, best = r, d
		}
	}
	return nearest, true
}
