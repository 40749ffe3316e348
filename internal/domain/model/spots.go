package model

import "github.com/paulmach/orb"

// LatLng 緯度経度を表す基本的な型（地図描画などで使用）
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ToPoint LatLng を orb.Point（経度, 緯度の順）に変換
func (l LatLng) ToPoint() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// LatLngFromPoint orb.Point を LatLng に変換
func LatLngFromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// Spot APIから取得するスポット（投稿された場所）を表すモデル
type Spot struct {
	ID       string    `json:"id" db:"id"`             // ユニークなスポットID
	Name     string    `json:"name" db:"name"`         // スポット名
	Location *Geometry `json:"location" db:"location"` // 位置情報（NULLABLE）
	Category string    `json:"category" db:"category"` // カテゴリ（park / street）
	Approved bool      `json:"approved" db:"approved"` // 承認済みフラグ
}

// Coordinate 位置情報が存在すれば LatLng を返す
func (s *Spot) Coordinate() (LatLng, bool) {
	if s.Location != nil && len(s.Location.Coordinates) >= 2 {
		return LatLng{
			Lat: s.Location.Coordinates[1], // latitude
			Lng: s.Location.Coordinates[0], // longitude
		}, true
	}
	return LatLng{}, false
}

// Geometry PostGIS GEOMETRY型に対応する構造体
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [longitude, latitude]
}

// Location リクエストで受け取る位置情報
type Location struct {
	Latitude  float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" binding:"min=-180,max=180"`
}

// ToLatLng Location を LatLng に変換
func (l *Location) ToLatLng() LatLng {
	return LatLng{Lat: l.Latitude, Lng: l.Longitude}
}

// ToGeometry Location を PostGIS GEOMETRY 型に変換
func (l *Location) ToGeometry() *Geometry {
	return &Geometry{
		Type:        "Point",
		Coordinates: []float64{l.Longitude, l.Latitude},
	}
}

// SpotRecord 地図描画に使う正規化済みのスポット
// 位置情報を持つスポットだけがこの型になる
type SpotRecord struct {
	ID         string   `json:"id"`
	Coordinate LatLng   `json:"coordinate"`
	Category   Category `json:"category"`
	Approved   bool     `json:"approved"`
}
