package model

import "strings"

// Category スポットのカテゴリ
type Category string

// CategoryConstants はアプリケーションで使用するカテゴリの定数
const (
	CategoryPark   Category = "park"
	CategoryStreet Category = "street"
)

// CategoryNameMap はカテゴリIDから日本語名へのマッピング
var CategoryNameMap = map[Category]string{
	CategoryPark:   "公園",
	CategoryStreet: "ストリート",
}

// ParseCategory は文字列からカテゴリを取得する
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryPark:
		return CategoryPark, true
	case CategoryStreet:
		return CategoryStreet, true
	}
	return "", false
}

// GetCategoryJapaneseName はカテゴリIDから日本語名を取得する
func GetCategoryJapaneseName(c Category) string {
	if name, ok := CategoryNameMap[c]; ok {
		return name
	}
	return string(c)
}

// DraftPinID は下書きピンの固定ID
const DraftPinID = "draft"

// ClusterIDPrefix はクラスタIDの接頭辞
const ClusterIDPrefix = "cluster:"

// IsReservedDisplayID は下書きピンやクラスタと衝突するIDかどうか判定する
// スポットIDとしては使えない
func IsReservedDisplayID(id string) bool {
	return id == DraftPinID || strings.HasPrefix(id, ClusterIDPrefix)
}

// DefaultRegionEpsilon は「ほぼ同じ表示領域」とみなす差分合計の閾値（度）
const DefaultRegionEpsilon = 0.0001

// GridStep 表示範囲の緯度幅に対するグリッドセルサイズ
type GridStep struct {
	MaxSpanLat float64 `yaml:"max_span_lat" json:"max_span_lat"` // この緯度幅未満なら適用
	CellMeters float64 `yaml:"cell_meters" json:"cell_meters"`   // セルサイズ（メートル）
}

// DefaultGridSteps はズームに応じたセルサイズの段階
var DefaultGridSteps = []GridStep{
	{MaxSpanLat: 0.05, CellMeters: 500},
	{MaxSpanLat: 0.5, CellMeters: 5000},
	{MaxSpanLat: 2.0, CellMeters: 10000},
	{MaxSpanLat: 8.0, CellMeters: 100000},
}

// DefaultWideCellMeters はどの段階にも当てはまらない広域表示のセルサイズ
const DefaultWideCellMeters = 300000
