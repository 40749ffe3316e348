package repository

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"SpotMap-App/internal/domain/model"
)

// GeoJSONToGeometry PostGIS の ST_AsGeoJSON 結果を model.Geometry に変換
func GeoJSONToGeometry(raw string) (*model.Geometry, error) {
	g, err := geojson.UnmarshalGeometry([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("GeoJSONパースエラー: %w", err)
	}

	// orb.Point として解析
	point, ok := g.Geometry().(orb.Point)
	if !ok {
		return nil, fmt.Errorf("POINT以外のジオメトリです: %s", g.Type)
	}

	return &model.Geometry{
		Type:        "Point",
		Coordinates: []float64{point.Lon(), point.Lat()},
	}, nil
}
