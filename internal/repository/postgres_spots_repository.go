package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"SpotMap-App/internal/domain/model"
	"SpotMap-App/internal/domain/repository"
	"SpotMap-App/internal/infrastructure/database"
)

type PostgresSpotsRepository struct {
	client *database.PostgreSQLClient
	logger *zap.Logger
}

func NewPostgresSpotsRepository(client *database.PostgreSQLClient, logger *zap.Logger) repository.SpotsRepository {
	return &PostgresSpotsRepository{
		client: client,
		logger: logger,
	}
}

// SpotResult SELECT結果を受け取るための構造体
type SpotResult struct {
	ID       string
	Name     string
	Location sql.NullString // ST_AsGeoJSON の結果（位置情報なしはNULL）
	Category string
	Approved bool
}

// ToSpot SpotResultをmodel.Spotに変換
func (sr *SpotResult) ToSpot() (*model.Spot, error) {
	spot := sr.toSpotWithoutLocation()

	if sr.Location.Valid {
		location, err := GeoJSONToGeometry(sr.Location.String)
		if err != nil {
			return nil, fmt.Errorf("スポット %s の位置情報: %w", sr.ID, err)
		}
		spot.Location = location
	}

	return spot, nil
}

// toSpotWithoutLocation は位置情報を除いた項目だけでmodel.Spotを作成
func (sr *SpotResult) toSpotWithoutLocation() *model.Spot {
	return &model.Spot{
		ID:       sr.ID,
		Name:     sr.Name,
		Category: sr.Category,
		Approved: sr.Approved,
	}
}

const selectSpotsColumns = `id, name, ST_AsGeoJSON(location), category, approved`

func (r *PostgresSpotsRepository) FetchSpots(ctx context.Context, query string) ([]model.Spot, error) {
	sqlQuery := `
		SELECT ` + selectSpotsColumns + `
		FROM spots
		WHERE $1::text = '' OR name ILIKE '%' || $1::text || '%'
		ORDER BY id
	`

	rows, err := r.client.DB.QueryContext(ctx, sqlQuery, query)
	if err != nil {
		return nil, fmt.Errorf("スポットデータの取得失敗: %w", err)
	}
	defer rows.Close()

	var spots []model.Spot
	for rows.Next() {
		var result SpotResult
		if err := rows.Scan(&result.ID, &result.Name, &result.Location, &result.Category, &result.Approved); err != nil {
			return nil, fmt.Errorf("スポットデータスキャンエラー: %w", err)
		}

		spot, err := result.ToSpot()
		if err != nil {
			// 位置情報が壊れているスポットは位置なしとして扱う
			r.logger.Warn("位置情報の変換に失敗", zap.String("spot_id", result.ID), zap.Error(err))
			spot = result.toSpotWithoutLocation()
		}
		spots = append(spots, *spot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("スポットデータ読み込みエラー: %w", err)
	}

	return spots, nil
}

func (r *PostgresSpotsRepository) GetByID(ctx context.Context, id string) (*model.Spot, error) {
	sqlQuery := `SELECT ` + selectSpotsColumns + ` FROM spots WHERE id = $1`

	var result SpotResult
	err := r.client.DB.QueryRowContext(ctx, sqlQuery, id).
		Scan(&result.ID, &result.Name, &result.Location, &result.Category, &result.Approved)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repository.ErrSpotNotFound, id)
		}
		return nil, fmt.Errorf("スポットデータの取得失敗: %w", err)
	}

	return result.ToSpot()
}
