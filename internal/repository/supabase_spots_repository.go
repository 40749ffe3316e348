package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"SpotMap-App/internal/domain/model"
	"SpotMap-App/internal/domain/repository"
	"SpotMap-App/internal/infrastructure/database"
)

const spotsTable = "spots"

type SupabaseSpotsRepository struct {
	client *database.SupabaseClient
	logger *zap.Logger
}

func NewSupabaseSpotsRepository(client *database.SupabaseClient, logger *zap.Logger) repository.SpotsRepository {
	return &SupabaseSpotsRepository{
		client: client,
		logger: logger,
	}
}

// FetchSpots スポット一覧を取得（queryがあれば名前の部分一致で絞り込み）
func (r *SupabaseSpotsRepository) FetchSpots(ctx context.Context, query string) ([]model.Spot, error) {
	// supabase-goはcontextを受け取らないため、呼び出し前にキャンセルを確認
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	builder := r.client.GetClient().From(spotsTable).Select("id,name,location,category,approved", "exact", false)
	if query != "" {
		builder = builder.Ilike("name", "%"+query+"%")
	}
	data, count, err := builder.Order("id", nil).Execute()
	if err != nil {
		return nil, fmt.Errorf("スポットデータの取得失敗: %w", err)
	}

	var spots []model.Spot
	if err := json.Unmarshal(data, &spots); err != nil {
		return nil, fmt.Errorf("スポットデータのJSONアンマーシャル失敗: %w", err)
	}

	r.logger.Debug("スポット取得完了", zap.String("query", query), zap.Int64("count", count))
	return spots, nil
}

func (r *SupabaseSpotsRepository) GetByID(ctx context.Context, id string) (*model.Spot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, _, err := r.client.GetClient().From(spotsTable).Select("id,name,location,category,approved", "exact", false).Eq("id", id).Execute()
	if err != nil {
		return nil, fmt.Errorf("スポットデータの取得失敗: %w", err)
	}

	var spots []model.Spot
	if err := json.Unmarshal(data, &spots); err != nil {
		return nil, fmt.Errorf("スポットデータのJSONアンマーシャル失敗: %w", err)
	}
	if len(spots) == 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrSpotNotFound, id)
	}

	return &spots[0], nil
}
