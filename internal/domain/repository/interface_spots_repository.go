package repository

import (
	"context"
	"errors"

	"SpotMap-App/internal/domain/model"
)

// ErrSpotNotFound は指定したIDのスポットが存在しない場合のエラー
var ErrSpotNotFound = errors.New("スポットが見つかりません")

// SpotsRepository はスポット一覧を取得する外部コンポーネント
type SpotsRepository interface {
	// FetchSpots はスポット一覧を取得する（queryが空なら全件、あれば名前で絞り込み）
	FetchSpots(ctx context.Context, query string) ([]model.Spot, error)
	GetByID(ctx context.Context, id string) (*model.Spot, error)
}
