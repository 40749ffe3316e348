package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"SpotMap-App/internal/domain/model"
	"SpotMap-App/internal/domain/service"
	"SpotMap-App/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSpotsRepository はテスト用のスポット取得元
// respond が設定されていれば呼び出し回数ごとに結果を返す
type fakeSpotsRepository struct {
	mu      sync.Mutex
	queries []string
	respond func(ctx context.Context, call int) ([]model.Spot, error)
}

func (r *fakeSpotsRepository) FetchSpots(ctx context.Context, query string) ([]model.Spot, error) {
	r.mu.Lock()
	r.queries = append(r.queries, query)
	call := len(r.queries)
	respond := r.respond
	r.mu.Unlock()
	return respond(ctx, call)
}

func (r *fakeSpotsRepository) GetByID(ctx context.Context, id string) (*model.Spot, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeSpotsRepository) Queries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...)
}

func spotAt(id string, lat, lng float64, category string) model.Spot {
	loc := model.Location{Latitude: lat, Longitude: lng}
	return model.Spot{ID: id, Name: id, Location: loc.ToGeometry(), Category: category, Approved: true}
}

func staticSpots(spots ...model.Spot) func(context.Context, int) ([]model.Spot, error) {
	return func(context.Context, int) ([]model.Spot, error) {
		return spots, nil
	}
}

type testEngine struct {
	MapEngineUseCase
	metrics *observability.MapMetrics
	stop    func()
}

func startEngine(t *testing.T, repo *fakeSpotsRepository, debounce time.Duration) *testEngine {
	t.Helper()
	metrics, err := observability.NewMapMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	engine := NewMapEngineUseCase(
		MapEngineConfig{SearchDebounce: debounce},
		repo, nil, nil, metrics, zaptest.NewLogger(t),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = engine.Run(ctx)
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
	t.Cleanup(stop)
	return &testEngine{MapEngineUseCase: engine, metrics: metrics, stop: stop}
}

func waitSnapshot(t *testing.T, engine MapEngineUseCase, cond func(*model.MapSnapshot) bool) *model.MapSnapshot {
	t.Helper()
	var last *model.MapSnapshot
	require.Eventually(t, func() bool {
		snap, err := engine.Snapshot(context.Background())
		if err != nil {
			return false
		}
		last = snap
		return cond(snap)
	}, 2*time.Second, 5*time.Millisecond)
	return last
}

func TestMapEngineSelectionFlow(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSpotsRepository{respond: staticSpots(
		spotAt("A", 35.0, 139.0, "park"),
		spotAt("B", 35.5, 139.5, "street"),
		spotAt("unlocated", 0, 0, "unknown"),
	)}
	engine := startEngine(t, repo, 10*time.Millisecond)

	require.NoError(t, engine.Refresh(ctx))
	waitSnapshot(t, engine, func(s *model.MapSnapshot) bool { return s.SpotCount == 2 && !s.Fetching })

	require.NoError(t, engine.UpdateViewport(ctx, model.Viewport{CenterLat: 35.2, CenterLng: 139.2, SpanLat: 0.01, SpanLng: 0.01}, false))
	snap, err := engine.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Objects, 2)
	require.NotNil(t, snap.Viewport)

	require.NoError(t, engine.SelectSpot(ctx, "A"))
	snap, err = engine.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A", snap.FocusedSpotID)

	require.NoError(t, engine.SetDraft(ctx, model.LatLng{Lat: 35.1, Lng: 139.1}))
	snap, err = engine.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.FocusedSpotID)
	require.NotNil(t, snap.Draft)
	assert.Equal(t, model.DraftPinID, snap.Draft.ID)

	require.NoError(t, engine.ClearDraft(ctx))
	snap, err = engine.Snapshot(ctx)
	require.NoError(t, err)
	assert.Nil(t, snap.Draft)

	nearest, err := engine.NearestSpot(ctx, model.LatLng{Lat: 35.49, Lng: 139.49})
	require.NoError(t, err)
	assert.Equal(t, "B", nearest.ID)

	_, err = engine.SelectCluster(ctx, "cluster:park:0:0")
	assert.ErrorIs(t, err, service.ErrUnknownCluster)

	err = engine.UpdateViewport(ctx, model.Viewport{CenterLat: 35, CenterLng: 139}, false)
	assert.ErrorIs(t, err, ErrInvalidViewport)

	// 同じ表示領域はスキップされる
	require.NoError(t, engine.UpdateViewport(ctx, *snap.Viewport, false))
	assert.Equal(t, 1.0, testutil.ToFloat64(engine.metrics.SkippedRegions))
}

func TestMapEngineClusterExpansion(t *testing.T) {
	ctx := context.Background()
	var spots []model.Spot
	for i, id := range []string{"s1", "s2", "s3"} {
		spots = append(spots, spotAt(id, 35.0+float64(i)*0.0001, 139.0, "park"))
	}
	repo := &fakeSpotsRepository{respond: staticSpots(spots...)}
	engine := startEngine(t, repo, 10*time.Millisecond)

	require.NoError(t, engine.UpdateViewport(ctx, model.Viewport{CenterLat: 35, CenterLng: 139, SpanLat: 1, SpanLng: 1}, false))
	require.NoError(t, engine.Refresh(ctx))
	snap := waitSnapshot(t, engine, func(s *model.MapSnapshot) bool { return len(s.Objects) == 1 })
	require.Equal(t, model.KindCluster, snap.Objects[0].Kind)

	expansion, err := engine.SelectCluster(ctx, snap.Objects[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3"}, expansion.MemberIDs)
	assert.InDelta(t, 35.0001, expansion.ZoomTo.CenterLat, 1e-6)
	assert.Greater(t, expansion.ZoomTo.SpanLat, 0.0002)

	snap, err = engine.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Objects, 3)
	assert.Equal(t, []string{"s1", "s2", "s3"}, snap.ExpandedMemberIDs)
}

func TestMapEngineDropsStaleFetch(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	repo := &fakeSpotsRepository{respond: func(_ context.Context, call int) ([]model.Spot, error) {
		if call == 1 {
			// 1回目はキャンセルを無視して遅れて返す
			<-release
			return []model.Spot{spotAt("old", 35.0, 139.0, "park")}, nil
		}
		return []model.Spot{
			spotAt("new-1", 35.0, 139.0, "park"),
			spotAt("new-2", 35.5, 139.5, "park"),
		}, nil
	}}
	engine := startEngine(t, repo, 10*time.Millisecond)

	require.NoError(t, engine.Refresh(ctx))
	require.Eventually(t, func() bool { return len(repo.Queries()) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, engine.Refresh(ctx))
	waitSnapshot(t, engine, func(s *model.MapSnapshot) bool { return s.SpotCount == 2 && !s.Fetching })

	close(release)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(engine.metrics.StaleFetches) == 1
	}, time.Second, time.Millisecond)

	snap, err := engine.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.SpotCount, "古い結果で上書きしない")
}

func TestMapEngineFetchErrorKeepsLastState(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSpotsRepository{respond: func(_ context.Context, call int) ([]model.Spot, error) {
		if call == 1 {
			return []model.Spot{spotAt("A", 35.0, 139.0, "park")}, nil
		}
		return nil, errors.New("network down")
	}}
	engine := startEngine(t, repo, 10*time.Millisecond)

	require.NoError(t, engine.Refresh(ctx))
	waitSnapshot(t, engine, func(s *model.MapSnapshot) bool { return s.SpotCount == 1 && !s.Fetching })

	require.NoError(t, engine.Refresh(ctx))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(engine.metrics.FetchErrors) == 1
	}, time.Second, time.Millisecond)

	snap, err := engine.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.SpotCount)
	assert.False(t, snap.Fetching)
}

func TestMapEngineSearchDebounce(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSpotsRepository{respond: staticSpots(spotAt("A", 35.0, 139.0, "park"))}
	engine := startEngine(t, repo, 50*time.Millisecond)

	for _, q := range []string{"公", "公園", "公園A"} {
		require.NoError(t, engine.Search(ctx, q))
	}

	require.Eventually(t, func() bool { return len(repo.Queries()) > 0 }, time.Second, time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"公園A"}, repo.Queries())
}

func TestMapEngineRefreshKeepsSearchQuery(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSpotsRepository{respond: staticSpots(spotAt("A", 35.0, 139.0, "park"))}
	engine := startEngine(t, repo, 10*time.Millisecond)

	require.NoError(t, engine.Refresh(ctx))
	require.Eventually(t, func() bool { return len(repo.Queries()) == 1 }, time.Second, time.Millisecond)

	require.NoError(t, engine.Search(ctx, "公園"))
	require.Eventually(t, func() bool { return len(repo.Queries()) == 2 }, time.Second, time.Millisecond)

	require.NoError(t, engine.Refresh(ctx))
	require.Eventually(t, func() bool { return len(repo.Queries()) == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"", "公園", "公園"}, repo.Queries())
}

func TestMapEngineStopped(t *testing.T) {
	repo := &fakeSpotsRepository{respond: staticSpots()}
	engine := startEngine(t, repo, 10*time.Millisecond)
	engine.stop()

	_, err := engine.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrEngineStopped)
	assert.ErrorIs(t, engine.SelectSpot(context.Background(), "A"), ErrEngineStopped)
}

func TestMapEngineNearestWithoutSpots(t *testing.T) {
	repo := &fakeSpotsRepository{respond: staticSpots()}
	engine := startEngine(t, repo, 10*time.Millisecond)

	_, err := engine.NearestSpot(context.Background(), model.LatLng{Lat: 35, Lng: 139})
	assert.ErrorIs(t, err, ErrNoSpots)
}
