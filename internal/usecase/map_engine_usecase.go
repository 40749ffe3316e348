package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"SpotMap-App/internal/domain/helper"
	"SpotMap-App/internal/domain/model"
	"SpotMap-App/internal/domain/repository"
	"SpotMap-App/internal/domain/service"
	"SpotMap-App/internal/observability"
)

var (
	// ErrEngineStopped はエンジン停止後に操作した場合のエラー
	ErrEngineStopped = errors.New("地図エンジンは停止しています")
	// ErrInvalidViewport は表示領域が不正な場合のエラー
	ErrInvalidViewport = errors.New("表示領域が不正です")
	// ErrNoSpots はスポットが1件も読み込まれていない場合のエラー
	ErrNoSpots = errors.New("スポットが見つかりません")
)

// zoomPaddingDegrees はクラスタへズームするときの余白（約111m）
const zoomPaddingDegrees = 0.001

// MapEngineUseCase は地図表示に関する全ての入力イベントを1つのゴルーチンで順番に処理する
type MapEngineUseCase interface {
	// Run はイベントループを開始する。ctxがキャンセルされるまで戻らない
	Run(ctx context.Context) error

	UpdateViewport(ctx context.Context, viewport model.Viewport, animating bool) error
	RegionWillChange(ctx context.Context) error
	SelectSpot(ctx context.Context, spotID string) error
	SelectCluster(ctx context.Context, clusterID string) (*model.ClusterExpansion, error)
	Deselect(ctx context.Context) error
	SetDraft(ctx context.Context, coordinate model.LatLng) error
	ClearDraft(ctx context.Context) error

	// Refresh はスポット一覧を現在の検索文字列で即時に再取得する
	Refresh(ctx context.Context) error
	// Search は検索文字列の変更を受け取り、一定時間入力がなければ再取得する
	Search(ctx context.Context, query string) error

	Snapshot(ctx context.Context) (*model.MapSnapshot, error)
	NearestSpot(ctx context.Context, location model.LatLng) (*model.SpotRecord, error)
}

// MapEngineConfig はエンジンの設定
type MapEngineConfig struct {
	Session        service.MapSessionConfig
	SearchDebounce time.Duration
}

// イベント定義
type (
	viewportChanged struct {
		viewport  model.Viewport
		animating bool
	}
	regionWillChange struct{}
	spotSelected     struct{ spotID string }
	clusterSelected  struct{ clusterID string }
	selectionCleared struct{}
	draftPlaced      struct{ coordinate model.LatLng }
	draftCleared     struct{}
	refreshRequested struct{}
	fetchRequested   struct{ query string }
	searchChanged    struct{ query string }
	fetchCompleted   struct {
		token string
		spots []model.Spot
		err   error
	}
	snapshotRequested struct{}
	nearestRequested  struct{ location model.LatLng }
)

type result struct {
	snapshot  *model.MapSnapshot
	expansion *model.ClusterExpansion
	spot      *model.SpotRecord
	err       error
}

type request struct {
	event any
	reply chan result
}

// mapEngineUseCaseImpl はMapEngineUseCaseの実装
type mapEngineUseCaseImpl struct {
	session  *service.MapSession
	spotRepo repository.SpotsRepository
	metrics  *observability.MapMetrics
	logger   *zap.Logger
	debounce time.Duration

	requests chan request
	stopped  chan struct{}
	wg       sync.WaitGroup

	// 以下はイベントループのゴルーチンからのみ触る
	query         string
	latestToken   string
	cancelFetch   context.CancelFunc
	debounceTimer *time.Timer
}

// NewMapEngineUseCase は新しいMapEngineUseCaseインスタンスを作成
func NewMapEngineUseCase(
	cfg MapEngineConfig,
	spotRepo repository.SpotsRepository,
	surface service.AnnotationSurface,
	listener service.MapListener,
	metrics *observability.MapMetrics,
	logger *zap.Logger,
) MapEngineUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &mapEngineUseCaseImpl{
		spotRepo: spotRepo,
		metrics:  metrics,
		logger:   logger,
		debounce: cfg.SearchDebounce,
		requests: make(chan request),
		stopped:  make(chan struct{}),
	}
	e.session = service.NewMapSession(cfg.Session, surface, &loggingListener{next: listener, logger: logger})
	return e
}

// Run はイベントループを開始する
func (e *mapEngineUseCaseImpl) Run(ctx context.Context) error {
	e.logger.Info("地図エンジン開始")
	defer func() {
		if e.debounceTimer != nil {
			e.debounceTimer.Stop()
		}
		if e.cancelFetch != nil {
			e.cancelFetch()
		}
		close(e.stopped)
		e.wg.Wait()
		e.logger.Info("地図エンジン停止")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-e.requests:
			res := e.handle(ctx, req.event)
			if req.reply != nil {
				req.reply <- res
			}
		}
	}
}

func (e *mapEngineUseCaseImpl) UpdateViewport(ctx context.Context, viewport model.Viewport, animating bool) error {
	if !viewport.IsValid() {
		return fmt.Errorf("%w: %+v", ErrInvalidViewport, viewport)
	}
	return e.submit(ctx, viewportChanged{viewport: viewport, animating: animating}).err
}

func (e *mapEngineUseCaseImpl) RegionWillChange(ctx context.Context) error {
	return e.submit(ctx, regionWillChange{}).err
}

func (e *mapEngineUseCaseImpl) SelectSpot(ctx context.Context, spotID string) error {
	return e.submit(ctx, spotSelected{spotID: spotID}).err
}

func (e *mapEngineUseCaseImpl) SelectCluster(ctx context.Context, clusterID string) (*model.ClusterExpansion, error) {
	res := e.submit(ctx, clusterSelected{clusterID: clusterID})
	return res.expansion, res.err
}

func (e *mapEngineUseCaseImpl) Deselect(ctx context.Context) error {
	return e.submit(ctx, selectionCleared{}).err
}

func (e *mapEngineUseCaseImpl) SetDraft(ctx context.Context, coordinate model.LatLng) error {
	return e.submit(ctx, draftPlaced{coordinate: coordinate}).err
}

func (e *mapEngineUseCaseImpl) ClearDraft(ctx context.Context) error {
	return e.submit(ctx, draftCleared{}).err
}

func (e *mapEngineUseCaseImpl) Refresh(ctx context.Context) error {
	return e.submit(ctx, refreshRequested{}).err
}

func (e *mapEngineUseCaseImpl) Search(ctx context.Context, query string) error {
	return e.submit(ctx, searchChanged{query: query}).err
}

func (e *mapEngineUseCaseImpl) Snapshot(ctx context.Context) (*model.MapSnapshot, error) {
	res := e.submit(ctx, snapshotRequested{})
	return res.snapshot, res.err
}

func (e *mapEngineUseCaseImpl) NearestSpot(ctx context.Context, location model.LatLng) (*model.SpotRecord, error) {
	res := e.submit(ctx, nearestRequested{location: location})
	return res.spot, res.err
}

// submit はイベントをループに渡し、処理結果を待つ
func (e *mapEngineUseCaseImpl) submit(ctx context.Context, ev any) result {
	reply := make(chan result, 1)
	select {
	case e.requests <- request{event: ev, reply: reply}:
	case <-ctx.Done():
		return result{err: ctx.Err()}
	case <-e.stopped:
		return result{err: ErrEngineStopped}
	}

	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return result{err: ctx.Err()}
	case <-e.stopped:
		return result{err: ErrEngineStopped}
	}
}

// deliver は内部のゴルーチン（取得処理・デバウンスタイマー）からイベントを渡す
func (e *mapEngineUseCaseImpl) deliver(ev any) {
	select {
	case e.requests <- request{event: ev}:
	case <-e.stopped:
	}
}

// handle はイベントを1件処理する（イベントループのゴルーチンでのみ実行）
func (e *mapEngineUseCaseImpl) handle(ctx context.Context, ev any) result {
	switch ev := ev.(type) {
	case viewportChanged:
		ops, reclustered := e.session.ApplyViewport(ev.viewport, ev.animating)
		if !reclustered {
			e.metrics.RegionSkipped()
			return result{}
		}
		e.observe(ops)

	case regionWillChange:
		e.session.RegionWillChange()

	case spotSelected:
		e.observe(e.session.SelectSpot(ev.spotID))

	case clusterSelected:
		cluster, ops, err := e.session.SelectCluster(ev.clusterID)
		if err != nil {
			return result{err: err}
		}
		e.observe(ops)
		return result{expansion: &model.ClusterExpansion{
			ClusterID: cluster.ID,
			MemberIDs: cluster.MemberIDs,
			ZoomTo:    model.ViewportFromBound(cluster.Bounds.Pad(zoomPaddingDegrees)),
		}}

	case selectionCleared:
		e.observe(e.session.Deselect())

	case draftPlaced:
		e.observe(e.session.SetDraft(ev.coordinate))

	case draftCleared:
		e.observe(e.session.ClearDraft())

	case searchChanged:
		e.scheduleSearch(ev.query)

	case refreshRequested:
		e.startFetch(ctx, e.query)

	case fetchRequested:
		e.startFetch(ctx, ev.query)

	case fetchCompleted:
		e.applyFetch(ev)

	case snapshotRequested:
		return result{snapshot: e.snapshot()}

	case nearestRequested:
		spot, ok := helper.FindNearest(ev.location, e.session.Spots())
		if !ok {
			return result{err: ErrNoSpots}
		}
		return result{spot: &spot}

	default:
		return result{err: fmt.Errorf("未知のイベント: %T", ev)}
	}
	return result{}
}

// scheduleSearch は検索文字列の変更をデバウンスしてから取得を開始する
func (e *mapEngineUseCaseImpl) scheduleSearch(query string) {
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
	}
	e.debounceTimer = time.AfterFunc(e.debounce, func() {
		e.deliver(fetchRequested{query: query})
	})
}

// startFetch は新しい取得を開始する。実行中の古い取得はキャンセルする
func (e *mapEngineUseCaseImpl) startFetch(ctx context.Context, query string) {
	if e.cancelFetch != nil {
		e.cancelFetch()
	}
	token := uuid.NewString()
	fetchCtx, cancel := context.WithCancel(ctx)
	e.latestToken = token
	e.cancelFetch = cancel
	e.query = query

	e.logger.Debug("スポット取得開始", zap.String("token", token), zap.String("query", query))

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		spots, err := e.spotRepo.FetchSpots(fetchCtx, query)
		e.deliver(fetchCompleted{token: token, spots: spots, err: err})
	}()
}

// applyFetch は最新の取得結果だけを反映する
func (e *mapEngineUseCaseImpl) applyFetch(ev fetchCompleted) {
	if ev.token != e.latestToken {
		e.metrics.FetchDropped()
		e.logger.Debug("古い取得結果を破棄", zap.String("token", ev.token))
		return
	}
	e.cancelFetch()
	e.cancelFetch = nil
	e.latestToken = ""

	if errors.Is(ev.err, context.Canceled) {
		e.metrics.FetchDropped()
		return
	}
	if ev.err != nil {
		// 失敗時は直前の表示を維持する
		e.metrics.FetchFailed()
		e.logger.Warn("スポット取得失敗", zap.String("query", e.query), zap.Error(ev.err))
		return
	}

	records := helper.ToSpotRecords(ev.spots)
	e.logger.Info("スポット一覧を反映",
		zap.Int("fetched", len(ev.spots)),
		zap.Int("located", len(records)))
	e.observe(e.session.ApplySpots(records))
}

func (e *mapEngineUseCaseImpl) observe(ops []model.Operation) {
	if ops == nil {
		return
	}
	e.metrics.ObservePass(ops, e.session.Live())
}

func (e *mapEngineUseCaseImpl) snapshot() *model.MapSnapshot {
	focus := e.session.Focus()
	snap := &model.MapSnapshot{
		Objects:           e.session.Live(),
		LastOperations:    e.session.LastOperations(),
		FocusedSpotID:     focus.FocusedSpotID,
		ExpandedMemberIDs: focus.ExpandedIDs(),
		SpotCount:         len(e.session.Spots()),
		Fetching:          e.latestToken != "",
	}
	if viewport, ok := e.session.Viewport(); ok {
		snap.Viewport = &viewport
	}
	if draft, ok := e.session.Draft(); ok {
		snap.Draft = &draft
	}
	return snap
}

// loggingListener は選択結果をログに出力して外部のリスナーに渡す
type loggingListener struct {
	next   service.MapListener
	logger *zap.Logger
}

func (l *loggingListener) OnSpotSelected(spotID string) {
	l.logger.Info("スポット選択", zap.String("spot_id", spotID))
	if l.next != nil {
		l.next.OnSpotSelected(spotID)
	}
}

func (l *loggingListener) OnClusterExpanded(memberIDs []string, bounds orb.Bound) {
	l.logger.Info("クラスタ展開", zap.Int("members", len(memberIDs)))
	if l.next != nil {
		l.next.OnClusterExpanded(memberIDs, bounds)
	}
}
