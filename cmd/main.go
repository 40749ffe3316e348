package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"SpotMap-App/internal/config"
	"SpotMap-App/internal/domain/repository"
	"SpotMap-App/internal/domain/service"
	"SpotMap-App/internal/handler"
	"SpotMap-App/internal/infrastructure/database"
	"SpotMap-App/internal/infrastructure/surface"
	"SpotMap-App/internal/observability"
	repoimpl "SpotMap-App/internal/repository"
	"SpotMap-App/internal/usecase"
)

// healthChecker はスポット取得元の疎通確認
type healthChecker func(ctx context.Context) error

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("SpotMap-App 異常終了", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spotRepo, healthCheck, cleanup, err := setupSpotsRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	metrics, err := observability.NewMapMetrics(nil)
	if err != nil {
		return err
	}

	memorySurface := surface.NewMemorySurface(logger.Named("surface"))
	engine := usecase.NewMapEngineUseCase(
		usecase.MapEngineConfig{
			Session: service.MapSessionConfig{
				RegionEpsilon:  cfg.Clustering.RegionEpsilon,
				GridSteps:      cfg.Clustering.GridSteps,
				WideCellMeters: cfg.Clustering.WideCellMeters,
			},
			SearchDebounce: cfg.Clustering.SearchDebounce,
		},
		spotRepo, memorySurface, nil, metrics, logger.Named("engine"),
	)

	r := setupRouter(engine, spotRepo, memorySurface, metrics, healthCheck, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// エンジンとHTTPサーバーのどちらかが終了したら両方止める
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		// 起動直後に全件取得
		if err := engine.Refresh(gctx); err != nil {
			return err
		}
		logger.Info("SpotMap-App server starting", zap.String("port", cfg.Port), zap.String("spot_source", cfg.SpotSource))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("シャットダウン開始")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// setupSpotsRepository は設定に応じてスポット取得元を初期化する
func setupSpotsRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.SpotsRepository, healthChecker, func(), error) {
	switch cfg.SpotSource {
	case config.SpotSourcePostgres:
		client, err := database.NewPostgreSQLClientWithRetry(ctx, cfg.SupabaseURL, cfg.SupabaseDBPassword, 5, 2*time.Second, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Warn("PostgreSQL切断失敗", zap.Error(err))
			}
		}
		return repoimpl.NewPostgresSpotsRepository(client, logger.Named("postgres")), client.HealthCheck, cleanup, nil

	default:
		client, err := database.NewSupabaseClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := client.HealthCheck(ctx); err != nil {
			return nil, nil, nil, err
		}
		logger.Info("Supabase接続成功")
		return repoimpl.NewSupabaseSpotsRepository(client, logger.Named("supabase")), client.HealthCheck, func() {}, nil
	}
}

func setupRouter(
	engine usecase.MapEngineUseCase,
	spotRepo repository.SpotsRepository,
	memorySurface *surface.MemorySurface,
	metrics *observability.MapMetrics,
	healthCheck healthChecker,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", func(c *gin.Context) {
		if err := healthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "SpotMap-App",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "SpotMap-App"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	handler.NewMapHandler(engine, spotRepo, memorySurface, logger.Named("handler")).RegisterRoutes(r)
	return r
}
