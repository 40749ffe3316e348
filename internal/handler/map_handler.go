package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"SpotMap-App/internal/domain/model"
	"SpotMap-App/internal/domain/repository"
	"SpotMap-App/internal/domain/service"
	"SpotMap-App/internal/infrastructure/surface"
	"SpotMap-App/internal/usecase"
)

// AnnotationLister は地図面に実際に描画されている注釈を返す
type AnnotationLister interface {
	Annotations() []surface.Annotation
	Stats() surface.Stats
}

// MapHandler 地図表示に関するHTTPハンドラー
type MapHandler struct {
	engine   usecase.MapEngineUseCase
	spotRepo repository.SpotsRepository
	surface  AnnotationLister
	logger   *zap.Logger
}

// NewMapHandler MapHandlerの新しいインスタンスを作成
func NewMapHandler(engine usecase.MapEngineUseCase, spotRepo repository.SpotsRepository, surface AnnotationLister, logger *zap.Logger) *MapHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MapHandler{
		engine:   engine,
		spotRepo: spotRepo,
		surface:  surface,
		logger:   logger,
	}
}

// ViewportRequest 表示領域の更新リクエスト
type ViewportRequest struct {
	CenterLat *float64 `json:"center_lat" binding:"required,min=-90,max=90"`
	CenterLng *float64 `json:"center_lng" binding:"required,min=-180,max=180"`
	SpanLat   float64  `json:"span_lat" binding:"gt=0,max=180"`
	SpanLng   float64  `json:"span_lng" binding:"gt=0,max=360"`
	Animating bool     `json:"animating"`
}

// SearchRequest 検索文字列の更新リクエスト
type SearchRequest struct {
	Query string `json:"query"`
}

// RegisterRoutes はルーティングを登録する
func (h *MapHandler) RegisterRoutes(r gin.IRouter) {
	m := r.Group("/map")
	{
		m.GET("/annotations", h.GetAnnotations)
		m.GET("/operations", h.GetOperations)
		m.GET("/surface", h.GetSurface)
		m.GET("/nearest", h.GetNearestSpot)
		m.GET("/spots/:id", h.GetSpot)
		m.PUT("/viewport", h.PutViewport)
		m.POST("/viewport/will-change", h.PostRegionWillChange)
		m.POST("/spots/:id/select", h.SelectSpot)
		m.POST("/clusters/:id/expand", h.ExpandCluster)
		m.DELETE("/selection", h.DeleteSelection)
		m.PUT("/draft", h.PutDraft)
		m.DELETE("/draft", h.DeleteDraft)
		m.POST("/refresh", h.PostRefresh)
		m.POST("/search", h.PostSearch)
	}
}

// GetAnnotations GET /map/annotations - 現在の表示状態を取得
func (h *MapHandler) GetAnnotations(c *gin.Context) {
	snapshot, err := h.engine.Snapshot(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// GetOperations GET /map/operations - 直前の反映で適用した操作を取得
func (h *MapHandler) GetOperations(c *gin.Context) {
	snapshot, err := h.engine.Snapshot(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	operations := snapshot.LastOperations
	if operations == nil {
		operations = []model.Operation{}
	}
	c.JSON(http.StatusOK, gin.H{
		"operations": operations,
		"count":      len(operations),
	})
}

// GetSurface GET /map/surface - 地図面に描画済みの注釈を取得
func (h *MapHandler) GetSurface(c *gin.Context) {
	if h.surface == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "surface is not attached",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"annotations": h.surface.Annotations(),
		"stats":       h.surface.Stats(),
	})
}

// GetNearestSpot GET /map/nearest?lat=..&lng=.. - 指定地点に最も近いスポットを取得
func (h *MapHandler) GetNearestSpot(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		h.invalidParameter(c, "lat must be a number between -90 and 90")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil || lng < -180 || lng > 180 {
		h.invalidParameter(c, "lng must be a number between -180 and 180")
		return
	}

	spot, err := h.engine.NearestSpot(c.Request.Context(), model.LatLng{Lat: lat, Lng: lng})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spot)
}

// GetSpot GET /map/spots/:id - スポット詳細を取得（詳細シート用）
func (h *MapHandler) GetSpot(c *gin.Context) {
	spot, err := h.spotRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, spot)
}

// PutViewport PUT /map/viewport - 表示領域の変更を通知
func (h *MapHandler) PutViewport(c *gin.Context) {
	var req ViewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidParameter(c, "Invalid viewport: "+err.Error())
		return
	}

	viewport := model.Viewport{
		CenterLat: *req.CenterLat,
		CenterLng: *req.CenterLng,
		SpanLat:   req.SpanLat,
		SpanLng:   req.SpanLng,
	}
	if err := h.engine.UpdateViewport(c.Request.Context(), viewport, req.Animating); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostRegionWillChange POST /map/viewport/will-change - 表示領域のアニメーション開始を通知
func (h *MapHandler) PostRegionWillChange(c *gin.Context) {
	if err := h.engine.RegionWillChange(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SelectSpot POST /map/spots/:id/select - ピンのタップ
func (h *MapHandler) SelectSpot(c *gin.Context) {
	if err := h.engine.SelectSpot(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExpandCluster POST /map/clusters/:id/expand - クラスタのタップ
func (h *MapHandler) ExpandCluster(c *gin.Context) {
	expansion, err := h.engine.SelectCluster(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, expansion)
}

// DeleteSelection DELETE /map/selection - 選択とクラスタ展開を解除
func (h *MapHandler) DeleteSelection(c *gin.Context) {
	if err := h.engine.Deselect(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PutDraft PUT /map/draft - 下書きピンを設置
func (h *MapHandler) PutDraft(c *gin.Context) {
	var req model.Location
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidParameter(c, "Invalid location: "+err.Error())
		return
	}
	if err := h.engine.SetDraft(c.Request.Context(), req.ToLatLng()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteDraft DELETE /map/draft - 下書きピンを削除
func (h *MapHandler) DeleteDraft(c *gin.Context) {
	if err := h.engine.ClearDraft(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostRefresh POST /map/refresh - スポット一覧を再取得
func (h *MapHandler) PostRefresh(c *gin.Context) {
	if err := h.engine.Refresh(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// PostSearch POST /map/search - 検索文字列を更新（入力が落ち着いてから再取得）
func (h *MapHandler) PostSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.invalidParameter(c, "Invalid JSON format: "+err.Error())
		return
	}
	if err := h.engine.Search(c.Request.Context(), req.Query); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (h *MapHandler) invalidParameter(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_parameter",
		"message": message,
	})
}

// respondError はエラーの種類に応じてステータスコードを決める
func (h *MapHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidViewport):
		h.invalidParameter(c, err.Error())
	case errors.Is(err, service.ErrUnknownCluster),
		errors.Is(err, repository.ErrSpotNotFound),
		errors.Is(err, usecase.ErrNoSpots):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, usecase.ErrEngineStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "unavailable",
			"message": err.Error(),
		})
	default:
		h.logger.Error("リクエスト処理失敗", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
	}
}
