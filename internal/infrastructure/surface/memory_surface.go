package surface

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"SpotMap-App/internal/domain/model"
)

// Annotation 描画面が保持するアノテーション（IDごとに一度だけ生成し、以降はその場で更新）
type Annotation struct {
	ID          string            `json:"id"`
	Kind        model.DisplayKind `json:"kind"`
	Coordinate  model.LatLng      `json:"coordinate"`
	Title       string            `json:"title"`
	Category    model.Category    `json:"category,omitempty"`
	Approved    bool              `json:"approved"`
	Focused     bool              `json:"focused"`
	MemberCount int               `json:"member_count,omitempty"`
	Revision    int               `json:"revision"` // 更新回数（再描画の回数）
}

// Stats 描画面に適用された操作の累計
type Stats struct {
	Created int `json:"created"`
	Removed int `json:"removed"`
	Updated int `json:"updated"`
}

// MemorySurface メモリ上でアノテーションを保持する描画面
// Webクライアントはここから現在のアノテーションを取得する
type MemorySurface struct {
	mu          sync.RWMutex
	annotations map[string]*Annotation
	stats       Stats
	logger      *zap.Logger
}

// NewMemorySurface は新しいMemorySurfaceインスタンスを作成
func NewMemorySurface(logger *zap.Logger) *MemorySurface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemorySurface{
		annotations: make(map[string]*Annotation),
		logger:      logger,
	}
}

func (s *MemorySurface) Add(obj model.DisplayObject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.annotations[obj.ID]; exists {
		s.logger.Warn("同じIDのアノテーションが既に存在します", zap.String("id", obj.ID))
	}
	a := &Annotation{ID: obj.ID}
	apply(a, obj)
	s.annotations[obj.ID] = a
	s.stats.Created++
}

func (s *MemorySurface) Remove(obj model.DisplayObject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.annotations[obj.ID]; !exists {
		s.logger.Warn("削除対象のアノテーションがありません", zap.String("id", obj.ID))
		return
	}
	delete(s.annotations, obj.ID)
	s.stats.Removed++
}

func (s *MemorySurface) Update(obj model.DisplayObject) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.annotations[obj.ID]
	if !exists {
		s.logger.Warn("更新対象のアノテーションがありません", zap.String("id", obj.ID))
		return
	}
	apply(a, obj)
	a.Revision++
	s.stats.Updated++
}

// Annotations は現在のアノテーションをID順で返す
func (s *MemorySurface) Annotations() []Annotation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Annotation, 0, len(s.annotations))
	for _, a := range s.annotations {
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// Get はIDでアノテーションを取得する
func (s *MemorySurface) Get(id string) (Annotation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.annotations[id]
	if !ok {
		return Annotation{}, false
	}
	return *a, true
}

// Stats は適用された操作の累計を返す
func (s *MemorySurface) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// apply は表示オブジェクトの内容をアノテーションに反映する
func apply(a *Annotation, obj model.DisplayObject) {
	a.Kind = obj.Kind
	a.Coordinate = obj.Coordinate
	a.Category = obj.Category
	a.Approved = obj.Approved
	a.Focused = obj.Focused
	a.MemberCount = len(obj.MemberIDs)
	a.Title = title(obj)
}

// title はマーカーに表示する文言
func title(obj model.DisplayObject) string {
	switch obj.Kind {
	case model.KindCluster:
		return fmt.Sprintf("%s %d件", model.GetCategoryJapaneseName(obj.Category), len(obj.MemberIDs))
	case model.KindDraft:
		return "新しいスポット"
	default:
		return model.GetCategoryJapaneseName(obj.Category)
	}
}
