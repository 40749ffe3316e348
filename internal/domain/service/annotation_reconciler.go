package service

import (
	"slices"

	"SpotMap-App/internal/domain/model"
)

// AnnotationSurface は地図描画側のアノテーション操作を表すインターフェース
type AnnotationSurface interface {
	Add(obj model.DisplayObject)
	Remove(obj model.DisplayObject)
	Update(obj model.DisplayObject)
}

// AnnotationReconciler は表示中のオブジェクトと新しい表示内容の差分を計算して反映する
type AnnotationReconciler struct {
	surface AnnotationSurface
}

// NewAnnotationReconciler は新しいAnnotationReconcilerインスタンスを作成
func NewAnnotationReconciler(surface AnnotationSurface) *AnnotationReconciler {
	return &AnnotationReconciler{
		surface: surface,
	}
}

// Reconcile は live を desired に変換するための最小の操作を計算し、削除→追加→更新の順で適用する
// forceRefresh に含まれるIDは内容が変わっていなくても更新操作を出す
func (r *AnnotationReconciler) Reconcile(live model.DisplaySet, desired []model.DisplayObject, forceRefresh map[string]struct{}) (model.DisplaySet, []model.Operation) {
	next := make(model.DisplaySet, len(desired))
	order := make([]string, 0, len(desired))
	for _, obj := range desired {
		if _, dup := next[obj.ID]; dup {
			continue
		}
		next[obj.ID] = obj
		order = append(order, obj.ID)
	}

	var removals, additions, updates []model.Operation

	// Step 1: 不要になったオブジェクト（種類が変わったものを含む）を削除
	liveIDs := make([]string, 0, len(live))
	for id := range live {
		liveIDs = append(liveIDs, id)
	}
	slices.Sort(liveIDs)
	for _, id := range liveIDs {
		current := live[id]
		if want, ok := next[id]; !ok || want.Kind != current.Kind {
			removals = append(removals, model.Operation{Type: model.OpRemove, Object: current})
		}
	}

	// Step 2: 新規オブジェクトの追加と、既存オブジェクトのその場更新
	for _, id := range order {
		want := next[id]
		current, ok := live[id]
		switch {
		case !ok || current.Kind != want.Kind:
			additions = append(additions, model.Operation{Type: model.OpAdd, Object: want})
		case !current.Equal(want):
			updates = append(updates, model.Operation{Type: model.OpUpdate, Object: want})
		default:
			if _, forced := forceRefresh[id]; forced {
				updates = append(updates, model.Operation{Type: model.OpUpdate, Object: want})
			}
		}
	}

	ops := make([]model.Operation, 0, len(removals)+len(additions)+len(updates))
	ops = append(ops, removals...)
	ops = append(ops, additions...)
	ops = append(ops, updates...)
	r.apply(ops)

	return next, ops
}

// apply は操作を描画側に適用する
func (r *AnnotationReconciler) apply(ops []model.Operation) {
	if r.surface == nil {
		return
	}
	for _, op := range ops {
		switch op.Type {
		case model.OpRemove:
			r.surface.Remove(op.Object)
		case model.OpAdd:
			r.surface.Add(op.Object)
		case model.OpUpdate:
			r.surface.Update(op.Object)
		}
	}
}
