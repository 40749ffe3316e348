package service

import (
	"SpotMap-App/internal/domain/model"
)

// DraftPinHandler は投稿前の下書きピン（常に1つまで）を管理する
type DraftPinHandler struct {
	coordinate *model.LatLng
}

// NewDraftPinHandler は新しいDraftPinHandlerインスタンスを作成
func NewDraftPinHandler() *DraftPinHandler {
	return &DraftPinHandler{}
}

// SetDraft は下書きピンを設置（既にあれば移動）する
func (h *DraftPinHandler) SetDraft(coordinate model.LatLng) {
	h.coordinate = &coordinate
}

// ClearDraft は下書きピンを削除する
func (h *DraftPinHandler) ClearDraft() {
	h.coordinate = nil
}

// HasDraft は下書きピンがあるかどうか
func (h *DraftPinHandler) HasDraft() bool {
	return h.coordinate != nil
}

// Draft は下書きピンの表示オブジェクトを返す
func (h *DraftPinHandler) Draft() (model.DisplayObject, bool) {
	if h.coordinate == nil {
		return model.DisplayObject{}, false
	}
	pin := model.DisplayPin{
		ID:         model.DraftPinID,
		Coordinate: *h.coordinate,
		IsDraft:    true,
	}
	return pin.ToDisplayObject(false), true
}
