package model

// MapSnapshot Webクライアントに返す地図表示の状態
type MapSnapshot struct {
	Viewport          *Viewport       `json:"viewport,omitempty"`
	Objects           []DisplayObject `json:"objects"`
	LastOperations    []Operation     `json:"last_operations"`
	FocusedSpotID     string          `json:"focused_spot_id,omitempty"`
	ExpandedMemberIDs []string        `json:"expanded_member_ids"`
	Draft             *DisplayObject  `json:"draft,omitempty"`
	SpotCount         int             `json:"spot_count"`
	Fetching          bool            `json:"fetching"`
}

// ClusterExpansion クラスタ展開の結果（カメラをズームする表示領域を含む）
type ClusterExpansion struct {
	ClusterID string   `json:"cluster_id"`
	MemberIDs []string `json:"member_ids"`
	ZoomTo    Viewport `json:"zoom_to"`
}
