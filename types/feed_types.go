package types

type FeedRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"pageSize" binding:"omitempty,min=1"`
}

type RecordActionRequest struct {
	ActionKind string `json:"actionKind" binding:"required"`
	ResourceID uint   `json:"resourceId" binding:"required"`
}

type ReactionRequest struct {
	Type string `json:"type" binding:"required,oneof=like love yum wow"`
}

type CommentRequest struct {
	Body string `json:"body" binding:"required,max=2000"`
}

type LeaderboardRequest struct {
	TimeFilter string `form:"timeFilter" binding:"omitempty,oneof=all_time weekly monthly"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=100"`
}
