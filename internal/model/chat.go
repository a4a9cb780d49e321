package model

const (
	StatusPending       = "pending"
	StatusCompleted     = "completed"
	StatusFailed        = "failed"
	StatusCached        = "cached"
	StatusCachedOffline = "cached_offline"
)

type ChatRequest struct {
	ConversationID  string   `json:"conversation_id"`
	Instructions    *string  `json:"instructions"`
	Input           string   `json:"input"`
	Model           string   `json:"model"`
	FilePaths       []string `json:"file_paths"`
	SearchGrounding *bool    `json:"search_grounding"`
}

type ChatResponse struct {
	ConversationID string   `json:"conversation_id"`
	CreatedAt      int64    `json:"created_at"`
	Output         *Message `json:"output"`
	Status         string   `json:"status"`
}
