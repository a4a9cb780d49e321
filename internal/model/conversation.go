package model

type Conversation struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
	Ctime int64   `json:"ctime"`
}
