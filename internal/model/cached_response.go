package model

type CachedResponse struct {
	ID           string                 `json:"id"`
	RequestKey   string                 `json:"request_key"`
	Model        string                 `json:"model"`
	InputText    string                 `json:"input_text"`
	Instructions *string                `json:"instructions"`
	FileHashes   []string               `json:"file_hashes"`
	ResponseText string                 `json:"response_text"`
	MetaData     map[string]interface{} `json:"meta_data"`
	Ctime        int64                  `json:"ctime"`
	ExpiresAt    *int64                 `json:"expires_at"`
}
