package model

type UploadedFile struct {
	ID        string `json:"id"`
	LocalPath string `json:"local_path"`
	FileHash  string `json:"file_hash"`
	RemoteURI string `json:"remote_uri"`
	MimeType  string `json:"mime_type"`
	Ctime     int64  `json:"ctime"`
	ExpiresAt int64  `json:"expires_at"`
}
