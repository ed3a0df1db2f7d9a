package backend

// UploadResponse is the subset of the /upload response the client consumes.
type UploadResponse struct {
	FileID  string `json:"file_id"`
	Preview string `json:"preview"`
}

// Source is one supporting chunk returned by /query.
type Source struct {
	FileName   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

// QueryResponse is the subset of the /query response the client consumes.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

type deleteRequest struct {
	DocID string `json:"doc_id"`
}

// Wire shapes used to detect missing fields before handing data to callers.
type uploadPayload struct {
	FileID  *string `json:"file_id"`
	Preview string  `json:"preview"`
}

type queryPayload struct {
	Answer  *string  `json:"answer"`
	Sources []Source `json:"sources"`
}
