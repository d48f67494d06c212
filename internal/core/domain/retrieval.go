package domain

type SearchQuery struct {
	Text     string
	TenantID string
	Category string
	Limit    int
	// Threshold overrides the configured minimum similarity when set.
	Threshold *float64
}

type SearchResult struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	ChunkIndex int     `json:"chunk_index"`
	TenantID   string  `json:"tenant_id"`
	Filename   string  `json:"filename"`
	Category   string  `json:"category"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	Global     bool    `json:"global"`
}

type RetrievalContext struct {
	Text    string         `json:"context"`
	Sources []SearchResult `json:"sources"`
}
