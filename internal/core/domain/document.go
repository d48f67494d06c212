package domain

import (
	"io"
	"time"
)

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusError      DocumentStatus = "error"
)

// GlobalTenantID owns documents shared with every tenant.
const GlobalTenantID = "global"

type Document struct {
	ID            string             `json:"id"`
	TenantID      string             `json:"tenant_id"`
	Category      string             `json:"category"`
	Filename      string             `json:"filename"`
	MimeType      string             `json:"mime_type"`
	StorageKey    string             `json:"storage_key"`
	UploadedBy    string             `json:"uploaded_by,omitempty"`
	Size          int64              `json:"size"`
	Status        DocumentStatus     `json:"status"`
	Error         string             `json:"error,omitempty"`
	ExtractedText string             `json:"extracted_text,omitempty"`
	Metadata      ProcessingMetadata `json:"metadata"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type ProcessingMetadata struct {
	ChunkCount         int        `json:"chunk_count"`
	AverageChunkSize   int        `json:"average_chunk_size"`
	ExtractedChars     int        `json:"extracted_chars"`
	ProcessingTimeMs   int64      `json:"processing_time_ms"`
	EmbeddingProvider  string     `json:"embedding_provider,omitempty"`
	EmbeddingModel     string     `json:"embedding_model,omitempty"`
	EmbeddingDimension int        `json:"embedding_dimension,omitempty"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	TenantID   string    `json:"tenant_id"`
	Index      int       `json:"index"`
	Text       string    `json:"text"`
	Embedding  []float32 `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// ChunkCandidate is a stored chunk joined with the fields of its document
// that search results expose.
type ChunkCandidate struct {
	Chunk
	Filename string
	Category string
}

type UploadRequest struct {
	TenantID   string
	Category   string
	UploadedBy string
	Filename   string
	MimeType   string
	Body       io.Reader
}

// RemoteDocumentRequest registers a document that stays at its URL. The URL
// becomes the storage key and is fetched on every processing run.
type RemoteDocumentRequest struct {
	TenantID   string
	Category   string
	UploadedBy string
	URL        string
	Filename   string
	MimeType   string
}

type DocumentFilter struct {
	TenantID string
	Category string
	Status   DocumentStatus
}
