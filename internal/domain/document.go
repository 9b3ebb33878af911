package domain

import "time"

// Document status constants
const (
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"
)

// Chunking strategies
const (
	ChunkingFixed     = "fixed"
	ChunkingRecursive = "recursive"
)

// Vector payload keys stored alongside each chunk embedding
const (
	PayloadKeyDocumentID   = "document_id"
	PayloadKeyDocumentName = "document_name"
	PayloadKeyChunkIndex   = "chunk_index"
	PayloadKeyChunkText    = "chunk_text"
)

// Document represents an uploaded file and its processing state
type Document struct {
	ID               string    `json:"document_id"`
	Filename         string    `json:"filename"`
	FilePath         string    `json:"-"`
	FileSize         int64     `json:"file_size"`
	ChunkCount       int       `json:"chunk_count"`
	ChunkingStrategy string    `json:"chunking_strategy"`
	Status           string    `json:"status"`
	UploadedAt       time.Time `json:"upload_timestamp"`
}

// Chunk is a segment of a document used as the unit of retrieval
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"chunk_text"`
	VectorID   string    `json:"vector_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidStrategy reports whether s names a supported chunking strategy
func ValidStrategy(s string) bool {
	return s == ChunkingFixed || s == ChunkingRecursive
}

// IngestResponse is returned after a document has been processed
type IngestResponse struct {
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	ChunksCreated int    `json:"chunks_created"`
	StrategyUsed  string `json:"strategy_used"`
	Message       string `json:"message"`
}

// DocumentListResponse is the response for listing documents
type DocumentListResponse struct {
	Documents []*Document `json:"documents"`
	Total     int         `json:"total"`
	Skip      int         `json:"skip"`
	Limit     int         `json:"limit"`
}

// ChunkView is a chunk as exposed by the chunk inspection endpoint
type ChunkView struct {
	ChunkIndex int       `json:"chunk_index"`
	ChunkText  string    `json:"chunk_text"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentChunksResponse lists the chunks of a single document
type DocumentChunksResponse struct {
	DocumentID  string      `json:"document_id"`
	Filename    string      `json:"filename"`
	Chunks      []ChunkView `json:"chunks"`
	TotalChunks int         `json:"total_chunks"`
}

// SuccessResponse is a generic acknowledgement for destructive operations
type SuccessResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}
