package ingestion

import (
	"time"

	"github.com/google/uuid"
)

// Status は文書の取り込み状態
type Status string

const (
	StatusUploading  Status = "uploading"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusIndexed    Status = "indexed"
	StatusError      Status = "error"
)

// Valid は既知の状態かを返す
func (s Status) Valid() bool {
	switch s {
	case StatusUploading, StatusPending, StatusProcessing, StatusIndexed, StatusError:
		return true
	}
	return false
}

// Document は取り込み対象の文書
type Document struct {
	ID           uuid.UUID
	Name         string
	StoragePath  string
	Status       Status
	PageCount    int
	ChunkCount   int
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IngestResult は1文書の取り込み結果
type IngestResult struct {
	DocumentID uuid.UUID
	PageCount  int
	ChunkCount int
	Duration   time.Duration
	Err        error
}
