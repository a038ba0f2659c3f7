package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/rfm-dashboard/internal/dataset"
)

// Upload is a dataset file stored through the upload endpoint
type Upload struct {
	ID        string       `json:"id" db:"id"`
	Kind      dataset.Kind `json:"kind" db:"kind"`
	Name      string       `json:"name" db:"name"`
	Size      int64        `json:"size" db:"size"`
	Rows      int          `json:"rows" db:"row_count"`
	Content   []byte       `json:"-" db:"content"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// NewUpload creates an upload record with a generated ID
func NewUpload(kind dataset.Kind, name string, content []byte, rows int) *Upload {
	return &Upload{
		ID:        uuid.New().String(),
		Kind:      kind,
		Name:      name,
		Size:      int64(len(content)),
		Rows:      rows,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}
