// Package model defines database models
package model

// File statuses. Informational only, nothing moves a record between
// statuses automatically. Handlers and superusers set them directly.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ValidStatuses lists every status a file record may hold
var ValidStatuses = []string{StatusPending, StatusProcessing, StatusCompleted, StatusFailed}

type File struct {
	ID     uint   `gorm:"primaryKey;autoIncrement;index" json:"id"`
	UserID string `gorm:"index;not null" json:"-"`

	// Since different users may upload files with the same name the blob
	// is stored under a generated key. StoredPath is the full blob path
	// (uploads/YYYY/MM/DD/key) and never changes for the record's lifetime
	StoredPath string `json:"-"`

	// Original file name before turning it into a storage key. Used as the
	// download disposition filename
	OriginalName string `json:"name"`
	Size         int64  `json:"size"`
	FileType     string `json:"file_type"`
	Status       string `gorm:"default:pending" json:"status"`

	Description string `json:"description"`
	Tags        string `json:"tags"`

	// Unix second timestamps
	UploadedAt  int64  `gorm:"not null" json:"uploaded_at"`
	CompletedAt *int64 `json:"completed_at,omitempty"`
}
