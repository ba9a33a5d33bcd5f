package storage

import (
	"time"

	"github.com/goliatone/go-portal"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StoredFile is the metadata row for an object uploaded to the bucket.
// The bytes live in S3 under FileKey; FileURL is the public address.
type StoredFile struct {
	bun.BaseModel `bun:"table:uploaded_files,alias:file"`

	ID        uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id"`
	UserID    uuid.UUID    `bun:"user_id,notnull,type:uuid" json:"user_id"`
	FileName  string       `bun:"file_name,notnull" json:"file_name"`
	FileKey   string       `bun:"file_key,notnull,unique" json:"file_key"`
	FileURL   string       `bun:"file_url" json:"file_url"`
	FileSize  int64        `bun:"file_size" json:"file_size"`
	FileType  string       `bun:"file_type" json:"file_type"`
	CreatedAt *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	Owner     *portal.User `bun:"rel:belongs-to,join:user_id=id" json:"owner,omitempty"`
}

// UserUsage is one row of the admin usage report.
type UserUsage struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Username     string     `json:"username"`
	Role         string     `json:"role"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	FileCount    int        `json:"file_count"`
	TotalStorage int64      `json:"total_storage"`
}

// UsageTotals aggregates storage use across every account.
type UsageTotals struct {
	TotalUsers   int   `json:"total_users"`
	TotalFiles   int   `json:"total_files"`
	TotalStorage int64 `json:"total_storage"`
}
