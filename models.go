package gatekeeper

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the principal model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	IsWhitelisted bool       `bun:"is_whitelisted,notnull" json:"is_whitelisted"`
	Role          Role       `bun:"user_role,notnull" json:"user_role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// MagicToken is a single-use login grant. Consumption deletes the row, so a
// row's presence means state "issued"; absence covers both consumed and
// evicted-after-expiry.
type MagicToken struct {
	bun.BaseModel `bun:"table:magic_tokens,alias:mgt"`
	Token         string     `bun:"token,pk" json:"token,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Expired reports whether the grant is past its window at the given instant.
// The token is only live strictly before its expiry, matching the memory
// store's boundary.
func (t *MagicToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Image is an uploaded original or processed result
type Image struct {
	bun.BaseModel    `bun:"table:images,alias:img"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID           uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Filename         string     `bun:"filename,notnull" json:"filename,omitempty"`
	OriginalFilename string     `bun:"original_filename,notnull" json:"original_filename,omitempty"`
	BlobURL          string     `bun:"blob_url,notnull" json:"blob_url,omitempty"`
	FileSize         int64      `bun:"file_size,notnull" json:"file_size,omitempty"`
	MimeType         string     `bun:"mime_type,notnull" json:"mime_type,omitempty"`
	Width            int        `bun:"width" json:"width,omitempty"`
	Height           int        `bun:"height" json:"height,omitempty"`
	IsProcessed      bool       `bun:"is_processed,notnull" json:"is_processed"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// JobStatus tracks a processing job through its queue lifecycle
type JobStatus = string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// ProcessingJob records one transformation request against an image
type ProcessingJob struct {
	bun.BaseModel   `bun:"table:processing_jobs,alias:job"`
	ID              uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID          uuid.UUID      `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	OriginalImageID uuid.UUID      `bun:"original_image_id,notnull,type:uuid" json:"original_image_id,omitempty"`
	ResultImageID   *uuid.UUID     `bun:"result_image_id,nullzero,type:uuid" json:"result_image_id,omitempty"`
	WorkflowName    string         `bun:"workflow_name,notnull" json:"workflow_name,omitempty"`
	Status          JobStatus      `bun:"status,notnull" json:"status,omitempty"`
	Parameters      map[string]any `bun:"parameters,type:jsonb" json:"parameters,omitempty"`
	ErrorMessage    string         `bun:"error_message" json:"error_message,omitempty"`
	CreatedAt       *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	CompletedAt     *time.Time     `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
}

// WorkflowConfig describes a named transformation pipeline
type WorkflowConfig struct {
	bun.BaseModel `bun:"table:workflow_configs,alias:wfc"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string         `bun:"name,notnull,unique" json:"name,omitempty"`
	DisplayName   string         `bun:"display_name,notnull" json:"display_name,omitempty"`
	Description   string         `bun:"description" json:"description,omitempty"`
	Parameters    map[string]any `bun:"parameters,type:jsonb" json:"parameters,omitempty"`
	IsActive      bool           `bun:"is_active,notnull" json:"is_active"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
