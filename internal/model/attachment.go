package model

import "time"

// Attachment is a file stored in object storage and linked to a record.
// One attachment per record; re-uploading replaces the previous one.
type Attachment struct {
	ID          string    `json:"id"`
	Model       string    `json:"model"`
	RecordID    string    `json:"record_id"`
	Filename    string    `json:"filename"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}
