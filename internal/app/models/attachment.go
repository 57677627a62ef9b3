package models

import "time"

// MessageAttachment represents file metadata attached to a message. The
// underlying bytes live in the marketplace's upload storage; this service
// only records the reference.
type MessageAttachment struct {
	ID           int64     `json:"id" db:"id"`
	MessageID    int64     `json:"messageId" db:"message_id"`
	URL          string    `json:"url" db:"url"`
	FileName     string    `json:"fileName" db:"file_name"`
	FileSize     int64     `json:"fileSize" db:"file_size"`
	FileType     string    `json:"fileType" db:"file_type"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty" db:"thumbnail_url"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}
