package models

import "time"

// Video is a published upload owned by a user. VideoID and ThumbnailID
// are the media store object keys, kept for deletion.
type Video struct {
	ID          string    `json:"id"`
	VideoFile   string    `json:"videoFile"`
	VideoID     string    `json:"-"`
	Thumbnail   string    `json:"thumbnail"`
	ThumbnailID string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
