package storage

import "errors"

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// VideoUpdate carries the fields a partial video update may change.
// Empty fields are left untouched.
type VideoUpdate struct {
	Title       string
	Description string
	Thumbnail   string
	ThumbnailID string
}

// IsZero reports whether the update would change nothing.
func (u VideoUpdate) IsZero() bool {
	return u.Title == "" && u.Description == "" && u.Thumbnail == "" && u.ThumbnailID == ""
}

// VideoFilter selects and orders a page of published videos.
type VideoFilter struct {
	Owner     string
	Page      int
	Limit     int
	SortBy    string
	Ascending bool
}

func (f VideoFilter) PageSize() int {
	if f.Limit <= 0 {
		return defaultPageSize
	}
	if f.Limit > maxPageSize {
		return maxPageSize
	}
	return f.Limit
}

func (f VideoFilter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.PageSize()
}

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrVideoNotFound        = errors.New("video not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrInvalidID            = errors.New("invalid object id")

	// ErrRefreshTokenMismatch means a conditional rotation matched no
	// document: the stored token changed (or was cleared) between the
	// read and the write.
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)
