// Package media abstracts the external object store that hosts uploaded
// video files and images.
package media

import (
	"context"
	"errors"
)

var ErrUploadFailed = errors.New("media upload failed")

// Asset is a durably hosted object. ID is the store's object key, kept
// for later deletion.
type Asset struct {
	URL string
	ID  string
}

// Uploader moves local files into the media store and removes them again.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (*Asset, error)
	Delete(ctx context.Context, assetID string) error
}
