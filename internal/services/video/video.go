// Package video handles uploads, listing and watch history over the
// media store and the video collection.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"chiyabari/internal/domain/models"
	"chiyabari/internal/lib/sl"
	"chiyabari/internal/media"
	"chiyabari/internal/storage"
)

var (
	ErrVideoNotFound   = errors.New("video not found")
	ErrTitleRequired   = errors.New("title is required")
	ErrNotOwner        = errors.New("only the owner may modify this video")
	ErrNothingToUpdate = errors.New("nothing to update")
)

type VideoStore interface {
	SaveVideo(ctx context.Context, video *models.Video) (string, error)
	VideoByID(ctx context.Context, videoID string) (*models.Video, error)
	Videos(ctx context.Context, filter storage.VideoFilter) ([]*models.Video, error)
	UpdateVideo(ctx context.Context, videoID string, upd storage.VideoUpdate) error
	DeleteVideo(ctx context.Context, videoID string) error
	SetVideoPublished(ctx context.Context, videoID string, published bool) error
	IncrementViews(ctx context.Context, videoID string) error
}

type HistoryStore interface {
	PushWatchHistory(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]*models.Video, error)
}

type Service struct {
	logger   *slog.Logger
	store    VideoStore
	history  HistoryStore
	uploader media.Uploader
}

func New(logger *slog.Logger, store VideoStore, history HistoryStore, uploader media.Uploader) *Service {
	return &Service{
		logger:   logger,
		store:    store,
		history:  history,
		uploader: uploader,
	}
}

// UploadParams carries the validated upload input: local temp paths for
// the video file and its thumbnail.
type UploadParams struct {
	OwnerID       string
	Title         string
	Description   string
	VideoPath     string
	ThumbnailPath string
}

func (s *Service) Upload(ctx context.Context, params UploadParams) (*models.Video, error) {
	const op = "video.Upload"
	log := s.logger.With(slog.String("op", op), slog.String("ownerID", params.OwnerID))
	log.Info("upload request", slog.String("title", params.Title))

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrTitleRequired)
	}

	videoAsset, err := s.uploader.Upload(ctx, params.VideoPath)
	if err != nil {
		log.Error("video upload to media store failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	thumbAsset, err := s.uploader.Upload(ctx, params.ThumbnailPath)
	if err != nil {
		log.Error("thumbnail upload to media store failed", sl.Err(err))
		// The video asset is already durable; reclaim it.
		if delErr := s.uploader.Delete(ctx, videoAsset.ID); delErr != nil {
			log.Error("failed to reclaim video asset", sl.Err(delErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	video := &models.Video{
		VideoFile:   videoAsset.URL,
		VideoID:     videoAsset.ID,
		Thumbnail:   thumbAsset.URL,
		ThumbnailID: thumbAsset.ID,
		Title:       title,
		Description: strings.TrimSpace(params.Description),
		IsPublished: true,
		Owner:       params.OwnerID,
	}

	id, err := s.store.SaveVideo(ctx, video)
	if err != nil {
		log.Error("failed to save video", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	saved, err := s.store.VideoByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("video uploaded", slog.String("videoID", id))
	return saved, nil
}

// List returns a page of published videos.
func (s *Service) List(ctx context.Context, filter storage.VideoFilter) ([]*models.Video, error) {
	const op = "video.List"

	videos, err := s.store.Videos(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return videos, nil
}

// Get returns one video and records the view in the watcher's history.
func (s *Service) Get(ctx context.Context, videoID, watcherID string) (*models.Video, error) {
	const op = "video.Get"
	log := s.logger.With(slog.String("op", op), slog.String("videoID", videoID))

	video, err := s.store.VideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrVideoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.store.IncrementViews(ctx, videoID); err != nil {
		log.Warn("failed to bump view counter", sl.Err(err))
	}
	if err := s.history.PushWatchHistory(ctx, watcherID, videoID); err != nil {
		log.Warn("failed to record watch history", sl.Err(err))
	}

	return video, nil
}

// UpdateParams carries a partial edit: empty fields keep their current
// value, a non-empty ThumbnailPath replaces the thumbnail asset.
type UpdateParams struct {
	Title         string
	Description   string
	ThumbnailPath string
}

// Update edits an owned video's details. The old thumbnail asset is
// reclaimed once its replacement is durable.
func (s *Service) Update(ctx context.Context, videoID, requesterID string, params UpdateParams) (*models.Video, error) {
	const op = "video.Update"
	log := s.logger.With(slog.String("op", op), slog.String("videoID", videoID))

	video, err := s.store.VideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrVideoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if video.Owner != requesterID {
		return nil, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	upd := storage.VideoUpdate{
		Title:       strings.TrimSpace(params.Title),
		Description: strings.TrimSpace(params.Description),
	}

	if params.ThumbnailPath != "" {
		thumbAsset, err := s.uploader.Upload(ctx, params.ThumbnailPath)
		if err != nil {
			log.Error("thumbnail upload to media store failed", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		upd.Thumbnail = thumbAsset.URL
		upd.ThumbnailID = thumbAsset.ID
	}

	if upd.IsZero() {
		return nil, fmt.Errorf("%s: %w", op, ErrNothingToUpdate)
	}

	if err := s.store.UpdateVideo(ctx, videoID, upd); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if upd.Thumbnail != "" && video.ThumbnailID != "" {
		if err := s.uploader.Delete(ctx, video.ThumbnailID); err != nil {
			log.Warn("failed to delete replaced thumbnail asset", sl.Err(err))
		}
	}

	updated, err := s.store.VideoByID(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("video updated")
	return updated, nil
}

// Delete removes an owned video and its media assets.
func (s *Service) Delete(ctx context.Context, videoID, requesterID string) error {
	const op = "video.Delete"
	log := s.logger.With(slog.String("op", op), slog.String("videoID", videoID))

	video, err := s.store.VideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			return fmt.Errorf("%s: %w", op, ErrVideoNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if video.Owner != requesterID {
		return fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	if err := s.store.DeleteVideo(ctx, videoID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Media cleanup is best effort; the record is already gone.
	if err := s.uploader.Delete(ctx, video.VideoID); err != nil {
		log.Warn("failed to delete video asset", sl.Err(err))
	}
	if err := s.uploader.Delete(ctx, video.ThumbnailID); err != nil {
		log.Warn("failed to delete thumbnail asset", sl.Err(err))
	}

	log.Info("video deleted")
	return nil
}

// TogglePublish flips the publish flag on an owned video.
func (s *Service) TogglePublish(ctx context.Context, videoID, requesterID string) (*models.Video, error) {
	const op = "video.TogglePublish"

	video, err := s.store.VideoByID(ctx, videoID)
	if err != nil {
		if errors.Is(err, storage.ErrVideoNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrVideoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if video.Owner != requesterID {
		return nil, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	if err := s.store.SetVideoPublished(ctx, videoID, !video.IsPublished); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	video.IsPublished = !video.IsPublished
	return video, nil
}

// WatchHistory lists the user's watched videos, most recent first.
func (s *Service) WatchHistory(ctx context.Context, userID string) ([]*models.Video, error) {
	const op = "video.WatchHistory"

	videos, err := s.history.WatchHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return videos, nil
}
