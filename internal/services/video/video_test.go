package video

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"chiyabari/internal/domain/models"
	"chiyabari/internal/media"
	"chiyabari/internal/storage"
	"chiyabari/internal/storage/memory"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	mu        sync.Mutex
	uploads   int
	deleted   []string
	failAfter int // fail uploads once this many succeeded; 0 means never
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAfter > 0 && f.uploads >= f.failAfter {
		return nil, media.ErrUploadFailed
	}
	f.uploads++
	id := fmt.Sprintf("asset-%d", f.uploads)
	return &media.Asset{URL: "https://media.test/" + id, ID: id}, nil
}

func (f *fakeUploader) Delete(_ context.Context, assetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, assetID)
	return nil
}

func newService(t *testing.T, up *fakeUploader) (*Service, *memory.Storage) {
	t.Helper()

	st := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, st, st, up), st
}

func saveUser(t *testing.T, st *memory.Storage) string {
	t.Helper()

	id, err := st.SaveUser(context.Background(), &models.User{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		FullName: gofakeit.Name(),
		PassHash: "irrelevant",
	})
	require.NoError(t, err)
	return id
}

func uploadVideo(t *testing.T, s *Service, ownerID, title string) *models.Video {
	t.Helper()

	video, err := s.Upload(context.Background(), UploadParams{
		OwnerID:       ownerID,
		Title:         title,
		Description:   gofakeit.Sentence(5),
		VideoPath:     "video.mp4",
		ThumbnailPath: "thumb.jpg",
	})
	require.NoError(t, err)
	return video
}

func TestUpload(t *testing.T) {
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)

	video := uploadVideo(t, s, owner, "My first video")

	assert.NotEmpty(t, video.ID)
	assert.Equal(t, "My first video", video.Title)
	assert.Equal(t, owner, video.Owner)
	assert.True(t, video.IsPublished)
	assert.NotEmpty(t, video.VideoFile)
	assert.NotEmpty(t, video.Thumbnail)
}

func TestUpload_TitleRequired(t *testing.T) {
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)

	_, err := s.Upload(context.Background(), UploadParams{
		OwnerID:       owner,
		Title:         "   ",
		VideoPath:     "video.mp4",
		ThumbnailPath: "thumb.jpg",
	})
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestUpload_ThumbnailFailureReclaimsVideo(t *testing.T) {
	up := &fakeUploader{failAfter: 1}
	s, st := newService(t, up)
	owner := saveUser(t, st)

	_, err := s.Upload(context.Background(), UploadParams{
		OwnerID:       owner,
		Title:         "orphaned",
		VideoPath:     "video.mp4",
		ThumbnailPath: "thumb.jpg",
	})
	require.ErrorIs(t, err, media.ErrUploadFailed)

	// The already stored video asset was deleted again.
	assert.Equal(t, []string{"asset-1"}, up.deleted)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)

	video := uploadVideo(t, s, owner, "before")

	updated, err := s.Update(ctx, video.ID, owner, UpdateParams{
		Title:       "after",
		Description: "new description",
	})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, "new description", updated.Description)

	// Fields not named in the update keep their value.
	assert.Equal(t, video.Thumbnail, updated.Thumbnail)
	assert.Equal(t, video.VideoFile, updated.VideoFile)
}

func TestUpdate_PartialTitleOnly(t *testing.T) {
	ctx := context.Background()
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)

	video := uploadVideo(t, s, owner, "before")

	updated, err := s.Update(ctx, video.ID, owner, UpdateParams{Title: "after"})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)
	assert.Equal(t, video.Description, updated.Description)
}

func TestUpdate_ReplacesThumbnail(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{}
	s, st := newService(t, up)
	owner := saveUser(t, st)

	video := uploadVideo(t, s, owner, "rethumbed")

	updated, err := s.Update(ctx, video.ID, owner, UpdateParams{ThumbnailPath: "new-thumb.jpg"})
	require.NoError(t, err)
	assert.NotEqual(t, video.Thumbnail, updated.Thumbnail)
	assert.NotEqual(t, video.ThumbnailID, updated.ThumbnailID)

	// The replaced asset was reclaimed from the media store.
	assert.Equal(t, []string{video.ThumbnailID}, up.deleted)
}

func TestUpdate_NothingToUpdate(t *testing.T) {
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)

	video := uploadVideo(t, s, owner, "unchanged")

	_, err := s.Update(context.Background(), video.ID, owner, UpdateParams{})
	assert.ErrorIs(t, err, ErrNothingToUpdate)
}

func TestUpdate_NotOwner(t *testing.T) {
	ctx := context.Background()
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)
	stranger := saveUser(t, st)

	video := uploadVideo(t, s, owner, "protected")

	_, err := s.Update(ctx, video.ID, stranger, UpdateParams{Title: "hijack"})
	assert.ErrorIs(t, err, ErrNotOwner)

	stored, err := st.VideoByID(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, "protected", stored.Title)
}

func TestUpdate_NotFound(t *testing.T) {
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)

	_, err := s.Update(context.Background(), "missing", owner, UpdateParams{Title: "anything"})
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestGet_CountsViewAndRecordsHistory(t *testing.T) {
	ctx := context.Background()
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)
	watcher := saveUser(t, st)

	video := uploadVideo(t, s, owner, "watched")

	got, err := s.Get(ctx, video.ID, watcher)
	require.NoError(t, err)
	assert.Equal(t, video.ID, got.ID)

	_, err = s.Get(ctx, video.ID, watcher)
	require.NoError(t, err)

	stored, err := st.VideoByID(ctx, video.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Views)

	history, err := s.WatchHistory(ctx, watcher)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, video.ID, history[0].ID)
}

func TestWatchHistory_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)
	watcher := saveUser(t, st)

	first := uploadVideo(t, s, owner, "first")
	second := uploadVideo(t, s, owner, "second")

	_, err := s.Get(ctx, first.ID, watcher)
	require.NoError(t, err)
	_, err = s.Get(ctx, second.ID, watcher)
	require.NoError(t, err)

	// Rewatching moves the entry back to the front without duplicating it.
	_, err = s.Get(ctx, first.ID, watcher)
	require.NoError(t, err)

	history, err := s.WatchHistory(ctx, watcher)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, second.ID, history[1].ID)
}

func TestGet_NotFound(t *testing.T) {
	s, st := newService(t, &fakeUploader{})
	watcher := saveUser(t, st)

	_, err := s.Get(context.Background(), "missing", watcher)
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	up := &fakeUploader{}
	s, st := newService(t, up)
	owner := saveUser(t, st)

	video := uploadVideo(t, s, owner, "short-lived")

	require.NoError(t, s.Delete(ctx, video.ID, owner))

	_, err := st.VideoByID(ctx, video.ID)
	assert.ErrorIs(t, err, storage.ErrVideoNotFound)

	// Both media assets were removed.
	assert.ElementsMatch(t, []string{video.VideoID, video.ThumbnailID}, up.deleted)
}

func TestDelete_NotOwner(t *testing.T) {
	ctx := context.Background()
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)
	stranger := saveUser(t, st)

	video := uploadVideo(t, s, owner, "protected")

	err := s.Delete(ctx, video.ID, stranger)
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = st.VideoByID(ctx, video.ID)
	assert.NoError(t, err)
}

func TestTogglePublish(t *testing.T) {
	ctx := context.Background()
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)

	video := uploadVideo(t, s, owner, "toggled")
	require.True(t, video.IsPublished)

	toggled, err := s.TogglePublish(ctx, video.ID, owner)
	require.NoError(t, err)
	assert.False(t, toggled.IsPublished)

	// Unpublished videos drop out of the public listing.
	listed, err := s.List(ctx, storage.VideoFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)

	toggled, err = s.TogglePublish(ctx, video.ID, owner)
	require.NoError(t, err)
	assert.True(t, toggled.IsPublished)
}

func TestTogglePublish_NotOwner(t *testing.T) {
	s, st := newService(t, &fakeUploader{})
	owner := saveUser(t, st)
	stranger := saveUser(t, st)

	video := uploadVideo(t, s, owner, "protected")

	_, err := s.TogglePublish(context.Background(), video.ID, stranger)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestList_FilterByOwnerAndPaging(t *testing.T) {
	ctx := context.Background()
	s, st := newService(t, &fakeUploader{})
	alice := saveUser(t, st)
	bob := saveUser(t, st)

	for i := 0; i < 3; i++ {
		uploadVideo(t, s, alice, fmt.Sprintf("alice %d", i))
	}
	uploadVideo(t, s, bob, "bob 0")

	mine, err := s.List(ctx, storage.VideoFilter{Owner: alice})
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	page, err := s.List(ctx, storage.VideoFilter{Owner: alice, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = s.List(ctx, storage.VideoFilter{Owner: alice, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
