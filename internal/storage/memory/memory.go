// Package memory is a map-backed implementation of the storage
// interfaces, used by the service and handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"chiyabari/internal/domain/models"
	"chiyabari/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type subKey struct {
	subscriber string
	channel    string
}

type Storage struct {
	mu            sync.RWMutex
	users         map[string]*models.User
	videos        map[string]*models.Video
	subscriptions map[subKey]time.Time
}

func New() *Storage {
	return &Storage{
		users:         make(map[string]*models.User),
		videos:        make(map[string]*models.Video),
		subscriptions: make(map[subKey]time.Time),
	}
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.WatchHistory = append([]string(nil), u.WatchHistory...)
	return &c
}

func cloneVideo(v *models.Video) *models.Video {
	c := *v
	return &c
}

func (s *Storage) SaveUser(_ context.Context, user *models.User) (string, error) {
	const op = "storage.memory.SaveUser"

	s.mu.Lock()
	defer s.mu.Unlock()

	username := normalize(user.Username)
	email := normalize(user.Email)
	for _, existing := range s.users {
		if existing.Username == username || existing.Email == email {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
	}

	now := time.Now()
	id := bson.NewObjectID().Hex()
	s.users[id] = &models.User{
		ID:           id,
		Username:     username,
		Email:        email,
		FullName:     strings.TrimSpace(user.FullName),
		Avatar:       user.Avatar,
		CoverImage:   user.CoverImage,
		PassHash:     user.PassHash,
		WatchHistory: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return id, nil
}

func (s *Storage) UserByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	const op = "storage.memory.UserByIdentifier"

	s.mu.RLock()
	defer s.mu.RUnlock()

	ident := normalize(identifier)
	for _, u := range s.users {
		if u.Username == ident || u.Email == ident {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
}

func (s *Storage) UserByID(_ context.Context, userID string) (*models.User, error) {
	const op = "storage.memory.UserByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return cloneUser(u), nil
}

func (s *Storage) SetRefreshToken(_ context.Context, userID, token string) error {
	const op = "storage.memory.SetRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	u.RefreshToken = token
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) RotateRefreshToken(_ context.Context, userID, oldToken, newToken string) error {
	const op = "storage.memory.RotateRefreshToken"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok || u.RefreshToken != oldToken {
		return fmt.Errorf("%s: %w", op, storage.ErrRefreshTokenMismatch)
	}
	u.RefreshToken = newToken
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[userID]; ok {
		u.RefreshToken = ""
		u.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Storage) UpdatePassHash(_ context.Context, userID, passHash string) error {
	const op = "storage.memory.UpdatePassHash"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	u.PassHash = passHash
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) UpdateAccount(_ context.Context, userID, fullName, email string) error {
	const op = "storage.memory.UpdateAccount"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	norm := normalize(email)
	for id, existing := range s.users {
		if id != userID && existing.Email == norm {
			return fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
	}

	u.FullName = strings.TrimSpace(fullName)
	u.Email = norm
	u.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) SaveVideo(_ context.Context, video *models.Video) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	id := bson.NewObjectID().Hex()
	v := cloneVideo(video)
	v.ID = id
	v.CreatedAt = now
	v.UpdatedAt = now
	s.videos[id] = v
	return id, nil
}

func (s *Storage) VideoByID(_ context.Context, videoID string) (*models.Video, error) {
	const op = "storage.memory.VideoByID"

	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}
	return cloneVideo(v), nil
}

func (s *Storage) Videos(_ context.Context, filter storage.VideoFilter) ([]*models.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Video
	for _, v := range s.videos {
		if !v.IsPublished {
			continue
		}
		if filter.Owner != "" && v.Owner != filter.Owner {
			continue
		}
		out = append(out, cloneVideo(v))
	}

	sort.Slice(out, func(i, j int) bool {
		var less bool
		switch filter.SortBy {
		case "views":
			less = out[i].Views < out[j].Views
		case "title":
			less = out[i].Title < out[j].Title
		default:
			less = out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if filter.Ascending {
			return less
		}
		return !less
	})

	offset := filter.Offset()
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + filter.PageSize()
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (s *Storage) UpdateVideo(_ context.Context, videoID string, upd storage.VideoUpdate) error {
	const op = "storage.memory.UpdateVideo"

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[videoID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	if upd.Title != "" {
		v.Title = upd.Title
	}
	if upd.Description != "" {
		v.Description = upd.Description
	}
	if upd.Thumbnail != "" {
		v.Thumbnail = upd.Thumbnail
		v.ThumbnailID = upd.ThumbnailID
	}
	v.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) DeleteVideo(_ context.Context, videoID string) error {
	const op = "storage.memory.DeleteVideo"

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[videoID]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}
	delete(s.videos, videoID)
	return nil
}

func (s *Storage) SetVideoPublished(_ context.Context, videoID string, published bool) error {
	const op = "storage.memory.SetVideoPublished"

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.videos[videoID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}
	v.IsPublished = published
	v.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) IncrementViews(_ context.Context, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.videos[videoID]; ok {
		v.Views++
	}
	return nil
}

func (s *Storage) PushWatchHistory(_ context.Context, userID, videoID string) error {
	const op = "storage.memory.PushWatchHistory"

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	history := make([]string, 0, len(u.WatchHistory)+1)
	history = append(history, videoID)
	for _, id := range u.WatchHistory {
		if id != videoID {
			history = append(history, id)
		}
	}
	u.WatchHistory = history
	return nil
}

func (s *Storage) WatchHistory(_ context.Context, userID string) ([]*models.Video, error) {
	const op = "storage.memory.WatchHistory"

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	out := make([]*models.Video, 0, len(u.WatchHistory))
	for _, id := range u.WatchHistory {
		if v, ok := s.videos[id]; ok {
			out = append(out, cloneVideo(v))
		}
	}
	return out, nil
}

func (s *Storage) SaveSubscription(_ context.Context, subscriberID, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subKey{subscriber: subscriberID, channel: channelID}
	if _, ok := s.subscriptions[key]; !ok {
		s.subscriptions[key] = time.Now()
	}
	return nil
}

func (s *Storage) DeleteSubscription(_ context.Context, subscriberID, channelID string) error {
	const op = "storage.memory.DeleteSubscription"

	s.mu.Lock()
	defer s.mu.Unlock()

	key := subKey{subscriber: subscriberID, channel: channelID}
	if _, ok := s.subscriptions[key]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}
	delete(s.subscriptions, key)
	return nil
}

func (s *Storage) IsSubscribed(_ context.Context, subscriberID, channelID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.subscriptions[subKey{subscriber: subscriberID, channel: channelID}]
	return ok, nil
}

func (s *Storage) SubscribedChannels(_ context.Context, subscriberID string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*models.User
	for key := range s.subscriptions {
		if key.subscriber != subscriberID {
			continue
		}
		if u, ok := s.users[key.channel]; ok {
			users = append(users, cloneUser(u))
		}
	}
	return users, nil
}

func (s *Storage) Subscribers(_ context.Context, channelID string) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []*models.User
	for key := range s.subscriptions {
		if key.channel != channelID {
			continue
		}
		if u, ok := s.users[key.subscriber]; ok {
			users = append(users, cloneUser(u))
		}
	}
	return users, nil
}
