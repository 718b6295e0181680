// Package subscription manages the subscriber→channel edges between users.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chiyabari/internal/domain/models"
	"chiyabari/internal/lib/sl"
	"chiyabari/internal/storage"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrSelfSubscription = errors.New("cannot subscribe to your own channel")
)

type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, subscriberID, channelID string) error
	DeleteSubscription(ctx context.Context, subscriberID, channelID string) error
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]*models.User, error)
	Subscribers(ctx context.Context, channelID string) ([]*models.User, error)
}

type UserProvider interface {
	UserByID(ctx context.Context, userID string) (*models.User, error)
}

type Service struct {
	logger *slog.Logger
	store  SubscriptionStore
	users  UserProvider
}

func New(logger *slog.Logger, store SubscriptionStore, users UserProvider) *Service {
	return &Service{
		logger: logger,
		store:  store,
		users:  users,
	}
}

// Toggle subscribes when no edge exists and unsubscribes when one does.
// Returns the resulting subscribed state.
func (s *Service) Toggle(ctx context.Context, subscriberID, channelID string) (bool, error) {
	const op = "subscription.Toggle"
	log := s.logger.With(
		slog.String("op", op),
		slog.String("subscriberID", subscriberID),
		slog.String("channelID", channelID),
	)

	if subscriberID == channelID {
		return false, fmt.Errorf("%s: %w", op, ErrSelfSubscription)
	}

	if _, err := s.users.UserByID(ctx, channelID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return false, fmt.Errorf("%s: %w", op, ErrChannelNotFound)
		}
		log.Error("failed to get channel", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	subscribed, err := s.store.IsSubscribed(ctx, subscriberID, channelID)
	if err != nil {
		log.Error("failed to check subscription", sl.Err(err))
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if subscribed {
		if err := s.store.DeleteSubscription(ctx, subscriberID, channelID); err != nil &&
			!errors.Is(err, storage.ErrSubscriptionNotFound) {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("unsubscribed")
		return false, nil
	}

	if err := s.store.SaveSubscription(ctx, subscriberID, channelID); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("subscribed")
	return true, nil
}

// SubscribedChannels lists the channels a user follows, public projection.
func (s *Service) SubscribedChannels(ctx context.Context, subscriberID string) ([]*models.PublicUser, error) {
	const op = "subscription.SubscribedChannels"

	users, err := s.store.SubscribedChannels(ctx, subscriberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return publicUsers(users), nil
}

// Subscribers lists a channel's followers, public projection.
func (s *Service) Subscribers(ctx context.Context, channelID string) ([]*models.PublicUser, error) {
	const op = "subscription.Subscribers"

	if _, err := s.users.UserByID(ctx, channelID); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrChannelNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	users, err := s.store.Subscribers(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return publicUsers(users), nil
}

func publicUsers(users []*models.User) []*models.PublicUser {
	out := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}
