package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"chiyabari/internal/domain/models"
	"chiyabari/internal/storage"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type Storage struct {
	client        *mongo.Client
	database      *mongo.Database
	users         *mongo.Collection
	videos        *mongo.Collection
	subscriptions *mongo.Collection
}

type userDoc struct {
	ID           bson.ObjectID   `bson:"_id,omitempty"`
	Username     string          `bson:"username"`
	Email        string          `bson:"email"`
	FullName     string          `bson:"full_name"`
	Avatar       string          `bson:"avatar"`
	CoverImage   string          `bson:"cover_image,omitempty"`
	PassHash     string          `bson:"pass_hash"`
	RefreshToken string          `bson:"refresh_token"`
	WatchHistory []bson.ObjectID `bson:"watch_history"`
	CreatedAt    time.Time       `bson:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at"`
}

type videoDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	VideoFile   string        `bson:"video_file"`
	VideoID     string        `bson:"video_id"`
	Thumbnail   string        `bson:"thumbnail"`
	ThumbnailID string        `bson:"thumbnail_id"`
	Title       string        `bson:"title"`
	Description string        `bson:"description,omitempty"`
	Duration    float64       `bson:"duration"`
	Views       int64         `bson:"views"`
	IsPublished bool          `bson:"is_published"`
	Owner       bson.ObjectID `bson:"owner"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
}

type subscriptionDoc struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	Subscriber bson.ObjectID `bson:"subscriber"`
	Channel    bson.ObjectID `bson:"channel"`
	CreatedAt  time.Time     `bson:"created_at"`
}

// New creates a new MongoDB storage instance and sets up indexes.
func New(ctx context.Context, uri, database string) (*Storage, error) {
	const op = "storage.mongodb.New"

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	db := client.Database(database)
	s := &Storage{
		client:        client,
		database:      db,
		users:         db.Collection("users"),
		videos:        db.Collection("videos"),
		subscriptions: db.Collection("subscriptions"),
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("%s: indexes: %w", op, err)
	}

	return s, nil
}

// EnsureIndexes creates the unique and lookup indexes the queries rely on.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.username index: %w", err)
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("users.email index: %w", err)
	}

	_, err = s.videos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("videos.owner index: %w", err)
	}

	_, err = s.subscriptions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("subscriptions compound index: %w", err)
	}

	_, err = s.subscriptions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "channel", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("subscriptions.channel index: %w", err)
	}

	return nil
}

// Close disconnects from MongoDB.
func (s *Storage) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// normalize lowercases and trims an identifier. Usernames and emails
// are stored normalized, which makes the unique indexes case-insensitive.
func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

func parseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, storage.ErrInvalidID
	}
	return oid, nil
}

func (d *userDoc) toModel() *models.User {
	history := make([]string, 0, len(d.WatchHistory))
	for _, id := range d.WatchHistory {
		history = append(history, id.Hex())
	}
	return &models.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		Avatar:       d.Avatar,
		CoverImage:   d.CoverImage,
		PassHash:     d.PassHash,
		RefreshToken: d.RefreshToken,
		WatchHistory: history,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d *videoDoc) toModel() *models.Video {
	return &models.Video{
		ID:          d.ID.Hex(),
		VideoFile:   d.VideoFile,
		VideoID:     d.VideoID,
		Thumbnail:   d.Thumbnail,
		ThumbnailID: d.ThumbnailID,
		Title:       d.Title,
		Description: d.Description,
		Duration:    d.Duration,
		Views:       d.Views,
		IsPublished: d.IsPublished,
		Owner:       d.Owner.Hex(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// SaveUser inserts a new user and returns the generated id.
func (s *Storage) SaveUser(ctx context.Context, user *models.User) (string, error) {
	const op = "storage.mongodb.SaveUser"

	now := time.Now()
	doc := userDoc{
		Username:     normalize(user.Username),
		Email:        normalize(user.Email),
		FullName:     strings.TrimSpace(user.FullName),
		Avatar:       user.Avatar,
		CoverImage:   user.CoverImage,
		PassHash:     user.PassHash,
		WatchHistory: []bson.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if isDuplicateKeyError(err) {
			return "", fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("%s: unexpected inserted id type", op)
	}
	return oid.Hex(), nil
}

// UserByIdentifier looks a user up by username or email.
func (s *Storage) UserByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	const op = "storage.mongodb.UserByIdentifier"

	ident := normalize(identifier)
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "username", Value: ident}},
		bson.D{{Key: "email", Value: ident}},
	}}}

	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

// UserByID retrieves a user by id.
func (s *Storage) UserByID(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.mongodb.UserByID"

	oid, err := parseID(userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	var doc userDoc
	err = s.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

// SetRefreshToken stores the current refresh token, replacing any prior
// session's token.
func (s *Storage) SetRefreshToken(ctx context.Context, userID, token string) error {
	const op = "storage.mongodb.SetRefreshToken"

	oid, err := parseID(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "refresh_token", Value: token},
			{Key: "updated_at", Value: time.Now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// RotateRefreshToken replaces oldToken with newToken in one conditional
// update. Two concurrent refreshers both pass the equality check only
// until the first write lands; the loser matches nothing and gets
// ErrRefreshTokenMismatch.
func (s *Storage) RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error {
	const op = "storage.mongodb.RotateRefreshToken"

	oid, err := parseID(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.users.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: oid},
			{Key: "refresh_token", Value: oldToken},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "refresh_token", Value: newToken},
			{Key: "updated_at", Value: time.Now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrRefreshTokenMismatch)
	}
	return nil
}

// ClearRefreshToken removes the stored refresh token. Clearing an
// already-empty token is a no-op, which makes logout idempotent.
func (s *Storage) ClearRefreshToken(ctx context.Context, userID string) error {
	const op = "storage.mongodb.ClearRefreshToken"

	oid, err := parseID(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "refresh_token", Value: ""},
			{Key: "updated_at", Value: time.Now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePassHash stores a freshly derived password hash.
func (s *Storage) UpdatePassHash(ctx context.Context, userID, passHash string) error {
	const op = "storage.mongodb.UpdatePassHash"

	oid, err := parseID(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "pass_hash", Value: passHash},
			{Key: "updated_at", Value: time.Now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// UpdateAccount stores new profile fields. The unique email index turns
// a duplicate into ErrUserAlreadyExists.
func (s *Storage) UpdateAccount(ctx context.Context, userID, fullName, email string) error {
	const op = "storage.mongodb.UpdateAccount"

	oid, err := parseID(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "full_name", Value: strings.TrimSpace(fullName)},
			{Key: "email", Value: normalize(email)},
			{Key: "updated_at", Value: time.Now()},
		}}},
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrUserAlreadyExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// SaveVideo inserts a new video and returns the generated id.
func (s *Storage) SaveVideo(ctx context.Context, video *models.Video) (string, error) {
	const op = "storage.mongodb.SaveVideo"

	owner, err := parseID(video.Owner)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := time.Now()
	doc := videoDoc{
		VideoFile:   video.VideoFile,
		VideoID:     video.VideoID,
		Thumbnail:   video.Thumbnail,
		ThumbnailID: video.ThumbnailID,
		Title:       video.Title,
		Description: video.Description,
		Duration:    video.Duration,
		IsPublished: video.IsPublished,
		Owner:       owner,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	res, err := s.videos.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	oid, ok := res.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("%s: unexpected inserted id type", op)
	}
	return oid.Hex(), nil
}

// VideoByID retrieves a video by id.
func (s *Storage) VideoByID(ctx context.Context, videoID string) (*models.Video, error) {
	const op = "storage.mongodb.VideoByID"

	oid, err := parseID(videoID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	var doc videoDoc
	err = s.videos.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toModel(), nil
}

// Videos lists published videos, optionally restricted to one owner,
// sorted and paginated.
func (s *Storage) Videos(ctx context.Context, filter storage.VideoFilter) ([]*models.Video, error) {
	const op = "storage.mongodb.Videos"

	query := bson.D{{Key: "is_published", Value: true}}
	if filter.Owner != "" {
		owner, err := parseID(filter.Owner)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		query = append(query, bson.E{Key: "owner", Value: owner})
	}

	sortField := filter.SortBy
	if sortField == "" {
		sortField = "created_at"
	}
	order := -1
	if filter.Ascending {
		order = 1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: order}}).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.PageSize()))

	cursor, err := s.videos.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var out []*models.Video
	for cursor.Next(ctx) {
		var doc videoDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// UpdateVideo applies a partial update, setting only the non-empty
// fields.
func (s *Storage) UpdateVideo(ctx context.Context, videoID string, upd storage.VideoUpdate) error {
	const op = "storage.mongodb.UpdateVideo"

	oid, err := parseID(videoID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	set := bson.D{{Key: "updated_at", Value: time.Now()}}
	if upd.Title != "" {
		set = append(set, bson.E{Key: "title", Value: upd.Title})
	}
	if upd.Description != "" {
		set = append(set, bson.E{Key: "description", Value: upd.Description})
	}
	if upd.Thumbnail != "" {
		set = append(set, bson.E{Key: "thumbnail", Value: upd.Thumbnail})
		set = append(set, bson.E{Key: "thumbnail_id", Value: upd.ThumbnailID})
	}

	res, err := s.videos.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}
	return nil
}

// DeleteVideo removes a video document.
func (s *Storage) DeleteVideo(ctx context.Context, videoID string) error {
	const op = "storage.mongodb.DeleteVideo"

	oid, err := parseID(videoID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	res, err := s.videos.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}
	return nil
}

// SetVideoPublished flips the publish flag.
func (s *Storage) SetVideoPublished(ctx context.Context, videoID string, published bool) error {
	const op = "storage.mongodb.SetVideoPublished"

	oid, err := parseID(videoID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	res, err := s.videos.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "is_published", Value: published},
			{Key: "updated_at", Value: time.Now()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}
	return nil
}

// IncrementViews bumps the view counter by one.
func (s *Storage) IncrementViews(ctx context.Context, videoID string) error {
	const op = "storage.mongodb.IncrementViews"

	oid, err := parseID(videoID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	_, err = s.videos.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "views", Value: int64(1)}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// PushWatchHistory records a view at the head of the user's watch
// history, removing any earlier occurrence first so the list stays
// deduplicated and most-recent-first.
func (s *Storage) PushWatchHistory(ctx context.Context, userID, videoID string) error {
	const op = "storage.mongodb.PushWatchHistory"

	uid, err := parseID(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	vid, err := parseID(videoID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrVideoNotFound)
	}

	// $pull and $push cannot target the same field in a single update.
	_, err = s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: uid}},
		bson.D{{Key: "$pull", Value: bson.D{{Key: "watch_history", Value: vid}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: pull: %w", op, err)
	}

	res, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: uid}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "watch_history", Value: bson.D{
			{Key: "$each", Value: bson.A{vid}},
			{Key: "$position", Value: 0},
		}}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: push: %w", op, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

// WatchHistory resolves the user's watch history to videos, preserving
// the stored most-recent-first order.
func (s *Storage) WatchHistory(ctx context.Context, userID string) ([]*models.Video, error) {
	const op = "storage.mongodb.WatchHistory"

	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]*models.Video, 0, len(user.WatchHistory))
	for _, id := range user.WatchHistory {
		video, err := s.VideoByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrVideoNotFound) {
				continue // deleted since it was watched
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, video)
	}
	return out, nil
}

// SaveSubscription inserts a subscriber→channel edge.
func (s *Storage) SaveSubscription(ctx context.Context, subscriberID, channelID string) error {
	const op = "storage.mongodb.SaveSubscription"

	sub, err := parseID(subscriberID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ch, err := parseID(channelID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	doc := subscriptionDoc{
		Subscriber: sub,
		Channel:    ch,
		CreatedAt:  time.Now(),
	}
	if _, err := s.subscriptions.InsertOne(ctx, doc); err != nil {
		if isDuplicateKeyError(err) {
			return nil // already subscribed
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteSubscription removes a subscriber→channel edge.
func (s *Storage) DeleteSubscription(ctx context.Context, subscriberID, channelID string) error {
	const op = "storage.mongodb.DeleteSubscription"

	sub, err := parseID(subscriberID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	ch, err := parseID(channelID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.subscriptions.DeleteOne(ctx, bson.D{
		{Key: "subscriber", Value: sub},
		{Key: "channel", Value: ch},
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrSubscriptionNotFound)
	}
	return nil
}

// IsSubscribed reports whether the edge exists.
func (s *Storage) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	const op = "storage.mongodb.IsSubscribed"

	sub, err := parseID(subscriberID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := parseID(channelID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	err = s.subscriptions.FindOne(ctx, bson.D{
		{Key: "subscriber", Value: sub},
		{Key: "channel", Value: ch},
	}).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// SubscribedChannels lists users the subscriber follows.
func (s *Storage) SubscribedChannels(ctx context.Context, subscriberID string) ([]*models.User, error) {
	const op = "storage.mongodb.SubscribedChannels"
	return s.subscriptionUsers(ctx, op, "subscriber", "channel", subscriberID)
}

// Subscribers lists users following the channel.
func (s *Storage) Subscribers(ctx context.Context, channelID string) ([]*models.User, error) {
	const op = "storage.mongodb.Subscribers"
	return s.subscriptionUsers(ctx, op, "channel", "subscriber", channelID)
}

func (s *Storage) subscriptionUsers(ctx context.Context, op, matchField, pickField, id string) ([]*models.User, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cursor, err := s.subscriptions.Find(ctx, bson.D{{Key: matchField, Value: oid}})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var doc subscriptionDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		picked := doc.Channel
		if pickField == "subscriber" {
			picked = doc.Subscriber
		}
		user, err := s.UserByID(ctx, picked.Hex())
		if err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				continue // account deleted after subscribing
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, user)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// isDuplicateKeyError checks if the error is a MongoDB duplicate key error (code 11000).
func isDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
