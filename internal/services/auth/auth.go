// Package auth is the session manager: login, logout, refresh rotation
// and credential changes all go through here. It is the only writer of
// the stored refresh token.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chiyabari/internal/domain/models"
	"chiyabari/internal/lib/jwt"
	"chiyabari/internal/lib/passhash"
	"chiyabari/internal/lib/sl"
	"chiyabari/internal/media"
	"chiyabari/internal/storage"
)

var (
	// ErrInvalidCredentials covers both unknown identifier and wrong
	// password. Callers must not be able to tell the cases apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("token invalid")
	// ErrReuseDetected means a presented refresh token verified
	// cryptographically but no longer matches the stored value: it was
	// already rotated, or stolen and replayed.
	ErrReuseDetected    = errors.New("refresh token reuse detected")
	ErrPasswordMismatch = errors.New("new password and confirmation do not match")
	ErrIntegrity        = errors.New("credential record integrity error")
	ErrAvatarRequired   = errors.New("avatar is required")
)

// decoyHash is a valid bcrypt hash verified against when the identifier
// resolves to no user, so the unknown-user path costs the same as a
// wrong password.
const decoyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type UserSaver interface {
	SaveUser(ctx context.Context, user *models.User) (string, error)
	UpdatePassHash(ctx context.Context, userID, passHash string) error
	UpdateAccount(ctx context.Context, userID, fullName, email string) error
}

type UserProvider interface {
	UserByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	UserByID(ctx context.Context, userID string) (*models.User, error)
}

type SessionStore interface {
	SetRefreshToken(ctx context.Context, userID, token string) error
	RotateRefreshToken(ctx context.Context, userID, oldToken, newToken string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

type Auth struct {
	logger       *slog.Logger
	userSaver    UserSaver
	userProvider UserProvider
	sessions     SessionStore
	uploader     media.Uploader
	tokens       *jwt.Manager
	hasher       *passhash.Hasher
}

// New returns a new instance of the Auth service.
func New(
	logger *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	sessions SessionStore,
	uploader media.Uploader,
	tokens *jwt.Manager,
	hasher *passhash.Hasher,
) *Auth {
	return &Auth{
		logger:       logger,
		userSaver:    userSaver,
		userProvider: userProvider,
		sessions:     sessions,
		uploader:     uploader,
		tokens:       tokens,
		hasher:       hasher,
	}
}

// RegisterParams is the validated register input. Avatar is required;
// both paths are local temp files handed to the media store.
type RegisterParams struct {
	Username       string
	Email          string
	FullName       string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

func (a *Auth) Register(ctx context.Context, params RegisterParams) (*models.PublicUser, error) {
	const op = "auth.Register"
	log := a.logger.With(
		slog.String("op", op),
		slog.String("username", params.Username),
	)
	log.Info("register request")

	if params.AvatarPath == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrAvatarRequired)
	}

	passHash, err := a.hasher.Hash(params.Password)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	avatar, err := a.uploader.Upload(ctx, params.AvatarPath)
	if err != nil {
		log.Error("avatar upload failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	coverImage := ""
	if params.CoverImagePath != "" {
		cover, err := a.uploader.Upload(ctx, params.CoverImagePath)
		if err != nil {
			log.Error("cover image upload failed", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		coverImage = cover.URL
	}

	user := &models.User{
		Username:   params.Username,
		Email:      params.Email,
		FullName:   params.FullName,
		Avatar:     avatar.URL,
		CoverImage: coverImage,
		PassHash:   passHash,
	}

	id, err := a.userSaver.SaveUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			log.Warn("user already exists", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
		}
		log.Error("failed to save user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created, err := a.userProvider.UserByID(ctx, id)
	if err != nil {
		log.Error("failed to load created user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("userID", id))

	return created.Public(), nil
}

// Login resolves the identifier as username or email, verifies the
// password and mints a fresh token pair. The new refresh token replaces
// whatever was stored, so any previous device's session is implicitly
// invalidated.
func (a *Auth) Login(ctx context.Context, identifier, password string) (*models.TokenPair, *models.PublicUser, error) {
	const op = "auth.Login"
	log := a.logger.With(slog.String("op", op))
	log.Info("login request")

	user, err := a.userProvider.UserByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Burn a hash comparison anyway so this path is not
			// observably faster than a wrong password.
			_, _ = a.hasher.Verify(password, decoyHash)
			log.Warn("user not found")
			return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	ok, err := a.hasher.Verify(password, user.PassHash)
	if err != nil {
		log.Error("stored hash is malformed", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrIntegrity)
	}
	if !ok {
		log.Warn("invalid password", slog.String("userID", user.ID))
		return nil, nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := a.issueTokens(ctx, user)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in", slog.String("userID", user.ID))

	return pair, user.Public(), nil
}

// Refresh exchanges a valid refresh token for a new pair, rotating the
// stored token. The old token becomes permanently unusable the moment
// the new one is stored, even if unexpired.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "auth.Refresh"
	log := a.logger.With(slog.String("op", op))
	log.Info("refresh request")

	if refreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	userID, err := a.tokens.ParseRefreshToken(refreshToken)
	if err != nil {
		log.Warn("refresh token rejected", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, mapTokenErr(err))
	}

	user, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user no longer exists", slog.String("userID", userID))
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		log.Error("failed to get user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.RefreshToken == "" {
		// Session was cleared by logout; nothing to revoke.
		log.Warn("no active session", slog.String("userID", userID))
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	if user.RefreshToken != refreshToken {
		log.Warn("refresh token reuse detected, forcing re-login",
			slog.String("userID", userID))
		return nil, fmt.Errorf("%s: %w", op, ErrReuseDetected)
	}

	newRefresh, err := a.tokens.NewRefreshToken(userID)
	if err != nil {
		log.Error("failed to generate refresh token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Conditional rotation: of two concurrent refreshers only one can
	// match the old value, the other surfaces as reuse.
	if err := a.sessions.RotateRefreshToken(ctx, userID, refreshToken, newRefresh); err != nil {
		if errors.Is(err, storage.ErrRefreshTokenMismatch) {
			log.Warn("lost rotation race, treating as reuse",
				slog.String("userID", userID))
			return nil, fmt.Errorf("%s: %w", op, ErrReuseDetected)
		}
		log.Error("failed to rotate refresh token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := a.tokens.NewAccessToken(user)
	if err != nil {
		log.Error("failed to generate access token", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("tokens refreshed", slog.String("userID", userID))

	return &models.TokenPair{AccessToken: accessToken, RefreshToken: newRefresh}, nil
}

// Logout clears the stored refresh token. Best effort: a failed clear is
// logged but reported as success so the client is never stranded with a
// session it cannot end.
func (a *Auth) Logout(ctx context.Context, userID string) error {
	const op = "auth.Logout"
	log := a.logger.With(slog.String("op", op), slog.String("userID", userID))

	if err := a.sessions.ClearRefreshToken(ctx, userID); err != nil {
		log.Error("failed to clear refresh token", sl.Err(err))
		return nil
	}

	log.Info("user logged out")
	return nil
}

// ChangePassword verifies the old password and stores a hash of the new
// one. The refresh token is left untouched: with a single active session
// per account there is no other device to force out.
func (a *Auth) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirmPassword string) error {
	const op = "auth.ChangePassword"
	log := a.logger.With(slog.String("op", op), slog.String("userID", userID))

	if newPassword != confirmPassword {
		return fmt.Errorf("%s: %w", op, ErrPasswordMismatch)
	}

	user, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUnauthorized)
		}
		log.Error("failed to get user", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	ok, err := a.hasher.Verify(oldPassword, user.PassHash)
	if err != nil {
		log.Error("stored hash is malformed", sl.Err(err))
		return fmt.Errorf("%s: %w", op, ErrIntegrity)
	}
	if !ok {
		log.Warn("old password rejected")
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	passHash, err := a.hasher.Hash(newPassword)
	if err != nil {
		log.Error("failed to hash password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.userSaver.UpdatePassHash(ctx, userID, passHash); err != nil {
		log.Error("failed to store password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password changed")
	return nil
}

// UpdateAccount stores new profile details and returns the updated
// public projection. A duplicate email surfaces as ErrUserAlreadyExists.
func (a *Auth) UpdateAccount(ctx context.Context, userID, fullName, email string) (*models.PublicUser, error) {
	const op = "auth.UpdateAccount"
	log := a.logger.With(slog.String("op", op), slog.String("userID", userID))

	if err := a.userSaver.UpdateAccount(ctx, userID, fullName, email); err != nil {
		switch {
		case errors.Is(err, storage.ErrUserNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
		case errors.Is(err, storage.ErrUserAlreadyExists):
			log.Warn("email already taken")
			return nil, fmt.Errorf("%s: %w", op, ErrUserAlreadyExists)
		default:
			log.Error("failed to update account", sl.Err(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	user, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		log.Error("failed to load updated user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account updated")
	return user.Public(), nil
}

// UserByID loads the public projection for the given id.
func (a *Auth) UserByID(ctx context.Context, userID string) (*models.PublicUser, error) {
	const op = "auth.UserByID"

	user, err := a.userProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user.Public(), nil
}

// VerifyAccessToken is the auth guard's verification entry point.
func (a *Auth) VerifyAccessToken(tokenString string) (*jwt.AccessClaims, error) {
	claims, err := a.tokens.ParseAccessToken(tokenString)
	if err != nil {
		return nil, mapTokenErr(err)
	}
	return claims, nil
}

func (a *Auth) issueTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	accessToken, err := a.tokens.NewAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := a.tokens.NewRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	if err := a.sessions.SetRefreshToken(ctx, user.ID, refreshToken); err != nil {
		return nil, err
	}

	return &models.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func mapTokenErr(err error) error {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrInvalid):
		return ErrTokenInvalid
	default:
		return err
	}
}
