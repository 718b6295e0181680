package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"chiyabari/internal/config"
	"chiyabari/internal/domain/models"
	"chiyabari/internal/lib/jwt"
	"chiyabari/internal/lib/passhash"
	"chiyabari/internal/media"
	"chiyabari/internal/storage/memory"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeUploader struct {
	mu      sync.Mutex
	uploads int
	deleted []string
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (*media.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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

func newAuth(t *testing.T, accessTTL, refreshTTL time.Duration) (*Auth, *memory.Storage) {
	t.Helper()

	st := memory.New()
	tokens := jwt.NewManager(config.AuthConfig{
		AccessSecret:  "access-test-secret",
		RefreshSecret: "refresh-test-secret",
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := New(log, st, st, st, &fakeUploader{}, tokens, passhash.New(bcrypt.MinCost))
	return a, st
}

func registerUser(t *testing.T, a *Auth, password string) *models.PublicUser {
	t.Helper()

	user, err := a.Register(context.Background(), RegisterParams{
		Username:   gofakeit.Username(),
		Email:      gofakeit.Email(),
		FullName:   gofakeit.Name(),
		Password:   password,
		AvatarPath: "avatar.png",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	return user
}

func TestRegisterLogin(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)
	assert.NotEmpty(t, user.Avatar)

	pair, loggedIn, err := a.Login(ctx, user.Username, password)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, user.ID, loggedIn.ID)

	// The access token must resolve back to the same identity.
	claims, err := a.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)
	assert.Equal(t, user.Username, claims.Username)
}

func TestLogin_ByEmail(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)

	_, loggedIn, err := a.Login(ctx, user.Email, password)
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
}

func TestRegister_Duplicate(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	params := RegisterParams{
		Username:   gofakeit.Username(),
		Email:      gofakeit.Email(),
		FullName:   gofakeit.Name(),
		Password:   randomPassword(),
		AvatarPath: "avatar.png",
	}

	_, err := a.Register(ctx, params)
	require.NoError(t, err)

	_, err = a.Register(ctx, params)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestRegister_AvatarRequired(t *testing.T) {
	a, _ := newAuth(t, time.Minute, time.Hour)

	_, err := a.Register(context.Background(), RegisterParams{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		FullName: gofakeit.Name(),
		Password: randomPassword(),
	})
	assert.ErrorIs(t, err, ErrAvatarRequired)
}

func TestLogin_EnumerationResistance(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	user := registerUser(t, a, randomPassword())

	// Unknown identifier and wrong password must be indistinguishable.
	_, _, unknownErr := a.Login(ctx, "no-such-user", randomPassword())
	_, _, wrongPassErr := a.Login(ctx, user.Username, "definitely wrong")

	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)

	pair1, _, err := a.Login(ctx, user.Username, password)
	require.NoError(t, err)

	pair2, err := a.Refresh(ctx, pair1.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, pair2.AccessToken)
	require.NotEmpty(t, pair2.RefreshToken)
	assert.NotEqual(t, pair1.RefreshToken, pair2.RefreshToken)

	// The rotated-out token is dead even though it is still unexpired.
	_, err = a.Refresh(ctx, pair1.RefreshToken)
	assert.ErrorIs(t, err, ErrReuseDetected)

	// The current token keeps working.
	pair3, err := a.Refresh(ctx, pair2.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair2.RefreshToken, pair3.RefreshToken)
}

func TestRefresh_FailCases(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	tests := []struct {
		name        string
		token       string
		expectedErr error
	}{
		{
			name:        "Empty token",
			token:       "",
			expectedErr: ErrUnauthorized,
		},
		{
			name:        "Garbage token",
			token:       "not-a-jwt-at-all",
			expectedErr: ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Refresh(ctx, tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestRefresh_Expired(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, -time.Minute)

	password := randomPassword()
	user := registerUser(t, a, password)

	pair, _, err := a.Login(ctx, user.Username, password)
	require.NoError(t, err)

	_, err = a.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestLogoutThenRefresh(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)

	pair, _, err := a.Login(ctx, user.Username, password)
	require.NoError(t, err)

	require.NoError(t, a.Logout(ctx, user.ID))

	// Logout cleared the stored token, so the client's copy verifies
	// cryptographically but there is no session left to rotate.
	_, err = a.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	user := registerUser(t, a, randomPassword())

	require.NoError(t, a.Logout(ctx, user.ID))
	require.NoError(t, a.Logout(ctx, user.ID))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	oldPassword := randomPassword()
	newPassword := randomPassword()
	user := registerUser(t, a, oldPassword)

	err := a.ChangePassword(ctx, user.ID, oldPassword, newPassword, newPassword)
	require.NoError(t, err)

	_, _, err = a.Login(ctx, user.Username, oldPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = a.Login(ctx, user.Username, newPassword)
	assert.NoError(t, err)
}

func TestChangePassword_ConfirmationMismatch(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)

	err := a.ChangePassword(ctx, user.ID, password, "new-password", "different")
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	// Nothing was mutated: the old password still logs in.
	_, _, err = a.Login(ctx, user.Username, password)
	assert.NoError(t, err)
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)

	err := a.ChangePassword(ctx, user.ID, "wrong old", "new-password", "new-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = a.Login(ctx, user.Username, password)
	assert.NoError(t, err)
}

func TestChangePassword_KeepsSession(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)

	pair, _, err := a.Login(ctx, user.Username, password)
	require.NoError(t, err)

	newPassword := randomPassword()
	require.NoError(t, a.ChangePassword(ctx, user.ID, password, newPassword, newPassword))

	// The refresh token is untouched by a password change.
	_, err = a.Refresh(ctx, pair.RefreshToken)
	assert.NoError(t, err)
}

func TestUpdateAccount(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)

	newEmail := gofakeit.Email()
	updated, err := a.UpdateAccount(ctx, user.ID, "New Name", newEmail)
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.FullName)
	assert.Equal(t, strings.ToLower(newEmail), updated.Email)

	// The new email works as a login identifier, the old one is gone.
	_, _, err = a.Login(ctx, newEmail, password)
	assert.NoError(t, err)

	_, _, err = a.Login(ctx, user.Email, password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateAccount_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)
	other := registerUser(t, a, randomPassword())

	_, err := a.UpdateAccount(ctx, user.ID, user.FullName, other.Email)
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	// Nothing was mutated: the original email still logs in.
	_, _, err = a.Login(ctx, user.Email, password)
	assert.NoError(t, err)
}

func TestUpdateAccount_UnknownUser(t *testing.T) {
	a, _ := newAuth(t, time.Minute, time.Hour)

	_, err := a.UpdateAccount(context.Background(), "missing", gofakeit.Name(), gofakeit.Email())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, -time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)

	pair, _, err := a.Login(ctx, user.Username, password)
	require.NoError(t, err)

	_, err = a.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyAccessToken_Garbage(t *testing.T) {
	a, _ := newAuth(t, time.Minute, time.Hour)

	_, err := a.VerifyAccessToken("broken token")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestLogin_ReplacesPreviousSession(t *testing.T) {
	ctx := context.Background()
	a, _ := newAuth(t, time.Minute, time.Hour)

	password := randomPassword()
	user := registerUser(t, a, password)

	pair1, _, err := a.Login(ctx, user.Username, password)
	require.NoError(t, err)

	pair2, _, err := a.Login(ctx, user.Username, password)
	require.NoError(t, err)

	// A single session per account: the earlier device's refresh token
	// was overwritten and now reads as reuse.
	_, err = a.Refresh(ctx, pair1.RefreshToken)
	assert.ErrorIs(t, err, ErrReuseDetected)

	_, err = a.Refresh(ctx, pair2.RefreshToken)
	assert.NoError(t, err)
}

func randomPassword() string {
	return gofakeit.Password(true, true, true, true, false, 10)
}
