// Package auth exposes the session lifecycle endpoints: register, login,
// logout, refresh rotation, password change and current-user lookup.
package auth

import (
	"errors"
	"net/http"
	"time"

	"chiyabari/internal/http/middleware"
	"chiyabari/internal/http/response"
	"chiyabari/internal/http/upload"
	authservice "chiyabari/internal/services/auth"

	"github.com/gin-gonic/gin"
)

const (
	accessCookie  = "accessToken"
	refreshCookie = "refreshToken"
)

type Handler struct {
	auth       *authservice.Auth
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewHandler(auth *authservice.Auth, accessTTL, refreshTTL time.Duration) *Handler {
	return &Handler{
		auth:       auth,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

type loginInput struct {
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type refreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

type updateAccountInput struct {
	FullName string `json:"fullName" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
}

type changePasswordInput struct {
	OldPassword     string `json:"oldPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// Register handles the multipart register form: text fields plus a
// required avatar file and an optional cover image.
func (h *Handler) Register(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	fullName := c.PostForm("fullName")
	password := c.PostForm("password")
	if username == "" || email == "" || fullName == "" || password == "" {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "all fields are required")
		return
	}

	avatarFile, err := c.FormFile("avatar")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "avatar file is required")
		return
	}

	avatarPath, cleanupAvatar, err := upload.SaveTemp(c, avatarFile)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to receive upload")
		return
	}
	defer cleanupAvatar()

	coverPath := ""
	if coverFile, err := c.FormFile("coverImage"); err == nil {
		path, cleanupCover, err := upload.SaveTemp(c, coverFile)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to receive upload")
			return
		}
		defer cleanupCover()
		coverPath = path
	}

	user, err := h.auth.Register(c.Request.Context(), authservice.RegisterParams{
		Username:       username,
		Email:          email,
		FullName:       fullName,
		Password:       password,
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrUserAlreadyExists):
			response.Fail(c, http.StatusConflict, response.KindConflict, "username or email already taken")
		case errors.Is(err, authservice.ErrAvatarRequired):
			response.Fail(c, http.StatusBadRequest, response.KindValidation, "avatar file is required")
		default:
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to register user")
		}
		return
	}

	response.OK(c, http.StatusCreated, user, "user registered successfully")
}

// Login authenticates by username or email and sets the auth cookies.
// Unknown identifier and wrong password produce identical responses.
func (h *Handler) Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "identifier and password are required")
		return
	}

	pair, user, err := h.auth.Login(c.Request.Context(), input.Identifier, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrInvalidCredentials):
			response.Fail(c, http.StatusUnauthorized, response.KindInvalidCredentials, "invalid identifier or password")
		case errors.Is(err, authservice.ErrIntegrity):
			response.Fail(c, http.StatusInternalServerError, response.KindIntegrity, "credential verification failed")
		default:
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "login failed")
		}
		return
	}

	h.setAuthCookies(c, pair.AccessToken, pair.RefreshToken)
	response.OK(c, http.StatusOK, gin.H{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "logged in successfully")
}

// Logout clears the stored session and both cookies. Always succeeds.
func (h *Handler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	_ = h.auth.Logout(c.Request.Context(), user.ID)

	h.clearAuthCookies(c)
	response.OK(c, http.StatusOK, nil, "logged out successfully")
}

// Refresh rotates the session. The token may arrive as a cookie or in
// the body; the cookie wins.
func (h *Handler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(refreshCookie)
	if token == "" {
		var input refreshInput
		if err := c.ShouldBindJSON(&input); err == nil {
			token = input.RefreshToken
		}
	}
	if token == "" {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "refresh token is required")
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), token)
	if err != nil {
		h.clearAuthCookies(c)
		switch {
		case errors.Is(err, authservice.ErrTokenExpired):
			response.Fail(c, http.StatusUnauthorized, response.KindTokenExpired, "refresh token expired")
		case errors.Is(err, authservice.ErrTokenInvalid):
			response.Fail(c, http.StatusUnauthorized, response.KindTokenInvalid, "invalid refresh token")
		case errors.Is(err, authservice.ErrReuseDetected):
			response.Fail(c, http.StatusUnauthorized, response.KindReuseDetected, "refresh token is no longer valid")
		case errors.Is(err, authservice.ErrUnauthorized):
			response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "no active session")
		default:
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to refresh tokens")
		}
		return
	}

	h.setAuthCookies(c, pair.AccessToken, pair.RefreshToken)
	response.OK(c, http.StatusOK, gin.H{
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	}, "tokens refreshed successfully")
}

// ChangePassword verifies the old password and stores the new one.
func (h *Handler) ChangePassword(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	var input changePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "oldPassword, newPassword and confirmPassword are required")
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), user.ID,
		input.OldPassword, input.NewPassword, input.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrPasswordMismatch):
			response.Fail(c, http.StatusBadRequest, response.KindValidation, "new password and confirmation do not match")
		case errors.Is(err, authservice.ErrInvalidCredentials):
			response.Fail(c, http.StatusUnauthorized, response.KindInvalidCredentials, "old password is incorrect")
		case errors.Is(err, authservice.ErrIntegrity):
			response.Fail(c, http.StatusInternalServerError, response.KindIntegrity, "credential verification failed")
		default:
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to change password")
		}
		return
	}

	response.OK(c, http.StatusOK, nil, "password changed successfully")
}

// UpdateAccount changes the profile's full name and email.
func (h *Handler) UpdateAccount(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}

	var input updateAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Fail(c, http.StatusBadRequest, response.KindValidation, "fullName and a valid email are required")
		return
	}

	updated, err := h.auth.UpdateAccount(c.Request.Context(), user.ID, input.FullName, input.Email)
	if err != nil {
		switch {
		case errors.Is(err, authservice.ErrUserAlreadyExists):
			response.Fail(c, http.StatusConflict, response.KindConflict, "email already taken")
		case errors.Is(err, authservice.ErrUnauthorized):
			response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		default:
			response.Fail(c, http.StatusInternalServerError, response.KindInternal, "failed to update account")
		}
		return
	}

	response.OK(c, http.StatusOK, updated, "account updated successfully")
}

// CurrentUser returns the authenticated identity's public projection.
func (h *Handler) CurrentUser(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
		return
	}
	response.OK(c, http.StatusOK, user, "current user fetched successfully")
}

func (h *Handler) setAuthCookies(c *gin.Context, accessToken, refreshToken string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessCookie, accessToken, int(h.accessTTL.Seconds()), "/", "", true, true)
	c.SetCookie(refreshCookie, refreshToken, int(h.refreshTTL.Seconds()), "/", "", true, true)
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessCookie, "", -1, "/", "", true, true)
	c.SetCookie(refreshCookie, "", -1, "/", "", true, true)
}
