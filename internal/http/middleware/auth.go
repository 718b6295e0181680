// Package middleware holds the auth guard run before protected routes.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"chiyabari/internal/domain/models"
	"chiyabari/internal/http/response"
	"chiyabari/internal/lib/jwt"
	"chiyabari/internal/services/auth"

	"github.com/gin-gonic/gin"
)

const userContextKey = "currentUser"

// Authenticator is the slice of the auth service the guard needs:
// token verification plus a single user lookup.
type Authenticator interface {
	VerifyAccessToken(tokenString string) (*jwt.AccessClaims, error)
	UserByID(ctx context.Context, userID string) (*models.PublicUser, error)
}

// CurrentUser returns the identity the guard attached to the request.
func CurrentUser(c *gin.Context) (*models.PublicUser, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.PublicUser)
	return user, ok
}

// Authenticate extracts the access token (cookie first, then bearer
// header), verifies it and loads the identity. The guard never writes to
// the credential store.
func Authenticate(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessTokenFromRequest(c)
		if token == "" {
			response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
			return
		}

		claims, err := authenticator.VerifyAccessToken(token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				response.Fail(c, http.StatusUnauthorized, response.KindTokenExpired, "access token expired")
			default:
				response.Fail(c, http.StatusUnauthorized, response.KindTokenInvalid, "invalid access token")
			}
			return
		}

		user, err := authenticator.UserByID(c.Request.Context(), claims.Subject)
		if err != nil {
			// The token outlived the account.
			response.Fail(c, http.StatusUnauthorized, response.KindUnauthorized, "unauthorized access")
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

func accessTokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie("accessToken"); err == nil && cookie != "" {
		return cookie
	}

	header := c.GetHeader("Authorization")
	const bearer = "Bearer "
	if strings.HasPrefix(header, bearer) && len(header) > len(bearer) {
		return header[len(bearer):]
	}
	return ""
}
