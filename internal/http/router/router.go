// Package router assembles the gin engine: CORS, route groups and the
// auth guard on protected routes.
package router

import (
	"chiyabari/internal/config"
	authhttp "chiyabari/internal/http/auth"
	"chiyabari/internal/http/middleware"
	subhttp "chiyabari/internal/http/subscription"
	videohttp "chiyabari/internal/http/video"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth          *authhttp.Handler
	Video         *videohttp.Handler
	Subscription  *subhttp.Handler
	Authenticator middleware.Authenticator
}

func New(cfg config.CORSConfig, h Handlers) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Origin},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	authenticate := middleware.Authenticate(h.Authenticator)

	api := engine.Group("/api/v1")

	users := api.Group("/users")
	{
		users.POST("/register", h.Auth.Register)
		users.POST("/login", h.Auth.Login)
		users.POST("/refresh-token", h.Auth.Refresh)

		users.POST("/logout", authenticate, h.Auth.Logout)
		users.POST("/change-password", authenticate, h.Auth.ChangePassword)
		users.PATCH("/update-account", authenticate, h.Auth.UpdateAccount)
		users.POST("/get-current-user", authenticate, h.Auth.CurrentUser)
		users.GET("/watch-history", authenticate, h.Video.WatchHistory)
	}

	videos := api.Group("/videos", authenticate)
	{
		videos.POST("", h.Video.Upload)
		videos.GET("", h.Video.List)
		videos.GET("/:videoId", h.Video.Get)
		videos.PATCH("/:videoId", h.Video.Update)
		videos.DELETE("/:videoId", h.Video.Delete)
		videos.PATCH("/:videoId/toggle-publish", h.Video.TogglePublish)
	}

	subscriptions := api.Group("/subscriptions", authenticate)
	{
		subscriptions.POST("/toggle/:channelId", h.Subscription.Toggle)
		subscriptions.GET("/subscribed-channels", h.Subscription.SubscribedChannels)
		subscriptions.GET("/channel/:channelId/subscribers", h.Subscription.Subscribers)
	}

	return engine
}
