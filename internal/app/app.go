package app

import (
	"context"
	"log/slog"

	"chiyabari/internal/app/httpapp"
	"chiyabari/internal/config"
	authhttp "chiyabari/internal/http/auth"
	"chiyabari/internal/http/router"
	subhttp "chiyabari/internal/http/subscription"
	videohttp "chiyabari/internal/http/video"
	"chiyabari/internal/lib/jwt"
	"chiyabari/internal/lib/passhash"
	s3media "chiyabari/internal/media/s3"
	authservice "chiyabari/internal/services/auth"
	subservice "chiyabari/internal/services/subscription"
	videoservice "chiyabari/internal/services/video"
	"chiyabari/internal/storage/mongodb"
)

type App struct {
	HTTPSrv *httpapp.App
	Storage *mongodb.Storage
}

func New(ctx context.Context, logger *slog.Logger, cfg *config.Config) *App {
	storage, err := mongodb.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		panic(err)
	}

	uploader, err := s3media.New(ctx, cfg.Media)
	if err != nil {
		panic(err)
	}

	tokens := jwt.NewManager(cfg.Auth)
	hasher := passhash.New(cfg.Auth.BcryptCost)

	authService := authservice.New(logger, storage, storage, storage, uploader, tokens, hasher)
	videoService := videoservice.New(logger, storage, storage, uploader)
	subService := subservice.New(logger, storage, storage)

	engine := router.New(cfg.CORS, router.Handlers{
		Auth:          authhttp.NewHandler(authService, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL),
		Video:         videohttp.NewHandler(videoService),
		Subscription:  subhttp.NewHandler(subService),
		Authenticator: authService,
	})

	httpApp := httpapp.New(logger, engine, cfg.HTTP)

	return &App{
		HTTPSrv: httpApp,
		Storage: storage,
	}
}
