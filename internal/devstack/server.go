package devstack

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/pkg/config"
)

// NewServer wires the full platform surface onto one Echo instance:
// auth, collection REST, realtime fan-out and object storage.
func NewServer(cfg *config.Config, db *DB, log *zap.Logger) (*echo.Echo, error) {
	if err := db.Postgres.AutoMigrate(relationalModels()...); err != nil {
		return nil, err
	}
	log.Info("PostgreSQL migrations completed")

	mongoDB := db.Mongo.Database("socialmedia")
	hub := NewHub(log)

	tables := map[string]Table{
		"profiles":      NewRelTable[ProfileRow](db.Postgres, "profiles"),
		"likes":         NewRelTable[LikeRow](db.Postgres, "likes"),
		"friendships":   NewRelTable[FriendshipRow](db.Postgres, "friendships"),
		"messages":      NewRelTable[MessageRow](db.Postgres, "messages"),
		"comments":      NewRelTable[CommentRow](db.Postgres, "comments"),
		"notifications": NewRelTable[NotificationRow](db.Postgres, "notifications"),
		"posts":         NewDocTable(mongoDB, "posts"),
		"stories":       NewDocTable(mongoDB, "stories"),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	authHandler := NewAuthHandler(db.Postgres, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(e.Group("/auth/v1"))

	restHandler := NewRestHandler(tables, hub, log)
	restGroup := e.Group("/rest/v1", JWTAuthMiddleware(cfg.JWTSecret))
	restHandler.RegisterRestRoutes(restGroup)

	storageHandler := NewStorageHandler(cfg.StorageDir, log)
	storageGroup := e.Group("/storage/v1", JWTAuthMiddleware(cfg.JWTSecret))
	storageHandler.RegisterUploadRoutes(storageGroup)
	storageHandler.RegisterPublicRoutes(e)

	e.GET("/realtime/v1/websocket", hub.Serve, JWTAuthMiddleware(cfg.JWTSecret))

	log.Info("all routes configured")
	return e, nil
}
