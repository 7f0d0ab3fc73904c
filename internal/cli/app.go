// Package cli wires the platform clients and the synchronization façade
// into the terminal frontend.
package cli

import (
	"go.uber.org/zap"

	"github.com/aisocialapp/appcore/internal/platform/identity"
	"github.com/aisocialapp/appcore/internal/platform/objstore"
	"github.com/aisocialapp/appcore/internal/platform/realtime"
	"github.com/aisocialapp/appcore/internal/platform/rest"
	syncsvc "github.com/aisocialapp/appcore/internal/sync"
	"github.com/aisocialapp/appcore/pkg/config"
	"github.com/aisocialapp/appcore/pkg/logger"
)

// App bundles everything a command needs: the signed-in identity and the
// façade over the remote collections.
type App struct {
	Config   *config.Config
	Log      *zap.Logger
	Identity *identity.Client
	Syncer   *syncsvc.Syncer
}

// NewApp constructs the client stack from the environment. Logging goes
// through a warn-level logger so terminal output stays readable.
func NewApp() *App {
	cfg := config.Load()
	log := logger.New("warn")

	id := identity.New(cfg.PlatformURL, cfg.PlatformKey, cfg.SessionPath, identity.WithLogger(log))
	gateway := rest.New(cfg.PlatformURL, cfg.PlatformKey, id.AccessToken, rest.WithLogger(log))
	channel := realtime.New(cfg.PlatformURL, cfg.PlatformKey, id.AccessToken, realtime.WithLogger(log))
	storage := objstore.New(cfg.PlatformURL, cfg.PlatformKey, id.AccessToken)

	syncer := syncsvc.New(syncsvc.Deps{
		Gateway:        gateway,
		Channel:        channel,
		Storage:        storage,
		Identity:       id,
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		ChatPollEvery:  cfg.ChatPollEvery,
	})

	return &App{
		Config:   cfg,
		Log:      log,
		Identity: id,
		Syncer:   syncer,
	}
}
