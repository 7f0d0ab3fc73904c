package main

import (
	"log"

	"github.com/aisocialapp/appcore/internal/devstack"
	"github.com/aisocialapp/appcore/pkg/config"
	"github.com/aisocialapp/appcore/pkg/logger"
)

func main() {
	cfg := config.Load()

	zlog := logger.New("info")
	if cfg.Env == "development" {
		zlog = logger.NewDevelopment()
	}
	defer zlog.Sync()

	db, err := devstack.InitDB(cfg, zlog)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	e, err := devstack.NewServer(cfg, db, zlog)
	if err != nil {
		log.Fatalf("Failed to build server: %v", err)
	}

	e.Logger.Fatal(e.Start(":" + cfg.DevstackPort))
}
