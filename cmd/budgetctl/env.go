package main

import (
	"fmt"

	"famledger/internal/app"
	"famledger/internal/config"
	"famledger/internal/database"
	"famledger/internal/notify"
)

// runtime is the configuration and database every command works against.
type runtime struct {
	cfg *config.Config
	db  *database.Manager
}

func openRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return &runtime{cfg: cfg, db: db}, nil
}

func (r *runtime) Close() {
	_ = r.db.Close()
}

// services wires the service graph with the given publisher.
func (r *runtime) services(publisher notify.Publisher) *app.Services {
	return app.NewServices(r.db.DB(), r.cfg, publisher)
}
