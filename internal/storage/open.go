package storage

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/inventory-tracker/internal/config"
)

// Open builds the configured Store and returns it with its close function.
// The Postgres driver applies the schema on startup.
func Open(ctx context.Context, cfg config.Config) (Store, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		return NewMemory(), func() {}, nil
	case config.DriverPostgres, "":
		pg, err := NewPostgres(cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
