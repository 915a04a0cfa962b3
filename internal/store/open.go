package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/briangreenhill/voicept/internal/config"
	"github.com/briangreenhill/voicept/internal/db"
)

// Open builds the backend selected by cfg.Store.Backend. The postgres backend
// applies pending migrations before returning.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Store.Backend {
	case config.StoreFile:
		return NewFileKV(filepath.Join(cfg.Store.Dir, "profiles"))
	case config.StoreSQLite:
		return NewSQLiteKV(filepath.Join(cfg.Store.Dir, "voicept.db"))
	case config.StoreValkey:
		client, err := DialValkey(ctx, cfg.Store.ValkeyAddr)
		if err != nil {
			return nil, err
		}
		return NewValkeyKV(client, "voicept"), nil
	case config.StorePostgres:
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgresKV(pool), nil
	default:
		return nil, fmt.Errorf("store: unknown backend %q", cfg.Store.Backend)
	}
}
