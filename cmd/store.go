package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/shuleranks/necta-cli/internal/store"
)

// openRepository opens the configured store backend and applies
// migrations.
func openRepository(ctx context.Context) (store.Repository, error) {
	var (
		repo store.Repository
		err  error
	)
	switch cfg.Store.Driver {
	case "postgres":
		repo, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite":
		repo, err = store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q (want postgres or sqlite)", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := repo.Migrate(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}
