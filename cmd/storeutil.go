package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/evidex/trialqa/internal/store"
)

// openStore opens the configured persistence backend with migrations applied.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}
