package app

import (
	"context"
	"fmt"

	"github.com/foxzi/leadmail/internal/config"
	"github.com/foxzi/leadmail/internal/secret"
	"github.com/foxzi/leadmail/internal/store"
	"github.com/foxzi/leadmail/internal/store/boltstore"
	"github.com/foxzi/leadmail/internal/store/memstore"
	"github.com/foxzi/leadmail/internal/store/sqlstore"
)

// OpenStore opens the configured backend. Opening migrates and seeds it.
// With a secret key set, SMTP passwords are sealed at rest.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Storage.Driver {
	case store.DriverMemory:
		st = memstore.New()
	case store.DriverSQLite:
		st, err = sqlstore.Open(ctx, cfg.Storage.Path)
	case store.DriverBolt:
		st, err = boltstore.Open(ctx, cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	if cfg.Security.SecretKey == "" {
		return st, nil
	}
	box, err := secret.NewBox(cfg.Security.SecretKey)
	if err != nil {
		st.Close()
		return nil, err
	}
	return secret.WrapStore(st, box), nil
}
