package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/doctagger/internal/config"
	"github.com/kailas-cloud/doctagger/internal/db"
	dbBolt "github.com/kailas-cloud/doctagger/internal/db/bolt"
	dbElastic "github.com/kailas-cloud/doctagger/internal/db/elastic"
	dbRedis "github.com/kailas-cloud/doctagger/internal/db/redis"
	"github.com/kailas-cloud/doctagger/internal/domain"
)

// openStore creates the index store for the configured driver and waits
// until it responds. Any failure here means the backend is unreachable.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	idx := cfg.Index
	switch idx.Driver {
	case config.DriverRedis:
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    idx.Addrs,
			Username: idx.Username,
			Password: idx.Password,
		})
	case config.DriverElasticsearch:
		store, err = dbElastic.NewStore(dbElastic.Config{
			URLs:     idx.URLs,
			Username: idx.Username,
			Password: idx.Password,
			DocType:  idx.DocType,
		})
	case config.DriverBolt:
		store, err = dbBolt.NewStore(dbBolt.Config{
			Path:    idx.Path,
			Timeout: cfg.ReadinessTimeout(),
		})
	default:
		return nil, fmt.Errorf("%w: unknown index driver %q", domain.ErrInvalidConfig, idx.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: create %s store: %w", domain.ErrConnectivity, idx.Driver, err)
	}

	if err := store.WaitForReady(ctx, cfg.ReadinessTimeout()); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %s not ready: %w", domain.ErrConnectivity, idx.Driver, err)
	}
	logger.Info("Connected to index backend",
		zap.String("driver", idx.Driver),
		zap.String("index", idx.Name),
	)
	return store, nil
}
