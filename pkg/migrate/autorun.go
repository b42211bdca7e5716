package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/foodops-backend/pkg/config"
	"github.com/angelmondragon/foodops-backend/pkg/db"
	"github.com/angelmondragon/foodops-backend/pkg/logger"
)

// MaybeRunDev applies pending migrations at boot, but only in dev with the
// FOODOPS_AUTO_MIGRATE flag on. Every binary calls it after opening the database.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("migrate: unwrap gorm handle: %w", err)
	}

	ctx = logg.WithField(ctx, "migrations_dir", DefaultDir)
	logg.Info(ctx, "auto-migrating schema")
	if err := Run(ctx, logg, sqlDB, DefaultDir, CommandUp); err != nil {
		return err
	}
	logg.Info(ctx, "schema up to date")
	return nil
}
