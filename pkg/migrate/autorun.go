package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/fincore/pkg/config"
	"github.com/angelmondragon/fincore/pkg/db"
	"github.com/angelmondragon/fincore/pkg/logger"
)

// MaybeRunDev brings the schema up to date at boot when running in dev with
// FINCORE_AUTO_MIGRATE set. Other environments migrate through cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})
	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "applying embedded sqlite schema")
		return ApplySQLite(ctx, sqlDB)
	}

	runner, err := NewRunner(sqlDB, DefaultDir)
	if err != nil {
		return err
	}
	if err := runner.Exec(ctx, CmdUp); err != nil {
		return err
	}
	version, err := runner.Current()
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "version", version), "dev migrations applied")
	return nil
}
