package migrate

import (
	"context"
	"fmt"

	"github.com/strikeground/strikeground-backend/pkg/config"
	"github.com/strikeground/strikeground-backend/pkg/db"
	"github.com/strikeground/strikeground-backend/pkg/db/models"
	"github.com/strikeground/strikeground-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. sqlite gets a gorm AutoMigrate instead of goose.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver})

	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "running gorm auto-migrate (dev sqlite)")
		if err := AutoMigrateModels(client); err != nil {
			return err
		}
		logg.Info(ctx, "gorm auto-migrate completed")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "Goose migrations completed")
	return nil
}

// AutoMigrateModels creates the schema from the gorm models. Only used for sqlite.
func AutoMigrateModels(client *db.Client) error {
	if err := client.DB().AutoMigrate(&models.Ticket{}, &models.TicketIssuance{}, &models.OutboxEvent{}); err != nil {
		return fmt.Errorf("auto-migrate models: %w", err)
	}
	return nil
}
