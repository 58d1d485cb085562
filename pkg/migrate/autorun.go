package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vtuhub/walletledger/pkg/config"
	"github.com/vtuhub/walletledger/pkg/db"
	"github.com/vtuhub/walletledger/pkg/db/models"
	"github.com/vtuhub/walletledger/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases are auto-migrated from the models
// because the SQL migrations target Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.DB.IsSQLite() {
		ctx = logg.WithField(ctx, "driver", config.DBDriverSQLite)
		logg.Info(ctx, "auto-migrating sqlite schema (dev auto-run)")
		return AutoMigrateSQLite(ctx, client.DB())
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	runner, err := NewRunner(sqlDB, Embedded(), logg)
	if err != nil {
		return err
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "running embedded migrations (dev auto-run)")
	if err := runner.Up(ctx); err != nil {
		return err
	}
	logg.Info(ctx, "migrations completed")
	return nil
}

// AutoMigrateSQLite builds the schema from the models and adds the ledger
// immutability triggers the Postgres migrations would create.
func AutoMigrateSQLite(ctx context.Context, conn *gorm.DB) error {
	if err := conn.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrating sqlite: %w", err)
	}
	return db.InstallSQLiteGuards(conn.WithContext(ctx))
}

// Models lists the persisted models in dependency order.
func Models() []any {
	return []any{
		&models.Wallet{},
		&models.LedgerEntry{},
		&models.PurchaseOrder{},
		&models.FundingEvent{},
	}
}
