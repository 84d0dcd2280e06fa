package localstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nerrad567/midnam-core/internal/infrastructure/database"

	_ "github.com/nerrad567/midnam-core/migrations" // registers the device_records schema
)

// SQLiteOpener returns an Opener that opens the SQLite file described by cfg
// and applies pending migrations. A migration failure closes the handle.
func SQLiteOpener(cfg database.Config) Opener {
	return func(ctx context.Context) (*sql.DB, error) {
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close() //nolint:errcheck // Best effort cleanup on error path
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		return db.DB, nil
	}
}
