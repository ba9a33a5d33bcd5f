package portal

import (
	"context"
	"database/sql"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded schema migrations. Dialect is the
// goose dialect name, "sqlite3" or "postgres".
func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	sub, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
