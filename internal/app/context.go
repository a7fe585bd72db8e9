package app

import (
	"database/sql"
	"fmt"

	"weekplan/internal/config"
	"weekplan/internal/db"
	"weekplan/internal/migrate"
)

// OpenWorkspace opens the workspace database, applies migrations, and loads
// weekplan.yml (or defaults when the file is absent).
func OpenWorkspace(workspace string) (*sql.DB, *config.Config, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, cfg, nil
}
