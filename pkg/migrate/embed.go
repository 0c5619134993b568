package migrate

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

//go:embed migrations/*.sql
var embedded embed.FS

// DefaultDir is where create and validate look when no -dir is given.
const DefaultDir = "pkg/migrate/migrations"

// Source returns the migration files to run. An empty dir selects the set
// compiled into the binary, so deployed workers need no checkout.
func Source(dir string) (fs.FS, error) {
	if dir == "" {
		sub, err := fs.Sub(embedded, "migrations")
		if err != nil {
			return nil, fmt.Errorf("open embedded migrations: %w", err)
		}
		return sub, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations dir %q: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("migrations path %q is not a directory", dir)
	}
	return os.DirFS(dir), nil
}
