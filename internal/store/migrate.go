package store

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Las migraciones SQL se embeben en el binario (ver /migrations).
// Formato de archivo: {version}_{name}.sql (ej: 0001_accounts.sql)

// MigrationSource identifica un set de migraciones embebidas.
type MigrationSource struct {
	FS  fs.FS
	Dir string
}

// Executor abstrae pgx vs database/sql para el Migrator.
type Executor interface {
	// Exec ejecuta SQL sin resultado. Debe aceptar varios statements cuando args está vacío.
	Exec(ctx context.Context, query string, args ...any) error

	// AppliedVersions lista las versiones registradas en _migrations.
	AppliedVersions(ctx context.Context) ([]int, error)

	// Placeholder retorna el placeholder del parámetro n (1-based): "$1" o "?".
	Placeholder(n int) string

	// Dialect es "postgres" o "sqlite".
	Dialect() string
}

// Migrator aplica migraciones SQL a una base de datos.
type Migrator struct {
	src MigrationSource
}

// NewMigrator crea un nuevo Migrator.
func NewMigrator(src MigrationSource) *Migrator {
	return &Migrator{src: src}
}

// Migration representa una migración individual.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult resultado de aplicar migraciones.
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// ParseMigrations lee y parsea las migraciones del FS embebido, ordenadas por versión.
func (m *Migrator) ParseMigrations() ([]Migration, error) {
	var migrations []Migration
	seen := map[int]string{}

	err := fs.WalkDir(m.src.FS, m.src.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := migrationFilePattern.FindStringSubmatch(path.Base(p))
		if matches == nil {
			return nil // Ignorar archivos que no coinciden
		}

		version, _ := strconv.Atoi(matches[1])
		if prev, dup := seen[version]; dup {
			return fmt.Errorf("duplicate migration version %d (%s, %s)", version, prev, p)
		}
		seen[version] = p

		content, err := fs.ReadFile(m.src.FS, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		migrations = append(migrations, Migration{
			Version: version,
			Name:    matches[2],
			SQL:     string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Run aplica migraciones pendientes.
func (m *Migrator) Run(ctx context.Context, exec Executor) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{}

	if err := exec.Exec(ctx, migrationsTableSQL(exec.Dialect())); err != nil {
		return result, fmt.Errorf("creating migrations table: %w", err)
	}

	versions, err := exec.AppliedVersions(ctx)
	if err != nil {
		return result, fmt.Errorf("getting applied migrations: %w", err)
	}
	applied := make(map[int]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	migrations, err := m.ParseMigrations()
	if err != nil {
		return result, fmt.Errorf("parsing migrations: %w", err)
	}

	for _, mig := range migrations {
		if applied[mig.Version] {
			result.Skipped = append(result.Skipped, mig.Version)
			continue
		}
		if err := exec.Exec(ctx, mig.SQL); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("applying migration %d_%s: %w", mig.Version, mig.Name, err)
		}
		insert := fmt.Sprintf("INSERT INTO _migrations (version, name) VALUES (%s, %s)",
			exec.Placeholder(1), exec.Placeholder(2))
		if err := exec.Exec(ctx, insert, mig.Version, mig.Name); err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("recording migration %d: %w", mig.Version, err)
		}
		result.Applied = append(result.Applied, mig.Version)
	}

	result.Duration = time.Since(start)
	return result, nil
}

func migrationsTableSQL(dialect string) string {
	if dialect == "postgres" {
		return `
			CREATE TABLE IF NOT EXISTS _migrations (
				version INT PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				applied_at TIMESTAMPTZ DEFAULT NOW()
			)`
	}
	return `
		CREATE TABLE IF NOT EXISTS _migrations (
			version INT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`
}
