// Package dbtest connects integration tests to the Postgres named by DB_URL.
package dbtest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

var (
	once sync.Once
	pool *pgxpool.Pool
	err  error
)

// Pool returns a shared pool on a migrated schema, or skips the test when DB_URL is unset
// or unreachable. Tests run from their package directory, two levels below the module root.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	once.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			err = fmt.Errorf("DB_URL is not set")
			return
		}

		if err = migrateUp(dbURL); err != nil {
			return
		}

		cfg, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = parseErr
			return
		}

		pool, err = pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return
		}
		err = pool.Ping(context.Background())
	})

	if err != nil {
		t.Skipf("skipping integration test: %v", err)
	}
	return pool
}

func migrateUp(dbURL string) error {
	dir, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	if err != nil {
		return err
	}

	m, err := migrate.New("file://"+dir, dbURL)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// NewProfessional inserts an active, unverified profile with a fresh id so concurrent test
// runs never share rows.
func NewProfessional(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO professional_profiles (id, display_name) VALUES ($1, $2)
	`, id, "integration "+id.String()[:8])
	if err != nil {
		t.Fatalf("insert professional: %v", err)
	}
	return id
}

// Exec runs a setup statement, failing the test on error.
func Exec(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), sql, args...); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}
