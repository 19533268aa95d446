//go:build integration

package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schemaDDL bootstraps the tables this service owns. Integration tests run
// against a fresh container, so the DDL lives here instead of a migration
// tool.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS audit_events (
	id           BIGSERIAL PRIMARY KEY,
	category     TEXT        NOT NULL,
	occurred_at  TIMESTAMPTZ NOT NULL,
	applicant_id UUID        NOT NULL,
	action       TEXT        NOT NULL,
	stage        INT         NOT NULL,
	actor_id     TEXT        NOT NULL DEFAULT '',
	detail       TEXT        NOT NULL DEFAULT '',
	request_id   TEXT        NOT NULL DEFAULT '',
	device       TEXT        NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS submission_archive (
	submission_id     UUID        PRIMARY KEY,
	applicant_id      UUID        NOT NULL,
	account_type      TEXT        NOT NULL,
	fields            JSONB       NOT NULL,
	documents         JSONB       NOT NULL,
	force_completed   BOOLEAN     NOT NULL,
	incomplete_stages INT[]       NOT NULL DEFAULT '{}',
	submitted_at      TIMESTAMPTZ NOT NULL
);
`

// PostgresContainer wraps a testcontainers Postgres instance with both a pgx
// pool and a database/sql handle, matching the two driver stacks in use.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	Pool      *pgxpool.Pool
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the
// service schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("veristage_test"),
		tcpostgres.WithUsername("veristage"),
		tcpostgres.WithPassword("veristage"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open pgx pool: %v", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open sql handle: %v", err)
	}

	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		_ = db.Close()
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
		pool.Close()
		_ = container.Terminate(context.Background())
	})

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		Pool:      pool,
		DB:        db,
	}
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.Pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}
