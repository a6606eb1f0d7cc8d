//go:build integration

package testutils

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"

	"github.com/aussie-warriors/awbot/app"
	"github.com/aussie-warriors/awbot/integration_tests/containers"
	"github.com/aussie-warriors/awbot/internal/db/bundb"
	"github.com/aussie-warriors/awbot/internal/observability"
	"github.com/aussie-warriors/awbot/internal/scheduler"
)

// TestEnvironment holds the shared Postgres container and connection.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	DSN           string
	DB            *bun.DB
	Obs           observability.Observability
}

// NewTestEnvironment starts Postgres, connects through bun and applies every
// module migration plus the river schema.
func NewTestEnvironment() (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}

	db, err := bundb.Open(ctx, dsn)
	if err != nil {
		pgContainer.Terminate(ctx)
		cancel()
		return nil, err
	}

	env := &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		PgContainer:   pgContainer,
		DSN:           dsn,
		DB:            db,
		Obs:           observability.NewNoop(),
	}

	if err := env.migrate(ctx); err != nil {
		env.Cleanup()
		return nil, err
	}
	return env, nil
}

func (env *TestEnvironment) migrate(ctx context.Context) error {
	for _, m := range app.Migrators(env.DB) {
		if err := m.Migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", m.Name, err)
		}
		if _, err := m.Migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", m.Name, err)
		}
	}

	pool, err := scheduler.NewPool(ctx, env.DSN)
	if err != nil {
		return err
	}
	defer pool.Close()
	return scheduler.Migrate(ctx, pool, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// Cleanup closes the connection and terminates the container.
func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		env.DB.Close()
	}
	if env.PgContainer != nil {
		if err := env.PgContainer.Terminate(context.Background()); err != nil {
			log.Printf("Failed to terminate postgres container: %v", err)
		}
	}
	env.CancelContext()
}

var (
	sharedEnv     *TestEnvironment
	sharedEnvErr  error
	sharedEnvOnce sync.Once
)

// RunWithEnvironment is a TestMain body: it starts the shared environment,
// runs the package's tests and tears the environment down. Short runs and
// hosts without Docker skip the package.
func RunWithEnvironment(m *testing.M, assign func(*TestEnvironment)) {
	flag.Parse()
	if testing.Short() || os.Getenv("AWBOT_SKIP_INTEGRATION") != "" {
		log.Println("Skipping integration tests")
		os.Exit(0)
	}

	sharedEnvOnce.Do(func() {
		sharedEnv, sharedEnvErr = NewTestEnvironment()
	})
	if sharedEnvErr != nil {
		log.Fatalf("Exiting due to failed test environment initialization: %v", sharedEnvErr)
	}
	assign(sharedEnv)

	code := m.Run()
	sharedEnv.Cleanup()
	os.Exit(code)
}
