//go:build integration

package containers

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage can be overridden with AWBOT_TEST_PG_IMAGE.
const PostgresImage = "postgres:16-alpine"

type pgCredentials struct {
	database string
	user     string
	password string
}

func (c pgCredentials) dsn(host string, port nat.Port) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.user, c.password, host, port.Port(), c.database)
}

// SetupPostgresContainer starts a throwaway Postgres for the bot's schema and
// returns it together with a DSN that bundb.Open and river both accept.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	creds := pgCredentials{database: "awbot", user: "awbot", password: "awbot"}
	image := PostgresImage
	if v := os.Getenv("AWBOT_TEST_PG_IMAGE"); v != "" {
		image = v
	}

	pg, err := postgres.Run(ctx, image,
		postgres.WithDatabase(creds.database),
		postgres.WithUsername(creds.user),
		postgres.WithPassword(creds.password),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx", creds.dsn).WithStartupTimeout(45*time.Second),
		),
	)
	if err != nil {
		terminate(ctx, pg)
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	host, err := pg.Host(ctx)
	if err != nil {
		terminate(ctx, pg)
		return nil, "", fmt.Errorf("failed to resolve postgres host: %w", err)
	}
	port, err := pg.MappedPort(ctx, "5432/tcp")
	if err != nil {
		terminate(ctx, pg)
		return nil, "", fmt.Errorf("failed to resolve postgres port: %w", err)
	}

	log.Printf("postgres %s ready on %s:%s", image, host, port.Port())
	return pg, creds.dsn(host, port), nil
}

func terminate(ctx context.Context, pg *postgres.PostgresContainer) {
	if pg == nil {
		return
	}
	if err := pg.Terminate(ctx); err != nil {
		log.Printf("failed to terminate postgres container: %v", err)
	}
}
