package e2e_test

import (
	"context"
	"sync"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/sitedock/sitedock/database"
)

var (
	pgDSN     string
	pgDSNOnce sync.Once
)

func getSharedPostgresDSN(t *testing.T) string {
	t.Helper()

	pgDSNOnce.Do(func() {
		ctx := context.Background()

		pgContainer, err := pgcontainer.Run(ctx,
			"postgres:18-alpine",
			pgcontainer.WithDatabase("testdb"),
			pgcontainer.WithUsername("testuser"),
			pgcontainer.WithPassword("testpass"),
			pgcontainer.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}

		dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			if termErr := testcontainers.TerminateContainer(pgContainer); termErr != nil {
				t.Logf("failed to terminate container: %s", termErr)
			}
			t.Fatalf("failed to get connection string: %v", err)
		}

		pgDSN = dsn
	})

	return pgDSN
}

func TestE2E_SiteLifecycle_Postgres(t *testing.T) {
	baseURL := startServer(t, database.Config{
		Type:        "postgres",
		DSN:         getSharedPostgresDSN(t),
		AutoMigrate: true,
	})

	runSiteLifecycle(t, baseURL)
}
