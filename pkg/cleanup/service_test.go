package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/conclave-ai/conclave/pkg/database"
	"github.com/conclave-ai/conclave/pkg/models"
	"github.com/conclave-ai/conclave/pkg/session"
)

func setupStore(t *testing.T) (*database.Client, *session.Store) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed cleanup test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	client, err := database.NewClient(ctx, database.Config{
		Host: host, Port: port.Int(),
		User: "test", Password: "test", Database: "test", SSLMode: "disable",
		MaxOpenConns: 10, MaxIdleConns: 5,
		ConnMaxLifetime: 30 * time.Minute, ConnMaxIdleTime: 5 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client, session.NewStore(client)
}

func TestService_RemovesOldSessions(t *testing.T) {
	client, store := setupStore(t)
	ctx := context.Background()

	user := models.UserContext{UserID: "u1", TenantID: "t1", Role: models.RoleAdmin}

	oldID := uuid.New().String()
	freshID := uuid.New().String()
	require.NoError(t, store.EnsureSession(ctx, oldID, user))
	require.NoError(t, store.EnsureSession(ctx, freshID, user))
	require.NoError(t, store.AppendMessage(ctx, oldID, models.MessageRoleUser, "old turn"))

	// Age the first session past the retention window.
	_, err := client.DB().ExecContext(ctx,
		`UPDATE sessions SET updated_at = now() - interval '400 days' WHERE id = $1`, oldID)
	require.NoError(t, err)

	svc := NewService(Config{SessionRetentionDays: 365, Interval: time.Hour}, store)
	svc.runOnce(ctx)

	_, err = store.Get(ctx, oldID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	_, err = store.Get(ctx, freshID)
	assert.NoError(t, err)

	// Cascade removed the old session's messages.
	var count int
	require.NoError(t, client.DB().QueryRowContext(ctx,
		`SELECT count(*) FROM messages WHERE session_id = $1`, oldID).Scan(&count))
	assert.Zero(t, count)
}

func TestService_StartStop(t *testing.T) {
	_, store := setupStore(t)

	svc := NewService(Config{SessionRetentionDays: 365, Interval: time.Hour}, store)
	svc.Start(context.Background())
	svc.Stop()
}
