package session

import (
	"context"
	"os"
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
)

// newTestStore provisions a store over a real PostgreSQL. In CI it uses the
// external database from CI_DATABASE_URL; locally it starts a testcontainer.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	var cfg database.Config
	if ciDatabaseURL := os.Getenv("CI_DATABASE_URL"); ciDatabaseURL != "" {
		t.Log("Using external PostgreSQL from CI_DATABASE_URL")
		var err error
		cfg, err = database.ParseURL(ciDatabaseURL)
		require.NoError(t, err)
	} else {
		if testing.Short() {
			t.Skip("skipping container-backed store test in short mode")
		}
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

		cfg = database.Config{
			Host: host, Port: port.Int(),
			User: "test", Password: "test", Database: "test", SSLMode: "disable",
			MaxOpenConns: 10, MaxIdleConns: 5,
			ConnMaxLifetime: 30 * time.Minute, ConnMaxIdleTime: 5 * time.Minute,
		}
	}

	client, err := database.NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewStore(client)
}

func testUser() models.UserContext {
	return models.UserContext{
		UserID:   "u-1",
		TenantID: "tenant-1",
		Role:     models.RoleAdmin,
	}
}

func TestStore_SessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := uuid.New().String()
	require.NoError(t, store.EnsureSession(ctx, sessionID, testUser()))

	sess, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", sess.TenantID)
	assert.Equal(t, "running", sess.Status)

	// Idempotent: a second run on the same session just refreshes it.
	require.NoError(t, store.EnsureSession(ctx, sessionID, testUser()))

	_, err = store.Get(ctx, uuid.New().String())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_SaveResultAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := uuid.New().String()
	require.NoError(t, store.EnsureSession(ctx, sessionID, testUser()))

	final := &models.FinalEvent{
		FinalResponse:    "The vacation policy allows 20 days per year.",
		ProcessingStatus: models.StatusCompleted,
		DetectedLanguage: "english",
		FinalSources: []models.NormalizedSource{
			{URL: "https://intra.example.com/hr/policy", Title: "Vacation Policy"},
		},
		Metadata: models.FinalMetadata{QualityScore: 0.9, TotalDocuments: 1},
	}
	require.NoError(t, store.SaveResult(ctx, sessionID, "What is the vacation policy?", final))

	sess, err := store.Get(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusCompleted), sess.Status)
	assert.Equal(t, "english", sess.DetectedLanguage)

	history, err := store.History(ctx, sessionID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.MessageRoleUser, history[0].Role)
	assert.Equal(t, "What is the vacation policy?", history[0].Content)
	assert.Equal(t, models.MessageRoleAssistant, history[1].Role)

	results, err := store.Results(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, final.FinalResponse, results[0].FinalResponse)
	assert.Equal(t, models.StatusCompleted, results[0].ProcessingStatus)
	require.Len(t, results[0].FinalSources, 1)
	assert.Equal(t, "https://intra.example.com/hr/policy", results[0].FinalSources[0].URL)
	assert.InDelta(t, 0.9, results[0].Metadata.QualityScore, 1e-9)
}

func TestStore_HistoryWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sessionID := uuid.New().String()
	require.NoError(t, store.EnsureSession(ctx, sessionID, testUser()))

	for i := 0; i < 8; i++ {
		role := models.MessageRoleUser
		if i%2 == 1 {
			role = models.MessageRoleAssistant
		}
		require.NoError(t, store.AppendMessage(ctx, sessionID, role, "turn"))
	}

	history, err := store.History(ctx, sessionID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Trailing window, chronological order: assistant, user, assistant.
	assert.Equal(t, models.MessageRoleAssistant, history[0].Role)
	assert.Equal(t, models.MessageRoleUser, history[1].Role)
	assert.Equal(t, models.MessageRoleAssistant, history[2].Role)
}
