package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andresmejia3/headtrack/internal/relay"
)

// TestStoreIntegration runs the audit log against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("headtrack_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := New(ctx, connStr)
	require.NoError(t, err, "failed to connect to store")
	defer s.Close(ctx)

	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// A clean session: started, then stopped with counters.
	ok := relay.Summary{
		ID:        "0b6f4c1e-8d7a-4f3c-9a55-2c1f0e9d8b7a",
		CameraID:  1,
		Model:     3,
		Port:      40123,
		StartedAt: started,
	}
	require.NoError(t, s.SessionStarted(ctx, ok))

	sessions, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Running())

	ok.StoppedAt = started.Add(90 * time.Second)
	ok.Stats = relay.Stats{Decoded: 2700, Malformed: 2, PartialsDiscarded: 1}
	require.NoError(t, s.SessionStopped(ctx, ok))

	// A session that never started only gets a stop record.
	failed := relay.Summary{
		ID:           "7c3e9a10-2b4d-4e6f-8a1b-9c0d2e3f4a5b",
		CameraID:     0,
		Model:        1,
		StartedAt:    started.Add(time.Hour),
		StoppedAt:    started.Add(time.Hour),
		ErrorKind:    relay.SpawnError,
		ErrorMessage: "executable file not found",
	}
	require.NoError(t, s.SessionStopped(ctx, failed))

	sessions, err = s.ListSessions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	// Newest first.
	assert.Equal(t, failed.ID, sessions[0].ID.String())
	assert.Equal(t, string(relay.SpawnError), sessions[0].ErrorKind)
	assert.Equal(t, "executable file not found", sessions[0].ErrorMessage)

	got := sessions[1]
	assert.Equal(t, ok.ID, got.ID.String())
	assert.False(t, got.Running())
	assert.Equal(t, 40123, got.Port)
	assert.Equal(t, int64(2700), got.RecordsDecoded)
	assert.Equal(t, int64(2), got.PacketsMalformed)
	assert.Equal(t, int64(1), got.PartialsDiscarded)
	assert.Empty(t, got.ErrorKind)
	assert.True(t, got.StoppedAt.Equal(ok.StoppedAt))

	limited, err := s.ListSessions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, s.Reset(ctx))
	_, err = s.ListSessions(ctx, 0)
	assert.Error(t, err, "table should be gone after Reset")
}

func TestSessionIDMustBeUUID(t *testing.T) {
	s := &Store{}
	err := s.SessionStarted(context.Background(), relay.Summary{ID: "not-a-uuid"})
	assert.ErrorContains(t, err, "invalid session id")
	err = s.SessionStopped(context.Background(), relay.Summary{ID: ""})
	assert.ErrorContains(t, err, "invalid session id")
}
