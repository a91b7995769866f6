//go:build integration

package invariantstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("jitcore_test"),
		postgres.WithUsername("jitcore_test"),
		postgres.WithPassword("jitcore_test"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	store, err := Open(ctx, &Config{
		Host:        host,
		Port:        port.Int(),
		Database:    "jitcore_test",
		User:        "jitcore_test",
		Password:    "jitcore_test",
		AutoMigrate: true,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return store
}

func TestStore_RecordAndListByMethod(t *testing.T) {
	store := startTestStore(t)
	ctx := context.Background()

	rec := &InvariantRecord{
		CompilationID: "c-1",
		MethodID:      "Foo.bar()V",
		StrategyHash:  "deadbeef",
		NodeCount:     42,
		SymRefCount:   7,
		Outcome:       OutcomeCompleted,
	}
	require.NoError(t, rec.SetDetail(map[string]any{"iterations": 3}))
	require.NoError(t, store.Record(ctx, rec))
	require.NotEmpty(t, rec.ID)

	records, err := store.ListByMethod(ctx, "Foo.bar()V")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 42, records[0].NodeCount)
}

func TestStore_DistinctShapesFlagsNondeterminism(t *testing.T) {
	store := startTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, &InvariantRecord{
		CompilationID: "c-1", MethodID: "Foo.bar()V", StrategyHash: "deadbeef",
		NodeCount: 42, SymRefCount: 7, Outcome: OutcomeCompleted,
	}))
	require.NoError(t, store.Record(ctx, &InvariantRecord{
		CompilationID: "c-2", MethodID: "Foo.bar()V", StrategyHash: "deadbeef",
		NodeCount: 43, SymRefCount: 7, Outcome: OutcomeCompleted,
	}))

	shapes, err := store.DistinctShapes(ctx, "Foo.bar()V", "deadbeef")
	require.NoError(t, err)
	require.Len(t, shapes, 2, "same method/strategy produced two distinct final shapes")
}

func TestStore_Healthy(t *testing.T) {
	store := startTestStore(t)
	require.NoError(t, store.Healthy(context.Background()))
}
