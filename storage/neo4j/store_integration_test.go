//go:build integration

package neo4j

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/poiesic/unitgraph/core"
	"github.com/poiesic/unitgraph/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startNeo4j(t *testing.T) *Store {
	t.Helper()
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "neo4j:5",
			ExposedPorts: []string{"7687/tcp"},
			Env:          map[string]string{"NEO4J_AUTH": "neo4j/unitgraph-test"},
			WaitingFor:   wait.ForLog("Started.").WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "7687")
	require.NoError(t, err)

	store, err := NewStore(ctx, Config{
		URI:      fmt.Sprintf("bolt://%s:%s", host, port.Port()),
		Username: "neo4j",
		Password: "unitgraph-test",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_CommitAndDelete(t *testing.T) {
	store := startNeo4j(t)
	ctx := context.Background()
	const eid = "ep-neo"

	require.NoError(t, store.CreateEpisode(ctx, &core.Episode{ID: eid, Title: "T", Status: core.EpisodeStatusPending}))
	require.NoError(t, store.CreateUnit(ctx, eid, &core.MeaningfulUnit{ID: "u0", Index: 0, Text: "hi"}))

	a := &core.Entity{ID: 1, Type: "Person", Value: "Jane", SupportingUnitIDs: []string{"u0"}}
	b := &core.Entity{ID: 2, Type: "Tool", Value: "koji", SupportingUnitIDs: []string{"u0"}}
	require.NoError(t, store.CreateEntity(ctx, eid, a))
	require.NoError(t, store.CreateEntity(ctx, eid, b))
	rel := &core.Relationship{SourceEntityID: 1, TargetEntityID: 2, Type: "uses"}
	require.NoError(t, store.CreateRelationship(ctx, eid, rel))
	require.NoError(t, store.CreateRelationship(ctx, eid, rel))

	_, err := store.GetEpisode(ctx, eid)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.MarkEpisodeCommitted(ctx, eid, time.Now()))
	rels, err := store.ListRelationships(ctx, eid)
	require.NoError(t, err)
	assert.Len(t, rels, 1)

	count, err := store.CountEpisodeNodes(ctx, eid)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	deleted, err := store.DeleteEpisodeSubgraph(ctx, eid)
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	count, err = store.CountEpisodeNodes(ctx, eid)
	require.NoError(t, err)
	assert.Zero(t, count)
}
