package file_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
	"github.com/chatforge/chatforge/pkg/persistence/file"
)

func setupStore(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func seedFlow(t *testing.T, store *file.Persistence, id, slug string) *models.Flow {
	t.Helper()

	flow := &models.Flow{
		ID:       id,
		TenantID: "tenant-1",
		Name:     "Flow " + id,
		Slug:     slug,
		IsActive: true,
		Version:  1,
		Nodes: []*models.FlowNode{
			{ID: id + "-start", Type: models.NodeTypeStart, Name: "Start"},
			{ID: id + "-msg", Type: models.NodeTypeMessage, Name: "Welcome"},
		},
		Transitions: []*models.FlowTransition{
			{ID: id + "-t1", FromNodeID: id + "-start", ToNodeID: id + "-msg"},
		},
	}

	require.NoError(t, store.FlowRepository().Save(context.Background(), flow))

	return flow
}

func TestFlowRepository_SaveAndGetByID(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	seedFlow(t, store, "flow-1", "flow-one")

	loaded, err := store.FlowRepository().GetByID(context.Background(), "flow-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, "Flow flow-1", loaded.Name)
	assert.Len(t, loaded.Nodes, 2)
	assert.Len(t, loaded.Transitions, 1)
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestFlowRepository_GetByID_Missing(t *testing.T) {
	t.Parallel()

	store := setupStore(t)

	loaded, err := store.FlowRepository().GetByID(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestFlowRepository_GetBySlug(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	seedFlow(t, store, "flow-1", "flow-one")

	loaded, err := store.FlowRepository().GetBySlug(context.Background(), "tenant-1", "flow-one")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "flow-1", loaded.ID)

	// Same slug under another tenant is free.
	other, err := store.FlowRepository().GetBySlug(context.Background(), "tenant-2", "flow-one")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestFlowRepository_SoftDelete(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	seedFlow(t, store, "flow-1", "flow-one")

	require.NoError(t, store.FlowRepository().Delete(context.Background(), "flow-1"))

	// The document survives with a deletion stamp and disappears from
	// listings and slug lookups.
	loaded, err := store.FlowRepository().GetByID(context.Background(), "flow-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.NotNil(t, loaded.DeletedAt)

	bySlug, err := store.FlowRepository().GetBySlug(context.Background(), "tenant-1", "flow-one")
	require.NoError(t, err)
	assert.Nil(t, bySlug)

	result, err := store.FlowRepository().ListFlows(context.Background(), persistence.ListFlowsOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.Flows)
}

func TestFlowRepository_ListFlows(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	seedFlow(t, store, "flow-a", "slug-a")
	seedFlow(t, store, "flow-b", "slug-b")
	seedFlow(t, store, "flow-c", "slug-c")

	result, err := store.FlowRepository().ListFlows(context.Background(), persistence.ListFlowsOptions{
		Limit:     2,
		SortBy:    "name",
		SortOrder: "asc",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.TotalCount)
	assert.True(t, result.HasNextPage)
	require.Len(t, result.Flows, 2)
	assert.Equal(t, "flow-a", result.Flows[0].ID)
	assert.Nil(t, result.Flows[0].Nodes, "graph is omitted unless requested")
}

func TestFlowRepository_ListFlows_InvalidSortField(t *testing.T) {
	t.Parallel()

	store := setupStore(t)

	_, err := store.FlowRepository().ListFlows(context.Background(), persistence.ListFlowsOptions{
		SortBy: "slug",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, persistence.ErrInvalidSortField)
}

func TestNodeRepository_SaveBumpsVersion(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	seedFlow(t, store, "flow-1", "flow-one")

	err := store.NodeRepository().SaveNode(context.Background(), "flow-1", &models.FlowNode{
		ID:   "new-node",
		Type: models.NodeTypeEnd,
		Name: "End",
	})
	require.NoError(t, err)

	flow, err := store.FlowRepository().GetByID(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.Equal(t, 2, flow.Version, "structural change bumps the version")
	assert.Len(t, flow.Nodes, 3)
}

func TestNodeRepository_DeleteNodeWithTransitions(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	seedFlow(t, store, "flow-1", "flow-one")

	err := store.NodeRepository().DeleteNodeWithTransitions(context.Background(), "flow-1", "flow-1-msg")
	require.NoError(t, err)

	flow, err := store.FlowRepository().GetByID(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.Len(t, flow.Nodes, 1)
	assert.Empty(t, flow.Transitions, "transitions touching the node are cascaded")
}

func TestNodeRepository_NotFoundErrors(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	seedFlow(t, store, "flow-1", "flow-one")

	_, err := store.NodeRepository().GetNodeByFlow(context.Background(), "flow-1", "ghost")
	require.Error(t, err)
	assert.True(t, persistence.IsNodeNotFound(err))

	err = store.NodeRepository().SaveNode(context.Background(), "ghost-flow", &models.FlowNode{ID: "n"})
	require.Error(t, err)
	assert.True(t, persistence.IsFlowNotFound(err))
}

func TestTransitionRepository_EndpointsMustExist(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	seedFlow(t, store, "flow-1", "flow-one")

	err := store.TransitionRepository().SaveTransition(context.Background(), "flow-1", &models.FlowTransition{
		ID:         "t-bad",
		FromNodeID: "flow-1-start",
		ToNodeID:   "ghost",
	})
	require.Error(t, err)
	assert.True(t, persistence.IsNodeNotFound(err))
}

func TestTransitionRepository_UpdateAndDelete(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	seedFlow(t, store, "flow-1", "flow-one")

	updated := &models.FlowTransition{
		ID:         "flow-1-t1",
		FromNodeID: "flow-1-start",
		ToNodeID:   "flow-1-msg",
		Condition:  "name == 'Alice'",
		Priority:   7,
	}

	require.NoError(t, store.TransitionRepository().UpdateTransition(context.Background(), "flow-1", updated))

	loaded, err := store.TransitionRepository().GetTransitionByFlow(context.Background(), "flow-1", "flow-1-t1")
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Priority)

	require.NoError(t, store.TransitionRepository().DeleteTransition(context.Background(), "flow-1", "flow-1-t1"))

	_, err = store.TransitionRepository().GetTransitionByFlow(context.Background(), "flow-1", "flow-1-t1")
	require.Error(t, err)
	assert.True(t, persistence.IsTransitionNotFound(err))

	flow, err := store.FlowRepository().GetByID(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.Equal(t, 3, flow.Version, "two structural changes bump the version twice")
}
