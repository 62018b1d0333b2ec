package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/pkg/events"
	"github.com/chatforge/chatforge/pkg/mocks"
	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/registry"
)

func testFlow() *models.Flow {
	return &models.Flow{
		ID:       "flow-1",
		TenantID: "tenant-1",
		Name:     "Test Flow",
		Slug:     "test-flow",
		Nodes: []*models.FlowNode{
			{ID: "start", Name: "Start", Type: models.NodeTypeStart},
			{ID: "msg", Name: "Welcome", Type: models.NodeTypeMessage},
		},
		Transitions: []*models.FlowTransition{
			{ID: "t1", FromNodeID: "start", ToNodeID: "msg"},
		},
	}
}

func TestNode_CreateNode_AppliesDefaultConfig(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.GetMockFlowRepository().
		On("GetByID", mock.Anything, "flow-1").Return(testFlow(), nil)

	var saved *models.FlowNode

	mockPersistence.GetMockNodeRepository().
		On("SaveNode", mock.Anything, "flow-1", mock.AnythingOfType("*models.FlowNode")).
		Run(func(args mock.Arguments) {
			saved = args.Get(2).(*models.FlowNode)
		}).
		Return(nil)

	service := NewNode(mockPersistence, registry.New(), nil)

	node, err := service.CreateNode(context.Background(), "flow-1", &CreateNodeRequest{
		Type:     models.NodeTypeMessage,
		Position: models.Position{X: 100, Y: 200},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, node.ID)
	assert.Equal(t, "Message", node.Name, "empty name falls back to the catalog label")
	assert.Equal(t, map[string]any{"message": "Enter your message here"}, node.Config)
	assert.Equal(t, models.Position{X: 100, Y: 200}, node.Position)
	assert.Same(t, node, saved)
}

func TestNode_CreateNode_UnknownType(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.GetMockFlowRepository().
		On("GetByID", mock.Anything, "flow-1").Return(testFlow(), nil)

	service := NewNode(mockPersistence, registry.New(), nil)

	_, err := service.CreateNode(context.Background(), "flow-1", &CreateNodeRequest{
		Type: models.NodeType("teleport"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownNodeType)
	assert.True(t, IsValidationError(err))
}

func TestNode_CreateNode_SecondStartRejected(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.GetMockFlowRepository().
		On("GetByID", mock.Anything, "flow-1").Return(testFlow(), nil)

	service := NewNode(mockPersistence, registry.New(), nil)

	_, err := service.CreateNode(context.Background(), "flow-1", &CreateNodeRequest{
		Type: models.NodeTypeStart,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStartNodeExists)
	assert.True(t, IsConflictError(err))
}

func TestNode_CreateNode_FlowNotFound(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.GetMockFlowRepository().
		On("GetByID", mock.Anything, "missing").Return(nil, nil)

	service := NewNode(mockPersistence, registry.New(), nil)

	_, err := service.CreateNode(context.Background(), "missing", &CreateNodeRequest{
		Type: models.NodeTypeMessage,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestNode_UpdateNode_PartialMerge(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.GetMockFlowRepository().
		On("GetByID", mock.Anything, "flow-1").Return(testFlow(), nil)

	existing := &models.FlowNode{
		ID:       "msg",
		FlowID:   "flow-1",
		Name:     "Welcome",
		Type:     models.NodeTypeMessage,
		Position: models.Position{X: 10, Y: 20},
		Config:   map[string]any{"message": "old"},
	}

	nodeRepo := mockPersistence.GetMockNodeRepository()
	nodeRepo.On("GetNodeByFlow", mock.Anything, "flow-1", "msg").Return(existing, nil)
	nodeRepo.On("UpdateNode", mock.Anything, "flow-1", mock.AnythingOfType("*models.FlowNode")).Return(nil)

	service := NewNode(mockPersistence, registry.New(), nil)

	newName := "Greeting"

	updated, err := service.UpdateNode(context.Background(), "flow-1", "msg", &UpdateNodeRequest{
		Name: &newName,
	})
	require.NoError(t, err)

	assert.Equal(t, "Greeting", updated.Name)
	assert.Equal(t, models.Position{X: 10, Y: 20}, updated.Position, "position untouched by partial update")
	assert.Equal(t, "old", updated.Config["message"], "config untouched by partial update")
}

func TestNode_UpdateNode_EmptyNameRejected(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.GetMockFlowRepository().
		On("GetByID", mock.Anything, "flow-1").Return(testFlow(), nil)
	mockPersistence.GetMockNodeRepository().
		On("GetNodeByFlow", mock.Anything, "flow-1", "msg").
		Return(&models.FlowNode{ID: "msg", Name: "Welcome", Type: models.NodeTypeMessage}, nil)

	service := NewNode(mockPersistence, registry.New(), nil)

	blank := "   "

	_, err := service.UpdateNode(context.Background(), "flow-1", "msg", &UpdateNodeRequest{Name: &blank})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestNode_DeleteNode_CascadePublishesTransitionIDs(t *testing.T) {
	t.Parallel()

	flow := testFlow()
	flow.Transitions = append(flow.Transitions,
		&models.FlowTransition{ID: "t2", FromNodeID: "msg", ToNodeID: "start"})

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.GetMockFlowRepository().
		On("GetByID", mock.Anything, "flow-1").Return(flow, nil)
	mockPersistence.GetMockNodeRepository().
		On("DeleteNodeWithTransitions", mock.Anything, "flow-1", "msg").Return(nil)

	mockBus := &mocks.MockEventBus{}
	mockBus.On("Publish", mock.Anything, "flow-1", mock.Anything).Return(nil)

	service := NewNode(mockPersistence, registry.New(), mockBus)

	err := service.DeleteNode(context.Background(), "flow-1", "msg")
	require.NoError(t, err)

	// Both transitions touch the deleted node; the event must name them.
	require.Len(t, mockBus.Calls, 1)

	event, ok := mockBus.Calls[0].Arguments.Get(2).(events.NodeDeleted)
	require.True(t, ok)
	assert.Equal(t, "msg", event.NodeID)
	assert.ElementsMatch(t, []string{"t1", "t2"}, event.CascadedTransitionIDs)

	mockBus.AssertExpectations(t)
	mockPersistence.GetMockNodeRepository().AssertExpectations(t)
}

func TestNode_DeleteNode_NotFound(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.GetMockFlowRepository().
		On("GetByID", mock.Anything, "flow-1").Return(testFlow(), nil)

	service := NewNode(mockPersistence, registry.New(), nil)

	err := service.DeleteNode(context.Background(), "flow-1", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNodeNotFound)
}
