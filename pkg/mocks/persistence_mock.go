// Package mocks provides testify mocks for the persistence and eventbus
// interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
)

// MockFlowRepository is a mock implementation of persistence.FlowRepository interface.
type MockFlowRepository struct {
	mock.Mock
}

func (m *MockFlowRepository) ListFlows(ctx context.Context, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.FlowListResult), args.Error(1)
}

func (m *MockFlowRepository) GetByID(ctx context.Context, id string) (*models.Flow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) GetBySlug(ctx context.Context, tenantID, slug string) (*models.Flow, error) {
	args := m.Called(ctx, tenantID, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Flow), args.Error(1)
}

func (m *MockFlowRepository) Save(ctx context.Context, flow *models.Flow) error {
	args := m.Called(ctx, flow)

	return args.Error(0)
}

func (m *MockFlowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockNodeRepository is a mock implementation of persistence.NodeRepository interface.
type MockNodeRepository struct {
	mock.Mock
}

func (m *MockNodeRepository) GetNodeByFlow(ctx context.Context, flowID, nodeID string) (*models.FlowNode, error) {
	args := m.Called(ctx, flowID, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.FlowNode), args.Error(1)
}

func (m *MockNodeRepository) SaveNode(ctx context.Context, flowID string, node *models.FlowNode) error {
	args := m.Called(ctx, flowID, node)

	return args.Error(0)
}

func (m *MockNodeRepository) UpdateNode(ctx context.Context, flowID string, node *models.FlowNode) error {
	args := m.Called(ctx, flowID, node)

	return args.Error(0)
}

func (m *MockNodeRepository) DeleteNodeWithTransitions(ctx context.Context, flowID, nodeID string) error {
	args := m.Called(ctx, flowID, nodeID)

	return args.Error(0)
}

// MockTransitionRepository is a mock implementation of persistence.TransitionRepository interface.
type MockTransitionRepository struct {
	mock.Mock
}

func (m *MockTransitionRepository) GetTransitionByFlow(ctx context.Context, flowID, transitionID string) (*models.FlowTransition, error) {
	args := m.Called(ctx, flowID, transitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.FlowTransition), args.Error(1)
}

func (m *MockTransitionRepository) SaveTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error {
	args := m.Called(ctx, flowID, transition)

	return args.Error(0)
}

func (m *MockTransitionRepository) UpdateTransition(ctx context.Context, flowID string, transition *models.FlowTransition) error {
	args := m.Called(ctx, flowID, transition)

	return args.Error(0)
}

func (m *MockTransitionRepository) DeleteTransition(ctx context.Context, flowID, transitionID string) error {
	args := m.Called(ctx, flowID, transitionID)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	flowRepo       *MockFlowRepository
	nodeRepo       *MockNodeRepository
	transitionRepo *MockTransitionRepository
}

// NewMockPersistence creates a new MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		flowRepo:       &MockFlowRepository{},
		nodeRepo:       &MockNodeRepository{},
		transitionRepo: &MockTransitionRepository{},
	}
}

// GetMockFlowRepository returns the underlying mock flow repository for setting up expectations.
func (m *MockPersistence) GetMockFlowRepository() *MockFlowRepository {
	return m.flowRepo
}

// GetMockNodeRepository returns the underlying mock node repository for setting up expectations.
func (m *MockPersistence) GetMockNodeRepository() *MockNodeRepository {
	return m.nodeRepo
}

// GetMockTransitionRepository returns the underlying mock transition repository for setting up expectations.
func (m *MockPersistence) GetMockTransitionRepository() *MockTransitionRepository {
	return m.transitionRepo
}

func (m *MockPersistence) FlowRepository() persistence.FlowRepository {
	return m.flowRepo
}

func (m *MockPersistence) NodeRepository() persistence.NodeRepository {
	return m.nodeRepo
}

func (m *MockPersistence) TransitionRepository() persistence.TransitionRepository {
	return m.transitionRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
