package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/pkg/mocks"
	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
)

func TestFlow_Create(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	flowRepo := mockPersistence.GetMockFlowRepository()

	flowRepo.On("GetBySlug", mock.Anything, "tenant-1", "welcome-flow").Return(nil, nil)
	flowRepo.On("Save", mock.Anything, mock.AnythingOfType("*models.Flow")).Return(nil)

	service := NewFlow(mockPersistence, nil)

	created, err := service.Create(context.Background(), &models.Flow{
		Name:     "Welcome Flow",
		TenantID: "tenant-1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "welcome-flow", created.Slug, "slug is derived from the name")
	assert.Equal(t, 1, created.Version)
	assert.NotNil(t, created.Nodes)
	assert.NotNil(t, created.Transitions)

	flowRepo.AssertExpectations(t)
}

func TestFlow_Create_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		flow     *models.Flow
		expected error
	}{
		{"nil flow", nil, ErrFlowNil},
		{"empty name", &models.Flow{Name: "   "}, ErrNameRequired},
		{"invalid slug", &models.Flow{Name: "Valid Name", Slug: "Not A Slug!"}, ErrInvalidSlug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service := NewFlow(mocks.NewMockPersistence(), nil)

			_, err := service.Create(context.Background(), tt.flow)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expected)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestFlow_Create_SlugTaken(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	flowRepo := mockPersistence.GetMockFlowRepository()

	flowRepo.On("GetBySlug", mock.Anything, "", "taken").
		Return(&models.Flow{ID: "existing", Slug: "taken"}, nil)

	service := NewFlow(mockPersistence, nil)

	_, err := service.Create(context.Background(), &models.Flow{Name: "Another Flow", Slug: "taken"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSlugTaken)
	assert.True(t, IsConflictError(err))
}

func TestFlow_Delete_NotFound(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	mockPersistence.GetMockFlowRepository().
		On("GetByID", mock.Anything, "missing").Return(nil, nil)

	service := NewFlow(mockPersistence, nil)

	err := service.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestFlow_ListFlows_Defaults(t *testing.T) {
	t.Parallel()

	mockPersistence := mocks.NewMockPersistence()
	flowRepo := mockPersistence.GetMockFlowRepository()

	flowRepo.On("ListFlows", mock.Anything, persistence.ListFlowsOptions{
		Limit:     20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}).Return(&persistence.FlowListResult{Flows: []*models.Flow{}}, nil)

	service := NewFlow(mockPersistence, nil)

	result, err := service.ListFlows(context.Background(), ListFlowsRequest{})
	require.NoError(t, err)
	assert.NotNil(t, result)

	flowRepo.AssertExpectations(t)
}

func TestFlow_ListFlows_InvalidSort(t *testing.T) {
	t.Parallel()

	service := NewFlow(mocks.NewMockPersistence(), nil)

	_, err := service.ListFlows(context.Background(), ListFlowsRequest{SortBy: "slug"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSortField)

	_, err = service.ListFlows(context.Background(), ListFlowsRequest{SortOrder: "sideways"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSortOrder)
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple", "Welcome Flow", "welcome-flow"},
		{"punctuation collapses", "Hello, World!", "hello-world"},
		{"leading and trailing junk", "  --Flow--  ", "flow"},
		{"digits survive", "Flow 2.0", "flow-2-0"},
		{"already clean", "support", "support"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}
