package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/chatforge/chatforge/pkg/models"
	"github.com/chatforge/chatforge/pkg/persistence"
)

// FlowRepository handles flow document operations.
type FlowRepository struct {
	p *Persistence
}

func ensureDir(root string) error {
	err := os.MkdirAll(path.Join(root, "flows"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create flows directory: %w", err)
	}

	return nil
}

// ListFlows returns paginated and filtered flows with in-memory operations.
func (fr *FlowRepository) ListFlows(ctx context.Context, opts persistence.ListFlowsOptions) (*persistence.FlowListResult, error) {
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}

	if opts.SortBy == "" {
		opts.SortBy = "created_at"
	}

	if opts.SortOrder == "" {
		opts.SortOrder = "desc"
	}

	allowedSorts := map[string]bool{"created_at": true, "updated_at": true, "name": true}
	if !allowedSorts[opts.SortBy] {
		return nil, fmt.Errorf("%w: %s", persistence.ErrInvalidSortField, opts.SortBy)
	}

	root := os.DirFS(path.Join(fr.p.root, "flows"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	filtered := make([]*models.Flow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		flowID := file[:len(file)-5] // strip .json

		flow, err := fr.GetByID(ctx, flowID)
		if err != nil {
			return nil, fmt.Errorf("failed to load flow %s: %w", flowID, err)
		}

		if flow == nil || flow.DeletedAt != nil {
			continue
		}

		if opts.TenantID != "" && flow.TenantID != opts.TenantID {
			continue
		}

		if opts.IsActive != nil && flow.IsActive != *opts.IsActive {
			continue
		}

		if !opts.IncludeGraph {
			flow.Nodes = nil
			flow.Transitions = nil
		}

		filtered = append(filtered, flow)
	}

	sortFlows(filtered, opts.SortBy, opts.SortOrder)

	totalCount := int64(len(filtered))
	startIdx := opts.Offset

	endIdx := opts.Offset + opts.Limit
	if startIdx >= len(filtered) {
		return &persistence.FlowListResult{
			Flows:       make([]*models.Flow, 0),
			TotalCount:  totalCount,
			HasNextPage: false,
		}, nil
	}

	if endIdx > len(filtered) {
		endIdx = len(filtered)
	}

	return &persistence.FlowListResult{
		Flows:       filtered[startIdx:endIdx],
		TotalCount:  totalCount,
		HasNextPage: endIdx < len(filtered),
	}, nil
}

func sortFlows(flows []*models.Flow, sortBy, sortOrder string) {
	sort.Slice(flows, func(i, j int) bool {
		var less bool

		switch sortBy {
		case "updated_at":
			less = flows[i].UpdatedAt.Before(flows[j].UpdatedAt)
		case "name":
			less = flows[i].Name < flows[j].Name
		default:
			less = flows[i].CreatedAt.Before(flows[j].CreatedAt)
		}

		if sortOrder == "desc" {
			return !less
		}

		return less
	})
}

// GetByID retrieves a flow by its ID, nodes and transitions included.
// Returns nil without error when the flow does not exist.
func (fr *FlowRepository) GetByID(_ context.Context, flowID string) (*models.Flow, error) {
	filePath := filepath.Clean(path.Join(fr.p.root, "flows", flowID+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch flow %s: %w", flowID, err)
	}

	var flow models.Flow

	err = json.Unmarshal(body, &flow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow %s: %w", flowID, err)
	}

	return &flow, nil
}

// GetBySlug scans the tenant's flows for a matching slug.
func (fr *FlowRepository) GetBySlug(ctx context.Context, tenantID, slug string) (*models.Flow, error) {
	root := os.DirFS(path.Join(fr.p.root, "flows"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow files: %w", err)
	}

	for _, file := range jsonFiles {
		flow, err := fr.GetByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		if flow != nil && flow.DeletedAt == nil && flow.TenantID == tenantID && flow.Slug == slug {
			return flow, nil
		}
	}

	return nil, nil
}

// Save writes the flow document, stamping timestamps.
func (fr *FlowRepository) Save(_ context.Context, flow *models.Flow) error {
	err := ensureDir(fr.p.root)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	flow.UpdatedAt = now

	if flow.Nodes == nil {
		flow.Nodes = []*models.FlowNode{}
	}

	if flow.Transitions == nil {
		flow.Transitions = []*models.FlowTransition{}
	}

	data, err := json.MarshalIndent(flow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow %s: %w", flow.ID, err)
	}

	filePath := filepath.Clean(path.Join(fr.p.root, "flows", flow.ID+".json"))

	err = os.WriteFile(filePath, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write flow %s: %w", flow.ID, err)
	}

	return nil
}

// Delete soft-deletes the flow by stamping DeletedAt.
func (fr *FlowRepository) Delete(ctx context.Context, flowID string) error {
	fr.p.mu.Lock()
	defer fr.p.mu.Unlock()

	flow, err := fr.GetByID(ctx, flowID)
	if err != nil {
		return err
	}

	if flow == nil {
		return persistence.NewFlowError("Delete", flowID, persistence.ErrFlowNotFound)
	}

	now := time.Now().UTC()
	flow.DeletedAt = &now

	return fr.Save(ctx, flow)
}

// mutate loads a flow, applies fn and saves the result, all under the
// store mutex. Structural mutations bump the flow version the same way
// the SQL store does.
func (fr *FlowRepository) mutate(ctx context.Context, op, flowID string, fn func(*models.Flow) error) error {
	fr.p.mu.Lock()
	defer fr.p.mu.Unlock()

	flow, err := fr.GetByID(ctx, flowID)
	if err != nil {
		return err
	}

	if flow == nil || flow.DeletedAt != nil {
		return persistence.NewFlowError(op, flowID, persistence.ErrFlowNotFound)
	}

	err = fn(flow)
	if err != nil {
		return err
	}

	flow.Version++

	return fr.Save(ctx, flow)
}
