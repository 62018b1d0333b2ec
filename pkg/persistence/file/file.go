// Package file implements persistence on top of a directory of JSON
// documents, one per flow. Intended for development and tests.
package file

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chatforge/chatforge/pkg/persistence"
)

// Persistence implements persistence.Persistence using the file system.
// A single mutex serializes read-modify-write cycles so node and
// transition updates against the same flow document stay atomic.
type Persistence struct {
	root string
	mu   sync.Mutex

	flowRepo       *FlowRepository
	nodeRepo       *NodeRepository
	transitionRepo *TransitionRepository
}

// NewPersistence creates a file-backed persistence rooted at the given
// directory. Accepts a plain path or a "file://" URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := filepath.Clean(strings.TrimPrefix(root, "file://"))

	fp := &Persistence{root: cleanRoot}
	fp.flowRepo = &FlowRepository{p: fp}
	fp.nodeRepo = &NodeRepository{p: fp}
	fp.transitionRepo = &TransitionRepository{p: fp}

	return fp
}

// FlowRepository returns the flow repository implementation.
func (fp *Persistence) FlowRepository() persistence.FlowRepository {
	return fp.flowRepo
}

// NodeRepository returns the node repository implementation.
func (fp *Persistence) NodeRepository() persistence.NodeRepository {
	return fp.nodeRepo
}

// TransitionRepository returns the transition repository implementation.
func (fp *Persistence) TransitionRepository() persistence.TransitionRepository {
	return fp.transitionRepo
}

// HealthCheck verifies the storage directory is usable.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	return ensureDir(fp.root)
}

// Close is a no-op for file storage.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
