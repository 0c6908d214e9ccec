// Package scope decides whether a node lies inside the authorized subtree.
//
// The resolver uses a single canonical strategy: a depth- and count-bounded
// top-down closure of folder IDs under the configured root, built once and
// memoized. Membership checks after the build cost one metadata fetch for
// the candidate's parents and O(1) set lookups. The trade-off: folders
// deeper than the depth cap (default 3) or beyond the node cap (default
// 100) are not in the closure, so files under them are denied.
package scope

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dgallion1/drivescope/internal/drive"
)

// Store is the slice of the remote store the resolver consumes.
type Store interface {
	GetMetadata(ctx context.Context, id string) (drive.Node, error)
	ListChildren(ctx context.Context, folderID string, foldersOnly bool, pageSize int) ([]drive.Node, error)
}

// Resolver answers subtree-membership queries for a single authorized root.
type Resolver struct {
	store    Store
	rootID   string
	maxDepth int
	maxNodes int
	log      *slog.Logger

	mu      sync.Mutex
	closure map[string]struct{} // nil until the first build
}

// NewResolver creates a resolver rooted at rootID. Non-positive caps fall
// back to the defaults (depth 3, 100 nodes).
func NewResolver(store Store, rootID string, maxDepth, maxNodes int, log *slog.Logger) *Resolver {
	if maxDepth <= 0 {
		maxDepth = 3
	}
	if maxNodes <= 0 {
		maxNodes = 100
	}
	return &Resolver{
		store:    store,
		rootID:   rootID,
		maxDepth: maxDepth,
		maxNodes: maxNodes,
		log:      log,
	}
}

// IsAuthorized reports whether the node is reachable from the authorized
// root. The root itself is always authorized; any other node is authorized
// when it, or one of its direct parents, belongs to the folder closure.
func (r *Resolver) IsAuthorized(ctx context.Context, id string) (bool, error) {
	if id == r.rootID {
		return true, nil
	}

	closure, err := r.closureSet(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := closure[id]; ok {
		return true, nil
	}

	node, err := r.store.GetMetadata(ctx, id)
	if err != nil {
		return false, err
	}
	for _, parent := range node.Parents {
		if _, ok := closure[parent]; ok {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops the memoized closure so the next check rebuilds it.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closure = nil
}

// closureSet returns the memoized folder closure, building it on first use.
// The build holds the lock so concurrent first checks share one traversal.
func (r *Resolver) closureSet(ctx context.Context) (map[string]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closure != nil {
		return r.closure, nil
	}

	closure := r.build(ctx)
	r.closure = closure
	r.log.Info("authorization scope built",
		"root", r.rootID,
		"folders", len(closure),
		"max_depth", r.maxDepth,
		"max_nodes", r.maxNodes,
	)
	return closure, nil
}

// build traverses the folder hierarchy with an explicit worklist of
// (id, depth) pairs. A visited set guards against apparent revisits from
// shared-drive membership; depth and node caps bound the traversal. Listing
// failures for individual folders are logged and skipped, leaving the
// closure smaller (authorization stays conservative).
func (r *Resolver) build(ctx context.Context) map[string]struct{} {
	type item struct {
		id    string
		depth int
	}

	closure := map[string]struct{}{r.rootID: {}}
	work := []item{{id: r.rootID, depth: 0}}

	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		if cur.depth >= r.maxDepth || len(closure) >= r.maxNodes {
			continue
		}

		children, err := r.store.ListChildren(ctx, cur.id, true, 100)
		if err != nil {
			r.log.Warn("scope build: listing folder failed, skipping subtree",
				"folder", cur.id, "error", err)
			continue
		}
		for _, child := range children {
			if _, seen := closure[child.ID]; seen {
				continue
			}
			if len(closure) >= r.maxNodes {
				break
			}
			closure[child.ID] = struct{}{}
			work = append(work, item{id: child.ID, depth: cur.depth + 1})
		}
	}
	return closure
}
