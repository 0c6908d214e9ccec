package tools

import (
	"context"
	"strings"

	"github.com/dgallion1/drivescope/internal/drive"
)

const (
	// subfolderFanout caps how many subfolders per level the search walk
	// enqueues, keeping the traversal bounded on wide hierarchies.
	subfolderFanout = 10

	// maxTreeDepth is the hard ceiling on requested tree depth.
	maxTreeDepth = 10
)

type treeNode struct {
	node     drive.Node
	children []*treeNode
}

// buildTree lists folder levels with an explicit worklist of
// (folder, depth, parent) entries, bounded by maxDepth. Listing failures
// prune the affected subtree instead of failing the whole walk.
func (s *Server) buildTree(ctx context.Context, folderID string, maxDepth int, includeFiles bool, maxItems int) []*treeNode {
	type item struct {
		id     string
		depth  int
		parent *treeNode
	}

	root := &treeNode{}
	work := []item{{id: folderID, depth: 0, parent: root}}

	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		if cur.depth >= maxDepth {
			continue
		}

		children, err := s.store.ListChildren(ctx, cur.id, !includeFiles, maxItems)
		if err != nil {
			s.log.Warn("tree walk: listing folder failed, pruning subtree",
				"folder", cur.id, "error", err)
			continue
		}
		for _, child := range children {
			n := &treeNode{node: child}
			cur.parent.children = append(cur.parent.children, n)
			if child.IsFolder() {
				work = append(work, item{id: child.ID, depth: cur.depth + 1, parent: n})
			}
		}
	}
	return root.children
}

func countTree(nodes []*treeNode, folders bool) int {
	count := 0
	for _, n := range nodes {
		if n.node.IsFolder() == folders {
			count++
		}
		count += countTree(n.children, folders)
	}
	return count
}

// searchSubtree walks the authorized hierarchy breadth-first, collecting
// nodes whose name contains the query, until pageSize matches are found or
// the subtree is exhausted. Folders that fail to list are skipped.
func (s *Server) searchSubtree(ctx context.Context, query string, pageSize int) []drive.Node {
	needle := strings.ToLower(query)

	var matches []drive.Node
	work := []string{s.rootID}
	visited := map[string]struct{}{s.rootID: {}}

	for len(work) > 0 && len(matches) < pageSize {
		folderID := work[0]
		work = work[1:]

		children, err := s.store.ListChildren(ctx, folderID, false, 50)
		if err != nil {
			s.log.Warn("search: listing folder failed, skipping",
				"folder", folderID, "error", err)
			continue
		}

		enqueued := 0
		for _, child := range children {
			if len(matches) < pageSize && strings.Contains(strings.ToLower(child.Name), needle) {
				matches = append(matches, child)
			}
			if child.IsFolder() && enqueued < subfolderFanout {
				if _, seen := visited[child.ID]; !seen {
					visited[child.ID] = struct{}{}
					work = append(work, child.ID)
					enqueued++
				}
			}
		}
	}
	return matches
}
