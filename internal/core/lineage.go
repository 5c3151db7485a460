package core

import "fibretrace/pkg/domain"

// Chain is the resolved ancestry of a single traceable item. Parents preserve
// the order the root linked them; grandparents are deduplicated in order of
// first appearance. The schema caps lineage depth at two hops (inbound →
// sorted → fibre), so no deeper levels exist.
type Chain struct {
	Root         TraceableItem
	Parents      []TraceableItem
	Grandparents []InboundBatch
}

// ChainView is the read surface chain resolution needs: typed lookups against
// one snapshot. Lookups return false for ids that are absent or resolve to a
// record of the wrong kind; the resolver treats both the same way.
type ChainView interface {
	FindItem(id string) (TraceableItem, bool)
	FindSortedPack(id string) (SortedPack, bool)
	FindInboundBatch(id string) (InboundBatch, bool)
}

// ResolveChain walks up to two hops of parent references from rootID and
// returns the root, its direct parents, and (for fibre packs) the
// deduplicated set of grandparent inbound batches. The boolean reports
// whether the root exists; a missing root is a normal outcome, not an error.
// Dangling parent references are omitted from the result rather than failing
// the walk.
func ResolveChain(view ChainView, rootID string) (Chain, bool) {
	root, ok := view.FindItem(rootID)
	if !ok {
		return Chain{}, false
	}

	chain := Chain{Root: root}
	switch item := root.(type) {
	case SortedPack:
		if parent, ok := view.FindInboundBatch(item.ParentInboundID); ok {
			chain.Parents = append(chain.Parents, parent)
		}
	case FibrePack:
		seen := make(map[string]struct{}, len(item.ParentSortedIDs))
		for _, parentID := range item.ParentSortedIDs {
			parent, ok := view.FindSortedPack(parentID)
			if !ok {
				continue
			}
			chain.Parents = append(chain.Parents, parent)
			if parent.ParentInboundID == "" {
				continue
			}
			if _, dup := seen[parent.ParentInboundID]; dup {
				continue
			}
			seen[parent.ParentInboundID] = struct{}{}
			if grandparent, ok := view.FindInboundBatch(parent.ParentInboundID); ok {
				chain.Grandparents = append(chain.Grandparents, grandparent)
			}
		}
	}
	return chain, true
}

// snapshotIndex is a ChainView over a flat item list, built once per query.
type snapshotIndex struct {
	items map[string]TraceableItem
}

// NewSnapshotIndex builds a ChainView from a full item snapshot. Callers that
// already fetched the store contents (the "list all, then compute" pattern)
// use this instead of issuing per-id lookups.
func NewSnapshotIndex(items []TraceableItem) ChainView {
	index := snapshotIndex{items: make(map[string]TraceableItem, len(items))}
	for _, item := range items {
		if item == nil || item.ItemID() == "" {
			continue
		}
		index.items[item.ItemID()] = item
	}
	return index
}

func (s snapshotIndex) FindItem(id string) (TraceableItem, bool) {
	item, ok := s.items[id]
	return item, ok
}

func (s snapshotIndex) FindSortedPack(id string) (SortedPack, bool) {
	pack, ok := s.items[id].(domain.SortedPack)
	return pack, ok
}

func (s snapshotIndex) FindInboundBatch(id string) (InboundBatch, bool) {
	batch, ok := s.items[id].(domain.InboundBatch)
	return batch, ok
}
