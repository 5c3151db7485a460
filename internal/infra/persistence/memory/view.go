package memory

import (
	"sort"

	"fibretrace/pkg/domain"
)

// transactionView exposes a read-only snapshot of the transactional state to
// rules and lineage queries.
type transactionView struct {
	state *memoryState
}

var _ domain.TransactionView = transactionView{}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListInboundBatches returns all inbound batches within the snapshot.
func (v transactionView) ListInboundBatches() []InboundBatch {
	out := make([]InboundBatch, 0, len(v.state.inbound))
	for _, b := range v.state.inbound {
		out = append(out, cloneInbound(b))
	}
	sortByCreation(out, func(b InboundBatch) (string, int64) { return b.ID, b.CreatedAt.UnixNano() })
	return out
}

// ListSortedPacks returns all sorted packs within the snapshot.
func (v transactionView) ListSortedPacks() []SortedPack {
	out := make([]SortedPack, 0, len(v.state.sorted))
	for _, p := range v.state.sorted {
		out = append(out, cloneSorted(p))
	}
	sortByCreation(out, func(p SortedPack) (string, int64) { return p.ID, p.CreatedAt.UnixNano() })
	return out
}

// ListFibrePacks returns all fibre packs within the snapshot.
func (v transactionView) ListFibrePacks() []FibrePack {
	out := make([]FibrePack, 0, len(v.state.fibre))
	for _, p := range v.state.fibre {
		out = append(out, cloneFibre(p))
	}
	sortByCreation(out, func(p FibrePack) (string, int64) { return p.ID, p.CreatedAt.UnixNano() })
	return out
}

// ListConsignments returns all consignments within the snapshot.
func (v transactionView) ListConsignments() []Consignment {
	out := make([]Consignment, 0, len(v.state.consignments))
	for _, c := range v.state.consignments {
		out = append(out, cloneConsignment(c))
	}
	sortByCreation(out, func(c Consignment) (string, int64) { return c.ID, c.CreatedAt.UnixNano() })
	return out
}

// ListItems returns the full traceable snapshot in creation order. Consignments
// are shipment groupings, not traceable items, and are excluded.
func (v transactionView) ListItems() []TraceableItem {
	out := make([]TraceableItem, 0, len(v.state.inbound)+len(v.state.sorted)+len(v.state.fibre))
	for _, b := range v.ListInboundBatches() {
		out = append(out, b)
	}
	for _, p := range v.ListSortedPacks() {
		out = append(out, p)
	}
	for _, p := range v.ListFibrePacks() {
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Created().Equal(out[j].Created()) {
			return out[i].Created().Before(out[j].Created())
		}
		return out[i].ItemID() < out[j].ItemID()
	})
	return out
}

// FindItem retrieves any traceable item by ID from the snapshot.
func (v transactionView) FindItem(id string) (TraceableItem, bool) {
	if b, ok := v.state.inbound[id]; ok {
		return cloneInbound(b), true
	}
	if p, ok := v.state.sorted[id]; ok {
		return cloneSorted(p), true
	}
	if p, ok := v.state.fibre[id]; ok {
		return cloneFibre(p), true
	}
	return nil, false
}

// FindInboundBatch retrieves an inbound batch by ID from the snapshot.
func (v transactionView) FindInboundBatch(id string) (InboundBatch, bool) {
	b, ok := v.state.inbound[id]
	if !ok {
		return InboundBatch{}, false
	}
	return cloneInbound(b), true
}

// FindSortedPack retrieves a sorted pack by ID from the snapshot.
func (v transactionView) FindSortedPack(id string) (SortedPack, bool) {
	p, ok := v.state.sorted[id]
	if !ok {
		return SortedPack{}, false
	}
	return cloneSorted(p), true
}

// FindFibrePack retrieves a fibre pack by ID from the snapshot.
func (v transactionView) FindFibrePack(id string) (FibrePack, bool) {
	p, ok := v.state.fibre[id]
	if !ok {
		return FibrePack{}, false
	}
	return cloneFibre(p), true
}

// FindConsignment retrieves a consignment by ID from the snapshot.
func (v transactionView) FindConsignment(id string) (Consignment, bool) {
	c, ok := v.state.consignments[id]
	if !ok {
		return Consignment{}, false
	}
	return cloneConsignment(c), true
}

// AuditLog returns the audit trail newest-first.
func (v transactionView) AuditLog() []AuditLogEntry {
	return append([]AuditLogEntry(nil), v.state.auditLog...)
}

// sortByCreation orders records by creation time, breaking ties by ID so list
// output is deterministic across map iteration orders.
func sortByCreation[T any](items []T, key func(T) (string, int64)) {
	sort.SliceStable(items, func(i, j int) bool {
		idI, tI := key(items[i])
		idJ, tJ := key(items[j])
		if tI != tJ {
			return tI < tJ
		}
		return idI < idJ
	})
}

// Committed-state read helpers -----------------------------------------------

// ListItems returns all traceable items from committed state.
func (s *Store) ListItems() []TraceableItem {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return newTransactionView(&snapshot).ListItems()
}

// FindItem retrieves any traceable item by ID from committed state.
func (s *Store) FindItem(id string) (TraceableItem, bool) {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return newTransactionView(&snapshot).FindItem(id)
}

// ListInboundBatches returns all inbound batches from committed state.
func (s *Store) ListInboundBatches() []InboundBatch {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return newTransactionView(&snapshot).ListInboundBatches()
}

// ListSortedPacks returns all sorted packs from committed state.
func (s *Store) ListSortedPacks() []SortedPack {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return newTransactionView(&snapshot).ListSortedPacks()
}

// ListFibrePacks returns all fibre packs from committed state.
func (s *Store) ListFibrePacks() []FibrePack {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return newTransactionView(&snapshot).ListFibrePacks()
}

// ListConsignments returns all consignments from committed state.
func (s *Store) ListConsignments() []Consignment {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return newTransactionView(&snapshot).ListConsignments()
}

// AuditLog returns the audit trail from committed state, newest-first.
func (s *Store) AuditLog() []AuditLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditLogEntry(nil), s.state.auditLog...)
}
