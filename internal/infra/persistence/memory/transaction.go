package memory

import (
	"fmt"
	"time"

	"fibretrace/pkg/domain"
)

// transaction represents a mutation set applied to the store state. Creation
// timestamps are stamped from the transaction clock so that every record
// written in one transaction shares the same instant.
type transaction struct {
	state   memoryState
	changes []Change
	now     time.Time
}

var _ domain.Transaction = (*transaction)(nil)

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) idInUse(id string) bool {
	if _, ok := tx.state.inbound[id]; ok {
		return true
	}
	if _, ok := tx.state.sorted[id]; ok {
		return true
	}
	if _, ok := tx.state.fibre[id]; ok {
		return true
	}
	_, ok := tx.state.consignments[id]
	return ok
}

// CreateInboundBatch stores a new inbound batch within the transaction.
func (tx *transaction) CreateInboundBatch(b InboundBatch) (InboundBatch, error) {
	if b.ID == "" {
		return InboundBatch{}, fmt.Errorf("inbound batch requires an id")
	}
	if tx.idInUse(b.ID) {
		return InboundBatch{}, fmt.Errorf("item %q already exists", b.ID)
	}
	b.CreatedAt = tx.now
	tx.state.inbound[b.ID] = cloneInbound(b)
	tx.recordChange(Change{Kind: domain.KindInbound, Action: domain.ActionCreate, After: cloneInbound(b)})
	return cloneInbound(b), nil
}

// CreateSortedPack stores a new sorted pack within the transaction.
func (tx *transaction) CreateSortedPack(p SortedPack) (SortedPack, error) {
	if p.ID == "" {
		return SortedPack{}, fmt.Errorf("sorted pack requires an id")
	}
	if tx.idInUse(p.ID) {
		return SortedPack{}, fmt.Errorf("item %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	tx.state.sorted[p.ID] = cloneSorted(p)
	tx.recordChange(Change{Kind: domain.KindSorted, Action: domain.ActionCreate, After: cloneSorted(p)})
	return cloneSorted(p), nil
}

// CreateFibrePack stores a new fibre pack within the transaction.
func (tx *transaction) CreateFibrePack(p FibrePack) (FibrePack, error) {
	if p.ID == "" {
		return FibrePack{}, fmt.Errorf("fibre pack requires an id")
	}
	if tx.idInUse(p.ID) {
		return FibrePack{}, fmt.Errorf("item %q already exists", p.ID)
	}
	p.CreatedAt = tx.now
	tx.state.fibre[p.ID] = cloneFibre(p)
	tx.recordChange(Change{Kind: domain.KindFibre, Action: domain.ActionCreate, After: cloneFibre(p)})
	return cloneFibre(p), nil
}

// CreateConsignment stores a new consignment within the transaction.
func (tx *transaction) CreateConsignment(c Consignment) (Consignment, error) {
	if c.ID == "" {
		return Consignment{}, fmt.Errorf("consignment requires an id")
	}
	if tx.idInUse(c.ID) {
		return Consignment{}, fmt.Errorf("item %q already exists", c.ID)
	}
	c.CreatedAt = tx.now
	tx.state.consignments[c.ID] = cloneConsignment(c)
	tx.recordChange(Change{Kind: domain.KindConsignment, Action: domain.ActionCreate, After: cloneConsignment(c)})
	return cloneConsignment(c), nil
}

// UpdateFibrePack mutates a fibre pack using the provided mutator function.
// This is the only update operation the schema permits; callers use it solely
// for the documented weight correction.
func (tx *transaction) UpdateFibrePack(id string, mutator func(*FibrePack) error) (FibrePack, error) {
	current, ok := tx.state.fibre[id]
	if !ok {
		return FibrePack{}, fmt.Errorf("fibre pack %q not found", id)
	}
	before := cloneFibre(current)
	if err := mutator(&current); err != nil {
		return FibrePack{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	tx.state.fibre[id] = cloneFibre(current)
	tx.recordChange(Change{Kind: domain.KindFibre, Action: domain.ActionUpdate, Before: before, After: cloneFibre(current)})
	return cloneFibre(current), nil
}

// AppendAuditLog prepends an audit entry, keeping the log newest-first.
func (tx *transaction) AppendAuditLog(entry AuditLogEntry) AuditLogEntry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = tx.now
	}
	tx.state.auditLog = append([]AuditLogEntry{entry}, tx.state.auditLog...)
	return entry
}

// FindInboundBatch retrieves an inbound batch from the transaction state.
func (tx *transaction) FindInboundBatch(id string) (InboundBatch, bool) {
	b, ok := tx.state.inbound[id]
	if !ok {
		return InboundBatch{}, false
	}
	return cloneInbound(b), true
}

// FindSortedPack retrieves a sorted pack from the transaction state.
func (tx *transaction) FindSortedPack(id string) (SortedPack, bool) {
	p, ok := tx.state.sorted[id]
	if !ok {
		return SortedPack{}, false
	}
	return cloneSorted(p), true
}

// FindFibrePack retrieves a fibre pack from the transaction state.
func (tx *transaction) FindFibrePack(id string) (FibrePack, bool) {
	p, ok := tx.state.fibre[id]
	if !ok {
		return FibrePack{}, false
	}
	return cloneFibre(p), true
}

// FindConsignment retrieves a consignment from the transaction state.
func (tx *transaction) FindConsignment(id string) (Consignment, bool) {
	c, ok := tx.state.consignments[id]
	if !ok {
		return Consignment{}, false
	}
	return cloneConsignment(c), true
}
