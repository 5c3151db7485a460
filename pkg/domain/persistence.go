package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Traceable items are append-mostly:
// there are no delete operations, and the only permitted update is the
// documented fibre pack weight correction.
type Transaction interface {
	CreateInboundBatch(InboundBatch) (InboundBatch, error)
	CreateSortedPack(SortedPack) (SortedPack, error)
	CreateFibrePack(FibrePack) (FibrePack, error)
	CreateConsignment(Consignment) (Consignment, error)
	UpdateFibrePack(id string, mutator func(*FibrePack) error) (FibrePack, error)
	AppendAuditLog(AuditLogEntry) AuditLogEntry
	FindInboundBatch(id string) (InboundBatch, bool)
	FindSortedPack(id string) (SortedPack, bool)
	FindFibrePack(id string) (FibrePack, bool)
	FindConsignment(id string) (Consignment, bool)
}

// TransactionView provides read-only access to snapshot data.
type TransactionView interface {
	RuleView
	ListItems() []TraceableItem
	FindItem(id string) (TraceableItem, bool)
	AuditLog() []AuditLogEntry
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	ListItems() []TraceableItem
	FindItem(id string) (TraceableItem, bool)
	ListInboundBatches() []InboundBatch
	ListSortedPacks() []SortedPack
	ListFibrePacks() []FibrePack
	ListConsignments() []Consignment
	AuditLog() []AuditLogEntry
}
