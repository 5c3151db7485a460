// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sync"
	"time"

	"fibretrace/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// InboundBatch aliases domain.InboundBatch for in-memory persistence operations.
	InboundBatch = domain.InboundBatch
	// SortedPack aliases domain.SortedPack.
	SortedPack = domain.SortedPack
	// FibrePack aliases domain.FibrePack.
	FibrePack = domain.FibrePack
	// Consignment aliases domain.Consignment.
	Consignment = domain.Consignment
	// AuditLogEntry aliases domain.AuditLogEntry.
	AuditLogEntry = domain.AuditLogEntry
	// TraceableItem aliases domain.TraceableItem.
	TraceableItem = domain.TraceableItem
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	inbound      map[string]InboundBatch
	sorted       map[string]SortedPack
	fibre        map[string]FibrePack
	consignments map[string]Consignment
	auditLog     []AuditLogEntry // newest-first
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	InboundBatches map[string]InboundBatch `json:"inbound_batches"`
	SortedPacks    map[string]SortedPack   `json:"sorted_packs"`
	FibrePacks     map[string]FibrePack    `json:"fibre_packs"`
	Consignments   map[string]Consignment  `json:"consignments"`
	AuditLog       []AuditLogEntry         `json:"audit_log"`
}

func newMemoryState() memoryState {
	return memoryState{
		inbound:      make(map[string]InboundBatch),
		sorted:       make(map[string]SortedPack),
		fibre:        make(map[string]FibrePack),
		consignments: make(map[string]Consignment),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		InboundBatches: make(map[string]InboundBatch, len(state.inbound)),
		SortedPacks:    make(map[string]SortedPack, len(state.sorted)),
		FibrePacks:     make(map[string]FibrePack, len(state.fibre)),
		Consignments:   make(map[string]Consignment, len(state.consignments)),
		AuditLog:       append([]AuditLogEntry(nil), state.auditLog...),
	}
	for k, v := range state.inbound {
		s.InboundBatches[k] = cloneInbound(v)
	}
	for k, v := range state.sorted {
		s.SortedPacks[k] = cloneSorted(v)
	}
	for k, v := range state.fibre {
		s.FibrePacks[k] = cloneFibre(v)
	}
	for k, v := range state.consignments {
		s.Consignments[k] = cloneConsignment(v)
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.InboundBatches {
		state.inbound[k] = cloneInbound(v)
	}
	for k, v := range s.SortedPacks {
		state.sorted[k] = cloneSorted(v)
	}
	for k, v := range s.FibrePacks {
		state.fibre[k] = cloneFibre(v)
	}
	for k, v := range s.Consignments {
		state.consignments[k] = cloneConsignment(v)
	}
	state.auditLog = append([]AuditLogEntry(nil), s.AuditLog...)
	return state
}

// migrateSnapshot normalizes snapshots written by earlier revisions: nil maps
// become empty and records without identifiers are discarded. Dangling parent
// references are deliberately left in place; the chain resolver tolerates them.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.InboundBatches == nil {
		snapshot.InboundBatches = map[string]InboundBatch{}
	}
	if snapshot.SortedPacks == nil {
		snapshot.SortedPacks = map[string]SortedPack{}
	}
	if snapshot.FibrePacks == nil {
		snapshot.FibrePacks = map[string]FibrePack{}
	}
	if snapshot.Consignments == nil {
		snapshot.Consignments = map[string]Consignment{}
	}
	for id, batch := range snapshot.InboundBatches {
		if batch.ID == "" {
			delete(snapshot.InboundBatches, id)
		}
	}
	for id, pack := range snapshot.SortedPacks {
		if pack.ID == "" {
			delete(snapshot.SortedPacks, id)
		}
	}
	for id, pack := range snapshot.FibrePacks {
		if pack.ID == "" {
			delete(snapshot.FibrePacks, id)
		}
	}
	for id, consignment := range snapshot.Consignments {
		if consignment.ID == "" {
			delete(snapshot.Consignments, id)
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.inbound {
		cloned.inbound[k] = cloneInbound(v)
	}
	for k, v := range s.sorted {
		cloned.sorted[k] = cloneSorted(v)
	}
	for k, v := range s.fibre {
		cloned.fibre[k] = cloneFibre(v)
	}
	for k, v := range s.consignments {
		cloned.consignments[k] = cloneConsignment(v)
	}
	cloned.auditLog = append([]AuditLogEntry(nil), s.auditLog...)
	return cloned
}

func cloneInbound(b InboundBatch) InboundBatch {
	cp := b
	if len(b.CartonIDs) != 0 {
		cp.CartonIDs = append([]string(nil), b.CartonIDs...)
	}
	return cp
}

func cloneSorted(p SortedPack) SortedPack { return p }

func cloneFibre(p FibrePack) FibrePack {
	cp := p
	cp.ParentSortedIDs = append([]string(nil), p.ParentSortedIDs...)
	cp.Brands = append([]string(nil), p.Brands...)
	return cp
}

func cloneConsignment(c Consignment) Consignment {
	cp := c
	cp.LinkedFibrePackIDs = append([]string(nil), c.LinkedFibrePackIDs...)
	return cp
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// SetNowFunc overrides the time provider; used by tests for deterministic timestamps.
func (s *Store) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now != nil {
		s.nowFn = now
	}
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The rules engine is evaluated before commit; blocking violations discard the
// transaction and surface as a RuleViolationError.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	view := newTransactionView(&snapshot)
	return fn(view)
}
