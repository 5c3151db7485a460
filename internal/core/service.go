package core

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"fibretrace/internal/infra/persistence/memory"
	"fibretrace/pkg/domain"
)

// Item id prefixes keep record kinds visually distinguishable on printed
// labels. The suffix format is an implementation detail, the prefix is not.
const (
	prefixInbound     = "IB"
	prefixSorted      = "SP"
	prefixFibre       = "FP"
	prefixConsignment = "CN"
)

// Audit actions recorded by the service.
const (
	AuditCreateInbound      = "CREATE_INBOUND"
	AuditCreateSorted       = "CREATE_SORTED"
	AuditCreateFibre        = "CREATE_FIBRE"
	AuditCreateConsignment  = "CREATE_CONSIGNMENT"
	AuditCorrectFibreWeight = "CORRECT_FIBRE_WEIGHT"
)

// Service exposes the transactional operations of the traceability core:
// the four creation flows, the single documented fibre weight correction,
// and the snapshot queries (chain resolution, derivation, aggregation).
type Service struct {
	store   PersistentStore
	nowFn   func() time.Time
	metrics MetricsRecorder
	tracer  Tracer
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithMetricsRecorder attaches a metrics recorder to the service.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) { s.metrics = rec }
}

// WithTracer attaches a tracer to the service.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) { s.tracer = tracer }
}

// WithNowFunc overrides the service clock; used by tests.
func WithNowFunc(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store PersistentStore, opts ...Option) *Service {
	s := &Service{
		store: store,
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

func newItemID(prefix string, now time.Time) string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.UTC().Format("060102-150405"), hex.EncodeToString(b[:]))
}

func newLogID(now time.Time) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("log-%d-%s", now.UTC().UnixMilli(), hex.EncodeToString(b[:]))
}

func requireActor(actor string) error {
	if strings.TrimSpace(actor) == "" {
		return fmt.Errorf("actor identity required")
	}
	return nil
}

func (s *Service) appendAudit(tx Transaction, actor, action, details, relatedItemID string) {
	tx.AppendAuditLog(AuditLogEntry{
		ID:            newLogID(s.nowFn()),
		ActorID:       actor,
		Action:        action,
		Details:       details,
		RelatedItemID: relatedItemID,
	})
}

// CreateInboundBatch records a delivery of raw textile waste. The service
// assigns the id and creation metadata; supplier and carton details come from
// the caller.
func (s *Service) CreateInboundBatch(ctx context.Context, actor string, batch InboundBatch) (InboundBatch, Result, error) {
	if err := requireActor(actor); err != nil {
		return InboundBatch{}, Result{}, err
	}
	var created InboundBatch
	res, err := s.runInTransaction(ctx, "create_inbound_batch", func(tx Transaction) error {
		batch.ID = newItemID(prefixInbound, s.nowFn())
		batch.CreatedBy = actor
		var err error
		created, err = tx.CreateInboundBatch(batch)
		if err != nil {
			return err
		}
		s.appendAudit(tx, actor, AuditCreateInbound,
			fmt.Sprintf("Created inbound batch %s from supplier %s", created.ID, created.Supplier), created.ID)
		return nil
	})
	return created, res, err
}

// CreateSortedPack records a classified sub-grouping of an inbound batch.
func (s *Service) CreateSortedPack(ctx context.Context, actor string, pack SortedPack) (SortedPack, Result, error) {
	if err := requireActor(actor); err != nil {
		return SortedPack{}, Result{}, err
	}
	var created SortedPack
	res, err := s.runInTransaction(ctx, "create_sorted_pack", func(tx Transaction) error {
		pack.ID = newItemID(prefixSorted, s.nowFn())
		pack.CreatedBy = actor
		var err error
		created, err = tx.CreateSortedPack(pack)
		if err != nil {
			return err
		}
		s.appendAudit(tx, actor, AuditCreateSorted,
			fmt.Sprintf("Sorted pack %s created from batch %s", created.ID, created.ParentInboundID), created.ID)
		return nil
	})
	return created, res, err
}

// CreateFibrePack records a finished-goods unit combined from one or more
// sorted packs. Material, color, and brands are always derived from the
// parents inside the transaction; caller-supplied values for those fields are
// ignored.
func (s *Service) CreateFibrePack(ctx context.Context, actor string, pack FibrePack) (FibrePack, Result, error) {
	if err := requireActor(actor); err != nil {
		return FibrePack{}, Result{}, err
	}
	var created FibrePack
	res, err := s.runInTransaction(ctx, "create_fibre_pack", func(tx Transaction) error {
		parents := make([]SortedPack, 0, len(pack.ParentSortedIDs))
		for _, parentID := range pack.ParentSortedIDs {
			if parent, ok := tx.FindSortedPack(parentID); ok {
				parents = append(parents, parent)
			}
		}
		derived := DeriveFibreAttributes(parents)
		pack.ID = newItemID(prefixFibre, s.nowFn())
		pack.CreatedBy = actor
		pack.Material = derived.Material
		pack.Color = derived.Color
		pack.Brands = derived.Brands
		var err error
		created, err = tx.CreateFibrePack(pack)
		if err != nil {
			return err
		}
		s.appendAudit(tx, actor, AuditCreateFibre,
			fmt.Sprintf("Fibre pack %s created from %d sorted packs", created.ID, len(created.ParentSortedIDs)), created.ID)
		return nil
	})
	return created, res, err
}

// CreateConsignment records a shipment grouping of fibre packs.
func (s *Service) CreateConsignment(ctx context.Context, actor string, consignment Consignment) (Consignment, Result, error) {
	if err := requireActor(actor); err != nil {
		return Consignment{}, Result{}, err
	}
	var created Consignment
	res, err := s.runInTransaction(ctx, "create_consignment", func(tx Transaction) error {
		consignment.ID = newItemID(prefixConsignment, s.nowFn())
		consignment.CreatedBy = actor
		var err error
		created, err = tx.CreateConsignment(consignment)
		if err != nil {
			return err
		}
		s.appendAudit(tx, actor, AuditCreateConsignment,
			fmt.Sprintf("Consignment %s (%s) created for vendor %s with %d fibre packs",
				created.ID, created.ConsignmentNumber, created.Vendor, len(created.LinkedFibrePackIDs)), created.ID)
		return nil
	})
	return created, res, err
}

// CorrectFibrePackWeight applies the single documented post-creation
// mutation: adjusting a fibre pack's recorded weight. The change is audited
// with the old and new values.
func (s *Service) CorrectFibrePackWeight(ctx context.Context, actor, id string, weightKg float64) (FibrePack, Result, error) {
	if err := requireActor(actor); err != nil {
		return FibrePack{}, Result{}, err
	}
	var updated FibrePack
	res, err := s.runInTransaction(ctx, "correct_fibre_pack_weight", func(tx Transaction) error {
		var previous float64
		var err error
		updated, err = tx.UpdateFibrePack(id, func(p *FibrePack) error {
			previous = p.WeightKg
			p.WeightKg = weightKg
			return nil
		})
		if err != nil {
			return err
		}
		s.appendAudit(tx, actor, AuditCorrectFibreWeight,
			fmt.Sprintf("Corrected fibre pack %s weight from %vkg to %vkg", id, previous, weightKg), id)
		return nil
	})
	return updated, res, err
}

func (s *Service) runInTransaction(ctx context.Context, operation string, fn func(Transaction) error) (Result, error) {
	var res Result
	err := s.instrument(ctx, operation, func(ctx context.Context) error {
		var err error
		res, err = s.store.RunInTransaction(ctx, fn)
		return err
	})
	return res, err
}

// Queries --------------------------------------------------------------------

// ResolveChain reconstructs the ancestry of one item from the current
// snapshot. The boolean is false when no item carries the id.
func (s *Service) ResolveChain(ctx context.Context, rootID string) (Chain, bool, error) {
	var chain Chain
	var found bool
	err := s.instrument(ctx, "resolve_chain", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			chain, found = ResolveChain(view, rootID)
			return nil
		})
	})
	return chain, found, err
}

// DeriveFibreAttributesByID resolves the given sorted pack ids against the
// current snapshot and derives the attributes a fibre pack combining them
// would inherit. Unresolvable ids are skipped, matching chain resolution's
// treatment of dangling references.
func (s *Service) DeriveFibreAttributesByID(ctx context.Context, parentIDs []string) (DerivedAttributes, error) {
	var derived DerivedAttributes
	err := s.instrument(ctx, "derive_fibre_attributes", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			parents := make([]SortedPack, 0, len(parentIDs))
			for _, id := range parentIDs {
				if parent, ok := view.FindSortedPack(id); ok {
					parents = append(parents, parent)
				}
			}
			derived = DeriveFibreAttributes(parents)
			return nil
		})
	})
	return derived, err
}

// Summary aggregates the dashboard statistics from one snapshot.
type Summary struct {
	Counts              map[ItemKind]int `json:"counts"`
	TotalSortedWeightKg float64          `json:"total_sorted_weight_kg"`
	TotalFibreWeightKg  float64          `json:"total_fibre_weight_kg"`
	Materials           []MaterialWeight `json:"materials"`
	Recent              []TraceableItem  `json:"recent"`
}

// Summarize recomputes the dashboard aggregates over the current snapshot.
func (s *Service) Summarize(ctx context.Context, recentN int) (Summary, error) {
	var summary Summary
	err := s.instrument(ctx, "summarize", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			items := view.ListItems()
			summary = Summary{
				Counts:              CountByKind(items),
				TotalSortedWeightKg: SumWeight(items, KindSorted),
				TotalFibreWeightKg:  SumWeight(items, KindFibre),
				Materials:           MaterialBreakdown(items),
				Recent:              RecentActivity(items, recentN),
			}
			return nil
		})
	})
	return summary, err
}

// ActorItemCount reports how many items one actor has recorded, for
// personal-progress displays.
func (s *Service) ActorItemCount(ctx context.Context, actorID string) (int, error) {
	var count int
	err := s.instrument(ctx, "actor_item_count", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			count = PerActorCount(view.ListItems(), actorID)
			return nil
		})
	})
	return count, err
}

// AuditLog returns the audit trail newest-first.
func (s *Service) AuditLog(ctx context.Context) ([]AuditLogEntry, error) {
	var entries []AuditLogEntry
	err := s.instrument(ctx, "audit_log", func(ctx context.Context) error {
		return s.store.View(ctx, func(view TransactionView) error {
			entries = view.AuditLog()
			return nil
		})
	})
	return entries, err
}

// ErrNotFound is returned when reference validation fails within transactional helpers.
type ErrNotFound struct {
	Kind domain.ItemKind
	ID   string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}
