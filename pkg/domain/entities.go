// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by fibretrace.
package domain

import "time"

// ItemKind identifies the type of traceable record stored in the core domain.
type ItemKind string

// Supported item kind identifiers used in Change records and persistence buckets.
const (
	// KindInbound identifies an inbound delivery batch record.
	KindInbound ItemKind = "inbound"
	// KindSorted identifies a sorted pack record.
	KindSorted ItemKind = "sorted"
	// KindFibre identifies a fibre pack record.
	KindFibre ItemKind = "fibre"
	// KindConsignment identifies a consignment (shipment grouping) record.
	KindConsignment ItemKind = "consignment"
)

// Sentinel attribute values assigned when parent packs disagree.
const (
	// MaterialBlend marks a fibre pack derived from packs of differing materials.
	MaterialBlend = "Blend"
	// ColorMixed marks a fibre pack derived from packs of differing colors.
	ColorMixed = "Mixed"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all traceable records. Records are created
// once and never deleted; ID is the only handle other entities use to
// reference a record.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
	Notes     string    `json:"notes,omitempty"`
}

// InboundBatch records a delivery of raw textile waste from a supplier. It is
// the lineage floor: inbound batches have no parents.
type InboundBatch struct {
	Base
	Supplier    string   `json:"supplier"`
	CartonCount int      `json:"carton_count"`
	CartonIDs   []string `json:"carton_ids"`
}

// SortedPack is a classified sub-grouping of an inbound batch. Color,
// material, and brand are free strings drawn from a configurable vocabulary;
// they are not enforced as enums.
type SortedPack struct {
	Base
	ParentInboundID string  `json:"parent_inbound_id"`
	Color           string  `json:"color"`
	Material        string  `json:"material"`
	Brand           string  `json:"brand"`
	WeightKg        float64 `json:"weight_kg"`
}

// FibrePack is a finished-goods unit produced from one or more sorted packs.
// Material, color, and brands are derived from the parents at creation time.
// WeightKg is entered independently and is the single field that may be
// corrected after creation.
type FibrePack struct {
	Base
	ParentSortedIDs []string `json:"parent_sorted_ids"`
	WeightKg        float64  `json:"weight_kg"`
	Material        string   `json:"material"`
	Color           string   `json:"color"`
	Brands          []string `json:"brands"`
}

// Consignment groups fibre packs into a shipment to a vendor. The consignment
// number is operator-supplied and not guaranteed globally unique.
type Consignment struct {
	Base
	Vendor             string   `json:"vendor"`
	Country            string   `json:"country"`
	TotalWeightKg      float64  `json:"total_weight_kg"`
	ConsignmentNumber  string   `json:"consignment_number"`
	LinkedFibrePackIDs []string `json:"linked_fibre_pack_ids"`
}

// AuditLogEntry records an action taken against the store. Entries are
// append-only and held newest-first.
type AuditLogEntry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorID       string    `json:"actor_id"`
	Action        string    `json:"action"`
	Details       string    `json:"details"`
	RelatedItemID string    `json:"related_item_id,omitempty"`
}

// TraceableItem is the tagged-union view over the three traceable record
// kinds. Chain resolution and aggregation operate on this surface and switch
// on Kind when they need the concrete payload.
type TraceableItem interface {
	ItemID() string
	Kind() ItemKind
	Created() time.Time
	Creator() string
}

// ItemID returns the record identifier.
func (b InboundBatch) ItemID() string { return b.ID }

// Kind returns KindInbound.
func (InboundBatch) Kind() ItemKind { return KindInbound }

// Created returns the creation timestamp.
func (b InboundBatch) Created() time.Time { return b.CreatedAt }

// Creator returns the identity that recorded the batch.
func (b InboundBatch) Creator() string { return b.CreatedBy }

// ItemID returns the record identifier.
func (p SortedPack) ItemID() string { return p.ID }

// Kind returns KindSorted.
func (SortedPack) Kind() ItemKind { return KindSorted }

// Created returns the creation timestamp.
func (p SortedPack) Created() time.Time { return p.CreatedAt }

// Creator returns the identity that recorded the pack.
func (p SortedPack) Creator() string { return p.CreatedBy }

// ItemID returns the record identifier.
func (p FibrePack) ItemID() string { return p.ID }

// Kind returns KindFibre.
func (FibrePack) Kind() ItemKind { return KindFibre }

// Created returns the creation timestamp.
func (p FibrePack) Created() time.Time { return p.CreatedAt }

// Creator returns the identity that recorded the pack.
func (p FibrePack) Creator() string { return p.CreatedBy }

// Change describes a mutation applied to an item during a transaction.
type Change struct {
	Kind   ItemKind
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the mutations captured for rule evaluation.
// Traceable items are never deleted, so there is no delete action.
const (
	// ActionCreate indicates an item was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an item was updated.
	ActionUpdate Action = "update"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Kind     ItemKind
	ItemID   string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
