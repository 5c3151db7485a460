package core

import (
	"context"
	"fmt"

	"fibretrace/pkg/domain"
)

// ReferenceIntegrityRule enforces parent and linkage references at creation
// time. It only inspects records touched by the current transaction: lineage
// gaps in historical data are tolerated at query time, but a new record must
// not be committed pointing at something that does not exist.
func ReferenceIntegrityRule() domain.Rule {
	return referenceIntegrityRule{}
}

type referenceIntegrityRule struct{}

func (referenceIntegrityRule) Name() string { return "reference_integrity" }

func (referenceIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	for _, change := range changes {
		if change.Action != domain.ActionCreate || change.After == nil {
			continue
		}
		switch record := change.After.(type) {
		case domain.SortedPack:
			evaluateSortedPack(&res, record, view)
		case domain.FibrePack:
			evaluateFibrePack(&res, record, view)
		case domain.Consignment:
			evaluateConsignment(&res, record, view)
		}
	}

	return res, nil
}

func referenceViolation(kind domain.ItemKind, itemID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "reference_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Kind:     kind,
		ItemID:   itemID,
	}
}

func evaluateSortedPack(res *domain.Result, pack domain.SortedPack, view domain.RuleView) {
	if pack.ParentInboundID == "" {
		res.Violations = append(res.Violations, referenceViolation(domain.KindSorted, pack.ID,
			fmt.Sprintf("sorted pack %s has no parent inbound batch", pack.ID)))
		return
	}
	if _, ok := view.FindInboundBatch(pack.ParentInboundID); !ok {
		res.Violations = append(res.Violations, referenceViolation(domain.KindSorted, pack.ID,
			fmt.Sprintf("sorted pack %s references missing inbound batch %s", pack.ID, pack.ParentInboundID)))
	}
}

func evaluateFibrePack(res *domain.Result, pack domain.FibrePack, view domain.RuleView) {
	if len(pack.ParentSortedIDs) == 0 {
		res.Violations = append(res.Violations, referenceViolation(domain.KindFibre, pack.ID,
			fmt.Sprintf("fibre pack %s has no parent sorted packs", pack.ID)))
		return
	}
	seen := make(map[string]struct{}, len(pack.ParentSortedIDs))
	for _, parentID := range pack.ParentSortedIDs {
		if parentID == "" {
			res.Violations = append(res.Violations, referenceViolation(domain.KindFibre, pack.ID,
				fmt.Sprintf("fibre pack %s lists an empty parent id", pack.ID)))
			continue
		}
		if parentID == pack.ID {
			res.Violations = append(res.Violations, referenceViolation(domain.KindFibre, pack.ID,
				fmt.Sprintf("fibre pack %s references itself as a parent", pack.ID)))
			continue
		}
		if _, dup := seen[parentID]; dup {
			res.Violations = append(res.Violations, referenceViolation(domain.KindFibre, pack.ID,
				fmt.Sprintf("fibre pack %s lists parent %s multiple times", pack.ID, parentID)))
			continue
		}
		seen[parentID] = struct{}{}

		if _, ok := view.FindSortedPack(parentID); !ok {
			res.Violations = append(res.Violations, referenceViolation(domain.KindFibre, pack.ID,
				fmt.Sprintf("fibre pack %s references missing sorted pack %s", pack.ID, parentID)))
		}
	}
}

func evaluateConsignment(res *domain.Result, consignment domain.Consignment, view domain.RuleView) {
	if len(consignment.LinkedFibrePackIDs) == 0 {
		res.Violations = append(res.Violations, referenceViolation(domain.KindConsignment, consignment.ID,
			fmt.Sprintf("consignment %s links no fibre packs", consignment.ID)))
		return
	}
	for _, packID := range consignment.LinkedFibrePackIDs {
		if _, ok := view.FindFibrePack(packID); !ok {
			res.Violations = append(res.Violations, referenceViolation(domain.KindConsignment, consignment.ID,
				fmt.Sprintf("consignment %s references missing fibre pack %s", consignment.ID, packID)))
		}
	}
}
