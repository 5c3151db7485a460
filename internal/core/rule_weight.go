package core

import (
	"context"
	"fmt"

	"fibretrace/pkg/domain"
)

// WeightBookkeepingRule enforces weight and carton bookkeeping invariants on
// records touched by the current transaction: positive pack weights, and a
// carton id list consistent with the declared carton count.
func WeightBookkeepingRule() domain.Rule {
	return weightBookkeepingRule{}
}

type weightBookkeepingRule struct{}

func (weightBookkeepingRule) Name() string { return "weight_bookkeeping" }

func (weightBookkeepingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	for _, change := range changes {
		if change.After == nil {
			continue
		}
		switch record := change.After.(type) {
		case domain.InboundBatch:
			if record.CartonCount != len(record.CartonIDs) {
				res.Violations = append(res.Violations, weightViolation(domain.KindInbound, record.ID,
					fmt.Sprintf("inbound batch %s declares %d cartons but lists %d ids", record.ID, record.CartonCount, len(record.CartonIDs))))
			}
		case domain.SortedPack:
			if record.WeightKg <= 0 {
				res.Violations = append(res.Violations, weightViolation(domain.KindSorted, record.ID,
					fmt.Sprintf("sorted pack %s weight must be positive, got %v", record.ID, record.WeightKg)))
			}
		case domain.FibrePack:
			if record.WeightKg <= 0 {
				res.Violations = append(res.Violations, weightViolation(domain.KindFibre, record.ID,
					fmt.Sprintf("fibre pack %s weight must be positive, got %v", record.ID, record.WeightKg)))
			}
		case domain.Consignment:
			if record.TotalWeightKg <= 0 {
				res.Violations = append(res.Violations, weightViolation(domain.KindConsignment, record.ID,
					fmt.Sprintf("consignment %s total weight must be positive, got %v", record.ID, record.TotalWeightKg)))
			}
		}
	}

	return res, nil
}

func weightViolation(kind domain.ItemKind, itemID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "weight_bookkeeping",
		Severity: domain.SeverityBlock,
		Message:  message,
		Kind:     kind,
		ItemID:   itemID,
	}
}
