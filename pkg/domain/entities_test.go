package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var res Result
	if res.HasBlocking() {
		t.Fatalf("empty result must not block")
	}

	res.Merge(Result{})
	if res.Violations != nil {
		t.Fatalf("merging an empty result must not allocate")
	}

	res.Merge(Result{Violations: []Violation{{Rule: "a", Severity: SeverityWarn}}})
	if res.HasBlocking() {
		t.Fatalf("warnings must not block")
	}
	res.Merge(Result{Violations: []Violation{{Rule: "b", Severity: SeverityBlock}}})
	if !res.HasBlocking() {
		t.Fatalf("blocking violation not detected")
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(res.Violations))
	}
}

func TestRuleViolationErrorCarriesResult(t *testing.T) {
	res := Result{Violations: []Violation{{Rule: "weight_bookkeeping", Severity: SeverityBlock}}}
	err := error(RuleViolationError{Result: res})

	var rve RuleViolationError
	if !errors.As(err, &rve) {
		t.Fatalf("errors.As failed")
	}
	if len(rve.Result.Violations) != 1 || rve.Result.Violations[0].Rule != "weight_bookkeeping" {
		t.Fatalf("result lost: %+v", rve.Result)
	}
	if err.Error() == "" {
		t.Fatalf("error message must not be empty")
	}
}

func TestTraceableItemUnion(t *testing.T) {
	created := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	items := []TraceableItem{
		InboundBatch{Base: Base{ID: "IB-1", CreatedAt: created, CreatedBy: "ravi"}},
		SortedPack{Base: Base{ID: "SP-1", CreatedAt: created, CreatedBy: "mei"}},
		FibrePack{Base: Base{ID: "FP-1", CreatedAt: created, CreatedBy: "mei"}},
	}
	wantKinds := []ItemKind{KindInbound, KindSorted, KindFibre}
	for i, item := range items {
		if item.Kind() != wantKinds[i] {
			t.Fatalf("item %d kind = %s, want %s", i, item.Kind(), wantKinds[i])
		}
		if item.ItemID() == "" || !item.Created().Equal(created) || item.Creator() == "" {
			t.Fatalf("item %d accessors broken: %+v", i, item)
		}
	}
}

type stubRule struct {
	name string
	res  Result
	err  error
}

func (r stubRule) Name() string { return r.name }

func (r stubRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return r.res, r.err
}

func TestRulesEngineAggregates(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(stubRule{name: "warns", res: Result{Violations: []Violation{{Rule: "warns", Severity: SeverityWarn}}}})
	engine.Register(stubRule{name: "blocks", res: Result{Violations: []Violation{{Rule: "blocks", Severity: SeverityBlock}}}})

	res, err := engine.Evaluate(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || !res.HasBlocking() {
		t.Fatalf("unexpected aggregate %+v", res)
	}
}

func TestRulesEngineStopsOnRuleError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(stubRule{name: "broken", err: fmt.Errorf("rule exploded")})

	if _, err := engine.Evaluate(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected rule error to propagate")
	}
}
