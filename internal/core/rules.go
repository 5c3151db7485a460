package core

import "fibretrace/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
// Reference integrity and weight bookkeeping are evaluated on every commit.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(ReferenceIntegrityRule())
	engine.Register(WeightBookkeepingRule())
	return engine
}
