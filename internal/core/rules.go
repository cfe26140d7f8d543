package core

import "standcore/pkg/domain"

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewStockNonNegativeRule())
	engine.Register(NewUniqueNamesRule())
	engine.Register(NewReferenceIntegrityRule())
	return engine
}
