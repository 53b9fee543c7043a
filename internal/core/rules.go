package core

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
// The rules re-check on commit what the transaction already enforced, so a
// write path that skips a check still cannot commit an invalid state.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(LifecycleTransitionRule())
	engine.Register(ExperimentImmutableRule())
	engine.Register(OutcomeReferenceRule())
	return engine
}
