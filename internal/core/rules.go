package core

import "eats/pkg/domain"

// Names of the built-in rules, as reported in Violation.Rule.
const (
	RuleExistencePrecondition = existencePreconditionRuleName
	RuleTypeAuthority         = typeAuthorityRuleName
	RuleSearchNameConsistency = searchNameRuleName
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in graph
// integrity rules.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(ExistencePreconditionRule())
	engine.Register(TypeAuthorityRule())
	engine.Register(SearchNameConsistencyRule())
	return engine
}

// changedAssertions returns the assertions created or updated by changes
// that still exist in view, in their committed form.
func changedAssertions(view domain.RuleView, changes []domain.Change) []domain.PropertyAssertion {
	seen := make(map[domain.ID]bool)
	var out []domain.PropertyAssertion
	for _, change := range changes {
		if change.Kind != domain.KindAssertion || change.Action == domain.ActionDelete {
			continue
		}
		after, ok := change.After.(domain.PropertyAssertion)
		if !ok || seen[after.ID] {
			continue
		}
		seen[after.ID] = true
		if current, ok := view.FindAssertion(after.ID); ok {
			out = append(out, current)
		}
	}
	return out
}
