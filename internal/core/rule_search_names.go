package core

import (
	"context"
	"eats/pkg/domain"
	"fmt"
)

const searchNameRuleName = "search_name_consistency"

// SearchNameConsistencyRule warns when a created or updated name is left
// without search names.
func SearchNameConsistencyRule() domain.Rule {
	return searchNameRule{}
}

type searchNameRule struct{}

func (searchNameRule) Name() string { return searchNameRuleName }

func (searchNameRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, a := range changedAssertions(view, changes) {
		if a.Kind() != domain.PropertyName || len(view.SearchNames(a.ID)) > 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     searchNameRuleName,
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("name assertion %d has no search names", a.ID),
			Kind:     domain.KindAssertion,
			RecordID: a.ID,
		})
	}
	return res, nil
}
