package core

import (
	"context"
	"eats/pkg/domain"
	"fmt"
)

const existencePreconditionRuleName = "existence_precondition"

// ExistencePreconditionRule blocks any non-existence assertion whose entity
// has no existence assertion under the same authority record, including
// assertions left behind when an existence is deleted.
func ExistencePreconditionRule() domain.Rule {
	return existencePreconditionRule{}
}

type existencePreconditionRule struct{}

func (existencePreconditionRule) Name() string { return existencePreconditionRuleName }

func (existencePreconditionRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	type pair struct{ entity, record domain.ID }
	checked := make(map[pair]bool)
	var res domain.Result
	check := func(a domain.PropertyAssertion) {
		if a.Kind() == domain.PropertyExistence {
			return
		}
		key := pair{a.EntityID, a.AuthorityRecordID}
		if checked[key] {
			return
		}
		checked[key] = true
		if HasExistence(view, a.EntityID, a.AuthorityRecordID) {
			return
		}
		res.Violations = append(res.Violations, existenceViolation(a))
	}
	for _, a := range changedAssertions(view, changes) {
		check(a)
	}
	for _, change := range changes {
		if change.Kind != domain.KindAssertion || change.Action != domain.ActionDelete {
			continue
		}
		before, ok := change.Before.(domain.PropertyAssertion)
		if !ok || before.Kind() != domain.PropertyExistence {
			continue
		}
		for _, a := range view.AssertionsForEntity(before.EntityID, "") {
			if a.AuthorityRecordID == before.AuthorityRecordID {
				check(a)
			}
		}
	}
	return res, nil
}

// HasExistence reports whether the entity has an existence assertion under
// the authority record.
func HasExistence(view domain.TransactionView, entityID, recordID domain.ID) bool {
	for _, e := range view.AssertionsForEntity(entityID, domain.PropertyExistence) {
		if e.AuthorityRecordID == recordID {
			return true
		}
	}
	return false
}

func existenceViolation(a domain.PropertyAssertion) domain.Violation {
	err := domain.ErrMissingExistence{EntityID: a.EntityID, AuthorityRecordID: a.AuthorityRecordID}
	return domain.Violation{
		Rule:     existencePreconditionRuleName,
		Severity: domain.SeverityBlock,
		Message:  fmt.Sprintf("%s assertion %d: %v", a.Kind(), a.ID, err),
		Kind:     domain.KindAssertion,
		RecordID: a.ID,
	}
}
