package core

import (
	"context"
	"eats/pkg/domain"
	"fmt"
)

const typeAuthorityRuleName = "type_authority"

// TypeAuthorityRule blocks assertions whose typed vocabulary (entity type,
// name type, name part types, relationship types) belongs to a different
// authority than the assertion's authority record.
func TypeAuthorityRule() domain.Rule {
	return typeAuthorityRule{}
}

type typeAuthorityRule struct{}

func (typeAuthorityRule) Name() string { return typeAuthorityRuleName }

func (typeAuthorityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, a := range changedAssertions(view, changes) {
		authority, ok := domain.AuthorityOfRecord(view, a.AuthorityRecordID)
		if !ok {
			continue
		}
		for _, owner := range typeOwners(view, a.Property) {
			if owner.authority == authority.ID {
				continue
			}
			msg := fmt.Sprintf("assertion %d: %s %d belongs to authority %d, not to %s", a.ID, owner.kind, owner.id, owner.authority, authority.Name)
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     typeAuthorityRuleName,
				Severity: domain.SeverityBlock,
				Message:  msg,
				Kind:     domain.KindAssertion,
				RecordID: a.ID,
			})
		}
	}
	return res, nil
}

type typeOwner struct {
	kind      domain.Kind
	id        domain.ID
	authority domain.ID
}

func typeOwners(view domain.RuleView, p domain.Property) []typeOwner {
	var out []typeOwner
	if owner, ok := domain.TypeAuthority(view, p); ok {
		out = append(out, typeOwner{kind: typedKind(p), id: typedID(p), authority: owner})
	}
	if name, ok := p.(domain.Name); ok {
		for _, part := range name.Parts {
			if t, ok := view.FindNamePartType(part.NamePartTypeID); ok {
				out = append(out, typeOwner{kind: domain.KindNamePartType, id: t.ID, authority: t.AuthorityID})
			}
		}
	}
	return out
}

func typedKind(p domain.Property) domain.Kind {
	switch p.(type) {
	case domain.EntityTypeProperty:
		return domain.KindEntityType
	case domain.Name:
		return domain.KindNameType
	case domain.EntityRelationship:
		return domain.KindEntityRelationshipType
	case domain.NameRelationship:
		return domain.KindNameRelationshipType
	}
	return ""
}

func typedID(p domain.Property) domain.ID {
	switch v := p.(type) {
	case domain.EntityTypeProperty:
		return v.EntityTypeID
	case domain.Name:
		return v.NameTypeID
	case domain.EntityRelationship:
		return v.TypeID
	case domain.NameRelationship:
		return v.TypeID
	}
	return 0
}
