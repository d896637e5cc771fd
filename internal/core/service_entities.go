package core

import (
	"context"
	"eats/pkg/domain"
	"errors"
	"fmt"
	"strconv"
)

// ErrNoAuthority is returned when an operation needs an authority and none
// exists.
var ErrNoAuthority = errors.New("no authority exists")

// ErrNoDefault is returned when an authority has no default of a kind.
var ErrNoDefault = errors.New("no default object")

// CreateEntity creates an entity together with a new authority record and
// a preferred existence assertion linking the two. A zero authorityID
// selects the default authority.
func (s *Service) CreateEntity(ctx context.Context, authorityID ID) (domain.Entity, domain.AuthorityRecord, Result, error) {
	var (
		entity domain.Entity
		record domain.AuthorityRecord
	)
	res, err := s.run(ctx, opCreateEntity, func(tx Transaction) (string, error) {
		authority, err := resolveAuthority(tx, authorityID)
		if err != nil {
			return "", err
		}
		details, err := s.records.NewRecordDetails(tx, authority)
		if err != nil {
			return "", err
		}
		if record, err = tx.CreateAuthorityRecord(details.Record(authority.ID)); err != nil {
			return "", err
		}
		if entity, err = tx.CreateEntity(domain.Entity{}); err != nil {
			return "", err
		}
		existence, err := domain.NewAssertion(entity.ID, record.ID, true, domain.Existence{})
		if err != nil {
			return "", err
		}
		if _, err := tx.CreateAssertion(existence); err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(entity.ID), 10), nil
	})
	if err != nil {
		return domain.Entity{}, domain.AuthorityRecord{}, res, err
	}
	return entity, record, res, nil
}

// DeleteEntity removes an entity with every assertion made about it and
// every relationship pointing at it.
func (s *Service) DeleteEntity(ctx context.Context, id ID) (Result, error) {
	return s.run(ctx, opDeleteEntity, func(tx Transaction) (string, error) {
		return strconv.FormatInt(int64(id), 10), DeleteEntityIn(tx, id)
	})
}

// DeleteEntityIn deletes in dependency order: relationships from other
// entities, name relationships, the remaining properties, names, and
// existences last. Dates and search names go with their assertions.
func DeleteEntityIn(tx Transaction, id ID) error {
	if _, ok := tx.FindEntity(id); !ok {
		return domain.ErrNotFound{Kind: domain.KindEntity, ID: id}
	}
	own := tx.AssertionsForEntity(id, "")
	var order []ID
	seen := make(map[ID]bool)
	add := func(a domain.PropertyAssertion) {
		if !seen[a.ID] {
			seen[a.ID] = true
			order = append(order, a.ID)
		}
	}
	for _, a := range tx.RelationshipsTargeting(id) {
		add(a)
	}
	for _, a := range own {
		if a.Kind() == domain.PropertyName {
			for _, nr := range tx.NameRelationshipsTargeting(a.ID) {
				add(nr)
			}
		}
	}
	for _, a := range own {
		if a.Kind() == domain.PropertyNameRelationship {
			add(a)
		}
	}
	for _, a := range own {
		if k := a.Kind(); k != domain.PropertyName && k != domain.PropertyExistence {
			add(a)
		}
	}
	for _, a := range own {
		if a.Kind() == domain.PropertyName {
			add(a)
		}
	}
	for _, a := range own {
		add(a)
	}
	for _, assertionID := range order {
		if err := tx.DeleteAssertion(assertionID); err != nil {
			return fmt.Errorf("delete entity %d: %w", id, err)
		}
	}
	return tx.DeleteEntity(id)
}

func resolveAuthority(view TransactionView, authorityID ID) (domain.Authority, error) {
	if authorityID == 0 {
		a, ok := domain.DefaultAuthority(view)
		if !ok {
			return domain.Authority{}, ErrNoAuthority
		}
		return a, nil
	}
	a, ok := view.FindAuthority(authorityID)
	if !ok {
		return domain.Authority{}, domain.ErrNotFound{Kind: domain.KindAuthority, ID: authorityID}
	}
	return a, nil
}

// DefaultObject resolves the default object of kind for an authority (the
// default authority when zero). For KindAuthority it returns the default
// authority itself.
func (s *Service) DefaultObject(ctx context.Context, kind Kind, authorityID ID) (ID, error) {
	var id ID
	err := s.view(ctx, "default_object", func(view TransactionView) error {
		var err error
		id, err = DefaultObjectIn(view, kind, authorityID)
		return err
	})
	return id, err
}

// DefaultObjectIn implements DefaultObject over a view.
func DefaultObjectIn(view TransactionView, kind Kind, authorityID ID) (ID, error) {
	if kind == domain.KindAuthority {
		a, ok := domain.DefaultAuthority(view)
		if !ok {
			return 0, ErrNoAuthority
		}
		return a.ID, nil
	}
	authority, err := resolveAuthority(view, authorityID)
	if err != nil {
		return 0, err
	}
	var id ID
	switch kind {
	case domain.KindCalendar:
		id = authority.DefaultCalendarID
	case domain.KindDatePeriod:
		id = authority.DefaultDatePeriodID
	case domain.KindDateType:
		id = authority.DefaultDateTypeID
	case domain.KindLanguage:
		id = authority.DefaultLanguageID
	case domain.KindScript:
		id = authority.DefaultScriptID
	case domain.KindNameType:
		if nt, ok := domain.DefaultNameType(view, authority.ID); ok {
			id = nt.ID
		}
	default:
		return 0, fmt.Errorf("authorities have no default %s: %w", kind, ErrNoDefault)
	}
	if id == 0 {
		return 0, fmt.Errorf("authority %q has no default %s: %w", authority.Name, kind, ErrNoDefault)
	}
	return id, nil
}

// EntityIDs lists the entities asserted to exist by records of an
// authority, or every entity when authorityID is zero.
func (s *Service) EntityIDs(ctx context.Context, authorityID ID) ([]ID, error) {
	var ids []ID
	err := s.view(ctx, "entity_ids", func(view TransactionView) error {
		var err error
		ids, err = EntityIDsIn(view, authorityID)
		return err
	})
	return ids, err
}

// EntityIDsIn implements EntityIDs over a view. Ids ascend.
func EntityIDsIn(view TransactionView, authorityID ID) ([]ID, error) {
	entities := view.ListEntities()
	ids := make([]ID, 0, len(entities))
	if authorityID == 0 {
		for _, e := range entities {
			ids = append(ids, e.ID)
		}
		return ids, nil
	}
	if _, ok := view.FindAuthority(authorityID); !ok {
		return nil, domain.ErrNotFound{Kind: domain.KindAuthority, ID: authorityID}
	}
	for _, e := range entities {
		for _, a := range view.AssertionsForEntity(e.ID, domain.PropertyExistence) {
			if r, ok := view.FindAuthorityRecord(a.AuthorityRecordID); ok && r.AuthorityID == authorityID {
				ids = append(ids, e.ID)
				break
			}
		}
	}
	return ids, nil
}
