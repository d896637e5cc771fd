package memory

import (
	"eats/pkg/domain"
	"fmt"
	"slices"
	"time"
)

// transaction represents a mutation set applied to a private copy of the
// store state.
type transaction struct {
	transactionView
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func has[V any](m map[ID]V) func(ID) bool {
	return func(id ID) bool {
		_, ok := m[id]
		return ok
	}
}

// assignID returns the id a new record of kind is stored under, allocating
// the next sequence value when id is zero.
func (tx *transaction) assignID(kind domain.Kind, id ID, taken func(ID) bool) (ID, error) {
	switch {
	case id < 0:
		return 0, fmt.Errorf("%s id %d must be positive", kind, id)
	case id == 0:
		id = tx.state.seq[kind] + 1
		for taken(id) {
			id++
		}
	case taken(id):
		return 0, fmt.Errorf("%s %d already exists", kind, id)
	}
	if id > tx.state.seq[kind] {
		tx.state.seq[kind] = id
	}
	return id, nil
}

func (tx *transaction) require(kind domain.Kind, id ID, exists func(ID) bool) error {
	if !exists(id) {
		return domain.ErrNotFound{Kind: kind, ID: id}
	}
	return nil
}

// CreateEntity stores a new entity.
func (tx *transaction) CreateEntity(e domain.Entity) (domain.Entity, error) {
	id, err := tx.assignID(domain.KindEntity, e.ID, has(tx.state.entities))
	if err != nil {
		return domain.Entity{}, err
	}
	e.ID = id
	e.LastModified = tx.now
	tx.state.entities[id] = e
	tx.recordChange(Change{Kind: domain.KindEntity, Action: domain.ActionCreate, After: e})
	return e, nil
}

// DeleteEntity removes an entity once no assertion refers to it.
func (tx *transaction) DeleteEntity(id ID) error {
	current, ok := tx.state.entities[id]
	if !ok {
		return domain.ErrNotFound{Kind: domain.KindEntity, ID: id}
	}
	if n := len(tx.state.byEntity[id]); n > 0 {
		return fmt.Errorf("entity %d still has %d assertions", id, n)
	}
	if refs := tx.state.relsByTarget[id]; len(refs) > 0 {
		return fmt.Errorf("entity %d still referenced by relationship assertion %d", id, refs[0])
	}
	delete(tx.state.entities, id)
	tx.recordChange(Change{Kind: domain.KindEntity, Action: domain.ActionDelete, Before: current})
	return nil
}

func (tx *transaction) touchEntity(id ID) {
	if e, ok := tx.state.entities[id]; ok {
		e.LastModified = tx.now
		tx.state.entities[id] = e
	}
}

// CreateAuthority stores a new authority. Default vocabulary references must
// resolve when set.
func (tx *transaction) CreateAuthority(a domain.Authority) (domain.Authority, error) {
	if a.Name == "" {
		return domain.Authority{}, fmt.Errorf("authority name required")
	}
	checks := []struct {
		kind   domain.Kind
		id     ID
		exists func(ID) bool
	}{
		{domain.KindCalendar, a.DefaultCalendarID, has(tx.state.calendars)},
		{domain.KindDatePeriod, a.DefaultDatePeriodID, has(tx.state.datePeriods)},
		{domain.KindDateType, a.DefaultDateTypeID, has(tx.state.dateTypes)},
		{domain.KindLanguage, a.DefaultLanguageID, has(tx.state.languages)},
		{domain.KindScript, a.DefaultScriptID, has(tx.state.scripts)},
	}
	for _, c := range checks {
		if c.id == 0 {
			continue
		}
		if err := tx.require(c.kind, c.id, c.exists); err != nil {
			return domain.Authority{}, fmt.Errorf("authority %q default: %w", a.Name, err)
		}
	}
	id, err := tx.assignID(domain.KindAuthority, a.ID, has(tx.state.authorities))
	if err != nil {
		return domain.Authority{}, err
	}
	a.ID = id
	a.LastModified = tx.now
	tx.state.authorities[id] = a
	tx.recordChange(Change{Kind: domain.KindAuthority, Action: domain.ActionCreate, After: a})
	return a, nil
}

// CreateAuthorityRecord stores a new authority record.
func (tx *transaction) CreateAuthorityRecord(r domain.AuthorityRecord) (domain.AuthorityRecord, error) {
	if err := tx.require(domain.KindAuthority, r.AuthorityID, has(tx.state.authorities)); err != nil {
		return domain.AuthorityRecord{}, err
	}
	id, err := tx.assignID(domain.KindAuthorityRecord, r.ID, has(tx.state.records))
	if err != nil {
		return domain.AuthorityRecord{}, err
	}
	r.ID = id
	r.LastModified = tx.now
	tx.state.records[id] = r
	tx.recordChange(Change{Kind: domain.KindAuthorityRecord, Action: domain.ActionCreate, After: r})
	return r, nil
}

func createTerm[V any](tx *transaction, kind domain.Kind, m map[ID]V, t *domain.Term, v func() V) (V, error) {
	var zero V
	if t.Name == "" {
		return zero, fmt.Errorf("%s name required", kind)
	}
	id, err := tx.assignID(kind, t.ID, has(m))
	if err != nil {
		return zero, err
	}
	t.ID = id
	t.LastModified = tx.now
	rec := v()
	m[id] = rec
	tx.recordChange(Change{Kind: kind, Action: domain.ActionCreate, After: rec})
	return rec, nil
}

// CreateCalendar stores a new calendar.
func (tx *transaction) CreateCalendar(c domain.Calendar) (domain.Calendar, error) {
	return createTerm(tx, domain.KindCalendar, tx.state.calendars, &c.Term, func() domain.Calendar { return c })
}

// CreateDatePeriod stores a new date period.
func (tx *transaction) CreateDatePeriod(p domain.DatePeriod) (domain.DatePeriod, error) {
	return createTerm(tx, domain.KindDatePeriod, tx.state.datePeriods, &p.Term, func() domain.DatePeriod { return p })
}

// CreateDateType stores a new date type.
func (tx *transaction) CreateDateType(t domain.DateType) (domain.DateType, error) {
	return createTerm(tx, domain.KindDateType, tx.state.dateTypes, &t.Term, func() domain.DateType { return t })
}

// CreateEntityType stores a new entity type owned by an authority.
func (tx *transaction) CreateEntityType(t domain.EntityType) (domain.EntityType, error) {
	if err := tx.require(domain.KindAuthority, t.AuthorityID, has(tx.state.authorities)); err != nil {
		return domain.EntityType{}, err
	}
	return createTerm(tx, domain.KindEntityType, tx.state.entityTypes, &t.Term, func() domain.EntityType { return t })
}

// CreateEntityRelationshipType stores a new entity relationship type.
func (tx *transaction) CreateEntityRelationshipType(t domain.EntityRelationshipType) (domain.EntityRelationshipType, error) {
	if err := tx.require(domain.KindAuthority, t.AuthorityID, has(tx.state.authorities)); err != nil {
		return domain.EntityRelationshipType{}, err
	}
	return createTerm(tx, domain.KindEntityRelationshipType, tx.state.relationshipTypes, &t.Term, func() domain.EntityRelationshipType { return t })
}

// CreateNameType stores a new name type.
func (tx *transaction) CreateNameType(t domain.NameType) (domain.NameType, error) {
	if err := tx.require(domain.KindAuthority, t.AuthorityID, has(tx.state.authorities)); err != nil {
		return domain.NameType{}, err
	}
	return createTerm(tx, domain.KindNameType, tx.state.nameTypes, &t.Term, func() domain.NameType { return t })
}

// CreateNamePartType stores a new name part type mapped onto a system name
// part type.
func (tx *transaction) CreateNamePartType(t domain.NamePartType) (domain.NamePartType, error) {
	if err := tx.require(domain.KindAuthority, t.AuthorityID, has(tx.state.authorities)); err != nil {
		return domain.NamePartType{}, err
	}
	if err := tx.require(domain.KindSystemNamePartType, t.SystemNamePartTypeID, has(tx.state.systemNamePartTypes)); err != nil {
		return domain.NamePartType{}, err
	}
	return createTerm(tx, domain.KindNamePartType, tx.state.namePartTypes, &t.Term, func() domain.NamePartType { return t })
}

// CreateNameRelationshipType stores a new name relationship type.
func (tx *transaction) CreateNameRelationshipType(t domain.NameRelationshipType) (domain.NameRelationshipType, error) {
	if err := tx.require(domain.KindAuthority, t.AuthorityID, has(tx.state.authorities)); err != nil {
		return domain.NameRelationshipType{}, err
	}
	return createTerm(tx, domain.KindNameRelationshipType, tx.state.nameRelationshipTypes, &t.Term, func() domain.NameRelationshipType { return t })
}

// CreateLanguage stores a new language and its system name part types.
func (tx *transaction) CreateLanguage(l domain.Language) (domain.Language, error) {
	if l.Code == "" || l.Name == "" {
		return domain.Language{}, fmt.Errorf("language code and name required")
	}
	for _, pt := range l.SystemNamePartTypeIDs {
		if err := tx.require(domain.KindSystemNamePartType, pt, has(tx.state.systemNamePartTypes)); err != nil {
			return domain.Language{}, fmt.Errorf("language %q: %w", l.Code, err)
		}
	}
	id, err := tx.assignID(domain.KindLanguage, l.ID, has(tx.state.languages))
	if err != nil {
		return domain.Language{}, err
	}
	l.ID = id
	l.LastModified = tx.now
	l = l.Clone()
	tx.state.languages[id] = l
	tx.recordChange(Change{Kind: domain.KindLanguage, Action: domain.ActionCreate, After: l.Clone()})
	return l.Clone(), nil
}

// CreateScript stores a new script.
func (tx *transaction) CreateScript(s domain.Script) (domain.Script, error) {
	if s.Code == "" || s.Name == "" {
		return domain.Script{}, fmt.Errorf("script code and name required")
	}
	id, err := tx.assignID(domain.KindScript, s.ID, has(tx.state.scripts))
	if err != nil {
		return domain.Script{}, err
	}
	s.ID = id
	s.LastModified = tx.now
	tx.state.scripts[id] = s
	tx.recordChange(Change{Kind: domain.KindScript, Action: domain.ActionCreate, After: s})
	return s, nil
}

// CreateSystemNamePartType stores a new system name part type.
func (tx *transaction) CreateSystemNamePartType(t domain.SystemNamePartType) (domain.SystemNamePartType, error) {
	if t.Name == "" {
		return domain.SystemNamePartType{}, fmt.Errorf("system name part type name required")
	}
	id, err := tx.assignID(domain.KindSystemNamePartType, t.ID, has(tx.state.systemNamePartTypes))
	if err != nil {
		return domain.SystemNamePartType{}, err
	}
	t.ID = id
	tx.state.systemNamePartTypes[id] = t
	tx.recordChange(Change{Kind: domain.KindSystemNamePartType, Action: domain.ActionCreate, After: t})
	return t, nil
}

// validateProperty checks that every record a property references exists.
func (tx *transaction) validateProperty(a domain.PropertyAssertion) error {
	switch p := a.Property.(type) {
	case nil:
		return domain.ErrInvalidAssertion
	case domain.EntityTypeProperty:
		return tx.require(domain.KindEntityType, p.EntityTypeID, has(tx.state.entityTypes))
	case domain.Name:
		if err := tx.require(domain.KindNameType, p.NameTypeID, has(tx.state.nameTypes)); err != nil {
			return err
		}
		if err := tx.require(domain.KindLanguage, p.LanguageID, has(tx.state.languages)); err != nil {
			return err
		}
		if err := tx.require(domain.KindScript, p.ScriptID, has(tx.state.scripts)); err != nil {
			return err
		}
		for _, part := range p.Parts {
			if err := tx.require(domain.KindNamePartType, part.NamePartTypeID, has(tx.state.namePartTypes)); err != nil {
				return err
			}
			if part.LanguageID != 0 {
				if err := tx.require(domain.KindLanguage, part.LanguageID, has(tx.state.languages)); err != nil {
					return err
				}
			}
			if part.ScriptID != 0 {
				if err := tx.require(domain.KindScript, part.ScriptID, has(tx.state.scripts)); err != nil {
					return err
				}
			}
		}
	case domain.EntityRelationship:
		if err := tx.require(domain.KindEntity, p.RelatedEntityID, has(tx.state.entities)); err != nil {
			return err
		}
		return tx.require(domain.KindEntityRelationshipType, p.TypeID, has(tx.state.relationshipTypes))
	case domain.NameRelationship:
		for _, id := range []ID{p.NameAssertionID, p.RelatedNameAssertionID} {
			target, ok := tx.state.assertions[id]
			if !ok || target.Kind() != domain.PropertyName {
				return domain.ErrNotFound{Kind: domain.KindAssertion, ID: id}
			}
		}
		return tx.require(domain.KindNameRelationshipType, p.TypeID, has(tx.state.nameRelationshipTypes))
	}
	return nil
}

// CreateAssertion stores a new property assertion.
func (tx *transaction) CreateAssertion(a domain.PropertyAssertion) (domain.PropertyAssertion, error) {
	if err := tx.require(domain.KindEntity, a.EntityID, has(tx.state.entities)); err != nil {
		return domain.PropertyAssertion{}, err
	}
	if err := tx.require(domain.KindAuthorityRecord, a.AuthorityRecordID, has(tx.state.records)); err != nil {
		return domain.PropertyAssertion{}, err
	}
	if err := tx.validateProperty(a); err != nil {
		return domain.PropertyAssertion{}, fmt.Errorf("%s assertion: %w", a.Kind(), err)
	}
	id, err := tx.assignID(domain.KindAssertion, a.ID, has(tx.state.assertions))
	if err != nil {
		return domain.PropertyAssertion{}, err
	}
	a.ID = id
	a.LastModified = tx.now
	a = a.Clone()
	tx.state.assertions[id] = a
	tx.state.index(a)
	tx.touchEntity(a.EntityID)
	tx.recordChange(Change{Kind: domain.KindAssertion, Action: domain.ActionCreate, After: a.Clone()})
	return a.Clone(), nil
}

// UpdateAssertion mutates an assertion. The entity it belongs to cannot change.
func (tx *transaction) UpdateAssertion(id ID, mutator func(*domain.PropertyAssertion) error) (domain.PropertyAssertion, error) {
	current, ok := tx.state.assertions[id]
	if !ok {
		return domain.PropertyAssertion{}, domain.ErrNotFound{Kind: domain.KindAssertion, ID: id}
	}
	before := current.Clone()
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return domain.PropertyAssertion{}, err
	}
	updated.ID = id
	if updated.EntityID != before.EntityID {
		return domain.PropertyAssertion{}, fmt.Errorf("assertion %d cannot move from entity %d to %d", id, before.EntityID, updated.EntityID)
	}
	if err := tx.require(domain.KindAuthorityRecord, updated.AuthorityRecordID, has(tx.state.records)); err != nil {
		return domain.PropertyAssertion{}, err
	}
	if err := tx.validateProperty(updated); err != nil {
		return domain.PropertyAssertion{}, fmt.Errorf("%s assertion: %w", updated.Kind(), err)
	}
	if before.Kind() == domain.PropertyName && updated.Kind() != domain.PropertyName {
		delete(tx.state.searchNames, id)
	}
	updated.LastModified = tx.now
	tx.state.unindex(before)
	tx.state.assertions[id] = updated.Clone()
	tx.state.index(updated)
	tx.touchEntity(updated.EntityID)
	tx.recordChange(Change{Kind: domain.KindAssertion, Action: domain.ActionUpdate, Before: before, After: updated.Clone()})
	return updated, nil
}

// DeleteAssertion removes an assertion with its dates and search names. A
// name still referenced by a name relationship cannot be removed.
func (tx *transaction) DeleteAssertion(id ID) error {
	current, ok := tx.state.assertions[id]
	if !ok {
		return domain.ErrNotFound{Kind: domain.KindAssertion, ID: id}
	}
	if current.Kind() == domain.PropertyName {
		if refs := tx.state.nameRelsByTarget[id]; len(refs) > 0 {
			return fmt.Errorf("name assertion %d still referenced by name relationship %d", id, refs[0])
		}
		for _, other := range tx.state.byEntity[current.EntityID] {
			if nr, ok := tx.state.assertions[other].Property.(domain.NameRelationship); ok && nr.NameAssertionID == id {
				return fmt.Errorf("name assertion %d still referenced by name relationship %d", id, other)
			}
		}
	}
	for _, dateID := range tx.state.datesByAssert[id] {
		delete(tx.state.dates, dateID)
	}
	delete(tx.state.datesByAssert, id)
	delete(tx.state.searchNames, id)
	tx.state.unindex(current)
	delete(tx.state.assertions, id)
	tx.touchEntity(current.EntityID)
	tx.recordChange(Change{Kind: domain.KindAssertion, Action: domain.ActionDelete, Before: current.Clone()})
	return nil
}

// CreateDate attaches a new date to an assertion.
func (tx *transaction) CreateDate(d domain.Date) (domain.Date, error) {
	if err := tx.require(domain.KindAssertion, d.AssertionID, has(tx.state.assertions)); err != nil {
		return domain.Date{}, err
	}
	if err := tx.require(domain.KindDatePeriod, d.PeriodID, has(tx.state.datePeriods)); err != nil {
		return domain.Date{}, err
	}
	if d.IsEmpty() {
		return domain.Date{}, fmt.Errorf("date for assertion %d has no date parts", d.AssertionID)
	}
	for _, pt := range domain.DatePartTypes() {
		p := d.Part(pt)
		if p.CalendarID != 0 {
			if err := tx.require(domain.KindCalendar, p.CalendarID, has(tx.state.calendars)); err != nil {
				return domain.Date{}, fmt.Errorf("%s: %w", pt, err)
			}
		}
		if p.DateTypeID != 0 {
			if err := tx.require(domain.KindDateType, p.DateTypeID, has(tx.state.dateTypes)); err != nil {
				return domain.Date{}, fmt.Errorf("%s: %w", pt, err)
			}
		}
	}
	id, err := tx.assignID(domain.KindDate, d.ID, has(tx.state.dates))
	if err != nil {
		return domain.Date{}, err
	}
	d.ID = id
	d.LastModified = tx.now
	tx.state.dates[id] = d
	tx.state.datesByAssert[d.AssertionID] = appendID(tx.state.datesByAssert[d.AssertionID], id)
	tx.recordChange(Change{Kind: domain.KindDate, Action: domain.ActionCreate, After: d})
	return d, nil
}

// SetSearchNames replaces the search forms derived from a name assertion.
func (tx *transaction) SetSearchNames(nameAssertionID ID, forms []string) error {
	a, ok := tx.state.assertions[nameAssertionID]
	if !ok || a.Kind() != domain.PropertyName {
		return domain.ErrNotFound{Kind: domain.KindAssertion, ID: nameAssertionID}
	}
	before := slices.Clone(tx.state.searchNames[nameAssertionID])
	if len(forms) == 0 {
		delete(tx.state.searchNames, nameAssertionID)
	} else {
		tx.state.searchNames[nameAssertionID] = slices.Clone(forms)
	}
	tx.recordChange(Change{Kind: domain.KindSearchName, Action: domain.ActionUpdate, Before: before, After: slices.Clone(forms)})
	return nil
}

// CreateUser stores a new user. Usernames are unique.
func (tx *transaction) CreateUser(u domain.User) (domain.User, error) {
	if u.Username == "" {
		return domain.User{}, fmt.Errorf("username required")
	}
	for _, existing := range tx.state.users {
		if existing.Username == u.Username {
			return domain.User{}, fmt.Errorf("user %q already exists", u.Username)
		}
	}
	if err := tx.validateProfile(u.Profile); err != nil {
		return domain.User{}, err
	}
	id, err := tx.assignID(domain.KindUser, u.ID, has(tx.state.users))
	if err != nil {
		return domain.User{}, err
	}
	u.ID = id
	u = u.Clone()
	tx.state.users[id] = u
	tx.recordChange(Change{Kind: domain.KindUser, Action: domain.ActionCreate, After: u.Clone()})
	return u.Clone(), nil
}

// UpdateUser mutates a user's flags or profile.
func (tx *transaction) UpdateUser(id ID, mutator func(*domain.User) error) (domain.User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound{Kind: domain.KindUser, ID: id}
	}
	before := current.Clone()
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return domain.User{}, err
	}
	updated.ID = id
	if err := tx.validateProfile(updated.Profile); err != nil {
		return domain.User{}, err
	}
	tx.state.users[id] = updated.Clone()
	tx.recordChange(Change{Kind: domain.KindUser, Action: domain.ActionUpdate, Before: before, After: updated.Clone()})
	return updated, nil
}

func (tx *transaction) validateProfile(p domain.UserProfile) error {
	for _, a := range p.EditableAuthorityIDs {
		if err := tx.require(domain.KindAuthority, a, has(tx.state.authorities)); err != nil {
			return fmt.Errorf("editable authority: %w", err)
		}
	}
	prefs := []struct {
		kind   domain.Kind
		id     ID
		exists func(ID) bool
	}{
		{domain.KindAuthority, p.AuthorityID, has(tx.state.authorities)},
		{domain.KindLanguage, p.LanguageID, has(tx.state.languages)},
		{domain.KindScript, p.ScriptID, has(tx.state.scripts)},
		{domain.KindCalendar, p.CalendarID, has(tx.state.calendars)},
		{domain.KindDateType, p.DateTypeID, has(tx.state.dateTypes)},
		{domain.KindDatePeriod, p.DatePeriodID, has(tx.state.datePeriods)},
		{domain.KindNameType, p.NameTypeID, has(tx.state.nameTypes)},
	}
	for _, pref := range prefs {
		if pref.id == 0 {
			continue
		}
		if err := tx.require(pref.kind, pref.id, pref.exists); err != nil {
			return fmt.Errorf("profile preference: %w", err)
		}
	}
	return nil
}

// CreateRegisteredImport records an accepted import.
func (tx *transaction) CreateRegisteredImport(ri domain.RegisteredImport) (domain.RegisteredImport, error) {
	if ri.ID == "" {
		return domain.RegisteredImport{}, fmt.Errorf("registered import id required")
	}
	if _, exists := tx.state.imports[ri.ID]; exists {
		return domain.RegisteredImport{}, fmt.Errorf("registered import %q already exists", ri.ID)
	}
	if err := tx.require(domain.KindUser, ri.ImporterID, has(tx.state.users)); err != nil {
		return domain.RegisteredImport{}, err
	}
	if ri.ImportDate.IsZero() {
		ri.ImportDate = tx.now
	}
	tx.state.imports[ri.ID] = ri
	tx.recordChange(Change{Kind: domain.KindRegisteredImport, Action: domain.ActionCreate, After: ri})
	return ri, nil
}
