package memory

import (
	"cmp"
	"eats/pkg/domain"
	"slices"
)

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func find[V any](m map[ID]V, id ID) (V, bool) {
	v, ok := m[id]
	return v, ok
}

func list[V any](m map[ID]V) []V {
	out := make([]V, 0, len(m))
	for _, id := range sortedKeys(m) {
		out = append(out, m[id])
	}
	return out
}

func (v transactionView) FindEntity(id ID) (domain.Entity, bool) { return find(v.state.entities, id) }
func (v transactionView) ListEntities() []domain.Entity          { return list(v.state.entities) }

func (v transactionView) FindAuthority(id ID) (domain.Authority, bool) {
	return find(v.state.authorities, id)
}
func (v transactionView) ListAuthorities() []domain.Authority { return list(v.state.authorities) }

func (v transactionView) FindAuthorityRecord(id ID) (domain.AuthorityRecord, bool) {
	return find(v.state.records, id)
}
func (v transactionView) ListAuthorityRecords() []domain.AuthorityRecord {
	return list(v.state.records)
}

func (v transactionView) FindCalendar(id ID) (domain.Calendar, bool) {
	return find(v.state.calendars, id)
}
func (v transactionView) ListCalendars() []domain.Calendar { return list(v.state.calendars) }

func (v transactionView) FindDatePeriod(id ID) (domain.DatePeriod, bool) {
	return find(v.state.datePeriods, id)
}
func (v transactionView) ListDatePeriods() []domain.DatePeriod { return list(v.state.datePeriods) }

func (v transactionView) FindDateType(id ID) (domain.DateType, bool) {
	return find(v.state.dateTypes, id)
}
func (v transactionView) ListDateTypes() []domain.DateType { return list(v.state.dateTypes) }

func (v transactionView) FindLanguage(id ID) (domain.Language, bool) {
	l, ok := v.state.languages[id]
	return l.Clone(), ok
}

func (v transactionView) ListLanguages() []domain.Language {
	out := list(v.state.languages)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

func (v transactionView) FindScript(id ID) (domain.Script, bool) { return find(v.state.scripts, id) }
func (v transactionView) ListScripts() []domain.Script          { return list(v.state.scripts) }

func (v transactionView) FindSystemNamePartType(id ID) (domain.SystemNamePartType, bool) {
	return find(v.state.systemNamePartTypes, id)
}
func (v transactionView) ListSystemNamePartTypes() []domain.SystemNamePartType {
	return list(v.state.systemNamePartTypes)
}

func (v transactionView) FindEntityType(id ID) (domain.EntityType, bool) {
	return find(v.state.entityTypes, id)
}
func (v transactionView) ListEntityTypes() []domain.EntityType { return list(v.state.entityTypes) }

func (v transactionView) FindEntityRelationshipType(id ID) (domain.EntityRelationshipType, bool) {
	return find(v.state.relationshipTypes, id)
}
func (v transactionView) ListEntityRelationshipTypes() []domain.EntityRelationshipType {
	return list(v.state.relationshipTypes)
}

func (v transactionView) FindNameType(id ID) (domain.NameType, bool) {
	return find(v.state.nameTypes, id)
}
func (v transactionView) ListNameTypes() []domain.NameType { return list(v.state.nameTypes) }

func (v transactionView) FindNamePartType(id ID) (domain.NamePartType, bool) {
	return find(v.state.namePartTypes, id)
}
func (v transactionView) ListNamePartTypes() []domain.NamePartType {
	return list(v.state.namePartTypes)
}

func (v transactionView) FindNameRelationshipType(id ID) (domain.NameRelationshipType, bool) {
	return find(v.state.nameRelationshipTypes, id)
}
func (v transactionView) ListNameRelationshipTypes() []domain.NameRelationshipType {
	return list(v.state.nameRelationshipTypes)
}

// FindAssertion returns a deep copy of the assertion.
func (v transactionView) FindAssertion(id ID) (domain.PropertyAssertion, bool) {
	a, ok := v.state.assertions[id]
	return a.Clone(), ok
}

func (v transactionView) assertions(ids []ID, keep func(domain.PropertyAssertion) bool) []domain.PropertyAssertion {
	var out []domain.PropertyAssertion
	for _, id := range ids {
		a, ok := v.state.assertions[id]
		if !ok || (keep != nil && !keep(a)) {
			continue
		}
		out = append(out, a.Clone())
	}
	return out
}

// AssertionsForEntity returns the entity's assertions in id order.
func (v transactionView) AssertionsForEntity(entityID ID, kind domain.PropertyKind) []domain.PropertyAssertion {
	if kind == "" {
		return v.assertions(v.state.byEntity[entityID], nil)
	}
	return v.assertions(v.state.byEntity[entityID], func(a domain.PropertyAssertion) bool {
		return a.Kind() == kind
	})
}

// RelationshipsTargeting returns relationship assertions pointing at entityID.
func (v transactionView) RelationshipsTargeting(entityID ID) []domain.PropertyAssertion {
	return v.assertions(v.state.relsByTarget[entityID], nil)
}

// NameRelationshipsTargeting returns name relationship assertions whose
// related name is nameAssertionID.
func (v transactionView) NameRelationshipsTargeting(nameAssertionID ID) []domain.PropertyAssertion {
	return v.assertions(v.state.nameRelsByTarget[nameAssertionID], nil)
}

func (v transactionView) DatesForAssertion(assertionID ID) []domain.Date {
	ids := v.state.datesByAssert[assertionID]
	out := make([]domain.Date, 0, len(ids))
	for _, id := range ids {
		if d, ok := v.state.dates[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (v transactionView) SearchNames(nameAssertionID ID) []string {
	return slices.Clone(v.state.searchNames[nameAssertionID])
}

func (v transactionView) FindUser(id ID) (domain.User, bool) {
	u, ok := v.state.users[id]
	return u.Clone(), ok
}

func (v transactionView) FindUserByName(username string) (domain.User, bool) {
	for _, id := range sortedKeys(v.state.users) {
		if u := v.state.users[id]; u.Username == username {
			return u.Clone(), true
		}
	}
	return domain.User{}, false
}

func (v transactionView) ListUsers() []domain.User {
	out := list(v.state.users)
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

func (v transactionView) FindRegisteredImport(id string) (domain.RegisteredImport, bool) {
	ri, ok := v.state.imports[id]
	return ri, ok
}

// ListRegisteredImports returns imports, most recent first.
func (v transactionView) ListRegisteredImports() []domain.RegisteredImport {
	out := make([]domain.RegisteredImport, 0, len(v.state.imports))
	for _, ri := range v.state.imports {
		out = append(out, ri)
	}
	slices.SortFunc(out, func(a, b domain.RegisteredImport) int {
		if c := b.ImportDate.Compare(a.ImportDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
