package eatsml

import "eats/pkg/domain"

// IDMap resolves document-local ids to stored ids for the duration of one
// import. Every kind has its own table, so a local id only ever resolves to
// an object of the kind the referencing attribute expects. Name assertions
// are bound under domain.KindAssertion.
type IDMap struct {
	tables map[domain.Kind]map[string]domain.ID
}

// NewIDMap returns an empty map.
func NewIDMap() *IDMap {
	return &IDMap{tables: make(map[domain.Kind]map[string]domain.ID)}
}

// Bind records that the local id of a kind denotes the stored id.
func (m *IDMap) Bind(kind domain.Kind, localID string, id domain.ID) {
	table, ok := m.tables[kind]
	if !ok {
		table = make(map[string]domain.ID)
		m.tables[kind] = table
	}
	table[localID] = id
}

// Resolve returns the stored id bound to the local id of a kind.
func (m *IDMap) Resolve(kind domain.Kind, localID string) (domain.ID, bool) {
	id, ok := m.tables[kind][localID]
	return id, ok
}

// Len returns the number of bindings of a kind.
func (m *IDMap) Len(kind domain.Kind) int { return len(m.tables[kind]) }
