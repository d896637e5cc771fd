package eatsml

import (
	"eats/pkg/domain"
	"slices"
)

// Closure accumulates the vocabulary referenced while exporting, keyed by
// kind, together with the worklist of related entities still to export.
type Closure struct {
	ids     map[domain.Kind]map[domain.ID]struct{}
	visited map[domain.ID]bool
	pending map[domain.ID]struct{}
}

// NewClosure returns an empty closure.
func NewClosure() *Closure {
	return &Closure{
		ids:     make(map[domain.Kind]map[domain.ID]struct{}),
		visited: make(map[domain.ID]bool),
		pending: make(map[domain.ID]struct{}),
	}
}

// Add records a referenced object. Zero ids are ignored.
func (c *Closure) Add(kind domain.Kind, id domain.ID) {
	if id == 0 {
		return
	}
	set, ok := c.ids[kind]
	if !ok {
		set = make(map[domain.ID]struct{})
		c.ids[kind] = set
	}
	set[id] = struct{}{}
}

// Has reports whether the object was recorded.
func (c *Closure) Has(kind domain.Kind, id domain.ID) bool {
	_, ok := c.ids[kind][id]
	return ok
}

// IDs returns the recorded ids of kind in ascending order.
func (c *Closure) IDs(kind domain.Kind) []domain.ID {
	set := c.ids[kind]
	out := make([]domain.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of recorded ids of kind.
func (c *Closure) Len(kind domain.Kind) int { return len(c.ids[kind]) }

// Visit marks an entity as exported. It returns false when the entity was
// already visited.
func (c *Closure) Visit(id domain.ID) bool {
	if c.visited[id] {
		return false
	}
	c.visited[id] = true
	delete(c.pending, id)
	return true
}

// Visited reports whether the entity has been exported or claimed as
// primary.
func (c *Closure) Visited(id domain.ID) bool { return c.visited[id] }

// Enqueue schedules a related entity unless it was already visited.
func (c *Closure) Enqueue(id domain.ID) {
	if id == 0 || c.visited[id] {
		return
	}
	c.pending[id] = struct{}{}
}

// Pending returns the number of scheduled entities.
func (c *Closure) Pending() int { return len(c.pending) }

// Next removes and returns up to n scheduled entities, lowest ids first.
func (c *Closure) Next(n int) []domain.ID {
	if len(c.pending) == 0 {
		return nil
	}
	all := make([]domain.ID, 0, len(c.pending))
	for id := range c.pending {
		all = append(all, id)
	}
	slices.Sort(all)
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	for _, id := range all {
		delete(c.pending, id)
	}
	return all
}

// Complete adds the vocabulary that recorded objects depend on: the
// authorities of records and authority scoped types, the defaults of those
// authorities, and the system name part types of languages and name part
// types.
func (c *Closure) Complete(view domain.TransactionView) {
	for _, id := range c.IDs(domain.KindAuthorityRecord) {
		if r, ok := view.FindAuthorityRecord(id); ok {
			c.Add(domain.KindAuthority, r.AuthorityID)
		}
	}
	for _, id := range c.IDs(domain.KindEntityType) {
		if t, ok := view.FindEntityType(id); ok {
			c.Add(domain.KindAuthority, t.AuthorityID)
		}
	}
	for _, id := range c.IDs(domain.KindEntityRelationshipType) {
		if t, ok := view.FindEntityRelationshipType(id); ok {
			c.Add(domain.KindAuthority, t.AuthorityID)
		}
	}
	for _, id := range c.IDs(domain.KindNameType) {
		if t, ok := view.FindNameType(id); ok {
			c.Add(domain.KindAuthority, t.AuthorityID)
		}
	}
	for _, id := range c.IDs(domain.KindNamePartType) {
		if t, ok := view.FindNamePartType(id); ok {
			c.Add(domain.KindAuthority, t.AuthorityID)
			c.Add(domain.KindSystemNamePartType, t.SystemNamePartTypeID)
		}
	}
	for _, id := range c.IDs(domain.KindNameRelationshipType) {
		if t, ok := view.FindNameRelationshipType(id); ok {
			c.Add(domain.KindAuthority, t.AuthorityID)
		}
	}
	for _, id := range c.IDs(domain.KindAuthority) {
		a, ok := view.FindAuthority(id)
		if !ok {
			continue
		}
		c.Add(domain.KindCalendar, a.DefaultCalendarID)
		c.Add(domain.KindDatePeriod, a.DefaultDatePeriodID)
		c.Add(domain.KindDateType, a.DefaultDateTypeID)
		c.Add(domain.KindLanguage, a.DefaultLanguageID)
		c.Add(domain.KindScript, a.DefaultScriptID)
	}
	for _, id := range c.IDs(domain.KindLanguage) {
		if l, ok := view.FindLanguage(id); ok {
			for _, snpt := range l.SystemNamePartTypeIDs {
				c.Add(domain.KindSystemNamePartType, snpt)
			}
		}
	}
}
