package domain

// DefaultAuthority returns the authority flagged as default, falling back to
// the lowest numbered authority.
func DefaultAuthority(view TransactionView) (Authority, bool) {
	authorities := view.ListAuthorities()
	for _, a := range authorities {
		if a.IsDefault {
			return a, true
		}
	}
	if len(authorities) == 0 {
		return Authority{}, false
	}
	return authorities[0], true
}

// DefaultNameType returns the authority's default name type, falling back to
// its first name type.
func DefaultNameType(view TransactionView, authorityID ID) (NameType, bool) {
	var first NameType
	found := false
	for _, nt := range view.ListNameTypes() {
		if nt.AuthorityID != authorityID {
			continue
		}
		if nt.IsDefault {
			return nt, true
		}
		if !found {
			first, found = nt, true
		}
	}
	return first, found
}

// RecordsForAuthority returns the authority's records in id order.
func RecordsForAuthority(view TransactionView, authorityID ID) []AuthorityRecord {
	var out []AuthorityRecord
	for _, r := range view.ListAuthorityRecords() {
		if r.AuthorityID == authorityID {
			out = append(out, r)
		}
	}
	return out
}

// AuthorityOfRecord resolves the authority an authority record belongs to.
func AuthorityOfRecord(view TransactionView, recordID ID) (Authority, bool) {
	r, ok := view.FindAuthorityRecord(recordID)
	if !ok {
		return Authority{}, false
	}
	return view.FindAuthority(r.AuthorityID)
}

// TypeAuthority returns the owning authority of the typed vocabulary entry a
// property references, and whether the property references one at all.
func TypeAuthority(view TransactionView, p Property) (ID, bool) {
	switch v := p.(type) {
	case EntityTypeProperty:
		if t, ok := view.FindEntityType(v.EntityTypeID); ok {
			return t.AuthorityID, true
		}
	case Name:
		if t, ok := view.FindNameType(v.NameTypeID); ok {
			return t.AuthorityID, true
		}
	case EntityRelationship:
		if t, ok := view.FindEntityRelationshipType(v.TypeID); ok {
			return t.AuthorityID, true
		}
	case NameRelationship:
		if t, ok := view.FindNameRelationshipType(v.TypeID); ok {
			return t.AuthorityID, true
		}
	}
	return 0, false
}
