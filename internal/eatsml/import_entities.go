package eatsml

import (
	"eats/internal/core"
	"eats/pkg/domain"
	"slices"

	"github.com/beevik/etree"
)

// assertionBlock describes how one kind of assertion is read.
type assertionBlock struct {
	kind  domain.PropertyKind
	block string
	item  string
	build func(*etree.Element) (domain.Property, error)
	// saved runs after a new assertion is stored.
	saved func(domain.PropertyAssertion) error
}

func (r *importRun) entityElements(root *etree.Element) []*etree.Element {
	return children(root, blockEntities, tagEntity)
}

// importEntities creates or verifies every entity and imports all of its
// assertions except relationships.
func (r *importRun) importEntities(root *etree.Element) error {
	blocks := []assertionBlock{
		{kind: domain.PropertyExistence, block: blockExistenceAssertions, item: tagExistenceAssertion, build: r.buildExistence},
		{kind: domain.PropertyEntityType, block: blockEntityTypeAssertions, item: tagEntityTypeAssertion, build: r.buildEntityType},
		{kind: domain.PropertyNote, block: blockNoteAssertions, item: tagNoteAssertion, build: r.buildNote},
		{kind: domain.PropertyReference, block: blockReferenceAssertions, item: tagReferenceAssertion, build: r.buildReference},
		{kind: domain.PropertyName, block: blockNameAssertions, item: tagNameAssertion, build: r.buildName, saved: r.saveSearchNames},
	}
	entities := r.entityElements(root)
	r.logger.Info("importing entities", "count", len(entities))
	for _, el := range entities {
		entityID, err := r.importEntity(el)
		if err != nil {
			return err
		}
		for _, b := range blocks {
			if err := r.importAssertions(el, entityID, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// importRelationships imports entity and name relationships once every
// entity of the document is known, so that related_entity and related_name
// may point forward.
func (r *importRun) importRelationships(root *etree.Element) error {
	blocks := []assertionBlock{
		{kind: domain.PropertyEntityRelationship, block: blockRelationshipAssertions, item: tagRelationshipAssertion, build: r.buildRelationship},
		{kind: domain.PropertyNameRelationship, block: blockNameRelationshipAsserts, item: tagNameRelationshipAssertion, build: r.buildNameRelationship},
	}
	for _, el := range r.entityElements(root) {
		entityID, ok := r.ids.Resolve(domain.KindEntity, elementID(el))
		if !ok {
			return importErrorf(ErrMissingObject, "entity %s has not been imported", elementID(el))
		}
		for _, b := range blocks {
			if err := r.importAssertions(el, entityID, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *importRun) importEntity(el *etree.Element) (domain.ID, error) {
	id, ok, err := elementEATSID(el)
	if err != nil {
		return 0, importErrorf(ErrSchema, "%v", err)
	}
	if ok {
		if _, exists := r.tx.FindEntity(id); !exists {
			return 0, r.missing(domain.KindEntity, id, el)
		}
	} else {
		entity, err := r.tx.CreateEntity(domain.Entity{})
		if err != nil {
			return 0, r.saveError(err, tagEntity, el)
		}
		id = entity.ID
		setEATSID(el, id)
		r.created[string(domain.KindEntity)]++
		r.logger.Debug("created entity", "id", id, "xml_id", elementID(el))
	}
	r.ids.Bind(domain.KindEntity, elementID(el), id)
	return id, nil
}

func (r *importRun) importAssertions(entityEl *etree.Element, entityID domain.ID, b assertionBlock) error {
	for _, el := range children(entityEl, b.block, b.item) {
		id, err := r.importAssertion(el, entityID, b)
		if err != nil {
			return err
		}
		if b.kind == domain.PropertyName {
			r.ids.Bind(domain.KindAssertion, elementID(el), id)
		}
		if err := r.importDates(el, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *importRun) importAssertion(el *etree.Element, entityID domain.ID, b assertionBlock) (domain.ID, error) {
	id, ok, err := elementEATSID(el)
	if err != nil {
		return 0, importErrorf(ErrSchema, "%v", err)
	}
	if ok {
		return id, r.checkAssertion(el, id, entityID, b.kind)
	}
	recordID, err := r.requireRef(el, "authority_record", domain.KindAuthorityRecord)
	if err != nil {
		return 0, err
	}
	record, found := r.tx.FindAuthorityRecord(recordID)
	if !found {
		return 0, r.missing(domain.KindAuthorityRecord, recordID, el)
	}
	if err := r.checkAddPermission(record.AuthorityID); err != nil {
		return 0, err
	}
	if b.kind != domain.PropertyExistence && !core.HasExistence(r.tx, entityID, recordID) {
		return 0, importErrorf(ErrMissingPrecondition, "%s %s: %v", b.item, elementID(el),
			domain.ErrMissingExistence{EntityID: entityID, AuthorityRecordID: recordID})
	}
	property, err := b.build(el)
	if err != nil {
		return 0, err
	}
	if err := r.checkTypeAuthority(el, record.AuthorityID, property); err != nil {
		return 0, err
	}
	if err := r.checkNameOwner(el, entityID, property); err != nil {
		return 0, err
	}
	assertion, err := domain.NewAssertion(entityID, recordID, parseBool(el.SelectAttrValue("is_preferred", "")), property)
	if err != nil {
		return 0, r.saveError(err, b.item, el)
	}
	saved, err := r.tx.CreateAssertion(assertion)
	if err != nil {
		return 0, r.saveError(err, b.item, el)
	}
	if b.saved != nil {
		if err := b.saved(saved); err != nil {
			return 0, r.saveError(err, b.item, el)
		}
	}
	setEATSID(el, saved.ID)
	r.created[b.item]++
	r.logger.Debug("created "+b.item, "id", saved.ID, "xml_id", elementID(el))
	return saved.ID, nil
}

// checkAssertion verifies that a stored assertion named by the document
// belongs to the entity and asserts the expected kind of property.
func (r *importRun) checkAssertion(el *etree.Element, id, entityID domain.ID, kind domain.PropertyKind) error {
	a, ok := r.tx.FindAssertion(id)
	if !ok {
		return r.missing(domain.KindAssertion, id, el)
	}
	if a.EntityID != entityID {
		return importErrorf(ErrMissingObject, "assertion with eats_id %d, xml:id %s is not associated with entity %d", id, elementID(el), entityID)
	}
	if a.Kind() != kind {
		return importErrorf(ErrMissingObject, "assertion with eats_id %d, xml:id %s does not assert a %s property", id, elementID(el), kind)
	}
	return nil
}

type typedRef struct {
	kind  domain.Kind
	owner domain.ID
}

// checkNameOwner rejects a name relationship whose name belongs to another
// entity than the one making the assertion. Only related_name may cross
// entities.
func (r *importRun) checkNameOwner(el *etree.Element, entityID domain.ID, property domain.Property) error {
	nr, ok := property.(domain.NameRelationship)
	if !ok {
		return nil
	}
	name, found := r.tx.FindAssertion(nr.NameAssertionID)
	if !found {
		return r.missing(domain.KindAssertion, nr.NameAssertionID, el)
	}
	if name.EntityID != entityID {
		return importErrorf(ErrSchema, "%s %s: name %s is a name of entity %d, not of the asserting entity %d",
			el.Tag, elementID(el), el.SelectAttrValue("name", ""), name.EntityID, entityID)
	}
	return nil
}

// checkTypeAuthority rejects typed references owned by another authority
// than the asserting record's, whatever the user's privileges.
func (r *importRun) checkTypeAuthority(el *etree.Element, authorityID domain.ID, property domain.Property) error {
	var refs []typedRef
	switch p := property.(type) {
	case domain.EntityTypeProperty:
		if t, ok := r.tx.FindEntityType(p.EntityTypeID); ok {
			refs = append(refs, typedRef{domain.KindEntityType, t.AuthorityID})
		}
	case domain.Name:
		if t, ok := r.tx.FindNameType(p.NameTypeID); ok {
			refs = append(refs, typedRef{domain.KindNameType, t.AuthorityID})
		}
		for _, part := range p.Parts {
			if t, ok := r.tx.FindNamePartType(part.NamePartTypeID); ok {
				refs = append(refs, typedRef{domain.KindNamePartType, t.AuthorityID})
			}
		}
	case domain.EntityRelationship:
		if t, ok := r.tx.FindEntityRelationshipType(p.TypeID); ok {
			refs = append(refs, typedRef{domain.KindEntityRelationshipType, t.AuthorityID})
		}
	case domain.NameRelationship:
		if t, ok := r.tx.FindNameRelationshipType(p.TypeID); ok {
			refs = append(refs, typedRef{domain.KindNameRelationshipType, t.AuthorityID})
		}
	}
	for _, ref := range refs {
		if ref.owner != authorityID {
			return importErrorf(ErrAuthorityMismatch,
				"mismatched authorities: element with xml:id %s references authority %d in its authority record, but a %s associated with authority %d",
				elementID(el), authorityID, ref.kind, ref.owner)
		}
	}
	return nil
}

func (r *importRun) buildExistence(*etree.Element) (domain.Property, error) {
	return domain.Existence{}, nil
}

func (r *importRun) buildEntityType(el *etree.Element) (domain.Property, error) {
	typeID, err := r.requireRef(el, "entity_type", domain.KindEntityType)
	if err != nil {
		return nil, err
	}
	return domain.EntityTypeProperty{EntityTypeID: typeID}, nil
}

func (r *importRun) buildNote(el *etree.Element) (domain.Property, error) {
	return domain.Note{
		Text:       childText(el, "note"),
		IsInternal: parseBool(el.SelectAttrValue("is_internal", "")),
	}, nil
}

func (r *importRun) buildReference(el *etree.Element) (domain.Property, error) {
	return domain.Reference{Label: childText(el, "label"), URL: childText(el, "url")}, nil
}

func (r *importRun) buildName(el *etree.Element) (domain.Property, error) {
	var name domain.Name
	var err error
	if name.NameTypeID, err = r.requireRef(el, "type", domain.KindNameType); err != nil {
		return nil, err
	}
	if name.LanguageID, err = r.ref(el, "language", domain.KindLanguage); err != nil {
		return nil, err
	}
	if name.ScriptID, err = r.ref(el, "script", domain.KindScript); err != nil {
		return nil, err
	}
	name.DisplayForm = childText(el, tagDisplayForm)
	for _, pel := range children(el, blockNameParts, tagNamePart) {
		var part domain.NamePart
		if part.NamePartTypeID, err = r.requireRef(pel, "type", domain.KindNamePartType); err != nil {
			return nil, err
		}
		if part.LanguageID, err = r.ref(pel, "language", domain.KindLanguage); err != nil {
			return nil, err
		}
		if part.ScriptID, err = r.ref(pel, "script", domain.KindScript); err != nil {
			return nil, err
		}
		part.Text = ownText(pel)
		name.Parts = append(name.Parts, part)
	}
	for _, nel := range children(el, blockNameNotes, tagNameNote) {
		name.Notes = append(name.Notes, domain.InlineNote{
			Text:       ownText(nel),
			IsInternal: parseBool(nel.SelectAttrValue("is_internal", "")),
		})
	}
	return core.CleanName(r.names, name), nil
}

func (r *importRun) saveSearchNames(a domain.PropertyAssertion) error {
	return core.UpdateSearchNames(r.tx, r.names, a)
}

func (r *importRun) buildNameRelationship(el *etree.Element) (domain.Property, error) {
	var nr domain.NameRelationship
	var err error
	if nr.TypeID, err = r.requireRef(el, "type", domain.KindNameRelationshipType); err != nil {
		return nil, err
	}
	if nr.NameAssertionID, err = r.requireRef(el, "name", domain.KindAssertion); err != nil {
		return nil, err
	}
	if nr.RelatedNameAssertionID, err = r.requireRef(el, "related_name", domain.KindAssertion); err != nil {
		return nil, err
	}
	return nr, nil
}

func (r *importRun) buildRelationship(el *etree.Element) (domain.Property, error) {
	var rel domain.EntityRelationship
	var err error
	if rel.TypeID, err = r.requireRef(el, "type", domain.KindEntityRelationshipType); err != nil {
		return nil, err
	}
	if rel.RelatedEntityID, err = r.requireRef(el, "related_entity", domain.KindEntity); err != nil {
		return nil, err
	}
	for _, nel := range children(el, blockRelationshipNotes, tagRelationshipNote) {
		rel.Notes = append(rel.Notes, domain.InlineNote{
			Text:       ownText(nel),
			IsInternal: parseBool(nel.SelectAttrValue("is_internal", "")),
		})
	}
	return rel, nil
}

// importDates creates the new dates of an assertion and verifies those that
// carry an eats_id.
func (r *importRun) importDates(el *etree.Element, assertionID domain.ID) error {
	var existing []domain.Date
	for _, del := range children(el, blockDates, tagDate) {
		id, ok, err := elementEATSID(del)
		if err != nil {
			return importErrorf(ErrSchema, "%v", err)
		}
		if ok {
			if existing == nil {
				existing = r.tx.DatesForAssertion(assertionID)
			}
			if !slices.ContainsFunc(existing, func(d domain.Date) bool { return d.ID == id }) {
				return r.missing(domain.KindDate, id, del)
			}
			r.ids.Bind(domain.KindDate, elementID(del), id)
			continue
		}
		date, err := r.buildDate(del, assertionID)
		if err != nil {
			return err
		}
		saved, err := r.tx.CreateDate(date)
		if err != nil {
			return r.saveError(err, tagDate, del)
		}
		setEATSID(del, saved.ID)
		r.created[string(domain.KindDate)]++
		r.ids.Bind(domain.KindDate, elementID(del), saved.ID)
		r.logger.Debug("created date", "id", saved.ID, "assertion", assertionID)
	}
	return nil
}

func (r *importRun) buildDate(el *etree.Element, assertionID domain.ID) (domain.Date, error) {
	periodID, err := r.requireRef(el, "period", domain.KindDatePeriod)
	if err != nil {
		return domain.Date{}, err
	}
	date := domain.Date{AssertionID: assertionID, PeriodID: periodID, Note: childText(el, "note")}
	for _, pel := range el.SelectElements(tagDatePart) {
		raw := pel.SelectAttrValue("type", "")
		pt, ok := domain.ParseDatePartType(raw)
		if !ok {
			return domain.Date{}, importErrorf(ErrSchema, "date %s has unknown date part type %q", elementID(el), raw)
		}
		part := domain.DatePart{
			Raw:        childText(pel, "raw"),
			Normalised: childText(pel, "normalised"),
			Confident:  parseBool(pel.SelectAttrValue("confident", "")),
		}
		if part.CalendarID, err = r.ref(pel, "calendar", domain.KindCalendar); err != nil {
			return domain.Date{}, err
		}
		if part.DateTypeID, err = r.ref(pel, "date_type", domain.KindDateType); err != nil {
			return domain.Date{}, err
		}
		date.SetPart(pt, part)
	}
	return date, nil
}
