package eatsml

import (
	"context"
	"eats/internal/blob"
	"eats/internal/core"
	"eats/pkg/domain"
	"fmt"
	"time"

	"github.com/beevik/etree"
	"go.opentelemetry.io/otel/attribute"
)

// ExportOptions controls an entity export.
type ExportOptions struct {
	// Annotated marks names and vocabulary matching the profile's
	// preferences with user_default="true". It requires Profile.
	Annotated bool
	// FullDetails adds the compiled variant forms of every name.
	FullDetails bool
	Profile     *domain.UserProfile
}

// InfraOptions controls an infrastructure export.
type InfraOptions struct {
	// Limited restricts authorities and authority scoped vocabulary to the
	// profile's editable authorities. It requires Profile.
	Limited   bool
	Annotated bool
	Profile   *domain.UserProfile
}

// Exporter renders entities and vocabulary held in a view as EATSML. An
// Exporter is not safe for concurrent use.
type Exporter struct {
	view domain.TransactionView
	settings
}

// NewExporter returns an exporter reading from view.
func NewExporter(view domain.TransactionView, opts ...Option) *Exporter {
	return &Exporter{view: view, settings: newSettings(opts)}
}

// exportRun is the state of a single export call.
type exportRun struct {
	*Exporter
	closure     *Closure
	primary     map[domain.ID]bool
	annotated   bool
	fullDetails bool
	profile     domain.UserProfile
	dates       domain.DateContext
}

func (e *Exporter) newRun(annotated, fullDetails bool, profile *domain.UserProfile) *exportRun {
	run := &exportRun{
		Exporter:    e,
		closure:     NewClosure(),
		primary:     make(map[domain.ID]bool),
		annotated:   annotated,
		fullDetails: fullDetails,
		dates:       domain.NewDateContext(e.view),
	}
	if profile != nil {
		run.profile = *profile
	}
	return run
}

// ExportEntities exports the given primary entities, the entities related
// to them and the vocabulary they reference. Entities relating to a
// primary entity are included unless reverse discovery is disabled. An
// empty id list yields an empty collection.
func (e *Exporter) ExportEntities(ctx context.Context, ids []domain.ID, opts ExportOptions) (doc *etree.Document, err error) {
	ctx, span := startSpan(ctx, e.tracer, "export_entities", attribute.Int("eats.entities", len(ids)))
	start := time.Now()
	defer func() {
		e.metrics.observeExport(exportKindEntities, err, time.Since(start))
		endSpan(span, err)
	}()
	if opts.Annotated && opts.Profile == nil {
		msg := "a user profile must be supplied if the export is to be annotated"
		e.logger.Error(msg)
		return nil, exportErrorf(ErrProfileRequired, "%s", msg)
	}
	run := e.newRun(opts.Annotated, opts.FullDetails, opts.Profile)
	primary := make([]domain.ID, 0, len(ids))
	for _, id := range ids {
		if run.primary[id] {
			continue
		}
		if _, ok := e.view.FindEntity(id); !ok {
			return nil, exportErrorf(ErrMissingObject, "entity %d does not exist", id)
		}
		run.primary[id] = true
		run.closure.Visit(id)
		primary = append(primary, id)
	}

	e.logger.Info("starting export", "entities", len(primary))
	doc = newCollection()
	if len(primary) > 0 {
		entities := etree.NewElement(blockEntities)
		run.exportEntities(primary, entities)
		run.exportInfrastructure(doc.Root())
		doc.Root().AddChild(entities)
	}
	e.logger.Info("finished compiling export document")
	if err := e.validate(ctx, doc); err != nil {
		return nil, err
	}
	e.logger.Info("finished export")
	return doc, nil
}

// ExportInfrastructure exports vocabulary only: every authority, global
// vocabulary object and authority scoped type, or with Limited just those of
// the profile's editable authorities. Authority records are not included.
func (e *Exporter) ExportInfrastructure(ctx context.Context, opts InfraOptions) (doc *etree.Document, err error) {
	ctx, span := startSpan(ctx, e.tracer, "export_infrastructure", attribute.Bool("eats.limited", opts.Limited))
	start := time.Now()
	defer func() {
		e.metrics.observeExport(exportKindInfrastructure, err, time.Since(start))
		endSpan(span, err)
	}()
	if (opts.Limited || opts.Annotated) && opts.Profile == nil {
		msg := "a user profile must be supplied if the export is to be limited or annotated"
		e.logger.Error(msg)
		return nil, exportErrorf(ErrProfileRequired, "%s", msg)
	}
	run := e.newRun(opts.Annotated, false, opts.Profile)
	allowed := func(authorityID domain.ID) bool {
		return !opts.Limited || run.profile.CanEdit(authorityID)
	}
	add := run.closure.Add
	for _, a := range e.view.ListAuthorities() {
		if allowed(a.ID) {
			add(domain.KindAuthority, a.ID)
		}
	}
	for _, c := range e.view.ListCalendars() {
		add(domain.KindCalendar, c.ID)
	}
	for _, p := range e.view.ListDatePeriods() {
		add(domain.KindDatePeriod, p.ID)
	}
	for _, t := range e.view.ListDateTypes() {
		add(domain.KindDateType, t.ID)
	}
	for _, l := range e.view.ListLanguages() {
		add(domain.KindLanguage, l.ID)
	}
	for _, s := range e.view.ListScripts() {
		add(domain.KindScript, s.ID)
	}
	for _, t := range e.view.ListEntityTypes() {
		if allowed(t.AuthorityID) {
			add(domain.KindEntityType, t.ID)
		}
	}
	for _, t := range e.view.ListEntityRelationshipTypes() {
		if allowed(t.AuthorityID) {
			add(domain.KindEntityRelationshipType, t.ID)
		}
	}
	for _, t := range e.view.ListNameTypes() {
		if allowed(t.AuthorityID) {
			add(domain.KindNameType, t.ID)
		}
	}
	for _, t := range e.view.ListNamePartTypes() {
		if allowed(t.AuthorityID) {
			add(domain.KindNamePartType, t.ID)
		}
	}
	for _, t := range e.view.ListNameRelationshipTypes() {
		if allowed(t.AuthorityID) {
			add(domain.KindNameRelationshipType, t.ID)
		}
	}

	e.logger.Info("starting infrastructure export", "limited", opts.Limited)
	doc = newCollection()
	run.exportInfrastructure(doc.Root())
	if err := e.validate(ctx, doc); err != nil {
		return nil, err
	}
	e.logger.Info("finished infrastructure export")
	return doc, nil
}

// validate checks doc and saves a diagnostic copy when it is invalid.
func (e *Exporter) validate(ctx context.Context, doc *etree.Document) error {
	violations := e.validator.Validate(doc)
	if len(violations) == 0 {
		return nil
	}
	msg := fmt.Sprintf("validation of the export document failed: %s", violations[0])
	e.logger.Error(msg, "violations", len(violations))
	e.saveDiagnostic(ctx, doc)
	return exportErrorf(ErrSchema, "%s", msg)
}

func (e *Exporter) saveDiagnostic(ctx context.Context, doc *etree.Document) {
	if e.diagnostics == nil {
		e.logger.Warn("no diagnostic store configured, invalid export document not saved")
		return
	}
	data, err := Serialize(doc)
	if err != nil {
		e.logger.Warn("could not serialize the invalid export document", "error", err)
		return
	}
	if _, err := e.diagnostics.Delete(ctx, e.diagnosticKey); err != nil {
		e.logger.Warn("could not replace the previous invalid export document", "key", e.diagnosticKey, "error", err)
	}
	if _, err := blob.PutBytes(ctx, e.diagnostics, e.diagnosticKey, data, "application/xml"); err != nil {
		e.logger.Warn("could not save the invalid export document", "key", e.diagnosticKey, "error", err)
		return
	}
	e.logger.Info("saved invalid export document", "key", e.diagnosticKey)
}

// lazyBlock creates its container element on first use so that empty blocks
// are omitted.
type lazyBlock struct {
	parent *etree.Element
	tag    string
	el     *etree.Element
}

func (b *lazyBlock) add(item string) *etree.Element {
	if b.el == nil {
		b.el = b.parent.CreateElement(b.tag)
	}
	return b.el.CreateElement(item)
}

func (r *exportRun) exportEntities(primary []domain.ID, parent *etree.Element) {
	r.logger.Info("exporting entities", "count", len(primary))
	for lower := 0; lower < len(primary); lower += r.batchSize {
		upper := min(lower+r.batchSize, len(primary))
		r.logger.Info("exporting entity batch", "from", lower, "to", upper)
		for _, id := range primary[lower:upper] {
			r.exportEntity(id, parent, true)
		}
	}
	r.logger.Info("exporting related entities", "count", r.closure.Pending())
	for batch := r.closure.Next(r.batchSize); len(batch) > 0; batch = r.closure.Next(r.batchSize) {
		r.logger.Info("exporting related entity batch", "first", batch[0], "size", len(batch))
		for _, id := range batch {
			if r.closure.Visit(id) {
				r.exportEntity(id, parent, false)
			}
		}
	}
}

func (r *exportRun) exportEntity(id domain.ID, parent *etree.Element, primary bool) {
	entity, ok := r.view.FindEntity(id)
	if !ok {
		return
	}
	r.logger.Debug("exporting entity", "id", id, "primary", primary)
	el := parent.CreateElement(tagEntity)
	setIDs(el, string(domain.KindEntity), id)
	el.CreateAttr("last_modified", formatTime(entity.LastModified))
	if !primary {
		el.CreateAttr("is_related", xmlTrue)
	}

	r.assertions(el, id, domain.PropertyExistence, blockExistenceAssertions, tagExistenceAssertion, prefixExistence, nil,
		func(a domain.PropertyAssertion, ael *etree.Element) {
			r.exportDates(ael, a.ID)
		})
	r.assertions(el, id, domain.PropertyEntityType, blockEntityTypeAssertions, tagEntityTypeAssertion, prefixEntityType, nil,
		func(a domain.PropertyAssertion, ael *etree.Element) {
			t := a.Property.(domain.EntityTypeProperty)
			r.ref(ael, "entity_type", domain.KindEntityType, t.EntityTypeID)
			r.exportDates(ael, a.ID)
		})
	r.assertions(el, id, domain.PropertyNote, blockNoteAssertions, tagNoteAssertion, prefixNote, nil,
		func(a domain.PropertyAssertion, ael *etree.Element) {
			n := a.Property.(domain.Note)
			ael.CreateAttr("is_internal", formatBool(n.IsInternal))
			addText(ael, "note", n.Text)
			r.exportDates(ael, a.ID)
		})
	r.assertions(el, id, domain.PropertyReference, blockReferenceAssertions, tagReferenceAssertion, prefixReference, nil,
		func(a domain.PropertyAssertion, ael *etree.Element) {
			ref := a.Property.(domain.Reference)
			addText(ael, "label", ref.Label)
			addText(ael, "url", ref.URL)
			r.exportDates(ael, a.ID)
		})

	var preferredName domain.ID
	if r.annotated {
		if a, ok := core.SingleNameIn(r.view, id, core.PreferencesFromProfile(r.profile)); ok {
			preferredName = a.ID
		}
	}
	r.assertions(el, id, domain.PropertyName, blockNameAssertions, tagNameAssertion, prefixName, nil,
		func(a domain.PropertyAssertion, ael *etree.Element) {
			r.exportName(a, ael, a.ID == preferredName)
		})

	keep := func(a domain.PropertyAssertion) bool {
		rel, _ := a.Relationship()
		return primary || r.primary[rel.RelatedEntityID]
	}
	r.assertions(el, id, domain.PropertyEntityRelationship, blockRelationshipAssertions, tagRelationshipAssertion, prefixEntityRelationship, keep,
		func(a domain.PropertyAssertion, ael *etree.Element) {
			rel, _ := a.Relationship()
			r.ref(ael, "type", domain.KindEntityRelationshipType, rel.TypeID)
			ael.CreateAttr("related_entity", kindRef(domain.KindEntity, rel.RelatedEntityID))
			r.exportDates(ael, a.ID)
			notes := &lazyBlock{parent: ael, tag: blockRelationshipNotes}
			for _, n := range rel.Notes {
				nel := notes.add(tagRelationshipNote)
				nel.CreateAttr("is_internal", formatBool(n.IsInternal))
				nel.SetText(n.Text)
			}
			r.closure.Enqueue(rel.RelatedEntityID)
		})
	if primary && r.reverse {
		for _, a := range r.view.RelationshipsTargeting(id) {
			r.closure.Enqueue(a.EntityID)
		}
	}

	// Name relationships follow the same boundary as entity relationships,
	// judged by the entity holding the related name.
	keepName := func(a domain.PropertyAssertion) bool {
		nr := a.Property.(domain.NameRelationship)
		target, ok := r.view.FindAssertion(nr.RelatedNameAssertionID)
		return ok && (primary || target.EntityID == id || r.primary[target.EntityID])
	}
	r.assertions(el, id, domain.PropertyNameRelationship, blockNameRelationshipAsserts, tagNameRelationshipAssertion, prefixNameRelationship, keepName,
		func(a domain.PropertyAssertion, ael *etree.Element) {
			nr := a.Property.(domain.NameRelationship)
			if target, ok := r.view.FindAssertion(nr.RelatedNameAssertionID); ok {
				r.closure.Enqueue(target.EntityID)
			}
			r.ref(ael, "type", domain.KindNameRelationshipType, nr.TypeID)
			ael.CreateAttr("name", localID(prefixName, nr.NameAssertionID))
			ael.CreateAttr("related_name", localID(prefixName, nr.RelatedNameAssertionID))
			r.exportDates(ael, a.ID)
		})
}

// assertions emits the entity's assertions of one kind that pass keep (all
// when keep is nil) under a block created on demand.
func (r *exportRun) assertions(parent *etree.Element, entityID domain.ID, kind domain.PropertyKind, block, item, prefix string,
	keep func(domain.PropertyAssertion) bool, fill func(domain.PropertyAssertion, *etree.Element)) {
	container := &lazyBlock{parent: parent, tag: block}
	for _, a := range r.view.AssertionsForEntity(entityID, kind) {
		if keep != nil && !keep(a) {
			continue
		}
		r.logger.Debug("exporting "+item, "id", a.ID)
		el := container.add(item)
		setIDs(el, prefix, a.ID)
		r.ref(el, "authority_record", domain.KindAuthorityRecord, a.AuthorityRecordID)
		el.CreateAttr("is_preferred", formatBool(a.IsPreferred))
		fill(a, el)
	}
}

// ref sets a reference attribute and records the target in the closure.
func (r *exportRun) ref(el *etree.Element, attr string, kind domain.Kind, id domain.ID) {
	if id == 0 {
		return
	}
	el.CreateAttr(attr, kindRef(kind, id))
	r.closure.Add(kind, id)
}

func (r *exportRun) exportName(a domain.PropertyAssertion, el *etree.Element, preferred bool) {
	name, _ := a.Name()
	r.ref(el, "type", domain.KindNameType, name.NameTypeID)
	r.ref(el, "language", domain.KindLanguage, name.LanguageID)
	r.ref(el, "script", domain.KindScript, name.ScriptID)
	if preferred {
		el.CreateAttr("user_default", xmlTrue)
	}
	addText(el, tagDisplayForm, name.DisplayForm)
	parts := &lazyBlock{parent: el, tag: blockNameParts}
	for _, p := range name.Parts {
		pel := parts.add(tagNamePart)
		r.ref(pel, "type", domain.KindNamePartType, p.NamePartTypeID)
		r.ref(pel, "language", domain.KindLanguage, p.LanguageID)
		r.ref(pel, "script", domain.KindScript, p.ScriptID)
		pel.SetText(p.Text)
	}
	language, script := core.NameCodes(r.view, name)
	labelled := core.NameParts(r.view, name)
	addText(el, tagAssembledForm, r.names.Assemble(labelled, language, script))
	if r.fullDetails {
		variants := el.CreateElement(blockVariantForms)
		for _, v := range r.names.Variants(name.DisplayForm, labelled, language, script) {
			addText(variants, tagVariantForm, v)
		}
	}
	r.exportDates(el, a.ID)
	notes := &lazyBlock{parent: el, tag: blockNameNotes}
	for _, n := range name.Notes {
		nel := notes.add(tagNameNote)
		nel.CreateAttr("is_internal", formatBool(n.IsInternal))
		nel.SetText(n.Text)
	}
}

func (r *exportRun) exportDates(parent *etree.Element, assertionID domain.ID) {
	container := &lazyBlock{parent: parent, tag: blockDates}
	for _, d := range r.view.DatesForAssertion(assertionID) {
		r.logger.Debug("exporting date", "id", d.ID)
		el := container.add(tagDate)
		setIDs(el, string(domain.KindDate), d.ID)
		r.ref(el, "period", domain.KindDatePeriod, d.PeriodID)
		for _, pt := range domain.DatePartTypes() {
			p := d.Part(pt)
			if !p.IsSet() {
				continue
			}
			pel := el.CreateElement(tagDatePart)
			pel.CreateAttr("type", pt.String())
			addText(pel, "raw", p.Raw)
			r.ref(pel, "calendar", domain.KindCalendar, p.CalendarID)
			addText(pel, "normalised", p.Normalised)
			r.ref(pel, "date_type", domain.KindDateType, p.DateTypeID)
			pel.CreateAttr("confident", formatBool(p.Confident))
		}
		if d.Note != "" {
			addText(el, "note", d.Note)
		}
		addText(el, tagAssembledForm, d.Assemble(r.dates))
	}
}

// exportInfrastructure completes the closure and emits it in grammar order.
func (r *exportRun) exportInfrastructure(root *etree.Element) {
	r.closure.Complete(r.view)
	r.exportAuthorities(root)
	r.exportScopedTypes(root)
	r.exportSystemNamePartTypes(root)
	r.exportNamePartTypes(root)
	r.exportLanguages(root)
	r.exportScripts(root)
	r.exportNameRelationshipTypes(root)
	r.exportTerms(root)
	r.exportAuthorityRecords(root)
}

func (r *exportRun) markDefault(el *etree.Element, preferred, id domain.ID) {
	if r.annotated && preferred != 0 && preferred == id {
		el.CreateAttr("user_default", xmlTrue)
	}
}

// infraElement starts the element of a vocabulary object.
func (r *exportRun) infraElement(b *lazyBlock, tag string, kind domain.Kind, id domain.ID) *etree.Element {
	r.logger.Debug("exporting "+tag, "id", id)
	el := b.add(tag)
	setIDs(el, string(kind), id)
	return el
}

func (r *exportRun) exportAuthorities(root *etree.Element) {
	b := &lazyBlock{parent: root, tag: blockAuthorities}
	for _, id := range r.closure.IDs(domain.KindAuthority) {
		a, ok := r.view.FindAuthority(id)
		if !ok {
			continue
		}
		el := r.infraElement(b, tagAuthority, domain.KindAuthority, id)
		el.CreateAttr("last_modified", formatTime(a.LastModified))
		r.markDefault(el, r.profile.AuthorityID, id)
		el.CreateAttr("is_default", formatBool(a.IsDefault))
		r.ref(el, "default_calendar", domain.KindCalendar, a.DefaultCalendarID)
		r.ref(el, "default_date_period", domain.KindDatePeriod, a.DefaultDatePeriodID)
		r.ref(el, "default_date_type", domain.KindDateType, a.DefaultDateTypeID)
		r.ref(el, "default_language", domain.KindLanguage, a.DefaultLanguageID)
		r.ref(el, "default_script", domain.KindScript, a.DefaultScriptID)
		addText(el, "name", a.Name)
		addText(el, "abbreviated_name", a.Abbreviation)
		addText(el, "base_id", a.BaseID)
		addText(el, "base_url", a.BaseURL)
	}
}

func (r *exportRun) scopedTerm(b *lazyBlock, tag string, kind domain.Kind, t domain.ScopedTerm) *etree.Element {
	el := r.infraElement(b, tag, kind, t.ID)
	el.CreateAttr("authority", kindRef(domain.KindAuthority, t.AuthorityID))
	el.CreateAttr("last_modified", formatTime(t.LastModified))
	return el
}

// exportScopedTypes emits entity types, entity relationship types and name
// types, which precede the system name part types.
func (r *exportRun) exportScopedTypes(root *etree.Element) {
	entityTypes := &lazyBlock{parent: root, tag: blockEntityTypes}
	for _, id := range r.closure.IDs(domain.KindEntityType) {
		if t, ok := r.view.FindEntityType(id); ok {
			r.scopedTerm(entityTypes, tagEntityType, domain.KindEntityType, t.ScopedTerm).SetText(t.Name)
		}
	}
	relTypes := &lazyBlock{parent: root, tag: blockEntityRelationshipTypes}
	for _, id := range r.closure.IDs(domain.KindEntityRelationshipType) {
		if t, ok := r.view.FindEntityRelationshipType(id); ok {
			r.scopedTerm(relTypes, tagEntityRelationshipType, domain.KindEntityRelationshipType, t.ScopedTerm).SetText(t.Name)
		}
	}
	nameTypes := &lazyBlock{parent: root, tag: blockNameTypes}
	for _, id := range r.closure.IDs(domain.KindNameType) {
		t, ok := r.view.FindNameType(id)
		if !ok {
			continue
		}
		el := r.scopedTerm(nameTypes, tagNameType, domain.KindNameType, t.ScopedTerm)
		r.markDefault(el, r.profile.NameTypeID, id)
		el.CreateAttr("is_default", formatBool(t.IsDefault))
		el.SetText(t.Name)
	}
}

func (r *exportRun) exportSystemNamePartTypes(root *etree.Element) {
	b := &lazyBlock{parent: root, tag: blockSystemNamePartTypes}
	for _, id := range r.closure.IDs(domain.KindSystemNamePartType) {
		t, ok := r.view.FindSystemNamePartType(id)
		if !ok {
			continue
		}
		el := r.infraElement(b, tagSystemNamePartType, domain.KindSystemNamePartType, id)
		addText(el, "name", t.Name)
		addText(el, "description", t.Description)
	}
}

func (r *exportRun) exportNamePartTypes(root *etree.Element) {
	b := &lazyBlock{parent: root, tag: blockNamePartTypes}
	for _, id := range r.closure.IDs(domain.KindNamePartType) {
		t, ok := r.view.FindNamePartType(id)
		if !ok {
			continue
		}
		el := r.scopedTerm(b, tagNamePartType, domain.KindNamePartType, t.ScopedTerm)
		el.CreateAttr("system_name_part_type", kindRef(domain.KindSystemNamePartType, t.SystemNamePartTypeID))
		el.SetText(t.Name)
	}
}

func (r *exportRun) exportLanguages(root *etree.Element) {
	b := &lazyBlock{parent: root, tag: blockLanguages}
	for _, id := range r.closure.IDs(domain.KindLanguage) {
		l, ok := r.view.FindLanguage(id)
		if !ok {
			continue
		}
		el := r.infraElement(b, tagLanguage, domain.KindLanguage, id)
		el.CreateAttr("last_modified", formatTime(l.LastModified))
		r.markDefault(el, r.profile.LanguageID, id)
		addText(el, "name", l.Name)
		addText(el, "code", l.Code)
		types := &lazyBlock{parent: el, tag: blockLanguageSystemPartTypes}
		for _, snpt := range l.SystemNamePartTypeIDs {
			types.add(tagSystemNamePartType).CreateAttr("ref", kindRef(domain.KindSystemNamePartType, snpt))
		}
	}
}

func (r *exportRun) exportScripts(root *etree.Element) {
	b := &lazyBlock{parent: root, tag: blockScripts}
	for _, id := range r.closure.IDs(domain.KindScript) {
		s, ok := r.view.FindScript(id)
		if !ok {
			continue
		}
		el := r.infraElement(b, tagScript, domain.KindScript, id)
		el.CreateAttr("last_modified", formatTime(s.LastModified))
		r.markDefault(el, r.profile.ScriptID, id)
		addText(el, "name", s.Name)
		addText(el, "code", s.Code)
	}
}

func (r *exportRun) exportNameRelationshipTypes(root *etree.Element) {
	b := &lazyBlock{parent: root, tag: blockNameRelationshipTypes}
	for _, id := range r.closure.IDs(domain.KindNameRelationshipType) {
		if t, ok := r.view.FindNameRelationshipType(id); ok {
			r.scopedTerm(b, tagNameRelationshipType, domain.KindNameRelationshipType, t.ScopedTerm).SetText(t.Name)
		}
	}
}

// exportTerms emits date periods, date types and calendars.
func (r *exportRun) exportTerms(root *etree.Element) {
	term := func(b *lazyBlock, tag string, kind domain.Kind, t domain.Term, preferred domain.ID) {
		el := r.infraElement(b, tag, kind, t.ID)
		el.CreateAttr("last_modified", formatTime(t.LastModified))
		r.markDefault(el, preferred, t.ID)
		el.SetText(t.Name)
	}
	periods := &lazyBlock{parent: root, tag: blockDatePeriods}
	for _, id := range r.closure.IDs(domain.KindDatePeriod) {
		if p, ok := r.view.FindDatePeriod(id); ok {
			term(periods, tagDatePeriod, domain.KindDatePeriod, p.Term, r.profile.DatePeriodID)
		}
	}
	types := &lazyBlock{parent: root, tag: blockDateTypes}
	for _, id := range r.closure.IDs(domain.KindDateType) {
		if t, ok := r.view.FindDateType(id); ok {
			term(types, tagDateType, domain.KindDateType, t.Term, r.profile.DateTypeID)
		}
	}
	calendars := &lazyBlock{parent: root, tag: blockCalendars}
	for _, id := range r.closure.IDs(domain.KindCalendar) {
		if c, ok := r.view.FindCalendar(id); ok {
			term(calendars, tagCalendar, domain.KindCalendar, c.Term, r.profile.CalendarID)
		}
	}
}

func (r *exportRun) exportAuthorityRecords(root *etree.Element) {
	b := &lazyBlock{parent: root, tag: blockAuthorityRecords}
	ids := r.closure.IDs(domain.KindAuthorityRecord)
	for lower := 0; lower < len(ids); lower += r.batchSize {
		batch := ids[lower:min(lower+r.batchSize, len(ids))]
		r.logger.Debug("exporting authority record batch", "from", lower, "size", len(batch))
		for _, id := range batch {
			rec, ok := r.view.FindAuthorityRecord(id)
			if !ok {
				continue
			}
			el := r.infraElement(b, tagAuthorityRecord, domain.KindAuthorityRecord, id)
			el.CreateAttr("authority", kindRef(domain.KindAuthority, rec.AuthorityID))
			el.CreateAttr("last_modified", formatTime(rec.LastModified))
			addText(el, tagAuthoritySystemID, rec.SystemID).CreateAttr("is_complete", formatBool(rec.IsCompleteID))
			addText(el, tagAuthoritySystemURL, rec.SystemURL).CreateAttr("is_complete", formatBool(rec.IsCompleteURL))
		}
	}
}
