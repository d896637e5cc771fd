package eatsml

import (
	"context"
	"eats/internal/blob"
	"eats/pkg/domain"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/beevik/etree"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExportEmptySelection(t *testing.T) {
	svc, _ := newSeededService(t)
	doc := exportDoc(t, svc.Store(), nil, ExportOptions{})
	root := doc.Root()
	if root == nil || root.Tag != tagCollection || root.NamespaceURI() != Namespace {
		t.Fatalf("unexpected root %+v", root)
	}
	if n := len(root.ChildElements()); n != 0 {
		t.Fatalf("expected empty collection, got %d blocks", n)
	}
}

func TestExportEntityLayout(t *testing.T) {
	svc, f := newSeededService(t)
	p := addPerson(t, svc, f, "entity-000001", "Jane", "Doe")
	date := addDate(t, svc, f, p.Existence.ID)

	doc := exportDoc(t, svc.Store(), []domain.ID{p.Entity.ID}, ExportOptions{FullDetails: true})
	var blocks []string
	for _, el := range doc.Root().ChildElements() {
		blocks = append(blocks, el.Tag)
	}
	want := []string{
		blockAuthorities, blockEntityTypes, blockNameTypes, blockSystemNamePartTypes, blockNamePartTypes,
		blockLanguages, blockScripts, blockDatePeriods, blockDateTypes, blockCalendars, blockAuthorityRecords, blockEntities,
	}
	if len(blocks) != len(want) {
		t.Fatalf("blocks = %v, want %v", blocks, want)
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Fatalf("blocks = %v, want %v", blocks, want)
		}
	}

	entities := entityElements(doc)
	if len(entities) != 1 {
		t.Fatalf("expected one entity, got %d", len(entities))
	}
	entity := entities[0]
	if got := elementID(entity); got != kindRef(domain.KindEntity, p.Entity.ID) {
		t.Fatalf("entity xml:id = %q", got)
	}
	if entity.SelectAttr("is_related") != nil {
		t.Fatalf("primary entity marked related")
	}
	var entityBlockTags []string
	for _, el := range entity.ChildElements() {
		entityBlockTags = append(entityBlockTags, el.Tag)
	}
	if len(entityBlockTags) != 3 || entityBlockTags[0] != blockExistenceAssertions ||
		entityBlockTags[1] != blockEntityTypeAssertions || entityBlockTags[2] != blockNameAssertions {
		t.Fatalf("entity blocks = %v", entityBlockTags)
	}

	existence := children(entity, blockExistenceAssertions, tagExistenceAssertion)[0]
	if got := existence.SelectAttrValue("authority_record", ""); got != kindRef(domain.KindAuthorityRecord, p.Record.ID) {
		t.Fatalf("authority_record = %q", got)
	}
	if existence.SelectAttrValue("is_preferred", "") != xmlTrue {
		t.Fatalf("existence should be preferred")
	}
	dates := children(existence, blockDates, tagDate)
	if len(dates) != 1 || elementID(dates[0]) != kindRef(domain.KindDate, date.ID) {
		t.Fatalf("unexpected dates %v", dates)
	}
	parts := dates[0].SelectElements(tagDatePart)
	if len(parts) != 2 {
		t.Fatalf("expected two date parts, got %d", len(parts))
	}
	if parts[0].SelectAttrValue("type", "") != "start_date" || childText(parts[0], "raw") != "1850" ||
		parts[0].SelectAttrValue("confident", "") != xmlTrue ||
		parts[0].SelectAttrValue("calendar", "") != kindRef(domain.KindCalendar, f.Gregorian.ID) {
		t.Fatalf("unexpected start part %s", parts[0].GetPath())
	}
	if parts[1].SelectAttrValue("date_type", "") != kindRef(domain.KindDateType, f.Circa.ID) ||
		parts[1].SelectAttrValue("confident", "") != xmlFalse {
		t.Fatalf("unexpected end part")
	}
	if childText(dates[0], "note") != date.Note || childText(dates[0], tagAssembledForm) == "" {
		t.Fatalf("date note or assembled form missing")
	}

	name := children(entity, blockNameAssertions, tagNameAssertion)[0]
	if childText(name, tagAssembledForm) != "Jane Doe" {
		t.Fatalf("assembled form = %q", childText(name, tagAssembledForm))
	}
	if len(children(name, blockNameParts, tagNamePart)) != 2 {
		t.Fatalf("expected two name parts")
	}
	if len(children(name, blockVariantForms, tagVariantForm)) < 2 {
		t.Fatalf("full details should list variant forms")
	}
	if name.SelectAttr("user_default") != nil {
		t.Fatalf("user_default outside annotated mode")
	}
	if findByID(doc, kindRef(domain.KindCalendar, f.Julian.ID)) != nil {
		t.Fatalf("unreferenced calendar exported")
	}
}

func TestExportClosureIsMinimal(t *testing.T) {
	svc, f := newSeededService(t)
	p := addPerson(t, svc, f, "entity-000001", "Jane", "Doe")
	addDate(t, svc, f, p.Name.ID)

	doc := exportDoc(t, svc.Store(), []domain.ID{p.Entity.ID}, ExportOptions{})
	refs := referencedIDs(doc)
	for _, b := range infrastructureBlocks {
		for _, el := range children(doc.Root(), b.block, b.item) {
			if id := elementID(el); !refs[id] {
				t.Errorf("%s %s is exported but never referenced", b.item, id)
			}
		}
	}
	if findByID(doc, kindRef(domain.KindAuthority, f.Other.ID)) != nil {
		t.Fatalf("other authority exported")
	}
}

func TestExportRelationshipBoundary(t *testing.T) {
	svc, f := newSeededService(t)
	a := addPerson(t, svc, f, "entity-000001", "Ann", "Smith")
	b := addPerson(t, svc, f, "entity-000002", "Bob", "Smith")
	c := addPerson(t, svc, f, "entity-000003", "Cat", "Smith")
	d := addPerson(t, svc, f, "entity-000004", "Dan", "Smith")
	relate(t, svc, f, a, b)
	relate(t, svc, f, b, c)
	relate(t, svc, f, d, a)

	doc := exportDoc(t, svc.Store(), []domain.ID{a.Entity.ID}, ExportOptions{})
	present := make(map[string]*etree.Element)
	for _, el := range entityElements(doc) {
		present[elementID(el)] = el
	}
	ref := func(p domain.Entity) string { return kindRef(domain.KindEntity, p.ID) }
	if len(present) != 3 || present[ref(a.Entity)] == nil || present[ref(b.Entity)] == nil || present[ref(d.Entity)] == nil {
		t.Fatalf("unexpected entities %v", present)
	}
	for id, el := range present {
		related := el.SelectAttrValue("is_related", "") == xmlTrue
		if (id == ref(a.Entity)) == related {
			t.Fatalf("entity %s is_related = %v", id, related)
		}
		for _, rel := range children(el, blockRelationshipAssertions, tagRelationshipAssertion) {
			target := rel.SelectAttrValue("related_entity", "")
			if present[target] == nil {
				t.Fatalf("entity %s relates to %s outside the document", id, target)
			}
		}
	}
	if n := len(children(present[ref(b.Entity)], blockRelationshipAssertions, tagRelationshipAssertion)); n != 0 {
		t.Fatalf("related entity kept %d relationships to non-primary entities", n)
	}
	if n := len(children(present[ref(d.Entity)], blockRelationshipAssertions, tagRelationshipAssertion)); n != 1 {
		t.Fatalf("reverse related entity should keep its relationship to the primary, got %d", n)
	}

	doc = exportDoc(t, svc.Store(), []domain.ID{a.Entity.ID}, ExportOptions{}, WithReverseRelationships(false))
	if n := len(entityElements(doc)); n != 2 {
		t.Fatalf("without reverse discovery expected 2 entities, got %d", n)
	}
}

func TestExportBatchesCoverEveryEntity(t *testing.T) {
	svc, f := newSeededService(t)
	var ids []domain.ID
	for i, given := range []string{"Ann", "Bob", "Cat", "Dan", "Eve"} {
		p := addPerson(t, svc, f, fmt.Sprintf("entity-%06d", i+1), given, "Smith")
		ids = append(ids, p.Entity.ID)
	}
	doc := exportDoc(t, svc.Store(), append(slices.Clone(ids), ids[0]), ExportOptions{}, WithBatchSize(2))
	entities := entityElements(doc)
	if len(entities) != len(ids) {
		t.Fatalf("expected %d entities, got %d", len(ids), len(entities))
	}
	for i, el := range entities {
		if elementID(el) != kindRef(domain.KindEntity, ids[i]) {
			t.Fatalf("entity %d is %s", i, elementID(el))
		}
	}
}

func TestExportAnnotated(t *testing.T) {
	svc, f := newSeededService(t)
	p := addPerson(t, svc, f, "entity-000001", "Jane", "Doe")
	store := svc.Store()

	err := store.View(context.Background(), func(view domain.TransactionView) error {
		_, err := NewExporter(view).ExportEntities(context.Background(), []domain.ID{p.Entity.ID}, ExportOptions{Annotated: true})
		return err
	})
	if !errors.Is(err, ErrProfileRequired) {
		t.Fatalf("expected ErrProfileRequired, got %v", err)
	}

	profile := f.Editor.Profile
	doc := exportDoc(t, store, []domain.ID{p.Entity.ID}, ExportOptions{Annotated: true, Profile: &profile})
	name := findByID(doc, localID(prefixName, p.Name.ID))
	if name == nil || name.SelectAttrValue("user_default", "") != xmlTrue {
		t.Fatalf("preferred name not annotated")
	}
	for _, id := range []string{
		kindRef(domain.KindAuthority, f.Authority.ID),
		kindRef(domain.KindLanguage, f.English.ID),
		kindRef(domain.KindScript, f.Latin.ID),
		kindRef(domain.KindNameType, f.Regular.ID),
		kindRef(domain.KindCalendar, f.Gregorian.ID),
	} {
		el := findByID(doc, id)
		if el == nil || el.SelectAttrValue("user_default", "") != xmlTrue {
			t.Fatalf("%s not annotated as user default", id)
		}
	}
}

func TestExportMissingEntity(t *testing.T) {
	svc, _ := newSeededService(t)
	err := svc.Store().View(context.Background(), func(view domain.TransactionView) error {
		_, err := NewExporter(view).ExportEntities(context.Background(), []domain.ID{999}, ExportOptions{})
		return err
	})
	var ee *ExportError
	if !errors.As(err, &ee) || !errors.Is(err, ErrMissingObject) {
		t.Fatalf("expected missing object export error, got %v", err)
	}
}

type rejectAll struct{}

func (rejectAll) Validate(*etree.Document) []Violation {
	return []Violation{{Path: "/collection", Message: "rejected"}}
}

func TestExportSavesInvalidDocument(t *testing.T) {
	svc, f := newSeededService(t)
	p := addPerson(t, svc, f, "entity-000001", "Jane", "Doe")
	diagnostics := blob.NewMemory()
	ctx := context.Background()

	for range 2 {
		err := svc.Store().View(ctx, func(view domain.TransactionView) error {
			_, err := NewExporter(view, WithValidator(rejectAll{}), WithDiagnostics(diagnostics, "")).
				ExportEntities(ctx, []domain.ID{p.Entity.ID}, ExportOptions{})
			return err
		})
		if !errors.Is(err, ErrSchema) {
			t.Fatalf("expected ErrSchema, got %v", err)
		}
		mustContain(t, err.Error(), "/collection: rejected")
	}
	data, err := blob.ReadAll(ctx, diagnostics, DefaultDiagnosticKey)
	if err != nil {
		t.Fatalf("read diagnostic copy: %v", err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("parse diagnostic copy: %v", err)
	}
	if len(entityElements(doc)) != 1 {
		t.Fatalf("diagnostic copy lacks the entity")
	}
}

func TestExportInfrastructure(t *testing.T) {
	svc, f := newSeededService(t)
	addPerson(t, svc, f, "entity-000001", "Jane", "Doe")
	store := svc.Store()
	ctx := context.Background()

	data, err := ExportInfrastructureFrom(ctx, store, InfraOptions{})
	if err != nil {
		t.Fatalf("export infrastructure: %v", err)
	}
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Root().SelectElement(blockEntities) != nil || doc.Root().SelectElement(blockAuthorityRecords) != nil {
		t.Fatalf("infrastructure export carries entities or records")
	}
	if findByID(doc, kindRef(domain.KindCalendar, f.Julian.ID)) == nil ||
		findByID(doc, kindRef(domain.KindAuthority, f.Other.ID)) == nil {
		t.Fatalf("full infrastructure export incomplete")
	}

	if _, err := ExportInfrastructureFrom(ctx, store, InfraOptions{Limited: true}); !errors.Is(err, ErrProfileRequired) {
		t.Fatalf("expected ErrProfileRequired, got %v", err)
	}
	profile := f.Editor.Profile
	data, err = ExportInfrastructureFrom(ctx, store, InfraOptions{Limited: true, Profile: &profile})
	if err != nil {
		t.Fatalf("limited export: %v", err)
	}
	if doc, err = Parse(data); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if findByID(doc, kindRef(domain.KindAuthority, f.Other.ID)) != nil ||
		findByID(doc, kindRef(domain.KindEntityType, f.OtherPerson.ID)) != nil {
		t.Fatalf("limited export includes another authority's vocabulary")
	}
	if findByID(doc, kindRef(domain.KindEntityType, f.Person.ID)) == nil {
		t.Fatalf("limited export lacks the editable authority's vocabulary")
	}
}

func TestExportMetrics(t *testing.T) {
	svc, f := newSeededService(t)
	p := addPerson(t, svc, f, "entity-000001", "Jane", "Doe")
	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	exportDoc(t, svc.Store(), []domain.ID{p.Entity.ID}, ExportOptions{}, WithMetrics(metrics))
	if got := promtestutil.ToFloat64(metrics.exports.WithLabelValues(exportKindEntities, statusSuccess)); got != 1 {
		t.Fatalf("export counter = %v", got)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}
