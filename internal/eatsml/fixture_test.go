package eatsml

import (
	"bytes"
	"context"
	"eats/internal/core"
	"eats/pkg/domain"
	"eats/testutil"
	"strings"
	"testing"

	"github.com/beevik/etree"
)

func newSeededService(t *testing.T) (*core.Service, testutil.Fixture) {
	t.Helper()
	svc := core.NewInMemoryService(nil)
	var f testutil.Fixture
	if _, err := svc.Store().RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		f, err = testutil.SeedVocabulary(tx)
		return err
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc, f
}

func addPerson(t *testing.T, svc *core.Service, f testutil.Fixture, systemID, given, family string) testutil.Person {
	t.Helper()
	var p testutil.Person
	if _, err := svc.Store().RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		if p, err = testutil.AddPerson(tx, f, systemID, given, family); err != nil {
			return err
		}
		return core.UpdateSearchNames(tx, svc.Names(), p.Name)
	}); err != nil {
		t.Fatalf("add person: %v", err)
	}
	return p
}

// relate makes from an is-parent-of relation of to, asserted by from's record.
func relate(t *testing.T, svc *core.Service, f testutil.Fixture, from, to testutil.Person) domain.PropertyAssertion {
	t.Helper()
	var out domain.PropertyAssertion
	if _, err := svc.Store().RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		a, err := domain.NewAssertion(from.Entity.ID, from.Record.ID, false,
			domain.EntityRelationship{RelatedEntityID: to.Entity.ID, TypeID: f.ParentOf.ID})
		if err != nil {
			return err
		}
		out, err = tx.CreateAssertion(a)
		return err
	}); err != nil {
		t.Fatalf("relate: %v", err)
	}
	return out
}

func addDate(t *testing.T, svc *core.Service, f testutil.Fixture, assertionID domain.ID) domain.Date {
	t.Helper()
	var out domain.Date
	if _, err := svc.Store().RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		d := domain.Date{AssertionID: assertionID, PeriodID: f.Lifespan.ID, Note: "from the parish register"}
		d.SetPart(domain.StartDate, domain.DatePart{Raw: "1850", Normalised: "1850", CalendarID: f.Gregorian.ID, DateTypeID: f.Exact.ID, Confident: true})
		d.SetPart(domain.EndDate, domain.DatePart{Raw: "1900", Normalised: "1900", CalendarID: f.Gregorian.ID, DateTypeID: f.Circa.ID})
		var err error
		out, err = tx.CreateDate(d)
		return err
	}); err != nil {
		t.Fatalf("add date: %v", err)
	}
	return out
}

func exportDoc(t *testing.T, store domain.PersistentStore, ids []domain.ID, opts ExportOptions, options ...Option) *etree.Document {
	t.Helper()
	var doc *etree.Document
	if err := store.View(context.Background(), func(view domain.TransactionView) error {
		var err error
		doc, err = NewExporter(view, options...).ExportEntities(context.Background(), ids, opts)
		return err
	}); err != nil {
		t.Fatalf("export: %v", err)
	}
	return doc
}

func allEntityIDs(t *testing.T, store domain.PersistentStore) []domain.ID {
	t.Helper()
	var ids []domain.ID
	if err := store.View(context.Background(), func(view domain.TransactionView) error {
		var err error
		ids, err = core.EntityIDsIn(view, 0)
		return err
	}); err != nil {
		t.Fatalf("list entities: %v", err)
	}
	return ids
}

func serialize(t *testing.T, doc *etree.Document) []byte {
	t.Helper()
	data, err := Serialize(doc)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return data
}

func importBytes(t *testing.T, store domain.PersistentStore, user domain.User, data []byte, options ...Option) (*etree.Document, *etree.Document) {
	t.Helper()
	raw, processed, err := NewImporter(store, user, options...).Import(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	return raw, processed
}

// stripAttrs returns a copy of doc without the named attributes anywhere.
func stripAttrs(doc *etree.Document, names ...string) *etree.Document {
	out := doc.Copy()
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, name := range names {
			el.RemoveAttr(name)
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(out.Root())
	return out
}

// canonical renders doc without volatile timestamps.
func canonical(t *testing.T, doc *etree.Document) string {
	t.Helper()
	return string(serialize(t, stripAttrs(doc, "last_modified")))
}

// findByID returns the element carrying the xml:id.
func findByID(doc *etree.Document, id string) *etree.Element {
	return doc.FindElement("//*[@xml:id='" + id + "']")
}

// referencedIDs collects every attribute value other than the element's own
// ids, which covers every reference attribute.
func referencedIDs(doc *etree.Document) map[string]bool {
	refs := make(map[string]bool)
	var walk func(*etree.Element)
	walk = func(el *etree.Element) {
		for _, a := range el.Attr {
			if a.FullKey() == attrXMLID || a.Key == attrEATSID || a.Key == "xmlns" {
				continue
			}
			refs[a.Value] = true
		}
		for _, child := range el.ChildElements() {
			walk(child)
		}
	}
	walk(doc.Root())
	return refs
}

func entityElements(doc *etree.Document) []*etree.Element {
	return children(doc.Root(), blockEntities, tagEntity)
}

func mustContain(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Fatalf("expected %q in:\n%s", substr, s)
	}
}
