// Package eatsml converts between the EATS entity graph and EATSML, the
// namespaced XML interchange format used for full and partial exchange of
// entities and their vocabulary.
package eatsml

import (
	"bytes"
	"eats/pkg/domain"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// Namespace is the EATSML namespace URI. Documents declare it as their
// default namespace.
const Namespace = "http://hdl.handle.net/10063/234"

const (
	tagCollection = "collection"

	attrXMLID  = "xml:id"
	attrEATSID = "eats_id"

	xmlTrue  = "true"
	xmlFalse = "false"
)

// Top level blocks in document order. Entities always come last.
const (
	blockAuthorities              = "authorities"
	blockEntityTypes              = "entity_types"
	blockEntityRelationshipTypes  = "entity_relationship_types"
	blockNameTypes                = "name_types"
	blockSystemNamePartTypes      = "system_name_part_types"
	blockNamePartTypes            = "name_part_types"
	blockLanguages                = "languages"
	blockScripts                  = "scripts"
	blockNameRelationshipTypes    = "name_relationship_types"
	blockDatePeriods              = "date_periods"
	blockDateTypes                = "date_types"
	blockCalendars                = "calendars"
	blockAuthorityRecords         = "authority_records"
	blockEntities                 = "entities"
	blockExistenceAssertions      = "existence_assertions"
	blockEntityTypeAssertions     = "entity_type_assertions"
	blockNoteAssertions           = "entity_note_assertions"
	blockReferenceAssertions      = "entity_reference_assertions"
	blockNameAssertions           = "name_assertions"
	blockRelationshipAssertions   = "entity_relationship_assertions"
	blockNameRelationshipAsserts  = "name_relationship_assertions"
	blockDates                    = "dates"
	blockNameParts                = "name_parts"
	blockNameNotes                = "name_notes"
	blockVariantForms             = "variant_forms"
	blockRelationshipNotes        = "entity_relationship_notes"
	blockLanguageSystemPartTypes  = "system_name_part_types"
	tagEntity                     = "entity"
	tagExistenceAssertion         = "existence_assertion"
	tagEntityTypeAssertion        = "entity_type_assertion"
	tagNoteAssertion              = "entity_note_assertion"
	tagReferenceAssertion         = "entity_reference_assertion"
	tagNameAssertion              = "name_assertion"
	tagRelationshipAssertion      = "entity_relationship_assertion"
	tagNameRelationshipAssertion  = "name_relationship_assertion"
	tagDate                       = "date"
	tagDatePart                   = "date_part"
	tagNamePart                   = "name_part"
	tagNameNote                   = "name_note"
	tagVariantForm                = "variant_form"
	tagRelationshipNote           = "entity_relationship_note"
	tagAuthority                  = "authority"
	tagAuthorityRecord            = "authority_record"
	tagCalendar                   = "calendar"
	tagDatePeriod                 = "date_period"
	tagDateType                   = "date_type"
	tagLanguage                   = "language"
	tagScript                     = "script"
	tagSystemNamePartType         = "system_name_part_type"
	tagEntityType                 = "entity_type"
	tagEntityRelationshipType     = "entity_relationship_type"
	tagNameType                   = "name_type"
	tagNamePartType               = "name_part_type"
	tagNameRelationshipType       = "name_relationship_type"
	tagAuthoritySystemID          = "authority_system_id"
	tagAuthoritySystemURL         = "authority_system_url"
	tagAssembledForm              = "assembled_form"
	tagDisplayForm                = "display_form"
)

// infrastructureBlocks lists the vocabulary blocks in the order the grammar
// requires, with the element each holds.
var infrastructureBlocks = []struct {
	block string
	item  string
	kind  domain.Kind
}{
	{blockAuthorities, tagAuthority, domain.KindAuthority},
	{blockEntityTypes, tagEntityType, domain.KindEntityType},
	{blockEntityRelationshipTypes, tagEntityRelationshipType, domain.KindEntityRelationshipType},
	{blockNameTypes, tagNameType, domain.KindNameType},
	{blockSystemNamePartTypes, tagSystemNamePartType, domain.KindSystemNamePartType},
	{blockNamePartTypes, tagNamePartType, domain.KindNamePartType},
	{blockLanguages, tagLanguage, domain.KindLanguage},
	{blockScripts, tagScript, domain.KindScript},
	{blockNameRelationshipTypes, tagNameRelationshipType, domain.KindNameRelationshipType},
	{blockDatePeriods, tagDatePeriod, domain.KindDatePeriod},
	{blockDateTypes, tagDateType, domain.KindDateType},
	{blockCalendars, tagCalendar, domain.KindCalendar},
	{blockAuthorityRecords, tagAuthorityRecord, domain.KindAuthorityRecord},
}

// Prefixes of the document-local ids of assertions. Vocabulary, entity and
// date ids use the kind name as prefix.
const (
	prefixExistence          = "existence_assertion"
	prefixEntityType         = "entity_type_assertion"
	prefixNote               = "note_assertion"
	prefixReference          = "reference_assertion"
	prefixName               = "name_assertion"
	prefixEntityRelationship = "entity_relationship_assertion"
	prefixNameRelationship   = "name_relationship_assertion"
)

// localID renders the document-local id of a stored record.
func localID(prefix string, id domain.ID) string {
	return prefix + "-" + strconv.FormatInt(int64(id), 10)
}

func kindRef(kind domain.Kind, id domain.ID) string {
	return localID(string(kind), id)
}

func formatBool(b bool) string {
	if b {
		return xmlTrue
	}
	return xmlFalse
}

// parseBool accepts the lexical forms of xsd:boolean. Anything else,
// including an absent value, is false.
func parseBool(s string) bool {
	switch strings.TrimSpace(s) {
	case xmlTrue, "1":
		return true
	}
	return false
}

func isBoolLexical(s string) bool {
	switch s {
	case xmlTrue, xmlFalse, "1", "0":
		return true
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// setIDs adds the document-local and stored ids of a record to el.
func setIDs(el *etree.Element, prefix string, id domain.ID) {
	el.CreateAttr(attrXMLID, localID(prefix, id))
	setEATSID(el, id)
}

func setEATSID(el *etree.Element, id domain.ID) {
	el.CreateAttr(attrEATSID, strconv.FormatInt(int64(id), 10))
}

func elementID(el *etree.Element) string {
	return el.SelectAttrValue(attrXMLID, "")
}

// elementEATSID returns the stored id an element claims, if any.
func elementEATSID(el *etree.Element) (domain.ID, bool, error) {
	raw := el.SelectAttrValue(attrEATSID, "")
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, false, fmt.Errorf("element %q has invalid eats_id %q", el.Tag, raw)
	}
	return domain.ID(n), true, nil
}

// addText appends a child element holding text, in the parent's namespace
// prefix.
func addText(parent *etree.Element, tag, text string) *etree.Element {
	child := parent.CreateElement(tag)
	child.Space = parent.Space
	if text != "" {
		child.SetText(text)
	}
	return child
}

// childText returns the trimmed text of the first child named tag.
func childText(el *etree.Element, tag string) string {
	child := el.SelectElement(tag)
	if child == nil {
		return ""
	}
	return strings.TrimSpace(child.Text())
}

func ownText(el *etree.Element) string {
	return strings.TrimSpace(el.Text())
}

// children returns the items of the named block under el.
func children(el *etree.Element, block, item string) []*etree.Element {
	container := el.SelectElement(block)
	if container == nil {
		return nil
	}
	return container.SelectElements(item)
}

func newCollection() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(tagCollection)
	root.CreateAttr("xmlns", Namespace)
	return doc
}

// Serialize renders a document with two space indentation.
func Serialize(doc *etree.Document) ([]byte, error) {
	out := doc.Copy()
	out.Indent(2)
	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	return buf.Bytes(), nil
}

// Parse reads an EATSML document.
func Parse(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	return doc, nil
}
