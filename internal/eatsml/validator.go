package eatsml

import (
	"eats/pkg/domain"
	"fmt"
	"slices"

	"github.com/beevik/etree"
)

// Violation is a single grammar failure.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// Validator checks a document against the EATSML grammar.
type Validator interface {
	Validate(doc *etree.Document) []Violation
}

// SchemaValidator checks document structure, required attributes and
// children, boolean lexical forms, id uniqueness and that every reference
// resolves to an element of the expected kind within the document.
type SchemaValidator struct{}

// elementRule describes one element of the grammar. Required attributes and
// children are only enforced on elements that do not carry an eats_id.
type elementRule struct {
	attrs    []string
	children []string
	text     bool
	bools    []string
	// refs maps a reference attribute to the tag of the element it denotes.
	refs map[string]string
	// noID marks elements that carry no xml:id of their own.
	noID bool
}

const nestedSystemNamePartType = "language/" + tagSystemNamePartType

var assertionBools = []string{"is_preferred"}

var elementRules = map[string]elementRule{
	tagAuthority: {
		children: []string{"name"},
		bools:    []string{"is_default", "user_default"},
		refs: map[string]string{
			"default_calendar":    tagCalendar,
			"default_date_period": tagDatePeriod,
			"default_date_type":   tagDateType,
			"default_language":    tagLanguage,
			"default_script":      tagScript,
		},
	},
	tagEntityType:             scopedTermRule(nil),
	tagEntityRelationshipType: scopedTermRule(nil),
	tagNameRelationshipType:   scopedTermRule(nil),
	tagNameType:               scopedTermRule([]string{"is_default", "user_default"}),
	tagNamePartType: {
		attrs: []string{"authority", "system_name_part_type"},
		text:  true,
		refs:  map[string]string{"authority": tagAuthority, "system_name_part_type": tagSystemNamePartType},
	},
	tagSystemNamePartType: {children: []string{"name"}},
	nestedSystemNamePartType: {
		attrs: []string{"ref"},
		refs:  map[string]string{"ref": tagSystemNamePartType},
		noID:  true,
	},
	tagLanguage:   {children: []string{"name", "code"}, bools: []string{"user_default"}},
	tagScript:     {children: []string{"name", "code"}, bools: []string{"user_default"}},
	tagDatePeriod: {text: true, bools: []string{"user_default"}},
	tagDateType:   {text: true, bools: []string{"user_default"}},
	tagCalendar:   {text: true, bools: []string{"user_default"}},
	tagAuthorityRecord: {
		attrs: []string{"authority"},
		bools: []string{"auto_create_data"},
		refs:  map[string]string{"authority": tagAuthority},
	},
	tagAuthoritySystemID:  {bools: []string{"is_complete"}, noID: true},
	tagAuthoritySystemURL: {bools: []string{"is_complete"}, noID: true},
	tagEntity:             {bools: []string{"is_related"}},
	tagExistenceAssertion: assertionRule(nil, nil, nil),
	tagEntityTypeAssertion: assertionRule([]string{"entity_type"}, nil,
		map[string]string{"entity_type": tagEntityType}),
	tagNoteAssertion:      assertionRule(nil, []string{"note"}, nil, "is_internal"),
	tagReferenceAssertion: assertionRule(nil, []string{"label", "url"}, nil),
	tagNameAssertion: assertionRule([]string{"type", "language", "script"}, nil,
		map[string]string{"type": tagNameType, "language": tagLanguage, "script": tagScript}, "user_default"),
	tagRelationshipAssertion: assertionRule([]string{"type", "related_entity"}, nil,
		map[string]string{"type": tagEntityRelationshipType, "related_entity": tagEntity}),
	tagNameRelationshipAssertion: assertionRule([]string{"type", "name", "related_name"}, nil,
		map[string]string{"type": tagNameRelationshipType, "name": tagNameAssertion, "related_name": tagNameAssertion}),
	tagNamePart: {
		attrs: []string{"type"},
		refs:  map[string]string{"type": tagNamePartType, "language": tagLanguage, "script": tagScript},
		noID:  true,
	},
	tagNameNote:         {bools: []string{"is_internal"}, noID: true},
	tagRelationshipNote: {bools: []string{"is_internal"}, noID: true},
	tagDate: {
		attrs:    []string{"period"},
		children: []string{tagDatePart},
		refs:     map[string]string{"period": tagDatePeriod},
	},
	tagDatePart: {
		attrs:    []string{"type"},
		children: []string{"raw"},
		bools:    []string{"confident"},
		refs:     map[string]string{"calendar": tagCalendar, "date_type": tagDateType},
		noID:     true,
	},
}

func scopedTermRule(bools []string) elementRule {
	return elementRule{
		attrs: []string{"authority"},
		text:  true,
		bools: bools,
		refs:  map[string]string{"authority": tagAuthority},
	}
}

func assertionRule(attrs, children []string, refs map[string]string, bools ...string) elementRule {
	all := map[string]string{"authority_record": tagAuthorityRecord}
	for attr, tag := range refs {
		all[attr] = tag
	}
	return elementRule{
		attrs:    append([]string{"authority_record"}, attrs...),
		children: children,
		bools:    append(slices.Clone(assertionBools), bools...),
		refs:     all,
	}
}

// entityBlocks lists the assertion blocks of an entity in document order.
var entityBlocks = []struct{ block, item string }{
	{blockExistenceAssertions, tagExistenceAssertion},
	{blockEntityTypeAssertions, tagEntityTypeAssertion},
	{blockNoteAssertions, tagNoteAssertion},
	{blockReferenceAssertions, tagReferenceAssertion},
	{blockNameAssertions, tagNameAssertion},
	{blockRelationshipAssertions, tagRelationshipAssertion},
	{blockNameRelationshipAsserts, tagNameRelationshipAssertion},
}

type validation struct {
	violations []Violation
	ids        map[string]string
}

func (v *validation) addf(el *etree.Element, format string, args ...any) {
	path := ""
	if el != nil {
		path = el.GetPath()
	}
	v.violations = append(v.violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

// Validate implements Validator.
func (SchemaValidator) Validate(doc *etree.Document) []Violation {
	v := &validation{ids: make(map[string]string)}
	root := doc.Root()
	if root == nil {
		v.addf(nil, "document has no root element")
		return v.violations
	}
	if root.Tag != tagCollection {
		v.addf(root, "root element must be %q, not %q", tagCollection, root.Tag)
		return v.violations
	}
	v.checkNamespace(root)
	v.checkRoot(root)
	v.collectIDs(root)
	v.checkElements(root)
	return v.violations
}

func (v *validation) checkNamespace(el *etree.Element) {
	if ns := el.NamespaceURI(); ns != Namespace {
		v.addf(el, "element is in namespace %q, expected %q", ns, Namespace)
	}
	for _, child := range el.ChildElements() {
		v.checkNamespace(child)
	}
}

func (v *validation) checkRoot(root *etree.Element) {
	order := make([]struct{ block, item string }, 0, len(infrastructureBlocks)+1)
	for _, b := range infrastructureBlocks {
		order = append(order, struct{ block, item string }{b.block, b.item})
	}
	order = append(order, struct{ block, item string }{blockEntities, tagEntity})
	v.checkBlocks(root, order)
	if entities := root.SelectElement(blockEntities); entities != nil {
		for _, entity := range entities.SelectElements(tagEntity) {
			v.checkBlocks(entity, entityBlocks)
		}
	}
}

// checkBlocks verifies that the element children of parent are blocks drawn
// from order, each at most once and in that order, holding only their item
// elements. Children not named in order are left to the element rules.
func (v *validation) checkBlocks(parent *etree.Element, order []struct{ block, item string }) {
	position := make(map[string]int, len(order))
	for i, b := range order {
		position[b.block] = i
	}
	last := -1
	seen := make(map[string]bool)
	for _, child := range parent.ChildElements() {
		i, ok := position[child.Tag]
		if !ok {
			if parent.Tag == tagCollection {
				v.addf(child, "unexpected element %q", child.Tag)
			}
			continue
		}
		if seen[child.Tag] {
			v.addf(child, "block %q appears more than once", child.Tag)
			continue
		}
		seen[child.Tag] = true
		if i < last {
			v.addf(child, "block %q is out of order", child.Tag)
		}
		last = max(last, i)
		for _, item := range child.ChildElements() {
			if item.Tag != order[i].item {
				v.addf(item, "block %q may only hold %q elements", child.Tag, order[i].item)
			}
		}
	}
}

func (v *validation) collectIDs(el *etree.Element) {
	if id := elementID(el); id != "" {
		if _, dup := v.ids[id]; dup {
			v.addf(el, "duplicate xml:id %q", id)
		} else {
			v.ids[id] = el.Tag
		}
	}
	for _, child := range el.ChildElements() {
		v.collectIDs(child)
	}
}

func ruleKey(el *etree.Element) string {
	if el.Tag == tagSystemNamePartType {
		if block := el.Parent(); block != nil {
			if owner := block.Parent(); owner != nil && owner.Tag == tagLanguage {
				return nestedSystemNamePartType
			}
		}
	}
	return el.Tag
}

func (v *validation) checkElements(el *etree.Element) {
	if rule, ok := elementRules[ruleKey(el)]; ok {
		v.checkElement(el, rule)
	}
	for _, child := range el.ChildElements() {
		v.checkElements(child)
	}
}

func (v *validation) checkElement(el *etree.Element, rule elementRule) {
	_, hasEATSID, err := elementEATSID(el)
	if err != nil {
		v.addf(el, "%v", err)
	}
	if !rule.noID && elementID(el) == "" {
		v.addf(el, "missing required attribute xml:id")
	}
	if !hasEATSID {
		for _, attr := range rule.attrs {
			if el.SelectAttr(attr) == nil {
				v.addf(el, "missing required attribute %s", attr)
			}
		}
		for _, child := range rule.children {
			if el.SelectElement(child) == nil {
				v.addf(el, "missing required child element %s", child)
			}
		}
		if rule.text && ownText(el) == "" {
			v.addf(el, "element text must not be empty")
		}
	}
	for _, attr := range rule.bools {
		if a := el.SelectAttr(attr); a != nil && !isBoolLexical(a.Value) {
			v.addf(el, "attribute %s has non-boolean value %q", attr, a.Value)
		}
	}
	for attr, tag := range rule.refs {
		a := el.SelectAttr(attr)
		if a == nil {
			continue
		}
		target, ok := v.ids[a.Value]
		switch {
		case !ok:
			v.addf(el, "attribute %s references unknown id %q", attr, a.Value)
		case target != tag:
			v.addf(el, "attribute %s references a %s, expected a %s", attr, target, tag)
		}
	}
	if el.Tag == tagDatePart {
		if t := el.SelectAttrValue("type", ""); t != "" {
			if _, ok := domain.ParseDatePartType(t); !ok {
				v.addf(el, "unknown date part type %q", t)
			}
		}
	}
}
