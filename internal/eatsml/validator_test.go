package eatsml

import (
	"strings"
	"testing"
)

func validate(t *testing.T, doc string) []Violation {
	t.Helper()
	parsed, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return SchemaValidator{}.Validate(parsed)
}

func expectViolation(t *testing.T, doc, fragment string) {
	t.Helper()
	violations := validate(t, doc)
	for _, v := range violations {
		if strings.Contains(v.String(), fragment) {
			return
		}
	}
	t.Fatalf("expected a violation containing %q, got %v", fragment, violations)
}

func TestValidatorAcceptsWellFormedDocument(t *testing.T) {
	if violations := validate(t, janeDoeDoc); len(violations) != 0 {
		t.Fatalf("unexpected violations %v", violations)
	}
}

func TestValidatorAcceptsExports(t *testing.T) {
	svc, f := newSeededService(t)
	a := addPerson(t, svc, f, "entity-000001", "Jane", "Doe")
	b := addPerson(t, svc, f, "entity-000002", "John", "Doe")
	relate(t, svc, f, a, b)
	addDate(t, svc, f, a.Existence.ID)
	doc := exportDoc(t, svc.Store(), allEntityIDs(t, svc.Store()), ExportOptions{FullDetails: true})
	if violations := (SchemaValidator{}).Validate(doc); len(violations) != 0 {
		t.Fatalf("export fails validation: %v", violations)
	}
}

func TestValidatorRejections(t *testing.T) {
	cases := []struct {
		name     string
		doc      string
		fragment string
	}{
		{
			name:     "root",
			doc:      `<entities xmlns="` + Namespace + `"/>`,
			fragment: `root element must be "collection"`,
		},
		{
			name:     "namespace",
			doc:      `<collection xmlns="urn:other"/>`,
			fragment: "expected \"" + Namespace + "\"",
		},
		{
			name:     "unknown block",
			doc:      `<collection xmlns="` + Namespace + `"><people/></collection>`,
			fragment: `unexpected element "people"`,
		},
		{
			name: "block order",
			doc: `<collection xmlns="` + Namespace + `">
				<scripts><script xml:id="s"><name>Latin</name><code>Latn</code></script></scripts>
				<languages><language xml:id="l"><name>English</name><code>en</code></language></languages>
			</collection>`,
			fragment: `block "languages" is out of order`,
		},
		{
			name: "repeated block",
			doc: `<collection xmlns="` + Namespace + `">
				<scripts/><scripts/>
			</collection>`,
			fragment: `block "scripts" appears more than once`,
		},
		{
			name: "wrong item",
			doc: `<collection xmlns="` + Namespace + `">
				<scripts><language xml:id="l"><name>English</name><code>en</code></language></scripts>
			</collection>`,
			fragment: `may only hold "script" elements`,
		},
		{
			name:     "duplicate id",
			doc:      strings.Replace(janeDoeDoc, `xml:id="script-1"`, `xml:id="language-1"`, 1),
			fragment: `duplicate xml:id "language-1"`,
		},
		{
			name:     "boolean",
			doc:      strings.Replace(janeDoeDoc, `auto_create_data="true"`, `auto_create_data="yes"`, 1),
			fragment: `non-boolean value "yes"`,
		},
		{
			name:     "unresolved reference",
			doc:      strings.Replace(janeDoeDoc, `script="script-1"`, `script="script-9"`, 1),
			fragment: `references unknown id "script-9"`,
		},
		{
			name:     "wrong kind of reference",
			doc:      strings.Replace(janeDoeDoc, `script="script-1"`, `script="language-1"`, 1),
			fragment: "references a language, expected a script",
		},
		{
			name:     "missing attribute",
			doc:      strings.Replace(janeDoeDoc, ` type="name_type-1"`, "", 1),
			fragment: "missing required attribute type",
		},
		{
			name: "date part type",
			doc: strings.Replace(janeDoeDoc, `<existence_assertion xml:id="existence_assertion-1" authority_record="authority_record-1"/>`,
				`<existence_assertion xml:id="existence_assertion-1" authority_record="authority_record-1">
					<dates><date xml:id="date-1" period="date_period-1"><date_part type="someday"><raw>1900</raw></date_part></date></dates>
				</existence_assertion>`, 1),
			fragment: `unknown date part type "someday"`,
		},
		{
			name:     "invalid eats_id",
			doc:      strings.Replace(janeDoeDoc, `<entity xml:id="entity-1">`, `<entity xml:id="entity-1" eats_id="first">`, 1),
			fragment: `invalid eats_id "first"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectViolation(t, tc.doc, tc.fragment)
		})
	}
}

func TestValidatorRelaxesStoredObjects(t *testing.T) {
	doc := `<collection xmlns="` + Namespace + `">
		<authorities><authority xml:id="authority-1" eats_id="1"/></authorities>
		<name_types><name_type xml:id="name_type-1" eats_id="4"/></name_types>
	</collection>`
	if violations := validate(t, doc); len(violations) != 0 {
		t.Fatalf("stored objects need no content: %v", violations)
	}
}
