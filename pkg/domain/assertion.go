package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// PropertyKind discriminates the payload carried by a property assertion.
type PropertyKind string

// Property kinds in the order an entity's assertions are exported.
const (
	PropertyExistence          PropertyKind = "existence"
	PropertyEntityType         PropertyKind = "entity_type"
	PropertyNote               PropertyKind = "note"
	PropertyReference          PropertyKind = "reference"
	PropertyName               PropertyKind = "name"
	PropertyEntityRelationship PropertyKind = "entity_relationship"
	PropertyNameRelationship   PropertyKind = "name_relationship"
	PropertyGeneric            PropertyKind = "generic"
)

// ErrInvalidAssertion reports an assertion that does not carry exactly one
// property payload.
var ErrInvalidAssertion = errors.New("property assertion must carry exactly one property")

// Property is the payload of a property assertion. The set of
// implementations is closed.
type Property interface {
	PropertyKind() PropertyKind
	isProperty()
}

// Existence asserts that an entity exists for an authority record. Every
// other assertion for the same record depends on it.
type Existence struct{}

// EntityTypeProperty classifies an entity.
type EntityTypeProperty struct {
	EntityTypeID ID `json:"entity_type_id"`
}

// InlineNote is a note attached to a name or a relationship.
type InlineNote struct {
	Text       string `json:"text"`
	IsInternal bool   `json:"is_internal"`
}

// NamePart is one typed component of a name.
type NamePart struct {
	NamePartTypeID ID     `json:"name_part_type_id"`
	LanguageID     ID     `json:"language_id,omitempty"`
	ScriptID       ID     `json:"script_id,omitempty"`
	Text           string `json:"text"`
}

// Name is a name of an entity.
type Name struct {
	NameTypeID  ID           `json:"name_type_id"`
	LanguageID  ID           `json:"language_id"`
	ScriptID    ID           `json:"script_id"`
	DisplayForm string       `json:"display_form,omitempty"`
	Parts       []NamePart   `json:"parts,omitempty"`
	Notes       []InlineNote `json:"notes,omitempty"`
}

// EntityRelationship relates the asserting entity to another entity.
type EntityRelationship struct {
	RelatedEntityID ID           `json:"related_entity_id"`
	TypeID          ID           `json:"type_id"`
	Notes           []InlineNote `json:"notes,omitempty"`
}

// NameRelationship relates one name assertion to another.
type NameRelationship struct {
	NameAssertionID        ID `json:"name_assertion_id"`
	RelatedNameAssertionID ID `json:"related_name_assertion_id"`
	TypeID                 ID `json:"type_id"`
}

// Note is a free text note about an entity.
type Note struct {
	Text       string `json:"text"`
	IsInternal bool   `json:"is_internal"`
}

// Reference points at an external resource describing the entity.
type Reference struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// GenericProperty holds a user defined property. ConstrainedValue is chosen
// from the property's fixed values; FreeValue is arbitrary text.
type GenericProperty struct {
	PropertyName     string `json:"property_name"`
	ConstrainedValue string `json:"constrained_value,omitempty"`
	FreeValue        string `json:"free_value,omitempty"`
}

func (Existence) PropertyKind() PropertyKind          { return PropertyExistence }
func (EntityTypeProperty) PropertyKind() PropertyKind { return PropertyEntityType }
func (Name) PropertyKind() PropertyKind               { return PropertyName }
func (EntityRelationship) PropertyKind() PropertyKind { return PropertyEntityRelationship }
func (NameRelationship) PropertyKind() PropertyKind   { return PropertyNameRelationship }
func (Note) PropertyKind() PropertyKind               { return PropertyNote }
func (Reference) PropertyKind() PropertyKind          { return PropertyReference }
func (GenericProperty) PropertyKind() PropertyKind    { return PropertyGeneric }

func (Existence) isProperty()          {}
func (EntityTypeProperty) isProperty() {}
func (Name) isProperty()               {}
func (EntityRelationship) isProperty() {}
func (NameRelationship) isProperty()   {}
func (Note) isProperty()               {}
func (Reference) isProperty()          {}
func (GenericProperty) isProperty()    {}

// PropertyAssertion binds one property to an entity on behalf of an
// authority record.
type PropertyAssertion struct {
	ID                ID
	EntityID          ID
	AuthorityRecordID ID
	IsPreferred       bool
	Property          Property
	LastModified      time.Time
}

// NewAssertion constructs an assertion, rejecting a missing property.
func NewAssertion(entityID, recordID ID, preferred bool, property Property) (PropertyAssertion, error) {
	if property == nil {
		return PropertyAssertion{}, ErrInvalidAssertion
	}
	return PropertyAssertion{
		EntityID:          entityID,
		AuthorityRecordID: recordID,
		IsPreferred:       preferred,
		Property:          property,
	}, nil
}

// Kind returns the payload discriminant, or "" when no property is set.
func (a PropertyAssertion) Kind() PropertyKind {
	if a.Property == nil {
		return ""
	}
	return a.Property.PropertyKind()
}

// Name returns the name payload when the assertion carries one.
func (a PropertyAssertion) Name() (Name, bool) {
	n, ok := a.Property.(Name)
	return n, ok
}

// Relationship returns the entity relationship payload when present.
func (a PropertyAssertion) Relationship() (EntityRelationship, bool) {
	r, ok := a.Property.(EntityRelationship)
	return r, ok
}

// Clone returns a deep copy of the assertion.
func (a PropertyAssertion) Clone() PropertyAssertion {
	switch p := a.Property.(type) {
	case Name:
		p.Parts = slices.Clone(p.Parts)
		p.Notes = slices.Clone(p.Notes)
		a.Property = p
	case EntityRelationship:
		p.Notes = slices.Clone(p.Notes)
		a.Property = p
	}
	return a
}

type assertionJSON struct {
	ID                 ID                  `json:"id"`
	EntityID           ID                  `json:"entity_id"`
	AuthorityRecordID  ID                  `json:"authority_record_id"`
	IsPreferred        bool                `json:"is_preferred"`
	LastModified       time.Time           `json:"last_modified"`
	Kind               PropertyKind        `json:"kind"`
	Existence          *Existence          `json:"existence,omitempty"`
	EntityType         *EntityTypeProperty `json:"entity_type,omitempty"`
	Name               *Name               `json:"name,omitempty"`
	EntityRelationship *EntityRelationship `json:"entity_relationship,omitempty"`
	NameRelationship   *NameRelationship   `json:"name_relationship,omitempty"`
	Note               *Note               `json:"note,omitempty"`
	Reference          *Reference          `json:"reference,omitempty"`
	Generic            *GenericProperty    `json:"generic,omitempty"`
}

// MarshalJSON encodes the discriminant alongside exactly one payload.
func (a PropertyAssertion) MarshalJSON() ([]byte, error) {
	out := assertionJSON{
		ID:                a.ID,
		EntityID:          a.EntityID,
		AuthorityRecordID: a.AuthorityRecordID,
		IsPreferred:       a.IsPreferred,
		LastModified:      a.LastModified,
		Kind:              a.Kind(),
	}
	switch p := a.Property.(type) {
	case Existence:
		out.Existence = &p
	case EntityTypeProperty:
		out.EntityType = &p
	case Name:
		out.Name = &p
	case EntityRelationship:
		out.EntityRelationship = &p
	case NameRelationship:
		out.NameRelationship = &p
	case Note:
		out.Note = &p
	case Reference:
		out.Reference = &p
	case GenericProperty:
		out.Generic = &p
	default:
		return nil, ErrInvalidAssertion
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes an assertion, rejecting zero or several payloads and
// payloads that disagree with the discriminant.
func (a *PropertyAssertion) UnmarshalJSON(data []byte) error {
	var in assertionJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var found []Property
	if in.Existence != nil {
		found = append(found, *in.Existence)
	}
	if in.EntityType != nil {
		found = append(found, *in.EntityType)
	}
	if in.Name != nil {
		found = append(found, *in.Name)
	}
	if in.EntityRelationship != nil {
		found = append(found, *in.EntityRelationship)
	}
	if in.NameRelationship != nil {
		found = append(found, *in.NameRelationship)
	}
	if in.Note != nil {
		found = append(found, *in.Note)
	}
	if in.Reference != nil {
		found = append(found, *in.Reference)
	}
	if in.Generic != nil {
		found = append(found, *in.Generic)
	}
	if len(found) != 1 {
		return fmt.Errorf("assertion %d: %w (found %d)", in.ID, ErrInvalidAssertion, len(found))
	}
	if in.Kind != "" && in.Kind != found[0].PropertyKind() {
		return fmt.Errorf("assertion %d: kind %q does not match %q payload", in.ID, in.Kind, found[0].PropertyKind())
	}
	*a = PropertyAssertion{
		ID:                in.ID,
		EntityID:          in.EntityID,
		AuthorityRecordID: in.AuthorityRecordID,
		IsPreferred:       in.IsPreferred,
		LastModified:      in.LastModified,
		Property:          found[0],
	}
	return nil
}
