package domain

import (
	"slices"
	"time"
)

// Authority is a cataloguing body. Every assertion is made on behalf of an
// authority through one of its authority records.
type Authority struct {
	ID                  ID        `json:"id"`
	Name                string    `json:"name"`
	Abbreviation        string    `json:"abbreviation,omitempty"`
	BaseID              string    `json:"base_id,omitempty"`
	BaseURL             string    `json:"base_url,omitempty"`
	IsDefault           bool      `json:"is_default"`
	DefaultCalendarID   ID        `json:"default_calendar_id,omitempty"`
	DefaultDatePeriodID ID        `json:"default_date_period_id,omitempty"`
	DefaultDateTypeID   ID        `json:"default_date_type_id,omitempty"`
	DefaultLanguageID   ID        `json:"default_language_id,omitempty"`
	DefaultScriptID     ID        `json:"default_script_id,omitempty"`
	LastModified        time.Time `json:"last_modified"`
}

// ShortName returns the abbreviation when present, otherwise the name.
func (a Authority) ShortName() string {
	if a.Abbreviation != "" {
		return a.Abbreviation
	}
	return a.Name
}

// AuthorityRecord is an authority's own identifier for an entity.
type AuthorityRecord struct {
	ID            ID        `json:"id"`
	AuthorityID   ID        `json:"authority_id"`
	SystemID      string    `json:"system_id,omitempty"`
	IsCompleteID  bool      `json:"is_complete_id"`
	SystemURL     string    `json:"system_url,omitempty"`
	IsCompleteURL bool      `json:"is_complete_url"`
	LastModified  time.Time `json:"last_modified"`
}

// FullID returns the record identifier, prefixed with the authority's base
// id when the stored identifier is incomplete.
func (r AuthorityRecord) FullID(authority Authority) string {
	if r.IsCompleteID || r.SystemID == "" {
		return r.SystemID
	}
	return authority.BaseID + r.SystemID
}

// FullURL returns the record URL, prefixed with the authority's base URL
// when the stored URL is incomplete.
func (r AuthorityRecord) FullURL(authority Authority) string {
	if r.IsCompleteURL || r.SystemURL == "" {
		return r.SystemURL
	}
	return authority.BaseURL + r.SystemURL
}

// Term is a named vocabulary entry.
type Term struct {
	ID           ID        `json:"id"`
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
}

// ScopedTerm is a vocabulary entry owned by a single authority.
type ScopedTerm struct {
	Term
	AuthorityID ID `json:"authority_id"`
}

type (
	// Calendar is a calendar system dates may be expressed in.
	Calendar struct{ Term }
	// DatePeriod qualifies a whole date, e.g. "lifespan" or "floruit".
	DatePeriod struct{ Term }
	// DateType qualifies a date part, e.g. "exact" or "circa".
	DateType struct{ Term }
	// EntityType is an authority's classification of entities.
	EntityType struct{ ScopedTerm }
	// EntityRelationshipType names a directed relationship between entities.
	EntityRelationshipType struct{ ScopedTerm }
	// NameRelationshipType names a relationship between two names.
	NameRelationshipType struct{ ScopedTerm }
)

// NameType classifies names, e.g. "regular" or "pseudonym".
type NameType struct {
	ScopedTerm
	IsDefault bool `json:"is_default"`
}

// NamePartType is an authority's label for a name part, mapped onto a system
// name part type.
type NamePartType struct {
	ScopedTerm
	SystemNamePartTypeID ID `json:"system_name_part_type_id"`
}

// SystemNamePartType is a language independent name part role such as
// "given" or "family".
type SystemNamePartType struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Language is a natural language names can be written in.
type Language struct {
	ID                    ID        `json:"id"`
	Code                  string    `json:"code"`
	Name                  string    `json:"name"`
	SystemNamePartTypeIDs []ID      `json:"system_name_part_type_ids,omitempty"`
	LastModified          time.Time `json:"last_modified"`
}

// Script is a writing system names can be written in.
type Script struct {
	ID           ID        `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	LastModified time.Time `json:"last_modified"`
}

// Clone returns a copy that shares no slices with the receiver.
func (l Language) Clone() Language {
	l.SystemNamePartTypeIDs = slices.Clone(l.SystemNamePartTypeIDs)
	return l
}

// User is an account that performs imports and exports.
type User struct {
	ID          ID          `json:"id"`
	Username    string      `json:"username"`
	IsSuperuser bool        `json:"is_superuser"`
	Profile     UserProfile `json:"profile"`
}

// UserProfile lists the authorities a user may edit and their display
// preferences. A zero preference id means no preference.
type UserProfile struct {
	EditableAuthorityIDs []ID `json:"editable_authority_ids,omitempty"`
	AuthorityID          ID   `json:"authority_id,omitempty"`
	LanguageID           ID   `json:"language_id,omitempty"`
	ScriptID             ID   `json:"script_id,omitempty"`
	CalendarID           ID   `json:"calendar_id,omitempty"`
	DateTypeID           ID   `json:"date_type_id,omitempty"`
	DatePeriodID         ID   `json:"date_period_id,omitempty"`
	NameTypeID           ID   `json:"name_type_id,omitempty"`
}

// CanEdit reports whether the authority is among the editable authorities.
func (p UserProfile) CanEdit(authorityID ID) bool {
	return slices.Contains(p.EditableAuthorityIDs, authorityID)
}

// Clone returns a copy that shares no slices with the receiver.
func (u User) Clone() User {
	u.Profile.EditableAuthorityIDs = slices.Clone(u.Profile.EditableAuthorityIDs)
	return u
}

// RegisteredImport records an accepted import. The XML bodies themselves are
// archived in blob storage under the recorded keys.
type RegisteredImport struct {
	ID           string    `json:"id"`
	ImporterID   ID        `json:"importer_id"`
	Description  string    `json:"description"`
	RawKey       string    `json:"raw_key"`
	ProcessedKey string    `json:"processed_key"`
	ImportDate   time.Time `json:"import_date"`
}
