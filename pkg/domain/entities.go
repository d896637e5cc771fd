// Package domain defines the persistent records of the EATS entity graph,
// the property assertion sum type, and the rule evaluation primitives shared
// by every persistence backend.
package domain

import (
	"fmt"
	"time"
)

// ID identifies a stored record. Identifiers are positive and allocated from a
// per-kind sequence so they can be rendered as document-local ids.
type ID int64

// Kind identifies the type of record stored in the graph.
type Kind string

// Supported record kinds used in Change records and persistence buckets.
const (
	KindEntity                 Kind = "entity"
	KindAuthority              Kind = "authority"
	KindAuthorityRecord        Kind = "authority_record"
	KindCalendar               Kind = "calendar"
	KindDatePeriod             Kind = "date_period"
	KindDateType               Kind = "date_type"
	KindLanguage               Kind = "language"
	KindScript                 Kind = "script"
	KindSystemNamePartType     Kind = "system_name_part_type"
	KindEntityType             Kind = "entity_type"
	KindEntityRelationshipType Kind = "entity_relationship_type"
	KindNameType               Kind = "name_type"
	KindNamePartType           Kind = "name_part_type"
	KindNameRelationshipType   Kind = "name_relationship_type"
	KindAssertion              Kind = "assertion"
	KindDate                   Kind = "date"
	KindSearchName             Kind = "search_name"
	KindUser                   Kind = "user"
	KindRegisteredImport       Kind = "registered_import"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Change describes a mutation applied to a record during a transaction.
type Change struct {
	Kind   Kind
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Kind     Kind
	RecordID ID
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// FirstBlocking returns the first blocking violation, if any.
func (r Result) FirstBlocking() (Violation, bool) {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return v, true
		}
	}
	return Violation{}, false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	if v, ok := e.Result.FirstBlocking(); ok {
		return "transaction blocked by rules: " + v.Message
	}
	return "transaction blocked by rules"
}

// ErrNotFound reports a missing record of the given kind.
type ErrNotFound struct {
	Kind Kind
	ID   ID
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

// Entity is the node that property assertions attach to. It carries no data
// of its own beyond its identity.
type Entity struct {
	ID           ID        `json:"id"`
	LastModified time.Time `json:"last_modified"`
}

// ErrMissingExistence reports a property asserted for an entity and
// authority record that have no existence assertion together.
type ErrMissingExistence struct {
	EntityID          ID
	AuthorityRecordID ID
}

func (e ErrMissingExistence) Error() string {
	return fmt.Sprintf("entity %d has no existence assertion for authority record %d", e.EntityID, e.AuthorityRecordID)
}
