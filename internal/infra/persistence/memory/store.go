// Package memory provides an in-memory implementation of the graph store used
// for tests, ephemeral environments, and as the transactional core of the
// durable backends.
package memory

import (
	"context"
	"eats/pkg/domain"
	"maps"
	"slices"
	"sync"
	"time"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// ID aliases domain.ID.
	ID = domain.ID
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	seq                   map[domain.Kind]ID
	entities              map[ID]domain.Entity
	authorities           map[ID]domain.Authority
	records               map[ID]domain.AuthorityRecord
	calendars             map[ID]domain.Calendar
	datePeriods           map[ID]domain.DatePeriod
	dateTypes             map[ID]domain.DateType
	languages             map[ID]domain.Language
	scripts               map[ID]domain.Script
	systemNamePartTypes   map[ID]domain.SystemNamePartType
	entityTypes           map[ID]domain.EntityType
	relationshipTypes     map[ID]domain.EntityRelationshipType
	nameTypes             map[ID]domain.NameType
	namePartTypes         map[ID]domain.NamePartType
	nameRelationshipTypes map[ID]domain.NameRelationshipType
	assertions            map[ID]domain.PropertyAssertion
	dates                 map[ID]domain.Date
	searchNames           map[ID][]string
	users                 map[ID]domain.User
	imports               map[string]domain.RegisteredImport

	// Derived indexes, rebuilt from the primary maps on load.
	byEntity         map[ID][]ID
	datesByAssert    map[ID][]ID
	relsByTarget     map[ID][]ID
	nameRelsByTarget map[ID][]ID
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Sequences             map[domain.Kind]ID                   `json:"sequences"`
	Entities              map[ID]domain.Entity                 `json:"entities"`
	Authorities           map[ID]domain.Authority              `json:"authorities"`
	AuthorityRecords      map[ID]domain.AuthorityRecord        `json:"authority_records"`
	Calendars             map[ID]domain.Calendar               `json:"calendars"`
	DatePeriods           map[ID]domain.DatePeriod             `json:"date_periods"`
	DateTypes             map[ID]domain.DateType               `json:"date_types"`
	Languages             map[ID]domain.Language               `json:"languages"`
	Scripts               map[ID]domain.Script                 `json:"scripts"`
	SystemNamePartTypes   map[ID]domain.SystemNamePartType     `json:"system_name_part_types"`
	EntityTypes           map[ID]domain.EntityType             `json:"entity_types"`
	RelationshipTypes     map[ID]domain.EntityRelationshipType `json:"entity_relationship_types"`
	NameTypes             map[ID]domain.NameType               `json:"name_types"`
	NamePartTypes         map[ID]domain.NamePartType           `json:"name_part_types"`
	NameRelationshipTypes map[ID]domain.NameRelationshipType   `json:"name_relationship_types"`
	Assertions            map[ID]domain.PropertyAssertion      `json:"assertions"`
	Dates                 map[ID]domain.Date                   `json:"dates"`
	SearchNames           map[ID][]string                      `json:"search_names"`
	Users                 map[ID]domain.User                   `json:"users"`
	Imports               map[string]domain.RegisteredImport   `json:"registered_imports"`
}

// Buckets maps persistence bucket names onto the snapshot fields. Durable
// backends store one JSON payload per bucket.
func (s *Snapshot) Buckets() map[string]any {
	return map[string]any{
		"sequences":                 &s.Sequences,
		"entities":                  &s.Entities,
		"authorities":               &s.Authorities,
		"authority_records":         &s.AuthorityRecords,
		"calendars":                 &s.Calendars,
		"date_periods":              &s.DatePeriods,
		"date_types":                &s.DateTypes,
		"languages":                 &s.Languages,
		"scripts":                   &s.Scripts,
		"system_name_part_types":    &s.SystemNamePartTypes,
		"entity_types":              &s.EntityTypes,
		"entity_relationship_types": &s.RelationshipTypes,
		"name_types":                &s.NameTypes,
		"name_part_types":           &s.NamePartTypes,
		"name_relationship_types":   &s.NameRelationshipTypes,
		"assertions":                &s.Assertions,
		"dates":                     &s.Dates,
		"search_names":              &s.SearchNames,
		"users":                     &s.Users,
		"registered_imports":        &s.Imports,
	}
}

// BucketNames lists the persistence buckets in a stable order.
func BucketNames() []string {
	var s Snapshot
	return slices.Sorted(maps.Keys(s.Buckets()))
}

func newMemoryState() memoryState {
	return memoryState{
		seq:                   make(map[domain.Kind]ID),
		entities:              make(map[ID]domain.Entity),
		authorities:           make(map[ID]domain.Authority),
		records:               make(map[ID]domain.AuthorityRecord),
		calendars:             make(map[ID]domain.Calendar),
		datePeriods:           make(map[ID]domain.DatePeriod),
		dateTypes:             make(map[ID]domain.DateType),
		languages:             make(map[ID]domain.Language),
		scripts:               make(map[ID]domain.Script),
		systemNamePartTypes:   make(map[ID]domain.SystemNamePartType),
		entityTypes:           make(map[ID]domain.EntityType),
		relationshipTypes:     make(map[ID]domain.EntityRelationshipType),
		nameTypes:             make(map[ID]domain.NameType),
		namePartTypes:         make(map[ID]domain.NamePartType),
		nameRelationshipTypes: make(map[ID]domain.NameRelationshipType),
		assertions:            make(map[ID]domain.PropertyAssertion),
		dates:                 make(map[ID]domain.Date),
		searchNames:           make(map[ID][]string),
		users:                 make(map[ID]domain.User),
		imports:               make(map[string]domain.RegisteredImport),
		byEntity:              make(map[ID][]ID),
		datesByAssert:         make(map[ID][]ID),
		relsByTarget:          make(map[ID][]ID),
		nameRelsByTarget:      make(map[ID][]ID),
	}
}

func cloneMap[K comparable, V any](in map[K]V, clone func(V) V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func cloneLanguage(l domain.Language) domain.Language                    { return l.Clone() }
func cloneAssertion(a domain.PropertyAssertion) domain.PropertyAssertion { return a.Clone() }
func cloneUser(u domain.User) domain.User                                { return u.Clone() }
func cloneIDs(ids []ID) []ID                                             { return slices.Clone(ids) }
func cloneStrings(s []string) []string                                   { return slices.Clone(s) }

func (s memoryState) clone() memoryState {
	return memoryState{
		seq:                   maps.Clone(s.seq),
		entities:              maps.Clone(s.entities),
		authorities:           maps.Clone(s.authorities),
		records:               maps.Clone(s.records),
		calendars:             maps.Clone(s.calendars),
		datePeriods:           maps.Clone(s.datePeriods),
		dateTypes:             maps.Clone(s.dateTypes),
		languages:             cloneMap(s.languages, cloneLanguage),
		scripts:               maps.Clone(s.scripts),
		systemNamePartTypes:   maps.Clone(s.systemNamePartTypes),
		entityTypes:           maps.Clone(s.entityTypes),
		relationshipTypes:     maps.Clone(s.relationshipTypes),
		nameTypes:             maps.Clone(s.nameTypes),
		namePartTypes:         maps.Clone(s.namePartTypes),
		nameRelationshipTypes: maps.Clone(s.nameRelationshipTypes),
		assertions:            cloneMap(s.assertions, cloneAssertion),
		dates:                 maps.Clone(s.dates),
		searchNames:           cloneMap(s.searchNames, cloneStrings),
		users:                 cloneMap(s.users, cloneUser),
		imports:               maps.Clone(s.imports),
		byEntity:              cloneMap(s.byEntity, cloneIDs),
		datesByAssert:         cloneMap(s.datesByAssert, cloneIDs),
		relsByTarget:          cloneMap(s.relsByTarget, cloneIDs),
		nameRelsByTarget:      cloneMap(s.nameRelsByTarget, cloneIDs),
	}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	return Snapshot{
		Sequences:             maps.Clone(state.seq),
		Entities:              maps.Clone(state.entities),
		Authorities:           maps.Clone(state.authorities),
		AuthorityRecords:      maps.Clone(state.records),
		Calendars:             maps.Clone(state.calendars),
		DatePeriods:           maps.Clone(state.datePeriods),
		DateTypes:             maps.Clone(state.dateTypes),
		Languages:             cloneMap(state.languages, cloneLanguage),
		Scripts:               maps.Clone(state.scripts),
		SystemNamePartTypes:   maps.Clone(state.systemNamePartTypes),
		EntityTypes:           maps.Clone(state.entityTypes),
		RelationshipTypes:     maps.Clone(state.relationshipTypes),
		NameTypes:             maps.Clone(state.nameTypes),
		NamePartTypes:         maps.Clone(state.namePartTypes),
		NameRelationshipTypes: maps.Clone(state.nameRelationshipTypes),
		Assertions:            cloneMap(state.assertions, cloneAssertion),
		Dates:                 maps.Clone(state.dates),
		SearchNames:           cloneMap(state.searchNames, cloneStrings),
		Users:                 cloneMap(state.users, cloneUser),
		Imports:               maps.Clone(state.imports),
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	state.seq = maps.Clone(s.Sequences)
	state.entities = maps.Clone(s.Entities)
	state.authorities = maps.Clone(s.Authorities)
	state.records = maps.Clone(s.AuthorityRecords)
	state.calendars = maps.Clone(s.Calendars)
	state.datePeriods = maps.Clone(s.DatePeriods)
	state.dateTypes = maps.Clone(s.DateTypes)
	state.languages = cloneMap(s.Languages, cloneLanguage)
	state.scripts = maps.Clone(s.Scripts)
	state.systemNamePartTypes = maps.Clone(s.SystemNamePartTypes)
	state.entityTypes = maps.Clone(s.EntityTypes)
	state.relationshipTypes = maps.Clone(s.RelationshipTypes)
	state.nameTypes = maps.Clone(s.NameTypes)
	state.namePartTypes = maps.Clone(s.NamePartTypes)
	state.nameRelationshipTypes = maps.Clone(s.NameRelationshipTypes)
	state.assertions = cloneMap(s.Assertions, cloneAssertion)
	state.dates = maps.Clone(s.Dates)
	state.searchNames = cloneMap(s.SearchNames, cloneStrings)
	state.users = cloneMap(s.Users, cloneUser)
	state.imports = maps.Clone(s.Imports)
	for _, id := range sortedKeys(state.assertions) {
		state.index(state.assertions[id])
	}
	for _, id := range sortedKeys(state.dates) {
		d := state.dates[id]
		state.datesByAssert[d.AssertionID] = append(state.datesByAssert[d.AssertionID], d.ID)
	}
	return state
}

func ensureMap[K comparable, V any](m *map[K]V) {
	if *m == nil {
		*m = make(map[K]V)
	}
}

// migrateSnapshot fills nil buckets, drops records whose owners are gone,
// and repairs sequences that lag behind stored ids.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	ensureMap(&snapshot.Sequences)
	ensureMap(&snapshot.Entities)
	ensureMap(&snapshot.Authorities)
	ensureMap(&snapshot.AuthorityRecords)
	ensureMap(&snapshot.Calendars)
	ensureMap(&snapshot.DatePeriods)
	ensureMap(&snapshot.DateTypes)
	ensureMap(&snapshot.Languages)
	ensureMap(&snapshot.Scripts)
	ensureMap(&snapshot.SystemNamePartTypes)
	ensureMap(&snapshot.EntityTypes)
	ensureMap(&snapshot.RelationshipTypes)
	ensureMap(&snapshot.NameTypes)
	ensureMap(&snapshot.NamePartTypes)
	ensureMap(&snapshot.NameRelationshipTypes)
	ensureMap(&snapshot.Assertions)
	ensureMap(&snapshot.Dates)
	ensureMap(&snapshot.SearchNames)
	ensureMap(&snapshot.Users)
	ensureMap(&snapshot.Imports)

	for id, a := range snapshot.Assertions {
		if _, ok := snapshot.Entities[a.EntityID]; !ok || a.Property == nil {
			delete(snapshot.Assertions, id)
		}
	}
	for id, d := range snapshot.Dates {
		if _, ok := snapshot.Assertions[d.AssertionID]; !ok {
			delete(snapshot.Dates, id)
		}
	}
	for id := range snapshot.SearchNames {
		if a, ok := snapshot.Assertions[id]; !ok || a.Kind() != domain.PropertyName {
			delete(snapshot.SearchNames, id)
		}
	}

	bump := func(kind domain.Kind, ids []ID) {
		for _, id := range ids {
			if id > snapshot.Sequences[kind] {
				snapshot.Sequences[kind] = id
			}
		}
	}
	bump(domain.KindEntity, slices.Collect(maps.Keys(snapshot.Entities)))
	bump(domain.KindAuthority, slices.Collect(maps.Keys(snapshot.Authorities)))
	bump(domain.KindAuthorityRecord, slices.Collect(maps.Keys(snapshot.AuthorityRecords)))
	bump(domain.KindCalendar, slices.Collect(maps.Keys(snapshot.Calendars)))
	bump(domain.KindDatePeriod, slices.Collect(maps.Keys(snapshot.DatePeriods)))
	bump(domain.KindDateType, slices.Collect(maps.Keys(snapshot.DateTypes)))
	bump(domain.KindLanguage, slices.Collect(maps.Keys(snapshot.Languages)))
	bump(domain.KindScript, slices.Collect(maps.Keys(snapshot.Scripts)))
	bump(domain.KindSystemNamePartType, slices.Collect(maps.Keys(snapshot.SystemNamePartTypes)))
	bump(domain.KindEntityType, slices.Collect(maps.Keys(snapshot.EntityTypes)))
	bump(domain.KindEntityRelationshipType, slices.Collect(maps.Keys(snapshot.RelationshipTypes)))
	bump(domain.KindNameType, slices.Collect(maps.Keys(snapshot.NameTypes)))
	bump(domain.KindNamePartType, slices.Collect(maps.Keys(snapshot.NamePartTypes)))
	bump(domain.KindNameRelationshipType, slices.Collect(maps.Keys(snapshot.NameRelationshipTypes)))
	bump(domain.KindAssertion, slices.Collect(maps.Keys(snapshot.Assertions)))
	bump(domain.KindDate, slices.Collect(maps.Keys(snapshot.Dates)))
	bump(domain.KindUser, slices.Collect(maps.Keys(snapshot.Users)))
	return snapshot
}

func sortedKeys[V any](m map[ID]V) []ID {
	return slices.Sorted(maps.Keys(m))
}

func appendID(ids []ID, id ID) []ID {
	i, found := slices.BinarySearch(ids, id)
	if found {
		return ids
	}
	return slices.Insert(ids, i, id)
}

func removeID(ids []ID, id ID) []ID {
	i, found := slices.BinarySearch(ids, id)
	if !found {
		return ids
	}
	return slices.Delete(ids, i, i+1)
}

func dropKey(m map[ID][]ID, key, id ID) {
	rest := removeID(m[key], id)
	if len(rest) == 0 {
		delete(m, key)
		return
	}
	m[key] = rest
}

// index registers an assertion in the derived lookups.
func (s *memoryState) index(a domain.PropertyAssertion) {
	s.byEntity[a.EntityID] = appendID(s.byEntity[a.EntityID], a.ID)
	switch p := a.Property.(type) {
	case domain.EntityRelationship:
		s.relsByTarget[p.RelatedEntityID] = appendID(s.relsByTarget[p.RelatedEntityID], a.ID)
	case domain.NameRelationship:
		s.nameRelsByTarget[p.RelatedNameAssertionID] = appendID(s.nameRelsByTarget[p.RelatedNameAssertionID], a.ID)
	}
}

func (s *memoryState) unindex(a domain.PropertyAssertion) {
	dropKey(s.byEntity, a.EntityID, a.ID)
	switch p := a.Property.(type) {
	case domain.EntityRelationship:
		dropKey(s.relsByTarget, p.RelatedEntityID, a.ID)
	case domain.NameRelationship:
		dropKey(s.nameRelsByTarget, p.RelatedNameAssertionID, a.ID)
	}
}

// Store provides an in-memory transactional store for the entity graph.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNowFunc replaces the clock used to stamp last modified times.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn != nil {
		s.nowFn = fn
	}
}

// NowFunc returns the clock used to stamp last modified times.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// RunInTransaction runs fn against a private copy of the state. The copy
// replaces the live state only when fn succeeds and no rule blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}
	tx.transactionView = transactionView{state: &tx.state}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}
