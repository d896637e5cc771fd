package domain

import "context"

// TransactionView provides read-only access to snapshot data for rules,
// exporters and queries. List methods return records in ascending id order.
type TransactionView interface {
	FindEntity(id ID) (Entity, bool)
	ListEntities() []Entity

	FindAuthority(id ID) (Authority, bool)
	ListAuthorities() []Authority
	FindAuthorityRecord(id ID) (AuthorityRecord, bool)
	ListAuthorityRecords() []AuthorityRecord
	FindCalendar(id ID) (Calendar, bool)
	ListCalendars() []Calendar
	FindDatePeriod(id ID) (DatePeriod, bool)
	ListDatePeriods() []DatePeriod
	FindDateType(id ID) (DateType, bool)
	ListDateTypes() []DateType
	FindLanguage(id ID) (Language, bool)
	ListLanguages() []Language
	FindScript(id ID) (Script, bool)
	ListScripts() []Script
	FindSystemNamePartType(id ID) (SystemNamePartType, bool)
	ListSystemNamePartTypes() []SystemNamePartType
	FindEntityType(id ID) (EntityType, bool)
	ListEntityTypes() []EntityType
	FindEntityRelationshipType(id ID) (EntityRelationshipType, bool)
	ListEntityRelationshipTypes() []EntityRelationshipType
	FindNameType(id ID) (NameType, bool)
	ListNameTypes() []NameType
	FindNamePartType(id ID) (NamePartType, bool)
	ListNamePartTypes() []NamePartType
	FindNameRelationshipType(id ID) (NameRelationshipType, bool)
	ListNameRelationshipTypes() []NameRelationshipType

	FindAssertion(id ID) (PropertyAssertion, bool)
	// AssertionsForEntity returns the entity's assertions of the given kind,
	// or all of them when kind is empty.
	AssertionsForEntity(entityID ID, kind PropertyKind) []PropertyAssertion
	// RelationshipsTargeting returns entity relationship assertions whose
	// related entity is entityID.
	RelationshipsTargeting(entityID ID) []PropertyAssertion
	// NameRelationshipsTargeting returns name relationship assertions whose
	// related name is nameAssertionID.
	NameRelationshipsTargeting(nameAssertionID ID) []PropertyAssertion
	DatesForAssertion(assertionID ID) []Date
	SearchNames(nameAssertionID ID) []string

	FindUser(id ID) (User, bool)
	FindUserByName(username string) (User, bool)
	ListUsers() []User
	FindRegisteredImport(id string) (RegisteredImport, bool)
	ListRegisteredImports() []RegisteredImport
}

// Transaction exposes the mutations a persistence implementation must
// support within an atomic scope. Create methods allocate an id when the
// supplied record has none.
type Transaction interface {
	TransactionView
	Snapshot() TransactionView

	CreateEntity(Entity) (Entity, error)
	// DeleteEntity removes an entity that no longer has assertions.
	DeleteEntity(id ID) error

	CreateAuthority(Authority) (Authority, error)
	CreateAuthorityRecord(AuthorityRecord) (AuthorityRecord, error)
	CreateCalendar(Calendar) (Calendar, error)
	CreateDatePeriod(DatePeriod) (DatePeriod, error)
	CreateDateType(DateType) (DateType, error)
	CreateLanguage(Language) (Language, error)
	CreateScript(Script) (Script, error)
	CreateSystemNamePartType(SystemNamePartType) (SystemNamePartType, error)
	CreateEntityType(EntityType) (EntityType, error)
	CreateEntityRelationshipType(EntityRelationshipType) (EntityRelationshipType, error)
	CreateNameType(NameType) (NameType, error)
	CreateNamePartType(NamePartType) (NamePartType, error)
	CreateNameRelationshipType(NameRelationshipType) (NameRelationshipType, error)

	CreateAssertion(PropertyAssertion) (PropertyAssertion, error)
	UpdateAssertion(id ID, mutator func(*PropertyAssertion) error) (PropertyAssertion, error)
	// DeleteAssertion removes an assertion along with its dates and search
	// names.
	DeleteAssertion(id ID) error
	CreateDate(Date) (Date, error)
	SetSearchNames(nameAssertionID ID, forms []string) error

	CreateUser(User) (User, error)
	UpdateUser(id ID, mutator func(*User) error) (User, error)
	CreateRegisteredImport(RegisteredImport) (RegisteredImport, error)
}

// PersistentStore is a minimal abstraction over durable backends.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
