package testutil

import (
	"eats/pkg/domain"
	"fmt"
)

// Fixture holds the vocabulary seeded by SeedVocabulary. Authority is the
// default authority; Other is a second authority the editor cannot edit.
type Fixture struct {
	Authority domain.Authority
	Other     domain.Authority

	Given  domain.SystemNamePartType
	Family domain.SystemNamePartType

	English domain.Language
	Latin   domain.Script

	Gregorian domain.Calendar
	Julian    domain.Calendar
	Lifespan  domain.DatePeriod
	Floruit   domain.DatePeriod
	Exact     domain.DateType
	Circa     domain.DateType

	Person     domain.EntityType
	ParentOf   domain.EntityRelationshipType
	Regular    domain.NameType
	GivenPart  domain.NamePartType
	FamilyPart domain.NamePartType
	VariantOf  domain.NameRelationshipType

	OtherPerson  domain.EntityType
	OtherRegular domain.NameType

	Admin  domain.User
	Editor domain.User
}

// Person bundles the records AddPerson creates.
type Person struct {
	Entity    domain.Entity
	Record    domain.AuthorityRecord
	Existence domain.PropertyAssertion
	Type      domain.PropertyAssertion
	Name      domain.PropertyAssertion
}

// SeedVocabulary creates a small but complete vocabulary: two authorities,
// English in Latin script with given and family name parts, the usual
// calendars, date periods and date types, and two users.
func SeedVocabulary(tx domain.Transaction) (Fixture, error) {
	var (
		f   Fixture
		err error
	)
	step := func(what string, fn func() error) {
		if err != nil {
			return
		}
		if e := fn(); e != nil {
			err = fmt.Errorf("seed %s: %w", what, e)
		}
	}
	step("system name part types", func() (e error) {
		if f.Given, e = tx.CreateSystemNamePartType(domain.SystemNamePartType{Name: "given"}); e != nil {
			return e
		}
		f.Family, e = tx.CreateSystemNamePartType(domain.SystemNamePartType{Name: "family"})
		return e
	})
	step("language", func() (e error) {
		f.English, e = tx.CreateLanguage(domain.Language{
			Code:                  "en",
			Name:                  "English",
			SystemNamePartTypeIDs: []domain.ID{f.Given.ID, f.Family.ID},
		})
		return e
	})
	step("script", func() (e error) {
		f.Latin, e = tx.CreateScript(domain.Script{Code: "Latn", Name: "Latin"})
		return e
	})
	step("calendars", func() (e error) {
		if f.Gregorian, e = tx.CreateCalendar(domain.Calendar{Term: domain.Term{Name: "Gregorian"}}); e != nil {
			return e
		}
		f.Julian, e = tx.CreateCalendar(domain.Calendar{Term: domain.Term{Name: "Julian"}})
		return e
	})
	step("date periods", func() (e error) {
		if f.Lifespan, e = tx.CreateDatePeriod(domain.DatePeriod{Term: domain.Term{Name: "lifespan"}}); e != nil {
			return e
		}
		f.Floruit, e = tx.CreateDatePeriod(domain.DatePeriod{Term: domain.Term{Name: "floruit"}})
		return e
	})
	step("date types", func() (e error) {
		if f.Exact, e = tx.CreateDateType(domain.DateType{Term: domain.Term{Name: "exact"}}); e != nil {
			return e
		}
		f.Circa, e = tx.CreateDateType(domain.DateType{Term: domain.Term{Name: "circa"}})
		return e
	})
	step("authorities", func() (e error) {
		f.Authority, e = tx.CreateAuthority(domain.Authority{
			Name:                "Test Authority",
			Abbreviation:        "TA",
			BaseID:              "http://example.org/entity/",
			BaseURL:             "http://example.org/",
			IsDefault:           true,
			DefaultCalendarID:   f.Gregorian.ID,
			DefaultDatePeriodID: f.Lifespan.ID,
			DefaultDateTypeID:   f.Exact.ID,
			DefaultLanguageID:   f.English.ID,
			DefaultScriptID:     f.Latin.ID,
		})
		if e != nil {
			return e
		}
		f.Other, e = tx.CreateAuthority(domain.Authority{Name: "Other Authority", BaseURL: "http://other.example.org/"})
		return e
	})
	scoped := func(authority domain.ID, name string) domain.ScopedTerm {
		return domain.ScopedTerm{Term: domain.Term{Name: name}, AuthorityID: authority}
	}
	step("typed vocabulary", func() (e error) {
		if f.Person, e = tx.CreateEntityType(domain.EntityType{ScopedTerm: scoped(f.Authority.ID, "person")}); e != nil {
			return e
		}
		if f.ParentOf, e = tx.CreateEntityRelationshipType(domain.EntityRelationshipType{ScopedTerm: scoped(f.Authority.ID, "is parent of")}); e != nil {
			return e
		}
		if f.Regular, e = tx.CreateNameType(domain.NameType{ScopedTerm: scoped(f.Authority.ID, "regular"), IsDefault: true}); e != nil {
			return e
		}
		if f.GivenPart, e = tx.CreateNamePartType(domain.NamePartType{ScopedTerm: scoped(f.Authority.ID, "given"), SystemNamePartTypeID: f.Given.ID}); e != nil {
			return e
		}
		if f.FamilyPart, e = tx.CreateNamePartType(domain.NamePartType{ScopedTerm: scoped(f.Authority.ID, "family"), SystemNamePartTypeID: f.Family.ID}); e != nil {
			return e
		}
		if f.VariantOf, e = tx.CreateNameRelationshipType(domain.NameRelationshipType{ScopedTerm: scoped(f.Authority.ID, "is variant of")}); e != nil {
			return e
		}
		if f.OtherPerson, e = tx.CreateEntityType(domain.EntityType{ScopedTerm: scoped(f.Other.ID, "person")}); e != nil {
			return e
		}
		f.OtherRegular, e = tx.CreateNameType(domain.NameType{ScopedTerm: scoped(f.Other.ID, "regular"), IsDefault: true})
		return e
	})
	step("users", func() (e error) {
		if f.Admin, e = tx.CreateUser(domain.User{Username: "admin", IsSuperuser: true}); e != nil {
			return e
		}
		f.Editor, e = tx.CreateUser(domain.User{
			Username: "editor",
			Profile: domain.UserProfile{
				EditableAuthorityIDs: []domain.ID{f.Authority.ID},
				AuthorityID:          f.Authority.ID,
				LanguageID:           f.English.ID,
				ScriptID:             f.Latin.ID,
				CalendarID:           f.Gregorian.ID,
				DateTypeID:           f.Exact.ID,
				DatePeriodID:         f.Lifespan.ID,
				NameTypeID:           f.Regular.ID,
			},
		})
		return e
	})
	return f, err
}

// FullName builds an English Latin-script name of the regular type.
func (f Fixture) FullName(given, family string) domain.Name {
	name := domain.Name{NameTypeID: f.Regular.ID, LanguageID: f.English.ID, ScriptID: f.Latin.ID}
	if given != "" {
		name.Parts = append(name.Parts, domain.NamePart{NamePartTypeID: f.GivenPart.ID, Text: given})
	}
	if family != "" {
		name.Parts = append(name.Parts, domain.NamePart{NamePartTypeID: f.FamilyPart.ID, Text: family})
	}
	return name
}

// AddPerson creates an entity with a new record in the default authority
// carrying an existence, a person entity type and a preferred name.
func AddPerson(tx domain.Transaction, f Fixture, systemID, given, family string) (Person, error) {
	var p Person
	var err error
	if p.Entity, err = tx.CreateEntity(domain.Entity{}); err != nil {
		return p, err
	}
	p.Record, err = tx.CreateAuthorityRecord(domain.AuthorityRecord{
		AuthorityID:  f.Authority.ID,
		SystemID:     systemID,
		IsCompleteID: true,
		SystemURL:    systemID + ".html",
	})
	if err != nil {
		return p, err
	}
	create := func(prop domain.Property) (domain.PropertyAssertion, error) {
		a, err := domain.NewAssertion(p.Entity.ID, p.Record.ID, true, prop)
		if err != nil {
			return a, err
		}
		return tx.CreateAssertion(a)
	}
	if p.Existence, err = create(domain.Existence{}); err != nil {
		return p, err
	}
	if p.Type, err = create(domain.EntityTypeProperty{EntityTypeID: f.Person.ID}); err != nil {
		return p, err
	}
	p.Name, err = create(f.FullName(given, family))
	return p, err
}
