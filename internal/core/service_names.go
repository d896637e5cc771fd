package core

import (
	"context"
	"eats/internal/names"
	"eats/pkg/domain"
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// NoNameDefined is the single name of an entity without names.
const NoNameDefined = "[No name defined]"

// ErrNotName is returned when a name operation targets another property kind.
var ErrNotName = errors.New("assertion is not a name")

// NameHandler cleans names, assembles them from parts and derives their
// search forms. *names.Registry implements it.
type NameHandler interface {
	Clean(name string) string
	Assemble(parts []names.Part, language, script string) string
	NameSearchForms(displayForm string, parts []names.Part, language, script string) []string
	Variants(displayForm string, parts []names.Part, language, script string) []string
}

// NamePreferences narrows the choice of a single name for display. Zero ids
// fall back to the defaults of the (default) authority.
type NamePreferences struct {
	AuthorityID ID
	LanguageID  ID
	ScriptID    ID
}

// PreferencesFromProfile takes the name preferences of a user profile.
func PreferencesFromProfile(p domain.UserProfile) NamePreferences {
	return NamePreferences{AuthorityID: p.AuthorityID, LanguageID: p.LanguageID, ScriptID: p.ScriptID}
}

// CleanName returns name with its display form and part texts cleaned.
func CleanName(handler NameHandler, name domain.Name) domain.Name {
	name.DisplayForm = handler.Clean(name.DisplayForm)
	name.Parts = slices.Clone(name.Parts)
	for i := range name.Parts {
		name.Parts[i].Text = handler.Clean(name.Parts[i].Text)
	}
	return name
}

// NameCodes returns the language and script codes of name.
func NameCodes(view TransactionView, name domain.Name) (language, script string) {
	if l, ok := view.FindLanguage(name.LanguageID); ok {
		language = l.Code
	}
	if s, ok := view.FindScript(name.ScriptID); ok {
		script = s.Code
	}
	return language, script
}

// NameParts labels each part of name with its system name part type.
func NameParts(view TransactionView, name domain.Name) []names.Part {
	parts := make([]names.Part, 0, len(name.Parts))
	for _, p := range name.Parts {
		part := names.Part{Text: p.Text}
		if npt, ok := view.FindNamePartType(p.NamePartTypeID); ok {
			if snpt, ok := view.FindSystemNamePartType(npt.SystemNamePartTypeID); ok {
				part.Type = snpt.Name
			}
		}
		parts = append(parts, part)
	}
	return parts
}

// DisplayName is the display form of name, or its assembled form when it
// has none.
func DisplayName(view TransactionView, handler NameHandler, name domain.Name) string {
	if name.DisplayForm != "" {
		return name.DisplayForm
	}
	language, script := NameCodes(view, name)
	return handler.Assemble(NameParts(view, name), language, script)
}

// UpdateSearchNames replaces the search names of a name assertion with the
// forms derived from its current payload.
func UpdateSearchNames(tx Transaction, handler NameHandler, assertion domain.PropertyAssertion) error {
	name, ok := assertion.Name()
	if !ok {
		return fmt.Errorf("assertion %d: %w", assertion.ID, ErrNotName)
	}
	language, script := NameCodes(tx, name)
	forms := handler.NameSearchForms(name.DisplayForm, NameParts(tx, name), language, script)
	return tx.SetSearchNames(assertion.ID, forms)
}

// SaveName cleans the name carried by assertion and stores it, creating the
// assertion when it has no id and replacing the payload otherwise. Search
// names are regenerated in the same transaction.
func (s *Service) SaveName(ctx context.Context, assertion domain.PropertyAssertion) (domain.PropertyAssertion, Result, error) {
	name, ok := assertion.Name()
	if !ok {
		return domain.PropertyAssertion{}, Result{}, ErrNotName
	}
	name = CleanName(s.names, name)
	var saved domain.PropertyAssertion
	res, err := s.run(ctx, opSaveName, func(tx Transaction) (string, error) {
		var err error
		if assertion.ID == 0 {
			candidate, cerr := domain.NewAssertion(assertion.EntityID, assertion.AuthorityRecordID, assertion.IsPreferred, name)
			if cerr != nil {
				return "", cerr
			}
			saved, err = tx.CreateAssertion(candidate)
		} else {
			saved, err = tx.UpdateAssertion(assertion.ID, func(a *domain.PropertyAssertion) error {
				if a.Kind() != domain.PropertyName {
					return fmt.Errorf("assertion %d: %w", a.ID, ErrNotName)
				}
				a.Property = name
				a.IsPreferred = assertion.IsPreferred
				return nil
			})
		}
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(int64(saved.ID), 10), UpdateSearchNames(tx, s.names, saved)
	})
	if err != nil {
		return domain.PropertyAssertion{}, res, err
	}
	return saved, res, nil
}

// SearchNames returns the stored search forms of a name assertion.
func (s *Service) SearchNames(ctx context.Context, nameAssertionID ID) ([]string, error) {
	var forms []string
	err := s.view(ctx, "search_names", func(view TransactionView) error {
		forms = view.SearchNames(nameAssertionID)
		return nil
	})
	return forms, err
}

// SingleNameObject picks one name of the entity: names of the preferred
// authority, narrowed to the preferred language and then script whenever
// that leaves at least one, preferring an is_preferred assertion.
func (s *Service) SingleNameObject(ctx context.Context, entityID ID, prefs NamePreferences) (domain.PropertyAssertion, bool, error) {
	var (
		found domain.PropertyAssertion
		ok    bool
	)
	err := s.view(ctx, "single_name", func(view TransactionView) error {
		found, ok = SingleNameIn(view, entityID, prefs)
		return nil
	})
	return found, ok, err
}

// SingleName is the display string of SingleNameObject, or NoNameDefined.
func (s *Service) SingleName(ctx context.Context, entityID ID, prefs NamePreferences) (string, error) {
	var out string
	err := s.view(ctx, "single_name", func(view TransactionView) error {
		out = NoNameDefined
		if a, ok := SingleNameIn(view, entityID, prefs); ok {
			name, _ := a.Name()
			out = DisplayName(view, s.names, name)
		}
		return nil
	})
	return out, err
}

// SingleNameIn implements SingleNameObject over a view.
func SingleNameIn(view TransactionView, entityID ID, prefs NamePreferences) (domain.PropertyAssertion, bool) {
	all := view.AssertionsForEntity(entityID, domain.PropertyName)
	if len(all) == 0 {
		return domain.PropertyAssertion{}, false
	}
	authorityID := prefs.AuthorityID
	if authorityID == 0 {
		if a, ok := domain.DefaultAuthority(view); ok {
			authorityID = a.ID
		}
	}
	languageID, scriptID := prefs.LanguageID, prefs.ScriptID
	if authority, ok := view.FindAuthority(authorityID); ok {
		if languageID == 0 {
			languageID = authority.DefaultLanguageID
		}
		if scriptID == 0 {
			scriptID = authority.DefaultScriptID
		}
	}
	candidates := narrow(all, func(a domain.PropertyAssertion) bool {
		owner, ok := domain.AuthorityOfRecord(view, a.AuthorityRecordID)
		return ok && owner.ID == authorityID
	})
	candidates = narrow(candidates, func(a domain.PropertyAssertion) bool {
		n, _ := a.Name()
		return n.LanguageID == languageID
	})
	candidates = narrow(candidates, func(a domain.PropertyAssertion) bool {
		n, _ := a.Name()
		return n.ScriptID == scriptID
	})
	for _, a := range candidates {
		if a.IsPreferred {
			return a, true
		}
	}
	return candidates[0], true
}

// narrow keeps the assertions matching keep, or all of them when none match.
func narrow(in []domain.PropertyAssertion, keep func(domain.PropertyAssertion) bool) []domain.PropertyAssertion {
	var out []domain.PropertyAssertion
	for _, a := range in {
		if keep(a) {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		return in
	}
	return out
}
