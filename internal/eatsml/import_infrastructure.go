package eatsml

import (
	"eats/pkg/domain"

	"github.com/beevik/etree"
)

// importObjects applies the exists-or-create pattern to every item of a
// vocabulary block and binds the items' local ids.
func (r *importRun) importObjects(root *etree.Element, block, item string, kind domain.Kind,
	exists func(domain.ID) bool, create func(*etree.Element) (domain.ID, error)) error {
	for _, el := range children(root, block, item) {
		id, ok, err := elementEATSID(el)
		if err != nil {
			return importErrorf(ErrSchema, "%v", err)
		}
		if ok {
			if !exists(id) {
				return r.missing(kind, id, el)
			}
		} else {
			if id, err = create(el); err != nil {
				return r.saveError(err, item, el)
			}
			setEATSID(el, id)
			r.created[string(kind)]++
			r.logger.Debug("created "+item, "id", id, "xml_id", elementID(el))
		}
		r.ids.Bind(kind, elementID(el), id)
	}
	return nil
}

func found[V any](find func(domain.ID) (V, bool)) func(domain.ID) bool {
	return func(id domain.ID) bool {
		_, ok := find(id)
		return ok
	}
}

// importInfrastructure imports vocabulary in dependency order.
func (r *importRun) importInfrastructure(root *etree.Element) error {
	tx := r.tx
	steps := []func() error{
		func() error {
			return r.importObjects(root, blockSystemNamePartTypes, tagSystemNamePartType, domain.KindSystemNamePartType,
				found(tx.FindSystemNamePartType), r.createSystemNamePartType)
		},
		func() error {
			return r.importObjects(root, blockCalendars, tagCalendar, domain.KindCalendar,
				found(tx.FindCalendar), func(el *etree.Element) (domain.ID, error) {
					return r.createTerm(el, func(t domain.Term) (domain.ID, error) {
						c, err := tx.CreateCalendar(domain.Calendar{Term: t})
						return c.ID, err
					})
				})
		},
		func() error {
			return r.importObjects(root, blockDatePeriods, tagDatePeriod, domain.KindDatePeriod,
				found(tx.FindDatePeriod), func(el *etree.Element) (domain.ID, error) {
					return r.createTerm(el, func(t domain.Term) (domain.ID, error) {
						p, err := tx.CreateDatePeriod(domain.DatePeriod{Term: t})
						return p.ID, err
					})
				})
		},
		func() error {
			return r.importObjects(root, blockDateTypes, tagDateType, domain.KindDateType,
				found(tx.FindDateType), func(el *etree.Element) (domain.ID, error) {
					return r.createTerm(el, func(t domain.Term) (domain.ID, error) {
						d, err := tx.CreateDateType(domain.DateType{Term: t})
						return d.ID, err
					})
				})
		},
		func() error {
			return r.importObjects(root, blockLanguages, tagLanguage, domain.KindLanguage,
				found(tx.FindLanguage), r.createLanguage)
		},
		func() error {
			return r.importObjects(root, blockScripts, tagScript, domain.KindScript,
				found(tx.FindScript), r.createScript)
		},
		func() error {
			return r.importObjects(root, blockAuthorities, tagAuthority, domain.KindAuthority,
				found(tx.FindAuthority), r.createAuthority)
		},
		func() error {
			return r.importObjects(root, blockEntityTypes, tagEntityType, domain.KindEntityType,
				found(tx.FindEntityType), func(el *etree.Element) (domain.ID, error) {
					return r.createScopedTerm(el, func(t domain.ScopedTerm) (domain.ID, error) {
						e, err := tx.CreateEntityType(domain.EntityType{ScopedTerm: t})
						return e.ID, err
					})
				})
		},
		func() error {
			return r.importObjects(root, blockEntityRelationshipTypes, tagEntityRelationshipType, domain.KindEntityRelationshipType,
				found(tx.FindEntityRelationshipType), func(el *etree.Element) (domain.ID, error) {
					return r.createScopedTerm(el, func(t domain.ScopedTerm) (domain.ID, error) {
						e, err := tx.CreateEntityRelationshipType(domain.EntityRelationshipType{ScopedTerm: t})
						return e.ID, err
					})
				})
		},
		func() error {
			return r.importObjects(root, blockNameTypes, tagNameType, domain.KindNameType,
				found(tx.FindNameType), func(el *etree.Element) (domain.ID, error) {
					return r.createScopedTerm(el, func(t domain.ScopedTerm) (domain.ID, error) {
						n, err := tx.CreateNameType(domain.NameType{ScopedTerm: t, IsDefault: parseBool(el.SelectAttrValue("is_default", ""))})
						return n.ID, err
					})
				})
		},
		func() error {
			return r.importObjects(root, blockNamePartTypes, tagNamePartType, domain.KindNamePartType,
				found(tx.FindNamePartType), func(el *etree.Element) (domain.ID, error) {
					snpt, err := r.requireRef(el, "system_name_part_type", domain.KindSystemNamePartType)
					if err != nil {
						return 0, err
					}
					return r.createScopedTerm(el, func(t domain.ScopedTerm) (domain.ID, error) {
						n, err := tx.CreateNamePartType(domain.NamePartType{ScopedTerm: t, SystemNamePartTypeID: snpt})
						return n.ID, err
					})
				})
		},
		func() error {
			return r.importObjects(root, blockNameRelationshipTypes, tagNameRelationshipType, domain.KindNameRelationshipType,
				found(tx.FindNameRelationshipType), func(el *etree.Element) (domain.ID, error) {
					return r.createScopedTerm(el, func(t domain.ScopedTerm) (domain.ID, error) {
						n, err := tx.CreateNameRelationshipType(domain.NameRelationshipType{ScopedTerm: t})
						return n.ID, err
					})
				})
		},
		func() error {
			return r.importObjects(root, blockAuthorityRecords, tagAuthorityRecord, domain.KindAuthorityRecord,
				found(tx.FindAuthorityRecord), r.createAuthorityRecord)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (r *importRun) createSystemNamePartType(el *etree.Element) (domain.ID, error) {
	if err := r.checkAddInfrastructurePermission(); err != nil {
		return 0, err
	}
	t, err := r.tx.CreateSystemNamePartType(domain.SystemNamePartType{
		Name:        childText(el, "name"),
		Description: childText(el, "description"),
	})
	return t.ID, err
}

func (r *importRun) createTerm(el *etree.Element, save func(domain.Term) (domain.ID, error)) (domain.ID, error) {
	if err := r.checkAddInfrastructurePermission(); err != nil {
		return 0, err
	}
	return save(domain.Term{Name: ownText(el)})
}

func (r *importRun) createScopedTerm(el *etree.Element, save func(domain.ScopedTerm) (domain.ID, error)) (domain.ID, error) {
	if err := r.checkAddInfrastructurePermission(); err != nil {
		return 0, err
	}
	authorityID, err := r.requireRef(el, "authority", domain.KindAuthority)
	if err != nil {
		return 0, err
	}
	return save(domain.ScopedTerm{Term: domain.Term{Name: ownText(el)}, AuthorityID: authorityID})
}

func (r *importRun) createLanguage(el *etree.Element) (domain.ID, error) {
	if err := r.checkAddInfrastructurePermission(); err != nil {
		return 0, err
	}
	lang := domain.Language{Name: childText(el, "name"), Code: childText(el, "code")}
	for _, snpt := range children(el, blockLanguageSystemPartTypes, tagSystemNamePartType) {
		id, err := r.requireRef(snpt, "ref", domain.KindSystemNamePartType)
		if err != nil {
			return 0, err
		}
		lang.SystemNamePartTypeIDs = append(lang.SystemNamePartTypeIDs, id)
	}
	l, err := r.tx.CreateLanguage(lang)
	return l.ID, err
}

func (r *importRun) createScript(el *etree.Element) (domain.ID, error) {
	if err := r.checkAddInfrastructurePermission(); err != nil {
		return 0, err
	}
	s, err := r.tx.CreateScript(domain.Script{Name: childText(el, "name"), Code: childText(el, "code")})
	return s.ID, err
}

func (r *importRun) createAuthority(el *etree.Element) (domain.ID, error) {
	if err := r.checkAddInfrastructurePermission(); err != nil {
		return 0, err
	}
	a := domain.Authority{
		Name:         childText(el, "name"),
		Abbreviation: childText(el, "abbreviated_name"),
		BaseID:       childText(el, "base_id"),
		BaseURL:      childText(el, "base_url"),
		IsDefault:    parseBool(el.SelectAttrValue("is_default", "")),
	}
	defaults := []struct {
		attr string
		kind domain.Kind
		dst  *domain.ID
	}{
		{"default_calendar", domain.KindCalendar, &a.DefaultCalendarID},
		{"default_date_period", domain.KindDatePeriod, &a.DefaultDatePeriodID},
		{"default_date_type", domain.KindDateType, &a.DefaultDateTypeID},
		{"default_language", domain.KindLanguage, &a.DefaultLanguageID},
		{"default_script", domain.KindScript, &a.DefaultScriptID},
	}
	for _, d := range defaults {
		id, err := r.ref(el, d.attr, d.kind)
		if err != nil {
			return 0, err
		}
		*d.dst = id
	}
	created, err := r.tx.CreateAuthority(a)
	return created.ID, err
}

// createAuthorityRecord needs edit rights on the record's authority rather
// than infrastructure rights. With auto_create_data the identifier and URL
// are generated and written into the processed document.
func (r *importRun) createAuthorityRecord(el *etree.Element) (domain.ID, error) {
	authorityID, err := r.requireRef(el, "authority", domain.KindAuthority)
	if err != nil {
		return 0, err
	}
	if err := r.checkAddPermission(authorityID); err != nil {
		return 0, err
	}
	authority, ok := r.tx.FindAuthority(authorityID)
	if !ok {
		return 0, domain.ErrNotFound{Kind: domain.KindAuthority, ID: authorityID}
	}
	var record domain.AuthorityRecord
	if parseBool(el.SelectAttrValue("auto_create_data", "")) {
		details, err := r.records.NewRecordDetails(r.tx, authority)
		if err != nil {
			return 0, err
		}
		record = details.Record(authorityID)
		for _, tag := range []string{tagAuthoritySystemID, tagAuthoritySystemURL} {
			for _, old := range el.SelectElements(tag) {
				el.RemoveChild(old)
			}
		}
		addText(el, tagAuthoritySystemID, record.SystemID).CreateAttr("is_complete", formatBool(record.IsCompleteID))
		addText(el, tagAuthoritySystemURL, record.SystemURL).CreateAttr("is_complete", formatBool(record.IsCompleteURL))
	} else {
		record = domain.AuthorityRecord{AuthorityID: authorityID}
		if sid := el.SelectElement(tagAuthoritySystemID); sid != nil {
			record.SystemID = ownText(sid)
			record.IsCompleteID = parseBool(sid.SelectAttrValue("is_complete", ""))
		}
		if surl := el.SelectElement(tagAuthoritySystemURL); surl != nil {
			record.SystemURL = ownText(surl)
			record.IsCompleteURL = parseBool(surl.SelectAttrValue("is_complete", ""))
		}
	}
	created, err := r.tx.CreateAuthorityRecord(record)
	return created.ID, err
}
