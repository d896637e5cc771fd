package eatsml

import (
	"context"
	"eats/internal/core"
	"eats/pkg/domain"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/beevik/etree"
	"go.opentelemetry.io/otel/attribute"
)

// Importer loads EATSML documents into a store on behalf of a user.
type Importer struct {
	store domain.PersistentStore
	user  domain.User
	settings
}

// NewImporter returns an importer that writes to store as user.
func NewImporter(store domain.PersistentStore, user domain.User, opts ...Option) *Importer {
	return &Importer{store: store, user: user, settings: newSettings(opts)}
}

// importRun is the state of a single import call.
type importRun struct {
	*Importer
	ctx     context.Context
	tx      domain.Transaction
	ids     *IDMap
	created map[string]int
}

// Import validates the document read from r and imports it in a single
// transaction. It returns the document as read and a copy carrying the
// eats_id of every object the import created. Nothing is committed on error.
func (im *Importer) Import(ctx context.Context, r io.Reader) (raw, processed *etree.Document, err error) {
	ctx, span := startSpan(ctx, im.tracer, "import", attribute.String("eats.user", im.user.Username))
	created := make(map[string]int)
	defer func() {
		im.metrics.observeImport(err, created)
		endSpan(span, err)
	}()

	im.logger.Info("starting import", "user", im.user.Username)
	raw = etree.NewDocument()
	if _, err := raw.ReadFrom(r); err != nil {
		return nil, nil, importErrorf(ErrSchema, "could not parse the import document: %v", err)
	}
	if violations := im.validator.Validate(raw); len(violations) > 0 {
		msg := fmt.Sprintf("validation of the import document failed: %s", violations[0])
		im.logger.Error(msg, "violations", len(violations))
		return nil, nil, importErrorf(ErrSchema, "%s", msg)
	}
	processed = raw.Copy()
	root := processed.Root()

	run := &importRun{Importer: im, ctx: ctx, ids: NewIDMap(), created: created}
	res, err := im.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		run.tx = tx
		if err := run.pass("infrastructure", root, run.importInfrastructure); err != nil {
			return err
		}
		if err := run.pass("entities", root, run.importEntities); err != nil {
			return err
		}
		return run.pass("relationships", root, run.importRelationships)
	})
	if err != nil {
		err = classifyImportError(err)
		im.logger.Error("import failed", "error", err)
		return nil, nil, err
	}
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityWarn {
			im.logger.Warn(v.Message, "rule", v.Rule)
		}
	}
	if im.cache != nil {
		im.cache.Flush()
	}
	im.logger.Info("finished import", "created", maps.Clone(created))
	return raw, processed, nil
}

func (r *importRun) pass(name string, root *etree.Element, fn func(*etree.Element) error) (err error) {
	ctx, span := startSpan(r.ctx, r.tracer, "import."+name)
	outer := r.ctx
	r.ctx = ctx
	defer func() {
		r.ctx = outer
		endSpan(span, err)
	}()
	r.logger.Info("starting import pass", "pass", name)
	return fn(root)
}

// classifyImportError maps store and rule failures onto the import error
// taxonomy.
func classifyImportError(err error) error {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie
	}
	var rv domain.RuleViolationError
	if errors.As(err, &rv) {
		v, _ := rv.Result.FirstBlocking()
		switch v.Rule {
		case core.RuleExistencePrecondition:
			return importErrorf(ErrMissingPrecondition, "%s", v.Message)
		case core.RuleTypeAuthority:
			return importErrorf(ErrAuthorityMismatch, "%s", v.Message)
		}
		return importErrorf(err, "import blocked by rule %s: %s", v.Rule, v.Message)
	}
	return importErrorf(causeOf(err), "import failed: %v", err)
}

func causeOf(err error) error {
	var nf domain.ErrNotFound
	if errors.As(err, &nf) {
		return ErrMissingObject
	}
	var me domain.ErrMissingExistence
	if errors.As(err, &me) {
		return ErrMissingPrecondition
	}
	return err
}

func (r *importRun) missing(kind domain.Kind, id domain.ID, el *etree.Element) error {
	return importErrorf(ErrMissingObject, "%s object with eats_id %d, xml:id %s does not exist", kind, id, elementID(el))
}

// ref resolves an optional reference attribute. An absent attribute yields
// a zero id.
func (r *importRun) ref(el *etree.Element, attr string, kind domain.Kind) (domain.ID, error) {
	local := el.SelectAttrValue(attr, "")
	if local == "" {
		return 0, nil
	}
	id, ok := r.ids.Resolve(kind, local)
	if !ok {
		return 0, importErrorf(ErrMissingObject, "%s %q referenced by %s attribute %s has not been imported", kind, local, el.Tag, attr)
	}
	return id, nil
}

func (r *importRun) requireRef(el *etree.Element, attr string, kind domain.Kind) (domain.ID, error) {
	if el.SelectAttrValue(attr, "") == "" {
		return 0, importErrorf(ErrSchema, "%s element %s lacks required attribute %s", el.Tag, elementID(el), attr)
	}
	return r.ref(el, attr, kind)
}

func (r *importRun) checkAddInfrastructurePermission() error {
	if r.user.IsSuperuser {
		return nil
	}
	return importErrorf(ErrPermission, "user %q may not add infrastructural data, as the import document demands", r.user.Username)
}

func (r *importRun) checkAddPermission(authorityID domain.ID) error {
	if r.user.IsSuperuser || r.user.Profile.CanEdit(authorityID) {
		return nil
	}
	name := fmt.Sprintf("authority %d", authorityID)
	if a, ok := r.tx.FindAuthority(authorityID); ok {
		name = a.Name
	}
	return importErrorf(ErrPermission, "user %q may not add data associated with %s, as the import document demands", r.user.Username, name)
}

func (r *importRun) saveError(err error, what string, el *etree.Element) error {
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie
	}
	return importErrorf(causeOf(err), "could not save %s %s: %v", what, elementID(el), err)
}
