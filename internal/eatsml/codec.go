package eatsml

import (
	"bytes"
	"context"
	"eats/internal/core"
	"eats/pkg/domain"
	"fmt"

	"github.com/beevik/etree"
)

// ExportEntitiesFrom exports entities from a store snapshot and serializes
// the result.
func ExportEntitiesFrom(ctx context.Context, store domain.PersistentStore, ids []domain.ID, opts ExportOptions, options ...Option) ([]byte, error) {
	var out []byte
	err := store.View(ctx, func(view domain.TransactionView) error {
		doc, err := NewExporter(view, options...).ExportEntities(ctx, ids, opts)
		if err != nil {
			return err
		}
		out, err = Serialize(doc)
		return err
	})
	return out, err
}

// ExportAuthorityFrom exports every entity asserted to exist by a record of
// the authority, or every entity when authorityID is zero.
func ExportAuthorityFrom(ctx context.Context, store domain.PersistentStore, authorityID domain.ID, opts ExportOptions, options ...Option) ([]byte, error) {
	var out []byte
	err := store.View(ctx, func(view domain.TransactionView) error {
		ids, err := core.EntityIDsIn(view, authorityID)
		if err != nil {
			return exportErrorf(ErrMissingObject, "%v", err)
		}
		doc, err := NewExporter(view, options...).ExportEntities(ctx, ids, opts)
		if err != nil {
			return err
		}
		out, err = Serialize(doc)
		return err
	})
	return out, err
}

// ExportInfrastructureFrom exports vocabulary from a store snapshot and
// serializes the result.
func ExportInfrastructureFrom(ctx context.Context, store domain.PersistentStore, opts InfraOptions, options ...Option) ([]byte, error) {
	var out []byte
	err := store.View(ctx, func(view domain.TransactionView) error {
		doc, err := NewExporter(view, options...).ExportInfrastructure(ctx, opts)
		if err != nil {
			return err
		}
		out, err = Serialize(doc)
		return err
	})
	return out, err
}

// CachedInfrastructure is ExportInfrastructureFrom served through c. The
// profile in opts is taken from user.
func CachedInfrastructure(ctx context.Context, c *InfrastructureCache, store domain.PersistentStore, user domain.User, opts InfraOptions, options ...Option) ([]byte, error) {
	profile := user.Profile
	opts.Profile = &profile
	fill := func(ctx context.Context) ([]byte, error) {
		return ExportInfrastructureFrom(ctx, store, opts, options...)
	}
	if c == nil {
		return fill(ctx)
	}
	return c.Get(ctx, user, opts, fill)
}

// ImportAndRegister imports the document in data as user and archives both
// the raw and processed documents with the service.
func ImportAndRegister(ctx context.Context, svc *core.Service, user domain.User, description string, data []byte, options ...Option) (domain.RegisteredImport, error) {
	options = append([]Option{FromService(svc)}, options...)
	raw, processed, err := NewImporter(svc.Store(), user, options...).Import(ctx, bytes.NewReader(data))
	if err != nil {
		return domain.RegisteredImport{}, err
	}
	return RegisterImport(ctx, svc, user, description, raw, processed)
}

// RegisterImport serializes both documents of a completed import and records
// the import with the service.
func RegisterImport(ctx context.Context, svc *core.Service, user domain.User, description string, raw, processed *etree.Document) (domain.RegisteredImport, error) {
	rawBytes, err := Serialize(raw)
	if err != nil {
		return domain.RegisteredImport{}, err
	}
	processedBytes, err := Serialize(processed)
	if err != nil {
		return domain.RegisteredImport{}, err
	}
	ri, err := svc.RegisterImport(ctx, user, description, rawBytes, processedBytes)
	if err != nil {
		return domain.RegisteredImport{}, fmt.Errorf("register import: %w", err)
	}
	return ri, nil
}
