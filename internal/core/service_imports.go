package core

import (
	"context"
	"eats/internal/blob"
	"eats/pkg/domain"
	"errors"
	"fmt"
	"path"
)

// ErrImportNotFound is returned for unknown registered import ids.
var ErrImportNotFound = errors.New("registered import not found")

// ImportDocument selects one of the two archived documents of an import.
type ImportDocument string

// Archived documents.
const (
	ImportRaw       ImportDocument = "raw"
	ImportProcessed ImportDocument = "processed"
)

const (
	importPrefix   = "imports"
	xmlContentType = "application/xml"
)

// ImportKey is the blob key an import document is archived under.
func ImportKey(id string, doc ImportDocument) string {
	return path.Join(importPrefix, id, string(doc)+".xml")
}

// RegisterImport archives the raw and processed documents of an accepted
// import and records it against the importing user.
func (s *Service) RegisterImport(ctx context.Context, importer domain.User, description string, raw, processed []byte) (domain.RegisteredImport, error) {
	ri := domain.RegisteredImport{
		ID:          s.newID(),
		ImporterID:  importer.ID,
		Description: description,
		ImportDate:  s.now(),
	}
	ri.RawKey = ImportKey(ri.ID, ImportRaw)
	ri.ProcessedKey = ImportKey(ri.ID, ImportProcessed)

	var written []string
	cleanup := func() {
		for _, key := range written {
			if _, err := s.blobs.Delete(ctx, key); err != nil {
				s.logger.Warn("could not remove archived import document", "key", key, "error", err)
			}
		}
	}
	for _, doc := range []struct {
		key  string
		body []byte
	}{{ri.RawKey, raw}, {ri.ProcessedKey, processed}} {
		if _, err := blob.PutBytes(ctx, s.blobs, doc.key, doc.body, xmlContentType); err != nil {
			cleanup()
			return domain.RegisteredImport{}, fmt.Errorf("archive %s: %w", doc.key, err)
		}
		written = append(written, doc.key)
	}

	var created domain.RegisteredImport
	_, err := s.run(ctx, opRegisterImport, func(tx Transaction) (string, error) {
		var err error
		created, err = tx.CreateRegisteredImport(ri)
		return ri.ID, err
	})
	if err != nil {
		cleanup()
		return domain.RegisteredImport{}, err
	}
	return created, nil
}

// ListImports returns registered imports, most recent first.
func (s *Service) ListImports(ctx context.Context) ([]domain.RegisteredImport, error) {
	var out []domain.RegisteredImport
	err := s.view(ctx, "list_imports", func(view TransactionView) error {
		out = view.ListRegisteredImports()
		return nil
	})
	return out, err
}

// GetImport returns one registered import.
func (s *Service) GetImport(ctx context.Context, id string) (domain.RegisteredImport, error) {
	var (
		ri domain.RegisteredImport
		ok bool
	)
	if err := s.view(ctx, "get_import", func(view TransactionView) error {
		ri, ok = view.FindRegisteredImport(id)
		return nil
	}); err != nil {
		return domain.RegisteredImport{}, err
	}
	if !ok {
		return domain.RegisteredImport{}, fmt.Errorf("%w: %s", ErrImportNotFound, id)
	}
	return ri, nil
}

// ImportDocumentBytes reads an archived document of a registered import.
func (s *Service) ImportDocumentBytes(ctx context.Context, id string, doc ImportDocument) ([]byte, error) {
	ri, err := s.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}
	key := ri.RawKey
	switch doc {
	case ImportRaw:
	case ImportProcessed:
		key = ri.ProcessedKey
	default:
		return nil, fmt.Errorf("unknown import document %q", doc)
	}
	return blob.ReadAll(ctx, s.blobs, key)
}
