package core

import (
	"context"
	"eats/pkg/domain"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPrefixSchemeNumbersPastHighest(t *testing.T) {
	ctx := context.Background()
	svc, f := newSeededService(t)
	for _, id := range []string{"entity-000004", "entity-000002", "manual", "person-9"} {
		if _, err := svc.Store().RunInTransaction(ctx, func(tx Transaction) error {
			_, err := tx.CreateAuthorityRecord(domain.AuthorityRecord{AuthorityID: f.Authority.ID, SystemID: id})
			return err
		}); err != nil {
			t.Fatalf("seed record %s: %v", id, err)
		}
	}
	_ = svc.Store().View(ctx, func(view TransactionView) error {
		details, err := DefaultScheme().NewRecordDetails(view, f.Authority)
		if err != nil {
			t.Fatalf("new record details: %v", err)
		}
		if details.ID != "entity-000005" || details.URL != "entity-000005.html" || !details.IsCompleteID || details.IsCompleteURL {
			t.Fatalf("unexpected details %+v", details)
		}
		custom := PrefixScheme{Prefix: "person-", Digits: 1, URLSuffix: "/", CompleteURL: true}
		details, err = custom.NewRecordDetails(view, f.Authority)
		if err != nil {
			t.Fatalf("custom details: %v", err)
		}
		rec := details.Record(f.Authority.ID)
		if rec.SystemID != "person-10" || rec.SystemURL != "person-10/" || !rec.IsCompleteURL || rec.AuthorityID != f.Authority.ID {
			t.Fatalf("unexpected record %+v", rec)
		}
		if _, err := (PrefixScheme{Prefix: "man", Digits: 2}).NewRecordDetails(view, f.Authority); !errors.Is(err, ErrRecordScheme) {
			t.Fatalf("expected ErrRecordScheme for non numeric suffix, got %v", err)
		}
		return nil
	})
}

func TestSchemeRegistryPerAuthority(t *testing.T) {
	ctx := context.Background()
	reg, err := LoadSchemes(strings.NewReader(`
schemes:
  "Other Authority":
    prefix: "oa-"
    digits: 3
    url_suffix: ".xml"
`))
	if err != nil {
		t.Fatalf("load schemes: %v", err)
	}
	svc, f := newSeededService(t, WithRecordDetailsGenerator(reg))
	_, other, _, err := svc.CreateEntity(ctx, f.Other.ID)
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}
	if other.SystemID != "oa-001" || other.SystemURL != "oa-001.xml" {
		t.Fatalf("unexpected other record %+v", other)
	}
	_, def, _, err := svc.CreateEntity(ctx, 0)
	if err != nil {
		t.Fatalf("create entity: %v", err)
	}
	if def.SystemID != "entity-000001" {
		t.Fatalf("expected default scheme for unregistered authority, got %+v", def)
	}

	empty := &SchemeRegistry{}
	_ = svc.Store().View(ctx, func(view TransactionView) error {
		details, err := empty.NewRecordDetails(view, f.Other)
		if err != nil || details.ID != "entity-000001" {
			t.Fatalf("expected zero registry to fall back to the default scheme: %+v %v", details, err)
		}
		return nil
	})
}

func TestLoadSchemesErrors(t *testing.T) {
	if _, err := LoadSchemes(strings.NewReader("schemes:\n  A:\n    digits: 2\n")); !errors.Is(err, ErrRecordScheme) {
		t.Fatalf("expected missing prefix error, got %v", err)
	}
	if _, err := LoadSchemes(strings.NewReader("schemes:\n  A:\n    prefx: a\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
	reg, err := LoadSchemes(strings.NewReader(""))
	if err != nil || reg == nil {
		t.Fatalf("expected empty document to yield a registry: %v", err)
	}
}

func TestLoadSchemeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemes.yaml")
	if err := os.WriteFile(path, []byte("schemes:\n  A:\n    prefix: a-\n"), 0o600); err != nil {
		t.Fatalf("write schemes: %v", err)
	}
	if _, err := LoadSchemeFile(path); err != nil {
		t.Fatalf("load scheme file: %v", err)
	}
	if _, err := LoadSchemeFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}
}
