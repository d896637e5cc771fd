package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestThirdPartyImportPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"github.com/beevik/etree", true},
		{"golang.org/x/text/unicode/norm", true},
		{"eats/pkg/domain", false},
		{"encoding/json", false},
	}
	for _, c := range cases {
		if got := ThirdPartyImport(c.in); got != c.want {
			t.Fatalf("ThirdPartyImport(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"eats/internal/core", true},
		{"example.com/mod/internal/x", true},
		{"eats/pkg/domain", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

// TestAssertNoDirectImportsIgnoresTestFiles checks that _test.go files are not scanned.
func TestAssertNoDirectImportsIgnoresTestFiles(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	testSrc := []byte("package tmp\nimport \"github.com/beevik/etree\"\nvar _ = etree.NewDocument")
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), testSrc, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, ThirdPartyImport, "stdlib only")
}

type recordingFatal struct{ msg string }

func (r *recordingFatal) Fatalf(format string, _ ...any) { r.msg = format }

func TestDirectImportViolationsReported(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport _ \"github.com/beevik/etree\"\n")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, ThirdPartyImport)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 {
		t.Fatalf("expected one violation, got %v", viols)
	}
	var rec recordingFatal
	failIfDirectViolations(&rec, "stdlib only", viols)
	if rec.msg == "" {
		t.Fatalf("expected failure to be reported")
	}
}
