package sqlite

import (
	"eats/testutil"
	"slices"
	"strings"
	"testing"
)

func TestImportsAreDomainOrStdlib(t *testing.T) {
	allowed := []string{"eats/pkg/domain", "eats/internal/infra/persistence/memory", "modernc.org/sqlite"}
	testutil.AssertNoDirectImports(t, ".", func(path string) bool {
		if slices.Contains(allowed, path) {
			return false
		}
		return strings.HasPrefix(path, "eats/") || testutil.ThirdPartyImport(path)
	}, "sqlite store depends on the memory store and its driver only")
}
