package memory

import (
	"eats/testutil"
	"strings"
	"testing"
)

func TestImportsAreDomainOrStdlib(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", func(path string) bool {
		return testutil.ThirdPartyImport(path) || (strings.HasPrefix(path, "eats/") && path != "eats/pkg/domain")
	}, "memory store depends only on the domain package")
}
