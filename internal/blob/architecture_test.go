package blob

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// layering lists infra package trees and the only packages allowed to import them.
var layering = []struct {
	infra   string
	allowed []string
}{
	{infra: "learnloop/internal/infra/blob", allowed: []string{"learnloop/internal/blob"}},
	{infra: "learnloop/internal/infra/persistence", allowed: []string{"learnloop/internal/core"}},
}

// TestInfraImportsStayBehindFacades ensures callers depend on blob.Store and
// the core service instead of concrete infra backends.
func TestInfraImportsStayBehindFacades(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "learnloop/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		for _, rule := range layering {
			if withinTree(pkg.PkgPath, rule.infra) || allowedImporter(pkg.PkgPath, rule.allowed) {
				continue
			}
			for importPath := range pkg.Imports {
				if withinTree(importPath, rule.infra) {
					seen[pkg.PkgPath+": "+importPath] = struct{}{}
				}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden infra import: %s", v)
		}
		t.Fatalf("found %d forbidden infra imports", len(violations))
	}
}

func allowedImporter(pkgPath string, allowed []string) bool {
	for _, prefix := range allowed {
		if withinTree(strings.TrimSuffix(pkgPath, "_test"), prefix) {
			return true
		}
	}
	return false
}

func withinTree(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}
