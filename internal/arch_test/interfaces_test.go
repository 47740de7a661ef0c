package arch_test

import (
	"go/ast"
	"path/filepath"
	"testing"
)

// methodSets maps each receiver type in the package's non-test files to its
// method names.
func methodSets(t *testing.T, pkgDir string) map[string][]string {
	t.Helper()

	sets := make(map[string][]string)
	for _, f := range goFilesIn(t, pkgDir) {
		for _, decl := range parseFile(t, f, 0).Decls {
			fd, ok := decl.(*ast.FuncDecl)
			if !ok || fd.Recv == nil || len(fd.Recv.List) == 0 {
				continue
			}
			expr := fd.Recv.List[0].Type
			if star, ok := expr.(*ast.StarExpr); ok {
				expr = star.X
			}
			if ident, ok := expr.(*ast.Ident); ok {
				sets[ident.Name] = append(sets[ident.Name], fd.Name.Name)
			}
		}
	}
	return sets
}

func hasAll(have, want []string) bool {
	set := make(map[string]bool, len(have))
	for _, m := range have {
		set[m] = true
	}
	for _, m := range want {
		if !set[m] {
			return false
		}
	}
	return true
}

// TestInterfacePlacement checks that interfaces live with their consumers.
// journal.Applier, scenario.Recorder and ui.TreeSource are satisfied by
// types in other packages; an interface whose method names are all present
// on a type of the same package is flagged.
func TestInterfacePlacement(t *testing.T) {
	t.Parallel()

	dir := internalDirPath(t)
	for _, pkg := range internalPackages(t) {
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			pkgDir := filepath.Join(dir, pkg)
			var ifaces []interfaceDecl
			for _, f := range goFilesIn(t, pkgDir) {
				ifaces = append(ifaces, interfaceDecls(t, f)...)
			}
			if len(ifaces) == 0 {
				return
			}
			sets := methodSets(t, pkgDir)
			for _, iface := range ifaces {
				if len(iface.Methods) == 0 {
					continue
				}
				for typ, methods := range sets {
					if hasAll(methods, iface.Methods) {
						t.Errorf("interface %s.%s is implemented by %s in the same package; declare it where it is consumed",
							pkg, iface.Name, typ)
					}
				}
			}
		})
	}
}
