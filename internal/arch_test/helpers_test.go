// Package arch_test holds repository-wide structural checks: import
// layering, GoDoc coverage, interface placement, package-level state and
// file sizes. The tests parse source with go/parser and never import the
// packages they inspect.
package arch_test

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
)

const modulePath = "github.com/papapumpkin/lineage"

// findRoot walks up from this file to the directory holding go.mod.
var findRoot = sync.OnceValues(func() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("runtime.Caller failed")
	}
	for dir := filepath.Dir(file); ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no go.mod above " + file)
		}
		dir = parent
	}
})

func repoRoot(t *testing.T) string {
	t.Helper()
	root, err := findRoot()
	if err != nil {
		t.Fatal(err)
	}
	return root
}

func internalDirPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(repoRoot(t), "internal")
}

// internalPackages returns the directories under internal/ that hold Go
// source, sorted, excluding arch_test itself.
func internalPackages(t *testing.T) []string {
	t.Helper()

	dir := internalDirPath(t)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading %s: %v", dir, err)
	}
	var pkgs []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != "arch_test" && len(goFilesIn(t, filepath.Join(dir, e.Name()))) > 0 {
			pkgs = append(pkgs, e.Name())
		}
	}
	return pkgs
}

// goFilesIn returns the non-test .go files in dir.
func goFilesIn(t *testing.T, dir string) []string {
	t.Helper()
	return listGoFiles(t, dir, false)
}

// listGoFiles returns the .go files in dir sorted by path, including
// _test.go files when withTests is set.
func listGoFiles(t *testing.T, dir string, withTests bool) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading directory %s: %v", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if !withTests && strings.HasSuffix(name, "_test.go") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	slices.Sort(files)
	return files
}

func parseFile(t *testing.T, path string, mode parser.Mode) *ast.File {
	t.Helper()
	node, err := parser.ParseFile(token.NewFileSet(), path, nil, mode)
	if err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return node
}

// importsOf returns the internal packages imported by the non-test files in
// pkgDir, by first path element ("identity", "graph").
func importsOf(t *testing.T, pkgDir string) []string {
	t.Helper()

	prefix := modulePath + "/internal/"
	var out []string
	for _, f := range goFilesIn(t, pkgDir) {
		for _, imp := range parseFile(t, f, parser.ImportsOnly).Imports {
			rel, ok := strings.CutPrefix(strings.Trim(imp.Path.Value, `"`), prefix)
			if !ok {
				continue
			}
			rel, _, _ = strings.Cut(rel, "/")
			if !slices.Contains(out, rel) {
				out = append(out, rel)
			}
		}
	}
	slices.Sort(out)
	return out
}

// lineCount counts lines, including a final line without a newline.
func lineCount(t *testing.T, path string) int {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	n := strings.Count(string(data), "\n")
	if len(data) > 0 && data[len(data)-1] != '\n' {
		n++
	}
	return n
}

// docText returns the text of the first non-nil comment group.
func docText(groups ...*ast.CommentGroup) string {
	for _, g := range groups {
		if g != nil {
			return g.Text()
		}
	}
	return ""
}

// interfaceDecl is an interface type and its method names.
type interfaceDecl struct {
	Name    string
	Methods []string
}

func interfaceDecls(t *testing.T, path string) []interfaceDecl {
	t.Helper()

	var decls []interfaceDecl
	ast.Inspect(parseFile(t, path, 0), func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}
		iface, ok := ts.Type.(*ast.InterfaceType)
		if !ok {
			return false
		}
		d := interfaceDecl{Name: ts.Name.Name}
		for _, m := range iface.Methods.List {
			for _, name := range m.Names {
				d.Methods = append(d.Methods, name.Name)
			}
		}
		decls = append(decls, d)
		return false
	})
	return decls
}

func TestInternalPackages(t *testing.T) {
	t.Parallel()

	pkgs := internalPackages(t)
	for _, want := range []string{"config", "graph", "growth", "identity", "journal", "referral", "scenario"} {
		if !slices.Contains(pkgs, want) {
			t.Errorf("internalPackages() = %v, missing %q", pkgs, want)
		}
	}
	if slices.Contains(pkgs, "arch_test") {
		t.Error("internalPackages() includes arch_test")
	}
}

func TestListGoFiles(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(internalDirPath(t), "referral")
	src, all := goFilesIn(t, dir), listGoFiles(t, dir, true)
	if len(src) == 0 || len(all) <= len(src) {
		t.Fatalf("referral: %d source files, %d with tests", len(src), len(all))
	}
	for _, f := range src {
		if strings.HasSuffix(f, "_test.go") {
			t.Errorf("goFilesIn returned test file %s", f)
		}
	}
}

func TestImportsOf(t *testing.T) {
	t.Parallel()

	imports := importsOf(t, filepath.Join(internalDirPath(t), "referral"))
	if !slices.Contains(imports, "identity") || !slices.Contains(imports, "graph") {
		t.Errorf("referral imports %v, want identity and graph", imports)
	}
}

func TestInterfaceDecls(t *testing.T) {
	t.Parallel()

	decls := interfaceDecls(t, filepath.Join(internalDirPath(t), "journal", "journal.go"))
	i := slices.IndexFunc(decls, func(d interfaceDecl) bool { return d.Name == "Applier" })
	if i < 0 {
		t.Fatalf("journal.go declares %v, want Applier", decls)
	}
	if len(decls[i].Methods) != 2 {
		t.Errorf("Applier methods = %v, want 2", decls[i].Methods)
	}
}
