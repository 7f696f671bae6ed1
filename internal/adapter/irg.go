package adapter

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"jmute.dev/pkg/jmute/internal/bytecode"
)

// Relation scans on dependents skip classes under these packages; the
// platform never depends on user code and is too large to index.
var irgExclude = []string{
	"java.", "javax.", "org.ietf.jgss.", "org.omg.", "org.w3c.dom.",
	"org.xml.sax.",
}

func irgExcluded(className string) bool {
	for _, prefix := range irgExclude {
		if strings.HasPrefix(className, prefix) {
			return true
		}
	}
	return false
}

// ClassGraph records interclass relations over a set of class files:
// which classes reference, extend, or implement which. The transitive
// verification of class-scope mutations walks the dependents of the
// mutated class.
type ClassGraph struct {
	nodes map[string]*classNode
}

type classNode struct {
	users        map[string]bool
	subclasses   map[string]bool
	implementors map[string]bool
}

func newClassGraph() *ClassGraph {
	return &ClassGraph{nodes: make(map[string]*classNode)}
}

func (g *ClassGraph) node(className string) *classNode {
	n, ok := g.nodes[className]
	if !ok {
		n = &classNode{
			users:        make(map[string]bool),
			subclasses:   make(map[string]bool),
			implementors: make(map[string]bool),
		}
		g.nodes[className] = n
	}
	return n
}

// BuildClassGraph indexes every .class file found under the class path
// roots. Unparsable files are skipped with a warning.
func BuildClassGraph(classPath []string) (*ClassGraph, error) {
	g := newClassGraph()
	for _, root := range classPath {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".class") {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			cf, err := bytecode.Parse(data)
			if err != nil {
				slog.Warn("skipping unparsable class file", "path", path, "error", err)
				return nil
			}
			if err := g.AddClass(cf); err != nil {
				slog.Warn("skipping class file", "path", path, "error", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddClass records one class and its outgoing relations.
func (g *ClassGraph) AddClass(cf *bytecode.ClassFile) error {
	name, err := cf.ClassName()
	if err != nil {
		return err
	}
	g.node(name)

	for _, ref := range cf.Pool.ReferencedClasses() {
		ref = strings.TrimPrefix(ref, "[L")
		ref = strings.TrimSuffix(ref, ";")
		if ref == name || irgExcluded(ref) || strings.HasPrefix(ref, "[") {
			continue
		}
		g.node(ref).users[name] = true
	}
	if super, err := cf.SuperClassName(); err == nil && super != "" && !irgExcluded(super) {
		g.node(super).subclasses[name] = true
	}
	ifaces, err := cf.InterfaceNames()
	if err != nil {
		return err
	}
	for _, iface := range ifaces {
		if !irgExcluded(iface) {
			g.node(iface).implementors[name] = true
		}
	}
	return nil
}

// Classes returns every class name the graph knows about, sorted.
func (g *ClassGraph) Classes() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dependents returns the classes whose constant pools reference
// className, sorted.
func (g *ClassGraph) Dependents(className string) []string {
	if n, ok := g.nodes[className]; ok {
		return sortedKeys(n.users)
	}
	return nil
}

// Subclasses returns the direct subclasses of className, sorted.
func (g *ClassGraph) Subclasses(className string) []string {
	if n, ok := g.nodes[className]; ok {
		return sortedKeys(n.subclasses)
	}
	return nil
}

// Implementors returns the classes directly implementing the interface
// className, sorted.
func (g *ClassGraph) Implementors(className string) []string {
	if n, ok := g.nodes[className]; ok {
		return sortedKeys(n.implementors)
	}
	return nil
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
