package domain

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/bytecode"
	"jmute.dev/pkg/jmute/internal/domain/operators"
	m "jmute.dev/pkg/jmute/internal/model"
)

// mutationOperators maps operator names to their implementations.
var mutationOperators = map[string]operators.Operator{
	operators.AOPTypeTag: operators.AOP{},
	operators.ROPTypeTag: operators.ROP{},
	operators.AFCTypeTag: operators.AFC{},
	operators.AOCTypeTag: operators.AOC{},
}

// OperatorNames returns the names of all known operators in the default
// enable order.
func OperatorNames() []string {
	names := make([]string, 0, len(mutationOperators))
	for _, name := range adapter.DefaultOperators {
		if _, ok := mutationOperators[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Generator produces mutation tables by running the configured
// operators over class files. A nil configuration enables the default
// operator set.
type Generator struct {
	config *adapter.MutatorConfiguration
}

// NewGenerator returns a generator driven by the given configuration.
func NewGenerator(config *adapter.MutatorConfiguration) *Generator {
	return &Generator{config: config}
}

func (g *Generator) enabledOperators() ([]operators.Operator, error) {
	names := adapter.DefaultOperators
	if g.config != nil {
		names = g.config.EnabledOperators()
	}
	ops := make([]operators.Operator, 0, len(names))
	for _, name := range names {
		op, ok := mutationOperators[name]
		if !ok {
			return nil, fmt.Errorf("unknown mutation operator %q", name)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Generate runs every enabled operator over the class and collects the
// resulting mutations.
func (g *Generator) Generate(cf *bytecode.ClassFile) (*m.StandardMutationTable, error) {
	ops, err := g.enabledOperators()
	if err != nil {
		return nil, err
	}
	className, err := cf.ClassName()
	if err != nil {
		return nil, err
	}
	table := m.NewStandardMutationTable()
	for _, op := range ops {
		if err := op.GenerateMutants(table, cf); err != nil {
			return nil, fmt.Errorf("operator %s failed on %s: %w", op.Name(), className, err)
		}
	}
	slog.Debug("generated mutations",
		"class", className, "count", table.Size(), "operators", len(ops))
	return table, nil
}

// GenerateFile reads the class at classPath, generates its mutation
// table, and writes it to outPath. An empty outPath derives the
// conventional name, <class>.mut next to the class file.
func (g *Generator) GenerateFile(classPath, outPath string) (int, error) {
	data, err := os.ReadFile(classPath)
	if err != nil {
		return 0, err
	}
	cf, err := bytecode.Parse(data)
	if err != nil {
		return 0, fmt.Errorf("could not parse %s: %w", classPath, err)
	}
	table, err := g.Generate(cf)
	if err != nil {
		return 0, err
	}
	if outPath == "" {
		outPath = strings.TrimSuffix(classPath, ".class") + ".mut"
	}
	if err := adapter.WriteMutationTable(outPath, table); err != nil {
		return 0, err
	}
	return table.Size(), nil
}
