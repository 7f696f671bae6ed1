// Package operators implements the built-in mutation operators: AOP
// (arithmetic operator change), ROP (relational operator change), AFC
// (field access flag change), and AOC (argument order change). An
// operator scans a parsed class for candidate locations and records one
// mutation per candidate. The mutation types themselves carry the
// apply, undo, and serialization logic, and register their
// deserializers with the mutation type registry at init time.
package operators

import (
	"fmt"
	"math/rand"

	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

// Operator generates the mutations of one kind for a class.
type Operator interface {
	Name() string
	Description() string
	GenerateMutants(mt m.MutationTable, cf *bytecode.ClassFile) error
}

// emitGroup records the mutations accumulated for one method. A group
// with a single member is flattened into the bare mutation.
func emitGroup(mt m.MutationTable, g *m.MutationGroup) error {
	switch g.Size() {
	case 0:
		return nil
	case 1:
		return mt.AddMutation(g.Members()[0])
	default:
		return mt.AddMutation(g)
	}
}

// randomChoice picks a replacement from candidates, skipping to the
// next entry when the draw lands on the excluded original.
func randomChoice(candidates []byte, exclude byte) byte {
	i := rand.Intn(len(candidates))
	if candidates[i] == exclude {
		i = (i + 1) % len(candidates)
	}
	return candidates[i]
}

// resolveMethod locates a mutation's target method in the loaded class,
// checking the class identity first.
func resolveMethod(cf *bytecode.ClassFile, className, methodName, signature string) (*bytecode.Member, error) {
	loaded, err := cf.ClassName()
	if err != nil {
		return nil, err
	}
	if loaded != className {
		return nil, fmt.Errorf("mutation targets class %s, loaded class is %s", className, loaded)
	}
	meth, _ := cf.Method(methodName, signature)
	if meth == nil {
		return nil, fmt.Errorf("method %s%s not found in %s", methodName, signature, className)
	}
	return meth, nil
}

// codeSnapshot captures the raw Code attribute of a method so a
// standalone apply can be reverted bit-exact.
type codeSnapshot struct {
	attr *bytecode.Attribute
	data []byte
}

func snapshotCode(cf *bytecode.ClassFile, meth *bytecode.Member) (*codeSnapshot, error) {
	for i := range meth.Attributes {
		name, err := cf.Pool.Utf8(meth.Attributes[i].NameIndex)
		if err == nil && name == "Code" {
			attr := &meth.Attributes[i]
			return &codeSnapshot{attr: attr, data: append([]byte(nil), attr.Data...)}, nil
		}
	}
	return nil, fmt.Errorf("method has no code")
}

func (s *codeSnapshot) restore() {
	s.attr.Data = s.data
}

// replaceOpcodeAt locates the target'th instruction satisfying match
// and substitutes its opcode, resuming from the scan state a preceding
// group member left in link under the given key prefix. The mutated
// instruction is returned so the caller can revert it.
func replaceOpcodeAt(code *bytecode.Code, link m.LinkData, prefix string,
	match func(byte) bool, target int32, orig, replacement byte, scope string) (*bytecode.Instruction, error) {
	instrs := code.Instrs.Instructions()
	rel := int32(0)
	start := 0
	if link != nil {
		if v, ok := link[prefix+".relOffset"].(int32); ok {
			rel = v
		}
		if ih, ok := link[prefix+".resumeAt"].(*bytecode.Instruction); ok && ih != nil {
			if i := code.Instrs.IndexOf(ih); i >= 0 {
				start = i
			}
		}
	}
	for i := start; i < len(instrs); i++ {
		ins := instrs[i]
		if !match(ins.Opcode) {
			continue
		}
		if rel != target {
			rel++
			continue
		}
		if ins.Opcode != orig {
			return nil, fmt.Errorf("opcode mismatch in %s at %d:%d: expected %s, found %s",
				scope, ins.Pos, target, bytecode.Mnemonic(orig), bytecode.Mnemonic(ins.Opcode))
		}
		ins.Opcode = replacement
		rel++
		if link != nil {
			link[prefix+".relOffset"] = rel
			var next *bytecode.Instruction
			if i+1 < len(instrs) {
				next = instrs[i+1]
			}
			link[prefix+".resumeAt"] = next
		}
		return ins, nil
	}
	return nil, fmt.Errorf("%s: no candidate instruction at relative offset %d", scope, target)
}

func methodScope(className, methodName, signature string) string {
	return className + "." + methodName + signature
}
