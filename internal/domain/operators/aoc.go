package operators

import (
	"fmt"
	"strings"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/bytecode"
	m "jmute.dev/pkg/jmute/internal/model"
)

// AOCTypeTag is the serialization type tag of argument order mutations.
const AOCTypeTag = "AOC"

func init() {
	adapter.RegisterMutationType(AOCTypeTag, deserializeAOC)
}

// AOC is the argument order change operator: at every call site, each
// pair of same-typed arguments can be swapped. The swap is realized by
// locating the instruction(s) that produce the later argument on the
// operand stack with the reverse stack simulator, and appending a
// store/reload sequence after each producer that reorders the operands
// through scratch local variables.
type AOC struct{}

func (AOC) Name() string        { return AOCTypeTag }
func (AOC) Description() string { return "argument order change" }

// GenerateMutants records one mutation per same-typed argument pair of
// every call site. All candidates of one method form a group.
func (AOC) GenerateMutants(mt m.MutationTable, cf *bytecode.ClassFile) error {
	className, err := cf.ClassName()
	if err != nil {
		return err
	}
	for i := range cf.Methods {
		meth := &cf.Methods[i]
		name, sig, err := cf.MemberName(meth)
		if err != nil {
			return err
		}
		code, err := cf.DecodeCode(meth)
		if err != nil {
			return err
		}
		if code == nil {
			continue
		}
		group := m.NewMutationGroup(className, name, sig)
		offset := int32(0)
		for _, ins := range code.Instrs.Instructions() {
			if !bytecode.IsInvoke(ins.Opcode) {
				continue
			}
			_, _, desc, err := cf.Pool.RefInfo(ins.RefIndex())
			if err != nil {
				return err
			}
			args, _, err := bytecode.MethodArgTypes(desc)
			if err != nil {
				return err
			}
			for first := 0; first < len(args); first++ {
				for second := first + 1; second < len(args); second++ {
					if args[first] == args[second] {
						group.AddMutation(newAOCMutation(className, name, sig,
							ins.Pos, offset, ins.Opcode, first, second))
					}
				}
			}
			offset++
		}
		if err := emitGroup(mt, group); err != nil {
			return err
		}
	}
	return nil
}

// aocUndoState remembers everything one grouped apply changed so the
// edit can be reverted on the shared body.
type aocUndoState struct {
	inserted []*bytecode.Instruction

	prevRel    int32
	hadRel     bool
	prevResume *bytecode.Instruction
	hadResume  bool

	site     *bytecode.Instruction
	sitePrev int
	hadSite  bool

	maxLocals int // previous value, -1 when untouched
}

// AOCMutation swaps two same-typed arguments of one call. The call is
// addressed by its ordinal among the method's invoke instructions.
type AOCMutation struct {
	m.GroupableMethodMutation

	CodeOffset int32
	RelOffset  int32
	CallOpcode byte
	FirstArg   int16
	SecondArg  int16

	snapshot *codeSnapshot
	undo     *aocUndoState
}

func newAOCMutation(className, methodName, signature string, codeOffset int,
	relOffset int32, callOpcode byte, firstArg, secondArg int) *AOCMutation {
	mu := &AOCMutation{
		CodeOffset: int32(codeOffset),
		RelOffset:  relOffset,
		CallOpcode: callOpcode,
		FirstArg:   int16(firstArg),
		SecondArg:  int16(secondArg),
	}
	mu.Class = className
	mu.Method = methodName
	mu.Sig = signature
	return mu
}

func (mu *AOCMutation) Type() string { return AOCTypeTag }

// Variants is empty: an argument swap has no selectable alternatives.
func (mu *AOCMutation) Variants() []m.Variant { return nil }

func (mu *AOCMutation) DefaultVariant() m.Variant { return nil }

// Apply mutates a standalone copy of the method body and commits it
// back to the class. The variant is ignored.
func (mu *AOCMutation) Apply(cf *bytecode.ClassFile, v m.Variant) error {
	meth, err := resolveMethod(cf, mu.Class, mu.Method, mu.Sig)
	if err != nil {
		return err
	}
	code, err := cf.DecodeCode(meth)
	if err != nil {
		return err
	}
	if code == nil {
		return fmt.Errorf("method %s has no code", methodScope(mu.Class, mu.Method, mu.Sig))
	}
	snap, err := snapshotCode(cf, meth)
	if err != nil {
		return err
	}
	if err := mu.applyToCode(cf, code, nil); err != nil {
		return err
	}
	if err := cf.CommitCode(meth, code); err != nil {
		return err
	}
	mu.snapshot = snap
	return nil
}

// Undo restores the method body captured by Apply.
func (mu *AOCMutation) Undo(cf *bytecode.ClassFile) error {
	if mu.snapshot == nil {
		return fmt.Errorf("mutation %s has not been applied", mu.ID())
	}
	mu.snapshot.restore()
	mu.snapshot = nil
	return nil
}

// ApplyInGroup mutates the shared decoded body, resuming the call site
// scan where the previous group member stopped.
func (mu *AOCMutation) ApplyInGroup(cf *bytecode.ClassFile, code *bytecode.Code, link m.LinkData, v m.Variant) error {
	return mu.applyToCode(cf, code, link)
}

// UndoInGroup removes the inserted reorder sequences and rolls the
// shared scan state back.
func (mu *AOCMutation) UndoInGroup(code *bytecode.Code, link m.LinkData) error {
	u := mu.undo
	if u == nil {
		return fmt.Errorf("mutation %s has not been applied in a group", mu.ID())
	}
	for _, ins := range u.inserted {
		code.Instrs.Remove(ins)
	}
	if u.hadRel {
		link["AOC.relOffset"] = u.prevRel
	} else {
		delete(link, "AOC.relOffset")
	}
	if u.hadResume {
		link["AOC.resumeAt"] = u.prevResume
	} else {
		delete(link, "AOC.resumeAt")
	}
	if u.site != nil {
		site := aocSiteLocals(link)
		if u.hadSite {
			site[u.site] = u.sitePrev
		} else {
			delete(site, u.site)
		}
	}
	if u.maxLocals >= 0 {
		code.MaxLocals = uint16(u.maxLocals)
	}
	mu.undo = nil
	return nil
}

// aocSiteLocals returns the per-call-site scratch local watermarks
// shared by the group's members, so consecutive swaps at the same call
// allocate disjoint locals.
func aocSiteLocals(link m.LinkData) map[*bytecode.Instruction]int {
	site, ok := link["AOC.siteLocals"].(map[*bytecode.Instruction]int)
	if !ok {
		site = make(map[*bytecode.Instruction]int)
		link["AOC.siteLocals"] = site
	}
	return site
}

func (mu *AOCMutation) applyToCode(cf *bytecode.ClassFile, code *bytecode.Code, link m.LinkData) error {
	scope := methodScope(mu.Class, mu.Method, mu.Sig)
	instrs := code.Instrs.Instructions()
	rel := int32(0)
	start := 0
	var undo *aocUndoState
	if link != nil {
		undo = &aocUndoState{maxLocals: -1}
		if v, ok := link["AOC.relOffset"].(int32); ok {
			rel = v
			undo.prevRel = v
			undo.hadRel = true
		}
		if ih, ok := link["AOC.resumeAt"].(*bytecode.Instruction); ok && ih != nil {
			undo.prevResume = ih
			undo.hadResume = true
			if i := code.Instrs.IndexOf(ih); i >= 0 {
				start = i
			}
		}
	}

	for i := start; i < len(instrs); i++ {
		ins := instrs[i]
		if !bytecode.IsInvoke(ins.Opcode) {
			continue
		}
		if ins.Opcode != mu.CallOpcode || rel != mu.RelOffset {
			rel++
			continue
		}

		_, _, desc, err := cf.Pool.RefInfo(ins.RefIndex())
		if err != nil {
			return err
		}
		args, _, err := bytecode.MethodArgTypes(desc)
		if err != nil {
			return err
		}
		first, second := int(mu.FirstArg), int(mu.SecondArg)
		if second >= len(args) || first < 0 || first >= second {
			return fmt.Errorf("%s: argument pair %d,%d out of range for %s",
				scope, first, second, desc)
		}
		sizes := make([]int, len(args))
		for k, a := range args {
			if sizes[k], err = bytecode.TypeSlots(a); err != nil {
				return err
			}
		}

		maxLocals := int(code.MaxLocals)
		if link != nil {
			site := aocSiteLocals(link)
			if prev, ok := site[ins]; ok {
				maxLocals = prev
				undo.site = ins
				undo.sitePrev = prev
				undo.hadSite = true
			} else {
				undo.site = ins
				if base, ok := link["AOC.baseMaxLocals"].(int); ok {
					maxLocals = base
				} else {
					link["AOC.baseMaxLocals"] = maxLocals
				}
			}
		}

		patch, lvStoreOffset := buildReorderPatch(args, sizes, first, second, maxLocals)

		producers, err := findProducers(cf.Pool, code, i, second, args, sizes)
		if err != nil {
			return err
		}
		var inserted []*bytecode.Instruction
		for _, p := range producers {
			idx := code.Instrs.IndexOf(p)
			if idx < 0 {
				return fmt.Errorf("%s: lost track of producing instruction", scope)
			}
			fresh := copyInstructions(patch)
			for k := len(fresh) - 1; k >= 0; k-- {
				code.Instrs.InsertAfter(idx, fresh[k])
			}
			inserted = append(inserted, fresh...)
		}

		swapDist := second - first
		newMaxLocals := maxLocals + swapDist + lvStoreOffset + 1
		if link != nil {
			link["AOC.relOffset"] = rel
			link["AOC.resumeAt"] = ins
			aocSiteLocals(link)[ins] = newMaxLocals
			if newMaxLocals > int(code.MaxLocals) {
				undo.maxLocals = int(code.MaxLocals)
				code.MaxLocals = uint16(newMaxLocals)
			}
			undo.inserted = inserted
			mu.undo = undo
		} else {
			code.MaxLocals = uint16(newMaxLocals)
		}
		return nil
	}
	return fmt.Errorf("%s: no %s call at relative offset %d",
		scope, bytecode.Mnemonic(mu.CallOpcode), mu.RelOffset)
}

// buildReorderPatch assembles the instruction sequence appended after a
// producer of the second argument: store the second argument and every
// intervening one into scratch locals, then reload them with the first
// and second exchanged. A pair of adjacent single-slot arguments
// reduces to a swap.
func buildReorderPatch(args []string, sizes []int, first, second, maxLocals int) ([]*bytecode.Instruction, int) {
	swapDist := second - first
	if swapDist == 1 && sizes[second] == 1 {
		return []*bytecode.Instruction{bytecode.Simple(bytecode.SWAP)}, 0
	}

	var patch []*bytecode.Instruction
	lvStoreOffset := 0
	for i := 0; i <= swapDist; i++ {
		t := args[second-i]
		patch = append(patch, localVarIns(storeOpcode(t), maxLocals+i+lvStoreOffset))
		if sizes[second-i] == 2 {
			lvStoreOffset++
		}
	}
	lvLoadOffset := lvStoreOffset
	patch = append(patch, localVarIns(loadOpcode(args[second]), maxLocals))
	if sizes[second] == 2 {
		lvLoadOffset--
	}
	for i := swapDist - 1; i > 0; i-- {
		t := args[second-i]
		if sizes[second-i] == 2 {
			lvLoadOffset--
		}
		patch = append(patch, localVarIns(loadOpcode(t), maxLocals+i+lvLoadOffset))
	}
	patch = append(patch, localVarIns(loadOpcode(args[first]),
		maxLocals+swapDist+lvStoreOffset-lvLoadOffset))
	return patch, lvStoreOffset
}

func storeOpcode(desc string) byte {
	switch desc[0] {
	case 'J':
		return bytecode.LSTORE
	case 'D':
		return bytecode.DSTORE
	case 'F':
		return bytecode.FSTORE
	case 'L', '[':
		return bytecode.ASTORE
	default:
		return bytecode.ISTORE
	}
}

func loadOpcode(desc string) byte {
	switch desc[0] {
	case 'J':
		return bytecode.LLOAD
	case 'D':
		return bytecode.DLOAD
	case 'F':
		return bytecode.FLOAD
	case 'L', '[':
		return bytecode.ALOAD
	default:
		return bytecode.ILOAD
	}
}

func localVarIns(op byte, index int) *bytecode.Instruction {
	if index > 0xff {
		return &bytecode.Instruction{
			Opcode:   bytecode.WIDE,
			Operands: []byte{op, byte(index >> 8), byte(index)},
			Pos:      -1,
		}
	}
	return &bytecode.Instruction{Opcode: op, Operands: []byte{byte(index)}, Pos: -1}
}

func copyInstructions(src []*bytecode.Instruction) []*bytecode.Instruction {
	out := make([]*bytecode.Instruction, len(src))
	for i, ins := range src {
		c := *ins
		c.Operands = append([]byte(nil), ins.Operands...)
		c.Pos = -1
		out[i] = &c
	}
	return out
}

// findProducers runs the reverse stack simulation backwards from the
// call at callIdx to find every instruction that may have produced the
// argument at argIndex, following conditional branch joins through a
// precomputed targeter map.
func findProducers(pool *bytecode.ConstantPool, code *bytecode.Code, callIdx, argIndex int,
	args []string, sizes []int) ([]*bytecode.Instruction, error) {
	wideArgOffset := 0
	for k := len(args) - 1; k > argIndex; k-- {
		wideArgOffset += sizes[k] - 1
	}
	argDepth := len(args) - 1 - argIndex + wideArgOffset
	rs := bytecode.NewStackReverserAt(pool, argDepth)

	instrs := code.Instrs.Instructions()
	byPos := make(map[int]int, len(instrs))
	for idx, ins := range instrs {
		if ins.Pos >= 0 {
			byPos[ins.Pos] = idx
		}
	}
	targeters := make(map[int][]int)
	for idx, ins := range instrs {
		var targetPos int
		switch {
		case bytecode.IsBranch(ins.Opcode) || bytecode.IsWideBranch(ins.Opcode):
			targetPos = ins.Target
		case ins.Opcode == bytecode.TABLESWITCH || ins.Opcode == bytecode.LOOKUPSWITCH:
			targetPos = ins.SwitchDefault
		default:
			continue
		}
		if t, ok := byPos[targetPos]; ok {
			targeters[t] = append(targeters[t], idx)
		}
	}

	var producers []*bytecode.Instruction
	if err := searchProducers(instrs, callIdx, rs, targeters, &producers); err != nil {
		return nil, err
	}
	return producers, nil
}

func searchProducers(instrs []*bytecode.Instruction, at int, rs *bytecode.StackReverser,
	targeters map[int][]int, producers *[]*bytecode.Instruction) error {
	cur := at - 1
	if cur < 0 {
		return fmt.Errorf("could not locate producing instruction for method argument")
	}
	ins := instrs[cur]
	op := ins.Opcode

	walkPrev := true
	switch {
	case op == bytecode.GOTO || op == bytecode.GOTO_W ||
		op == bytecode.JSR || op == bytecode.JSR_W:
		// An unconditional jump only flows into the next instruction
		// when it targets it.
		if ins.Target != instrs[at].Pos {
			walkPrev = false
		}
	case (op >= bytecode.IRETURN && op <= bytecode.RETURN) ||
		op == bytecode.ATHROW || op == bytecode.RET:
		walkPrev = false
	}

	if walkPrev {
		found, err := rs.RunInstruction(ins)
		if err != nil {
			return err
		}
		if found {
			*producers = append(*producers, ins)
		} else if err := searchProducers(instrs, cur, rs, targeters, producers); err != nil {
			return err
		}
	}
	for _, t := range targeters[at] {
		if err := searchProducers(instrs, t, rs.Copy(), targeters, producers); err != nil {
			return err
		}
	}
	return nil
}

func (mu *AOCMutation) Accept(v m.MutationVisitor) error {
	if mu.Group() != nil {
		return v.VisitGroupable(mu)
	}
	return v.Visit(mu)
}

func (mu *AOCMutation) Serialize(w m.MutationWriter) error {
	if err := w.WriteUTF(mu.Class); err != nil {
		return err
	}
	if err := w.WriteUTF(mu.Method); err != nil {
		return err
	}
	if err := w.WriteUTF(mu.Sig); err != nil {
		return err
	}
	if err := w.WriteInt(mu.CodeOffset); err != nil {
		return err
	}
	if err := w.WriteInt(mu.RelOffset); err != nil {
		return err
	}
	if err := w.WriteShort(int16(mu.CallOpcode)); err != nil {
		return err
	}
	if err := w.WriteShort(mu.FirstArg); err != nil {
		return err
	}
	return w.WriteShort(mu.SecondArg)
}

func deserializeAOC(r m.MutationReader) (m.Mutation, error) {
	mu := &AOCMutation{}
	var err error
	if mu.Class, err = r.ReadUTF(); err != nil {
		return nil, err
	}
	if mu.Method, err = r.ReadUTF(); err != nil {
		return nil, err
	}
	if mu.Sig, err = r.ReadUTF(); err != nil {
		return nil, err
	}
	if mu.CodeOffset, err = r.ReadInt(); err != nil {
		return nil, err
	}
	if mu.RelOffset, err = r.ReadInt(); err != nil {
		return nil, err
	}
	call, err := r.ReadShort()
	if err != nil {
		return nil, err
	}
	mu.CallOpcode = byte(call)
	if mu.FirstArg, err = r.ReadShort(); err != nil {
		return nil, err
	}
	if mu.SecondArg, err = r.ReadShort(); err != nil {
		return nil, err
	}
	return mu, nil
}

func (mu *AOCMutation) String() string {
	var sb strings.Builder
	sb.WriteString(AOCTypeTag + " {\n")
	if mu.ID().Assigned() {
		fmt.Fprintf(&sb, "\tid: %d\n", mu.ID().Int())
	} else {
		sb.WriteString("\tid not assigned\n")
	}
	fmt.Fprintf(&sb, "\tclass: %s\n\tmethod: %s\n\tsignature: %s\n",
		mu.Class, mu.Method, mu.Sig)
	fmt.Fprintf(&sb, "\toriginal code offset: %d\n\trelative position offset: %d\n",
		mu.CodeOffset, mu.RelOffset)
	fmt.Fprintf(&sb, "\tcall opcode: %s\n\tswapped argument indexes: %d, %d\n}",
		bytecode.Mnemonic(mu.CallOpcode), mu.FirstArg, mu.SecondArg)
	return sb.String()
}
