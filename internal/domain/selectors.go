package domain

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	m "jmute.dev/pkg/jmute/internal/model"
)

// DefaultSelector selects every mutation with its default variant.
type DefaultSelector struct{}

func (DefaultSelector) IsSelected(m.Mutation) bool { return true }

func (DefaultSelector) SelectVariant(mu m.Mutation) m.Variant { return mu.DefaultVariant() }

func (DefaultSelector) SetMutationCount(int) {}

func (DefaultSelector) RequestedVariant(m.Mutation) int32 { return m.VisitAllMembers }

// IDSelection names one selected mutation and, optionally, which of its
// variants to apply. Variant 0 means the default variant; for a group
// id, a positive variant is the ordinal of the member to apply.
type IDSelection struct {
	ID      int32
	Variant int32
}

// ParseIDSelection parses a comma-separated id list of the form
// "3,7:2,12": each entry is an id with an optional :variant suffix.
func ParseIDSelection(list string) ([]IDSelection, error) {
	var out []IDSelection
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idPart, variantPart, hasVariant := strings.Cut(entry, ":")
		id, err := strconv.ParseInt(idPart, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad mutation id %q", entry)
		}
		sel := IDSelection{ID: int32(id)}
		if hasVariant {
			variant, err := strconv.ParseInt(variantPart, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("bad variant in %q", entry)
			}
			sel.Variant = int32(variant)
		}
		out = append(out, sel)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no mutation ids in %q", list)
	}
	return out, nil
}

// IDSelector selects mutations by id, with an optional variant choice
// per id.
type IDSelector struct {
	order    []int32
	variants map[int32]int32
}

// NewIDSelector builds a selector from parsed id selections.
func NewIDSelector(selections []IDSelection) *IDSelector {
	s := &IDSelector{variants: make(map[int32]int32, len(selections))}
	for _, sel := range selections {
		if _, seen := s.variants[sel.ID]; !seen {
			s.order = append(s.order, sel.ID)
		}
		s.variants[sel.ID] = sel.Variant
	}
	return s
}

func (s *IDSelector) IsSelected(mu m.Mutation) bool {
	_, ok := s.variants[mu.ID().Int()]
	return ok
}

func (s *IDSelector) SelectVariant(mu m.Mutation) m.Variant {
	variant := s.variants[mu.ID().Int()]
	vs := mu.Variants()
	if variant < 1 || int(variant) > len(vs) {
		return mu.DefaultVariant()
	}
	return vs[variant-1]
}

func (s *IDSelector) SetMutationCount(int) {}

// RequestedVariant maps the selection onto a group: an explicit
// id:variant pair gives the member ordinal directly; a bare selected id
// inside the group is recovered from its distance to the group id.
func (s *IDSelector) RequestedVariant(mu m.Mutation) int32 {
	id := mu.ID().Int()
	if variant := s.variants[id]; variant != 0 {
		return variant
	}
	if len(s.order) == 0 {
		return m.VisitAllMembers
	}
	return s.order[0] - id
}

// OperatorSelector selects mutations generated by a set of operators.
// Groups always pass so their members can be tested individually.
type OperatorSelector struct {
	ops map[string]bool
}

// NewOperatorSelector builds a selector for the given operator names.
func NewOperatorSelector(ops []string) *OperatorSelector {
	s := &OperatorSelector{ops: make(map[string]bool, len(ops))}
	for _, op := range ops {
		s.ops[op] = true
	}
	return s
}

func (s *OperatorSelector) IsSelected(mu m.Mutation) bool {
	if mu.Type() == m.GroupTypeTag {
		return true
	}
	return s.ops[mu.Type()]
}

func (s *OperatorSelector) SelectVariant(mu m.Mutation) m.Variant { return mu.DefaultVariant() }

func (s *OperatorSelector) SetMutationCount(int) {}

func (s *OperatorSelector) RequestedVariant(m.Mutation) int32 { return m.VisitAllMembers }

// MethodSelector selects method-scoped mutations by method. Entries are
// "pkg.Class.method" or "pkg.Class.method(II)I"; an entry without a
// descriptor matches every overload.
type MethodSelector struct {
	methods map[string][]string
}

// NewMethodSelector builds a selector from method entries.
func NewMethodSelector(entries []string) *MethodSelector {
	s := &MethodSelector{methods: make(map[string][]string, len(entries))}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, sig := entry, ""
		if paren := strings.IndexByte(entry, '('); paren != -1 {
			key, sig = entry[:paren], entry[paren:]
		}
		s.methods[key] = append(s.methods[key], sig)
	}
	return s
}

func (s *MethodSelector) IsSelected(mu m.Mutation) bool {
	ms, ok := mu.(m.MethodScoped)
	if !ok {
		return false
	}
	for _, sig := range s.methods[ms.ClassName()+"."+ms.MethodName()] {
		if sig == "" || sig == ms.Signature() {
			return true
		}
	}
	return false
}

func (s *MethodSelector) SelectVariant(mu m.Mutation) m.Variant { return mu.DefaultVariant() }

func (s *MethodSelector) SetMutationCount(int) {}

func (s *MethodSelector) RequestedVariant(m.Mutation) int32 { return m.VisitAllMembers }

// RandomIDSelector selects a fixed number of mutation ids uniformly at
// random once the table size is known.
type RandomIDSelector struct {
	count  int
	picked map[int32]bool
}

// NewRandomIDSelector builds a selector that will pick count ids.
func NewRandomIDSelector(count int) *RandomIDSelector {
	return &RandomIDSelector{count: count}
}

func (s *RandomIDSelector) SetMutationCount(total int) {
	s.picked = make(map[int32]bool, s.count)
	if s.count >= total {
		for id := 1; id <= total; id++ {
			s.picked[int32(id)] = true
		}
		return
	}
	for _, n := range rand.Perm(total)[:s.count] {
		s.picked[int32(n + 1)] = true
	}
}

func (s *RandomIDSelector) IsSelected(mu m.Mutation) bool {
	return s.picked[mu.ID().Int()]
}

func (s *RandomIDSelector) SelectVariant(mu m.Mutation) m.Variant { return mu.DefaultVariant() }

func (s *RandomIDSelector) RequestedVariant(m.Mutation) int32 { return m.VisitAllMembers }

// NewRandomOperatorSelector picks count operators at random from the
// choices and selects their mutations.
func NewRandomOperatorSelector(choices []string, count int) *OperatorSelector {
	return NewOperatorSelector(sample(choices, count))
}

// NewRandomMethodSelector picks count method entries at random and
// selects their mutations.
func NewRandomMethodSelector(entries []string, count int) *MethodSelector {
	return NewMethodSelector(sample(entries, count))
}

func sample(choices []string, count int) []string {
	if count >= len(choices) {
		return choices
	}
	out := make([]string, count)
	for i, n := range rand.Perm(len(choices))[:count] {
		out[i] = choices[n]
	}
	return out
}
