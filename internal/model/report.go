package model

import "fmt"

// MutationRecord is the flat, human-readable projection of one applied
// mutation, written to the sidecar YAML report. The engine never reads
// these back; the .mut.apl table is the authoritative record.
type MutationRecord struct {
	ID        int32  `yaml:"id"`
	Type      string `yaml:"type"`
	Class     string `yaml:"class,omitempty"`
	Method    string `yaml:"method,omitempty"`
	Signature string `yaml:"signature,omitempty"`
	Variant   string `yaml:"variant,omitempty"`
}

// ClassReport summarizes one mutation session over one class.
type ClassReport struct {
	Class    string           `yaml:"class"`
	Table    string           `yaml:"table"`
	Applied  []MutationRecord `yaml:"applied"`
	Rejected int              `yaml:"rejected,omitempty"`
}

// RecordMutation flattens a mutation into report records. Groups yield
// one record per member.
func RecordMutation(mu Mutation) []MutationRecord {
	if g, ok := mu.(*MutationGroup); ok {
		var records []MutationRecord
		for _, member := range g.Members() {
			records = append(records, RecordMutation(member)...)
		}
		return records
	}
	rec := MutationRecord{
		ID:   mu.ID().Int(),
		Type: mu.Type(),
	}
	if cs, ok := mu.(ClassScoped); ok {
		rec.Class = cs.ClassName()
	}
	if ms, ok := mu.(MethodScoped); ok {
		rec.Method = ms.MethodName()
		rec.Signature = ms.Signature()
	}
	if v := mu.DefaultVariant(); v != nil {
		rec.Variant = v.String()
	}
	return []MutationRecord{rec}
}

func (r MutationRecord) String() string {
	scope := r.Class
	if r.Method != "" {
		scope += "." + r.Method + r.Signature
	}
	return fmt.Sprintf("%d %s %s", r.ID, r.Type, scope)
}
