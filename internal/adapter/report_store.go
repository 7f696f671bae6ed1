package adapter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	m "jmute.dev/pkg/jmute/internal/model"
)

// ReportStore persists the human-readable sidecar report of a mutation
// session. The binary .mut.apl table is what the engine reads back;
// the YAML report exists for people and scripts.
type ReportStore interface {
	SaveReport(path string, report m.ClassReport) error
	LoadReport(path string) (m.ClassReport, error)
}

// NewReportStore returns the YAML-backed report store.
func NewReportStore() ReportStore {
	return yamlReportStore{}
}

type yamlReportStore struct{}

func (yamlReportStore) SaveReport(path string, report m.ClassReport) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("could not encode report for %s: %w", report.Class, err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (yamlReportStore) LoadReport(path string) (m.ClassReport, error) {
	var report m.ClassReport
	data, err := os.ReadFile(path)
	if err != nil {
		return report, err
	}
	if err := yaml.Unmarshal(data, &report); err != nil {
		return report, fmt.Errorf("could not decode report %s: %w", path, err)
	}
	return report, nil
}

// BuildClassReport flattens an applied-mutation table into a report.
func BuildClassReport(className, tablePath string, applied []m.Mutation) m.ClassReport {
	report := m.ClassReport{Class: className, Table: tablePath}
	for _, mu := range applied {
		report.Applied = append(report.Applied, m.RecordMutation(mu)...)
	}
	return report
}
