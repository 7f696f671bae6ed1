package domain

import (
	m "jmute.dev/pkg/jmute/internal/model"
	pkg "jmute.dev/pkg/jmute/pkg"
)

// appliedRatio computes the fraction of attempted mutations that
// survived verification across a session's class reports. A session
// with nothing to verify scores 1.
func appliedRatio(reports pkg.FileSpill[m.ClassReport]) (float64, error) {
	applied := 0
	total := 0

	err := reports.Range(func(_ uint64, report m.ClassReport) error {
		applied += len(report.Applied)
		total += len(report.Applied) + report.Rejected
		return nil
	})
	if err != nil {
		return 0.0, err
	}

	if total == 0 {
		return 1.0, nil
	}

	return float64(applied) / float64(total), nil
}
