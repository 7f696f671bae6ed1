package domain

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"jmute.dev/pkg/jmute/internal/adapter"
	"jmute.dev/pkg/jmute/internal/controller"
	m "jmute.dev/pkg/jmute/internal/model"
	pkg "jmute.dev/pkg/jmute/pkg"
)

// Batch fans generation or mutation out over many class files with a
// bounded worker pool, one engine per class. Results spill to disk so
// arbitrarily large class sets keep a flat memory profile.
type Batch struct {
	fs      adapter.ClassFS
	store   adapter.ReportStore
	ui      controller.UI
	threads int
}

// NewBatch creates a batch runner over the given collaborators.
// threads below one runs the batch sequentially.
func NewBatch(fs adapter.ClassFS, store adapter.ReportStore, ui controller.UI, threads int) *Batch {
	if threads < 1 {
		threads = 1
	}
	return &Batch{fs: fs, store: store, ui: ui, threads: threads}
}

// MutateOptions configures a MutateAll session.
type MutateOptions struct {
	// Selector builds a fresh selector per class. Random selectors draw
	// per table, so they cannot be shared across workers. Nil selects
	// everything.
	Selector func() m.MutationSelector
	// Verifier, when set, checks every applied mutation and triggers
	// rollback of rejected ones.
	Verifier adapter.Verifier
	// ClassGraph extends class-scope verification to dependent classes.
	ClassGraph *adapter.ClassGraph
	// OutSuffix replaces the ".class" suffix of the output file. Empty
	// overwrites the input class in place.
	OutSuffix string
	// Report writes a YAML report next to each mutation table.
	Report bool
}

// GenerateAll writes a mutation table next to every class file under
// paths and shows a per-class count summary.
func (b *Batch) GenerateAll(ctx context.Context, paths, exclude []string, config *adapter.MutatorConfiguration) error {
	classes, err := b.fs.ListClasses(paths, exclude)
	if err != nil {
		return err
	}
	if len(classes) == 0 {
		return fmt.Errorf("no class files found")
	}

	gen := NewGenerator(config)
	counts := make([]controller.ClassCount, len(classes))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.threads)
	for i, class := range classes {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			count, err := gen.GenerateFile(class, "")
			if err != nil {
				return fmt.Errorf("generate %s: %w", class, err)
			}
			counts[i] = controller.ClassCount{Class: class, Count: count}
			slog.Info("mutation table generated", "class", class, "mutations", count)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return b.ui.ShowCounts("Mutations", counts)
}

// MutateAll runs a mutation session against every class under paths
// and shows a per-class summary of applied and rejected mutations.
// Each class must already have a mutation table next to it.
func (b *Batch) MutateAll(ctx context.Context, paths, exclude []string, opts MutateOptions) error {
	classes, err := b.fs.ListClasses(paths, exclude)
	if err != nil {
		return err
	}
	if len(classes) == 0 {
		return fmt.Errorf("no class files found")
	}

	spill, err := pkg.NewFileSpill[m.ClassReport]()
	if err != nil {
		return err
	}
	defer func() {
		if err := spill.Close(); err != nil {
			slog.Error("failed to close report spill", "error", err)
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.threads)
	for _, class := range classes {
		group.Go(func() error {
			report, err := b.mutateClass(groupCtx, class, opts)
			if err != nil {
				return fmt.Errorf("mutate %s: %w", class, err)
			}
			return spill.Append(report)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	reports := make([]m.ClassReport, 0, spill.Len())
	if err := spill.Range(func(_ uint64, report m.ClassReport) error {
		reports = append(reports, report)
		return nil
	}); err != nil {
		return err
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Class < reports[j].Class })

	ratio, err := appliedRatio(spill)
	if err != nil {
		return err
	}
	slog.Info("mutation session complete",
		"classes", len(reports), "applied ratio", fmt.Sprintf("%.2f", ratio))
	return b.ui.ShowReports(reports)
}

func (b *Batch) mutateClass(ctx context.Context, classFile string, opts MutateOptions) (m.ClassReport, error) {
	var selector m.MutationSelector
	if opts.Selector != nil {
		selector = opts.Selector()
	}
	mu := NewVerifyingMutator(selector, opts.Verifier, opts.ClassGraph)
	if err := mu.LoadClassFile(classFile); err != nil {
		return m.ClassReport{}, err
	}

	tablePath := strings.TrimSuffix(classFile, ".class") + ".mut"
	appliedPath := tablePath + ".apl"
	if err := mu.MutateTable(ctx, tablePath, appliedPath); err != nil {
		return m.ClassReport{}, err
	}

	out := classFile
	if opts.OutSuffix != "" {
		out = strings.TrimSuffix(classFile, ".class") + opts.OutSuffix
	}
	if err := b.fs.WriteFile(out, mu.ClassBytes(), 0o644); err != nil {
		return m.ClassReport{}, err
	}

	applied, err := adapter.ReadMutationTable(appliedPath)
	if err != nil {
		return m.ClassReport{}, err
	}
	report := adapter.BuildClassReport(mu.ClassName(), appliedPath, applied.Mutations())
	report.Rejected = mu.Rejected()

	if opts.Report {
		if err := b.store.SaveReport(tablePath+".yaml", report); err != nil {
			return m.ClassReport{}, err
		}
	}
	return report, nil
}
