// Package pipeline is the orchestrator: it sequences the seven analysis
// stages (Initialize, Collect, Model, Derive, Detect, Rank, Output),
// runs the structural and temporal collect spines in parallel, enforces
// stage budgets with cooperative cancellation, and assembles the final
// result and snapshot.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	gitdrv "insight/internal/backends/git"
	"insight/internal/backends/scan"
	"insight/internal/config"
	ierr "insight/internal/errors"
	"insight/internal/fact"
	"insight/internal/finder"
	"insight/internal/fusion"
	"insight/internal/rank"
	"insight/internal/slogutil"
	"insight/internal/snapshot"
	"insight/internal/stats"
	"insight/internal/temporal"
)

// Options tune one analysis run beyond the loaded configuration.
type Options struct {
	NoGit      bool
	NoSnapshot bool
}

// Analyzer runs the pipeline against one repository.
type Analyzer struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
}

// New creates an analyzer.
func New(cfg *config.Config, opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Analyzer{cfg: cfg, opts: opts, logger: logger}
}

// Run executes the full pipeline. Only input and configuration errors
// return as errors; every other failure degrades into warnings or
// skipped signals. A cancelled context yields a truncated result.
func (a *Analyzer) Run(ctx context.Context) (*AnalysisResult, error) {
	root := a.cfg.RepoRoot

	// Stage 1: Initialize.
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, ierr.Newf(ierr.InvalidRoot, "not a directory: %s", root)
	}
	if err := validateConfiguration(); err != nil {
		return nil, err
	}
	defs, err := finder.Registry()
	if err != nil {
		return nil, ierr.New(ierr.ConfigInvalid, "finder registry validation failed", err)
	}

	st := &runState{
		store: fact.NewStore(root, a.logger),
		scans: make(map[string]*scanData),
	}

	// Stage 2: Collect, with the structural and temporal spines in parallel.
	paths, truncated, err := a.collect(ctx, st)
	if err != nil {
		return nil, err
	}

	// Stage 3: Model.
	st.model(paths, readGoModule(root))

	// Stage 4: Derive.
	deriveCtx, cancelDerive := context.WithTimeout(ctx, a.cfg.DeriveBudget())
	defer cancelDerive()
	waves, err := topoSortDerivers([]*deriver{
		graphDeriver(), spectralDeriver(), infoDeriver(), temporalDeriver(), archDeriver(),
	})
	if err != nil {
		return nil, ierr.New(ierr.ConfigInvalid, "deriver ordering failed", err)
	}
	if !runDerivers(deriveCtx, waves, st) {
		truncated = true
	}
	cancelDerive()

	// Fusion closes the Derive stage.
	st.fuse(a.cfg.Tier)

	// Stage 5: Detect.
	detectCtx, cancelDetect := context.WithTimeout(ctx, a.cfg.DetectBudget())
	findings, detectTruncated := a.detect(detectCtx, st, defs)
	cancelDetect()
	truncated = truncated || detectTruncated

	// Stages 6 and 7: Rank + Output.
	impacts := a.impacts(st)
	var snapStore *snapshot.Store
	if a.cfg.Snapshot.Enabled && !a.opts.NoSnapshot {
		dir := filepath.Join(root, a.cfg.Snapshot.Dir)
		snapStore, err = snapshot.Open(dir, a.logger)
		if err != nil {
			a.logger.Warn("snapshot store unavailable", "error", err)
			st.warnings = append(st.warnings, "persistence: "+err.Error())
			snapStore = nil
		}
	}
	if snapStore != nil {
		defer snapStore.Close()
	}

	ranked := rank.Rank(findings, impacts)
	if snapStore != nil {
		if counts, err := snapStore.PersistenceCounts(); err == nil && len(counts) > 0 {
			remapped := make(map[string]int, len(counts))
			renames := map[string]string{}
			if st.temporal != nil {
				renames = st.temporal.RenameMap
			}
			for id, c := range counts {
				remapped[snapshot.RemapFindingID(id, renames)] = c
			}
			ranked = rank.ApplyChronic(ranked, remapped, impacts)
		}
	}

	result := a.buildResult(st, ranked, truncated)

	if snapStore != nil {
		if id, err := a.persist(snapStore, st, ranked, result); err != nil {
			a.logger.Warn("snapshot persistence failed", "error", err)
			result.Warnings = append(result.Warnings, "persistence: "+err.Error())
		} else {
			result.SnapshotID = id
		}
	}
	return result, nil
}

// validateConfiguration checks the startup invariants that must be
// fatal: composite weight closure (finder polarity is validated by the
// registry itself).
func validateConfiguration() error {
	if err := fusionWeightsValid(); err != nil {
		return ierr.New(ierr.ConfigInvalid, "composite weight closure violated", err)
	}
	return nil
}

// collect runs the two spines under the collect budget.
func (a *Analyzer) collect(ctx context.Context, st *runState) (paths []string, truncated bool, err error) {
	root := a.cfg.RepoRoot

	paths, err = scan.Walk(root, a.cfg.Ignore.Dirs)
	if err != nil {
		return nil, false, ierr.New(ierr.InvalidRoot, "walking source tree", err)
	}
	if len(paths) == 0 {
		return nil, false, ierr.Newf(ierr.EmptyRepository, "no analyzable source files under %s", root)
	}

	collectCtx, cancel := context.WithTimeout(ctx, a.cfg.CollectBudget(len(paths)))
	defer cancel()

	g, gctx := errgroup.WithContext(collectCtx)

	// Structural spine: parallel per-file parsing. Workers write
	// disjoint slots of a pre-sized slice, so no state is shared
	// between files.
	results := make([]*scanData, len(paths))
	g.Go(func() error {
		workers := runtime.NumCPU()
		if workers > len(paths) {
			workers = len(paths)
		}
		pg, pctx := errgroup.WithContext(gctx)
		pg.SetLimit(workers)
		for i, rel := range paths {
			i, rel := i, rel
			pg.Go(func() error {
				select {
				case <-pctx.Done():
					return nil
				default:
				}
				fs, err := scan.ScanFile(root, rel)
				if err != nil {
					a.logger.Warn("parse failed", "path", rel, "error", err)
					results[i] = &scanData{parseFailed: true}
					return nil
				}
				if fs != nil {
					results[i] = toScanData(fs)
				}
				return nil
			})
		}
		return pg.Wait()
	})

	// Temporal spine.
	var temporalResult *temporal.Result
	var commitSHA string
	g.Go(func() error {
		if !a.cfg.Git.Enabled || a.opts.NoGit {
			return nil
		}
		driver := gitdrv.NewDriver(root, a.logger)
		if !driver.IsAvailable(gctx) {
			a.logger.Warn("git unavailable, temporal signals skipped")
			return nil
		}
		commitSHA = driver.Head(gctx)
		commits, err := driver.Log(gctx, a.cfg.Git.MaxCommits)
		if err != nil {
			a.logger.Warn("git log failed, temporal signals skipped", "error", err)
			return nil
		}
		temporalResult = temporal.Analyze(commits)
		return nil
	})

	g.Wait()
	if collectCtx.Err() != nil {
		truncated = true
	}

	for i, rel := range paths {
		if results[i] != nil {
			st.scans[rel] = results[i]
		}
	}
	st.temporal = temporalResult
	st.store.Codebase().CommitSHA = commitSHA
	return paths, truncated, nil
}

// detect evaluates all finders in parallel against a read-only view.
func (a *Analyzer) detect(ctx context.Context, st *runState, defs []*finder.Definition) ([]finder.Finding, bool) {
	fctx := &finder.Context{
		Store:         st.store,
		Tier:          st.tier,
		Pctl:          st.pctl,
		DeltaH:        st.deltaH,
		Clones:        st.clones,
		MedianChanges: a.medianChanges(st),
	}

	var mu sync.Mutex
	var findings []finder.Finding
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range defs {
		d := d
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil
			default:
			}
			found := d.Run(fctx)
			if len(found) > 0 {
				mu.Lock()
				findings = append(findings, found...)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return findings, ctx.Err() != nil
}

// medianChanges computes the hotspot gate median over non-TEST files,
// or -1 when churn data is absent (gate bypassed).
func (a *Analyzer) medianChanges(st *runState) float64 {
	if !st.store.Has(fact.SigTotalChanges) {
		return -1
	}
	var values []float64
	for _, f := range st.store.Files() {
		if role, ok := st.store.Enumv(f.ID(), fact.SigRole); ok && fact.FileRole(role) == fact.RoleTest {
			continue
		}
		if v, ok := st.store.Intv(f.ID(), fact.SigTotalChanges); ok {
			values = append(values, float64(v))
		}
	}
	if len(values) == 0 {
		return -1
	}
	return medianOf(values)
}

// impacts assembles the ranker's pagerank percentile lookup.
func (a *Analyzer) impacts(st *runState) rank.ImpactSource {
	col, ok := st.pctl[fact.SigPageRank]
	if !ok {
		return rank.ImpactSource{}
	}
	filePctl := make(map[string]float64)
	for _, f := range st.store.Files() {
		if f.Ordinal() < len(col) && !math.IsNaN(col[f.Ordinal()]) {
			filePctl[f.Path] = col[f.Ordinal()]
		}
	}
	modulePctl := make(map[string]float64)
	for _, m := range st.store.Modules() {
		var sum float64
		var n int
		for _, e := range st.store.Relations().Incoming(m.ID(), fact.RelInModule) {
			if p, ok := filePctl[e.From.Key]; ok {
				sum += p
				n++
			}
		}
		if n > 0 {
			modulePctl[m.Name] = sum / float64(n)
		}
	}
	return rank.ImpactSource{FilePageRankPctl: filePctl, ModuleMeanPctl: modulePctl}
}

func (a *Analyzer) buildResult(st *runState, findings []finder.Finding, truncated bool) *AnalysisResult {
	store := st.store
	root := store.Codebase().ID()
	health, _ := store.Float(root, fact.SigCodebaseHealth)
	arch, _ := store.Float(root, fact.SigArchitectureHealth)
	wiring, _ := store.Float(root, fact.SigWiringScore)

	return &AnalysisResult{
		Root:               store.Codebase().Root,
		Timestamp:          time.Now().UTC(),
		CommitSHA:          store.Codebase().CommitSHA,
		Tier:               st.tier.String(),
		FileCount:          len(store.Files()),
		ModuleCount:        len(store.Modules()),
		CodebaseHealth:     health,
		ArchitectureHealth: arch,
		WiringScore:        wiring,
		Findings:           findings,
		Truncated:          truncated,
		Warnings:           st.warnings,
	}
}

// persist saves the snapshot row, the signal history subset, and the
// finding lifecycle.
func (a *Analyzer) persist(store *snapshot.Store, st *runState, findings []finder.Finding, result *AnalysisResult) (string, error) {
	blob, err := snapshot.Serialize(st.store)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	rec := &snapshot.Record{
		ID:           id,
		Timestamp:    result.Timestamp,
		CommitSHA:    result.CommitSHA,
		Data:         blob,
		FileCount:    result.FileCount,
		FindingCount: len(findings),
		Health:       result.CodebaseHealth,
	}
	if err := store.SaveSnapshot(rec); err != nil {
		return "", err
	}

	ids := make([]string, 0, len(findings))
	for _, f := range findings {
		ids = append(ids, f.ID)
	}
	if err := store.RecordLifecycle(id, ids, result.Timestamp); err != nil {
		return "", err
	}

	var rows []snapshot.SignalRow
	for sig := fact.Signal(0); sig < fact.NumSignals; sig++ {
		if sig.Def().Scope == fact.ScopeGlobal {
			if v, ok := st.store.Float(st.store.Codebase().ID(), sig); ok {
				rows = append(rows, snapshot.SignalRow{
					EntityKey: "codebase", Signal: sig.String(), Value: v,
				})
			}
		}
	}
	for _, f := range st.store.Files() {
		for _, sig := range []fact.Signal{fact.SigRiskScore, fact.SigWiringQuality, fact.SigTotalChanges, fact.SigLines} {
			if v, ok := st.store.Float(f.ID(), sig); ok {
				rows = append(rows, snapshot.SignalRow{
					EntityKey: "file:" + f.Path, Signal: sig.String(), Value: v,
				})
			}
		}
	}
	for _, m := range st.store.Modules() {
		if v, ok := st.store.Float(m.ID(), fact.SigHealthScore); ok {
			rows = append(rows, snapshot.SignalRow{
				EntityKey: "module:" + m.Name, Signal: fact.SigHealthScore.String(), Value: v,
			})
		}
	}
	if err := store.SaveSignalHistory(id, rows); err != nil {
		return "", err
	}
	return id, nil
}

func medianOf(values []float64) float64 {
	return stats.Median(values)
}

// fusionWeightsValid wraps the fusion package's startup check.
func fusionWeightsValid() error {
	return fusion.ValidateWeights()
}
