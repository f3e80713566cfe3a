package pipeline

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"insight/internal/fact"
	"insight/internal/fusion"
	"insight/internal/graph"
	"insight/internal/information"
	"insight/internal/temporal"
)

// deriver is one unit of the Derive stage: a named computation with
// declared signal dependencies. Derivers are topologically sorted by
// requires/provides and independent ones run concurrently. Each deriver
// owns its provided slots exclusively, so no cross-slot locking exists.
type deriver struct {
	name     string
	requires []fact.Signal
	provides []fact.Signal
	run      func(ctx context.Context, st *runState)
}

// runState is the mutable working set threaded through the stages. The
// fact store inside is shared; everything else is stage-local scratch.
type runState struct {
	store    *fact.Store
	scans    map[string]*scanData
	temporal *temporal.Result

	graph       *graph.Graph
	communities []int // by graph node index

	tier   fusion.Tier
	pctl   map[fact.Signal][]float64
	deltaH []float64
	clones []information.ClonePair

	warnings []string
}

// scanData is the collected raw material for one file.
type scanData struct {
	lines          int
	language       string
	functionCount  int
	classCount     int
	importCount    int
	maxNesting     int
	role           fact.FileRole
	todoCount      int
	docComments    int
	declarations   int
	stubCount      int
	bodyTokenSizes []float64
	functionTokens [][]string
	fileTokens     []string
	abstractCount  int
	symbolCount    int
	content        []byte
	imports        []resolvedImport
	parseFailed    bool
}

type resolvedImport struct {
	source   string
	names    []string
	resolved string
	external bool
}

// topoSortDerivers orders derivers so every consumer follows its
// producers. The result is a list of waves; derivers within one wave are
// mutually independent and run concurrently.
func topoSortDerivers(derivers []*deriver) ([][]*deriver, error) {
	producer := make(map[fact.Signal]*deriver)
	for _, d := range derivers {
		for _, sig := range d.provides {
			if other, dup := producer[sig]; dup {
				return nil, fmt.Errorf("signal %s provided by both %s and %s", sig, other.name, d.name)
			}
			producer[sig] = d
		}
	}

	deps := make(map[*deriver]map[*deriver]bool)
	for _, d := range derivers {
		deps[d] = make(map[*deriver]bool)
		for _, sig := range d.requires {
			if p, ok := producer[sig]; ok && p != d {
				deps[d][p] = true
			}
		}
	}

	var waves [][]*deriver
	done := make(map[*deriver]bool)
	remaining := len(derivers)
	for remaining > 0 {
		var wave []*deriver
		for _, d := range derivers {
			if done[d] {
				continue
			}
			ready := true
			for dep := range deps[d] {
				if !done[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, d)
			}
		}
		if len(wave) == 0 {
			return nil, fmt.Errorf("deriver dependency cycle among %d remaining derivers", remaining)
		}
		sort.Slice(wave, func(i, j int) bool { return wave[i].name < wave[j].name })
		for _, d := range wave {
			done[d] = true
			remaining--
		}
		waves = append(waves, wave)
	}
	return waves, nil
}

// runDerivers executes the waves, fanning each wave out on an errgroup.
// Cancellation is cooperative: a cancelled context stops between waves
// and derivers check it at their own natural boundaries.
func runDerivers(ctx context.Context, waves [][]*deriver, st *runState) bool {
	for _, wave := range waves {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, d := range wave {
			d := d
			g.Go(func() error {
				d.run(gctx, st)
				return nil
			})
		}
		g.Wait()
	}
	return true
}
