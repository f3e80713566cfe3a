package pipeline

import (
	"context"

	"insight/internal/fact"
)

// temporalDeriver writes the per-file change-history signals from the
// temporal spine's analysis. When the spine was skipped (no git) the
// signals are marked unavailable and every consumer degrades.
func temporalDeriver() *deriver {
	return &deriver{
		name: "temporal",
		provides: []fact.Signal{
			fact.SigTotalChanges, fact.SigChurnTrajectory,
			fact.SigChurnSlope, fact.SigChurnCV,
			fact.SigBusFactor, fact.SigAuthorEntropy,
			fact.SigFixRatio, fact.SigRefactorRatio,
		},
		run: runTemporalDeriver,
	}
}

func runTemporalDeriver(ctx context.Context, st *runState) {
	store := st.store
	if st.temporal == nil || st.temporal.TotalCommits == 0 {
		store.MarkUnavailable(fact.SigTotalChanges)
		store.MarkUnavailable(fact.SigChurnTrajectory)
		store.MarkUnavailable(fact.SigChurnSlope)
		store.MarkUnavailable(fact.SigChurnCV)
		store.MarkUnavailable(fact.SigBusFactor)
		store.MarkUnavailable(fact.SigAuthorEntropy)
		store.MarkUnavailable(fact.SigFixRatio)
		store.MarkUnavailable(fact.SigRefactorRatio)
		return
	}

	for _, f := range store.Files() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		id := f.ID()
		fh := st.temporal.Files[f.Path]
		if fh == nil {
			// Never committed: dormant with no authors.
			store.Set(id, fact.SigTotalChanges, fact.Int(0))
			store.Set(id, fact.SigChurnTrajectory, fact.Enum(int(fact.TrajDormant)))
			store.Set(id, fact.SigChurnSlope, fact.Float(0))
			store.Set(id, fact.SigChurnCV, fact.Float(0))
			continue
		}
		store.Set(id, fact.SigTotalChanges, fact.Int(int64(fh.TotalChanges)))
		store.Set(id, fact.SigChurnTrajectory, fact.Enum(int(fh.Churn.Trajectory)))
		store.Set(id, fact.SigChurnSlope, fact.Float(fh.Churn.Slope))
		store.Set(id, fact.SigChurnCV, fact.Float(fh.Churn.CV))
		store.Set(id, fact.SigBusFactor, fact.Float(fh.BusFactor))
		store.Set(id, fact.SigAuthorEntropy, fact.Float(fh.AuthorEntropy))
		store.Set(id, fact.SigFixRatio, fact.Float(fh.FixRatio))
		store.Set(id, fact.SigRefactorRatio, fact.Float(fh.RefactorRatio))
	}
}
