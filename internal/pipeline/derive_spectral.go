package pipeline

import (
	"context"

	"insight/internal/fact"
	"insight/internal/spectral"
)

// spectralDeriver computes the Laplacian spectrum summary. It reads only
// the frozen import graph, so it is independent of every other deriver.
func spectralDeriver() *deriver {
	return &deriver{
		name:     "spectral",
		provides: []fact.Signal{fact.SigFiedlerValue, fact.SigSpectralGap},
		run: func(ctx context.Context, st *runState) {
			root := st.store.Codebase().ID()
			if st.graph == nil {
				st.store.Set(root, fact.SigFiedlerValue, fact.Float(0))
				st.store.Set(root, fact.SigSpectralGap, fact.Float(0))
				return
			}
			res := spectral.Analyze(st.graph)
			st.store.Set(root, fact.SigFiedlerValue, fact.Float(res.FiedlerValue))
			st.store.Set(root, fact.SigSpectralGap, fact.Float(res.SpectralGap))
		},
	}
}
