package finder

import (
	"fmt"
	"math"

	"insight/internal/fact"
	"insight/internal/fusion"
)

// Thresholds shared across finder definitions.
const (
	hiddenCouplingMinLift  = 3.0
	weakLinkDeltaThreshold = 0.4
	deadDependencyMaxUses  = 1.0
)

// Registry builds the full finder registry and validates every
// definition. A validation failure is a fatal configuration error.
func Registry() ([]*Definition, error) {
	defs := []*Definition{
		highRiskHub(),
		godFile(),
		unstableFile(),
		orphanCode(),
		hollowCode(),
		phantomImports(),
		namingDrift(),
		knowledgeSilo(),
		bugAttractor(),
		reviewBlindspot(),
		weakLink(),
		hiddenCoupling(),
		copyPasteClone(),
		accidentalCoupling(),
		boundaryMismatch(),
		zoneOfPain(),
		layerViolation(),
		conwayViolation(),
		deadDependency(),
		flatArchitecture(),
		architectureErosion(),
	}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

func highRiskHub() *Definition {
	return &Definition{
		Name:            "HIGH_RISK_HUB",
		Scope:           ScopeFile,
		BaseSeverity:    0.85,
		HotspotFiltered: true,
		MinTier:         fusion.TierBayesian,
		Requires:        []fact.Signal{fact.SigPageRank, fact.SigRiskScore},
		Conditions: []Condition{
			{Signal: fact.SigPageRank, UsePctl: true, Op: OpGreater, Threshold: 0.9},
			{Signal: fact.SigRiskScore, Op: OpGreater, Threshold: 0.7},
		},
		Rationale:   "Highly central file with a high fused risk score: most of the codebase depends on it while it remains unstable or under-owned.",
		Remediation: "Split responsibilities, add tests, and spread ownership before the next change lands here.",
	}
}

func godFile() *Definition {
	return &Definition{
		Name:            "GOD_FILE",
		Scope:           ScopeFile,
		BaseSeverity:    0.8,
		HotspotFiltered: true,
		MinTier:         fusion.TierBayesian,
		Requires:        []fact.Signal{fact.SigLines, fact.SigFunctionCount, fact.SigConceptCount},
		Conditions: []Condition{
			{Signal: fact.SigLines, UsePctl: true, Op: OpGreater, Threshold: 0.9},
			{Signal: fact.SigFunctionCount, UsePctl: true, Op: OpGreater, Threshold: 0.9},
			{Signal: fact.SigConceptCount, Op: OpGreater, Threshold: 3},
		},
		Rationale:   "Outsized file mixing several distinct concepts; it accretes unrelated changes and resists review.",
		Remediation: "Split along the detected concept boundaries.",
	}
}

func unstableFile() *Definition {
	return &Definition{
		Name:         "UNSTABLE_FILE",
		Scope:        ScopeFile,
		BaseSeverity: 0.7,
		Requires:     []fact.Signal{fact.SigChurnCV, fact.SigChurnTrajectory},
		Conditions: []Condition{
			{Signal: fact.SigChurnCV, Op: OpGreater, Threshold: 0.5},
		},
		Extra: func(ctx *Context, id fact.EntityID) (bool, []Evidence) {
			traj, ok := ctx.Store.Enumv(id, fact.SigChurnTrajectory)
			if !ok {
				return false, nil
			}
			t := fact.Trajectory(traj)
			if t != fact.TrajChurning && t != fact.TrajSpiking {
				return false, nil
			}
			return true, []Evidence{{Signal: "churn_trajectory", Note: t.String()}}
		},
		Rationale:   "Change volume is erratic and trending unstable; every release touches this file differently.",
		Remediation: "Find the design pressure forcing repeated rework and address it directly.",
	}
}

func orphanCode() *Definition {
	return &Definition{
		Name:         "ORPHAN_CODE",
		Scope:        ScopeFile,
		BaseSeverity: 0.5,
		Requires:     []fact.Signal{fact.SigIsOrphan, fact.SigRole},
		Extra: func(ctx *Context, id fact.EntityID) (bool, []Evidence) {
			orphan, ok := ctx.Store.Boolv(id, fact.SigIsOrphan)
			if !ok || !orphan {
				return false, nil
			}
			role, ok := ctx.Store.Enumv(id, fact.SigRole)
			if !ok {
				return false, nil
			}
			r := fact.FileRole(role)
			if r == fact.RoleEntryPoint || r == fact.RoleTest {
				return false, nil
			}
			return true, []Evidence{
				{Signal: "is_orphan", Value: 1, Note: "no incoming imports"},
				{Signal: "role", Note: r.String()},
			}
		},
		Rationale:   "Nothing imports this file and it is neither an entry point nor a test: likely dead or forgotten code.",
		Remediation: "Delete it, or wire it into the code paths that were supposed to use it.",
	}
}

func hollowCode() *Definition {
	return &Definition{
		Name:         "HOLLOW_CODE",
		Scope:        ScopeFile,
		BaseSeverity: 0.6,
		Requires:     []fact.Signal{fact.SigStubRatio},
		Conditions: []Condition{
			{Signal: fact.SigStubRatio, Op: OpGreater, Threshold: 0.5},
		},
		Rationale:   "Most functions here are stubs or trivial bodies: scaffolding that never got filled in.",
		Remediation: "Implement the stubs or remove the skeleton.",
	}
}

func phantomImports() *Definition {
	return &Definition{
		Name:         "PHANTOM_IMPORTS",
		Scope:        ScopeFile,
		BaseSeverity: 0.55,
		Requires:     []fact.Signal{fact.SigPhantomImportCount},
		Conditions: []Condition{
			{Signal: fact.SigPhantomImportCount, Op: OpGreater, Threshold: 0},
		},
		Rationale:   "Project-internal imports that resolve to nothing: moved, renamed, or deleted targets.",
		Remediation: "Fix or drop the dangling imports.",
	}
}

func namingDrift() *Definition {
	return &Definition{
		Name:         "NAMING_DRIFT",
		Scope:        ScopeFile,
		BaseSeverity: 0.4,
		Requires:     []fact.Signal{fact.SigNamingDrift},
		Conditions: []Condition{
			{Signal: fact.SigNamingDrift, Op: OpGreater, Threshold: 0.5},
		},
		Rationale:   "The file name no longer describes its dominant vocabulary.",
		Remediation: "Rename the file or move the drifting code where its name fits.",
	}
}

func knowledgeSilo() *Definition {
	return &Definition{
		Name:            "KNOWLEDGE_SILO",
		Scope:           ScopeFile,
		BaseSeverity:    0.65,
		HotspotFiltered: true,
		MinTier:         fusion.TierBayesian,
		Requires:        []fact.Signal{fact.SigBusFactor, fact.SigPageRank},
		Conditions: []Condition{
			{Signal: fact.SigBusFactor, Op: OpLess, Threshold: 1.5},
			{Signal: fact.SigPageRank, UsePctl: true, Op: OpGreater, Threshold: 0.5},
		},
		Rationale:   "An actively changed, depended-upon file effectively owned by a single person.",
		Remediation: "Pair on the next changes here to spread the knowledge.",
	}
}

func bugAttractor() *Definition {
	return &Definition{
		Name:            "BUG_ATTRACTOR",
		Scope:           ScopeFile,
		BaseSeverity:    0.85,
		HotspotFiltered: true,
		MinTier:         fusion.TierBayesian,
		Requires:        []fact.Signal{fact.SigFixRatio, fact.SigPageRank},
		Conditions: []Condition{
			{Signal: fact.SigFixRatio, Op: OpGreater, Threshold: 0.4},
			{Signal: fact.SigPageRank, UsePctl: true, Op: OpGreater, Threshold: 0.7},
		},
		Rationale:   "A central file whose history is dominated by fix commits keeps attracting defects.",
		Remediation: "Invest in tests and a structural cleanup instead of the next point fix.",
	}
}

func reviewBlindspot() *Definition {
	return &Definition{
		Name:         "REVIEW_BLINDSPOT",
		Scope:        ScopeFile,
		BaseSeverity: 0.6,
		MinTier:      fusion.TierBayesian,
		Requires:     []fact.Signal{fact.SigAuthorEntropy, fact.SigBlastRadiusSize},
		Conditions: []Condition{
			{Signal: fact.SigAuthorEntropy, Op: OpLess, Threshold: 0.3},
			{Signal: fact.SigBlastRadiusSize, UsePctl: true, Op: OpGreater, Threshold: 0.8},
		},
		Rationale:   "A wide-reach file that only one author ever touches: no second pair of eyes covers its blast radius.",
		Remediation: "Route changes here through review by a second maintainer.",
	}
}

func weakLink() *Definition {
	d := &Definition{
		Name:         "WEAK_LINK",
		Scope:        ScopeFile,
		BaseSeverity: 0.75,
		MinTier:      fusion.TierBayesian,
		Rationale:    "This file is markedly less healthy than everything around it: a local maximum of the risk field.",
		Remediation:  "Bring the file up to the standard of its neighborhood before the gap widens.",
	}
	d.Evaluate = func(ctx *Context, _ *Definition) []Finding {
		if ctx.DeltaH == nil {
			return nil
		}
		var out []Finding
		for _, f := range ctx.Store.Files() {
			i := f.Ordinal()
			if i >= len(ctx.DeltaH) {
				continue
			}
			delta := ctx.DeltaH[i]
			if delta <= weakLinkDeltaThreshold {
				continue
			}
			margin := (delta - weakLinkDeltaThreshold) / (1 - weakLinkDeltaThreshold)
			if margin > 1 {
				margin = 1
			}
			neighbors := ctx.Store.Relations().Outgoing(f.ID(), fact.RelImports)
			incoming := ctx.Store.Relations().Incoming(f.ID(), fact.RelImports)
			out = append(out, Finding{
				ID:          identity(d.Name, f.Path),
				Name:        d.Name,
				Scope:       d.Scope.String(),
				Target:      f.Path,
				TargetFiles: []string{f.Path},
				Severity:    d.BaseSeverity,
				Confidence:  margin,
				Evidence: []Evidence{
					{Signal: "health_laplacian", Value: delta, Threshold: weakLinkDeltaThreshold, Op: ">"},
					{Signal: "neighborhood", Value: float64(len(neighbors) + len(incoming)), Note: "undirected import neighbors"},
				},
				Rationale:   d.Rationale,
				Remediation: d.Remediation,
			})
		}
		return out
	}
	return d
}

func hiddenCoupling() *Definition {
	d := &Definition{
		Name:         "HIDDEN_COUPLING",
		Scope:        ScopeFilePair,
		BaseSeverity: 0.9,
		Requires:     []fact.Signal{fact.SigTotalChanges},
		Rationale:    "These files change together far more often than chance predicts, yet no import connects them: an invisible contract.",
		Remediation:  "Make the dependency explicit, or extract the shared concern both files secretly encode.",
	}
	d.Evaluate = func(ctx *Context, _ *Definition) []Finding {
		rels := ctx.Store.Relations()
		var out []Finding
		for _, e := range rels.All(fact.RelCochangesWith) {
			lift := e.Weight
			if lift <= hiddenCouplingMinLift {
				continue
			}
			if _, ok := rels.Edge(e.From, e.To, fact.RelImports); ok {
				continue
			}
			if _, ok := rels.Edge(e.To, e.From, fact.RelImports); ok {
				continue
			}
			confidence := math.Min(1, (lift-hiddenCouplingMinLift)/hiddenCouplingMinLift)
			out = append(out, Finding{
				ID:          identity(d.Name, e.From.Key, e.To.Key),
				Name:        d.Name,
				Scope:       d.Scope.String(),
				Target:      e.From.Key + " <-> " + e.To.Key,
				TargetFiles: []string{e.From.Key, e.To.Key},
				Severity:    d.BaseSeverity,
				Confidence:  confidence,
				Evidence: []Evidence{
					{Signal: "cochange_lift", Value: lift, Threshold: hiddenCouplingMinLift, Op: ">"},
					{Signal: "imports_edge", Value: 0, Note: "no structural dependency either direction"},
				},
				Rationale:   d.Rationale,
				Remediation: d.Remediation,
			})
		}
		return out
	}
	return d
}

func copyPasteClone() *Definition {
	d := &Definition{
		Name:         "COPY_PASTE_CLONE",
		Scope:        ScopeFilePair,
		BaseSeverity: 0.7,
		Requires:     []fact.Signal{fact.SigCompressionRatio},
		Rationale:    "Near-duplicate files by compression distance: one of them is a copy that will drift.",
		Remediation:  "Extract the shared code and keep a single source of truth.",
	}
	d.Evaluate = func(ctx *Context, _ *Definition) []Finding {
		var out []Finding
		for _, pair := range ctx.Clones {
			confidence := (0.3 - pair.NCD) / 0.3
			if confidence < 0 {
				continue
			}
			out = append(out, Finding{
				ID:          identity(d.Name, pair.A, pair.B),
				Name:        d.Name,
				Scope:       d.Scope.String(),
				Target:      pair.A + " <-> " + pair.B,
				TargetFiles: []string{pair.A, pair.B},
				Severity:    d.BaseSeverity,
				Confidence:  confidence,
				Evidence: []Evidence{
					{Signal: "ncd", Value: pair.NCD, Threshold: 0.3, Op: "<"},
				},
				Rationale:   d.Rationale,
				Remediation: d.Remediation,
			})
		}
		return out
	}
	return d
}

func accidentalCoupling() *Definition {
	d := &Definition{
		Name:         "ACCIDENTAL_COUPLING",
		Scope:        ScopeFilePair,
		BaseSeverity: 0.45,
		MinTier:      fusion.TierBayesian,
		Requires:     []fact.Signal{fact.SigTotalChanges, fact.SigCommunity},
		Rationale:    "A structural dependency that crosses the natural community boundary and never co-changes: coupling without cohesion.",
		Remediation:  "Invert or remove the dependency; the code organization disagrees with it.",
	}
	d.Evaluate = func(ctx *Context, _ *Definition) []Finding {
		rels := ctx.Store.Relations()
		var out []Finding
		for _, e := range rels.All(fact.RelImports) {
			ca, okA := ctx.Store.Enumv(e.From, fact.SigCommunity)
			cb, okB := ctx.Store.Enumv(e.To, fact.SigCommunity)
			if !okA || !okB || ca == cb {
				continue
			}
			lift := 0.0
			if cc, ok := rels.Edge(e.From, e.To, fact.RelCochangesWith); ok {
				lift = cc.Weight
			} else if cc, ok := rels.Edge(e.To, e.From, fact.RelCochangesWith); ok {
				lift = cc.Weight
			}
			if lift >= 1 {
				continue
			}
			out = append(out, Finding{
				ID:          identity(d.Name, e.From.Key, e.To.Key),
				Name:        d.Name,
				Scope:       d.Scope.String(),
				Target:      e.From.Key + " -> " + e.To.Key,
				TargetFiles: []string{e.From.Key, e.To.Key},
				Severity:    d.BaseSeverity,
				Confidence:  1 - lift,
				Evidence: []Evidence{
					{Signal: "cochange_lift", Value: lift, Threshold: 1, Op: "<"},
					{Signal: "community", Value: float64(ca), Note: fmt.Sprintf("imports community %d", cb)},
				},
				Rationale:   d.Rationale,
				Remediation: d.Remediation,
			})
		}
		return out
	}
	return d
}

func boundaryMismatch() *Definition {
	return &Definition{
		Name:         "BOUNDARY_MISMATCH",
		Scope:        ScopeModule,
		BaseSeverity: 0.6,
		MinTier:      fusion.TierBayesian,
		Requires:     []fact.Signal{fact.SigBoundaryAlignment},
		Conditions: []Condition{
			{Signal: fact.SigBoundaryAlignment, Op: OpLess, Threshold: 0.5},
		},
		Rationale:   "The directory boundary disagrees with the dependency communities: files here belong with code elsewhere.",
		Remediation: "Re-draw the module along the detected community seams.",
	}
}

func zoneOfPain() *Definition {
	return &Definition{
		Name:         "ZONE_OF_PAIN",
		Scope:        ScopeModule,
		BaseSeverity: 0.75,
		MinTier:      fusion.TierBayesian,
		Requires:     []fact.Signal{fact.SigAbstractness, fact.SigInstability},
		Conditions: []Condition{
			{Signal: fact.SigAbstractness, Op: OpLess, Threshold: 0.3},
			{Signal: fact.SigInstability, Op: OpLess, Threshold: 0.3},
		},
		Rationale:   "Concrete and heavily depended upon: every change here ripples outward with no abstraction to absorb it.",
		Remediation: "Introduce interfaces at the rim so dependents stop binding to concretions.",
	}
}

func layerViolation() *Definition {
	return &Definition{
		Name:         "LAYER_VIOLATION",
		Scope:        ScopeModule,
		BaseSeverity: 0.7,
		Requires:     []fact.Signal{fact.SigLayerViolationCount},
		Conditions: []Condition{
			{Signal: fact.SigLayerViolationCount, Op: OpGreater, Threshold: 0},
		},
		Rationale:   "Dependencies from this module cut backward or skip across the inferred layering.",
		Remediation: "Route the offending dependencies through the intermediate layer.",
	}
}

func conwayViolation() *Definition {
	return &Definition{
		Name:         "CONWAY_VIOLATION",
		Scope:        ScopeModule,
		BaseSeverity: 0.55,
		MinTier:      fusion.TierBayesian,
		Requires:     []fact.Signal{fact.SigKnowledgeGini, fact.SigCoordinationCost},
		Conditions: []Condition{
			{Signal: fact.SigKnowledgeGini, Op: OpGreater, Threshold: 0.6},
			{Signal: fact.SigCoordinationCost, Op: OpGreater, Threshold: 0.5},
		},
		Rationale:   "Many authors must coordinate here while knowledge stays concentrated in a few heads: the team structure fights the module structure.",
		Remediation: "Align ownership with the module boundary, or split the module along team lines.",
	}
}

func deadDependency() *Definition {
	d := &Definition{
		Name:         "DEAD_DEPENDENCY",
		Scope:        ScopeModulePair,
		BaseSeverity: 0.35,
		MinTier:      fusion.TierBayesian,
		Rationale:    "A module-level dependency carried by a single file edge: barely used and cheap to sever.",
		Remediation:  "Inline or remove the single usage to drop the module coupling.",
	}
	d.Evaluate = func(ctx *Context, _ *Definition) []Finding {
		var out []Finding
		for _, e := range ctx.Store.Relations().All(fact.RelDependsOn) {
			if e.Weight > deadDependencyMaxUses {
				continue
			}
			out = append(out, Finding{
				ID:            identity(d.Name, e.From.Key, e.To.Key),
				Name:          d.Name,
				Scope:         d.Scope.String(),
				Target:        e.From.Key + " -> " + e.To.Key,
				TargetModules: []string{e.From.Key, e.To.Key},
				Severity:      d.BaseSeverity,
				Confidence:    1,
				Evidence: []Evidence{
					{Signal: "dependency_weight", Value: e.Weight, Threshold: deadDependencyMaxUses, Op: "<="},
				},
				Rationale:   d.Rationale,
				Remediation: d.Remediation,
			})
		}
		return out
	}
	return d
}

func flatArchitecture() *Definition {
	return &Definition{
		Name:         "FLAT_ARCHITECTURE",
		Scope:        ScopeCodebase,
		BaseSeverity: 0.5,
		MinTier:      fusion.TierBayesian,
		Requires:     []fact.Signal{fact.SigModularity},
		Conditions: []Condition{
			{Signal: fact.SigModularity, Op: OpLess, Threshold: 0.3},
		},
		Rationale:   "The dependency graph shows no community structure: everything connects to everything.",
		Remediation: "Carve out the first seam; even one real boundary starts the separation.",
	}
}

func architectureErosion() *Definition {
	return &Definition{
		Name:         "ARCHITECTURE_EROSION",
		Scope:        ScopeCodebase,
		BaseSeverity: 0.8,
		MinTier:      fusion.TierBayesian,
		Requires:     []fact.Signal{fact.SigArchitectureHealth, fact.SigCycleCount},
		Conditions: []Condition{
			{Signal: fact.SigArchitectureHealth, Op: OpLess, Threshold: 0.5},
			{Signal: fact.SigCycleCount, Op: OpGreater, Threshold: 0},
		},
		Rationale:   "Cyclic dependencies plus degraded architecture composites: the intended structure is dissolving.",
		Remediation: "Break the dependency cycles first; the composites follow.",
	}
}
