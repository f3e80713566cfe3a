package finder

import (
	"math"
	"testing"

	"insight/internal/fact"
	"insight/internal/fusion"
	"insight/internal/slogutil"
)

func newContext(t *testing.T, tier fusion.Tier) *Context {
	t.Helper()
	return &Context{
		Store:         fact.NewStore("/repo", slogutil.NewDiscardLogger()),
		Tier:          tier,
		Pctl:          make(map[fact.Signal][]float64),
		MedianChanges: -1,
	}
}

func TestRegistryValidates(t *testing.T) {
	defs, err := Registry()
	if err != nil {
		t.Fatalf("registry validation failed: %v", err)
	}
	if len(defs) != 21 {
		t.Errorf("registry size = %d, want 21 (plus the chronic wrapper = 22 finding types)", len(defs))
	}
}

func TestAbsoluteTierFinderCount(t *testing.T) {
	defs, err := Registry()
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, d := range defs {
		if d.MinTier == fusion.TierAbsolute {
			count++
		}
	}
	if count != 8 {
		t.Errorf("absolute-tier finders = %d, want 8", count)
	}
}

func TestPolarityValidationRejectsMismatch(t *testing.T) {
	bad := &Definition{
		Name:         "BAD",
		Scope:        ScopeFile,
		BaseSeverity: 0.5,
		Conditions: []Condition{
			// bus_factor is HIGH_IS_GOOD; > must be rejected.
			{Signal: fact.SigBusFactor, Op: OpGreater, Threshold: 0.5},
		},
	}
	if err := bad.Validate(); err == nil {
		t.Error("polarity mismatch accepted")
	}

	bad2 := &Definition{
		Name:         "BAD2",
		Scope:        ScopeFile,
		BaseSeverity: 0.5,
		Conditions: []Condition{
			// stub_ratio is HIGH_IS_BAD; < must be rejected.
			{Signal: fact.SigStubRatio, Op: OpLess, Threshold: 0.5},
		},
	}
	if err := bad2.Validate(); err == nil {
		t.Error("reverse polarity mismatch accepted")
	}
}

func TestConditionMargins(t *testing.T) {
	// HIGH_IS_BAD, threshold 0.5: actual 0.75 -> (0.75-0.5)/0.5 = 0.5.
	c := Condition{Signal: fact.SigStubRatio, Op: OpGreater, Threshold: 0.5}
	if m := c.Margin(0.75); math.Abs(m-0.5) > 1e-9 {
		t.Errorf("HIB margin = %v, want 0.5", m)
	}
	if m := c.Margin(2); m != 1 {
		t.Errorf("margin not clamped: %v", m)
	}

	// HIGH_IS_GOOD, threshold 1.5: actual 0.75 -> (1.5-0.75)/1.5 = 0.5.
	g := Condition{Signal: fact.SigBusFactor, Op: OpLess, Threshold: 1.5}
	if m := g.Margin(0.75); math.Abs(m-0.5) > 1e-9 {
		t.Errorf("HIG margin = %v, want 0.5", m)
	}
}

func TestOrphanCodeFinder(t *testing.T) {
	ctx := newContext(t, fusion.TierAbsolute)
	a := ctx.Store.AddFile("dead.go", "go")
	b := ctx.Store.AddFile("main.go", "go")
	c := ctx.Store.AddFile("x_test.go", "go")

	for _, f := range []*fact.File{a, b, c} {
		ctx.Store.Set(f.ID(), fact.SigIsOrphan, fact.Bool(true))
	}
	ctx.Store.Set(a.ID(), fact.SigRole, fact.Enum(int(fact.RoleCore)))
	ctx.Store.Set(b.ID(), fact.SigRole, fact.Enum(int(fact.RoleEntryPoint)))
	ctx.Store.Set(c.ID(), fact.SigRole, fact.Enum(int(fact.RoleTest)))

	findings := orphanCode().Run(ctx)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1 (entry points and tests exempt)", len(findings))
	}
	if findings[0].Target != "dead.go" {
		t.Errorf("target = %s", findings[0].Target)
	}
	if findings[0].Confidence != 1 {
		t.Errorf("boolean finding confidence = %v, want 1", findings[0].Confidence)
	}
}

func TestGracefulDegradationOnMissingSignal(t *testing.T) {
	defs, err := Registry()
	if err != nil {
		t.Fatal(err)
	}
	// Empty store: no signal populated. Every finder must skip, none may
	// panic.
	ctx := newContext(t, fusion.TierFull)
	ctx.Store.AddFile("a.go", "go")
	for _, d := range defs {
		if findings := d.Run(ctx); len(findings) != 0 {
			t.Errorf("finder %s fired with empty store", d.Name)
		}
	}
}

func TestTierGating(t *testing.T) {
	ctx := newContext(t, fusion.TierAbsolute)
	f := ctx.Store.AddFile("hub.go", "go")
	ctx.Store.Set(f.ID(), fact.SigRiskScore, fact.Float(0.95))
	ctx.Store.Set(f.ID(), fact.SigPageRank, fact.Float(0.4))

	// HIGH_RISK_HUB needs percentiles; it must skip in ABSOLUTE even
	// with its raw signals present.
	if findings := highRiskHub().Run(ctx); len(findings) != 0 {
		t.Error("percentile-based finder fired in ABSOLUTE tier")
	}
}

func TestHiddenCouplingFinder(t *testing.T) {
	ctx := newContext(t, fusion.TierAbsolute)
	a := ctx.Store.AddFile("a.go", "go")
	b := ctx.Store.AddFile("b.go", "go")
	c := ctx.Store.AddFile("c.go", "go")
	for _, f := range []*fact.File{a, b, c} {
		ctx.Store.Set(f.ID(), fact.SigTotalChanges, fact.Int(10))
	}

	// a/b co-change with lift 6.25 and no import edge; a/c co-change but
	// an import edge explains it.
	ctx.Store.AddRelation(fact.RelCochangesWith, a.ID(), b.ID(), 6.25)
	ctx.Store.AddRelation(fact.RelCochangesWith, a.ID(), c.ID(), 5.0)
	ctx.Store.AddRelation(fact.RelImports, a.ID(), c.ID(), 1)

	findings := hiddenCoupling().Run(ctx)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	got := findings[0]
	if got.Severity != 0.9 {
		t.Errorf("severity = %v, want 0.9", got.Severity)
	}
	if got.ID != identity("HIDDEN_COUPLING", "a.go", "b.go") {
		t.Errorf("identity = %s", got.ID)
	}
}

func TestHiddenCouplingIdentityOrderIndependent(t *testing.T) {
	if identity("F", "b.go", "a.go") != identity("F", "a.go", "b.go") {
		t.Error("pair identity depends on endpoint order")
	}
}

func TestWeakLinkFinder(t *testing.T) {
	ctx := newContext(t, fusion.TierFull)
	paths := []string{"a.go", "b.go", "c.go", "d.go", "e.go"}
	for _, p := range paths {
		ctx.Store.AddFile(p, "go")
	}
	// Scenario S6: delta(C) = 0.555 after A->C, B->C, C->D, C->E.
	ctx.DeltaH = []float64{-0.1, -0.1, 0.555, -0.1, -0.1}

	findings := weakLink().Run(ctx)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}
	if findings[0].Target != "c.go" {
		t.Errorf("target = %s, want c.go", findings[0].Target)
	}
}

func TestZoneOfPainSkipsNullInstability(t *testing.T) {
	ctx := newContext(t, fusion.TierFull)
	m := ctx.Store.AddModule("core", "core")
	ctx.Store.Set(m.ID(), fact.SigAbstractness, fact.Float(0.056))
	ctx.Store.Set(m.ID(), fact.SigInstability, fact.Float(0.111))

	findings := zoneOfPain().Run(ctx)
	if len(findings) != 1 {
		t.Fatalf("S7 module must fire: %d findings", len(findings))
	}

	// Null instability: slot absent -> must skip, not throw.
	ctx2 := newContext(t, fusion.TierFull)
	m2 := ctx2.Store.AddModule("isolated", "isolated")
	ctx2.Store.Set(m2.ID(), fact.SigAbstractness, fact.Float(0.1))
	if findings := zoneOfPain().Run(ctx2); len(findings) != 0 {
		t.Error("zone of pain fired with null instability")
	}
}

func TestHotspotGate(t *testing.T) {
	ctx := newContext(t, fusion.TierFull)
	hot := ctx.Store.AddFile("hot.go", "go")
	cold := ctx.Store.AddFile("cold.go", "go")
	ctx.MedianChanges = 5

	for _, f := range []*fact.File{hot, cold} {
		ctx.Store.Set(f.ID(), fact.SigRiskScore, fact.Float(0.95))
		ctx.Store.Set(f.ID(), fact.SigPageRank, fact.Float(0.4))
	}
	ctx.Store.Set(hot.ID(), fact.SigTotalChanges, fact.Int(20))
	ctx.Store.Set(cold.ID(), fact.SigTotalChanges, fact.Int(2))
	ctx.Pctl[fact.SigPageRank] = []float64{0.95, 0.95}

	findings := highRiskHub().Run(ctx)
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1 (cold file gated)", len(findings))
	}
	if findings[0].Target != "hot.go" {
		t.Errorf("target = %s, want hot.go", findings[0].Target)
	}
}

func TestConfidenceIsMeanOfMargins(t *testing.T) {
	ctx := newContext(t, fusion.TierFull)
	f := ctx.Store.AddFile("risky.go", "go")
	ctx.Store.Set(f.ID(), fact.SigRiskScore, fact.Float(0.85))
	ctx.Store.Set(f.ID(), fact.SigPageRank, fact.Float(0.4))
	ctx.Store.Set(f.ID(), fact.SigTotalChanges, fact.Int(100))
	ctx.Pctl[fact.SigPageRank] = []float64{0.95}
	ctx.MedianChanges = 1

	findings := highRiskHub().Run(ctx)
	if len(findings) != 1 {
		t.Fatal("expected one finding")
	}
	// pagerank pctl margin: (0.95-0.9)/0.1 = 0.5
	// risk margin: (0.85-0.7)/0.3 = 0.5
	if math.Abs(findings[0].Confidence-0.5) > 1e-9 {
		t.Errorf("confidence = %v, want 0.5", findings[0].Confidence)
	}
}
