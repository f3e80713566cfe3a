package fact

import (
	"testing"

	"insight/internal/slogutil"
)

func newTestStore() *Store {
	return NewStore("/repo", slogutil.NewDiscardLogger())
}

func TestRegistryCounts(t *testing.T) {
	var file, module, global int
	for s := Signal(0); s < NumSignals; s++ {
		switch Registry[s].Scope {
		case ScopeFile:
			file++
		case ScopeModule:
			module++
		case ScopeGlobal:
			global++
		}
	}
	if file != 36 {
		t.Errorf("file signals = %d, want 36", file)
	}
	if module != 15 {
		t.Errorf("module signals = %d, want 15", module)
	}
	if global != 11 {
		t.Errorf("global signals = %d, want 11", global)
	}
}

func TestRegistryEnumBoolNotPercentileable(t *testing.T) {
	for s := Signal(0); s < NumSignals; s++ {
		def := Registry[s]
		if (def.Kind == KindEnum || def.Kind == KindBool) && def.Percentileable {
			t.Errorf("signal %s: enum/bool marked percentileable", def.Name)
		}
	}
}

func TestSignalByName(t *testing.T) {
	s, ok := SignalByName("pagerank")
	if !ok || s != SigPageRank {
		t.Errorf("SignalByName(pagerank) = %v, %v", s, ok)
	}
	if _, ok := SignalByName("no_such_signal"); ok {
		t.Error("SignalByName accepted unknown name")
	}
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore()
	f := s.AddFile("a.go", "go")

	s.Set(f.ID(), SigLines, Int(120))
	s.Set(f.ID(), SigStubRatio, Float(0.25))
	s.Set(f.ID(), SigIsOrphan, Bool(true))
	s.Set(f.ID(), SigRole, Enum(int(RoleEntryPoint)))

	if v, ok := s.Intv(f.ID(), SigLines); !ok || v != 120 {
		t.Errorf("lines = %v, %v", v, ok)
	}
	if v, ok := s.Float(f.ID(), SigStubRatio); !ok || v != 0.25 {
		t.Errorf("stub_ratio = %v, %v", v, ok)
	}
	if v, ok := s.Boolv(f.ID(), SigIsOrphan); !ok || !v {
		t.Errorf("is_orphan = %v, %v", v, ok)
	}
	if v, ok := s.Enumv(f.ID(), SigRole); !ok || FileRole(v) != RoleEntryPoint {
		t.Errorf("role = %v, %v", v, ok)
	}
}

func TestAbsenceIsFirstClass(t *testing.T) {
	s := newTestStore()
	f := s.AddFile("a.go", "go")

	if _, ok := s.Get(f.ID(), SigPageRank); ok {
		t.Error("unset signal reported present")
	}
	if s.Has(SigPageRank) {
		t.Error("Has reported availability with no values")
	}

	s.Set(f.ID(), SigPageRank, Float(0.5))
	if !s.Has(SigPageRank) {
		t.Error("Has did not see written value")
	}

	s.MarkUnavailable(SigPageRank)
	if s.Has(SigPageRank) {
		t.Error("Has ignored unavailable mark")
	}
	if !s.Unavailable(SigPageRank) {
		t.Error("Unavailable not recorded")
	}
}

func TestKindMismatchDropped(t *testing.T) {
	s := newTestStore()
	f := s.AddFile("a.go", "go")

	s.Set(f.ID(), SigLines, Float(3.5)) // lines is an int signal
	if _, ok := s.Get(f.ID(), SigLines); ok {
		t.Error("kind-mismatched write was stored")
	}
}

func TestInsertionOrderIteration(t *testing.T) {
	s := newTestStore()
	for _, p := range []string{"a.go", "b.go", "c/d.go"} {
		s.AddFile(p, "go")
	}
	got := s.Files()
	want := []string{"a.go", "b.go", "c/d.go"}
	for i, f := range got {
		if f.Path != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, f.Path, want[i])
		}
	}
}

func TestRelationsCollapseAndNoSelfLoop(t *testing.T) {
	s := newTestStore()
	a := s.AddFile("a.go", "go")
	b := s.AddFile("b.go", "go")

	s.AddRelation(RelImports, a.ID(), b.ID(), 2)
	s.AddRelation(RelImports, a.ID(), b.ID(), 3)
	s.AddRelation(RelImports, a.ID(), a.ID(), 1) // self-loop dropped

	if n := s.Relations().Count(RelImports); n != 1 {
		t.Fatalf("edge count = %d, want 1", n)
	}
	e, ok := s.Relations().Edge(a.ID(), b.ID(), RelImports)
	if !ok || e.Weight != 5 {
		t.Errorf("collapsed weight = %v, want 5", e.Weight)
	}
	if got := s.Relations().Incoming(b.ID(), RelImports); len(got) != 1 {
		t.Errorf("incoming edges = %d, want 1", len(got))
	}
}

func TestRelationEndpointValidation(t *testing.T) {
	s := newTestStore()
	a := s.AddFile("a.go", "go")

	s.AddRelation(RelImports, a.ID(), FileID("ghost.go"), 1)
	if n := s.Relations().Count(RelImports); n != 0 {
		t.Errorf("edge with missing endpoint stored, count = %d", n)
	}
}

func TestDuplicateAddFile(t *testing.T) {
	s := newTestStore()
	f1 := s.AddFile("a.go", "go")
	f2 := s.AddFile("a.go", "go")
	if f1 != f2 {
		t.Error("duplicate AddFile created a second entity")
	}
	if len(s.Files()) != 1 {
		t.Errorf("file count = %d, want 1", len(s.Files()))
	}
}
