package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"insight/internal/config"
	ierr "insight/internal/errors"
	"insight/internal/finder"
	"insight/internal/slogutil"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func runAnalysis(t *testing.T, root string) *AnalysisResult {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RepoRoot = root
	a := New(cfg, Options{NoGit: true, NoSnapshot: true}, slogutil.NewDiscardLogger())
	res, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestTinyRepoAbsoluteTier(t *testing.T) {
	// Scenario S1: 4 files, no git.
	root := writeTree(t, map[string]string{
		"main.py": "import a\n\nif __name__ == '__main__':\n    a.run()\n",
		"a.py":    "import b\n\ndef run():\n    return b.value()\n",
		"b.py":    "def value():\n    return 42\n",
		"dead.py": "def unused():\n    return 'forgotten code path here'\n",
	})
	res := runAnalysis(t, root)

	if res.Tier != "ABSOLUTE" {
		t.Errorf("tier = %s, want ABSOLUTE", res.Tier)
	}
	if res.FileCount != 4 {
		t.Errorf("file count = %d, want 4", res.FileCount)
	}
	// No composites in the absolute tier.
	if res.CodebaseHealth != 0 || res.WiringScore != 0 {
		t.Errorf("composites computed in absolute tier: health=%v wiring=%v",
			res.CodebaseHealth, res.WiringScore)
	}

	var orphanTargets []string
	for _, f := range res.Findings {
		if strings.Contains(f.ID, "pctl") {
			t.Errorf("percentile-based finding in absolute tier: %s", f.ID)
		}
		if f.Name == "ORPHAN_CODE" {
			orphanTargets = append(orphanTargets, f.Target)
		}
	}
	if len(orphanTargets) != 1 || orphanTargets[0] != "dead.py" {
		t.Errorf("orphan findings = %v, want [dead.py] only", orphanTargets)
	}
}

func TestEmptyRepositoryFails(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.RepoRoot = root
	a := New(cfg, Options{NoGit: true, NoSnapshot: true}, slogutil.NewDiscardLogger())
	_, err := a.Run(context.Background())
	if err == nil {
		t.Fatal("empty repository accepted")
	}
	var ie *ierr.InsightError
	if !errors.As(err, &ie) || ie.Code != ierr.EmptyRepository {
		t.Errorf("error = %v, want EMPTY_REPOSITORY", err)
	}
}

func TestInvalidRootFails(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RepoRoot = "/no/such/path/anywhere"
	a := New(cfg, Options{}, slogutil.NewDiscardLogger())
	_, err := a.Run(context.Background())
	var ie *ierr.InsightError
	if !errors.As(err, &ie) || ie.Code != ierr.InvalidRoot {
		t.Errorf("error = %v, want INVALID_ROOT", err)
	}
}

func syntheticTree(t *testing.T, n int) string {
	t.Helper()
	files := make(map[string]string)
	// A hub everything imports, plus chains of helpers in two packages.
	files["core/hub.py"] = strings.Repeat("def hub_fn():\n    return compute_everything_at_once()\n\n", 12)
	for i := 0; i < n; i++ {
		pkg := "alpha"
		if i%2 == 1 {
			pkg = "beta"
		}
		name := pkg + "/mod" + itoaTest(i) + ".py"
		files[name] = "from core import hub\n\ndef handler_" + itoaTest(i) + "():\n    return hub.hub_fn()\n"
	}
	return writeTree(t, files)
}

func TestFullTierComposites(t *testing.T) {
	root := syntheticTree(t, 60)
	res := runAnalysis(t, root)

	if res.Tier != "FULL" {
		t.Fatalf("tier = %s, want FULL", res.Tier)
	}
	for name, v := range map[string]float64{
		"codebase_health":     res.CodebaseHealth,
		"architecture_health": res.ArchitectureHealth,
		"wiring_score":        res.WiringScore,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v outside [0,1]", name, v)
		}
	}
	if res.ModuleCount < 2 {
		t.Errorf("module count = %d, want >= 2", res.ModuleCount)
	}
}

func TestDeterminism(t *testing.T) {
	root := syntheticTree(t, 30)
	r1 := runAnalysis(t, root)
	r2 := runAnalysis(t, root)

	if r1.Tier != r2.Tier || r1.FileCount != r2.FileCount {
		t.Fatal("basic fields differ across runs")
	}
	if r1.CodebaseHealth != r2.CodebaseHealth ||
		r1.ArchitectureHealth != r2.ArchitectureHealth ||
		r1.WiringScore != r2.WiringScore {
		t.Errorf("composites differ: %v/%v/%v vs %v/%v/%v",
			r1.CodebaseHealth, r1.ArchitectureHealth, r1.WiringScore,
			r2.CodebaseHealth, r2.ArchitectureHealth, r2.WiringScore)
	}
	if len(r1.Findings) != len(r2.Findings) {
		t.Fatalf("finding counts differ: %d vs %d", len(r1.Findings), len(r2.Findings))
	}
	for i := range r1.Findings {
		if r1.Findings[i].ID != r2.Findings[i].ID || r1.Findings[i].Score != r2.Findings[i].Score {
			t.Errorf("finding %d differs: %s/%v vs %s/%v", i,
				r1.Findings[i].ID, r1.Findings[i].Score,
				r2.Findings[i].ID, r2.Findings[i].Score)
		}
	}
}

func TestExitCodes(t *testing.T) {
	res := &AnalysisResult{}
	if res.ExitCode("none") != 0 || res.ExitCode("any") != 0 {
		t.Error("empty result must exit 0")
	}
	res.Findings = []finder.Finding{{Name: "HOLLOW_CODE", Severity: 0.5}}
	if res.ExitCode("any") != 1 {
		t.Error("fail-on any ignored a finding")
	}
	if res.ExitCode("high") != 0 {
		t.Error("fail-on high fired below threshold")
	}
	res.Findings = []finder.Finding{{Name: "HIGH_RISK_HUB", Severity: 0.85}}
	if res.ExitCode("high") != 1 {
		t.Error("fail-on high missed a severe finding")
	}
	if res.ExitCode("none") != 0 {
		t.Error("fail-on none must always exit 0")
	}
}

func itoaTest(i int) string {
	digits := "0123456789"
	if i == 0 {
		return "0"
	}
	var out []byte
	for i > 0 {
		out = append([]byte{digits[i%10]}, out...)
		i /= 10
	}
	return string(out)
}
