package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"insight/internal/finder"
	"insight/internal/pipeline"
)

func sampleResult() *pipeline.AnalysisResult {
	return &pipeline.AnalysisResult{
		Root:               "/repo",
		Timestamp:          time.Unix(1700000000, 0).UTC(),
		CommitSHA:          "abcdef1234567890",
		Tier:               "FULL",
		FileCount:          120,
		ModuleCount:        6,
		CodebaseHealth:     0.72,
		ArchitectureHealth: 0.81,
		WiringScore:        0.65,
		Findings: []finder.Finding{
			{
				ID: "GOD_FILE:core/big.py", Name: "GOD_FILE", Scope: "FILE",
				Target: "core/big.py", Severity: 0.8, Confidence: 0.6, Score: 0.43,
				Evidence: []finder.Evidence{
					{Signal: "lines", Value: 2200, Threshold: 0.9, Op: ">", Pctl: true},
				},
				Rationale: "Outsized file mixing several distinct concepts.",
			},
		},
	}
}

func TestRenderTextFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := renderResult(&buf, sampleResult(), "text"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"tier FULL", "120 files", "GOD_FILE", "core/big.py", "abcdef12"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := renderResult(&buf, sampleResult(), "json"); err != nil {
		t.Fatal(err)
	}
	var decoded pipeline.AnalysisResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded.Tier != "FULL" || len(decoded.Findings) != 1 {
		t.Errorf("round trip lost data: %+v", decoded)
	}
}

func TestRenderYAMLFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := renderResult(&buf, sampleResult(), "yaml"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "tier: FULL") {
		t.Errorf("yaml output:\n%s", buf.String())
	}
}

func TestShortSHA(t *testing.T) {
	if shortSHA("abcdef1234567890") != "abcdef12" {
		t.Error("long sha not shortened")
	}
	if shortSHA("abc") != "abc" {
		t.Error("short sha mangled")
	}
}
