package git

import "testing"

func TestParseLog(t *testing.T) {
	out := "\x1eabc123\x1fdev@example.com\x1fDev One\x1f1700000000\x1ffix parser crash\n" +
		"M\tcore/parser.go\n" +
		"A\tcore/lexer.go\n" +
		"R095\told/name.go\tnew/name.go\n" +
		"\x1edef456\x1fother@example.com\x1fOther Dev\x1f1700003600\x1fadd feature\n" +
		"M\tapi/handler.go\n"

	commits := parseLog(out)
	if len(commits) != 2 {
		t.Fatalf("commit count = %d, want 2", len(commits))
	}

	first := commits[0]
	if first.SHA != "abc123" || first.AuthorEmail != "dev@example.com" {
		t.Errorf("header parse: %+v", first)
	}
	if first.Timestamp != 1700000000 {
		t.Errorf("timestamp = %d", first.Timestamp)
	}
	if first.Message != "fix parser crash" {
		t.Errorf("message = %q", first.Message)
	}
	if len(first.Files) != 3 {
		t.Errorf("files = %v, want 3 entries", first.Files)
	}
	if len(first.Renames) != 1 || first.Renames[0] != [2]string{"old/name.go", "new/name.go"} {
		t.Errorf("renames = %v", first.Renames)
	}
}

func TestParseLogEmpty(t *testing.T) {
	if commits := parseLog(""); len(commits) != 0 {
		t.Errorf("empty log produced %d commits", len(commits))
	}
}

func TestParseLogMalformedRecordSkipped(t *testing.T) {
	out := "\x1eonly-a-sha\n\x1eabc\x1fa@b.c\x1fA\x1f1700000000\x1fok\nM\tf.go\n"
	commits := parseLog(out)
	if len(commits) != 1 {
		t.Fatalf("commit count = %d, want 1", len(commits))
	}
	if commits[0].SHA != "abc" {
		t.Errorf("kept wrong record: %+v", commits[0])
	}
}
