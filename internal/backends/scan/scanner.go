package scan

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"insight/internal/fact"
)

// stubBodyRe matches trivial function bodies: pass, ellipsis, bare
// return None.
var stubBodyRe = regexp.MustCompile(`^\s*(pass|\.\.\.|return\s+(None)?)\s*$`)

// stubMaxBodyTokens is the body token count below which a function
// counts as a stub.
const stubMaxBodyTokens = 5

var todoRe = regexp.MustCompile(`\b(TODO|FIXME|XXX|HACK)\b`)

var mainGuardRe = regexp.MustCompile(`^\s*if\s+__name__\s*==`)

// Walk returns the root-relative paths of every supported source file,
// sorted for deterministic downstream iteration.
func Walk(root string, ignoreDirs []string) ([]string, error) {
	ignore := make(map[string]bool, len(ignoreDirs))
	for _, d := range ignoreDirs {
		ignore[d] = true
	}
	var paths []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if p != root && (ignore[d.Name()] || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if languageFor(p) == nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// ScanFile reads and scans one file. A read failure returns the error;
// the caller degrades by keeping the entity with line count only.
func ScanFile(root, rel string) (*FileScan, error) {
	content, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return nil, err
	}
	return ScanContent(rel, content), nil
}

// ScanContent scans an in-memory file. Unsupported extensions return nil.
func ScanContent(rel string, content []byte) *FileScan {
	lang := languageFor(rel)
	if lang == nil {
		return nil
	}

	fs := &FileScan{
		Metrics: FileMetrics{Path: rel, Language: lang.name},
		Syntax:  FileSyntax{Path: rel},
		Content: content,
	}

	lines := strings.Split(string(content), "\n")
	fs.Metrics.Lines = len(lines)

	depth := 0
	inGoImportBlock := false
	var current *FunctionDef
	var currentBody []string
	prevLineWasDoc := false

	flushFunction := func() {
		if current == nil {
			return
		}
		current.BodyTokens = Tokenize(strings.Join(currentBody, "\n"))
		current.IsStub = len(current.BodyTokens) < stubMaxBodyTokens ||
			(len(currentBody) > 0 && stubBodyRe.MatchString(strings.Join(currentBody, "")))
		fs.Syntax.Functions = append(fs.Syntax.Functions, *current)
		current = nil
		currentBody = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if todoRe.MatchString(line) {
			fs.TodoCount++
		}
		if mainGuardRe.MatchString(line) {
			fs.Syntax.HasMainGuard = true
		}

		// Nesting depth.
		if lang.indentNesting {
			if trimmed != "" && !strings.HasPrefix(trimmed, lang.lineComment) {
				depth = indentLevel(line)
			}
		} else {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			if depth < 0 {
				depth = 0
			}
		}
		if depth > fs.Syntax.MaxNesting {
			fs.Syntax.MaxNesting = depth
		}

		// Imports.
		if lang.name == "go" {
			switch {
			case strings.HasPrefix(trimmed, "import ("):
				inGoImportBlock = true
			case inGoImportBlock && trimmed == ")":
				inGoImportBlock = false
			}
		}
		if imp, ok := matchImport(lang, line, trimmed, inGoImportBlock); ok {
			fs.Metrics.Imports = append(fs.Metrics.Imports, imp)
		}

		// Declarations.
		isComment := strings.HasPrefix(trimmed, lang.lineComment)
		if !isComment {
			if m := lang.functionRe.FindStringSubmatch(line); m != nil {
				flushFunction()
				fs.Declarations++
				if prevLineWasDoc {
					fs.DocComments++
				}
				current = &FunctionDef{
					Name:            firstGroup(m),
					SignatureTokens: Tokenize(line),
					NestingDepth:    depth,
				}
			} else if m := lang.classRe.FindStringSubmatch(line); m != nil {
				fs.Declarations++
				if prevLineWasDoc {
					fs.DocComments++
				}
				cls := ClassDef{
					Name:       firstGroup(m),
					IsAbstract: lang.abstractRe != nil && lang.abstractRe.MatchString(line),
				}
				if lang.name == "python" && len(m) > 2 && m[2] != "" {
					for _, base := range strings.Split(m[2], ",") {
						cls.Bases = append(cls.Bases, strings.TrimSpace(base))
					}
				}
				fs.Syntax.Classes = append(fs.Syntax.Classes, cls)
			} else if current != nil && trimmed != "" {
				currentBody = append(currentBody, line)
			}
		}

		prevLineWasDoc = strings.HasPrefix(trimmed, lang.docComment) ||
			(lang.name == "python" && strings.HasPrefix(trimmed, `"""`))
	}
	flushFunction()

	fs.Metrics.FunctionCount = len(fs.Syntax.Functions)
	fs.Metrics.ClassCount = len(fs.Syntax.Classes)
	fs.Metrics.ImportCount = len(fs.Metrics.Imports)
	fs.Role = classifyRole(rel, fs)
	return fs
}

// matchImport extracts one import declaration from a line.
func matchImport(lang *language, line, trimmed string, inGoImportBlock bool) (ImportDecl, bool) {
	if strings.HasPrefix(trimmed, lang.lineComment) {
		return ImportDecl{}, false
	}
	for i, re := range lang.importRes {
		// The bare-quoted-line pattern only applies inside import blocks.
		if lang.name == "go" && i == 1 && !inGoImportBlock {
			continue
		}
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		decl := ImportDecl{Source: m[1]}
		// Python "from X import a, b" exposes names.
		if lang.name == "python" && len(m) > 2 && m[2] != "" {
			for _, n := range strings.Split(m[2], ",") {
				decl.Names = append(decl.Names, strings.TrimSpace(n))
			}
		}
		return decl, true
	}
	return ImportDecl{}, false
}

// firstGroup returns the first non-empty capture group.
func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// indentLevel estimates the nesting level from leading whitespace (four
// spaces or one tab per level).
func indentLevel(line string) int {
	spaces := 0
	for _, r := range line {
		switch r {
		case ' ':
			spaces++
		case '\t':
			spaces += 4
		default:
			return spaces / 4
		}
	}
	return 0
}

// classifyRole maps a file path plus scan evidence to a role.
func classifyRole(rel string, fs *FileScan) fact.FileRole {
	base := strings.ToLower(filepath.Base(rel))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "test" || part == "tests" || part == "__tests__" {
			return fact.RoleTest
		}
	}
	if strings.HasSuffix(stem, "_test") || strings.HasPrefix(stem, "test_") ||
		strings.Contains(base, ".test.") || strings.Contains(base, ".spec.") {
		return fact.RoleTest
	}

	if fs.Syntax.HasMainGuard {
		return fact.RoleEntryPoint
	}
	switch base {
	case "main.go", "__main__.py", "index.ts", "index.js", "app.py", "cli.py", "main.py", "main.rs":
		return fact.RoleEntryPoint
	}
	if fs.Metrics.Language == "go" {
		for _, fn := range fs.Syntax.Functions {
			if fn.Name == "main" {
				return fact.RoleEntryPoint
			}
		}
	}

	switch stem {
	case "config", "settings", "conf", "setup", "options":
		return fact.RoleConfig
	case "util", "utils", "helpers", "helper", "common", "misc":
		return fact.RoleUtil
	}
	return fact.RoleCore
}
