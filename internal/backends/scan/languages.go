package scan

import (
	"path/filepath"
	"regexp"
	"strings"
)

// language bundles the per-language scanning rules.
type language struct {
	name          string
	extensions    []string
	importRes     []*regexp.Regexp
	functionRe    *regexp.Regexp
	classRe       *regexp.Regexp
	abstractRe    *regexp.Regexp // declaration lines that count as abstract
	lineComment   string
	docComment    string
	indentNesting bool // nesting by indentation instead of braces
}

var languages = []*language{
	{
		name:       "go",
		extensions: []string{".go"},
		importRes: []*regexp.Regexp{
			regexp.MustCompile(`^\s*import\s+(?:\w+\s+)?"([^"]+)"`),
			regexp.MustCompile(`^\s*(?:\w+\s+)?"([^"]+)"\s*$`),
		},
		functionRe:  regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?(\w+)\s*\(`),
		classRe:     regexp.MustCompile(`^type\s+(\w+)\s+(struct|interface)\b`),
		abstractRe:  regexp.MustCompile(`^type\s+\w+\s+interface\b`),
		lineComment: "//",
		docComment:  "//",
	},
	{
		name:       "python",
		extensions: []string{".py", ".pyw"},
		importRes: []*regexp.Regexp{
			regexp.MustCompile(`^\s*from\s+([.\w]+)\s+import\s+(.+)`),
			regexp.MustCompile(`^\s*import\s+([.\w]+)`),
		},
		functionRe:    regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(`),
		classRe:       regexp.MustCompile(`^\s*class\s+(\w+)\s*(?:\(([^)]*)\))?\s*:`),
		abstractRe:    regexp.MustCompile(`\bABC\b|\babstractmethod\b|\bProtocol\b`),
		lineComment:   "#",
		docComment:    `"""`,
		indentNesting: true,
	},
	{
		name:       "typescript",
		extensions: []string{".ts", ".tsx", ".mts", ".cts"},
		importRes: []*regexp.Regexp{
			regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`),
			regexp.MustCompile(`export\s+.*?from\s+['"]([^'"]+)['"]`),
			regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`),
		},
		functionRe:  regexp.MustCompile(`(?:^|\s)(?:function\s+(\w+)|(\w+)\s*(?:=|:)\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>))`),
		classRe:     regexp.MustCompile(`(?:^|\s)(?:abstract\s+)?(?:class|interface)\s+(\w+)`),
		abstractRe:  regexp.MustCompile(`\babstract\s+class\b|\binterface\s+\w+`),
		lineComment: "//",
		docComment:  "/**",
	},
	{
		name:       "javascript",
		extensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		importRes: []*regexp.Regexp{
			regexp.MustCompile(`import\s+.*?from\s+['"]([^'"]+)['"]`),
			regexp.MustCompile(`require\s*\(\s*['"]([^'"]+)['"]\s*\)`),
		},
		functionRe:  regexp.MustCompile(`(?:^|\s)(?:function\s+(\w+)|(\w+)\s*(?:=|:)\s*(?:async\s+)?(?:function\b|\([^)]*\)\s*=>))`),
		classRe:     regexp.MustCompile(`(?:^|\s)class\s+(\w+)`),
		lineComment: "//",
		docComment:  "/**",
	},
	{
		name:       "rust",
		extensions: []string{".rs"},
		importRes: []*regexp.Regexp{
			regexp.MustCompile(`^\s*use\s+([\w:]+)`),
		},
		functionRe:  regexp.MustCompile(`^\s*(?:pub\s+)?(?:async\s+)?fn\s+(\w+)`),
		classRe:     regexp.MustCompile(`^\s*(?:pub\s+)?(?:struct|trait|enum)\s+(\w+)`),
		abstractRe:  regexp.MustCompile(`^\s*(?:pub\s+)?trait\s+\w+`),
		lineComment: "//",
		docComment:  "///",
	},
	{
		name:       "java",
		extensions: []string{".java"},
		importRes: []*regexp.Regexp{
			regexp.MustCompile(`^\s*import\s+([\w.]+)\s*;`),
		},
		functionRe:  regexp.MustCompile(`(?:public|private|protected|static|\s)+[\w<>\[\]]+\s+(\w+)\s*\([^)]*\)\s*(?:throws[^{]*)?\{`),
		classRe:     regexp.MustCompile(`(?:^|\s)(?:abstract\s+)?(?:class|interface|enum)\s+(\w+)`),
		abstractRe:  regexp.MustCompile(`\babstract\s+class\b|\binterface\s+\w+`),
		lineComment: "//",
		docComment:  "/**",
	},
}

var extToLanguage = func() map[string]*language {
	m := make(map[string]*language)
	for _, lang := range languages {
		for _, ext := range lang.extensions {
			m[ext] = lang
		}
	}
	return m
}()

// languageFor returns the language rules for a file path, or nil for
// unsupported extensions.
func languageFor(path string) *language {
	return extToLanguage[strings.ToLower(filepath.Ext(path))]
}

// SupportedExtensions lists every extension the scanner understands.
func SupportedExtensions() []string {
	var exts []string
	for _, lang := range languages {
		exts = append(exts, lang.extensions...)
	}
	return exts
}
