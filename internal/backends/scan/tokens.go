package scan

import (
	"regexp"
	"strings"
)

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// stopTokens are language keywords and noise words excluded from token
// streams so TF-IDF and concept extraction see domain vocabulary only.
var stopTokens = map[string]bool{
	"func": true, "return": true, "if": true, "else": true, "for": true,
	"range": true, "var": true, "const": true, "type": true, "struct": true,
	"interface": true, "package": true, "import": true, "def": true,
	"class": true, "self": true, "none": true, "true": true, "false": true,
	"nil": true, "null": true, "while": true, "switch": true, "case": true,
	"break": true, "continue": true, "pass": true, "from": true, "as": true,
	"in": true, "is": true, "not": true, "and": true, "or": true,
	"new": true, "this": true, "let": true, "export": true, "default": true,
	"public": true, "private": true, "static": true, "void": true,
	"int": true, "string": true, "bool": true, "float": true, "err": true,
	"error": true, "fn": true, "pub": true, "use": true, "mut": true,
	"impl": true, "match": true, "try": true, "except": true, "raise": true,
	"with": true, "lambda": true, "await": true, "async": true,
}

// Tokenize splits source text into lowercase identifier tokens: camelCase
// and snake_case identifiers decompose into their words, keywords and
// one-letter fragments drop out.
func Tokenize(text string) []string {
	var out []string
	for _, ident := range identifierRe.FindAllString(text, -1) {
		for _, word := range splitIdentifier(ident) {
			if len(word) < 2 || stopTokens[word] {
				continue
			}
			out = append(out, word)
		}
	}
	return out
}

// splitIdentifier breaks an identifier into lowercase words.
func splitIdentifier(ident string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	runes := []rune(ident)
	for i, r := range runes {
		switch {
		case r == '_':
			flush()
		case r >= 'A' && r <= 'Z':
			// Boundary unless continuing an acronym (HTTPServer).
			if i > 0 && runes[i-1] >= 'a' && runes[i-1] <= 'z' {
				flush()
			} else if i > 0 && i+1 < len(runes) && runes[i-1] >= 'A' && runes[i-1] <= 'Z' && runes[i+1] >= 'a' && runes[i+1] <= 'z' {
				flush()
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}
