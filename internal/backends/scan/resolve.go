package scan

import (
	"path"
	"strings"
)

// Resolver maps raw import strings to project files. It is a pure
// function of the known file set: no filesystem access after
// construction.
type Resolver struct {
	files     map[string]bool
	topLevels map[string]bool // first path segments present in the tree
	goModule  string          // module path from go.mod, "" if unknown
}

// NewResolver builds a resolver over the known root-relative file paths.
// goModule is the Go module path used to recognize project-internal Go
// imports.
func NewResolver(paths []string, goModule string) *Resolver {
	r := &Resolver{
		files:     make(map[string]bool, len(paths)),
		topLevels: make(map[string]bool),
		goModule:  goModule,
	}
	for _, p := range paths {
		r.files[p] = true
		if i := strings.IndexByte(p, '/'); i > 0 {
			r.topLevels[p[:i]] = true
		}
	}
	return r
}

// Resolve maps an import string to a root-relative file path.
// The second result reports whether the import is an external package:
// externals are silently dropped, while a project-internal-looking
// import with no target becomes a phantom.
func (r *Resolver) Resolve(importStr, importerPath string) (resolved string, external bool) {
	lang := languageFor(importerPath)
	if lang == nil {
		return "", true
	}
	switch lang.name {
	case "go":
		return r.resolveGo(importStr)
	case "python":
		return r.resolvePython(importStr, importerPath)
	case "typescript", "javascript":
		return r.resolveJS(importStr, importerPath)
	case "rust":
		return r.resolveRust(importStr, importerPath)
	case "java":
		return r.resolveJava(importStr)
	default:
		return "", true
	}
}

// candidate returns the path if it is a known file.
func (r *Resolver) candidate(p string) string {
	p = path.Clean(p)
	if r.files[p] {
		return p
	}
	return ""
}

// firstFileUnder returns the lexically first known file directly inside
// dir, used for package-granularity imports (Go).
func (r *Resolver) firstFileUnder(dir string) string {
	best := ""
	prefix := dir + "/"
	for f := range r.files {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rest := f[len(prefix):]
		if strings.ContainsRune(rest, '/') {
			continue
		}
		if best == "" || f < best {
			best = f
		}
	}
	return best
}

func (r *Resolver) resolveGo(importStr string) (string, bool) {
	if r.goModule != "" && (importStr == r.goModule || strings.HasPrefix(importStr, r.goModule+"/")) {
		dir := strings.TrimPrefix(strings.TrimPrefix(importStr, r.goModule), "/")
		if dir == "" {
			dir = "."
		}
		if f := r.firstFileUnder(dir); f != "" {
			return f, false
		}
		return "", false // module-prefixed but missing: phantom
	}
	// Domain-qualified first segment means a third-party module; a bare
	// segment is the standard library. Both are external.
	first := importStr
	if i := strings.IndexByte(importStr, '/'); i > 0 {
		first = importStr[:i]
	}
	if strings.ContainsRune(first, '.') {
		return "", true
	}
	if r.topLevels[first] {
		// Looks like an in-tree package referenced without the module
		// prefix.
		if f := r.firstFileUnder(importStr); f != "" {
			return f, false
		}
		return "", false
	}
	return "", true
}

func (r *Resolver) resolvePython(importStr, importerPath string) (string, bool) {
	if strings.HasPrefix(importStr, ".") {
		// Relative import: one dot is the importer's package, each
		// further dot ascends one level.
		dir := path.Dir(importerPath)
		rest := strings.TrimLeft(importStr, ".")
		for i := 1; i < len(importStr)-len(rest); i++ {
			dir = path.Dir(dir)
		}
		return r.pythonModuleFile(dir, rest), false
	}
	first := strings.SplitN(importStr, ".", 2)[0]
	if !r.topLevels[first] && !r.files[first+".py"] {
		return "", true
	}
	return r.pythonModuleFile("", importStr), false
}

// pythonModuleFile maps a dotted module path to a file.
func (r *Resolver) pythonModuleFile(baseDir, dotted string) string {
	rel := strings.ReplaceAll(dotted, ".", "/")
	base := rel
	if baseDir != "" && baseDir != "." {
		base = path.Join(baseDir, rel)
	}
	if f := r.candidate(base + ".py"); f != "" {
		return f
	}
	if f := r.candidate(path.Join(base, "__init__.py")); f != "" {
		return f
	}
	return ""
}

func (r *Resolver) resolveJS(importStr, importerPath string) (string, bool) {
	if !strings.HasPrefix(importStr, ".") {
		return "", true
	}
	base := path.Join(path.Dir(importerPath), importStr)
	exts := []string{"", ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"}
	for _, ext := range exts {
		if f := r.candidate(base + ext); f != "" {
			return f, false
		}
	}
	for _, ext := range exts[1:] {
		if f := r.candidate(path.Join(base, "index"+ext)); f != "" {
			return f, false
		}
	}
	return "", false
}

func (r *Resolver) resolveRust(importStr, importerPath string) (string, bool) {
	parts := strings.Split(importStr, "::")
	switch parts[0] {
	case "crate":
		parts = parts[1:]
	case "super":
		parts = parts[1:]
	case "self", "std", "core", "alloc":
		if parts[0] != "self" {
			return "", true
		}
		parts = parts[1:]
	default:
		if !r.topLevels[parts[0]] && !r.files[parts[0]+".rs"] && !r.files["src/"+parts[0]+".rs"] {
			return "", true
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	rel := strings.Join(parts, "/")
	for _, base := range []string{rel, "src/" + rel} {
		if f := r.candidate(base + ".rs"); f != "" {
			return f, false
		}
		if f := r.candidate(path.Join(base, "mod.rs")); f != "" {
			return f, false
		}
	}
	// Trailing segment may be a symbol, not a module.
	if len(parts) > 1 {
		rel = strings.Join(parts[:len(parts)-1], "/")
		for _, base := range []string{rel, "src/" + rel} {
			if f := r.candidate(base + ".rs"); f != "" {
				return f, false
			}
		}
	}
	return "", false
}

func (r *Resolver) resolveJava(importStr string) (string, bool) {
	rel := strings.ReplaceAll(importStr, ".", "/") + ".java"
	if f := r.candidate(rel); f != "" {
		return f, false
	}
	for _, prefix := range []string{"src/main/java/", "src/"} {
		if f := r.candidate(prefix + rel); f != "" {
			return f, false
		}
	}
	first := strings.SplitN(importStr, ".", 2)[0]
	if r.topLevels[first] {
		return "", false
	}
	return "", true
}
