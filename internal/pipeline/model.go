package pipeline

import (
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"insight/internal/backends/scan"
	"insight/internal/fact"
	"insight/internal/graph"
	"insight/internal/stats"
)

// cochange edges at or below this lift, or below this joint support, are
// noise and are not materialized as relations.
const (
	cochangeMinLift  = 1.0
	cochangeMinJoint = 2
)

// model is the Model stage: it populates the fact store from the two
// collect spines, resolves imports into relations, and freezes the
// import graph. Runs single-threaded; every later stage reads what it
// lays down.
func (st *runState) model(paths []string, goModule string) {
	store := st.store

	for _, path := range paths {
		lang := ""
		if sd := st.scans[path]; sd != nil {
			lang = sd.language
		}
		store.AddFile(path, lang)
	}

	// Collect-phase signals.
	for _, f := range store.Files() {
		sd := st.scans[f.Path]
		if sd == nil || sd.parseFailed {
			// Parse failure: entity kept, structural signals absent.
			if sd != nil && sd.lines > 0 {
				store.Set(f.ID(), fact.SigLines, fact.Int(int64(sd.lines)))
			}
			continue
		}
		id := f.ID()
		store.Set(id, fact.SigLines, fact.Int(int64(sd.lines)))
		store.Set(id, fact.SigFunctionCount, fact.Int(int64(sd.functionCount)))
		store.Set(id, fact.SigClassCount, fact.Int(int64(sd.classCount)))
		store.Set(id, fact.SigMaxNesting, fact.Int(int64(sd.maxNesting)))
		store.Set(id, fact.SigImportCount, fact.Int(int64(sd.importCount)))
		store.Set(id, fact.SigRole, fact.Enum(int(sd.role)))
		store.Set(id, fact.SigImplGini, fact.Float(stats.Gini(sd.bodyTokenSizes)))
		store.Set(id, fact.SigTodoDensity, fact.Float(float64(sd.todoCount)/maxf(float64(sd.lines), 1)))
		if sd.declarations > 0 {
			store.Set(id, fact.SigDocstringCoverage, fact.Float(float64(sd.docComments)/float64(sd.declarations)))
		} else {
			store.Set(id, fact.SigDocstringCoverage, fact.Float(1))
		}
		if sd.functionCount > 0 {
			store.Set(id, fact.SigStubRatio, fact.Float(float64(sd.stubCount)/float64(sd.functionCount)))
		} else {
			store.Set(id, fact.SigStubRatio, fact.Float(0))
		}
		store.Set(id, fact.SigBrokenCallCount, fact.Int(0))
	}

	// Import resolution into relations and unresolved edges.
	resolver := scan.NewResolver(paths, goModule)
	for _, f := range store.Files() {
		sd := st.scans[f.Path]
		if sd == nil {
			continue
		}
		phantoms := 0
		for _, imp := range sd.imports {
			resolved, external := resolver.Resolve(imp.source, f.Path)
			weight := math.Max(float64(len(imp.names)), 1)
			viaNames := false
			if resolved == "" && !external && len(imp.names) > 0 {
				// "from X import name" may name a module, not a symbol.
				for _, name := range imp.names {
					if r2, ext2 := resolver.Resolve(joinModulePath(imp.source, name), f.Path); r2 != "" && !ext2 {
						store.AddRelation(fact.RelImports, f.ID(), fact.FileID(r2), 1)
						viaNames = true
					}
				}
			}
			switch {
			case external:
				// External packages are filtered, never recorded.
			case resolved != "":
				store.AddRelation(fact.RelImports, f.ID(), fact.FileID(resolved), weight)
			case viaNames:
			default:
				phantoms++
				store.AddUnresolved(fact.UnresolvedEdge{
					Source:    f.Path,
					TargetRef: imp.source,
					Kind:      fact.PhantomImport,
				})
			}
		}
		store.Set(f.ID(), fact.SigPhantomImportCount, fact.Int(int64(phantoms)))
	}

	// Degrees after edge collapse.
	for _, f := range store.Files() {
		id := f.ID()
		store.Set(id, fact.SigInDegree, fact.Int(int64(len(store.Relations().Incoming(id, fact.RelImports)))))
		store.Set(id, fact.SigOutDegree, fact.Int(int64(len(store.Relations().Outgoing(id, fact.RelImports)))))
	}

	// Freeze the import graph: every file is a node, edges from the
	// collapsed relations.
	b := graph.NewBuilder()
	for _, f := range store.Files() {
		b.AddNode(f.Path)
	}
	for _, f := range store.Files() {
		for _, e := range store.Relations().Outgoing(f.ID(), fact.RelImports) {
			b.AddEdge(e.From.Key, e.To.Key, e.Weight)
		}
	}
	st.graph = b.Build()

	st.modelTemporal()
}

// modelTemporal folds the temporal spine's entities and relations into
// the store: authors, authorship edges, and significant co-change pairs.
func (st *runState) modelTemporal() {
	store := st.store
	res := st.temporal
	if res == nil || res.TotalCommits == 0 {
		return
	}

	emails := make([]string, 0, len(res.Authors))
	for e := range res.Authors {
		emails = append(emails, e)
	}
	for _, email := range scanSorted(emails) {
		store.AddAuthor(email, res.AuthorNames[email])
	}

	for _, f := range store.Files() {
		fh := res.Files[f.Path]
		if fh == nil {
			continue
		}
		authorEmails := make([]string, 0, len(fh.AuthorCommits))
		for e := range fh.AuthorCommits {
			authorEmails = append(authorEmails, e)
		}
		for _, email := range scanSorted(authorEmails) {
			store.AddRelation(fact.RelAuthoredBy, f.ID(), fact.AuthorID(email), float64(fh.AuthorCommits[email]))
		}
	}

	for _, pair := range res.Pairs {
		if pair.Lift <= cochangeMinLift || pair.Joint < cochangeMinJoint {
			continue
		}
		a, okA := store.FileByPath(pair.A)
		bf, okB := store.FileByPath(pair.B)
		if !okA || !okB {
			continue
		}
		store.AddRelation(fact.RelCochangesWith, a.ID(), bf.ID(), pair.Lift)
	}
}

// readGoModule extracts the module path from go.mod at the root, "" when
// absent.
func readGoModule(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return ""
	}
	m := goModuleRe.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(string(m[1]))
}

var goModuleRe = regexp.MustCompile(`(?m)^module\s+(\S+)`)

// joinModulePath joins a dotted module prefix and a member name,
// respecting trailing-dot relative prefixes ("." + "helpers").
func joinModulePath(source, name string) string {
	if strings.HasSuffix(source, ".") {
		return source + name
	}
	return source + "." + name
}

// toScanData converts a FileScan into the pipeline's working record.
func toScanData(fs *scan.FileScan) *scanData {
	sd := &scanData{
		lines:         fs.Metrics.Lines,
		language:      fs.Metrics.Language,
		functionCount: fs.Metrics.FunctionCount,
		classCount:    fs.Metrics.ClassCount,
		importCount:   fs.Metrics.ImportCount,
		maxNesting:    fs.Syntax.MaxNesting,
		role:          fs.Role,
		todoCount:     fs.TodoCount,
		docComments:   fs.DocComments,
		declarations:  fs.Declarations,
		content:       fs.Content,
	}
	for _, fn := range fs.Syntax.Functions {
		if fn.IsStub {
			sd.stubCount++
		}
		sd.bodyTokenSizes = append(sd.bodyTokenSizes, float64(len(fn.BodyTokens)))
		sd.functionTokens = append(sd.functionTokens, fn.BodyTokens)
		sd.fileTokens = append(sd.fileTokens, fn.SignatureTokens...)
		sd.fileTokens = append(sd.fileTokens, fn.BodyTokens...)
	}
	for _, cls := range fs.Syntax.Classes {
		sd.symbolCount++
		if cls.IsAbstract {
			sd.abstractCount++
		}
		sd.fileTokens = append(sd.fileTokens, scan.Tokenize(cls.Name)...)
	}
	sd.symbolCount += fs.Metrics.FunctionCount
	for _, imp := range fs.Metrics.Imports {
		sd.imports = append(sd.imports, resolvedImport{source: imp.Source, names: imp.Names})
	}
	return sd
}

// scanSorted sorts strings ascending (helper shared by model steps).
func scanSorted(xs []string) []string {
	return fact.SortFilesByPath(xs)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
