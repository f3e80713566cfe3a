package fact

import (
	"log/slog"
	"sort"
)

// column is one dense per-entity slot array with an explicit presence
// bitmap. Absence is first-class: it is the sole degradation mechanism.
type column struct {
	present []bool
	values  []Value
}

func (c *column) grow(n int) {
	for len(c.present) < n {
		c.present = append(c.present, false)
		c.values = append(c.values, Value{})
	}
}

// Store is the blackboard: the typed container for entities, signals, and
// relations shared by collectors, derivers, and finders. Writers own their
// assigned signal slots; the relation indices become read-only after the
// Collect stage.
type Store struct {
	logger   *slog.Logger
	codebase *Codebase

	files     []*File
	fileIdx   map[string]int
	modules   []*Module
	moduleIdx map[string]int
	authors   []*Author
	authorIdx map[string]int

	fileCols   [NumSignals]column
	moduleCols [NumSignals]column
	globalVals [NumSignals]Value
	globalSet  [NumSignals]bool

	unavailable [NumSignals]bool

	relations  *Relations
	unresolved []UnresolvedEdge
}

// NewStore creates an empty store rooted at the codebase path.
func NewStore(root string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:    logger,
		codebase:  &Codebase{Root: root},
		fileIdx:   make(map[string]int),
		moduleIdx: make(map[string]int),
		authorIdx: make(map[string]int),
		relations: NewRelations(),
	}
}

// Codebase returns the root entity.
func (s *Store) Codebase() *Codebase { return s.codebase }

// Relations returns the typed multigraph.
func (s *Store) Relations() *Relations { return s.relations }

// AddFile registers a file entity, returning the existing one on repeat.
// Callers insert in sorted path order; iteration preserves insertion order.
func (s *Store) AddFile(path, language string) *File {
	if i, ok := s.fileIdx[path]; ok {
		return s.files[i]
	}
	f := &File{Path: path, Language: language, ordinal: len(s.files)}
	s.fileIdx[path] = f.ordinal
	s.files = append(s.files, f)
	for sig := Signal(0); sig < NumSignals; sig++ {
		if Registry[sig].Scope == ScopeFile {
			s.fileCols[sig].grow(len(s.files))
		}
	}
	return f
}

// AddModule registers a module entity.
func (s *Store) AddModule(name, dir string) *Module {
	if i, ok := s.moduleIdx[name]; ok {
		return s.modules[i]
	}
	m := &Module{Name: name, Dir: dir, ordinal: len(s.modules)}
	s.moduleIdx[name] = m.ordinal
	s.modules = append(s.modules, m)
	for sig := Signal(0); sig < NumSignals; sig++ {
		if Registry[sig].Scope == ScopeModule {
			s.moduleCols[sig].grow(len(s.modules))
		}
	}
	return m
}

// AddAuthor registers an author entity keyed by normalized email.
func (s *Store) AddAuthor(email, name string) *Author {
	if i, ok := s.authorIdx[email]; ok {
		return s.authors[i]
	}
	a := &Author{Email: email, Name: name, ordinal: len(s.authors)}
	s.authorIdx[email] = a.ordinal
	s.authors = append(s.authors, a)
	return a
}

// Files returns the file entities in insertion order.
func (s *Store) Files() []*File { return s.files }

// Modules returns the module entities in insertion order.
func (s *Store) Modules() []*Module { return s.modules }

// Authors returns the author entities in insertion order.
func (s *Store) Authors() []*Author { return s.authors }

// FileByPath looks up a file entity by root-relative path.
func (s *Store) FileByPath(path string) (*File, bool) {
	i, ok := s.fileIdx[path]
	if !ok {
		return nil, false
	}
	return s.files[i], true
}

// ModuleByName looks up a module entity by name.
func (s *Store) ModuleByName(name string) (*Module, bool) {
	i, ok := s.moduleIdx[name]
	if !ok {
		return nil, false
	}
	return s.modules[i], true
}

func (s *Store) slot(id EntityID, sig Signal) (*column, int, bool) {
	def := Registry[sig]
	switch def.Scope {
	case ScopeFile:
		if id.Type != EntityFile {
			return nil, 0, false
		}
		i, ok := s.fileIdx[id.Key]
		if !ok {
			return nil, 0, false
		}
		return &s.fileCols[sig], i, true
	case ScopeModule:
		if id.Type != EntityModule {
			return nil, 0, false
		}
		i, ok := s.moduleIdx[id.Key]
		if !ok {
			return nil, 0, false
		}
		return &s.moduleCols[sig], i, true
	default:
		return nil, 0, false
	}
}

// Set writes a signal value. Overwrite is allowed; a differing overwrite
// logs a warning (re-runs across stages are tolerated, intra-stage races
// are a bug the partitioning scheme prevents). Kind mismatches against the
// registry are dropped with an error log.
func (s *Store) Set(id EntityID, sig Signal, v Value) {
	def := Registry[sig]
	if v.Kind != def.Kind {
		s.logger.Error("signal kind mismatch", "signal", def.Name, "entity", id.Key, "got", int(v.Kind), "want", int(def.Kind))
		return
	}
	if def.Scope == ScopeGlobal {
		if s.globalSet[sig] && !s.globalVals[sig].Equal(v) {
			s.logger.Warn("overwriting global signal", "signal", def.Name)
		}
		s.globalVals[sig] = v
		s.globalSet[sig] = true
		return
	}
	col, i, ok := s.slot(id, sig)
	if !ok {
		s.logger.Error("signal write to unknown entity", "signal", def.Name, "entity", id.String())
		return
	}
	if col.present[i] && !col.values[i].Equal(v) {
		s.logger.Warn("overwriting signal", "signal", def.Name, "entity", id.Key)
	}
	col.values[i] = v
	col.present[i] = true
}

// Get retrieves a signal value; the second result reports presence.
func (s *Store) Get(id EntityID, sig Signal) (Value, bool) {
	def := Registry[sig]
	if def.Scope == ScopeGlobal {
		return s.globalVals[sig], s.globalSet[sig]
	}
	col, i, ok := s.slot(id, sig)
	if !ok || !col.present[i] {
		return Value{}, false
	}
	return col.values[i], true
}

// Float retrieves a numeric signal coerced to float64.
func (s *Store) Float(id EntityID, sig Signal) (float64, bool) {
	v, ok := s.Get(id, sig)
	if !ok {
		return 0, false
	}
	return v.AsFloat(), true
}

// Intv retrieves an int signal.
func (s *Store) Intv(id EntityID, sig Signal) (int64, bool) {
	v, ok := s.Get(id, sig)
	if !ok || v.Kind != KindInt {
		return 0, false
	}
	return v.I, true
}

// Boolv retrieves a bool signal.
func (s *Store) Boolv(id EntityID, sig Signal) (bool, bool) {
	v, ok := s.Get(id, sig)
	if !ok || v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// Enumv retrieves an enum signal's ordinal.
func (s *Store) Enumv(id EntityID, sig Signal) (int, bool) {
	v, ok := s.Get(id, sig)
	if !ok || v.Kind != KindEnum {
		return 0, false
	}
	return v.E, true
}

// MarkUnavailable records an explicit negative assertion: the signal's
// producer failed, so consumers must skip rather than wait.
func (s *Store) MarkUnavailable(sig Signal) {
	s.unavailable[sig] = true
	s.logger.Warn("signal marked unavailable", "signal", sig.String())
}

// Unavailable reports whether a signal was explicitly marked unavailable.
func (s *Store) Unavailable(sig Signal) bool {
	return s.unavailable[sig]
}

// Has reports coarse availability: at least one value present and the
// signal not marked unavailable.
func (s *Store) Has(sig Signal) bool {
	if s.unavailable[sig] {
		return false
	}
	def := Registry[sig]
	switch def.Scope {
	case ScopeGlobal:
		return s.globalSet[sig]
	case ScopeFile:
		for _, p := range s.fileCols[sig].present {
			if p {
				return true
			}
		}
	case ScopeModule:
		for _, p := range s.moduleCols[sig].present {
			if p {
				return true
			}
		}
	}
	return false
}

// AddRelation inserts a typed edge after validating both endpoints exist.
func (s *Store) AddRelation(t RelationType, from, to EntityID, weight float64) {
	if !s.hasEntity(from) || !s.hasEntity(to) {
		s.logger.Warn("relation endpoint missing", "type", t.String(), "from", from.Key, "to", to.Key)
		return
	}
	s.relations.add(t, from, to, weight)
}

func (s *Store) hasEntity(id EntityID) bool {
	switch id.Type {
	case EntityFile:
		_, ok := s.fileIdx[id.Key]
		return ok
	case EntityModule:
		_, ok := s.moduleIdx[id.Key]
		return ok
	case EntityAuthor:
		_, ok := s.authorIdx[id.Key]
		return ok
	case EntityCodebase:
		return id.Key == s.codebase.Root
	default:
		return false
	}
}

// AddUnresolved records a project-internal reference that failed to
// resolve.
func (s *Store) AddUnresolved(e UnresolvedEdge) {
	s.unresolved = append(s.unresolved, e)
}

// Unresolved returns the recorded unresolved references.
func (s *Store) Unresolved() []UnresolvedEdge { return s.unresolved }

// FileFloats collects a present-only sample of a numeric file signal,
// paired with the file ordinals it came from, in insertion order.
func (s *Store) FileFloats(sig Signal) (ordinals []int, values []float64) {
	col := &s.fileCols[sig]
	for i, p := range col.present {
		if p {
			ordinals = append(ordinals, i)
			values = append(values, col.values[i].AsFloat())
		}
	}
	return ordinals, values
}

// ModuleFloats collects a present-only sample of a numeric module signal.
func (s *Store) ModuleFloats(sig Signal) (ordinals []int, values []float64) {
	col := &s.moduleCols[sig]
	for i, p := range col.present {
		if p {
			ordinals = append(ordinals, i)
			values = append(values, col.values[i].AsFloat())
		}
	}
	return ordinals, values
}

// SortFilesByPath is a helper for collectors that discover files out of
// order: it returns the paths sorted so insertion order is deterministic.
func SortFilesByPath(paths []string) []string {
	out := make([]string, len(paths))
	copy(out, paths)
	sort.Strings(out)
	return out
}
