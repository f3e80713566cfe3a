package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/klauspost/compress/zstd"

	"insight/internal/fact"
)

// blobMajorVersion is the serialized fact store schema version. Readers
// reject blobs with an unknown major version.
const blobMajorVersion = 1

// entityRef is a portable entity handle.
type entityRef struct {
	Type int    `json:"type"`
	Key  string `json:"key"`
}

// signalRec is one stored signal value.
type signalRec struct {
	Entity entityRef  `json:"entity"`
	Signal string     `json:"signal"`
	Value  fact.Value `json:"value"`
}

// relationRec is one stored relation edge.
type relationRec struct {
	Type   int       `json:"type"`
	From   entityRef `json:"from"`
	To     entityRef `json:"to"`
	Weight float64   `json:"weight"`
}

// blob is the self-describing serialized fact store.
type blob struct {
	Version   int    `json:"version"`
	Root      string `json:"root"`
	CommitSHA string `json:"commitSha,omitempty"`

	Files []struct {
		Path     string `json:"path"`
		Language string `json:"language"`
		Module   string `json:"module,omitempty"`
	} `json:"files"`
	Modules []struct {
		Name string `json:"name"`
		Dir  string `json:"dir,omitempty"`
	} `json:"modules"`
	Authors []struct {
		Email string `json:"email"`
		Name  string `json:"name,omitempty"`
	} `json:"authors"`

	Signals    []signalRec           `json:"signals"`
	Relations  []relationRec         `json:"relations"`
	Unresolved []fact.UnresolvedEdge `json:"unresolved,omitempty"`
}

// Serialize encodes the fact store as zstd-compressed JSON.
func Serialize(store *fact.Store) ([]byte, error) {
	b := blob{
		Version:   blobMajorVersion,
		Root:      store.Codebase().Root,
		CommitSHA: store.Codebase().CommitSHA,
	}

	for _, f := range store.Files() {
		b.Files = append(b.Files, struct {
			Path     string `json:"path"`
			Language string `json:"language"`
			Module   string `json:"module,omitempty"`
		}{f.Path, f.Language, f.Module})
	}
	for _, m := range store.Modules() {
		b.Modules = append(b.Modules, struct {
			Name string `json:"name"`
			Dir  string `json:"dir,omitempty"`
		}{m.Name, m.Dir})
	}
	for _, a := range store.Authors() {
		b.Authors = append(b.Authors, struct {
			Email string `json:"email"`
			Name  string `json:"name,omitempty"`
		}{a.Email, a.Name})
	}

	for sig := fact.Signal(0); sig < fact.NumSignals; sig++ {
		def := sig.Def()
		switch def.Scope {
		case fact.ScopeFile:
			for _, f := range store.Files() {
				if v, ok := store.Get(f.ID(), sig); ok {
					b.Signals = append(b.Signals, signalRec{
						Entity: entityRef{Type: int(fact.EntityFile), Key: f.Path},
						Signal: def.Name,
						Value:  v,
					})
				}
			}
		case fact.ScopeModule:
			for _, m := range store.Modules() {
				if v, ok := store.Get(m.ID(), sig); ok {
					b.Signals = append(b.Signals, signalRec{
						Entity: entityRef{Type: int(fact.EntityModule), Key: m.Name},
						Signal: def.Name,
						Value:  v,
					})
				}
			}
		case fact.ScopeGlobal:
			if v, ok := store.Get(store.Codebase().ID(), sig); ok {
				b.Signals = append(b.Signals, signalRec{
					Entity: entityRef{Type: int(fact.EntityCodebase), Key: store.Codebase().Root},
					Signal: def.Name,
					Value:  v,
				})
			}
		}
	}

	for t := fact.RelationType(0); t <= fact.RelDependsOn; t++ {
		edges := store.Relations().All(t)
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].From.Key != edges[j].From.Key {
				return edges[i].From.Key < edges[j].From.Key
			}
			return edges[i].To.Key < edges[j].To.Key
		})
		for _, e := range edges {
			b.Relations = append(b.Relations, relationRec{
				Type:   int(t),
				From:   entityRef{Type: int(e.From.Type), Key: e.From.Key},
				To:     entityRef{Type: int(e.To.Type), Key: e.To.Key},
				Weight: e.Weight,
			})
		}
	}
	b.Unresolved = store.Unresolved()

	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot blob: %w", err)
	}

	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a snapshot blob back into a fact store. Blobs with
// an unknown major version are rejected.
func Deserialize(data []byte, logger *slog.Logger) (*fact.Store, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot blob: %w", err)
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot blob: %w", err)
	}

	var b blob
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("decoding snapshot blob: %w", err)
	}
	if b.Version != blobMajorVersion {
		return nil, fmt.Errorf("snapshot blob version %d not supported (want %d)", b.Version, blobMajorVersion)
	}

	store := fact.NewStore(b.Root, logger)
	store.Codebase().CommitSHA = b.CommitSHA
	for _, f := range b.Files {
		file := store.AddFile(f.Path, f.Language)
		file.Module = f.Module
	}
	for _, m := range b.Modules {
		store.AddModule(m.Name, m.Dir)
	}
	for _, a := range b.Authors {
		store.AddAuthor(a.Email, a.Name)
	}

	for _, rec := range b.Signals {
		sig, ok := fact.SignalByName(rec.Signal)
		if !ok {
			if logger != nil {
				logger.Warn("unknown signal in snapshot", "signal", rec.Signal)
			}
			continue
		}
		store.Set(fact.EntityID{Type: fact.EntityType(rec.Entity.Type), Key: rec.Entity.Key}, sig, rec.Value)
	}
	for _, rel := range b.Relations {
		store.AddRelation(fact.RelationType(rel.Type),
			fact.EntityID{Type: fact.EntityType(rel.From.Type), Key: rel.From.Key},
			fact.EntityID{Type: fact.EntityType(rel.To.Type), Key: rel.To.Key},
			rel.Weight)
	}
	for _, u := range b.Unresolved {
		store.AddUnresolved(u)
	}
	return store, nil
}
