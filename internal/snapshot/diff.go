package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"insight/internal/fact"
	"insight/internal/stats"
	"insight/internal/temporal"
)

// LifecycleStatus classifies a finding between two snapshots.
type LifecycleStatus string

const (
	LifecycleNew        LifecycleStatus = "NEW"
	LifecyclePersisting LifecycleStatus = "PERSISTING"
	LifecycleResolved   LifecycleStatus = "RESOLVED"
	LifecycleRegression LifecycleStatus = "REGRESSION"
)

// ClassifyLifecycle maps presence in the two endpoint snapshots plus any
// intermediate resolution to a lifecycle status. The empty string means
// the finding never existed in either endpoint.
func ClassifyLifecycle(inFrom, inTo, resolvedBetween bool) LifecycleStatus {
	switch {
	case inTo && resolvedBetween:
		return LifecycleRegression
	case inTo && inFrom:
		return LifecyclePersisting
	case inTo:
		return LifecycleNew
	case inFrom:
		return LifecycleResolved
	default:
		return ""
	}
}

// Trend is the polarity-aware direction of a signal series.
type Trend string

const (
	TrendImproving Trend = "IMPROVING"
	TrendWorsening Trend = "WORSENING"
	TrendFlat      Trend = "FLAT"
)

// SeriesStats summarizes one signal's evolution across snapshots.
type SeriesStats struct {
	Delta        float64         `json:"delta"`
	Velocity     float64         `json:"velocity"`
	Acceleration float64         `json:"acceleration"`
	Volatility   float64         `json:"volatility"`
	Trajectory   fact.Trajectory `json:"trajectory"`
	Trend        Trend           `json:"trend"`
}

// trendWindow is the rolling-mean window for trend direction.
const trendWindow = 3

// AnalyzeSeries computes the time-series statistics of one signal. The
// trend direction consults the signal's polarity: a rising HIGH_IS_BAD
// signal worsens, a rising HIGH_IS_GOOD signal improves. Raw sign is
// never used directly.
func AnalyzeSeries(values []float64, polarity fact.Polarity) SeriesStats {
	s := SeriesStats{}
	if len(values) == 0 {
		s.Trajectory = fact.TrajDormant
		s.Trend = TrendFlat
		return s
	}
	s.Delta = values[len(values)-1] - values[0]
	s.Velocity = stats.OLSSlope(values)
	s.Volatility = stats.CoefficientOfVariation(values)

	if n := len(values); n >= 4 {
		half := n / 2
		older := stats.OLSSlope(values[:half])
		recent := stats.OLSSlope(values[half:])
		s.Acceleration = recent - older
	}

	s.Trajectory = temporal.ClassifyTrajectory(len(values), s.Velocity, s.Volatility)

	direction := rollingDirection(values)
	switch {
	case direction == 0 || polarity == fact.Neutral:
		s.Trend = TrendFlat
	case (direction > 0) == (polarity == fact.HighIsBad):
		s.Trend = TrendWorsening
	default:
		s.Trend = TrendImproving
	}
	return s
}

// rollingDirection is the sign of the rolling-mean change over the
// series.
func rollingDirection(values []float64) int {
	if len(values) < 2 {
		return 0
	}
	means := make([]float64, 0, len(values))
	for i := range values {
		lo := i - trendWindow + 1
		if lo < 0 {
			lo = 0
		}
		means = append(means, stats.Mean(values[lo:i+1]))
	}
	diff := means[len(means)-1] - means[0]
	switch {
	case diff > 1e-12:
		return 1
	case diff < -1e-12:
		return -1
	default:
		return 0
	}
}

// RemapFindingID rewrites the file paths inside a finding identity key
// through a rename map, so a finding on a moved file keeps its identity.
// The target part re-sorts because pair identities are order-free.
func RemapFindingID(id string, renames map[string]string) string {
	if len(renames) == 0 {
		return id
	}
	colon := strings.IndexByte(id, ':')
	if colon < 0 {
		return id
	}
	name, rest := id[:colon], id[colon+1:]
	if rest == "" {
		return id
	}
	parts := strings.Split(rest, "|")
	for i, p := range parts {
		if renamed, ok := renames[p]; ok {
			parts[i] = renamed
		}
	}
	sort.Strings(parts)
	return name + ":" + strings.Join(parts, "|")
}

// FindingChange is one finding's lifecycle between two snapshots.
type FindingChange struct {
	ID     string          `json:"id"`
	Status LifecycleStatus `json:"status"`
}

// SignalChange is one entity/signal series between two snapshots.
type SignalChange struct {
	EntityKey string      `json:"entityKey"`
	Signal    string      `json:"signal"`
	Stats     SeriesStats `json:"stats"`
}

// Diff is the full comparison of two snapshots.
type Diff struct {
	From     Meta            `json:"from"`
	To       Meta            `json:"to"`
	Findings []FindingChange `json:"findings"`
	Signals  []SignalChange  `json:"signals"`
}

// findingsAt returns the open finding ids recorded for a snapshot.
func (s *Store) findingsAt(snapshotID string) (map[string]bool, error) {
	rows, err := s.db.Query(`
		SELECT finding_id FROM finding_lifecycle
		WHERE snapshot_id = ? AND status = 'open'`, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

// resolvedBetween returns finding ids recorded as resolved in snapshots
// strictly between the two endpoints.
func (s *Store) resolvedBetween(fromTs, toTs int64) (map[string]bool, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT fl.finding_id FROM finding_lifecycle fl
		JOIN snapshots sn ON sn.id = fl.snapshot_id
		WHERE fl.status = 'resolved' AND sn.timestamp > ? AND sn.timestamp < ?`,
		fromTs, toTs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *Store) meta(id string) (Meta, error) {
	rec, err := s.LoadSnapshot(id)
	if err != nil {
		return Meta{}, fmt.Errorf("loading snapshot %s: %w", id, err)
	}
	return Meta{
		ID:           rec.ID,
		Timestamp:    rec.Timestamp,
		CommitSHA:    rec.CommitSHA,
		FileCount:    rec.FileCount,
		FindingCount: rec.FindingCount,
		Health:       rec.Health,
	}, nil
}

// Diff compares two snapshots: finding lifecycle (rename-aware through
// the rename map, keyed old path -> new path) and per-signal series
// statistics across the inclusive snapshot window.
func (s *Store) Diff(fromID, toID string, renames map[string]string) (*Diff, error) {
	from, err := s.meta(fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.meta(toID)
	if err != nil {
		return nil, err
	}

	fromFindings, err := s.findingsAt(fromID)
	if err != nil {
		return nil, err
	}
	toFindings, err := s.findingsAt(toID)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolvedBetween(from.Timestamp.Unix(), to.Timestamp.Unix())
	if err != nil {
		return nil, err
	}

	// Remap the older snapshot's identities onto current paths.
	remappedFrom := make(map[string]bool, len(fromFindings))
	for id := range fromFindings {
		remappedFrom[RemapFindingID(id, renames)] = true
	}

	all := make(map[string]bool)
	for id := range remappedFrom {
		all[id] = true
	}
	for id := range toFindings {
		all[id] = true
	}

	diff := &Diff{From: from, To: to}
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		status := ClassifyLifecycle(remappedFrom[id], toFindings[id], resolved[id])
		if status == "" {
			continue
		}
		diff.Findings = append(diff.Findings, FindingChange{ID: id, Status: status})
	}

	changes, err := s.seriesBetween(from.Timestamp.Unix(), to.Timestamp.Unix())
	if err != nil {
		return nil, err
	}
	diff.Signals = changes
	return diff, nil
}

// seriesBetween builds series stats for every entity/signal pair with
// history inside the window.
func (s *Store) seriesBetween(fromTs, toTs int64) ([]SignalChange, error) {
	rows, err := s.db.Query(`
		SELECT sh.entity_key, sh.signal, sh.value FROM signal_history sh
		JOIN snapshots sn ON sn.id = sh.snapshot_id
		WHERE sn.timestamp >= ? AND sn.timestamp <= ?
		ORDER BY sh.entity_key, sh.signal, sn.timestamp ASC, sn.id ASC`,
		fromTs, toTs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type key struct{ entity, signal string }
	series := make(map[key][]float64)
	var order []key
	for rows.Next() {
		var k key
		var v float64
		if err := rows.Scan(&k.entity, &k.signal, &v); err != nil {
			return nil, err
		}
		if _, seen := series[k]; !seen {
			order = append(order, k)
		}
		series[k] = append(series[k], v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []SignalChange
	for _, k := range order {
		values := series[k]
		if len(values) < 2 {
			continue
		}
		polarity := fact.Neutral
		if sig, ok := fact.SignalByName(k.signal); ok {
			polarity = sig.Def().Polarity
		}
		out = append(out, SignalChange{
			EntityKey: k.entity,
			Signal:    k.signal,
			Stats:     AnalyzeSeries(values, polarity),
		})
	}
	return out, nil
}
