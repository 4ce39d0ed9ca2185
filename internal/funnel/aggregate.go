package funnel

import (
	"sort"
	"sync"

	"github.com/sells-group/leadfunnel/internal/model"
)

// Aggregator accumulates TeamStats for one run. Create one per run; it is
// safe for concurrent use.
type Aggregator struct {
	mu    sync.Mutex
	stats map[int64]*model.TeamStats
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{stats: make(map[int64]*model.TeamStats)}
}

// Observe records one classified conversation under teamID, creating the
// team's stats on first sight.
func (a *Aggregator) Observe(teamID int64, d model.Decision) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.stats[teamID]
	if !ok {
		s = model.NewTeamStats(teamID)
		a.stats[teamID] = s
	}
	s.Total++
	s.Buckets[d.Bucket]++
	if d.Flags.HasAnalysis {
		s.AnalysisAny++
		s.AnalysisSources[d.Flags.AnalysisSource]++
	}
	if d.Flags.IsDisqualified {
		s.Disqualified++
	}
	if d.Flags.IsResolved {
		s.Resolved++
	}
}

// Team returns a copy of one team's stats.
func (a *Aggregator) Team(teamID int64) (*model.TeamStats, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.stats[teamID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Snapshot returns copies of every team's stats ordered by team id.
func (a *Aggregator) Snapshot() []*model.TeamStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*model.TeamStats, 0, len(a.stats))
	for _, s := range a.stats {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TeamID < out[j].TeamID })
	return out
}
