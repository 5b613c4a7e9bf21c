// =============================================================================
// IRS 527 Splitter - Fuzzy Matcher
// =============================================================================
//
// The matcher answers one question for every expenditure record: which known
// organization does the recipient name look most like, and how much?
//
// MATCHING:
//   - names are compared with TokenSortRatio, so "jane friends of" and
//     "friends of jane" score 100
//   - every registry member is scored; the highest score wins
//   - ties go to the member that comes first in Registry.Names() order
//     (ascending byte order)
//
// CACHING:
//   A full scan is O(registry size), and real input repeats the same recipient
//   names many times. Results are memoized per lower-cased candidate. The
//   cache mutex is held only to look up and to insert, never while scoring,
//   so two workers missing on the same name at once may both compute it. They
//   compute the same result and the second insert overwrites the first with an
//   identical value.
//
// =============================================================================

package fuzzy

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ginjaninja78/irs527-splitter/internal/registry"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// candidate is a registry member prepared for scoring.
type candidate struct {
	name   string
	sorted []rune
}

// Matcher finds the closest registry member for a name. It is safe for
// concurrent use.
type Matcher struct {
	candidates []candidate

	mu    sync.Mutex
	cache map[string]types.MatchResult

	comparisons atomic.Int64
	hits        atomic.Int64
	misses      atomic.Int64
}

// Stats describes matcher activity.
type Stats struct {
	// Comparisons is the number of registry members examined.
	Comparisons int64

	// CacheHits and CacheMisses count Match calls with a non-empty name.
	CacheHits   int64
	CacheMisses int64

	// CacheSize is the number of distinct names memoized.
	CacheSize int
}

// NewMatcher prepares a matcher over a fully built registry.
func NewMatcher(reg *registry.Registry) *Matcher {
	names := reg.Names()
	candidates := make([]candidate, len(names))
	for i, name := range names {
		candidates[i] = candidate{
			name:   name,
			sorted: []rune(TokenSort(name)),
		}
	}

	return &Matcher{
		candidates: candidates,
		cache:      make(map[string]types.MatchResult),
	}
}

// Match returns the best registry match for name. An empty name yields a
// zero result without touching the cache.
func (m *Matcher) Match(name string) types.MatchResult {
	if name == "" {
		return types.MatchResult{}
	}

	key := strings.ToLower(name)

	m.mu.Lock()
	result, ok := m.cache[key]
	m.mu.Unlock()
	if ok {
		m.hits.Add(1)
		return result
	}
	m.misses.Add(1)

	result = m.scan(key)

	m.mu.Lock()
	m.cache[key] = result
	m.mu.Unlock()

	return result
}

// scan scores key against every candidate.
func (m *Matcher) scan(key string) types.MatchResult {
	query := []rune(TokenSort(key))

	var (
		best    types.MatchResult
		found   bool
		visited int64
		pat     *pattern
	)
	if len(query) > 0 && len(query) <= 64 {
		pat = newPattern(query)
	}

	for _, c := range m.candidates {
		visited++

		// A later candidate must beat the current best strictly to win.
		if found && ratioBound(len(query), len(c.sorted)) <= best.Score {
			continue
		}

		score := m.score(query, pat, c.sorted)
		if !found || score > best.Score {
			best = types.MatchResult{Name: c.name, Score: score}
			found = true
			if score == 100 {
				break
			}
		}
	}

	m.comparisons.Add(visited)
	return best
}

func (m *Matcher) score(query []rune, pat *pattern, target []rune) int {
	total := len(query) + len(target)
	if total == 0 {
		return 100
	}
	if pat == nil || len(target) == 0 {
		return ratioRunes(query, target)
	}
	return 200 * pat.lcs(target) / total
}

// Stats returns a snapshot of matcher counters.
func (m *Matcher) Stats() Stats {
	m.mu.Lock()
	size := len(m.cache)
	m.mu.Unlock()

	return Stats{
		Comparisons: m.comparisons.Load(),
		CacheHits:   m.hits.Load(),
		CacheMisses: m.misses.Load(),
		CacheSize:   size,
	}
}
