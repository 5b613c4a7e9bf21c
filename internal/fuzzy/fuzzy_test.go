package fuzzy

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/irs527-splitter/internal/registry"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

func TestTokenSort(t *testing.T) {
	assert.Equal(t, "friends jane of", TokenSort("  jane   friends of "))
	assert.Equal(t, "", TokenSort("   "))
}

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"abc", "abc", 100},
		{"", "", 100},
		{"abc", "", 0},
		{"abc", "xyz", 0},
		// LCS "ittn" = 4, 200*4/13 = 61.5
		{"kitten", "sitting", 61},
		// LCS 3 of 3+4 runes, 85.7
		{"abc", "abcd", 85},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Ratio(tt.a, tt.b))
			assert.Equal(t, tt.want, Ratio(tt.b, tt.a))
		})
	}
}

func TestTokenSortRatio_IgnoresWordOrder(t *testing.T) {
	assert.Equal(t, 100, TokenSortRatio("jane friends of", "friends of jane"))
	assert.Less(t, Ratio("jane friends of", "friends of jane"), 100)
}

func TestLCS_BitParallelMatchesTable(t *testing.T) {
	rng := rand.New(rand.NewSource(527))
	alphabet := []rune("ab cé")

	randomRunes := func(n int) []rune {
		out := make([]rune, n)
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return out
	}

	for i := 0; i < 500; i++ {
		a := randomRunes(rng.Intn(80))
		b := randomRunes(rng.Intn(80))
		require.Equal(t, lcsTable(a, b), lcsLength(a, b), "a=%q b=%q", string(a), string(b))
	}
}

func TestLCS_SixtyFourRunePattern(t *testing.T) {
	a := []rune("abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyzabcdefghijkl")
	require.Len(t, a, 64)

	assert.Equal(t, 64, newPattern(a).lcs(a))
	assert.Equal(t, lcsTable(a, []rune("zyx abc")), newPattern(a).lcs([]rune("zyx abc")))
}

func TestRatioBound(t *testing.T) {
	assert.Equal(t, 100, ratioBound(0, 0))
	assert.Equal(t, 0, ratioBound(0, 5))
	assert.Equal(t, 66, ratioBound(2, 4))
	for la := 0; la < 10; la++ {
		for lb := 0; lb < 10; lb++ {
			a := []rune("aaaaaaaaaa")[:la]
			b := []rune("aaaaaaaaaa")[:lb]
			assert.GreaterOrEqual(t, ratioBound(la, lb), ratioRunes(a, b))
		}
	}
}

func TestMatcher_Match(t *testing.T) {
	m := NewMatcher(registry.New("Friends Of Jane", "Citizens For Change"))

	got := m.Match("jane friends of")
	assert.Equal(t, types.MatchResult{Name: "friends of jane", Score: 100}, got)
	assert.True(t, got.Matched())

	got = m.Match("Citizens for Chang")
	assert.Equal(t, "citizens for change", got.Name)
	assert.GreaterOrEqual(t, got.Score, 90)
}

func TestMatcher_EmptyCandidate(t *testing.T) {
	m := NewMatcher(registry.New("friends of jane"))

	got := m.Match("")
	assert.False(t, got.Matched())
	assert.Equal(t, 0, got.Score)

	stats := m.Stats()
	assert.Equal(t, int64(0), stats.Comparisons)
	assert.Equal(t, 0, stats.CacheSize)
}

func TestMatcher_EmptyRegistry(t *testing.T) {
	m := NewMatcher(registry.New())

	got := m.Match("friends of jane")
	assert.Equal(t, types.MatchResult{}, got)
}

func TestMatcher_Memoizes(t *testing.T) {
	m := NewMatcher(registry.New("friends of jane", "citizens for change", "people for parks"))

	first := m.Match("Citizens For Progress")
	afterFirst := m.Stats().Comparisons
	require.Positive(t, afterFirst)

	second := m.Match("CITIZENS FOR PROGRESS")
	stats := m.Stats()

	assert.Equal(t, first, second)
	assert.Equal(t, afterFirst, stats.Comparisons)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(1), stats.CacheMisses)
	assert.Equal(t, 1, stats.CacheSize)
}

func TestMatcher_TiesGoToFirstName(t *testing.T) {
	m := NewMatcher(registry.New("abe", "abd"))

	// Both score 66; "abd" sorts first.
	assert.Equal(t, types.MatchResult{Name: "abd", Score: 66}, m.Match("abc"))
}

func TestMatcher_AgreesWithExhaustiveScan(t *testing.T) {
	names := []string{
		"friends of jane",
		"citizens for change",
		"people for parks",
		"committee to elect bob smith",
		"smith for senate",
		"a",
		"the very long name of a political action committee that keeps going past sixty four runes",
	}
	reg := registry.New(names...)
	m := NewMatcher(reg)

	queries := []string{
		"bob smith committee",
		"senate smith",
		"parks",
		"x",
		"political action committee of a very long name that keeps going past sixty four runes too",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			var want types.MatchResult
			for i, name := range reg.Names() {
				score := TokenSortRatio(q, name)
				if i == 0 || score > want.Score {
					want = types.MatchResult{Name: name, Score: score}
				}
			}
			assert.Equal(t, want, m.Match(q))
		})
	}
}

func TestMatcher_Concurrent(t *testing.T) {
	m := NewMatcher(registry.New("friends of jane", "citizens for change", "people for parks"))
	queries := []string{"jane friends", "change citizens", "parks people", "unrelated"}

	want := make(map[string]types.MatchResult, len(queries))
	for _, q := range queries {
		want[q] = NewMatcher(registry.New("friends of jane", "citizens for change", "people for parks")).Match(q)
	}

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q := queries[i%len(queries)]
				assert.Equal(t, want[q], m.Match(q))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(queries), m.Stats().CacheSize)
}
