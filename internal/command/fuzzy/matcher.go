package fuzzy

import (
	"sort"
	"strings"
	"sync"
)

// Item is a searchable item.
type Item struct {
	// Text is the string matched against.
	Text string

	// Data is carried through to results.
	Data any
}

// Result is a scored match.
type Result struct {
	Item    Item
	Score   int
	Matches []int
}

// Options configures a Matcher.
type Options struct {
	// CacheSize is the number of cached queries. 0 disables caching.
	CacheSize int

	// MinScore excludes matches scoring at or below it.
	MinScore int

	// CaseSensitive disables case folding.
	CaseSensitive bool
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{CacheSize: 256}
}

// Matcher performs fuzzy matching over a set of items.
//
// Cached results are keyed by query only, so callers that change the item
// set between calls must call ClearCache.
type Matcher struct {
	mu      sync.RWMutex
	cache   *Cache
	scorer  Scorer
	options Options
}

// NewMatcher creates a matcher.
func NewMatcher(opts Options) *Matcher {
	m := &Matcher{scorer: DefaultWeights(), options: opts}
	if opts.CacheSize > 0 {
		m.cache = NewCache(opts.CacheSize)
	}
	return m
}

// SetScorer replaces the scoring algorithm and clears the cache.
func (m *Matcher) SetScorer(s Scorer) {
	m.mu.Lock()
	m.scorer = s
	m.mu.Unlock()
	m.ClearCache()
}

// Match returns the items matching query sorted by descending score, at
// most limit of them when limit > 0. An empty query returns the items in
// order with a zero score.
func (m *Matcher) Match(query string, items []Item, limit int) []Result {
	query = strings.TrimSpace(query)
	if !m.options.CaseSensitive {
		query = strings.ToLower(query)
	}
	if query == "" {
		n := len(items)
		if limit > 0 && limit < n {
			n = limit
		}
		out := make([]Result, n)
		for i := range out {
			out[i] = Result{Item: items[i]}
		}
		return out
	}

	if m.cache != nil {
		if cached := m.cache.Get(query); cached != nil {
			return applyLimit(cached, limit)
		}
	}

	q := []rune(query)
	results := make([]Result, 0, len(items))
	for _, item := range items {
		score, matches := m.matchItem(q, item.Text)
		if score > m.options.MinScore {
			results = append(results, Result{Item: item, Score: score, Matches: matches})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.Text < results[j].Item.Text
	})

	if m.cache != nil {
		m.cache.Set(query, results)
	}
	return applyLimit(results, limit)
}

// Score scores a single text against query, returning 0 when it does
// not match.
func (m *Matcher) Score(query, text string) int {
	query = strings.TrimSpace(query)
	if !m.options.CaseSensitive {
		query = strings.ToLower(query)
	}
	score, _ := m.matchItem([]rune(query), text)
	return score
}

// matchItem finds matched rune indices with a greedy left-to-right scan.
func (m *Matcher) matchItem(query []rune, text string) (int, []int) {
	if text == "" || len(query) == 0 {
		return 0, nil
	}
	original := []rune(text)
	folded := original
	if !m.options.CaseSensitive {
		folded = []rune(strings.ToLower(text))
	}
	// Case folding can change rune counts; fall back to the original.
	if len(folded) != len(original) {
		folded = original
	}

	matches := make([]int, 0, len(query))
	qi := 0
	for i := 0; i < len(folded) && qi < len(query); i++ {
		if folded[i] == query[qi] {
			matches = append(matches, i)
			qi++
		}
	}
	if qi != len(query) {
		return 0, nil
	}

	m.mu.RLock()
	scorer := m.scorer
	m.mu.RUnlock()
	return scorer.Score(query, original, folded, matches), matches
}

// ClearCache empties the result cache.
func (m *Matcher) ClearCache() {
	if m.cache != nil {
		m.cache.Clear()
	}
}

func applyLimit(results []Result, limit int) []Result {
	if limit <= 0 || limit >= len(results) {
		return results
	}
	return results[:limit]
}
