// Package catalog maintains a fuzzy-searchable snapshot of item names.
//
// The index is a rebuildable cache over the catalog, not a source of
// truth: it is refreshed after every successful commit and after admin
// stock edits, and staleness between rebuilds only ever degrades to
// "item not found", never to a wrong match.
package catalog

import (
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is loose enough to absorb one or two typos in short
// item names.
const DefaultThreshold = 0.6

// Match is a fuzzy search hit.
type Match struct {
	Name  string
	Score float64
}

// Index is a point-in-time snapshot of catalog item names with fuzzy
// lookup. Safe for concurrent use; Rebuild swaps the snapshot atomically.
type Index struct {
	mu        sync.RWMutex
	names     []string
	folded    []string
	threshold float64
}

// NewIndex creates an empty index. A threshold outside (0, 1] falls back
// to DefaultThreshold.
func NewIndex(threshold float64) *Index {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Index{threshold: threshold}
}

// Rebuild replaces the snapshot with the given item names.
func (i *Index) Rebuild(names []string) {
	snapshot := make([]string, len(names))
	folded := make([]string, len(names))
	for n, name := range names {
		snapshot[n] = name
		folded[n] = strings.ToLower(strings.TrimSpace(name))
	}

	i.mu.Lock()
	i.names = snapshot
	i.folded = folded
	i.mu.Unlock()
}

// Search returns the item names scoring at or above the threshold for
// the query, best match first. Ties break alphabetically so repeated
// searches are deterministic.
func (i *Index) Search(query string) []Match {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	var matches []Match
	for n, folded := range i.folded {
		score := similarity(q, folded)
		if score >= i.threshold {
			matches = append(matches, Match{Name: i.names[n], Score: score})
		}
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].Score != matches[b].Score {
			return matches[a].Score > matches[b].Score
		}
		return matches[a].Name < matches[b].Name
	})
	return matches
}

// Size returns the number of indexed names.
func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.names)
}

// similarity normalizes edit distance into [0, 1], where 1 is an exact
// match.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
