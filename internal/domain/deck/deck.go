package deck

import "math/rand/v2"

// Source is satisfied by *rand.Rand from math/rand/v2.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

type Set map[string]struct{}

func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Draw returns up to n entries of pool whose id is not in resolved, picked
// uniformly without replacement with a partial Fisher-Yates shuffle.
// Entries sharing an id are drawn at most once.
func Draw[T any](rng Source, pool []T, id func(T) string, resolved Set, n int) []T {
	if n <= 0 || len(pool) == 0 {
		return []T{}
	}
	if rng == nil {
		rng = globalSource{}
	}

	seen := make(Set, len(pool))
	candidates := make([]T, 0, len(pool))
	for _, entry := range pool {
		key := id(entry)
		if resolved.Has(key) || seen.Has(key) {
			continue
		}
		seen[key] = struct{}{}
		candidates = append(candidates, entry)
	}

	k := min(n, len(candidates))
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:k:k]
}

func DrawIDs(rng Source, ids []string, resolved Set, n int) []string {
	return Draw(rng, ids, func(s string) string { return s }, resolved, n)
}
