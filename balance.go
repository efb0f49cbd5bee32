package torrouter

import "math/rand"

// rotate returns a new slice with seq rotated left by n positions. The input
// is not modified. n is taken modulo len(seq); rotating an empty sequence
// returns it unchanged.
func rotate[T any](seq []T, n int) []T {
	if len(seq) == 0 {
		return seq
	}
	n %= len(seq)
	if n < 0 {
		n += len(seq)
	}
	out := make([]T, 0, len(seq))
	out = append(out, seq[n:]...)
	out = append(out, seq[:n]...)
	return out
}

// weightedEntry pairs an instance with its resolved selection weight.
type weightedEntry struct {
	inst   *Instance
	weight int
}

// weightedIndex is the cached weight table for the pool's current member
// set. The cached weights are only valid for a fixed membership; the pool
// discards the index on every add or remove.
type weightedIndex struct {
	entries []weightedEntry
	total   int
}

func newWeightedIndex(instances []*Instance) *weightedIndex {
	idx := &weightedIndex{
		entries: make([]weightedEntry, 0, len(instances)),
	}
	for _, inst := range instances {
		w := inst.Weight()
		idx.entries = append(idx.entries, weightedEntry{inst: inst, weight: w})
		idx.total += w
	}
	return idx
}

// permutation draws a full weighted random permutation of the indexed
// instances: sampling without replacement, where an entry's chance of being
// drawn next is its weight relative to the remaining total. The index itself
// is not modified, so consecutive draws are independent.
func (w *weightedIndex) permutation() []*Instance {
	remaining := make([]weightedEntry, len(w.entries))
	copy(remaining, w.entries)
	total := w.total

	out := make([]*Instance, 0, len(remaining))
	for len(remaining) > 0 {
		r := rand.Intn(total)
		pick := len(remaining) - 1
		for i, e := range remaining {
			if r < e.weight {
				pick = i
				break
			}
			r -= e.weight
		}
		picked := remaining[pick]
		out = append(out, picked.inst)
		total -= picked.weight
		remaining = append(remaining[:pick], remaining[pick+1:]...)
	}
	return out
}
