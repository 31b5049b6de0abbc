// Package normalize caps the number of retained reads per amplicon so
// coverage is even across a tiling scheme.
package normalize

import "sort"

// Bucket identifies one depth counter. Reverse is always false when the
// tracker pools strands.
type Bucket struct {
	Amplicon int
	Reverse  bool
}

// Tracker holds running per-amplicon retained read counts for one pass
// over a coordinate sorted stream. The keep/drop decision depends on
// visitation order, so a Tracker must only be used from a single
// sequential pass; it is not safe for concurrent use.
type Tracker struct {
	target      int
	strandAware bool
	counts      map[Bucket]int
}

// NewTracker returns a Tracker enforcing a ceiling of target retained
// reads per amplicon. When strandAware is true, forward and reverse
// oriented reads are counted separately so each orientation gets up to
// target slots; otherwise both orientations share one pooled counter.
// A target of 0 disables the ceiling.
func NewTracker(target int, strandAware bool) *Tracker {
	return &Tracker{
		target:      target,
		strandAware: strandAware,
		counts:      make(map[Bucket]int),
	}
}

// Keep decides whether a read assigned to amplicon should be retained,
// counting it against the amplicon's ceiling only when kept. Callers
// must invoke Keep exactly once per read that survived trimming.
func (t *Tracker) Keep(amplicon int, reverse bool) bool {
	b := Bucket{Amplicon: amplicon}
	if t.strandAware {
		b.Reverse = reverse
	}
	if t.target > 0 && t.counts[b] >= t.target {
		return false
	}
	t.counts[b]++
	return true
}

// Depth returns the retained read count for an amplicon, summed across
// strand buckets.
func (t *Tracker) Depth(amplicon int) int {
	return t.counts[Bucket{Amplicon: amplicon}] + t.counts[Bucket{Amplicon: amplicon, Reverse: true}]
}

// Buckets returns all counted buckets sorted by amplicon id, forward
// strand first, for deterministic reporting.
func (t *Tracker) Buckets() []Bucket {
	ans := make([]Bucket, 0, len(t.counts))
	for b := range t.counts {
		ans = append(ans, b)
	}
	sort.Slice(ans, func(i, j int) bool {
		if ans[i].Amplicon != ans[j].Amplicon {
			return ans[i].Amplicon < ans[j].Amplicon
		}
		return !ans[i].Reverse && ans[j].Reverse
	})
	return ans
}

// Count returns the retained read count for a single bucket.
func (t *Tracker) Count(b Bucket) int {
	return t.counts[b]
}
