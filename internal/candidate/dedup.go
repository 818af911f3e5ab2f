package candidate

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// maxConsecutiveRepeats bounds how many recently seen candidates Dedup skips
// in a row before letting one through, so spaces smaller than the window
// cannot stall a worker.
const maxConsecutiveRepeats = 64

// Dedup wraps a stream and skips candidates produced within the last window
// draws.
type Dedup struct {
	inner   Stream
	seen    *lru.Cache[string, struct{}]
	skipped uint64
}

// NewDedup wraps inner with an LRU window of the given size. A non-positive
// window returns inner unchanged.
func NewDedup(inner Stream, window int) Stream {
	if window <= 0 {
		return inner
	}
	seen, err := lru.New[string, struct{}](window)
	if err != nil {
		return inner
	}
	return &Dedup{inner: inner, seen: seen}
}

// Next returns the next candidate not seen within the window.
func (d *Dedup) Next() (string, bool) {
	for repeats := 0; ; repeats++ {
		s, ok := d.inner.Next()
		if !ok {
			return "", false
		}
		if repeats < maxConsecutiveRepeats && d.seen.Contains(s) {
			d.skipped++
			continue
		}
		d.seen.Add(s, struct{}{})
		return s, true
	}
}

// Skipped reports how many candidates were dropped as repeats.
func (d *Dedup) Skipped() uint64 {
	return d.skipped
}
