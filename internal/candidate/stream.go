// Package candidate turns a compiled pattern into a lazy stream of candidate
// strings, either in a fixed lexicographic order or by random sampling.
package candidate

import (
	"fmt"
	"math/big"

	"hashsearch/internal/pattern"
)

// Stream produces candidates one at a time. ok is false once a finite stream
// is exhausted; it never becomes true again afterwards.
//
// A Stream is owned by a single worker and is not safe for concurrent use.
type Stream interface {
	Next() (candidate string, ok bool)
}

// Range is the half-open index interval [Start, End) of a lexicographic
// enumeration.
type Range struct {
	Start *big.Int
	End   *big.Int
}

// Len returns End - Start.
func (r Range) Len() *big.Int {
	return new(big.Int).Sub(r.End, r.Start)
}

func (r Range) String() string {
	return fmt.Sprintf("[%s, %s)", r.Start, r.End)
}

// Full returns the range covering every candidate of p.
func Full(p *pattern.Pattern) Range {
	return Range{Start: new(big.Int), End: p.Size()}
}

// Partition splits [0, size) into n contiguous ranges whose lengths differ by
// at most one. Ranges are empty when size < n.
func Partition(size *big.Int, n int) []Range {
	if n < 1 {
		n = 1
	}
	parts := make([]Range, n)
	count := big.NewInt(int64(n))
	for i := 0; i < n; i++ {
		start := new(big.Int).Mul(size, big.NewInt(int64(i)))
		start.Quo(start, count)
		end := new(big.Int).Mul(size, big.NewInt(int64(i+1)))
		end.Quo(end, count)
		parts[i] = Range{Start: start, End: end}
	}
	return parts
}
