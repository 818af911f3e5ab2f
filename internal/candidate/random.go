package candidate

import (
	"math/rand/v2"

	"hashsearch/internal/pattern"
)

// Random samples candidates independently: for each segment a repeat count
// is drawn uniformly from [min, max] and every slot picks a class member or
// an alternative uniformly. Draws may repeat and the stream never ends.
type Random struct {
	segments []pattern.Segment
	rng      *rand.Rand
	buf      []rune
}

// NewRandom returns a sampler over p seeded with seed. Two samplers with the
// same seed produce the same sequence.
func NewRandom(p *pattern.Pattern, seed uint64) *Random {
	return &Random{
		segments: p.Segments(),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Next draws a fresh candidate; ok is always true.
func (r *Random) Next() (string, bool) {
	r.buf = r.draw(r.buf[:0], r.segments)
	return string(r.buf), true
}

func (r *Random) draw(buf []rune, segs []pattern.Segment) []rune {
	for _, seg := range segs {
		switch s := seg.(type) {
		case pattern.Literal:
			buf = append(buf, s.Char)
		case pattern.Class:
			for n := r.repeat(s.Min, s.Max); n > 0; n-- {
				buf = append(buf, s.Chars[r.rng.IntN(len(s.Chars))])
			}
		case pattern.Alternation:
			for n := r.repeat(s.Min, s.Max); n > 0; n-- {
				alt := s.Alternatives[r.rng.IntN(len(s.Alternatives))]
				buf = r.draw(buf, alt.Segments())
			}
		}
	}
	return buf
}

func (r *Random) repeat(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.rng.IntN(max-min+1)
}
