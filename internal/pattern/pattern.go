package pattern

import (
	"math/big"
	"strconv"
	"strings"
)

// Segment is one position of a compiled Pattern: a Literal, a Class or an
// Alternation. Segments are immutable once compiled; callers must not modify
// the slices they expose.
type Segment interface {
	// Bounds returns the inclusive repetition range of the segment.
	Bounds() (min, max int)
	isSegment()
}

// Literal is exactly one fixed character.
type Literal struct {
	Char rune
}

// Class draws one character from Chars, repeated Min..Max times.
type Class struct {
	Chars []rune
	Min   int
	Max   int
}

// Alternation picks exactly one of Alternatives per repetition slot,
// repeated Min..Max times.
type Alternation struct {
	Alternatives []*Pattern
	Min          int
	Max          int
}

func (Literal) Bounds() (int, int)       { return 1, 1 }
func (c Class) Bounds() (int, int)       { return c.Min, c.Max }
func (a Alternation) Bounds() (int, int) { return a.Min, a.Max }

func (Literal) isSegment()     {}
func (Class) isSegment()       {}
func (Alternation) isSegment() {}

// Pattern is an ordered sequence of segments compiled from pattern text.
// It is safe for concurrent read-only use by any number of workers.
type Pattern struct {
	source   string
	segments []Segment
	size     *big.Int
}

func newPattern(source string, segments []Segment) *Pattern {
	p := &Pattern{
		source:   source,
		segments: segments,
		size:     big.NewInt(1),
	}
	for _, seg := range segments {
		p.size.Mul(p.size, segmentSize(seg))
	}
	return p
}

// String returns the pattern text the Pattern was compiled from.
func (p *Pattern) String() string {
	return p.source
}

// Len returns the number of top-level segments.
func (p *Pattern) Len() int {
	return len(p.segments)
}

// Segments returns a copy of the top-level segment sequence.
func (p *Pattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// Size returns the number of distinct instantiations of the pattern: the
// product over segments of the sum, across every repeat count k in
// [min, max], of choices^k.
func (p *Pattern) Size() *big.Int {
	return new(big.Int).Set(p.size)
}

// SlotChoices returns the number of choices a single repetition slot of seg
// has: 1 for a literal, the member count for a class and the summed sizes of
// the alternatives for an alternation.
func SlotChoices(seg Segment) *big.Int {
	switch s := seg.(type) {
	case Literal:
		return big.NewInt(1)
	case Class:
		return big.NewInt(int64(len(s.Chars)))
	case Alternation:
		total := new(big.Int)
		for _, alt := range s.Alternatives {
			total.Add(total, alt.size)
		}
		return total
	default:
		return new(big.Int)
	}
}

func segmentSize(seg Segment) *big.Int {
	min, max := seg.Bounds()
	return RepeatSpan(SlotChoices(seg), min, max)
}

// RepeatSpan returns the sum of choices^k for k in [min, max].
func RepeatSpan(choices *big.Int, min, max int) *big.Int {
	total := new(big.Int)
	if max < min {
		return total
	}
	if choices.IsInt64() && choices.Int64() == 1 {
		return total.SetInt64(int64(max - min + 1))
	}
	power := new(big.Int).Exp(choices, big.NewInt(int64(min)), nil)
	for k := min; k <= max; k++ {
		total.Add(total, power)
		power.Mul(power, choices)
	}
	return total
}

// Describe renders the compiled structure, mainly for diagnostics.
func (p *Pattern) Describe() string {
	var b strings.Builder
	describeSegments(&b, p.segments)
	return b.String()
}

func describeSegments(b *strings.Builder, segs []Segment) {
	for i, seg := range segs {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch s := seg.(type) {
		case Literal:
			b.WriteString("lit(")
			b.WriteRune(s.Char)
			b.WriteByte(')')
		case Class:
			b.WriteString("class[")
			b.WriteString(string(s.Chars))
			b.WriteByte(']')
			writeBounds(b, s.Min, s.Max)
		case Alternation:
			b.WriteString("alt(")
			for j, alt := range s.Alternatives {
				if j > 0 {
					b.WriteString(" | ")
				}
				describeSegments(b, alt.segments)
			}
			b.WriteByte(')')
			writeBounds(b, s.Min, s.Max)
		}
	}
}

func writeBounds(b *strings.Builder, min, max int) {
	if min == 1 && max == 1 {
		return
	}
	b.WriteByte('{')
	b.WriteString(strconv.Itoa(min))
	if max != min {
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(max))
	}
	b.WriteByte('}')
}
