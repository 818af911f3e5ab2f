package candidate

import (
	"fmt"
	"math/big"

	"hashsearch/internal/pattern"
)

var bigOne = big.NewInt(1)

// Lexicographic enumerates a pattern as a mixed-radix odometer: every
// segment is one digit, the rightmost segment varies fastest, and within a
// segment repeat counts ascend from min to max. Every instantiation is
// produced exactly once, in the same order on every run.
type Lexicographic struct {
	cursor  *seqCursor
	pos     *big.Int
	end     *big.Int
	started bool
	buf     []rune
}

// NewLexicographic returns a stream over the candidates of p whose indices
// fall in r. The stream is positioned at r.Start without producing any of
// the earlier candidates.
func NewLexicographic(p *pattern.Pattern, r Range) (*Lexicographic, error) {
	size := p.Size()
	if r.Start == nil || r.End == nil {
		return nil, fmt.Errorf("candidate: range bounds must be set")
	}
	if r.Start.Sign() < 0 || r.End.Cmp(size) > 0 || r.Start.Cmp(r.End) > 0 {
		return nil, fmt.Errorf("candidate: range %s outside [0, %s)", r, size)
	}

	l := &Lexicographic{
		cursor: newSeqCursor(p.Segments()),
		pos:    new(big.Int).Set(r.Start),
		end:    new(big.Int).Set(r.End),
	}
	if l.pos.Cmp(l.end) < 0 {
		l.cursor.seek(l.pos)
	}
	return l, nil
}

// Next returns the candidate at the current offset and advances.
func (l *Lexicographic) Next() (string, bool) {
	if l.pos.Cmp(l.end) >= 0 {
		return "", false
	}
	if l.started {
		l.cursor.next()
	}
	l.started = true
	l.buf = l.cursor.appendTo(l.buf[:0])
	l.pos.Add(l.pos, bigOne)
	return string(l.buf), true
}

// Offset returns the index of the next candidate Next would produce.
func (l *Lexicographic) Offset() *big.Int {
	return new(big.Int).Set(l.pos)
}

// At returns the candidate at index idx of p's lexicographic order.
func At(p *pattern.Pattern, idx *big.Int) (string, error) {
	if idx.Sign() < 0 || idx.Cmp(p.Size()) >= 0 {
		return "", fmt.Errorf("candidate: index %s outside [0, %s)", idx, p.Size())
	}
	c := newSeqCursor(p.Segments())
	c.seek(idx)
	return string(c.appendTo(nil)), nil
}

// cursor is one digit of the odometer. next advances it and reports false
// when it wraps back to its first instantiation, signalling a carry.
type cursor interface {
	seek(idx *big.Int)
	next() bool
	appendTo(buf []rune) []rune
}

type seqCursor struct {
	parts []cursor
	sizes []*big.Int
}

func newSeqCursor(segs []pattern.Segment) *seqCursor {
	c := &seqCursor{
		parts: make([]cursor, len(segs)),
		sizes: make([]*big.Int, len(segs)),
	}
	for i, seg := range segs {
		min, max := seg.Bounds()
		c.sizes[i] = pattern.RepeatSpan(pattern.SlotChoices(seg), min, max)
		switch s := seg.(type) {
		case pattern.Literal:
			c.parts[i] = literalCursor(s.Char)
		case pattern.Class:
			c.parts[i] = newClassCursor(s)
		case pattern.Alternation:
			c.parts[i] = newAltCursor(s)
		}
	}
	return c
}

func (c *seqCursor) seek(idx *big.Int) {
	q := new(big.Int).Set(idx)
	r := new(big.Int)
	for i := len(c.parts) - 1; i >= 0; i-- {
		q.QuoRem(q, c.sizes[i], r)
		c.parts[i].seek(r)
	}
}

func (c *seqCursor) next() bool {
	for i := len(c.parts) - 1; i >= 0; i-- {
		if c.parts[i].next() {
			return true
		}
	}
	return false
}

func (c *seqCursor) appendTo(buf []rune) []rune {
	for _, part := range c.parts {
		buf = part.appendTo(buf)
	}
	return buf
}

type literalCursor rune

func (literalCursor) seek(*big.Int) {}
func (literalCursor) next() bool    { return false }

func (l literalCursor) appendTo(buf []rune) []rune {
	return append(buf, rune(l))
}

type classCursor struct {
	chars  []rune
	min    int
	max    int
	digits []int
}

func newClassCursor(c pattern.Class) *classCursor {
	return &classCursor{
		chars:  c.Chars,
		min:    c.Min,
		max:    c.Max,
		digits: make([]int, c.Min, c.Max),
	}
}

func (c *classCursor) seek(idx *big.Int) {
	base := big.NewInt(int64(len(c.chars)))
	rem := new(big.Int).Set(idx)
	k := c.min
	span := new(big.Int).Exp(base, big.NewInt(int64(k)), nil)
	for k < c.max && rem.Cmp(span) >= 0 {
		rem.Sub(rem, span)
		span.Mul(span, base)
		k++
	}

	c.digits = c.digits[:0]
	for i := 0; i < k; i++ {
		c.digits = append(c.digits, 0)
	}
	d := new(big.Int)
	for i := k - 1; i >= 0; i-- {
		rem.QuoRem(rem, base, d)
		c.digits[i] = int(d.Int64())
	}
}

func (c *classCursor) next() bool {
	for i := len(c.digits) - 1; i >= 0; i-- {
		c.digits[i]++
		if c.digits[i] < len(c.chars) {
			return true
		}
		c.digits[i] = 0
	}
	if len(c.digits) < c.max {
		c.digits = append(c.digits, 0)
		return true
	}
	c.digits = c.digits[:c.min]
	return false
}

func (c *classCursor) appendTo(buf []rune) []rune {
	for _, d := range c.digits {
		buf = append(buf, c.chars[d])
	}
	return buf
}

// altSlot is one repetition of an alternation: which alternative is chosen
// and the cursors of each alternative, built on first use.
type altSlot struct {
	alt     int
	cursors []*seqCursor
}

type altCursor struct {
	alts     []*pattern.Pattern
	altSizes []*big.Int
	slotSize *big.Int
	min      int
	max      int
	slots    []*altSlot
}

func newAltCursor(a pattern.Alternation) *altCursor {
	c := &altCursor{
		alts:     a.Alternatives,
		altSizes: make([]*big.Int, len(a.Alternatives)),
		slotSize: pattern.SlotChoices(a),
		min:      a.Min,
		max:      a.Max,
	}
	for i, alt := range a.Alternatives {
		c.altSizes[i] = alt.Size()
	}
	for i := 0; i < a.Min; i++ {
		c.slots = append(c.slots, c.newSlot())
	}
	return c
}

func (c *altCursor) newSlot() *altSlot {
	s := &altSlot{cursors: make([]*seqCursor, len(c.alts))}
	c.reset(s, 0)
	return s
}

func (c *altCursor) cursorFor(s *altSlot, alt int) *seqCursor {
	if s.cursors[alt] == nil {
		s.cursors[alt] = newSeqCursor(c.alts[alt].Segments())
	}
	return s.cursors[alt]
}

func (c *altCursor) reset(s *altSlot, alt int) {
	s.alt = alt
	c.cursorFor(s, alt).seek(new(big.Int))
}

func (c *altCursor) seek(idx *big.Int) {
	rem := new(big.Int).Set(idx)
	k := c.min
	span := new(big.Int).Exp(c.slotSize, big.NewInt(int64(k)), nil)
	for k < c.max && rem.Cmp(span) >= 0 {
		rem.Sub(rem, span)
		span.Mul(span, c.slotSize)
		k++
	}

	for len(c.slots) < k {
		c.slots = append(c.slots, c.newSlot())
	}
	c.slots = c.slots[:k]
	d := new(big.Int)
	for i := k - 1; i >= 0; i-- {
		rem.QuoRem(rem, c.slotSize, d)
		slot := c.slots[i]
		for j, size := range c.altSizes {
			if d.Cmp(size) < 0 {
				slot.alt = j
				c.cursorFor(slot, j).seek(d)
				break
			}
			d.Sub(d, size)
		}
	}
}

func (c *altCursor) next() bool {
	for i := len(c.slots) - 1; i >= 0; i-- {
		slot := c.slots[i]
		if c.cursorFor(slot, slot.alt).next() {
			return true
		}
		if slot.alt+1 < len(c.alts) {
			c.reset(slot, slot.alt+1)
			return true
		}
		c.reset(slot, 0)
	}
	if len(c.slots) < c.max {
		c.slots = append(c.slots, c.newSlot())
		return true
	}
	c.slots = c.slots[:c.min]
	return false
}

func (c *altCursor) appendTo(buf []rune) []rune {
	for _, slot := range c.slots {
		buf = c.cursorFor(slot, slot.alt).appendTo(buf)
	}
	return buf
}
