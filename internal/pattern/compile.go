package pattern

import "fmt"

// MaxRepeat bounds a single repetition count.
const MaxRepeat = 4096

// DefaultAlphabet is the set of characters a pattern may produce unless the
// caller extends it: printable ASCII. Structural characters are only
// reachable through a backslash escape.
const DefaultAlphabet = " !\"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"

// CompileError reports a malformed pattern. Index is the rune offset of the
// offending character in the pattern text.
type CompileError struct {
	Pattern string
	Index   int
	Reason  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("pattern: %s at index %d in %q", e.Reason, e.Index, e.Pattern)
}

// Option customises compilation.
type Option func(*options)

type options struct {
	alphabet map[rune]struct{}
}

// WithAlphabet adds the characters of extra to the default alphabet.
func WithAlphabet(extra string) Option {
	return func(o *options) {
		for _, r := range extra {
			o.alphabet[r] = struct{}{}
		}
	}
}

// Compile parses text into a Pattern. Compilation is all-or-nothing: on error
// the returned Pattern is nil and the error is a *CompileError.
func Compile(text string, opts ...Option) (*Pattern, error) {
	o := options{alphabet: make(map[rune]struct{}, len(DefaultAlphabet))}
	for _, r := range DefaultAlphabet {
		o.alphabet[r] = struct{}{}
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &compiler{src: []rune(text), text: text, alphabet: o.alphabet}
	alts, err := c.alternatives(0)
	if err != nil {
		return nil, err
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return newPattern(text, []Segment{Alternation{Alternatives: alts, Min: 1, Max: 1}}), nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(text string, opts ...Option) *Pattern {
	p, err := Compile(text, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

type compiler struct {
	src      []rune
	text     string
	pos      int
	alphabet map[rune]struct{}
}

func (c *compiler) fail(index int, format string, args ...any) error {
	return &CompileError{Pattern: c.text, Index: index, Reason: fmt.Sprintf(format, args...)}
}

// alternatives parses '|'-separated sequences until end of input or an
// unconsumed ')'.
func (c *compiler) alternatives(depth int) ([]*Pattern, error) {
	var alts []*Pattern
	for {
		start := c.pos
		segs, err := c.sequence(depth)
		if err != nil {
			return nil, err
		}
		alts = append(alts, newPattern(string(c.src[start:c.pos]), segs))
		if c.pos < len(c.src) && c.src[c.pos] == '|' {
			c.pos++
			continue
		}
		return alts, nil
	}
}

func (c *compiler) sequence(depth int) ([]Segment, error) {
	var segs []Segment
	braced := false
	for c.pos < len(c.src) {
		r := c.src[c.pos]
		switch r {
		case '|':
			return segs, nil
		case ')':
			if depth == 0 {
				return nil, c.fail(c.pos, "unexpected ')'")
			}
			return segs, nil
		case '(':
			seg, err := c.group(depth)
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
			braced = false
		case '[':
			seg, err := c.class()
			if err != nil {
				return nil, err
			}
			segs = append(segs, seg)
			braced = false
		case ']', '}':
			return nil, c.fail(c.pos, "unexpected '%c'", r)
		case '{':
			if len(segs) == 0 {
				return nil, c.fail(c.pos, "repetition brace follows an empty expression")
			}
			if braced {
				return nil, c.fail(c.pos, "repetition already specified")
			}
			min, max, err := c.bounds()
			if err != nil {
				return nil, err
			}
			segs[len(segs)-1] = withBounds(segs[len(segs)-1], min, max)
			braced = true
		case '\\':
			if c.pos+1 >= len(c.src) {
				return nil, c.fail(c.pos, "trailing escape")
			}
			lit := c.src[c.pos+1]
			if err := c.checkAlphabet(c.pos+1, lit); err != nil {
				return nil, err
			}
			segs = append(segs, Literal{Char: lit})
			c.pos += 2
			braced = false
		default:
			if err := c.checkAlphabet(c.pos, r); err != nil {
				return nil, err
			}
			segs = append(segs, Literal{Char: r})
			c.pos++
			braced = false
		}
	}
	return segs, nil
}

func (c *compiler) group(depth int) (Segment, error) {
	open := c.pos
	c.pos++
	alts, err := c.alternatives(depth + 1)
	if err != nil {
		return nil, err
	}
	if c.pos >= len(c.src) || c.src[c.pos] != ')' {
		return nil, c.fail(open, "unterminated group")
	}
	c.pos++
	return Alternation{Alternatives: alts, Min: 1, Max: 1}, nil
}

func (c *compiler) class() (Segment, error) {
	open := c.pos
	c.pos++
	var members []rune
	seen := make(map[rune]struct{})
	add := func(index int, r rune) error {
		if err := c.checkAlphabet(index, r); err != nil {
			return err
		}
		if _, dup := seen[r]; dup {
			return nil
		}
		seen[r] = struct{}{}
		members = append(members, r)
		return nil
	}

	for {
		if c.pos >= len(c.src) {
			return nil, c.fail(open, "unterminated character class")
		}
		r := c.src[c.pos]
		switch {
		case r == ']':
			c.pos++
			if len(members) == 0 {
				return nil, c.fail(open, "empty character class")
			}
			return Class{Chars: members, Min: 1, Max: 1}, nil
		case r == '\\':
			if c.pos+1 >= len(c.src) {
				return nil, c.fail(c.pos, "trailing escape")
			}
			if err := add(c.pos+1, c.src[c.pos+1]); err != nil {
				return nil, err
			}
			c.pos += 2
		case c.pos+2 < len(c.src) && c.src[c.pos+1] == '-' && c.src[c.pos+2] != ']':
			lo, hi := r, c.src[c.pos+2]
			if !rangeCompatible(lo, hi) {
				return nil, c.fail(c.pos, "invalid range %c-%c", lo, hi)
			}
			step := rune(1)
			if hi < lo {
				step = -1
			}
			for x := lo; ; x += step {
				if err := add(c.pos, x); err != nil {
					return nil, err
				}
				if x == hi {
					break
				}
			}
			c.pos += 3
		default:
			if err := add(c.pos, r); err != nil {
				return nil, err
			}
			c.pos++
		}
	}
}

// bounds parses {min} or {min,max} starting at the opening brace.
func (c *compiler) bounds() (int, int, error) {
	open := c.pos
	c.pos++
	min, err := c.number(open)
	if err != nil {
		return 0, 0, err
	}
	max := min
	if c.pos < len(c.src) && c.src[c.pos] == ',' {
		c.pos++
		if c.pos < len(c.src) && c.src[c.pos] == '}' {
			return 0, 0, c.fail(c.pos, "unbounded repetition is not supported")
		}
		if max, err = c.number(open); err != nil {
			return 0, 0, err
		}
	}
	if c.pos >= len(c.src) {
		return 0, 0, c.fail(open, "unterminated repetition brace")
	}
	if c.src[c.pos] != '}' {
		return 0, 0, c.fail(c.pos, "unexpected %q in repetition brace", c.src[c.pos])
	}
	c.pos++
	if min > max {
		return 0, 0, c.fail(open, "repetition minimum %d exceeds maximum %d", min, max)
	}
	return min, max, nil
}

func (c *compiler) number(open int) (int, error) {
	start := c.pos
	n := 0
	for c.pos < len(c.src) && c.src[c.pos] >= '0' && c.src[c.pos] <= '9' {
		n = n*10 + int(c.src[c.pos]-'0')
		if n > MaxRepeat {
			return 0, c.fail(start, "repetition count exceeds %d", MaxRepeat)
		}
		c.pos++
	}
	if c.pos == start {
		if c.pos >= len(c.src) {
			return 0, c.fail(open, "unterminated repetition brace")
		}
		return 0, c.fail(c.pos, "expected digit in repetition brace")
	}
	return n, nil
}

func (c *compiler) checkAlphabet(index int, r rune) error {
	if _, ok := c.alphabet[r]; !ok {
		return c.fail(index, "character %q is not in the alphabet", r)
	}
	return nil
}

func withBounds(seg Segment, min, max int) Segment {
	switch s := seg.(type) {
	case Literal:
		return Class{Chars: []rune{s.Char}, Min: min, Max: max}
	case Class:
		s.Min, s.Max = min, max
		return s
	case Alternation:
		s.Min, s.Max = min, max
		return s
	}
	return seg
}

func rangeCompatible(lo, hi rune) bool {
	switch {
	case isLower(lo) && isLower(hi):
		return true
	case isUpper(lo) && isUpper(hi):
		return true
	case isDigit(lo) && isDigit(hi):
		return true
	}
	return false
}

func isLower(r rune) bool { return r >= 'a' && r <= 'z' }
func isUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isDigit(r rune) bool { return r >= '0' && r <= '9' }
