package pattern

// Match reports whether s is one of the candidates the pattern can produce.
func (p *Pattern) Match(s string) bool {
	rs := []rune(s)
	return matchSegments(p.segments, rs, 0, func(pos int) bool {
		return pos == len(rs)
	})
}

// matchSegments tries every way segs can consume rs from pos and calls done
// with the end position of each; it stops at the first accepted end.
func matchSegments(segs []Segment, rs []rune, pos int, done func(int) bool) bool {
	if len(segs) == 0 {
		return done(pos)
	}
	rest := segs[1:]
	next := func(end int) bool {
		return matchSegments(rest, rs, end, done)
	}

	switch s := segs[0].(type) {
	case Literal:
		return pos < len(rs) && rs[pos] == s.Char && next(pos+1)
	case Class:
		for n := 0; n <= s.Max; n++ {
			if n >= s.Min && next(pos+n) {
				return true
			}
			if pos+n >= len(rs) || !containsRune(s.Chars, rs[pos+n]) {
				return false
			}
		}
		return false
	case Alternation:
		return matchRepeat(s, 0, rs, pos, next)
	}
	return false
}

func matchRepeat(a Alternation, count int, rs []rune, pos int, next func(int) bool) bool {
	if count >= a.Min && next(pos) {
		return true
	}
	if count == a.Max {
		return false
	}
	for _, alt := range a.Alternatives {
		if matchSegments(alt.segments, rs, pos, func(end int) bool {
			return matchRepeat(a, count+1, rs, end, next)
		}) {
			return true
		}
	}
	return false
}

func containsRune(set []rune, r rune) bool {
	for _, c := range set {
		if c == r {
			return true
		}
	}
	return false
}
