package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashsearch/internal/pattern"
)

func TestRandomDrawsMatchPattern(t *testing.T) {
	for _, text := range []string{
		"[a-z]{3,8}",
		"(cat|dog)[0-9]{0,2}!",
		"p(a|b(c|d){0,2}){1,3}q",
		"",
	} {
		t.Run(text, func(t *testing.T) {
			p := pattern.MustCompile(text)
			r := NewRandom(p, 42)
			for i := 0; i < 500; i++ {
				c, ok := r.Next()
				require.True(t, ok)
				assert.True(t, p.Match(c), "draw %q rejected", c)
			}
		})
	}
}

func TestRandomIsReproducibleBySeed(t *testing.T) {
	p := pattern.MustCompile("[a-f0-9]{8}")
	a, b, other := NewRandom(p, 7), NewRandom(p, 7), NewRandom(p, 8)

	var sa, sb, so []string
	for i := 0; i < 50; i++ {
		x, _ := a.Next()
		y, _ := b.Next()
		z, _ := other.Next()
		sa, sb, so = append(sa, x), append(sb, y), append(so, z)
	}
	assert.Equal(t, sa, sb)
	assert.NotEqual(t, sa, so)
}

func TestRandomCoversAlternatives(t *testing.T) {
	p := pattern.MustCompile("(ab|cd|ef)")
	r := NewRandom(p, 1)
	seen := map[string]int{}
	for i := 0; i < 300; i++ {
		c, _ := r.Next()
		seen[c]++
	}
	assert.Len(t, seen, 3)
}
