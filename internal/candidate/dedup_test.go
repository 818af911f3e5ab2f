package candidate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hashsearch/internal/pattern"
)

type sliceStream struct {
	items []string
	i     int
}

func (s *sliceStream) Next() (string, bool) {
	if s.i >= len(s.items) {
		return "", false
	}
	s.i++
	return s.items[s.i-1], true
}

func TestDedupSkipsRecentRepeats(t *testing.T) {
	s := NewDedup(&sliceStream{items: []string{"a", "b", "a", "c", "b", "d"}}, 8)
	assert.Equal(t, []string{"a", "b", "c", "d"}, drain(t, s))
	assert.Equal(t, uint64(2), s.(*Dedup).Skipped())
}

func TestDedupWindowEvicts(t *testing.T) {
	s := NewDedup(&sliceStream{items: []string{"a", "b", "c", "a"}}, 2)
	assert.Equal(t, []string{"a", "b", "c", "a"}, drain(t, s))
}

func TestDedupDisabled(t *testing.T) {
	inner := &sliceStream{items: []string{"a"}}
	assert.Same(t, Stream(inner), NewDedup(inner, 0))
}

func TestDedupDoesNotStallOnTinySpace(t *testing.T) {
	p := pattern.MustCompile("[ab]")
	s := NewDedup(NewRandom(p, 3), 16)
	for i := 0; i < 100; i++ {
		c, ok := s.Next()
		require.True(t, ok)
		assert.Contains(t, []string{"a", "b"}, c)
	}
}
