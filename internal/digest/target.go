package digest

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseTarget decodes a hexadecimal digest for alg. Surrounding whitespace and
// a leading "0x" are ignored and either letter case is accepted. The decoded
// length must equal alg.Size.
func ParseTarget(text string, alg Algorithm) ([]byte, error) {
	s := strings.TrimSpace(text)
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if len(b) != alg.Size {
		return nil, fmt.Errorf("%w: %s digests are %d bytes (%d hex chars), got %d bytes",
			ErrTargetLength, alg.Name, alg.Size, alg.Size*2, len(b))
	}
	return b, nil
}

// Equal compares a and b from the first byte onward and returns at the first
// mismatch. It is not constant time; targets are not secrets here.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
