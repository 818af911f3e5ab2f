// Package digest holds the fixed set of hash algorithms a search can target,
// decodes hexadecimal target digests and compares digests byte by byte.
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"io"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrUnsupportedAlgorithm is returned by Lookup for unknown names.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")
	// ErrInvalidTarget is returned by ParseTarget for malformed hex input.
	ErrInvalidTarget = errors.New("invalid target digest")
	// ErrTargetLength is returned by ParseTarget when the decoded length does
	// not match the algorithm's digest size.
	ErrTargetLength = errors.New("target digest length mismatch")
)

// Algorithm describes one supported hash function.
type Algorithm struct {
	Name string
	Size int
	new  func() hash.Hash
}

// NewHasher returns a hasher that owns its own hash state. Each worker holds
// one; a Hasher is not safe for concurrent use.
func (a Algorithm) NewHasher() *Hasher {
	h := a.new()
	return &Hasher{h: h, sum: make([]byte, 0, h.Size())}
}

func (a Algorithm) String() string { return a.Name }

// Hasher computes digests of candidate strings, reusing its state and output
// buffer between calls.
type Hasher struct {
	h   hash.Hash
	sum []byte
}

// Sum returns the digest of candidate. The returned slice is overwritten by
// the next call.
func (h *Hasher) Sum(candidate string) []byte {
	h.h.Reset()
	_, _ = io.WriteString(h.h, candidate)
	h.sum = h.h.Sum(h.sum[:0])
	return h.sum
}

func mustKeyless(f func([]byte) (hash.Hash, error)) func() hash.Hash {
	return func() hash.Hash {
		h, err := f(nil)
		if err != nil {
			panic(fmt.Sprintf("digest: keyless constructor failed: %v", err))
		}
		return h
	}
}

var registry = []Algorithm{
	{Name: "MD4", Size: md4.Size, new: md4.New},
	{Name: "MD5", Size: md5.Size, new: md5.New},
	{Name: "SHA-1", Size: sha1.Size, new: sha1.New},
	{Name: "SHA-224", Size: sha256.Size224, new: sha256.New224},
	{Name: "SHA-256", Size: sha256.Size, new: sha256.New},
	{Name: "SHA-384", Size: sha512.Size384, new: sha512.New384},
	{Name: "SHA-512", Size: sha512.Size, new: sha512.New},
	{Name: "SHA-512/224", Size: sha512.Size224, new: sha512.New512_224},
	{Name: "SHA-512/256", Size: sha512.Size256, new: sha512.New512_256},
	{Name: "SHA3-224", Size: 28, new: func() hash.Hash { return sha3.New224() }},
	{Name: "SHA3-256", Size: 32, new: func() hash.Hash { return sha3.New256() }},
	{Name: "SHA3-384", Size: 48, new: func() hash.Hash { return sha3.New384() }},
	{Name: "SHA3-512", Size: 64, new: func() hash.Hash { return sha3.New512() }},
	{Name: "BLAKE2s-256", Size: blake2s.Size, new: mustKeyless(blake2s.New256)},
	{Name: "BLAKE2b-256", Size: blake2b.Size256, new: mustKeyless(blake2b.New256)},
	{Name: "BLAKE2b-384", Size: blake2b.Size384, new: mustKeyless(blake2b.New384)},
	{Name: "BLAKE2b-512", Size: blake2b.Size, new: mustKeyless(blake2b.New512)},
	{Name: "RIPEMD-160", Size: ripemd160.Size, new: ripemd160.New},
}

var byKey = func() map[string]Algorithm {
	m := make(map[string]Algorithm, len(registry))
	for _, a := range registry {
		m[normalize(a.Name)] = a
	}
	return m
}()

func normalize(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return strings.NewReplacer("-", "", "_", "").Replace(name)
}

// Lookup resolves an algorithm by name. Matching ignores case, dashes and
// underscores, so "sha256", "SHA-256" and "sha_256" are the same algorithm.
func Lookup(name string) (Algorithm, error) {
	a, ok := byKey[normalize(name)]
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedAlgorithm, name, strings.Join(Names(), ", "))
	}
	return a, nil
}

// All returns every supported algorithm in registry order.
func All() []Algorithm {
	return append([]Algorithm(nil), registry...)
}

// Names returns the canonical algorithm names, sorted.
func Names() []string {
	names := make([]string, len(registry))
	for i, a := range registry {
		names[i] = a.Name
	}
	sort.Strings(names)
	return names
}
