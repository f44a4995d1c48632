// Package random provides cryptographic-quality integer draws for room
// codes, board generation and trap placement. Engines take a Source so
// tests can substitute a deterministic one.
package random

import (
	"crypto/rand"
	"encoding/binary"
)

// Source draws uniformly distributed integers.
type Source interface {
	// Intn returns a uniform integer in [0, n). n must be > 0.
	Intn(n int) int
}

// New returns the crypto/rand backed default source.
func New() Source {
	return cryptoSource{}
}

type cryptoSource struct{}

// Intn uses rejection sampling to avoid modulo bias.
func (cryptoSource) Intn(n int) int {
	if n <= 0 {
		panic("random: Intn with non-positive n")
	}
	max := ^uint64(0)
	limit := max - max%uint64(n)
	var buf [8]byte
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			panic("random: crypto source failed: " + err.Error())
		}
		v := binary.BigEndian.Uint64(buf[:])
		if v < limit {
			return int(v % uint64(n))
		}
	}
}

// Shuffle performs a Fisher-Yates shuffle of n elements via swap.
func Shuffle(src Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		swap(i, j)
	}
}

// Perm returns a random permutation of [0, n).
func Perm(src Source, n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	Shuffle(src, n, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}
