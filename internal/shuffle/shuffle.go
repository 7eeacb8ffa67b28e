// Package shuffle produces deterministic per-attempt permutations of
// questions and options. Determinism only needs to hold within one
// attempt's lifetime on one running system; the persisted plan, not the
// generator, is the source of truth for delivery and grading.
package shuffle

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/google/uuid"
)

// Seed derives a stable 64-bit seed from the attempt tuple. The same
// (student, content, attempt) always yields the same seed.
func Seed(studentID, contentID uuid.UUID, attemptNumber int) uint64 {
	h := fnv.New64a()
	h.Write(studentID[:])
	h.Write(contentID[:])
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(attemptNumber))
	h.Write(buf[:])
	return h.Sum64()
}

// QuestionSeed derives a secondary seed for one question's option order,
// so option shuffles are independent of each other and of question order.
func QuestionSeed(seed uint64, questionID uuid.UUID) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)
	h.Write(buf[:])
	h.Write(questionID[:])
	return h.Sum64()
}

// splitMix64 is a small, well-distributed PRNG. State advances by the
// golden-gamma constant; output is the finalized mix of the new state.
type splitMix64 struct {
	state uint64
}

func (s *splitMix64) next() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// intn returns a uniform value in [0, n) using rejection sampling to avoid
// modulo bias.
func (s *splitMix64) intn(n int) int {
	bound := uint64(n)
	threshold := -bound % bound
	for {
		v := s.next()
		if v >= threshold {
			return int(v % bound)
		}
	}
}

// Permutation returns a seeded Fisher–Yates permutation of [0, n).
// p[displayIndex] = originalIndex.
func Permutation(seed uint64, n int) []int {
	p := Identity(n)
	if n < 2 {
		return p
	}
	rng := &splitMix64{state: seed}
	for i := n - 1; i > 0; i-- {
		j := rng.intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// Identity returns the identity permutation of [0, n), used when shuffling
// is disabled for a content item.
func Identity(n int) []int {
	if n <= 0 {
		return []int{}
	}
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return p
}
