package allocator

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/simaogato/splitpay-backend/internal/domain"
)

const (
	// DefaultMaxPasses bounds the uniqueness correction loop
	DefaultMaxPasses = 1000
	// DefaultMaxParts caps how many parts a single allocation may produce
	DefaultMaxParts = 10_000
)

// Shuffler randomizes the presentation order of the parts.
// *rand.Rand from math/rand/v2 satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Allocator partitions an integer total into distinct positive parts
type Allocator struct {
	MaxPasses int
	MaxParts  int64
	Shuffler  Shuffler
}

// New creates an Allocator. A nil shuffler uses the global math/rand/v2 source;
// a non-positive maxPasses uses DefaultMaxPasses.
func New(shuffler Shuffler, maxPasses int) *Allocator {
	if shuffler == nil {
		shuffler = globalShuffler{}
	}
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	return &Allocator{
		MaxPasses: maxPasses,
		MaxParts:  DefaultMaxParts,
		Shuffler:  shuffler,
	}
}

// Allocate splits total into ceil(total/maxPerPart) pairwise distinct positive parts
// Logic:
//  1. n = ceil(total / maxPerPart); n == 1 returns [total], n above MaxParts is refused
//  2. Base split: the first total%n parts get base+1, the rest get base
//  3. Correction passes make the parts distinct without changing the sum
//  4. Shuffle so the parts are not presented in sorted order
//
// Safety: Ensures the parts sum to total exactly and are all distinct and >= 1
func (a *Allocator) Allocate(total, maxPerPart int64) ([]int64, error) {
	if total <= 0 || maxPerPart <= 0 {
		return nil, fmt.Errorf("%w: total and max per part must be positive (total=%d, maxPerPart=%d)",
			domain.ErrInvalidInput, total, maxPerPart)
	}

	n := partCount(total, maxPerPart)
	if n == 1 {
		return []int64{total}, nil
	}
	if maxParts := a.maxParts(); n > maxParts {
		return nil, fmt.Errorf("%w: %d parts exceed the limit of %d",
			domain.ErrAllocationUnresolvable, n, maxParts)
	}

	if !fitsStaircase(total, n) {
		return nil, fmt.Errorf("%w: %d cannot be split into %d distinct positive parts",
			domain.ErrAllocationUnresolvable, total, n)
	}

	parts := baseSplit(total, n)

	if err := a.makeDistinct(parts, total); err != nil {
		return nil, err
	}

	if err := verify(parts, total); err != nil {
		return nil, err
	}

	a.shuffler().Shuffle(len(parts), func(i, j int) {
		parts[i], parts[j] = parts[j], parts[i]
	})

	return parts, nil
}

// partCount returns ceil(total/maxPerPart) for positive arguments
func partCount(total, maxPerPart int64) int64 {
	n := total / maxPerPart
	if total%maxPerPart != 0 {
		n++
	}
	return n
}

// fitsStaircase reports whether total >= 1+2+...+n, the smallest sum of n distinct
// positive integers
func fitsStaircase(total, n int64) bool {
	a, b := n, n+1
	if n%2 == 0 {
		a = n / 2
	} else {
		b = n/2 + 1
	}
	return a <= total/b
}

// baseSplit returns n parts differing by at most one that sum to total
func baseSplit(total, n int64) []int64 {
	base := total / n
	remainder := total % n

	parts := make([]int64, n)
	for i := range parts {
		parts[i] = base
		if int64(i) < remainder {
			parts[i]++
		}
	}
	return parts
}

// makeDistinct runs bounded correction passes over parts in place.
// A pass spreads the sorted values outward from the middle until they strictly increase,
// then restores the sum by shifting the top up or taking the excess from the bottom.
func (a *Allocator) makeDistinct(parts []int64, total int64) error {
	maxPasses := a.MaxPasses
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	for pass := 0; pass < maxPasses; pass++ {
		slices.Sort(parts)
		if firstCollision(parts) < 0 {
			return nil
		}

		spreadFromMiddle(parts)
		liftBottom(parts)
		if err := rebalance(parts, total); err != nil {
			return err
		}
	}

	slices.Sort(parts)
	if firstCollision(parts) < 0 {
		return nil
	}
	return fmt.Errorf("%w: parts still collide after %d correction passes",
		domain.ErrAllocationUnresolvable, maxPasses)
}

// spreadFromMiddle pushes values above the middle up and values below it down
// until the sorted slice strictly increases
func spreadFromMiddle(parts []int64) {
	mid := len(parts) / 2
	for i := mid + 1; i < len(parts); i++ {
		if parts[i] <= parts[i-1] {
			parts[i] = parts[i-1] + 1
		}
	}
	for i := mid - 1; i >= 0; i-- {
		if parts[i] >= parts[i+1] {
			parts[i] = parts[i+1] - 1
		}
	}
}

// liftBottom keeps every value >= 1 and the slice strictly increasing
func liftBottom(parts []int64) {
	if parts[0] < 1 {
		parts[0] = 1
	}
	for k := 1; k < len(parts); k++ {
		if parts[k] <= parts[k-1] {
			parts[k] = parts[k-1] + 1
		}
	}
}

// rebalance restores sum(parts) == total on a strictly increasing slice without
// breaking the ordering
func rebalance(parts []int64, total int64) error {
	// Accumulated against total so large amounts never overflow
	diff := -total
	for _, p := range parts {
		diff += p
	}
	n := int64(len(parts))

	if diff < 0 {
		short := -diff
		for k := range parts {
			parts[k] += short / n
			if int64(k) >= n-short%n {
				parts[k]++
			}
		}
		return nil
	}

	// Take the excess from the bottom, each value staying above its predecessor
	for k := 0; k < len(parts) && diff > 0; k++ {
		floor := int64(1)
		if k > 0 {
			floor = parts[k-1] + 1
		}
		take := min(diff, parts[k]-floor)
		if take > 0 {
			parts[k] -= take
			diff -= take
		}
	}
	if diff > 0 {
		return fmt.Errorf("%w: no room left to redistribute %d", domain.ErrAllocationUnresolvable, diff)
	}
	return nil
}

// firstCollision returns the first index i of a sorted slice with parts[i] <= parts[i-1], or -1
func firstCollision(parts []int64) int {
	for i := 1; i < len(parts); i++ {
		if parts[i] <= parts[i-1] {
			return i
		}
	}
	return -1
}

func verify(parts []int64, total int64) error {
	remaining := total
	seen := make(map[int64]bool, len(parts))
	for _, p := range parts {
		if p < 1 {
			return fmt.Errorf("%w: part %d is not positive", domain.ErrAllocationUnresolvable, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: part %d is duplicated", domain.ErrAllocationUnresolvable, p)
		}
		seen[p] = true
		remaining -= p
	}

	if remaining != 0 {
		return fmt.Errorf("%w: parts miss the total %d by %d", domain.ErrAllocationUnresolvable, total, remaining)
	}
	return nil
}

func (a *Allocator) maxParts() int64 {
	if a.MaxParts <= 0 {
		return DefaultMaxParts
	}
	return a.MaxParts
}

func (a *Allocator) shuffler() Shuffler {
	if a.Shuffler == nil {
		return globalShuffler{}
	}
	return a.Shuffler
}
