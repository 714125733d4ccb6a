// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package data

import (
	"math/rand"

	"github.com/gomlx/exceptions"

	"github.com/blitzml/blitz/pkg/support/xslices"
)

// Sampler defines the order in which the examples of a dataset are visited.
type Sampler interface {
	// Len returns how many indices one pass yields.
	Len() int

	// Indices returns one fresh pass of indices. Successive calls may yield
	// different orders (e.g. a shuffling sampler).
	Indices() []int
}

// SequentialSampler visits examples in order, 0 to n-1.
type SequentialSampler struct {
	n int
}

// NewSequentialSampler creates a sampler over n examples, visited in order.
func NewSequentialSampler(n int) *SequentialSampler {
	if n < 0 {
		exceptions.Panicf("data.NewSequentialSampler: negative number of examples %d", n)
	}
	return &SequentialSampler{n: n}
}

// Len implements Sampler.
func (s *SequentialSampler) Len() int { return s.n }

// Indices implements Sampler.
func (s *SequentialSampler) Indices() []int { return xslices.Iota(0, s.n) }

// RandomSampler visits each example exactly once per pass, in a random
// order. The order is deterministic for a given seed.
type RandomSampler struct {
	n   int
	rng *rand.Rand
}

// NewRandomSampler creates a shuffling sampler over n examples, seeded with
// seed.
func NewRandomSampler(n int, seed int64) *RandomSampler {
	if n < 0 {
		exceptions.Panicf("data.NewRandomSampler: negative number of examples %d", n)
	}
	return &RandomSampler{n: n, rng: rand.New(rand.NewSource(seed))}
}

// WithRand replaces the random number generator.
// It returns the sampler, so configuration calls can be cascaded.
func (s *RandomSampler) WithRand(rng *rand.Rand) *RandomSampler {
	s.rng = rng
	return s
}

// Len implements Sampler.
func (s *RandomSampler) Len() int { return s.n }

// Indices implements Sampler.
func (s *RandomSampler) Indices() []int {
	indices := xslices.Iota(0, s.n)
	s.rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
	return indices
}

// BatchSampler groups the indices of a Sampler into fixed-size batches.
//
// It is the batching policy a Loader iterates with, and what the prediction
// loop probes (through the loader) when stamping epochs on epoch-aware
// samplers.
type BatchSampler struct {
	sampler   Sampler
	batchSize int
	dropLast  bool
}

// NewBatchSampler groups sampler's indices into batches of batchSize. If
// dropLast is set, a final incomplete batch is dropped.
func NewBatchSampler(sampler Sampler, batchSize int, dropLast bool) *BatchSampler {
	if sampler == nil {
		exceptions.Panicf("data.NewBatchSampler: nil sampler")
	}
	if batchSize < 1 {
		exceptions.Panicf("data.NewBatchSampler: batch size must be at least 1, got %d", batchSize)
	}
	return &BatchSampler{sampler: sampler, batchSize: batchSize, dropLast: dropLast}
}

// Sampler returns the wrapped index sampler.
func (bs *BatchSampler) Sampler() any { return bs.sampler }

// BatchSize returns the configured batch size.
func (bs *BatchSampler) BatchSize() int { return bs.batchSize }

// Len returns the number of batches of one pass.
func (bs *BatchSampler) Len() int {
	n := bs.sampler.Len()
	if bs.dropLast {
		return n / bs.batchSize
	}
	return (n + bs.batchSize - 1) / bs.batchSize
}

// Batches returns one fresh pass of index batches.
func (bs *BatchSampler) Batches() [][]int {
	indices := bs.sampler.Indices()
	batches := make([][]int, 0, bs.Len())
	for start := 0; start < len(indices); start += bs.batchSize {
		end := min(start+bs.batchSize, len(indices))
		if end-start < bs.batchSize && bs.dropLast {
			break
		}
		batches = append(batches, indices[start:end])
	}
	return batches
}

var (
	_ Sampler = (*SequentialSampler)(nil)
	_ Sampler = (*RandomSampler)(nil)
)
