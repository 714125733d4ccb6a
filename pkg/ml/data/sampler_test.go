// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package data

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blitzml/blitz/pkg/support/xslices"
)

func TestSequentialSampler(t *testing.T) {
	s := NewSequentialSampler(5)
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, s.Indices())

	assert.Empty(t, NewSequentialSampler(0).Indices())
	require.Panics(t, func() { NewSequentialSampler(-1) })
}

func TestRandomSampler(t *testing.T) {
	const n = 100
	s := NewRandomSampler(n, 42)
	indices := s.Indices()
	require.Len(t, indices, n)

	// One pass is a permutation of all indices.
	sorted := xslices.Copy(indices)
	slices.Sort(sorted)
	assert.Equal(t, xslices.Iota(0, n), sorted)

	// Same seed, same order.
	assert.Equal(t, indices, NewRandomSampler(n, 42).Indices())

	// WithRand replaces the generator.
	s2 := NewRandomSampler(n, 0).WithRand(rand.New(rand.NewSource(42)))
	assert.Equal(t, indices, s2.Indices())
}

func TestBatchSampler(t *testing.T) {
	bs := NewBatchSampler(NewSequentialSampler(10), 3, false)
	assert.Equal(t, 4, bs.Len())
	assert.Equal(t, 3, bs.BatchSize())
	batches := bs.Batches()
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, {9}}, batches)
	assert.Equal(t, []int{9}, xslices.Last(batches))

	// dropLast removes the incomplete tail batch.
	bs = NewBatchSampler(NewSequentialSampler(10), 3, true)
	assert.Equal(t, 3, bs.Len())
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4, 5}, {6, 7, 8}}, bs.Batches())

	// The wrapped sampler is exposed for epoch stamping.
	sampler := NewSequentialSampler(4)
	bs = NewBatchSampler(sampler, 2, false)
	assert.Same(t, sampler, bs.Sampler())

	require.Panics(t, func() { NewBatchSampler(nil, 2, false) })
	require.Panics(t, func() { NewBatchSampler(sampler, 0, false) })
}
