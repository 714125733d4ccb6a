// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package data

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blitzml/blitz/pkg/support/xslices"
)

// gatherShards collects the pass of every replica of a size-n dataset.
func gatherShards(t *testing.T, n, numReplicas int, configure func(*DistributedSampler)) [][]int {
	shards := make([][]int, numReplicas)
	for rank := 0; rank < numReplicas; rank++ {
		s := NewDistributedSampler(n, numReplicas, rank)
		if configure != nil {
			configure(s)
		}
		shards[rank] = s.Indices()
	}
	return shards
}

func TestDistributedSamplerEvenSplit(t *testing.T) {
	shards := gatherShards(t, 12, 3, nil)
	var all []int
	for _, shard := range shards {
		require.Len(t, shard, 4, "12 examples over 3 replicas is 4 each")
		all = append(all, shard...)
	}
	slices.Sort(all)
	assert.Equal(t, xslices.Iota(0, 12), all, "shards must be disjoint and cover the dataset")
}

func TestDistributedSamplerPadsUnevenSplit(t *testing.T) {
	// 10 over 3: each replica gets ceil(10/3) = 4, the order wraps to pad.
	shards := gatherShards(t, 10, 3, nil)
	var all []int
	for _, shard := range shards {
		require.Len(t, shard, 4)
		all = append(all, shard...)
	}
	slices.Sort(all)
	assert.Equal(t, []int{0, 0, 1, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all,
		"every example covered, the first two padded in again")
}

func TestDistributedSamplerDropLast(t *testing.T) {
	shards := gatherShards(t, 10, 3, func(s *DistributedSampler) { s.WithDropLast() })
	var all []int
	for _, shard := range shards {
		require.Len(t, shard, 3, "10 over 3 with drop-last is floor(10/3) = 3 each")
		all = append(all, shard...)
	}
	slices.Sort(all)
	assert.Equal(t, xslices.Iota(0, 9), all, "the tail must be truncated, nothing duplicated")
}

func TestDistributedSamplerShuffle(t *testing.T) {
	const n = 64
	s := NewDistributedSampler(n, 2, 0).WithShuffle(17)
	s.SetEpoch(1)
	assert.Equal(t, 1, s.Epoch())
	first := s.Indices()

	// Same seed and epoch give the same pass, on any replica object.
	s2 := NewDistributedSampler(n, 2, 0).WithShuffle(17)
	s2.SetEpoch(1)
	assert.Equal(t, first, s2.Indices())

	// A new epoch reshuffles.
	s.SetEpoch(2)
	assert.NotEqual(t, first, s.Indices())

	// Shuffled shards of one epoch are still disjoint across replicas.
	shards := gatherShards(t, n, 2, func(s *DistributedSampler) {
		s.WithShuffle(17)
		s.SetEpoch(1)
	})
	var all []int
	for _, shard := range shards {
		all = append(all, shard...)
	}
	slices.Sort(all)
	assert.Equal(t, xslices.Iota(0, n), all)
}

func TestDistributedSamplerValidation(t *testing.T) {
	require.Panics(t, func() { NewDistributedSampler(-1, 1, 0) })
	require.Panics(t, func() { NewDistributedSampler(10, 0, 0) })
	require.Panics(t, func() { NewDistributedSampler(10, 2, 2) })
	require.Panics(t, func() { NewDistributedSampler(10, 2, -1) })

	s := NewDistributedSampler(0, 2, 1)
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Indices())
	assert.Equal(t, 1, s.Rank())
	assert.Equal(t, 2, s.NumReplicas())
}
