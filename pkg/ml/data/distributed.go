// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package data

import (
	"math/rand"

	"github.com/gomlx/exceptions"

	"github.com/blitzml/blitz/pkg/support/xslices"
)

// DistributedSampler partitions a dataset across numReplicas parallel
// workers, each identified by its rank: a replica's pass visits only its own
// shard, and the shards are disjoint.
//
// The global order is strided across replicas, so every replica yields the
// same number of indices per pass: when the dataset does not divide evenly,
// the order wraps around to pad the tail (use WithDropLast to truncate
// instead).
//
// With WithShuffle, the global order is reshuffled per epoch, seeded with
// seed+epoch: all replicas agree on the shuffle as long as they agree on the
// epoch, which is what SetEpoch (called by the prediction loop before the
// first batch) is for.
type DistributedSampler struct {
	n           int
	numReplicas int
	rank        int
	shuffle     bool
	dropLast    bool
	seed        int64
	epoch       int
}

// NewDistributedSampler creates a sampler over n examples for the replica
// rank out of numReplicas. It panics if rank is not in [0, numReplicas).
func NewDistributedSampler(n, numReplicas, rank int) *DistributedSampler {
	if n < 0 {
		exceptions.Panicf("data.NewDistributedSampler: negative number of examples %d", n)
	}
	if numReplicas < 1 {
		exceptions.Panicf("data.NewDistributedSampler: need at least 1 replica, got %d", numReplicas)
	}
	if rank < 0 || rank >= numReplicas {
		exceptions.Panicf("data.NewDistributedSampler: rank %d out of range for %d replicas", rank, numReplicas)
	}
	return &DistributedSampler{n: n, numReplicas: numReplicas, rank: rank}
}

// WithShuffle enables per-epoch shuffling of the global order, seeded with
// seed plus the current epoch.
// It returns the sampler, so configuration calls can be cascaded.
func (s *DistributedSampler) WithShuffle(seed int64) *DistributedSampler {
	s.shuffle = true
	s.seed = seed
	return s
}

// WithDropLast truncates the tail of the dataset instead of padding it, so
// that the shards still have equal sizes but no index appears twice.
// It returns the sampler, so configuration calls can be cascaded.
func (s *DistributedSampler) WithDropLast() *DistributedSampler {
	s.dropLast = true
	return s
}

// SetEpoch sets the epoch seeding the next pass's shuffle. Replicas that
// agree on (seed, epoch) agree on the global order, hence on the shards.
func (s *DistributedSampler) SetEpoch(epoch int) { s.epoch = epoch }

// Epoch returns the last epoch set with SetEpoch.
func (s *DistributedSampler) Epoch() int { return s.epoch }

// Rank returns this replica's rank.
func (s *DistributedSampler) Rank() int { return s.rank }

// NumReplicas returns the number of replicas the dataset is partitioned
// across.
func (s *DistributedSampler) NumReplicas() int { return s.numReplicas }

// Len implements Sampler: the number of indices of this replica's pass.
func (s *DistributedSampler) Len() int {
	if s.dropLast {
		return s.n / s.numReplicas
	}
	return (s.n + s.numReplicas - 1) / s.numReplicas
}

// Indices implements Sampler: this replica's shard of the global order.
func (s *DistributedSampler) Indices() []int {
	indices := xslices.Iota(0, s.n)
	if s.shuffle {
		rng := rand.New(rand.NewSource(s.seed + int64(s.epoch)))
		rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}
	total := s.Len() * s.numReplicas
	if total > len(indices) {
		// Wrap around to pad, so every replica yields the same count.
		for ii := 0; len(indices) < total; ii++ {
			indices = append(indices, indices[ii])
		}
	} else {
		indices = indices[:total]
	}
	shard := make([]int, 0, s.Len())
	for ii := s.rank; ii < total; ii += s.numReplicas {
		shard = append(shard, indices[ii])
	}
	return shard
}

var _ Sampler = (*DistributedSampler)(nil)
