// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package predict

// EpochAware is implemented by sources or sampling policies whose iteration
// order depends on the epoch. The typical implementor is a distributed
// sampler that reshuffles its shard per epoch: all replicas must agree on
// the epoch before drawing batches, or they would predict on overlapping
// shards.
type EpochAware interface {
	// SetEpoch sets the 0-based epoch used to seed the next pass.
	SetEpoch(epoch int)
}

// HasBatchSampler is implemented by sources whose batching is delegated to a
// separate policy object, e.g. a loader driven by a batch sampler. The
// returned policy is opaque to the loop: it is only probed for EpochAware
// and HasSampler.
type HasBatchSampler interface {
	BatchSampler() any
}

// HasSampler is implemented by batching policies that wrap an inner index
// sampler.
type HasSampler interface {
	Sampler() any
}

// setSourceEpoch pushes epoch into every epoch-aware policy reachable from
// source: the source itself, its sampler, its batch sampler and the sampler
// nested in the batch sampler. Missing capabilities are skipped.
func setSourceEpoch(source Source, epoch int) {
	candidates := []any{source}
	if hs, ok := source.(HasSampler); ok {
		candidates = append(candidates, hs.Sampler())
	}
	if hbs, ok := source.(HasBatchSampler); ok {
		batchSampler := hbs.BatchSampler()
		candidates = append(candidates, batchSampler)
		if hs, ok := batchSampler.(HasSampler); ok {
			candidates = append(candidates, hs.Sampler())
		}
	}
	for _, candidate := range candidates {
		if epochAware, ok := candidate.(EpochAware); ok {
			epochAware.SetEpoch(epoch)
		}
	}
}
