// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package data

import (
	"io"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/blitzml/blitz/pkg/ml/predict"
)

// CollateFn merges the examples of one batch into the value yielded to the
// prediction loop. When none is set, a batch is yielded as a []any with the
// examples in batch order.
type CollateFn func(items []any) any

// Loader iterates a Dataset in the order given by a BatchSampler, yielding
// one collated batch at a time. It implements predict.Source, and it exposes
// its batch sampler so the prediction loop can stamp epochs on epoch-aware
// samplers nested in it (see predict.EpochAware).
//
// With WithWorkers the examples of each batch are fetched concurrently;
// batch and example order are preserved either way.
//
// A pass over the batches starts lazily at the first Yield and ends with
// io.EOF; Reset makes the next Yield start a fresh pass, re-reading the
// sampler.
type Loader struct {
	name         string
	dataset      Dataset
	batchSampler *BatchSampler
	collate      CollateFn
	workers      int

	// Current pass, nil before the first Yield.
	batches [][]int
	next    int
}

// NewLoader creates a Loader over dataset, yielding batches of 1 example in
// sequential order. Configure it with the WithXxx methods, then iterate it
// directly or hand it to a prediction loop.
func NewLoader(dataset Dataset) *Loader {
	if dataset == nil {
		exceptions.Panicf("data.NewLoader: nil dataset")
	}
	return &Loader{
		name:         dataset.Name(),
		dataset:      dataset,
		batchSampler: NewBatchSampler(NewSequentialSampler(dataset.Len()), 1, false),
	}
}

// WithBatchSize sets how many examples each yielded batch holds, keeping the
// current sampling order and drop-last setting.
// It returns the loader, so configuration calls can be cascaded.
func (l *Loader) WithBatchSize(batchSize int) *Loader {
	l.invalidatePass()
	l.batchSampler = NewBatchSampler(l.batchSampler.sampler, batchSize, l.batchSampler.dropLast)
	return l
}

// WithSampler replaces the order examples are visited in, keeping the
// current batch size and drop-last setting.
// It returns the loader, so configuration calls can be cascaded.
func (l *Loader) WithSampler(sampler Sampler) *Loader {
	l.invalidatePass()
	l.batchSampler = NewBatchSampler(sampler, l.batchSampler.batchSize, l.batchSampler.dropLast)
	return l
}

// WithDropLast drops a final incomplete batch instead of yielding it.
// It returns the loader, so configuration calls can be cascaded.
func (l *Loader) WithDropLast() *Loader {
	l.invalidatePass()
	l.batchSampler = NewBatchSampler(l.batchSampler.sampler, l.batchSampler.batchSize, true)
	return l
}

// WithBatchSampler replaces the whole batching policy at once.
// It returns the loader, so configuration calls can be cascaded.
func (l *Loader) WithBatchSampler(batchSampler *BatchSampler) *Loader {
	if batchSampler == nil {
		exceptions.Panicf("data.Loader.WithBatchSampler: nil batch sampler")
	}
	l.invalidatePass()
	l.batchSampler = batchSampler
	return l
}

// WithCollate sets the function merging the examples of a batch into the
// yielded value.
// It returns the loader, so configuration calls can be cascaded.
func (l *Loader) WithCollate(collate CollateFn) *Loader {
	l.collate = collate
	return l
}

// WithWorkers fetches the examples of each batch with up to workers
// concurrent goroutines. Useful when Dataset.At is expensive (e.g. reads
// from disk). 0 or 1 fetches sequentially.
// It returns the loader, so configuration calls can be cascaded.
func (l *Loader) WithWorkers(workers int) *Loader {
	l.workers = workers
	return l
}

// WithName replaces the loader's name, which defaults to the dataset's.
// It returns the loader, so configuration calls can be cascaded.
func (l *Loader) WithName(name string) *Loader {
	l.name = name
	return l
}

// invalidatePass restarts the pass after a configuration change, since batch
// boundaries may have moved.
func (l *Loader) invalidatePass() {
	if l.batches != nil {
		klog.Warningf("data.Loader %q reconfigured in the middle of a pass, restarting the pass", l.name)
		l.batches = nil
		l.next = 0
	}
}

// Name implements predict.Source.
func (l *Loader) Name() string { return l.name }

// BatchSampler exposes the batching policy driving this loader. The
// prediction loop probes it (and its nested sampler) for predict.EpochAware.
func (l *Loader) BatchSampler() any { return l.batchSampler }

// Reset implements predict.Source: the next Yield starts a fresh pass.
func (l *Loader) Reset() {
	l.batches = nil
	l.next = 0
}

// Yield implements predict.Source, returning the next collated batch, or
// io.EOF at the end of the pass.
func (l *Loader) Yield() (any, error) {
	if l.batches == nil {
		l.batches = l.batchSampler.Batches()
		l.next = 0
		klog.V(1).Infof("loader %q: starting a pass of %d batches", l.name, len(l.batches))
	}
	if l.next >= len(l.batches) {
		return nil, io.EOF
	}
	indices := l.batches[l.next]
	l.next++
	items, err := l.fetchBatch(indices)
	if err != nil {
		return nil, errors.WithMessagef(err, "loader %q: failed fetching batch #%d", l.name, l.next-1)
	}
	if l.collate != nil {
		return l.collate(items), nil
	}
	return items, nil
}

// fetchBatch materializes the examples of one batch, concurrently if the
// loader is configured with workers. Example order within the batch is
// preserved.
func (l *Loader) fetchBatch(indices []int) ([]any, error) {
	items := make([]any, len(indices))
	if l.workers <= 1 || len(indices) <= 1 {
		for ii, index := range indices {
			item, err := l.dataset.At(index)
			if err != nil {
				return nil, err
			}
			items[ii] = item
		}
		return items, nil
	}

	// Fan out the fetches, each into its own slot to preserve order.
	var wg sync.WaitGroup
	var muErr sync.Mutex
	var firstErr error
	semaphore := make(chan struct{}, l.workers)
	for ii, index := range indices {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(slot, index int) {
			defer wg.Done()
			defer func() { <-semaphore }()
			item, err := l.dataset.At(index)
			if err != nil {
				muErr.Lock()
				if firstErr == nil {
					firstErr = err
				}
				muErr.Unlock()
				return
			}
			items[slot] = item
		}(ii, index)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return items, nil
}

var (
	_ predict.Source          = (*Loader)(nil)
	_ predict.HasBatchSampler = (*Loader)(nil)
)
