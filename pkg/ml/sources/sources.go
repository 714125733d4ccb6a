// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

// Package sources provides ready-made prediction sources and combinators:
// in-memory slices, generator functions, infinite counters, batch limiting
// (Take) and background prefetching (ReadAhead).
package sources

import (
	"fmt"
	"io"

	"github.com/gomlx/exceptions"

	"github.com/blitzml/blitz/pkg/ml/predict"
)

// sliceSource yields each element of a slice as one batch.
type sliceSource struct {
	name    string
	batches []any
	next    int
}

// FromSlice creates a finite source named name that yields each element of
// batches, in order.
func FromSlice[T any](name string, batches []T) predict.Source {
	boxed := make([]any, len(batches))
	for ii, batch := range batches {
		boxed[ii] = batch
	}
	return &sliceSource{name: name, batches: boxed}
}

func (src *sliceSource) Name() string { return src.name }
func (src *sliceSource) Reset()       { src.next = 0 }
func (src *sliceSource) Yield() (any, error) {
	if src.next >= len(src.batches) {
		return nil, io.EOF
	}
	batch := src.batches[src.next]
	src.next++
	return batch, nil
}

// funcSource yields whatever fn returns.
type funcSource struct {
	name  string
	fn    func() (any, error)
	reset func()
}

// FromFunc creates a source named name that yields fn() until it returns
// io.EOF. reset restarts the generator; it may be nil for one-shot or
// stateless generators.
func FromFunc(name string, fn func() (any, error), reset func()) predict.Source {
	if fn == nil {
		exceptions.Panicf("sources.FromFunc: nil generator function for source %q", name)
	}
	return &funcSource{name: name, fn: fn, reset: reset}
}

func (src *funcSource) Name() string        { return src.name }
func (src *funcSource) Yield() (any, error) { return src.fn() }
func (src *funcSource) Reset() {
	if src.reset != nil {
		src.reset()
	}
}

// counterSource yields 0, 1, 2, ... and never ends.
type counterSource struct {
	name string
	next int
}

// Counter creates an infinite source yielding the ints 0, 1, 2, ... It never
// returns io.EOF: cap it with Take or with the loop's batch limit.
func Counter(name string) predict.Source {
	return &counterSource{name: name}
}

func (src *counterSource) Name() string { return src.name }
func (src *counterSource) Reset()       { src.next = 0 }
func (src *counterSource) Yield() (any, error) {
	value := src.next
	src.next++
	return value, nil
}

// takeSource yields at most take batches of the wrapped source.
type takeSource struct {
	source predict.Source
	count  int
	take   int
}

// Take creates a source that yields at most n batches of source, turning an
// infinite (or long) source into a finite one.
//
// The epoch-related capabilities of the wrapped source (predict.EpochAware,
// predict.HasBatchSampler, predict.HasSampler) are forwarded.
func Take(source predict.Source, n int) predict.Source {
	if source == nil {
		exceptions.Panicf("sources.Take: nil source")
	}
	if n < 0 {
		exceptions.Panicf("sources.Take: negative number of batches %d", n)
	}
	return &takeSource{source: source, take: n}
}

func (src *takeSource) Name() string {
	return fmt.Sprintf("%s [Take %d]", src.source.Name(), src.take)
}

func (src *takeSource) Reset() {
	src.count = 0
	src.source.Reset()
}

func (src *takeSource) Yield() (any, error) {
	if src.count >= src.take {
		return nil, io.EOF
	}
	src.count++
	return src.source.Yield()
}

func (src *takeSource) SetEpoch(epoch int) { forwardEpoch(src.source, epoch) }
func (src *takeSource) BatchSampler() any  { return forwardBatchSampler(src.source) }
func (src *takeSource) Sampler() any       { return forwardSampler(src.source) }

// MapFn transforms one batch into another.
type MapFn func(batch any) (any, error)

// mapSource applies fn to every batch of the wrapped source.
type mapSource struct {
	source predict.Source
	fn     MapFn
}

// Map creates a source that applies fn to every batch of source, e.g. to
// preprocess batches before the model step. An error returned by fn ends the
// run.
//
// The epoch-related capabilities of the wrapped source are forwarded, like in
// Take.
func Map(source predict.Source, fn MapFn) predict.Source {
	if source == nil {
		exceptions.Panicf("sources.Map: nil source")
	}
	if fn == nil {
		exceptions.Panicf("sources.Map: nil map function for source %q", source.Name())
	}
	return &mapSource{source: source, fn: fn}
}

func (src *mapSource) Name() string { return src.source.Name() }
func (src *mapSource) Reset()       { src.source.Reset() }

func (src *mapSource) Yield() (any, error) {
	batch, err := src.source.Yield()
	if err != nil {
		return nil, err
	}
	return src.fn(batch)
}

func (src *mapSource) SetEpoch(epoch int) { forwardEpoch(src.source, epoch) }
func (src *mapSource) BatchSampler() any  { return forwardBatchSampler(src.source) }
func (src *mapSource) Sampler() any       { return forwardSampler(src.source) }

// forwardEpoch, forwardBatchSampler and forwardSampler relay the epoch
// capabilities through a wrapping source, so stamping still reaches the
// sampling policies underneath.

func forwardEpoch(source predict.Source, epoch int) {
	if epochAware, ok := source.(predict.EpochAware); ok {
		epochAware.SetEpoch(epoch)
	}
}

func forwardBatchSampler(source predict.Source) any {
	if hbs, ok := source.(predict.HasBatchSampler); ok {
		return hbs.BatchSampler()
	}
	return nil
}

func forwardSampler(source predict.Source) any {
	if hs, ok := source.(predict.HasSampler); ok {
		return hs.Sampler()
	}
	return nil
}
