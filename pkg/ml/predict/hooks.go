// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package predict

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/gomlx/exceptions"
)

// Priority for hooks, the lowest values are run first. Defaults to 0, but negative
// values are ok.
type Priority int

// OnStartFn is the type of OnStart hooks. It runs after the run is validated
// and epochs are propagated, before the first batch is drawn.
type OnStartFn func(loop *Loop, spec SourceSpec) error

// OnBatchFn is the type of OnBatch hooks. It runs after every successful
// prediction step with the step's prediction.
type OnBatchFn func(loop *Loop, prediction any) error

// OnEndFn is the type of OnEnd hooks. It runs once after the last source is
// exhausted. results is nil if the loop was configured with DiscardResults.
type OnEndFn func(loop *Loop, results *Results) error

// OnStart adds a hook with given priority and name (for error reporting) to the start of a run.
func (loop *Loop) OnStart(name string, priority Priority, fn OnStartFn) {
	loop.onStart.Add(priority, &hookWithName[OnStartFn]{
		name: name,
		fn:   fn,
	})
}

// OnBatch adds a hook with given priority and name (for error reporting),
// called after each prediction step.
func (loop *Loop) OnBatch(name string, priority Priority, fn OnBatchFn) {
	loop.onBatch.Add(priority, &hookWithName[OnBatchFn]{
		name: name,
		fn:   fn,
	})
}

// OnEnd adds a hook with given priority and name (for error reporting) to the end of a run,
// after the last prediction step.
func (loop *Loop) OnEnd(name string, priority Priority, fn OnEndFn) {
	loop.onEnd.Add(priority, &hookWithName[OnEndFn]{
		name: name,
		fn:   fn,
	})
}

type everyNBatches struct {
	n, count int
	fn       OnBatchFn
}

func (eN *everyNBatches) onBatch(loop *Loop, prediction any) error {
	eN.count++
	if eN.count%eN.n != 0 {
		return nil
	}
	return eN.fn(loop, prediction)
}

// EveryNBatches registers an OnBatch hook on the loop that is called every N batches.
//
// Notice that it does not call `fn` at the last batch (except by coincidence).
func EveryNBatches(loop *Loop, n int, name string, priority Priority, fn OnBatchFn) {
	if n <= 0 {
		exceptions.Panicf("Invalid parameter for EveryNBatches(n=%d), n must be > 0", n)
	}
	eN := &everyNBatches{n: n, fn: fn}
	fullName := fmt.Sprintf("EveryNBatches(%d): %s", n, name)
	loop.OnBatch(fullName, priority, eN.onBatch)
}

type periodicCallback struct {
	last    time.Time
	period  time.Duration
	started bool
	fn      OnBatchFn
}

func (p *periodicCallback) onBatch(loop *Loop, prediction any) error {
	if !p.started {
		// Start the clock.
		p.started = true
		p.last = time.Now()
		return nil
	}
	elapsed := time.Since(p.last)
	if elapsed < p.period {
		return nil
	}

	err := p.fn(loop, prediction)
	p.last = time.Now()
	return err
}

// PeriodicCallback registers an OnBatch hook on the loop that is called every period of time.
// The period counts after the execution of the hook: this discounts the time to run it (in
// case it is expensive) and it discounts cases where the execution is paused. By other hand,
// the hook is not executed exactly at every `period` time.
//
// If callOnEnd is set, it will also call once at the end of the run, with a nil prediction.
func PeriodicCallback(loop *Loop, period time.Duration, callOnEnd bool, name string, priority Priority, fn OnBatchFn) {
	p := &periodicCallback{
		period: period,
		fn:     fn,
	}
	fullName := fmt.Sprintf("PeriodicCallback(%s): %s", period, name)
	loop.OnBatch(fullName, priority, p.onBatch)
	if callOnEnd {
		loop.OnEnd(fullName, priority, func(loop *Loop, _ *Results) error { return p.fn(loop, nil) })
	}
}

// hookWithName stores a hook name and function.
type hookWithName[F any] struct {
	name string
	fn   F
}

// priorityHooks organizes hooks for type F per priority.
type priorityHooks[H any] struct {
	hooks map[Priority][]H
}

func newPriorityHooks[H any]() *priorityHooks[H] {
	return &priorityHooks[H]{
		hooks: make(map[Priority][]H),
	}
}

// Add hook at the given priority.
func (h *priorityHooks[H]) Add(priority Priority, hook H) {
	list := h.hooks[priority]
	list = append(list, hook)
	h.hooks[priority] = list
}

// All returns an iterator over all registered hooks in priority order.
func (h *priorityHooks[H]) All() iter.Seq[H] {
	return func(yield func(H) bool) {
		keys := make([]Priority, 0, len(h.hooks))
		for key := range h.hooks {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool {
			return keys[i] < keys[j]
		})
		for _, key := range keys {
			for _, hook := range h.hooks[key] {
				if !yield(hook) {
					return
				}
			}
		}
	}
}
