// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

// Package predict runs batched prediction (inference) of a model over one or
// more batch sources, collecting the per-batch predictions into results
// shaped like the declaration: predicting over a single source reads back as
// a flat sequence, over a list or named set of sources as one sequence per
// source.
//
// The loop is model-agnostic: anything implementing one of the step
// capabilities (Predictor, SourceAwarePredictor or StreamPredictor) can be
// driven by it, and batches flow through it as opaque values. Sources are
// equally minimal (see Source), with optional capabilities (EpochAware,
// HasBatchSampler, HasSampler) probed by type assertion.
//
// By itself it doesn't do much, but one can attach functionality to it, like
// progress reporting or streaming predictions to storage, via the OnStart,
// OnBatch and OnEnd hooks.
package predict

import (
	"io"
	"slices"
	"time"

	"github.com/pkg/errors"

	"github.com/blitzml/blitz/pkg/support/xslices"
)

// NoBatchLimit disables the per-source cap on drawn batches. It is the
// default: every source is drained until io.EOF.
const NoBatchLimit = -1

// Loop runs batched prediction of a model over sources, invoking the model's
// prediction step for every batch, and calling the appropriate hooks.
//
// Configure it with the WithXxx methods before calling Run. The public
// attributes are meant for reading only, don't change them -- behavior can be
// undefined.
type Loop struct {
	model    resolvedModel
	modelErr error

	// Epoch stamped into epoch-aware sampling policies before the first
	// batch is drawn. Typically the current training epoch. Defaults to 0.
	Epoch int

	// NumSources of the current (or last) run.
	NumSources int

	// SourceIndex of the source currently being drained, 0-based, in
	// declaration order. Only valid during a run.
	SourceIndex int

	// BatchIndex of the batch being predicted, 0-based, restarting at 0 on
	// each source. Only valid during a run.
	BatchIndex int

	// TotalBatches predicted so far in the current run, across sources.
	TotalBatches int

	// BatchDurations collected during the run, one entry per prediction step.
	BatchDurations []time.Duration

	batchLimit  int
	keepResults bool

	// Registered hooks.
	onStart *priorityHooks[*hookWithName[OnStartFn]]
	onBatch *priorityHooks[*hookWithName[OnBatchFn]]
	onEnd   *priorityHooks[*hookWithName[OnEndFn]]
}

// NewLoop creates a prediction loop for model.
//
// The model must implement at least one of Predictor, SourceAwarePredictor or
// StreamPredictor; this is checked by Run, before any batch is drawn.
func NewLoop(model any) *Loop {
	loop := &Loop{
		batchLimit:  NoBatchLimit,
		keepResults: true,
		onStart:     newPriorityHooks[*hookWithName[OnStartFn]](),
		onBatch:     newPriorityHooks[*hookWithName[OnBatchFn]](),
		onEnd:       newPriorityHooks[*hookWithName[OnEndFn]](),
	}
	loop.model, loop.modelErr = resolveModel(model)
	return loop
}

// WithBatchLimit caps how many batches are drawn from each source: n batches
// per source, 0 to draw nothing, or NoBatchLimit (negative) to drain every
// source. Infinite sources must be capped here, or the run will not
// terminate.
//
// It returns the loop, so configuration calls can be cascaded.
func (loop *Loop) WithBatchLimit(n int) *Loop {
	if n < 0 {
		n = NoBatchLimit
	}
	loop.batchLimit = n
	return loop
}

// BatchLimit returns the configured per-source batch limit, NoBatchLimit if
// unlimited.
func (loop *Loop) BatchLimit() int { return loop.batchLimit }

// WithEpoch sets the epoch stamped into epoch-aware sampling policies before
// the first batch is drawn. See EpochAware.
//
// It returns the loop, so configuration calls can be cascaded.
func (loop *Loop) WithEpoch(epoch int) *Loop {
	loop.Epoch = epoch
	return loop
}

// DiscardResults makes Run drop every prediction right after the OnBatch
// hooks, instead of accumulating them: Run returns nil results. Use it for
// runs whose predictions are consumed on the fly (e.g. by AttachResultWriter)
// to keep memory use independent of the run length.
//
// It returns the loop, so configuration calls can be cascaded.
func (loop *Loop) DiscardResults() *Loop {
	loop.keepResults = false
	return loop
}

// Run predicts over the declared sources, in declaration order, and returns
// the collected results shaped to mirror the declaration (see Results), or
// nil if the loop was configured with DiscardResults.
//
// Before the first batch is drawn, Run (1) fails if the model and the
// declaration are incompatible -- a StreamPredictor with more than one
// declared source -- and (2) stamps the configured epoch into every
// epoch-aware sampling policy of the sources.
//
// An error from a source or from the model's step interrupts the run: no
// results are returned, partially accumulated predictions are dropped.
func (loop *Loop) Run(spec SourceSpec) (*Results, error) {
	if loop.modelErr != nil {
		return nil, loop.modelErr
	}
	if spec.NumSources() == 0 {
		return nil, errors.Errorf("prediction run declared no sources: use predict.Single, predict.List or predict.Named with at least one source")
	}
	if loop.model.mode == streamingMode && spec.NumSources() > 1 {
		return nil, errors.Errorf("streaming prediction (predict.StreamPredictor) is not supported with multiple sources, got %d", spec.NumSources())
	}

	// Stamp the epoch on sampling policies strictly before the first batch
	// is drawn, so distributed shards are consistent across replicas.
	for _, entry := range spec.entries {
		setSourceEpoch(entry.Source, loop.Epoch)
	}

	loop.NumSources = spec.NumSources()
	loop.SourceIndex = 0
	loop.BatchIndex = 0
	loop.TotalBatches = 0
	loop.BatchDurations = loop.BatchDurations[:0]

	if err := loop.start(spec); err != nil {
		return nil, err
	}

	var results *Results
	if loop.keepResults {
		results = newResults(spec)
	}
	var err error
	if loop.model.mode == streamingMode {
		err = loop.runStreaming(spec, results)
	} else {
		err = loop.runEager(spec, results)
	}
	if err != nil {
		return nil, err
	}

	if err = loop.end(results); err != nil {
		return nil, err
	}
	if !loop.keepResults {
		return nil, nil
	}
	return results, nil
}

// runEager drains each source in declaration order, invoking the model's
// eager step per batch.
func (loop *Loop) runEager(spec SourceSpec, results *Results) error {
	for sourceIdx, entry := range spec.entries {
		loop.SourceIndex = sourceIdx
		source := entry.Source
		for batchIdx := 0; loop.batchLimit < 0 || batchIdx < loop.batchLimit; batchIdx++ {
			batch, err := source.Yield()
			if err != nil {
				if err == io.EOF {
					break
				}
				return errors.WithMessagef(err, "failed reading batch #%d from source %q (#%d)",
					batchIdx, spec.SourceName(sourceIdx), sourceIdx)
			}
			loop.BatchIndex = batchIdx
			prediction, err := loop.step(batch, batchIdx, sourceIdx)
			if err != nil {
				return errors.WithMessagef(err, "prediction step failed at batch #%d of source %q (#%d)",
					batchIdx, spec.SourceName(sourceIdx), sourceIdx)
			}
			if results != nil {
				results.append(sourceIdx, prediction)
			}
		}
	}
	return nil
}

// runStreaming drives a StreamPredictor over the run's single source: the
// model pulls batches from the stream itself, the loop only counts steps and
// detects the end of the stream.
func (loop *Loop) runStreaming(spec SourceSpec, results *Results) error {
	stream := newStream(spec.entries[0].Source, loop.batchLimit)
	for batchIdx := 0; ; batchIdx++ {
		loop.BatchIndex = batchIdx
		startTime := time.Now()
		prediction, err := loop.model.streaming.PredictStream(stream, batchIdx)
		loop.BatchDurations = append(loop.BatchDurations, time.Since(startTime))
		if err != nil {
			if errors.Is(err, io.EOF) {
				// The model saw the end of the stream: the run is over and
				// this step's result is dropped.
				return nil
			}
			return errors.WithMessagef(err, "streaming prediction step #%d failed on source %q",
				batchIdx, spec.SourceName(0))
		}
		loop.TotalBatches++
		if err = loop.batchDone(prediction); err != nil {
			return err
		}
		if results != nil {
			results.append(0, prediction)
		}
		if stream.Drained() {
			// The model consumed the stream to its end within this step.
			return nil
		}
	}
}

// step runs one eager prediction step and the OnBatch hooks.
func (loop *Loop) step(batch any, batchIdx, sourceIdx int) (prediction any, err error) {
	startTime := time.Now()
	defer func() {
		elapsed := time.Since(startTime)
		loop.BatchDurations = append(loop.BatchDurations, elapsed)
	}()

	prediction, err = loop.model.eagerStep(batch, batchIdx, sourceIdx)
	if err != nil {
		return nil, err
	}
	loop.TotalBatches++
	if err = loop.batchDone(prediction); err != nil {
		return nil, err
	}
	return prediction, nil
}

// start of a run, it calls the OnStart hooks.
func (loop *Loop) start(spec SourceSpec) error {
	for hook := range loop.onStart.All() {
		if err := hook.fn(loop, spec); err != nil {
			return errors.WithMessagef(err, "OnStart(hook %q)", hook.name)
		}
	}
	return nil
}

// batchDone calls the OnBatch hooks, after each successful step.
func (loop *Loop) batchDone(prediction any) error {
	for hook := range loop.onBatch.All() {
		if err := hook.fn(loop, prediction); err != nil {
			return errors.WithMessagef(err, "OnBatch(hook %q)", hook.name)
		}
	}
	return nil
}

// end of a run, it calls the OnEnd hooks.
func (loop *Loop) end(results *Results) error {
	for hook := range loop.onEnd.All() {
		if err := hook.fn(loop, results); err != nil {
			return errors.WithMessagef(err, "OnEnd(hook %q)", hook.name)
		}
	}
	return nil
}

// MedianBatchDuration returns the median duration of the prediction steps of
// the last run. It returns 1 millisecond if no step was recorded, to avoid
// potential division by 0.
func (loop *Loop) MedianBatchDuration() time.Duration {
	if len(loop.BatchDurations) == 0 {
		return time.Millisecond
	}
	times := xslices.Copy(loop.BatchDurations)
	slices.Sort(times)
	return times[len(times)/2]
}
