// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package predict

import (
	"github.com/pkg/errors"
)

// Predictor is the basic prediction capability: the loop draws batches from
// the sources and hands them over, one at a time. batchIdx is 0-based and
// restarts at 0 on each source.
type Predictor interface {
	PredictStep(batch any, batchIdx int) (any, error)
}

// SourceAwarePredictor is the prediction capability for models that want to
// know which source each batch came from. When implemented, it is used
// instead of Predictor, and sourceIdx is passed even for a run with a single
// source (as 0).
type SourceAwarePredictor interface {
	PredictStepOnSource(batch any, batchIdx int, sourceIdx int) (any, error)
}

// StreamPredictor is the streaming prediction capability: instead of
// receiving batches one at a time, the model is handed the Stream and pulls
// batches itself, as many as it wants per step. Use it to overlap fetching of
// the next batch with the computation of the current one.
//
// The loop keeps calling PredictStream until the stream ends: a step that
// returns io.EOF (possibly wrapped) ends the run normally and its result is
// dropped. Steps are numbered from 0 via batchIdx.
//
// Streaming runs are limited to a single declared source; Loop.Run fails
// before drawing any batch otherwise.
//
// A model implementing both StreamPredictor and an eager capability runs in
// streaming mode.
type StreamPredictor interface {
	PredictStream(stream *Stream, batchIdx int) (any, error)
}

// stepMode tells how the loop drives the model.
type stepMode int

const (
	eagerMode stepMode = iota
	streamingMode
)

// String implements fmt.Stringer.
func (mode stepMode) String() string {
	switch mode {
	case eagerMode:
		return "eager"
	case streamingMode:
		return "streaming"
	default:
		return "unknown"
	}
}

// resolvedModel holds the capabilities a model implements and the mode the
// loop will drive it in.
type resolvedModel struct {
	mode        stepMode
	eager       Predictor
	sourceAware SourceAwarePredictor
	streaming   StreamPredictor
}

// resolveModel probes model for the prediction capabilities. It fails if the
// model implements none of them.
func resolveModel(model any) (r resolvedModel, err error) {
	r.streaming, _ = model.(StreamPredictor)
	r.sourceAware, _ = model.(SourceAwarePredictor)
	r.eager, _ = model.(Predictor)
	if r.streaming != nil {
		r.mode = streamingMode
		return
	}
	if r.sourceAware == nil && r.eager == nil {
		err = errors.Errorf("model of type %T implements none of predict.Predictor, "+
			"predict.SourceAwarePredictor or predict.StreamPredictor", model)
		return
	}
	r.mode = eagerMode
	return
}

// eagerStep invokes the eager capability, preferring the source-aware one.
func (r *resolvedModel) eagerStep(batch any, batchIdx, sourceIdx int) (any, error) {
	if r.sourceAware != nil {
		return r.sourceAware.PredictStepOnSource(batch, batchIdx, sourceIdx)
	}
	return r.eager.PredictStep(batch, batchIdx)
}
