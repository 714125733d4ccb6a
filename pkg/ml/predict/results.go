// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package predict

import (
	"github.com/gomlx/exceptions"
)

// Results holds the predictions collected by Loop.Run, shaped to mirror how
// the sources were declared: a run over a single bare source reads back as a
// flat sequence (Flat), runs over list or named sources read back as one
// sequence per source (PerSource), in declaration order.
//
// Within each source, predictions are stored in batch order.
type Results struct {
	shape     SourceShape
	names     []string
	perSource [][]any
}

func newResults(spec SourceSpec) *Results {
	r := &Results{
		shape:     spec.shape,
		perSource: make([][]any, spec.NumSources()),
	}
	if spec.shape == ShapeNamed {
		r.names = make([]string, spec.NumSources())
		for ii, entry := range spec.entries {
			r.names[ii] = entry.Name
		}
	}
	return r
}

func (r *Results) append(sourceIdx int, prediction any) {
	r.perSource[sourceIdx] = append(r.perSource[sourceIdx], prediction)
}

// Shape returns the declaration shape the results mirror.
func (r *Results) Shape() SourceShape { return r.shape }

// NumSources returns how many sources the run had.
func (r *Results) NumSources() int { return len(r.perSource) }

// NumPredictions returns the total number of predictions collected, across
// all sources.
func (r *Results) NumPredictions() int {
	total := 0
	for _, predictions := range r.perSource {
		total += len(predictions)
	}
	return total
}

// Flat returns the predictions of a run declared with a single bare source,
// one per batch, in order. It panics for list- or named-shaped results, use
// PerSource for those.
func (r *Results) Flat() []any {
	if r.shape != ShapeSingle {
		exceptions.Panicf("Results.Flat called on %s-shaped results, use Results.PerSource", r.shape)
	}
	return r.perSource[0]
}

// PerSource returns one slice of predictions per source, in declaration
// order.
func (r *Results) PerSource() [][]any { return r.perSource }

// ForSource returns the predictions of the source at position idx, in
// declaration order.
func (r *Results) ForSource(idx int) []any { return r.perSource[idx] }

// SourceName returns the name the source at position idx was declared with,
// or "" if the run's sources were not named.
func (r *Results) SourceName(idx int) string {
	if r.names == nil {
		return ""
	}
	return r.names[idx]
}

// ByName returns the predictions of the source declared with name. It panics
// if the run's sources were not named, or for an unknown name.
func (r *Results) ByName(name string) []any {
	if r.shape != ShapeNamed {
		exceptions.Panicf("Results.ByName(%q) called on %s-shaped results, use Results.ForSource", name, r.shape)
	}
	for ii, sourceName := range r.names {
		if sourceName == name {
			return r.perSource[ii]
		}
	}
	exceptions.Panicf("Results.ByName(%q): no source declared with that name", name)
	return nil
}

// Value returns the predictions shaped exactly as the sources were declared:
// a []any for a single bare source, a [][]any for list or named sources.
func (r *Results) Value() any {
	if r.shape == ShapeSingle {
		return r.perSource[0]
	}
	return r.perSource
}
