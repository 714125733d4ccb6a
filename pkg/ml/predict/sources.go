// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package predict

import (
	"github.com/gomlx/exceptions"

	"github.com/blitzml/blitz/pkg/support/sets"
)

// Source is one ordered stream of batches to predict on.
//
// Batches are opaque to the loop: it never looks inside them, it only hands
// them to the model. What a batch is (a tensor, a slice of examples, a row
// group) is a contract between the Source and the model.
type Source interface {
	// Name identifies the source for logging and error messages.
	Name() string

	// Yield returns the next batch. It returns io.EOF when the source is
	// exhausted; any other error interrupts the prediction run.
	//
	// A Source may be infinite and never return io.EOF, in which case the
	// run must be capped with Loop.WithBatchLimit (or a limiting wrapper).
	Yield() (batch any, err error)

	// Reset restarts the source from the beginning, so it can be iterated
	// again on a later run. The prediction loop itself never calls Reset.
	Reset()
}

// SourceShape tells how the sources of a run were declared. Results mirror
// it: a lone source yields a flat sequence of predictions, list and named
// declarations yield one sequence per source.
type SourceShape int

const (
	// ShapeSingle is one bare source.
	ShapeSingle SourceShape = iota

	// ShapeList is an ordered list of sources.
	ShapeList

	// ShapeNamed is an ordered sequence of (name, source) pairs.
	ShapeNamed
)

// String implements fmt.Stringer.
func (shape SourceShape) String() string {
	switch shape {
	case ShapeSingle:
		return "single"
	case ShapeList:
		return "list"
	case ShapeNamed:
		return "named"
	default:
		return "unknown"
	}
}

// NamedSource attaches a name to a source, for declarations built with Named.
type NamedSource struct {
	Name   string
	Source Source
}

// SourceSpec is the normalized form of the sources handed to Loop.Run: an
// ordered sequence of sources tagged with the shape they were declared in.
// Build one with Single, List or Named.
//
// Declaration order is preserved everywhere: sources are drained in it and
// results are reported in it. In particular, Named keeps the order the pairs
// were given in, not the lexicographic order of the names.
type SourceSpec struct {
	shape   SourceShape
	entries []NamedSource
}

// Single declares a run over one bare source. Its results are flat (see
// Results.Flat).
func Single(source Source) SourceSpec {
	if source == nil {
		exceptions.Panicf("predict.Single: nil Source")
	}
	return SourceSpec{shape: ShapeSingle, entries: []NamedSource{{Source: source}}}
}

// List declares a run over an ordered list of sources. Results are grouped
// per source, in the given order.
func List(sources ...Source) SourceSpec {
	entries := make([]NamedSource, 0, len(sources))
	for ii, source := range sources {
		if source == nil {
			exceptions.Panicf("predict.List: source #%d is nil", ii)
		}
		entries = append(entries, NamedSource{Source: source})
	}
	return SourceSpec{shape: ShapeList, entries: entries}
}

// Named declares a run over named sources. Results are grouped per source in
// declaration order, and can also be looked up by name (see Results.ByName).
// Names must be unique.
func Named(pairs ...NamedSource) SourceSpec {
	entries := make([]NamedSource, 0, len(pairs))
	seen := sets.Make[string](len(pairs))
	for ii, pair := range pairs {
		if pair.Source == nil {
			exceptions.Panicf("predict.Named: source %q (#%d) is nil", pair.Name, ii)
		}
		if seen.Has(pair.Name) {
			exceptions.Panicf("predict.Named: duplicate source name %q (#%d)", pair.Name, ii)
		}
		seen.Insert(pair.Name)
		entries = append(entries, pair)
	}
	return SourceSpec{shape: ShapeNamed, entries: entries}
}

// Shape returns the shape the sources were declared in.
func (spec SourceSpec) Shape() SourceShape { return spec.shape }

// NumSources returns how many sources were declared.
func (spec SourceSpec) NumSources() int { return len(spec.entries) }

// Source returns the source at position idx, in declaration order.
func (spec SourceSpec) Source(idx int) Source { return spec.entries[idx].Source }

// SourceName returns a printable name for the source at position idx: the
// declared name for named sources, otherwise the source's own Name.
func (spec SourceSpec) SourceName(idx int) string {
	entry := spec.entries[idx]
	if entry.Name != "" {
		return entry.Name
	}
	return entry.Source.Name()
}
