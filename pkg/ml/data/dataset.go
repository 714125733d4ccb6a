// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

// Package data provides the data-loading layer for prediction runs:
// indexable datasets, sampling policies (sequential, random and distributed)
// and a Loader that batches a dataset into a prediction source.
package data

import (
	"github.com/pkg/errors"
)

// Dataset is a finite, indexable collection of examples. It is the
// random-access counterpart of a sequential batch source: a Loader plus a
// sampling policy turn one into the other.
type Dataset interface {
	// Name identifies the dataset for logging and error messages.
	Name() string

	// Len returns the number of examples.
	Len() int

	// At returns the example at the given index, 0 <= index < Len().
	At(index int) (any, error)
}

// SliceDataset is an in-memory Dataset backed by a slice of examples.
type SliceDataset struct {
	name  string
	items []any
}

// FromSlice wraps items into a SliceDataset named name.
func FromSlice[T any](name string, items []T) *SliceDataset {
	boxed := make([]any, len(items))
	for ii, item := range items {
		boxed[ii] = item
	}
	return &SliceDataset{name: name, items: boxed}
}

// Name implements Dataset.
func (ds *SliceDataset) Name() string { return ds.name }

// Len implements Dataset.
func (ds *SliceDataset) Len() int { return len(ds.items) }

// At implements Dataset.
func (ds *SliceDataset) At(index int) (any, error) {
	if index < 0 || index >= len(ds.items) {
		return nil, errors.Errorf("index %d out of range for dataset %q with %d examples",
			index, ds.name, len(ds.items))
	}
	return ds.items[index], nil
}

var _ Dataset = (*SliceDataset)(nil)
