// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package sources

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blitzml/blitz/pkg/ml/predict"
)

// erroringSource yields good batches and then fails with err.
type erroringSource struct {
	good, next int
	err        error
}

func (s *erroringSource) Name() string { return "erroring" }
func (s *erroringSource) Reset()       { s.next = 0 }
func (s *erroringSource) Yield() (any, error) {
	if s.next >= s.good {
		return nil, s.err
	}
	value := s.next
	s.next++
	return value, nil
}

func TestReadAheadOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	source := ReadAhead(Take(Counter("steps"), 50), 4)
	assert.Equal(t, "steps [Take 50]", source.Name())

	want := make([]any, 50)
	for ii := range want {
		want[ii] = ii
	}
	assert.Equal(t, want, drain(t, source))
}

func TestReadAheadReset(t *testing.T) {
	defer goleak.VerifyNone(t)
	source := ReadAhead(FromSlice("digits", []int{0, 1, 2, 3, 4}), 2)

	// Abandon a pass mid-way; Reset must restart the wrapped source too.
	for ii := 0; ii < 3; ii++ {
		_, err := source.Yield()
		require.NoError(t, err)
	}
	source.Reset()
	assert.Equal(t, []any{0, 1, 2, 3, 4}, drain(t, source))

	// After a natural end of pass, Reset starts over as well.
	source.Reset()
	assert.Equal(t, []any{0, 1, 2, 3, 4}, drain(t, source))
}

func TestReadAheadDone(t *testing.T) {
	defer goleak.VerifyNone(t)
	source := ReadAhead(Take(Counter("steps"), 1000), 8).(*ReadAheadSource)
	for ii := 0; ii < 2; ii++ {
		_, err := source.Yield()
		require.NoError(t, err)
	}
	source.Done()

	_, err := source.Yield()
	require.ErrorContains(t, err, "after it was stopped")

	// Reset revives the source.
	source.Reset()
	batch, err := source.Yield()
	require.NoError(t, err)
	assert.Equal(t, 0, batch)
	source.Done()
}

func TestReadAheadError(t *testing.T) {
	defer goleak.VerifyNone(t)
	wantErr := errors.New("storage offline")
	source := ReadAhead(&erroringSource{good: 3, err: wantErr}, 2)

	// The good batches arrive in order, then the failure, then end-of-pass.
	for want := 0; want < 3; want++ {
		batch, err := source.Yield()
		require.NoError(t, err)
		assert.Equal(t, want, batch)
	}
	_, err := source.Yield()
	require.ErrorIs(t, err, wantErr)
	_, err = source.Yield()
	assert.Equal(t, io.EOF, err)
}

func TestReadAheadZeroBuffer(t *testing.T) {
	source := Counter("steps")
	assert.Same(t, source, ReadAhead(source, 0))
}

func TestReadAheadEpochBeforePrefetch(t *testing.T) {
	defer goleak.VerifyNone(t)
	inner := &epochRecordingSource{limit: 5}
	results, err := predict.NewLoop(echoPredictor{}).
		WithEpoch(7).
		Run(predict.Single(ReadAhead(inner, 2)))
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1, 2, 3, 4}, results.Flat())

	// The producer only starts at the first Yield, so the epoch was already
	// stamped when the first batch was drawn.
	assert.True(t, inner.epochSet)
	assert.Equal(t, 7, inner.epoch)
}
