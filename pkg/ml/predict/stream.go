// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package predict

import "io"

// Stream is the handle given to a StreamPredictor: a pull interface over the
// batches of the single source of a streaming run. It enforces the run's
// batch limit, so the model does not need to know about it.
type Stream struct {
	source Source
	limit  int // Negative means unlimited.
	count  int
	done   bool
}

func newStream(source Source, limit int) *Stream {
	return &Stream{source: source, limit: limit}
}

// Next returns the next batch of the run. It returns io.EOF when the source
// is exhausted or the run's batch limit has been reached; any other error is
// a failure of the underlying source.
func (s *Stream) Next() (batch any, err error) {
	if s.done {
		return nil, io.EOF
	}
	if s.limit >= 0 && s.count >= s.limit {
		s.done = true
		return nil, io.EOF
	}
	batch, err = s.source.Yield()
	if err != nil {
		if err == io.EOF {
			s.done = true
		}
		return nil, err
	}
	s.count++
	return batch, nil
}

// Drained returns whether Next already reported io.EOF. Once drained a
// stream stays drained.
func (s *Stream) Drained() bool { return s.done }

// Count returns how many batches have been pulled so far.
func (s *Stream) Count() int { return s.count }

// Name returns the name of the underlying source.
func (s *Stream) Name() string { return s.source.Name() }
