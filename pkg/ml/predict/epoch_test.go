// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package predict

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventLog records the order of epoch stamping and batch drawing.
type eventLog struct {
	events []string
}

// loggingSampler is an epoch-aware sampling policy that logs its stamping.
type loggingSampler struct {
	log   *eventLog
	name  string
	epoch int
	set   bool
}

func (s *loggingSampler) SetEpoch(epoch int) {
	s.epoch = epoch
	s.set = true
	s.log.events = append(s.log.events, s.name)
}

// loggingBatchSampler is an epoch-aware batching policy wrapping an inner sampler.
type loggingBatchSampler struct {
	loggingSampler
	inner *loggingSampler
}

func (bs *loggingBatchSampler) Sampler() any { return bs.inner }

// sampledSource is a source whose batching is driven by a batch sampler.
type sampledSource struct {
	log *eventLog
	bs  *loggingBatchSampler
	n   int
}

func (ds *sampledSource) Name() string { return "sampled" }
func (ds *sampledSource) Reset()       {}
func (ds *sampledSource) Yield() (any, error) {
	if ds.n == 0 {
		return nil, io.EOF
	}
	ds.n--
	ds.log.events = append(ds.log.events, "yield")
	return 1, nil
}
func (ds *sampledSource) BatchSampler() any { return ds.bs }

func newSampledSource(log *eventLog, n int) *sampledSource {
	return &sampledSource{
		log: log,
		bs: &loggingBatchSampler{
			loggingSampler: loggingSampler{log: log, name: "batchSampler"},
			inner:          &loggingSampler{log: log, name: "sampler"},
		},
		n: n,
	}
}

func TestEpochStampedOnSamplerChain(t *testing.T) {
	log := &eventLog{}
	source := newSampledSource(log, 2)
	_, err := NewLoop(&echoModel{}).WithEpoch(2).Run(Single(source))
	require.NoError(t, err)

	assert.Equal(t, 2, source.bs.epoch, "the batch sampler must be stamped")
	assert.Equal(t, 2, source.bs.inner.epoch, "the sampler nested in the batch sampler must be stamped")
	assert.Equal(t, []string{"batchSampler", "sampler", "yield", "yield"}, log.events,
		"stamping must happen strictly before the first batch is drawn")
}

func TestEpochDefaultsToZero(t *testing.T) {
	log := &eventLog{}
	source := newSampledSource(log, 1)
	_, err := NewLoop(&echoModel{}).Run(Single(source))
	require.NoError(t, err)
	assert.True(t, source.bs.inner.set, "the epoch must be stamped even when not configured")
	assert.Zero(t, source.bs.inner.epoch)
}

func TestEpochStampedOnEverySource(t *testing.T) {
	log := &eventLog{}
	a, b := newSampledSource(log, 1), newSampledSource(log, 1)
	_, err := NewLoop(&echoModel{}).WithEpoch(7).Run(List(a, b))
	require.NoError(t, err)
	assert.Equal(t, 7, a.bs.inner.epoch)
	assert.Equal(t, 7, b.bs.inner.epoch)
}

// epochAwareSource is a source that reacts to epochs itself, no samplers involved.
type epochAwareSource struct {
	testSource
	epoch int
	set   bool
}

func (ds *epochAwareSource) SetEpoch(epoch int) { ds.epoch = epoch; ds.set = true }

func TestEpochStampedOnSourceItself(t *testing.T) {
	source := &epochAwareSource{testSource: *newTestSource("aware", 1, 2)}
	_, err := NewLoop(&echoModel{}).WithEpoch(5).Run(Single(source))
	require.NoError(t, err)
	assert.True(t, source.set)
	assert.Equal(t, 5, source.epoch)
}

// directlySampledSource exposes its sampler without a batch sampler in between.
type directlySampledSource struct {
	testSource
	sampler *loggingSampler
}

func (ds *directlySampledSource) Sampler() any { return ds.sampler }

func TestEpochStampedOnDirectSampler(t *testing.T) {
	log := &eventLog{}
	source := &directlySampledSource{
		testSource: *newTestSource("direct", 1),
		sampler:    &loggingSampler{log: log, name: "sampler"},
	}
	_, err := NewLoop(&echoModel{}).WithEpoch(3).Run(Single(source))
	require.NoError(t, err)
	assert.Equal(t, 3, source.sampler.epoch)
}
