// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package sources

import (
	"io"
	"runtime"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/blitzml/blitz/pkg/ml/predict"
	"github.com/blitzml/blitz/pkg/support/xsync"
)

// ReadAheadSource prefetches the batches of a wrapped source into a buffer,
// so Yield returns immediately while the following batches are produced in
// the background. A single producer goroutine is used, so batch order is
// preserved -- which prediction results depend on.
//
// The producer starts lazily at the first Yield, after the prediction loop
// has stamped epochs on the source's sampling policies. Reset stops it,
// resets the wrapped source and lets the next Yield start a fresh pass. Call
// Done when abandoning the source mid-pass, to not leak the producer.
type ReadAheadSource struct {
	source     predict.Source
	bufferSize int
	impl       *readAheadImpl
	terminated bool

	// keepAlive prevents the finalizer from stopping the producer while a
	// method runs. See runtime.SetFinalizer in start.
	keepAlive int
}

// readAheadUnit is one prefetched yield: a batch or the error that ended the
// pass.
type readAheadUnit struct {
	batch any
	err   error
}

// readAheadImpl separates the running state of a ReadAheadSource. It's
// important that it doesn't point back to the ReadAheadSource, so garbage
// collecting one also stops its producer goroutine.
type readAheadImpl struct {
	source predict.Source
	buffer chan readAheadUnit
	stop   chan struct{}
	done   *xsync.Latch
}

// ReadAhead wraps source with a prefetch buffer of bufferSize batches. If
// bufferSize <= 0, source is returned unchanged.
//
// The epoch-related capabilities of the wrapped source (predict.EpochAware,
// predict.HasBatchSampler, predict.HasSampler) are forwarded.
func ReadAhead(source predict.Source, bufferSize int) predict.Source {
	if bufferSize <= 0 {
		return source
	}
	return &ReadAheadSource{source: source, bufferSize: bufferSize}
}

// start spins up the producer goroutine for a new pass.
func (src *ReadAheadSource) start() {
	impl := &readAheadImpl{
		source: src.source,
		buffer: make(chan readAheadUnit, src.bufferSize),
		stop:   make(chan struct{}),
		done:   xsync.NewLatch(),
	}
	src.impl = impl
	// If the ReadAheadSource is garbage collected, stop the producer.
	runtime.SetFinalizer(src, func(src *ReadAheadSource) {
		if src.impl != nil {
			close(src.impl.stop)
			src.impl = nil
		}
	})
	go impl.run()
}

// run produces batches until the source ends, fails or the pass is stopped.
// Closing the buffer signals the end of the pass to the consumer.
func (impl *readAheadImpl) run() {
	defer impl.done.Trigger()
	defer close(impl.buffer)
	for {
		batch, err := impl.source.Yield()
		if err == io.EOF {
			return
		}
		if err != nil {
			klog.Errorf("read-ahead source %q failed: %+v", impl.source.Name(), err)
		}
		select {
		case <-impl.stop:
			return
		case impl.buffer <- readAheadUnit{batch: batch, err: err}:
		}
		if err != nil {
			return
		}
	}
}

// Name implements predict.Source.
func (src *ReadAheadSource) Name() string { return src.source.Name() }

// Yield implements predict.Source. The first call of a pass starts the
// producer.
func (src *ReadAheadSource) Yield() (any, error) {
	if src.terminated {
		return nil, errors.Errorf("read-ahead source %q used after it was stopped with Done (Reset makes it usable again)", src.Name())
	}
	if src.impl == nil {
		src.start()
	}
	unit, ok := <-src.impl.buffer
	if !ok {
		// Producer finished and the buffer is drained.
		return nil, io.EOF
	}

	// This no-op prevents `src` from being garbage collected, and the producer
	// stopped, in the middle of the Yield operation. Leave this at the end.
	src.keepAlive++
	return unit.batch, unit.err
}

// Reset implements predict.Source: it stops a running pass, resets the
// wrapped source and lets the next Yield start over.
func (src *ReadAheadSource) Reset() {
	src.stopAndWait()
	src.terminated = false
	src.source.Reset()
}

// Done stops the producer goroutine and waits for it to exit. The source is
// unusable afterwards, until Reset.
func (src *ReadAheadSource) Done() {
	src.stopAndWait()
	src.terminated = true
}

func (src *ReadAheadSource) stopAndWait() {
	impl := src.impl
	if impl == nil {
		return
	}
	src.impl = nil
	close(impl.stop)
	// Discard what was buffered, so the producer is never stuck sending.
	for range impl.buffer {
	}
	impl.done.Wait()
	src.keepAlive++
}

func (src *ReadAheadSource) SetEpoch(epoch int) { forwardEpoch(src.source, epoch) }
func (src *ReadAheadSource) BatchSampler() any  { return forwardBatchSampler(src.source) }
func (src *ReadAheadSource) Sampler() any       { return forwardSampler(src.source) }

var (
	_ predict.Source     = (*ReadAheadSource)(nil)
	_ predict.EpochAware = (*ReadAheadSource)(nil)
)
