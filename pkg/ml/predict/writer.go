// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

package predict

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/blitzml/blitz/pkg/support/fsutil"
)

// ResultWriterName is the base name of the hooks registered by
// AttachResultWriter. A unique suffix is appended, so several writers can be
// attached to the same loop.
const ResultWriterName = "blitz.predict.resultWriter"

// BatchPrediction is the record streamed by AttachResultWriter, one per
// prediction step, in run order.
type BatchPrediction struct {
	// SourceIndex of the source the batch came from, in declaration order.
	SourceIndex int

	// SourceName the source was declared with, or "" if sources were not named.
	SourceName string

	// BatchIndex within the source, 0-based.
	BatchIndex int

	// Prediction returned by the model's step.
	Prediction any
}

// resultWriter encodes one BatchPrediction per prediction step.
type resultWriter struct {
	enc  *gob.Encoder
	spec SourceSpec
}

func (w *resultWriter) onStart(_ *Loop, spec SourceSpec) error {
	w.spec = spec
	return nil
}

func (w *resultWriter) onBatch(loop *Loop, prediction any) error {
	record := BatchPrediction{
		SourceIndex: loop.SourceIndex,
		BatchIndex:  loop.BatchIndex,
		Prediction:  prediction,
	}
	if w.spec.Shape() == ShapeNamed {
		record.SourceName = w.spec.SourceName(loop.SourceIndex)
	}
	if err := w.enc.Encode(record); err != nil {
		return errors.Wrapf(err, "failed to write prediction of batch #%d of source #%d",
			loop.BatchIndex, loop.SourceIndex)
	}
	return nil
}

// AttachResultWriter streams every prediction of the runs of loop to w, as
// gob-encoded BatchPrediction records, in run order.
//
// It works independently of result collection, so it combines well with
// Loop.DiscardResults for runs too large to hold in memory.
//
// Prediction values are encoded inside an interface field: custom types must
// be registered with gob.Register by the caller.
func AttachResultWriter(loop *Loop, w io.Writer) {
	name := fmt.Sprintf("%s-%s", ResultWriterName, uuid.NewString())
	writer := &resultWriter{enc: gob.NewEncoder(w)}
	loop.OnStart(name, 0, writer.onStart)
	loop.OnBatch(name, 0, writer.onBatch)
}

// fileResultWriter streams each run of a loop into its own copy of the file,
// with its own gob stream.
type fileResultWriter struct {
	filePath string
	f        *os.File
	writer   resultWriter
	started  bool
}

func (fw *fileResultWriter) onStart(loop *Loop, spec SourceSpec) error {
	if fw.started && fw.f != nil {
		// The previous run failed before its end hooks: drop its partial file.
		if err := fw.f.Close(); err != nil {
			return errors.Wrapf(err, "failed closing predictions file %q of an interrupted run", fw.filePath)
		}
		fw.f = nil
	}
	if fw.f == nil {
		var err error
		fw.f, err = os.Create(fw.filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to create predictions file %q", fw.filePath)
		}
	}
	fw.started = true
	fw.writer = resultWriter{enc: gob.NewEncoder(fw.f)}
	return fw.writer.onStart(loop, spec)
}

func (fw *fileResultWriter) onBatch(loop *Loop, prediction any) error {
	return fw.writer.onBatch(loop, prediction)
}

func (fw *fileResultWriter) onEnd(*Loop, *Results) error {
	f := fw.f
	fw.f = nil
	return errors.Wrapf(f.Close(), "failed closing predictions file %q", fw.filePath)
}

// AttachResultWriterToFile streams the predictions of each run of loop to the
// file at filePath, as gob-encoded BatchPrediction records readable with
// ReadBatchPredictions. A leading "~" in filePath is expanded to the home
// directory.
//
// The file is created (or truncated) when a run starts and closed when it
// ends, so after a run it holds exactly that run's records. A file left open
// by an interrupted run is replaced when the next run starts.
func AttachResultWriterToFile(loop *Loop, filePath string) error {
	filePath, err := fsutil.ReplaceTildeInDir(filePath)
	if err != nil {
		return err
	}
	// Create eagerly, so an unusable path fails here and not mid-run.
	f, err := os.Create(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to create predictions file %q", filePath)
	}
	fw := &fileResultWriter{filePath: filePath, f: f}
	name := fmt.Sprintf("%s-%s", ResultWriterName, uuid.NewString())
	loop.OnStart(name, 0, fw.onStart)
	loop.OnBatch(name, 0, fw.onBatch)
	// Close after the hooks at default priority ran.
	loop.OnEnd(fmt.Sprintf("%s-close", name), 100, fw.onEnd)
	return nil
}

// ReadBatchPredictions decodes every BatchPrediction record from r, until
// EOF. It reads back what AttachResultWriter wrote.
func ReadBatchPredictions(r io.Reader) ([]BatchPrediction, error) {
	dec := gob.NewDecoder(r)
	var records []BatchPrediction
	for {
		var record BatchPrediction
		err := dec.Decode(&record)
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read prediction record #%d", len(records))
		}
		records = append(records, record)
	}
}
