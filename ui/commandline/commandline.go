// Copyright 2026 The Blitz Authors. SPDX-License-Identifier: Apache-2.0

// Package commandline contains convenience UI prediction tools for the command line.
package commandline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/blitzml/blitz/pkg/ml/predict"
)

// WriteSummary reports on w the outcome of a finished prediction run: batch
// and source counts, collected predictions, step durations and throughput.
// results may be nil, e.g. for a loop configured with DiscardResults.
func WriteSummary(w io.Writer, loop *predict.Loop, results *predict.Results) error {
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})

	table.Row("Batches predicted", humanize.Comma(int64(loop.TotalBatches)))
	table.Row("Sources", humanize.Comma(int64(loop.NumSources)))
	if results == nil {
		table.Row("Predictions", "discarded")
	} else {
		table.Row("Predictions", humanize.Comma(int64(results.NumPredictions())))
		if results.Shape() == predict.ShapeNamed {
			for idx, predictions := range results.PerSource() {
				table.Row(fmt.Sprintf("of %q", results.SourceName(idx)), humanize.Comma(int64(len(predictions))))
			}
		}
	}
	table.Row("Median batch duration", FormatDuration(loop.MedianBatchDuration()))

	var total time.Duration
	for _, d := range loop.BatchDurations {
		total += d
	}
	table.Row("Total prediction time", FormatDuration(total))
	if total > 0 && loop.TotalBatches > 0 {
		table.Row("Throughput", fmt.Sprintf("%.1f batches/s", float64(loop.TotalBatches)/total.Seconds()))
	}

	_, err := fmt.Fprintln(w, table.String())
	return err
}
