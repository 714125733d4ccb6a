package commandline

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"

	"github.com/blitzml/blitz/pkg/ml/predict"
)

// ExtraMetricFn is any function that will give extra values to display along the progress bar.
// It is called at each update of the progress bar, and it should return a name and the current
// value when it is called.
type ExtraMetricFn func() (name, value string)

// RefreshPeriod is the time between terminal updates when batches are slow.
var RefreshPeriod = time.Second * 3

// ProgressbarStyle to use. Defaults to the ASCII version.
// Consider "progressbar.ThemeUnicode" for a prettier version.
// But it requires some of the graphical symbols to be supported.
var ProgressbarStyle = progressbar.ThemeASCII

// ProgressBarName is the hook name under which the progress bar registers
// itself on the loop.
const ProgressBarName = "blitz.predict.commandline.progressBar"

// maxBarUpdates is the target number of progress bar refreshes over a run:
// for runs longer than this, most batches are skipped.
const maxBarUpdates = 1000

// maxUpdateFrequency is the time between redraws of the commandline stats display.
const maxUpdateFrequency = time.Millisecond * 200

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	tableBorderColor  = "#705090"
)

// progressBar holds a progressbar being displayed.
type progressBar struct {
	out               io.Writer
	numBatches        int
	lastBatchReported int
	bar               *progressbar.ProgressBar
	suffix            string
	totalAmount       int
	spec              predict.SourceSpec

	// Per-run update stride, recomputed in onStart from the loop's batch
	// limit. The periodic refresh bypasses it.
	every       int
	strideCount int

	// lipgloss-based rich and asynchronous display for the command-line.
	termenv          *termenv.Output
	statsStyle       lipgloss.Style
	statsTable       *lgtable.Table
	isFirstOutput    bool
	updates          chan progressBarUpdate
	asyncUpdatesDone sync.WaitGroup

	extraMetricFns []ExtraMetricFn
}

// progressBarUpdate is a snapshot of the loop state, taken on the loop's
// goroutine and rendered asynchronously.
type progressBarUpdate struct {
	amount int
	rows   [][2]string
}

// Write implements io.Writer, and appends the current suffix to each line. It
// is meant to be used as the writer of the enclosed progressbar.ProgressBar,
// so the bar and the erase-to-end-of-line sequence go out in one write.
func (pBar *progressBar) Write(data []byte) (n int, err error) {
	n, err = pBar.out.Write(data)
	if err != nil {
		return n, err
	}
	_, err = pBar.out.Write([]byte(pBar.suffix))
	if err != nil {
		return 0, err
	}
	return
}

func (pBar *progressBar) onStart(loop *predict.Loop, spec predict.SourceSpec) error {
	// A run that fails never reaches the end hooks: reap the drawer it left
	// behind before touching any state it still reads.
	if pBar.updates != nil {
		close(pBar.updates)
		pBar.updates = nil
		pBar.asyncUpdatesDone.Wait()
	}

	pBar.spec = spec
	pBar.lastBatchReported = 0
	pBar.totalAmount = 0
	pBar.strideCount = 0
	pBar.isFirstOutput = true
	// Suffix to erase spurious characters from previous prints.
	pBar.suffix = "\033[J" // Erasing to the end of the screen instead of the line flickers on some terminals.
	pBar.every = 1
	if limit := loop.BatchLimit(); limit >= 0 {
		pBar.numBatches = limit * spec.NumSources()
		if limit > maxBarUpdates {
			pBar.every = limit / maxBarUpdates
		}
	} else {
		pBar.numBatches = 1000 // Guess for now.
	}
	pBar.bar = progressbar.NewOptions(pBar.numBatches,
		progressbar.OptionSetDescription("      [bold]"),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("batches"),
		progressbar.OptionSetTheme(ProgressbarStyle),
		progressbar.OptionSetWriter(pBar),
	)

	// The drawing goroutine spans one run: onEnd closes the channel and waits.
	pBar.updates = make(chan progressBarUpdate, 100) // Large buffer so things are not blocked.
	pBar.asyncUpdatesDone.Add(1)
	go pBar.drawUpdates()
	return nil
}

// onBatchEvery applies the per-run update stride, skipping most batches of
// long runs. The PeriodicCallback registration calls onBatch directly, so
// slow runs still refresh every RefreshPeriod.
func (pBar *progressBar) onBatchEvery(loop *predict.Loop, prediction any) error {
	pBar.strideCount++
	if pBar.strideCount%pBar.every != 0 {
		return nil
	}
	return pBar.onBatch(loop, prediction)
}

func (pBar *progressBar) onBatch(loop *predict.Loop, _ any) error {
	if pBar.bar == nil || pBar.bar.IsFinished() {
		return nil
	}

	// Check whether there is something to update.
	amount := loop.TotalBatches - pBar.lastBatchReported
	if amount <= 0 {
		return nil
	}

	// Snapshot the loop state here; the update is printed asynchronously.
	update := progressBarUpdate{amount: amount}
	if loop.BatchLimit() >= 0 {
		update.rows = append(update.rows, [2]string{"Batch",
			fmt.Sprintf("%s of %s", humanize.Comma(int64(loop.TotalBatches)), humanize.Comma(int64(pBar.numBatches)))})
	} else {
		update.rows = append(update.rows, [2]string{"Batch", humanize.Comma(int64(loop.TotalBatches))})
	}
	if loop.NumSources > 1 {
		update.rows = append(update.rows, [2]string{"Source",
			fmt.Sprintf("#%d of %d: %s", loop.SourceIndex+1, loop.NumSources, pBar.spec.SourceName(loop.SourceIndex))})
	}
	update.rows = append(update.rows, [2]string{"Median batch duration", FormatDuration(loop.MedianBatchDuration())})
	pBar.updates <- update

	pBar.totalAmount += amount
	pBar.lastBatchReported = loop.TotalBatches
	return nil
}

func (pBar *progressBar) onEnd(_ *predict.Loop, _ *predict.Results) error {
	if pBar.updates != nil {
		close(pBar.updates)
		pBar.updates = nil
	}
	pBar.asyncUpdatesDone.Wait()
	if pBar.termenv != nil {
		pBar.termenv.ShowCursor()
	}
	_, _ = fmt.Fprintln(pBar.out)
	return nil
}

// drawUpdates consumes the updates channel until it is closed, collapsing
// backed-up updates into one redraw. This keeps a fast prediction loop from
// being throttled by a slow terminal, e.g. over a cloud connection.
func (pBar *progressBar) drawUpdates() {
	defer pBar.asyncUpdatesDone.Done()
	for update := range pBar.updates {
		// Exhaust the updates in the buffer:
		amount := update.amount
	exhaust:
		for {
			select {
			case newUpdate, ok := <-pBar.updates:
				if !ok {
					break exhaust
				}
				amount += newUpdate.amount
				update = newUpdate
			default:
				break exhaust
			}
		}

		// Create the table to be printed.
		pBar.statsTable.Data(lgtable.NewStringData())
		for _, row := range update.rows {
			pBar.statsTable.Row(row[0], row[1])
		}
		for _, extraMetric := range pBar.extraMetricFns {
			name, value := extraMetric()
			pBar.statsTable.Row(name, value)
		}

		// Clear the previous lines that will be overwritten.
		pBar.termenv.HideCursor()
		if !pBar.isFirstOutput {
			numLinesToBackup := len(update.rows) + 2 + 2 + len(pBar.extraMetricFns)
			pBar.termenv.CursorPrevLine(numLinesToBackup)
		}
		pBar.isFirstOutput = false

		// Print update.
		_, _ = fmt.Fprintln(pBar.out, pBar.statsStyle.Render(pBar.statsTable.String()))
		_ = pBar.bar.Add(amount) // Prints the progress bar line.
		_, _ = fmt.Fprintln(pBar.out)
		pBar.termenv.ShowCursor()
		time.Sleep(maxUpdateFrequency)
	}
}

// AttachProgressBar creates a commandline progress bar and attaches it to the
// Loop, so that every time Loop is run, it will display a progress bar with
// the progression and per-run stats.
//
// The associated data is attached to the predict.Loop, so nothing is returned.
//
// Optionally, one can provide extraMetrics: functions that are called at every
// update of the progress bar and should return a name (title) and a value to
// be included in the updated print-out.
func AttachProgressBar(loop *predict.Loop, extraMetrics ...ExtraMetricFn) {
	attachTo(loop, os.Stdout, extraMetrics...)
}

// attachTo builds the progress bar writing to out and registers its hooks on
// the loop.
func attachTo(loop *predict.Loop, out io.Writer, extraMetrics ...ExtraMetricFn) *progressBar {
	pBar := &progressBar{
		out:            out,
		extraMetricFns: extraMetrics,
	}
	pBar.termenv = termenv.NewOutput(out)
	pBar.statsStyle = lipgloss.NewStyle().PaddingLeft(8)
	pBar.statsTable = lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(tableBorderColor))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return rightAlignedStyle
			}
			return normalStyle
		})

	loop.OnStart(ProgressBarName, 0, pBar.onStart)
	// Update at most ~maxBarUpdates times during the run, but at least every
	// RefreshPeriod while batches keep coming.
	loop.OnBatch(ProgressBarName, 0, pBar.onBatchEvery)
	predict.PeriodicCallback(loop, RefreshPeriod, false, ProgressBarName, 0, pBar.onBatch)
	loop.OnEnd(ProgressBarName, 0, pBar.onEnd)
	return pBar
}
