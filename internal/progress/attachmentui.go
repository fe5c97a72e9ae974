package progress

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/qbfetch/qbfetch/internal/constants"
)

// AttachmentUI shows one progress bar over all attachment tasks of a run.
// Off a terminal the bar is discarded and only the log lines remain.
type AttachmentUI struct {
	progress   *mpb.Progress
	bar        *mpb.Bar
	isTerminal bool
	total      int
	completed  int32
	failed     int32
}

// NewAttachmentUI creates a progress bar for total attachment tasks.
func NewAttachmentUI(total int) *AttachmentUI {
	return newAttachmentUI(total, os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func newAttachmentUI(total int, out *os.File, isTerminal bool) *AttachmentUI {
	u := &AttachmentUI{
		isTerminal: isTerminal,
		total:      total,
	}

	if !isTerminal {
		u.progress = mpb.New(mpb.WithOutput(io.Discard))
		return u
	}

	enableWindowsANSI(out)
	u.progress = mpb.New(
		mpb.WithOutput(out),
		mpb.WithRefreshRate(constants.ProgressRefreshRate),
		mpb.WithWidth(80),
	)
	u.bar = u.progress.New(int64(total),
		mpb.BarStyle().
			Lbound("[").
			Filler("█").
			Tip("█").
			Padding("░").
			Rbound("]"),
		mpb.PrependDecorators(
			decor.Name("Attachments ", decor.WCSyncSpaceR),
			decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.Any(func(s decor.Statistics) string {
				if failed := atomic.LoadInt32(&u.failed); failed > 0 {
					return fmt.Sprintf("%d failed", failed)
				}
				return ""
			}, decor.WCSyncSpace),
			decor.Name("  "),
			decor.Percentage(decor.WCSyncSpace),
			decor.Name("  ETA "),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
		mpb.BarRemoveOnComplete(),
	)
	return u
}

// Complete records the outcome of one task.
func (u *AttachmentUI) Complete(ok bool) {
	if !ok {
		atomic.AddInt32(&u.failed, 1)
	}
	atomic.AddInt32(&u.completed, 1)
	if u.bar != nil {
		u.bar.Increment()
	}
}

// Wait blocks until the bar has rendered its final state.
// Tasks that were never dispatched are accounted for so the bar terminates.
func (u *AttachmentUI) Wait() {
	if u.bar != nil && !u.bar.Completed() {
		u.bar.SetTotal(int64(atomic.LoadInt32(&u.completed)), true)
	}
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Writer returns an io.Writer that safely prints above the progress bar.
func (u *AttachmentUI) Writer() io.Writer {
	if u.progress != nil && u.isTerminal {
		return u.progress
	}
	return os.Stdout
}

// Completed returns the number of finished tasks.
func (u *AttachmentUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

// Failed returns the number of failed tasks.
func (u *AttachmentUI) Failed() int {
	return int(atomic.LoadInt32(&u.failed))
}

// IsTerminal returns whether the bar is rendered to a terminal.
func (u *AttachmentUI) IsTerminal() bool {
	return u.isTerminal
}
