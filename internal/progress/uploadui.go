package progress

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"

	"github.com/auditportal/auditportal/internal/constants"
)

// UploadUI renders one mpb bar per concurrent upload. When out is not a
// terminal, bars are replaced by one line per file.
type UploadUI struct {
	progress   *mpb.Progress
	out        io.Writer
	isTerminal bool
	totalFiles int
	started    int32
	completed  int32
	mu         sync.Mutex
}

// FileBar is a single file's bar.
type FileBar struct {
	bar         *mpb.Bar
	ui          *UploadUI
	index       int
	name        string
	destination string
	size        int64
	retries     int32
	current     atomic.Int64
	startTime   time.Time
	lastUpdate  time.Time
	lastBytes   int64
}

// NewUploadUI creates a UI for totalFiles uploads writing to out.
// A nil out means stderr.
func NewUploadUI(totalFiles int, out io.Writer) *UploadUI {
	if out == nil {
		out = os.Stderr
	}
	isTerminal := false
	if f, ok := out.(*os.File); ok {
		isTerminal = term.IsTerminal(int(f.Fd()))
	}

	var p *mpb.Progress
	if isTerminal {
		enableANSIOnWindows(out.(*os.File))
		p = mpb.New(
			mpb.WithOutput(out),
			mpb.WithRefreshRate(constants.ProgressRefreshRate),
			mpb.WithWidth(constants.ProgressBarWidth),
		)
	} else {
		p = mpb.New(mpb.WithOutput(io.Discard))
	}

	return &UploadUI{
		progress:   p,
		out:        out,
		isTerminal: isTerminal,
		totalFiles: totalFiles,
	}
}

// AddFileBar creates a bar for name, uploaded into categories.
func (u *UploadUI) AddFileBar(name string, categories []string, size int64) FileBarHandle {
	index := int(atomic.AddInt32(&u.started, 1))
	destination := strings.Join(categories, ", ")
	label := truncatePath(name, 2)

	fb := &FileBar{
		ui:          u,
		index:       index,
		name:        name,
		destination: destination,
		size:        size,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
	}

	if u.isTerminal {
		fb.bar = u.progress.New(size,
			mpb.BarStyle().
				Lbound("[").
				Filler("█").
				Tip("█").
				Padding("░").
				Rbound("]"),
			mpb.PrependDecorators(
				decor.Any(func(s decor.Statistics) string {
					base := fmt.Sprintf("[%d/%d] %s (%.1f MiB) → %s",
						fb.index, u.totalFiles, label,
						float64(size)/(1024*1024), destination)
					if retries := atomic.LoadInt32(&fb.retries); retries > 0 {
						return fmt.Sprintf("%s (retry %d)", base, retries)
					}
					return base
				}, decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.CountersKibiByte("% .1f / % .1f", decor.WCSyncSpace),
				decor.Name("  "),
				decor.Percentage(decor.WCSyncSpace),
				decor.Name("  "),
				decor.EwmaSpeed(decor.SizeB1024(0), "% .1f", 30, decor.WCSyncSpace),
				decor.Name("  "),
				decor.Name("ETA ", decor.WCSyncWidth),
				decor.EwmaETA(decor.ET_STYLE_GO, 30),
			),
			mpb.BarRemoveOnComplete(),
		)
	} else {
		u.printf("Uploading [%d/%d]: %s (%.1f MiB) → %s\n",
			fb.index, u.totalFiles, label,
			float64(size)/(1024*1024), destination)
	}
	return fb
}

func (u *UploadUI) printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if u.isTerminal {
		// Through mpb so the bars are redrawn below the line.
		u.progress.Write([]byte(msg))
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	io.WriteString(u.out, msg)
}

// Start resets the start time. The total is fixed when the bar is added.
func (f *FileBar) Start(total int64, description string) {
	f.startTime = time.Now()
	f.lastUpdate = f.startTime
}

// Update moves the bar to current bytes. Updates closer together than the
// refresh rate are folded into the next one.
func (f *FileBar) Update(current int64) {
	f.current.Store(current)
	if f.bar == nil {
		return
	}
	now := time.Now()
	elapsed := now.Sub(f.lastUpdate)
	if elapsed < constants.ProgressRefreshRate && current < f.size {
		return
	}
	f.bar.EwmaIncrBy(int(current-f.lastBytes), elapsed)
	f.lastBytes = current
	f.lastUpdate = now
}

// Finish fills the bar. Complete prints the summary.
func (f *FileBar) Finish() {
	if f.bar != nil {
		f.bar.SetCurrent(f.size)
	}
}

// Error is reported through Complete.
func (f *FileBar) Error(err error) {}

// SetDescription is ignored; the label is fixed.
func (f *FileBar) SetDescription(desc string) {}

// SetRetry updates the retry counter and rewinds the bar.
func (f *FileBar) SetRetry(count int) {
	atomic.StoreInt32(&f.retries, int32(count))
	if f.bar != nil && count > 0 {
		f.bar.SetRefill(f.lastBytes)
	}
}

// Complete marks the upload finished and prints a summary line.
func (f *FileBar) Complete(fileID int64, err error) {
	elapsed := time.Since(f.startTime)

	if err == nil {
		if f.bar != nil {
			f.bar.SetCurrent(f.size)
			f.bar.SetTotal(f.size, true)
		}
		speed := float64(f.size) / elapsed.Seconds() / (1024 * 1024)
		f.ui.printf("✓ %s → %s (id %d, %.1f MiB, %s, %.1f MiB/s)\n",
			truncatePath(f.name, 2), f.destination, fileID,
			float64(f.size)/(1024*1024), elapsed.Round(time.Second), speed)
	} else {
		if f.bar != nil {
			f.bar.Abort(false)
		}
		f.ui.printf("✗ %s → %s: %v (after %d retries)\n",
			truncatePath(f.name, 2), f.destination, err, atomic.LoadInt32(&f.retries))
	}
	atomic.AddInt32(&f.ui.completed, 1)
}

// Completed returns the number of bars that have finished.
func (u *UploadUI) Completed() int {
	return int(atomic.LoadInt32(&u.completed))
}

// Wait blocks until all bars complete.
func (u *UploadUI) Wait() {
	if u.progress != nil {
		u.progress.Wait()
	}
}

// Writer returns an io.Writer that prints above the bars.
func (u *UploadUI) Writer() io.Writer {
	if u.isTerminal {
		return u.progress
	}
	return u.out
}

func (u *UploadUI) IsTerminal() bool {
	return u.isTerminal
}

// truncatePath keeps the last maxComponents elements of path.
// Example: truncatePath("/a/b/c/d/file.txt", 3) → "…/c/d/file.txt"
func truncatePath(path string, maxComponents int) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) <= maxComponents {
		return filepath.Base(path)
	}
	return "…/" + strings.Join(parts[len(parts)-maxComponents:], "/")
}

func enableANSIOnWindows(f *os.File) {
	if runtime.GOOS == "windows" {
		enableWindowsANSI(f)
	}
}
