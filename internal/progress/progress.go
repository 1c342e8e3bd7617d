// Package progress reports transfer progress as terminal bars or as
// events on the bus.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/auditportal/auditportal/internal/events"
)

// Reporter receives progress for a single transfer.
type Reporter interface {
	Start(total int64, description string)
	Update(current int64)
	Finish()
	Error(err error)
	SetDescription(desc string)
}

// CLIProgress renders a single progress bar.
type CLIProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewCLIProgress creates a bar writing to out, or stderr when out is nil.
func NewCLIProgress(out io.Writer) *CLIProgress {
	if out == nil {
		out = os.Stderr
	}
	return &CLIProgress{out: out}
}

// Start initializes the bar. A total of zero or less shows a spinner.
func (p *CLIProgress) Start(total int64, description string) {
	if total <= 0 {
		total = -1
	}
	p.bar = progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(p.out, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func (p *CLIProgress) Update(current int64) {
	if p.bar != nil {
		_ = p.bar.Set64(current)
	}
}

func (p *CLIProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

func (p *CLIProgress) Error(err error) {
	if err != nil {
		fmt.Fprintf(p.out, "\nError: %v\n", err)
	}
}

func (p *CLIProgress) SetDescription(desc string) {
	if p.bar != nil {
		p.bar.Describe(desc)
	}
}

// EventProgress publishes progress as TransferEvents. It is what the
// interactive browser uses, since bars would corrupt its screen.
type EventProgress struct {
	bus      *events.EventBus
	taskID   string
	taskType string
	name     string
	total    int64
}

// NewEventProgress creates a reporter for one transfer.
func NewEventProgress(bus *events.EventBus, taskID, taskType, name string) *EventProgress {
	return &EventProgress{bus: bus, taskID: taskID, taskType: taskType, name: name}
}

func (p *EventProgress) Start(total int64, description string) {
	p.total = total
	p.bus.PublishTransfer(events.EventTransferStarted, p.taskID, p.taskType, p.name, total, 0, nil)
}

func (p *EventProgress) Update(current int64) {
	var fraction float64
	if p.total > 0 {
		fraction = float64(current) / float64(p.total)
	}
	p.bus.PublishTransfer(events.EventTransferProgress, p.taskID, p.taskType, p.name, p.total, fraction, nil)
}

func (p *EventProgress) Finish() {
	p.bus.PublishTransfer(events.EventTransferCompleted, p.taskID, p.taskType, p.name, p.total, 1, nil)
}

func (p *EventProgress) Error(err error) {
	if err != nil {
		p.bus.PublishTransfer(events.EventTransferFailed, p.taskID, p.taskType, p.name, p.total, 0, err)
	}
}

func (p *EventProgress) SetDescription(desc string) {
	p.name = desc
}

// NoOpProgress discards all progress.
type NoOpProgress struct{}

// NewNoOpProgress creates a new no-op progress reporter.
func NewNoOpProgress() *NoOpProgress {
	return &NoOpProgress{}
}

func (p *NoOpProgress) Start(total int64, description string) {}
func (p *NoOpProgress) Update(current int64)                  {}
func (p *NoOpProgress) Finish()                               {}
func (p *NoOpProgress) Error(err error)                       {}
func (p *NoOpProgress) SetDescription(desc string)            {}

// ProgressReader wraps an io.Reader and reports the running byte count.
type ProgressReader struct {
	reader   io.Reader
	reporter Reporter
	total    int64
	current  int64
}

// NewProgressReader creates a new progress-reporting reader.
func NewProgressReader(reader io.Reader, total int64, reporter Reporter) *ProgressReader {
	return &ProgressReader{
		reader:   reader,
		reporter: reporter,
		total:    total,
	}
}

func (pr *ProgressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.current += int64(n)
	pr.reporter.Update(pr.current)
	return n, err
}

// Current returns the number of bytes read so far.
func (pr *ProgressReader) Current() int64 {
	return pr.current
}
