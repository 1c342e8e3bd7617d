package progress

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/auditportal/auditportal/internal/events"
)

type recordingReporter struct {
	NoOpProgress
	updates []int64
}

func (r *recordingReporter) Update(current int64) {
	r.updates = append(r.updates, current)
}

func TestProgressReader(t *testing.T) {
	rep := &recordingReporter{}
	pr := NewProgressReader(strings.NewReader("hello world"), 11, rep)

	buf := make([]byte, 4)
	var out bytes.Buffer
	for {
		n, err := pr.Read(buf)
		out.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
	}

	if out.String() != "hello world" {
		t.Errorf("read %q, want %q", out.String(), "hello world")
	}
	if pr.Current() != 11 {
		t.Errorf("Current() = %d, want 11", pr.Current())
	}
	if got := rep.updates[len(rep.updates)-1]; got != 11 {
		t.Errorf("last update = %d, want 11", got)
	}
	for i := 1; i < len(rep.updates); i++ {
		if rep.updates[i] < rep.updates[i-1] {
			t.Errorf("updates not monotonic: %v", rep.updates)
		}
	}
}

func TestEventProgress(t *testing.T) {
	bus := events.NewEventBus(16)
	defer bus.Close()
	ch := bus.SubscribeAll()

	p := NewEventProgress(bus, "dl-1", "download", "ledger.xlsx")
	p.Start(200, "ledger.xlsx")
	p.Update(50)
	p.Finish()
	p.Error(errors.New("boom"))

	want := []struct {
		typ      events.EventType
		progress float64
	}{
		{events.EventTransferStarted, 0},
		{events.EventTransferProgress, 0.25},
		{events.EventTransferCompleted, 1},
		{events.EventTransferFailed, 0},
	}
	for i, w := range want {
		ev := (<-ch).(*events.TransferEvent)
		if ev.Type() != w.typ {
			t.Errorf("event %d type = %s, want %s", i, ev.Type(), w.typ)
		}
		if ev.Progress != w.progress {
			t.Errorf("event %d progress = %v, want %v", i, ev.Progress, w.progress)
		}
		if ev.TaskID != "dl-1" || ev.Name != "ledger.xlsx" || ev.Size != 200 {
			t.Errorf("event %d = %+v", i, ev)
		}
	}
}

func TestEventProgressNilBus(t *testing.T) {
	p := NewEventProgress(nil, "x", "upload", "a")
	p.Start(10, "a")
	p.Update(5)
	p.Finish()
}

func TestCLIProgressWritesToOut(t *testing.T) {
	var buf bytes.Buffer
	p := NewCLIProgress(&buf)
	p.Start(100, "report.pdf")
	p.Update(100)
	p.Finish()
	p.Error(errors.New("disk full"))

	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("output %q missing error", buf.String())
	}
}

func TestUploadUINonTerminal(t *testing.T) {
	var buf bytes.Buffer
	ui := NewUploadUI(2, &buf)
	if ui.IsTerminal() {
		t.Fatal("buffer should not be a terminal")
	}

	a := ui.AddFileBar("/tmp/docs/a.pdf", []string{"Tax", "Legal"}, 1024)
	b := ui.AddFileBar("b.pdf", []string{"Tax"}, 10)
	pr := NewProgressReader(strings.NewReader(strings.Repeat("x", 1024)), 1024, a)
	io.Copy(io.Discard, pr)
	a.Complete(7, nil)
	b.SetRetry(2)
	b.Complete(0, errors.New("rejected"))
	ui.Wait()

	out := buf.String()
	for _, want := range []string{
		"Uploading [1/2]: …/docs/a.pdf",
		"Uploading [2/2]: b.pdf",
		"→ Tax, Legal",
		"✓ …/docs/a.pdf → Tax, Legal (id 7",
		"✗ b.pdf → Tax: rejected (after 2 retries)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if ui.Completed() != 2 {
		t.Errorf("Completed() = %d, want 2", ui.Completed())
	}
	if ui.Writer() != &buf {
		t.Error("Writer() should be the output when not a terminal")
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path string
		n    int
		want string
	}{
		{"/a/b/c/d/file.txt", 3, "…/c/d/file.txt"},
		{"file.txt", 2, "file.txt"},
		{"dir/file.txt", 2, "file.txt"},
	}
	for _, tt := range tests {
		if got := truncatePath(tt.path, tt.n); got != tt.want {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tt.path, tt.n, got, tt.want)
		}
	}
}
