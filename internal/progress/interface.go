package progress

import "io"

// ProgressUI tracks a batch of concurrent transfers.
type ProgressUI interface {
	// AddFileBar creates a bar for one file. categories is shown as the
	// destination of the transfer.
	AddFileBar(name string, categories []string, size int64) FileBarHandle

	// Wait blocks until all bars complete.
	Wait()

	// Writer returns an io.Writer that prints above the bars.
	Writer() io.Writer

	// IsTerminal reports whether bars are rendered.
	IsTerminal() bool
}

// FileBarHandle is one file's bar. It is also a Reporter, so it can be fed
// by a ProgressReader.
type FileBarHandle interface {
	Reporter

	// SetRetry updates the retry counter shown on the bar.
	SetRetry(count int)

	// Complete marks the transfer finished and prints a summary line.
	Complete(fileID int64, err error)
}
