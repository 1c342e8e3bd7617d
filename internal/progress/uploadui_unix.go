//go:build !windows

package progress

import "os"

// Unix terminals handle ANSI natively.
func enableWindowsANSI(f *os.File) {}
