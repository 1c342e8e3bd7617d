// Package forms lists the external questionnaires an audited company fills in.
package forms

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// Form is an external questionnaire.
type Form struct {
	Key   string
	Title string
	URL   string
}

// BrowserURL is the form's address without the embedding parameter, for
// opening outside an iframe.
func (f Form) BrowserURL() string {
	u, err := url.Parse(f.URL)
	if err != nil {
		return f.URL
	}
	q := u.Query()
	q.Del("embedMode")
	u.RawQuery = q.Encode()
	return u.String()
}

var registry = []Form{
	{
		Key:   "AOUS-240",
		Title: "АОУС-240 Залилангийн эрсдлийн үнэлгээний Асуулга",
		URL:   "https://share.teamforms.app/form/ZGQzZjVhOWMtNTIwMy00NTZlLWJmYTQtMTllYWVmOTc1ZTVmOjVhYzE3NWQxLTdmOGUtNGI3OC05MmYwLWZjZjk1MDJiYjI4Yjo0MjFkNjE2Ny1iMTZiLTQ4ZTItOGQ3ZS03OGExZDcxN2E3ZTA=?embedMode=true",
	},
	{
		Key:   "AOUS-260",
		Title: "АОУС-260 Засаглах удирдлага",
		URL:   "https://share.teamforms.app/form/MWEzOTVmMjktYmRlZi00ZjhkLWI5ZmEtOWVhZWY0YWMzY2ZmOjVhYzE3NWQxLTdmOGUtNGI3OC05MmYwLWZjZjk1MDJiYjI4YjpiZmQ0MWJlNy03MzFkLTQyOGMtODIwMC1lZDZkOTQ1ZjgwOGY=?embedMode=true",
	},
	{
		Key:   "AOUS-265",
		Title: "АОУС-265 Дотоод хяналт",
		URL:   "https://share.teamforms.app/form/NjBhZmE0YmUtMDRiOS00ZjBmLTg3YTAtNmUwNzc0MWY0YzJjOjVhYzE3NWQxLTdmOGUtNGI3OC05MmYwLWZjZjk1MDJiYjI4YjpjZTlmNzc2OS05ZTQwLTRmZGUtYWI3Zi00MTIxZTBmYzQwMzc=?embedMode=true",
	},
	{
		Key:   "AOUS-560",
		Title: "АОУС-560 Балансын дараах үйл явдал",
		URL:   "https://share.teamforms.app/form/MzcxNWJhMDYtMWQyNi00ZTBlLWI4MTItNjkwMzJiYjJlY2RkOjVhYzE3NWQxLTdmOGUtNGI3OC05MmYwLWZjZjk1MDJiYjI4YjoyMTQ1MTRmNC0xMTZlLTRlNWUtYTEwZS1kYjc1YzY2MmJkYmY=",
	},
	{
		Key:   "MTU",
		Title: "Мэдээлэл технологийн үнэлгээ",
		URL:   "https://share.teamforms.app/form/MDExOWRiNTYtZjAyNS00YTkwLWEzMDktMTk5OTRiOWVkOWE3OjVhYzE3NWQxLTdmOGUtNGI3OC05MmYwLWZjZjk1MDJiYjI4YjpjMjViYWE0NC04ZDdkLTQwZWQtOWQzMy02YzY2NGNmZjU3ZGU=",
	},
	{
		Key:   "HZ",
		Title: "Хуулчийн захидал",
		URL:   "https://share.teamforms.app/form/YmQ1YTliYjEtNDU1Mi00NjYxLTkxNmItMWY0YmJmMjNmMjY2OjVhYzE3NWQxLTdmOGUtNGI3OC05MmYwLWZjZjk1MDJiYjI4YjozNzJkMmUyYy1kZTllLTQyYmEtYWExYi1hYzE5OTg0Yzg2MGQ=",
	},
}

// All returns the forms in display order.
func All() []Form {
	out := make([]Form, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a form by key, ignoring case.
func Lookup(key string) (Form, bool) {
	for _, f := range registry {
		if strings.EqualFold(f.Key, strings.TrimSpace(key)) {
			return f, true
		}
	}
	return Form{}, false
}

// Keys returns every form key, for shell completion.
func Keys() []string {
	keys := make([]string, len(registry))
	for i, f := range registry {
		keys[i] = f.Key
	}
	return keys
}

// OpenInBrowser asks the desktop to open rawURL.
func OpenInBrowser(rawURL string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", rawURL)
	case "darwin":
		cmd = exec.Command("open", rawURL)
	default:
		cmd = exec.Command("xdg-open", rawURL)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return cmd.Process.Release()
}
