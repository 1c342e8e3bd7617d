package storage

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/auditportal/auditportal/internal/http"
)

func fastRetry() http.Config {
	return http.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDownloadPlainHTTP(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Write([]byte("template body"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out", "Balance.xlsx")
	d := NewDownloader(srv.Client(), nil)
	n, err := d.Download(context.Background(), StaticURL(srv.URL+"/t/1"), dest, nil)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n != int64(len("template body")) {
		t.Errorf("Download() = %d bytes, want %d", n, len("template body"))
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "template body" {
		t.Errorf("file = %q, %v", data, err)
	}
	if _, err := os.Stat(dest + ".part"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestDownloadRefreshesExpiredURL(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path == "/expired" {
			w.WriteHeader(nethttp.StatusForbidden)
			return
		}
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	var resolves int32
	resolve := func(ctx context.Context) (string, error) {
		if atomic.AddInt32(&resolves, 1) == 1 {
			return srv.URL + "/expired", nil
		}
		return srv.URL + "/fresh", nil
	}

	d := NewDownloader(srv.Client(), nil)
	d.SetRetryConfig(fastRetry())
	dest := filepath.Join(t.TempDir(), "a.pdf")
	if _, err := d.Download(context.Background(), resolve, dest, nil); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got := atomic.LoadInt32(&resolves); got != 2 {
		t.Errorf("resolver called %d times, want 2", got)
	}
	if data, _ := os.ReadFile(dest); string(data) != "fresh" {
		t.Errorf("file = %q, want fresh", data)
	}
}

func TestDownloadNotFoundIsFatal(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(nethttp.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDownloader(srv.Client(), nil)
	d.SetRetryConfig(fastRetry())
	dest := filepath.Join(t.TempDir(), "a.pdf")
	_, err := d.Download(context.Background(), StaticURL(srv.URL+"/x?sig=secret"), dest, nil)

	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 404 {
		t.Fatalf("Download() error = %v, want 404 StatusError", err)
	}
	if strings.Contains(err.Error(), "secret") || strings.Contains(se.URL, "secret") {
		t.Error("signature leaked into the error")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("server hit %d times, want 1", hits)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("failed download left a file")
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(nethttp.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := NewDownloader(srv.Client(), nil)
	d.SetRetryConfig(fastRetry())
	if _, err := d.Download(context.Background(), StaticURL(srv.URL), filepath.Join(t.TempDir(), "r.pdf"), nil); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestDownloadRejectsUnsafeName(t *testing.T) {
	d := NewDownloader(nil, nil)
	_, err := d.Download(context.Background(), StaticURL("http://unused"), ".", nil)
	if err == nil {
		t.Error("Download() should reject '.' as a file name")
	}
}

// blobRewriter sends requests for *.blob.core.windows.net to a test server.
type blobRewriter struct {
	target *url.URL
	paths  []string
}

func (b *blobRewriter) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	b.paths = append(b.paths, req.URL.Path+"?"+req.URL.RawQuery)
	r := req.Clone(req.Context())
	r.URL.Scheme = b.target.Scheme
	r.URL.Host = b.target.Host
	r.Host = b.target.Host
	return nethttp.DefaultTransport.RoundTrip(r)
}

func TestDownloadAzureBlob(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path != "/documents/bold/ledger.xlsx" {
			w.WriteHeader(nethttp.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("blob data"))
	}))
	defer srv.Close()
	target, _ := url.Parse(srv.URL)
	rt := &blobRewriter{target: target}

	d := NewDownloader(&nethttp.Client{Transport: rt}, nil)
	d.SetRetryConfig(fastRetry())
	dest := filepath.Join(t.TempDir(), "ledger.xlsx")
	sas := "https://acct.blob.core.windows.net/documents/bold/ledger.xlsx?sv=2021-08-06&sig=abc"

	n, err := d.Download(context.Background(), StaticURL(sas), dest, nil)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n != int64(len("blob data")) {
		t.Errorf("Download() = %d bytes", n)
	}
	if len(rt.paths) == 0 || !strings.Contains(rt.paths[0], "sig=abc") {
		t.Errorf("requests = %v, want SAS query forwarded", rt.paths)
	}
}

func TestDownloadAzureBlobForbidden(t *testing.T) {
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("x-ms-error-code", "AuthenticationFailed")
		w.WriteHeader(nethttp.StatusForbidden)
	}))
	defer srv.Close()
	target, _ := url.Parse(srv.URL)

	d := NewDownloader(&nethttp.Client{Transport: &blobRewriter{target: target}}, nil)
	d.SetRetryConfig(http.Config{MaxRetries: 1})
	_, err := d.Download(context.Background(),
		StaticURL("https://acct.blob.core.windows.net/c/b.pdf?sig=x"), filepath.Join(t.TempDir(), "b.pdf"), nil)

	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != 403 {
		t.Errorf("Download() error = %v, want 403 StatusError", err)
	}
}

func TestIsAzureBlobURL(t *testing.T) {
	tests := map[string]bool{
		"https://acct.blob.core.windows.net/c/b?sig=1": true,
		"https://ACCT.BLOB.CORE.WINDOWS.NET/c/b":       true,
		"https://bucket.s3.amazonaws.com/key":          false,
		"http://localhost:3000/blob/x":                 false,
		"://bad":                                       false,
	}
	for u, want := range tests {
		if got := IsAzureBlobURL(u); got != want {
			t.Errorf("IsAzureBlobURL(%q) = %v, want %v", u, got, want)
		}
	}
}
