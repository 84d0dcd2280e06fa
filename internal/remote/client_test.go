package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const catalogJSON = `{
	"Roland|JV-1080": {
		"manufacturer": "Roland",
		"model": "JV-1080",
		"type": "Synth",
		"files": [{"path": "Roland/JV-1080.midnam", "size": 1024, "modified": "2025-01-01T00:00:00Z"}]
	}
}`

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", WithTimeout(5*time.Second))
}

func TestDisabled(t *testing.T) {
	c := New("")
	if c.Enabled() {
		t.Error("Enabled() = true with empty base URL")
	}
	if _, err := c.Device(context.Background(), "a|b", ""); !errors.Is(err, ErrDisabled) {
		t.Errorf("Device() error = %v, want ErrDisabled", err)
	}
	if _, err := c.Catalog(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("Catalog() error = %v, want ErrDisabled", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Error("nil client Enabled() = true")
	}
}

func TestDevice(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantDoc string
	}{
		{"raw_xml", `{"id":"Roland|JV-1080","Manufacturer":"Roland","Model":"JV-1080","raw_xml":"<MIDINameDocument/>"}`, "<MIDINameDocument/>"},
		{"midnam_content", `{"id":"Roland|JV-1080","midnam_content":"<MIDINameDocument></MIDINameDocument>"}`, "<MIDINameDocument></MIDINameDocument>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotFile string
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotFile = r.URL.Query().Get("file")
				fmt.Fprint(w, tt.body)
			})

			dev, err := c.Device(context.Background(), "Roland|JV-1080", "Roland/JV 1080.midnam")
			if err != nil {
				t.Fatalf("Device() error = %v", err)
			}
			if dev.Document != tt.wantDoc {
				t.Errorf("Document = %q, want %q", dev.Document, tt.wantDoc)
			}
			if gotPath != "/api/device/Roland|JV-1080" {
				t.Errorf("request path = %q", gotPath)
			}
			if gotFile != "Roland/JV 1080.midnam" {
				t.Errorf("file query = %q", gotFile)
			}
		})
	}
}

func TestDevice_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{"error":"Device not found"}`, ErrNotFound},
		{"bad request", http.StatusBadRequest, `{}`, ErrNotFound},
		{"server error", http.StatusInternalServerError, `{}`, ErrUnavailable},
		{"not json", http.StatusOK, `<html>`, ErrBadResponse},
		{"no document", http.StatusOK, `{"id":"x"}`, ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			dev, err := c.Device(context.Background(), "x|y", "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Device() error = %v, want %v", err, tt.wantErr)
			}
			if dev != nil {
				t.Errorf("Device() = %+v, want nil", dev)
			}
		})
	}
}

func TestDevice_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := New(base).Device(context.Background(), "x|y", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Device() error = %v, want ErrUnavailable", err)
	}
}

func TestCatalog(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/midnam_catalog" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, catalogJSON)
	})

	cat, err := c.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	dev, ok := cat["Roland|JV-1080"]
	if !ok {
		t.Fatalf("Catalog() = %+v, missing Roland|JV-1080", cat)
	}
	if len(dev.Files) != 1 || dev.Files[0].Size != 1024 || dev.Files[0].FromBrowserStorage {
		t.Errorf("Files = %+v", dev.Files)
	}
}

func TestCatalog_NullBody(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "null")
	})
	cat, err := c.Catalog(context.Background())
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if cat == nil || len(cat) != 0 {
		t.Errorf("Catalog() = %#v, want empty", cat)
	}
}

func TestConcurrentFetchesShareOneRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		fmt.Fprint(w, `{"raw_xml":"<MIDINameDocument/>"}`)
	})

	const callers = 8
	var started, wg sync.WaitGroup
	started.Add(callers)
	wg.Add(callers)
	docs := make([]*Device, callers)
	errs := make([]error, callers)
	for i := range callers {
		go func() {
			defer wg.Done()
			started.Done()
			docs[i], errs[i] = c.Device(context.Background(), "a|b", "")
		}()
	}
	started.Wait()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
	}
	if n := hits.Load(); n < 1 || n >= callers {
		t.Errorf("server hits = %d, want shared requests", n)
	}
	docs[0].Document = "changed"
	if docs[1].Document != "<MIDINameDocument/>" {
		t.Error("callers share one Device value")
	}
}

func TestCancelledCallerDoesNotFailSharedRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		fmt.Fprint(w, `{"raw_xml":"<MIDINameDocument/>"}`)
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.Device(ctxA, "A|B", "")
		errA <- err
	}()

	deadline := time.After(5 * time.Second)
	for hits.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("first request never reached the server")
		case <-time.After(time.Millisecond):
		}
	}

	type result struct {
		dev *Device
		err error
	}
	resB := make(chan result, 1)
	go func() {
		dev, err := c.Device(context.Background(), "A|B", "")
		resB <- result{dev, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller error = %v, want context.Canceled", err)
		}
	case <-deadline:
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case r := <-resB:
		if r.err != nil {
			t.Fatalf("second caller error = %v, want nil", r.err)
		}
		if r.dev.Document != "<MIDINameDocument/>" {
			t.Errorf("second caller Document = %q", r.dev.Document)
		}
	case <-deadline:
		t.Fatal("second caller did not return")
	}

	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestFlightTimeout(t *testing.T) {
	if got := New("http://x", WithTimeout(3*time.Second)).flightTimeout(); got != 3*time.Second {
		t.Errorf("flightTimeout() = %v, want 3s", got)
	}
	if got := New("http://x", WithHTTPClient(&http.Client{})).flightTimeout(); got != defaultTimeout {
		t.Errorf("flightTimeout() without client timeout = %v, want %v", got, defaultTimeout)
	}
}
