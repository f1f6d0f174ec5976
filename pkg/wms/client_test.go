package wms

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samvad-hq/go-wms/pkg/httpclient"
)

type recordingHTTPClient struct {
	urls    []string
	headers []map[string]string
	resp    httpclient.Response
	err     error
}

func (r *recordingHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	r.urls = append(r.urls, url)
	r.headers = append(r.headers, headers)
	if r.err != nil {
		return nil, r.err
	}
	return r.resp, nil
}

func refusedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestGetCapabilitiesInvokesHandlerOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/wms" {
			http.NotFound(w, r)
			return
		}
		if r.URL.RawQuery != "version=1.3.0&service=WMS&request=GetCapabilities" {
			http.Error(w, "bad query "+r.URL.RawQuery, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(capabilitiesXML130))
	}))
	defer srv.Close()

	client, err := New(srv.URL + "/wms")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	calls := 0
	status := 0
	err = client.GetCapabilities(context.Background(), func(resp Response) {
		calls++
		status = resp.StatusCode()
	})
	if err != nil {
		t.Fatalf("GetCapabilities: %v", err)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
}

func TestGetMapSendsMapQuery(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "version=1.3.0&request=GetMap" {
			http.Error(w, "bad query "+r.URL.RawQuery, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	client, err := New(srv.URL + "/wms")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var body []byte
	var contentType string
	if err := client.GetMap(context.Background(), func(resp Response) {
		body = resp.Body()
		contentType = resp.Header().Get("Content-Type")
	}); err != nil {
		t.Fatalf("GetMap: %v", err)
	}
	if string(body) != string(png) {
		t.Fatalf("body = %v", body)
	}
	if contentType != "image/png" {
		t.Fatalf("content type = %q", contentType)
	}
}

func TestGetCapabilitiesConnectionRefused(t *testing.T) {
	client, err := New("http://" + refusedAddr(t) + "/wms")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	called := false
	err = client.GetCapabilities(context.Background(), func(Response) { called = true })
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if called {
		t.Fatalf("handler must not run on transport failure")
	}
}

func TestDispatchHandsErrorStatusToHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.ogc.se_xml")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<ServiceExceptionReport/>`))
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	status := 0
	if err := client.Dispatch(context.Background(), RequestCapabilities, func(resp Response) {
		status = resp.StatusCode()
	}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if status != http.StatusInternalServerError {
		t.Fatalf("status = %d", status)
	}
}

func TestNewRejectsMalformedURL(t *testing.T) {
	for _, base := range []string{"", "sampleserver/wms"} {
		if _, err := New(base); !errors.Is(err, ErrMalformedURL) {
			t.Fatalf("New(%q) error = %v, want ErrMalformedURL", base, err)
		}
	}
}

func TestDispatchUsesInjectedClientAndHeaders(t *testing.T) {
	rec := &recordingHTTPClient{resp: stubResponse{status: http.StatusOK}}
	headers := map[string]string{"User-Agent": "go-wms-test"}

	client, err := New("http://sampleserver/wms?map=world", WithHTTPClient(rec), WithHeaders(headers))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	headers["User-Agent"] = "mutated"

	if err := client.GetMap(context.Background(), nil); err != nil {
		t.Fatalf("GetMap: %v", err)
	}
	if len(rec.urls) != 1 {
		t.Fatalf("expected 1 request, got %d", len(rec.urls))
	}
	if rec.urls[0] != "http://sampleserver/wms?map=world&version=1.3.0&request=GetMap" {
		t.Fatalf("url = %q", rec.urls[0])
	}
	if got := rec.headers[0]["User-Agent"]; got != "go-wms-test" {
		t.Fatalf("User-Agent = %q", got)
	}
}

func TestDefaultClientSendsNoHeaders(t *testing.T) {
	rec := &recordingHTTPClient{resp: stubResponse{status: http.StatusOK}}
	client, err := New("http://sampleserver/wms", WithHTTPClient(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Do(context.Background(), RequestCapabilities); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(rec.headers[0]) != 0 {
		t.Fatalf("expected no headers, got %v", rec.headers[0])
	}
}

func TestClientSerializesCalls(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inFlight.Add(1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.Do(context.Background(), RequestCapabilities); err != nil {
				t.Errorf("Do: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := maxInFlight.Load(); got != 1 {
		t.Fatalf("max in-flight requests = %d, want 1", got)
	}
}

func TestGoDeliversSingleResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results := client.Go(context.Background(), RequestMap)
	res, ok := <-results
	if !ok {
		t.Fatalf("expected a result")
	}
	if res.Err != nil {
		t.Fatalf("Go: %v", res.Err)
	}
	if res.Response.StatusCode() != http.StatusOK {
		t.Fatalf("status = %d", res.Response.StatusCode())
	}
	if _, ok := <-results; ok {
		t.Fatalf("expected channel to be closed after one result")
	}
}

func TestFetchCapabilitiesDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
		_, _ = w.Write([]byte(capabilitiesXML130))
	}))
	defer srv.Close()

	client, err := New(srv.URL + "/wms")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	caps, err := client.FetchCapabilities(context.Background())
	if err != nil {
		t.Fatalf("FetchCapabilities: %v", err)
	}
	if caps.Service.Name != "WMS" || caps.Service.Title != "Acme Basemaps" {
		t.Fatalf("unexpected capabilities %#v", caps)
	}
}

func TestDispatchHoldsClientLockWhileHandlerRuns(t *testing.T) {
	rec := &recordingHTTPClient{resp: stubResponse{status: http.StatusOK}}
	client, err := New("http://sampleserver/wms", WithHTTPClient(rec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	locked := false
	err = client.GetCapabilities(context.Background(), func(Response) {
		if client.mu.TryLock() {
			client.mu.Unlock()
			return
		}
		locked = true
	})
	if err != nil {
		t.Fatalf("GetCapabilities: %v", err)
	}
	if !locked {
		t.Fatalf("expected the client to stay locked while the handler runs")
	}

	// The lock is released once Dispatch returns.
	if !client.mu.TryLock() {
		t.Fatalf("expected the client to be unlocked after Dispatch")
	}
	client.mu.Unlock()
}
