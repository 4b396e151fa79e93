// ABOUTME: Tests for redirect following, GET fallback and origin extraction
// ABOUTME: Uses an in-memory gorilla/mux router as the transport so hostnames can be faked

package urlorigin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

// routerTransport serves client requests straight from a handler without a network
type routerTransport struct {
	handler http.Handler
}

func (rt routerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	rt.handler.ServeHTTP(rec, req)

	resp := rec.Result()
	resp.Request = req

	return resp, nil
}

func newFakeWeb(headAllowed bool) *mux.Router {
	r := mux.NewRouter()

	r.Host("example.com").Path("/stream").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "https://cdn.example.com/stream", http.StatusFound)
	})

	cdn := r.Host("cdn.example.com").Subrouter()
	if headAllowed {
		cdn.Path("/stream").Methods(http.MethodHead, http.MethodGet).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	} else {
		cdn.Path("/stream").Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("audio"))
		})
	}

	r.Host("dead.example.com").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	return r
}

func TestResolveFollowsRedirect(t *testing.T) {
	for _, headAllowed := range []bool{true, false} {
		client := &http.Client{Transport: routerTransport{handler: newFakeWeb(headAllowed)}}
		r := New(Options{Client: client})

		link, err := r.Resolve(context.Background(), "http://example.com/stream")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}

		want := Link{
			OriginalURL:  "http://example.com/stream",
			FinalURL:     "https://cdn.example.com/stream",
			OriginServer: "https://cdn.example.com",
		}
		if link != want {
			t.Errorf("head allowed %v: link = %+v, want %+v", headAllowed, link, want)
		}
	}
}

func TestResolveFallsBackToOriginal(t *testing.T) {
	client := &http.Client{Transport: routerTransport{handler: newFakeWeb(true)}}
	r := New(Options{Client: client})

	link, err := r.Resolve(context.Background(), "http://dead.example.com:8080/x")
	if err != nil {
		t.Fatalf("network failures must not be errors: %v", err)
	}

	if link.FinalURL != "http://dead.example.com:8080/x" {
		t.Errorf("FinalURL = %s", link.FinalURL)
	}

	if link.OriginServer != "http://dead.example.com:8080" {
		t.Errorf("OriginServer = %s", link.OriginServer)
	}
}

func TestResolveTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-req.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	r := New(Options{Timeout: 50 * time.Millisecond})

	start := time.Now()

	link, err := r.Resolve(context.Background(), srv.URL+"/slow")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if link.FinalURL != srv.URL+"/slow" {
		t.Errorf("FinalURL = %s", link.FinalURL)
	}

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("probe took %v, timeout not applied", elapsed)
	}
}

func TestResolveRealServerHeadThenGet(t *testing.T) {
	var heads, gets atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodHead:
			heads.Add(1)
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			gets.Add(1)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	r := New(Options{Rate: 100})

	link, err := r.Resolve(context.Background(), srv.URL+"/live")
	if err != nil {
		t.Fatal(err)
	}

	if link.FinalURL != srv.URL+"/live" {
		t.Errorf("FinalURL = %s", link.FinalURL)
	}

	if heads.Load() != 1 || gets.Load() != 1 {
		t.Errorf("heads = %d, gets = %d, want 1 and 1", heads.Load(), gets.Load())
	}
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(Options{Rate: 1})

	if _, err := r.Resolve(ctx, "http://example.com/stream"); err == nil {
		t.Error("Expected error for cancelled context, got none")
	}
}

func TestOriginServer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://cdn.example.com/stream", "https://cdn.example.com"},
		{"http://radio.example.com:8000/live?x=1", "http://radio.example.com:8000"},
		{"HTTP://Example.com/a", "http://example.com"},
		{"http://bücher.example/x", "http://xn--bcher-kva.example"},
		{"http://[::1]:8080/x", "http://[::1]:8080"},
		{"http://[::1]/x", "http://[::1]"},
		{"not a url", ""},
		{"/local/path.mp3", ""},
		{"http://[::1:bad", ""},
	}

	for _, tt := range tests {
		if got := OriginServer(tt.in); got != tt.want {
			t.Errorf("OriginServer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
