package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"netdiag/internal/domain/model"
)

func TestGetReturnsBodyAndSetsUserAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "netdiag-test" {
			t.Errorf("ua=%q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte("1.2.3.4\n"))
	}))
	defer srv.Close()

	f := &Fetcher{UserAgent: "netdiag-test"}
	resp, err := f.Get(context.Background(), srv.URL, time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusOK || string(resp.Body) != "1.2.3.4\n" {
		t.Fatalf("unexpected response: %d %q", resp.StatusCode, resp.Body)
	}
}

func TestNon2xxReturnsResponseAndStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"down"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.Client()).Get(context.Background(), srv.URL, time.Second)
	if !errors.Is(err, model.ErrHTTPStatus) {
		t.Fatalf("expected ErrHTTPStatus, got %v", err)
	}
	if err.Error() != "http status 503" {
		t.Fatalf("message=%q", err.Error())
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable || !strings.Contains(string(resp.Body), "down") {
		t.Fatalf("response should be returned alongside status error: %+v", resp)
	}
	if model.KindOf(err) != model.KindHTTPStatus {
		t.Fatalf("kind=%s", model.KindOf(err))
	}
}

func TestTimeoutIsClassified(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := New(nil).Get(context.Background(), srv.URL, 50*time.Millisecond)
	if !errors.Is(err, model.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if model.KindOf(err) != model.KindTimeout {
		t.Fatalf("kind=%s", model.KindOf(err))
	}
}

func TestParentCancelIsClassifiedAsCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := New(nil).Get(ctx, srv.URL, 5*time.Second)
	if model.KindOf(err) != model.KindCancelled {
		t.Fatalf("expected cancelled, got %v (%s)", err, model.KindOf(err))
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(nil).Get(context.Background(), url, time.Second)
	if !errors.Is(err, model.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
}

func TestBodyIsCapped(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	f := &Fetcher{MaxBody: 10}
	resp, err := f.Get(context.Background(), srv.URL, time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(resp.Body) != 10 {
		t.Fatalf("body len=%d", len(resp.Body))
	}
}
