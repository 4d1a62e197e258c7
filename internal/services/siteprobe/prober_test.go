package siteprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"netdiag/internal/domain/model"
	"netdiag/internal/platform/fetch"
)

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestProbeLocalAnyResponseIsReachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/favicon.ico" || r.URL.Query().Get("t") != "1700000000000" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := &Prober{
		Scheme: "http",
		Now:    func() time.Time { return time.UnixMilli(1700000000000) },
	}
	out := p.ProbeLocal(context.Background(), hostOf(srv))
	if !out.Reachable() || out.HTTPStatus != http.StatusNotFound || out.Status != model.StatusReachable {
		t.Fatalf("out=%+v", out)
	}
}

func TestProbeLocalClassifiesFailures(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	p := &Prober{Scheme: "http", LocalTimeout: 50 * time.Millisecond}
	out := p.ProbeLocal(context.Background(), hostOf(slow))
	if out.ErrorKind != model.KindTimeout || out.Error != MsgTimedOut {
		t.Fatalf("timeout out=%+v", out)
	}

	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	host := hostOf(closed)
	closed.Close()
	out = p.ProbeLocal(context.Background(), host)
	if out.ErrorKind != model.KindUnreachable || out.Reachable() {
		t.Fatalf("unreachable out=%+v", out)
	}
}

func TestProbeServerPropagatesBackendClassification(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/api/network" || q.Get("action") != "ping" || q.Get("type") != "server" {
			t.Errorf("unexpected request: %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "application/json")
		switch q.Get("url") {
		case "ok.example":
			_, _ = w.Write([]byte(`{"status":"Reachable","latency":42,"code":200}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Request timed out","kind":"timeout"}`))
		}
	}))
	defer srv.Close()

	p := &Prober{Backend: srv.URL + "/"}
	ok := p.ProbeServer(context.Background(), "ok.example")
	if !ok.Reachable() || ok.LatencyMS != 42 || ok.HTTPStatus != 200 {
		t.Fatalf("ok=%+v", ok)
	}
	bad := p.ProbeServer(context.Background(), "slow.example")
	if bad.ErrorKind != model.KindTimeout || bad.HTTPStatus != 500 || !strings.Contains(bad.Error, "Request timed out") {
		t.Fatalf("bad=%+v", bad)
	}
}

func TestProbeServerWithoutBackend(t *testing.T) {
	t.Parallel()

	out := (&Prober{}).ProbeServer(context.Background(), "github.com")
	if out.Error != ErrBackendNotConfigured.Error() {
		t.Fatalf("out=%+v", out)
	}
}

func TestProbeSiteEmitsBothPaths(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/network" {
			_, _ = w.Write([]byte(`{"status":"Reachable","latency":7}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := &Prober{Scheme: "http", Backend: srv.URL}
	var (
		mu   sync.Mutex
		seen = map[model.Path]bool{}
	)
	rec := p.ProbeSite(context.Background(), model.SiteTarget{Name: "T", Host: hostOf(srv)}, func(u model.PathUpdate) {
		mu.Lock()
		defer mu.Unlock()
		seen[u.Path] = true
	})
	if !seen[model.PathLocal] || !seen[model.PathServer] {
		t.Fatalf("emits=%v", seen)
	}
	if rec.Local.State != model.StateDone || rec.Server.State != model.StateDone {
		t.Fatalf("rec=%+v", rec)
	}
	if !rec.Local.Outcome.Reachable() || rec.Server.Outcome.LatencyMS != 7 {
		t.Fatalf("outcomes=%+v %+v", rec.Local.Outcome, rec.Server.Outcome)
	}
}

func TestPingUsesHeadAndPingBotAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method=%s", r.Method)
		}
		if r.Header.Get("User-Agent") != PingBotUserAgent {
			t.Errorf("ua=%s", r.Header.Get("User-Agent"))
		}
		w.WriteHeader(http.StatusMovedPermanently)
	}))
	defer srv.Close()

	p := &Pinger{Fetcher: &fetch.Fetcher{Client: &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}}, Scheme: "http"}
	out := p.Ping(context.Background(), hostOf(srv), time.Second)
	if !out.Reachable() || out.HTTPStatus != http.StatusMovedPermanently {
		t.Fatalf("out=%+v", out)
	}
}
