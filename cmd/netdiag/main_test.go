package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"netdiag/internal/domain/model"
)

func execute(t *testing.T, args ...string) (*cli, string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c := newCLI(&out, &errOut)
	c.root.SetArgs(args)
	err := c.root.Execute()
	return c, out.String(), errOut.String(), err
}

// writeCatalog 写一个指向本地 httptest 上游的目录文件。
func writeCatalog(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7","country":"CN","region":"ZJ","city":"HZ","isp":"CT"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	up := httptest.NewServer(mux)
	t.Cleanup(up.Close)

	yaml := `version: cli-test
local:
  - name: J
    url: ` + up.URL + `/json
    kind: json
server:
  - name: J
    url: ` + up.URL + `/json
    kind: json
targets:
  - name: Nowhere
    host: nowhere.invalid
locator:
  kind: http
  url: ` + up.URL + `/locate
`
	p := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(p, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return p
}

func TestConfigFromFlagsAndEnv(t *testing.T) {
	t.Setenv("NETDIAG_IP_TIMEOUT", "3s")
	t.Setenv("NETDIAG_BACKEND", "https://diag.example.com")

	c, _, _, err := execute(t, "version", "--concurrency", "4", "--log-level", "warn")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if c.cfg.IPTimeout != 3*time.Second || c.cfg.BackendURL != "https://diag.example.com" {
		t.Fatalf("env not applied: %+v", c.cfg)
	}
	if c.cfg.Concurrency != 4 || c.cfg.LogLevel != "warn" {
		t.Fatalf("flags not applied: %+v", c.cfg)
	}
	if c.cfg.LocalPingTimeout != 5*time.Second || c.cfg.ServerPingTimeout != 10*time.Second {
		t.Fatalf("defaults lost: %+v", c.cfg)
	}
	if c.cfg.ListenAddr != "127.0.0.1:8787" {
		t.Fatalf("listen=%q", c.cfg.ListenAddr)
	}
}

func TestCatalogCommand(t *testing.T) {
	_, out, _, err := execute(t, "catalog")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !strings.Contains(out, "Cloudflare") || !strings.Contains(out, "github.com") {
		t.Fatalf("builtin catalog not printed:\n%s", out)
	}

	_, out, _, err = execute(t, "catalog", "--check")
	if err != nil || !strings.HasPrefix(out, "catalog ok: builtin") {
		t.Fatalf("check out=%q err=%v", out, err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("local:\n  - name: x\n    url: ftp://x\n    kind: json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := execute(t, "catalog", "--config", bad); err == nil {
		t.Fatalf("invalid catalog must fail")
	}
}

func TestIPCommandJSON(t *testing.T) {
	p := writeCatalog(t)

	_, out, errOut, err := execute(t, "ip", "--config", p, "--format", "json", "--log-level", "error")
	if err != nil {
		t.Fatalf("ip: %v", err)
	}
	var rep model.DualPathReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(rep.Local.Records) != 1 || rep.Local.Records[0].Info != "CN ZJ HZ CT" {
		t.Fatalf("local=%+v", rep.Local)
	}
	if rep.Server.Error == "" {
		t.Fatalf("server path without backend must report an error: %+v", rep.Server)
	}
	if !strings.Contains(errOut, "backend url not set") {
		t.Fatalf("stderr=%q", errOut)
	}
}

func TestIPCommandTable(t *testing.T) {
	p := writeCatalog(t)

	_, out, _, err := execute(t, "ip", "--config", p, "--raw", "--log-level", "error")
	if err != nil {
		t.Fatalf("ip: %v", err)
	}
	for _, want := range []string{"Public IP", "203.0.113.7", "Provider results", "server"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	_, out, _, err = execute(t, "ip", "--config", p, "--mask", "--log-level", "error")
	if err != nil || strings.Contains(out, "203.0.113.7") || !strings.Contains(out, "203.0.*.*") {
		t.Fatalf("mask err=%v out:\n%s", err, out)
	}

	if _, _, _, err := execute(t, "ip", "--config", p, "--format", "xml"); err == nil {
		t.Fatalf("unknown format must fail")
	}
}

func TestPingCommandRejectsBadHost(t *testing.T) {
	if _, _, _, err := execute(t, "ping", "bad host"); err == nil {
		t.Fatalf("bad host must fail")
	}
}

func TestReportCommandWritesPDF(t *testing.T) {
	p := writeCatalog(t)
	outPath := filepath.Join(t.TempDir(), "out", "r.pdf")

	_, out, _, err := execute(t, "report", "--config", p, "--no-ping", "-o", outPath, "--log-level", "error")
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if !strings.Contains(out, "sha256: ") {
		t.Fatalf("out=%q", out)
	}
	b, err := os.ReadFile(outPath)
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("pdf not written: err=%v", err)
	}

	sum := strings.TrimSpace(strings.SplitN(strings.SplitN(out, "sha256: ", 2)[1], "\n", 2)[0])
	if _, vout, _, err := execute(t, "verify", outPath, "--sha256", sum); err != nil || !strings.Contains(vout, " ok") {
		t.Fatalf("verify out=%q err=%v", vout, err)
	}
	if _, _, _, err := execute(t, "verify", outPath, "--sha256", strings.Repeat("0", 64)); err == nil {
		t.Fatalf("mismatch must fail")
	}
}

func TestRenderBatch(t *testing.T) {
	t.Parallel()

	local := model.PingOutcome{Status: model.StatusReachable, LatencyMS: 42, HTTPStatus: 200}
	snap := model.BatchSnapshot{ID: "batch_1", Status: model.BatchCompleted, Records: []model.SiteProbeRecord{{
		Target: model.SiteTarget{Name: "GitHub", Host: "github.com"},
		Local:  model.PathCell{State: model.StateDone, Outcome: &local},
		Server: model.PathCell{State: model.StateNotStarted},
	}}}
	var buf bytes.Buffer
	renderBatch(&buf, snap)
	if !strings.Contains(buf.String(), "GitHub") || !strings.Contains(buf.String(), "42") {
		t.Fatalf("table:\n%s", buf.String())
	}
}
