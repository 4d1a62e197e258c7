package aggregate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"netdiag/internal/adapters/catalog"
	"netdiag/internal/domain/model"
	"netdiag/internal/platform/fetch"
	"netdiag/internal/services/ipinfo"
)

func TestAggregateKeepsPathsIsolated(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/local", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"10.0.0.1","country":"CN","region":"ZJ","city":"HZ","isp":"CT"}`))
	})
	// 后端应答信息为哨兵文本：服务端路径应为 no_ip_info，而本地路径不受影响。
	mux.HandleFunc("/api/network", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("action") != "ip" {
			t.Errorf("action=%s", r.URL.Query().Get("action"))
		}
		_, _ = w.Write([]byte(`{"source":"Cloudflare + 52VMY","ip":"10.0.0.1","info":"Information not available"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	server := catalog.ProxyDescriptors(srv.URL, []model.ProviderDescriptor{
		{Name: "Cloudflare + 52VMY", URL: "https://unused.example", Kind: model.ProviderCFTrace},
	})
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := &Aggregator{
		Resolver: &ipinfo.Resolver{Fetcher: fetch.New(nil), Timeout: time.Second},
		Local:    []model.ProviderDescriptor{{Name: "L", URL: srv.URL + "/local", Kind: model.ProviderJSON}},
		Server:   server,
		Now:      func() time.Time { return fixed },
	}

	rep := a.Aggregate(context.Background())
	if len(rep.Local.Records) != 1 || rep.Local.Records[0].Info != "CN ZJ HZ CT" || rep.Local.Error != "" {
		t.Fatalf("local=%+v", rep.Local)
	}
	if rep.Server.ErrorKind != model.KindNoIPInfo || len(rep.Server.Records) != 0 {
		t.Fatalf("server=%+v", rep.Server)
	}
	if len(rep.AllResults) != 2 || rep.AllResults[0].Path != model.PathLocal || rep.AllResults[1].Path != model.PathServer {
		t.Fatalf("all=%+v", rep.AllResults)
	}
	if rep.AllResults[1].Source != "Cloudflare + 52VMY (server)" {
		t.Fatalf("server source=%s", rep.AllResults[1].Source)
	}
	if !rep.GeneratedAt.Equal(fixed) {
		t.Fatalf("generatedAt=%v", rep.GeneratedAt)
	}
}

type stubResolver struct {
	byName map[string]model.ProbeResult
}

func (s stubResolver) Resolve(_ context.Context, providers []model.ProviderDescriptor) ([]model.ResolvedIPRecord, []model.ProbeResult, error) {
	raw := make([]model.ProbeResult, 0, len(providers))
	for _, d := range providers {
		raw = append(raw, s.byName[d.Name])
	}
	recs, err := ipinfo.Merge(raw)
	return recs, raw, err
}

func TestAggregateNeverMergesAcrossPaths(t *testing.T) {
	t.Parallel()

	a := &Aggregator{
		Resolver: stubResolver{byName: map[string]model.ProbeResult{
			"L": {Source: "L", IP: "1.1.1.1", Info: "short"},
			"S": {Source: "S", IP: "1.1.1.1", Info: "a much longer description"},
		}},
		Local:  []model.ProviderDescriptor{{Name: "L"}},
		Server: []model.ProviderDescriptor{{Name: "S"}},
	}
	rep := a.Aggregate(context.Background())
	if rep.Local.Records[0].Source != "L" || rep.Server.Records[0].Source != "S" {
		t.Fatalf("paths must be merged independently: %+v / %+v", rep.Local, rep.Server)
	}
}

func TestAggregateWithoutBackend(t *testing.T) {
	t.Parallel()

	a := &Aggregator{
		Resolver: stubResolver{byName: map[string]model.ProbeResult{
			"L": {Source: "L", IP: "1.1.1.1", Info: "x"},
		}},
		Local: []model.ProviderDescriptor{{Name: "L"}},
	}
	rep := a.Aggregate(context.Background())
	if rep.Server.Error != ErrBackendNotConfigured.Error() || rep.Server.Records == nil {
		t.Fatalf("server=%+v", rep.Server)
	}
	if len(rep.Local.Records) != 1 {
		t.Fatalf("local=%+v", rep.Local)
	}
}
