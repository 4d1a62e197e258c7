package aggregate

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"netdiag/internal/domain/model"
	"netdiag/internal/services/ipinfo"
)

// ErrBackendNotConfigured 表示未配置远端后端，服务端路径无法执行。
var ErrBackendNotConfigured = errors.New("backend not configured")

// PathResolver 是 Aggregator 所需的最小解析能力（ipinfo.Resolver 实现）。
type PathResolver interface {
	Resolve(ctx context.Context, providers []model.ProviderDescriptor) ([]model.ResolvedIPRecord, []model.ProbeResult, error)
}

var _ PathResolver = (*ipinfo.Resolver)(nil)

// Aggregator 同时查询本地与服务端两条路径，各自独立合并，互不影响。
type Aggregator struct {
	Resolver PathResolver
	Local    []model.ProviderDescriptor
	// Server 是经后端代理的描述符（见 catalog.ProxyDescriptors）；为空表示未配置后端。
	Server []model.ProviderDescriptor
	Now    func() time.Time
}

// Aggregate 返回双路径报告。任何一条路径的失败只记录在该路径的 PathResult 中。
func (a *Aggregator) Aggregate(ctx context.Context) model.DualPathReport {
	var (
		local, server       model.PathResult
		localRaw, serverRaw []model.ProbeResult
		g                   errgroup.Group
	)
	g.Go(func() error {
		local, localRaw = a.runPath(ctx, a.Local)
		return nil
	})
	g.Go(func() error {
		if len(a.Server) == 0 {
			server = model.PathResult{
				Records:   []model.ResolvedIPRecord{},
				Error:     ErrBackendNotConfigured.Error(),
				ErrorKind: model.KindError,
			}
			return nil
		}
		server, serverRaw = a.runPath(ctx, a.Server)
		return nil
	})
	_ = g.Wait()

	all := make([]model.ProbeResult, 0, len(localRaw)+len(serverRaw))
	all = append(all, tag(localRaw, model.PathLocal)...)
	all = append(all, tag(serverRaw, model.PathServer)...)

	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	return model.DualPathReport{
		Local:       local,
		Server:      server,
		AllResults:  all,
		GeneratedAt: now().UTC(),
	}
}

func (a *Aggregator) runPath(ctx context.Context, providers []model.ProviderDescriptor) (model.PathResult, []model.ProbeResult) {
	records, raw, err := a.Resolver.Resolve(ctx, providers)
	if err != nil {
		return model.PathResult{
			Records:   []model.ResolvedIPRecord{},
			Error:     err.Error(),
			ErrorKind: model.KindOf(err),
		}, raw
	}
	return model.PathResult{Records: records}, raw
}

func tag(results []model.ProbeResult, p model.Path) []model.ProbeResult {
	out := make([]model.ProbeResult, len(results))
	for i, r := range results {
		r.Path = p
		out[i] = r
	}
	return out
}
