package siteprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"netdiag/internal/domain/model"
	"netdiag/internal/platform/fetch"
)

// ErrBackendNotConfigured 表示未配置远端后端，服务端路径无法探测。
var ErrBackendNotConfigured = errors.New("backend not configured")

// serverCallSlack 让客户端等待略长于后端自身的探测超时，以便拿到后端的分类结果。
const serverCallSlack = 2 * time.Second

// Prober 从两个观测点探测站点：
// - 本地：直接 GET https://<host>/favicon.ico?t=<ms>，任何 HTTP 响应都算可达；
// - 服务端：请求后端 /api/network?action=ping，沿用后端给出的结果与分类。
type Prober struct {
	Fetcher       *fetch.Fetcher
	Backend       string
	LocalTimeout  time.Duration
	ServerTimeout time.Duration
	// Scheme 是本地探测使用的协议，默认 https。
	Scheme string
	Now    func() time.Time
}

// ProbeSite 并发执行两条路径，每条路径完成时立即调用 emit（可能来自不同 goroutine）。
func (p *Prober) ProbeSite(ctx context.Context, target model.SiteTarget, emit func(model.PathUpdate)) model.SiteProbeRecord {
	rec := model.SiteProbeRecord{
		Target: target,
		Local:  model.PathCell{State: model.StatePending},
		Server: model.PathCell{State: model.StatePending},
	}

	var g errgroup.Group
	run := func(path model.Path, probe func(context.Context, string) model.PingOutcome) {
		g.Go(func() error {
			out := probe(ctx, target.Host)
			*rec.Cell(path) = model.PathCell{State: model.StateDone, Outcome: &out}
			if emit != nil {
				emit(model.PathUpdate{Host: target.Host, Path: path, Outcome: out})
			}
			return nil
		})
	}
	run(model.PathLocal, p.ProbeLocal)
	run(model.PathServer, p.ProbeServer)
	_ = g.Wait()
	return rec
}

// ProbeLocal 以 favicon 请求测量本地直连延迟，附带时间戳参数绕过缓存。
func (p *Prober) ProbeLocal(ctx context.Context, host string) model.PingOutcome {
	timeout := p.LocalTimeout
	if timeout <= 0 {
		timeout = fetch.DefaultLocalPingTimeout
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	target := fmt.Sprintf("%s://%s/favicon.ico?t=%d", schemeOr(p.Scheme), host, now().UnixMilli())
	resp, err := fetcherOr(p.Fetcher).Get(ctx, target, timeout)
	return reachability(resp, err)
}

// ProbeServer 请求后端代为探测。后端非 2xx 时保留其 {error, kind}。
func (p *Prober) ProbeServer(ctx context.Context, host string) model.PingOutcome {
	base := strings.TrimRight(strings.TrimSpace(p.Backend), "/")
	if base == "" {
		return model.PingOutcome{Error: ErrBackendNotConfigured.Error(), ErrorKind: model.KindError}
	}
	timeout := p.ServerTimeout
	if timeout <= 0 {
		timeout = fetch.DefaultServerPingTimeout
	}

	q := url.Values{}
	q.Set("action", "ping")
	q.Set("url", host)
	q.Set("type", "server")
	resp, err := fetcherOr(p.Fetcher).Get(ctx, base+"/api/network?"+q.Encode(), timeout+serverCallSlack)
	if err != nil {
		if resp == nil {
			kind := model.KindOf(err)
			msg := err.Error()
			if kind == model.KindTimeout {
				msg = MsgTimedOut
			}
			return model.PingOutcome{Error: msg, ErrorKind: kind}
		}
		return backendFailure(resp, err)
	}

	var out model.PingOutcome
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return model.PingOutcome{Error: fmt.Sprintf("decode backend answer: %v", err), ErrorKind: model.KindParse}
	}
	return out
}

func backendFailure(resp *fetch.Response, err error) model.PingOutcome {
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	out := model.PingOutcome{Error: err.Error(), ErrorKind: model.KindHTTPStatus, HTTPStatus: resp.StatusCode}
	if json.Unmarshal(resp.Body, &body) == nil && body.Error != "" {
		out.Error = fmt.Sprintf("%s: %s", err.Error(), body.Error)
		if body.Kind != "" {
			out.ErrorKind = model.ParseKind(body.Kind)
		}
	}
	return out
}
