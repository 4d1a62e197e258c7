package ipinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"netdiag/internal/domain/model"
	"netdiag/internal/platform/fetch"
)

// Resolver 并发查询多个 IP 信息来源，并把结果合并为按 IP 去重的记录。
//
// 单个来源失败只体现在它自己的 ProbeResult 上，不会取消其他来源；
// 合并时的优先级只取决于配置顺序，与完成先后无关。
type Resolver struct {
	Fetcher *fetch.Fetcher
	Locator Locator
	// Timeout 是每一步 HTTP 调用各自的超时（取 IP、二次定位分别计时）。
	Timeout time.Duration
	Log     *slog.Logger
}

func (r *Resolver) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return fetch.DefaultIPTimeout
}

func (r *Resolver) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// Lookup 并发调用全部来源，等待全部完成后按配置顺序返回结果。
func (r *Resolver) Lookup(ctx context.Context, providers []model.ProviderDescriptor) []model.ProbeResult {
	out := make([]model.ProbeResult, len(providers))
	var g errgroup.Group
	for i, d := range providers {
		i, d := i, d
		g.Go(func() error {
			out[i] = r.LookupOne(ctx, d)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Resolve = Lookup + Merge。即使返回 ErrNoIPInfo，原始结果也会一并返回。
func (r *Resolver) Resolve(ctx context.Context, providers []model.ProviderDescriptor) ([]model.ResolvedIPRecord, []model.ProbeResult, error) {
	results := r.Lookup(ctx, providers)
	records, err := Merge(results)
	return records, results, err
}

// LookupOne 查询单个来源；错误被折叠进 ProbeResult，不向上返回。
func (r *Resolver) LookupOne(ctx context.Context, d model.ProviderDescriptor) model.ProbeResult {
	res, err := r.lookup(ctx, d)
	res.Source = d.Name
	if err != nil {
		res.IP, res.Info = "", ""
		res.Error = err.Error()
		if res.ErrorKind == "" {
			res.ErrorKind = model.KindOf(err)
		}
		r.log().Debug("ip provider failed", "source", d.Name, "kind", res.ErrorKind, "err", err)
		return res
	}
	r.log().Debug("ip provider answered", "source", d.Name, "ip", res.IP)
	return res
}

func (r *Resolver) lookup(ctx context.Context, d model.ProviderDescriptor) (model.ProbeResult, error) {
	f := r.Fetcher
	if f == nil {
		f = fetch.New(nil)
	}
	resp, err := f.Get(ctx, d.URL, r.timeout())
	if err != nil {
		if d.Kind == model.ProviderProxy && resp != nil {
			return backendFailure(resp, err)
		}
		res := model.ProbeResult{}
		if resp != nil {
			res.RawData = string(resp.Body)
		}
		return res, err
	}

	ip, err := ExtractIP(resp.Body, d)
	if err != nil {
		return model.ProbeResult{RawData: string(resp.Body)}, err
	}

	switch {
	case d.Kind == model.ProviderProxy:
		var answer model.ProbeResult
		_ = json.Unmarshal(resp.Body, &answer)
		return model.ProbeResult{IP: ip, Info: answer.Info, RawData: answer.RawData}, nil
	case d.TwoStep():
		return r.locate(ctx, d, ip, resp.Body)
	default:
		doc, err := decodeObject(resp.Body)
		if err != nil {
			return model.ProbeResult{RawData: string(resp.Body)}, err
		}
		return model.ProbeResult{
			IP:      ip,
			Info:    FormatInfo(InfoFields(doc, d.InfoField)),
			RawData: prettyJSON(resp.Body),
		}, nil
	}
}

// locate 是两步来源的第二步；第二步失败即视为该来源失败。
func (r *Resolver) locate(ctx context.Context, d model.ProviderDescriptor, ip string, first []byte) (model.ProbeResult, error) {
	if r.Locator == nil {
		return model.ProbeResult{RawData: string(first)}, errors.New("no locator configured")
	}
	info, raw, err := r.Locator.Locate(ctx, ip)
	if err != nil {
		return model.ProbeResult{RawData: string(first)}, err
	}

	combined := map[string]any{string(d.Kind): strings.TrimSpace(string(first))}
	if len(raw) > 0 && json.Valid(raw) {
		combined["ipInfo"] = raw
	}
	b, _ := json.MarshalIndent(combined, "", "  ")
	return model.ProbeResult{IP: ip, Info: info, RawData: string(b)}, nil
}

// backendFailure 解析 netdiag 后端的失败应答 {error, kind}，保留其分类。
func backendFailure(resp *fetch.Response, err error) (model.ProbeResult, error) {
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	res := model.ProbeResult{RawData: string(resp.Body), ErrorKind: model.KindHTTPStatus}
	if json.Unmarshal(resp.Body, &body) == nil && body.Error != "" {
		if body.Kind != "" {
			res.ErrorKind = model.ParseKind(body.Kind)
		}
		return res, fmt.Errorf("%w: %s", err, body.Error)
	}
	return res, err
}

// Merge 过滤、分组并择优：
//  1. 丢弃无 IP 或信息为哨兵文本的结果；
//  2. 一条不剩时返回 ErrNoIPInfo；
//  3. 按规范化 IP 分组，信息（按字符计）最长者胜出，等长取输入顺序靠前者；
//  4. 分组按首次出现的顺序输出。
func Merge(results []model.ProbeResult) ([]model.ResolvedIPRecord, error) {
	valid := lo.Filter(results, func(r model.ProbeResult, _ int) bool {
		return r.Error == "" && strings.TrimSpace(r.IP) != "" && r.Info != model.InfoUnavailable
	})
	if len(valid) == 0 {
		return nil, model.ErrNoIPInfo
	}

	order := make([]string, 0, len(valid))
	best := make(map[string]model.ResolvedIPRecord, len(valid))
	for _, r := range valid {
		key := Canonicalize(r.IP)
		cur, seen := best[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || utf8.RuneCountInString(r.Info) > utf8.RuneCountInString(cur.Info) {
			best[key] = model.ResolvedIPRecord{IP: key, Info: r.Info, Source: r.Source}
		}
	}
	return lo.Map(order, func(key string, _ int) model.ResolvedIPRecord { return best[key] }), nil
}
