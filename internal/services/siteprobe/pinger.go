package siteprobe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"netdiag/internal/domain/model"
	"netdiag/internal/platform/fetch"
)

// PingBotUserAgent 是服务端 HEAD 探测使用的 UA。
const PingBotUserAgent = "Mozilla/5.0 (compatible; PingBot/1.0;)"

// MsgTimedOut 是超时结果的统一错误文本。
const MsgTimedOut = "Request timed out"

// Pinger 在本进程内对站点做 HEAD 探测，供后端 action=ping 使用。
// 收到任何 HTTP 响应（含 4xx/5xx）都视为可达，状态码记录在 HTTPStatus。
type Pinger struct {
	Fetcher *fetch.Fetcher
	// Scheme 默认 https。
	Scheme string
}

// Ping 探测 host；timeout<=0 时使用 10s。
func (p *Pinger) Ping(ctx context.Context, host string, timeout time.Duration) model.PingOutcome {
	if timeout <= 0 {
		timeout = fetch.DefaultServerPingTimeout
	}
	target := fmt.Sprintf("%s://%s", schemeOr(p.Scheme), host)
	header := http.Header{"User-Agent": []string{PingBotUserAgent}}

	resp, err := fetcherOr(p.Fetcher).Do(ctx, http.MethodHead, target, timeout, header)
	return reachability(resp, err)
}

// reachability 把一次直连请求折算为 PingOutcome。
func reachability(resp *fetch.Response, err error) model.PingOutcome {
	if resp != nil {
		return model.PingOutcome{
			Status:     model.StatusReachable,
			LatencyMS:  resp.Elapsed.Milliseconds(),
			HTTPStatus: resp.StatusCode,
		}
	}
	return failure(err)
}

func failure(err error) model.PingOutcome {
	kind := model.KindOf(err)
	switch kind {
	case model.KindTimeout:
		return model.PingOutcome{Error: MsgTimedOut, ErrorKind: kind}
	case model.KindCancelled:
		return model.PingOutcome{Error: err.Error(), ErrorKind: kind}
	}
	if errors.Is(err, model.ErrNetwork) {
		err = fmt.Errorf("%w: %v", model.ErrUnreachable, err)
	}
	return model.PingOutcome{Error: err.Error(), ErrorKind: model.KindOf(err)}
}

func schemeOr(s string) string {
	if s == "" {
		return "https"
	}
	return s
}

func fetcherOr(f *fetch.Fetcher) *fetch.Fetcher {
	if f == nil {
		return fetch.New(nil)
	}
	return f
}
