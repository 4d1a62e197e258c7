package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"netdiag/internal/domain/model"
)

// 各调用点的默认超时。
const (
	DefaultIPTimeout         = 5 * time.Second
	DefaultLocalPingTimeout  = 5 * time.Second
	DefaultServerPingTimeout = 10 * time.Second
)

// DefaultUserAgent 是未显式指定时使用的 UA。
const DefaultUserAgent = "netdiag/0.1"

const defaultMaxBody = 2 << 20

// Response 是一次请求的结果；Body 已读入内存并按 MaxBody 截断。
// Elapsed 为收到响应头时的耗时。
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// StatusError 表示收到了非 2xx 响应。
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("http status %d", e.Code) }

func (e *StatusError) Unwrap() error { return model.ErrHTTPStatus }

// Fetcher 是带单次超时的 HTTP 客户端封装，不做重试。
//
// 错误约定：
// - 超时：包装 model.ErrTimeout
// - 调用方取消：包装 context.Canceled
// - 传输失败：包装 model.ErrNetwork
// - 非 2xx：返回 *StatusError，同时返回已读取的 Response
type Fetcher struct {
	Client    *http.Client
	UserAgent string
	MaxBody   int64
}

func New(client *http.Client) *Fetcher {
	return &Fetcher{Client: client}
}

func (f *Fetcher) Get(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	return f.Do(ctx, http.MethodGet, url, timeout, nil)
}

func (f *Fetcher) Head(ctx context.Context, url string, timeout time.Duration) (*Response, error) {
	return f.Do(ctx, http.MethodHead, url, timeout, nil)
}

// Do 发起请求。timeout<=0 时只受 ctx 约束。
func (f *Fetcher) Do(ctx context.Context, method, url string, timeout time.Duration, header http.Header) (*Response, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(callCtx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", model.ErrNetwork, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("User-Agent") == "" {
		ua := strings.TrimSpace(f.UserAgent)
		if ua == "" {
			ua = DefaultUserAgent
		}
		req.Header.Set("User-Agent", ua)
	}

	start := time.Now()
	resp, err := f.client().Do(req)
	if err != nil {
		return nil, classify(ctx, callCtx, timeout, err)
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)

	limit := f.MaxBody
	if limit <= 0 {
		limit = defaultMaxBody
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, classify(ctx, callCtx, timeout, err)
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Elapsed:    elapsed,
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, &StatusError{Code: resp.StatusCode}
	}
	return out, nil
}

func (f *Fetcher) client() *http.Client {
	if f != nil && f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}

// classify 把传输层错误归入哨兵错误。
// 调用方主动取消优先判断，其次是本次调用或上游的截止时间。
func classify(parent, call context.Context, timeout time.Duration, err error) error {
	if errors.Is(parent.Err(), context.Canceled) {
		return fmt.Errorf("request cancelled: %w", context.Canceled)
	}
	var ne net.Error
	if errors.Is(call.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		if timeout > 0 {
			return fmt.Errorf("%w after %s", model.ErrTimeout, timeout)
		}
		return model.ErrTimeout
	}
	return fmt.Errorf("%w: %v", model.ErrNetwork, err)
}
