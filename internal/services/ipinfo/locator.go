package ipinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"netdiag/internal/domain/model"
	"netdiag/internal/platform/fetch"
)

// DefaultLocatorURL 是二次定位的默认公共接口（不保证长期可用）。
const DefaultLocatorURL = "https://api.52vmy.cn/api/query/itad"

// Locator 根据 IP 查询归属地描述。
// raw 是定位源的原始载荷（JSON），会被并入 ProbeResult.RawData。
type Locator interface {
	Locate(ctx context.Context, ip string) (info string, raw json.RawMessage, err error)
}

// HTTPLocator 通过 GET {URL}?ip=<ip> 查询归属地，信息位于 InfoField 指向的子对象。
type HTTPLocator struct {
	URL       string
	InfoField string
	Timeout   time.Duration
	Fetcher   *fetch.Fetcher
}

func NewHTTPLocator(baseURL, infoField string, f *fetch.Fetcher) *HTTPLocator {
	return &HTTPLocator{URL: strings.TrimSpace(baseURL), InfoField: infoField, Fetcher: f}
}

func (l *HTTPLocator) Locate(ctx context.Context, ip string) (string, json.RawMessage, error) {
	base := l.URL
	if base == "" {
		base = DefaultLocatorURL
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = fetch.DefaultIPTimeout
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", nil, fmt.Errorf("%w: locator url: %v", model.ErrParse, err)
	}
	q := u.Query()
	q.Set("ip", ip)
	u.RawQuery = q.Encode()

	f := l.Fetcher
	if f == nil {
		f = fetch.New(nil)
	}
	resp, err := f.Get(ctx, u.String(), timeout)
	if err != nil {
		return "", nil, fmt.Errorf("locate %s: %w", ip, err)
	}
	doc, err := decodeObject(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("locate %s: %w", ip, err)
	}
	return FormatInfo(InfoFields(doc, l.InfoField)), json.RawMessage(resp.Body), nil
}
