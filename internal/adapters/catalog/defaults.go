package catalog

import (
	"net/url"
	"strings"

	"netdiag/internal/domain/model"
)

// DefaultVersion 是内置目录的版本号。
const DefaultVersion = "builtin-1"

// Default 返回内置目录：四个本地来源、两个服务端来源、十个常用站点。
// 各公共接口均为第三方服务，不保证长期可用。
func Default() model.Catalog {
	return model.Catalog{
		Version: DefaultVersion,
		Local: []model.ProviderDescriptor{
			{Name: "UAPIS", URL: "https://uapis.cn/api/myip.php", Kind: model.ProviderJSON},
			{Name: "IP.SB", URL: "https://api.ip.sb/ip", Kind: model.ProviderPlain},
			{Name: "52VMY", URL: "https://api.52vmy.cn/api/query/itad", Kind: model.ProviderJSON, IPField: "data.ip", InfoField: "data"},
			{Name: "Cloudflare", URL: "https://www.cloudflare.com/cdn-cgi/trace", Kind: model.ProviderCFTrace},
		},
		Server: []model.ProviderDescriptor{
			{Name: "Cloudflare + 52VMY", URL: "https://www.cloudflare.com/cdn-cgi/trace", Kind: model.ProviderCFTrace},
			{Name: "IP.SB", URL: "https://api.ip.sb/ip", Kind: model.ProviderPlain},
		},
		Targets: []model.SiteTarget{
			{Name: "GitHub", Host: "github.com"},
			{Name: "Cloudflare", Host: "cloudflare.com"},
			{Name: "Google", Host: "google.com"},
			{Name: "YouTube", Host: "youtube.com"},
			{Name: "OpenAI", Host: "openai.com"},
			{Name: "Claude", Host: "anthropic.com"},
			{Name: "Bilibili", Host: "bilibili.com"},
			{Name: "腾讯", Host: "qq.com"},
			{Name: "阿里", Host: "aliyun.com"},
			{Name: "Linux.do", Host: "linux.do"},
		},
		Locator: model.LocatorConfig{
			Kind:      "http",
			URL:       "https://api.52vmy.cn/api/query/itad",
			InfoField: "data",
		},
	}
}

// ProxyDescriptors 把服务端来源改写为经后端 /api/network 代理的描述符。
// backend 为空时返回 nil，由调用方把服务端路径标记为未配置。
func ProxyDescriptors(backend string, server []model.ProviderDescriptor) []model.ProviderDescriptor {
	base := strings.TrimRight(strings.TrimSpace(backend), "/")
	if base == "" {
		return nil
	}
	out := make([]model.ProviderDescriptor, 0, len(server))
	for _, d := range server {
		q := url.Values{}
		q.Set("action", "ip")
		q.Set("provider", d.Name)
		out = append(out, model.ProviderDescriptor{
			Name: d.Name + " (server)",
			URL:  base + "/api/network?" + q.Encode(),
			Kind: model.ProviderProxy,
		})
	}
	return out
}

// FindServer 按名称（不区分大小写）查找服务端来源；name 为空时返回第一个。
func FindServer(c model.Catalog, name string) (model.ProviderDescriptor, bool) {
	if len(c.Server) == 0 {
		return model.ProviderDescriptor{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return c.Server[0], true
	}
	for _, d := range c.Server {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return model.ProviderDescriptor{}, false
}
