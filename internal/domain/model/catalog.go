package model

// ProviderKind 决定 provider 响应的解析方式。
type ProviderKind string

const (
	// ProviderJSON：JSON 载荷，IPField/InfoField 用点号路径取值。
	ProviderJSON ProviderKind = "json"
	// ProviderPlain：响应体即 IP 文本，需二次定位。
	ProviderPlain ProviderKind = "plain"
	// ProviderCFTrace：Cloudflare trace 文本，取 ip=<value> 行，需二次定位。
	ProviderCFTrace ProviderKind = "cftrace"
	// ProviderProxy：netdiag 后端 /api/network?action=ip 的 JSON 应答。
	ProviderProxy ProviderKind = "proxy"
)

// ProviderDescriptor 描述一个 IP 信息来源。
type ProviderDescriptor struct {
	Name      string       `json:"name" yaml:"name"`
	URL       string       `json:"url" yaml:"url"`
	Kind      ProviderKind `json:"kind" yaml:"kind"`
	IPField   string       `json:"ipField,omitempty" yaml:"ip_field,omitempty"`
	InfoField string       `json:"infoField,omitempty" yaml:"info_field,omitempty"`
	// Locate 为 true 时即使是 json 类型也只取 IP，再交给 Locator 定位。
	Locate bool `json:"locate,omitempty" yaml:"locate,omitempty"`
}

// TwoStep 表示该来源需要“先取 IP，再查归属地”。
func (d ProviderDescriptor) TwoStep() bool {
	return d.Kind == ProviderPlain || d.Kind == ProviderCFTrace || d.Locate
}

// LocatorConfig 描述二次定位使用的数据源。
// Kind 为 "http"（默认，URL?ip=<ip>）或 "maxmind"（本地 GeoLite2 库）。
type LocatorConfig struct {
	Kind      string `json:"kind" yaml:"kind"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	InfoField string `json:"infoField,omitempty" yaml:"info_field,omitempty"`
	CityDB    string `json:"cityDb,omitempty" yaml:"city_db,omitempty"`
	ASNDB     string `json:"asnDb,omitempty" yaml:"asn_db,omitempty"`
}

// Catalog 是 provider、站点与定位源的静态配置。
type Catalog struct {
	Version string               `json:"version" yaml:"version"`
	Local   []ProviderDescriptor `json:"local" yaml:"local"`
	Server  []ProviderDescriptor `json:"server" yaml:"server"`
	Targets []SiteTarget         `json:"targets" yaml:"targets"`
	Locator LocatorConfig        `json:"locator" yaml:"locator"`
}
