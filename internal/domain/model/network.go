package model

import "time"

// Path 标识探测所处的观测点。
type Path string

const (
	// PathLocal 由运行聚合器的本进程直接访问 provider / 站点。
	PathLocal Path = "local"
	// PathServer 经远端 netdiag 后端的 /api/network 代为访问。
	PathServer Path = "server"
)

// InfoUnavailable 是“无可用归属地信息”的哨兵文本。
const InfoUnavailable = "Information not available"

// ProbeResult 是单个 provider 一次调用的结果。
// Error 非空时 IP/Info 无意义；RawData 始终保留原始载荷便于排查。
type ProbeResult struct {
	Source    string    `json:"source"`
	Path      Path      `json:"path,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Info      string    `json:"info,omitempty"`
	RawData   string    `json:"rawData,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind ErrorKind `json:"kind,omitempty"`
}

// OK 表示调用成功且拿到了 IP。
func (r ProbeResult) OK() bool {
	return r.Error == "" && r.IP != ""
}

// ResolvedIPRecord 是合并后每个规范化 IP 对应的一条记录。
type ResolvedIPRecord struct {
	IP     string `json:"ip"`
	Info   string `json:"info"`
	Source string `json:"source"`
}

// PathResult 是单条观测路径的合并结果。
// Records 为空且 ErrorKind=no_ip_info 表示“所有来源都没有可用信息”。
type PathResult struct {
	Records   []ResolvedIPRecord `json:"records"`
	Error     string             `json:"error,omitempty"`
	ErrorKind ErrorKind          `json:"kind,omitempty"`
}

// DualPathReport 汇总本地与服务端两条路径的 IP 结果，两者互不合并。
type DualPathReport struct {
	Local       PathResult    `json:"local"`
	Server      PathResult    `json:"server"`
	AllResults  []ProbeResult `json:"allResults"`
	Warnings    []string      `json:"warnings,omitempty"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
