package model

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"time"
)

// 站点参数校验错误。
var (
	ErrEmptyHost   = errors.New("missing host")
	ErrInvalidHost = errors.New("invalid host")
)

// SiteTarget 是待探测的站点（静态配置列表中的一项）。
type SiteTarget struct {
	Name string `json:"name" yaml:"name"`
	Host string `json:"host" yaml:"host"`
}

// StatusReachable 是探测成功时的状态文本。
const StatusReachable = "Reachable"

// PingOutcome 是单次站点探测的结果。
type PingOutcome struct {
	Status     string    `json:"status,omitempty"`
	LatencyMS  int64     `json:"latency"`
	HTTPStatus int       `json:"code,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  ErrorKind `json:"kind,omitempty"`
}

// Reachable 表示探测成功。
func (o PingOutcome) Reachable() bool {
	return o.Error == "" && o.Status != ""
}

// PathState 是站点某条路径的探测进度。
type PathState string

const (
	StateNotStarted PathState = "not_started"
	StatePending    PathState = "pending"
	StateDone       PathState = "done"
)

// PathCell 记录一条路径的状态与（完成后的）结果。
type PathCell struct {
	State   PathState    `json:"state"`
	Outcome *PingOutcome `json:"outcome,omitempty"`
}

// SiteProbeRecord 是一个站点在两条路径上的探测记录。
type SiteProbeRecord struct {
	Target SiteTarget `json:"target"`
	Local  PathCell   `json:"local"`
	Server PathCell   `json:"server"`
}

// Clone 深拷贝记录，避免快照与会话内部状态共享 Outcome 指针。
func (r SiteProbeRecord) Clone() SiteProbeRecord {
	out := r
	if r.Local.Outcome != nil {
		o := *r.Local.Outcome
		out.Local.Outcome = &o
	}
	if r.Server.Outcome != nil {
		o := *r.Server.Outcome
		out.Server.Outcome = &o
	}
	return out
}

// Cell 返回指定路径的单元格指针。
func (r *SiteProbeRecord) Cell(p Path) *PathCell {
	if p == PathServer {
		return &r.Server
	}
	return &r.Local
}

// PathUpdate 是某条路径完成时发出的增量事件。
type PathUpdate struct {
	Host    string      `json:"host"`
	Path    Path        `json:"path"`
	Outcome PingOutcome `json:"outcome"`
}

// 批量探测会话状态。
const (
	BatchRunning   = "running"
	BatchCompleted = "completed"
	BatchCancelled = "cancelled"
)

// BatchSnapshot 是批量探测会话的只读快照。
type BatchSnapshot struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Cancelled  bool              `json:"cancelled"`
	CreatedAt  time.Time         `json:"createdAt"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
	Records    []SiteProbeRecord `json:"records"`
}

// NormalizeHost 把用户输入的站点（可能带 scheme、路径、端口）规范为主机名。
// 空输入返回 ErrEmptyHost；含非法字符返回 ErrInvalidHost。
func NormalizeHost(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrEmptyHost
	}
	if strings.Contains(s, "://") {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return "", ErrInvalidHost
		}
		s = u.Host
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.ToLower(strings.TrimSuffix(s, "."))
	if s == "" {
		return "", ErrInvalidHost
	}

	name := s
	if h, _, err := net.SplitHostPort(s); err == nil {
		name = h
	}
	if net.ParseIP(strings.Trim(name, "[]")) != nil {
		return s, nil
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
		default:
			return "", ErrInvalidHost
		}
	}
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "-") || strings.Contains(name, "..") {
		return "", ErrInvalidHost
	}
	return s, nil
}
