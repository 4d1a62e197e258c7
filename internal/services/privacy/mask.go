package privacy

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"netdiag/internal/domain/model"
)

var (
	reIPv4 = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	// 粗匹配 IPv6 候选，再用 net.ParseIP 校验。
	reIPv6 = regexp.MustCompile(`[0-9A-Fa-f]{0,4}(?::[0-9A-Fa-f]{0,4}){2,7}`)
)

// MaskIP 对 IP 做“部分展示”：
// - IPv4 保留前两段：203.0.113.7 -> 203.0.*.*
// - IPv6 保留前两组：2001:db8::1 -> 2001:db8:*
// - 非 IP：返回 "<masked>"
func MaskIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "<masked>"
	}
	if v4 := parsed.To4(); v4 != nil && !strings.Contains(ip, ":") {
		parts := strings.Split(v4.String(), ".")
		return parts[0] + "." + parts[1] + ".*.*"
	}
	full := parsed.To16()
	return fmt.Sprintf("%x:%x:*", uint16(full[0])<<8|uint16(full[1]), uint16(full[2])<<8|uint16(full[3]))
}

// MaskText 替换文本中出现的所有 IP（原始载荷、错误信息等）。
func MaskText(s string) string {
	if s == "" {
		return s
	}
	s = reIPv4.ReplaceAllStringFunc(s, func(m string) string {
		if net.ParseIP(m) == nil {
			return m
		}
		return MaskIP(m)
	})
	return reIPv6.ReplaceAllStringFunc(s, func(m string) string {
		if strings.Count(m, ":") < 2 || net.ParseIP(m) == nil {
			return m
		}
		return MaskIP(m)
	})
}

// MaskReport 返回脱敏后的副本，用于对外分享；原报告不变。
// 归属地（Info）保留，它本身就是诊断结论。
func MaskReport(rep model.DualPathReport) model.DualPathReport {
	out := rep
	out.Local = maskPath(rep.Local)
	out.Server = maskPath(rep.Server)

	out.AllResults = make([]model.ProbeResult, len(rep.AllResults))
	for i, r := range rep.AllResults {
		r.IP = MaskIP(r.IP)
		r.RawData = MaskText(r.RawData)
		r.Error = MaskText(r.Error)
		out.AllResults[i] = r
	}

	if len(rep.Warnings) > 0 {
		out.Warnings = make([]string, len(rep.Warnings))
		for i, w := range rep.Warnings {
			out.Warnings[i] = MaskText(w)
		}
	}
	return out
}

func maskPath(p model.PathResult) model.PathResult {
	out := p
	out.Error = MaskText(p.Error)
	if p.Records != nil {
		out.Records = make([]model.ResolvedIPRecord, len(p.Records))
		for i, r := range p.Records {
			r.IP = MaskIP(r.IP)
			out.Records[i] = r
		}
	}
	return out
}

// MaskBatch 脱敏批次中的错误信息（其中可能带有对端或本机 IP）。
func MaskBatch(snap model.BatchSnapshot) model.BatchSnapshot {
	out := snap
	out.Records = make([]model.SiteProbeRecord, len(snap.Records))
	for i, rec := range snap.Records {
		rec = rec.Clone()
		for _, c := range []*model.PathCell{&rec.Local, &rec.Server} {
			if c.Outcome != nil {
				c.Outcome.Error = MaskText(c.Outcome.Error)
			}
		}
		out.Records[i] = rec
	}
	return out
}
