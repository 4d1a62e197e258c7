package ipinfo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"netdiag/internal/domain/model"
)

// extractor 从某类 provider 的响应体中取出原始 IP 文本。
type extractor func(body []byte, d model.ProviderDescriptor) (string, error)

var extractors = map[model.ProviderKind]extractor{
	model.ProviderJSON:    extractJSON,
	model.ProviderPlain:   extractPlain,
	model.ProviderCFTrace: extractTrace,
	model.ProviderProxy:   extractProxy,
}

// ExtractIP 按 provider 类型解析响应体并校验 IP 格式。
// 返回值已去除首尾空白，但未做大小写规范化（见 Canonicalize）。
func ExtractIP(body []byte, d model.ProviderDescriptor) (string, error) {
	fn, ok := extractors[d.Kind]
	if !ok {
		return "", fmt.Errorf("%w: unknown provider kind %q", model.ErrParse, d.Kind)
	}
	raw, err := fn(body, d)
	if err != nil {
		return "", err
	}
	ip := strings.TrimSpace(raw)
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("%w: %q is not an IP address", model.ErrParse, clip(ip, 64))
	}
	return ip, nil
}

func extractJSON(body []byte, d model.ProviderDescriptor) (string, error) {
	doc, err := decodeObject(body)
	if err != nil {
		return "", err
	}
	field := strings.TrimSpace(d.IPField)
	if field == "" {
		field = "ip"
	}
	v, ok := Lookup(doc, field).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: field %q missing", model.ErrParse, field)
	}
	return v, nil
}

func extractPlain(body []byte, _ model.ProviderDescriptor) (string, error) {
	return string(body), nil
}

// extractTrace 解析 Cloudflare /cdn-cgi/trace 的 key=value 行。
func extractTrace(body []byte, _ model.ProviderDescriptor) (string, error) {
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if v, ok := strings.CutPrefix(line, "ip="); ok {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: trace has no ip= line", model.ErrParse)
}

func extractProxy(body []byte, _ model.ProviderDescriptor) (string, error) {
	var res model.ProbeResult
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("%w: decode backend answer: %v", model.ErrParse, err)
	}
	if res.IP == "" {
		return "", fmt.Errorf("%w: backend answer has no ip", model.ErrParse)
	}
	return res.IP, nil
}

// FormatInfo 把归属地字段拼成一行描述：
// 优先 "country region city isp"，其次 "home address"，否则返回哨兵文本。
func FormatInfo(fields map[string]any) string {
	if fields == nil {
		return model.InfoUnavailable
	}
	country, region := text(fields, "country"), text(fields, "region")
	city, isp := text(fields, "city"), text(fields, "isp")
	if country != "" && region != "" && city != "" && isp != "" {
		return strings.Join([]string{country, region, city, isp}, " ")
	}
	home, address := text(fields, "home"), text(fields, "address")
	if home != "" && address != "" {
		return home + " " + address
	}
	return model.InfoUnavailable
}

// Canonicalize 去空白并转小写，作为 IP 合并的分组键。
func Canonicalize(ip string) string {
	return strings.ToLower(strings.TrimSpace(ip))
}

// Lookup 按点号路径（如 "data.ip"）读取 JSON 对象中的值；空路径返回对象本身。
func Lookup(doc map[string]any, path string) any {
	path = strings.TrimSpace(path)
	if path == "" {
		return doc
	}
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// InfoFields 取 path 指向的对象用于 FormatInfo；非对象返回 nil。
func InfoFields(doc map[string]any, path string) map[string]any {
	m, _ := Lookup(doc, path).(map[string]any)
	return m
}

func decodeObject(body []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode json: %v", model.ErrParse, err)
	}
	return doc, nil
}

func text(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// prettyJSON 尽量把载荷格式化为缩进 JSON，非 JSON 原样返回。
func prettyJSON(body []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(body), "", "  "); err != nil {
		return string(body)
	}
	return buf.String()
}
