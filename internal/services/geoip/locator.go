package geoip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/oschwald/geoip2-golang"

	"netdiag/internal/domain/model"
	"netdiag/internal/services/ipinfo"
)

// 未显式配置时依次尝试的 GeoLite2 库位置。
var (
	defaultCityPaths = []string{
		"/usr/share/GeoIP/GeoLite2-City.mmdb",
		"/usr/local/share/GeoIP/GeoLite2-City.mmdb",
	}
	defaultASNPaths = []string{
		"/usr/share/GeoIP/GeoLite2-ASN.mmdb",
		"/usr/local/share/GeoIP/GeoLite2-ASN.mmdb",
	}
)

// Locator 基于本地 MaxMind GeoLite2 库做离线归属地查询，实现 ipinfo.Locator。
// ASN 库可选；缺失时 isp 字段留空，描述退化为 "国家 城市" 形式。
type Locator struct {
	city *geoip2.Reader
	asn  *geoip2.Reader
	lang string
}

var _ ipinfo.Locator = (*Locator)(nil)

// Open 打开 City 库（必需）与 ASN 库（可选）。路径为空时尝试常见安装位置。
func Open(cityPath, asnPath string) (*Locator, error) {
	city, err := openFirst(cityPath, defaultCityPaths)
	if err != nil {
		return nil, fmt.Errorf("open city db: %w", err)
	}
	l := &Locator{city: city, lang: "zh-CN"}
	if asn, err := openFirst(asnPath, defaultASNPaths); err == nil {
		l.asn = asn
	} else if strings.TrimSpace(asnPath) != "" {
		_ = city.Close()
		return nil, fmt.Errorf("open asn db: %w", err)
	}
	return l, nil
}

func openFirst(path string, fallbacks []string) (*geoip2.Reader, error) {
	if p := strings.TrimSpace(path); p != "" {
		return geoip2.Open(p)
	}
	var errs []error
	for _, p := range fallbacks {
		db, err := geoip2.Open(p)
		if err == nil {
			return db, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// Close 释放 mmap 的库文件。
func (l *Locator) Close() error {
	var errs []error
	if l.city != nil {
		errs = append(errs, l.city.Close())
	}
	if l.asn != nil {
		errs = append(errs, l.asn.Close())
	}
	return errors.Join(errs...)
}

type lookupRecord struct {
	IP           string `json:"ip"`
	Country      string `json:"country,omitempty"`
	CountryISO   string `json:"countryIso,omitempty"`
	Region       string `json:"region,omitempty"`
	City         string `json:"city,omitempty"`
	ASN          uint   `json:"asn,omitempty"`
	Organization string `json:"organization,omitempty"`
}

func (l *Locator) Locate(ctx context.Context, ip string) (string, json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "", nil, fmt.Errorf("%w: %q is not an IP address", model.ErrParse, ip)
	}

	rec := lookupRecord{IP: parsed.String()}
	city, err := l.city.City(parsed)
	if err != nil {
		return "", nil, fmt.Errorf("geoip city lookup: %w", err)
	}
	rec.Country = l.name(city.Country.Names)
	rec.CountryISO = city.Country.IsoCode
	if len(city.Subdivisions) > 0 {
		rec.Region = l.name(city.Subdivisions[0].Names)
	}
	rec.City = l.name(city.City.Names)

	if l.asn != nil {
		if a, err := l.asn.ASN(parsed); err == nil {
			rec.ASN = a.AutonomousSystemNumber
			rec.Organization = a.AutonomousSystemOrganization
		}
	}

	raw, _ := json.Marshal(rec)
	return ipinfo.FormatInfo(rec.fields()), raw, nil
}

// fields 同时提供完整四元组与 home/address 两种形态供 FormatInfo 选择。
func (r lookupRecord) fields() map[string]any {
	home := r.Country
	if home == "" {
		home = r.CountryISO
	}
	address := strings.TrimSpace(strings.Join([]string{r.Region, r.City, r.Organization}, " "))
	return map[string]any{
		"country": r.Country,
		"region":  r.Region,
		"city":    r.City,
		"isp":     r.Organization,
		"home":    home,
		"address": strings.Join(strings.Fields(address), " "),
	}
}

func (l *Locator) name(names map[string]string) string {
	if v := names[l.lang]; v != "" {
		return v
	}
	return names["en"]
}
