package app

import (
	"crypto/tls"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"netdiag/internal/adapters/catalog"
	"netdiag/internal/platform/fetch"
	"netdiag/internal/platform/logging"
	"netdiag/internal/services/aggregate"
	"netdiag/internal/services/batchprobe"
	"netdiag/internal/services/geoip"
	"netdiag/internal/services/ipinfo"
	"netdiag/internal/services/siteprobe"
)

// Deps 是按配置装配好的服务集合，CLI 与 Web 服务共用。
type Deps struct {
	Config  Config
	Catalog *catalog.Loaded

	Fetcher    *fetch.Fetcher
	Resolver   *ipinfo.Resolver
	Aggregator *aggregate.Aggregator
	Prober     *siteprobe.Prober
	Pinger     *siteprobe.Pinger
	Runner     *batchprobe.Runner

	// Warnings 记录装配过程中的降级（例如 GeoIP 库打不开时回退到 HTTP 定位）。
	Warnings []string

	closers []io.Closer
}

// NewHTTPClient 返回探测用的 HTTP 客户端。超时由每次调用单独控制，这里不设整体超时。
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   6 * time.Second,
		KeepAlive: 15 * time.Second,
	}
	return &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSClientConfig:     &tls.Config{MinVersion: tls.VersionTLS12},
			TLSHandshakeTimeout: 6 * time.Second,
			MaxIdleConnsPerHost: 4,
		},
	}
}

// NewDeps 按配置与目录装配全部服务。不会因可选组件失败而返回错误。
func NewDeps(cfg Config, loaded *catalog.Loaded) *Deps {
	d := &Deps{Config: cfg, Catalog: loaded}
	cat := loaded.Catalog

	d.Fetcher = &fetch.Fetcher{Client: NewHTTPClient(), UserAgent: cfg.UserAgent}
	d.Resolver = &ipinfo.Resolver{
		Fetcher: d.Fetcher,
		Locator: d.buildLocator(),
		Timeout: cfg.IPTimeout,
		Log:     logging.WithComponent("ipinfo"),
	}

	server := catalog.ProxyDescriptors(cfg.BackendURL, cat.Server)
	if len(server) == 0 {
		d.Warnings = append(d.Warnings, "backend url not set; server path disabled")
	}
	d.Aggregator = &aggregate.Aggregator{
		Resolver: d.Resolver,
		Local:    cat.Local,
		Server:   server,
	}

	d.Prober = &siteprobe.Prober{
		Fetcher:       d.Fetcher,
		Backend:       cfg.BackendURL,
		LocalTimeout:  cfg.LocalPingTimeout,
		ServerTimeout: cfg.ServerPingTimeout,
	}
	d.Pinger = &siteprobe.Pinger{Fetcher: d.Fetcher}
	d.Runner = &batchprobe.Runner{
		Prober:      d.Prober,
		Concurrency: cfg.Concurrency,
		Log:         logging.WithComponent("batchprobe"),
	}
	return d
}

// buildLocator 选择二次定位源：配置了 GeoIP 库或目录要求 maxmind 时优先离线库。
func (d *Deps) buildLocator() ipinfo.Locator {
	cat := d.Catalog.Catalog
	city := firstNonEmpty(d.Config.GeoIPCityDB, cat.Locator.CityDB)
	asn := firstNonEmpty(d.Config.GeoIPASNDB, cat.Locator.ASNDB)

	if city != "" || cat.Locator.Kind == "maxmind" {
		l, err := geoip.Open(city, asn)
		if err == nil {
			d.closers = append(d.closers, l)
			slog.Debug("geoip locator enabled", "city_db", city, "asn_db", asn)
			return l
		}
		d.Warnings = append(d.Warnings, "geoip unavailable, falling back to http locator: "+err.Error())
	}

	loc := ipinfo.NewHTTPLocator(cat.Locator.URL, cat.Locator.InfoField, d.Fetcher)
	if loc.URL == "" {
		loc.URL = ipinfo.DefaultLocatorURL
		loc.InfoField = "data"
	}
	loc.Timeout = d.Config.IPTimeout
	return loc
}

// Close 释放 GeoIP 库等资源。
func (d *Deps) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
