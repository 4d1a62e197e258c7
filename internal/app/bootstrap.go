package app

import (
	"time"

	"netdiag/internal/platform/fetch"
	"netdiag/internal/services/batchprobe"
)

// Config 存放运行时配置；由 CLI 从命令行参数与 NETDIAG_* 环境变量填充。
type Config struct {
	ListenAddr string
	// BackendURL 是服务端观测点（远端 netdiag serve）的地址；为空则服务端路径不可用。
	BackendURL  string
	CatalogPath string

	IPTimeout         time.Duration
	LocalPingTimeout  time.Duration
	ServerPingTimeout time.Duration
	Concurrency       int

	GeoIPCityDB string
	GeoIPASNDB  string

	LogLevel  string
	LogFormat string
	UserAgent string
}

// DefaultConfig 返回默认配置。
func DefaultConfig() Config {
	return Config{
		ListenAddr:        "127.0.0.1:8787",
		IPTimeout:         fetch.DefaultIPTimeout,
		LocalPingTimeout:  fetch.DefaultLocalPingTimeout,
		ServerPingTimeout: fetch.DefaultServerPingTimeout,
		Concurrency:       batchprobe.DefaultConcurrency,
		LogLevel:          "info",
		LogFormat:         "text",
		UserAgent:         fetch.DefaultUserAgent,
	}
}
