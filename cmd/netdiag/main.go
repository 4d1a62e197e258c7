package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"netdiag/internal/adapters/catalog"
	"netdiag/internal/app"
	"netdiag/internal/platform/logging"
)

// CLI 入口。所有子命令错误都统一输出到 stderr 并返回非 0 状态码。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newCLI(os.Stdout, os.Stderr).root.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// cli 持有一次命令执行的配置与目录。
// 参数优先级：命令行 > NETDIAG_* 环境变量 > 默认值（由 viper 统一合并）。
type cli struct {
	root   *cobra.Command
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer

	cfg    app.Config
	loaded *catalog.Loaded
}

func newCLI(out, errOut io.Writer) *cli {
	c := &cli{v: viper.New(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "netdiag",
		Short: "Dual-path public IP and site reachability diagnostics",
		Long: `netdiag reports the public IP and location of this machine as seen from two
vantage points (this process and a remote netdiag backend), and pings a list of
well-known sites from both.

Examples:
  # Public IP from both paths
  netdiag ip --backend https://diag.example.com

  # Ping the default sites, Ctrl+C cancels the rest of the batch
  netdiag ping

  # Serve the dashboard and the /api/network endpoint
  netdiag serve --listen 0.0.0.0:8787`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	def := app.DefaultConfig()
	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "catalog file (yaml); empty uses the built-in providers and sites")
	pf.String("backend", "", "base URL of the remote netdiag backend used as the server path")
	pf.Duration("ip-timeout", def.IPTimeout, "timeout of each IP provider call")
	pf.Duration("ping-timeout", def.LocalPingTimeout, "timeout of each local site ping")
	pf.Duration("server-ping-timeout", def.ServerPingTimeout, "timeout of each server-side site ping")
	pf.Int("concurrency", def.Concurrency, "sites probed at the same time (0 = unlimited)")
	pf.String("geoip-city-db", "", "GeoLite2 City database used to locate bare IPs")
	pf.String("geoip-asn-db", "", "GeoLite2 ASN database used together with --geoip-city-db")
	pf.String("log-level", def.LogLevel, "log level: debug|info|warn|error")
	pf.String("log-format", def.LogFormat, "log format: text|json")
	pf.String("user-agent", def.UserAgent, "User-Agent of outgoing requests")
	_ = c.v.BindPFlags(pf)

	c.v.SetEnvPrefix("NETDIAG")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.AddCommand(
		c.serveCmd(),
		c.ipCmd(),
		c.pingCmd(),
		c.reportCmd(),
		c.catalogCmd(),
		c.verifyCmd(),
		c.versionCmd(),
	)
	c.root = root
	return c
}

// setup 在任何子命令运行前合并配置、初始化日志并加载目录。
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	c.cfg = c.config()
	logging.Setup(logging.Options{Level: c.cfg.LogLevel, Format: c.cfg.LogFormat})
	if cmd.Name() == "version" || cmd.Name() == "verify" {
		return nil
	}

	loaded, err := catalog.NewLoader(c.cfg.CatalogPath).Load(cmd.Context())
	if err != nil {
		return err
	}
	c.loaded = loaded
	return nil
}

func (c *cli) config() app.Config {
	cfg := app.DefaultConfig()
	cfg.CatalogPath = c.v.GetString("config")
	cfg.BackendURL = strings.TrimSpace(c.v.GetString("backend"))
	cfg.IPTimeout = durationOr(c.v.GetDuration("ip-timeout"), cfg.IPTimeout)
	cfg.LocalPingTimeout = durationOr(c.v.GetDuration("ping-timeout"), cfg.LocalPingTimeout)
	cfg.ServerPingTimeout = durationOr(c.v.GetDuration("server-ping-timeout"), cfg.ServerPingTimeout)
	if n := c.v.GetInt("concurrency"); n >= 0 {
		cfg.Concurrency = n
	}
	cfg.GeoIPCityDB = c.v.GetString("geoip-city-db")
	cfg.GeoIPASNDB = c.v.GetString("geoip-asn-db")
	cfg.LogLevel = stringOr(c.v.GetString("log-level"), cfg.LogLevel)
	cfg.LogFormat = stringOr(c.v.GetString("log-format"), cfg.LogFormat)
	cfg.UserAgent = stringOr(c.v.GetString("user-agent"), cfg.UserAgent)
	cfg.ListenAddr = stringOr(c.v.GetString("listen"), cfg.ListenAddr)
	return cfg
}

// deps 按当前配置装配服务，并把装配告警写到 stderr。
func (c *cli) deps() *app.Deps {
	d := app.NewDeps(c.cfg, c.loaded)
	for _, w := range d.Warnings {
		fmt.Fprintf(c.errOut, "warning: %s\n", w)
	}
	return d
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func stringOr(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
