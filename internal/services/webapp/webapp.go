package webapp

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"netdiag/internal/app"
	"netdiag/internal/platform/logging"
	"netdiag/internal/services/batchprobe"
)

// 注意：
// - go:embed 的路径必须相对当前包目录，且不能包含 ".."
// - ui_dist/ 至少要有一个文件（本仓库已放置占位 index.html），否则 go:embed 会因“无匹配文件”而编译失败。
//
//go:embed ui_dist
var uiFS embed.FS

// Options 定义 Web UI + API 服务启动参数。默认不做鉴权。
type Options struct {
	ListenAddr string
	Deps       *app.Deps
	// MaxBatches 是内存中保留的批次数，0 使用默认值。
	MaxBatches int
}

// New 构造 Server 并注册路由，不监听端口。
func New(opts Options) (*Server, error) {
	if opts.Deps == nil {
		return nil, errors.New("deps is required")
	}
	if opts.ListenAddr == "" {
		opts.ListenAddr = app.DefaultConfig().ListenAddr
	}

	sub, err := fs.Sub(uiFS, "ui_dist")
	if err != nil {
		return nil, fmt.Errorf("sub ui fs: %w", err)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		opts:    opts,
		deps:    opts.Deps,
		ui:      sub,
		batches: batchprobe.NewRegistry(opts.MaxBatches),
		log:     logging.WithComponent("webapp"),
		baseCtx: baseCtx,
		stopAll: cancel,
		started: time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(s.log), corsHeaders())
	s.registerRoutes(engine)
	s.engine = engine
	return s, nil
}

// Run 启动内置 Web UI 与 API：
// - /api/network 供其他 netdiag 实例作为“服务端观测点”调用
// - /api/report、/api/batches 等供本地面板使用
func Run(ctx context.Context, opts Options) error {
	s, err := New(opts)
	if err != nil {
		return err
	}
	defer s.stopAll()

	httpServer := &http.Server{
		Addr:              s.opts.ListenAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.stopAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("webapp listening", "addr", "http://"+s.opts.ListenAddr)
	err = httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
