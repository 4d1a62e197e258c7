package webapp

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"netdiag/internal/app"
	"netdiag/internal/services/batchprobe"
)

// Server 是内置 Web UI/API 的运行时对象。
type Server struct {
	opts    Options
	deps    *app.Deps
	ui      fs.FS
	batches *batchprobe.Registry
	engine  *gin.Engine
	log     *slog.Logger

	// baseCtx 是批次会话的父 context：批次不随发起请求结束，只随服务关闭取消。
	baseCtx context.Context
	stopAll context.CancelFunc
	started time.Time
}

// Handler 返回可直接挂到 http.Server 的处理器（测试中也用它）。
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) registerRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/meta", s.handleMeta)
		api.GET("/network", s.handleNetwork)
		api.GET("/targets", s.handleTargets)
		api.GET("/report", s.handleReport)

		api.POST("/batches", s.handleBatchStart)
		api.GET("/batches", s.handleBatchList)
		api.GET("/batches/:id", s.handleBatchGet)
		api.POST("/batches/:id/cancel", s.handleBatchCancel)
		api.GET("/batches/:id/chart.png", s.handleBatchChart)

		api.GET("/export/report.pdf", s.handleExportPDF)
	}

	// UI（单页应用 + 静态资源）
	//
	// 规则：
	// - 先尝试按路径返回静态文件
	// - 如果文件不存在且看起来像“前端路由”（无扩展名），回落到 index.html
	// - 如果是缺失的静态资源（有扩展名），返回 404
	uiFileServer := http.FileServer(http.FS(s.ui))
	r.NoRoute(func(c *gin.Context) {
		s.handleUI(c, uiFileServer)
	})
}

func (s *Server) handleUI(c *gin.Context, uiFileServer http.Handler) {
	r := c.Request
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeJSON(c, http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		c.Status(http.StatusMethodNotAllowed)
		return
	}

	// "/" 直接交给 FileServer，它会返回目录下的 index.html（改写成 /index.html 会触发 301）。
	if r.URL.Path == "/" || r.URL.Path == "" {
		uiFileServer.ServeHTTP(c.Writer, r)
		return
	}

	reqPath := strings.TrimPrefix(r.URL.Path, "/")
	if info, err := fs.Stat(s.ui, reqPath); err == nil && !info.IsDir() {
		uiFileServer.ServeHTTP(c.Writer, r)
		return
	}

	if strings.Contains(reqPath, ".") {
		c.Status(http.StatusNotFound)
		return
	}
	r2 := r.Clone(r.Context())
	r2.URL.Path = "/"
	uiFileServer.ServeHTTP(c.Writer, r2)
}
