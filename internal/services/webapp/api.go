package webapp

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"netdiag/internal/app"
	"netdiag/internal/services/privacy"
)

func (s *Server) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{
		"ok":      true,
		"service": "netdiag",
		"time":    time.Now().Unix(),
	})
}

func (s *Server) handleMeta(c *gin.Context) {
	cfg := s.deps.Config
	loaded := s.deps.Catalog
	writeJSON(c, http.StatusOK, gin.H{
		"ok":   true,
		"time": time.Now().Unix(),
		"app": gin.H{
			"version":    app.Version,
			"commit":     app.Commit,
			"build_time": app.BuildTime,
			"uptime_sec": int64(time.Since(s.started).Seconds()),
		},
		"catalog": gin.H{
			"path":    loaded.Path,
			"builtin": loaded.Builtin,
			"version": loaded.Catalog.Version,
			"sha256":  loaded.SHA256,
			"local":   len(loaded.Catalog.Local),
			"server":  len(loaded.Catalog.Server),
			"targets": len(loaded.Catalog.Targets),
			"locator": loaded.Catalog.Locator.Kind,
		},
		"config": gin.H{
			"backend":             cfg.BackendURL,
			"ip_timeout_ms":       cfg.IPTimeout.Milliseconds(),
			"local_ping_timeout":  cfg.LocalPingTimeout.Milliseconds(),
			"server_ping_timeout": cfg.ServerPingTimeout.Milliseconds(),
			"concurrency":         cfg.Concurrency,
		},
		"warnings": s.deps.Warnings,
	})
}

func (s *Server) handleTargets(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"targets": s.deps.Catalog.Catalog.Targets})
}

// handleReport 同时查询两条路径并返回 DualPathReport。单条路径失败仍返回 200。
func (s *Server) handleReport(c *gin.Context) {
	rep := s.deps.Aggregator.Aggregate(c.Request.Context())
	rep.Warnings = append(rep.Warnings, s.deps.Warnings...)
	if wantMask(c) {
		rep = privacy.MaskReport(rep)
	}
	writeJSON(c, http.StatusOK, rep)
}

// writeJSON 不转义 HTML 字符，便于直接查看 rawData。
func writeJSON(c *gin.Context, status int, v any) {
	c.PureJSON(status, v)
}

func writeError(c *gin.Context, status int, err error) {
	writeJSON(c, status, gin.H{"error": err.Error()})
}

func wantMask(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("mask"))
	return v
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
