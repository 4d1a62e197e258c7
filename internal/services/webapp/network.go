package webapp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"netdiag/internal/adapters/catalog"
	"netdiag/internal/domain/model"
)

// handleNetwork 是供其他 netdiag 实例调用的服务端观测点：
//
//	GET /api/network?action=ip[&provider=<name>]      （别名 action=getIpInfo）
//	GET /api/network?action=ping&url=<host>&type=server
func (s *Server) handleNetwork(c *gin.Context) {
	switch c.Query("action") {
	case "ping":
		s.handleNetworkPing(c)
	case "ip", "getIpInfo":
		s.handleNetworkIP(c)
	default:
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "Invalid action"})
	}
}

func (s *Server) handleNetworkIP(c *gin.Context) {
	name := c.Query("provider")
	d, ok := catalog.FindServer(s.deps.Catalog.Catalog, name)
	if !ok {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "unknown provider: " + name})
		return
	}

	res := s.deps.Resolver.LookupOne(c.Request.Context(), d)
	if res.Error != "" {
		s.log.Warn("server ip lookup failed", "provider", d.Name, "kind", res.ErrorKind, "err", res.Error)
		writeJSON(c, http.StatusInternalServerError, res)
		return
	}
	writeJSON(c, http.StatusOK, res)
}

func (s *Server) handleNetworkPing(c *gin.Context) {
	raw := c.Query("url")
	if strings.TrimSpace(raw) == "" {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}
	// 本地探测由调用方自己完成，这里只接受服务端探测。
	if t := c.DefaultQuery("type", "server"); t != "server" {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "Invalid ping type"})
		return
	}
	host, err := model.NormalizeHost(raw)
	if err != nil {
		msg := "Invalid url parameter"
		if errors.Is(err, model.ErrEmptyHost) {
			msg = "Missing url parameter"
		}
		writeJSON(c, http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	out := s.deps.Pinger.Ping(c.Request.Context(), host, s.deps.Config.ServerPingTimeout)
	if !out.Reachable() {
		s.log.Warn("server ping failed", "host", host, "kind", out.ErrorKind, "err", out.Error)
		writeJSON(c, http.StatusInternalServerError, out)
		return
	}
	writeJSON(c, http.StatusOK, out)
}
