package webapp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"netdiag/internal/adapters/catalog"
	"netdiag/internal/services/batchprobe"
	"netdiag/internal/services/report"
)

type batchRequest struct {
	// Hosts 为空表示探测目录中的全部站点；不在目录中的主机按临时站点处理。
	Hosts []string `json:"hosts,omitempty"`
}

func (s *Server) handleBatchStart(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	targets, err := catalog.SelectTargets(s.deps.Catalog.Catalog.Targets, req.Hosts)
	if err != nil {
		writeError(c, http.StatusBadRequest, err)
		return
	}

	sess := s.deps.Runner.Start(s.baseCtx, targets)
	s.batches.Put(sess)
	writeJSON(c, http.StatusAccepted, sess.Snapshot())
}

func (s *Server) handleBatchList(c *gin.Context) {
	list := s.batches.List()
	if limit := parseInt(c.Query("limit"), 0); limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	writeJSON(c, http.StatusOK, gin.H{"batches": list})
}

func (s *Server) session(c *gin.Context) (*batchprobe.Session, bool) {
	id := c.Param("id")
	sess, ok := s.batches.Get(id)
	if !ok {
		writeError(c, http.StatusNotFound, fmt.Errorf("batch not found: %s", id))
	}
	return sess, ok
}

func (s *Server) handleBatchGet(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleBatchCancel(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	sess.Cancel()
	s.log.Info("batch cancel requested", "batch", sess.ID())
	writeJSON(c, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleBatchChart(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := report.RenderLatencyChart(&buf, sess.Snapshot()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrNoChartData) {
			status = http.StatusNotFound
		}
		writeError(c, status, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
