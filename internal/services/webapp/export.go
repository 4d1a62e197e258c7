package webapp

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"netdiag/internal/app"
	"netdiag/internal/domain/model"
	"netdiag/internal/platform/hash"
	"netdiag/internal/services/privacy"
	"netdiag/internal/services/report"
)

// handleExportPDF 现场查询双路径 IP，并附上指定批次（默认最近一次）的站点结果，导出 PDF。
// mask=1 时导出脱敏版本，便于对外分享。
func (s *Server) handleExportPDF(c *gin.Context) {
	var batch *model.BatchSnapshot
	if id := c.Query("batch"); id != "" {
		sess, ok := s.batches.Get(id)
		if !ok {
			writeError(c, http.StatusNotFound, fmt.Errorf("batch not found: %s", id))
			return
		}
		snap := sess.Snapshot()
		batch = &snap
	} else if sess, ok := s.batches.Latest(); ok {
		snap := sess.Snapshot()
		batch = &snap
	}

	rep := s.deps.Aggregator.Aggregate(c.Request.Context())
	if wantMask(c) {
		rep = privacy.MaskReport(rep)
		if batch != nil {
			m := privacy.MaskBatch(*batch)
			batch = &m
		}
	}
	doc := report.BuildDocument(&rep, batch, app.Version, s.deps.Warnings)

	var buf bytes.Buffer
	warnings, err := report.Render(&buf, doc)
	if err != nil {
		writeError(c, http.StatusInternalServerError, err)
		return
	}
	if len(warnings) > 0 {
		s.log.Info("pdf exported with warnings", "warnings", warnings)
	}

	name := fmt.Sprintf("netdiag_report_%s.pdf", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("X-Content-SHA256", hash.Bytes(buf.Bytes()))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
