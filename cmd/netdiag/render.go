package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"netdiag/internal/domain/model"
	"netdiag/internal/services/report"
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderReport 按路径分别输出合并后的 IP 记录；两条路径从不合并。
func renderReport(w io.Writer, rep model.DualPathReport, raw bool) {
	t := newTable(w, "Public IP")
	t.AppendHeader(table.Row{"Path", "IP", "Info", "Source"})
	appendPath(t, model.PathLocal, rep.Local)
	t.AppendSeparator()
	appendPath(t, model.PathServer, rep.Server)
	t.Render()

	if raw && len(rep.AllResults) > 0 {
		rt := newTable(w, "Provider results")
		rt.AppendHeader(table.Row{"Path", "Source", "IP", "Info / Error", "Kind"})
		for _, r := range rep.AllResults {
			detail := r.Info
			if !r.OK() {
				detail = r.Error
			}
			rt.AppendRow(table.Row{r.Path, r.Source, r.IP, detail, r.ErrorKind})
		}
		rt.Render()
	}
	renderWarnings(w, rep.Warnings)
}

func appendPath(t table.Writer, p model.Path, res model.PathResult) {
	if len(res.Records) == 0 {
		msg := res.Error
		if msg == "" {
			msg = model.InfoUnavailable
		}
		t.AppendRow(table.Row{p, "-", msg, res.ErrorKind})
		return
	}
	for _, r := range res.Records {
		t.AppendRow(table.Row{p, r.IP, r.Info, r.Source})
	}
}

// renderBatch 输出批次结果，顺序与站点列表一致。
func renderBatch(w io.Writer, snap model.BatchSnapshot) {
	t := newTable(w, fmt.Sprintf("Sites (%s, %s)", snap.ID, snap.Status))
	t.AppendHeader(table.Row{"#", "Site", "Host", "Local", "Server"})
	for i, rec := range snap.Records {
		t.AppendRow(table.Row{i + 1, rec.Target.Name, rec.Target.Host, report.CellText(rec.Local), report.CellText(rec.Server)})
	}
	t.Render()
}

func renderWarnings(w io.Writer, warnings []string) {
	for _, s := range warnings {
		fmt.Fprintf(w, "warning: %s\n", s)
	}
}
