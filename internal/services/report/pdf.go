package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"netdiag/internal/domain/model"
	"netdiag/internal/platform/hash"
)

// 网络诊断 PDF 报告
//
// 内容：双路径公网 IP 结果、各来源原始结果、站点探测结果与延迟图。
// 任何“缺数据/回退行为”都写进 Warnings 段，而不是让生成失败。

// FontEnv 指定 UTF-8 字体文件路径的环境变量。
const FontEnv = "NETDIAG_PDF_FONT"

// Document 是报告的输入。Report、Batch、Chart 均可为空，对应段落显示为 (empty)。
type Document struct {
	Report      *model.DualPathReport
	Batch       *model.BatchSnapshot
	Chart       []byte
	Version     string
	Warnings    []string
	GeneratedAt time.Time
}

// Result 是落盘后的报告信息。
type Result struct {
	Path     string   `json:"path"`
	SHA256   string   `json:"sha256"`
	Size     int64    `json:"size"`
	Warnings []string `json:"warnings,omitempty"`
}

// Render 生成 PDF 写入 w，返回生成过程中的告警。
func Render(w io.Writer, doc Document) ([]string, error) {
	pdf, warnings := build(doc)
	if err := pdf.Output(w); err != nil {
		return warnings, fmt.Errorf("write pdf: %w", err)
	}
	return warnings, nil
}

// WriteFile 生成 PDF 到 path 并计算 SHA-256。
func WriteFile(path string, doc Document) (*Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir output dir: %w", err)
		}
	}

	pdf, warnings := build(doc)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	sum, size, err := hash.File(path)
	if err != nil {
		return nil, fmt.Errorf("sha256 pdf: %w", err)
	}
	return &Result{Path: path, SHA256: sum, Size: size, Warnings: warnings}, nil
}

func build(doc Document) (*gofpdf.Fpdf, []string) {
	generatedAt := doc.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 14)
	pdf.SetTitle("netdiag - Network Diagnostics Report", false)

	font, utf8OK := initPDFUnicodeFont(pdf)
	warnings := append([]string{}, doc.Warnings...)
	if !utf8OK {
		warnings = append(warnings, "pdf utf8 font not available; non-ascii text may be replaced with '?'")
	}

	pdf.AddPage()
	pdf.SetFont(font, "B", 16)
	pdf.CellFormat(0, 9, "netdiag - Network Diagnostics Report", "", 1, "L", false, 0, "")
	pdf.SetFont(font, "", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(0, 6, "Generated at: "+fmtTime(generatedAt), "", 1, "L", false, 0, "")
	if v := strings.TrimSpace(doc.Version); v != "" {
		pdf.CellFormat(0, 6, "Version: "+safeText(v, utf8OK), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	sectionTitle(pdf, font, "1. Public IP (local path)")
	if doc.Report == nil {
		empty(pdf, font)
	} else {
		pathSection(pdf, font, utf8OK, doc.Report.Local)
	}

	sectionTitle(pdf, font, "2. Public IP (server path)")
	if doc.Report == nil {
		empty(pdf, font)
	} else {
		pathSection(pdf, font, utf8OK, doc.Report.Server)
	}

	sectionTitle(pdf, font, "3. Provider Results")
	if doc.Report == nil || len(doc.Report.AllResults) == 0 {
		empty(pdf, font)
	} else {
		for _, r := range doc.Report.AllResults {
			pdf.SetFont(font, "", 9)
			pdf.SetTextColor(30, 30, 30)
			var line string
			if r.Error != "" {
				line = fmt.Sprintf("[%s] %s | error (%s): %s", r.Path, r.Source, r.ErrorKind, r.Error)
				pdf.SetTextColor(150, 40, 40)
			} else {
				line = fmt.Sprintf("[%s] %s | %s | %s", r.Path, r.Source, r.IP, r.Info)
			}
			pdf.MultiCell(0, 4.5, safeText(line, utf8OK), "", "L", false)
		}
	}
	pdf.Ln(2)

	sectionTitle(pdf, font, "4. Site Probes")
	if doc.Batch == nil || len(doc.Batch.Records) == 0 {
		empty(pdf, font)
	} else {
		kv(pdf, font, utf8OK, "Batch ID", doc.Batch.ID)
		kv(pdf, font, utf8OK, "Status", doc.Batch.Status)
		kv(pdf, font, utf8OK, "Created At", fmtTime(doc.Batch.CreatedAt))
		if doc.Batch.FinishedAt != nil {
			kv(pdf, font, utf8OK, "Finished At", fmtTime(*doc.Batch.FinishedAt))
		}
		pdf.Ln(1)
		for _, rec := range doc.Batch.Records {
			pdf.SetFont(font, "B", 10)
			pdf.SetTextColor(20, 20, 20)
			pdf.MultiCell(0, 5, safeText(fmt.Sprintf("%s (%s)", rec.Target.Name, rec.Target.Host), utf8OK), "", "L", false)
			pdf.SetFont(font, "", 9)
			pdf.SetTextColor(40, 40, 40)
			pdf.MultiCell(0, 4.5, safeText("local:  "+CellText(rec.Local), utf8OK), "", "L", false)
			pdf.MultiCell(0, 4.5, safeText("server: "+CellText(rec.Server), utf8OK), "", "L", false)
		}
	}
	pdf.Ln(2)

	if len(doc.Chart) > 0 {
		sectionTitle(pdf, font, "5. Latency Chart")
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("latency", opts, bytes.NewReader(doc.Chart))
		if pdf.Err() {
			warnings = append(warnings, "embed latency chart failed: "+pdf.Error().Error())
			pdf.ClearError()
		} else {
			pdf.ImageOptions("latency", 14, pdf.GetY(), 182, 0, true, opts, 0, "")
		}
		pdf.Ln(2)
	}

	if len(warnings) > 0 {
		sectionTitle(pdf, font, "Warnings")
		pdf.SetFont(font, "", 9)
		pdf.SetTextColor(120, 80, 0)
		for _, w := range warnings {
			pdf.MultiCell(0, 4.5, "- "+safeText(w, utf8OK), "", "L", false)
		}
	}

	return pdf, warnings
}

func pathSection(pdf *gofpdf.Fpdf, font string, utf8OK bool, p model.PathResult) {
	if p.Error != "" {
		pdf.SetFont(font, "", 10)
		pdf.SetTextColor(150, 40, 40)
		pdf.MultiCell(0, 5, safeText(fmt.Sprintf("%s (%s)", p.Error, p.ErrorKind), utf8OK), "", "L", false)
		pdf.Ln(2)
		return
	}
	if len(p.Records) == 0 {
		empty(pdf, font)
		return
	}
	for _, r := range p.Records {
		kv(pdf, font, utf8OK, r.IP, fmt.Sprintf("%s  [%s]", r.Info, r.Source))
	}
	pdf.Ln(2)
}

// CellText 把单元格渲染为一行文本，CLI 表格与 PDF 共用。
func CellText(c model.PathCell) string {
	switch {
	case c.State == model.StateNotStarted:
		return "not started"
	case c.State == model.StatePending || c.Outcome == nil:
		return "pending"
	case c.Outcome.Reachable():
		if c.Outcome.HTTPStatus > 0 {
			return fmt.Sprintf("%d ms (HTTP %d)", c.Outcome.LatencyMS, c.Outcome.HTTPStatus)
		}
		return fmt.Sprintf("%d ms", c.Outcome.LatencyMS)
	default:
		return fmt.Sprintf("%s [%s]", c.Outcome.Error, c.Outcome.ErrorKind)
	}
}

func empty(pdf *gofpdf.Fpdf, font string) {
	pdf.SetFont(font, "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.MultiCell(0, 5, "(empty)", "", "L", false)
	pdf.Ln(2)
}

func sectionTitle(pdf *gofpdf.Fpdf, font string, title string) {
	pdf.SetFont(font, "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pdf.GetX(), pdf.GetY(), 196, pdf.GetY())
	pdf.Ln(2)
}

func kv(pdf *gofpdf.Fpdf, font string, utf8OK bool, key string, value string) {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	pdf.SetFont(font, "B", 10)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(40, 5.2, safeText(key, utf8OK)+":", "", 0, "L", false, 0, "")
	pdf.SetFont(font, "", 10)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(0, 5.2, safeText(value, utf8OK), "", "L", false)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// safeText 在没有 UTF-8 字体时把非 ASCII 字符替换为 '?'，保证 PDF 一定能生成。
func safeText(s string, utf8OK bool) string {
	s = strings.NewReplacer("\r", " ", "\n", " ", "\t", " ").Replace(s)
	s = strings.TrimSpace(s)
	if utf8OK {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r <= 126 {
			b.WriteRune(r)
		} else {
			b.WriteRune('?')
		}
	}
	return b.String()
}

// initPDFUnicodeFont 尝试加载 UTF-8 字体（TrueType），以支持站点中文名与归属地信息。
//
// 规则：
// 1) 如果设置了环境变量 NETDIAG_PDF_FONT，优先使用该文件路径。
// 2) 否则按常见系统字体路径探测（macOS/Windows/Linux）。
// 3) 加载失败则回退到核心字体（Helvetica），并通过 safeText() 兜底替换非 ASCII 字符。
func initPDFUnicodeFont(pdf *gofpdf.Fpdf) (family string, utf8OK bool) {
	const familyName = "unicode"
	candidates := []string{}

	if v := strings.TrimSpace(os.Getenv(FontEnv)); v != "" {
		candidates = append(candidates, v)
	}

	switch runtime.GOOS {
	case "darwin":
		candidates = append(candidates,
			"/System/Library/Fonts/Supplemental/Arial Unicode.ttf",
			"/System/Library/Fonts/Hiragino Sans GB.ttc",
			"/System/Library/Fonts/PingFang.ttc",
		)
	case "windows":
		candidates = append(candidates,
			`C:\Windows\Fonts\arialuni.ttf`,
			`C:\Windows\Fonts\simhei.ttf`,
			`C:\Windows\Fonts\msyh.ttc`,
		)
	default:
		candidates = append(candidates,
			"/usr/share/fonts/truetype/noto/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/opentype/noto/NotoSansCJK-Regular.ttc",
			"/usr/share/fonts/truetype/arphic/uming.ttc",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		)
	}

	for _, p := range candidates {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}

		// 只有一个字体文件时也注册 B 样式，避免 SetFont(...,"B",...) 报错。
		pdf.AddUTF8Font(familyName, "", p)
		if pdf.Err() {
			pdf.ClearError()
			continue
		}
		pdf.AddUTF8Font(familyName, "B", p)
		if pdf.Err() {
			pdf.ClearError()
		}
		return familyName, true
	}

	return "Helvetica", false
}

// BuildDocument 组装报告输入：有批次时顺带渲染延迟图，渲染失败只记告警。
func BuildDocument(rep *model.DualPathReport, batch *model.BatchSnapshot, version string, warnings []string) Document {
	doc := Document{
		Report:      rep,
		Batch:       batch,
		Version:     version,
		Warnings:    append([]string{}, warnings...),
		GeneratedAt: time.Now(),
	}
	if batch == nil {
		return doc
	}
	var buf bytes.Buffer
	if err := RenderLatencyChart(&buf, *batch); err != nil {
		doc.Warnings = append(doc.Warnings, "latency chart skipped: "+err.Error())
		return doc
	}
	doc.Chart = buf.Bytes()
	return doc
}
