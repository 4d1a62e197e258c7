package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"netdiag/internal/domain/model"
)

// ErrNoChartData 表示批次中没有任何可达结果，无法绘制延迟图。
var ErrNoChartData = errors.New("no latency data to chart")

// 图表尺寸（像素）。PDF 中按页宽等比缩放。
const (
	chartWidth  = 1024
	chartHeight = 440
)

// pointStyle 只画点不连线：站点之间没有连续关系。
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    5,
		DotColor:    col,
	}
}

// RenderLatencyChart 把批次中每个站点两条路径的延迟画成散点图（PNG）。
// X 轴为站点（按目标顺序），Y 轴为毫秒；失败的路径不出点。
func RenderLatencyChart(w io.Writer, snap model.BatchSnapshot) error {
	n := len(snap.Records)
	ticks := make([]chart.Tick, 0, n)
	var (
		localX, localY   []float64
		serverX, serverY []float64
		maxY             float64
	)
	for i, rec := range snap.Records {
		x := float64(i + 1)
		ticks = append(ticks, chart.Tick{Value: x, Label: rec.Target.Host})
		if v, ok := latencyOf(rec.Local); ok {
			localX, localY = append(localX, x), append(localY, v)
			maxY = max(maxY, v)
		}
		if v, ok := latencyOf(rec.Server); ok {
			serverX, serverY = append(serverX, x), append(serverY, v)
			maxY = max(maxY, v)
		}
	}
	if len(localX) == 0 && len(serverX) == 0 {
		return ErrNoChartData
	}

	var series []chart.Series
	if s, ok := pointSeries("Local", localX, localY, chart.ColorBlue); ok {
		series = append(series, s)
	}
	if s, ok := pointSeries("Server", serverX, serverY, chart.ColorGreen); ok {
		series = append(series, s)
	}

	// 显式给出坐标范围：go-chart 在数据跨度为 0 时会报 range 错误。
	ch := chart.Chart{
		Title:      fmt.Sprintf("Site latency (%s)", snap.ID),
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 12, Bottom: 48}},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(n) + 0.5},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  "ms",
			Range: &chart.ContinuousRange{Min: 0, Max: maxY*1.1 + 1},
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

// pointSeries 构造散点序列；单点时复制一份，避免单值序列的范围计算问题。
func pointSeries(name string, xs, ys []float64, col drawing.Color) (chart.Series, bool) {
	switch len(xs) {
	case 0:
		return nil, false
	case 1:
		xs = []float64{xs[0], xs[0]}
		ys = []float64{ys[0], ys[0]}
	}
	return chart.ContinuousSeries{Name: name, XValues: xs, YValues: ys, Style: pointStyle(col)}, true
}

func latencyOf(c model.PathCell) (float64, bool) {
	if c.State != model.StateDone || c.Outcome == nil || !c.Outcome.Reachable() {
		return 0, false
	}
	return float64(c.Outcome.LatencyMS), true
}
