package visual

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"FlightPatterns/src/utils"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// bar 一组柱子
type bar struct {
	name   string
	values []float64
	color  color.Color
}

// barPlot 柱状图，多组时并排显示；没有数据时只保留标题
func barPlot(title, xLabel, yLabel string, labels []string, panel vg.Length, bars ...bar) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())
	if len(labels) == 0 {
		return p, nil
	}

	width := panel / vg.Length((len(labels)+1)*(len(bars)+1))
	for i, b := range bars {
		chart, err := plotter.NewBarChart(finite(b.values), width)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", title, err)
		}
		chart.Color = b.color
		chart.LineStyle.Width = 0
		chart.Offset = width * vg.Length(2*i-len(bars)+1) / 2
		p.Add(chart)
		if len(bars) > 1 {
			p.Legend.Add(b.name, chart)
		}
	}
	p.Legend.Top = true
	p.NominalX(labels...)
	if len(labels) > 7 {
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	return p, nil
}

// finite NaN画为0
func finite(xs []float64) plotter.Values {
	out := make(plotter.Values, len(xs))
	for i, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out[i] = x
		}
	}
	return out
}

// linePlot 时间序列折线，跳过NaN
func linePlot(title, yLabel string, xs, ys []float64, c color.Color) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, 0, len(xs))
	for i := range xs {
		if math.IsNaN(ys[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(pts) == 0 {
		return p, nil
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", title, err)
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	return p, nil
}

const heatColors = 255

// statGrid 描述统计表的热力图网格：列为指标，行为统计量，表中第一行画在最上方
type statGrid struct {
	z [][]float64 // z[列][行]
}

func (g statGrid) Dims() (c, r int) {
	if len(g.z) == 0 {
		return 0, 0
	}
	return len(g.z), len(g.z[0])
}

func (g statGrid) Z(c, r int) float64 { return g.z[c][len(g.z[c])-1-r] }
func (g statGrid) X(c int) float64    { return float64(c) }
func (g statGrid) Y(r int) float64    { return float64(r) }

// bounds 忽略NaN；全部缺失或全部相同时返回宽度为1的区间
func (g statGrid) bounds() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, col := range g.z {
		for _, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if lo > hi {
		return 0, 1
	}
	if lo == hi {
		return lo, lo + 1
	}
	return lo, hi
}

// heatPlot 把 stat 列为行标签的统计表画成带数值标注的热力图
func heatPlot(title, xLabel, yLabel string, df dataframe.DataFrame, name, labelCol string, valueCols []string) (*plot.Plot, error) {
	var (
		g     statGrid
		stats []string
	)
	for _, col := range valueCols {
		labels, values, err := column(df, name, labelCol, col, 0)
		if err != nil {
			return nil, err
		}
		stats = labels
		g.z = append(g.z, values)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	if len(stats) == 0 {
		return p, nil
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(0)
	cm.SetMax(1)
	hm := plotter.NewHeatMap(g, cm.Palette(heatColors))
	hm.Min, hm.Max = g.bounds()
	p.Add(hm)

	cols, rows := g.Dims()
	var cells plotter.XYLabels
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			v := g.Z(c, r)
			if math.IsNaN(v) {
				continue
			}
			cells.XYs = append(cells.XYs, plotter.XY{X: g.X(c), Y: g.Y(r)})
			cells.Labels = append(cells.Labels, fmt.Sprintf("%.1f", v))
		}
	}
	if len(cells.Labels) > 0 {
		annot, err := plotter.NewLabels(cells)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", title, err)
		}
		for i := range annot.TextStyle {
			annot.TextStyle[i].XAlign = draw.XCenter
			annot.TextStyle[i].YAlign = draw.YCenter
		}
		p.Add(annot)
	}

	names := make([]string, len(valueCols))
	for i, col := range valueCols {
		names[i] = Title(col)
	}
	p.NominalX(names...)
	ylabels := make([]string, len(stats))
	for i, s := range stats {
		ylabels[len(stats)-1-i] = s
	}
	p.NominalY(ylabels...)
	return p, nil
}

// save 按主题尺寸与DPI把 rows x cols 个子图写成PNG
func (r *Renderer) save(name string, plots [][]*plot.Plot) (string, error) {
	img := vgimg.NewWith(
		vgimg.UseWH(r.theme.Width, r.theme.Height),
		vgimg.UseDPI(r.theme.DPI),
	)
	dc := draw.New(img)

	rows, cols := len(plots), len(plots[0])
	if rows == 1 && cols == 1 {
		plots[0][0].Draw(dc)
	} else {
		tiles := draw.Tiles{
			Rows:      rows,
			Cols:      cols,
			PadX:      vg.Millimeter * 6,
			PadY:      vg.Millimeter * 6,
			PadTop:    vg.Millimeter * 3,
			PadBottom: vg.Millimeter * 3,
			PadLeft:   vg.Millimeter * 3,
			PadRight:  vg.Millimeter * 3,
		}
		canvases := plot.Align(plots, tiles, dc)
		for i := range plots {
			for j := range plots[i] {
				plots[i][j].Draw(canvases[i][j])
			}
		}
	}

	path := filepath.Join(r.outDir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建图片失败 %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return "", fmt.Errorf("写入图片失败 %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// panelWidth 每列子图的宽度
func (r *Renderer) panelWidth(cols int) vg.Length {
	return r.theme.Width / vg.Length(cols)
}

// column 取结果表的标签列与数值列，limit>0 时只取前 limit 行
func column(df dataframe.DataFrame, name, labelCol, valueCol string, limit int) ([]string, []float64, error) {
	if df.Err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, df.Err)
	}
	if missing := utils.MissingColumns(df, labelCol, valueCol); len(missing) > 0 {
		return nil, nil, utils.NewAnalysisError("render "+name, missing[0], utils.ErrMissingColumn)
	}
	labels := df.Col(labelCol).Records()
	values := df.Col(valueCol).Float()
	if limit > 0 && len(labels) > limit {
		labels, values = labels[:limit], values[:limit]
	}
	return labels, values, nil
}
