// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package chart は時系列グラフを描いてHTML文書として保存する
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"time"
	_ "time/tzdata"

	"golang.org/x/image/colornames"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgsvg"
)

// 時刻目盛りの書式
const TimeFormat = "01-02\n15:04:05"

// Trace は1本の折れ線
type Trace struct {
	Name    string
	X, Y    []float64 // X はエポック秒
	Color   color.Color
	Width   vg.Length // 0 なら既定値
	Dashed  bool
	Opacity float64 // 0 なら不透明
}

// Panel は縦に積む1段分
type Panel struct {
	Title  string
	YLabel string
	Traces []Trace
}

// Figure は1枚のグラフ全体
type Figure struct {
	Title    string
	XLabel   string
	Panels   []Panel
	Width    vg.Length
	Height   vg.Length
	Location *time.Location // 目盛り表示用のタイムゾーン
}

// EpochTime はエポック秒を loc の時刻に変換する関数を返す
func EpochTime(loc *time.Location) func(t float64) time.Time {
	return func(t float64) time.Time {
		sec, frac := math.Modf(t)
		return time.Unix(int64(sec), int64(frac*1e9)).In(loc)
	}
}

// ZoneLabel は xs の最初の時刻での "JST" や "EDT" のような略称。
// 略称がなければ場所の名前。xs に時刻がなければ現在時刻で決める
func ZoneLabel(loc *time.Location, xs []float64) string {
	at := time.Now()
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			at = EpochTime(loc)(x)
			break
		}
	}
	name, _ := at.In(loc).Zone()
	if name == "" || name[0] == '+' || name[0] == '-' {
		return loc.String()
	}
	return name
}

// segments は欠損値で区切られた連続区間ごとの点列を返す
func segments(xs, ys []float64) []plotter.XYs {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	out := []plotter.XYs{}
	var cur plotter.XYs
	for i := 0; i < n; i++ {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || math.IsInf(xs[i], 0) || math.IsInf(ys[i], 0) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: xs[i], Y: ys[i]})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

func withOpacity(c color.Color, opacity float64) color.Color {
	if c == nil {
		c = colornames.Black
	}
	if opacity <= 0 || opacity >= 1 {
		return c
	}
	nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
	nrgba.A = uint8(float64(nrgba.A) * opacity)
	return nrgba
}

// xRange は全段で共有する時間軸の範囲
func (f *Figure) xRange() (lo, hi float64, ok bool) {
	xs := []float64{}
	for _, panel := range f.Panels {
		for _, tr := range panel.Traces {
			for _, seg := range segments(tr.X, tr.Y) {
				xs = append(xs, seg[0].X, seg[len(seg)-1].X)
			}
		}
	}
	if len(xs) == 0 {
		return 0, 0, false
	}
	return floats.Min(xs), floats.Max(xs), true
}

func styleAxis(a *plot.Axis) {
	a.LineStyle.Color = colornames.Black
	a.LineStyle.Width = vg.Points(1.5)
	a.Tick.Label.Color = colornames.Black
}

// Plots は段ごとの plot.Plot を作る
func (f *Figure) Plots() ([]*plot.Plot, error) {
	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}
	xmin, xmax, hasData := f.xRange()

	plots := make([]*plot.Plot, 0, len(f.Panels))
	for _, panel := range f.Panels {
		p := plot.New()
		p.Title.Text = panel.Title
		p.X.Label.Text = f.XLabel
		p.Y.Label.Text = panel.YLabel

		// 背景色
		p.BackgroundColor = colornames.White
		styleAxis(&p.X)
		styleAxis(&p.Y)
		p.X.Tick.Marker = plot.TimeTicks{Format: TimeFormat, Time: EpochTime(loc)}

		// 補助線
		grid := plotter.NewGrid()
		grid.Vertical.Color = colornames.Lightgray
		grid.Horizontal.Color = colornames.Lightgray
		p.Add(grid)

		// 凡例は左上
		p.Legend.Top = true
		p.Legend.Left = true
		p.Legend.Padding = vg.Points(5)

		for _, tr := range panel.Traces {
			segs := segments(tr.X, tr.Y)
			if len(segs) == 0 {
				slog.Warn("no data to draw", "trace", tr.Name)
				continue
			}
			for i, seg := range segs {
				line, err := plotter.NewLine(seg)
				if err != nil {
					slog.Error("NewLine", "trace", tr.Name, "err", err)
					return nil, err
				}
				line.Color = withOpacity(tr.Color, tr.Opacity)
				if tr.Width > 0 {
					line.Width = tr.Width
				}
				if tr.Dashed {
					line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
				}
				p.Add(line)
				if i == 0 {
					p.Legend.Add(tr.Name, line) // 凡例
				}
			}
		}

		if hasData {
			p.X.Min, p.X.Max = xmin, xmax
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// SVG は段を上から順に縦に積んで描く
func (f *Figure) SVG() ([]byte, error) {
	if len(f.Panels) == 0 {
		return nil, errors.New("figure has no panels")
	}
	plots, err := f.Plots()
	if err != nil {
		return nil, err
	}

	c := vgsvg.New(f.Width, f.Height)
	dc := draw.New(c)

	if len(plots) == 1 {
		plots[0].Draw(dc)
	} else {
		tiles := draw.Tiles{
			Rows:      len(plots),
			Cols:      1,
			PadY:      vg.Points(30),
			PadTop:    vg.Points(5),
			PadBottom: vg.Points(5),
			PadLeft:   vg.Points(5),
			PadRight:  vg.Points(10),
		}
		grid := make([][]*plot.Plot, len(plots))
		for i, p := range plots {
			grid[i] = []*plot.Plot{p}
		}
		canvases := plot.Align(grid, tiles, dc)
		for i := range grid {
			grid[i][0].Draw(canvases[i][0])
		}
	}

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		slog.Error("WriteTo", "err", err)
		return nil, fmt.Errorf("render svg: %w", err)
	}
	return buf.Bytes(), nil
}
