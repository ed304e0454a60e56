// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package angvel は角速度の1軸に移動中央値を掛けて、しきい値と重ねて描く
package angvel

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/vg"

	"g30insight/internal/chart"
	"g30insight/internal/config"
	"g30insight/internal/smooth"
	"g30insight/internal/table"
)

var ErrInvalidAxis = errors.New("invalid axis")

// Usage は不正な軸を指定されたときの案内
const Usage = "Invalid axis. Please specify 'x', 'y', or 'z'"

// ParseAxis は大文字小文字を区別せずに x, y, z を受け付ける。空なら def
func ParseAxis(arg string, def string) (string, error) {
	if arg == "" {
		arg = def
	}
	axis := strings.ToLower(arg)
	switch axis {
	case "x", "y", "z":
		return axis, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAxis, arg)
}

// OutputPath は軸ごとの出力ファイル名
func OutputPath(cfg config.AngularVelocity, axis string) string {
	return fmt.Sprintf(cfg.Output, axis)
}

// Figure は生データ、中央値、上下のしきい値の4本を1枚に描く
func Figure(cfg config.AngularVelocity, chartCfg config.Chart, loc *time.Location, t *table.Table, axis string) (*chart.Figure, error) {
	column := fmt.Sprintf(cfg.ColumnFormat, axis)
	raw, err := t.Column(column)
	if err != nil {
		slog.Error("Column", "err", err)
		return nil, err
	}

	median := smooth.RollingMedian(raw, cfg.Window)
	if smooth.Defined(median) == 0 {
		slog.Warn("series shorter than the median window", "samples", len(raw), "window", cfg.Window)
	}

	traces := []chart.Trace{
		{
			Name:    fmt.Sprintf("/sensing/imu/imu_data.angular_velocity.%s", axis),
			X:       t.Index,
			Y:       raw,
			Color:   colornames.Gray,
			Opacity: 0.3,
		},
		{
			Name:  fmt.Sprintf("%d-sample Median", cfg.Window),
			X:     t.Index,
			Y:     median,
			Color: colornames.Blue,
			Width: vg.Points(2),
		},
		{
			Name:   fmt.Sprintf("Upper threshold (+%g rad/s)", cfg.Threshold),
			X:      t.Index,
			Y:      smooth.Constant(t.Len(), cfg.Threshold),
			Color:  colornames.Red,
			Dashed: true,
		},
		{
			Name:   fmt.Sprintf("Lower threshold (-%g rad/s)", cfg.Threshold),
			X:      t.Index,
			Y:      smooth.Constant(t.Len(), -cfg.Threshold),
			Color:  colornames.Red,
			Dashed: true,
		},
	}

	title := fmt.Sprintf("/sensing/imu/imu_data.angular_velocity.%s with %d-sample Moving Median", axis, cfg.Window)
	return &chart.Figure{
		Title:  title,
		XLabel: fmt.Sprintf("Timestamp (%s)", chart.ZoneLabel(loc, t.Index)),
		Panels: []chart.Panel{{
			Title:  title,
			YLabel: fmt.Sprintf("angular_velocity.%s (rad/s)", axis),
			Traces: traces,
		}},
		Width:    vg.Points(float64(chartCfg.Width)),
		Height:   vg.Points(float64(chartCfg.Height)),
		Location: loc,
	}, nil
}

// Run は表を読み込み、axis のグラフをHTMLに保存して出力先を返す
func Run(cfg *config.Config, axis string) (string, error) {
	loc, err := time.LoadLocation(cfg.Chart.TimeZone)
	if err != nil {
		slog.Error("LoadLocation", "err", err)
		return "", err
	}

	t, err := table.Load(cfg.AngularVelocity.Input, table.IndexName)
	if err != nil {
		slog.Error("table.Load", "err", err)
		return "", err
	}

	fig, err := Figure(cfg.AngularVelocity, cfg.Chart, loc, t, axis)
	if err != nil {
		return "", err
	}

	output := OutputPath(cfg.AngularVelocity, axis)
	if err := chart.WriteHTML(output, fig); err != nil {
		return "", err
	}
	return output, nil
}
