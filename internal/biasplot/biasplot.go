// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package biasplot は gyro bias と車速を上下2段に並べたグラフを作る
package biasplot

import (
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/vg"

	"g30insight/internal/chart"
	"g30insight/internal/config"
	"g30insight/internal/table"
)

// 各軸の色
var axisColors = []color.Color{colornames.Red, colornames.Green, colornames.Blue}

// Figure は2つの表からグラフを組み立てる。
// gyro bias の列は欠けていれば警告して省略し、車速の列は必須。
func Figure(cfg config.Bias, chartCfg config.Chart, loc *time.Location, gyro, speed *table.Table) (*chart.Figure, error) {
	gyroPanel := chart.Panel{
		Title:  "Gyro Bias (x, y, z)",
		YLabel: "Gyro Bias (rad/s)",
	}
	for i, name := range cfg.GyroColumns {
		ys, err := gyro.Column(name)
		if err != nil {
			slog.Warn("column skipped", "column", name, "err", err)
			continue
		}
		gyroPanel.Traces = append(gyroPanel.Traces, chart.Trace{
			Name:  name,
			X:     gyro.Index,
			Y:     ys,
			Color: axisColors[i%len(axisColors)],
			Width: vg.Points(1.5),
		})
	}

	speedValues, err := speed.Column(cfg.SpeedColumn)
	if err != nil {
		slog.Error("Column", "err", err)
		return nil, err
	}
	speedPanel := chart.Panel{
		Title:  "Speed Actual",
		YLabel: "Speed Actual (m/s)",
		Traces: []chart.Trace{{
			Name:  cfg.SpeedColumn,
			X:     speed.Index,
			Y:     speedValues,
			Color: colornames.Purple,
		}},
	}

	return &chart.Figure{
		Title:    "/sensing/imu/gyro_bias (x, y, z) and /g30esli/status.status.speed.actual",
		XLabel:   fmt.Sprintf("Timestamp (%s)", chart.ZoneLabel(loc, speed.Index)),
		Panels:   []chart.Panel{gyroPanel, speedPanel},
		Width:    vg.Points(float64(chartCfg.Width)),
		Height:   vg.Points(float64(chartCfg.Height)),
		Location: loc,
	}, nil
}

// Run は表を読み込み、グラフをHTMLに保存する
func Run(cfg *config.Config) error {
	loc, err := time.LoadLocation(cfg.Chart.TimeZone)
	if err != nil {
		slog.Error("LoadLocation", "err", err)
		return err
	}

	gyro, err := table.Load(cfg.Bias.GyroInput, table.IndexName)
	if err != nil {
		slog.Error("table.Load", "file", cfg.Bias.GyroInput, "err", err)
		return err
	}
	speed, err := table.Load(cfg.Bias.SpeedInput, table.IndexName)
	if err != nil {
		slog.Error("table.Load", "file", cfg.Bias.SpeedInput, "err", err)
		return err
	}

	fig, err := Figure(cfg.Bias, cfg.Chart, loc, gyro, speed)
	if err != nil {
		return err
	}
	return chart.WriteHTML(cfg.Bias.Output, fig)
}
