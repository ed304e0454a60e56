// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>
// gyro bias の表と車速の表を読み、時間軸をそろえて上下2段のグラフにする
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"g30insight/internal/biasplot"
	"g30insight/internal/chart"
	"g30insight/internal/config"
)

func newApp() *cli.App {
	var (
		configFile  string
		show        bool
		graphWidth  int
		graphHeight int
	)

	return &cli.App{
		Name:    "biasplot",
		Usage:   "gyro bias と車速を上下に並べたグラフを作る",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "設定ファイル(YAML)",
				Destination: &configFile,
			},
			&cli.BoolFlag{
				Name:        "show",
				Usage:       "保存したグラフをブラウザで開く",
				Destination: &show,
				Value:       true,
			},
			&cli.IntFlag{
				Name:        "width",
				Aliases:     []string{"W"},
				Usage:       "グラフの横幅(pt)",
				Destination: &graphWidth,
			},
			&cli.IntFlag{
				Name:        "height",
				Aliases:     []string{"H"},
				Usage:       "グラフの高さ(pt)",
				Destination: &graphHeight,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				slog.Error("config.Load", "err", err)
				return err
			}
			if c.IsSet("width") {
				cfg.Chart.Width = graphWidth
			}
			if c.IsSet("height") {
				cfg.Chart.Height = graphHeight
			}

			if err := biasplot.Run(cfg); err != nil {
				slog.Error("biasplot.Run", "err", err)
				return err
			}
			fmt.Printf("Saved plot to '%s'\n", cfg.Bias.Output)

			if show {
				chart.Show(cfg.Bias.Output)
			}
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("app.Run", "err", err)
		os.Exit(1)
	}
}
