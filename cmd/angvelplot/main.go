// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>
// 時間(s)と角速度の各軸(rad/s)が記録されたCSVファイルから
// 1軸を選んで移動中央値を掛け、しきい値と重ねて描く
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"g30insight/internal/angvel"
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
		Name:      "angvelplot",
		Usage:     "角速度の1軸に移動中央値フィルタを掛けてグラフにする",
		UsageText: "angvelplot [options] [x|y|z]",
		Version:   "1.0.0",
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
			// ファイルを触る前に軸を検査する
			arg := c.Args().First()
			if arg != "" {
				if _, err := angvel.ParseAxis(arg, ""); err != nil {
					return cli.Exit(angvel.Usage, 1)
				}
			}

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

			axis, err := angvel.ParseAxis(arg, cfg.AngularVelocity.DefaultAxis)
			if err != nil {
				return cli.Exit(angvel.Usage, 1)
			}

			output, err := angvel.Run(cfg, axis)
			if err != nil {
				slog.Error("angvel.Run", "err", err)
				return err
			}
			fmt.Printf("Saved interactive plot to %s\n", output)

			if show {
				chart.Show(output)
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
