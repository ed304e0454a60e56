// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>
// ROS 2 bag (.db3) から /g30esli/status の speed.actual を取り出してCSVに保存する
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"g30insight/internal/bag"
	"g30insight/internal/config"
	"g30insight/internal/extract"
)

func newApp() *cli.App {
	var (
		configFile string
		listTopics bool
	)

	return &cli.App{
		Name:      "speedextract",
		Usage:     "Extract speed.actual from g30esli/status topic",
		UsageText: "speedextract [options] <bag_path>",
		Version:   "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "設定ファイル(YAML)",
				Destination: &configFile,
			},
			&cli.BoolFlag{
				Name:        "list",
				Usage:       "bag に記録されたトピックを表示するだけで終わる",
				Destination: &listTopics,
			},
		},
		Action: func(c *cli.Context) error {
			bagPath := c.Args().First()
			if len(bagPath) == 0 {
				return cli.Exit("Path to the .db3 (ros2 bag) is required", 2)
			}

			if listTopics {
				topics, err := bag.Topics(bagPath)
				if err != nil {
					slog.Error("bag.Topics", "err", err)
					return err
				}
				for _, t := range topics {
					fmt.Printf("%s\t%s\t%s\n", t.Name, t.Type, t.SerializationFormat)
				}
				return nil
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				slog.Error("config.Load", "err", err)
				return err
			}

			if _, err := extract.Run(cfg.Extract, bagPath); err != nil {
				slog.Error("extract.Run", "err", err)
				return err
			}
			fmt.Printf("Saved speed.actual data to '%s'\n", cfg.Extract.Output)
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
