// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package config は各コマンドが使うファイル名・列名・フィルタ定数などをまとめる。
package config

import (
	"fmt"
	"log/slog"

	"github.com/spf13/viper"
)

// 抽出コマンドの設定
type Extract struct {
	Topic       string   `mapstructure:"topic"`        // 対象トピック
	Field       string   `mapstructure:"field"`        // 取り出すフィールド
	Schema      []string `mapstructure:"schema"`       // "name:type" の並び
	Output      string   `mapstructure:"output"`       // 出力CSV
	IndexColumn string   `mapstructure:"index_column"` // 時間列
	ValueColumn string   `mapstructure:"value_column"` // 値の列
}

// 2段グラフの設定
type Bias struct {
	GyroInput   string   `mapstructure:"gyro_input"`
	SpeedInput  string   `mapstructure:"speed_input"`
	Output      string   `mapstructure:"output"`
	GyroColumns []string `mapstructure:"gyro_columns"` // 欠けていれば警告して省略する
	SpeedColumn string   `mapstructure:"speed_column"` // 必須
}

// 角速度グラフの設定
type AngularVelocity struct {
	Input        string  `mapstructure:"input"`
	ColumnFormat string  `mapstructure:"column_format"` // 軸名を埋め込む列名
	Output       string  `mapstructure:"output"`        // 軸名を埋め込むファイル名
	Window       int     `mapstructure:"window"`        // 移動中央値の窓幅(サンプル数)
	Threshold    float64 `mapstructure:"threshold"`     // しきい値(rad/s)
	DefaultAxis  string  `mapstructure:"default_axis"`
}

// グラフ共通の設定
type Chart struct {
	TimeZone string `mapstructure:"time_zone"`
	Width    int    `mapstructure:"width"`  // pt
	Height   int    `mapstructure:"height"` // pt
}

type Config struct {
	Extract         Extract         `mapstructure:"extract"`
	Bias            Bias            `mapstructure:"bias"`
	AngularVelocity AngularVelocity `mapstructure:"angular_velocity"`
	Chart           Chart           `mapstructure:"chart"`
}

// Default は元のスクリプトと同じ値を返す
func Default() *Config {
	return &Config{
		Extract: Extract{
			Topic: "/g30esli/status",
			Field: "status.speed.actual",
			Schema: []string{
				"header.stamp.sec:int32",
				"header.stamp.nanosec:uint32",
				"header.frame_id:string",
				"status.speed.ref:float32",
				"status.speed.actual:float32",
			},
			Output:      "speed_actual.csv",
			IndexColumn: "timestamp",
			ValueColumn: "speed_actual",
		},
		Bias: Bias{
			GyroInput:   "gyro_bias.csv",
			SpeedInput:  "speed_actual.csv",
			Output:      "gyro_bias_and_speed_actual.html",
			GyroColumns: []string{"gyro_bias_x", "gyro_bias_y", "gyro_bias_z"},
			SpeedColumn: "speed_actual",
		},
		AngularVelocity: AngularVelocity{
			Input:        "angular_velocity.csv",
			ColumnFormat: "angular_velocity_%s",
			Output:       "angular_velocity_%s_plot.html",
			Window:       400,
			Threshold:    0.0025,
			DefaultAxis:  "z",
		},
		Chart: Chart{
			TimeZone: "Asia/Tokyo",
			Width:    1280,
			Height:   720,
		},
	}
}

// Load は既定値から始めて、path が空でなければYAMLファイルで上書きする
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		slog.Error("ReadInConfig", "path", path, "err", err)
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	slog.Info("config", "file", v.ConfigFileUsed())

	if err := v.Unmarshal(cfg); err != nil {
		slog.Error("Unmarshal", "err", err)
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は明らかに使えない値を弾く
func (c *Config) Validate() error {
	if c.Extract.Topic == "" {
		return fmt.Errorf("extract.topic is empty")
	}
	if c.Extract.Field == "" {
		return fmt.Errorf("extract.field is empty")
	}
	if c.Extract.IndexColumn == "" || c.Extract.ValueColumn == "" {
		return fmt.Errorf("extract column names must not be empty")
	}
	if c.AngularVelocity.Window < 1 {
		return fmt.Errorf("angular_velocity.window must be positive, got %d", c.AngularVelocity.Window)
	}
	if c.Chart.Width <= 0 || c.Chart.Height <= 0 {
		return fmt.Errorf("chart size must be positive, got %dx%d", c.Chart.Width, c.Chart.Height)
	}
	return nil
}
