// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package extract は記録されたメッセージ列から1つの数値信号を取り出す
package extract

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"g30insight/internal/bag"
	"g30insight/internal/cdr"
	"g30insight/internal/config"
	"g30insight/internal/table"
)

// Record はメッセージ列の1件
type Record struct {
	Channel string
	Payload []byte
	Time    int64 // arrival time, ns
}

// Source は有限で、やり直しのできないレコードの列。
// 最後のレコードの後の Next は io.EOF を返す
type Source interface {
	Next() (Record, error)
}

// DecodeFunc はペイロードから数値を読む
type DecodeFunc func(payload []byte) (float64, error)

// Extract は src を1度だけ走査し、channel のレコードを走査順に1行ずつ並べた表を返す。
// デコードに失敗したらそこで中断する
func Extract(src Source, channel string, indexName string, column string, decode DecodeFunc) (*table.Table, error) {
	t := table.New(indexName, column)
	for n := 0; ; n++ {
		rec, err := src.Next()
		if errors.Is(err, io.EOF) {
			return t, nil
		}
		if err != nil {
			slog.Error("Next", "record", n, "err", err)
			return nil, err
		}
		if rec.Channel != channel {
			continue
		}
		v, err := decode(rec.Payload)
		if err != nil {
			slog.Error("decode", "record", n, "channel", rec.Channel, "err", err)
			return nil, fmt.Errorf("record %d on %s: %w", n, rec.Channel, err)
		}
		// ナノ秒から秒へ
		if err := t.Append(float64(rec.Time)/1e9, v); err != nil {
			return nil, err
		}
	}
}

// bagSource は bag.Reader を Source として使うための適合
type bagSource struct {
	r *bag.Reader
}

func (s bagSource) Next() (Record, error) {
	if !s.r.HasNext() {
		if err := s.r.Err(); err != nil {
			return Record{}, err
		}
		return Record{}, io.EOF
	}
	m, err := s.r.ReadNext()
	if err != nil {
		return Record{}, err
	}
	return Record{Channel: m.Topic, Payload: m.Data, Time: m.Timestamp}, nil
}

// NewBagSource は開いた bag.Reader を Source にする
func NewBagSource(r *bag.Reader) Source {
	return bagSource{r: r}
}

// Run は bagPath の bag から cfg.Topic の cfg.Field を取り出して cfg.Output に書き、
// 書いた行数を返す
func Run(cfg config.Extract, bagPath string) (int, error) {
	schema, err := cdr.ParseSchema(cfg.Schema)
	if err != nil {
		slog.Error("ParseSchema", "err", err)
		return 0, err
	}
	decode, err := schema.Decoder(cfg.Field)
	if err != nil {
		slog.Error("Decoder", "field", cfg.Field, "err", err)
		return 0, err
	}

	r, err := bag.Open(bagPath)
	if err != nil {
		slog.Error("bag.Open", "err", err)
		return 0, err
	}
	defer r.Close()

	t, err := Extract(NewBagSource(r), cfg.Topic, cfg.IndexColumn, cfg.ValueColumn, decode)
	if err != nil {
		return 0, err
	}
	if t.Len() == 0 {
		slog.Warn("no messages on topic", "topic", cfg.Topic)
	}

	if err := t.Save(cfg.Output); err != nil {
		slog.Error("Save", "err", err)
		return 0, err
	}
	return t.Len(), nil
}
