// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package table は抽出コマンドとグラフ描画コマンドの間でやり取りする
// CSV の時系列を読み書きする
//
// ファイルは見出し行、エポック秒のインデックス列、任意個の値の列からなる。
// 空欄は欠損値(NaN)。
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
)

// IndexName は時刻の列の名前
const IndexName = "timestamp"

var ErrNoColumn = errors.New("no such column")

// Table は列ごとに持つ時系列
type Table struct {
	IndexName string
	Index     []float64
	Columns   []string
	Values    [][]float64 // Values[c][r]
}

// New は columns の列を持つ空の表を返す
func New(indexName string, columns ...string) *Table {
	t := &Table{IndexName: indexName}
	for _, c := range columns {
		t.AddColumn(c)
	}
	return t
}

func (t *Table) Len() int { return len(t.Index) }

// AddColumn は空の列を足す。既存の行は NaN になる
func (t *Table) AddColumn(name string) {
	col := make([]float64, len(t.Index))
	for i := range col {
		col[i] = math.NaN()
	}
	t.Columns = append(t.Columns, name)
	t.Values = append(t.Values, col)
}

// Append は1行足す。values は Columns の順
func (t *Table) Append(index float64, values ...float64) error {
	if len(values) != len(t.Columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.Columns))
	}
	t.Index = append(t.Index, index)
	for c, v := range values {
		t.Values[c] = append(t.Values[c], v)
	}
	return nil
}

func (t *Table) Has(name string) bool {
	return t.columnIndex(name) >= 0
}

// Column は name の列の値
func (t *Table) Column(name string) ([]float64, error) {
	c := t.columnIndex(name)
	if c < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, name)
	}
	return t.Values[c], nil
}

func (t *Table) columnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Load は indexName をインデックス列とする表をファイルから読む
func Load(path string, indexName string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		slog.Error("Open", "err", err)
		return nil, err
	}
	defer f.Close()

	t, err := Read(f, indexName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read は r から表を読む
func Read(r io.Reader, indexName string) (*Table, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		slog.Error("Read", "err", err)
		return nil, fmt.Errorf("header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	// UTF-8 BOM
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	indexCol := -1
	for i, h := range header {
		if h == indexName {
			indexCol = i
			break
		}
	}
	if indexCol < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoColumn, indexName)
	}

	t := &Table{IndexName: indexName}
	valueCols := []int{}
	for i, h := range header {
		if i == indexCol {
			continue
		}
		valueCols = append(valueCols, i)
		t.AddColumn(h)
	}

	records, err := reader.ReadAll()
	if err != nil {
		slog.Error("ReadAll", "err", err)
		return nil, err
	}

	values := make([]float64, len(valueCols))
	for i, record := range records {
		// ヘッダが1行目
		line := i + 2
		index, err := parseCell(record[indexCol])
		if err != nil {
			return nil, fmt.Errorf("row %d column %q: %w", line, indexName, err)
		}
		for c, col := range valueCols {
			if values[c], err = parseCell(record[col]); err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", line, header[col], err)
			}
		}
		if err := t.Append(index, values...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// 空欄は欠損値
func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// Save は表を path に書く。既存のファイルは上書きする
func (t *Table) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		slog.Error("Create", "err", err)
		return err
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

// Write は見出し行と、サンプルごとに1行を書く
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)

	header := append([]string{t.IndexName}, t.Columns...)
	if err := writer.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for r, index := range t.Index {
		row[0] = FormatFloat(index)
		for c := range t.Columns {
			row[c+1] = FormatFloat(t.Values[c][r])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// FormatFloat は読み戻して同じ値になる最短の桁数で書く。
// 整数値には ".0" を付け、NaN は空欄にする
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !math.IsInf(v, 0) && !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
