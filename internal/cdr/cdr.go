// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package cdr は CDR でシリアライズされた ROS 2 メッセージを読む
//
// ペイロードは4バイトのカプセル化ヘッダで始まり、2バイト目でバイト順が決まる
// (0 はビッグエンディアン、1 はリトルエンディアン)。基本型は自身の大きさに整列し、
// 整列はヘッダの後ろから数える。文字列は NUL 終端を含む uint32 の長さと本体。
//
// メッセージ型は Schema (宣言順に平たく並べたフィールドの列) で表す。
// 読むのは目的のフィールドまで。
package cdr

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

const headerSize = 4

var (
	ErrShortBuffer = errors.New("cdr: payload too short")
	ErrNoField     = errors.New("cdr: no such field")
	ErrNotNumeric  = errors.New("cdr: field is not numeric")
)

// Type は CDR の基本型
type Type int

const (
	Bool Type = iota
	Byte
	Char
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	String
)

var typeNames = map[string]Type{
	"bool":    Bool,
	"byte":    Byte,
	"char":    Char,
	"int8":    Int8,
	"uint8":   Uint8,
	"int16":   Int16,
	"uint16":  Uint16,
	"int32":   Int32,
	"uint32":  Uint32,
	"int64":   Int64,
	"uint64":  Uint64,
	"float32": Float32,
	"float64": Float64,
	"string":  String,
}

func (t Type) String() string {
	for name, v := range typeNames {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// size は固定長型のバイト数。String は長さ部分の4
func (t Type) size() int {
	switch t {
	case Bool, Byte, Char, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32, String:
		return 4
	case Int64, Uint64, Float64:
		return 8
	}
	return 0
}

type Field struct {
	Name string
	Type Type
}

type Schema []Field

// ParseSchema は "name:type" の並びから Schema を作る
func ParseSchema(entries []string) (Schema, error) {
	schema := make(Schema, 0, len(entries))
	for _, entry := range entries {
		name, typ, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		typ = strings.TrimSpace(typ)
		if !ok || name == "" {
			return nil, fmt.Errorf("cdr: bad field %q, want name:type", entry)
		}
		t, ok := typeNames[typ]
		if !ok {
			return nil, fmt.Errorf("cdr: unknown type %q in %q", typ, entry)
		}
		schema = append(schema, Field{Name: name, Type: t})
	}
	return schema, nil
}

// Float はペイロードを name のフィールドまで読み、float64 で返す
func (s Schema) Float(payload []byte, name string) (float64, error) {
	d, err := newDecoder(payload)
	if err != nil {
		return 0, err
	}
	for _, f := range s {
		if f.Name != name {
			if err := d.skip(f.Type); err != nil {
				return 0, fmt.Errorf("%s: %w", f.Name, err)
			}
			continue
		}
		v, err := d.number(f.Type)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", f.Name, err)
		}
		return v, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrNoField, name)
}

// Decoder は name のフィールドを取り出す関数を返す。
// フィールドがあることと数値型であることは先に確かめる
func (s Schema) Decoder(name string) (func([]byte) (float64, error), error) {
	for _, f := range s {
		if f.Name == name {
			if f.Type == String {
				return nil, fmt.Errorf("%w: %q is %s", ErrNotNumeric, name, f.Type)
			}
			return func(payload []byte) (float64, error) {
				return s.Float(payload, name)
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoField, name)
}

type decoder struct {
	buf   []byte // ヘッダ以降
	pos   int
	order binary.ByteOrder
}

func newDecoder(payload []byte) (*decoder, error) {
	if len(payload) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, no encapsulation header", ErrShortBuffer, len(payload))
	}
	d := &decoder{buf: payload[headerSize:]}
	// CDR_BE / PL_CDR_BE は偶数、LE は奇数
	if payload[1]&1 == 1 {
		d.order = binary.LittleEndian
	} else {
		d.order = binary.BigEndian
	}
	return d, nil
}

func (d *decoder) align(n int) {
	if r := d.pos % n; r != 0 {
		d.pos += n - r
	}
}

func (d *decoder) take(n int) ([]byte, error) {
	if d.pos+n > len(d.buf) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, d.pos, len(d.buf))
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

func (d *decoder) skip(t Type) error {
	n := t.size()
	d.align(n)
	b, err := d.take(n)
	if err != nil {
		return err
	}
	if t == String {
		_, err = d.take(int(d.order.Uint32(b)))
	}
	return err
}

func (d *decoder) number(t Type) (float64, error) {
	if t == String {
		return 0, ErrNotNumeric
	}
	n := t.size()
	d.align(n)
	b, err := d.take(n)
	if err != nil {
		return 0, err
	}
	switch t {
	case Bool, Byte, Char, Uint8:
		return float64(b[0]), nil
	case Int8:
		return float64(int8(b[0])), nil
	case Int16:
		return float64(int16(d.order.Uint16(b))), nil
	case Uint16:
		return float64(d.order.Uint16(b)), nil
	case Int32:
		return float64(int32(d.order.Uint32(b))), nil
	case Uint32:
		return float64(d.order.Uint32(b)), nil
	case Int64:
		return float64(int64(d.order.Uint64(b))), nil
	case Uint64:
		return float64(d.order.Uint64(b)), nil
	case Float32:
		return float64(math.Float32frombits(d.order.Uint32(b))), nil
	case Float64:
		return math.Float64frombits(d.order.Uint64(b)), nil
	}
	return 0, ErrNotNumeric
}
