// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package cdrtest はテスト用の CDR ペイロードを組み立てる
package cdrtest

import (
	"encoding/binary"
	"math"
)

// カプセル化ヘッダの長さ。整列はこの後ろから数える
const headerSize = 4

type Encoder struct {
	buf   []byte
	order binary.AppendByteOrder
}

// NewEncoder は CDR_LE か CDR_BE のヘッダから書き始める
func NewEncoder(littleEndian bool) *Encoder {
	e := &Encoder{order: binary.BigEndian}
	header := []byte{0x00, 0x00, 0x00, 0x00}
	if littleEndian {
		e.order = binary.LittleEndian
		header[1] = 0x01
	}
	e.buf = header
	return e
}

func (e *Encoder) align(n int) {
	for (len(e.buf)-headerSize)%n != 0 {
		e.buf = append(e.buf, 0)
	}
}

func (e *Encoder) Uint32(v uint32) *Encoder {
	e.align(4)
	e.buf = e.order.AppendUint32(e.buf, v)
	return e
}

func (e *Encoder) Int32(v int32) *Encoder { return e.Uint32(uint32(v)) }

func (e *Encoder) Float32(v float32) *Encoder { return e.Uint32(math.Float32bits(v)) }

func (e *Encoder) Float64(v float64) *Encoder {
	e.align(8)
	e.buf = e.order.AppendUint64(e.buf, math.Float64bits(v))
	return e
}

func (e *Encoder) Uint8(v uint8) *Encoder {
	e.buf = append(e.buf, v)
	return e
}

// Text は NUL 終端を含む長さを前置した文字列
func (e *Encoder) Text(s string) *Encoder {
	e.Uint32(uint32(len(s) + 1))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
	return e
}

func (e *Encoder) Bytes() []byte { return e.buf }
