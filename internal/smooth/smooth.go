// g30insight
// SPDX-License-Identifier: MPL-2.0
// SPDX-FileCopyrightText: 2025 Akihiro Yamamoto <github.com/ak1211>

// Package smooth はサンプル列に掛けるフィルタ
package smooth

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// RollingMedian は窓幅 window の中心移動中央値を返す。
// 結果の i 番目は xs[i-window/2 : i+(window-1)/2+1] の中央値で、
// 窓が列の外にはみ出す位置と、窓に欠損値(NaN)が含まれる位置は NaN になる。
func RollingMedian(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 1 || len(xs) < window {
		return out
	}

	// 偶数幅では中心より前が1つ多い
	before := window / 2
	after := (window - 1) / 2

	// 窓の中身を整列したまま保持する
	sorted := make([]float64, 0, window)
	nans := 0
	for r := 0; r < window; r++ {
		if math.IsNaN(xs[r]) {
			nans++
			continue
		}
		sorted = insert(sorted, xs[r])
	}

	for center := before; center+after < len(xs); center++ {
		if nans == 0 {
			out[center] = median(sorted)
		}
		// 窓を1つずらす
		next := center + after + 1
		if next >= len(xs) {
			break
		}
		if old := xs[center-before]; math.IsNaN(old) {
			nans--
		} else {
			sorted = remove(sorted, old)
		}
		if v := xs[next]; math.IsNaN(v) {
			nans++
		} else {
			sorted = insert(sorted, v)
		}
	}
	return out
}

func insert(sorted []float64, v float64) []float64 {
	i := sort.SearchFloat64s(sorted, v)
	sorted = append(sorted, 0)
	copy(sorted[i+1:], sorted[i:])
	sorted[i] = v
	return sorted
}

func remove(sorted []float64, v float64) []float64 {
	i := sort.SearchFloat64s(sorted, v)
	return append(sorted[:i], sorted[i+1:]...)
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// Constant は値 v が n 個並んだ列
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Defined は欠損していない値の個数
func Defined(xs []float64) int {
	return len(xs) - floats.Count(math.IsNaN, xs)
}
