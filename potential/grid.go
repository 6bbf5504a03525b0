// Copyright 2025 Zintix Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package potential 收納 MS-IBI 用到的純數值工具：網格、種子函數、表格讀寫、
// 尾端/頭端修正、Savitzky-Golay 平滑與分布相似度。
//
// 這個包不持有任何狀態，也不知道 State / Session 的存在；所有函數都回傳新切片，
// 呼叫端自行決定是否覆蓋原曲線。
package potential

import (
	"math"
	"strings"

	"github.com/zintix-labs/msibi/errs"
	"gonum.org/v1/gonum/floats"
)

// Kind 勢能種類。一次優化只會有一種 Kind 處於 active。
type Kind uint8

const (
	Bond Kind = iota
	Angle
	Pair
)

var kindNames = [...]string{
	Bond:  "bond",
	Angle: "angle",
	Pair:  "pair",
}

var kindPlurals = [...]string{
	Bond:  "bonds",
	Angle: "angles",
	Pair:  "pairs",
}

// String 回傳檔名使用的前綴（bond / angle / pair）
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Plural 回傳優化目標名稱（bonds / angles / pairs）
func (k Kind) Plural() string {
	if int(k) < len(kindPlurals) {
		return kindPlurals[k]
	}
	return "unknown"
}

// MarshalText 讓 JSON / YAML 輸出名稱而不是數字
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Arity 該種類的 type label 數量
func (k Kind) Arity() int {
	if k == Angle {
		return 3
	}
	return 2
}

// ParseKind 接受單數或複數寫法（bond / bonds）
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i := range kindNames {
		if s == kindNames[i] || s == kindPlurals[i] {
			return Kind(i), nil
		}
	}
	return 0, errs.Configf("unknown optimization kind %q: want bonds, angles or pairs", s)
}

// gridEps 吸收 (hi-lo)/step 的浮點誤差，讓 arange 的點數與 numpy 慣例一致。
const gridEps = 1e-9

// Arange 回傳 [lo, hi) 間隔 step 的等距點。
func Arange(lo, hi, step float64) []float64 {
	if step <= 0 || hi <= lo {
		return nil
	}
	n := int(math.Ceil((hi-lo)/step - gridEps))
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// Linspace 回傳 [lo, hi] 含端點的 n 個等距點。
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return nil
	}
	return floats.Span(make([]float64, n), lo, hi)
}

// BondGrid 鍵長網格：dl = max/n，範圍 [min, max)。
func BondGrid(lmin, lmax float64, n int) (grid []float64, dl float64, err error) {
	if n < 2 {
		return nil, 0, errs.Configf("bond grid: n_points must be >= 2, got %d", n)
	}
	if lmax <= lmin || lmax <= 0 {
		return nil, 0, errs.Configf("bond grid: need 0 < l_max and l_min < l_max, got [%g, %g]", lmin, lmax)
	}
	dl = lmax / float64(n)
	grid = Arange(lmin, lmax, dl)
	if len(grid) < 2 {
		return nil, 0, errs.Configf("bond grid: [%g, %g) step %g gives %d points", lmin, lmax, dl, len(grid))
	}
	return grid, dl, nil
}

// AngleGrid 鍵角網格：dθ = max/(n-1)，範圍 [min, max+dθ)，比 bond 多含上界一點。
func AngleGrid(tmin, tmax float64, n int) (grid []float64, dtheta float64, err error) {
	if n < 2 {
		return nil, 0, errs.Configf("angle grid: n_points must be >= 2, got %d", n)
	}
	if tmax <= tmin || tmax <= 0 {
		return nil, 0, errs.Configf("angle grid: need 0 < theta_max and theta_min < theta_max, got [%g, %g]", tmin, tmax)
	}
	dtheta = tmax / float64(n-1)
	grid = Arange(tmin, tmax+dtheta, dtheta)
	if len(grid) < 2 {
		return nil, 0, errs.Configf("angle grid: [%g, %g] step %g gives %d points", tmin, tmax, dtheta, len(grid))
	}
	return grid, dtheta, nil
}

// PairGrid 距離網格：[min, max] 含端點共 n 點。
func PairGrid(rmin, rmax float64, n int) (grid []float64, dr float64, err error) {
	if n < 2 {
		return nil, 0, errs.Configf("pair grid: n_points must be >= 2, got %d", n)
	}
	if rmax <= rmin {
		return nil, 0, errs.Configf("pair grid: need r_min < r_max, got [%g, %g]", rmin, rmax)
	}
	dr = (rmax - rmin) / float64(n-1)
	return Linspace(rmin, rmax, n), dr, nil
}
