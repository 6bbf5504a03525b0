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

package potential

import (
	"math"

	"github.com/zintix-labs/msibi/errs"
)

// HeadForm 頭端外插型式
type HeadForm string

const (
	HeadLinear      HeadForm = "linear"
	HeadExponential HeadForm = "exponential"
)

// AlphaForm alpha 沿網格的分布型式
type AlphaForm string

const (
	AlphaConstant AlphaForm = "constant"
	AlphaLinear   AlphaForm = "linear"
)

// nearest 回傳網格上最接近 x 的索引
func nearest(grid []float64, x float64) int {
	idx := 0
	best := math.Inf(1)
	for i, g := range grid {
		if d := math.Abs(g - x); d < best {
			best = d
			idx = i
		}
	}
	return idx
}

// DefaultRSwitch 預設切換距離：倒數第五個網格點。
func DefaultRSwitch(r []float64) (float64, error) {
	if len(r) < 5 {
		return 0, errs.Configf("r_switch: grid has %d points, need at least 5", len(r))
	}
	return r[len(r)-5], nil
}

// TailCorrection 在 r_switch 之後以切換函數讓曲線平滑衰減到 0：
//
//	S(r) = (rc² - r²)² (rc² + 2r² - 3rs²) / (rc² - rs²)³
//	V(r) = V(rs) · S(r)   (r > rs)
//
// rs 取網格上最接近 r_switch 的點；rs 之後的值以 V(rs) 為錨重新寫入，
// 所以重複套用結果不變。
func TailCorrection(r, v []float64, rSwitch float64) ([]float64, error) {
	if len(r) != len(v) {
		return nil, errs.Dataf("tail correction: grid len %d != potential len %d", len(r), len(v))
	}
	if len(r) < 2 {
		return nil, errs.Dataf("tail correction: grid too short (%d)", len(r))
	}
	out := append([]float64(nil), v...)
	idx := nearest(r, rSwitch)
	last := len(r) - 1
	if idx >= last {
		return nil, errs.Configf("tail correction: r_switch %g must be below r_cut %g", rSwitch, r[last])
	}
	anchor := out[idx]
	if math.IsNaN(anchor) || math.IsInf(anchor, 0) {
		return nil, errs.Dataf("tail correction: potential undefined at r_switch %g", r[idx])
	}
	rc2 := r[last] * r[last]
	rs2 := r[idx] * r[idx]
	den := math.Pow(rc2-rs2, 3)
	for i := idx + 1; i <= last; i++ {
		r2 := r[i] * r[i]
		d := rc2 - r2
		out[i] = anchor * d * d * (rc2 + 2*r2 - 3*rs2) / den
	}
	out[last] = 0
	return out, nil
}

// HeadCorrection 把曲線前段的非有限值（排斥核心、RDF 為 0 的區域）以外插補齊。
// 取最後一個非有限點 c，用 c+1、c+2 兩點做線性或指數外插覆蓋 [0, c]。
// 指數外插要求兩點同號且比值為正，否則退回線性。
func HeadCorrection(r, v []float64, form HeadForm) ([]float64, error) {
	if len(r) != len(v) {
		return nil, errs.Dataf("head correction: grid len %d != potential len %d", len(r), len(v))
	}
	out := append([]float64(nil), v...)
	cut := -1
	for i := len(out) - 1; i >= 0; i-- {
		if math.IsNaN(out[i]) || math.IsInf(out[i], 0) {
			cut = i
			break
		}
	}
	if cut < 0 {
		return out, nil
	}
	if cut > len(out)/2 || cut+2 >= len(out) {
		return nil, errs.Dataf("head correction: undefined value at r=%g reaches past the core region", r[cut])
	}
	a, b := cut+1, cut+2
	switch form {
	case HeadExponential:
		ratio := out[a] / out[b]
		if ratio > 0 && !math.IsInf(ratio, 0) {
			dr := r[b] - r[a]
			k := math.Log(ratio) / dr
			amp := out[a] * math.Exp(k*r[a])
			for i := 0; i <= cut; i++ {
				out[i] = amp * math.Exp(-k*r[i])
			}
			return out, nil
		}
		fallthrough
	case HeadLinear, "":
		slope := (out[a] - out[b]) / (r[a] - r[b])
		for i := 0; i <= cut; i++ {
			out[i] = slope*(r[i]-r[a]) + out[a]
		}
		return out, nil
	default:
		return nil, errs.Configf("head correction: unknown form %q", form)
	}
}

// AlphaArray 依型式展開 alpha：constant 全為 alpha0；
// linear 由首點 alpha0 線性降到末點 0。
func AlphaArray(alpha0 float64, r []float64, form AlphaForm) ([]float64, error) {
	out := make([]float64, len(r))
	switch form {
	case AlphaConstant, "":
		for i := range out {
			out[i] = alpha0
		}
	case AlphaLinear:
		if len(r) < 2 {
			return nil, errs.Configf("alpha linear: grid too short (%d)", len(r))
		}
		lo, span := r[0], r[len(r)-1]-r[0]
		for i, x := range r {
			out[i] = alpha0 * (1 - (x-lo)/span)
		}
		out[len(out)-1] = 0
	default:
		return nil, errs.Configf("alpha form %q not supported: want constant or linear", form)
	}
	return out, nil
}
