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
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// 預設 RDF 平滑視窗
const (
	DefaultSGWindow = 9
	DefaultSGOrder  = 2
)

// sgCoeffs 以最小平方法求 Savitzky-Golay 平滑係數（pinv(A) 的第 0 列）。
func sgCoeffs(window, order int) ([]float64, error) {
	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		k := float64(i - half)
		for j := 0; j <= order; j++ {
			a.Set(i, j, math.Pow(k, float64(j)))
		}
	}
	eye := mat.NewDense(window, window, nil)
	for i := 0; i < window; i++ {
		eye.Set(i, i, 1)
	}
	var pinv mat.Dense
	if err := pinv.Solve(a, eye); err != nil {
		return nil, errs.Wrap(err, "savitzky-golay: solve coefficients")
	}
	return mat.Row(nil, 0, &pinv), nil
}

// SavitzkyGolay 以視窗 window、多項式階數 order 平滑 y。
// 邊界以端點為軸做反射延伸，輸出長度與輸入相同。
func SavitzkyGolay(y []float64, window, order int) ([]float64, error) {
	if window < 1 || window%2 == 0 {
		return nil, errs.Configf("savitzky-golay: window must be a positive odd number, got %d", window)
	}
	if window < order+2 {
		return nil, errs.Configf("savitzky-golay: window %d too small for order %d", window, order)
	}
	if len(y) < window {
		return nil, errs.Dataf("savitzky-golay: %d points shorter than window %d", len(y), window)
	}
	c, err := sgCoeffs(window, order)
	if err != nil {
		return nil, err
	}
	half := window / 2
	n := len(y)
	pad := make([]float64, 0, n+2*half)
	for i := half; i >= 1; i-- {
		pad = append(pad, y[0]-math.Abs(y[i]-y[0]))
	}
	pad = append(pad, y...)
	for i := 1; i <= half; i++ {
		pad = append(pad, y[n-1]+math.Abs(y[n-1-i]-y[n-1]))
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = floats.Dot(c, pad[i:i+window])
	}
	return out, nil
}

// Similarity 兩條密度曲線的相似度：1 - Σ|a-b| / (Σ|a| + Σ|b|)，範圍 [0, 1]。
func Similarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	den := floats.Norm(a, 1) + floats.Norm(b, 1)
	if den == 0 {
		return 1
	}
	return 1 - floats.Distance(a, b, 1)/den
}
