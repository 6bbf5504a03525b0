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

import "math"

// Quartic 種子函數：V(x) = k4(x-x0)^4 + k3(x-x0)^3 + k2(x-x0)^2
type Quartic struct {
	X0 float64 `json:"x0" yaml:"x0"`
	K4 float64 `json:"k4" yaml:"k4"`
	K3 float64 `json:"k3" yaml:"k3"`
	K2 float64 `json:"k2" yaml:"k2"`
}

// Eval 在每個網格點上求值
func (q Quartic) Eval(x []float64) []float64 {
	v := make([]float64, len(x))
	for i, xi := range x {
		d := xi - q.X0
		d2 := d * d
		v[i] = q.K4*d2*d2 + q.K3*d2*d + q.K2*d2
	}
	return v
}

// Mie 種子函數：V(r) = C ε [(σ/r)^m - (σ/r)^n]，C = m/(m-n) (m/n)^(n/(m-n))。
// m=12, n=6 即 Lennard-Jones。r=0 會得到非有限值，交給 HeadCorrection 處理。
type Mie struct {
	Epsilon float64 `json:"epsilon" yaml:"epsilon"`
	Sigma   float64 `json:"sigma" yaml:"sigma"`
	M       float64 `json:"m" yaml:"m"`
	N       float64 `json:"n" yaml:"n"`
}

// LJ 回傳 12-6 的 Mie 參數
func LJ(epsilon, sigma float64) Mie {
	return Mie{Epsilon: epsilon, Sigma: sigma, M: 12, N: 6}
}

func (p Mie) Eval(r []float64) []float64 {
	m, n := p.M, p.N
	if m == 0 && n == 0 {
		m, n = 12, 6
	}
	c := (m / (m - n)) * math.Pow(m/n, n/(m-n))
	v := make([]float64, len(r))
	for i, ri := range r {
		s := p.Sigma / ri
		v[i] = c * p.Epsilon * (math.Pow(s, m) - math.Pow(s, n))
	}
	return v
}
