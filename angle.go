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

package msibi

import (
	"github.com/zintix-labs/msibi/engine"
	"github.com/zintix-labs/msibi/potential"
)

// Angle 鍵角勢能；中心 type 固定，外側兩個依自然排序。
type Angle struct {
	*interaction
}

func newAngle(t1, t2, t3 string) (*Angle, error) {
	in, err := newInteraction(potential.Angle, []string{t1, t2, t3})
	if err != nil {
		return nil, err
	}
	return &Angle{in}, nil
}

// NewHarmonicAngle static：V(θ) = k/2 (θ - θ0)^2
func NewHarmonicAngle(t1, t2, t3 string, k, theta0 float64) (*Angle, error) {
	a, err := newAngle(t1, t2, t3)
	if err != nil {
		return nil, err
	}
	a.withStatic(engine.Harmonic, engine.Coeff{Name: "k", Value: k}, engine.Coeff{Name: "theta0", Value: theta0})
	return a, nil
}

// NewCosineSqAngle static：V(θ) = k/2 (cosθ - cosθ0)^2
func NewCosineSqAngle(t1, t2, t3 string, k, theta0 float64) (*Angle, error) {
	a, err := newAngle(t1, t2, t3)
	if err != nil {
		return nil, err
	}
	a.withStatic(engine.CosineSq, engine.Coeff{Name: "k", Value: k}, engine.Coeff{Name: "theta0", Value: theta0})
	return a, nil
}

// NewTableAngle 可優化的表格鍵角勢能，網格含上界 θmax。
func NewTableAngle(t1, t2, t3 string, seed potential.Quartic, tmin, tmax float64, n int) (*Angle, error) {
	a, err := newAngle(t1, t2, t3)
	if err != nil {
		return nil, err
	}
	grid, dt, err := potential.AngleGrid(tmin, tmax, n)
	if err != nil {
		return nil, err
	}
	if err := a.withTable(grid, dt, seed.Eval(grid)); err != nil {
		return nil, err
	}
	return a, nil
}
