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

// Package engine 是與外部 MD 引擎（HOOMD-blue v2）的邊界：
// 模擬參數、run script 產生與執行查詢模擬的 Runner。
//
// 優化核心只透過 Descriptor（勢能描述）與 Job（單一 state 的執行單位）跟這裡溝通，
// 不知道任何腳本語法。
package engine

import (
	"sort"
	"strings"

	"github.com/zintix-labs/msibi/errs"
)

// 支援的 integrator；NVE 無法維持 state 的溫度，MS-IBI 明確不支援。
var integrators = map[string]bool{
	"hoomd.md.integrate.nvt":      true,
	"hoomd.md.integrate.npt":      true,
	"hoomd.md.integrate.langevin": true,
	"hoomd.md.integrate.brownian": true,
}

const nve = "hoomd.md.integrate.nve"

// Params 全域模擬參數，每次 Optimize 產生 run script 時使用一次。
type Params struct {
	Integrator       string             `json:"integrator" yaml:"integrator"`
	IntegratorKwargs map[string]float64 `json:"integrator_kwargs" yaml:"integrator_kwargs"`
	DT               float64            `json:"dt" yaml:"dt"`
	GSDPeriod        int                `json:"gsd_period" yaml:"gsd_period"`
	NSteps           int                `json:"n_steps" yaml:"n_steps"`
	MaxFrames        int                `json:"max_frames" yaml:"max_frames"`
}

// Validate 檢查 integrator 與數值參數
func (p *Params) Validate() error {
	if err := ValidateIntegrator(p.Integrator); err != nil {
		return err
	}
	if p.DT <= 0 {
		return errs.Configf("engine: dt must be > 0, got %g", p.DT)
	}
	if p.NSteps < 1 {
		return errs.Configf("engine: n_steps must be >= 1, got %d", p.NSteps)
	}
	if p.GSDPeriod < 1 {
		return errs.Configf("engine: gsd_period must be >= 1, got %d", p.GSDPeriod)
	}
	if p.MaxFrames < 1 {
		return errs.Configf("engine: max_frames must be >= 1, got %d", p.MaxFrames)
	}
	return nil
}

// ValidateIntegrator NVE 直接拒絕，其餘只接受已知清單。
func ValidateIntegrator(name string) error {
	if name == nve {
		return errs.Configf("engine: the NVE ensemble is not supported with MS-IBI")
	}
	if !integrators[name] {
		return errs.Configf("engine: integrator %q not supported: want one of %s", name, strings.Join(Integrators(), ", "))
	}
	return nil
}

// Integrators 回傳支援清單（已排序）
func Integrators() []string {
	out := make([]string, 0, len(integrators))
	for k := range integrators {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
