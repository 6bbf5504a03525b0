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

package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
)

// DefaultScriptName 每個 state 目錄下的 run script 檔名
const DefaultScriptName = "run.py"

// Job 單一 state 的一次查詢模擬
type Job struct {
	State     string  `json:"state"`
	Dir       string  `json:"dir"`
	KT        float64 `json:"kT"`
	InitTraj  string  `json:"init_traj"`  // 起始構型（通常是 target trajectory 的最後一幀）
	QueryTraj string  `json:"query_traj"` // 查詢模擬輸出
	Script    string  `json:"script"`     // 由 ScriptWriter 填入
}

// ScriptWriter 依 Params 與勢能描述把 run script 寫進 job.Dir，回傳腳本路徑。
type ScriptWriter interface {
	Write(job Job, p Params, ds []Descriptor) (string, error)
}

// HoomdScript 產生 HOOMD-blue v2 的 python run script
type HoomdScript struct {
	FileName string
}

func (h HoomdScript) Write(job Job, p Params, ds []Descriptor) (string, error) {
	body, err := Render(job, p, ds)
	if err != nil {
		return "", err
	}
	name := h.FileName
	if name == "" {
		name = DefaultScriptName
	}
	if err := os.MkdirAll(job.Dir, 0o755); err != nil {
		return "", errs.Wrap(err, "engine: create state dir")
	}
	path := filepath.Join(job.Dir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", errs.Wrap(err, "engine: write run script")
	}
	return path, nil
}

// 腳本內勢能宣告的順序
var kindOrder = []potential.Kind{potential.Pair, potential.Bond, potential.Angle}

// Render 產生 run script 內容。宣告依 pair / bond / angle 排列，
// 同 (kind, form) 的宣告只寫一次；設定語句保持呼叫端給的順序。
func Render(job Job, p Params, ds []Descriptor) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if job.InitTraj == "" || job.QueryTraj == "" {
		return nil, errs.Configf("engine: state %s needs init and query trajectories", job.State)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "# generated by msibi (%s)\n", TemplateVersion)
	b.WriteString("import hoomd\nimport hoomd.md\n\n")
	b.WriteString("hoomd.context.initialize(\"\")\n")
	fmt.Fprintf(&b, "system = hoomd.init.read_gsd(%q, frame=-1, time_step=0)\n", job.InitTraj)
	b.WriteString("nl = hoomd.md.nlist.cell()\n")

	for _, k := range kindOrder {
		declared := map[string]bool{}
		for _, d := range ds {
			if d.Kind != k {
				continue
			}
			init, entry, err := Statement(d)
			if err != nil {
				return nil, err
			}
			if !declared[init] {
				b.WriteString("\n" + init + "\n")
				declared[init] = true
			}
			b.WriteString(entry + "\n")
		}
	}

	b.WriteString("\n_all = hoomd.group.all()\n")
	fmt.Fprintf(&b, "hoomd.md.integrate.mode_standard(dt=%g)\n", p.DT)
	fmt.Fprintf(&b, "integrator = %s(group=_all, kT=%g%s)\n", p.Integrator, job.KT, kwargs(p.IntegratorKwargs))
	fmt.Fprintf(&b, "hoomd.dump.gsd(%q, group=_all, period=%d, overwrite=True)\n", job.QueryTraj, p.GSDPeriod)
	fmt.Fprintf(&b, "hoomd.run(%d)\n", p.NSteps)
	return b.Bytes(), nil
}

func kwargs(m map[string]float64) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&b, ", %s=%s", k, num(m[k]))
	}
	return b.String()
}
