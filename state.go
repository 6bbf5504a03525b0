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
	"path/filepath"
	"strings"

	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/potential"
)

// DefaultQueryName 查詢模擬輸出的檔名（位於 state 目錄下）
const DefaultQueryName = "query.gsd"

// State 一個模擬條件。同一個 State 會被所有相關勢能共用，但它不擁有任何勢能。
type State struct {
	Name       string              `json:"name" yaml:"name"`
	KT         float64             `json:"kT" yaml:"kT"`
	TargetTraj string              `json:"target_traj" yaml:"target_traj"`
	QueryTraj  string              `json:"query_traj,omitempty" yaml:"query_traj,omitempty"`
	Alpha      float64             `json:"alpha" yaml:"alpha"`
	AlphaForm  potential.AlphaForm `json:"alpha_form,omitempty" yaml:"alpha_form,omitempty"` // 空字串使用各種類的預設
	Dir        string              `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// NewState 建立 State；Dir 與 QueryTraj 留空時由 Session.AddState 補上。
func NewState(name string, kT float64, targetTraj string, alpha float64) (*State, error) {
	s := &State{Name: name, KT: kT, TargetTraj: targetTraj, Alpha: alpha}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) Validate() error {
	if s.Name == "" || strings.ContainsAny(s.Name, `/\`) {
		return errs.Configf("state name %q is empty or contains a path separator", s.Name)
	}
	if !(s.KT > 0) {
		return errs.Configf("state %s: kT must be > 0, got %g", s.Name, s.KT)
	}
	if s.Alpha < 0 || s.Alpha > 1 {
		return errs.Configf("state %s: alpha must be within [0, 1], got %g", s.Name, s.Alpha)
	}
	if s.TargetTraj == "" {
		return errs.Configf("state %s: target trajectory required", s.Name)
	}
	switch s.AlphaForm {
	case "", potential.AlphaConstant, potential.AlphaLinear:
	default:
		return errs.Configf("state %s: alpha form %q not supported", s.Name, s.AlphaForm)
	}
	return nil
}

// resolve 補齊目錄並轉成絕對路徑（外部引擎在 state 目錄內執行）
func (s *State) resolve(root string) error {
	if s.Dir == "" {
		s.Dir = filepath.Join(root, s.Name)
	}
	if s.QueryTraj == "" {
		s.QueryTraj = filepath.Join(s.Dir, DefaultQueryName)
	}
	var err error
	for _, p := range []*string{&s.Dir, &s.QueryTraj, &s.TargetTraj} {
		if *p, err = filepath.Abs(*p); err != nil {
			return errs.Wrap(err, "state "+s.Name+": resolve path")
		}
	}
	return nil
}

// alphaForm 預設：pair 為 linear，其餘為 constant
func (s *State) alphaForm(kind potential.Kind) potential.AlphaForm {
	if s.AlphaForm != "" {
		return s.AlphaForm
	}
	if kind == potential.Pair {
		return potential.AlphaLinear
	}
	return potential.AlphaConstant
}
