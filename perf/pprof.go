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

// Package perf 以 runtime/pprof 包住一次優化，供 CLI 的 -pprof 旗標使用。
package perf

import (
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"

	"github.com/zintix-labs/msibi/errs"
)

// DefaultDir pprof 檔案寫入路徑
const DefaultDir = "build/profiling"

// RunPProf 依 mode 決定要不要 profile；exe 的錯誤原樣回傳，profile 本身失敗則包成 Fatal。
//   - "" ：直接執行
//   - cpu / heap / allocs：輸出 {dir}/{mode}.pprof
func RunPProf(exe func() error, mode, dir string) error {
	if dir == "" {
		dir = DefaultDir
	}
	switch mode {
	case "":
		return exe()
	case "cpu":
		return PProfCPU(exe, dir)
	case "heap", "allocs":
		return PProfSnapshot(exe, mode, dir)
	}
	return errs.Configf("pprof mode %q not supported: want cpu, heap or allocs", mode)
}

func create(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(err, "perf: create profiling dir")
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, errs.Wrap(err, "perf: create "+name)
	}
	return f, nil
}

// PProfCPU exe 執行期間開啟 CPU profiling；輸出可直接拿來做 PGO。
func PProfCPU(exe func() error, dir string) error {
	f, err := create(dir, "cpu.pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if err := pprof.StartCPUProfile(f); err != nil {
		return errs.Wrap(err, "perf: start cpu profile")
	}
	defer pprof.StopCPUProfile()
	return exe()
}

// PProfSnapshot exe 結束後寫出一次 heap（in-use）或 allocs（累積配置）profile。
// heap 先跑一次 GC，讓快照貼近 live objects。
func PProfSnapshot(exe func() error, mode, dir string) error {
	runErr := exe()
	f, err := create(dir, mode+".pprof")
	if err != nil {
		return err
	}
	defer f.Close()
	if mode == "heap" {
		runtime.GC()
	}
	if prof := pprof.Lookup(mode); prof != nil {
		if err := prof.WriteTo(f, 0); err != nil {
			return errs.Wrap(err, "perf: write "+mode+" profile")
		}
	}
	return runErr
}
