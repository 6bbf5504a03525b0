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

package main

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/zintix-labs/msibi/recorder"
)

// runTest 清掉 test cache 後跑 go test ./...；detail=false 時只留下 ok / FAIL 與建置錯誤
func runTest(detail bool) error {
	printc(colorGreen, "running tests")
	if err := exec.Command("go", "clean", "-testcache").Run(); err != nil {
		printc(colorYellow, "go clean -testcache: "+err.Error())
	}
	args := []string{"test", "./...", "-count=1"}
	if detail {
		args = append(args, "-v")
	} else {
		args = append(args, "-cover")
	}
	cmd := exec.Command("go", args...)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start go test: %w", err)
	}
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.Contains(line, "[no test files]"):
		case strings.HasPrefix(line, "ok"):
			printc(colorGreen, line)
		case strings.HasPrefix(line, "FAIL"), strings.HasPrefix(line, "--- FAIL"),
			strings.Contains(line, "build failed"), strings.Contains(line, "setup failed"):
			printc(colorRed, line)
		case detail:
			fmt.Println(line)
		}
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("tests finished with errors")
	}
	return nil
}

// printHistory 每輪一列：iteration、每個勢能跨 state 的平均分數
func printHistory(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	hist, err := recorder.LoadHistory(f)
	if err != nil {
		return err
	}
	for _, rec := range hist {
		names := make([]string, 0, len(rec.Fits))
		for name := range rec.Fits {
			names = append(names, name)
		}
		sort.Strings(names)
		var b strings.Builder
		fmt.Fprintf(&b, "iter %3d", rec.Iteration)
		for _, name := range names {
			sum := 0.0
			for _, sf := range rec.Fits[name] {
				sum += sf.Fit
			}
			fmt.Fprintf(&b, "  %s=%.4f", name, sum/float64(max(1, len(rec.Fits[name]))))
		}
		fmt.Println(b.String())
	}
	return nil
}
