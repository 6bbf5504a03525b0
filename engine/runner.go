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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/zintix-labs/msibi/errs"
)

// Runner 執行單一 state 的查詢模擬；成功時 job.QueryTraj 必須存在。
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// RunnerFunc 讓一般函式滿足 Runner
type RunnerFunc func(ctx context.Context, job Job) error

func (f RunnerFunc) Run(ctx context.Context, job Job) error { return f(ctx, job) }

// DefaultLogName 引擎 stdout/stderr 寫入的檔名
const DefaultLogName = "query.log"

// ExecRunner 以子行程執行 run script：Command + [script]，工作目錄為 job.Dir。
type ExecRunner struct {
	Command []string // 例如 ["python"]；空的時候使用 python3
	Retries int      // 失敗後重試次數
	LogName string
	Log     *slog.Logger
}

func (r *ExecRunner) Run(ctx context.Context, job Job) error {
	if job.Script == "" {
		return errs.Configf("engine: state %s has no run script", job.State)
	}
	command := r.Command
	if len(command) == 0 {
		command = []string{"python3"}
	}
	logName := r.LogName
	if logName == "" {
		logName = DefaultLogName
	}

	var last error
	for attempt := 0; attempt <= r.Retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		// 殘留的輸出不能被當成這次的結果
		if err := os.Remove(job.QueryTraj); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errs.Wrap(err, "engine: remove stale query trajectory")
		}
		last = r.runOnce(ctx, command, job, logName)
		if last == nil {
			return nil
		}
		if r.Log != nil {
			r.Log.Warn("query simulation failed", "state", job.State, "attempt", attempt+1, "err", last)
		}
	}
	return errs.External(last, "engine: query simulation failed", fmt.Sprintf("state=%s", job.State))
}

func (r *ExecRunner) runOnce(ctx context.Context, command []string, job Job, logName string) error {
	logf, err := os.Create(filepath.Join(job.Dir, logName))
	if err != nil {
		return err
	}
	defer logf.Close()

	args := append(append([]string{}, command[1:]...), job.Script)
	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Dir = job.Dir
	cmd.Stdout = logf
	cmd.Stderr = logf
	if err := cmd.Run(); err != nil {
		return err
	}
	st, err := os.Stat(job.QueryTraj)
	if err != nil {
		return fmt.Errorf("missing query trajectory: %w", err)
	}
	if st.Size() == 0 {
		return fmt.Errorf("empty query trajectory %s", job.QueryTraj)
	}
	return nil
}
