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

// Package app 管理長時間運行元件（HTTP server、背景優化工作）的啟動與關閉。
package app

import (
	"context"
	"sync"
)

// Component 可啟動 / 可關閉的元件。
//   - Run() 阻塞直到元件停止（正常或錯誤）。
//   - Shutdown(ctx) 要求優雅關閉，需尊重 ctx deadline。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}

// Job 把一個吃 context 的函數包成 Component：Shutdown 取消 context 並等待函數返回。
type Job struct {
	fn     func(ctx context.Context) error
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func NewJob(fn func(ctx context.Context) error) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	return &Job{fn: fn, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

func (j *Job) Run() error {
	defer j.once.Do(func() { close(j.done) })
	return j.fn(j.ctx)
}

func (j *Job) Shutdown(ctx context.Context) error {
	j.cancel()
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
