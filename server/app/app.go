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

package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zintix-labs/msibi/logger"
)

// DefaultGrace 關閉時給每個元件的總時限
const DefaultGrace = 5 * time.Second

// App 啟動所有 Component，收到 OS 信號、ctx 結束或任一 Component 返回時統一關閉。
type App struct {
	comps []Component
	log   *slog.Logger
	grace time.Duration
}

func New(log *slog.Logger) *App {
	if log == nil {
		log = logger.Discard()
	}
	return &App{log: log, grace: DefaultGrace}
}

// NewWith 建立時直接註冊多個 Component
func NewWith(log *slog.Logger, comps ...Component) *App {
	a := New(log)
	for _, c := range comps {
		a.Register(c)
	}
	return a
}

func (a *App) Register(c Component) {
	if c != nil {
		a.comps = append(a.comps, c)
	}
}

// Run 並行執行所有 Component 並阻塞。
//   - OS 信號或 ctx 結束：關閉後回傳 nil。
//   - 任一 Component 返回：關閉其他元件後回傳它的錯誤（可能為 nil）。
func (a *App) Run(ctx context.Context) error {
	if len(a.comps) == 0 {
		return nil
	}
	errCh := make(chan error, len(a.comps))
	for _, c := range a.comps {
		go func(c Component) {
			errCh <- c.Run()
		}(c)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var err error
	select {
	case sig := <-quit:
		a.log.Info("app: signal received", slog.String("signal", sig.String()))
	case <-ctx.Done():
	case err = <-errCh:
	}
	a.gracefulShutdown(a.grace)
	return err
}

// gracefulShutdown 在 td 內依序呼叫所有 Component.Shutdown
func (a *App) gracefulShutdown(td time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), td)
	defer cancel()
	for _, c := range a.comps {
		if err := c.Shutdown(ctx); err != nil {
			a.log.Warn("app: shutdown", slog.Any("err", err))
		}
	}
}
