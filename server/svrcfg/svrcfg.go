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

// Package svrcfg 狀態伺服器的依賴注入設定
package svrcfg

import (
	"log/slog"

	"github.com/zintix-labs/msibi"
	"github.com/zintix-labs/msibi/errs"
	"github.com/zintix-labs/msibi/logger"
	"github.com/zintix-labs/msibi/recorder"
	"github.com/zintix-labs/msibi/server/netsvr"
)

type SvrCfg struct {
	Log      *slog.Logger
	Addr     string
	Recorder *recorder.FitRecorder
	Session  *msibi.Session // 可為 nil；有注入時 /v1/status 附帶 query pool 指標
}

func (sc *SvrCfg) Valid() error {
	if sc == nil {
		return errs.Configf("server config is nil")
	}
	if sc.Log == nil {
		sc.Log = logger.Discard()
	}
	if sc.Addr == "" {
		sc.Addr = netsvr.DefaultAddr
	}
	if sc.Recorder == nil {
		return errs.Configf("server: fit recorder is required")
	}
	return nil
}
