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

// Package netsvr 抽象狀態伺服器的 HTTP 層。
//
//   - NetRouter 只負責註冊路由與 middleware，handler 模組拿不到啟停控制權。
//   - NetSvr = NetRouter + app.Component，可以直接交給 app.App 管理生命週期。
package netsvr

import (
	"net/http"

	"github.com/zintix-labs/msibi/server/app"
)

type NetSvr interface {
	NetRouter
	app.Component
	Handler() http.Handler
}

// NetRouter 純路由行為。狀態伺服器是唯讀的，只開放 GET。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)
	Get(path string, h http.HandlerFunc)
	Group(path string, fn func(NetRouter))
}
