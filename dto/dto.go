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

// Package dto 定義對外（HTTP/JSON）的請求與回應結構。
//
// 內部熱路徑使用原始 int 落點；只有在對外回應時才組裝 DTO。
package dto

import (
	"github.com/zintix-labs/distlab/spec"
)

// DrawRequest 單次抽樣請求
type DrawRequest struct {
	DistName string   `json:"dist_name"`
	DistId   spec.DID `json:"dist_id"`
	Rounds   int      `json:"rounds"`    // 一次請求抽幾筆，預設 1
	CoreSnap string   `json:"core_snap"` // 可選：base64url 的 Core 快照，指定抽樣起點
}

// DrawOutcome 單筆抽樣結果
type DrawOutcome struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// DrawResult 抽樣回應
//
// Start/After 快照讓呼叫端可以審計與重現整段抽樣序列。
type DrawResult struct {
	DistName string          `json:"dist_name"`
	DistId   spec.DID        `json:"dist_id"`
	Sampler  spec.SamplerKey `json:"sampler"`
	Rounds   int             `json:"rounds"`
	Outcomes []DrawOutcome   `json:"outcomes"`

	StartCoreSnapB64U string `json:"start_core_snap_b64u"`
	AfterCoreSnapB64U string `json:"after_core_snap_b64u"`
}
