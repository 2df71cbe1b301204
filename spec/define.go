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

// Package spec 定義分布設定檔的結構與解碼流程。
package spec

// DID 是分布設定的唯一識別碼（distribution ID）。
type DID string

// SamplerKey 指定機台抽樣引擎的實作。
//
// 所有引擎對同一組權重產生相同的結果分布，差異只在建表成本與抽樣成本：
//   - linear：零建表成本，抽樣 O(k) 線性反 CDF 掃描。k 小時的預設選擇。
//   - alias：建表 O(k)，抽樣 O(1)。k 大或熱路徑吃緊時使用。
//   - lut：建表 O(sum(weights))，抽樣 O(1)。權重須為小整數值。
type SamplerKey string

const (
	SamplerLinear SamplerKey = "linear"
	SamplerAlias  SamplerKey = "alias"
	SamplerLUT    SamplerKey = "lut"
)
