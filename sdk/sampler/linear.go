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

// Package sampler 提供一系列高效能的加權抽樣演算法與工具。
//
// 本檔案 (linear.go) 實作線性反 CDF 抽樣引擎。
//
// 特性：
//   - 建表時間：O(k)（只做前綴和）。
//   - 抽樣時間：O(k)，一次 Float64。
//   - 空間複雜度：O(k)。
//
// 適用場景：
//   - 類別數 k 很小（常見情況），線性掃描比建表值得。
//   - 需要同時查 CDF / Mean 等統計量時，底層分布可直接取用。

package sampler

import (
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/sdk/dist"
)

// Linear 直接包裝類別分布的線性反 CDF 抽樣。
// 這是預設引擎：每次 Draw 消耗一次均勻亂數，沿未正規化
// 前綴和陣列前進到第一個覆蓋 draw 值的索引。
type Linear struct {
	d *dist.Categorical
}

// BuildLinear 依未正規化權重建立線性抽樣引擎。
// 權重檢查（空、負值、NaN、非有限、全零）由分布建構執行。
func BuildLinear(weights []float64) (*Linear, error) {
	d, err := dist.New(weights)
	if err != nil {
		return nil, err
	}
	return &Linear{d: d}, nil
}

// WrapDist 直接以既有分布建立線性引擎，不重新驗證。
func WrapDist(d *dist.Categorical) *Linear {
	return &Linear{d: d}
}

// Draw 抽出一個類別索引。
func (l *Linear) Draw(c *core.Core) int {
	return l.d.Sample(c)
}

// K 回傳類別數。
func (l *Linear) K() int {
	return l.d.K()
}

// Dist 回傳底層分布，供統計查詢使用。
func (l *Linear) Dist() *dist.Categorical {
	return l.d
}
