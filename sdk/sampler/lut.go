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
// 本檔案 (lut.go) 實作了查找表 (Look-Up Table) 加權抽樣演算法。
//
// 演算法原理：
//   - 空間換時間：將權重展開為一個長陣列，每個索引出現的次數等於其權重。
//   - 抽樣：直接生成一個隨機索引存取陣列，即為 O(1) 操作。
//
// 特性：
//   - 建表時間：O(sum(weights))
//   - 抽樣時間：O(1)，極快，只需一次 IntN。
//   - 空間複雜度：O(sum(weights))，與權重總和成正比。
//
// 適用場景：
//   - 權重皆為整數值且總和較小 (建議 < 100,000)。
//   - 對抽樣效能有極致要求 (比 AliasTable 少一次隨機數生成)。
//
// 對比 AliasTable：
//   - 當權重總和很大或含非整數值時，應選用 AliasTable。

package sampler

import (
	"math"

	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
)

const maxLUTCap uint64 = 10_000_000 // 約 80MB (int slice)

// LUT 是「以空間換取時間」的加權抽樣：
// 建表時直接展開所有權重，抽樣時只做一次 IntN。
//
// 舉例 :
//
// 三個類別，對應權重分別為[3,5,0]
//
// i.e. 權重總和為 8
//
// 抽到第一個類別(idx = 0)的機率為 3/8
// 抽到第二個類別的機率為 5/8 抽到第三個類別的機率為 0/8
//
// LUT 轉換展開 -> [0,0,0,1,1,1,1,1] 從 Slice 當中直接取一個值即符合抽樣
//
// 基本判斷原則：
// 權重為整數值且總和在 100_000 以下建議使用 LUT，否則建議 AliasTable
type LUT []int

// BuildLUT 根據整數權重列表建立查找表。
//
// src 為任意非負整數權重列表（支援各種 Integers 約束），
// 負權重、全零或總和超過容量上限會回傳參數錯誤。
//
// 建表流程：
// 1. 先累加 acc 取得權重總和，用來預先配置 lut 容量。
// 2. 對每個元素 i，將其索引重複寫入 lut v 次（v 為權重）。
func BuildLUT[T Integers](src []T) (LUT, error) {
	if len(src) == 0 {
		return nil, errs.NewWarn("lut: weights must not be empty")
	}

	acc := uint64(0)
	// 累加權重總和，用於後續預估 LUT 長度並避免 overflow
	for i, v := range src {
		if v < 0 {
			return nil, errs.Warnf("lut: weight[%d] is negative", i)
		}
		uv := uint64(v)
		if acc > math.MaxUint64-uv {
			return nil, errs.NewWarn("lut: total weight overflow uint64 range")
		}
		acc += uv
	}

	if acc == 0 {
		return nil, errs.NewWarn("lut: all weights are zero")
	}

	if acc > maxLUTCap {
		return nil, errs.Warnf("lut: total weight %d exceeds limit %d, use alias table instead", acc, maxLUTCap)
	}

	lut := make([]int, 0, int(acc))
	for i, v := range src {
		// 將索引 i 重複寫入 v 次，建立展開後的查找表
		for j := T(0); j < v; j++ {
			lut = append(lut, i)
		}
	}
	return lut, nil
}

// BuildLUTFromWeights 由浮點權重建立查找表。
//
// 每個權重必須恰為非負整數值（如 3.0、120.0）；
// 含小數部分的權重無法展開成查找表，回傳參數錯誤並建議改用 AliasTable。
func BuildLUTFromWeights(weights []float64) (LUT, error) {
	src := make([]int, len(weights))
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errs.Warnf("lut: weight[%d] = %v is not finite", i, w)
		}
		if w < 0 {
			return nil, errs.Warnf("lut: weight[%d] = %v is negative", i, w)
		}
		if math.Trunc(w) != w || w > float64(maxLUTCap) {
			return nil, errs.Warnf("lut: weight[%d] = %v is not a small integer value, use alias table instead", i, w)
		}
		src[i] = int(w)
	}
	return BuildLUT(src)
}

// Draw 會透過 Core 的 RNG 從 LUT 中隨機位置取一個值
// 若 lut 為空，回傳 -1
// LUT 抽樣是 O(1)
func (l LUT) Draw(c *core.Core) int {
	return c.Pick(l)
}

// LUTEngine 以查找表實作抽樣引擎。
// 查找表本身不保留尾端零權重類別的資訊，類別數另外記錄。
type LUTEngine struct {
	Table LUT
	Size  int
}

// BuildLUTEngine 由浮點權重建立查找表抽樣引擎。
func BuildLUTEngine(weights []float64) (*LUTEngine, error) {
	table, err := BuildLUTFromWeights(weights)
	if err != nil {
		return nil, err
	}
	return &LUTEngine{Table: table, Size: len(weights)}, nil
}

// Draw 抽出一個類別索引。
func (e *LUTEngine) Draw(c *core.Core) int {
	return e.Table.Draw(c)
}

// K 回傳類別數。
func (e *LUTEngine) K() int {
	return e.Size
}
