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
// 本檔案 (aliastable.go) 實作了 Vose's Alias Method 加權抽樣演算法。
//
// 演算法原理：
//   - 將任意離散分佈轉換為均勻分佈的組合。
//   - 每個槽位 (Bucket) 只存放「自己」和「別名 (Alias)」兩個選項。
//   - 抽樣時先選槽位，再根據機率決定是自己還是別名。
//
// 特性：
//   - 建表時間：O(k)，線性時間。
//   - 抽樣時間：O(1)，穩定且高效。每次 Draw 固定一次 IntN 加一次 Float64。
//   - 空間複雜度：O(k)，與類別數量成正比，與權重總和無關。
//
// 適用場景：
//   - 類別數量較多，線性掃描的 O(k) 抽樣開始吃緊。
//   - 權重差異懸殊。

package sampler

import (
	"math"

	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
)

// AliasTable 是 Vose Alias Method 的 O(1) 加權抽樣結構。
//
// 結構欄位說明：
// - Prob: 每個槽位的「留在自己」機率，已放大 k 倍（p[i] = w[i]*k/total）。
// - Aliases: 別名索引，機率不足的槽位指向補足機率的類別。
// - Size: 槽位數量，即類別數量。
//
// 權重為浮點數，small/large 分桶的殘差會因捨入落在 1.0 附近；
// 收尾時剩餘槽位的 Prob 一律補成 1.0，維持總機率不變。
// 零權重類別的 Prob 恆為 0，抽中槽位時必走 alias，永不選中自己。
type AliasTable struct {
	Prob    []float64
	Aliases []int
	Size    int
}

// BuildAliasTable 根據輸入的權重(weights)建立 AliasTable。
//
// 輸入 weights 說明：
// - weights 為任意非負浮點權重陣列，不需事先正規化。
// - 權重可為零，但空陣列、負值、NaN、非有限值或全零會回傳參數錯誤。
//
// 演算法流程條列：
// 1) 將每個權重 w 放大 k 倍再除以總和，得到 prob（期望值 1.0）。
// 2) 依 prob[i] 與 1.0 比較，分類索引到 small 或 large。
// 3) 從 small 和 large 各取一個元素 s, l，將 l 指派為 s 的 alias，並調整 l 的 prob。
// 4) 重複直到 small 或 large 空，剩餘槽位 prob 補成 1.0。
// 5) 返回建好的 AliasTable 結構。
func BuildAliasTable(weights []float64) (*AliasTable, error) {
	if len(weights) == 0 {
		return nil, errs.NewWarn("aliastable: weights must not be empty")
	}

	n := len(weights)
	total := 0.0
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, errs.Warnf("aliastable: weight[%d] = %v is not finite", i, w)
		}
		if w < 0 {
			return nil, errs.Warnf("aliastable: weight[%d] = %v is negative", i, w)
		}
		total += w
	}
	if total == 0 {
		return nil, errs.NewWarn("aliastable: all weights are zero")
	}

	prob := make([]float64, n)
	aliases := make([]int, n)

	small := make([]int, 0)
	large := make([]int, 0)

	scale := float64(n) / total
	for i, w := range weights {
		prob[i] = w * scale // 放大 k 倍，期望每槽位 1.0
		if prob[i] < 1.0 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		aliases[s] = l                    // 把 s 的剩餘機率補到 l，建立別名關係
		prob[l] = prob[l] + prob[s] - 1.0 // 調整 l 的機率，維持 sum(prob) = n 的不變性

		if prob[l] < 1.0 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}

	// 浮點捨入的殘差槽位，理論值即為 1.0
	for _, i := range large {
		prob[i] = 1.0
	}
	for _, i := range small {
		if prob[i] > 0 {
			prob[i] = 1.0
		}
	}

	return &AliasTable{
		Prob:    prob,
		Aliases: aliases,
		Size:    n,
	}, nil
}

// Draw 從 AliasTable 中抽取一個索引。
//
// 抽樣步驟說明：
//
// 1) 使用 c.IntN(Size) 隨機選擇一個槽位 idx。
//
// 2) 使用 c.Float64() 隨機投票，判斷是直接選擇 idx，或使用其 alias。
//
// 3) 判斷條件為 Float64() < Prob[idx]。
//
// 零權重類別的 Prob[idx] 為 0，Float64() < 0 永不成立，必走 alias，
// 因此零權重索引永不被回傳。
func (at *AliasTable) Draw(c *core.Core) int {
	idx := c.IntN(at.Size)
	if c.Float64() < at.Prob[idx] {
		return idx
	}
	return at.Aliases[idx]
}

// K 回傳類別數。
func (at *AliasTable) K() int {
	return at.Size
}
