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

// Package dist 實作類別分布（categorical / generalized Bernoulli distribution）：
// k 個帶權重的離散結果 {0, …, k-1}，權重不需事先正規化。
//
// Categorical 是不可變值型別：建構後只提供唯讀查詢（CDF / Mean / Min / Max）
// 與抽樣（Sample）。亂數來源由呼叫端注入，本套件從不持有或播種亂數。
//
// 錯誤處理走兩條通道：
//   - 參數問題（空權重、負數、NaN、非有限值、全零）回傳 errs.Warn 等級錯誤。
//   - CDF 定義域越界是 caller bug，直接 panic，不回傳哨兵值。
package dist

import (
	"fmt"
	"math"

	"github.com/zintix-labs/distlab/errs"
)

// UniformSource 提供 [0,1) 的均勻浮點亂數，每次呼叫恰消耗一次取樣。
// core.RAND、core.Core 都滿足此介面。
type UniformSource interface {
	Float64() float64
}

// Categorical 類別分布。
//
// 內部同時保存兩個陣列：
//   - cdf：原始權重的前綴和（未正規化），cdf[i] = w[0]+…+w[i]。
//     cdf[k-1] 即總權重（cdfMax）。
//   - normPmf：正規化機率質量，normPmf[i] = w[i] / cdf[k-1]。
//
// 抽樣與 CDF 查詢都走未正規化的 cdf 陣列，除法只在最後一步發生，
// 避免逐項正規化的捨入誤差累積。
type Categorical struct {
	normPmf []float64
	cdf     []float64
}

// New 依未正規化權重建立類別分布。
//
// 權重必須非空、每項為有限非負值、且至少一項嚴格大於零；
// 違反任一條件回傳參數錯誤，不會產生半建構物件。
// 輸入切片不被保留，呼叫端可自由重用。
func New(weights []float64) (*Categorical, error) {
	if len(weights) == 0 {
		return nil, errs.NewWarn("categorical: weights must not be empty")
	}

	cdf := make([]float64, len(weights))
	running := 0.0
	for i, w := range weights {
		if math.IsNaN(w) {
			return nil, errs.Warnf("categorical: weight[%d] is NaN", i)
		}
		if math.IsInf(w, 0) {
			return nil, errs.Warnf("categorical: weight[%d] is not finite", i)
		}
		if w < 0 {
			return nil, errs.Warnf("categorical: weight[%d] = %v is negative", i, w)
		}
		// 前綴和依輸入順序由左到右累加，cdf 索引與輸入位置一一對應
		running += w
		cdf[i] = running
	}
	if cdf[len(cdf)-1] == 0 {
		return nil, errs.NewWarn("categorical: weights must not be all zero")
	}

	total := cdf[len(cdf)-1]
	normPmf := make([]float64, len(weights))
	for i, w := range weights {
		normPmf[i] = w / total
	}

	return &Categorical{normPmf: normPmf, cdf: cdf}, nil
}

// MustNew 同 New，參數錯誤時 panic。供測試與靜態設定使用。
func MustNew(weights []float64) *Categorical {
	c, err := New(weights)
	if err != nil {
		panic(err)
	}
	return c
}

//---------------------------------------
// 抽樣
//---------------------------------------

// Sample 從分布抽出一個結果索引。
//
// 演算法為線性反 CDF 搜尋：取 u ∈ [0,1)，放大成 draw = u * cdf[k-1]，
// 從索引 0 前進到第一個滿足 draw <= cdf[idx] 的位置。
// 類別數通常很小，線性掃描比二分搜尋更划算。
//
// 邊界情況：draw 恰為 0.0 時，先跳過所有前導零權重類別——
// 零機率的結果在任何 draw 值下都不可被選中。
// 建構時已保證至少一個正權重，迴圈必在界內終止。
func (c *Categorical) Sample(rng UniformSource) int {
	draw := rng.Float64() * c.cdf[len(c.cdf)-1]
	idx := 0
	if draw == 0.0 {
		for c.cdf[idx] == 0.0 {
			idx++
		}
	}
	for draw > c.cdf[idx] {
		idx++
	}
	return idx
}

//---------------------------------------
// 查詢
//---------------------------------------

// CDF 回傳累積分布函數在 x 的值，x 視為 [0, k] 上的實數點。
//
// CDF 是右連續階梯函數，跳躍點在整數 0..k-1：
// 非整數 x ∈ (i, i+1) 的值與 x = i 相同；x == k 恰回傳 1.0。
//
// x 超出 [0, k] 是合約違反，直接 panic。
func (c *Categorical) CDF(x float64) float64 {
	k := len(c.cdf)
	if x < 0 || x > float64(k) {
		panic(fmt.Sprintf("categorical: cdf input %v outside [0, %d]", x, k))
	}
	if x == float64(k) {
		return 1.0
	}
	return c.cdf[int(math.Floor(x))] / c.cdf[k-1]
}

// Mean 回傳分布期望值 Σ i·normPmf[i]，依索引順序累加。
func (c *Categorical) Mean() float64 {
	mean := 0.0
	for i, p := range c.normPmf {
		mean += float64(i) * p
	}
	return mean
}

// Min 回傳支撐集最小值，恆為 0。
func (c *Categorical) Min() int {
	return 0
}

// Max 回傳支撐集最大值，恆為 k-1。
func (c *Categorical) Max() int {
	return len(c.cdf) - 1
}

// K 回傳類別數。
func (c *Categorical) K() int {
	return len(c.cdf)
}

// Pmf 回傳結果 i 的正規化機率質量；i 超出 [0, k) 時 panic。
func (c *Categorical) Pmf(i int) float64 {
	if i < 0 || i >= len(c.normPmf) {
		panic(fmt.Sprintf("categorical: pmf index %d outside [0, %d)", i, len(c.normPmf)))
	}
	return c.normPmf[i]
}

// NormPmf 回傳正規化機率質量陣列的複本。
func (c *Categorical) NormPmf() []float64 {
	out := make([]float64, len(c.normPmf))
	copy(out, c.normPmf)
	return out
}

// CdfMax 回傳未正規化總權重 cdf[k-1]。
func (c *Categorical) CdfMax() float64 {
	return c.cdf[len(c.cdf)-1]
}
