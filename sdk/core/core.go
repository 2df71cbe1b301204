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

// Package core 提供 distlab 的亂數核心（PRNG）抽象與預設實作。
//
// 分布（sdk/dist）與抽樣器（sdk/sampler）都把亂數視為「注入的 capability」：
// 它們從不自行持有或播種亂數來源，只在每次抽樣時消耗一個均勻亂數。
// 這讓同一份權重設定可以搭配任何 PRNG 實作達成可重現（reproducible）與可審計（auditable）。
package core

import "math"

// PRNG 定義 Core 所需的亂數來源，需同時支援取樣與狀態保存/還原。
type PRNG interface {
	RAND
	Restorable
}

// Restorable 定義可快照與還原的狀態介面。
type Restorable interface {
	// Snapshot 回傳可用於還原的序列化狀態。
	Snapshot() ([]byte, error)
	// Restore 依序列化狀態還原 PRNG 內部狀態。
	Restore([]byte) error
}

// RAND 定義核心亂數取樣能力。
//
// 為什麼要求同時提供 4 個方法（Uint64 / Float64 / UintN / IntN），而不是只要求 Uint64？
//
//  1. 允許實作針對 32-bit / 64-bit 平台做最佳化：
//     有些 PRNG 的原生輸出寬度是 32-bit（例如 PCG32），若合約只要求 Uint64，
//     所有實作都被迫走「先產生 uint64 再裁切」的路徑。bounded 生成（IntN/UintN）
//     也因 PRNG 而異，交由實作自行挑選最合適的無偏策略。
//
//  2. Float64 的精度與生成方式應由 PRNG 決定：
//     53-bit mantissa 與 32-bit 精度各有取捨，讓實作明確表達自己的選擇。
type RAND interface {
	// Uint64 回傳非負 uint64 亂數。
	Uint64() uint64
	// Float64 回傳 [0,1) 的浮點亂數。
	Float64() float64
	// UintN 回傳 [0,max) 的 uint 亂數，若 max == 0 回傳 0。
	UintN(uint) uint
	// IntN 回傳 [0,max) 的 int 亂數，若 max <= 0 回傳 -1。
	IntN(int) int
}

type PRNGFactory interface {
	// New 以指定 seed 建立新的 PRNG。
	//
	// 合約（很重要）：在同一個實作與同一個版本下，New(seed) 必須是「決定性」的——
	// 相同的 seed 必須產生相同的初始內部狀態與輸出序列。
	//
	// seed 的生命週期由 Distlab 統一管理：外部未提供時由 Distlab 產生並保存 baseSeed，
	// 後續所有 Machine/Simulator 皆由 baseSeed 以固定算法派生子 seed。
	// 因此 Distlab 內部永遠不需要「不帶 seed 的 New()」。
	New(int64) PRNG
}

// DefaultPRNG 實作預設的 PRNGFactory（PCG64）。
type DefaultPRNG struct{}

// New 滿足合約
func (d *DefaultPRNG) New(seed int64) PRNG {
	return NewPCG64WithSeed(seed)
}

func Default() *DefaultPRNG {
	return &DefaultPRNG{}
}

// PCG32Factory 是 32-bit 輸出的替代 PRNGFactory。
// 適合在 32-bit 平台或需要較小快照時替換預設核心。
type PCG32Factory struct{}

func (f *PCG32Factory) New(seed int64) PRNG {
	return NewPCG32WithSeed(seed)
}

func Default32() *PCG32Factory {
	return &PCG32Factory{}
}

// Core 封裝 PRNG，並提供常用取樣與工具方法。
type Core struct {
	PRNG
}

// New 允許使用外部自實現的 PRNG 建立 Core。
func New(rng PRNG) *Core {
	return &Core{rng}
}

// Pick 從列表中隨機選取一個元素，若列表為空回傳 -1
// 熱路徑中只使用哨兵值回傳
func (c *Core) Pick(src []int) int {
	if len(src) == 0 {
		return -1
	}
	idx := c.IntN(len(src))
	return src[idx]
}

// ExpFloat64 回傳參數 1 的指數分布亂數（反函數法）。
//
// 使用 -ln(1-U)：U 在 [0,1)，1-U 在 (0,1]，保證 log 的輸入永不為 0，
// 因此回傳值永遠是有限正數。
func (c *Core) ExpFloat64() float64 {
	return -math.Log(1.0 - c.Float64())
}

// ShuffleInts 使用 Fisher-Yates (亦稱 Knuth Shuffle) 演算法
// 對 []int 進行「就地 (In-place)」隨機重排。
//
// 演算法特性：
//
//  1. 公平性 (Unbiased)：
//     所有 N! 種排列出現的機率嚴格相等 (1/N!)。
//
//  2. 效能：
//     時間複雜度 O(N)、空間複雜度 O(1)，零額外配置。
func (c *Core) ShuffleInts(src []int) {
	if len(src) <= 1 {
		return
	}

	for i := len(src) - 1; i > 0; i-- {
		j := c.IntN(i + 1)
		src[i], src[j] = src[j], src[i]
	}
}
