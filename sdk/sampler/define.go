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
// 本檔案 (define.go) 定義了 sampler 套件中通用的泛型約束 (Generic Constraints)
// 與抽樣引擎的共同介面。
//
// 目的：
//   - 統一數值型別的定義，支援各類整數與浮點數。
//   - 讓不同建表策略（線性掃描 / Alias Table / LUT）在機台層可互換。

package sampler

import "github.com/zintix-labs/distlab/sdk/core"

// Integers 定義所有底層實現為整數型別的集合
type Integers interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Floaters 定義所有底層實現為浮點數型別的集合
type Floaters interface {
	~float32 | ~float64
}

// Numbers 定義所有底層實現為數值型別的集合（整數與浮點數）
type Numbers interface {
	Integers | Floaters
}

// Drawer is the sampling engine contract.
// Implementations should be fast and allocation-free on the hot path.
//
// Draw must return an index in [0, K()); all engines built from the same
// weights produce the same outcome distribution, they differ only in build
// cost and per-draw cost. Engines are read-only after construction.
type Drawer interface {
	Draw(c *core.Core) int
	K() int
}
