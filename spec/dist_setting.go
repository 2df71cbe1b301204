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

package spec

import (
	"fmt"

	"github.com/zintix-labs/distlab/errs"
)

// DistSetting 包含啟動一個抽樣機台所需的所有高階設定。
//
// Weights 是未正規化的類別權重，索引即結果標籤。
// 權重的數值檢查（NaN / 負值 / 全零）在分布建構時執行，
// 這裡只做設定檔層級的結構檢查。
type DistSetting struct {
	DistName   string         `yaml:"dist_name"   json:"dist_name"`
	DistID     DID            `yaml:"dist_id"     json:"dist_id"`
	SamplerKey SamplerKey     `yaml:"sampler_key" json:"sampler_key"`
	Weights    []float64      `yaml:"weights"     json:"weights"`
	Labels     []string       `yaml:"labels"      json:"labels"`
	Fixed      map[string]any `yaml:"fixed"       json:"fixed"`
}

// init
func (ds *DistSetting) init() error {
	if ds.SamplerKey == "" {
		ds.SamplerKey = SamplerLinear
	}
	return ds.valid()
}

// valid 執行最基本的設定檔檢查，如需更多驗證可在此擴充。
func (ds *DistSetting) valid() error {

	if ds.DistName == "" {
		return errs.NewFatal("empty dist_name")
	}
	if ds.DistID == "" {
		return errs.NewFatal(fmt.Sprintf("dist_name: %s err:empty dist_id", ds.DistName))
	}

	// valid Weights
	if len(ds.Weights) == 0 {
		return errs.NewFatal(fmt.Sprintf("dist_name: %s err:empty weights", ds.DistName))
	}

	// Labels 可省略；有提供時長度必須對齊權重
	if len(ds.Labels) > 0 && len(ds.Labels) != len(ds.Weights) {
		return errs.NewFatal(fmt.Sprintf("dist_name: %s err:labels length %d != weights length %d",
			ds.DistName, len(ds.Labels), len(ds.Weights)))
	}

	return nil
}

// Label 回傳結果 i 的顯示名稱；未提供 Labels 時回傳索引字串。
func (ds *DistSetting) Label(i int) string {
	if i >= 0 && i < len(ds.Labels) {
		return ds.Labels[i]
	}
	return fmt.Sprintf("#%d", i)
}
