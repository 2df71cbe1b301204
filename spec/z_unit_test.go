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

import "testing"

const sampleYAML = `
dist_name: "demo_loot"
dist_id: "loot-01"
sampler_key: "alias"
weights: [0.0, 3.0, 1.0, 1.0]
labels: ["none", "common", "rare", "epic"]
fixed:
  note: "weekly event table"
`

func TestGetDistSettingByYAML(t *testing.T) {
	ds, err := GetDistSettingByYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ds.DistID != "loot-01" || ds.SamplerKey != SamplerAlias {
		t.Fatalf("unexpected setting: %+v", ds)
	}
	if len(ds.Weights) != 4 || ds.Weights[1] != 3.0 {
		t.Fatalf("weights not decoded: %v", ds.Weights)
	}
	if ds.Label(2) != "rare" {
		t.Fatalf("Label(2) = %s", ds.Label(2))
	}
	if ds.Label(99) != "#99" {
		t.Fatalf("Label(99) = %s", ds.Label(99))
	}
}

func TestGetDistSettingByJSON(t *testing.T) {
	data := []byte(`{"dist_name":"j","dist_id":"j-1","weights":[1,2]}`)
	ds, err := GetDistSettingByJSON(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	// sampler_key 未指定時預設 linear
	if ds.SamplerKey != SamplerLinear {
		t.Fatalf("default sampler key = %s, want linear", ds.SamplerKey)
	}
}

func TestDistSettingValidation(t *testing.T) {
	cases := map[string]string{
		"no name":       `{"dist_id":"x","weights":[1]}`,
		"no id":         `{"dist_name":"x","weights":[1]}`,
		"no weights":    `{"dist_name":"x","dist_id":"x"}`,
		"label length":  `{"dist_name":"x","dist_id":"x","weights":[1,2],"labels":["a"]}`,
	}
	for name, data := range cases {
		if _, err := GetDistSettingByJSON([]byte(data)); err == nil {
			t.Errorf("[%s] expected validation error", name)
		}
	}
}

func TestDecodeFixed(t *testing.T) {
	ds, err := GetDistSettingByYAML([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	type fixed struct {
		Note string `yaml:"note"`
	}
	var f fixed
	if err := DecodeFixed(ds, &f); err != nil {
		t.Fatalf("DecodeFixed failed: %v", err)
	}
	if f.Note != "weekly event table" {
		t.Fatalf("unexpected fixed: %+v", f)
	}

	// 未知欄位必須報錯 (KnownFields)
	type wrong struct {
		Other string `yaml:"other"`
	}
	var w wrong
	if err := DecodeFixed(ds, &w); err == nil {
		t.Fatalf("expected strict decode error")
	}
}
