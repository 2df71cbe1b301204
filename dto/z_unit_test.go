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

package dto

import (
	"encoding/json"
	"testing"

	"github.com/zintix-labs/distlab/spec"
)

func TestDrawRequestJSONRoundTrip(t *testing.T) {
	in := DrawRequest{
		DistName: "LootTable",
		DistId:   spec.DID("loot_table"),
		Rounds:   3,
		CoreSnap: "AAECAwQFBgc",
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	out := new(DrawRequest)
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.DistName != in.DistName || out.DistId != in.DistId || out.Rounds != in.Rounds {
		t.Fatalf("unexpected request: %+v", out)
	}
	// 快照欄位是回放合約的一部分，不能在 wire 上丟失
	if out.CoreSnap != in.CoreSnap {
		t.Fatalf("unexpected core snap: %q", out.CoreSnap)
	}
}

func TestDrawResultJSONRoundTrip(t *testing.T) {
	in := DrawResult{
		DistName: "LootTable",
		DistId:   spec.DID("loot_table"),
		Sampler:  spec.SamplerLinear,
		Rounds:   2,
		Outcomes: []DrawOutcome{
			{Index: 0, Label: "common"},
			{Index: 4, Label: "legendary"},
		},
		StartCoreSnapB64U: "c3RhcnQ",
		AfterCoreSnapB64U: "YWZ0ZXI",
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	out := new(DrawResult)
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.Sampler != spec.SamplerLinear || out.Rounds != 2 {
		t.Fatalf("unexpected result: %+v", out)
	}
	if len(out.Outcomes) != 2 || out.Outcomes[1].Label != "legendary" {
		t.Fatalf("unexpected outcomes: %+v", out.Outcomes)
	}
	if out.StartCoreSnapB64U != in.StartCoreSnapB64U || out.AfterCoreSnapB64U != in.AfterCoreSnapB64U {
		t.Fatalf("snapshot fields lost on round trip: %+v", out)
	}
}
