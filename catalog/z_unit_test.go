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

package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/zintix-labs/distlab/spec"
)

func demoFS() fstest.MapFS {
	return fstest.MapFS{
		"loot.yaml": &fstest.MapFile{Data: []byte(`
dist_name: "loot"
dist_id: "d-loot"
weights: [0.0, 3.0, 1.0, 1.0]
`)},
		"coin.json": &fstest.MapFile{Data: []byte(`{"dist_name":"coin","dist_id":"d-coin","weights":[1,1]}`)},
	}
}

func TestCatalogRegisterAndLookup(t *testing.T) {
	c, err := New(demoFS())
	if err != nil {
		t.Fatalf("new catalog failed: %v", err)
	}
	err = c.Register(
		Entry{DID: "d-loot", Name: "Loot", ConfigName: "loot.yaml"},
		Entry{DID: "d-coin", Name: "coin", ConfigName: "coin.json"},
	)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// 名稱查詢大小寫不敏感：混合大小寫註冊的名稱，任何寫法都要命中
	for _, q := range []string{"Loot", "loot", "LOOT"} {
		ent, ok := c.GetByName(q)
		if !ok {
			t.Fatalf("GetByName(%q) should be case-insensitive", q)
		}
		if ent.Name != "loot" {
			t.Fatalf("stored entry name should be normalized, got %q", ent.Name)
		}
	}

	ds, err := c.DistSettingById("d-loot")
	if err != nil {
		t.Fatalf("DistSettingById failed: %v", err)
	}
	if ds.DistName != "loot" || len(ds.Weights) != 4 {
		t.Fatalf("unexpected setting: %+v", ds)
	}

	js, err := c.DistSettingByName("coin")
	if err != nil {
		t.Fatalf("DistSettingByName failed: %v", err)
	}
	if js.SamplerKey != spec.SamplerLinear {
		t.Fatalf("json setting should default to linear, got %s", js.SamplerKey)
	}
}

func TestCatalogRejects(t *testing.T) {
	c, err := New(demoFS())
	if err != nil {
		t.Fatalf("new catalog failed: %v", err)
	}

	if err := c.Register(Entry{DID: "x", Name: "x", ConfigName: "missing.yaml"}); err == nil {
		t.Fatalf("expected error for missing config file")
	}
	if err := c.Register(Entry{DID: "x", Name: "x", ConfigName: "sub/loot.yaml"}); err == nil {
		t.Fatalf("expected error for path in config name")
	}

	if err := c.Register(Entry{DID: "d-loot", Name: "loot", ConfigName: "loot.yaml"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := c.Register(Entry{DID: "d-loot", Name: "other", ConfigName: "coin.json"}); err == nil {
		t.Fatalf("expected duplicate id error")
	}

	c.Freeze()
	if err := c.Register(Entry{DID: "d-new", Name: "new", ConfigName: "coin.json"}); err == nil {
		t.Fatalf("expected frozen error")
	}
}

func TestMultiFSRejectsSubdirs(t *testing.T) {
	nested := fstest.MapFS{
		"sub/loot.yaml": &fstest.MapFile{Data: []byte("dist_name: x")},
	}
	if _, err := New(nested); err == nil {
		t.Fatalf("expected error for nested config FS")
	}
}
