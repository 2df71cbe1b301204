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

// Package distlab 提供 Distlab 引擎的「組裝入口（assembler）」與「運行入口（runtime entry）」。
//
// 你可以把 Distlab 視為一個「可被後端/模擬器使用的 runtime」，它負責把下列三個必需的地基組裝在一起，並提供建立 Machine 的入口：
//  1. Catalog：分布目錄（Single Source of Truth / SSOT），定義有哪些分布、各自對應的設定檔名稱（ConfigName）。
//  2. sampler.Registry：引擎註冊表，提供「如何依據設定（SamplerKey）建出抽樣引擎」的 builders。
//  3. PRNGFactory：亂數核心工廠，保證可重現（reproducible）與可審計（auditable）。
//
// 設計重點：
//   - Distlab 本身不綁定任何「檔案路徑」概念：設定檔來源一律以 fs.FS 的形式注入。
//   - Machine 是對外提供 Draw 的最小單位。
//
// 典型使用情境：
//   - 後端服務（HTTP）：由 Distlab 建立 Machine/Runtime，對外提供 Draw。
//   - 模擬器（sim）：由 Distlab 建立多台 Machine 進行大量抽樣與統計驗證。
package distlab

import (
	"crypto/rand"
	"fmt"
	"io/fs"
	"math"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/zintix-labs/distlab/catalog"
	"github.com/zintix-labs/distlab/corefmt"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/sdk/sampler"
	"github.com/zintix-labs/distlab/spec"
)

// Configs 用來把一或多個設定檔來源（fs.FS）打包成 New() 需要的參數。
//
// 為什麼是 fs.FS：
//   - 你可以用 go:embed 把 configs 直接編進 binary（部署最穩定，不依賴工作目錄）。
//   - 也可以用 os.DirFS 在本機開發時讀取目錄。
//
// Distlab 不解析「路徑」：它只依賴 fs.FS + ConfigName（檔名）來取得設定內容。
func Configs(cfgs ...fs.FS) []fs.FS {
	return cfgs
}

// Samplers 用來把一或多個引擎註冊表打包成 New() 需要的參數。
//
// New() 會把多個 registries 合併成單一 registry；若出現重複 SamplerKey，會以 error 直接失敗（避免行為不確定）。
func Samplers(regs ...*sampler.Registry) []*sampler.Registry {
	return regs
}

// Distlab 是「組裝器（assembler）」與「運行入口（runtime entry）」。
//
// 使用流程通常分成兩階段：
//   - 註冊/組裝階段（registration/build）：建立 catalog、合併 registries、檢查重複與缺漏。
//   - 執行階段（runtime）：依據分布 ID 產生 Machine，並在 Machine 上執行 Draw。
//
// 重要設計原則：
//   - Catalog 的 ID 唯一性只保證在「同一個 Distlab instance」內。
//   - runtime 一旦開始（例如已建立 Machine 並對外服務），不建議再變更 Catalog/Registry。
type Distlab struct {
	cat *catalog.Catalog
	reg *sampler.Registry
	cf  core.PRNGFactory
	sum []catalog.Summary
}

// New 建立一個 Distlab instance。
//
// 這是「組裝階段（registration/build）」的入口：
//   - 會建立 Catalog（同時做檔名存在性/重複性檢查，避免 runtime 才爆）。
//   - 會合併多個 sampler.Registry 成為單一 registry（重複 SamplerKey 直接視為錯誤）。
//   - 會保存 PRNGFactory，確保由這個 Distlab 建出來的 Machine 在 RNG 行為上具有一致性。
//
// 參數要求（是合約的一部分）：
//   - cf 不能為 nil：沒有 RNG 工廠就無法建立可重現/可審計的核心。
//   - cfgs 至少一個：沒有設定檔來源，Catalog 無法解析 DistSetting。
//   - samplers 至少一個：沒有引擎 builders，就算解析出設定也無法抽樣。
func New(cf core.PRNGFactory, cfgs []fs.FS, samplers []*sampler.Registry) (*Distlab, error) {
	if cf == nil {
		return nil, errs.NewFatal("prng factory required")
	}
	if len(cfgs) == 0 {
		return nil, errs.NewFatal("configs required")
	}
	if len(samplers) == 0 {
		return nil, errs.NewFatal("sampler registry required")
	}
	cata, err := catalog.New(cfgs...)
	if err != nil {
		return nil, err
	}
	reg, err := sampler.MergeRegistry(samplers...)
	if err != nil {
		return nil, err
	}
	lab := &Distlab{
		cat: cata,
		reg: reg,
		cf:  cf,
	}
	return lab, nil
}

// NewAuto 建立一個直接進入執行階段的 Distlab instance。
func NewAuto(cf core.PRNGFactory, cfgs []fs.FS, samplers []*sampler.Registry) (*Distlab, error) {
	lab, err := New(cf, cfgs, samplers)
	if err != nil {
		return nil, err
	}
	if err := lab.RegisterAll(); err != nil {
		return nil, err
	}
	lab.Freeze()
	return lab, nil
}

func (p *Distlab) Register(ents ...catalog.Entry) error {
	return p.cat.Register(ents...)
}

// RegisterAll
//
// 會掃描 catalog 持有的設定檔來源（fs.FS），把所有可辨識的設定檔（.yaml/.yml/.json）嘗試解析成
// *spec.DistSetting，並用設定檔內宣告的 DistID/DistName 產生對應的 catalog.Entry 來批次註冊。
//
// 行為特性（重要）：
//  1. Fail-fast：任何一個檔案讀取/解析/基本檢查失敗，都會立刻回傳 error（不會忽略、也不會繼續掃完）。
//  2. 原子性：只有當「全部檔案」都成功解析並通過基本檢查時，才會呼叫 Register(...) 一次性寫入。
//  3. 穩定性：multiFS 會依檔名排序後再處理，確保行為 determinism。
//
// 注意：
//   - RegisterAll 只負責「把設定檔宣告的分布資訊放進 Catalog」。
//
// 抽樣引擎（sampler.Builder）是否支援該 SamplerKey，在這裡一併檢查，避免建機台時才爆。
func (p *Distlab) RegisterAll() error {
	cfgs := p.cat.Cfg()
	sources := cfgs.Sources()
	if len(sources) == 0 {
		return errs.NewFatal("configs required")
	}

	entries := make([]catalog.Entry, 0, 64)
	seenID := map[spec.DID]string{}
	seenName := map[string]string{}

	for _, src := range sources {
		walkErr := fs.WalkDir(src, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == "." {
					return nil
				}
				return errs.NewFatal(fmt.Sprintf("configs must be flat (no subdir): %q", path))
			}

			base := filepath.Base(path)
			if strings.Contains(path, "/") && path != base {
				return errs.NewFatal(fmt.Sprintf("configs must be flat (nested path): %q", path))
			}
			if strings.HasPrefix(base, ".") {
				return nil
			}

			ext := strings.ToLower(filepath.Ext(base))
			if ext != ".yaml" && ext != ".yml" && ext != ".json" {
				return nil
			}

			raw, rerr := fs.ReadFile(src, path)
			if rerr != nil {
				return errs.NewFatal(fmt.Sprintf("read config failed: %s", base))
			}

			var (
				ds   *spec.DistSetting
				derr error
			)
			switch ext {
			case ".yaml", ".yml":
				ds, derr = spec.GetDistSettingByYAML(raw)
			case ".json":
				ds, derr = spec.GetDistSettingByJSON(raw)
			default:
				return errs.NewFatal(fmt.Sprintf("unsupported config format: %q", base))
			}
			if derr != nil {
				return errs.NewFatal(fmt.Sprintf("parse dist setting failed: %s", base))
			}

			name := strings.TrimSpace(ds.DistName)
			if name == "" {
				return errs.NewFatal(fmt.Sprintf("dist name required: %s", base))
			}

			id := ds.DistID
			if prev, ok := seenID[id]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate dist id: %s (config=%s and %s)", id, prev, base))
			}
			if _, ok := p.cat.GetByID(id); ok {
				return errs.NewFatal(fmt.Sprintf("dist id already registered: %s (config=%s)", id, base))
			}
			seenID[id] = base

			nameKey := strings.ToLower(name)
			if prev, ok := seenName[nameKey]; ok {
				return errs.NewFatal(fmt.Sprintf("duplicate dist name: %s (config=%s and %s)", nameKey, prev, base))
			}
			if _, ok := p.cat.GetByName(name); ok {
				return errs.NewFatal(fmt.Sprintf("dist name already registered: %s (config=%s)", name, base))
			}
			seenName[nameKey] = base

			if !p.reg.IsExist(ds.SamplerKey) {
				return errs.NewFatal(fmt.Sprintf("sampler not registered: sampler_key=%s (config=%s)", ds.SamplerKey, base))
			}

			entries = append(entries, catalog.Entry{
				DID:        id,
				Name:       name,
				ConfigName: base,
			})
			return nil
		})
		if walkErr != nil {
			return walkErr
		}
	}

	if len(entries) == 0 {
		return errs.NewFatal("no config files found to register")
	}

	return p.cat.Register(entries...)
}

func (p *Distlab) Freeze() {
	p.cat.Freeze()
}

func (p *Distlab) EntryById(id spec.DID) (catalog.Entry, bool) {
	return p.cat.GetByID(id)
}

func (p *Distlab) EntryByName(name string) (catalog.Entry, bool) {
	return p.cat.GetByName(name)
}

// SettingById 解析並回傳 Catalog 內指定分布的完整 DistSetting。
func (p *Distlab) SettingById(id spec.DID) (*spec.DistSetting, error) {
	return p.cat.DistSettingById(id)
}

func (p *Distlab) IDs() []spec.DID {
	return p.cat.IDs()
}

func (p *Distlab) All() []catalog.Entry {
	return p.cat.All()
}

func (p *Distlab) Summary() ([]catalog.Summary, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	if p.sum != nil {
		return p.sum, nil
	}
	ids := p.cat.IDs()
	cs := make([]catalog.Summary, 0, len(ids))
	for _, id := range ids {
		ds, err := p.cat.DistSettingById(id)
		if err != nil {
			return nil, errs.NewFatal("parse dist setting failed")
		}
		s := catalog.Summary{
			DID:     id,
			Name:    ds.DistName,
			Sampler: ds.SamplerKey,
			K:       len(ds.Weights),
		}
		cs = append(cs, s)
	}
	p.sum = cs
	return p.sum, nil
}

// NewMachine 依據 Catalog 內的分布 ID 建立一台 Machine。
//
// 行為：
//  1. 由 Catalog 取得對應的 DistSetting（通常來自 fs.FS 內的 YAML/JSON）。
//  2. 以 PRNGFactory 產生 RNG 核心（seed 由 crypto/rand 產生）。
//  3. 透過 sampler.Registry 依據 DistSetting 內的 SamplerKey 建出抽樣引擎。
//
// 注意：seed 會被記錄在 Machine 內（initseed），用於追溯/重現；真正的可審計能力以 Core 的 Snapshot/Restore 合約為準。
func (p *Distlab) NewMachine(id spec.DID) (*Machine, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := p.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return newMachine(ds, p.reg, p.cf)
}

// NewMachineWithSeed 與 NewMachine 相同，但由呼叫端指定初始 seed。
//
// 使用情境：
//   - 可重現的測試：同一份設定 + 同一個 seed，應產生一致的隨機序列（取決於 Core 實作）。
//
// 注意：seed 只是「出生入口」。若要在任意時間點完整重現，請使用 Core 的 Snapshot/Restore（以 []byte 交換狀態）。
func (p *Distlab) NewMachineWithSeed(id spec.DID, seed int64) (*Machine, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := p.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return newMachineWithSeed(ds, p.reg, p.cf, seed)
}

func (p *Distlab) NewMachineByJSON(raw []byte, seed int64) (*Machine, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newMachineWithSeed(cfg, p.reg, p.cf, seed)
}

func (p *Distlab) NewMachineByYAML(raw []byte, seed int64) (*Machine, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newMachineWithSeed(cfg, p.reg, p.cf, seed)
}

func (p *Distlab) validCfg(cfg *spec.DistSetting) error {
	ent, ok := p.cat.GetByID(cfg.DistID)
	if !ok {
		return errs.NewWarn("dist id not exist")
	}
	ent2, ok := p.cat.GetByName(cfg.DistName)
	if !ok {
		return errs.NewWarn("dist name not exist")
	}
	if ent.DID != ent2.DID {
		return errs.NewWarn("dist id is not matched dist name")
	}
	if !p.reg.IsExist(cfg.SamplerKey) {
		return errs.NewWarn("sampler not exist")
	}
	return nil
}

func (p *Distlab) NewSimulator(id spec.DID) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := p.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return newSimulator(ds, p.reg, p.cf)
}

func (p *Distlab) NewSimulatorWithSeed(id spec.DID, seed int64) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	ds, err := p.cat.DistSettingById(id)
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ds, p.reg, p.cf, seed)
}

func (p *Distlab) NewSimulatorByJSON(raw []byte, seed int64) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(cfg, p.reg, p.cf, seed)
}

func (p *Distlab) NewSimulatorByYAML(raw []byte, seed int64) (*Simulator, error) {
	if !p.cat.IsFrozen() {
		return nil, errs.NewFatal("catalog is not frozen yet")
	}
	cfg, err := spec.GetDistSettingByYAML(raw)
	if err != nil {
		return nil, err
	}
	if err := p.validCfg(cfg); err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(cfg, p.reg, p.cf, seed)
}

func (p *Distlab) BuildRuntime(poolSize int) (*DrawRuntime, error) {
	// 1. 進入 runtime 前，catalog 必須 Freeze
	p.Freeze()

	ids := p.cat.IDs()
	if len(ids) == 0 {
		return nil, errs.NewFatal("no dists registered")
	}

	rt := &DrawRuntime{
		lab:      p,
		pools:    make(map[spec.DID]*MachinePool, len(ids)),
		ids:      ids,
		done:     make(chan struct{}),
		poolSize: max(1, poolSize),
	}
	rt.reason.Store("")

	// 2. 先全建好（fail-fast + cleanup）
	for _, id := range ids {
		ds, err := p.cat.DistSettingById(id)
		if err != nil {
			return nil, err
		}

		seed, _ := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		mp, err := newMachinePool(rt.poolSize, ds, p.reg, p.cf, seed.Int64())
		if err != nil {
			return nil, err
		}
		rt.pools[id] = mp
	}
	return rt, nil
}

// NewDevSimulator
//
// 注意只能由Distlab起
// 只提供給Dev模式使用的模擬器，重點是保持單機台模式所以保持可重現性
func (p *Distlab) NewDevSimulator(did spec.DID, seed int64) (*DevSimulator, error) {
	sim, err := p.NewSimulatorWithSeed(did, seed)
	if err != nil {
		return nil, err
	}
	m, err := p.NewMachineWithSeed(did, seed)
	if err != nil {
		return nil, err
	}
	simBe, err := sim.mBuf[0].SnapshotCore()
	if err != nil {
		return nil, err
	}
	mBe, err := m.SnapshotCore()
	if err != nil {
		return nil, err
	}
	simBe64 := corefmt.EncodeBase64(simBe)
	mBe64 := corefmt.EncodeBase64(mBe)
	if mBe64 != simBe64 {
		return nil, errs.NewFatal("seeds are not equal")
	}
	dev := &DevSimulator{
		sim:      sim,
		m:        m,
		before:   mBe,
		before64: mBe64,
	}
	return dev, nil
}
