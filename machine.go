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

package distlab

import (
	"crypto/rand"
	"math"
	"math/big"
	"sync"

	"github.com/zintix-labs/distlab/corefmt"
	"github.com/zintix-labs/distlab/dto"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/sdk/dist"
	"github.com/zintix-labs/distlab/sdk/sampler"
	"github.com/zintix-labs/distlab/spec"
)

// 單一請求可抽的筆數上限，避免對外服務被一次請求拖死
const maxDrawRounds = 10_000

// Machine 封裝一台「可對外提供 Draw」的抽樣機台。
//
// 你可以把 Machine 視為分布的「外殼（shell）」：
//   - 對外：提供 Draw 入口（HTTP/模擬器通常只操作 Machine）。
//   - 對內：持有 RNG（Core）、抽樣引擎（sampler.Drawer）與理論分布（dist.Categorical）。
//
// 並發語意：
//   - 同一台 Machine 不應被多 goroutine 同時 Draw；mu 保護 Core 狀態一致性。
//   - 若要併發模擬，由更高層建立多台 Machine 分散到不同 worker 並管理其生命週期。
//
// initseed 用於記錄出生時的 seed（追溯/重現的基礎資訊）；完整審計仍以 Core 的 Snapshot/Restore 為準。
type Machine struct {
	distName string            // 分布名稱（來自 DistSetting.DistName，主要用於觀測/日誌）
	distId   spec.DID          // 分布 ID（Catalog 內唯一；用於路由與查表）
	sampler  spec.SamplerKey   // 使用中的抽樣引擎
	core     *core.Core        // RNG 核心（PRNG + Snapshot/Restore 合約；熱路徑會頻繁取樣）
	drawer   sampler.Drawer    // 抽樣引擎（由 Registry + DistSetting 組裝）
	dist     *dist.Categorical // 理論分布（pmf/mean/cdf；報表與驗證用）
	setting  *spec.DistSetting // 原始設定（Label 查詢）
	mu       sync.Mutex        // 防併發鎖：保護核心狀態一致性
	initseed int64             // 出生 seed（便於追溯；完整重現請用 Snapshot/Restore）
}

// newMachine 以「隨機 seed」建立 Machine。
//
// 這裡使用 crypto/rand 產生 seed 是為了：
//   - 在對外服務情境避免可預測 RNG
//   - 同時保留可追溯性（seed 會被記錄在 Machine.initseed）
func newMachine(ds *spec.DistSetting, reg *sampler.Registry, cf core.PRNGFactory) (*Machine, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, errs.Wrap(err, "new crypto seed error in go std lib")
	}
	return newMachineWithSeed(ds, reg, cf, seed.Int64())
}

// newMachineWithSeed 以指定 seed 建立 Machine。
//
// 這是最常用的「可重現」入口：同一份 DistSetting + 同一個 seed，應能得到一致的隨機序列（取決於 Core 實作）。
//
// 建立流程：
//  1. core.New(cf.New(seed)) 建出 RNG 核心
//  2. dist.New(ds.Weights) 建出理論分布（同時完成權重驗證）
//  3. reg.Build(ds.SamplerKey, ds.Weights) 建出抽樣引擎
func newMachineWithSeed(ds *spec.DistSetting, reg *sampler.Registry, cf core.PRNGFactory, seed int64) (*Machine, error) {
	m := &Machine{
		distName: ds.DistName,
		distId:   ds.DistID,
		sampler:  ds.SamplerKey,
		core:     core.New(cf.New(seed)),
		setting:  ds,
		initseed: seed,
	}
	var err error
	m.dist, err = dist.New(ds.Weights)
	if err != nil {
		return nil, err
	}
	m.drawer, err = reg.Build(ds.SamplerKey, ds.Weights)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Draw 為主要公開入口，會驗證請求，執行抽樣並回傳結果。
//
// 若請求帶有 CoreSnap，會先 Restore 到該狀態抽樣，結束後把 Core 還原回
// 進入時的狀態，讓外部指定起點的請求不污染機台本身的序列。
func (m *Machine) Draw(r *dto.DrawRequest) (dto.DrawResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 1. 校驗請求合法性
	if err := m.valid(r); err != nil {
		return dto.DrawResult{}, err
	}
	rounds := r.Rounds
	if rounds == 0 {
		rounds = 1
	}

	// 2. get start snapshot
	startsnap, err := m.SnapshotCore()
	if err != nil {
		return dto.DrawResult{}, errs.NewFatal("before snapshot error " + err.Error())
	}
	rem := startsnap
	external := r.CoreSnap != ""
	if external {
		snap, derr := corefmt.DecodeBase64URL(r.CoreSnap)
		if derr != nil {
			return dto.DrawResult{}, errs.NewWarn("decode core snap err " + derr.Error())
		}
		if rerr := m.RestoreCore(snap); rerr != nil {
			return dto.DrawResult{}, errs.NewWarn("restore core err " + rerr.Error())
		}
		startsnap = snap
	}

	// 3. draw
	outcomes := make([]dto.DrawOutcome, rounds)
	for i := range outcomes {
		idx := m.drawer.Draw(m.core)
		outcomes[i] = dto.DrawOutcome{Index: idx, Label: m.setting.Label(idx)}
	}

	// 4. get after snapshot
	aftersnap, err := m.SnapshotCore()
	if err != nil {
		if e := m.RestoreCore(rem); e != nil {
			return dto.DrawResult{}, errs.NewFatal("fall back err " + e.Error())
		}
		return dto.DrawResult{}, errs.NewWarn("after snapshot error " + err.Error())
	}

	// 5. restore if needed
	if external {
		if err := m.RestoreCore(rem); err != nil {
			return dto.DrawResult{}, errs.NewFatal("restore core back err " + err.Error())
		}
	}

	return dto.DrawResult{
		DistName:          m.distName,
		DistId:            m.distId,
		Sampler:           m.sampler,
		Rounds:            rounds,
		Outcomes:          outcomes,
		StartCoreSnapB64U: corefmt.EncodeBase64URL(startsnap),
		AfterCoreSnapB64U: corefmt.EncodeBase64URL(aftersnap),
	}, nil
}

// DrawInternal 直接取得單筆抽樣落點；常用於模擬器或測試
//
// 請勿在正式環境使用
//
// 此行為跳過所有檢查與快照
func (m *Machine) DrawInternal() int {
	return m.drawer.Draw(m.core)
}

func (m *Machine) valid(req *dto.DrawRequest) error {
	if m.distId != req.DistId {
		return errs.NewWarn("dist id is not matched")
	}
	// name 可省略；有帶時必須吻合
	if req.DistName != "" && m.distName != req.DistName {
		return errs.NewWarn("dist name is not matched")
	}
	if req.Rounds < 0 || req.Rounds > maxDrawRounds {
		return errs.NewWarn("rounds out of range")
	}
	return nil
}

// K 回傳類別數
func (m *Machine) K() int {
	return m.drawer.K()
}

// Dist 回傳理論分布（唯讀；報表與驗證用）
func (m *Machine) Dist() *dist.Categorical {
	return m.dist
}

// SnapshotCore 取得Core狀態暫存 當前僅提供取得Core狀態
//
// 之後要實作斷線重連時候提供checkpoint加入必要恢復資訊時實作
// SnapShot() <- 保留語意
func (m *Machine) SnapshotCore() ([]byte, error) {
	return m.core.Snapshot()
}

// RestoreCore 恢復Core狀態暫存 當前僅提供恢復Core狀態
//
// 之後要實作斷線重連時候提供checkpoint加入必要恢復資訊時實作
// Restore() <- 保留語意
func (m *Machine) RestoreCore(src []byte) error {
	return m.core.Restore(src)
}
