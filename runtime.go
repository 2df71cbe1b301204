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
	"context"
	"sync"
	"sync/atomic"

	"github.com/zintix-labs/distlab/dto"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/spec"
)

type DrawRuntime struct {
	// build-time 來源（只讀引用）
	lab *Distlab // 方便取 catalog/registry/prngfactory 與共用一些 helper

	// data-plane：關鍵主池（每個分布一個 pool）
	pools map[spec.DID]*MachinePool
	ids   []spec.DID // 固定順序，用於觀測/列舉（來自 cat.IDs()）

	// lifecycle
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	reason    atomic.Value // string

	// runtime 行為設定（一期先簡單，之後可擴展）
	poolSize int // 每個分布的池大小（BuildRuntime(n) 的 n）
}

func (rt *DrawRuntime) Draw(ctx context.Context, req *dto.DrawRequest) (dto.DrawResult, error) {
	select {
	case <-ctx.Done():
		// 如果通知取消
		return dto.DrawResult{}, errs.NewWarn("draw canceled/timeout: " + ctx.Err().Error())
	case <-rt.done:
		// done is the source of truth; keep a fast boolean for cheap reads/telemetry.
		rt.closed.Store(true)
		return dto.DrawResult{}, errs.NewFatal("draw runtime closed: " + rt.ClosedReason())
	default:
	}

	mp, ok := rt.pools[req.DistId]
	if !ok {
		return dto.DrawResult{}, errs.NewWarn("dist id not found")
	}

	// pool 自己會處理 done / close / rebuild / metrics
	return mp.Draw(ctx, req)
}

// Metrics 回傳所有 pool 的觀測快照（依 ids 固定順序）。
func (rt *DrawRuntime) Metrics() []MachinePoolMetrics {
	ms := make([]MachinePoolMetrics, 0, len(rt.ids))
	for _, id := range rt.ids {
		if mp, ok := rt.pools[id]; ok {
			ms = append(ms, mp.Metrics())
		}
	}
	return ms
}

// Close transitions the runtime into a closed state. It is safe to call multiple times.
func (rt *DrawRuntime) Close() {
	rt.closeWithReason("closed")
	for _, mp := range rt.pools {
		mp.Close()
	}
}

// closeWithReason closes the runtime and records the reason (written once).
func (rt *DrawRuntime) closeWithReason(reason string) {
	rt.closeOnce.Do(func() {
		if reason == "" {
			reason = "closed"
		}
		rt.reason.Store(reason)
		rt.closed.Store(true)
		close(rt.done)
	})
}

// Closed reports whether the runtime has been closed.
func (rt *DrawRuntime) Closed() bool {
	return rt.closed.Load()
}

func (rt *DrawRuntime) ClosedReason() string {
	if v := rt.reason.Load(); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
