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
	"io"
	"math"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/zintix-labs/distlab/errs"
	"github.com/zintix-labs/distlab/recorder"
	"github.com/zintix-labs/distlab/sdk/core"
	"github.com/zintix-labs/distlab/sdk/sampler"
	"github.com/zintix-labs/distlab/spec"
	"github.com/zintix-labs/distlab/stats"
)

const capPrepare int = 100

// Simulator 用於大量抽樣驗證，可建立多台機台並平行紀錄統計。
type Simulator struct {
	DistName  string                   // 分布名稱
	DistId    spec.DID                 // 分布 ID
	ds        *spec.DistSetting        // 方便重用建立 recorder
	reg       *sampler.Registry        // 引擎註冊表
	cf        core.PRNGFactory         // 亂數生成器
	initSeed  int64                    // 初始下的種子
	seedmaker *seedMaker               // 種子生成器
	mBuf      []*Machine               // 併發執行機台實例
	rBuf      []*recorder.DrawRecorder // 併發抽樣紀錄員
	sBuf      []*stats.FreqReport      // 併發統計結果報表(僅 SimRuns 需要)
}

func newSimulator(ds *spec.DistSetting, reg *sampler.Registry, cf core.PRNGFactory) (*Simulator, error) {
	seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return nil, err
	}
	return newSimulatorWithSeed(ds, reg, cf, seed.Int64())
}

func newSimulatorWithSeed(ds *spec.DistSetting, reg *sampler.Registry, cf core.PRNGFactory, seed int64) (*Simulator, error) {
	s := &Simulator{
		DistName:  ds.DistName,
		DistId:    ds.DistID,
		ds:        ds,
		reg:       reg,
		cf:        cf,
		initSeed:  seed,
		seedmaker: newSeedMaker(seed),
		mBuf:      make([]*Machine, 1, capPrepare),
		rBuf:      make([]*recorder.DrawRecorder, 0, capPrepare),
		sBuf:      make([]*stats.FreqReport, 0, capPrepare),
	}
	m, err := newMachineWithSeed(ds, reg, cf, s.initSeed)
	if err != nil {
		return nil, err
	}
	s.mBuf[0] = m
	return s, nil
}

func (s *Simulator) newRecorder() (*recorder.DrawRecorder, error) {
	k := len(s.ds.Weights)
	labels := make([]string, k)
	for i := range labels {
		labels[i] = s.ds.Label(i)
	}
	return recorder.NewDrawRecorder(s.DistName, s.DistId, s.ds.SamplerKey, labels, s.mBuf[0].Dist().NormPmf())
}

// Sim 單線模擬器：以一台機台連續抽指定 round 並回傳統計結果與用時
func (s *Simulator) Sim(round int, showpb bool) (*stats.FreqReport, time.Duration, error) {
	defer s.reset()
	if round < 1 {
		return nil, 0, errs.NewWarn("round must > 0")
	}
	if len(s.rBuf) == 0 {
		r, err := s.newRecorder()
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	r := s.rBuf[0]
	m := s.mBuf[0]

	bar := pb.StartNew(round)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < round; i++ {
		r.Record(m.DrawInternal())
		bar.Increment()
	}
	used := time.Since(bar.StartTime())
	bar.Finish()
	result := r.Done()

	return result, used, nil
}

// SimMP 平行執行多個機台，總計 rounds*mp 次抽樣，合併統計結果後回傳統計結果與用時
func (s *Simulator) SimMP(rounds int, mp int, showpb bool) (*stats.FreqReport, time.Duration, error) {
	defer s.reset()
	if mp <= 0 {
		return nil, 0, errs.NewWarn("workers must > 0")
	}
	if rounds < 1 {
		return nil, 0, errs.NewWarn("round must > 0")
	}
	for len(s.mBuf) < mp {
		m, err := newMachineWithSeed(s.ds, s.reg, s.cf, s.seedmaker.next())
		if err != nil {
			return nil, 0, err
		}
		s.mBuf = append(s.mBuf, m)
	}

	for len(s.rBuf) < mp {
		r, err := s.newRecorder()
		if err != nil {
			return nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}

	wg := new(sync.WaitGroup)
	wg.Add(mp)
	bar := pb.StartNew(rounds * mp)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	for i := 0; i < mp; i++ {
		go func(i int) {
			defer wg.Done()
			m := s.mBuf[i]
			st := s.rBuf[i]
			for r := 0; r < rounds; r++ {
				st.Record(m.DrawInternal())
				bar.Increment()
			}
		}(i)
	}
	wg.Wait()
	used := time.Since(bar.StartTime())
	bar.Finish()

	st, err := recorder.MergeDrawRecorder(s.rBuf)
	if err != nil {
		return nil, 0, err
	}
	result := st.Done()

	return result, used, nil
}

// SimRuns 模擬多個獨立 run（各自一份紀錄），產出合併報表與跨 run 評估報表。
//
// 跨 run 評估（EstimatorRuns）回答的是「這台機台的統計行為是否穩定且符合理論」：
// 觀測平均的分布、卡方檢定的拒絕率、各類別 CI 的覆蓋率。
func (s *Simulator) SimRuns(mp int, runs int, rounds int, showpb bool) (*stats.FreqReport, *stats.EstimatorRuns, time.Duration, error) {
	defer s.reset()
	if runs < 1 || rounds < 1 || mp < 1 {
		return nil, nil, 0, errs.NewWarn("invalid param")
	}

	// 準備並行機台
	for len(s.mBuf) < mp {
		m, err := newMachineWithSeed(s.ds, s.reg, s.cf, s.seedmaker.next())
		if err != nil {
			return nil, nil, 0, err
		}
		s.mBuf = append(s.mBuf, m)
	}

	// 準備 run 紀錄員
	s.sBuf = make([]*stats.FreqReport, runs)
	for len(s.rBuf) < runs {
		r, err := s.newRecorder()
		if err != nil {
			return nil, nil, 0, err
		}
		s.rBuf = append(s.rBuf, r)
	}
	// 作一個2048大小的緩衝channel 使 run 依序分派給機台
	jobs := make(chan *recorder.DrawRecorder, 2048)

	wg := new(sync.WaitGroup)
	wg.Add(mp) // 併發機台

	bar := pb.StartNew(runs)
	if !showpb {
		bar.SetWriter(io.Discard)
	}
	// 併發執行
	for w := 0; w < mp; w++ {
		go sim(wg, s.mBuf[w], jobs, rounds, bar)
	}
	// 此時併發已經啟動，但由於所有workers都無法從jobs當中取出j(還沒塞進去) 所以不會結束

	// 塞進 run，開始模擬
	for _, j := range s.rBuf {
		jobs <- j
	}
	close(jobs) // run 送完處理完畢關閉通道 通知所有機台不會再有新資料
	wg.Wait()   // 等待機台都執行完任務
	used := time.Since(bar.StartTime())
	bar.Finish()

	// 機台基準報表
	record, err := recorder.MergeDrawRecorder(s.rBuf)
	if err != nil {
		return nil, nil, 0, err
	}
	st := record.Done()

	// 跨 run 分析報表
	for i, r := range s.rBuf {
		s.sBuf[i] = r.Done()
	}
	est := stats.EstimatorSimRuns(s.sBuf)
	return st, est, used, nil
}

func sim(wg *sync.WaitGroup, m *Machine, jobs chan *recorder.DrawRecorder, rounds int, bar *pb.ProgressBar) {
	defer wg.Done()
	for j := range jobs { // j := <- jobs
		for range rounds {
			j.Record(m.DrawInternal())
		}
		bar.Increment()
	}
}

func (s *Simulator) reset() {
	s.rBuf = s.rBuf[:0]
	s.sBuf = s.sBuf[:0]
}

const mask63 = uint64(1<<63) - 1

type seedMaker struct {
	state atomic.Uint64 // always in [0, 2^63)
}

func newSeedMaker(seed int64) *seedMaker {
	s := &seedMaker{}
	s.state.Store(uint64(seed) & mask63)
	return s
}

// state 走全週期（不重複），再用可逆 mix63 打散
//
// 注意：此方法可能在併發環境下被多 goroutines 同時呼叫（例如 SimMP / SimRuns）。
// 因此 state 的推進必須是原子的：
//   - 使用 CAS（Compare-And-Swap）迴圈確保每次呼叫都會取得唯一的下一個 state。
//   - 回傳值使用推進後的 state 經 mix63 打散後的結果。
func (s *seedMaker) next() int64 {
	for {
		old := s.state.Load()                                            // always masked
		next := (old*6364136223846793005 + 1442695040888963407) & mask63 // full-period LCG mod 2^63
		if s.state.CompareAndSwap(old, next) {
			return int64(mix63(next)) // 一定非負
		}
	}
}

// mix63：只用「可逆」的 bit 操作 + 乘奇數（mod 2^63）
func mix63(x uint64) uint64 {
	x &= mask63
	x ^= x >> 30
	x = (x * 0xBF58476D1CE4E5B9) & mask63 // 乘奇數 ⇒ mod 2^63 可逆
	x ^= x >> 27
	x = (x * 0x94D049BB133111EB) & mask63
	x ^= x >> 31
	return x & mask63
}
