package main

import (
	"crypto/rand"
	"flag"
	"log"
	"math"
	"math/big"

	"github.com/zintix-labs/distlab/demo"
	"github.com/zintix-labs/distlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name      string
	id        spec.DID
	worker    int
	runs      int
	draws     int
	seed      int64
	pprofmode string
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.Func("dist", "target dist id", func(s string) error {
		cfg.id = spec.DID(s)
		return nil
	})
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.runs, "runs", 1, "number of repeated runs")
	flag.IntVar(&cfg.draws, "draws", 10000000, "draws per run")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 seed for random number generator")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()

	// given seed illeagel -> default seed
	if cfg.seed < 1 {
		seed, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
		if err != nil {
			log.Fatal(err)
		}
		cfg.seed = seed.Int64()
	}
}

// 這裡解析並分支要執行的模擬器
func executeSimulator() {
	cfg.valid() // 基本檢查

	lab, err := demo.NewDistLab()
	if err != nil {
		log.Fatal(err)
	}
	s, err := lab.NewSimulatorWithSeed(cfg.id, cfg.seed)
	if err != nil {
		log.Fatal(err)
	}
	ent, _ := lab.EntryById(cfg.id)
	cfg.name = ent.Name
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if cfg.runs == 1 { // 純機台模擬
		if cfg.worker == 1 { // 單線程
			p.Printf("%s[DIST:%s] [DRAWS:%d]%s\n", green, cfg.name, cfg.draws, reset)
			st, used, _ := s.Sim(cfg.draws, true)
			st.StdOut(used)
		} else {
			p.Printf("%s[WORKERS:%d] [DIST:%s] [DRAWS:%d]%s\n", green, cfg.worker, cfg.name, cfg.worker*cfg.draws, reset)
			st, used, _ := s.SimMP(cfg.draws, cfg.worker, true) // 併發
			st.StdOut(used)
		}
	} else { // 重複多輪模擬，觀察估計量的抽樣分布
		p.Printf("%s[WORKERS:%d] [DIST:%s] [RUNS:%d DRAWS:%d]%s\n", green, cfg.worker, cfg.name, cfg.runs, cfg.draws, reset)
		st, est, used, _ := s.SimRuns(cfg.worker, cfg.runs, cfg.draws, true)
		st.StdOut(used)
		est.Out()
	}
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	// 工作協程檢查(併發數)
	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}

	// 輪數檢查
	if cfg.runs < 1 {
		log.Fatal("value err : runs must > 0")
	}
	// 輪數太多 resize
	if cfg.runs > 100000 {
		p.Printf("too many runs: %d resized to 100k runs\n", cfg.runs)
		cfg.runs = 100000
	}

	// 抽樣數檢查
	if cfg.draws < 1 {
		log.Fatal("value err : draws must > 0")
	}

	// 重複多輪的時候，每輪不需要超過15000抽（單輪統計已足夠，估計量分布靠輪數）
	if cfg.runs > 1 && cfg.draws > 15000 {
		p.Printf("too many draws for each run : %d resized to 15k draws per run\n", cfg.draws)
		cfg.draws = 15000
	}
}
