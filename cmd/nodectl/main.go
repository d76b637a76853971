// Command nodectl is a small operator CLI around the world-state engine:
// it reads a YAML config, opens a durable (or in-memory) store, starts
// from an empty world state over it, runs a scripted demo block through
// blockproc, and
// optionally serves the read-only API over the result. Grounded in the
// flag/config/logging wiring of the teacher's cmd/thor and cmd/solo
// entrypoints, trimmed to this module's scope.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	ethlog "github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/shardnode/core/api"
	"github.com/shardnode/core/blockproc"
	"github.com/shardnode/core/digest"
	"github.com/shardnode/core/kv"
	"github.com/shardnode/core/metrics"
	"github.com/shardnode/core/worldstate"
)

var logger = ethlog.New("pkg", "nodectl")

// Config is the on-disk YAML shape accepted by -config.
type Config struct {
	DataDir        string   `yaml:"dataDir"`
	ListenAddr     string   `yaml:"listenAddr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	Verbosity      int      `yaml:"verbosity"`
}

func defaultConfig() Config {
	return Config{DataDir: "", ListenAddr: ":8669", AllowedOrigins: []string{"*"}, Verbosity: int(ethlog.LevelInfo)}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrap(err, "nodectl: open config")
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, errors.Wrap(err, "nodectl: parse config")
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	serve := flag.Bool("serve", false, "serve the read-only API after running the demo block")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	ethlog.SetDefault(ethlog.NewLogger(ethlog.NewTerminalHandler(os.Stderr, true)))

	store, err := openStore(cfg.DataDir)
	if err != nil {
		fatal(err)
	}

	if *metricsAddr != "" {
		metrics.InitializePrometheusMetrics()
		go func() {
			logger.Info("serving metrics", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, metrics.HTTPHandler()); err != nil {
				logger.Error("metrics server stopped", "err", err)
			}
		}()
	}

	base := worldstate.Open(store, worldstate.Roots{})
	newState, header, results, err := blockproc.Process(base, demoBlock())
	if err != nil {
		fatal(errors.Wrap(err, "nodectl: process demo block"))
	}

	logger.Info("processed demo block",
		"number", header.Number,
		"stateHash", header.StateHash(),
		"transactions", len(results))
	for i, r := range results {
		if r.Reverted {
			logger.Warn("transaction reverted", "index", i, "kind", r.Tx.Kind, "err", r.Err)
		}
	}

	if !*serve {
		return
	}

	srv := api.New(newState)
	logger.Info("serving read-only API", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Handler(cfg.AllowedOrigins)); err != nil {
		fatal(errors.Wrap(err, "nodectl: serve API"))
	}
}

func openStore(dataDir string) (kv.Store, error) {
	if dataDir == "" {
		s, err := kv.OpenMem()
		if err != nil {
			return nil, errors.Wrap(err, "nodectl: open in-memory store")
		}
		return s, nil
	}
	s, err := kv.Open(dataDir, kv.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "nodectl: open store at %s", dataDir)
	}
	return s, nil
}

// demoBlock builds a small, self-contained block exercising every kind
// of world-state mutation: asset creation/removal and the full contract
// lifecycle, including a deliberately conflicting create to show a
// revert that does not abort the rest of the block.
func demoBlock() blockproc.Block {
	ref1 := worldstate.TxOutputRef(digest.Sum([]byte("demo-asset-1")))
	ref2 := worldstate.TxOutputRef(digest.Sum([]byte("demo-asset-2")))
	contractID := worldstate.ContractId(digest.Sum([]byte("demo-contract")))
	contractRef := worldstate.TxOutputRef(digest.Sum([]byte("demo-contract-output")))
	contractRef2 := worldstate.TxOutputRef(digest.Sum([]byte("demo-contract-output-2")))

	return blockproc.Block{
		Number:    1,
		Timestamp: 0,
		Txs: []blockproc.Tx{
			{Kind: blockproc.OpAddAsset, AssetRef: ref1, AssetOut: worldstate.TxOutput{Kind: worldstate.OutputAsset, Value: 1000}},
			{Kind: blockproc.OpAddAsset, AssetRef: ref2, AssetOut: worldstate.TxOutput{Kind: worldstate.OutputAsset, Value: 2000}},
			{
				Kind:           blockproc.OpCreateContract,
				ContractID:     contractID,
				ContractCode:   []byte("demo bytecode"),
				ContractFields: [][]byte{[]byte("field-a")},
				AssetRef:       contractRef,
				AssetOut:       worldstate.TxOutput{Kind: worldstate.OutputContract, Value: 0},
			},
			{Kind: blockproc.OpRemoveAsset, AssetRef: ref1},
			// Same contract id as above: reverted, the rest of the block still applies.
			{
				Kind:         blockproc.OpCreateContract,
				ContractID:   contractID,
				ContractCode: []byte("conflicting bytecode"),
				AssetRef:     contractRef,
				AssetOut:     worldstate.TxOutput{Kind: worldstate.OutputContract, Value: 0},
			},
			{Kind: blockproc.OpUpdateContractFields, ContractID: contractID, ContractFields: [][]byte{[]byte("field-b")}},
			{Kind: blockproc.OpUpdateContractOutput, ContractID: contractID, AssetRef: contractRef2, AssetOut: worldstate.TxOutput{Kind: worldstate.OutputContract, Value: 500}},
			{Kind: blockproc.OpRemoveContract, ContractID: contractID},
		},
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
