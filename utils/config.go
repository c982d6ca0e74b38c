package utils

import (
	"fmt"
	"os"
	"runtime"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/atomicore/eosio-contract-indexer/config"
	"github.com/atomicore/eosio-contract-indexer/types"
)

// Config is the globally accessible configuration
var Config *types.Config

// ReadConfig will process a configuration
func ReadConfig(cfg *types.Config, path string) error {
	err := readConfigFile(cfg, path)
	if err != nil {
		return err
	}

	readConfigEnv(cfg)

	if cfg.Chain.ShipEndpoint == "" {
		return fmt.Errorf("missing state history endpoint (chain.shipEndpoint)")
	}
	if cfg.Chain.RpcEndpoint == "" {
		return fmt.Errorf("missing chain rpc endpoint (chain.rpcEndpoint)")
	}
	if cfg.Filler.ReaderName == "" {
		return fmt.Errorf("missing reader name (filler.readerName)")
	}
	if len(cfg.Filler.Handlers) == 0 {
		return fmt.Errorf("no contract handlers configured")
	}

	if cfg.Filler.BlockBatchSize == 0 {
		cfg.Filler.BlockBatchSize = 50
	}
	if cfg.Filler.BlockQueueSize == 0 {
		cfg.Filler.BlockQueueSize = 100
	}
	if cfg.Filler.DeserializeWorkers <= 0 {
		cfg.Filler.DeserializeWorkers = runtime.NumCPU()
	}
	if cfg.Filler.BlockRetries == 0 {
		cfg.Filler.BlockRetries = 3
	}

	return nil
}

func readConfigFile(cfg *types.Config, path string) error {
	if path == "" {
		return yaml.Unmarshal([]byte(config.DefaultConfigYml), cfg)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening config file %v: %v", path, err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(cfg)
	if err != nil {
		return fmt.Errorf("error decoding config file %v: %v", path, err)
	}

	return nil
}

func readConfigEnv(cfg *types.Config) error {
	return envconfig.Process("", cfg)
}
