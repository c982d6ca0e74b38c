package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/atomicore/eosio-contract-indexer/chain"
	"github.com/atomicore/eosio-contract-indexer/chain/ship"
	"github.com/atomicore/eosio-contract-indexer/contract"
	"github.com/atomicore/eosio-contract-indexer/contract/atomicassets"
	"github.com/atomicore/eosio-contract-indexer/contract/atomicmarket"
	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/indexer"
	"github.com/atomicore/eosio-contract-indexer/metrics"
	"github.com/atomicore/eosio-contract-indexer/notify"
	"github.com/atomicore/eosio-contract-indexer/types"
	"github.com/atomicore/eosio-contract-indexer/utils"
)

func main() {
	configPath := flag.String("config", "", "Path to the config file, if empty string defaults will be used")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &types.Config{}
	err := utils.ReadConfig(cfg, *configPath)
	if err != nil {
		logrus.Fatalf("error reading config file: %v", err)
	}
	utils.Config = cfg
	logger := utils.InitLogger()

	logger.WithFields(logrus.Fields{
		"config":  *configPath,
		"version": utils.BuildVersion,
		"release": utils.BuildRelease,
	}).Printf("starting")

	db.MustInitDB()
	err = db.ApplyEmbeddedDbSchema(-2)
	if err != nil {
		logger.Fatalf("error initializing db schema: %v", err)
	}

	if cfg.Metrics.Enabled {
		err = metrics.StartMetricsServer(logger.WithField("module", "metrics"), cfg.Metrics.Host, cfg.Metrics.Port)
		if err != nil {
			logger.Fatalf("error starting metrics server: %v", err)
		}
	}

	rpc := chain.NewRpcClient(logger, cfg.Chain.RpcEndpoint)
	chainId, err := rpc.GetChainId(ctx, cfg.Chain.ChainId)
	if err != nil {
		logger.Fatalf("error verifying chain: %v", err)
	}
	logger.Infof("connected to chain %v", chainId)

	bus, err := notify.NewBus(ctx, logger, cfg.Redis.Address, cfg.Redis.KeyPrefix, cfg.Chain.Name, cfg.Filler.ReaderName)
	if err != nil {
		logger.Fatalf("error connecting to redis: %v", err)
	}

	handlers, err := buildHandlers(logger, rpc, bus, cfg.Filler.Handlers)
	if err != nil {
		logger.Fatalf("error building handlers: %v", err)
	}

	if cfg.Filler.DeleteData {
		logger.Warn("deleting all handler data for full resync")
		tx, err := db.NewContractTx(0, 0)
		if err != nil {
			logger.Fatalf("error starting delete transaction: %v", err)
		}
		for _, handler := range handlers {
			if err := handler.DeleteDB(tx); err != nil {
				tx.Abort()
				logger.Fatalf("error deleting data of %v: %v", handler.Name(), err)
			}
		}
		if err := tx.Commit(); err != nil {
			logger.Fatalf("error committing delete transaction: %v", err)
		}
	}

	pool := chain.NewDeserializerPool(logger, cfg.Filler.DeserializeWorkers)
	pool.Start(ctx)

	abiCache := chain.NewAbiCache(logger)
	client := ship.NewClient(logger, cfg.Chain.ShipEndpoint, cfg.Filler.BlockBatchSize, cfg.Filler.BlockQueueSize)

	receiver := indexer.NewReceiver(logger, client, pool, abiCache, rpc, bus, handlers,
		cfg.Filler.ReaderName, cfg.Filler.StartBlock, cfg.Filler.StopBlock, cfg.Filler.BlockRetries)
	if err := receiver.Init(ctx); err != nil {
		logger.Fatalf("error initializing receiver: %v", err)
	}

	go client.Run(ctx, receiver.StartBlock(), cfg.Filler.StopBlock)

	runErr := make(chan error, 1)
	go func() {
		runErr <- receiver.Run(ctx)
	}()

	exitCode := 0
	select {
	case err := <-runErr:
		if err != nil {
			utils.LogError(err, "filler halted", 0)
			exitCode = 1
		}
	case <-waitForInterrupt():
		logger.Println("exiting...")
		cancel()
		<-runErr
	}

	bus.Close()
	db.MustCloseDB()
	os.Exit(exitCode)
}

func buildHandlers(logger logrus.FieldLogger, rpc *chain.RpcClient, bus *notify.Bus, configs []types.HandlerConfig) ([]contract.Handler, error) {
	handlers := []contract.Handler{}
	for _, handlerConfig := range configs {
		switch handlerConfig.Handler {
		case atomicassets.HandlerName:
			handler, err := atomicassets.New(logger, rpc, bus, handlerConfig.Args)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, handler)
		case atomicmarket.HandlerName:
			handler, err := atomicmarket.New(logger, rpc, bus, handlerConfig.Args)
			if err != nil {
				return nil, err
			}
			handlers = append(handlers, handler)
		default:
			return nil, fmt.Errorf("unknown handler: %v", handlerConfig.Handler)
		}
	}
	return handlers, nil
}

func waitForInterrupt() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		utils.WaitForCtrlC()
		close(done)
	}()
	return done
}
