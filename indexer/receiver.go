package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/atomicore/eosio-contract-indexer/chain"
	"github.com/atomicore/eosio-contract-indexer/chain/ship"
	"github.com/atomicore/eosio-contract-indexer/contract"
	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/notify"
	"github.com/atomicore/eosio-contract-indexer/types"
	"github.com/atomicore/eosio-contract-indexer/utils"
)

// Receiver orchestrates the filler pipeline: it pulls decoded blocks from the
// state history client, routes traces and deltas to the loaded handlers inside
// one database transaction per block, owns the fork window and drives the
// per-block priority job drain.
//
// All handler hooks and transaction access run on the Run goroutine; the
// deserializer pool and the socket client are the only parallel actors.
type Receiver struct {
	logger   logrus.FieldLogger
	client   *ship.Client
	pool     *chain.DeserializerPool
	abiCache *chain.AbiCache
	rpc      *chain.RpcClient
	bus      *notify.Bus

	handlers    []contract.Handler
	mergedScope *contract.Scope
	contracts   []string

	readerName   string
	startBlock   uint64
	stopBlock    uint64
	blockRetries int

	currentBlock     uint64
	lastBlockId      string
	lastIrreversible uint64
}

func NewReceiver(logger logrus.FieldLogger, client *ship.Client, pool *chain.DeserializerPool, abiCache *chain.AbiCache, rpc *chain.RpcClient, bus *notify.Bus, handlers []contract.Handler, readerName string, startBlock uint64, stopBlock uint64, blockRetries int) *Receiver {
	merged := contract.MergedScope(handlers)

	seen := map[string]bool{}
	contracts := []string{}
	for _, filter := range append(append([]contract.Filter{}, merged.Actions...), merged.Tables...) {
		account := filter.Account()
		if account != "" && !seen[account] {
			seen[account] = true
			contracts = append(contracts, account)
		}
	}

	return &Receiver{
		logger:       logger.WithField("module", "receiver"),
		client:       client,
		pool:         pool,
		abiCache:     abiCache,
		rpc:          rpc,
		bus:          bus,
		handlers:     handlers,
		mergedScope:  merged,
		contracts:    contracts,
		readerName:   readerName,
		startBlock:   startBlock,
		stopBlock:    stopBlock,
		blockRetries: blockRetries,
	}
}

// Init prepares handlers and the ABI cache. Contracts with no stored ABI are
// seeded from the chain RPC so decoding can start before the first on-stream
// setabi.
func (r *Receiver) Init(ctx context.Context) error {
	for _, handler := range r.handlers {
		if err := handler.Init(ctx); err != nil {
			return fmt.Errorf("error initializing handler %v: %v", handler.Name(), err)
		}
	}

	for _, account := range r.contracts {
		if err := r.abiCache.LoadContract(account); err != nil {
			return err
		}
		if r.abiCache.Get(account, ^uint64(0)) != nil {
			continue
		}

		raw, err := r.rpc.GetAbi(ctx, account)
		if err != nil {
			return err
		}
		tx, err := db.NewContractTx(0, 0)
		if err != nil {
			return err
		}
		if err := r.abiCache.Install(tx, account, 0, raw); err != nil {
			tx.Abort()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		r.logger.Infof("seeded abi for %v from chain rpc", account)
	}

	state, err := db.GetReaderState(r.readerName)
	if err != nil {
		return fmt.Errorf("error loading reader state: %v", err)
	}
	if state != nil {
		r.currentBlock = state.BlockNum
		r.lastBlockId = state.BlockId
		if r.startBlock != 0 && r.startBlock != state.BlockNum+1 {
			r.logger.Warnf("configured start block %v overridden by committed position %v", r.startBlock, state.BlockNum)
		}
		r.startBlock = state.BlockNum + 1
		r.logger.Infof("resuming from committed block %v", state.BlockNum)
	}

	return nil
}

// StartBlock is the first block the receiver will request from the stream.
func (r *Receiver) StartBlock() uint64 {
	return r.startBlock
}

// Run processes the stream until it ends (shutdown or stop block). A block
// that keeps failing after the configured retries halts the filler; the
// indexer prefers stopping over silent corruption.
func (r *Receiver) Run(ctx context.Context) error {
	for msg := range r.client.Messages() {
		if ctx.Err() != nil {
			break
		}

		if msg.ForkAt != 0 {
			if err := r.handleFork(ctx, msg.ForkAt); err != nil {
				return err
			}
		}

		if err := r.processWithRetries(ctx, msg.Block); err != nil {
			return err
		}

		if r.stopBlock != 0 && r.currentBlock >= r.stopBlock {
			r.logger.Infof("reached stop block %v", r.stopBlock)
			break
		}
	}

	r.logger.Infof("stopping at last committed block %v", r.currentBlock)
	return nil
}

func (r *Receiver) processWithRetries(ctx context.Context, raw *ship.BlockResult) error {
	var lastErr error
	for attempt := 0; attempt <= r.blockRetries; attempt++ {
		err := r.processBlock(ctx, raw)
		if err == nil {
			return nil
		}
		lastErr = err

		var decodeErr *chain.DecodeError
		var unsupportedErr *chain.UnsupportedDeltaError
		var dbErr *db.DBError
		switch {
		case errors.As(err, &unsupportedErr):
			// no retry can help an unknown delta variant
			return fmt.Errorf("halting at block %v: %v", raw.BlockNum, err)
		case errors.As(err, &decodeErr):
			if attempt > 0 {
				return fmt.Errorf("halting at block %v after abi refresh: %v", raw.BlockNum, err)
			}
			r.logger.WithError(err).Warnf("decode error at block %v, refreshing abi of %v and retrying", raw.BlockNum, decodeErr.Contract)
			if refreshErr := r.refreshAbi(ctx, decodeErr.Contract); refreshErr != nil {
				return fmt.Errorf("halting at block %v: abi refresh failed: %v", raw.BlockNum, refreshErr)
			}
		case errors.As(err, &dbErr):
			r.logger.WithError(err).Warnf("database error at block %v (attempt %v/%v)", raw.BlockNum, attempt+1, r.blockRetries+1)
		default:
			// handler logic error: invariant violation or missing parent entity
			utils.LogError(err, fmt.Sprintf("handler error at block %v", raw.BlockNum), 0)
			return fmt.Errorf("halting at block %v: %v", raw.BlockNum, err)
		}
	}
	return fmt.Errorf("halting at block %v after %v attempts: %v", raw.BlockNum, r.blockRetries+1, lastErr)
}

func (r *Receiver) refreshAbi(ctx context.Context, account string) error {
	if account == "" {
		return fmt.Errorf("decode error carries no contract")
	}
	raw, err := r.rpc.GetAbi(ctx, account)
	if err != nil {
		return err
	}
	return r.abiCache.Install(nil, account, r.currentBlock+1, raw)
}

type pendingAction struct {
	trace   *types.ActionTrace
	pending *chain.PendingDecode
}

func (r *Receiver) processBlock(ctx context.Context, raw *ship.BlockResult) error {
	block, err := buildBlock(raw)
	if err != nil {
		return err
	}

	tx, err := db.NewContractTx(block.BlockNum, block.LastIrreversibleNum)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Abort()
			for _, handler := range r.handlers {
				handler.OnAbort()
			}
		}
	}()

	for _, handler := range r.handlers {
		if err = handler.OnBlockStart(block); err != nil {
			return err
		}
	}

	// submit payload decodes ahead of dispatch; a setabi installs its cache
	// entry here so every later payload in this block decodes against it
	pending := []*pendingAction{}
	for _, txTrace := range block.Transactions {
		for _, trace := range txTrace.Traces {
			if trace.Account == "eosio" && trace.Name == "setabi" {
				if err = r.installAbi(tx, block, trace); err != nil {
					return err
				}
				continue
			}
			if trace.IsNotification() {
				continue
			}

			matched, deserialize := r.mergedScope.MatchesAction(trace.Account, trace.Name)
			if !matched || !deserialize {
				continue
			}

			abi := r.abiCache.Get(trace.Account, block.BlockNum)
			if abi == nil {
				err = &chain.DecodeError{Contract: trace.Account, Type: trace.Name, Err: fmt.Errorf("no abi known at block %v", block.BlockNum)}
				return err
			}
			pending = append(pending, &pendingAction{
				trace:   trace,
				pending: r.pool.DecodeAction(abi, r.abiCache.Tag(trace.Account, block.BlockNum), trace.Account, trace.Name, trace.RawData),
			})
		}
	}
	for _, entry := range pending {
		entry.trace.Data, err = entry.pending.Wait()
		if err != nil {
			return err
		}
	}

	pendingRows := map[*types.TableRow]*chain.PendingDecode{}
	for _, row := range block.Deltas {
		matched, deserialize := r.mergedScope.MatchesTable(row.Code, row.Table)
		if !matched || !deserialize || !row.Present {
			continue
		}

		abi := r.abiCache.Get(row.Code, block.BlockNum)
		if abi == nil {
			err = &chain.DecodeError{Contract: row.Code, Type: row.Table, Err: fmt.Errorf("no abi known at block %v", block.BlockNum)}
			return err
		}
		pendingRows[row] = r.pool.DecodeTableRow(abi, r.abiCache.Tag(row.Code, block.BlockNum), row.Code, row.Table, row.RawData)
	}
	for _, row := range block.Deltas {
		if decode, ok := pendingRows[row]; ok {
			row.Data, err = decode.Wait()
			if err != nil {
				return err
			}
		}
	}

	// dispatch traces in chain execution order, then deltas
	for _, txTrace := range block.Transactions {
		for _, trace := range txTrace.Traces {
			if trace.IsNotification() {
				continue
			}
			for _, handler := range r.handlers {
				if matched, _ := handler.Scope().MatchesAction(trace.Account, trace.Name); !matched {
					continue
				}
				tx.SetCurrentHandler(handler.Name())
				if err = handler.OnAction(tx, block, txTrace, trace); err != nil {
					return err
				}
			}
		}
	}

	for _, row := range block.Deltas {
		for _, handler := range r.handlers {
			if matched, _ := handler.Scope().MatchesTable(row.Code, row.Table); !matched {
				continue
			}
			tx.SetCurrentHandler(handler.Name())
			if err = handler.OnTableChange(tx, block, row); err != nil {
				return err
			}
		}
	}

	for _, handler := range r.handlers {
		tx.SetCurrentHandler(handler.Name())
		if err = handler.OnBlockComplete(tx, block); err != nil {
			return err
		}
	}

	if block.LastIrreversibleNum > r.lastIrreversible {
		r.lastIrreversible = block.LastIrreversibleNum
	}
	if err = db.PruneRollbackOps(tx, r.lastIrreversible); err != nil {
		return err
	}
	if err = db.UpdateReaderState(tx, r.readerName, block.BlockNum, block.BlockId); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return err
	}

	r.currentBlock = block.BlockNum
	r.lastBlockId = block.BlockId
	blocksCommitted.Inc()
	committedBlockGauge.Set(float64(block.BlockNum))
	lastIrreversibleGauge.Set(float64(r.lastIrreversible))
	headBlockGauge.Set(float64(block.HeadNum))

	for _, handler := range r.handlers {
		if commitErr := handler.OnCommit(ctx); commitErr != nil {
			// notification failures never roll back committed data
			r.logger.WithError(commitErr).Errorf("error in commit hook of %v", handler.Name())
		}
	}

	if block.BlockNum%1000 == 0 {
		r.logger.WithFields(logrus.Fields{
			"block": block.BlockNum,
			"head":  block.HeadNum,
		}).Info("progress")
	}

	return nil
}

func (r *Receiver) installAbi(tx *db.ContractTx, block *types.Block, trace *types.ActionTrace) error {
	account, raw, err := decodeSetAbi(trace.RawData)
	if err != nil {
		return err
	}

	tracked := false
	for _, contractName := range r.contracts {
		if contractName == account {
			tracked = true
			break
		}
	}
	if !tracked {
		return nil
	}

	return r.abiCache.Install(tx, account, block.BlockNum, raw)
}

// handleFork restores the database to its state at the end of block forkAt-1
// by applying the recorded inverse operations in reverse order, then resumes
// ingestion at forkAt.
func (r *Receiver) handleFork(ctx context.Context, forkAt uint64) error {
	r.logger.Warnf("rolling back fork at block %v (current %v)", forkAt, r.currentBlock)

	for _, handler := range r.handlers {
		handler.OnAbort()
	}

	err := db.RunDBTransaction(func(tx *sqlx.Tx) error {
		ops, err := db.GetRollbackOps(tx, forkAt)
		if err != nil {
			return err
		}
		for _, op := range ops {
			if err := db.ApplyRollbackOp(tx, op); err != nil {
				return fmt.Errorf("error applying rollback op %v: %v", op.GlobalSeq, err)
			}
		}
		if err := db.DeleteRollbackOps(tx, forkAt); err != nil {
			return err
		}
		if err := db.DeleteContractLogsFrom(tx, forkAt); err != nil {
			return err
		}
		if err := db.DeleteContractAbisFrom(tx, forkAt); err != nil {
			return err
		}
		return db.ResetReaderState(tx, r.readerName, forkAt-1)
	})
	if err != nil {
		return fmt.Errorf("error rolling back fork at %v: %v", forkAt, err)
	}

	r.abiCache.Rollback(forkAt)
	r.currentBlock = forkAt - 1
	forksHandled.Inc()

	for _, handler := range r.handlers {
		r.bus.PublishChainFork(ctx, handler.Name(), handler.Contract(), forkAt)
	}

	return nil
}
