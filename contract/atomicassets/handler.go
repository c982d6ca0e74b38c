package atomicassets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/coocood/freecache"
	"github.com/sirupsen/logrus"

	"github.com/atomicore/eosio-contract-indexer/chain"
	"github.com/atomicore/eosio-contract-indexer/contract"
	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/notify"
	"github.com/atomicore/eosio-contract-indexer/types"
)

const HandlerName = "atomicassets"

// job priorities: table deltas land before the actions that reference them
const (
	priorityTableConfig      = 100
	priorityTableCollections = 90
	priorityTableSchemas     = 85
	priorityTableTemplates   = 80
	priorityTableOffers      = 70
	priorityTableAssets      = 60
	priorityTableBalances    = 60
	priorityActionMint       = 50
	priorityActionTransfer   = 50
	priorityActionBurn       = 50
	priorityActionUpdate     = 50
	priorityActionLog        = 40
)

const templateCacheSize = 2 * 1024 * 1024

type Args struct {
	AtomicAssetsAccount string `mapstructure:"atomicassets_account"`
	StoreTransfers      bool   `mapstructure:"store_transfers"`
	StoreLogs           bool   `mapstructure:"store_logs"`
}

// Handler maintains the atomicassets domain state: collections, schemas,
// templates, assets, offers, transfers, balances and the append-only event log.
type Handler struct {
	contract.Base

	args  Args
	rpc   *chain.RpcClient
	scope *contract.Scope

	// hot template lookups during mint bursts skip the database
	templateCache *freecache.Cache

	transferCounter uint64
}

func New(logger logrus.FieldLogger, rpc *chain.RpcClient, bus *notify.Bus, args map[string]interface{}) (*Handler, error) {
	handlerArgs := Args{StoreTransfers: true, StoreLogs: true}
	if err := contract.DecodeArgs(args, &handlerArgs); err != nil {
		return nil, err
	}
	if handlerArgs.AtomicAssetsAccount == "" {
		return nil, fmt.Errorf("atomicassets handler requires atomicassets_account")
	}

	account := handlerArgs.AtomicAssetsAccount
	handler := &Handler{
		Base:          contract.NewBase(logger, HandlerName, bus.Publisher(HandlerName, account)),
		args:          handlerArgs,
		rpc:           rpc,
		templateCache: freecache.NewCache(templateCacheSize),
		scope: &contract.Scope{
			Actions: []contract.Filter{
				{Filter: account + ":logmint", Deserialize: true},
				{Filter: account + ":logtransfer", Deserialize: true},
				{Filter: account + ":logburnasset", Deserialize: true},
				{Filter: account + ":logbackasset", Deserialize: true},
				{Filter: account + ":logsetdata", Deserialize: true},
				{Filter: account + ":lognewoffer", Deserialize: true},
				{Filter: account + ":acceptoffer", Deserialize: true},
				{Filter: account + ":declineoffer", Deserialize: true},
				{Filter: account + ":canceloffer", Deserialize: true},
			},
			Tables: []contract.Filter{
				{Filter: account + ":*", Deserialize: true},
			},
		},
	}
	return handler, nil
}

func (h *Handler) Name() string {
	return HandlerName
}

func (h *Handler) Contract() string {
	return h.args.AtomicAssetsAccount
}

func (h *Handler) Scope() *contract.Scope {
	return h.scope
}

// Init verifies the persisted contract config and bootstraps it from the
// chain RPC on first run.
func (h *Handler) Init(ctx context.Context) error {
	var version string
	err := db.ReaderDb.Get(&version, `SELECT version FROM atomicassets_config WHERE contract = $1`, h.Contract())
	if err == nil {
		h.Logger.Infof("loaded persisted config, contract version %v", version)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("error reading atomicassets config: %v", err)
	}

	return h.bootstrapConfig(ctx)
}

func (h *Handler) bootstrapConfig(ctx context.Context) error {
	configRows := []configRow{}
	if err := h.rpc.GetTableRows(ctx, h.Contract(), h.Contract(), "config", 1, &configRows); err != nil {
		return err
	}
	if len(configRows) == 0 {
		return fmt.Errorf("atomicassets contract %v has no config row on chain", h.Contract())
	}

	tokenConfigRows := []tokenConfigsRow{}
	if err := h.rpc.GetTableRows(ctx, h.Contract(), h.Contract(), "tokenconfigs", 1, &tokenConfigRows); err != nil {
		return err
	}
	version := "unknown"
	if len(tokenConfigRows) > 0 {
		version = tokenConfigRows[0].Version
	}

	tx, err := db.NewContractTx(0, 0)
	if err != nil {
		return err
	}
	tx.SetCurrentHandler(HandlerName)

	err = tx.Insert("atomicassets_config", map[string]interface{}{
		"contract":          h.Contract(),
		"version":           version,
		"collection_format": contract.JsonString(configRows[0].CollectionFormat),
		"supported_tokens":  contract.JsonString(configRows[0].SupportedTokens),
	}, []string{"contract"})
	if err != nil {
		tx.Abort()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	h.Logger.Infof("bootstrapped config from chain rpc, contract version %v", version)
	return nil
}

// DeleteDB drops every row this handler owns, for a forced full resync.
func (h *Handler) DeleteDB(tx *db.ContractTx) error {
	tables := []string{
		"atomicassets_balances",
		"atomicassets_transfers_assets",
		"atomicassets_transfers",
		"atomicassets_offers_assets",
		"atomicassets_offers",
		"atomicassets_assets",
		"atomicassets_templates",
		"atomicassets_schemas",
		"atomicassets_collections",
		"atomicassets_config",
	}
	for _, table := range tables {
		if err := tx.Exec(fmt.Sprintf(`DELETE FROM %v WHERE contract = $1`, table), h.Contract()); err != nil {
			return err
		}
	}
	return tx.Exec(`DELETE FROM contract_logs WHERE contract = $1`, h.Contract())
}

func (h *Handler) OnBlockStart(block *types.Block) error {
	h.Queue.Clear()
	h.transferCounter = 0
	return nil
}

func (h *Handler) OnBlockComplete(tx *db.ContractTx, block *types.Block) error {
	return h.Queue.Drain(tx)
}

func (h *Handler) OnCommit(ctx context.Context) error {
	h.Publisher.Flush(ctx)
	return nil
}

func (h *Handler) OnAbort() {
	h.Queue.Clear()
	h.Publisher.Discard()
}

// createLog appends one row to the contract event log unless disabled.
func (h *Handler) createLog(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, relationName string, relationId string, name string, data interface{}) error {
	if !h.args.StoreLogs {
		return nil
	}

	var txid []byte
	if txTrace != nil {
		txid = contract.ParseTxid(txTrace.Id)
	}
	return db.InsertContractLog(tx, h.Contract(), relationName, relationId, name, contract.JsonString(data), txid, block.BlockNum, block.Timestamp.UnixMilli())
}
