package atomicmarket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	eos "github.com/eoscanada/eos-go"
	"github.com/sirupsen/logrus"

	"github.com/atomicore/eosio-contract-indexer/chain"
	"github.com/atomicore/eosio-contract-indexer/contract"
	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/notify"
	"github.com/atomicore/eosio-contract-indexer/types"
)

const HandlerName = "atomicmarket"

// job priorities: the listing tables land before the actions that transition
// their states, so an offer acceptance in the same block sees the sale row
const (
	priorityTableConfig          = 100
	priorityTableMarketplaces    = 90
	priorityTableSales           = 70
	priorityTableAuctions        = 70
	priorityTableBuyoffers       = 70
	priorityTableDelphi          = 70
	priorityActionUpdateSale     = 50
	priorityActionUpdateAuction  = 50
	priorityActionUpdateBuyoffer = 50
	priorityActionLog            = 40
)

type Args struct {
	AtomicMarketAccount string `mapstructure:"atomicmarket_account"`
	AtomicAssetsAccount string `mapstructure:"atomicassets_account"`
	DelphiOracleAccount string `mapstructure:"delphioracle_account"`
}

// Handler maintains the atomicmarket domain state: sales, auctions, buyoffers,
// bids, marketplaces, token configuration and oracle-linked pricing.
type Handler struct {
	contract.Base

	args  Args
	rpc   *chain.RpcClient
	scope *contract.Scope
}

func New(logger logrus.FieldLogger, rpc *chain.RpcClient, bus *notify.Bus, args map[string]interface{}) (*Handler, error) {
	handlerArgs := Args{}
	if err := contract.DecodeArgs(args, &handlerArgs); err != nil {
		return nil, err
	}
	if handlerArgs.AtomicMarketAccount == "" {
		return nil, fmt.Errorf("atomicmarket handler requires atomicmarket_account")
	}
	if handlerArgs.AtomicAssetsAccount == "" {
		return nil, fmt.Errorf("atomicmarket handler requires atomicassets_account")
	}

	market := handlerArgs.AtomicMarketAccount
	assets := handlerArgs.AtomicAssetsAccount

	scope := &contract.Scope{
		Actions: []contract.Filter{
			{Filter: market + ":lognewsale", Deserialize: true},
			{Filter: market + ":logsalestart", Deserialize: true},
			{Filter: market + ":cancelsale", Deserialize: true},
			{Filter: market + ":purchasesale", Deserialize: true},
			{Filter: market + ":lognewauct", Deserialize: true},
			{Filter: market + ":cancelauct", Deserialize: true},
			{Filter: market + ":auctionbid", Deserialize: true},
			{Filter: market + ":auctclaimbuy", Deserialize: true},
			{Filter: market + ":auctclaimsel", Deserialize: true},
			{Filter: market + ":lognewbuyo", Deserialize: true},
			{Filter: market + ":cancelbuyo", Deserialize: true},
			{Filter: market + ":acceptbuyo", Deserialize: true},
			{Filter: market + ":declinebuyo", Deserialize: true},
			// offer transitions on the assets contract drive sale states
			{Filter: assets + ":acceptoffer", Deserialize: true},
			{Filter: assets + ":declineoffer", Deserialize: true},
			{Filter: assets + ":canceloffer", Deserialize: true},
		},
		Tables: []contract.Filter{
			{Filter: market + ":*", Deserialize: true},
		},
	}
	if handlerArgs.DelphiOracleAccount != "" {
		scope.Tables = append(scope.Tables,
			contract.Filter{Filter: handlerArgs.DelphiOracleAccount + ":datapoints", Deserialize: true},
			contract.Filter{Filter: handlerArgs.DelphiOracleAccount + ":pairs", Deserialize: true},
		)
	}

	return &Handler{
		Base:  contract.NewBase(logger, HandlerName, bus.Publisher(HandlerName, market)),
		args:  handlerArgs,
		rpc:   rpc,
		scope: scope,
	}, nil
}

func (h *Handler) Name() string {
	return HandlerName
}

func (h *Handler) Contract() string {
	return h.args.AtomicMarketAccount
}

func (h *Handler) Scope() *contract.Scope {
	return h.scope
}

// Init verifies the persisted market config and bootstraps it from the chain
// RPC on first run.
func (h *Handler) Init(ctx context.Context) error {
	var version string
	err := db.ReaderDb.Get(&version, `SELECT version FROM atomicmarket_config WHERE contract = $1`, h.Contract())
	if err == nil {
		h.Logger.Infof("loaded persisted config, contract version %v", version)
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("error reading atomicmarket config: %v", err)
	}

	configRows := []marketConfigRow{}
	if err := h.rpc.GetTableRows(ctx, h.Contract(), h.Contract(), "config", 1, &configRows); err != nil {
		return err
	}
	if len(configRows) == 0 {
		return fmt.Errorf("atomicmarket contract %v has no config row on chain", h.Contract())
	}

	tx, err := db.NewContractTx(0, 0)
	if err != nil {
		return err
	}
	tx.SetCurrentHandler(HandlerName)

	if err := h.writeConfig(tx, &configRows[0]); err != nil {
		tx.Abort()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	h.Logger.Infof("bootstrapped config from chain rpc, contract version %v", configRows[0].Version)
	return nil
}

func (h *Handler) writeConfig(tx *db.ContractTx, payload *marketConfigRow) error {
	err := tx.Replace("atomicmarket_config", map[string]interface{}{
		"contract":                 h.Contract(),
		"version":                  payload.Version,
		"maker_market_fee":         payload.MakerMarketFee,
		"taker_market_fee":         payload.TakerMarketFee,
		"minimum_bid_increase":     payload.MinimumBidIncrease,
		"minimum_auction_duration": payload.MinimumAuctionDuration,
		"maximum_auction_duration": payload.MaximumAuctionDuration,
		"auction_reset_duration":   payload.AuctionResetDuration,
	}, []string{"contract"})
	if err != nil {
		return err
	}

	for _, token := range payload.SupportedTokens {
		precision, symbol := parseSymbolCode(token.TokenSymbol)
		err = tx.Replace("atomicmarket_tokens", map[string]interface{}{
			"market_contract": h.Contract(),
			"token_contract":  token.TokenContract,
			"token_symbol":    symbol,
			"token_precision": precision,
		}, []string{"market_contract", "token_symbol"})
		if err != nil {
			return err
		}
	}

	for _, pair := range payload.SupportedSymbolPairs {
		_, listing := parseSymbolCode(pair.ListingSymbol)
		_, settlement := parseSymbolCode(pair.SettlementSymbol)
		err = tx.Replace("atomicmarket_symbol_pairs", map[string]interface{}{
			"market_contract":    h.Contract(),
			"listing_symbol":     listing,
			"settlement_symbol":  settlement,
			"delphi_pair_name":   pair.DelphiPairName,
			"invert_delphi_pair": pair.InvertDelphiPair,
		}, []string{"market_contract", "listing_symbol", "settlement_symbol"})
		if err != nil {
			return err
		}
	}

	return nil
}

// DeleteDB drops every row this handler owns, for a forced full resync.
func (h *Handler) DeleteDB(tx *db.ContractTx) error {
	tables := []string{
		"atomicmarket_symbol_pairs",
		"atomicmarket_tokens",
		"atomicmarket_marketplaces",
		"atomicmarket_buyoffers_assets",
		"atomicmarket_buyoffers",
		"atomicmarket_auctions_bids",
		"atomicmarket_auctions_assets",
		"atomicmarket_auctions",
		"atomicmarket_sales",
		"atomicmarket_config",
	}
	column := "market_contract"
	for _, table := range tables {
		if table == "atomicmarket_config" {
			column = "contract"
		}
		if err := tx.Exec(fmt.Sprintf(`DELETE FROM %v WHERE %v = $1`, table, column), h.Contract()); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) OnBlockStart(block *types.Block) error {
	h.Queue.Clear()
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

// parseSymbolCode splits "8,WAX" into precision and code; a bare code keeps
// precision 0.
func parseSymbolCode(symbol string) (uint8, string) {
	idx := strings.IndexByte(symbol, ',')
	if idx < 0 {
		return 0, symbol
	}
	precision, err := strconv.ParseUint(symbol[:idx], 10, 8)
	if err != nil {
		return 0, symbol[idx+1:]
	}
	return uint8(precision), symbol[idx+1:]
}

// parseQuantity splits an asset string like "100.00000000 WAX" into raw
// amount and symbol code.
func parseQuantity(quantity string) (int64, string, error) {
	asset, err := eos.NewAssetFromString(quantity)
	if err != nil {
		return 0, "", err
	}
	return int64(asset.Amount), string(asset.Symbol.Symbol), nil
}

// nameFromPrimaryKey renders a table primary key that is an encoded name.
func nameFromPrimaryKey(primaryKey uint64) string {
	return eos.NameToString(primaryKey)
}
