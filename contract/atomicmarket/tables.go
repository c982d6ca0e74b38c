package atomicmarket

import (
	"github.com/atomicore/eosio-contract-indexer/contract"
	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/dbtypes"
	"github.com/atomicore/eosio-contract-indexer/types"
)

func (h *Handler) OnTableChange(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if h.args.DelphiOracleAccount != "" && row.Code == h.args.DelphiOracleAccount {
		switch row.Table {
		case "datapoints":
			h.Queue.Add(priorityTableDelphi, func(tx *db.ContractTx) error {
				return h.applyDelphiDatapoint(tx, block, row)
			})
		case "pairs":
			h.Queue.Add(priorityTableDelphi, func(tx *db.ContractTx) error {
				return h.applyDelphiPair(tx, block, row)
			})
		}
		return nil
	}

	switch row.Table {
	case "config":
		h.Queue.Add(priorityTableConfig, func(tx *db.ContractTx) error {
			return h.applyConfig(tx, block, row)
		})
	case "marketplaces":
		h.Queue.Add(priorityTableMarketplaces, func(tx *db.ContractTx) error {
			return h.applyMarketplace(tx, block, row)
		})
	case "sales":
		h.Queue.Add(priorityTableSales, func(tx *db.ContractTx) error {
			return h.applySale(tx, block, row)
		})
	case "auctions":
		h.Queue.Add(priorityTableAuctions, func(tx *db.ContractTx) error {
			return h.applyAuction(tx, block, row)
		})
	case "buyoffers":
		h.Queue.Add(priorityTableBuyoffers, func(tx *db.ContractTx) error {
			return h.applyBuyoffer(tx, block, row)
		})
	}
	return nil
}

func (h *Handler) applyConfig(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return nil
	}
	payload := marketConfigRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}
	return h.writeConfig(tx, &payload)
}

func (h *Handler) applyMarketplace(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return tx.Delete("atomicmarket_marketplaces", map[string]interface{}{
			"market_contract":  h.Contract(),
			"marketplace_name": nameFromPrimaryKey(row.PrimaryKey),
		})
	}

	payload := marketplaceRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	existed, err := h.rowExists(tx, "atomicmarket_marketplaces", "marketplace_name", payload.MarketplaceName)
	if err != nil {
		return err
	}
	if existed {
		return nil
	}

	return tx.Insert("atomicmarket_marketplaces", map[string]interface{}{
		"market_contract":  h.Contract(),
		"marketplace_name": payload.MarketplaceName,
		"creator":          payload.Creator,
		"created_at_block": block.BlockNum,
		"created_at_time":  block.Timestamp.UnixMilli(),
	}, []string{"market_contract", "marketplace_name"})
}

// applySale inserts the listing when it first appears in contract RAM. State
// transitions come from the actions, which run at lower priority in the same
// block and therefore always see this row.
func (h *Handler) applySale(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		// sale rows leave RAM on cancel/purchase; the action writes the final state
		return nil
	}

	payload := saleRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	existed, err := h.rowExists(tx, "atomicmarket_sales", "sale_id", payload.SaleId)
	if err != nil {
		return err
	}

	var offerId interface{}
	if payload.OfferId >= 0 {
		offerId = payload.OfferId
	}

	if existed {
		return tx.Update("atomicmarket_sales", map[string]interface{}{
			"offer_id":         offerId,
			"updated_at_block": block.BlockNum,
		}, map[string]interface{}{
			"market_contract": h.Contract(),
			"sale_id":         payload.SaleId,
		}, []string{"market_contract", "sale_id"})
	}

	amount, listingSymbol, err := parseQuantity(payload.ListingPrice)
	if err != nil {
		return err
	}
	_, settlementSymbol := parseSymbolCode(payload.SettlementSymbol)

	return tx.Insert("atomicmarket_sales", map[string]interface{}{
		"market_contract":   h.Contract(),
		"sale_id":           payload.SaleId,
		"assets_contract":   h.args.AtomicAssetsAccount,
		"offer_id":          offerId,
		"seller":            payload.Seller,
		"buyer":             nil,
		"listing_price":     amount,
		"listing_symbol":    listingSymbol,
		"settlement_symbol": settlementSymbol,
		"collection_name":   payload.CollectionName,
		"collection_fee":    payload.CollectionFee,
		"maker_marketplace": payload.MakerMarketplace,
		"taker_marketplace": nil,
		"state":             dbtypes.SaleStateWaiting,
		"updated_at_block":  block.BlockNum,
		"created_at_block":  block.BlockNum,
		"created_at_time":   block.Timestamp.UnixMilli(),
	}, []string{"market_contract", "sale_id"})
}

func (h *Handler) applyAuction(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		// auction rows stay until claimed; removal carries no state we need
		return nil
	}

	payload := auctionRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	amount, symbol, err := parseQuantity(payload.CurrentBid)
	if err != nil {
		return err
	}

	var buyer interface{}
	if payload.CurrentBidder != "" {
		buyer = payload.CurrentBidder
	}
	var taker interface{}
	if payload.TakerMarketplace != "" {
		taker = payload.TakerMarketplace
	}

	state := dbtypes.AuctionStateWaiting
	if payload.AssetsTransferred {
		state = dbtypes.AuctionStateListed
	}

	existed, err := h.rowExists(tx, "atomicmarket_auctions", "auction_id", payload.AuctionId)
	if err != nil {
		return err
	}

	if existed {
		return tx.Update("atomicmarket_auctions", map[string]interface{}{
			"buyer":             buyer,
			"price":             amount,
			"claimed_by_buyer":  payload.ClaimedByBuyer,
			"claimed_by_seller": payload.ClaimedBySeller,
			"taker_marketplace": taker,
			"state":             state,
			"end_time":          payload.EndTime,
			"updated_at_block":  block.BlockNum,
		}, map[string]interface{}{
			"market_contract": h.Contract(),
			"auction_id":      payload.AuctionId,
		}, []string{"market_contract", "auction_id"})
	}

	err = tx.Insert("atomicmarket_auctions", map[string]interface{}{
		"market_contract":   h.Contract(),
		"auction_id":        payload.AuctionId,
		"assets_contract":   h.args.AtomicAssetsAccount,
		"seller":            payload.Seller,
		"buyer":             buyer,
		"price":             amount,
		"token_symbol":      symbol,
		"collection_name":   payload.CollectionName,
		"collection_fee":    payload.CollectionFee,
		"claimed_by_buyer":  payload.ClaimedByBuyer,
		"claimed_by_seller": payload.ClaimedBySeller,
		"maker_marketplace": payload.MakerMarketplace,
		"taker_marketplace": taker,
		"state":             state,
		"end_time":          payload.EndTime,
		"updated_at_block":  block.BlockNum,
		"created_at_block":  block.BlockNum,
		"created_at_time":   block.Timestamp.UnixMilli(),
	}, []string{"market_contract", "auction_id"})
	if err != nil {
		return err
	}

	for _, assetId := range payload.AssetIds {
		err = tx.Insert("atomicmarket_auctions_assets", map[string]interface{}{
			"market_contract": h.Contract(),
			"auction_id":      payload.AuctionId,
			"assets_contract": h.args.AtomicAssetsAccount,
			"asset_id":        assetId,
		}, []string{"market_contract", "auction_id", "asset_id"})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) applyBuyoffer(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		// buyoffer rows leave RAM on accept/decline/cancel; the action writes the final state
		return nil
	}

	payload := buyofferRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	existed, err := h.rowExists(tx, "atomicmarket_buyoffers", "buyoffer_id", payload.BuyofferId)
	if err != nil {
		return err
	}
	if existed {
		return nil
	}

	amount, symbol, err := parseQuantity(payload.Price)
	if err != nil {
		return err
	}

	err = tx.Insert("atomicmarket_buyoffers", map[string]interface{}{
		"market_contract":   h.Contract(),
		"buyoffer_id":       payload.BuyofferId,
		"assets_contract":   h.args.AtomicAssetsAccount,
		"buyer":             payload.Buyer,
		"seller":            payload.Recipient,
		"price":             amount,
		"token_symbol":      symbol,
		"collection_name":   payload.CollectionName,
		"collection_fee":    payload.CollectionFee,
		"memo":              payload.Memo,
		"decline_memo":      nil,
		"maker_marketplace": payload.MakerMarketplace,
		"taker_marketplace": nil,
		"state":             dbtypes.BuyofferStatePending,
		"updated_at_block":  block.BlockNum,
		"created_at_block":  block.BlockNum,
		"created_at_time":   block.Timestamp.UnixMilli(),
	}, []string{"market_contract", "buyoffer_id"})
	if err != nil {
		return err
	}

	for _, assetId := range payload.AssetIds {
		err = tx.Insert("atomicmarket_buyoffers_assets", map[string]interface{}{
			"market_contract": h.Contract(),
			"buyoffer_id":     payload.BuyofferId,
			"assets_contract": h.args.AtomicAssetsAccount,
			"asset_id":        assetId,
		}, []string{"market_contract", "buyoffer_id", "asset_id"})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) applyDelphiDatapoint(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return nil
	}
	payload := delphiDatapointRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	existed, err := h.delphiPairExists(tx, row.Scope)
	if err != nil {
		return err
	}
	if !existed {
		// pair row not seen yet; precision arrives with the pairs delta
		return tx.Insert("delphioracle_pairs", map[string]interface{}{
			"contract":         h.args.DelphiOracleAccount,
			"delphi_pair_name": row.Scope,
			"median":           payload.Median,
			"median_precision": 0,
			"updated_at_block": block.BlockNum,
			"updated_at_time":  block.Timestamp.UnixMilli(),
		}, []string{"contract", "delphi_pair_name"})
	}

	return tx.Update("delphioracle_pairs", map[string]interface{}{
		"median":           payload.Median,
		"updated_at_block": block.BlockNum,
		"updated_at_time":  block.Timestamp.UnixMilli(),
	}, map[string]interface{}{
		"contract":         h.args.DelphiOracleAccount,
		"delphi_pair_name": row.Scope,
	}, []string{"contract", "delphi_pair_name"})
}

func (h *Handler) applyDelphiPair(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return nil
	}
	payload := delphiPairRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	existed, err := h.delphiPairExists(tx, payload.Name)
	if err != nil {
		return err
	}
	if !existed {
		return tx.Insert("delphioracle_pairs", map[string]interface{}{
			"contract":         h.args.DelphiOracleAccount,
			"delphi_pair_name": payload.Name,
			"median":           0,
			"median_precision": payload.QuotedPrecision,
			"updated_at_block": block.BlockNum,
			"updated_at_time":  block.Timestamp.UnixMilli(),
		}, []string{"contract", "delphi_pair_name"})
	}

	return tx.Update("delphioracle_pairs", map[string]interface{}{
		"median_precision": payload.QuotedPrecision,
		"updated_at_block": block.BlockNum,
	}, map[string]interface{}{
		"contract":         h.args.DelphiOracleAccount,
		"delphi_pair_name": payload.Name,
	}, []string{"contract", "delphi_pair_name"})
}

func (h *Handler) rowExists(tx *db.ContractTx, table string, keyColumn string, key interface{}) (bool, error) {
	var count int
	err := tx.Get(&count, `SELECT COUNT(*) FROM `+table+` WHERE market_contract = $1 AND `+keyColumn+` = $2`, h.Contract(), key)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *Handler) delphiPairExists(tx *db.ContractTx, pair string) (bool, error) {
	var count int
	err := tx.Get(&count, `SELECT COUNT(*) FROM delphioracle_pairs WHERE contract = $1 AND delphi_pair_name = $2`, h.args.DelphiOracleAccount, pair)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
