package atomicmarket

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atomicore/eosio-contract-indexer/contract"
	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/dbtypes"
	"github.com/atomicore/eosio-contract-indexer/types"
)

func (h *Handler) OnAction(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	if trace.Account == h.args.AtomicAssetsAccount {
		switch trace.Name {
		case "acceptoffer":
			h.Queue.Add(priorityActionUpdateSale, func(tx *db.ContractTx) error {
				return h.onOfferTransition(tx, block, txTrace, trace, dbtypes.SaleStateSold)
			})
		case "declineoffer", "canceloffer":
			h.Queue.Add(priorityActionUpdateSale, func(tx *db.ContractTx) error {
				return h.onOfferTransition(tx, block, txTrace, trace, dbtypes.SaleStateCanceled)
			})
		}
		return nil
	}

	switch trace.Name {
	case "lognewsale":
		h.Queue.Add(priorityActionLog, func(tx *db.ContractTx) error {
			return h.onLogNewSale(tx, block, txTrace, trace)
		})
	case "logsalestart":
		h.Queue.Add(priorityActionUpdateSale, func(tx *db.ContractTx) error {
			return h.onLogSaleStart(tx, block, txTrace, trace)
		})
	case "cancelsale":
		h.Queue.Add(priorityActionUpdateSale, func(tx *db.ContractTx) error {
			return h.onSaleState(tx, block, txTrace, trace, dbtypes.SaleStateCanceled, nil, nil)
		})
	case "purchasesale":
		h.Queue.Add(priorityActionUpdateSale, func(tx *db.ContractTx) error {
			return h.onPurchaseSale(tx, block, txTrace, trace)
		})
	case "lognewauct":
		h.Queue.Add(priorityActionLog, func(tx *db.ContractTx) error {
			return h.onLogNewAuction(tx, block, txTrace, trace)
		})
	case "cancelauct":
		h.Queue.Add(priorityActionUpdateAuction, func(tx *db.ContractTx) error {
			return h.onAuctionState(tx, block, txTrace, trace, dbtypes.AuctionStateCanceled)
		})
	case "auctionbid":
		h.Queue.Add(priorityActionUpdateAuction, func(tx *db.ContractTx) error {
			return h.onAuctionBid(tx, block, txTrace, trace)
		})
	case "auctclaimbuy":
		h.Queue.Add(priorityActionUpdateAuction, func(tx *db.ContractTx) error {
			return h.onAuctionClaim(tx, block, txTrace, trace, "claimed_by_buyer")
		})
	case "auctclaimsel":
		h.Queue.Add(priorityActionUpdateAuction, func(tx *db.ContractTx) error {
			return h.onAuctionClaim(tx, block, txTrace, trace, "claimed_by_seller")
		})
	case "lognewbuyo":
		h.Queue.Add(priorityActionLog, func(tx *db.ContractTx) error {
			return h.onLogNewBuyoffer(tx, block, txTrace, trace)
		})
	case "cancelbuyo":
		h.Queue.Add(priorityActionUpdateBuyoffer, func(tx *db.ContractTx) error {
			return h.onBuyofferState(tx, block, txTrace, trace, dbtypes.BuyofferStateCanceled, nil)
		})
	case "acceptbuyo":
		h.Queue.Add(priorityActionUpdateBuyoffer, func(tx *db.ContractTx) error {
			return h.onBuyofferState(tx, block, txTrace, trace, dbtypes.BuyofferStateAccepted, nil)
		})
	case "declinebuyo":
		h.Queue.Add(priorityActionUpdateBuyoffer, func(tx *db.ContractTx) error {
			return h.onDeclineBuyoffer(tx, block, txTrace, trace)
		})
	}
	return nil
}

// onOfferTransition propagates an atomicassets offer transition onto the sale
// that references it. The sale delta of the same block ran at table priority,
// so a sale listed and sold within one block resolves correctly.
func (h *Handler) onOfferTransition(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace, state dbtypes.SaleState) error {
	payload := offerIdAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	sales, err := db.GetSalesByOffer(tx, h.Contract(), h.args.AtomicAssetsAccount, payload.OfferId)
	if err != nil {
		return err
	}

	for _, sale := range sales {
		if dbtypes.SaleState(sale.State) != dbtypes.SaleStateListed && dbtypes.SaleState(sale.State) != dbtypes.SaleStateWaiting {
			continue
		}

		err = tx.Update("atomicmarket_sales", map[string]interface{}{
			"state":            state,
			"updated_at_block": block.BlockNum,
		}, map[string]interface{}{
			"market_contract": h.Contract(),
			"sale_id":         sale.SaleId,
		}, []string{"market_contract", "sale_id"})
		if err != nil {
			return err
		}

		h.Notify(tx, block, txTrace, "sales", "state_change", map[string]interface{}{
			"sale_id": sale.SaleId,
			"state":   state,
		})
	}
	return nil
}

func (h *Handler) onLogNewSale(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logNewSaleAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "sales", "create", payload)
	return nil
}

func (h *Handler) onLogSaleStart(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logSaleStartAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	err := tx.Update("atomicmarket_sales", map[string]interface{}{
		"offer_id":         payload.OfferId,
		"state":            dbtypes.SaleStateListed,
		"updated_at_block": block.BlockNum,
	}, map[string]interface{}{
		"market_contract": h.Contract(),
		"sale_id":         payload.SaleId,
	}, []string{"market_contract", "sale_id"})
	if err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "sales", "state_change", map[string]interface{}{
		"sale_id": payload.SaleId,
		"state":   dbtypes.SaleStateListed,
	})
	return nil
}

func (h *Handler) onSaleState(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace, state dbtypes.SaleState, buyer interface{}, taker interface{}) error {
	payload := saleIdAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}
	return h.updateSaleState(tx, block, txTrace, payload.SaleId, state, buyer, taker)
}

func (h *Handler) onPurchaseSale(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := purchaseSaleAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	var taker interface{}
	if payload.TakerMarketplace != "" {
		taker = payload.TakerMarketplace
	}
	return h.updateSaleState(tx, block, txTrace, payload.SaleId, dbtypes.SaleStateSold, payload.Buyer, taker)
}

func (h *Handler) updateSaleState(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, saleId uint64, state dbtypes.SaleState, buyer interface{}, taker interface{}) error {
	values := map[string]interface{}{
		"state":            state,
		"updated_at_block": block.BlockNum,
	}
	if buyer != nil {
		values["buyer"] = buyer
	}
	if taker != nil {
		values["taker_marketplace"] = taker
	}

	err := tx.Update("atomicmarket_sales", values, map[string]interface{}{
		"market_contract": h.Contract(),
		"sale_id":         saleId,
	}, []string{"market_contract", "sale_id"})
	if err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "sales", "state_change", map[string]interface{}{
		"sale_id": saleId,
		"state":   state,
	})
	return nil
}

func (h *Handler) onLogNewAuction(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logNewAuctionAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "auctions", "create", payload)
	return nil
}

func (h *Handler) onAuctionState(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace, state dbtypes.AuctionState) error {
	payload := auctionIdAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	err := tx.Update("atomicmarket_auctions", map[string]interface{}{
		"state":            state,
		"updated_at_block": block.BlockNum,
	}, map[string]interface{}{
		"market_contract": h.Contract(),
		"auction_id":      payload.AuctionId,
	}, []string{"market_contract", "auction_id"})
	if err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "auctions", "state_change", map[string]interface{}{
		"auction_id": payload.AuctionId,
		"state":      state,
	})
	return nil
}

// onAuctionBid records the bid and validates it against the configured
// minimum increase. A bid below the minimum is an invariant violation: the
// chain contract would have rejected it, so our view of the config is wrong.
func (h *Handler) onAuctionBid(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := auctionBidAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	amount, _, err := parseQuantity(payload.Bid)
	if err != nil {
		return err
	}

	auction := dbtypes.Auction{}
	err = tx.Get(&auction, `
		SELECT market_contract, auction_id, buyer, price, state, end_time
		FROM atomicmarket_auctions
		WHERE market_contract = $1 AND auction_id = $2`,
		h.Contract(), payload.AuctionId)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("bid on missing auction %v", payload.AuctionId)
	}
	if err != nil {
		return err
	}

	var minIncrease float64
	err = tx.Get(&minIncrease, `SELECT minimum_bid_increase FROM atomicmarket_config WHERE contract = $1`, h.Contract())
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if auction.Buyer != nil && minIncrease > 0 {
		minBid := decimal.NewFromInt(int64(auction.Price)).
			Mul(decimal.NewFromFloat(1).Add(decimal.NewFromFloat(minIncrease)))
		if decimal.NewFromInt(amount).LessThan(minBid) {
			return fmt.Errorf("bid %v on auction %v below minimum increase (current %v)", amount, payload.AuctionId, auction.Price)
		}
	}

	var bidNumber uint64
	err = tx.Get(&bidNumber, `SELECT COUNT(*) FROM atomicmarket_auctions_bids WHERE market_contract = $1 AND auction_id = $2`,
		h.Contract(), payload.AuctionId)
	if err != nil {
		return err
	}

	var txid []byte
	if txTrace != nil {
		txid = contract.ParseTxid(txTrace.Id)
	}
	err = tx.Replace("atomicmarket_auctions_bids", map[string]interface{}{
		"market_contract":  h.Contract(),
		"auction_id":       payload.AuctionId,
		"bid_number":       bidNumber + 1,
		"account":          payload.Bidder,
		"amount":           amount,
		"txid":             txid,
		"created_at_block": block.BlockNum,
		"created_at_time":  block.Timestamp.UnixMilli(),
	}, []string{"market_contract", "auction_id", "bid_number"})
	if err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "bids", "create", map[string]interface{}{
		"auction_id": payload.AuctionId,
		"bid_number": bidNumber + 1,
		"account":    payload.Bidder,
		"amount":     amount,
	})
	return nil
}

func (h *Handler) onAuctionClaim(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace, column string) error {
	payload := auctionIdAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	return tx.Update("atomicmarket_auctions", map[string]interface{}{
		column:             true,
		"updated_at_block": block.BlockNum,
	}, map[string]interface{}{
		"market_contract": h.Contract(),
		"auction_id":      payload.AuctionId,
	}, []string{"market_contract", "auction_id"})
}

func (h *Handler) onLogNewBuyoffer(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logNewBuyofferAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "buyoffers", "create", payload)
	return nil
}

func (h *Handler) onBuyofferState(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace, state dbtypes.BuyofferState, declineMemo interface{}) error {
	payload := buyofferIdAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}
	return h.updateBuyofferState(tx, block, txTrace, payload.BuyofferId, state, declineMemo)
}

func (h *Handler) onDeclineBuyoffer(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := declineBuyofferAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}
	return h.updateBuyofferState(tx, block, txTrace, payload.BuyofferId, dbtypes.BuyofferStateDeclined, payload.DeclineMemo)
}

func (h *Handler) updateBuyofferState(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, buyofferId uint64, state dbtypes.BuyofferState, declineMemo interface{}) error {
	values := map[string]interface{}{
		"state":            state,
		"updated_at_block": block.BlockNum,
	}
	if declineMemo != nil {
		values["decline_memo"] = declineMemo
	}

	err := tx.Update("atomicmarket_buyoffers", values, map[string]interface{}{
		"market_contract": h.Contract(),
		"buyoffer_id":     buyofferId,
	}, []string{"market_contract", "buyoffer_id"})
	if err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "buyoffers", "state_change", map[string]interface{}{
		"buyoffer_id": buyofferId,
		"state":       state,
	})
	return nil
}
