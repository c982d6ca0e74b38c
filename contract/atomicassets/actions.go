package atomicassets

import (
	"fmt"

	"github.com/atomicore/eosio-contract-indexer/contract"
	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/dbtypes"
	"github.com/atomicore/eosio-contract-indexer/types"
)

// OnAction enqueues the action application below table priority: the table
// deltas of the same block must have landed before the action logic reads or
// amends the rows they created.
func (h *Handler) OnAction(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	switch trace.Name {
	case "logmint":
		h.Queue.Add(priorityActionMint, func(tx *db.ContractTx) error {
			return h.onLogMint(tx, block, txTrace, trace)
		})
	case "logtransfer":
		h.Queue.Add(priorityActionTransfer, func(tx *db.ContractTx) error {
			return h.onLogTransfer(tx, block, txTrace, trace)
		})
	case "logburnasset":
		h.Queue.Add(priorityActionBurn, func(tx *db.ContractTx) error {
			return h.onLogBurn(tx, block, txTrace, trace)
		})
	case "logbackasset":
		h.Queue.Add(priorityActionUpdate, func(tx *db.ContractTx) error {
			return h.onLogBackAsset(tx, block, txTrace, trace)
		})
	case "logsetdata":
		h.Queue.Add(priorityActionUpdate, func(tx *db.ContractTx) error {
			return h.onLogSetData(tx, block, txTrace, trace)
		})
	case "lognewoffer":
		h.Queue.Add(priorityActionLog, func(tx *db.ContractTx) error {
			return h.onLogNewOffer(tx, block, txTrace, trace)
		})
	case "acceptoffer":
		h.Queue.Add(priorityActionUpdate, func(tx *db.ContractTx) error {
			return h.onOfferStateChange(tx, block, txTrace, trace, dbtypes.OfferStateAccepted)
		})
	case "declineoffer":
		h.Queue.Add(priorityActionUpdate, func(tx *db.ContractTx) error {
			return h.onOfferStateChange(tx, block, txTrace, trace, dbtypes.OfferStateDeclined)
		})
	case "canceloffer":
		h.Queue.Add(priorityActionUpdate, func(tx *db.ContractTx) error {
			return h.onOfferStateChange(tx, block, txTrace, trace, dbtypes.OfferStateCanceled)
		})
	}
	return nil
}

func (h *Handler) onLogMint(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logMintAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	if payload.TemplateId > 0 {
		exists, err := h.templateExists(tx, payload.CollectionName, uint64(payload.TemplateId))
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("mint of asset %v references missing template %v/%v", payload.AssetId, payload.CollectionName, payload.TemplateId)
		}
	}

	err := tx.Update("atomicassets_assets", map[string]interface{}{
		"minted_at_block": block.BlockNum,
		"minted_at_time":  block.Timestamp.UnixMilli(),
	}, map[string]interface{}{
		"contract": h.Contract(),
		"asset_id": payload.AssetId,
	}, []string{"contract", "asset_id"})
	if err != nil {
		return err
	}

	relationId := fmt.Sprintf("%v", payload.AssetId)
	if err := h.createLog(tx, block, txTrace, "asset", relationId, "mint", payload); err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "assets", "new_asset", payload)
	return nil
}

func (h *Handler) onLogTransfer(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logTransferAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	for _, assetId := range payload.AssetIds {
		err := tx.Update("atomicassets_assets", map[string]interface{}{
			"owner":                payload.To,
			"transferred_at_block": block.BlockNum,
			"updated_at_block":     block.BlockNum,
		}, map[string]interface{}{
			"contract": h.Contract(),
			"asset_id": assetId,
		}, []string{"contract", "asset_id"})
		if err != nil {
			return err
		}

		relationId := fmt.Sprintf("%v", assetId)
		if err := h.createLog(tx, block, txTrace, "asset", relationId, "transfer", payload); err != nil {
			return err
		}
	}

	if h.args.StoreTransfers {
		// deterministic per-block id keeps replays idempotent
		h.transferCounter++
		transferId := block.BlockNum<<20 | (h.transferCounter & 0xfffff)

		var txid []byte
		if txTrace != nil {
			txid = contract.ParseTxid(txTrace.Id)
		}
		err := tx.Replace("atomicassets_transfers", map[string]interface{}{
			"contract":         h.Contract(),
			"transfer_id":      transferId,
			"sender":           payload.From,
			"recipient":        payload.To,
			"memo":             payload.Memo,
			"txid":             txid,
			"created_at_block": block.BlockNum,
			"created_at_time":  block.Timestamp.UnixMilli(),
		}, []string{"contract", "transfer_id"})
		if err != nil {
			return err
		}

		for _, assetId := range payload.AssetIds {
			err = tx.Replace("atomicassets_transfers_assets", map[string]interface{}{
				"contract":    h.Contract(),
				"transfer_id": transferId,
				"asset_id":    assetId,
			}, []string{"contract", "transfer_id", "asset_id"})
			if err != nil {
				return err
			}
		}
	}

	h.Notify(tx, block, txTrace, "transfers", "create", payload)
	h.Notify(tx, block, txTrace, "assets", "update", payload)
	return nil
}

func (h *Handler) onLogBurn(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logBurnAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	asset, err := db.GetAsset(tx, h.Contract(), payload.AssetId)
	if err != nil {
		return err
	}
	if asset == nil {
		return fmt.Errorf("burn of unknown asset %v", payload.AssetId)
	}

	err = tx.Update("atomicassets_assets", map[string]interface{}{
		"owner":             nil,
		"burned_by_account": payload.AssetOwner,
		"burned_at_block":   block.BlockNum,
		"updated_at_block":  block.BlockNum,
	}, map[string]interface{}{
		"contract": h.Contract(),
		"asset_id": payload.AssetId,
	}, []string{"contract", "asset_id"})
	if err != nil {
		return err
	}

	relationId := fmt.Sprintf("%v", payload.AssetId)
	if err := h.createLog(tx, block, txTrace, "asset", relationId, "burn", payload); err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "assets", "burn", payload)
	return nil
}

func (h *Handler) onLogBackAsset(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logBackAssetAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	relationId := fmt.Sprintf("%v", payload.AssetId)
	if err := h.createLog(tx, block, txTrace, "asset", relationId, "back", payload); err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "assets", "back", payload)
	return nil
}

func (h *Handler) onLogSetData(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logSetDataAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	err := tx.Update("atomicassets_assets", map[string]interface{}{
		"updated_at_block": block.BlockNum,
	}, map[string]interface{}{
		"contract": h.Contract(),
		"asset_id": payload.AssetId,
	}, []string{"contract", "asset_id"})
	if err != nil {
		return err
	}

	relationId := fmt.Sprintf("%v", payload.AssetId)
	if err := h.createLog(tx, block, txTrace, "asset", relationId, "update", payload); err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "assets", "update", payload)
	return nil
}

func (h *Handler) onLogNewOffer(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error {
	payload := logNewOfferAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	relationId := fmt.Sprintf("%v", payload.OfferId)
	if err := h.createLog(tx, block, txTrace, "offer", relationId, "create", payload); err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "offers", "create", payload)
	return nil
}

// onOfferStateChange writes the final state of an offer. The row itself left
// contract RAM with the accept/decline/cancel, so the action is the only
// source for this transition.
func (h *Handler) onOfferStateChange(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace, state dbtypes.OfferState) error {
	payload := offerIdAction{}
	if err := contract.DecodePayload(trace.Data, &payload); err != nil {
		return err
	}

	offer, err := db.GetOffer(tx, h.Contract(), payload.OfferId)
	if err != nil {
		return err
	}
	if offer == nil {
		return fmt.Errorf("state change of unknown offer %v", payload.OfferId)
	}

	err = tx.Update("atomicassets_offers", map[string]interface{}{
		"state":            state,
		"updated_at_block": block.BlockNum,
	}, map[string]interface{}{
		"contract": h.Contract(),
		"offer_id": payload.OfferId,
	}, []string{"contract", "offer_id"})
	if err != nil {
		return err
	}

	relationId := fmt.Sprintf("%v", payload.OfferId)
	if err := h.createLog(tx, block, txTrace, "offer", relationId, "state_change", map[string]interface{}{
		"offer_id": payload.OfferId,
		"state":    state,
	}); err != nil {
		return err
	}

	h.Notify(tx, block, txTrace, "offers", "state_change", map[string]interface{}{
		"offer_id": payload.OfferId,
		"state":    state,
	})
	return nil
}
