package atomicassets

import (
	"fmt"

	eos "github.com/eoscanada/eos-go"

	"github.com/atomicore/eosio-contract-indexer/contract"
	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/dbtypes"
	"github.com/atomicore/eosio-contract-indexer/types"
)

// OnTableChange enqueues the delta application at its table priority so that
// within one block, reference data (config, collections, schemas, templates)
// lands before the rows pointing at it.
func (h *Handler) OnTableChange(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	switch row.Table {
	case "config":
		h.Queue.Add(priorityTableConfig, func(tx *db.ContractTx) error {
			return h.applyConfig(tx, block, row)
		})
	case "tokenconfigs":
		h.Queue.Add(priorityTableConfig, func(tx *db.ContractTx) error {
			return h.applyTokenConfigs(tx, block, row)
		})
	case "collections":
		h.Queue.Add(priorityTableCollections, func(tx *db.ContractTx) error {
			return h.applyCollection(tx, block, row)
		})
	case "schemas":
		h.Queue.Add(priorityTableSchemas, func(tx *db.ContractTx) error {
			return h.applySchema(tx, block, row)
		})
	case "templates":
		h.Queue.Add(priorityTableTemplates, func(tx *db.ContractTx) error {
			return h.applyTemplate(tx, block, row)
		})
	case "assets":
		h.Queue.Add(priorityTableAssets, func(tx *db.ContractTx) error {
			return h.applyAsset(tx, block, row)
		})
	case "offers":
		h.Queue.Add(priorityTableOffers, func(tx *db.ContractTx) error {
			return h.applyOffer(tx, block, row)
		})
	case "balances":
		h.Queue.Add(priorityTableBalances, func(tx *db.ContractTx) error {
			return h.applyBalance(tx, block, row)
		})
	}
	return nil
}

func (h *Handler) applyConfig(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return nil
	}
	payload := configRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	return tx.Update("atomicassets_config", map[string]interface{}{
		"collection_format": contract.JsonString(payload.CollectionFormat),
		"supported_tokens":  contract.JsonString(payload.SupportedTokens),
	}, map[string]interface{}{
		"contract": h.Contract(),
	}, []string{"contract"})
}

func (h *Handler) applyTokenConfigs(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return nil
	}
	payload := tokenConfigsRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	return tx.Update("atomicassets_config", map[string]interface{}{
		"version": payload.Version,
	}, map[string]interface{}{
		"contract": h.Contract(),
	}, []string{"contract"})
}

func (h *Handler) applyCollection(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return tx.Delete("atomicassets_collections", map[string]interface{}{
			"contract":        h.Contract(),
			"collection_name": row.Scope,
		})
	}

	payload := collectionRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	existed, err := h.rowExists(tx, "atomicassets_collections", "collection_name", payload.CollectionName)
	if err != nil {
		return err
	}

	err = tx.Replace("atomicassets_collections", map[string]interface{}{
		"contract":            h.Contract(),
		"collection_name":     payload.CollectionName,
		"author":              payload.Author,
		"allow_notify":        payload.AllowNotify,
		"authorized_accounts": contract.JsonString(payload.AuthorizedAccounts),
		"notify_accounts":     contract.JsonString(payload.NotifyAccounts),
		"market_fee":          payload.MarketFee,
		"data":                contract.JsonString(map[string]string{"raw": payload.SerializedData}),
		"created_at_block":    block.BlockNum,
		"created_at_time":     block.Timestamp.UnixMilli(),
	}, []string{"contract", "collection_name"})
	if err != nil {
		return err
	}

	action := "update"
	if !existed {
		action = "create"
	}
	h.Notify(tx, block, nil, "collections", action, payload)
	return nil
}

func (h *Handler) applySchema(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return tx.Delete("atomicassets_schemas", map[string]interface{}{
			"contract":        h.Contract(),
			"collection_name": row.Scope,
			"schema_name":     nameFromPrimaryKey(row.PrimaryKey),
		})
	}

	payload := schemaRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	err := tx.Replace("atomicassets_schemas", map[string]interface{}{
		"contract":         h.Contract(),
		"collection_name":  row.Scope,
		"schema_name":      payload.SchemaName,
		"format":           contract.JsonString(payload.Format),
		"created_at_block": block.BlockNum,
		"created_at_time":  block.Timestamp.UnixMilli(),
	}, []string{"contract", "collection_name", "schema_name"})
	if err != nil {
		return err
	}

	h.Notify(tx, block, nil, "schemas", "update", payload)
	return nil
}

func (h *Handler) applyTemplate(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return tx.Delete("atomicassets_templates", map[string]interface{}{
			"contract":    h.Contract(),
			"template_id": row.PrimaryKey,
		})
	}

	payload := templateRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	err := tx.Replace("atomicassets_templates", map[string]interface{}{
		"contract":         h.Contract(),
		"template_id":      payload.TemplateId,
		"collection_name":  row.Scope,
		"schema_name":      payload.SchemaName,
		"transferable":     payload.Transferable,
		"burnable":         payload.Burnable,
		"max_supply":       payload.MaxSupply,
		"issued_supply":    payload.IssuedSupply,
		"immutable_data":   contract.JsonString(map[string]string{"raw": payload.ImmutableSerializedData}),
		"created_at_block": block.BlockNum,
		"created_at_time":  block.Timestamp.UnixMilli(),
	}, []string{"contract", "template_id"})
	if err != nil {
		return err
	}

	h.cacheTemplate(row.Scope, payload.TemplateId)
	h.Notify(tx, block, nil, "templates", "update", payload)
	return nil
}

// applyAsset upserts one asset row. The asset table is scoped by owner, so a
// transfer appears as delete in the old scope plus insert in the new one; only
// present rows carry data.
func (h *Handler) applyAsset(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		// ownership scope removal; the insert in the new scope or the burn
		// action decides what happens to the row
		return nil
	}

	payload := assetRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	var templateId interface{}
	if payload.TemplateId > 0 {
		templateId = payload.TemplateId
	}

	existed, err := h.rowExists(tx, "atomicassets_assets", "asset_id", payload.AssetId)
	if err != nil {
		return err
	}

	if existed {
		return tx.Update("atomicassets_assets", map[string]interface{}{
			"owner":            row.Scope,
			"mutable_data":     contract.JsonString(map[string]string{"raw": payload.MutableSerializedData}),
			"backed_tokens":    contract.JsonString(payload.BackedTokens),
			"updated_at_block": block.BlockNum,
		}, map[string]interface{}{
			"contract": h.Contract(),
			"asset_id": payload.AssetId,
		}, []string{"contract", "asset_id"})
	}

	return tx.Insert("atomicassets_assets", map[string]interface{}{
		"contract":             h.Contract(),
		"asset_id":             payload.AssetId,
		"collection_name":      payload.CollectionName,
		"schema_name":          payload.SchemaName,
		"template_id":          templateId,
		"owner":                row.Scope,
		"mutable_data":         contract.JsonString(map[string]string{"raw": payload.MutableSerializedData}),
		"immutable_data":       contract.JsonString(map[string]string{"raw": payload.ImmutableSerializedData}),
		"backed_tokens":        contract.JsonString(payload.BackedTokens),
		"burned_by_account":    nil,
		"burned_at_block":      nil,
		"transferred_at_block": block.BlockNum,
		"updated_at_block":     block.BlockNum,
		"minted_at_block":      block.BlockNum,
		"minted_at_time":       block.Timestamp.UnixMilli(),
	}, []string{"contract", "asset_id"})
}

func (h *Handler) applyOffer(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		// offers leave contract RAM on accept/decline/cancel; their final
		// state is written by the corresponding action at action priority
		return nil
	}

	payload := offerRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	existed, err := h.rowExists(tx, "atomicassets_offers", "offer_id", payload.OfferId)
	if err != nil {
		return err
	}
	if existed {
		return nil
	}

	err = tx.Insert("atomicassets_offers", map[string]interface{}{
		"contract":         h.Contract(),
		"offer_id":         payload.OfferId,
		"sender":           payload.Sender,
		"recipient":        payload.Recipient,
		"memo":             payload.Memo,
		"state":            dbtypes.OfferStatePending,
		"updated_at_block": block.BlockNum,
		"created_at_block": block.BlockNum,
		"created_at_time":  block.Timestamp.UnixMilli(),
	}, []string{"contract", "offer_id"})
	if err != nil {
		return err
	}

	for _, assetId := range payload.SenderAssetIds {
		err = tx.Insert("atomicassets_offers_assets", map[string]interface{}{
			"contract": h.Contract(),
			"offer_id": payload.OfferId,
			"owner":    payload.Sender,
			"asset_id": assetId,
		}, []string{"contract", "offer_id", "asset_id"})
		if err != nil {
			return err
		}
	}
	for _, assetId := range payload.RecipientAssetIds {
		err = tx.Insert("atomicassets_offers_assets", map[string]interface{}{
			"contract": h.Contract(),
			"offer_id": payload.OfferId,
			"owner":    payload.Recipient,
			"asset_id": assetId,
		}, []string{"contract", "offer_id", "asset_id"})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) applyBalance(tx *db.ContractTx, block *types.Block, row *types.TableRow) error {
	if !row.Present {
		return tx.Delete("atomicassets_balances", map[string]interface{}{
			"contract": h.Contract(),
			"owner":    nameFromPrimaryKey(row.PrimaryKey),
		})
	}

	payload := balanceRow{}
	if err := contract.DecodePayload(row.Data, &payload); err != nil {
		return err
	}

	err := tx.Delete("atomicassets_balances", map[string]interface{}{
		"contract": h.Contract(),
		"owner":    payload.Owner,
	})
	if err != nil {
		return err
	}

	for _, quantity := range payload.Quantities {
		amount, symbol, err := parseQuantity(quantity)
		if err != nil {
			return fmt.Errorf("error parsing balance quantity %q: %v", quantity, err)
		}
		err = tx.Insert("atomicassets_balances", map[string]interface{}{
			"contract":         h.Contract(),
			"owner":            payload.Owner,
			"token_symbol":     symbol,
			"token_contract":   "",
			"amount":           amount,
			"updated_at_block": block.BlockNum,
		}, []string{"contract", "owner", "token_symbol"})
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) rowExists(tx *db.ContractTx, table string, keyColumn string, key interface{}) (bool, error) {
	var count int
	err := tx.Get(&count, fmt.Sprintf(`SELECT COUNT(*) FROM %v WHERE contract = $1 AND %v = $2`, table, keyColumn), h.Contract(), key)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (h *Handler) cacheTemplate(collection string, templateId uint64) {
	key := fmt.Sprintf("template:%v:%v", collection, templateId)
	_ = h.templateCache.Set([]byte(key), []byte{1}, 0)
}

// templateExists checks the hot cache before falling back to the database.
func (h *Handler) templateExists(tx *db.ContractTx, collection string, templateId uint64) (bool, error) {
	key := fmt.Sprintf("template:%v:%v", collection, templateId)
	if _, err := h.templateCache.Get([]byte(key)); err == nil {
		return true, nil
	}

	var count int
	err := tx.Get(&count, `SELECT COUNT(*) FROM atomicassets_templates WHERE contract = $1 AND collection_name = $2 AND template_id = $3`,
		h.Contract(), collection, templateId)
	if err != nil {
		return false, err
	}
	if count > 0 {
		h.cacheTemplate(collection, templateId)
	}
	return count > 0, nil
}

// nameFromPrimaryKey renders a table primary key that is an encoded account
// name (balances owner, schema name).
func nameFromPrimaryKey(primaryKey uint64) string {
	return eos.NameToString(primaryKey)
}

// parseQuantity splits an asset string like "1.00000000 WAX" into its raw
// amount and symbol code.
func parseQuantity(quantity string) (int64, string, error) {
	asset, err := eos.NewAssetFromString(quantity)
	if err != nil {
		return 0, "", err
	}
	return int64(asset.Amount), string(asset.Symbol.Symbol), nil
}
