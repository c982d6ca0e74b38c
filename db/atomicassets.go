package db

import (
	"database/sql"
	"errors"

	"github.com/atomicore/eosio-contract-indexer/dbtypes"
)

// GetAsset reads one asset through the active block transaction. Returns nil
// when the asset is unknown.
func GetAsset(tx *ContractTx, contract string, assetId uint64) (*dbtypes.Asset, error) {
	asset := dbtypes.Asset{}
	err := tx.Get(&asset, `
		SELECT contract, asset_id, collection_name, schema_name, template_id, owner,
			mutable_data, immutable_data, backed_tokens, burned_by_account, burned_at_block,
			transferred_at_block, updated_at_block, minted_at_block, minted_at_time
		FROM atomicassets_assets
		WHERE contract = $1 AND asset_id = $2`,
		contract, assetId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetOffer reads one offer through the active block transaction. Returns nil
// when the offer is unknown.
func GetOffer(tx *ContractTx, contract string, offerId uint64) (*dbtypes.Offer, error) {
	offer := dbtypes.Offer{}
	err := tx.Get(&offer, `
		SELECT contract, offer_id, sender, recipient, memo, state,
			updated_at_block, created_at_block, created_at_time
		FROM atomicassets_offers
		WHERE contract = $1 AND offer_id = $2`,
		contract, offerId)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offer, nil
}
