package db

import (
	"github.com/atomicore/eosio-contract-indexer/dbtypes"
)

// GetSalesByOffer returns the sales backed by an atomicassets offer, read
// through the active block transaction so same-block listings are visible.
func GetSalesByOffer(tx *ContractTx, marketContract string, assetsContract string, offerId uint64) ([]*dbtypes.Sale, error) {
	sales := []*dbtypes.Sale{}
	err := tx.Select(&sales, `
		SELECT market_contract, sale_id, assets_contract, offer_id, seller, buyer,
			listing_price, listing_symbol, settlement_symbol, collection_name, collection_fee,
			maker_marketplace, taker_marketplace, state, updated_at_block,
			created_at_block, created_at_time
		FROM atomicmarket_sales
		WHERE market_contract = $1 AND assets_contract = $2 AND offer_id = $3`,
		marketContract, assetsContract, offerId)
	if err != nil {
		return nil, err
	}
	return sales, nil
}

// CountListedAuctionsSoldByExpiry counts listed auctions that are past their
// end time with a buyer attached. The market-stats view treats those as sold
// even though no explicit state transition action was recorded on chain.
func CountListedAuctionsSoldByExpiry(marketContract string, now int64) (uint64, error) {
	var count uint64
	err := ReaderDb.Get(&count, `
		SELECT COUNT(*)
		FROM atomicmarket_auctions
		WHERE market_contract = $1 AND state = $2 AND end_time < $3 AND buyer IS NOT NULL`,
		marketContract, dbtypes.AuctionStateListed, now)
	if err != nil {
		return 0, err
	}
	return count, nil
}
