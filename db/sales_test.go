package db

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atomicore/eosio-contract-indexer/dbtypes"
)

func insertAuctionAt(t *testing.T, auctionId uint64, state dbtypes.AuctionState, endTime int64, buyer interface{}) {
	t.Helper()
	tx, err := NewContractTx(900, 900)
	require.NoError(t, err)
	tx.SetCurrentHandler("atomicmarket")
	require.NoError(t, tx.Insert("atomicmarket_auctions", map[string]interface{}{
		"market_contract":   "atomicmarket",
		"auction_id":        auctionId,
		"assets_contract":   "atomicassets",
		"seller":            "alice",
		"buyer":             buyer,
		"price":             100000000,
		"token_symbol":      "WAX",
		"collection_name":   "testcol",
		"collection_fee":    0.05,
		"claimed_by_buyer":  false,
		"claimed_by_seller": false,
		"maker_marketplace": "",
		"taker_marketplace": nil,
		"state":             state,
		"end_time":          endTime,
		"updated_at_block":  900,
		"created_at_block":  900,
		"created_at_time":   1600000000000,
	}, []string{"market_contract", "auction_id"}))
	require.NoError(t, tx.Commit())
}

func TestCountListedAuctionsSoldByExpiry(t *testing.T) {
	initTestDb(t)

	now := int64(1700000000000)

	// expired with buyer: counts as sold even without a state transition
	insertAuctionAt(t, 100, dbtypes.AuctionStateListed, now-1000, "bob")
	// expired without buyer: not sold
	insertAuctionAt(t, 101, dbtypes.AuctionStateListed, now-1000, nil)
	// still running with buyer: not sold yet
	insertAuctionAt(t, 102, dbtypes.AuctionStateListed, now+1000, "bob")
	// canceled: never counted
	insertAuctionAt(t, 103, dbtypes.AuctionStateCanceled, now-1000, "bob")

	count, err := CountListedAuctionsSoldByExpiry("atomicmarket", now)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)
}

func TestGetSalesByOffer(t *testing.T) {
	initTestDb(t)

	tx, err := NewContractTx(910, 900)
	require.NoError(t, err)
	tx.SetCurrentHandler("atomicmarket")
	row := saleRow(200, 910)
	row["offer_id"] = 7
	require.NoError(t, tx.Insert("atomicmarket_sales", row, []string{"market_contract", "sale_id"}))

	// visible through the same transaction before commit
	sales, err := GetSalesByOffer(tx, "atomicmarket", "atomicassets", 7)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, uint64(200), sales[0].SaleId)
	require.Equal(t, uint8(dbtypes.SaleStateListed), sales[0].State)

	tx.Abort()
}
