package db

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/atomicore/eosio-contract-indexer/dbtypes"
	"github.com/atomicore/eosio-contract-indexer/types"
	"github.com/atomicore/eosio-contract-indexer/utils"
)

var testDbOnce sync.Once

func initTestDb(t *testing.T) {
	t.Helper()
	testDbOnce.Do(func() {
		dir, err := os.MkdirTemp("", "indexer-db-test")
		if err != nil {
			t.Fatalf("error creating temp dir: %v", err)
		}

		cfg := &types.Config{}
		cfg.Database.Engine = "sqlite"
		cfg.Database.Sqlite.File = filepath.Join(dir, "test.sqlite")
		utils.Config = cfg

		MustInitDB()
		if err := ApplyEmbeddedDbSchema(-2); err != nil {
			t.Fatalf("error applying schema: %v", err)
		}
	})
}

func saleRow(saleId uint64, blockNum uint64) map[string]interface{} {
	return map[string]interface{}{
		"market_contract":   "atomicmarket",
		"sale_id":           saleId,
		"assets_contract":   "atomicassets",
		"offer_id":          nil,
		"seller":            "alice",
		"buyer":             nil,
		"listing_price":     100000000,
		"listing_symbol":    "WAX",
		"settlement_symbol": "WAX",
		"collection_name":   "testcol",
		"collection_fee":    0.05,
		"maker_marketplace": "",
		"taker_marketplace": nil,
		"state":             dbtypes.SaleStateListed,
		"updated_at_block":  blockNum,
		"created_at_block":  blockNum,
		"created_at_time":   1600000000000,
	}
}

func insertSaleAt(t *testing.T, saleId uint64, blockNum uint64, lastIrreversible uint64) {
	t.Helper()
	tx, err := NewContractTx(blockNum, lastIrreversible)
	require.NoError(t, err)
	tx.SetCurrentHandler("atomicmarket")
	require.NoError(t, tx.Insert("atomicmarket_sales", saleRow(saleId, blockNum), []string{"market_contract", "sale_id"}))
	require.NoError(t, tx.Commit())
}

func countSales(t *testing.T) map[uint64]bool {
	t.Helper()
	ids := []uint64{}
	require.NoError(t, ReaderDb.Select(&ids, `SELECT sale_id FROM atomicmarket_sales ORDER BY sale_id`))
	present := map[uint64]bool{}
	for _, id := range ids {
		present[id] = true
	}
	return present
}

func rollbackFrom(t *testing.T, blockNum uint64) {
	t.Helper()
	err := RunDBTransaction(func(tx *sqlx.Tx) error {
		ops, err := GetRollbackOps(tx, blockNum)
		if err != nil {
			return err
		}
		for _, op := range ops {
			if err := ApplyRollbackOp(tx, op); err != nil {
				return err
			}
		}
		return DeleteRollbackOps(tx, blockNum)
	})
	require.NoError(t, err)
}

func TestForkRollbackRemovesInserts(t *testing.T) {
	initTestDb(t)

	// blocks 300..302 create sales 1..3 inside the fork window
	insertSaleAt(t, 1, 300, 200)
	insertSaleAt(t, 2, 301, 200)
	insertSaleAt(t, 3, 302, 200)

	rollbackFrom(t, 301)

	present := countSales(t)
	require.True(t, present[1])
	require.False(t, present[2])
	require.False(t, present[3])

	// the fork window is clean again; an alternative branch can create new rows
	insertSaleAt(t, 4, 301, 200)
	present = countSales(t)
	require.True(t, present[1])
	require.True(t, present[4])

	rollbackFrom(t, 301)
	require.NoError(t, RunDBTransaction(func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`DELETE FROM atomicmarket_sales`)
		return err
	}))
}

func TestForkRollbackRestoresUpdates(t *testing.T) {
	initTestDb(t)

	insertSaleAt(t, 10, 400, 300)

	// block 401 transitions the sale; the inverse op must restore the old state
	tx, err := NewContractTx(401, 300)
	require.NoError(t, err)
	tx.SetCurrentHandler("atomicmarket")
	require.NoError(t, tx.Update("atomicmarket_sales", map[string]interface{}{
		"state": dbtypes.SaleStateSold,
		"buyer": "bob",
	}, map[string]interface{}{
		"market_contract": "atomicmarket",
		"sale_id":         10,
	}, []string{"market_contract", "sale_id"}))
	require.NoError(t, tx.Commit())

	var state uint8
	require.NoError(t, ReaderDb.Get(&state, `SELECT state FROM atomicmarket_sales WHERE sale_id = 10`))
	require.Equal(t, uint8(dbtypes.SaleStateSold), state)

	rollbackFrom(t, 401)

	require.NoError(t, ReaderDb.Get(&state, `SELECT state FROM atomicmarket_sales WHERE sale_id = 10`))
	require.Equal(t, uint8(dbtypes.SaleStateListed), state)

	var buyer *string
	require.NoError(t, ReaderDb.Get(&buyer, `SELECT buyer FROM atomicmarket_sales WHERE sale_id = 10`))
	require.Nil(t, buyer)
}

func TestIrreversibleMutationsRecordNoRollback(t *testing.T) {
	initTestDb(t)

	// block at the irreversible height: reversible=false, nothing recorded
	tx, err := NewContractTx(500, 500)
	require.NoError(t, err)
	require.False(t, tx.Reversible())
	tx.SetCurrentHandler("atomicmarket")
	require.NoError(t, tx.Insert("atomicmarket_sales", saleRow(20, 500), []string{"market_contract", "sale_id"}))
	require.NoError(t, tx.Commit())

	var count int
	require.NoError(t, ReaderDb.Get(&count, `SELECT COUNT(*) FROM rollback_history WHERE block_num = 500`))
	require.Equal(t, 0, count)
}

func TestPoisonedTransaction(t *testing.T) {
	initTestDb(t)

	tx, err := NewContractTx(600, 500)
	require.NoError(t, err)
	tx.SetCurrentHandler("atomicmarket")

	// unknown table poisons the transaction
	require.Error(t, tx.Insert("no_such_table", map[string]interface{}{"a": 1}, []string{"a"}))

	// any further operation must fail without touching the database
	err = tx.Insert("atomicmarket_sales", saleRow(30, 600), []string{"market_contract", "sale_id"})
	require.Error(t, err)

	var dbErr *DBError
	require.ErrorAs(t, err, &dbErr)

	require.Error(t, tx.Commit())

	var count int
	require.NoError(t, ReaderDb.Get(&count, `SELECT COUNT(*) FROM atomicmarket_sales WHERE sale_id = 30`))
	require.Equal(t, 0, count)
}

func TestReplaceRollsBackToPriorRow(t *testing.T) {
	initTestDb(t)

	insertSaleAt(t, 40, 700, 600)

	tx, err := NewContractTx(701, 600)
	require.NoError(t, err)
	tx.SetCurrentHandler("atomicmarket")
	row := saleRow(40, 701)
	row["seller"] = "carol"
	require.NoError(t, tx.Replace("atomicmarket_sales", row, []string{"market_contract", "sale_id"}))
	require.NoError(t, tx.Commit())

	var seller string
	require.NoError(t, ReaderDb.Get(&seller, `SELECT seller FROM atomicmarket_sales WHERE sale_id = 40`))
	require.Equal(t, "carol", seller)

	rollbackFrom(t, 701)

	require.NoError(t, ReaderDb.Get(&seller, `SELECT seller FROM atomicmarket_sales WHERE sale_id = 40`))
	require.Equal(t, "alice", seller)
}
