package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/atomicore/eosio-contract-indexer/dbtypes"
)

// GetReaderState loads the persisted position of a named filler instance.
// Returns nil when the reader has never committed a block.
func GetReaderState(name string) (*dbtypes.ReaderState, error) {
	state := dbtypes.ReaderState{}
	err := ReaderDb.Get(&state, `
		SELECT name, block_num, block_id, live, updated_at
		FROM reader_state
		WHERE name = $1`,
		name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// UpdateReaderState advances the committed position inside the block transaction.
func UpdateReaderState(tx *ContractTx, name string, blockNum uint64, blockId string) error {
	return tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO reader_state (name, block_num, block_id, live, updated_at)
			VALUES ($1, $2, $3, true, $4)
			ON CONFLICT (name) DO UPDATE SET
				block_num = excluded.block_num,
				block_id = excluded.block_id,
				live = excluded.live,
				updated_at = excluded.updated_at`,
		dbtypes.DBEngineSqlite: `
			INSERT OR REPLACE INTO reader_state (name, block_num, block_id, live, updated_at)
			VALUES ($1, $2, $3, true, $4)`,
	}), name, blockNum, blockId, time.Now().UnixMilli())
}

// ResetReaderState rewinds the committed position inside a fork rollback transaction.
func ResetReaderState(tx *sqlx.Tx, name string, blockNum uint64) error {
	_, err := tx.Exec(`UPDATE reader_state SET block_num = $1, updated_at = $2 WHERE name = $3`,
		blockNum, time.Now().UnixMilli(), name)
	return err
}
