package db

import "github.com/jmoiron/sqlx"

// InsertContractLog appends one row to the contract event log through the
// block transaction, so fork rollbacks remove it again.
func InsertContractLog(tx *ContractTx, contract string, relationName string, relationId string, name string, data string, txid []byte, blockNum uint64, blockTime int64) error {
	return tx.Exec(`
		INSERT INTO contract_logs (contract, relation_name, relation_id, name, data, txid, created_at_block, created_at_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		contract, relationName, relationId, name, data, txid, blockNum, blockTime)
}

// DeleteContractLogsFrom removes log rows of forked-out blocks. Log rows are
// append-only and carry their origin block, so the fork path can drop them by
// range instead of via rollback_history records.
func DeleteContractLogsFrom(tx *sqlx.Tx, blockNum uint64) error {
	_, err := tx.Exec(`DELETE FROM contract_logs WHERE created_at_block >= $1`, blockNum)
	return err
}
