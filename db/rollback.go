package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/atomicore/eosio-contract-indexer/dbtypes"
)

// GetRollbackOps returns all inverse operations for blocks >= blockNum in
// reverse application order (block_num desc, global_seq desc).
func GetRollbackOps(tx *sqlx.Tx, blockNum uint64) ([]*dbtypes.RollbackOp, error) {
	ops := []*dbtypes.RollbackOp{}
	err := tx.Select(&ops, `
		SELECT global_seq, block_num, handler, operation, table_name, condition, row_values
		FROM rollback_history
		WHERE block_num >= $1
		ORDER BY block_num DESC, global_seq DESC`,
		blockNum)
	if err != nil {
		return nil, err
	}
	return ops, nil
}

// ApplyRollbackOp replays one recorded inverse operation.
func ApplyRollbackOp(tx *sqlx.Tx, op *dbtypes.RollbackOp) error {
	switch op.Operation {
	case dbtypes.RollbackOpInsert:
		row, err := decodeRowJson(op.Values)
		if err != nil {
			return fmt.Errorf("error decoding rollback row for %v: %v", op.TableName, err)
		}
		cols := sortedKeys(row)
		args := make([]interface{}, 0, len(cols))
		placeholders := make([]string, 0, len(cols))
		for i, col := range cols {
			args = append(args, row[col])
			placeholders = append(placeholders, fmt.Sprintf("$%v", i+1))
		}
		_, err = tx.Exec(fmt.Sprintf(`INSERT INTO %v (%v) VALUES (%v)`, op.TableName, strings.Join(cols, ", "), strings.Join(placeholders, ", ")), args...)
		return err

	case dbtypes.RollbackOpUpdate:
		values, err := decodeRowJson(op.Values)
		if err != nil {
			return fmt.Errorf("error decoding rollback values for %v: %v", op.TableName, err)
		}
		condition, err := decodeRowJson(op.Condition)
		if err != nil {
			return fmt.Errorf("error decoding rollback condition for %v: %v", op.TableName, err)
		}
		cols := sortedKeys(values)
		args := make([]interface{}, 0, len(cols)+len(condition))
		assignments := make([]string, 0, len(cols))
		for _, col := range cols {
			args = append(args, values[col])
			assignments = append(assignments, fmt.Sprintf("%v = $%v", col, len(args)))
		}
		where, args := buildCondition(condition, args)
		_, err = tx.Exec(fmt.Sprintf(`UPDATE %v SET %v WHERE %v`, op.TableName, strings.Join(assignments, ", "), where), args...)
		return err

	case dbtypes.RollbackOpDelete:
		condition, err := decodeRowJson(op.Condition)
		if err != nil {
			return fmt.Errorf("error decoding rollback condition for %v: %v", op.TableName, err)
		}
		where, args := buildCondition(condition, nil)
		_, err = tx.Exec(fmt.Sprintf(`DELETE FROM %v WHERE %v`, op.TableName, where), args...)
		return err

	default:
		return fmt.Errorf("unknown rollback operation: %v", op.Operation)
	}
}

// DeleteRollbackOps removes applied inverse operations for blocks >= blockNum.
func DeleteRollbackOps(tx *sqlx.Tx, blockNum uint64) error {
	_, err := tx.Exec(`DELETE FROM rollback_history WHERE block_num >= $1`, blockNum)
	return err
}

// PruneRollbackOps drops rollback records for blocks at or below the last
// irreversible block; those blocks can no longer be forked out.
func PruneRollbackOps(tx *ContractTx, lastIrreversible uint64) error {
	return tx.Exec(`DELETE FROM rollback_history WHERE block_num <= $1`, lastIrreversible)
}
