package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/atomicore/eosio-contract-indexer/dbtypes"
)

// DBError wraps any failure inside a contract transaction. The first DBError
// poisons the transaction: every later operation fails without touching the
// database.
type DBError struct {
	Op    string
	Table string
	Err   error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("db error in %v on %v: %v", e.Op, e.Table, e.Err)
}

func (e *DBError) Unwrap() error {
	return e.Err
}

// ContractTx wraps one database transaction per block. While the block is
// inside the fork window (Reversible), every mutation records its inverse into
// rollback_history within the same transaction.
type ContractTx struct {
	tx               *sqlx.Tx
	blockNum         uint64
	lastIrreversible uint64
	currentHandler   string
	locked           bool
	done             bool
	err              error
}

// NewContractTx begins a transaction on the writer connection for the given block.
func NewContractTx(blockNum uint64, lastIrreversible uint64) (*ContractTx, error) {
	locked := false
	if DbEngine == dbtypes.DBEngineSqlite {
		writerMutex.Lock()
		locked = true
	}

	tx, err := writerDb.Beginx()
	if err != nil {
		if locked {
			writerMutex.Unlock()
		}
		return nil, fmt.Errorf("error starting block transaction: %v", err)
	}

	return &ContractTx{
		tx:               tx,
		blockNum:         blockNum,
		lastIrreversible: lastIrreversible,
		locked:           locked,
	}, nil
}

func (t *ContractTx) BlockNum() uint64 {
	return t.blockNum
}

func (t *ContractTx) LastIrreversible() uint64 {
	return t.lastIrreversible
}

// Reversible reports whether this block is above the last irreversible block
// and mutations therefore need rollback records.
func (t *ContractTx) Reversible() bool {
	return t.blockNum > t.lastIrreversible
}

// SetCurrentHandler tags subsequent rollback records with the handler name.
// The receiver sets this before dispatching into a handler hook.
func (t *ContractTx) SetCurrentHandler(name string) {
	t.currentHandler = name
}

func (t *ContractTx) fail(op string, table string, err error) error {
	dbErr := &DBError{Op: op, Table: table, Err: err}
	if t.err == nil {
		t.err = dbErr
	}
	return dbErr
}

func (t *ContractTx) check(op string, table string) error {
	if t.done {
		return &DBError{Op: op, Table: table, Err: fmt.Errorf("transaction already finished")}
	}
	if t.err != nil {
		return &DBError{Op: op, Table: table, Err: fmt.Errorf("transaction poisoned: %v", t.err)}
	}
	return nil
}

// Insert writes a row and records a delete stub for the fork window.
func (t *ContractTx) Insert(table string, row map[string]interface{}, primaryKeys []string) error {
	if err := t.check("insert", table); err != nil {
		return err
	}

	cols := sortedKeys(row)
	args := make([]interface{}, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	for i, col := range cols {
		args = append(args, row[col])
		placeholders = append(placeholders, fmt.Sprintf("$%v", i+1))
	}

	sql := fmt.Sprintf(`INSERT INTO %v (%v) VALUES (%v)`, table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := t.tx.Exec(sql, args...); err != nil {
		return t.fail("insert", table, err)
	}

	if t.Reversible() {
		condition := map[string]interface{}{}
		for _, key := range primaryKeys {
			condition[key] = row[key]
		}
		if err := t.recordRollback(dbtypes.RollbackOpDelete, table, condition, nil); err != nil {
			return t.fail("insert", table, err)
		}
	}

	return nil
}

// Update mutates matching rows, recording their prior values for the fork window.
func (t *ContractTx) Update(table string, values map[string]interface{}, condition map[string]interface{}, primaryKeys []string) error {
	if err := t.check("update", table); err != nil {
		return err
	}

	if t.Reversible() {
		priorRows, err := t.selectRows(table, condition)
		if err != nil {
			return t.fail("update", table, err)
		}
		for _, prior := range priorRows {
			priorCondition := map[string]interface{}{}
			priorValues := map[string]interface{}{}
			for _, key := range primaryKeys {
				priorCondition[key] = prior[key]
			}
			for col := range values {
				priorValues[col] = prior[col]
			}
			if err := t.recordRollback(dbtypes.RollbackOpUpdate, table, priorCondition, priorValues); err != nil {
				return t.fail("update", table, err)
			}
		}
	}

	cols := sortedKeys(values)
	args := make([]interface{}, 0, len(cols)+len(condition))
	assignments := make([]string, 0, len(cols))
	for _, col := range cols {
		args = append(args, values[col])
		assignments = append(assignments, fmt.Sprintf("%v = $%v", col, len(args)))
	}
	where, args := buildCondition(condition, args)

	sql := fmt.Sprintf(`UPDATE %v SET %v WHERE %v`, table, strings.Join(assignments, ", "), where)
	if _, err := t.tx.Exec(sql, args...); err != nil {
		return t.fail("update", table, err)
	}

	return nil
}

// Delete removes matching rows, recording full prior rows for the fork window.
func (t *ContractTx) Delete(table string, condition map[string]interface{}) error {
	if err := t.check("delete", table); err != nil {
		return err
	}

	if t.Reversible() {
		priorRows, err := t.selectRows(table, condition)
		if err != nil {
			return t.fail("delete", table, err)
		}
		for _, prior := range priorRows {
			if err := t.recordRollback(dbtypes.RollbackOpInsert, table, nil, prior); err != nil {
				return t.fail("delete", table, err)
			}
		}
	}

	where, args := buildCondition(condition, nil)
	sql := fmt.Sprintf(`DELETE FROM %v WHERE %v`, table, where)
	if _, err := t.tx.Exec(sql, args...); err != nil {
		return t.fail("delete", table, err)
	}

	return nil
}

// Replace deletes any existing row with the same primary key and inserts the
// new one. Composing delete + insert keeps the rollback records a left inverse:
// replayed in reverse order they remove the new row and restore the prior one.
func (t *ContractTx) Replace(table string, row map[string]interface{}, primaryKeys []string) error {
	condition := map[string]interface{}{}
	for _, key := range primaryKeys {
		condition[key] = row[key]
	}
	if err := t.Delete(table, condition); err != nil {
		return err
	}
	return t.Insert(table, row, primaryKeys)
}

// Exec runs bookkeeping SQL without rollback capture (reader position, pruning).
func (t *ContractTx) Exec(sql string, args ...interface{}) error {
	if err := t.check("exec", "-"); err != nil {
		return err
	}
	if _, err := t.tx.Exec(sql, args...); err != nil {
		return t.fail("exec", "-", err)
	}
	return nil
}

// Get reads a single row within the transaction.
func (t *ContractTx) Get(dest interface{}, sql string, args ...interface{}) error {
	if err := t.check("get", "-"); err != nil {
		return err
	}
	return t.tx.Get(dest, sql, args...)
}

// Select reads multiple rows within the transaction.
func (t *ContractTx) Select(dest interface{}, sql string, args ...interface{}) error {
	if err := t.check("select", "-"); err != nil {
		return err
	}
	return t.tx.Select(dest, sql, args...)
}

// Commit flushes the transaction. The object is dead afterwards.
func (t *ContractTx) Commit() error {
	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	if t.err != nil {
		t.Abort()
		return fmt.Errorf("cannot commit poisoned transaction: %v", t.err)
	}

	t.done = true
	err := t.tx.Commit()
	if t.locked {
		writerMutex.Unlock()
		t.locked = false
	}
	if err != nil {
		return fmt.Errorf("error committing block transaction: %v", err)
	}
	return nil
}

// Abort rolls the transaction back without commit. The object is dead afterwards.
func (t *ContractTx) Abort() {
	if t.done {
		return
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil {
		logger.Errorf("error rolling back block transaction: %v", err)
	}
	if t.locked {
		writerMutex.Unlock()
		t.locked = false
	}
}

func (t *ContractTx) recordRollback(operation string, table string, condition map[string]interface{}, values map[string]interface{}) error {
	conditionJson, err := json.Marshal(condition)
	if err != nil {
		return err
	}
	valuesJson, err := json.Marshal(values)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(`
		INSERT INTO rollback_history (block_num, handler, operation, table_name, condition, row_values)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.blockNum, t.currentHandler, operation, table, string(conditionJson), string(valuesJson))
	return err
}

func (t *ContractTx) selectRows(table string, condition map[string]interface{}) ([]map[string]interface{}, error) {
	where, args := buildCondition(condition, nil)
	sql := fmt.Sprintf(`SELECT * FROM %v WHERE %v`, table, where)

	rows, err := t.tx.Queryx(sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []map[string]interface{}{}
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		result = append(result, normalizeRow(row))
	}
	return result, rows.Err()
}

func buildCondition(condition map[string]interface{}, args []interface{}) (string, []interface{}) {
	clauses := make([]string, 0, len(condition))
	for _, col := range sortedKeys(condition) {
		args = append(args, condition[col])
		clauses = append(clauses, fmt.Sprintf("%v = $%v", col, len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// normalizeRow converts driver scan types into json-round-trippable values.
func normalizeRow(row map[string]interface{}) map[string]interface{} {
	for col, value := range row {
		if raw, ok := value.([]byte); ok {
			row[col] = string(raw)
		}
	}
	return row
}

// decodeRowJson unmarshals a recorded row keeping integral numbers as int64 so
// they bind cleanly against integer columns on re-apply.
func decodeRowJson(data string) (map[string]interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader([]byte(data)))
	decoder.UseNumber()

	row := map[string]interface{}{}
	if err := decoder.Decode(&row); err != nil {
		return nil, err
	}

	for col, value := range row {
		if num, ok := value.(json.Number); ok {
			if i, err := num.Int64(); err == nil {
				row[col] = i
			} else if f, err := num.Float64(); err == nil {
				row[col] = f
			}
		}
	}
	return row, nil
}
