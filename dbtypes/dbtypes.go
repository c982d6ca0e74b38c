package dbtypes

type DBEngineType int

const (
	DBEngineAny    DBEngineType = 0
	DBEnginePgsql  DBEngineType = 1
	DBEngineSqlite DBEngineType = 2
)

// ReaderState is the persisted position of one named filler instance.
type ReaderState struct {
	Name      string `db:"name"`
	BlockNum  uint64 `db:"block_num"`
	BlockId   string `db:"block_id"`
	Live      bool   `db:"live"`
	UpdatedAt int64  `db:"updated_at"`
}

// ContractAbi is one ABI version of a contract, effective from BlockNum on.
type ContractAbi struct {
	Contract string `db:"contract"`
	BlockNum uint64 `db:"block_num"`
	Abi      []byte `db:"abi"`
}

// RollbackOp is one inverse operation recorded for a mutation inside the
// fork window. Applying ops in (block_num desc, global_seq desc) order restores
// the database to its pre-block state.
type RollbackOp struct {
	GlobalSeq uint64 `db:"global_seq"`
	BlockNum  uint64 `db:"block_num"`
	Handler   string `db:"handler"`
	Operation string `db:"operation"`
	TableName string `db:"table_name"`
	Condition string `db:"condition"`
	Values    string `db:"row_values"`
}

const (
	RollbackOpInsert = "insert"
	RollbackOpUpdate = "update"
	RollbackOpDelete = "delete"
)

// ContractLog is one row of the append-only contract event log.
type ContractLog struct {
	LogId          uint64 `db:"log_id"`
	Contract       string `db:"contract"`
	RelationName   string `db:"relation_name"`
	RelationId     string `db:"relation_id"`
	Name           string `db:"name"`
	Data           string `db:"data"`
	Txid           []byte `db:"txid"`
	CreatedAtBlock uint64 `db:"created_at_block"`
	CreatedAtTime  int64  `db:"created_at_time"`
}
