package db

import (
	"github.com/jmoiron/sqlx"

	"github.com/atomicore/eosio-contract-indexer/dbtypes"
)

// GetContractAbis loads all stored ABI versions for a contract, oldest first.
func GetContractAbis(contract string) ([]*dbtypes.ContractAbi, error) {
	abis := []*dbtypes.ContractAbi{}
	err := ReaderDb.Select(&abis, `
		SELECT contract, block_num, abi
		FROM contract_abis
		WHERE contract = $1
		ORDER BY block_num ASC`,
		contract)
	if err != nil {
		return nil, err
	}
	return abis, nil
}

// InsertContractAbi stores a new ABI version inside the block transaction.
func InsertContractAbi(tx *ContractTx, abi *dbtypes.ContractAbi) error {
	return tx.Exec(EngineQuery(map[dbtypes.DBEngineType]string{
		dbtypes.DBEnginePgsql: `
			INSERT INTO contract_abis (contract, block_num, abi)
			VALUES ($1, $2, $3)
			ON CONFLICT (contract, block_num) DO UPDATE SET
				abi = excluded.abi`,
		dbtypes.DBEngineSqlite: `
			INSERT OR REPLACE INTO contract_abis (contract, block_num, abi)
			VALUES ($1, $2, $3)`,
	}), abi.Contract, abi.BlockNum, abi.Abi)
}

// DeleteContractAbisFrom drops ABI versions installed by forked-out blocks.
func DeleteContractAbisFrom(tx *sqlx.Tx, blockNum uint64) error {
	_, err := tx.Exec(`DELETE FROM contract_abis WHERE block_num >= $1`, blockNum)
	return err
}
