package chain

import (
	"fmt"
	"sort"

	eos "github.com/eoscanada/eos-go"
	"github.com/sirupsen/logrus"

	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/dbtypes"
)

type abiVersion struct {
	blockNum uint64
	abi      *eos.ABI
	raw      []byte
}

// AbiCache tracks the ABI version active for each contract at each block
// height. It is written only from the receiver goroutine.
type AbiCache struct {
	logger   logrus.FieldLogger
	versions map[string][]*abiVersion
}

func NewAbiCache(logger logrus.FieldLogger) *AbiCache {
	return &AbiCache{
		logger:   logger.WithField("module", "abicache"),
		versions: map[string][]*abiVersion{},
	}
}

// LoadContract restores all persisted ABI versions of a contract from the database.
func (c *AbiCache) LoadContract(contract string) error {
	stored, err := db.GetContractAbis(contract)
	if err != nil {
		return fmt.Errorf("error loading abis for %v: %v", contract, err)
	}

	versions := make([]*abiVersion, 0, len(stored))
	for _, entry := range stored {
		abi := &eos.ABI{}
		if err := eos.UnmarshalBinary(entry.Abi, abi); err != nil {
			return fmt.Errorf("error decoding stored abi for %v at block %v: %v", contract, entry.BlockNum, err)
		}
		versions = append(versions, &abiVersion{
			blockNum: entry.BlockNum,
			abi:      abi,
			raw:      entry.Abi,
		})
	}

	c.versions[contract] = versions
	c.logger.Infof("loaded %v stored abi versions for %v", len(versions), contract)
	return nil
}

// Install registers a new ABI version and mirrors it to the database through
// the active block transaction. The entry becomes effective for all decodes at
// the same or later block height.
func (c *AbiCache) Install(tx *db.ContractTx, contract string, blockNum uint64, raw []byte) error {
	abi := &eos.ABI{}
	if err := eos.UnmarshalBinary(raw, abi); err != nil {
		return &DecodeError{Contract: contract, Type: "abi_def", Err: err}
	}

	if tx != nil {
		err := db.InsertContractAbi(tx, &dbtypes.ContractAbi{
			Contract: contract,
			BlockNum: blockNum,
			Abi:      raw,
		})
		if err != nil {
			return err
		}
	}

	versions := c.versions[contract]
	idx := sort.Search(len(versions), func(i int) bool {
		return versions[i].blockNum >= blockNum
	})
	entry := &abiVersion{blockNum: blockNum, abi: abi, raw: raw}
	if idx < len(versions) && versions[idx].blockNum == blockNum {
		versions[idx] = entry
	} else {
		versions = append(versions, nil)
		copy(versions[idx+1:], versions[idx:])
		versions[idx] = entry
	}
	c.versions[contract] = versions

	c.logger.WithFields(logrus.Fields{
		"contract": contract,
		"block":    blockNum,
	}).Info("installed contract abi")
	return nil
}

// Get returns the ABI effective for a contract at the given block height:
// the latest version with blockNum <= target.
func (c *AbiCache) Get(contract string, blockNum uint64) *eos.ABI {
	versions := c.versions[contract]
	idx := sort.Search(len(versions), func(i int) bool {
		return versions[i].blockNum > blockNum
	})
	if idx == 0 {
		return nil
	}
	return versions[idx-1].abi
}

// Tag identifies the ABI version used for decodes at a block height; the
// deserializer pool keys its per-worker ABI loads on it.
func (c *AbiCache) Tag(contract string, blockNum uint64) string {
	versions := c.versions[contract]
	idx := sort.Search(len(versions), func(i int) bool {
		return versions[i].blockNum > blockNum
	})
	if idx == 0 {
		return ""
	}
	return fmt.Sprintf("%v@%v", contract, versions[idx-1].blockNum)
}

// Rollback drops ABI versions installed at or above the fork height.
func (c *AbiCache) Rollback(blockNum uint64) {
	for contract, versions := range c.versions {
		idx := sort.Search(len(versions), func(i int) bool {
			return versions[i].blockNum >= blockNum
		})
		if idx < len(versions) {
			c.versions[contract] = versions[:idx]
		}
	}
}
