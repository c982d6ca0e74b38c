package contract

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/notify"
	"github.com/atomicore/eosio-contract-indexer/types"
)

// Base carries the pieces every concrete handler shares: a module logger, the
// per-block priority job queue and the staged notification publisher.
type Base struct {
	Logger    logrus.FieldLogger
	Queue     *JobQueue
	Publisher *notify.Publisher
}

func NewBase(logger logrus.FieldLogger, name string, publisher *notify.Publisher) Base {
	return Base{
		Logger:    logger.WithField("handler", name),
		Queue:     NewJobQueue(),
		Publisher: publisher,
	}
}

// Notify stages a change notification, gated on the transaction's
// reversibility: history backfill produces no messages.
func (b *Base) Notify(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, topic string, action string, data interface{}) {
	if !tx.Reversible() {
		return
	}

	var txRef *types.TransactionRef
	if txTrace != nil {
		txRef = &types.TransactionRef{Id: txTrace.Id}
	}
	b.Publisher.Stage(topic, action, types.BlockRef{BlockNum: block.BlockNum, BlockId: block.BlockId}, txRef, data)
}

// DecodeArgs maps a handler's free-form config record onto its typed options.
func DecodeArgs(args map[string]interface{}, dest interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dest,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("error decoding handler args: %v", err)
	}
	return nil
}

// JsonString serializes a value for a json-typed column. Marshal failures
// collapse to null; the column types are primitive enough that this only
// happens on programmer error.
func JsonString(value interface{}) string {
	data, err := json.Marshal(value)
	if err != nil {
		return "null"
	}
	return string(data)
}

// ParseTxid decodes a hex transaction id into bytes for a bytea column.
func ParseTxid(txid string) []byte {
	data, err := hex.DecodeString(txid)
	if err != nil {
		return nil
	}
	return data
}

// DecodePayload unmarshals an ABI-decoded action or row payload into its
// typed view. A payload that does not fit the expected shape is a handler
// logic error and halts the filler.
func DecodePayload(data json.RawMessage, dest interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("missing decoded payload")
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("error decoding payload: %v", err)
	}
	return nil
}
