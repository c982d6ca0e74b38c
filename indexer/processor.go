package indexer

import (
	"fmt"
	"sort"

	eos "github.com/eoscanada/eos-go"
	eoship "github.com/eoscanada/eos-go/ship"

	"github.com/atomicore/eosio-contract-indexer/chain"
	"github.com/atomicore/eosio-contract-indexer/chain/ship"
	"github.com/atomicore/eosio-contract-indexer/types"
)

// buildBlock statically decodes a raw block result into the receiver's block
// model. Action and row payloads stay binary here; the receiver drives their
// ABI decoding while walking the block so mid-block setabi actions take effect
// for everything after them.
func buildBlock(raw *ship.BlockResult) (*types.Block, error) {
	block := &types.Block{
		BlockNum:            raw.BlockNum,
		BlockId:             raw.BlockId,
		PrevId:              raw.PrevId,
		HeadNum:             raw.HeadNum,
		LastIrreversibleNum: raw.LastIrreversibleNum,
	}

	if len(raw.Block) > 0 {
		signed, err := ship.DecodeSignedBlock(raw.Block)
		if err != nil {
			return nil, err
		}
		block.Timestamp = signed.Timestamp.Time
	}

	traces, err := ship.DecodeTraces(raw.Traces)
	if err != nil {
		return nil, err
	}

	for _, wrapper := range traces {
		trace := ship.TraceV0(wrapper)
		if trace == nil {
			return nil, fmt.Errorf("unknown transaction trace variant %v", wrapper.TypeID)
		}
		if trace.Status != eos.TransactionStatusExecuted {
			continue
		}

		txTrace := &types.TransactionTrace{
			Id:     trace.ID.String(),
			Status: uint8(trace.Status),
		}

		actionTraces := make([]*eoship.ActionTraceV0, 0, len(trace.ActionTraces))
		for _, actionWrapper := range trace.ActionTraces {
			actionTrace := ship.ActionTraceV0(actionWrapper)
			if actionTrace == nil {
				return nil, fmt.Errorf("unknown action trace variant %v", actionWrapper.TypeID)
			}
			actionTraces = append(actionTraces, actionTrace)
		}
		// creation order is depth-first execution order
		sort.SliceStable(actionTraces, func(i, j int) bool {
			return actionTraces[i].ActionOrdinal < actionTraces[j].ActionOrdinal
		})

		for _, actionTrace := range actionTraces {
			converted := &types.ActionTrace{
				ActionOrdinal:        uint32(actionTrace.ActionOrdinal),
				CreatorActionOrdinal: uint32(actionTrace.CreatorActionOrdinal),
				Receiver:             string(actionTrace.Receiver),
				Account:              string(actionTrace.Act.Account),
				Name:                 string(actionTrace.Act.Name),
				RawData:              []byte(actionTrace.Act.Data),
			}
			if receipt := actionReceiptV0(actionTrace); receipt != nil {
				converted.GlobalSequence = uint64(receipt.GlobalSequence)
			}
			for _, auth := range actionTrace.Act.Authorization {
				converted.Authorization = append(converted.Authorization, types.PermissionLevel{
					Actor:      string(auth.Actor),
					Permission: string(auth.Permission),
				})
			}
			txTrace.Traces = append(txTrace.Traces, converted)
		}

		block.Transactions = append(block.Transactions, txTrace)
	}

	deltas, err := ship.DecodeDeltas(raw.Deltas)
	if err != nil {
		return nil, err
	}

	for _, wrapper := range deltas {
		delta := ship.TableDeltaV0(wrapper)
		if delta == nil {
			return nil, &chain.UnsupportedDeltaError{Variant: fmt.Sprintf("table_delta variant %v", wrapper.TypeID)}
		}
		if delta.Name != "contract_row" {
			continue
		}

		for _, deltaRow := range delta.Rows {
			row, variant, err := ship.DecodeContractRow([]byte(deltaRow.Data))
			if err != nil {
				return nil, err
			}
			if row == nil {
				return nil, &chain.UnsupportedDeltaError{Variant: fmt.Sprintf("contract_row variant %v", variant)}
			}

			block.Deltas = append(block.Deltas, &types.TableRow{
				Code:       row.Code,
				Scope:      row.Scope,
				Table:      row.Table,
				PrimaryKey: row.PrimaryKey,
				Payer:      row.Payer,
				Present:    deltaRow.Present,
				RawData:    row.Value,
			})
		}
	}

	return block, nil
}

func actionReceiptV0(trace *eoship.ActionTraceV0) *eoship.ActionReceiptV0 {
	if trace.Receipt == nil {
		return nil
	}
	if impl, ok := trace.Receipt.Impl.(*eoship.ActionReceiptV0); ok {
		return impl
	}
	return nil
}

// decodeSetAbi extracts account and raw abi bytes from an eosio::setabi
// payload. The layout is fixed, no runtime ABI is needed.
func decodeSetAbi(data []byte) (string, []byte, error) {
	decoder := eos.NewDecoder(data)

	account, err := decoder.ReadName()
	if err != nil {
		return "", nil, fmt.Errorf("error reading setabi account: %v", err)
	}
	abi, err := decoder.ReadByteArray()
	if err != nil {
		return "", nil, fmt.Errorf("error reading setabi abi: %v", err)
	}
	return string(account), abi, nil
}
