package ship

import (
	"fmt"

	eos "github.com/eoscanada/eos-go"
	"github.com/eoscanada/eos-go/ship"
)

// ContractRow is one decoded contract_row_v0 delta row.
type ContractRow struct {
	Code       string
	Scope      string
	Table      string
	PrimaryKey uint64
	Payer      string
	Value      []byte
}

// DecodeTraces decodes the binary transaction trace array of a block result.
func DecodeTraces(data []byte) ([]*ship.TransactionTrace, error) {
	traces := []*ship.TransactionTrace{}
	if len(data) == 0 {
		return traces, nil
	}
	if err := eos.UnmarshalBinary(data, &traces); err != nil {
		return nil, fmt.Errorf("error decoding transaction traces: %v", err)
	}
	return traces, nil
}

// DecodeDeltas decodes the binary table delta array of a block result.
func DecodeDeltas(data []byte) ([]*ship.TableDelta, error) {
	deltas := []*ship.TableDelta{}
	if len(data) == 0 {
		return deltas, nil
	}
	if err := eos.UnmarshalBinary(data, &deltas); err != nil {
		return nil, fmt.Errorf("error decoding table deltas: %v", err)
	}
	return deltas, nil
}

// TraceV0 unwraps a transaction trace variant; nil for unknown versions.
func TraceV0(trace *ship.TransactionTrace) *ship.TransactionTraceV0 {
	if impl, ok := trace.Impl.(*ship.TransactionTraceV0); ok {
		return impl
	}
	return nil
}

// ActionTraceV0 unwraps an action trace variant; nil for unknown versions.
func ActionTraceV0(trace *ship.ActionTrace) *ship.ActionTraceV0 {
	if impl, ok := trace.Impl.(*ship.ActionTraceV0); ok {
		return impl
	}
	return nil
}

// TableDeltaV0 unwraps a table delta variant; nil for unknown versions.
func TableDeltaV0(delta *ship.TableDelta) *ship.TableDeltaV0 {
	if impl, ok := delta.Impl.(*ship.TableDeltaV0); ok {
		return impl
	}
	return nil
}

// DecodeSignedBlock decodes the signed block header of a block result.
func DecodeSignedBlock(data []byte) (*ship.SignedBlock, error) {
	block := &ship.SignedBlock{}
	if err := eos.UnmarshalBinary(data, block); err != nil {
		return nil, fmt.Errorf("error decoding signed block: %v", err)
	}
	return block, nil
}

// DecodeContractRow decodes one contract_row variant from a delta row payload.
// The variant index is returned so callers can reject unknown versions.
func DecodeContractRow(data []byte) (*ContractRow, uint32, error) {
	decoder := eos.NewDecoder(data)

	variant, err := decoder.ReadUvarint32()
	if err != nil {
		return nil, 0, fmt.Errorf("error reading contract row variant: %v", err)
	}
	if variant != 0 {
		return nil, variant, nil
	}

	code, err := decoder.ReadName()
	if err != nil {
		return nil, variant, fmt.Errorf("error reading contract row code: %v", err)
	}
	scope, err := decoder.ReadName()
	if err != nil {
		return nil, variant, fmt.Errorf("error reading contract row scope: %v", err)
	}
	table, err := decoder.ReadName()
	if err != nil {
		return nil, variant, fmt.Errorf("error reading contract row table: %v", err)
	}
	primaryKey, err := decoder.ReadUint64()
	if err != nil {
		return nil, variant, fmt.Errorf("error reading contract row primary key: %v", err)
	}
	payer, err := decoder.ReadName()
	if err != nil {
		return nil, variant, fmt.Errorf("error reading contract row payer: %v", err)
	}
	value, err := decoder.ReadByteArray()
	if err != nil {
		return nil, variant, fmt.Errorf("error reading contract row value: %v", err)
	}

	return &ContractRow{
		Code:       string(code),
		Scope:      string(scope),
		Table:      string(table),
		PrimaryKey: primaryKey,
		Payer:      string(payer),
		Value:      value,
	}, variant, nil
}
