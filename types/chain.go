package types

import (
	"encoding/json"
	"time"
)

// Block is a fully decoded block as handed to the state receiver: header info,
// transaction traces in execution order and table deltas in emission order.
type Block struct {
	BlockNum  uint64
	BlockId   string
	PrevId    string
	Timestamp time.Time

	HeadNum             uint64
	LastIrreversibleNum uint64

	Transactions []*TransactionTrace
	Deltas       []*TableRow
}

type TransactionTrace struct {
	Id     string
	Status uint8

	// Traces is the pre-flattened depth-first action trace order.
	Traces []*ActionTrace
}

type PermissionLevel struct {
	Actor      string `json:"actor"`
	Permission string `json:"permission"`
}

type ActionTrace struct {
	GlobalSequence       uint64
	ActionOrdinal        uint32
	CreatorActionOrdinal uint32

	Receiver      string
	Account       string
	Name          string
	Authorization []PermissionLevel

	// Data is the ABI-decoded payload. Nil when no matching scope filter
	// requested deserialization; RawData is always retained.
	Data    json.RawMessage
	RawData []byte
}

// IsNotification reports whether this trace is a contract notification
// (receiver differs from the acting contract). The filler dispatches only
// first-receiver traces to avoid double-applying mutations.
func (t *ActionTrace) IsNotification() bool {
	return t.Receiver != t.Account
}

// TableRow is one decoded contract_row delta.
type TableRow struct {
	Code       string
	Scope      string
	Table      string
	PrimaryKey uint64
	Payer      string
	Present    bool

	Data    json.RawMessage
	RawData []byte
}

// BlockRef is the block reference embedded in change notifications.
type BlockRef struct {
	BlockNum uint64 `json:"block_num"`
	BlockId  string `json:"block_id"`
}

// TransactionRef is the optional transaction reference in change notifications.
type TransactionRef struct {
	Id string `json:"id"`
}
