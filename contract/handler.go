package contract

import (
	"context"
	"strings"

	"github.com/atomicore/eosio-contract-indexer/db"
	"github.com/atomicore/eosio-contract-indexer/types"
)

// Filter selects traces or deltas in "account:name" form; name may be "*".
// Deserialize controls whether the payload is ABI-decoded before dispatch.
type Filter struct {
	Filter      string
	Deserialize bool
}

// Account returns the contract account part of the filter.
func (f *Filter) Account() string {
	idx := strings.IndexByte(f.Filter, ':')
	if idx < 0 {
		return ""
	}
	return f.Filter[:idx]
}

func (f *Filter) matches(account string, name string) bool {
	idx := strings.IndexByte(f.Filter, ':')
	if idx < 0 {
		return false
	}
	if f.Filter[:idx] != account {
		return false
	}
	pattern := f.Filter[idx+1:]
	return pattern == "*" || pattern == name
}

// Scope is a handler's declared interest: ordered action and table filters.
type Scope struct {
	Actions []Filter
	Tables  []Filter
}

// MatchesAction reports whether any action filter selects the trace, and
// whether its payload wants deserialization.
func (s *Scope) MatchesAction(account string, name string) (bool, bool) {
	matched := false
	deserialize := false
	for i := range s.Actions {
		if s.Actions[i].matches(account, name) {
			matched = true
			deserialize = deserialize || s.Actions[i].Deserialize
		}
	}
	return matched, deserialize
}

// MatchesTable reports whether any table filter selects the delta.
func (s *Scope) MatchesTable(code string, table string) (bool, bool) {
	matched := false
	deserialize := false
	for i := range s.Tables {
		if s.Tables[i].matches(code, table) {
			matched = true
			deserialize = deserialize || s.Tables[i].Deserialize
		}
	}
	return matched, deserialize
}

// MergedScope is the union of all loaded handlers' scopes; the receiver uses
// it to decide which payloads need decoding at all.
func MergedScope(handlers []Handler) *Scope {
	merged := &Scope{}
	for _, handler := range handlers {
		scope := handler.Scope()
		merged.Actions = append(merged.Actions, scope.Actions...)
		merged.Tables = append(merged.Tables, scope.Tables...)
	}
	return merged
}

// Handler is one contract plug-in: it owns a contract's domain tables and
// notification channels and receives the traces and deltas its scope selects.
//
// Hooks run on the receiver goroutine. The transaction reference passed into a
// hook is only valid for that call and must not be cached across suspensions.
type Handler interface {
	Name() string
	// Contract is the primary account the handler indexes, used in channel names.
	Contract() string
	Scope() *Scope

	// Init runs once at startup: schema checks and configuration bootstrap.
	Init(ctx context.Context) error
	// DeleteDB drops all rows the handler owns (full resync).
	DeleteDB(tx *db.ContractTx) error

	OnBlockStart(block *types.Block) error
	OnAction(tx *db.ContractTx, block *types.Block, txTrace *types.TransactionTrace, trace *types.ActionTrace) error
	OnTableChange(tx *db.ContractTx, block *types.Block, row *types.TableRow) error
	// OnBlockComplete drains the handler's priority job queue.
	OnBlockComplete(tx *db.ContractTx, block *types.Block) error
	// OnCommit releases staged notifications after the block transaction committed.
	OnCommit(ctx context.Context) error
	// OnAbort discards staged per-block state after a failed or forked block.
	OnAbort()
}
