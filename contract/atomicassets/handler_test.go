package atomicassets

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/atomicore/eosio-contract-indexer/notify"
)

func TestNewRequiresAccount(t *testing.T) {
	_, err := New(logrus.StandardLogger(), nil, &notify.Bus{}, map[string]interface{}{})
	require.Error(t, err)
}

func TestHandlerScope(t *testing.T) {
	handler, err := New(logrus.StandardLogger(), nil, &notify.Bus{}, map[string]interface{}{
		"atomicassets_account": "atomicassets",
		"store_transfers":      true,
		"store_logs":           true,
	})
	require.NoError(t, err)
	require.Equal(t, HandlerName, handler.Name())
	require.Equal(t, "atomicassets", handler.Contract())

	tests := []struct {
		account string
		action  string
		matched bool
	}{
		{"atomicassets", "logmint", true},
		{"atomicassets", "logtransfer", true},
		{"atomicassets", "acceptoffer", true},
		{"atomicassets", "createcol", false},
		{"atomicmarket", "logmint", false},
	}
	for _, tt := range tests {
		matched, _ := handler.Scope().MatchesAction(tt.account, tt.action)
		require.Equal(t, tt.matched, matched, "%v:%v", tt.account, tt.action)
	}

	matched, deserialize := handler.Scope().MatchesTable("atomicassets", "assets")
	require.True(t, matched)
	require.True(t, deserialize)
}

func TestArgsDefaults(t *testing.T) {
	handler, err := New(logrus.StandardLogger(), nil, &notify.Bus{}, map[string]interface{}{
		"atomicassets_account": "atomicassets",
	})
	require.NoError(t, err)
	require.True(t, handler.args.StoreTransfers)
	require.True(t, handler.args.StoreLogs)
}

func TestParseQuantity(t *testing.T) {
	amount, symbol, err := parseQuantity("1.00000000 WAX")
	require.NoError(t, err)
	require.Equal(t, int64(100000000), amount)
	require.Equal(t, "WAX", symbol)
}
