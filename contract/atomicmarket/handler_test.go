package atomicmarket

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/atomicore/eosio-contract-indexer/notify"
)

func testLogger() logrus.FieldLogger {
	return logrus.StandardLogger()
}

func testNotifyBus() *notify.Bus {
	return &notify.Bus{}
}

func TestParseSymbolCode(t *testing.T) {
	tests := []struct {
		input     string
		precision uint8
		symbol    string
	}{
		{"8,WAX", 8, "WAX"},
		{"4,EOS", 4, "EOS"},
		{"WAX", 0, "WAX"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			precision, symbol := parseSymbolCode(tt.input)
			require.Equal(t, tt.precision, precision)
			require.Equal(t, tt.symbol, symbol)
		})
	}
}

func TestParseQuantity(t *testing.T) {
	amount, symbol, err := parseQuantity("100.00000000 WAX")
	require.NoError(t, err)
	require.Equal(t, int64(10000000000), amount)
	require.Equal(t, "WAX", symbol)

	_, _, err = parseQuantity("not an asset")
	require.Error(t, err)
}

func TestNewRequiresAccounts(t *testing.T) {
	_, err := New(testLogger(), nil, testNotifyBus(), map[string]interface{}{})
	require.Error(t, err)

	_, err = New(testLogger(), nil, testNotifyBus(), map[string]interface{}{
		"atomicmarket_account": "atomicmarket",
	})
	require.Error(t, err)

	handler, err := New(testLogger(), nil, testNotifyBus(), map[string]interface{}{
		"atomicmarket_account": "atomicmarket",
		"atomicassets_account": "atomicassets",
		"delphioracle_account": "delphioracle",
	})
	require.NoError(t, err)
	require.Equal(t, "atomicmarket", handler.Contract())

	// the scope covers the market contract, the offer transitions of the
	// assets contract and the oracle tables
	matched, _ := handler.Scope().MatchesAction("atomicassets", "acceptoffer")
	require.True(t, matched)
	matched, _ = handler.Scope().MatchesTable("delphioracle", "datapoints")
	require.True(t, matched)
	matched, _ = handler.Scope().MatchesTable("atomicmarket", "sales")
	require.True(t, matched)
}
