package notify

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/atomicore/eosio-contract-indexer/types"
)

func testBus() *Bus {
	return &Bus{
		logger:     logrus.StandardLogger(),
		prefix:     "eosio-contract-api",
		chainName:  "wax",
		readerName: "atomic-1",
	}
}

func TestChannelNaming(t *testing.T) {
	bus := testBus()

	channel := bus.Channel("atomicassets", "atomicassets", "assets")
	require.Equal(t, "eosio-contract-api:wax:atomic-1:atomicassets:atomicassets:assets", channel)
}

func TestPublisherStaging(t *testing.T) {
	bus := testBus()
	publisher := bus.Publisher("atomicmarket", "atomicmarket")

	publisher.Stage("sales", "state_change", types.BlockRef{BlockNum: 200, BlockId: "aa"}, nil, map[string]interface{}{"sale_id": 5})
	publisher.Stage("sales", "create", types.BlockRef{BlockNum: 200, BlockId: "aa"}, &types.TransactionRef{Id: "tx1"}, nil)
	require.Len(t, publisher.staged, 2)

	// staged order is release order
	require.Equal(t, "state_change", publisher.staged[0].message.Action)
	require.Equal(t, "create", publisher.staged[1].message.Action)
	require.Equal(t, "eosio-contract-api:wax:atomic-1:atomicmarket:atomicmarket:sales", publisher.staged[0].channel)

	publisher.Discard()
	require.Len(t, publisher.staged, 0)
}
