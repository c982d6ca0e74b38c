package chain

import (
	"testing"

	eos "github.com/eoscanada/eos-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testAbiBytes(t *testing.T, version string) []byte {
	t.Helper()
	raw, err := eos.MarshalBinary(eos.ABI{Version: version})
	require.NoError(t, err)
	return raw
}

func TestAbiCacheLookup(t *testing.T) {
	cache := NewAbiCache(logrus.StandardLogger())

	require.NoError(t, cache.Install(nil, "atomicassets", 100, testAbiBytes(t, "eosio::abi/1.0")))
	require.NoError(t, cache.Install(nil, "atomicassets", 500, testAbiBytes(t, "eosio::abi/1.1")))

	tests := []struct {
		name     string
		blockNum uint64
		version  string
		found    bool
	}{
		{"before first version", 99, "", false},
		{"at first version", 100, "eosio::abi/1.0", true},
		{"between versions", 499, "eosio::abi/1.0", true},
		{"at second version", 500, "eosio::abi/1.1", true},
		{"after second version", 10000, "eosio::abi/1.1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abi := cache.Get("atomicassets", tt.blockNum)
			if !tt.found {
				require.Nil(t, abi)
				return
			}
			require.NotNil(t, abi)
			require.Equal(t, tt.version, abi.Version)
		})
	}
}

func TestAbiCacheRollback(t *testing.T) {
	cache := NewAbiCache(logrus.StandardLogger())

	require.NoError(t, cache.Install(nil, "atomicassets", 100, testAbiBytes(t, "eosio::abi/1.0")))
	require.NoError(t, cache.Install(nil, "atomicassets", 500, testAbiBytes(t, "eosio::abi/1.1")))

	cache.Rollback(500)

	abi := cache.Get("atomicassets", 600)
	require.NotNil(t, abi)
	require.Equal(t, "eosio::abi/1.0", abi.Version, "replay after fork must use the previous abi")
}

func TestAbiCacheUnknownContract(t *testing.T) {
	cache := NewAbiCache(logrus.StandardLogger())
	require.Nil(t, cache.Get("unknown", 100))
	require.Equal(t, "", cache.Tag("unknown", 100))
}

func TestAbiCacheTag(t *testing.T) {
	cache := NewAbiCache(logrus.StandardLogger())
	require.NoError(t, cache.Install(nil, "atomicassets", 100, testAbiBytes(t, "eosio::abi/1.0")))
	require.NoError(t, cache.Install(nil, "atomicassets", 500, testAbiBytes(t, "eosio::abi/1.1")))

	require.Equal(t, "atomicassets@100", cache.Tag("atomicassets", 499))
	require.Equal(t, "atomicassets@500", cache.Tag("atomicassets", 500))
}
