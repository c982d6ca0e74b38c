package chain

import (
	"context"
	"strings"
	"testing"

	eos "github.com/eoscanada/eos-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testAbiJson = `{
	"version": "eosio::abi/1.1",
	"structs": [
		{"name": "transfer", "base": "", "fields": [
			{"name": "from", "type": "name"},
			{"name": "to", "type": "name"},
			{"name": "asset_ids", "type": "uint64[]"},
			{"name": "memo", "type": "string"}
		]},
		{"name": "config_s", "base": "", "fields": [
			{"name": "counter", "type": "uint64"}
		]}
	],
	"actions": [
		{"name": "transfer", "type": "transfer", "ricardian_contract": ""}
	],
	"tables": [
		{"name": "config", "index_type": "i64", "key_names": [], "key_types": [], "type": "config_s"}
	]
}`

func testPool(t *testing.T) (*DeserializerPool, *eos.ABI) {
	t.Helper()

	abi, err := eos.NewABI(strings.NewReader(testAbiJson))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pool := NewDeserializerPool(logrus.StandardLogger(), 2)
	pool.Start(ctx)
	return pool, abi
}

func TestDeserializerDecodeAction(t *testing.T) {
	pool, abi := testPool(t)

	data, err := abi.EncodeAction(eos.ActionName("transfer"), []byte(`{
		"from": "alice",
		"to": "bob",
		"asset_ids": ["42"],
		"memo": "hi"
	}`))
	require.NoError(t, err)

	decoded, err := pool.DecodeAction(abi, "test@0", "atomicassets", "transfer", data).Wait()
	require.NoError(t, err)
	require.Contains(t, string(decoded), `"alice"`)
	require.Contains(t, string(decoded), `"bob"`)
}

func TestDeserializerLengthGuard(t *testing.T) {
	pool, abi := testPool(t)

	data, err := abi.EncodeAction(eos.ActionName("transfer"), []byte(`{
		"from": "alice",
		"to": "bob",
		"asset_ids": [],
		"memo": ""
	}`))
	require.NoError(t, err)

	// trailing garbage must be rejected, not silently ignored
	data = append(data, 0x00)

	_, err = pool.DecodeAction(abi, "test@0", "atomicassets", "transfer", data).Wait()
	require.Error(t, err)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	require.Equal(t, "atomicassets", decodeErr.Contract)
}

func TestDeserializerDecodeTableRow(t *testing.T) {
	pool, abi := testPool(t)

	row, err := eos.MarshalBinary(struct {
		Counter uint64
	}{Counter: 7})
	require.NoError(t, err)

	decoded, err := pool.DecodeTableRow(abi, "test@0", "atomicassets", "config", row).Wait()
	require.NoError(t, err)
	require.Contains(t, string(decoded), "7")
}
