package chain

import (
	"context"
	"fmt"

	eos "github.com/eoscanada/eos-go"
	"github.com/sirupsen/logrus"
)

// RpcClient wraps the chain's HTTP RPC for the few calls the filler needs:
// chain identity on startup and contract config rows for handler bootstrap.
type RpcClient struct {
	logger logrus.FieldLogger
	api    *eos.API
}

func NewRpcClient(logger logrus.FieldLogger, endpoint string) *RpcClient {
	return &RpcClient{
		logger: logger.WithField("module", "rpc"),
		api:    eos.New(endpoint),
	}
}

// GetChainId fetches the chain id and verifies it against the configured one
// when set.
func (c *RpcClient) GetChainId(ctx context.Context, expected string) (string, error) {
	info, err := c.api.GetInfo(ctx)
	if err != nil {
		return "", fmt.Errorf("error fetching chain info: %v", err)
	}

	chainId := info.ChainID.String()
	if expected != "" && chainId != expected {
		return "", fmt.Errorf("chain id mismatch: expected %v, node reports %v", expected, chainId)
	}
	return chainId, nil
}

// GetTableRows reads up to limit rows of a contract table into dest
// (a pointer to a slice of row structs).
func (c *RpcClient) GetTableRows(ctx context.Context, code string, scope string, table string, limit uint32, dest interface{}) error {
	resp, err := c.api.GetTableRows(ctx, eos.GetTableRowsRequest{
		Code:  code,
		Scope: scope,
		Table: table,
		Limit: limit,
		JSON:  true,
	})
	if err != nil {
		return fmt.Errorf("error fetching %v rows of %v: %v", table, code, err)
	}

	err = resp.JSONToStructs(dest)
	if err != nil {
		return fmt.Errorf("error decoding %v rows of %v: %v", table, code, err)
	}
	return nil
}

// GetAbi fetches the currently deployed ABI of a contract and returns it in
// binary abi_def form, used to seed the ABI cache when a contract has no
// stored versions yet.
func (c *RpcClient) GetAbi(ctx context.Context, account string) ([]byte, error) {
	resp, err := c.api.GetABI(ctx, eos.AccountName(account))
	if err != nil {
		return nil, fmt.Errorf("error fetching abi of %v: %v", account, err)
	}

	raw, err := eos.MarshalBinary(resp.ABI)
	if err != nil {
		return nil, fmt.Errorf("error encoding abi of %v: %v", account, err)
	}
	return raw, nil
}
