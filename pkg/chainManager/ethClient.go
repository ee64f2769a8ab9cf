package chainManager

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// EthClientInterface defines the RPC methods the proposer relies on.
// ethclient.Client satisfies it; tests substitute a mock.
type EthClientInterface interface {
	// ChainID returns the EIP-155 chain id of the connected network
	ChainID(ctx context.Context) (*big.Int, error)

	// BlockNumber returns the most recent block number
	BlockNumber(ctx context.Context) (uint64, error)

	// CodeAt and CallContract, used for the CREATE2 collision check and
	// read-only Safe calls (getTransactionHash, nonce)
	bind.ContractCaller
}
