// Package safe models the transaction a Safe executes and binds the
// read-only Safe contract calls the proposer relies on. The Safe's own
// getTransactionHash is the only source of the transaction hash; it is never
// recomputed locally.
package safe

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Layr-Labs/safe-proposer-go/pkg/checksum"
	"github.com/Layr-Labs/safe-proposer-go/pkg/multisend"
	"github.com/Layr-Labs/safe-proposer-go/pkg/util"
)

// SafeTransaction is the single outer transaction the Safe executes.
type SafeTransaction struct {
	To             common.Address
	Value          *big.Int
	Data           []byte
	Operation      multisend.Operation
	SafeTxGas      *big.Int
	BaseGas        *big.Int
	GasPrice       *big.Int
	GasToken       common.Address
	RefundReceiver common.Address
}

// NewMultiSendTransaction wraps batch in a delegate call to the MultiSend library.
// Gas fields are zero so gas accounting is deferred to the executor, and the
// zero gas token selects the native asset.
func NewMultiSendTransaction(multiSend common.Address, batch multisend.Batch, value *big.Int, refundReceiver common.Address) (*SafeTransaction, error) {
	data, err := multisend.EncodeMultiSend(batch)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	return &SafeTransaction{
		To:             multiSend,
		Value:          value,
		Data:           data,
		Operation:      multisend.DelegateCall,
		SafeTxGas:      new(big.Int),
		BaseGas:        new(big.Int),
		GasPrice:       new(big.Int),
		GasToken:       common.Address{},
		RefundReceiver: refundReceiver,
	}, nil
}

// IHasher computes the canonical Safe transaction hash.
type IHasher interface {
	GetTransactionHash(ctx context.Context, safe common.Address, tx *SafeTransaction, nonce *big.Int) (common.Hash, error)
}

// INonceReader reads the Safe's current nonce.
type INonceReader interface {
	Nonce(ctx context.Context, safe common.Address) (*big.Int, error)
}

const safeABI = `[
	{"type":"function","name":"getTransactionHash","stateMutability":"view","inputs":[
		{"name":"to","type":"address"},
		{"name":"value","type":"uint256"},
		{"name":"data","type":"bytes"},
		{"name":"operation","type":"uint8"},
		{"name":"safeTxGas","type":"uint256"},
		{"name":"baseGas","type":"uint256"},
		{"name":"gasPrice","type":"uint256"},
		{"name":"gasToken","type":"address"},
		{"name":"refundReceiver","type":"address"},
		{"name":"_nonce","type":"uint256"}
	],"outputs":[{"name":"","type":"bytes32"}]},
	{"type":"function","name":"nonce","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

var safeContract = util.MustParseABI(safeABI)

// Caller performs eth_call against a deployed Safe.
type Caller struct {
	backend bind.ContractCaller
	logger  *zap.Logger
}

// NewCaller creates a Caller over backend, typically a chainManager RPC client.
func NewCaller(backend bind.ContractCaller, logger *zap.Logger) *Caller {
	return &Caller{backend: backend, logger: logger}
}

func (c *Caller) bound(safe common.Address) *bind.BoundContract {
	return bind.NewBoundContract(safe, safeContract, c.backend, nil, nil)
}

// GetTransactionHash calls getTransactionHash on the Safe with the nine transaction
// fields and nonce.
func (c *Caller) GetTransactionHash(ctx context.Context, safe common.Address, tx *SafeTransaction, nonce *big.Int) (common.Hash, error) {
	var out []interface{}
	err := c.bound(safe).Call(&bind.CallOpts{Context: ctx}, &out, "getTransactionHash",
		tx.To,
		tx.Value,
		tx.Data,
		uint8(tx.Operation),
		tx.SafeTxGas,
		tx.BaseGas,
		tx.GasPrice,
		tx.GasToken,
		tx.RefundReceiver,
		nonce,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to call getTransactionHash on %s: %w", checksum.FormatAddress(safe), err)
	}
	hash := common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte))

	c.logger.Sugar().Debugw("Fetched Safe transaction hash",
		zap.String("safe", checksum.FormatAddress(safe)),
		zap.String("nonce", nonce.String()),
		zap.String("safeTxHash", checksum.FormatHex(hash[:])),
	)
	return hash, nil
}

// Nonce returns the Safe's current nonce.
func (c *Caller) Nonce(ctx context.Context, safe common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.bound(safe).Call(&bind.CallOpts{Context: ctx}, &out, "nonce"); err != nil {
		return nil, fmt.Errorf("failed to call nonce on %s: %w", checksum.FormatAddress(safe), err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
