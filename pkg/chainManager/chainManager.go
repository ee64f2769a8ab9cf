// Package chainManager provides blockchain connection management for Safe proposals.
// It keeps one RPC client per chain id so the proposer can read contract code and
// query the Safe on whichever network a proposal targets.
package chainManager

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	// ErrChainNotFound is returned when a requested chain ID is not found in the manager
	ErrChainNotFound = errors.New("chain not found")
	// ErrChainIDMismatch is returned when an RPC endpoint reports a different chain ID than configured
	ErrChainIDMismatch = errors.New("rpc chain id does not match configuration")
)

// IChainManager defines the interface for managing blockchain connections.
type IChainManager interface {
	// AddChain adds a new blockchain connection to the manager
	AddChain(ctx context.Context, cfg *ChainConfig) error
	// GetChainForId retrieves a chain connection by its chain ID
	GetChainForId(chainId uint64) (*Chain, error)
}

// ChainConfig holds the configuration for connecting to a blockchain.
type ChainConfig struct {
	// ChainID is the expected chain id; zero means "whatever the RPC reports"
	ChainID uint64
	// RPCUrl is the URL endpoint for connecting to the blockchain RPC
	RPCUrl string
}

// Chain represents an active connection to a blockchain.
type Chain struct {
	ChainID uint64
	// RPCClient is the active client connection for this chain
	RPCClient EthClientInterface
}

// Dialer opens an RPC connection. ethclient.DialContext is used unless overridden.
type Dialer func(ctx context.Context, rpcUrl string) (EthClientInterface, error)

// ChainManager implements IChainManager and manages multiple blockchain connections.
// This implementation is thread-safe using sync.Map for concurrent access.
type ChainManager struct {
	Chains sync.Map // map[uint64]*Chain
	dial   Dialer
}

// NewChainManager creates a new ChainManager that dials with ethclient.
func NewChainManager() *ChainManager {
	return NewChainManagerWithDialer(func(ctx context.Context, rpcUrl string) (EthClientInterface, error) {
		return ethclient.DialContext(ctx, rpcUrl)
	})
}

// NewChainManagerWithDialer creates a ChainManager using the provided dialer.
func NewChainManagerWithDialer(dial Dialer) *ChainManager {
	return &ChainManager{dial: dial}
}

// AddChain connects to cfg.RPCUrl, checks the reported chain id against cfg.ChainID
// and registers the connection under the reported id.
//
// Parameters:
//   - ctx: Context for the dial and chain id request
//   - cfg: The chain configuration containing chain ID and RPC URL
//
// Returns:
//   - error: An error if the chain already exists, the connection fails or the ids disagree
func (cm *ChainManager) AddChain(ctx context.Context, cfg *ChainConfig) error {
	if cfg.ChainID != 0 {
		if _, exists := cm.Chains.Load(cfg.ChainID); exists {
			return fmt.Errorf("chain with ID %d already exists", cfg.ChainID)
		}
	}
	client, err := cm.dial(ctx, cfg.RPCUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC URL %s: %w", cfg.RPCUrl, err)
	}
	reported, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain id from %s: %w", cfg.RPCUrl, err)
	}
	if !reported.IsUint64() {
		return fmt.Errorf("chain id %s reported by %s does not fit in uint64", reported, cfg.RPCUrl)
	}
	chainId := reported.Uint64()
	if cfg.ChainID != 0 && cfg.ChainID != chainId {
		return fmt.Errorf("%w: configured %d, %s reports %d", ErrChainIDMismatch, cfg.ChainID, cfg.RPCUrl, chainId)
	}

	if _, loaded := cm.Chains.LoadOrStore(chainId, &Chain{ChainID: chainId, RPCClient: client}); loaded {
		return fmt.Errorf("chain with ID %d already exists", chainId)
	}
	return nil
}

// GetChainForId retrieves a chain connection by its chain ID.
//
// Returns:
//   - *Chain: The chain connection if found
//   - error: ErrChainNotFound if the chain ID is not registered
func (cm *ChainManager) GetChainForId(chainId uint64) (*Chain, error) {
	value, exists := cm.Chains.Load(chainId)
	if !exists {
		return nil, ErrChainNotFound
	}
	chain, ok := value.(*Chain)
	if !ok {
		return nil, fmt.Errorf("invalid chain type stored for ID %d", chainId)
	}
	return chain, nil
}

// ChainIDs returns the ids of all registered chains in ascending order.
func (cm *ChainManager) ChainIDs() []uint64 {
	var ids []uint64
	cm.Chains.Range(func(key, _ any) bool {
		ids = append(ids, key.(uint64))
		return true
	})
	slices.Sort(ids)
	return ids
}
