package chainManager

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, chainId int64) (*ChainManager, *MockEthClientInterface) {
	client := NewMockEthClientInterface(t)
	client.On("ChainID", mock.Anything).Return(big.NewInt(chainId), nil).Maybe()

	cm := NewChainManagerWithDialer(func(ctx context.Context, rpcUrl string) (EthClientInterface, error) {
		if rpcUrl == "bad://url" {
			return nil, errors.New("dial failed")
		}
		return client, nil
	})
	return cm, client
}

func TestChainManager_AddAndGet(t *testing.T) {
	cm, client := newTestManager(t, 11155111)

	err := cm.AddChain(context.Background(), &ChainConfig{ChainID: 11155111, RPCUrl: "http://localhost:8545"})
	require.NoError(t, err)

	chain, err := cm.GetChainForId(11155111)
	require.NoError(t, err)
	assert.Equal(t, uint64(11155111), chain.ChainID)
	assert.Same(t, client, chain.RPCClient)
}

func TestChainManager_AddChain_UsesReportedChainId(t *testing.T) {
	cm, _ := newTestManager(t, 8453)

	require.NoError(t, cm.AddChain(context.Background(), &ChainConfig{RPCUrl: "http://localhost:8545"}))

	_, err := cm.GetChainForId(8453)
	assert.NoError(t, err)
	assert.Equal(t, []uint64{8453}, cm.ChainIDs())
}

func TestChainManager_AddChain_Duplicate(t *testing.T) {
	cm, _ := newTestManager(t, 1)
	cfg := &ChainConfig{ChainID: 1, RPCUrl: "http://localhost:8545"}

	require.NoError(t, cm.AddChain(context.Background(), cfg))
	err := cm.AddChain(context.Background(), cfg)
	assert.ErrorContains(t, err, "already exists")
}

func TestChainManager_AddChain_Mismatch(t *testing.T) {
	cm, _ := newTestManager(t, 137)

	err := cm.AddChain(context.Background(), &ChainConfig{ChainID: 1, RPCUrl: "http://localhost:8545"})
	assert.ErrorIs(t, err, ErrChainIDMismatch)
}

func TestChainManager_AddChain_DialError(t *testing.T) {
	cm, _ := newTestManager(t, 1)

	err := cm.AddChain(context.Background(), &ChainConfig{ChainID: 1, RPCUrl: "bad://url"})
	assert.ErrorContains(t, err, "failed to connect to RPC URL")
}

func TestChainManager_GetChainForId_NotFound(t *testing.T) {
	cm := NewChainManager()

	_, err := cm.GetChainForId(42)
	assert.ErrorIs(t, err, ErrChainNotFound)
}
