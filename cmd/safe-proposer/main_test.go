package main

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Layr-Labs/safe-proposer-go/pkg/chainManager"
	"github.com/Layr-Labs/safe-proposer-go/pkg/config"
	"github.com/Layr-Labs/safe-proposer-go/pkg/create2"
	"github.com/Layr-Labs/safe-proposer-go/pkg/multisend"
	"github.com/Layr-Labs/safe-proposer-go/pkg/proposer"
	"github.com/Layr-Labs/safe-proposer-go/pkg/service"
)

func TestBuildBatch(t *testing.T) {
	safeAddr := common.HexToAddress("0x5afe000000000000000000000000000000000001")
	target := common.HexToAddress("0x0000000000000000000000000000000000000001")
	bytecode := []byte{0x60, 0x80, 0x60, 0x40}
	args := []byte{0x01}
	salt := create2.SaltFromString("batch")
	predicted := create2.PredictAddress(safeAddr, salt, append(append([]byte{}, bytecode...), args...))

	call := &txEntry{Kind: txKindCall, To: target, Value: big.NewInt(5), Data: []byte{0xaa, 0xbb}}
	create := &txEntry{Kind: txKindCreate, Bytecode: bytecode, Args: args, Salt: salt}

	tests := []struct {
		name          string
		entries       []*txEntry
		existingCode  []byte
		wantOps       []multisend.Operation
		wantPredicted []common.Address
		wantErr       error
		wantErrText   string
	}{
		{
			name:    "calls only",
			entries: []*txEntry{call, call},
			wantOps: []multisend.Operation{multisend.Call, multisend.Call},
		},
		{
			name:          "call then create",
			entries:       []*txEntry{call, create},
			existingCode:  []byte{},
			wantOps:       []multisend.Operation{multisend.Call, multisend.DelegateCall},
			wantPredicted: []common.Address{predicted},
		},
		{
			name:         "create collides with deployed code",
			entries:      []*txEntry{call, create},
			existingCode: []byte{0x60},
			wantErr:      create2.ErrAddressAlreadyTaken,
			wantErrText:  "tx #1",
		},
		{
			name: "empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := chainManager.NewMockEthClientInterface(t)
			if tt.existingCode != nil {
				client.On("CodeAt", mock.Anything, predicted, (*big.Int)(nil)).Return(tt.existingCode, nil).Once()
			}
			p, err := proposer.NewProposer(config.NewProposerConfig(1), client, nil, nil, nil, zap.NewNop())
			require.NoError(t, err)

			batch, addrs, err := buildBatch(context.Background(), p, tt.entries, safeAddr, zap.NewNop())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), tt.wantErrText)
				assert.Nil(t, batch)
				assert.Nil(t, addrs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPredicted, addrs)

			decoded, err := multisend.DecodeBatch(batch)
			require.NoError(t, err)
			require.Len(t, decoded, len(tt.wantOps))
			for i, op := range tt.wantOps {
				assert.Equal(t, op, decoded[i].Operation, "tx #%d", i)
			}
			if len(decoded) > 0 {
				assert.Equal(t, target, decoded[0].To)
				assert.Equal(t, "5", decoded[0].Value.String())
				assert.Equal(t, []byte{0xaa, 0xbb}, decoded[0].Data)
			}
			if len(tt.wantPredicted) > 0 {
				last := decoded[len(decoded)-1]
				assert.Equal(t, config.DefaultCreateCallAddress, last.To)
				_, initCode, gotSalt, err := create2.DecodePerformCreate2(last.Data)
				require.NoError(t, err)
				assert.Equal(t, append(append([]byte{}, bytecode...), args...), initCode)
				assert.Equal(t, salt, gotSalt)
			}
		})
	}
}

func TestLogChainHead(t *testing.T) {
	client := chainManager.NewMockEthClientInterface(t)
	client.On("BlockNumber", mock.Anything).Return(uint64(19_000_000), nil).Once()

	core, logs := observer.New(zapcore.InfoLevel)
	err := logChainHead(context.Background(), &chainManager.Chain{ChainID: 1, RPCClient: client}, zap.New(core))
	require.NoError(t, err)

	entries := logs.FilterMessage("Connected to chain").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, uint64(1), fields["chainId"])
	assert.Equal(t, uint64(19_000_000), fields["headBlock"])
}

func TestLogChainHead_Error(t *testing.T) {
	rpcErr := errors.New("connection refused")
	client := chainManager.NewMockEthClientInterface(t)
	client.On("BlockNumber", mock.Anything).Return(uint64(0), rpcErr).Once()

	err := logChainHead(context.Background(), &chainManager.Chain{ChainID: 8453, RPCClient: client}, zap.NewNop())
	require.ErrorIs(t, err, rpcErr)
	assert.Contains(t, err.Error(), "chain 8453")
}

func TestCheckServiceSupport(t *testing.T) {
	require.NoError(t, checkServiceSupport(1))

	err := checkServiceSupport(10)
	require.ErrorIs(t, err, service.ErrUnsupportedNetwork)
	assert.Contains(t, err.Error(), "chain id 10")
	assert.Contains(t, err.Error(), "supported chain ids: [1 56 137 8453 42161 43114 84532 11155111]")
}
