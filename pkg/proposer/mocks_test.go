package proposer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/Layr-Labs/safe-proposer-go/pkg/safe"
	"github.com/Layr-Labs/safe-proposer-go/pkg/txSigner"
)

type mockHasher struct {
	mock.Mock
}

func (m *mockHasher) GetTransactionHash(ctx context.Context, safeAddress common.Address, tx *safe.SafeTransaction, nonce *big.Int) (common.Hash, error) {
	args := m.Called(ctx, safeAddress, tx, nonce)
	return args.Get(0).(common.Hash), args.Error(1)
}

type mockSigner struct {
	mock.Mock
}

func (m *mockSigner) Sign(ctx context.Context, keyID string, hash common.Hash) (*txSigner.Signature, error) {
	args := m.Called(ctx, keyID, hash)
	var sig *txSigner.Signature
	if v := args.Get(0); v != nil {
		sig = v.(*txSigner.Signature)
	}
	return sig, args.Error(1)
}

func (m *mockSigner) Address(keyID string) (common.Address, error) {
	args := m.Called(keyID)
	return args.Get(0).(common.Address), args.Error(1)
}

type mockPoster struct {
	mock.Mock
}

func (m *mockPoster) Post(ctx context.Context, url string, headers []string, body []byte) (int, []byte, error) {
	args := m.Called(ctx, url, headers, body)
	var response []byte
	if v := args.Get(1); v != nil {
		response = v.([]byte)
	}
	return args.Int(0), response, args.Error(2)
}
