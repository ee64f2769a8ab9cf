// Package create2 predicts CREATE2 deployment addresses and packs the
// delegate call into the Safe CreateCall library that performs the deployment.
package create2

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/Layr-Labs/safe-proposer-go/pkg/checksum"
	"github.com/Layr-Labs/safe-proposer-go/pkg/multisend"
	"github.com/Layr-Labs/safe-proposer-go/pkg/util"
)

// ErrAddressAlreadyTaken is matched by errors.Is on any *AddressAlreadyTakenError.
var ErrAddressAlreadyTaken = errors.New("address already taken")

// AddressAlreadyTakenError reports code already present at the predicted address.
// The caller has to pick another salt.
type AddressAlreadyTakenError struct {
	Address common.Address
}

func (e *AddressAlreadyTakenError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAddressAlreadyTaken, checksum.FormatAddress(e.Address))
}

func (e *AddressAlreadyTakenError) Is(target error) bool {
	return target == ErrAddressAlreadyTaken
}

// CodeReader reads deployed bytecode. bind.ContractCaller satisfies it.
type CodeReader interface {
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
}

const createCallABI = `[{"type":"function","name":"performCreate2","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"},{"name":"deploymentData","type":"bytes"},{"name":"salt","type":"bytes32"}],"outputs":[{"name":"newContract","type":"address"}]}]`

var createCallContract = util.MustParseABI(createCallABI)

// PredictAddress computes keccak256(0xff || deployer || salt || keccak256(initCode))[12:].
func PredictAddress(deployer common.Address, salt [32]byte, initCode []byte) common.Address {
	return crypto.CreateAddress2(deployer, salt, crypto.Keccak256(initCode))
}

// SaltFromString derives a salt as the keccak256 hash of seed.
func SaltFromString(seed string) [32]byte {
	return crypto.Keccak256Hash([]byte(seed))
}

// EncodePerformCreate2 returns the CreateCall calldata performCreate2(0, initCode, salt).
func EncodePerformCreate2(initCode []byte, salt [32]byte) ([]byte, error) {
	data, err := createCallContract.Pack("performCreate2", new(big.Int), initCode, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to pack performCreate2 calldata: %w", err)
	}
	return data, nil
}

// DecodePerformCreate2 is the inverse of EncodePerformCreate2.
func DecodePerformCreate2(data []byte) (*big.Int, []byte, [32]byte, error) {
	method := createCallContract.Methods["performCreate2"]
	if len(data) < 4 || string(data[:4]) != string(method.ID) {
		return nil, nil, [32]byte{}, fmt.Errorf("%w: not a performCreate2 call", multisend.ErrMalformedInput)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, [32]byte{}, fmt.Errorf("failed to unpack performCreate2 calldata: %w", err)
	}
	return args[0].(*big.Int), args[1].([]byte), args[2].([32]byte), nil
}

// Predictor builds CREATE2 sub-transactions routed through a CreateCall library.
type Predictor struct {
	createCall common.Address
	code       CodeReader
	logger     *zap.Logger
}

// NewPredictor creates a Predictor delegating into the CreateCall library at createCall.
func NewPredictor(createCall common.Address, code CodeReader, logger *zap.Logger) *Predictor {
	return &Predictor{
		createCall: createCall,
		code:       code,
		logger:     logger,
	}
}

// EncodeCreate2 packs the deployment of creationCode || constructorArgs with salt.
// The deployer is the account executing CREATE2; for a delegate call through the
// Safe that is the Safe itself.
//
// The collision check is advisory: the deployment happens later, after co-signers
// approve, so the address may be taken in between.
func (p *Predictor) EncodeCreate2(
	ctx context.Context,
	creationCode []byte,
	constructorArgs []byte,
	salt [32]byte,
	deployer common.Address,
) (multisend.EncodedSubTransaction, common.Address, error) {
	initCode := make([]byte, 0, len(creationCode)+len(constructorArgs))
	initCode = append(initCode, creationCode...)
	initCode = append(initCode, constructorArgs...)

	predicted := PredictAddress(deployer, salt, initCode)

	code, err := p.code.CodeAt(ctx, predicted, nil)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("failed to read code at %s: %w", checksum.FormatAddress(predicted), err)
	}
	if len(code) > 0 {
		return nil, common.Address{}, &AddressAlreadyTakenError{Address: predicted}
	}

	payload, err := EncodePerformCreate2(initCode, salt)
	if err != nil {
		return nil, common.Address{}, err
	}
	subTx, err := multisend.EncodeDelegateCall(p.createCall, payload)
	if err != nil {
		return nil, common.Address{}, err
	}

	p.logger.Sugar().Debugw("Encoded CREATE2 deployment",
		zap.String("deployer", checksum.FormatAddress(deployer)),
		zap.String("salt", checksum.FormatHex(salt[:])),
		zap.String("predicted", checksum.FormatAddress(predicted)),
		zap.Int("initCodeLength", len(initCode)),
	)
	return subTx, predicted, nil
}
