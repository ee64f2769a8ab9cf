// Package proposer composes Safe batches and proposes them to the Safe Transaction Service.
package proposer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Layr-Labs/safe-proposer-go/pkg/checksum"
	"github.com/Layr-Labs/safe-proposer-go/pkg/config"
	"github.com/Layr-Labs/safe-proposer-go/pkg/create2"
	"github.com/Layr-Labs/safe-proposer-go/pkg/multisend"
	"github.com/Layr-Labs/safe-proposer-go/pkg/safe"
	"github.com/Layr-Labs/safe-proposer-go/pkg/service"
	"github.com/Layr-Labs/safe-proposer-go/pkg/transport"
	"github.com/Layr-Labs/safe-proposer-go/pkg/txSigner"
)

// ErrInvalidNonce is returned when the proposal nonce is nil or negative.
var ErrInvalidNonce = errors.New("nonce must be a non-negative integer")

// ProposalHeaders are the only headers sent with a proposal.
var ProposalHeaders = []string{
	"Accept: application/json",
	"Content-Type: application/json",
}

// State is a step of a single proposal.
type State int

const (
	StateStart State = iota
	StateHashComputed
	StateSigned
	StateRequestBuilt
	StateSent
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateHashComputed:
		return "HASH_COMPUTED"
	case StateSigned:
		return "SIGNED"
	case StateRequestBuilt:
		return "REQUEST_BUILT"
	case StateSent:
		return "SENT"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is what the transaction service returned for a proposal.
// The response body is returned verbatim and never parsed.
type Result struct {
	StatusCode   int
	ResponseBody []byte
	RequestBody  []byte
	SafeTxHash   common.Hash
}

// Proposer encodes MultiSend batches and proposes them to the Safe Transaction
// Service under a single co-signer's signature.
type Proposer struct {
	config    *config.ProposerConfig
	logger    *zap.Logger
	predictor *create2.Predictor
	hasher    safe.IHasher
	signer    txSigner.ISigner
	poster    transport.IPoster
}

// NewProposer creates a Proposer. code is used for the CREATE2 collision check,
// hasher is the Safe's own getTransactionHash.
func NewProposer(
	cfg *config.ProposerConfig,
	code create2.CodeReader,
	hasher safe.IHasher,
	signer txSigner.ISigner,
	poster transport.IPoster,
	logger *zap.Logger,
) (*Proposer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Proposer{
		config:    cfg,
		logger:    logger,
		predictor: create2.NewPredictor(cfg.CreateCallAddress, code, logger),
		hasher:    hasher,
		signer:    signer,
		poster:    poster,
	}, nil
}

// CallTx encodes a plain call sub-transaction.
func (p *Proposer) CallTx(target common.Address, value *big.Int, payload []byte) (multisend.EncodedSubTransaction, error) {
	return multisend.EncodeCall(target, value, payload)
}

// CreateTx encodes a CREATE2 deployment of bytecode || args through CreateCall
// and returns the address it will deploy to. deployer is normally the Safe.
func (p *Proposer) CreateTx(
	ctx context.Context,
	bytecode []byte,
	args []byte,
	salt [32]byte,
	deployer common.Address,
) (multisend.EncodedSubTransaction, common.Address, error) {
	return p.predictor.EncodeCreate2(ctx, bytecode, args, salt, deployer)
}

// SendTxs proposes batch with no native value attached.
func (p *Proposer) SendTxs(
	ctx context.Context,
	batch multisend.Batch,
	nonce *big.Int,
	keyID string,
	safeAddress common.Address,
) (*Result, error) {
	return p.SendTxsWithValue(ctx, batch, new(big.Int), nonce, keyID, safeAddress)
}

// SendTxsWithValue wraps batch in a MultiSend delegate call, has the Safe hash it,
// signs the hash with keyID and posts the proposal.
//
// Every error is returned as is; an HTTP error status is not an error and is
// reported through Result.StatusCode.
func (p *Proposer) SendTxsWithValue(
	ctx context.Context,
	batch multisend.Batch,
	value *big.Int,
	nonce *big.Int,
	keyID string,
	safeAddress common.Address,
) (*Result, error) {
	l := p.logger.With(
		zap.Uint64("chainId", p.config.ChainID),
		zap.String("safe", checksum.FormatAddress(safeAddress)),
		zap.String("keyId", keyID),
	)
	p.transition(l, StateStart)

	// Resolved before any collaborator is called.
	url, err := service.ProposalURL(p.config.ChainID, safeAddress)
	if err != nil {
		return nil, p.fail(l, StateStart, err)
	}
	if nonce == nil || nonce.Sign() < 0 {
		return nil, p.fail(l, StateStart, fmt.Errorf("%w: %v", ErrInvalidNonce, nonce))
	}

	sender, err := p.signer.Address(keyID)
	if err != nil {
		return nil, p.fail(l, StateStart, fmt.Errorf("failed to get signer address: %w", err))
	}

	tx, err := safe.NewMultiSendTransaction(p.config.MultiSendAddress, batch, value, sender)
	if err != nil {
		return nil, p.fail(l, StateStart, fmt.Errorf("failed to build safe transaction: %w", err))
	}

	safeTxHash, err := p.hasher.GetTransactionHash(ctx, safeAddress, tx, nonce)
	if err != nil {
		return nil, p.fail(l, StateStart, err)
	}
	p.transition(l, StateHashComputed, zap.String("safeTxHash", safeTxHash.Hex()))

	sig, err := p.signer.Sign(ctx, keyID, safeTxHash)
	if err != nil {
		return nil, p.fail(l, StateHashComputed, err)
	}
	p.transition(l, StateSigned, zap.String("sender", checksum.FormatAddress(sender)))

	origin := p.config.Origin
	if origin == "" {
		origin = checksum.FormatAddress(sender)
	}
	body, err := service.NewProposalRequest(safeAddress, tx, nonce, safeTxHash, sender, sig.Bytes(), origin).Marshal()
	if err != nil {
		return nil, p.fail(l, StateSigned, err)
	}
	p.transition(l, StateRequestBuilt, zap.String("url", url))

	status, response, err := p.poster.Post(ctx, url, ProposalHeaders, body)
	if err != nil {
		return nil, p.fail(l, StateRequestBuilt, err)
	}
	p.transition(l, StateSent, zap.Int("status", status))

	result := &Result{
		StatusCode:   status,
		ResponseBody: response,
		RequestBody:  body,
		SafeTxHash:   safeTxHash,
	}
	p.transition(l, StateDone)
	return result, nil
}

func (p *Proposer) transition(l *zap.Logger, s State, fields ...zap.Field) {
	l.Debug("Proposal state", append([]zap.Field{zap.Stringer("state", s)}, fields...)...)
}

func (p *Proposer) fail(l *zap.Logger, from State, err error) error {
	l.Error("Proposal failed",
		zap.Stringer("state", StateFailed),
		zap.Stringer("from", from),
		zap.Error(err),
	)
	return err
}
