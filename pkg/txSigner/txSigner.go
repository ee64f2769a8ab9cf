// Package txSigner provides the co-signer signatures attached to Safe transaction proposals.
// This package defines interfaces and implementations for signing 32-byte Safe transaction
// hashes using various methods including direct private keys and AWS KMS integration.
package txSigner

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/safe-proposer-go/pkg/util"
)

var (
	// ErrKeyNotFound is returned when no signer is registered under a key id
	ErrKeyNotFound = errors.New("signing key not found")
	// ErrSignerFailure wraps any error returned by a signing backend
	ErrSignerFailure = errors.New("signer failure")
)

// Signature is a secp256k1 signature over a Safe transaction hash.
type Signature struct {
	V byte
	R [32]byte
	S [32]byte
}

// Bytes returns the 65-byte r || s || v encoding expected by Safe contracts.
func (s *Signature) Bytes() []byte {
	out := make([]byte, 65)
	copy(out[0:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

// SignatureFromBytes splits a 65-byte r || s || v blob.
func SignatureFromBytes(sig []byte) (*Signature, error) {
	if len(sig) != 65 {
		return nil, fmt.Errorf("invalid signature length %d, expected 65", len(sig))
	}
	out := &Signature{V: sig[64]}
	copy(out.R[:], sig[0:32])
	copy(out.S[:], sig[32:64])
	return out, nil
}

// ISafeTxSigner defines the interface for signing Safe transaction hashes.
// Implementations produce signatures that the Safe contract accepts as an ECDSA
// owner signature, i.e. v is 27 or 28.
type ISafeTxSigner interface {
	// SignHash signs the raw 32-byte Safe transaction hash.
	//
	// Parameters:
	//   - ctx: Context for the operation
	//   - hash: The Safe transaction hash returned by getTransactionHash
	//
	// Returns:
	//   - *Signature: The signature split into v, r and s
	//   - error: An error if the backend refused or failed to sign
	SignHash(ctx context.Context, hash common.Hash) (*Signature, error)

	// GetAddress returns the Ethereum address associated with this signer.
	// This address becomes the sender of the proposal.
	//
	// Returns:
	//   - common.Address: The Ethereum address of the signer
	//   - error: An error if the address cannot be determined
	GetAddress() (common.Address, error)
}

// ISigner selects a co-signer by key id and signs with it.
type ISigner interface {
	Sign(ctx context.Context, keyID string, hash common.Hash) (*Signature, error)
	Address(keyID string) (common.Address, error)
}

// Keyring implements ISigner over a fixed set of named signers.
type Keyring struct {
	signers map[string]ISafeTxSigner
}

// NewKeyring creates an empty Keyring.
func NewKeyring() *Keyring {
	return &Keyring{signers: make(map[string]ISafeTxSigner)}
}

// Add registers signer under keyID.
func (k *Keyring) Add(keyID string, signer ISafeTxSigner) error {
	if keyID == "" {
		return fmt.Errorf("key id cannot be empty")
	}
	if _, exists := k.signers[keyID]; exists {
		return fmt.Errorf("key id %q already registered", keyID)
	}
	k.signers[keyID] = signer
	return nil
}

// KeyIDs returns the registered key ids in sorted order.
func (k *Keyring) KeyIDs() []string {
	ids := util.Keys(k.signers)
	sort.Strings(ids)
	return ids
}

func (k *Keyring) get(keyID string) (ISafeTxSigner, error) {
	signer, ok := k.signers[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, keyID)
	}
	return signer, nil
}

// Sign signs hash with the signer registered under keyID. Backend errors are
// returned wrapped in ErrSignerFailure with the original error preserved.
func (k *Keyring) Sign(ctx context.Context, keyID string, hash common.Hash) (*Signature, error) {
	signer, err := k.get(keyID)
	if err != nil {
		return nil, err
	}
	sig, err := signer.SignHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", ErrSignerFailure, keyID, err)
	}
	return sig, nil
}

// Address returns the address of the signer registered under keyID.
func (k *Keyring) Address(keyID string) (common.Address, error) {
	signer, err := k.get(keyID)
	if err != nil {
		return common.Address{}, err
	}
	return signer.GetAddress()
}
