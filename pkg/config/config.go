// Package config holds the proposer configuration and the canonical Safe
// library deployments it defaults to.
package config

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/safe-proposer-go/pkg/service"
)

var (
	// DefaultMultiSendAddress is the Safe v1.4.1 MultiSend deployment.
	DefaultMultiSendAddress = common.HexToAddress("0x38869bf66a61cF6bDB996A6aE40D5853Fd43B526")
	// DefaultCreateCallAddress is the Safe v1.4.1 CreateCall deployment.
	DefaultCreateCallAddress = common.HexToAddress("0x9b35Af71d77eaf8d7e40252370304687390A1A52")
)

var ErrInvalidConfig = errors.New("invalid proposer config")

// ProposerConfig configures a proposer for one chain.
type ProposerConfig struct {
	// ChainID selects the transaction service endpoint
	ChainID uint64
	// MultiSendAddress is the library the outer transaction delegate-calls into
	MultiSendAddress common.Address
	// CreateCallAddress is the library CREATE2 sub-transactions delegate-call into
	CreateCallAddress common.Address
	// Origin overrides the proposal "origin" field; empty uses the signer address
	Origin string
}

// NewProposerConfig returns a config for chainID using the default library deployments.
func NewProposerConfig(chainID uint64) *ProposerConfig {
	return &ProposerConfig{
		ChainID:           chainID,
		MultiSendAddress:  DefaultMultiSendAddress,
		CreateCallAddress: DefaultCreateCallAddress,
	}
}

// Validate checks that the chain id and library addresses are set. Whether the
// transaction service covers the chain is not checked; that fails when a
// proposal is sent.
func (c *ProposerConfig) Validate() error {
	if c.ChainID == 0 {
		return fmt.Errorf("%w: chain id is required", ErrInvalidConfig)
	}
	if c.MultiSendAddress == (common.Address{}) {
		return fmt.Errorf("%w: multisend address is required", ErrInvalidConfig)
	}
	if c.CreateCallAddress == (common.Address{}) {
		return fmt.Errorf("%w: create call address is required", ErrInvalidConfig)
	}
	return nil
}

// Supported reports whether the transaction service has an endpoint for the chain.
func (c *ProposerConfig) Supported() bool {
	_, err := service.BaseURL(c.ChainID)
	return err == nil
}
