package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestNewProposerConfig_Defaults(t *testing.T) {
	cfg := NewProposerConfig(1)
	assert.Equal(t, uint64(1), cfg.ChainID)
	assert.Equal(t, "0x38869bf66a61cF6bDB996A6aE40D5853Fd43B526", cfg.MultiSendAddress.Hex())
	assert.Equal(t, "0x9b35Af71d77eaf8d7e40252370304687390A1A52", cfg.CreateCallAddress.Hex())
	assert.Empty(t, cfg.Origin)
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.Supported())
}

func TestProposerConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ProposerConfig)
	}{
		{"missing chain id", func(c *ProposerConfig) { c.ChainID = 0 }},
		{"missing multisend", func(c *ProposerConfig) { c.MultiSendAddress = common.Address{} }},
		{"missing create call", func(c *ProposerConfig) { c.CreateCallAddress = common.Address{} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewProposerConfig(11155111)
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestProposerConfig_UnsupportedChainStillValid(t *testing.T) {
	cfg := NewProposerConfig(999999)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.Supported())
}
