// Package service addresses the Safe Transaction Service and shapes the
// multisig-transaction proposal it accepts.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/safe-proposer-go/pkg/checksum"
	"github.com/Layr-Labs/safe-proposer-go/pkg/safe"
)

// ErrUnsupportedNetwork is matched by errors.Is on any *UnsupportedNetworkError.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// UnsupportedNetworkError reports a chain id missing from the service URL table.
type UnsupportedNetworkError struct {
	ChainID uint64
}

func (e *UnsupportedNetworkError) Error() string {
	return fmt.Sprintf("%s: chain id %d", ErrUnsupportedNetwork, e.ChainID)
}

func (e *UnsupportedNetworkError) Is(target error) bool {
	return target == ErrUnsupportedNetwork
}

var baseURLs = map[uint64]string{
	1:        "https://safe-transaction-mainnet.safe.global/api/v1/safes/",
	56:       "https://safe-transaction-bsc.safe.global/api/v1/safes/",
	137:      "https://safe-transaction-polygon.safe.global/api/v1/safes/",
	8453:     "https://safe-transaction-base.safe.global/api/v1/safes/",
	42161:    "https://safe-transaction-arbitrum.safe.global/api/v1/safes/",
	43114:    "https://safe-transaction-avalanche.safe.global/api/v1/safes/",
	84532:    "https://safe-transaction-base-sepolia.safe.global/api/v1/safes/",
	11155111: "https://safe-transaction-sepolia.safe.global/api/v1/safes/",
}

// BaseURL returns the Safe Transaction Service base URL for chainID.
func BaseURL(chainID uint64) (string, error) {
	url, ok := baseURLs[chainID]
	if !ok {
		return "", &UnsupportedNetworkError{ChainID: chainID}
	}
	return url, nil
}

// ProposalURL returns the endpoint multisig transactions for safeAddress are posted to.
func ProposalURL(chainID uint64, safeAddress common.Address) (string, error) {
	base, err := BaseURL(chainID)
	if err != nil {
		return "", err
	}
	return base + checksum.FormatAddress(safeAddress) + "/multisig-transactions/", nil
}

// SupportedChainIDs returns every chain id in the URL table, ascending.
func SupportedChainIDs() []uint64 {
	ids := make([]uint64, 0, len(baseURLs))
	for id := range baseURLs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ProposalRequest is the JSON body of POST .../multisig-transactions/.
// Field order matches the service documentation.
type ProposalRequest struct {
	Safe                    string      `json:"safe"`
	To                      string      `json:"to"`
	Value                   json.Number `json:"value"`
	Data                    string      `json:"data"`
	Operation               uint8       `json:"operation"`
	GasToken                string      `json:"gasToken"`
	SafeTxGas               string      `json:"safeTxGas"`
	BaseGas                 string      `json:"baseGas"`
	GasPrice                string      `json:"gasPrice"`
	RefundReceiver          string      `json:"refundReceiver"`
	Nonce                   string      `json:"nonce"`
	ContractTransactionHash string      `json:"contractTransactionHash"`
	Sender                  string      `json:"sender"`
	Signature               string      `json:"signature"`
	Origin                  string      `json:"origin"`
}

// NewProposalRequest flattens tx and its signature into the service representation.
// Addresses are checksummed, byte fields are 0x hex and integers are decimal.
func NewProposalRequest(
	safeAddress common.Address,
	tx *safe.SafeTransaction,
	nonce *big.Int,
	safeTxHash common.Hash,
	sender common.Address,
	signature []byte,
	origin string,
) *ProposalRequest {
	return &ProposalRequest{
		Safe:                    checksum.FormatAddress(safeAddress),
		To:                      checksum.FormatAddress(tx.To),
		Value:                   json.Number(decimal(tx.Value)),
		Data:                    checksum.FormatHex(tx.Data),
		Operation:               uint8(tx.Operation),
		GasToken:                checksum.FormatAddress(tx.GasToken),
		SafeTxGas:               decimal(tx.SafeTxGas),
		BaseGas:                 decimal(tx.BaseGas),
		GasPrice:                decimal(tx.GasPrice),
		RefundReceiver:          checksum.FormatAddress(tx.RefundReceiver),
		Nonce:                   decimal(nonce),
		ContractTransactionHash: checksum.FormatHex(safeTxHash[:]),
		Sender:                  checksum.FormatAddress(sender),
		Signature:               checksum.FormatHex(signature),
		Origin:                  origin,
	}
}

// Marshal returns the JSON encoding of r.
func (r *ProposalRequest) Marshal() ([]byte, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal proposal request: %w", err)
	}
	return body, nil
}

func decimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
