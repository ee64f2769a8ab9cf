package main

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/Layr-Labs/safe-proposer-go/pkg/checksum"
	"github.com/Layr-Labs/safe-proposer-go/pkg/create2"
	"github.com/Layr-Labs/safe-proposer-go/pkg/txSigner"
	"github.com/Layr-Labs/safe-proposer-go/pkg/util"
)

const (
	txKindCall   = "call"
	txKindCreate = "create"
)

// txEntry is one --tx entry:
//
//	call:<to>:<value>:<0xdata>
//	create:<0xbytecode>:<0xargs>:<salt>
//
// A create salt is either 32 bytes of hex or a seed string hashed with keccak256.
type txEntry struct {
	Kind     string
	To       common.Address
	Value    *big.Int
	Data     []byte
	Bytecode []byte
	Args     []byte
	Salt     [32]byte
}

func parseTxEntries(entries []string) ([]*txEntry, error) {
	return util.Map(entries, parseTxEntry)
}

func parseTxEntry(entry string, index uint64) (*txEntry, error) {
	parts := strings.SplitN(entry, ":", 4)
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid tx #%d %q (expected 'call:to:value:data' or 'create:bytecode:args:salt')", index, entry)
	}

	switch parts[0] {
	case txKindCall:
		to, err := checksum.ParseAddress(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid tx #%d target: %w", index, err)
		}
		value, ok := new(big.Int).SetString(defaultString(parts[2], "0"), 0)
		if !ok || value.Sign() < 0 {
			return nil, fmt.Errorf("invalid tx #%d value: %s", index, parts[2])
		}
		data, err := decodeHex(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid tx #%d data: %w", index, err)
		}
		return &txEntry{Kind: txKindCall, To: to, Value: value, Data: data}, nil
	case txKindCreate:
		bytecode, err := decodeHex(parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid tx #%d bytecode: %w", index, err)
		}
		if len(bytecode) == 0 {
			return nil, fmt.Errorf("invalid tx #%d: bytecode is empty", index)
		}
		args, err := decodeHex(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid tx #%d constructor args: %w", index, err)
		}
		return &txEntry{Kind: txKindCreate, Bytecode: bytecode, Args: args, Salt: parseSalt(parts[3])}, nil
	default:
		return nil, fmt.Errorf("invalid tx #%d kind %q", index, parts[0])
	}
}

func parseSalt(s string) [32]byte {
	if b, err := hexutil.Decode(s); err == nil && len(b) == 32 {
		return common.BytesToHash(b)
	}
	return create2.SaltFromString(s)
}

func decodeHex(s string) ([]byte, error) {
	if s == "" || s == "0x" {
		return []byte{}, nil
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// signerEntry is one --signer entry: <keyId>=pk:<hex>, <keyId>=kms:<kmsKeyId>
// or <keyId>=sm:<secretName>.
type signerEntry struct {
	KeyID   string
	Backend string
	Secret  string
}

func parseSignerEntry(entry string, index uint64) (*signerEntry, error) {
	keyID, rest, ok := strings.Cut(entry, "=")
	if !ok || keyID == "" {
		return nil, fmt.Errorf("invalid signer #%d (expected 'keyId=pk:<hex>', 'keyId=kms:<keyId>' or 'keyId=sm:<secretName>')", index)
	}
	backend, secret, ok := strings.Cut(rest, ":")
	if !ok || secret == "" {
		return nil, fmt.Errorf("invalid signer %q: missing backend value", keyID)
	}
	switch backend {
	case "pk", "kms", "sm":
	default:
		return nil, fmt.Errorf("invalid signer %q: unknown backend %q", keyID, backend)
	}
	return &signerEntry{KeyID: keyID, Backend: backend, Secret: secret}, nil
}

// buildKeyring registers every --signer entry. KMS keys and secrets are resolved
// in region; passphrase decrypts keystore secrets.
func buildKeyring(entries []string, region, passphrase string, l *zap.Logger) (*txSigner.Keyring, error) {
	parsed, err := util.Map(entries, parseSignerEntry)
	if err != nil {
		return nil, err
	}

	kr := txSigner.NewKeyring()
	for _, s := range parsed {
		var signer txSigner.ISafeTxSigner
		switch s.Backend {
		case "pk":
			signer, err = txSigner.NewPrivateKeySigner(s.Secret)
		case "kms":
			signer, err = txSigner.NewAWSKMSSigner(s.Secret, region)
		case "sm":
			signer, err = txSigner.NewAWSSMSigner(&txSigner.AWSSMSignerConfig{
				Region:     region,
				SecretName: s.Secret,
				Passphrase: passphrase,
			}, l)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create signer %q: %w", s.KeyID, err)
		}
		if err := kr.Add(s.KeyID, signer); err != nil {
			return nil, err
		}
	}
	return kr, nil
}
