// Package multisend implements the packed sub-transaction format consumed by
// the Safe MultiSend library contract, and the concatenated batches built
// from it.
//
// A single sub-transaction is laid out as
//
//	operation (1) || to (20) || value (32) || dataLength (32) || data (dataLength)
//
// with every integer big-endian. Batches are plain concatenations; the
// embedded lengths make them self-describing.
package multisend

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Layr-Labs/safe-proposer-go/pkg/checksum"
	"github.com/Layr-Labs/safe-proposer-go/pkg/util"
)

// Operation is the execution mode of a Safe transaction or sub-transaction.
type Operation uint8

const (
	Call         Operation = 0
	DelegateCall Operation = 1
)

func (o Operation) String() string {
	switch o {
	case Call:
		return "Call"
	case DelegateCall:
		return "DelegateCall"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(o))
	}
}

const (
	operationSize = 1
	targetSize    = common.AddressLength
	wordSize      = 32
	headerSize    = operationSize + targetSize + wordSize + wordSize
)

var (
	// ErrMalformedInput is returned when a field cannot be represented in the packed layout.
	ErrMalformedInput = errors.New("malformed sub-transaction input")
	// ErrTruncated is returned when a batch ends in the middle of a sub-transaction.
	ErrTruncated = errors.New("truncated sub-transaction")
)

// EncodedSubTransaction is one packed sub-transaction.
type EncodedSubTransaction []byte

// Batch is an ordered concatenation of encoded sub-transactions.
// The zero value is a valid, empty batch.
type Batch []byte

// SubTransaction is the decoded form of an EncodedSubTransaction.
type SubTransaction struct {
	Operation Operation
	To        common.Address
	Value     *big.Int
	Data      []byte
}

func (s SubTransaction) String() string {
	return fmt.Sprintf("%s to=%s value=%s data=%s",
		s.Operation, checksum.FormatAddress(s.To), s.Value.String(), checksum.FormatHex(s.Data))
}

// EncodeCall packs a plain call of payload on target, transferring value wei.
func EncodeCall(target common.Address, value *big.Int, payload []byte) (EncodedSubTransaction, error) {
	return Encode(Call, target, value, payload)
}

// EncodeDelegateCall packs a delegate call of payload on target. Delegate
// calls never carry value.
func EncodeDelegateCall(target common.Address, payload []byte) (EncodedSubTransaction, error) {
	return Encode(DelegateCall, target, nil, payload)
}

// Encode packs a sub-transaction. A nil value is encoded as zero.
func Encode(op Operation, target common.Address, value *big.Int, payload []byte) (EncodedSubTransaction, error) {
	if op != Call && op != DelegateCall {
		return nil, fmt.Errorf("%w: unknown operation %d", ErrMalformedInput, uint8(op))
	}
	if value == nil {
		value = new(big.Int)
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %s", ErrMalformedInput, value)
	}
	if value.BitLen() > 256 {
		return nil, fmt.Errorf("%w: value %s does not fit in 256 bits", ErrMalformedInput, value)
	}

	out := make([]byte, headerSize+len(payload))
	out[0] = byte(op)
	copy(out[operationSize:], target[:])
	value.FillBytes(out[operationSize+targetSize : operationSize+targetSize+wordSize])
	new(big.Int).SetUint64(uint64(len(payload))).FillBytes(out[operationSize+targetSize+wordSize : headerSize])
	copy(out[headerSize:], payload)
	return out, nil
}

// Append returns batch with subTx added at the end. Contents are not inspected.
func Append(batch Batch, subTx EncodedSubTransaction) Batch {
	out := make(Batch, 0, len(batch)+len(subTx))
	out = append(out, batch...)
	return append(out, subTx...)
}

// Concat builds a batch from the sub-transactions in execution order.
func Concat(subTxs ...EncodedSubTransaction) Batch {
	var batch Batch
	for _, tx := range subTxs {
		batch = Append(batch, tx)
	}
	return batch
}

// Decode parses one sub-transaction from the front of b and returns the
// number of bytes consumed.
func Decode(b []byte) (SubTransaction, int, error) {
	if len(b) < headerSize {
		return SubTransaction{}, 0, fmt.Errorf("%w: %d bytes left, header needs %d", ErrTruncated, len(b), headerSize)
	}
	length := new(big.Int).SetBytes(b[operationSize+targetSize+wordSize : headerSize])
	if !length.IsUint64() || length.Uint64() > uint64(len(b)-headerSize) {
		return SubTransaction{}, 0, fmt.Errorf("%w: data length %s exceeds remaining %d bytes", ErrTruncated, length, len(b)-headerSize)
	}
	end := headerSize + int(length.Uint64())

	return SubTransaction{
		Operation: Operation(b[0]),
		To:        common.BytesToAddress(b[operationSize : operationSize+targetSize]),
		Value:     new(big.Int).SetBytes(b[operationSize+targetSize : operationSize+targetSize+wordSize]),
		Data:      common.CopyBytes(b[headerSize:end]),
	}, end, nil
}

// DecodeBatch splits a batch back into its sub-transactions.
func DecodeBatch(batch Batch) ([]SubTransaction, error) {
	var out []SubTransaction
	for offset := 0; offset < len(batch); {
		tx, n, err := Decode(batch[offset:])
		if err != nil {
			return nil, fmt.Errorf("failed to decode sub-transaction %d at offset %d: %w", len(out), offset, err)
		}
		out = append(out, tx)
		offset += n
	}
	return out, nil
}

const multiSendABI = `[{"type":"function","name":"multiSend","stateMutability":"payable","inputs":[{"name":"transactions","type":"bytes"}],"outputs":[]}]`

var multiSendContract = util.MustParseABI(multiSendABI)

// EncodeMultiSend returns the calldata of multiSend(bytes transactions) over batch.
func EncodeMultiSend(batch Batch) ([]byte, error) {
	data, err := multiSendContract.Pack("multiSend", []byte(batch))
	if err != nil {
		return nil, fmt.Errorf("failed to pack multiSend calldata: %w", err)
	}
	return data, nil
}

// DecodeMultiSend extracts the batch from multiSend calldata.
func DecodeMultiSend(data []byte) (Batch, error) {
	method, ok := multiSendContract.Methods["multiSend"]
	if !ok || len(data) < 4 || string(data[:4]) != string(method.ID) {
		return nil, fmt.Errorf("%w: not a multiSend call", ErrMalformedInput)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("failed to unpack multiSend calldata: %w", err)
	}
	return Batch(args[0].([]byte)), nil
}
