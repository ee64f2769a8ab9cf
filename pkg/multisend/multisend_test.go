package multisend

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCall_ExactBytes(t *testing.T) {
	target := common.HexToAddress("0x0000000000000000000000000000000000000001")

	encoded, err := EncodeCall(target, big.NewInt(5), []byte{0xAA, 0xBB})
	require.NoError(t, err)

	want := hexutil.MustDecode("0x" +
		"00" +
		"0000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000005" +
		"0000000000000000000000000000000000000000000000000000000000000002" +
		"aabb")
	assert.Equal(t, want, []byte(encoded))
	assert.Len(t, encoded, 85+2)
}

func TestEncodeCall_DecodesBack(t *testing.T) {
	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	target := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")

	tests := []struct {
		name    string
		value   *big.Int
		payload []byte
	}{
		{name: "empty payload", value: big.NewInt(0), payload: []byte{}},
		{name: "nil value", value: nil, payload: []byte{0x01}},
		{name: "max value", value: maxUint256, payload: make([]byte, 300)},
		{name: "one wei", value: big.NewInt(1), payload: []byte("hello")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeCall(target, tt.value, tt.payload)
			require.NoError(t, err)

			decoded, n, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, len(encoded), n)
			assert.Equal(t, Call, decoded.Operation)
			assert.Equal(t, target, decoded.To)
			wantValue := tt.value
			if wantValue == nil {
				wantValue = big.NewInt(0)
			}
			assert.Equal(t, 0, wantValue.Cmp(decoded.Value))
			assert.Equal(t, len(tt.payload), len(decoded.Data))
			assert.Equal(t, tt.payload, decoded.Data)
		})
	}
}

func TestEncode_RejectsMalformedInput(t *testing.T) {
	target := common.HexToAddress("0x01")
	tooWide := new(big.Int).Lsh(big.NewInt(1), 256)

	_, err := EncodeCall(target, big.NewInt(-1), nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = EncodeCall(target, tooWide, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)

	_, err = Encode(Operation(2), target, nil, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestEncodeDelegateCall(t *testing.T) {
	target := common.HexToAddress("0x9b35Af71d77eaf8d7e40252370304687390A1A52")
	encoded, err := EncodeDelegateCall(target, []byte{0x01, 0x02})
	require.NoError(t, err)

	decoded, _, err := Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, DelegateCall, decoded.Operation)
	assert.Equal(t, target, decoded.To)
	assert.Zero(t, decoded.Value.Sign())
}

func TestAppend_IsAssociative(t *testing.T) {
	x, err := EncodeCall(common.HexToAddress("0x01"), big.NewInt(1), []byte{0x01})
	require.NoError(t, err)
	y, err := EncodeCall(common.HexToAddress("0x02"), big.NewInt(2), []byte{0x02, 0x03})
	require.NoError(t, err)
	z, err := EncodeDelegateCall(common.HexToAddress("0x03"), nil)
	require.NoError(t, err)

	left := Append(Append(Append(nil, x), y), z)
	right := append(append(Batch{}, x...), Append(Append(nil, y), z)...)
	assert.Equal(t, []byte(left), []byte(right))
	assert.Equal(t, []byte(left), []byte(Concat(x, y, z)))

	decoded, err := DecodeBatch(left)
	require.NoError(t, err)
	require.Len(t, decoded, 3)
	assert.Equal(t, common.HexToAddress("0x01"), decoded[0].To)
	assert.Equal(t, common.HexToAddress("0x02"), decoded[1].To)
	assert.Equal(t, DelegateCall, decoded[2].Operation)
}

func TestAppend_DoesNotAliasInput(t *testing.T) {
	x, err := EncodeCall(common.HexToAddress("0x01"), nil, nil)
	require.NoError(t, err)

	base := make(Batch, 0, 1024)
	a := Append(base, x)
	b := Append(base, EncodedSubTransaction{0xff})
	assert.NotEqual(t, a[0], b[0])
}

func TestEmptyBatch(t *testing.T) {
	decoded, err := DecodeBatch(nil)
	require.NoError(t, err)
	assert.Empty(t, decoded)
	assert.Empty(t, Concat())
}

func TestDecodeBatch_Truncated(t *testing.T) {
	x, err := EncodeCall(common.HexToAddress("0x01"), nil, []byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	_, err = DecodeBatch(Batch(x[:len(x)-1]))
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = DecodeBatch(Batch(x[:10]))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestEncodeMultiSend(t *testing.T) {
	x, err := EncodeCall(common.HexToAddress("0x01"), big.NewInt(7), []byte{0xAA})
	require.NoError(t, err)
	batch := Concat(x)

	data, err := EncodeMultiSend(batch)
	require.NoError(t, err)
	assert.Equal(t, "0x8d80ff0a", hexutil.Encode(data[:4]))

	roundTripped, err := DecodeMultiSend(data)
	require.NoError(t, err)
	assert.Equal(t, []byte(batch), []byte(roundTripped))

	_, err = DecodeMultiSend([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestSubTransactionString(t *testing.T) {
	s := SubTransaction{
		Operation: Call,
		To:        common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
		Value:     big.NewInt(5),
		Data:      []byte{0xaa},
	}
	assert.Equal(t, "Call to=0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed value=5 data=0xaa", s.String())
}
