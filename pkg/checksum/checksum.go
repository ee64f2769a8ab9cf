// Package checksum formats raw bytes and 20-byte account references into the
// hex strings expected by Safe contracts and the Safe Transaction Service.
// Hashes and signatures are computed over exactly these strings, so the output
// must be byte-identical to what the rest of the ecosystem produces.
package checksum

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrMalformedAddress is returned when a string is not a 20-byte hex address.
	ErrMalformedAddress = errors.New("malformed address")
	// ErrBadChecksum is returned when a mixed-case address does not match its own checksum.
	ErrBadChecksum = errors.New("address checksum mismatch")
)

const hexAlphabet = "0123456789abcdef"

// FormatHex returns the 0x-prefixed lowercase hex encoding of b.
// An empty slice yields "0x".
func FormatHex(b []byte) string {
	return hexutil.Encode(b)
}

// ChecksumAddress returns the 40 mixed-case hex digits of a (no 0x prefix)
// following EIP-55: the lowercase hex string is hashed with keccak256 and
// letter digit i is upper-cased when hash nibble i is greater than 7.
func ChecksumAddress(a common.Address) string {
	lower := make([]byte, 2*common.AddressLength)
	for i, b := range a {
		lower[2*i] = hexAlphabet[b>>4]
		lower[2*i+1] = hexAlphabet[b&0x0f]
	}

	hash := crypto.Keccak256(lower)
	out := make([]byte, len(lower))
	for i, c := range lower {
		// even i reads the high nibble of hash[i/2], odd i the low nibble
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		} else {
			nibble &= 0x0f
		}
		if c >= 'a' && c <= 'f' && nibble > 7 {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// FormatAddress returns the 0x-prefixed checksummed form of a.
func FormatAddress(a common.Address) string {
	return "0x" + ChecksumAddress(a)
}

// ParseAddress parses a 20-byte hex address with an optional 0x prefix.
// All-lowercase and all-uppercase inputs are accepted as-is; mixed-case input
// must carry a valid checksum.
func ParseAddress(s string) (common.Address, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: %q has %d hex digits, want %d", ErrMalformedAddress, s, len(raw), 2*common.AddressLength)
	}
	b, err := hexutil.Decode("0x" + raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %q: %v", ErrMalformedAddress, s, err)
	}
	addr := common.BytesToAddress(b)

	if raw != strings.ToLower(raw) && raw != strings.ToUpper(raw) && raw != ChecksumAddress(addr) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrBadChecksum, s)
	}
	return addr, nil
}
