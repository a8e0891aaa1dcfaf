// Package hexutil enforces the hex-string discipline required of every
// hash, address, and data field before it is persisted: lowercase,
// 0x-prefixed, exact length for fixed-size fields, even-length for
// arbitrary data. It also carries the exact wei/ether conversion helpers.
package hexutil

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// HashLen is the length of a 0x-prefixed 32-byte hash string.
	HashLen = 66
	// AddressLen is the length of a 0x-prefixed 20-byte address string.
	AddressLen = 42
)

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// validateHex lowercases v and checks it is 0x-prefixed hex. When wantLen
// is non-zero the total string length (including the 0x prefix) must match
// exactly; otherwise the hex body must have even length.
func validateHex(v string, wantLen int) (string, error) {
	if !strings.HasPrefix(v, "0x") && !strings.HasPrefix(v, "0X") {
		return "", fmt.Errorf("hexutil: %q must start with 0x", v)
	}

	if wantLen != 0 && len(v) != wantLen {
		return "", fmt.Errorf("hexutil: %q must be %d characters long", v, wantLen)
	}

	body := v[2:]
	if wantLen == 0 && len(body)%2 != 0 {
		return "", fmt.Errorf("hexutil: %q has odd-length hex body", v)
	}

	for i := 0; i < len(body); i++ {
		if !isHexDigit(body[i]) {
			return "", fmt.Errorf("hexutil: %q contains invalid hex character %q", v, body[i])
		}
	}

	return "0x" + strings.ToLower(body), nil
}

// ValidateHash validates and lowercases a 32-byte hex hash.
func ValidateHash(v string) (string, error) {
	return validateHex(v, HashLen)
}

// ValidateAddress validates and lowercases a 20-byte hex address.
func ValidateAddress(v string) (string, error) {
	return validateHex(v, AddressLen)
}

// ValidateData validates and lowercases an arbitrary-length, even hex blob.
func ValidateData(v string) (string, error) {
	return validateHex(v, 0)
}

// weiPerEther is 10^18, the fixed-point scale between wei and ether.
var weiPerEther = big.NewInt(1_000_000_000_000_000_000)

// WeiToEther converts an exact wei amount to an exact ether value.
// big.Rat carries arbitrary precision so the conversion never loses bits,
// unlike a float64 rendering would.
func WeiToEther(wei *big.Int) *big.Rat {
	return new(big.Rat).SetFrac(wei, weiPerEther)
}

// EtherToWei converts an ether value back to an exact integer wei amount.
// It returns an error if ether does not represent a whole number of wei
// (more than 18 fractional decimal digits of precision).
func EtherToWei(ether *big.Rat) (*big.Int, error) {
	scaled := new(big.Rat).Mul(ether, new(big.Rat).SetInt(weiPerEther))
	if !scaled.IsInt() {
		return nil, fmt.Errorf("hexutil: %s ether is not a whole number of wei", ether.RatString())
	}
	return scaled.Num(), nil
}
