package hexutil

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateHash(t *testing.T) {
	t.Parallel()

	valid := "0x" + "AB" + "00000000000000000000000000000000000000000000000000000000000000"
	got, err := ValidateHash(valid)
	require.NoError(t, err)
	require.Equal(t, "0xab00000000000000000000000000000000000000000000000000000000000000"[:HashLen], got)

	_, err = ValidateHash("0xtooshort")
	require.Error(t, err)

	_, err = ValidateHash("deadbeef")
	require.Error(t, err)
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	valid := "0x" + "AA" + "00000000000000000000000000000000000000"
	got, err := ValidateAddress(valid)
	require.NoError(t, err)
	require.Len(t, got, AddressLen)
	require.Equal(t, got, govLower(got))

	_, err = ValidateAddress("0x1234")
	require.Error(t, err)
}

func govLower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + ('a' - 'A')
		}
	}
	return string(out)
}

func TestValidateData(t *testing.T) {
	t.Parallel()

	got, err := ValidateData("0xDEAD")
	require.NoError(t, err)
	require.Equal(t, "0xdead", got)

	_, err = ValidateData("0xABC")
	require.Error(t, err, "odd-length hex body must be rejected")

	got, err = ValidateData("0x")
	require.NoError(t, err)
	require.Equal(t, "0x", got)
}

func TestWeiEtherRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []string{
		"0",
		"1",
		"1000000000000000000",
		"123456789012345678901234567890",
	}

	for _, c := range cases {
		wei, ok := new(big.Int).SetString(c, 10)
		require.True(t, ok)

		ether := WeiToEther(wei)
		back, err := EtherToWei(ether)
		require.NoError(t, err)
		require.Equal(t, 0, wei.Cmp(back), "round trip mismatch for %s", c)
	}
}

func TestEtherToWeiRejectsFractionalWei(t *testing.T) {
	t.Parallel()

	// 1 wei / 1e18 ether, then ask for half of that: not representable in wei.
	half := new(big.Rat).SetFrac(big.NewInt(1), big.NewInt(2_000_000_000_000_000_000))
	_, err := EtherToWei(half)
	require.Error(t, err)
}
