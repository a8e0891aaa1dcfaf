package sync

import (
	"testing"

	"github.com/nyx-chain/evmsync/pkg/chain"
	"github.com/stretchr/testify/require"
)

// TestConvertLogsDropsMalformedEntryKeepsValid is spec §8 scenario 5: a
// block's logs include one well-formed entry and one whose topic is 63 hex
// characters (one short of a 32-byte hash). The malformed log is dropped;
// the valid one survives.
func TestConvertLogsDropsMalformedEntryKeepsValid(t *testing.T) {
	valid := chain.RawLog{
		Address:         "0x1111111111111111111111111111111111111111",
		Topics:          []string{"0x" + repeatHex("a", 64)},
		Data:            "0x",
		BlockNumber:     "0x64",
		TransactionHash: "0x" + repeatHex("b", 64),
		LogIndex:        "0x0",
		BlockHash:       "0x" + repeatHex("c", 64),
	}

	malformed := chain.RawLog{
		Address:         "0x1111111111111111111111111111111111111111",
		Topics:          []string{"0x" + repeatHex("a", 63)}, // one short of 32 bytes
		Data:            "0x",
		BlockNumber:     "0x64",
		TransactionHash: "0x" + repeatHex("d", 64),
		LogIndex:        "0x1",
		BlockHash:       "0x" + repeatHex("c", 64),
	}

	logs := convertLogs(100, []chain.RawLog{valid, malformed})

	require.Len(t, logs, 1)
	require.Equal(t, uint32(0), logs[0].LogIndex)
}

// TestConvertLogsDropsStaleHeight drops a log whose blockNumber disagrees
// with the height being fetched, the same way a stale response from a
// prior range filter would be discarded.
func TestConvertLogsDropsStaleHeight(t *testing.T) {
	stale := chain.RawLog{
		Address:         "0x1111111111111111111111111111111111111111",
		Topics:          []string{"0x" + repeatHex("a", 64)},
		Data:            "0x",
		BlockNumber:     "0x63",
		TransactionHash: "0x" + repeatHex("b", 64),
		LogIndex:        "0x0",
		BlockHash:       "0x" + repeatHex("c", 64),
	}

	logs := convertLogs(100, []chain.RawLog{stale})

	require.Empty(t, logs)
}

func repeatHex(c string, n int) string {
	out := make([]byte, 0, n*len(c))
	for i := 0; i < n; i++ {
		out = append(out, c...)
	}
	return string(out)
}
