// Package decoder turns a persisted ERC-20 Transfer log back into its
// typed event. It is a pure function over a single already-validated log
// and is never on the sync pipeline's write path; the API calls it
// on-read for optional log inspection.
package decoder

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/nyx-chain/evmsync/internal/model"
)

// erc20TransferABI describes the canonical Transfer(address,address,uint256)
// event. Only the single event this package decodes is declared.
const erc20TransferABI = `[{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}]`

var transferEvent struct {
	parsed abi.ABI
	id     common.Hash
}

func init() {
	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		panic(fmt.Sprintf("decoder: invalid embedded ABI: %v", err))
	}
	transferEvent.parsed = parsed
	transferEvent.id = parsed.Events["Transfer"].ID
}

// Transfer is a decoded ERC-20 Transfer event.
type Transfer struct {
	FromAddress     common.Address
	ToAddress       common.Address
	Value           *big.Int
	TransactionHash common.Hash
	BlockNumber     uint64
	LogIndex        uint32
}

// DecodeTransfer decodes log as an ERC-20 Transfer event. It returns
// (nil, nil) when log's first topic does not match the Transfer event
// signature: that is the expected case for the overwhelming majority of
// logs, not an error. A log carrying the Transfer signature but a
// malformed indexed-topic or data encoding is reported as an error since
// a sender that announced "this is a Transfer" and got the shape wrong is
// assumed to have deliberately malformed data rather than just some other
// event colliding on the topic hash.
func DecodeTransfer(log *model.Log) (*Transfer, error) {
	if log == nil || len(log.Topics) == 0 {
		return nil, nil
	}
	if log.Topics[0] != transferEvent.id {
		return nil, nil
	}
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("decoder: transfer log at index %d has %d topics, want 3", log.LogIndex, len(log.Topics))
	}

	var unpacked struct {
		Value *big.Int
	}
	data, err := hexutil.Decode(log.Data)
	if err != nil {
		return nil, fmt.Errorf("decoder: transfer log at index %d: %w", log.LogIndex, err)
	}
	if err := transferEvent.parsed.UnpackIntoInterface(&unpacked, "Transfer", data); err != nil {
		return nil, fmt.Errorf("decoder: transfer log at index %d: unpack value: %w", log.LogIndex, err)
	}

	return &Transfer{
		FromAddress:     common.BytesToAddress(log.Topics[1].Bytes()),
		ToAddress:       common.BytesToAddress(log.Topics[2].Bytes()),
		Value:           unpacked.Value,
		TransactionHash: log.TransactionHash,
		BlockNumber:     log.BlockNumber,
		LogIndex:        log.LogIndex,
	}, nil
}
