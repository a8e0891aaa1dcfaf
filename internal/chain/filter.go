package chain

import "fmt"

// rawLogFilter is eth_getLogs' single positional parameter: a range filter
// expressed in the hex-string encoding the RPC wire format requires. It
// never constrains addresses or topics: the decoder stage filters by event
// signature after ingest.
type rawLogFilter struct {
	FromBlock string `json:"fromBlock"`
	ToBlock   string `json:"toBlock"`
}

func ethGetLogsFilter(fromHeight, toHeight uint64) rawLogFilter {
	return rawLogFilter{
		FromBlock: fmt.Sprintf("0x%x", fromHeight),
		ToBlock:   fmt.Sprintf("0x%x", toHeight),
	}
}
