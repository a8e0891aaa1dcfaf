package db

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("topics", TopicsMeddler{})
}

// TopicsMeddler stores a log's ordered topic list as a JSON array of
// lowercase 0x-prefixed hex strings in a single TEXT column.
type TopicsMeddler struct{}

func (t TopicsMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new([]byte), nil
}

func (t TopicsMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	raw, ok := scanTarget.(*[]byte)
	if !ok {
		return fmt.Errorf("meddler_topics: expected *[]byte, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(*[]common.Hash)
	if !ok {
		return fmt.Errorf("meddler_topics: expected *[]common.Hash, got %T", fieldAddr)
	}

	if len(*raw) == 0 {
		*ptr = nil
		return nil
	}

	var hexTopics []string
	if err := json.Unmarshal(*raw, &hexTopics); err != nil {
		return fmt.Errorf("meddler_topics: invalid JSON array %q: %w", *raw, err)
	}

	topics := make([]common.Hash, len(hexTopics))
	for i, h := range hexTopics {
		topics[i] = common.HexToHash(h)
	}
	*ptr = topics

	return nil
}

func (t TopicsMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	topics, ok := field.([]common.Hash)
	if !ok {
		return nil, fmt.Errorf("meddler_topics: expected []common.Hash, got %T", field)
	}

	hexTopics := make([]string, len(topics))
	for i, h := range topics {
		hexTopics[i] = h.Hex()
	}

	encoded, err := json.Marshal(hexTopics)
	if err != nil {
		return nil, fmt.Errorf("meddler_topics: marshal failed: %w", err)
	}

	return string(encoded), nil
}
