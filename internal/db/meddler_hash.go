package db

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("hash", HashMeddler{})
}

// HashMeddler converts between common.Hash and the lowercase 0x-prefixed
// hex string stored in the database.
type HashMeddler struct{}

func (h HashMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (h HashMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("meddler_hash: expected *sql.NullString, got %T", scanTarget)
	}

	if ptr, ok := fieldAddr.(**common.Hash); ok {
		if !ns.Valid {
			*ptr = nil
			return nil
		}
		hash := common.HexToHash(ns.String)
		*ptr = &hash
		return nil
	}

	if ptr, ok := fieldAddr.(*common.Hash); ok {
		if !ns.Valid {
			*ptr = common.Hash{}
			return nil
		}
		*ptr = common.HexToHash(ns.String)
		return nil
	}

	return fmt.Errorf("meddler_hash: expected *common.Hash or **common.Hash, got %T", fieldAddr)
}

func (h HashMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	if ptr, ok := field.(*common.Hash); ok {
		if ptr == nil {
			return nil, nil
		}
		return ptr.Hex(), nil
	}

	if hash, ok := field.(common.Hash); ok {
		return hash.Hex(), nil
	}

	return nil, fmt.Errorf("meddler_hash: expected common.Hash or *common.Hash, got %T", field)
}
