package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

func init() {
	meddler.Register("address", AddressMeddler{})
}

// AddressMeddler converts between common.Address and the lowercase
// 0x-prefixed hex string stored in the database. go-ethereum's Address.Hex
// returns an EIP-55 checksummed string; the store discipline requires
// lowercase, so it is forced on write.
type AddressMeddler struct{}

func (a AddressMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (a AddressMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("meddler_address: expected *sql.NullString, got %T", scanTarget)
	}

	if ptr, ok := fieldAddr.(**common.Address); ok {
		if !ns.Valid {
			*ptr = nil
			return nil
		}
		address := common.HexToAddress(ns.String)
		*ptr = &address
		return nil
	}

	if ptr, ok := fieldAddr.(*common.Address); ok {
		if !ns.Valid {
			*ptr = common.Address{}
			return nil
		}
		*ptr = common.HexToAddress(ns.String)
		return nil
	}

	return fmt.Errorf("meddler_address: expected *common.Address or **common.Address, got %T", fieldAddr)
}

func (a AddressMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	if ptr, ok := field.(*common.Address); ok {
		if ptr == nil {
			return nil, nil
		}
		return strings.ToLower(ptr.Hex()), nil
	}

	if address, ok := field.(common.Address); ok {
		return strings.ToLower(address.Hex()), nil
	}

	return nil, fmt.Errorf("meddler_address: expected common.Address or *common.Address, got %T", field)
}
