package db

import (
	"database/sql"
	"fmt"
	"math/big"

	"github.com/russross/meddler"
)

func init() {
	meddler.Register("bigint", BigIntMeddler{})
}

// BigIntMeddler stores a *big.Int as a decimal TEXT column, widening the
// 64-bit columns a naive port of the EVM types would use. value,
// total_difficulty and friends do not fit in 64 bits in general.
type BigIntMeddler struct{}

func (b BigIntMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(sql.NullString), nil
}

func (b BigIntMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	ns, ok := scanTarget.(*sql.NullString)
	if !ok {
		return fmt.Errorf("meddler_bigint: expected *sql.NullString, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(**big.Int)
	if !ok {
		return fmt.Errorf("meddler_bigint: expected **big.Int, got %T", fieldAddr)
	}

	if !ns.Valid {
		*ptr = nil
		return nil
	}

	n, ok := new(big.Int).SetString(ns.String, 10)
	if !ok {
		return fmt.Errorf("meddler_bigint: invalid decimal string %q", ns.String)
	}
	*ptr = n

	return nil
}

func (b BigIntMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	n, ok := field.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("meddler_bigint: expected *big.Int, got %T", field)
	}

	if n == nil {
		return nil, nil
	}

	if n.Sign() < 0 {
		return nil, fmt.Errorf("meddler_bigint: negative value %s is not representable", n.String())
	}

	return n.String(), nil
}
