package db

import (
	"fmt"
	"time"

	"github.com/russross/meddler"
)

func init() {
	meddler.Register("unixtime", UnixTimeMeddler{})
}

// UnixTimeMeddler stores a time.Time as an INTEGER column holding unix
// seconds, matching a block header's wall-clock timestamp field.
type UnixTimeMeddler struct{}

func (u UnixTimeMeddler) PreRead(fieldAddr interface{}) (scanTarget interface{}, err error) {
	return new(int64), nil
}

func (u UnixTimeMeddler) PostRead(fieldAddr, scanTarget interface{}) error {
	secs, ok := scanTarget.(*int64)
	if !ok {
		return fmt.Errorf("meddler_unixtime: expected *int64, got %T", scanTarget)
	}

	ptr, ok := fieldAddr.(*time.Time)
	if !ok {
		return fmt.Errorf("meddler_unixtime: expected *time.Time, got %T", fieldAddr)
	}

	*ptr = time.Unix(*secs, 0).UTC()
	return nil
}

func (u UnixTimeMeddler) PreWrite(field interface{}) (saveValue interface{}, err error) {
	t, ok := field.(time.Time)
	if !ok {
		return nil, fmt.Errorf("meddler_unixtime: expected time.Time, got %T", field)
	}

	return t.Unix(), nil
}
