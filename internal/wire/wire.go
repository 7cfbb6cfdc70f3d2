// Package wire is the JSON representation of the storefront HTTP API,
// shared by the server handlers and the Go client. Money is written as a
// number with exactly two decimals.
package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ContentType of every request and response body.
const ContentType = "application/json"

// UserIDHeader carries the authenticated user, set by the auth collaborator
// in front of the API.
const UserIDHeader = "X-User-ID"

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "api_key"

func writeMoney(e *jx.Encoder, d decimal.Decimal) {
	e.RawStr(d.StringFixed(2))
}

func writePercent(e *jx.Encoder, d decimal.Decimal) {
	e.RawStr(d.String())
}

func writeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(string(n))
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		return decimal.Zero, errors.Errorf("unexpected %s", d.Next())
	}
}

func readTime(d *jx.Decoder) (time.Time, error) {
	s, err := readStr(d)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339Nano, s)
}

// readStr reads a string, accepting null as "".
func readStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// readObj decodes an object field by field, wrapping errors with the key.
func readObj(d *jx.Decoder, f func(d *jx.Decoder, key string) error) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if err := f(d, key); err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}
