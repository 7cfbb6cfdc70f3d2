package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/address"
)

// EncodeAddress writes a. Identity fields are omitted for snapshots.
func EncodeAddress(e *jx.Encoder, a address.Address) {
	e.ObjStart()
	if a.ID != "" {
		e.FieldStart("id")
		e.Str(a.ID)
		e.FieldStart("isDefault")
		e.Bool(a.IsDefault)
	}
	for _, f := range []struct{ key, value string }{
		{"fullName", a.FullName},
		{"address1", a.Address1},
		{"address2", a.Address2},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
		{"phoneNumber", a.PhoneNumber},
	} {
		if f.value == "" {
			continue
		}
		e.FieldStart(f.key)
		e.Str(f.value)
	}
	e.ObjEnd()
}

// EncodeAddresses writes a JSON array of addresses.
func EncodeAddresses(list []address.Address) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, a := range list {
		EncodeAddress(&e, a)
	}
	e.ArrEnd()
	return e.Bytes()
}

// DecodeAddress reads a single address object from data.
func DecodeAddress(data []byte) (address.Address, error) {
	return readAddress(jx.DecodeBytes(data))
}

// DecodeAddresses reads a JSON array of addresses.
func DecodeAddresses(data []byte) ([]address.Address, error) {
	var out []address.Address
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		a, err := readAddress(d)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

func readAddress(d *jx.Decoder) (address.Address, error) {
	var a address.Address
	err := readObj(d, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			a.ID, err = readStr(d)
		case "isDefault":
			a.IsDefault, err = d.Bool()
		case "fullName":
			a.FullName, err = readStr(d)
		case "address1":
			a.Address1, err = readStr(d)
		case "address2":
			a.Address2, err = readStr(d)
		case "city":
			a.City, err = readStr(d)
		case "state":
			a.State, err = readStr(d)
		case "postalCode":
			a.PostalCode, err = readStr(d)
		case "country":
			a.Country, err = readStr(d)
		case "phoneNumber":
			a.PhoneNumber, err = readStr(d)
		default:
			return d.Skip()
		}
		return err
	})
	return a, err
}
