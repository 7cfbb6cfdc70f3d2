package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/contact"
)

// EncodeContact writes c as {"name":...,"email":...}.
func EncodeContact(c *contact.Contact) []byte {
	var e jx.Encoder
	e.ObjStart()
	if c.Name != "" {
		e.FieldStart("name")
		e.Str(c.Name)
	}
	e.FieldStart("email")
	e.Str(c.Email)
	e.ObjEnd()
	return e.Bytes()
}

// DecodeContact reads a contact object from data.
func DecodeContact(data []byte) (contact.Contact, error) {
	var c contact.Contact
	err := readObj(jx.DecodeBytes(data), func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			c.Name, err = readStr(d)
		case "email":
			c.Email, err = readStr(d)
		default:
			return d.Skip()
		}
		return err
	})
	return c, err
}
