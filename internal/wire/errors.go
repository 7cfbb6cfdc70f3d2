package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/validation"
)

// Error is the body of every non-2xx response. Optional fields identify the
// offending product, transition or input fields.
type Error struct {
	Code    int
	Message string

	ProductID string
	Size      string
	Requested int
	Available int

	From string
	To   string

	Fields []validation.FieldError
}

// EncodeError writes err.
func EncodeError(err Error) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(err.Code)
	e.FieldStart("message")
	e.Str(err.Message)
	if err.ProductID != "" {
		e.FieldStart("productId")
		e.Str(err.ProductID)
		if err.Size != "" {
			e.FieldStart("size")
			e.Str(err.Size)
		}
		if err.Requested > 0 {
			e.FieldStart("requested")
			e.Int(err.Requested)
			e.FieldStart("available")
			e.Int(err.Available)
		}
	}
	if err.From != "" {
		e.FieldStart("from")
		e.Str(err.From)
		e.FieldStart("to")
		e.Str(err.To)
	}
	if len(err.Fields) > 0 {
		e.FieldStart("fields")
		e.ArrStart()
		for _, f := range err.Fields {
			e.ObjStart()
			e.FieldStart("field")
			e.Str(f.Field)
			e.FieldStart("message")
			e.Str(f.Message)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
	return e.Bytes()
}

// DecodeError reads an error body.
func DecodeError(data []byte) (Error, error) {
	var out Error
	err := readObj(jx.DecodeBytes(data), func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			out.Code, err = d.Int()
		case "message":
			out.Message, err = readStr(d)
		case "productId":
			out.ProductID, err = readStr(d)
		case "size":
			out.Size, err = readStr(d)
		case "requested":
			out.Requested, err = d.Int()
		case "available":
			out.Available, err = d.Int()
		case "from":
			out.From, err = readStr(d)
		case "to":
			out.To, err = readStr(d)
		case "fields":
			err = d.Arr(func(d *jx.Decoder) error {
				var f validation.FieldError
				if err := readObj(d, func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "field":
						f.Field, err = readStr(d)
					case "message":
						f.Message, err = readStr(d)
					default:
						return d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				out.Fields = append(out.Fields, f)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return Error{}, errors.Wrap(err, "decode error body")
	}
	return out, nil
}
