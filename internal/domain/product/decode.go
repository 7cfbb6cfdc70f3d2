package product

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ErrInvalid is returned when a catalog record cannot be canonicalized.
var ErrInvalid = errors.New("invalid product")

var hundred = decimal.NewFromInt(100)

// Decode parses a single catalog record. Exports from the storefront carry
// several shapes for the same concept, all of which end up in one canonical
// Product:
//
//   - "id" or "_id", as a string or a number
//   - "price" as a number or a numeric string
//   - "sizes" as ["S","M"], [{"size":"S","stock":2}] or {"S":2}
//   - "category" as a name or an object with "name", "id" or "_id"
//   - "image"/"images" as a URL, an array of URLs (first wins) or an object
//     of responsive variants
//
// Sizes listed without a stock figure get zero stock.
func Decode(data []byte) (Product, error) {
	return DecodeFrom(jx.DecodeBytes(data))
}

// DecodeList parses a JSON array of catalog records.
func DecodeList(data []byte) ([]Product, error) {
	var out []Product
	if err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p, err := DecodeFrom(d)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeFrom reads one catalog record from d.
func DecodeFrom(d *jx.Decoder) (Product, error) {
	var (
		p        Product
		hasSizes *bool
		altID    string
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = decodeScalar(d)
		case "_id":
			altID, err = decodeScalar(d)
		case "name":
			p.Name, err = decodeScalar(d)
		case "price":
			p.Price, err = decodeDecimal(d)
		case "stock":
			p.Stock, err = decodeInt(d)
		case "hasSizes":
			var b bool
			if d.Next() == jx.Null {
				return d.Null()
			}
			b, err = d.Bool()
			hasSizes = &b
		case "sizes":
			p.Sizes, err = decodeSizes(d)
		case "category":
			p.Category, err = decodeCategory(d)
		case "discountPercentage":
			p.DiscountPercentage, err = decodeDecimal(d)
		case "image", "images":
			var img string
			img, err = decodeImage(d)
			if p.Image == "" {
				p.Image = img
			}
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return Product{}, errors.Wrap(err, "decode product")
	}

	if p.ID == "" {
		p.ID = altID
	}
	if hasSizes != nil {
		p.HasSizes = *hasSizes
	} else {
		p.HasSizes = len(p.Sizes) > 0
	}
	if !p.HasSizes {
		p.Sizes = nil
	}

	if err := p.Validate(); err != nil {
		return Product{}, err
	}
	return p, nil
}

// Validate checks the canonical invariants of a product.
func (p *Product) Validate() error {
	invalid := func(reason string) error {
		return errors.Wrapf(ErrInvalid, "product %q: %s", p.ID, reason)
	}
	switch {
	case p.ID == "":
		return invalid("id required")
	case p.Name == "":
		return invalid("name required")
	case !p.Price.IsPositive():
		return invalid("price must be positive")
	case p.Stock < 0:
		return invalid("stock must not be negative")
	case p.DiscountPercentage.IsNegative() || p.DiscountPercentage.GreaterThan(hundred):
		return invalid("discount percentage out of range")
	}
	if p.HasSizes && len(p.Sizes) == 0 {
		return invalid("sized product without sizes")
	}
	seen := make(map[string]struct{}, len(p.Sizes))
	for _, s := range p.Sizes {
		if s.Size == "" {
			return invalid("empty size name")
		}
		if s.Stock < 0 {
			return invalid("size " + s.Size + ": stock must not be negative")
		}
		if _, dup := seen[s.Size]; dup {
			return invalid("duplicate size " + s.Size)
		}
		seen[s.Size] = struct{}{}
	}
	return nil
}

func decodeScalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		return string(n), err
	case jx.Null:
		return "", d.Null()
	default:
		return "", errors.Errorf("unexpected %s", d.Next())
	}
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.Null {
		return decimal.Zero, d.Null()
	}
	s, err := decodeScalar(d)
	if err != nil {
		return decimal.Zero, err
	}
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func decodeInt(d *jx.Decoder) (int, error) {
	v, err := decodeDecimal(d)
	if err != nil {
		return 0, err
	}
	if !v.IsInteger() {
		return 0, errors.Errorf("%s is not an integer", v)
	}
	return int(v.IntPart()), nil
}

func decodeSizes(d *jx.Decoder) ([]SizeStock, error) {
	var sizes []SizeStock
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.Object:
		// {"S": 2, "M": 0}
		err := d.Obj(func(d *jx.Decoder, key string) error {
			n, err := decodeInt(d)
			if err != nil {
				return err
			}
			sizes = append(sizes, SizeStock{Size: key, Stock: n})
			return nil
		})
		return sizes, err
	case jx.Array:
		err := d.Arr(func(d *jx.Decoder) error {
			if d.Next() == jx.String {
				name, err := d.Str()
				sizes = append(sizes, SizeStock{Size: name})
				return err
			}
			var s SizeStock
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "size", "name":
					s.Size, err = decodeScalar(d)
				case "stock", "quantity":
					s.Stock, err = decodeInt(d)
				default:
					return d.Skip()
				}
				return err
			}); err != nil {
				return err
			}
			sizes = append(sizes, s)
			return nil
		})
		return sizes, err
	default:
		return nil, errors.Errorf("unexpected %s", d.Next())
	}
}

func decodeCategory(d *jx.Decoder) (string, error) {
	if d.Next() != jx.Object {
		return decodeScalar(d)
	}
	var name, id string
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			name, err = decodeScalar(d)
		case "id", "_id":
			id, err = decodeScalar(d)
		default:
			return d.Skip()
		}
		return err
	})
	if name == "" {
		name = id
	}
	return name, err
}

// imageVariants lists responsive variants in order of preference.
var imageVariants = []string{"thumbnail", "mobile", "tablet", "desktop", "url"}

func decodeImage(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Array:
		var first string
		err := d.Arr(func(d *jx.Decoder) error {
			v, err := decodeImage(d)
			if first == "" {
				first = v
			}
			return err
		})
		return first, err
	case jx.Object:
		variants := make(map[string]string, len(imageVariants))
		err := d.Obj(func(d *jx.Decoder, key string) error {
			if d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			variants[key] = v
			return err
		})
		for _, k := range imageVariants {
			if v := variants[k]; v != "" {
				return v, err
			}
		}
		return "", err
	default:
		return decodeScalar(d)
	}
}
