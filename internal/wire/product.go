package wire

import (
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/product"
)

// EncodeProduct writes p in canonical form. Sizes and stock are written
// only for the kind of product they apply to.
func EncodeProduct(e *jx.Encoder, p product.Product, imageBaseURL string) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("price")
	writeMoney(e, p.Price)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("hasSizes")
	e.Bool(p.HasSizes)
	if p.HasSizes {
		e.FieldStart("sizes")
		e.ArrStart()
		for _, s := range p.Sizes {
			e.ObjStart()
			e.FieldStart("size")
			e.Str(s.Size)
			e.FieldStart("stock")
			e.Int(s.Stock)
			e.ObjEnd()
		}
		e.ArrEnd()
	} else {
		e.FieldStart("stock")
		e.Int(p.Stock)
	}
	if !p.DiscountPercentage.IsZero() {
		e.FieldStart("discountPercentage")
		writePercent(e, p.DiscountPercentage)
	}
	if p.Image != "" {
		e.FieldStart("image")
		e.Str(imageBaseURL + p.Image)
	}
	e.ObjEnd()
}

// EncodeProducts writes a JSON array of products.
func EncodeProducts(products []product.Product, imageBaseURL string) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		EncodeProduct(&e, p, imageBaseURL)
	}
	e.ArrEnd()
	return e.Bytes()
}

// DecodeProduct reads a product, accepting every shape the catalog
// normalizer accepts.
func DecodeProduct(data []byte) (product.Product, error) {
	return product.Decode(data)
}

// DecodeProducts reads a JSON array of products.
func DecodeProducts(data []byte) ([]product.Product, error) {
	return product.DecodeList(data)
}
