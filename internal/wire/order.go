package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// EncodePlaceOrderRequest writes the body of POST /api/orders. The user
// identity travels in UserIDHeader, not in the body.
func EncodePlaceOrderRequest(req order.PlaceOrderRequest) []byte {
	var e jx.Encoder
	e.ObjStart()

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range req.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		if it.Size != "" {
			e.FieldStart("size")
			e.Str(it.Size)
		}
		e.ObjEnd()
	}
	e.ArrEnd()

	if g := req.Customer.Guest; g != nil {
		e.FieldStart("guest")
		e.ObjStart()
		e.FieldStart("name")
		e.Str(g.Name)
		e.FieldStart("email")
		e.Str(g.Email)
		if g.Phone != "" {
			e.FieldStart("phone")
			e.Str(g.Phone)
		}
		e.ObjEnd()
	}

	e.FieldStart("shipping")
	e.ObjStart()
	if req.Shipping.AddressID != "" {
		e.FieldStart("addressId")
		e.Str(req.Shipping.AddressID)
	}
	if req.Shipping.Address != nil {
		e.FieldStart("address")
		EncodeAddress(&e, *req.Shipping.Address)
	}
	e.ObjEnd()

	e.FieldStart("paymentReference")
	e.Str(req.PaymentReference)

	if req.Quote != nil {
		e.FieldStart("quote")
		encodeTotals(&e, *req.Quote)
	}

	e.ObjEnd()
	return e.Bytes()
}

// DecodePlaceOrderRequest reads the body of POST /api/orders. The caller
// sets Customer.UserID from the request identity.
func DecodePlaceOrderRequest(data []byte) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	err := readObj(jx.DecodeBytes(data), func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				var line order.LineRequest
				if err := readObj(d, func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "productId":
						line.ProductID, err = readStr(d)
					case "quantity":
						line.Quantity, err = d.Int()
					case "size", "selectedSize":
						line.Size, err = readStr(d)
					default:
						return d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				req.Items = append(req.Items, line)
				return nil
			})
		case "guest":
			if d.Next() == jx.Null {
				return d.Null()
			}
			g := &order.Guest{}
			req.Customer.Guest = g
			return readObj(d, func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "name":
					g.Name, err = readStr(d)
				case "email":
					g.Email, err = readStr(d)
				case "phone":
					g.Phone, err = readStr(d)
				default:
					return d.Skip()
				}
				return err
			})
		case "shipping":
			return readObj(d, func(d *jx.Decoder, key string) error {
				switch key {
				case "addressId":
					var err error
					req.Shipping.AddressID, err = readStr(d)
					return err
				case "address":
					if d.Next() == jx.Null {
						return d.Null()
					}
					a, err := readAddress(d)
					if err != nil {
						return err
					}
					req.Shipping.Address = &a
					return nil
				default:
					return d.Skip()
				}
			})
		case "paymentReference":
			var err error
			req.PaymentReference, err = readStr(d)
			return err
		case "quote":
			if d.Next() == jx.Null {
				return d.Null()
			}
			t, err := readTotals(d)
			if err != nil {
				return err
			}
			req.Quote = &t
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return order.PlaceOrderRequest{}, errors.Wrap(err, "decode order request")
	}
	return req, nil
}

func encodeTotals(e *jx.Encoder, t pricing.Totals) {
	e.ObjStart()
	e.FieldStart("subtotal")
	writeMoney(e, t.Subtotal)
	e.FieldStart("shipping")
	writeMoney(e, t.Shipping)
	e.FieldStart("tax")
	writeMoney(e, t.Tax)
	e.FieldStart("total")
	writeMoney(e, t.Total)
	e.ObjEnd()
}

func readTotals(d *jx.Decoder) (pricing.Totals, error) {
	var t pricing.Totals
	err := readObj(d, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "subtotal":
			t.Subtotal, err = readDecimal(d)
		case "shipping":
			t.Shipping, err = readDecimal(d)
		case "tax":
			t.Tax, err = readDecimal(d)
		case "total":
			t.Total, err = readDecimal(d)
		default:
			return d.Skip()
		}
		return err
	})
	return t, err
}

// EncodeConfirmation writes the response of POST /api/orders.
func EncodeConfirmation(o *order.Order) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("total")
	writeMoney(&e, o.Total)
	e.ObjEnd()
	return e.Bytes()
}

// DecodeConfirmation reads the response of POST /api/orders.
func DecodeConfirmation(data []byte) (*checkout.Confirmation, error) {
	var c checkout.Confirmation
	err := readObj(jx.DecodeBytes(data), func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderId":
			c.OrderID, err = readStr(d)
		case "status":
			var s string
			s, err = readStr(d)
			c.Status = order.Status(s)
		case "total":
			c.Total, err = readDecimal(d)
		default:
			return d.Skip()
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode confirmation")
	}
	if c.OrderID == "" {
		return nil, errors.New("decode confirmation: missing orderId")
	}
	return &c, nil
}

// EncodeOrder writes o. When withTransitions is set, the statuses an admin
// may move the order to are included.
func EncodeOrder(e *jx.Encoder, o *order.Order, withTransitions bool) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	if o.TrackingNumber != "" {
		e.FieldStart("trackingNumber")
		e.Str(o.TrackingNumber)
	}

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("unitPrice")
		writeMoney(e, it.UnitPrice)
		if !it.DiscountPercentage.IsZero() {
			e.FieldStart("discountPercentage")
			writePercent(e, it.DiscountPercentage)
		}
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("size")
		if it.Size != "" {
			e.Str(it.Size)
		} else {
			e.Null()
		}
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("subtotal")
	writeMoney(e, o.Subtotal)
	e.FieldStart("shipping")
	writeMoney(e, o.Shipping)
	e.FieldStart("tax")
	writeMoney(e, o.Tax)
	e.FieldStart("total")
	writeMoney(e, o.Total)

	if o.Customer.UserID != "" {
		e.FieldStart("userId")
		e.Str(o.Customer.UserID)
	}
	if g := o.Customer.Guest; g != nil {
		e.FieldStart("guest")
		e.ObjStart()
		e.FieldStart("name")
		e.Str(g.Name)
		e.FieldStart("email")
		e.Str(g.Email)
		if g.Phone != "" {
			e.FieldStart("phone")
			e.Str(g.Phone)
		}
		e.ObjEnd()
	}
	e.FieldStart("shippingAddress")
	EncodeAddress(e, o.ShippingAddress)
	e.FieldStart("paymentReference")
	e.Str(o.PaymentReference)
	e.FieldStart("createdAt")
	writeTime(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	writeTime(e, o.UpdatedAt)

	if withTransitions {
		e.FieldStart("allowedTransitions")
		e.ArrStart()
		for _, s := range o.Status.Allowed() {
			e.Str(string(s))
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// EncodeOrders writes a JSON array of orders.
func EncodeOrders(orders []order.Order, withTransitions bool) []byte {
	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		EncodeOrder(&e, &orders[i], withTransitions)
	}
	e.ArrEnd()
	return e.Bytes()
}

// DecodeOrder reads a single order.
func DecodeOrder(data []byte) (*order.Order, error) {
	o, err := readOrder(jx.DecodeBytes(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &o, nil
}

// DecodeOrders reads a JSON array of orders.
func DecodeOrders(data []byte) ([]order.Order, error) {
	var out []order.Order
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		o, err := readOrder(d)
		if err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode orders")
	}
	return out, nil
}

func readOrder(d *jx.Decoder) (order.Order, error) {
	var o order.Order
	err := readObj(d, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = readStr(d)
		case "status":
			var s string
			s, err = readStr(d)
			o.Status = order.Status(s)
		case "trackingNumber":
			o.TrackingNumber, err = readStr(d)
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				it, err := readOrderItem(d)
				o.Items = append(o.Items, it)
				return err
			})
		case "subtotal":
			o.Subtotal, err = readDecimal(d)
		case "shipping":
			o.Shipping, err = readDecimal(d)
		case "tax":
			o.Tax, err = readDecimal(d)
		case "total":
			o.Total, err = readDecimal(d)
		case "userId":
			o.Customer.UserID, err = readStr(d)
		case "guest":
			g := &order.Guest{}
			o.Customer.Guest = g
			err = readObj(d, func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "name":
					g.Name, err = readStr(d)
				case "email":
					g.Email, err = readStr(d)
				case "phone":
					g.Phone, err = readStr(d)
				default:
					return d.Skip()
				}
				return err
			})
		case "shippingAddress":
			var a address.Address
			a, err = readAddress(d)
			o.ShippingAddress = a
		case "paymentReference":
			o.PaymentReference, err = readStr(d)
		case "createdAt":
			o.CreatedAt, err = readTime(d)
		case "updatedAt":
			o.UpdatedAt, err = readTime(d)
		default:
			return d.Skip()
		}
		return err
	})
	return o, err
}

func readOrderItem(d *jx.Decoder) (order.Item, error) {
	var it order.Item
	err := readObj(d, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			it.ProductID, err = readStr(d)
		case "name":
			it.Name, err = readStr(d)
		case "unitPrice":
			it.UnitPrice, err = readDecimal(d)
		case "discountPercentage":
			it.DiscountPercentage, err = readDecimal(d)
		case "quantity":
			it.Quantity, err = d.Int()
		case "size":
			it.Size, err = readStr(d)
		default:
			return d.Skip()
		}
		return err
	})
	return it, err
}

// EncodeStatusRequest writes the body of PATCH /api/orders/{id}/status.
func EncodeStatusRequest(status order.Status) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("status")
	e.Str(string(status))
	e.ObjEnd()
	return e.Bytes()
}

// DecodeStatusRequest reads the body of PATCH /api/orders/{id}/status.
func DecodeStatusRequest(data []byte) (order.Status, error) {
	s, err := readSingleString(data, "status")
	return order.Status(s), err
}

// EncodeShipRequest writes the body of PATCH /api/orders/{id}/ship.
func EncodeShipRequest(trackingNumber string) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("trackingNumber")
	e.Str(trackingNumber)
	e.ObjEnd()
	return e.Bytes()
}

// DecodeShipRequest reads the body of PATCH /api/orders/{id}/ship.
func DecodeShipRequest(data []byte) (string, error) {
	return readSingleString(data, "trackingNumber")
}

func readSingleString(data []byte, field string) (string, error) {
	var v string
	err := readObj(jx.DecodeBytes(data), func(d *jx.Decoder, key string) error {
		if key != field {
			return d.Skip()
		}
		var err error
		v, err = readStr(d)
		return err
	})
	return v, err
}
