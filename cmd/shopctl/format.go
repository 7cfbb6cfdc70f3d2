package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xenking/storefront/internal/client"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/contact"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
	"github.com/xenking/storefront/internal/domain/validation"
)

// money formats amounts in one currency for one locale.
type money struct {
	unit    currency.Unit
	printer *message.Printer
}

func newMoney(code, lang string) (*money, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, errors.Wrapf(err, "parse currency %q", code)
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, errors.Wrapf(err, "parse language %q", lang)
	}
	return &money{unit: unit, printer: message.NewPrinter(tag)}, nil
}

// Format renders d rounded to cents with the currency symbol.
func (m *money) Format(d decimal.Decimal) string {
	v := d.Round(2).InexactFloat64()
	return m.printer.Sprint(currency.Symbol(m.unit.Amount(v)))
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printProducts(w io.Writer, m *money, products []product.Product) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK")
	for i := range products {
		p := &products[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Category, priceLabel(m, p), stockLabel(p))
	}
	return tw.Flush()
}

func printProduct(w io.Writer, m *money, p *product.Product) {
	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.ID)
	if p.Category != "" {
		fmt.Fprintf(w, "Category: %s\n", p.Category)
	}
	fmt.Fprintf(w, "Price:    %s\n", priceLabel(m, p))
	if !p.HasSizes {
		fmt.Fprintf(w, "Stock:    %d\n", p.Stock)
		return
	}
	fmt.Fprintln(w, "Sizes:")
	for _, s := range p.Sizes {
		fmt.Fprintf(w, "  %-6s %d in stock\n", s.Size, s.Stock)
	}
}

func priceLabel(m *money, p *product.Product) string {
	if p.DiscountPercentage.IsZero() {
		return m.Format(p.Price)
	}
	l := pricing.Line{UnitPrice: p.Price, Quantity: 1, DiscountPercentage: p.DiscountPercentage}
	return fmt.Sprintf("%s (-%s%%, was %s)", m.Format(l.Effective()), p.DiscountPercentage, m.Format(p.Price))
}

func stockLabel(p *product.Product) string {
	if !p.HasSizes {
		return fmt.Sprint(p.Stock)
	}
	parts := make([]string, len(p.Sizes))
	for i, s := range p.Sizes {
		parts[i] = fmt.Sprintf("%s:%d", s.Size, s.Stock)
	}
	return strings.Join(parts, " ")
}

func printTotals(w io.Writer, m *money, t pricing.Totals) {
	t = t.Rounded()
	fmt.Fprintf(w, "Subtotal: %s\n", m.Format(t.Subtotal))
	shipping := m.Format(t.Shipping)
	if t.Shipping.IsZero() {
		shipping = "free"
	}
	fmt.Fprintf(w, "Shipping: %s\n", shipping)
	fmt.Fprintf(w, "Tax:      %s\n", m.Format(t.Tax))
	fmt.Fprintf(w, "Total:    %s\n", m.Format(t.Total))
}

func printOrders(w io.Writer, m *money, orders []order.Order) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPLACED\tSTATUS\tITEMS\tTOTAL")
	for i := range orders {
		o := &orders[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			o.ID, o.CreatedAt.Format("2006-01-02 15:04"), o.Status, len(o.Items), m.Format(o.Total))
	}
	return tw.Flush()
}

func printOrder(w io.Writer, m *money, o *order.Order) error {
	fmt.Fprintf(w, "Order %s\n", o.ID)
	fmt.Fprintf(w, "Status:   %s\n", o.Status)
	if o.TrackingNumber != "" {
		fmt.Fprintf(w, "Tracking: %s\n", o.TrackingNumber)
	}
	if !o.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Placed:   %s\n", o.CreatedAt.Format("2006-01-02 15:04"))
	}
	a := o.ShippingAddress
	fmt.Fprintf(w, "Ship to:  %s, %s, %s %s %s\n", a.FullName, a.Address1, a.City, a.PostalCode, a.Country)

	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tSIZE\tQTY\tPRICE\tAMOUNT")
	for _, it := range o.Items {
		l := it.Line()
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", it.Name, it.Size, it.Quantity, m.Format(l.Effective()), m.Format(l.Amount()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	printTotals(w, m, o.Totals())
	return nil
}

// describe turns domain and transport errors into shopper-facing text.
func describe(err error) string {
	var (
		verr   *validation.Error
		oos    *stock.OutOfStockError
		subErr *checkout.SubmissionError
	)
	switch {
	case errors.As(err, &verr):
		var b strings.Builder
		b.WriteString("please fix the following:")
		for _, f := range verr.Fields {
			fmt.Fprintf(&b, "\n  %s: %s", f.Field, f.Message)
		}
		return b.String()
	case errors.As(err, &oos):
		if oos.Size != "" {
			return fmt.Sprintf("only %d left of %s in size %s", oos.Available, oos.ProductID, oos.Size)
		}
		return fmt.Sprintf("only %d left of %s", oos.Available, oos.ProductID)
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		return "an order is already being submitted"
	case errors.Is(err, order.ErrEmptyItems):
		return "your cart is empty"
	case errors.Is(err, product.ErrNotFound):
		return "product not found"
	case errors.Is(err, order.ErrNotFound):
		return "order not found"
	case errors.Is(err, contact.ErrNotFound):
		return "no contact saved yet: set one with contact -email"
	case errors.As(err, &subErr):
		if subErr.Retryable() {
			return fmt.Sprintf("the order was not placed (%v); your cart is unchanged, it is safe to try again", subErr.Err)
		}
		return fmt.Sprintf("unknown outcome (%v): check your order history before submitting again", subErr.Err)
	case errors.Is(err, client.ErrUnauthorized):
		return "not authorized: check the user id"
	default:
		return err.Error()
	}
}
