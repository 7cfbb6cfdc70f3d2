package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/checkout"
	"github.com/xenking/storefront/internal/domain/contact"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/validation"
)

type catalog interface {
	List(ctx context.Context, filter product.Filter) ([]product.Product, error)
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

type orderLookup interface {
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	ListOrders(ctx context.Context, filter order.Filter) ([]order.Order, error)
}

type contactBook interface {
	GetContact(ctx context.Context) (*contact.Contact, error)
	SaveContact(ctx context.Context, c contact.Contact) (*contact.Contact, error)
}

type submitter interface {
	Submit(ctx context.Context, c *cart.Cart, sub checkout.Submission) (*checkout.Confirmation, error)
}

// shell runs one command against a cart session.
type shell struct {
	out       io.Writer
	catalog   catalog
	orders    orderLookup
	contacts  contactBook
	submitter submitter
	cart      *cart.Cart
	userID    string
	money     *money
}

const usage = `Usage: shopctl <command> [flags] [args]

Commands:
  products [-category c]          list the catalog
  product <id>                    show one product
  cart                            show the cart
  add [-qty n] [-size s] <id>     add a product to the cart
  update [-size s] <id> <qty>     change a quantity, 0 removes
  remove [-size s] <id>           remove a product from the cart
  clear                           empty the cart
  checkout [flags]                place an order, see checkout -h
  orders [-email e -order id]     list orders, guests prove one order
  contact [-name n] [-email e]    show or set the shipping notice contact
  order <id>                      show one order
`

var errUsage = errors.New("invalid usage")

func (s *shell) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(s.out, usage)
		return nil
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		return s.products(ctx, rest)
	case "product":
		return s.product(ctx, rest)
	case "cart":
		s.showCart()
		return nil
	case "add":
		return s.add(ctx, rest)
	case "update":
		return s.update(ctx, rest)
	case "remove":
		return s.remove(rest)
	case "clear":
		s.cart.Clear()
		fmt.Fprintln(s.out, "Cart cleared.")
		return nil
	case "checkout":
		return s.checkout(ctx, rest)
	case "orders":
		return s.listOrders(ctx, rest)
	case "order":
		return s.order(ctx, rest)
	case "contact":
		return s.contact(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(s.out, usage)
		return nil
	default:
		fmt.Fprint(s.out, usage)
		return errors.Wrapf(errUsage, "unknown command %q", cmd)
	}
}

func (s *shell) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(s.out)
	return fs
}

func (s *shell) products(ctx context.Context, args []string) error {
	fs := s.flags("products")
	category := fs.String("category", "", "only list this category")
	if err := fs.Parse(args); err != nil {
		return err
	}
	list, err := s.catalog.List(ctx, product.Filter{Category: *category})
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	if len(list) == 0 {
		fmt.Fprintln(s.out, "No products.")
		return nil
	}
	return printProducts(s.out, s.money, list)
}

func (s *shell) product(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.Wrap(errUsage, "product <id>")
	}
	p, err := s.catalog.GetByID(ctx, args[0])
	if err != nil {
		return err
	}
	printProduct(s.out, s.money, p)
	return nil
}

func (s *shell) showCart() {
	items := s.cart.Items()
	if len(items) == 0 {
		fmt.Fprintln(s.out, "Your cart is empty.")
		return
	}
	tw := newTable(s.out)
	fmt.Fprintln(tw, "ID\tNAME\tSIZE\tQTY\tPRICE\tAMOUNT")
	for _, it := range items {
		l := it.Line()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			it.ProductID, it.Name, it.Size, it.Quantity, s.money.Format(l.Effective()), s.money.Format(l.Amount()))
	}
	_ = tw.Flush()
	fmt.Fprintf(s.out, "Items:    %d\n", s.cart.Count())
	printTotals(s.out, s.money, s.cart.Totals())
}

func (s *shell) add(ctx context.Context, args []string) error {
	fs := s.flags("add")
	qty := fs.String("qty", "1", "quantity")
	size := fs.String("size", "", "size for sized products")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.Wrap(errUsage, "add [-qty n] [-size s] <id>")
	}
	p, err := s.catalog.GetByID(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if p.HasSizes && *size == "" {
		return sizeRequired(p)
	}
	it, err := s.cart.AddInput(p, *qty, *size)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added %s. %d in cart, %d items total.\n", label(it.Name, it.Size), it.Quantity, s.cart.Count())
	return nil
}

func (s *shell) update(ctx context.Context, args []string) error {
	fs := s.flags("update")
	size := fs.String("size", "", "size of the cart item")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.Wrap(errUsage, "update [-size s] <id> <qty>")
	}
	id := fs.Arg(0)
	qty, ok := cart.ParseQuantity(fs.Arg(1))
	if !ok {
		return &validation.Error{Fields: []validation.FieldError{
			{Field: "quantity", Message: "must be a whole number"},
		}}
	}
	if qty <= 0 {
		s.cart.Remove(id, *size)
		fmt.Fprintf(s.out, "Removed %s.\n", label(id, *size))
		return nil
	}
	p, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.cart.UpdateQuantityChecked(p, *size, qty); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Updated %s to %d.\n", label(p.Name, *size), qty)
	return nil
}

func (s *shell) remove(args []string) error {
	fs := s.flags("remove")
	size := fs.String("size", "", "size of the cart item")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.Wrap(errUsage, "remove [-size s] <id>")
	}
	s.cart.Remove(fs.Arg(0), *size)
	fmt.Fprintf(s.out, "Removed %s.\n", label(fs.Arg(0), *size))
	return nil
}

func (s *shell) checkout(ctx context.Context, args []string) error {
	fs := s.flags("checkout")
	var (
		guest     order.Guest
		addr      address.Address
		addressID = fs.String("address-id", "", "saved address id (signed-in users)")
		token     = fs.String("token", "", "payment token")
		card      validation.Card
	)
	fs.StringVar(&guest.Name, "name", "", "guest name")
	fs.StringVar(&guest.Email, "email", "", "guest email")
	fs.StringVar(&guest.Phone, "phone", "", "guest phone")
	fs.StringVar(&addr.FullName, "full-name", "", "recipient name")
	fs.StringVar(&addr.Address1, "address1", "", "street address")
	fs.StringVar(&addr.Address2, "address2", "", "apartment, suite")
	fs.StringVar(&addr.City, "city", "", "city")
	fs.StringVar(&addr.State, "state", "", "state or region")
	fs.StringVar(&addr.PostalCode, "postal-code", "", "postal code")
	fs.StringVar(&addr.Country, "country", address.DefaultCountry, "country code")
	fs.StringVar(&addr.PhoneNumber, "address-phone", "", "recipient phone")
	fs.StringVar(&card.Number, "card", "", "card number")
	fs.StringVar(&card.Expiry, "expiry", "", "card expiry, MM/YY")
	fs.StringVar(&card.CVC, "cvc", "", "card security code")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var sub checkout.Submission
	if s.userID != "" {
		sub.Customer = order.Customer{UserID: s.userID}
	} else {
		sub.Customer = order.Customer{Guest: &guest}
	}
	if *addressID != "" {
		sub.Shipping.AddressID = *addressID
	} else {
		if addr.FullName == "" {
			addr.FullName = guest.Name
		}
		sub.Shipping.Address = &addr
	}
	sub.Payment = checkout.Payment{Token: *token, Card: card}

	conf, err := s.submitter.Submit(ctx, s.cart, sub)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Order placed: %s\nStatus: %s\nTotal:  %s\n", conf.OrderID, conf.Status, s.money.Format(conf.Total))
	return nil
}

func (s *shell) listOrders(ctx context.Context, args []string) error {
	fs := s.flags("orders")
	email := fs.String("email", "", "guest email to look up")
	orderID := fs.String("order", "", "one order placed with -email")
	status := fs.String("status", "", "only orders in this status")
	limit := fs.Int("limit", 20, "maximum number of orders")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter := order.Filter{UserID: s.userID, Limit: *limit}
	if s.userID == "" {
		filter.Email, filter.OrderID = *email, *orderID
	}
	if *status != "" {
		st, ok := order.ParseStatus(strings.ToLower(*status))
		if !ok {
			return &validation.Error{Fields: []validation.FieldError{
				{Field: "status", Message: "unknown order status"},
			}}
		}
		filter.Status = st
	}
	if filter.UserID == "" && (filter.Email == "" || filter.OrderID == "") {
		return errors.Wrap(errUsage, "guests must pass -email and -order")
	}
	list, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}
	if len(list) == 0 {
		fmt.Fprintln(s.out, "No orders.")
		return nil
	}
	return printOrders(s.out, s.money, list)
}

func (s *shell) order(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.Wrap(errUsage, "order <id>")
	}
	o, err := s.orders.GetOrder(ctx, args[0])
	if err != nil {
		return err
	}
	return printOrder(s.out, s.money, o)
}

func (s *shell) contact(ctx context.Context, args []string) error {
	fs := s.flags("contact")
	name := fs.String("name", "", "name used in order notices")
	email := fs.String("email", "", "email that receives order notices")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if s.userID == "" {
		return errors.Wrap(errUsage, "contact needs a signed-in user")
	}

	var (
		c   *contact.Contact
		err error
	)
	if *name == "" && *email == "" {
		c, err = s.contacts.GetContact(ctx)
	} else {
		c, err = s.contacts.SaveContact(ctx, contact.Contact{Name: *name, Email: *email})
	}
	if err != nil {
		return err
	}
	if c.Name != "" {
		fmt.Fprintf(s.out, "Notices go to %s <%s>\n", c.Name, c.Email)
		return nil
	}
	fmt.Fprintf(s.out, "Notices go to %s\n", c.Email)
	return nil
}

func sizeRequired(p *product.Product) error {
	sizes := make([]string, len(p.Sizes))
	for i, sz := range p.Sizes {
		sizes[i] = sz.Size
	}
	return &validation.Error{Fields: []validation.FieldError{
		{Field: "size", Message: "choose one of " + strings.Join(sizes, ", ")},
	}}
}

func label(name, size string) string {
	if size == "" {
		return strconv.Quote(name)
	}
	return fmt.Sprintf("%q (%s)", name, size)
}
