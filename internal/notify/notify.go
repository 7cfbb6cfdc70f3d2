// Package notify delivers customer notifications off the request path.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/contact"
	"github.com/xenking/storefront/internal/domain/order"
)

var (
	// ErrQueueFull is returned when a notification cannot be queued without
	// blocking.
	ErrQueueFull = errors.New("notification queue full")
	// ErrNoRecipient is returned when the customer has no known email.
	ErrNoRecipient = errors.New("no notification recipient")
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Directory resolves how signed-in customers are reached.
// contact.Repository implementations satisfy it.
type Directory interface {
	Get(ctx context.Context, userID string) (*contact.Contact, error)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDirectory resolves recipients of notices that carry a user ID but no
// email.
func WithDirectory(dir Directory) Option {
	return func(d *Dispatcher) { d.directory = dir }
}

var _ order.Notifier = (*Dispatcher)(nil)

// Dispatcher queues order notices and sends them from Run.
type Dispatcher struct {
	sender    Sender
	directory Directory
	queue     chan order.Notice
}

// NewDispatcher returns a dispatcher holding at most size pending notices.
func NewDispatcher(sender Sender, size int, opts ...Option) *Dispatcher {
	if size < 1 {
		size = 1
	}
	d := &Dispatcher{
		sender: sender,
		queue:  make(chan order.Notice, size),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// OrderShipped queues a shipment email. It never blocks. Notices for
// signed-in users are addressed when they are sent.
func (d *Dispatcher) OrderShipped(_ context.Context, n order.Notice) error {
	if n.Email == "" && (n.UserID == "" || d.directory == nil) {
		return ErrNoRecipient
	}
	select {
	case d.queue <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of queued notices.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Run sends queued notices until ctx is done, then flushes what is left
// with the cancellation removed.
func (d *Dispatcher) Run(ctx context.Context) error {
	lg := zctx.From(ctx).Named("notify")
	lg.Info("Notification dispatcher started")
	for {
		select {
		case n := <-d.queue:
			d.send(ctx, lg, n)
		case <-ctx.Done():
			flush := context.WithoutCancel(ctx)
			for {
				select {
				case n := <-d.queue:
					d.send(flush, lg, n)
				default:
					lg.Info("Notification dispatcher stopped")
					return nil
				}
			}
		}
	}
}

// resolve fills in the recipient of a user notice from the directory.
func (d *Dispatcher) resolve(ctx context.Context, n order.Notice) (order.Notice, error) {
	if n.Email != "" {
		return n, nil
	}
	c, err := d.directory.Get(ctx, n.UserID)
	if err != nil {
		if errors.Is(err, contact.ErrNotFound) {
			return n, ErrNoRecipient
		}
		return n, errors.Wrapf(err, "resolve user %q", n.UserID)
	}
	n.Email = c.Email
	if c.Name != "" {
		n.Name = c.Name
	}
	return n, nil
}

func (d *Dispatcher) send(ctx context.Context, lg *zap.Logger, n order.Notice) {
	n, err := d.resolve(ctx, n)
	if err != nil {
		lg.Error("Resolve notification recipient failed",
			zap.String("order_id", n.OrderID),
			zap.String("user_id", n.UserID),
			zap.Error(err),
		)
		return
	}
	m := shippedMessage(n)
	if err := d.sender.Send(ctx, m); err != nil {
		lg.Error("Send notification failed",
			zap.String("to", m.To),
			zap.String("subject", m.Subject),
			zap.Error(err),
		)
		return
	}
	lg.Debug("Notification sent", zap.String("to", m.To), zap.String("subject", m.Subject))
}

func shippedMessage(n order.Notice) Message {
	name := n.Name
	if name == "" {
		name = "there"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "Your order %s is on its way.\r\n", n.OrderID)
	fmt.Fprintf(&b, "Tracking number: %s\r\n", n.TrackingNumber)
	return Message{
		To:      n.Email,
		Subject: fmt.Sprintf("Your order %s has shipped", n.OrderID),
		Body:    b.String(),
	}
}

// LogSender writes messages to the context logger instead of sending them.
type LogSender struct{}

// Send implements Sender.
func (LogSender) Send(ctx context.Context, m Message) error {
	zctx.From(ctx).Info("Notification",
		zap.String("to", m.To),
		zap.String("subject", m.Subject),
	)
	return nil
}
