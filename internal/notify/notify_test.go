package notify

import (
	"context"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/storefront/internal/domain/contact"
	"github.com/xenking/storefront/internal/domain/order"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m)
	return nil
}

func (s *recordingSender) messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.sent...)
}

func notice(id string) order.Notice {
	return order.Notice{OrderID: id, TrackingNumber: "TRK123", Name: "Ann Lee", Email: "ann@example.com"}
}

func TestDispatcher_OrderShipped(t *testing.T) {
	d := NewDispatcher(&recordingSender{}, 2)
	ctx := context.Background()

	require.NoError(t, d.OrderShipped(ctx, notice("o-1")))
	require.NoError(t, d.OrderShipped(ctx, notice("o-2")))
	require.ErrorIs(t, d.OrderShipped(ctx, notice("o-3")), ErrQueueFull)
	assert.Equal(t, 2, d.Pending())

	n := notice("o-4")
	n.Email = ""
	require.ErrorIs(t, d.OrderShipped(ctx, n), ErrNoRecipient)

	n.UserID = "user-1"
	require.ErrorIs(t, d.OrderShipped(ctx, n), ErrNoRecipient, "user notices need a directory")
}

type mapDirectory map[string]contact.Contact

func (m mapDirectory) Get(_ context.Context, userID string) (*contact.Contact, error) {
	c, ok := m[userID]
	if !ok {
		return nil, contact.ErrNotFound
	}
	return &c, nil
}

func TestDispatcher_SignedInCustomer(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx, cancel := context.WithCancel(zctx.Base(context.Background(), zap.New(core)))

	sender := &recordingSender{}
	d := NewDispatcher(sender, 4, WithDirectory(mapDirectory{
		"user-1": {UserID: "user-1", Name: "Bob Stone", Email: "bob@example.com"},
	}))

	require.NoError(t, d.OrderShipped(ctx, order.Notice{
		OrderID: "o-1", TrackingNumber: "TRK123", UserID: "user-1", Name: "B. Stone",
	}))
	require.NoError(t, d.OrderShipped(ctx, order.Notice{
		OrderID: "o-2", TrackingNumber: "TRK456", UserID: "user-2",
	}))
	cancel()
	require.NoError(t, d.Run(ctx))

	sent := sender.messages()
	require.Len(t, sent, 1)
	assert.Equal(t, "bob@example.com", sent[0].To)
	assert.Equal(t, "Your order o-1 has shipped", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "Hi Bob Stone,")

	entries := logs.FilterMessage("Resolve notification recipient failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "o-2", entries[0].ContextMap()["order_id"])
}

func TestDispatcher_Run(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.NoError(t, d.OrderShipped(ctx, notice("o-1")))
	require.Eventually(t, func() bool { return len(sender.messages()) == 1 }, time.Second, 5*time.Millisecond)

	m := sender.messages()[0]
	assert.Equal(t, "ann@example.com", m.To)
	assert.Equal(t, "Your order o-1 has shipped", m.Subject)
	assert.Contains(t, m.Body, "Hi Ann Lee,")
	assert.Contains(t, m.Body, "Tracking number: TRK123")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestDispatcher_FlushOnStop(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 8)
	for _, id := range []string{"o-1", "o-2", "o-3"} {
		require.NoError(t, d.OrderShipped(context.Background(), notice(id)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))
	assert.Len(t, sender.messages(), 3)
	assert.Zero(t, d.Pending())
}

func TestDispatcher_SendFailureLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx, cancel := context.WithCancel(zctx.Base(context.Background(), zap.New(core)))

	d := NewDispatcher(&recordingSender{err: errors.New("relay down")}, 1)
	require.NoError(t, d.OrderShipped(ctx, notice("o-1")))
	cancel()
	require.NoError(t, d.Run(ctx))

	entries := logs.FilterMessage("Send notification failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "ann@example.com", entries[0].ContextMap()["to"])
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := zctx.Base(context.Background(), zap.New(core))

	require.NoError(t, LogSender{}.Send(ctx, Message{To: "a@example.com", Subject: "hi"}))
	assert.Equal(t, 1, logs.FilterMessage("Notification").Len())
}

func TestSMTPSender(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{})
	require.Error(t, err)

	s, err := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 2525, From: "orders@example.com"})
	require.NoError(t, err)
	assert.Nil(t, s.auth)

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		assert.Equal(t, "orders@example.com", from)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), shippedMessage(notice("o-1"))))
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"ann@example.com"}, gotTo)
	assert.True(t, strings.HasPrefix(gotMsg, "From: orders@example.com\r\nTo: ann@example.com\r\n"))
	assert.Contains(t, gotMsg, "Subject: Your order o-1 has shipped\r\n")

	err = s.Send(context.Background(), Message{To: "x@example.com\r\nBcc: y@example.com", Subject: "s"})
	require.Error(t, err)

	withAuth, err := NewSMTPSender(SMTPConfig{Host: "mail.local", Port: 587, From: "o@example.com", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.NotNil(t, withAuth.auth)
}
