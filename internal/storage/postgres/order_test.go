package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenking/storefront/internal/domain/order"
)

func TestListOrdersQuery(t *testing.T) {
	for _, tc := range []struct {
		name   string
		filter order.Filter
		where  string
		args   []any
	}{
		{
			name:  "All",
			where: " FROM orders ORDER BY created_at DESC, id LIMIT $1",
			args:  []any{DefaultListLimit},
		},
		{
			name:   "User",
			filter: order.Filter{UserID: "u1", Limit: 5},
			where:  " FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2",
			args:   []any{"u1", 5},
		},
		{
			name:   "GuestEmailAndStatus",
			filter: order.Filter{Email: "Ann@Example.com", Status: order.StatusShipped},
			where:  " FROM orders WHERE lower(guest_email) = lower($1) AND status = $2 ORDER BY created_at DESC, id LIMIT $3",
			args:   []any{"Ann@Example.com", "shipped", DefaultListLimit},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			query, args := listOrdersQuery(tc.filter)
			assert.Equal(t, "SELECT "+orderColumns+tc.where, query)
			assert.Equal(t, tc.args, args)
		})
	}
}

func TestLockOrder(t *testing.T) {
	items := []order.Item{
		{ProductID: "shoe", Size: "9"},
		{ProductID: "cap"},
		{ProductID: "shoe", Size: "10"},
	}
	sorted := lockOrder(items)

	assert.Equal(t, []order.Item{
		{ProductID: "cap"},
		{ProductID: "shoe", Size: "10"},
		{ProductID: "shoe", Size: "9"},
	}, sorted)
	assert.Equal(t, "shoe", items[0].ProductID, "input untouched")
}
