package database

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartItem(user, path, size string, qty int, price string) *CartItem {
	return &CartItem{
		UserID: user,
		Path:   path,
		Name:   "Nike Air Max Plus",
		Size:   size,
		Qty:    qty,
		Price:  decimal.RequireFromString(price),
	}
}

func TestCartTotal(t *testing.T) {
	items := []CartItem{
		*cartItem("u1", "/a.html", "41", 2, "99.80"),
		*cartItem("u1", "/b.html", "", 1, "0.40"),
	}
	assert.Equal(t, "199.60", items[0].LineTotal().StringFixed(2))
	assert.Equal(t, "200.00", CartTotal(items).StringFixed(2))
	assert.True(t, CartTotal(nil).IsZero())
}

func TestCartItem_Validate(t *testing.T) {
	tests := []struct {
		name string
		item *CartItem
	}{
		{"no user", cartItem(" ", "/a.html", "41", 1, "10")},
		{"no path", cartItem("u1", "", "41", 1, "10")},
		{"zero qty", cartItem("u1", "/a.html", "41", 0, "10")},
		{"negative price", cartItem("u1", "/a.html", "41", 1, "-1")},
	}

	require.NoError(t, cartItem("u1", "/a.html", "41", 1, "10").validate())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.item.validate(), ErrInvalidCartItem)
		})
	}
}

func TestNewOrder(t *testing.T) {
	t.Run("empty cart", func(t *testing.T) {
		_, err := NewOrder("u1", nil, decimal.RequireFromString("0.15"), OrderDetails{})
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("totals and commission", func(t *testing.T) {
		items := []CartItem{
			*cartItem("u1", "/a.html", "41", 1, "99.99"),
			*cartItem("u1", "/b.html", "42", 2, "10.00"),
		}
		order, err := NewOrder("u1", items, decimal.RequireFromString("0.15"), OrderDetails{
			CustomerEmail:   " client@example.com ",
			ShippingAddress: "1 rue de la Paix, Paris",
		})
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, order.ID)
		assert.Equal(t, OrderStatusPlaced, order.Status)
		assert.Equal(t, "client@example.com", order.CustomerEmail)
		assert.Equal(t, "119.99", order.TotalAmount.StringFixed(2))
		assert.Equal(t, "18.00", order.CommissionAmount.StringFixed(2))
		assert.Len(t, order.Items, 2)
	})
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	carts := NewCartRepository(db)

	first := cartItem("u1", "/a.html", "41", 1, "99.80")
	require.NoError(t, carts.Add(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID)

	again := cartItem("u1", "/a.html", "41", 2, "99.80")
	require.NoError(t, carts.Add(ctx, again))
	assert.Equal(t, first.ID, again.ID, "same product and size share a line")
	assert.Equal(t, 3, again.Qty)

	require.NoError(t, carts.Add(ctx, cartItem("u1", "/a.html", "42", 1, "99.80")))
	require.NoError(t, carts.Add(ctx, cartItem("u2", "/b.html", "", 1, "10.00")))

	items, err := carts.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Price.Equal(decimal.RequireFromString("99.80")))

	assert.ErrorIs(t, carts.Remove(ctx, "u2", first.ID), ErrCartItemNotFound, "other users' lines are untouchable")
	require.NoError(t, carts.Remove(ctx, "u1", first.ID))

	require.NoError(t, carts.Clear(ctx, "u1"))
	items, err = carts.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = carts.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestOrderRepository_CreateFromCartWithTx(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	carts := NewCartRepository(db)
	orders := NewOrderRepository(db, decimal.RequireFromString("0.15"))

	err := db.Transaction(ctx, func(tx pgx.Tx) error {
		_, err := orders.CreateFromCartWithTx(ctx, tx, "u1", OrderDetails{})
		return err
	})
	assert.ErrorIs(t, err, ErrEmptyCart)

	require.NoError(t, carts.Add(ctx, cartItem("u1", "/a.html", "41", 2, "50.00")))

	var order *Order
	require.NoError(t, db.Transaction(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = orders.CreateFromCartWithTx(ctx, tx, "u1", OrderDetails{CustomerEmail: "client@example.com"})
		return err
	}))
	assert.Equal(t, "100.00", order.TotalAmount.StringFixed(2))

	items, err := carts.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items, "cart is emptied by checkout")

	placed, err := orders.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, placed, 1)
	assert.Equal(t, order.ID, placed[0].ID)
	require.Len(t, placed[0].Items, 1)
	assert.Equal(t, "/a.html", placed[0].Items[0].Path)
}
