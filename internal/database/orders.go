package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const OrderStatusPlaced = "placed"

var ErrEmptyCart = errors.New("cart is empty")

// OrderDetails is what the customer supplies at checkout.
type OrderDetails struct {
	CustomerEmail   string `json:"customer_email"`
	ShippingAddress string `json:"shipping_address"`
}

type Order struct {
	ID               uuid.UUID       `json:"id"`
	UserID           string          `json:"user_id"`
	Status           string          `json:"status"`
	CustomerEmail    string          `json:"customer_email,omitempty"`
	ShippingAddress  string          `json:"shipping_address,omitempty"`
	Items            []CartItem      `json:"items"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	CreatedAt        time.Time       `json:"created_at"`
}

// NewOrder builds an order for the given cart lines. The commission is the
// reseller's share of the total, rounded to cents.
func NewOrder(userID string, items []CartItem, commissionRate decimal.Decimal, details OrderDetails) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	total := CartTotal(items)
	return &Order{
		ID:               uuid.New(),
		UserID:           userID,
		Status:           OrderStatusPlaced,
		CustomerEmail:    strings.TrimSpace(details.CustomerEmail),
		ShippingAddress:  strings.TrimSpace(details.ShippingAddress),
		Items:            items,
		TotalAmount:      total,
		CommissionRate:   commissionRate,
		CommissionAmount: total.Mul(commissionRate).Round(2),
		CreatedAt:        time.Now(),
	}, nil
}

type OrderRepository struct {
	db             *DB
	commissionRate decimal.Decimal
}

func NewOrderRepository(db *DB, commissionRate decimal.Decimal) *OrderRepository {
	return &OrderRepository{db: db, commissionRate: commissionRate}
}

// CreateFromCartWithTx turns the user's cart into an order and empties the
// cart, all inside tx. The cart rows are locked for the duration.
func (r *OrderRepository) CreateFromCartWithTx(ctx context.Context, tx pgx.Tx, userID string, details OrderDetails) (*Order, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, user_id, path, name, image, size, qty, price, created_at
		FROM cart_item
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
		FOR UPDATE`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (CartItem, error) {
		var item CartItem
		err := row.Scan(&item.ID, &item.UserID, &item.Path, &item.Name, &item.Image,
			&item.Size, &item.Qty, &item.Price, &item.CreatedAt)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan cart: %w", err)
	}

	order, err := NewOrder(userID, items, r.commissionRate, details)
	if err != nil {
		return nil, err
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order items: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO customer_order (
			id, user_id, status, customer_email, shipping_address,
			total_amount, commission_rate, commission_amount, items, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, order.UserID, order.Status, order.CustomerEmail, order.ShippingAddress,
		order.TotalAmount, order.CommissionRate, order.CommissionAmount, itemsJSON, order.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM cart_item WHERE user_id = $1", userID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	return order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, user_id, status, customer_email, shipping_address,
			total_amount, commission_rate, commission_amount, items, created_at
		FROM customer_order
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var (
			order     Order
			itemsJSON []byte
		)
		if err := rows.Scan(&order.ID, &order.UserID, &order.Status, &order.CustomerEmail,
			&order.ShippingAddress, &order.TotalAmount, &order.CommissionRate,
			&order.CommissionAmount, &itemsJSON, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
			return nil, fmt.Errorf("failed to decode order items: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return orders, nil
}
