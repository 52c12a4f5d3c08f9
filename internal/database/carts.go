package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCartItem  = errors.New("invalid cart item")
	ErrCartItemNotFound = errors.New("cart item not found")
)

// CartItem is one line of a user's cart. Price is the unit price shown to
// the customer, already multiplied.
type CartItem struct {
	ID        uuid.UUID       `json:"id"`
	UserID    string          `json:"user_id"`
	Path      string          `json:"path"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Size      string          `json:"size,omitempty"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// LineTotal is Price times Qty.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Qty)))
}

// CartTotal sums the line totals of items.
func CartTotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (i *CartItem) validate() error {
	switch {
	case strings.TrimSpace(i.UserID) == "":
		return fmt.Errorf("%w: user id is required", ErrInvalidCartItem)
	case strings.TrimSpace(i.Path) == "":
		return fmt.Errorf("%w: product path is required", ErrInvalidCartItem)
	case i.Qty < 1:
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidCartItem)
	case i.Price.IsNegative():
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidCartItem)
	}
	return nil
}

type CartRepository struct {
	db *DB
}

func NewCartRepository(db *DB) *CartRepository {
	return &CartRepository{db: db}
}

// Add puts item in its user's cart. Adding a product and size that is already
// there raises the quantity of the existing line instead; item is updated to
// reflect the stored line.
func (r *CartRepository) Add(ctx context.Context, item *CartItem) error {
	if err := item.validate(); err != nil {
		return err
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	query := `
		INSERT INTO cart_item (id, user_id, path, name, image, size, qty, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id, path, size) DO UPDATE SET
			qty = cart_item.qty + EXCLUDED.qty,
			price = EXCLUDED.price,
			name = EXCLUDED.name,
			image = EXCLUDED.image
		RETURNING id, qty, created_at`

	err := r.db.pool.QueryRow(ctx, query,
		item.ID, item.UserID, item.Path, item.Name, item.Image, item.Size, item.Qty, item.Price,
	).Scan(&item.ID, &item.Qty, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add cart item: %w", err)
	}

	return nil
}

// List returns the user's cart, oldest line first.
func (r *CartRepository) List(ctx context.Context, userID string) ([]CartItem, error) {
	query := `
		SELECT id, user_id, path, name, image, size, qty, price, created_at
		FROM cart_item
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.db.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	items := make([]CartItem, 0)
	for rows.Next() {
		var item CartItem
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Path, &item.Name, &item.Image,
			&item.Size, &item.Qty, &item.Price, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}

// Remove deletes one line of the user's cart. Lines of other users are never
// touched.
func (r *CartRepository) Remove(ctx context.Context, userID string, id uuid.UUID) error {
	result, err := r.db.pool.Exec(ctx,
		"DELETE FROM cart_item WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrCartItemNotFound, id)
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.pool.Exec(ctx, "DELETE FROM cart_item WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
