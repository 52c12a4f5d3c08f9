package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/storefront-scraper/internal/database"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	// EventTypeOrderPlaced is recorded when a cart is turned into an order.
	EventTypeOrderPlaced EventType = "ORDER_PLACED"

	currency = "EUR"
	source   = "storefront"
)

// OrderPlacedPayload is what the supplier-notification consumer receives.
type OrderPlacedPayload struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	Timestamp        time.Time       `json:"timestamp"`
	OrderID          string          `json:"order_id"`
	UserID           string          `json:"user_id"`
	CustomerEmail    string          `json:"customer_email,omitempty"`
	ShippingAddress  string          `json:"shipping_address,omitempty"`
	Lines            []OrderLine     `json:"lines"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	Currency         string          `json:"currency"`
	Source           string          `json:"source"`
}

type OrderLine struct {
	Name      string          `json:"name"`
	Path      string          `json:"path"`
	Size      string          `json:"size,omitempty"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func NewOrderPlacedPayload(order *database.Order) *OrderPlacedPayload {
	lines := make([]OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, OrderLine{
			Name:      item.Name,
			Path:      item.Path,
			Size:      item.Size,
			Qty:       item.Qty,
			UnitPrice: item.Price,
			LineTotal: item.LineTotal(),
		})
	}

	return &OrderPlacedPayload{
		EventID:          uuid.New().String(),
		EventType:        string(EventTypeOrderPlaced),
		Timestamp:        time.Now(),
		OrderID:          order.ID.String(),
		UserID:           order.UserID,
		CustomerEmail:    order.CustomerEmail,
		ShippingAddress:  order.ShippingAddress,
		Lines:            lines,
		TotalAmount:      order.TotalAmount,
		CommissionRate:   order.CommissionRate,
		CommissionAmount: order.CommissionAmount,
		Currency:         currency,
		Source:           source,
	}
}

// Publisher places orders and records their events through the
// transactional outbox.
type Publisher struct {
	db     *database.DB
	orders *database.OrderRepository
	outbox *database.OutboxRepository
	stream string
	logger *slog.Logger
}

func NewPublisher(db *database.DB, commissionRate decimal.Decimal, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = database.DefaultOrderStream
	}
	return &Publisher{
		db:     db,
		orders: database.NewOrderRepository(db, commissionRate),
		outbox: database.NewOutboxRepository(db),
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// PlaceOrder turns the user's cart into an order. The order row, the emptied
// cart and the ORDER_PLACED outbox event commit together or not at all.
func (p *Publisher) PlaceOrder(ctx context.Context, userID string, details database.OrderDetails) (*database.Order, error) {
	var order *database.Order

	err := p.db.Transaction(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = p.orders.CreateFromCartWithTx(ctx, tx, userID, details)
		if err != nil {
			return err
		}

		data, err := json.Marshal(NewOrderPlacedPayload(order))
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		return p.outbox.InsertWithTx(ctx, tx, &database.OutboxEvent{
			AggregateType: "order",
			AggregateID:   order.ID.String(),
			EventType:     string(EventTypeOrderPlaced),
			Payload:       data,
			TargetStream:  p.stream,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	p.logger.Info("order placed",
		"order_id", order.ID,
		"user_id", userID,
		"lines", len(order.Items),
		"total", order.TotalAmount.StringFixed(2),
	)

	return order, nil
}

func (p *Publisher) Orders(ctx context.Context, userID string) ([]database.Order, error) {
	return p.orders.ListByUser(ctx, userID)
}
