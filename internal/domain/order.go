package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidTransition = errors.New("illegal transition of order status")
	ErrUnknownStatus     = errors.New("unknown order status")
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:    {OrderStatusProcessing: true, OrderStatusCancelled: true},
	OrderStatusProcessing: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:    {OrderStatusDelivered: true, OrderStatusCancelled: true},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus accepts any letter case; stored orders use both "Pending" and "pending".
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validNext[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// NextStatuses lists the statuses reachable from s in one step.
func NextStatuses(s OrderStatus) []OrderStatus {
	var out []OrderStatus
	for _, st := range OrderStatuses {
		if validNext[s][st] {
			out = append(out, st)
		}
	}
	return out
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "Online"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cod":
		return PaymentCOD, nil
	case "online", "card":
		return PaymentOnline, nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (i OrderItem) Total() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	UserID        string          `json:"user_id"`
	Items         []OrderItem     `json:"items"`
	Address       Address         `json:"address"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Amount        decimal.Decimal `json:"amount"`
	Status        OrderStatus     `json:"status"`
	IsPaid        bool            `json:"is_paid"`
	CreatedAt     time.Time       `json:"created_at"`
}
