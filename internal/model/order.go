package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusNew            OrderStatus = "New"
	OrderStatusAccepted       OrderStatus = "Accepted"
	OrderStatusPreparing      OrderStatus = "Preparing Order"
	OrderStatusOutForDelivery OrderStatus = "Out For Delivery"
	OrderStatusReadyForPickUp OrderStatus = "Ready For Pick Up"
	OrderStatusCompleted      OrderStatus = "Completed"
	OrderStatusRejected       OrderStatus = "Rejected"
)

var orderStatuses = map[OrderStatus]bool{
	OrderStatusNew:            true,
	OrderStatusAccepted:       true,
	OrderStatusPreparing:      true,
	OrderStatusOutForDelivery: true,
	OrderStatusReadyForPickUp: true,
	OrderStatusCompleted:      true,
	OrderStatusRejected:       true,
}

func (s OrderStatus) Valid() bool { return orderStatuses[s] }

// Notifies reports whether the customer is told when an order enters s.
func (s OrderStatus) Notifies() bool {
	switch s {
	case OrderStatusAccepted, OrderStatusRejected, OrderStatusOutForDelivery,
		OrderStatusReadyForPickUp, OrderStatusCompleted:
		return true
	}
	return false
}

type OrderType string

const (
	OrderTypeDelivery OrderType = "Delivery"
	OrderTypePickUp   OrderType = "Pick Up"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDelivery || t == OrderTypePickUp
}

type Order struct {
	ID                   uuid.UUID
	CartID               uuid.UUID
	CustomerID           uuid.UUID
	StoreID              uuid.UUID
	Status               OrderStatus
	Type                 OrderType
	DeliveryFee          decimal.Decimal
	TotalPrice           decimal.Decimal
	PickUpAt             *time.Time
	Items                []OrderItem
	Store                OrderStore
	Customer             OrderCustomer
	Feedbacks            []Feedback
	HasSubmittedFeedback bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

type OrderStore struct {
	Name        string
	City        string
	Image       string
	DeliveryFee decimal.Decimal
	OwnerID     uuid.UUID
}

func (s OrderStore) DisplayName() string { return displayName(s.Name, s.City) }

type OrderCustomer struct {
	Email     string
	FirstName string
	LastName  string
	Address   string
}

// OrderItem is frozen at checkout. PricePerItem holds the line total
// (unit price times quantity) as charged at that moment.
type OrderItem struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	ProductID    *uuid.UUID
	ProductName  string
	Quantity     int
	PricePerItem decimal.Decimal
}
