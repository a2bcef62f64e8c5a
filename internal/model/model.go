package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID        uuid.UUID
	Email     string
	Username  string
	Password  string
	FirstName string
	LastName  string
	BirthDate time.Time
	Address   string
	IsStaff   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Age returns the user's age in whole years at now.
func (u *User) Age(now time.Time) int {
	age := now.Year() - u.BirthDate.Year()
	if now.Month() < u.BirthDate.Month() ||
		(now.Month() == u.BirthDate.Month() && now.Day() < u.BirthDate.Day()) {
		age--
	}
	return age
}

type Address struct {
	ID        uuid.UUID
	City      string
	Province  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Category struct {
	ID        uuid.UUID
	StoreID   uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Product struct {
	ID           uuid.UUID
	StoreID      uuid.UUID
	CategoryID   uuid.UUID
	Name         string
	Description  string
	Price        decimal.Decimal
	Image        string
	IsAvailable  bool
	CategoryName string
	StoreName    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem carries a read-only copy of the product fields needed for pricing and display.
type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Product   CartProduct
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CartProduct struct {
	Name        string
	Price       decimal.Decimal
	Image       string
	IsAvailable bool
	StoreID     uuid.UUID
	StoreName   string
}

type Feedback struct {
	ID           uuid.UUID
	OrderID      uuid.UUID
	CustomerID   uuid.UUID
	CustomerName string
	Rating       int
	Description  string
	CreatedAt    time.Time
}
