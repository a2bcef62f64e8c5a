package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foodville/marketplace-api/internal/model"
)

// --- Auth & users ---

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Username  string `json:"username" binding:"required,max=150"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required,max=150"`
	LastName  string `json:"last_name" binding:"required,max=150"`
	BirthDate string `json:"birth_date" binding:"required"`
	Address   string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateUserRequest patches the caller's profile. Email cannot change.
type UpdateUserRequest struct {
	Username  *string `json:"username" binding:"omitempty,max=150"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" binding:"omitempty,max=150"`
	BirthDate *string `json:"birth_date"`
	Address   *string `json:"address"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	BirthDate string    `json:"birth_date,omitempty"`
	Address   string    `json:"address"`
	IsStaff   bool      `json:"is_staff"`
	Groups    []string  `json:"groups"`
}

// --- Store ---

type AddressRequest struct {
	City     string `json:"city" binding:"required,max=30"`
	Province string `json:"province" binding:"required,max=30"`
}

type CreateStoreRequest struct {
	Name         string          `json:"name" binding:"required,max=255"`
	Email        string          `json:"email" binding:"required,email"`
	MobileNumber string          `json:"mobile_number" binding:"required"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
	Description  string          `json:"description"`
	OpeningTime  *string         `json:"opening_time" binding:"required"`
	ClosingTime  *string         `json:"closing_time" binding:"required"`
	Address      AddressRequest  `json:"address" binding:"required"`
}

type UpdateStoreRequest struct {
	Name         *string          `json:"name" binding:"omitempty,max=255"`
	Email        *string          `json:"email" binding:"omitempty,email"`
	MobileNumber *string          `json:"mobile_number"`
	DeliveryFee  *decimal.Decimal `json:"delivery_fee"`
	Description  *string          `json:"description"`
	OpeningTime  *string          `json:"opening_time"`
	ClosingTime  *string          `json:"closing_time"`
	IsLive       *bool            `json:"is_live"`
	Address      *AddressRequest  `json:"address"`
}

type AddressResponse struct {
	City     string `json:"city"`
	Province string `json:"province"`
}

type StoreResponse struct {
	ID           uuid.UUID       `json:"id"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	OwnerName    string          `json:"owner_name"`
	Name         string          `json:"name"`
	DisplayName  string          `json:"display_name"`
	Email        string          `json:"email"`
	Image        string          `json:"image"`
	MobileNumber string          `json:"mobile_number"`
	DeliveryFee  decimal.Decimal `json:"delivery_fee"`
	Description  string          `json:"description"`
	OpeningTime  model.TimeOfDay `json:"opening_time"`
	ClosingTime  model.TimeOfDay `json:"closing_time"`
	IsOpen       bool            `json:"is_open"`
	IsLive       bool            `json:"is_live"`
	Rating       float64         `json:"rating"`
	ProductCount int             `json:"product_count"`
	Address      AddressResponse `json:"address"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// --- Category ---

type CategoryRequest struct {
	Name string `json:"name" binding:"required,max=128"`
}

type CategoryResponse struct {
	ID        uuid.UUID `json:"id"`
	StoreID   uuid.UUID `json:"store_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// --- Product ---

type CreateProductRequest struct {
	CategoryID  uuid.UUID       `json:"category_id" binding:"required"`
	Name        string          `json:"name" binding:"required,max=255"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	IsAvailable *bool           `json:"is_available"`
}

type UpdateProductRequest struct {
	CategoryID  *uuid.UUID       `json:"category_id"`
	Name        *string          `json:"name" binding:"omitempty,max=255"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	IsAvailable *bool            `json:"is_available"`
}

type ListProductsRequest struct {
	Page       int    `form:"page,default=1" binding:"min=1"`
	Limit      int    `form:"limit,default=20" binding:"min=1,max=100"`
	Search     string `form:"search"`
	Sort       string `form:"sort,default=created_at" binding:"oneof=name price created_at"`
	Order      string `form:"order,default=desc" binding:"oneof=asc desc"`
	StoreID    string `form:"store" binding:"omitempty,uuid"`
	CategoryID string `form:"category" binding:"omitempty,uuid"`
}

type ProductResponse struct {
	ID           uuid.UUID       `json:"id"`
	StoreID      uuid.UUID       `json:"store_id"`
	StoreName    string          `json:"store_name"`
	CategoryID   uuid.UUID       `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image"`
	IsAvailable  bool            `json:"is_available"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// --- Cart ---

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"min=1"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=1"`
}

type CartStoreResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type CartResponse struct {
	ID        uuid.UUID          `json:"id"`
	ItemCount int                `json:"item_count"`
	Store     *CartStoreResponse `json:"store"`
	Subtotal  decimal.Decimal    `json:"subtotal"`
	Items     []CartItemResponse `json:"items"`
}

type CartItemResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	Name        string          `json:"name"`
	Image       string          `json:"image"`
	StoreID     uuid.UUID       `json:"store_id"`
	StoreName   string          `json:"store_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	IsAvailable bool            `json:"is_available"`
}

// --- Order ---

type CreateOrderRequest struct {
	StoreID        *uuid.UUID      `json:"store_id"`
	Type           model.OrderType `json:"type" binding:"required"`
	PickUpDatetime *time.Time      `json:"pick_up_datetime"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

type OrderStoreResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Image       string          `json:"image"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

type OrderCustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Address   string    `json:"address"`
}

type OrderResponse struct {
	ID                   uuid.UUID             `json:"id"`
	Store                OrderStoreResponse    `json:"store"`
	Customer             OrderCustomerResponse `json:"customer"`
	Status               model.OrderStatus     `json:"status"`
	Type                 model.OrderType       `json:"type"`
	DeliveryFee          decimal.Decimal       `json:"delivery_fee"`
	TotalPrice           decimal.Decimal       `json:"total_price"`
	PickUpDatetime       *time.Time            `json:"pick_up_datetime"`
	Items                []OrderItemResponse   `json:"items"`
	Feedbacks            []FeedbackResponse    `json:"feedbacks,omitempty"`
	HasSubmittedFeedback bool                  `json:"has_submitted_feedback"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

type OrderItemResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    *uuid.UUID      `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerItem decimal.Decimal `json:"price_per_item"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Total  int             `json:"total"`
}

// --- Feedback ---

type CreateFeedbackRequest struct {
	OrderID     uuid.UUID `json:"order_id" binding:"required"`
	Rating      int       `json:"rating"`
	Description string    `json:"description"`
}

type FeedbackResponse struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	CustomerID   uuid.UUID `json:"customer_id"`
	CustomerName string    `json:"customer_name"`
	Rating       int       `json:"rating"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}
