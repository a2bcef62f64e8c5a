package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/foodville/marketplace-api/internal/access"
	"github.com/foodville/marketplace-api/internal/asset"
	"github.com/foodville/marketplace-api/internal/dto"
	"github.com/foodville/marketplace-api/internal/metrics"
	"github.com/foodville/marketplace-api/internal/model"
	"github.com/foodville/marketplace-api/internal/notify"
	"github.com/foodville/marketplace-api/internal/repository"
)

type OrderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	storeRepo repository.StoreRepository
	tx        repository.Transactor
	guard     CheckoutGuard
	notifier  notify.Notifier
	media     asset.Storage
	now       Clock
	log       *slog.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	storeRepo repository.StoreRepository,
	tx repository.Transactor,
	guard CheckoutGuard,
	notifier notify.Notifier,
	media asset.Storage,
	now Clock,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		storeRepo: storeRepo,
		tx:        tx,
		guard:     guard,
		notifier:  notifier,
		media:     media,
		now:       now,
		log:       log,
	}
}

// Checkout turns the caller's cart into an order. Items are frozen at their
// current price, the delivery fee is waived for pick-up orders and the cart
// is emptied, all in one transaction.
//
// A non-empty idempotencyKey makes retries return the order created by the
// first request instead of placing a new one.
func (s *OrderService) Checkout(ctx context.Context, p access.Principal, req dto.CreateOrderRequest, idempotencyKey string) (*dto.OrderResponse, error) {
	if err := access.Authorize(p, access.ResourceOrder, access.ActionCreate); err != nil {
		return nil, err
	}
	if !req.Type.Valid() {
		return nil, NewValidationError("type", fmt.Sprintf("%q is not a valid choice.", req.Type))
	}

	guarded := idempotencyKey != "" && s.guard != nil
	if guarded {
		previous, err := s.guard.Begin(ctx, p.UserID, idempotencyKey)
		if err != nil {
			return nil, err
		}
		if previous != uuid.Nil {
			s.log.Info("replay checkout", "user_id", p.UserID, "order_id", previous)
			return s.load(ctx, previous)
		}
	}

	order, err := s.placeOrder(ctx, p, req)
	if err != nil {
		if guarded {
			if abortErr := s.guard.Abort(ctx, p.UserID, idempotencyKey); abortErr != nil {
				s.log.Warn("release idempotency key", "user_id", p.UserID, "error", abortErr)
			}
		}
		return nil, err
	}

	if guarded {
		if err := s.guard.Complete(ctx, p.UserID, idempotencyKey, order.ID); err != nil {
			s.log.Warn("record idempotency key", "user_id", p.UserID, "order_id", order.ID, "error", err)
		}
	}
	metrics.RecordOrderCreated(string(order.Type))

	placed, err := s.orderRepo.GetByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	if placed == nil {
		return nil, ErrOrderNotFound
	}
	if err := s.notifier.OrderPlaced(ctx, notify.EventFor(placed, s.now())); err != nil {
		s.log.Warn("notify order placed", "order_id", placed.ID, "error", err)
	}

	resp := s.toResponse(placed)
	return &resp, nil
}

func (s *OrderService) placeOrder(ctx context.Context, p access.Principal, req dto.CreateOrderRequest) (*model.Order, error) {
	var order *model.Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.LockByUserID(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("lock cart: %w", err)
		}
		if cart == nil {
			return ErrCartNotFound
		}
		items, err := s.cartRepo.ListItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("get cart items: %w", err)
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		storeID := items[0].Product.StoreID
		if req.StoreID != nil && *req.StoreID != storeID {
			return NewValidationError("store", "Your cart contains items from a different store.")
		}
		store, err := s.storeRepo.GetByID(ctx, storeID)
		if err != nil {
			return fmt.Errorf("get store: %w", err)
		}
		if store == nil {
			return ErrStoreNotFound
		}

		order = &model.Order{
			CartID:      cart.ID,
			CustomerID:  p.UserID,
			StoreID:     store.ID,
			Status:      model.OrderStatusNew,
			Type:        req.Type,
			DeliveryFee: store.DeliveryFee,
		}
		if req.Type == model.OrderTypePickUp {
			order.DeliveryFee = decimal.Zero
			order.PickUpAt = req.PickUpDatetime
		}
		order.Items, order.TotalPrice = snapshotItems(items, order.DeliveryFee)

		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		if err := s.orderRepo.CreateItems(ctx, order.ID, order.Items); err != nil {
			return err
		}
		return s.cartRepo.Clear(ctx, cart.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", fromConstraint(err))
	}
	return order, nil
}

// snapshotItems freezes cart lines into order items and returns the order
// total: the sum of line totals plus fee.
func snapshotItems(items []model.CartItem, fee decimal.Decimal) ([]model.OrderItem, decimal.Decimal) {
	total := fee
	snapshot := make([]model.OrderItem, 0, len(items))
	for _, item := range items {
		productID := item.ProductID
		line := lineTotal(item)
		snapshot = append(snapshot, model.OrderItem{
			ProductID:    &productID,
			ProductName:  item.Product.Name,
			Quantity:     item.Quantity,
			PricePerItem: line,
		})
		total = total.Add(line)
	}
	return snapshot, total
}

func (s *OrderService) load(ctx context.Context, id uuid.UUID) (*dto.OrderResponse, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	resp := s.toResponse(order)
	return &resp, nil
}

func (s *OrderService) MyOrders(ctx context.Context, p access.Principal) (*dto.OrderListResponse, error) {
	if err := access.Authorize(p, access.ResourceOrder, access.ActionMyOrders); err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.ListByCustomer(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.toListResponse(orders), nil
}

// MyStoreOrders lists the orders placed with the caller's store.
func (s *OrderService) MyStoreOrders(ctx context.Context, p access.Principal) (*dto.OrderListResponse, error) {
	if err := access.Authorize(p, access.ResourceOrder, access.ActionMyStoreOrders); err != nil {
		return nil, err
	}
	store, err := s.storeRepo.GetByUserID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}
	orders, err := s.orderRepo.ListByStore(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return s.toListResponse(orders), nil
}

// Get returns an order to its customer, the owner of its store, or staff.
func (s *OrderService) Get(ctx context.Context, p access.Principal, id uuid.UUID) (*dto.OrderResponse, error) {
	if err := access.Authorize(p, access.ResourceOrder, access.ActionRetrieve); err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !p.Staff && order.CustomerID != p.UserID && order.Store.OwnerID != p.UserID {
		return nil, ErrOrderNotFound
	}
	resp := s.toResponse(order)
	return &resp, nil
}

// UpdateStatus moves an order to status. Any status may follow any other.
// Notifications go out after the change is stored and never fail the call.
func (s *OrderService) UpdateStatus(ctx context.Context, p access.Principal, id uuid.UUID, req dto.UpdateOrderStatusRequest) (*dto.OrderResponse, error) {
	if err := access.Authorize(p, access.ResourceOrder, access.ActionUpdateOrderStatus); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("%q is not a valid choice.", req.Status))
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if err := access.AuthorizeObject(p, access.ResourceOrder, access.ActionUpdateOrderStatus, order.Store.OwnerID); err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateStatus(ctx, id, req.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	previous := order.Status
	order.Status = req.Status
	order.UpdatedAt = s.now()
	metrics.RecordOrderStatusChange(string(req.Status))

	s.log.Info("order status changed", "order_id", id, "from", previous, "to", req.Status, "by", p.UserID)
	if err := s.notifier.OrderStatusChanged(ctx, notify.EventFor(order, s.now())); err != nil {
		s.log.Warn("notify order status changed", "order_id", id, "status", order.Status, "error", err)
	}

	resp := s.toResponse(order)
	return &resp, nil
}

func (s *OrderService) toListResponse(orders []model.Order) *dto.OrderListResponse {
	resp := &dto.OrderListResponse{Orders: make([]dto.OrderResponse, 0, len(orders)), Total: len(orders)}
	for i := range orders {
		resp.Orders = append(resp.Orders, s.toResponse(&orders[i]))
	}
	return resp
}

func (s *OrderService) toResponse(o *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, dto.OrderItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			Quantity:     item.Quantity,
			PricePerItem: item.PricePerItem,
		})
	}
	return dto.OrderResponse{
		ID: o.ID,
		Store: dto.OrderStoreResponse{
			ID:          o.StoreID,
			Name:        o.Store.Name,
			DisplayName: o.Store.DisplayName(),
			Image:       s.media.URL(o.Store.Image),
			DeliveryFee: o.Store.DeliveryFee,
		},
		Customer: dto.OrderCustomerResponse{
			ID:        o.CustomerID,
			Email:     o.Customer.Email,
			FirstName: o.Customer.FirstName,
			LastName:  o.Customer.LastName,
			Address:   o.Customer.Address,
		},
		Status:               o.Status,
		Type:                 o.Type,
		DeliveryFee:          o.DeliveryFee,
		TotalPrice:           o.TotalPrice,
		PickUpDatetime:       o.PickUpAt,
		Items:                items,
		Feedbacks:            toFeedbackResponses(o.Feedbacks),
		HasSubmittedFeedback: o.HasSubmittedFeedback,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}
