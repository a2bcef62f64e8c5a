package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/foodville/marketplace-api/internal/model"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	CreateItems(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error)
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

func (r *pgOrderRepo) Create(ctx context.Context, order *model.Order) error {
	order.ID = uuid.New()
	if order.Status == "" {
		order.Status = model.OrderStatusNew
	}
	err := querier(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO orders (id, cart_id, customer_id, store_id, status, type, delivery_fee, total_price, pick_up_datetime, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING created_at, updated_at`,
		order.ID, order.CartID, order.CustomerID, order.StoreID, order.Status, order.Type,
		order.DeliveryFee, order.TotalPrice, order.PickUpAt,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return translate("insert order", err)
	}
	return nil
}

func numeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return n, fmt.Errorf("encode numeric %s: %w", d, err)
	}
	return n, nil
}

// CreateItems bulk-inserts the order's items with COPY. IDs are assigned in
// place.
func (r *pgOrderRepo) CreateItems(ctx context.Context, orderID uuid.UUID, items []model.OrderItem) error {
	rows := make([][]any, 0, len(items))
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = orderID
		price, err := numeric(items[i].PricePerItem)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			items[i].ID, orderID, items[i].ProductID, items[i].ProductName, int16(items[i].Quantity), price,
		})
	}

	_, err := querier(ctx, r.pool).CopyFrom(ctx,
		pgx.Identifier{"order_items"},
		[]string{"id", "order_id", "product_id", "product_name", "quantity", "price_per_item"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return translate("insert order items", err)
	}
	return nil
}

const orderSelect = `SELECT o.id, o.cart_id, o.customer_id, o.store_id, o.status, o.type, o.delivery_fee,
		o.total_price, o.pick_up_datetime, o.created_at, o.updated_at,
		s.name, a.city, s.image, s.delivery_fee, s.user_id,
		u.email, u.first_name, u.last_name, u.address,
		EXISTS (SELECT 1 FROM feedbacks f WHERE f.order_id = o.id AND f.customer_id = o.customer_id)
	FROM orders o
	JOIN stores s ON s.id = o.store_id
	JOIN addresses a ON a.id = s.address_id
	JOIN users u ON u.id = o.customer_id`

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	err := row.Scan(
		&o.ID, &o.CartID, &o.CustomerID, &o.StoreID, &o.Status, &o.Type, &o.DeliveryFee,
		&o.TotalPrice, &o.PickUpAt, &o.CreatedAt, &o.UpdatedAt,
		&o.Store.Name, &o.Store.City, &o.Store.Image, &o.Store.DeliveryFee, &o.Store.OwnerID,
		&o.Customer.Email, &o.Customer.FirstName, &o.Customer.LastName, &o.Customer.Address,
		&o.HasSubmittedFeedback,
	)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(querier(ctx, r.pool).QueryRow(ctx, orderSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	orders := []model.Order{*order}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	if err := r.attachFeedbacks(ctx, &orders[0]); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *pgOrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, orderSelect+` WHERE o.customer_id = $1 ORDER BY o.created_at DESC`, customerID)
}

func (r *pgOrderRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.Order, error) {
	return r.list(ctx, orderSelect+` WHERE o.store_id = $1 ORDER BY o.created_at DESC`, storeID)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, arg uuid.UUID) ([]model.Order, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	rows.Close()

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of all orders in one query.
func (r *pgOrderRepo) attachItems(ctx context.Context, orders []model.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := querier(ctx, r.pool).Query(ctx,
		`SELECT id, order_id, product_id, product_name, quantity, price_per_item
		 FROM order_items WHERE order_id = ANY($1) ORDER BY product_name`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.PricePerItem); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		i := index[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	return rows.Err()
}

func (r *pgOrderRepo) attachFeedbacks(ctx context.Context, order *model.Order) error {
	rows, err := querier(ctx, r.pool).Query(ctx,
		`SELECT f.id, f.order_id, f.customer_id, TRIM(u.first_name || ' ' || u.last_name), f.rating, f.description, f.created_at
		 FROM feedbacks f JOIN users u ON u.id = f.customer_id
		 WHERE f.order_id = $1 ORDER BY f.created_at`,
		order.ID,
	)
	if err != nil {
		return fmt.Errorf("get order feedbacks: %w", err)
	}
	feedbacks, err := pgx.CollectRows(rows, scanFeedbackRow)
	if err != nil {
		return fmt.Errorf("scan order feedback: %w", err)
	}
	order.Feedbacks = feedbacks
	return nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) error {
	ct, err := querier(ctx, r.pool).Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status,
	)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
