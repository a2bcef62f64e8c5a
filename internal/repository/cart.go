package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodville/marketplace-api/internal/model"
)

type CartRepository interface {
	Create(ctx context.Context, cart *model.Cart) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	LockByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	ListItems(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error)
	GetItem(ctx context.Context, itemID uuid.UUID) (*model.CartItem, error)
	UpsertItem(ctx context.Context, item *model.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) Create(ctx context.Context, cart *model.Cart) error {
	cart.ID = uuid.New()
	err := querier(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO carts (id, user_id, created_at, updated_at) VALUES ($1, $2, NOW(), NOW()) RETURNING created_at, updated_at`,
		cart.ID, cart.UserID,
	).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return translate("create cart", err)
	}
	return nil
}

func (r *pgCartRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	return r.getByUserID(ctx, userID, "")
}

// LockByUserID reads the cart row with FOR UPDATE so concurrent cart
// mutations and checkouts for the same user run one after another. It must be
// called inside a transaction.
func (r *pgCartRepo) LockByUserID(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	return r.getByUserID(ctx, userID, " FOR UPDATE")
}

func (r *pgCartRepo) getByUserID(ctx context.Context, userID uuid.UUID, suffix string) (*model.Cart, error) {
	cart := &model.Cart{}
	err := querier(ctx, r.pool).QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`+suffix, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

const cartItemSelect = `SELECT ci.id, ci.cart_id, c.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
		p.name, p.price, p.image, p.is_available, s.id, s.name
	FROM cart_items ci
	JOIN carts c ON c.id = ci.cart_id
	JOIN products p ON p.id = ci.product_id
	JOIN stores s ON s.id = p.store_id`

func scanCartItem(row pgx.Row) (model.CartItem, error) {
	var item model.CartItem
	err := row.Scan(
		&item.ID, &item.CartID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
		&item.Product.Name, &item.Product.Price, &item.Product.Image, &item.Product.IsAvailable,
		&item.Product.StoreID, &item.Product.StoreName,
	)
	return item, err
}

func (r *pgCartRepo) ListItems(ctx context.Context, cartID uuid.UUID) ([]model.CartItem, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, cartItemSelect+` WHERE ci.cart_id = $1 ORDER BY ci.created_at DESC`, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *pgCartRepo) GetItem(ctx context.Context, itemID uuid.UUID) (*model.CartItem, error) {
	item, err := scanCartItem(querier(ctx, r.pool).QueryRow(ctx, cartItemSelect+` WHERE ci.id = $1`, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart item: %w", err)
	}
	return &item, nil
}

// UpsertItem inserts the (cart, product) pair or adds item.Quantity to the
// existing row. item.ID and item.Quantity are set to the stored values.
func (r *pgCartRepo) UpsertItem(ctx context.Context, item *model.CartItem) error {
	query := `INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())
			  ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
			  RETURNING id, quantity, created_at, updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query, uuid.New(), item.CartID, item.ProductID, item.Quantity).
		Scan(&item.ID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return translate("add cart item", err)
	}
	return nil
}

func (r *pgCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	ct, err := querier(ctx, r.pool).Exec(ctx,
		`UPDATE cart_items SET quantity = $2, updated_at = NOW() WHERE id = $1`, itemID, quantity,
	)
	if err != nil {
		return translate("update cart item", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	ct, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgCartRepo) Clear(ctx context.Context, cartID uuid.UUID) error {
	_, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
