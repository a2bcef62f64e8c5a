package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodville/marketplace-api/internal/model"
)

// StoreFilter narrows List. The zero value lists every store.
type StoreFilter struct {
	LiveOnly       bool
	WithProducts   bool
	ExcludeOwnerID uuid.UUID
}

type StoreRepository interface {
	Create(ctx context.Context, store *model.Store) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Store, error)
	List(ctx context.Context, filter StoreFilter) ([]model.Store, error)
	Update(ctx context.Context, store *model.Store) error
	UpdateImage(ctx context.Context, id uuid.UUID, image string) error
	Delete(ctx context.Context, id uuid.UUID) (*model.Store, error)
	CountProducts(ctx context.Context, id uuid.UUID) (int, error)
}

type pgStoreRepo struct{ pool *pgxpool.Pool }

func NewStoreRepository(pool *pgxpool.Pool) StoreRepository {
	return &pgStoreRepo{pool: pool}
}

func timeOfDay(t pgtype.Time) model.TimeOfDay {
	return model.TimeOfDay(t.Microseconds / 1_000_000)
}

func pgTime(t model.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 1_000_000, Valid: true}
}

const storeSelect = `SELECT s.id, s.user_id, s.name, s.email, s.image, s.mobile_number, s.delivery_fee,
		s.description, s.opening_time, s.closing_time, s.is_live, s.created_at, s.updated_at,
		a.id, a.city, a.province, a.created_at, a.updated_at,
		TRIM(u.first_name || ' ' || u.last_name),
		COALESCE((SELECT AVG(f.rating)::float8 FROM feedbacks f JOIN orders o ON o.id = f.order_id WHERE o.store_id = s.id), 0),
		(SELECT COUNT(*) FROM products p WHERE p.store_id = s.id)
	FROM stores s
	JOIN addresses a ON a.id = s.address_id
	JOIN users u ON u.id = s.user_id`

func scanStore(row pgx.Row) (*model.Store, error) {
	s := &model.Store{}
	var opening, closing pgtype.Time
	err := row.Scan(
		&s.ID, &s.UserID, &s.Name, &s.Email, &s.Image, &s.MobileNumber, &s.DeliveryFee,
		&s.Description, &opening, &closing, &s.IsLive, &s.CreatedAt, &s.UpdatedAt,
		&s.Address.ID, &s.Address.City, &s.Address.Province, &s.Address.CreatedAt, &s.Address.UpdatedAt,
		&s.OwnerName, &s.Rating, &s.ProductCount,
	)
	if err != nil {
		return nil, err
	}
	s.OpeningTime = timeOfDay(opening)
	s.ClosingTime = timeOfDay(closing)
	return s, nil
}

// Create inserts the store's address and then the store. Call it inside a
// transaction so both rows commit together.
func (r *pgStoreRepo) Create(ctx context.Context, store *model.Store) error {
	q := querier(ctx, r.pool)

	store.Address.ID = uuid.New()
	err := q.QueryRow(ctx,
		`INSERT INTO addresses (id, city, province, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		store.Address.ID, store.Address.City, store.Address.Province,
	).Scan(&store.Address.CreatedAt, &store.Address.UpdatedAt)
	if err != nil {
		return translate("create address", err)
	}

	if store.Image == "" {
		store.Image = model.DefaultStoreImage
	}
	store.ID = uuid.New()
	query := `INSERT INTO stores (id, user_id, address_id, name, email, image, mobile_number, delivery_fee,
				description, opening_time, closing_time, is_live, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err = q.QueryRow(ctx, query,
		store.ID, store.UserID, store.Address.ID, store.Name, store.Email, store.Image, store.MobileNumber,
		store.DeliveryFee, store.Description, pgTime(store.OpeningTime), pgTime(store.ClosingTime), store.IsLive,
	).Scan(&store.CreatedAt, &store.UpdatedAt)
	if err != nil {
		return translate("create store", err)
	}
	return nil
}

func (r *pgStoreRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	store, err := scanStore(querier(ctx, r.pool).QueryRow(ctx, storeSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	return store, nil
}

func (r *pgStoreRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Store, error) {
	store, err := scanStore(querier(ctx, r.pool).QueryRow(ctx, storeSelect+` WHERE s.user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get store by user: %w", err)
	}
	return store, nil
}

func (r *pgStoreRepo) List(ctx context.Context, filter StoreFilter) ([]model.Store, error) {
	query := storeSelect + `
		WHERE ($1 = FALSE OR s.is_live)
		  AND ($2 = FALSE OR EXISTS (SELECT 1 FROM products p WHERE p.store_id = s.id))
		  AND ($3::uuid IS NULL OR s.user_id <> $3)
		ORDER BY s.created_at DESC`

	var exclude *uuid.UUID
	if filter.ExcludeOwnerID != uuid.Nil {
		exclude = &filter.ExcludeOwnerID
	}

	rows, err := querier(ctx, r.pool).Query(ctx, query, filter.LiveOnly, filter.WithProducts, exclude)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	defer rows.Close()

	var stores []model.Store
	for rows.Next() {
		s, err := scanStore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan store: %w", err)
		}
		stores = append(stores, *s)
	}
	return stores, rows.Err()
}

// Update writes the mutable store columns and the address.
func (r *pgStoreRepo) Update(ctx context.Context, store *model.Store) error {
	q := querier(ctx, r.pool)

	err := q.QueryRow(ctx,
		`UPDATE addresses SET city=$2, province=$3, updated_at=NOW() WHERE id=$1 RETURNING updated_at`,
		store.Address.ID, store.Address.City, store.Address.Province,
	).Scan(&store.Address.UpdatedAt)
	if err != nil {
		return translate("update address", err)
	}

	query := `UPDATE stores SET name=$2, email=$3, mobile_number=$4, delivery_fee=$5, description=$6,
				opening_time=$7, closing_time=$8, is_live=$9, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err = q.QueryRow(ctx, query,
		store.ID, store.Name, store.Email, store.MobileNumber, store.DeliveryFee, store.Description,
		pgTime(store.OpeningTime), pgTime(store.ClosingTime), store.IsLive,
	).Scan(&store.UpdatedAt)
	if err != nil {
		return translate("update store", err)
	}
	return nil
}

func (r *pgStoreRepo) UpdateImage(ctx context.Context, id uuid.UUID, image string) error {
	ct, err := querier(ctx, r.pool).Exec(ctx, `UPDATE stores SET image=$2, updated_at=NOW() WHERE id=$1`, id, image)
	if err != nil {
		return fmt.Errorf("update store image: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// Delete removes the store and its address and returns the deleted row, or
// nil when no store has that id. Categories and products cascade; orders
// restrict the delete.
func (r *pgStoreRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Store, error) {
	store, err := r.GetByID(ctx, id)
	if err != nil || store == nil {
		return store, err
	}

	q := querier(ctx, r.pool)
	if _, err := q.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id); err != nil {
		return nil, translate("delete store", err)
	}
	if _, err := q.Exec(ctx, `DELETE FROM addresses WHERE id = $1`, store.Address.ID); err != nil {
		return nil, translate("delete address", err)
	}
	return store, nil
}

func (r *pgStoreRepo) CountProducts(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := querier(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE store_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}
