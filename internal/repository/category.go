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

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	// List returns every category when storeID is uuid.Nil.
	List(ctx context.Context, storeID uuid.UUID) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgCategoryRepo struct{ pool *pgxpool.Pool }

func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &pgCategoryRepo{pool: pool}
}

func (r *pgCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	category.ID = uuid.New()
	err := querier(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO categories (id, store_id, name, created_at, updated_at) VALUES ($1, $2, $3, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		category.ID, category.StoreID, category.Name,
	).Scan(&category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		return translate("create category", err)
	}
	return nil
}

func (r *pgCategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	c := &model.Category{}
	err := querier(ctx, r.pool).QueryRow(ctx,
		`SELECT id, store_id, name, created_at, updated_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.StoreID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *pgCategoryRepo) List(ctx context.Context, storeID uuid.UUID) ([]model.Category, error) {
	var filter *uuid.UUID
	if storeID != uuid.Nil {
		filter = &storeID
	}
	rows, err := querier(ctx, r.pool).Query(ctx,
		`SELECT id, store_id, name, created_at, updated_at FROM categories
		 WHERE ($1::uuid IS NULL OR store_id = $1) ORDER BY name`,
		filter,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.StoreID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *pgCategoryRepo) Update(ctx context.Context, category *model.Category) error {
	err := querier(ctx, r.pool).QueryRow(ctx,
		`UPDATE categories SET name=$2, updated_at=NOW() WHERE id=$1 RETURNING updated_at`,
		category.ID, category.Name,
	).Scan(&category.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return translate("update category", err)
	}
	return nil
}

func (r *pgCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
