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

// ProductFilter drives List. StoreID and CategoryID are ignored when nil;
// a zero Limit returns every match.
type ProductFilter struct {
	StoreID       uuid.UUID
	CategoryID    uuid.UUID
	AvailableOnly bool
	Search        string
	Sort          string
	Order         string
	Limit         int
	Offset        int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	UpdateImage(ctx context.Context, id uuid.UUID, image string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productSelect = `SELECT p.id, p.store_id, p.category_id, p.name, p.description, p.price, p.image,
		p.is_available, c.name, s.name, p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id
	JOIN stores s ON s.id = p.store_id`

func scanProduct(row pgx.Row) (*model.Product, error) {
	p := &model.Product{}
	err := row.Scan(
		&p.ID, &p.StoreID, &p.CategoryID, &p.Name, &p.Description, &p.Price, &p.Image,
		&p.IsAvailable, &p.CategoryName, &p.StoreName, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	if product.Image == "" {
		product.Image = model.DefaultProductImage
	}
	product.ID = uuid.New()
	query := `INSERT INTO products (id, store_id, category_id, name, description, price, image, is_available, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW()) RETURNING created_at, updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		product.ID, product.StoreID, product.CategoryID, product.Name, product.Description,
		product.Price, product.Image, product.IsAvailable,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return translate("create product", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p, err := scanProduct(querier(ctx, r.pool).QueryRow(ctx, productSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func optionalID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func (r *pgProductRepo) List(ctx context.Context, filter ProductFilter) ([]model.Product, int, error) {
	allowedSorts := map[string]string{"name": "p.name", "price": "p.price", "created_at": "p.created_at"}
	sort, ok := allowedSorts[filter.Sort]
	if !ok {
		sort = "p.created_at"
	}
	order := filter.Order
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	where := `WHERE ($1 = '' OR p.name ILIKE '%' || $1 || '%' OR p.description ILIKE '%' || $1 || '%')
		  AND ($2::uuid IS NULL OR p.store_id = $2)
		  AND ($3::uuid IS NULL OR p.category_id = $3)
		  AND ($4 = FALSE OR p.is_available)`
	args := []any{filter.Search, optionalID(filter.StoreID), optionalID(filter.CategoryID), filter.AvailableOnly}

	q := querier(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM products p `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`%s %s ORDER BY %s %s LIMIT $5 OFFSET $6`, productSelect, where, sort, order)
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}
	rows, err := q.Query(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET category_id=$2, name=$3, description=$4, price=$5, is_available=$6, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		product.ID, product.CategoryID, product.Name, product.Description, product.Price, product.IsAvailable,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		return translate("update product", err)
	}
	return nil
}

func (r *pgProductRepo) UpdateImage(ctx context.Context, id uuid.UUID, image string) error {
	ct, err := querier(ctx, r.pool).Exec(ctx, `UPDATE products SET image=$2, updated_at=NOW() WHERE id=$1`, id, image)
	if err != nil {
		return fmt.Errorf("update product image: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
