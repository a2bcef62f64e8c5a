package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is implemented by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

// Transactor runs a function inside a database transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

type pgTransactor struct{ pool *pgxpool.Pool }

func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &pgTransactor{pool: pool}
}

// InTx commits when fn returns nil and rolls back otherwise. Repositories
// called with the context passed to fn join the transaction; a nested InTx
// reuses the outer one.
func (t *pgTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func querier(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return pool
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// ConstraintError is a database constraint violation. Services translate it
// into field-scoped validation errors by constraint name.
type ConstraintError struct {
	Constraint string
	Code       string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s violated: %v", e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraint reports whether err is a violation of the named constraint.
func IsConstraint(err error, name string) bool {
	var ce *ConstraintError
	return errors.As(err, &ce) && ce.Constraint == name
}

// translate turns constraint violations into *ConstraintError and wraps
// everything else with op.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeForeignKeyViolation, codeCheckViolation:
			return &ConstraintError{Constraint: pgErr.ConstraintName, Code: pgErr.Code, Err: err}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Constraint names from the schema in internal/migrations.
const (
	ConstraintUserEmail           = "users_email_key"
	ConstraintStoreName           = "stores_name_key"
	ConstraintStoreEmail          = "stores_email_key"
	ConstraintStoreUser           = "stores_user_id_key"
	ConstraintCategoryName        = "unique_store_category_name"
	ConstraintProductName         = "unique_store_product_name"
	ConstraintCartProduct         = "unique_cart_product"
	ConstraintCartItemQuantity    = "cart_items_quantity_check"
	ConstraintOrderStore          = "orders_store_id_fkey"
	ConstraintFeedbackPerCustomer = "unique_order_customer_feedback"
	ConstraintProductCategory     = "products_category_id_fkey"
)
