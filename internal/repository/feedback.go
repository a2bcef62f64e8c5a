package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foodville/marketplace-api/internal/model"
)

type FeedbackRepository interface {
	Create(ctx context.Context, feedback *model.Feedback) error
	ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.Feedback, error)
	ListAll(ctx context.Context) ([]model.Feedback, error)
}

type pgFeedbackRepo struct{ pool *pgxpool.Pool }

func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &pgFeedbackRepo{pool: pool}
}

func scanFeedbackRow(row pgx.CollectableRow) (model.Feedback, error) {
	var f model.Feedback
	err := row.Scan(&f.ID, &f.OrderID, &f.CustomerID, &f.CustomerName, &f.Rating, &f.Description, &f.CreatedAt)
	return f, err
}

func (r *pgFeedbackRepo) Create(ctx context.Context, feedback *model.Feedback) error {
	feedback.ID = uuid.New()
	err := querier(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO feedbacks (id, order_id, customer_id, rating, description, created_at)
		 VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING created_at`,
		feedback.ID, feedback.OrderID, feedback.CustomerID, feedback.Rating, feedback.Description,
	).Scan(&feedback.CreatedAt)
	if err != nil {
		return translate("create feedback", err)
	}
	return nil
}

const feedbackSelect = `SELECT f.id, f.order_id, f.customer_id, TRIM(u.first_name || ' ' || u.last_name),
		f.rating, f.description, f.created_at
	FROM feedbacks f
	JOIN users u ON u.id = f.customer_id
	JOIN orders o ON o.id = f.order_id`

func (r *pgFeedbackRepo) ListByStore(ctx context.Context, storeID uuid.UUID) ([]model.Feedback, error) {
	return r.list(ctx, feedbackSelect+` WHERE o.store_id = $1 ORDER BY f.created_at DESC`, storeID)
}

func (r *pgFeedbackRepo) ListAll(ctx context.Context) ([]model.Feedback, error) {
	return r.list(ctx, feedbackSelect+` ORDER BY f.created_at DESC`)
}

func (r *pgFeedbackRepo) list(ctx context.Context, query string, args ...any) ([]model.Feedback, error) {
	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedbacks: %w", err)
	}
	feedbacks, err := pgx.CollectRows(rows, scanFeedbackRow)
	if err != nil {
		return nil, fmt.Errorf("scan feedback: %w", err)
	}
	return feedbacks, nil
}
