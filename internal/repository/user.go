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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	GroupNames(ctx context.Context, userID uuid.UUID) ([]string, error)
	AddToGroup(ctx context.Context, userID uuid.UUID, group string) error
	RemoveFromGroup(ctx context.Context, userID uuid.UUID, group string) error
}

type pgUserRepo struct{ pool *pgxpool.Pool }

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &pgUserRepo{pool: pool}
}

const userColumns = `id, email, username, password_hash, first_name, last_name, birth_date, address, is_staff, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	var birth pgtype.Date
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.Password, &u.FirstName, &u.LastName,
		&birth, &u.Address, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if birth.Valid {
		u.BirthDate = birth.Time
	}
	return u, nil
}

func birthDate(u *model.User) pgtype.Date {
	if u.BirthDate.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: u.BirthDate, Valid: true}
}

func (r *pgUserRepo) Create(ctx context.Context, user *model.User) error {
	user.ID = uuid.New()
	query := `INSERT INTO users (id, email, username, password_hash, first_name, last_name, birth_date, address, is_staff, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		user.ID, user.Email, user.Username, user.Password, user.FirstName, user.LastName,
		birthDate(user), user.Address, user.IsStaff,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return translate("create user", err)
	}
	return nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := querier(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := querier(ctx, r.pool).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *pgUserRepo) Update(ctx context.Context, user *model.User) error {
	query := `UPDATE users SET username=$2, first_name=$3, last_name=$4, birth_date=$5, address=$6, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		user.ID, user.Username, user.FirstName, user.LastName, birthDate(user), user.Address,
	).Scan(&user.UpdatedAt)
	if err != nil {
		return translate("update user", err)
	}
	return nil
}

func (r *pgUserRepo) GroupNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := querier(ctx, r.pool).Query(ctx,
		`SELECT g.name FROM groups g JOIN user_groups ug ON ug.group_id = g.id WHERE ug.user_id = $1 ORDER BY g.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan groups: %w", err)
	}
	return names, nil
}

func (r *pgUserRepo) AddToGroup(ctx context.Context, userID uuid.UUID, group string) error {
	ct, err := querier(ctx, r.pool).Exec(ctx,
		`INSERT INTO user_groups (user_id, group_id)
		 SELECT $1, id FROM groups WHERE name = $2
		 ON CONFLICT DO NOTHING`,
		userID, group,
	)
	if err != nil {
		return translate("add user to group", err)
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := querier(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM groups WHERE name = $1)`, group).Scan(&exists); err != nil {
			return fmt.Errorf("check group: %w", err)
		}
		if !exists {
			return fmt.Errorf("group %q does not exist", group)
		}
	}
	return nil
}

func (r *pgUserRepo) RemoveFromGroup(ctx context.Context, userID uuid.UUID, group string) error {
	_, err := querier(ctx, r.pool).Exec(ctx,
		`DELETE FROM user_groups WHERE user_id = $1 AND group_id = (SELECT id FROM groups WHERE name = $2)`,
		userID, group,
	)
	if err != nil {
		return fmt.Errorf("remove user from group: %w", err)
	}
	return nil
}
