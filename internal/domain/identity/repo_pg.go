package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rah/rah/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userColumns = `user_id::text, first_name, last_name, username, email,
		        COALESCE(branch,''), COALESCE(location,''), password_argon2, is_active, deleted_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Username, &u.Email,
		&u.Branch, &u.Location, &u.PasswordHash, &u.IsActive, &u.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user scan: %w", err)
	}
	return &u, nil
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM user_account
		 WHERE username = $1 AND deleted_at IS NULL AND is_active`, userColumns), username))
}

func (r *repoPG) GetByID(ctx context.Context, userID string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM user_account
		 WHERE user_id = $1 AND deleted_at IS NULL AND is_active`, userColumns), userID))
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO user_account
		   (first_name, last_name, username, email, branch, location, password_argon2)
		 VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7)
		 RETURNING user_id::text`,
		u.FirstName, u.LastName, u.Username, u.Email, u.Branch, u.Location, u.PasswordHash).
		Scan(&u.UserID)
	if err != nil {
		return fmt.Errorf("user create: %w", err)
	}
	u.IsActive = true
	return nil
}

func (r *repoPG) List(ctx context.Context) ([]*User, error) {
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM user_account
		 WHERE deleted_at IS NULL ORDER BY username`, userColumns))
	if err != nil {
		return nil, fmt.Errorf("user list: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.UserID, &u.FirstName, &u.LastName, &u.Username, &u.Email,
			&u.Branch, &u.Location, &u.PasswordHash, &u.IsActive, &u.DeletedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (r *repoPG) Deactivate(ctx context.Context, userID string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE user_account SET is_active = false, deleted_at = now()
		 WHERE user_id = $1 AND deleted_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("user deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
