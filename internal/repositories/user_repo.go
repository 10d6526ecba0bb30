package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/campaignhub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO accounts (name) VALUES ($1)
		RETURNING id, created_at
	`, a.Name).Scan(&a.ID, &a.CreatedAt)
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &a, nil
}

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, account_id, username, password, name, email, reset_nonce, reset_expires_at, created_at`

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (account_id, username, password, name, email)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, u.AccountID, u.Username, u.Password, u.Name, u.Email).Scan(&u.ID, &u.CreatedAt)
	return translateErr(err)
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepo) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID, &u.AccountID, &u.Username, &u.Password, &u.Name, &u.Email,
		&u.ResetNonce, &u.ResetExpiresAt, &u.CreatedAt,
	)
	if err != nil {
		return nil, translateErr(err)
	}
	return &u, nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, verifier string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password = $1 WHERE id = $2`, verifier, id)
	return err
}

func (r *UserRepo) SetResetNonce(ctx context.Context, id uuid.UUID, nonce string, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET reset_nonce = $1, reset_expires_at = $2 WHERE id = $3
	`, nonce, expiresAt, id)
	return err
}

func (r *UserRepo) ClearResetNonce(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users SET reset_nonce = NULL, reset_expires_at = NULL WHERE id = $1
	`, id)
	return err
}

// translateErr maps driver errors onto the repository sentinels.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
