package repositories

import (
	"context"
	"fmt"

	"github.com/campaignhub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ContactRepo struct {
	pool *pgxpool.Pool
}

func NewContactRepo(pool *pgxpool.Pool) *ContactRepo {
	return &ContactRepo{pool: pool}
}

const contactColumns = `id, account_id, name, mobile, location, label, created_at`

func (r *ContactRepo) Create(ctx context.Context, c *models.Contact) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO contacts (account_id, name, mobile, location, label)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, c.AccountID, c.Name, c.Mobile, c.Location, c.Label).Scan(&c.ID, &c.CreatedAt)
}

func (r *ContactRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Contact, error) {
	var c models.Contact
	err := r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+` FROM contacts WHERE id = $1
	`, id).Scan(&c.ID, &c.AccountID, &c.Name, &c.Mobile, &c.Location, &c.Label, &c.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &c, nil
}

func (r *ContactRepo) GetByMobile(ctx context.Context, accountID uuid.UUID, mobile string) (*models.Contact, error) {
	var c models.Contact
	err := r.pool.QueryRow(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE account_id = $1 AND mobile = $2
		ORDER BY created_at LIMIT 1
	`, accountID, mobile).Scan(&c.ID, &c.AccountID, &c.Name, &c.Mobile, &c.Location, &c.Label, &c.CreatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &c, nil
}

func (r *ContactRepo) List(ctx context.Context, accountID uuid.UUID, f ContactFilter) ([]models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE account_id = $1`
	args := []any{accountID}
	argIdx := 2

	if f.Label != nil {
		query += fmt.Sprintf(" AND label = $%d", argIdx)
		args = append(args, *f.Label)
		argIdx++
	}
	if f.Search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR mobile ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+f.Search+"%")
		argIdx++
	}

	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	return r.scanContacts(ctx, query, args...)
}

func (r *ContactRepo) ListSegment(ctx context.Context, accountID uuid.UUID, label *string) ([]models.Contact, error) {
	if label == nil {
		return r.scanContacts(ctx, `
			SELECT `+contactColumns+` FROM contacts WHERE account_id = $1 ORDER BY created_at
		`, accountID)
	}
	return r.scanContacts(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE account_id = $1 AND label = $2 ORDER BY created_at
	`, accountID, *label)
}

func (r *ContactRepo) scanContacts(ctx context.Context, query string, args ...any) ([]models.Contact, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		var c models.Contact
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name, &c.Mobile, &c.Location, &c.Label, &c.CreatedAt); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func (r *ContactRepo) Update(ctx context.Context, c *models.Contact) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE contacts SET name = $1, mobile = $2, location = $3, label = $4
		WHERE id = $5
	`, c.Name, c.Mobile, c.Location, c.Label, c.ID)
	return err
}

func (r *ContactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	return err
}
