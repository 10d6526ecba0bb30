package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/campaignhub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

const campaignColumns = `id, account_id, name, template, contact_label, status, scheduled_at, created_at, updated_at`

func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (account_id, name, template, contact_label, status, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, c.AccountID, c.Name, c.Template, c.ContactLabel, c.Status, c.ScheduledAt,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var c models.Campaign
	err := r.pool.QueryRow(ctx, `
		SELECT `+campaignColumns+` FROM campaigns WHERE id = $1
	`, id).Scan(&c.ID, &c.AccountID, &c.Name, &c.Template, &c.ContactLabel,
		&c.Status, &c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &c, nil
}

func (r *CampaignRepo) List(ctx context.Context, accountID uuid.UUID, f CampaignFilter) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE account_id = $1`
	args := []any{accountID}
	argIdx := 2

	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *f.Status)
		argIdx++
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	return r.scanCampaigns(ctx, query, args...)
}

func (r *CampaignRepo) Update(ctx context.Context, c *models.Campaign) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET name = $1, template = $2, contact_label = $3,
		       scheduled_at = $4, updated_at = now()
		WHERE id = $5
	`, c.Name, c.Template, c.ContactLabel, c.ScheduledAt, c.ID)
	return err
}

func (r *CampaignRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	return err
}

// ClaimLaunch is the conditional draft->active update that closes the
// concurrent-launch race: only one caller observes a claimed row.
func (r *CampaignRepo) ClaimLaunch(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, models.CampaignStatusActive, id, models.CampaignStatusDraft)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *CampaignRepo) ReleaseLaunch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, models.CampaignStatusDraft, id, models.CampaignStatusActive)
	return err
}

func (r *CampaignRepo) ListDueScheduled(ctx context.Context, now time.Time) ([]models.Campaign, error) {
	return r.scanCampaigns(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at
	`, models.CampaignStatusDraft, now)
}

func (r *CampaignRepo) scanCampaigns(ctx context.Context, query string, args ...any) ([]models.Campaign, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name, &c.Template, &c.ContactLabel,
			&c.Status, &c.ScheduledAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}
