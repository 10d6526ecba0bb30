package repositories

import (
	"context"

	"github.com/campaignhub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepo(pool *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

const analyticsColumns = `id, campaign_id, account_id, sent, delivered, read, optout, hold, failed, updated_at`

func (r *AnalyticsRepo) Init(ctx context.Context, campaignID, accountID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO analytics (campaign_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT (campaign_id) DO UPDATE SET
			sent = 0, delivered = 0, read = 0, optout = 0, hold = 0, failed = 0,
			updated_at = now()
	`, campaignID, accountID)
	return err
}

// Merge overwrites only the supplied counters; nil fields keep prior values.
func (r *AnalyticsRepo) Merge(ctx context.Context, campaignID uuid.UUID, upd models.AnalyticsUpdate) (*models.Analytics, error) {
	var a models.Analytics
	err := r.pool.QueryRow(ctx, `
		UPDATE analytics SET
			sent = COALESCE($2, sent),
			delivered = COALESCE($3, delivered),
			read = COALESCE($4, read),
			optout = COALESCE($5, optout),
			hold = COALESCE($6, hold),
			failed = COALESCE($7, failed),
			updated_at = now()
		WHERE campaign_id = $1
		RETURNING `+analyticsColumns+`
	`, campaignID, upd.Sent, upd.Delivered, upd.Read, upd.Optout, upd.Hold, upd.Failed,
	).Scan(&a.ID, &a.CampaignID, &a.AccountID, &a.Sent, &a.Delivered, &a.Read,
		&a.Optout, &a.Hold, &a.Failed, &a.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &a, nil
}

func (r *AnalyticsRepo) GetByCampaign(ctx context.Context, campaignID uuid.UUID) (*models.Analytics, error) {
	var a models.Analytics
	err := r.pool.QueryRow(ctx, `
		SELECT `+analyticsColumns+` FROM analytics WHERE campaign_id = $1
	`, campaignID).Scan(&a.ID, &a.CampaignID, &a.AccountID, &a.Sent, &a.Delivered,
		&a.Read, &a.Optout, &a.Hold, &a.Failed, &a.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &a, nil
}

func (r *AnalyticsRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Analytics, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+analyticsColumns+` FROM analytics
		WHERE account_id = $1 ORDER BY updated_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Analytics
	for rows.Next() {
		var a models.Analytics
		if err := rows.Scan(&a.ID, &a.CampaignID, &a.AccountID, &a.Sent, &a.Delivered,
			&a.Read, &a.Optout, &a.Hold, &a.Failed, &a.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
