package repositories

import (
	"context"

	"github.com/campaignhub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) GetByAccount(ctx context.Context, accountID uuid.UUID) (*models.Settings, error) {
	var s models.Settings
	err := r.pool.QueryRow(ctx, `
		SELECT id, account_id, api_url, access_token, phone_number_id, waba_id, campaign_api_key, updated_at
		FROM settings WHERE account_id = $1
	`, accountID).Scan(&s.ID, &s.AccountID, &s.APIURL, &s.AccessToken,
		&s.PhoneNumberID, &s.WABAID, &s.CampaignAPIKey, &s.UpdatedAt)
	if err != nil {
		return nil, translateErr(err)
	}
	return &s, nil
}

func (r *SettingsRepo) Upsert(ctx context.Context, s *models.Settings) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO settings (account_id, api_url, access_token, phone_number_id, waba_id, campaign_api_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE SET
			api_url = EXCLUDED.api_url,
			access_token = EXCLUDED.access_token,
			phone_number_id = EXCLUDED.phone_number_id,
			waba_id = EXCLUDED.waba_id,
			campaign_api_key = EXCLUDED.campaign_api_key,
			updated_at = now()
		RETURNING id, updated_at
	`, s.AccountID, s.APIURL, s.AccessToken, s.PhoneNumberID, s.WABAID, s.CampaignAPIKey,
	).Scan(&s.ID, &s.UpdatedAt)
}
