package repositories

import (
	"context"

	"github.com/campaignhub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, m *models.Message) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO messages (campaign_id, contact_id, external_id, status, error)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, m.CampaignID, m.ContactID, m.ExternalID, m.Status, m.Error).Scan(&m.ID, &m.CreatedAt)
}

func (r *MessageRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, campaign_id, contact_id, external_id, status, error, created_at
		FROM messages WHERE campaign_id = $1
		ORDER BY created_at LIMIT $2 OFFSET $3
	`, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.CampaignID, &m.ContactID, &m.ExternalID,
			&m.Status, &m.Error, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
