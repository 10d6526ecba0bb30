package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/campaignhub/backend/internal/apperrors"
	"github.com/campaignhub/backend/internal/metrics"
	"github.com/campaignhub/backend/internal/models"
	"github.com/campaignhub/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ContactService struct {
	contactRepo repositories.ContactRepository
	auditRepo   repositories.AuditRepository
	metrics     *metrics.Metrics
	log         *zap.Logger
}

func NewContactService(
	contactRepo repositories.ContactRepository,
	auditRepo repositories.AuditRepository,
	m *metrics.Metrics,
	log *zap.Logger,
) *ContactService {
	return &ContactService{
		contactRepo: contactRepo,
		auditRepo:   auditRepo,
		metrics:     m,
		log:         log,
	}
}

func (s *ContactService) Create(ctx context.Context, accountID uuid.UUID, c *models.Contact) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Mobile = strings.TrimSpace(c.Mobile)
	c.Location = strings.TrimSpace(c.Location)
	c.Label = strings.TrimSpace(c.Label)
	// Location is optional on direct create; only CSV import demands it.
	if c.Name == "" || c.Mobile == "" {
		return apperrors.Validation("MISSING_FIELDS", "name and mobile are required")
	}

	c.AccountID = accountID
	return s.contactRepo.Create(ctx, c)
}

// getOwned loads a contact and enforces tenancy. Existence is reported
// before ownership: a contact of another account yields 403, not 404.
func (s *ContactService) getOwned(ctx context.Context, id, accountID uuid.UUID) (*models.Contact, error) {
	c, err := s.contactRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("contact not found")
		}
		return nil, err
	}
	if c.AccountID != accountID {
		return nil, apperrors.Authorization("contact belongs to another account")
	}
	return c, nil
}

func (s *ContactService) GetByID(ctx context.Context, id, accountID uuid.UUID) (*models.Contact, error) {
	return s.getOwned(ctx, id, accountID)
}

func (s *ContactService) List(ctx context.Context, accountID uuid.UUID, f repositories.ContactFilter) ([]models.Contact, error) {
	return s.contactRepo.List(ctx, accountID, f)
}

func (s *ContactService) Update(ctx context.Context, id, accountID uuid.UUID, upd *models.Contact) (*models.Contact, error) {
	existing, err := s.getOwned(ctx, id, accountID)
	if err != nil {
		return nil, err
	}

	upd.ID = existing.ID
	upd.AccountID = existing.AccountID
	upd.Name = strings.TrimSpace(upd.Name)
	upd.Mobile = strings.TrimSpace(upd.Mobile)
	upd.Location = strings.TrimSpace(upd.Location)
	upd.Label = strings.TrimSpace(upd.Label)
	if upd.Name == "" || upd.Mobile == "" {
		return nil, apperrors.Validation("MISSING_FIELDS", "name and mobile are required")
	}

	if err := s.contactRepo.Update(ctx, upd); err != nil {
		return nil, err
	}
	return upd, nil
}

func (s *ContactService) Delete(ctx context.Context, id, accountID uuid.UUID) error {
	if _, err := s.getOwned(ctx, id, accountID); err != nil {
		return err
	}
	return s.contactRepo.Delete(ctx, id)
}

// BatchDelete classifies every id independently; one bad id never aborts
// the rest of the batch.
func (s *ContactService) BatchDelete(ctx context.Context, accountID uuid.UUID, ids []uuid.UUID) models.BatchDeleteResult {
	var result models.BatchDeleteResult
	for _, id := range ids {
		c, err := s.contactRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				result.NotFound++
			} else {
				result.Errors++
			}
			continue
		}
		if c.AccountID != accountID {
			result.Unauthorized++
			continue
		}
		if err := s.contactRepo.Delete(ctx, id); err != nil {
			result.Errors++
			continue
		}
		result.Success++
	}
	return result
}

// csv columns recognized by import, matched case-insensitively.
var importColumns = map[string]string{
	"name":     "name",
	"mobile":   "mobile",
	"phone":    "mobile",
	"location": "location",
	"label":    "label",
}

// ImportCSV ingests a contact CSV. Rows missing name, mobile or location
// are skipped; with deduplicate on, a row whose mobile already exists in
// the account or earlier in the same file counts as a duplicate. The
// result is one aggregate per upload.
func (s *ContactService) ImportCSV(ctx context.Context, accountID uuid.UUID, r io.Reader, label string, deduplicate bool) (*models.ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.Validation("INVALID_CSV", "file is empty or not a valid csv")
	}

	colIdx := make(map[string]int)
	for i, col := range header {
		if field, ok := importColumns[strings.ToLower(strings.TrimSpace(col))]; ok {
			if _, dup := colIdx[field]; !dup {
				colIdx[field] = i
			}
		}
	}
	if _, ok := colIdx["name"]; !ok {
		return nil, apperrors.Validation("INVALID_CSV", "missing required column: name")
	}
	if _, ok := colIdx["mobile"]; !ok {
		return nil, apperrors.Validation("INVALID_CSV", "missing required column: mobile")
	}
	if _, ok := colIdx["location"]; !ok {
		return nil, apperrors.Validation("INVALID_CSV", "missing required column: location")
	}

	field := func(record []string, name string) string {
		i, ok := colIdx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	result := &models.ImportResult{}
	seen := make(map[string]bool) // mobiles earlier in this file

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Total++
			result.Skipped++
			continue
		}
		result.Total++

		name := field(record, "name")
		mobile := field(record, "mobile")
		location := field(record, "location")
		if name == "" || mobile == "" || location == "" {
			result.Skipped++
			continue
		}

		if deduplicate {
			if seen[mobile] {
				result.Duplicates++
				continue
			}
			if _, err := s.contactRepo.GetByMobile(ctx, accountID, mobile); err == nil {
				result.Duplicates++
				seen[mobile] = true
				continue
			} else if !errors.Is(err, repositories.ErrNotFound) {
				return nil, err
			}
		}

		rowLabel := field(record, "label")
		if rowLabel == "" {
			rowLabel = label
		}

		contact := &models.Contact{
			AccountID: accountID,
			Name:      name,
			Mobile:    mobile,
			Location:  location,
			Label:     rowLabel,
		}
		if err := s.contactRepo.Create(ctx, contact); err != nil {
			return nil, fmt.Errorf("import row %d: %w", result.Total, err)
		}
		seen[mobile] = true
		result.Imported++
	}

	if s.metrics != nil {
		s.metrics.ContactsImported.Add(float64(result.Imported))
	}

	_ = s.auditRepo.Log(ctx, models.AuditLog{
		AccountID:  &accountID,
		Action:     "contacts_imported",
		EntityType: "contact",
		Meta: map[string]any{
			"imported":   result.Imported,
			"duplicates": result.Duplicates,
			"skipped":    result.Skipped,
			"total":      result.Total,
		},
	})

	return result, nil
}
