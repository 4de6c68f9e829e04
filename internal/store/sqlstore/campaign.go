package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/leadmail/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `id, name, template_id, template_name, recipient_count, status,
	zoom_link, meeting_date, meeting_time, sent, failed, sent_at, started_at, completed_at`

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	c := &models.Campaign{}
	var startedAt, completedAt sql.NullTime
	err := row.Scan(&c.ID, &c.Name, &c.TemplateID, &c.TemplateName, &c.RecipientCount, &c.Status,
		&c.ZoomLink, &c.MeetingDate, &c.MeetingTime, &c.Sent, &c.Failed, &c.SentAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	c.StartedAt = nullTime(startedAt)
	c.CompletedAt = nullTime(completedAt)
	return c, nil
}

func (r *CampaignRepository) Create(ctx context.Context, c *models.Campaign) error {
	c.ID = uuid.New().String()
	if c.SentAt.IsZero() {
		c.SentAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, name, template_id, template_name, recipient_count, status,
			zoom_link, meeting_date, meeting_time, sent, failed, sent_at, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.TemplateID, c.TemplateName, c.RecipientCount, c.Status,
		c.ZoomLink, c.MeetingDate, c.MeetingTime, c.Sent, c.Failed, c.SentAt, c.StartedAt, c.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) Get(ctx context.Context, id string) (*models.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, "SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List returns campaigns newest first
func (r *CampaignRepository) List(ctx context.Context) ([]models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+campaignColumns+" FROM campaigns ORDER BY seq DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

func (r *CampaignRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM campaigns").Scan(&n)
	return n, err
}

func (r *CampaignRepository) Update(ctx context.Context, c *models.Campaign) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET name = ?, status = ?, recipient_count = ?, sent = ?, failed = ?,
			started_at = ?, completed_at = ?
		WHERE id = ?`,
		c.Name, c.Status, c.RecipientCount, c.Sent, c.Failed, c.StartedAt, c.CompletedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	return expectAffected(res)
}

// Delete removes the campaign; its logs go with it via ON DELETE CASCADE
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM campaigns WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete campaign: %w", err)
	}
	return expectAffected(res)
}

func (r *CampaignRepository) AppendLog(ctx context.Context, e *models.SendLogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO send_logs (campaign_id, lead_id, email, name, status, message, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.CampaignID, e.LeadID, e.Email, e.Name, e.Status, e.Message, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append send log: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (r *CampaignRepository) ListLogs(ctx context.Context, campaignID string) ([]models.SendLogEntry, error) {
	query := "SELECT id, campaign_id, lead_id, email, name, status, message, timestamp FROM send_logs WHERE 1=1"
	args := []any{}
	if campaignID != "" {
		query += " AND campaign_id = ?"
		args = append(args, campaignID)
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list send logs: %w", err)
	}
	defer rows.Close()

	entries := []models.SendLogEntry{}
	for rows.Next() {
		var e models.SendLogEntry
		var leadID sql.NullString
		if err := rows.Scan(&e.ID, &e.CampaignID, &leadID, &e.Email, &e.Name, &e.Status, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		if leadID.Valid {
			e.LeadID = &leadID.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
