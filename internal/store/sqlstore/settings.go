package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/foxzi/leadmail/internal/models"
)

const settingSMTP = "smtp"

// SettingsRepository keeps named settings as JSON values
type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting returns a raw setting value, or "" when unset
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SettingsRepository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now(),
	)
	return err
}

func (r *SettingsRepository) GetSMTP(ctx context.Context) (*models.SMTPSettings, error) {
	raw, err := r.GetSetting(ctx, settingSMTP)
	if err != nil {
		return nil, fmt.Errorf("failed to get smtp settings: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var s models.SMTPSettings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to decode smtp settings: %w", err)
	}
	return &s, nil
}

func (r *SettingsRepository) SaveSMTP(ctx context.Context, s *models.SMTPSettings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := r.SetSetting(ctx, settingSMTP, string(data)); err != nil {
		return fmt.Errorf("failed to save smtp settings: %w", err)
	}
	return nil
}
