// Package store defines the persistence contracts shared by the storage
// backends. Lookups return (nil, nil) when nothing matches; Delete returns
// ErrNotFound.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxzi/leadmail/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("lead with this email already exists")
)

// Driver names accepted by Open
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// LeadRepository stores leads. List returns leads in insertion order.
type LeadRepository interface {
	List(ctx context.Context) ([]models.Lead, error)
	Get(ctx context.Context, id string) (*models.Lead, error)
	Create(ctx context.Context, lead *models.Lead) error
	Update(ctx context.Context, lead *models.Lead) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// TemplateRepository stores email templates
type TemplateRepository interface {
	List(ctx context.Context) ([]models.Template, error)
	Get(ctx context.Context, id string) (*models.Template, error)
	Create(ctx context.Context, tmpl *models.Template) error
	Update(ctx context.Context, tmpl *models.Template) error
	Delete(ctx context.Context, id string) error
}

// CampaignRepository stores campaigns and their send logs.
// Campaigns are listed newest first; logs in append order.
type CampaignRepository interface {
	Create(ctx context.Context, c *models.Campaign) error
	Get(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context) ([]models.Campaign, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, c *models.Campaign) error
	Delete(ctx context.Context, id string) error
	AppendLog(ctx context.Context, entry *models.SendLogEntry) error
	// ListLogs returns logs for one campaign, or all logs when campaignID is empty
	ListLogs(ctx context.Context, campaignID string) ([]models.SendLogEntry, error)
}

// SettingsRepository stores the SMTP settings singleton
type SettingsRepository interface {
	GetSMTP(ctx context.Context) (*models.SMTPSettings, error)
	SaveSMTP(ctx context.Context, s *models.SMTPSettings) error
}

// Store bundles the repositories of one backend
type Store interface {
	Leads() LeadRepository
	Templates() TemplateRepository
	Campaigns() CampaignRepository
	Settings() SettingsRepository
	// ClearAll removes leads, campaigns and logs and reseeds the default template.
	// SMTP settings survive.
	ClearAll(ctx context.Context) error
	Close() error
}

// SeedDefaultTemplate inserts the default template when no template exists
func SeedDefaultTemplate(ctx context.Context, templates TemplateRepository) error {
	list, err := templates.List(ctx)
	if err != nil {
		return err
	}
	if len(list) > 0 {
		return nil
	}
	if err := templates.Create(ctx, models.DefaultTemplate()); err != nil {
		return fmt.Errorf("failed to seed default template: %w", err)
	}
	return nil
}
