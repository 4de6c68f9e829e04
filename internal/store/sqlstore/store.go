// Package sqlstore implements store.Store on SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/foxzi/leadmail/internal/db"
	"github.com/foxzi/leadmail/internal/store"
)

// Store is a SQLite-backed store.Store
type Store struct {
	db        *db.DB
	leads     *LeadRepository
	templates *TemplateRepository
	campaigns *CampaignRepository
	settings  *SettingsRepository
}

// Open opens the database at path, migrates it and seeds the default template
func Open(ctx context.Context, path string) (*Store, error) {
	d, err := db.New(path)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}

	s := New(d)
	if err := store.SeedDefaultTemplate(ctx, s.templates); err != nil {
		d.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already migrated database
func New(d *db.DB) *Store {
	return &Store{
		db:        d,
		leads:     NewLeadRepository(d.DB),
		templates: NewTemplateRepository(d.DB),
		campaigns: NewCampaignRepository(d.DB),
		settings:  NewSettingsRepository(d.DB),
	}
}

func (s *Store) Leads() store.LeadRepository         { return s.leads }
func (s *Store) Templates() store.TemplateRepository { return s.templates }
func (s *Store) Campaigns() store.CampaignRepository { return s.campaigns }
func (s *Store) Settings() store.SettingsRepository  { return s.settings }

// ClearAll wipes leads, campaigns, logs and templates in one transaction,
// then reseeds the default template
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM send_logs",
		"DELETE FROM campaigns",
		"DELETE FROM leads",
		"DELETE FROM templates",
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("failed to clear data: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return store.SeedDefaultTemplate(ctx, s.templates)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
