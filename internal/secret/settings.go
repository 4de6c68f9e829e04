package secret

import (
	"context"
	"fmt"

	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
)

// SettingsRepository seals the SMTP password on save and opens it on load
type SettingsRepository struct {
	next store.SettingsRepository
	box  *Box
}

// WrapSettings returns a repository that seals passwords through box
func WrapSettings(next store.SettingsRepository, box *Box) *SettingsRepository {
	return &SettingsRepository{next: next, box: box}
}

func (r *SettingsRepository) GetSMTP(ctx context.Context) (*models.SMTPSettings, error) {
	s, err := r.next.GetSMTP(ctx)
	if err != nil || s == nil {
		return s, err
	}
	out := *s
	if out.Pass, err = r.box.Open(s.Pass); err != nil {
		return nil, fmt.Errorf("failed to open smtp password: %w", err)
	}
	return &out, nil
}

func (r *SettingsRepository) SaveSMTP(ctx context.Context, s *models.SMTPSettings) error {
	sealed := *s
	var err error
	if sealed.Pass, err = r.box.Seal(s.Pass); err != nil {
		return err
	}
	return r.next.SaveSMTP(ctx, &sealed)
}

// Store overrides Settings of an underlying store
type Store struct {
	store.Store
	settings *SettingsRepository
}

// WrapStore seals SMTP passwords stored through s
func WrapStore(s store.Store, box *Box) *Store {
	return &Store{Store: s, settings: WrapSettings(s.Settings(), box)}
}

func (s *Store) Settings() store.SettingsRepository {
	return s.settings
}
