// Package memstore keeps all data in process memory. Data lives until the
// process exits or ClearAll is called.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
)

// Store is an in-memory store.Store
type Store struct {
	mu sync.RWMutex

	leads     []models.Lead
	templates []models.Template
	campaigns []models.Campaign
	logs      []models.SendLogEntry
	smtp      *models.SMTPSettings
	logSeq    int64
}

// New creates an empty store seeded with the default template
func New() *Store {
	s := &Store{}
	s.seedLocked()
	return s
}

func (s *Store) seedLocked() {
	t := models.DefaultTemplate()
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	s.templates = []models.Template{*t}
}

func (s *Store) Leads() store.LeadRepository         { return leadRepo{s} }
func (s *Store) Templates() store.TemplateRepository { return templateRepo{s} }
func (s *Store) Campaigns() store.CampaignRepository { return campaignRepo{s} }
func (s *Store) Settings() store.SettingsRepository  { return settingsRepo{s} }

// ClearAll drops everything but the SMTP settings
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = nil
	s.campaigns = nil
	s.logs = nil
	s.seedLocked()
	return nil
}

// Close is a no-op
func (s *Store) Close() error { return nil }

type leadRepo struct{ s *Store }

func (r leadRepo) List(ctx context.Context) ([]models.Lead, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]models.Lead(nil), r.s.leads...), nil
}

func (r leadRepo) Get(ctx context.Context, id string) (*models.Lead, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.leads {
		if r.s.leads[i].ID == id {
			l := r.s.leads[i]
			return &l, nil
		}
	}
	return nil, nil
}

func (r leadRepo) Create(ctx context.Context, lead *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.leads {
		if r.s.leads[i].Email == lead.Email {
			return store.ErrDuplicateEmail
		}
	}
	lead.ID = uuid.New().String()
	lead.CreatedAt = time.Now()
	r.s.leads = append(r.s.leads, *lead)
	return nil
}

func (r leadRepo) Update(ctx context.Context, lead *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	idx := -1
	for i := range r.s.leads {
		switch {
		case r.s.leads[i].ID == lead.ID:
			idx = i
		case r.s.leads[i].Email == lead.Email:
			return store.ErrDuplicateEmail
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}
	lead.CreatedAt = r.s.leads[idx].CreatedAt
	r.s.leads[idx] = *lead
	return nil
}

func (r leadRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.leads {
		if r.s.leads[i].ID == id {
			r.s.leads = append(r.s.leads[:i], r.s.leads[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (r leadRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.leads), nil
}

type templateRepo struct{ s *Store }

func (r templateRepo) List(ctx context.Context) ([]models.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]models.Template(nil), r.s.templates...), nil
}

func (r templateRepo) Get(ctx context.Context, id string) (*models.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.templates {
		if r.s.templates[i].ID == id {
			t := r.s.templates[i]
			return &t, nil
		}
	}
	return nil, nil
}

func (r templateRepo) Create(ctx context.Context, tmpl *models.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tmpl.ID = uuid.New().String()
	tmpl.CreatedAt = time.Now()
	tmpl.UpdatedAt = tmpl.CreatedAt
	r.s.templates = append(r.s.templates, *tmpl)
	return nil
}

func (r templateRepo) Update(ctx context.Context, tmpl *models.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.templates {
		if r.s.templates[i].ID == tmpl.ID {
			tmpl.CreatedAt = r.s.templates[i].CreatedAt
			tmpl.UpdatedAt = time.Now()
			r.s.templates[i] = *tmpl
			return nil
		}
	}
	return store.ErrNotFound
}

func (r templateRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.templates {
		if r.s.templates[i].ID == id {
			r.s.templates = append(r.s.templates[:i], r.s.templates[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type campaignRepo struct{ s *Store }

func (r campaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = uuid.New().String()
	if c.SentAt.IsZero() {
		c.SentAt = time.Now()
	}
	r.s.campaigns = append(r.s.campaigns, *c)
	return nil
}

func (r campaignRepo) Get(ctx context.Context, id string) (*models.Campaign, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := range r.s.campaigns {
		if r.s.campaigns[i].ID == id {
			c := r.s.campaigns[i]
			return &c, nil
		}
	}
	return nil, nil
}

func (r campaignRepo) List(ctx context.Context) ([]models.Campaign, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.Campaign, 0, len(r.s.campaigns))
	for i := len(r.s.campaigns) - 1; i >= 0; i-- {
		out = append(out, r.s.campaigns[i])
	}
	return out, nil
}

func (r campaignRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.campaigns), nil
}

func (r campaignRepo) Update(ctx context.Context, c *models.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.campaigns {
		if r.s.campaigns[i].ID == c.ID {
			r.s.campaigns[i] = *c
			return nil
		}
	}
	return store.ErrNotFound
}

func (r campaignRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	idx := -1
	for i := range r.s.campaigns {
		if r.s.campaigns[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.ErrNotFound
	}
	r.s.campaigns = append(r.s.campaigns[:idx], r.s.campaigns[idx+1:]...)

	kept := r.s.logs[:0]
	for _, e := range r.s.logs {
		if e.CampaignID != id {
			kept = append(kept, e)
		}
	}
	r.s.logs = kept
	return nil
}

func (r campaignRepo) AppendLog(ctx context.Context, entry *models.SendLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.logSeq++
	entry.ID = r.s.logSeq
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	r.s.logs = append(r.s.logs, *entry)
	return nil
}

func (r campaignRepo) ListLogs(ctx context.Context, campaignID string) ([]models.SendLogEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []models.SendLogEntry{}
	for _, e := range r.s.logs {
		if campaignID == "" || e.CampaignID == campaignID {
			out = append(out, e)
		}
	}
	return out, nil
}

type settingsRepo struct{ s *Store }

func (r settingsRepo) GetSMTP(ctx context.Context) (*models.SMTPSettings, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if r.s.smtp == nil {
		return nil, nil
	}
	cp := *r.s.smtp
	return &cp, nil
}

func (r settingsRepo) SaveSMTP(ctx context.Context, settings *models.SMTPSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *settings
	r.s.smtp = &cp
	return nil
}
