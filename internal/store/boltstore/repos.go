package boltstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
)

type leadRepo struct {
	db *bolt.DB
}

func (r *leadRepo) List(ctx context.Context) ([]models.Lead, error) {
	var leads []models.Lead
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		leads, err = list[models.Lead](tx, bucketLeads, false)
		return err
	})
	return leads, err
}

func (r *leadRepo) Get(ctx context.Context, id string) (*models.Lead, error) {
	var l models.Lead
	var found bool
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = load(tx, bucketLeads, bucketLeadIDs, id, &l)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &l, nil
}

func (r *leadRepo) Create(ctx context.Context, l *models.Lead) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket(bucketLeadEmails)
		if emails.Get([]byte(l.Email)) != nil {
			return store.ErrDuplicateEmail
		}

		rec := *l
		rec.ID = uuid.New().String()
		rec.CreatedAt = time.Now()
		if err := insert(tx, bucketLeads, bucketLeadIDs, rec.ID, &rec); err != nil {
			return fmt.Errorf("failed to create lead: %w", err)
		}
		if err := emails.Put([]byte(rec.Email), []byte(rec.ID)); err != nil {
			return err
		}

		*l = rec
		return nil
	})
}

func (r *leadRepo) Update(ctx context.Context, l *models.Lead) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		var cur models.Lead
		found, err := load(tx, bucketLeads, bucketLeadIDs, l.ID, &cur)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}

		emails := tx.Bucket(bucketLeadEmails)
		if owner := emails.Get([]byte(l.Email)); owner != nil && string(owner) != l.ID {
			return store.ErrDuplicateEmail
		}
		if cur.Email != l.Email {
			if err := emails.Delete([]byte(cur.Email)); err != nil {
				return err
			}
			if err := emails.Put([]byte(l.Email), []byte(l.ID)); err != nil {
				return err
			}
		}

		l.CreatedAt = cur.CreatedAt
		return replace(tx, bucketLeads, bucketLeadIDs, l.ID, l)
	})
}

func (r *leadRepo) Delete(ctx context.Context, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		var cur models.Lead
		found, err := load(tx, bucketLeads, bucketLeadIDs, id, &cur)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}
		if err := tx.Bucket(bucketLeadEmails).Delete([]byte(cur.Email)); err != nil {
			return err
		}
		return remove(tx, bucketLeads, bucketLeadIDs, id)
	})
}

func (r *leadRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketLeads).Stats().KeyN
		return nil
	})
	return n, err
}

type templateRepo struct {
	db *bolt.DB
}

func (r *templateRepo) List(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		templates, err = list[models.Template](tx, bucketTemplates, false)
		return err
	})
	return templates, err
}

func (r *templateRepo) Get(ctx context.Context, id string) (*models.Template, error) {
	var t models.Template
	var found bool
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = load(tx, bucketTemplates, bucketTemplateIDs, id, &t)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

func (r *templateRepo) Create(ctx context.Context, t *models.Template) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		t.ID = uuid.New().String()
		t.CreatedAt = time.Now()
		t.UpdatedAt = t.CreatedAt
		if err := insert(tx, bucketTemplates, bucketTemplateIDs, t.ID, t); err != nil {
			return fmt.Errorf("failed to create template: %w", err)
		}
		return nil
	})
}

func (r *templateRepo) Update(ctx context.Context, t *models.Template) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		var cur models.Template
		found, err := load(tx, bucketTemplates, bucketTemplateIDs, t.ID, &cur)
		if err != nil {
			return err
		}
		if !found {
			return store.ErrNotFound
		}
		t.CreatedAt = cur.CreatedAt
		t.UpdatedAt = time.Now()
		return replace(tx, bucketTemplates, bucketTemplateIDs, t.ID, t)
	})
}

func (r *templateRepo) Delete(ctx context.Context, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return remove(tx, bucketTemplates, bucketTemplateIDs, id)
	})
}

type campaignRepo struct {
	db *bolt.DB
}

func (r *campaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		c.ID = uuid.New().String()
		if c.SentAt.IsZero() {
			c.SentAt = time.Now()
		}
		if err := insert(tx, bucketCampaigns, bucketCampaignIDs, c.ID, c); err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}
		return nil
	})
}

func (r *campaignRepo) Get(ctx context.Context, id string) (*models.Campaign, error) {
	var c models.Campaign
	var found bool
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		found, err = load(tx, bucketCampaigns, bucketCampaignIDs, id, &c)
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (r *campaignRepo) List(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		campaigns, err = list[models.Campaign](tx, bucketCampaigns, true)
		return err
	})
	return campaigns, err
}

func (r *campaignRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(bucketCampaigns).Stats().KeyN
		return nil
	})
	return n, err
}

func (r *campaignRepo) Update(ctx context.Context, c *models.Campaign) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		return replace(tx, bucketCampaigns, bucketCampaignIDs, c.ID, c)
	})
}

// Delete removes the campaign and every log entry that references it
func (r *campaignRepo) Delete(ctx context.Context, id string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		if err := remove(tx, bucketCampaigns, bucketCampaignIDs, id); err != nil {
			return err
		}

		logs := tx.Bucket(bucketSendLogs)
		var stale [][]byte
		err := logs.ForEach(func(k, v []byte) error {
			var e models.SendLogEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to unmarshal send log: %w", err)
			}
			if e.CampaignID == id {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := logs.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *campaignRepo) AppendLog(ctx context.Context, e *models.SendLogEntry) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSendLogs)
		n, err := b.NextSequence()
		if err != nil {
			return err
		}
		e.ID = int64(n)
		if e.Timestamp.IsZero() {
			e.Timestamp = time.Now()
		}
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal send log: %w", err)
		}
		return b.Put(seqKey(n), raw)
	})
}

func (r *campaignRepo) ListLogs(ctx context.Context, campaignID string) ([]models.SendLogEntry, error) {
	entries := []models.SendLogEntry{}
	err := r.db.View(func(tx *bolt.Tx) error {
		all, err := list[models.SendLogEntry](tx, bucketSendLogs, false)
		if err != nil {
			return err
		}
		for _, e := range all {
			if campaignID == "" || e.CampaignID == campaignID {
				entries = append(entries, e)
			}
		}
		return nil
	})
	return entries, err
}

type settingsRepo struct {
	db *bolt.DB
}

var keySMTP = []byte("smtp")

func (r *settingsRepo) GetSMTP(ctx context.Context) (*models.SMTPSettings, error) {
	var s *models.SMTPSettings
	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketSettings).Get(keySMTP)
		if raw == nil {
			return nil
		}
		s = &models.SMTPSettings{}
		return json.Unmarshal(raw, s)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get smtp settings: %w", err)
	}
	return s, nil
}

func (r *settingsRepo) SaveSMTP(ctx context.Context, s *models.SMTPSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSettings).Put(keySMTP, raw)
	})
}
