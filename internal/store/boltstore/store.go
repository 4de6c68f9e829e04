// Package boltstore implements store.Store on an embedded bbolt file.
//
// Records live in a bucket keyed by a big-endian sequence number so cursor
// order equals insertion order. A companion "<name>_ids" bucket maps the
// public id to that key.
package boltstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/leadmail/internal/store"
)

var (
	bucketLeads       = []byte("leads")
	bucketLeadIDs     = []byte("leads_ids")
	bucketLeadEmails  = []byte("leads_emails")
	bucketTemplates   = []byte("templates")
	bucketTemplateIDs = []byte("templates_ids")
	bucketCampaigns   = []byte("campaigns")
	bucketCampaignIDs = []byte("campaigns_ids")
	bucketSendLogs    = []byte("send_logs")
	bucketSettings    = []byte("settings")

	allBuckets = [][]byte{
		bucketLeads, bucketLeadIDs, bucketLeadEmails,
		bucketTemplates, bucketTemplateIDs,
		bucketCampaigns, bucketCampaignIDs,
		bucketSendLogs, bucketSettings,
	}
)

// Store is a bbolt-backed store.Store
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database file and seeds the default template
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := store.SeedDefaultTemplate(ctx, s.Templates()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Leads() store.LeadRepository         { return &leadRepo{db: s.db} }
func (s *Store) Templates() store.TemplateRepository { return &templateRepo{db: s.db} }
func (s *Store) Campaigns() store.CampaignRepository { return &campaignRepo{db: s.db} }
func (s *Store) Settings() store.SettingsRepository  { return &settingsRepo{db: s.db} }

// ClearAll recreates every bucket except settings and reseeds the default template
func (s *Store) ClearAll(ctx context.Context) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if string(bucket) == string(bucketSettings) {
				continue
			}
			if err := tx.DeleteBucket(bucket); err != nil && err != bolt.ErrBucketNotFound {
				return fmt.Errorf("failed to drop bucket %s: %w", bucket, err)
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return store.SeedDefaultTemplate(ctx, s.Templates())
}

func (s *Store) Close() error {
	return s.db.Close()
}

func seqKey(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

// insert stores v under a fresh sequence key and indexes it by id
func insert(tx *bolt.Tx, data, ids []byte, id string, v any) error {
	b := tx.Bucket(data)
	n, err := b.NextSequence()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	key := seqKey(n)
	if err := b.Put(key, raw); err != nil {
		return err
	}
	return tx.Bucket(ids).Put([]byte(id), key)
}

// load decodes the record with the given id into v; it reports false when missing
func load(tx *bolt.Tx, data, ids []byte, id string, v any) (bool, error) {
	key := tx.Bucket(ids).Get([]byte(id))
	if key == nil {
		return false, nil
	}
	raw := tx.Bucket(data).Get(key)
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return true, nil
}

func replace(tx *bolt.Tx, data, ids []byte, id string, v any) error {
	key := tx.Bucket(ids).Get([]byte(id))
	if key == nil {
		return store.ErrNotFound
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	return tx.Bucket(data).Put(key, raw)
}

func remove(tx *bolt.Tx, data, ids []byte, id string) error {
	idx := tx.Bucket(ids)
	key := idx.Get([]byte(id))
	if key == nil {
		return store.ErrNotFound
	}
	key = append([]byte(nil), key...)
	if err := tx.Bucket(data).Delete(key); err != nil {
		return err
	}
	return idx.Delete([]byte(id))
}

// list decodes every record of a bucket in key order, or reverse order when newestFirst
func list[T any](tx *bolt.Tx, data []byte, newestFirst bool) ([]T, error) {
	out := []T{}
	c := tx.Bucket(data).Cursor()

	first, next := c.First, c.Next
	if newestFirst {
		first, next = c.Last, c.Prev
	}
	for k, v := first(); k != nil; k, v = next() {
		var item T
		if err := json.Unmarshal(v, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		out = append(out, item)
	}
	return out, nil
}
