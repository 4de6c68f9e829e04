package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

const leadColumns = `id, email, first_name, last_name, phone, property_address, property_price, property_type, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*models.Lead, error) {
	l := &models.Lead{}
	err := row.Scan(&l.ID, &l.Email, &l.FirstName, &l.LastName, &l.Phone,
		&l.PropertyAddress, &l.PropertyPrice, &l.PropertyType, &l.CreatedAt)
	return l, err
}

// List returns all leads in insertion order
func (r *LeadRepository) List(ctx context.Context) ([]models.Lead, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+leadColumns+" FROM leads ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) Get(ctx context.Context, id string) (*models.Lead, error) {
	l, err := scanLead(r.db.QueryRowContext(ctx, "SELECT "+leadColumns+" FROM leads WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *LeadRepository) Create(ctx context.Context, l *models.Lead) error {
	id := uuid.New().String()
	now := time.Now()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leads (id, email, first_name, last_name, phone, property_address, property_price, property_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, l.Email, l.FirstName, l.LastName, l.Phone, l.PropertyAddress, l.PropertyPrice, l.PropertyType, now,
	)
	if isUniqueViolation(err) {
		return store.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}

	l.ID = id
	l.CreatedAt = now
	return nil
}

// Update replaces every field except the id and creation time
func (r *LeadRepository) Update(ctx context.Context, l *models.Lead) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads SET email = ?, first_name = ?, last_name = ?, phone = ?,
			property_address = ?, property_price = ?, property_type = ?
		WHERE id = ?`,
		l.Email, l.FirstName, l.LastName, l.Phone, l.PropertyAddress, l.PropertyPrice, l.PropertyType, l.ID,
	)
	if isUniqueViolation(err) {
		return store.ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return expectAffected(res)
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM leads WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete lead: %w", err)
	}
	return expectAffected(res)
}

func (r *LeadRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM leads").Scan(&n)
	return n, err
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
