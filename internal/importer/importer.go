package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/foxzi/leadmail/internal/metrics"
	"github.com/foxzi/leadmail/internal/store"
)

// maxErrors caps the per-row messages returned to callers
const maxErrors = 20

// Result reports how many rows were stored
type Result struct {
	Inserted int      `json:"inserted"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Importer inserts parsed rows as leads
type Importer struct {
	leads  store.LeadRepository
	logger *slog.Logger
}

// New creates an importer writing to leads
func New(leads store.LeadRepository, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{leads: leads, logger: logger.With("component", "importer")}
}

// ImportFile parses a named upload and imports it
func (i *Importer) ImportFile(ctx context.Context, filename string, r io.Reader) (*Result, error) {
	format, err := FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}
	t, err := Parse(format, r)
	if err != nil {
		return nil, err
	}
	return i.Import(ctx, t)
}

// ImportText imports pasted comma-delimited text
func (i *Importer) ImportText(ctx context.Context, text string) (*Result, error) {
	t, err := ParseText(text)
	if err != nil {
		return nil, err
	}
	return i.Import(ctx, t)
}

// Import stores each row. A row without an email or with an email that is
// already taken counts as failed; the rest of the batch continues.
func (i *Importer) Import(ctx context.Context, t *Table) (*Result, error) {
	leads, err := t.Leads()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for n := range leads {
		lead := &leads[n]
		row := n + 2 // header is row 1

		if lead.Email == "" {
			result.fail(fmt.Sprintf("row %d: missing email", row))
			continue
		}

		if err := i.leads.Create(ctx, lead); err != nil {
			if errors.Is(err, store.ErrDuplicateEmail) {
				result.fail(fmt.Sprintf("row %d: duplicate email %s", row, lead.Email))
				continue
			}
			i.logger.Warn("failed to import lead", "row", row, "email", lead.Email, "error", err)
			result.fail(fmt.Sprintf("row %d: %v", row, err))
			continue
		}
		result.Inserted++
	}

	metrics.AddLeadsImported(result.Inserted, result.Failed)
	i.logger.Info("leads imported", "inserted", result.Inserted, "failed", result.Failed)
	return result, nil
}

func (r *Result) fail(msg string) {
	r.Failed++
	if len(r.Errors) < maxErrors {
		r.Errors = append(r.Errors, msg)
	}
}
