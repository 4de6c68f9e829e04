package campaign

import (
	"context"
	"fmt"

	"github.com/foxzi/leadmail/internal/models"
)

// LeadSource is the read side of the lead repository
type LeadSource interface {
	List(ctx context.Context) ([]models.Lead, error)
	Get(ctx context.Context, id string) (*models.Lead, error)
}

// Selector picks recipients: every lead when LeadIDs is empty, otherwise
// exactly the listed ids in the given order
type Selector struct {
	LeadIDs []string
}

// All selects every lead
func All() Selector {
	return Selector{}
}

// Target is one intended recipient. Lead is nil when LeadID matched nothing.
type Target struct {
	LeadID string
	Lead   *models.Lead
}

// Resolve returns the ordered recipient set. Unknown ids are kept as targets
// without a lead so they are counted as failed attempts.
func Resolve(ctx context.Context, leads LeadSource, sel Selector) ([]Target, error) {
	if len(sel.LeadIDs) == 0 {
		all, err := leads.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list leads: %w", err)
		}
		targets := make([]Target, len(all))
		for i := range all {
			targets[i] = Target{LeadID: all[i].ID, Lead: &all[i]}
		}
		return targets, nil
	}

	targets := make([]Target, 0, len(sel.LeadIDs))
	for _, id := range sel.LeadIDs {
		lead, err := leads.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get lead %s: %w", id, err)
		}
		targets = append(targets, Target{LeadID: id, Lead: lead})
	}
	return targets, nil
}
