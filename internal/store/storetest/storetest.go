// Package storetest holds the behavioural suite every store.Store backend must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
)

// Factory returns a fresh, empty (seeded) store for one subtest
type Factory func(t *testing.T) store.Store

// Run executes the suite against the backend produced by newStore
func Run(t *testing.T, newStore Factory) {
	t.Run("SeedsDefaultTemplate", func(t *testing.T) { testSeed(t, newStore(t)) })
	t.Run("LeadLifecycle", func(t *testing.T) { testLeadLifecycle(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("LeadInsertionOrder", func(t *testing.T) { testLeadOrder(t, newStore(t)) })
	t.Run("TemplateLifecycle", func(t *testing.T) { testTemplateLifecycle(t, newStore(t)) })
	t.Run("CampaignAndLogs", func(t *testing.T) { testCampaignAndLogs(t, newStore(t)) })
	t.Run("CampaignDeleteCascades", func(t *testing.T) { testCampaignDelete(t, newStore(t)) })
	t.Run("SMTPSettings", func(t *testing.T) { testSMTPSettings(t, newStore(t)) })
	t.Run("ClearAll", func(t *testing.T) { testClearAll(t, newStore(t)) })
}

func testSeed(t *testing.T, s store.Store) {
	ctx := context.Background()

	templates, err := s.Templates().List(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, models.DefaultTemplateName, templates[0].Name)
	assert.Equal(t, models.DefaultTemplateSubject, templates[0].Subject)
	assert.NotEmpty(t, templates[0].ID)
}

func testLeadLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	leads := s.Leads()

	lead := &models.Lead{Email: "ana@example.com", FirstName: "Ana", PropertyAddress: "12 Oak St"}
	require.NoError(t, leads.Create(ctx, lead))
	require.NotEmpty(t, lead.ID)
	require.False(t, lead.CreatedAt.IsZero())

	got, err := leads.Get(ctx, lead.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ana", got.FirstName)
	assert.Equal(t, "12 Oak St", got.PropertyAddress)
	assert.WithinDuration(t, lead.CreatedAt, got.CreatedAt, time.Second)

	got.LastName = "Silva"
	require.NoError(t, leads.Update(ctx, got))
	got, err = leads.Get(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Silva", got.LastName)

	missing, err := leads.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, leads.Delete(ctx, lead.ID))
	assert.ErrorIs(t, leads.Delete(ctx, lead.ID), store.ErrNotFound)

	n, err := leads.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testDuplicateEmail(t *testing.T, s store.Store) {
	ctx := context.Background()
	leads := s.Leads()

	require.NoError(t, leads.Create(ctx, &models.Lead{Email: "dup@example.com"}))
	err := leads.Create(ctx, &models.Lead{Email: "dup@example.com", FirstName: "Again"})
	assert.ErrorIs(t, err, store.ErrDuplicateEmail)

	// case-sensitive as stored
	require.NoError(t, leads.Create(ctx, &models.Lead{Email: "Dup@example.com"}))

	other := &models.Lead{Email: "other@example.com"}
	require.NoError(t, leads.Create(ctx, other))
	other.Email = "dup@example.com"
	assert.ErrorIs(t, leads.Update(ctx, other), store.ErrDuplicateEmail)

	n, err := leads.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func testLeadOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	emails := []string{"c@example.com", "a@example.com", "b@example.com"}
	for _, e := range emails {
		require.NoError(t, s.Leads().Create(ctx, &models.Lead{Email: e}))
	}

	list, err := s.Leads().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, e := range emails {
		assert.Equal(t, e, list[i].Email)
	}
}

func testTemplateLifecycle(t *testing.T, s store.Store) {
	ctx := context.Background()
	templates := s.Templates()

	tmpl := &models.Template{Name: "Promo", Subject: "Hi {{firstName}}", Body: "<p>{{propertyAddress}}</p>"}
	require.NoError(t, templates.Create(ctx, tmpl))
	require.NotEmpty(t, tmpl.ID)

	tmpl.Subject = "Hello {{firstName}}"
	require.NoError(t, templates.Update(ctx, tmpl))

	got, err := templates.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Hello {{firstName}}", got.Subject)
	assert.Equal(t, "Promo", got.Name)

	assert.ErrorIs(t, templates.Update(ctx, &models.Template{ID: "missing"}), store.ErrNotFound)

	require.NoError(t, templates.Delete(ctx, tmpl.ID))
	got, err = templates.Get(ctx, tmpl.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testCampaignAndLogs(t *testing.T, s store.Store) {
	ctx := context.Background()
	campaigns := s.Campaigns()

	first := &models.Campaign{Name: "Campaign 1", TemplateID: "t1", RecipientCount: 2, Status: models.CampaignStatusPending}
	require.NoError(t, campaigns.Create(ctx, first))
	second := &models.Campaign{Name: "Campaign 2", TemplateID: "t1", Status: models.CampaignStatusPending}
	require.NoError(t, campaigns.Create(ctx, second))

	now := time.Now()
	first.Status = models.CampaignStatusCompleted
	first.StartedAt = &now
	first.CompletedAt = &now
	first.Sent = 1
	first.Failed = 1
	require.NoError(t, campaigns.Update(ctx, first))

	got, err := campaigns.Get(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Sent)
	assert.Equal(t, 1, got.Failed)
	require.NotNil(t, got.CompletedAt)

	list, err := campaigns.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	n, err := campaigns.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	leadID := "lead-1"
	require.NoError(t, campaigns.AppendLog(ctx, &models.SendLogEntry{
		CampaignID: first.ID, LeadID: &leadID, Email: "a@example.com", Status: models.SendStatusSuccess, Message: "ok",
	}))
	require.NoError(t, campaigns.AppendLog(ctx, &models.SendLogEntry{
		CampaignID: second.ID, Email: "x@example.com", Status: models.SendStatusFailed, Message: "boom",
	}))
	require.NoError(t, campaigns.AppendLog(ctx, &models.SendLogEntry{
		CampaignID: first.ID, Status: models.SendStatusFailed, Message: "lead not found",
	}))

	logs, err := campaigns.ListLogs(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a@example.com", logs[0].Email)
	require.NotNil(t, logs[0].LeadID)
	assert.Equal(t, leadID, *logs[0].LeadID)
	assert.Nil(t, logs[1].LeadID)
	assert.Equal(t, "lead not found", logs[1].Message)

	all, err := campaigns.ListLogs(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testCampaignDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	campaigns := s.Campaigns()

	c := &models.Campaign{Name: "Campaign 1", TemplateID: "t1", Status: models.CampaignStatusCompleted}
	require.NoError(t, campaigns.Create(ctx, c))
	keep := &models.Campaign{Name: "Campaign 2", TemplateID: "t1", Status: models.CampaignStatusCompleted}
	require.NoError(t, campaigns.Create(ctx, keep))

	for i := 0; i < 3; i++ {
		require.NoError(t, campaigns.AppendLog(ctx, &models.SendLogEntry{CampaignID: c.ID, Status: models.SendStatusSuccess}))
	}
	require.NoError(t, campaigns.AppendLog(ctx, &models.SendLogEntry{CampaignID: keep.ID, Status: models.SendStatusSuccess}))

	require.NoError(t, campaigns.Delete(ctx, c.ID))
	assert.ErrorIs(t, campaigns.Delete(ctx, c.ID), store.ErrNotFound)

	logs, err := campaigns.ListLogs(ctx, "")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, keep.ID, logs[0].CampaignID)
}

func testSMTPSettings(t *testing.T, s store.Store) {
	ctx := context.Background()

	got, err := s.Settings().GetSMTP(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := &models.SMTPSettings{Host: "smtp.example.com", Port: 465, User: "u", Pass: "p", SenderName: "Jane"}
	require.NoError(t, s.Settings().SaveSMTP(ctx, want))

	// replaced wholesale
	want2 := &models.SMTPSettings{Host: "mail.example.com", User: "v", Pass: "q"}
	require.NoError(t, s.Settings().SaveSMTP(ctx, want2))

	got, err = s.Settings().GetSMTP(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *want2, *got)
}

func testClearAll(t *testing.T, s store.Store) {
	ctx := context.Background()

	require.NoError(t, s.Leads().Create(ctx, &models.Lead{Email: "a@example.com"}))
	require.NoError(t, s.Templates().Create(ctx, &models.Template{Name: "Extra", Subject: "s", Body: "b"}))
	c := &models.Campaign{Name: "Campaign 1", TemplateID: "t", Status: models.CampaignStatusCompleted}
	require.NoError(t, s.Campaigns().Create(ctx, c))
	require.NoError(t, s.Campaigns().AppendLog(ctx, &models.SendLogEntry{CampaignID: c.ID, Status: models.SendStatusSuccess}))
	require.NoError(t, s.Settings().SaveSMTP(ctx, &models.SMTPSettings{Host: "h", User: "u", Pass: "p"}))

	require.NoError(t, s.ClearAll(ctx))

	n, err := s.Leads().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	campaigns, err := s.Campaigns().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, campaigns)

	logs, err := s.Campaigns().ListLogs(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, logs)

	templates, err := s.Templates().List(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, models.DefaultTemplateName, templates[0].Name)

	settings, err := s.Settings().GetSMTP(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "h", settings.Host)

	// the email freed by ClearAll can be reused
	require.NoError(t, s.Leads().Create(ctx, &models.Lead{Email: "a@example.com"}))
}
