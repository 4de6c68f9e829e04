// Package campaign sends a template to a set of leads and records the outcome
// of every attempt.
package campaign

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foxzi/leadmail/internal/apperr"
	"github.com/foxzi/leadmail/internal/mailer"
	"github.com/foxzi/leadmail/internal/metrics"
	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
	"github.com/foxzi/leadmail/internal/template"
)

// MessageNotFound is logged for ids that match no lead
const MessageNotFound = "lead not found"

// Transport sends mail; *mailer.Transport implements it
type Transport interface {
	Send(ctx context.Context, msg *mailer.Message) (*mailer.Receipt, error)
	Verify(ctx context.Context) error
}

// TransportFactory builds a transport for one campaign or check
type TransportFactory func(cfg mailer.Config) Transport

// Config controls how campaigns run
type Config struct {
	// Concurrency is the number of recipients attempted at once; 1 is strictly sequential
	Concurrency int
	// Async makes Send return once the campaign record exists
	Async bool
	// Mailer carries timeouts and HELO name; host and credentials come from settings
	Mailer mailer.Config
}

// Option configures a Runner
type Option func(*Runner)

// WithTransportFactory replaces the SMTP transport
func WithTransportFactory(f TransportFactory) Option {
	return func(r *Runner) { r.newTransport = f }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// Request describes one send-campaign call
type Request struct {
	TemplateID string
	Selector   Selector
	Meeting    template.Meeting
	// Name defaults to "Campaign N"
	Name string
}

// Result is the aggregate outcome of a campaign
type Result struct {
	CampaignID string `json:"campaignId"`
	Status     string `json:"status"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
}

// Runner owns the campaign lifecycle pending -> sending -> completed
type Runner struct {
	store        store.Store
	cfg          Config
	newTransport TransportFactory
	logger       *slog.Logger
	wg           sync.WaitGroup

	// serializes Count and Create so generated names stay unique
	nameMu sync.Mutex
}

// NewRunner creates a runner over s
func NewRunner(s store.Store, cfg Config, opts ...Option) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	r := &Runner{
		store:  s,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.newTransport == nil {
		logger := r.logger
		r.newTransport = func(cfg mailer.Config) Transport {
			return mailer.New(cfg, mailer.WithLogger(logger))
		}
	}
	r.logger = r.logger.With("component", "campaign")
	return r
}

// Wait blocks until every asynchronous campaign has completed
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Send runs a campaign. Preconditions are checked before anything is
// stored; once the campaign exists every recipient is attempted exactly once
// and the campaign always reaches completed.
func (r *Runner) Send(ctx context.Context, req Request) (*Result, error) {
	tmpl, err := r.store.Templates().Get(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if tmpl == nil {
		return nil, apperr.New(apperr.CodeTemplateNotFound, "Template not found")
	}

	targets, err := Resolve(ctx, r.store.Leads(), req.Selector)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, apperr.New(apperr.CodeNoRecipients, "No leads")
	}

	settings, err := r.store.Settings().GetSMTP(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get smtp settings: %w", err)
	}
	if !settings.HasCredentials() {
		return nil, apperr.ConfigIncomplete("SMTP not configured")
	}

	c, err := r.create(ctx, req, tmpl, len(targets))
	if err != nil {
		return nil, err
	}

	// A started campaign runs to completion even if the caller goes away
	runCtx := context.WithoutCancel(ctx)

	if r.cfg.Async {
		accepted := &Result{CampaignID: c.ID, Status: c.Status, Total: len(targets)}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.run(runCtx, c, tmpl, targets, req.Meeting, settings)
		}()
		return accepted, nil
	}

	return r.run(runCtx, c, tmpl, targets, req.Meeting, settings), nil
}

func (r *Runner) create(ctx context.Context, req Request, tmpl *models.Template, total int) (*models.Campaign, error) {
	name := req.Name
	if name == "" {
		r.nameMu.Lock()
		defer r.nameMu.Unlock()
		n, err := r.store.Campaigns().Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count campaigns: %w", err)
		}
		name = fmt.Sprintf("Campaign %d", n+1)
	}

	c := &models.Campaign{
		Name:           name,
		TemplateID:     tmpl.ID,
		TemplateName:   tmpl.Name,
		RecipientCount: total,
		Status:         models.CampaignStatusPending,
		ZoomLink:       req.Meeting.ZoomLink,
		MeetingDate:    req.Meeting.Date,
		MeetingTime:    req.Meeting.Time,
		SentAt:         time.Now(),
	}
	if err := r.store.Campaigns().Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Runner) run(ctx context.Context, c *models.Campaign, tmpl *models.Template, targets []Target, meeting template.Meeting, settings *models.SMTPSettings) *Result {
	campaigns := r.store.Campaigns()
	logger := r.logger.With("campaign_id", c.ID)

	started := time.Now()
	c.Status = models.CampaignStatusSending
	c.StartedAt = &started
	if err := campaigns.Update(ctx, c); err != nil {
		logger.Error("failed to mark campaign sending", "error", err)
	}
	metrics.CampaignStarted()
	logger.Info("campaign started",
		"template", tmpl.Name,
		"recipients", len(targets),
		"concurrency", r.cfg.Concurrency,
	)

	tr := r.newTransport(r.mailerConfig(settings))
	from := FromAddress(settings)
	log := newOrderedLog(ctx, campaigns, len(targets), logger)

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Concurrency)
	for i, target := range targets {
		g.Go(func() error {
			log.commit(i, r.attempt(ctx, tr, c.ID, tmpl, target, meeting, settings, from))
			return nil
		})
	}
	g.Wait()

	sent, failed := log.counts()
	completed := time.Now()
	c.Status = models.CampaignStatusCompleted
	c.Sent = sent
	c.Failed = failed
	c.CompletedAt = &completed
	if err := campaigns.Update(ctx, c); err != nil {
		logger.Error("failed to mark campaign completed", "error", err)
	}

	duration := completed.Sub(started)
	metrics.CampaignFinished(sent, failed, duration.Seconds())
	logger.Info("campaign completed",
		"sent", sent,
		"failed", failed,
		"total", len(targets),
		"duration", duration,
	)

	return &Result{
		CampaignID: c.ID,
		Status:     c.Status,
		Sent:       sent,
		Failed:     failed,
		Total:      len(targets),
	}
}

// attempt sends to one target and returns its log entry; it never fails
func (r *Runner) attempt(ctx context.Context, tr Transport, campaignID string, tmpl *models.Template, target Target, meeting template.Meeting, settings *models.SMTPSettings, from string) *models.SendLogEntry {
	entry := &models.SendLogEntry{CampaignID: campaignID}

	lead := target.Lead
	if lead == nil {
		entry.Status = models.SendStatusFailed
		entry.Message = MessageNotFound
		entry.Timestamp = time.Now()
		metrics.IncMessage(entry.Status)
		r.logger.Warn("recipient failed", "campaign_id", campaignID, "lead_id", target.LeadID, "error", MessageNotFound)
		return entry
	}

	leadID := lead.ID
	entry.LeadID = &leadID
	entry.Email = lead.Email
	entry.Name = lead.DisplayName()

	rendered := template.Render(tmpl, template.LeadContext(lead, meeting, settings))
	_, err := tr.Send(ctx, &mailer.Message{
		From:    from,
		To:      lead.Email,
		Subject: rendered.Subject,
		HTML:    rendered.Body,
	})

	entry.Timestamp = time.Now()
	if err != nil {
		entry.Status = models.SendStatusFailed
		entry.Message = err.Error()
		r.logger.Warn("recipient failed", "campaign_id", campaignID, "lead_id", leadID, "email", lead.Email, "error", err)
	} else {
		entry.Status = models.SendStatusSuccess
		entry.Message = "Sent as " + from
	}
	metrics.IncMessage(entry.Status)
	return entry
}

func (r *Runner) mailerConfig(s *models.SMTPSettings) mailer.Config {
	cfg := r.cfg.Mailer
	cfg.Host = s.Host
	cfg.Port = s.Port
	cfg.User = s.User
	cfg.Pass = s.Pass
	return cfg
}

// FromAddress picks the From header:
//
//	name and fromEmail -> "Name" <fromEmail>
//	name only          -> "Name" <user>
//	fromEmail only     -> fromEmail
//	neither            -> user
//
// The name is senderName, or companyName when senderName is empty.
func FromAddress(s *models.SMTPSettings) string {
	address := s.FromEmail
	if address == "" {
		address = s.User
	}
	return mailer.FormatFrom(s.EffectiveSenderName(), address)
}

// orderedLog appends entries to the campaign log in recipient order even
// when attempts finish out of order
type orderedLog struct {
	ctx       context.Context
	campaigns store.CampaignRepository
	logger    *slog.Logger

	mu      sync.Mutex
	entries []*models.SendLogEntry
	next    int
	sent    int
	failed  int
}

func newOrderedLog(ctx context.Context, campaigns store.CampaignRepository, n int, logger *slog.Logger) *orderedLog {
	return &orderedLog{
		ctx:       ctx,
		campaigns: campaigns,
		logger:    logger,
		entries:   make([]*models.SendLogEntry, n),
	}
}

func (l *orderedLog) commit(i int, e *models.SendLogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[i] = e
	if e.Status == models.SendStatusSuccess {
		l.sent++
	} else {
		l.failed++
	}

	for l.next < len(l.entries) && l.entries[l.next] != nil {
		if err := l.campaigns.AppendLog(l.ctx, l.entries[l.next]); err != nil {
			l.logger.Error("failed to append send log", "email", l.entries[l.next].Email, "error", err)
		}
		l.next++
	}
}

func (l *orderedLog) counts() (sent, failed int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent, l.failed
}
