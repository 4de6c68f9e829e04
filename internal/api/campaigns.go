package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/leadmail/internal/campaign"
	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
	"github.com/foxzi/leadmail/internal/template"
)

// SendCampaignRequest is the body of POST /api/campaigns/send. An empty
// LeadIDs sends to every lead.
type SendCampaignRequest struct {
	TemplateID  flexString   `json:"templateId"`
	LeadIDs     []flexString `json:"leadIds"`
	Name        string       `json:"name"`
	ZoomLink    string       `json:"zoomLink"`
	MeetingDate string       `json:"meetingDate"`
	MeetingTime string       `json:"meetingTime"`
}

// SendCampaignResponse reports the campaign outcome; in async mode only the
// id, status and total are known
type SendCampaignResponse struct {
	Success bool `json:"success"`
	*campaign.Result
}

// handleSendCampaign handles POST /api/campaigns/send
func (s *Server) handleSendCampaign(w http.ResponseWriter, r *http.Request) {
	var req SendCampaignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	ids := make([]string, 0, len(req.LeadIDs))
	for _, id := range req.LeadIDs {
		if id != "" {
			ids = append(ids, string(id))
		}
	}

	result, err := s.runner.Send(r.Context(), campaign.Request{
		TemplateID: string(req.TemplateID),
		Selector:   campaign.Selector{LeadIDs: ids},
		Name:       strings.TrimSpace(req.Name),
		Meeting: template.Meeting{
			ZoomLink: strings.TrimSpace(req.ZoomLink),
			Date:     strings.TrimSpace(req.MeetingDate),
			Time:     strings.TrimSpace(req.MeetingTime),
		},
	})
	if err != nil {
		s.sendError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Status != models.CampaignStatusCompleted {
		status = http.StatusAccepted
	}
	s.sendJSON(w, status, SendCampaignResponse{Success: true, Result: result})
}

// handleListCampaigns handles GET /api/campaigns
func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.Campaigns().List(r.Context())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	s.sendJSON(w, http.StatusOK, campaigns)
}

// handleGetCampaign handles GET /api/campaigns/{id}
func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.Campaigns().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if c == nil {
		s.sendError(w, r, notFound("Campaign not found"))
		return
	}
	s.sendJSON(w, http.StatusOK, c)
}

// handleDeleteCampaign handles DELETE /api/campaigns/{id}
func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Campaigns().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendError(w, r, notFound("Campaign not found"))
			return
		}
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, OKResponse{Success: true})
}

// handleListLogs handles GET /api/campaigns/logs
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	s.sendLogs(w, r, "")
}

// handleListCampaignLogs handles GET /api/campaigns/{id}/logs
func (s *Server) handleListCampaignLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := s.store.Campaigns().Get(r.Context(), id)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if c == nil {
		s.sendError(w, r, notFound("Campaign not found"))
		return
	}
	s.sendLogs(w, r, id)
}

func (s *Server) sendLogs(w http.ResponseWriter, r *http.Request, campaignID string) {
	logs, err := s.store.Campaigns().ListLogs(r.Context(), campaignID)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if logs == nil {
		logs = []models.SendLogEntry{}
	}
	s.sendJSON(w, http.StatusOK, logs)
}
