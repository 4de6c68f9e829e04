package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/leadmail/internal/apperr"
	"github.com/foxzi/leadmail/internal/importer"
	"github.com/foxzi/leadmail/internal/models"
	"github.com/foxzi/leadmail/internal/store"
)

// LeadRequest is the body of POST /api/leads and PUT /api/leads/{id}
type LeadRequest struct {
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Phone           flexString `json:"phone"`
	PropertyAddress string     `json:"propertyAddress"`
	PropertyPrice   flexString `json:"propertyPrice"`
	PropertyType    string     `json:"propertyType"`
}

func (req *LeadRequest) apply(l *models.Lead) {
	l.Email = strings.TrimSpace(req.Email)
	l.FirstName = strings.TrimSpace(req.FirstName)
	l.LastName = strings.TrimSpace(req.LastName)
	l.Phone = string(req.Phone)
	l.PropertyAddress = strings.TrimSpace(req.PropertyAddress)
	l.PropertyPrice = string(req.PropertyPrice)
	l.PropertyType = strings.TrimSpace(req.PropertyType)
}

// ImportResponse is returned by the bulk import endpoints
type ImportResponse struct {
	Success bool `json:"success"`
	*importer.Result
}

func leadError(err error) error {
	if errors.Is(err, store.ErrDuplicateEmail) {
		return apperr.Wrap(apperr.CodeDuplicateEmail, "Email exists", err)
	}
	return err
}

// handleListLeads handles GET /api/leads
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.Leads().List(r.Context())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if leads == nil {
		leads = []models.Lead{}
	}
	s.sendJSON(w, http.StatusOK, leads)
}

// handleGetLead handles GET /api/leads/{id}
func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.store.Leads().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if lead == nil {
		s.sendError(w, r, notFound("Lead not found"))
		return
	}
	s.sendJSON(w, http.StatusOK, lead)
}

// handleCreateLead handles POST /api/leads
func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	lead := &models.Lead{}
	req.apply(lead)
	if lead.Email == "" {
		s.sendError(w, r, apperr.Validation("Email required"))
		return
	}

	if err := s.store.Leads().Create(r.Context(), lead); err != nil {
		s.sendError(w, r, leadError(err))
		return
	}

	s.logger.Info("lead created", "id", lead.ID, "email", lead.Email)
	s.sendJSON(w, http.StatusCreated, OKResponse{Success: true, ID: lead.ID})
}

// handleUpdateLead handles PUT /api/leads/{id}
func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req LeadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	lead, err := s.store.Leads().Get(r.Context(), id)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	if lead == nil {
		s.sendError(w, r, notFound("Lead not found"))
		return
	}

	req.apply(lead)
	if lead.Email == "" {
		s.sendError(w, r, apperr.Validation("Email required"))
		return
	}

	if err := s.store.Leads().Update(r.Context(), lead); err != nil {
		s.sendError(w, r, leadError(err))
		return
	}
	s.sendJSON(w, http.StatusOK, OKResponse{Success: true, ID: lead.ID})
}

// handleDeleteLead handles DELETE /api/leads/{id}
func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Leads().Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.sendError(w, r, notFound("Lead not found"))
			return
		}
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, OKResponse{Success: true})
}

// handleUploadLeads handles POST /api/leads/upload
func (s *Server) handleUploadLeads(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.sendError(w, r, apperr.Wrap(apperr.CodeValidation, "Invalid upload", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.sendError(w, r, apperr.Wrap(apperr.CodeValidation, "No file uploaded", err))
		return
	}
	defer file.Close()

	result, err := s.importer.ImportFile(r.Context(), header.Filename, file)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, ImportResponse{Success: true, Result: result})
}

// PasteRequest is the body of POST /api/leads/paste
type PasteRequest struct {
	Text string `json:"text"`
}

// handlePasteLeads handles POST /api/leads/paste
func (s *Server) handlePasteLeads(w http.ResponseWriter, r *http.Request) {
	var req PasteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}

	result, err := s.importer.ImportText(r.Context(), req.Text)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	s.sendJSON(w, http.StatusOK, ImportResponse{Success: true, Result: result})
}
