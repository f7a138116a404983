// Package api provides HTTP handlers for the announcer server REST API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coregx/announcer"
	"github.com/coregx/announcer/matchers"
	"github.com/coregx/announcer/model"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	rules   *announcer.RuleManager
	watches *matchers.WatchMatcher
	tickets *announcer.TicketProducer
	wiki    *announcer.WikiProducer
	logger  announcer.Logger
}

// NewHandler creates a new API handler. watches may be nil when the watch
// matcher is not configured.
func NewHandler(
	rules *announcer.RuleManager,
	watches *matchers.WatchMatcher,
	tickets *announcer.TicketProducer,
	wiki *announcer.WikiProducer,
	logger announcer.Logger,
) *Handler {
	return &Handler{
		rules:   rules,
		watches: watches,
		tickets: tickets,
		wiki:    wiki,
		logger:  logger,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/rules", h.HandleAddRule)
	mux.HandleFunc("GET /api/v1/rules", h.HandleListRules)
	mux.HandleFunc("GET /api/v1/rules/{id}", h.HandleGetRule)
	mux.HandleFunc("DELETE /api/v1/rules/{id}", h.HandleDeleteRule)
	mux.HandleFunc("POST /api/v1/rules/{id}/move", h.HandleMoveRule)
	mux.HandleFunc("PUT /api/v1/formats", h.HandleSetFormat)
	mux.HandleFunc("POST /api/v1/watches", h.HandleToggleWatch)
	mux.HandleFunc("POST /api/v1/events/ticket", h.HandleTicketEvent)
	mux.HandleFunc("POST /api/v1/events/wiki", h.HandleWikiEvent)
	mux.HandleFunc("GET /api/v1/health", h.HandleHealth)
}

// MoveRequest represents a rule move request.
type MoveRequest struct {
	Priority int `json:"priority"`
}

// FormatRequest represents a format change request.
type FormatRequest struct {
	SID           string `json:"sid"`
	Authenticated bool   `json:"authenticated"`
	Distributor   string `json:"distributor"`
	Format        string `json:"format"`
}

// WatchRequest represents a watch toggle request.
type WatchRequest struct {
	SID           string `json:"sid"`
	Authenticated bool   `json:"authenticated"`
	Realm         string `json:"realm"`
	Target        string `json:"target"`
}

// TicketEventRequest carries a committed ticket action.
type TicketEventRequest struct {
	Category   string            `json:"category"`
	Ticket     model.Ticket      `json:"ticket"`
	Author     string            `json:"author"`
	Comment    string            `json:"comment"`
	Changes    map[string]string `json:"changes"` // field -> previous value
	Attachment *model.Attachment `json:"attachment,omitempty"`
}

// WikiEventRequest carries a committed wiki action.
type WikiEventRequest struct {
	Category     string            `json:"category"`
	Page         model.WikiPage    `json:"page"`
	Author       string            `json:"author"`
	Comment      string            `json:"comment"`
	PreviousText *string           `json:"previousText,omitempty"`
	Attachment   *model.Attachment `json:"attachment,omitempty"`
}

// ResultResponse is one evaluated (subscriber, distributor) pair.
type ResultResponse struct {
	SID           string `json:"sid"`
	Authenticated bool   `json:"authenticated"`
	Distributor   string `json:"distributor"`
	Outcome       string `json:"outcome"`
	RuleID        int64  `json:"ruleId,omitempty"`
	Address       string `json:"address,omitempty"`
	Style         string `json:"style,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ReportResponse summarises a dispatch.
type ReportResponse struct {
	Realm     string           `json:"realm"`
	Category  string           `json:"category"`
	TargetID  string           `json:"targetId"`
	Delivered int              `json:"delivered"`
	Results   []ResultResponse `json:"results"`
	Errors    []string         `json:"errors,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleAddRule handles POST /api/v1/rules
func (h *Handler) HandleAddRule(w http.ResponseWriter, r *http.Request) {
	var req announcer.AddRuleRequest
	if !h.decode(w, r, &req) {
		return
	}
	rule, err := h.rules.AddRule(r.Context(), req)
	if err != nil {
		h.respondFailure(w, "Failed to add rule", err)
		return
	}
	h.respondSuccess(w, http.StatusCreated, rule, "Rule added successfully")
}

// HandleListRules handles GET /api/v1/rules?sid=&authenticated=&distributor=
func (h *Handler) HandleListRules(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	authenticated, _ := strconv.ParseBool(query.Get("authenticated"))
	subscriber := model.NewIdentity(query.Get("sid"), authenticated)

	rules, err := h.rules.ListRules(r.Context(), subscriber, query.Get("distributor"))
	if err != nil {
		h.respondFailure(w, "Failed to list rules", err)
		return
	}
	h.respondSuccess(w, http.StatusOK, rules, "")
}

// HandleGetRule handles GET /api/v1/rules/{id}
func (h *Handler) HandleGetRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}
	rule, err := h.rules.GetRule(r.Context(), id)
	if err != nil {
		h.respondFailure(w, "Failed to load rule", err)
		return
	}
	h.respondSuccess(w, http.StatusOK, rule, "")
}

// HandleDeleteRule handles DELETE /api/v1/rules/{id}
func (h *Handler) HandleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}
	if err := h.rules.DeleteRule(r.Context(), id); err != nil {
		h.respondFailure(w, "Failed to delete rule", err)
		return
	}
	h.respondSuccess(w, http.StatusOK, nil, "Rule deleted successfully")
}

// HandleMoveRule handles POST /api/v1/rules/{id}/move
func (h *Handler) HandleMoveRule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ruleID(w, r)
	if !ok {
		return
	}
	var req MoveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.rules.MoveRule(r.Context(), id, req.Priority); err != nil {
		h.respondFailure(w, "Failed to move rule", err)
		return
	}
	rule, err := h.rules.GetRule(r.Context(), id)
	if err != nil {
		h.respondFailure(w, "Failed to load rule", err)
		return
	}
	h.respondSuccess(w, http.StatusOK, rule, "")
}

// HandleSetFormat handles PUT /api/v1/formats
func (h *Handler) HandleSetFormat(w http.ResponseWriter, r *http.Request) {
	var req FormatRequest
	if !h.decode(w, r, &req) {
		return
	}
	subscriber := model.NewIdentity(req.SID, req.Authenticated)
	if err := h.rules.SetFormat(r.Context(), subscriber, req.Distributor, req.Format); err != nil {
		h.respondFailure(w, "Failed to set format", err)
		return
	}
	h.respondSuccess(w, http.StatusOK, nil, "Format updated successfully")
}

// HandleToggleWatch handles POST /api/v1/watches
func (h *Handler) HandleToggleWatch(w http.ResponseWriter, r *http.Request) {
	if h.watches == nil {
		h.respondError(w, http.StatusNotFound, "Watching is not enabled", announcer.ErrCodeNotFound)
		return
	}
	var req WatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	subscriber := model.NewIdentity(req.SID, req.Authenticated)
	watching, err := h.watches.Toggle(r.Context(), subscriber, req.Realm, req.Target)
	if err != nil {
		h.respondFailure(w, "Failed to toggle watch", err)
		return
	}
	h.respondSuccess(w, http.StatusOK, map[string]bool{"watching": watching}, "")
}

// HandleTicketEvent handles POST /api/v1/events/ticket
func (h *Handler) HandleTicketEvent(w http.ResponseWriter, r *http.Request) {
	var req TicketEventRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	ticket := model.NewTicket(req.Ticket.ID, req.Ticket.Fields)

	var (
		report *announcer.Report
		err    error
	)
	switch req.Category {
	case model.CategoryCreated:
		report, err = h.tickets.TicketCreated(ctx, ticket, req.Author)
	case model.CategoryChanged:
		report, err = h.tickets.TicketChanged(ctx, ticket, req.Author, req.Comment, req.Changes)
	case model.CategoryDeleted:
		h.tickets.TicketDeleted(ctx, ticket)
	case model.CategoryAttachmentAdded:
		if req.Attachment == nil {
			h.respondError(w, http.StatusBadRequest, "attachment is required", announcer.ErrCodeValidation)
			return
		}
		report, err = h.tickets.AttachmentAdded(ctx, ticket, req.Attachment)
	default:
		h.respondError(w, http.StatusBadRequest, "unknown ticket category: "+req.Category, announcer.ErrCodeValidation)
		return
	}
	h.respondReport(w, report, err)
}

// HandleWikiEvent handles POST /api/v1/events/wiki
func (h *Handler) HandleWikiEvent(w http.ResponseWriter, r *http.Request) {
	var req WikiEventRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	page := model.NewWikiPage(req.Page.Name, req.Page.Version, req.Page.Text)

	var (
		report *announcer.Report
		err    error
	)
	switch req.Category {
	case model.CategoryCreated:
		report, err = h.wiki.PageAdded(ctx, page, req.Author, req.Comment)
	case model.CategoryChanged:
		var opts []model.WikiEventOption
		if req.PreviousText != nil {
			opts = append(opts, model.WithPreviousText(*req.PreviousText))
		}
		report, err = h.wiki.PageChanged(ctx, page, req.Author, req.Comment, opts...)
	case model.CategoryDeleted:
		report, err = h.wiki.PageDeleted(ctx, page)
	case model.CategoryVersionDeleted:
		report, err = h.wiki.PageVersionDeleted(ctx, page)
	case model.CategoryAttachmentAdded:
		if req.Attachment == nil {
			h.respondError(w, http.StatusBadRequest, "attachment is required", announcer.ErrCodeValidation)
			return
		}
		report, err = h.wiki.AttachmentAdded(ctx, page, req.Attachment)
	default:
		h.respondError(w, http.StatusBadRequest, "unknown wiki category: "+req.Category, announcer.ErrCodeValidation)
		return
	}
	h.respondReport(w, report, err)
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}
	h.respondSuccess(w, http.StatusOK, health, "")
}

func (h *Handler) ruleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(w, http.StatusBadRequest, "Invalid rule ID", "INVALID_ID")
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return false
	}
	return true
}

func (h *Handler) respondReport(w http.ResponseWriter, report *announcer.Report, err error) {
	if err != nil {
		h.respondFailure(w, "Failed to announce event", err)
		return
	}
	if report == nil {
		h.respondSuccess(w, http.StatusAccepted, nil, "Nothing to announce")
		return
	}
	h.respondSuccess(w, http.StatusOK, newReportResponse(report), "")
}

func newReportResponse(report *announcer.Report) ReportResponse {
	resp := ReportResponse{
		Realm:     report.Realm,
		Category:  report.Category,
		TargetID:  report.TargetID,
		Delivered: report.Count(announcer.OutcomeDelivered),
		Results:   make([]ResultResponse, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		rr := ResultResponse{
			SID:           res.Subscriber.SID,
			Authenticated: res.Subscriber.Authenticated,
			Distributor:   res.Distributor,
			Outcome:       string(res.Outcome),
			RuleID:        res.RuleID,
			Address:       res.Address,
			Style:         res.Style,
		}
		if res.Err != nil {
			rr.Error = res.Err.Error()
		}
		resp.Results = append(resp.Results, rr)
	}
	for _, err := range report.Errors {
		resp.Errors = append(resp.Errors, err.Error())
	}
	return resp
}

// respondFailure maps announcer errors to HTTP statuses.
func (h *Handler) respondFailure(w http.ResponseWriter, message string, err error) {
	var announcerErr *announcer.Error
	switch {
	case announcer.IsNotFound(err):
		h.respondError(w, http.StatusNotFound, message, announcer.ErrCodeNotFound)
	case announcer.IsCode(err, announcer.ErrCodeValidation):
		h.respondError(w, http.StatusBadRequest, err.Error(), announcer.ErrCodeValidation)
	case errors.As(err, &announcerErr):
		h.logger.Errorf("%s: %v", message, err)
		h.respondError(w, http.StatusInternalServerError, message, announcerErr.Code)
	default:
		h.logger.Errorf("%s: %v", message, err)
		h.respondError(w, http.StatusInternalServerError, message, "")
	}
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}
