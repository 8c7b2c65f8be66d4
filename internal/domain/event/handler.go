package event

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/middleware"
	"github.com/pairlink/pairlink-api/internal/pkg/response"
	"github.com/pairlink/pairlink-api/internal/pkg/validator"
)

// Handler handles shared event HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates event handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /couple/events
// @Summary List shared events of the caller's couple
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]EventResponse}
// @Failure 404,500 {object} response.Response
// @Router /couple/events [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	items, err := h.service.List(r.Context(), userID)
	if err != nil {
		switch err {
		case ErrNoActiveCouple:
			response.NotFound(w, "No active couple")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, items)
}

// Create handles POST /couple/events
// @Summary Create a shared event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateEventRequest true "Event data"
// @Success 200 {object} response.Response{data=EventResponse}
// @Failure 400,404,500 {object} response.Response
// @Router /couple/events [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	// Missing or malformed fields are 400 here, not 422
	if errors := validator.Validate(&req); errors != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "bad_request", "Missing or invalid fields", errors)
		return
	}

	userID := middleware.GetUserID(r.Context())
	resp, err := h.service.Add(r.Context(), userID, &req)
	if err != nil {
		switch err {
		case ErrNoActiveCouple:
			response.NotFound(w, "No active couple")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, resp)
}

// Update handles PUT /couple/events/{id}
// @Summary Partially update a shared event
// @Tags Events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body UpdateEventRequest true "Fields to update"
// @Success 200 {object} response.Response{data=EventResponse}
// @Failure 400,403,404,500 {object} response.Response
// @Router /couple/events/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	var req UpdateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ErrorWithDetails(w, http.StatusBadRequest, "bad_request", "Missing or invalid fields", errors)
		return
	}

	userID := middleware.GetUserID(r.Context())
	resp, err := h.service.Update(r.Context(), userID, eventID, &req)
	if err != nil {
		h.writeEventError(w, err)
		return
	}

	response.OK(w, resp)
}

// Delete handles DELETE /couple/events/{id}
// @Summary Delete a shared event
// @Tags Events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} response.Response
// @Failure 400,403,404,500 {object} response.Response
// @Router /couple/events/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid event ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.service.Delete(r.Context(), userID, eventID); err != nil {
		h.writeEventError(w, err)
		return
	}

	response.OK(w, map[string]string{"status": "ok"})
}

func (h *Handler) writeEventError(w http.ResponseWriter, err error) {
	switch err {
	case ErrEventNotFound:
		response.NotFound(w, "Event not found")
	case ErrNotEventOwner:
		response.Forbidden(w, "Event does not belong to your couple")
	case ErrNoActiveCouple:
		response.NotFound(w, "No active couple")
	default:
		response.InternalError(w)
	}
}
