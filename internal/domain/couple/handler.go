package couple

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/pairlink/pairlink-api/internal/middleware"
	"github.com/pairlink/pairlink-api/internal/pkg/response"
)

// Handler handles couple HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates couple handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Bind handles POST /couple/bind
// @Summary Send a pairing request
// @Tags Couple
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BindRequestBody true "Partner to bind with"
// @Success 200 {object} response.Response{data=BindRequestResponse}
// @Failure 400,404,500 {object} response.Response
// @Router /couple/bind [post]
func (h *Handler) Bind(w http.ResponseWriter, r *http.Request) {
	var req BindRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if req.PartnerID == "" {
		response.BadRequest(w, "partnerId is required")
		return
	}

	partnerID, err := uuid.Parse(req.PartnerID)
	if err != nil {
		response.BadRequest(w, "Invalid partner ID")
		return
	}

	userID := middleware.GetUserID(r.Context())
	bindReq, err := h.service.SendRequest(r.Context(), userID, partnerID)
	if err != nil {
		switch err {
		case ErrSelfBind:
			response.BadRequest(w, "不能绑定自己")
		case ErrUserNotFound:
			response.NotFound(w, "User not found")
		case ErrAlreadyPaired:
			response.BadRequest(w, "An active couple already exists")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, BindRequestResponseFromEntity(bindReq, nil))
}

// ListRequests handles GET /couple/requests
// @Summary Pending pairing requests addressed to the caller
// @Tags Couple
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]BindRequestResponse}
// @Failure 500 {object} response.Response
// @Router /couple/requests [get]
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	items, err := h.service.ListPending(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, items)
}

// Accept handles POST /couple/accept
// @Summary Accept a pairing request
// @Tags Couple
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AcceptRequestBody true "Request to accept"
// @Success 200 {object} response.Response{data=CoupleResponse}
// @Failure 400,403,404,500 {object} response.Response
// @Router /couple/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.decodeRequestID(w, r)
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	resp, err := h.service.Accept(r.Context(), requestID, userID)
	if err != nil {
		switch err {
		case ErrRequestNotFound:
			response.NotFound(w, "Bind request not found")
		case ErrNotRequestTarget:
			response.Forbidden(w, "You are not the target of this request")
		case ErrAlreadyPaired:
			response.BadRequest(w, "An active couple already exists")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, resp)
}

// Reject handles POST /couple/reject
// @Summary Reject a pairing request
// @Tags Couple
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AcceptRequestBody true "Request to reject"
// @Success 200 {object} response.Response{data=RejectResponse}
// @Failure 400,403,404,500 {object} response.Response
// @Router /couple/reject [post]
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	requestID, ok := h.decodeRequestID(w, r)
	if !ok {
		return
	}

	userID := middleware.GetUserID(r.Context())
	fromUserID, err := h.service.Reject(r.Context(), requestID, userID)
	if err != nil {
		switch err {
		case ErrRequestNotFound:
			response.NotFound(w, "Bind request not found")
		case ErrNotRequestTarget:
			response.Forbidden(w, "You are not the target of this request")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, RejectResponse{FromUserID: fromUserID})
}

// GetRelation handles GET /couple/relation
// @Summary Current active couple, or null
// @Tags Couple
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=CoupleResponse}
// @Failure 500 {object} response.Response
// @Router /couple/relation [get]
func (h *Handler) GetRelation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	resp, err := h.service.GetRelation(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	// Explicit null when unpaired, not an error
	if resp == nil {
		response.OK(w, nil)
		return
	}
	response.OK(w, resp)
}

// Validate handles POST /couple/validate
// @Summary Check couple membership
// @Tags Couple
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ValidateBody true "Couple to validate"
// @Success 200 {object} response.Response{data=ValidateResponse}
// @Failure 500 {object} response.Response
// @Router /couple/validate [post]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	coupleID, err := uuid.Parse(req.CoupleID)
	if err != nil {
		// Malformed id is simply not a valid couple
		response.OK(w, ValidateResponse{Valid: false})
		return
	}

	userID := middleware.GetUserID(r.Context())
	valid, err := h.service.ValidateCouple(r.Context(), coupleID, userID)
	if err != nil {
		response.InternalError(w)
		return
	}

	resp := ValidateResponse{Valid: valid}
	if valid {
		resp.CoupleID = &coupleID
	}
	response.OK(w, resp)
}

// Unbind handles POST /couple/unbind
// @Summary Dissolve the active couple
// @Tags Couple
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404,500 {object} response.Response
// @Router /couple/unbind [post]
func (h *Handler) Unbind(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.Unbind(r.Context(), userID); err != nil {
		switch err {
		case ErrNoActiveCouple:
			response.NotFound(w, "No active couple")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, map[string]string{"status": "ok"})
}

func (h *Handler) decodeRequestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var req AcceptRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return uuid.Nil, false
	}
	if req.RequestID == "" {
		response.BadRequest(w, "requestId is required")
		return uuid.Nil, false
	}

	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		response.BadRequest(w, "Invalid request ID")
		return uuid.Nil, false
	}
	return requestID, true
}
