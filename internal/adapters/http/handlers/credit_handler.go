package handlers

import (
	"errors"
	"log/slog"
	"time"

	"creditflow/internal/core/domain"
	"creditflow/internal/core/services"
	"creditflow/internal/pkg/pagination"
	"creditflow/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CreditHandler handles credit request endpoints
type CreditHandler struct {
	creditService services.CreditRequestService
	log           *slog.Logger
}

// NewCreditHandler creates a new credit handler
func NewCreditHandler(creditService services.CreditRequestService, log *slog.Logger) *CreditHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CreditHandler{
		creditService: creditService,
		log:           log,
	}
}

// CreateCreditRequest represents the credit request intake body
type CreateCreditRequest struct {
	ApplicantName     string          `json:"applicantName"`
	ApplicantIdentity string          `json:"applicantIdentity"`
	RequestedAmount   decimal.Decimal `json:"requestedAmount" swaggertype:"string" example:"5000.00"`
}

// CreditRequestSummary is returned on intake
type CreditRequestSummary struct {
	RequestID uint          `json:"requestId"`
	Status    domain.Status `json:"status"`
}

// CreditRequestResponse is the full view of a credit request
type CreditRequestResponse struct {
	RequestID         uint            `json:"requestId"`
	ApplicantName     string          `json:"applicantName"`
	ApplicantIdentity string          `json:"applicantIdentity"`
	RequestedAmount   decimal.Decimal `json:"requestedAmount" swaggertype:"string"`
	RequestDate       time.Time       `json:"requestDate"`
	Status            domain.Status   `json:"status"`
	RejectionReason   *string         `json:"rejectionReason"`
}

func toResponse(r *domain.CreditRequest) CreditRequestResponse {
	return CreditRequestResponse{
		RequestID:         r.ID,
		ApplicantName:     r.ApplicantName,
		ApplicantIdentity: r.ApplicantIdentity,
		RequestedAmount:   r.RequestedAmount,
		RequestDate:       r.RequestDate,
		Status:            r.Status,
		RejectionReason:   r.RejectionReason,
	}
}

// Create creates a new credit request
// @Summary Create credit request
// @Description Store a Pending credit request and queue it for evaluation
// @Tags Credit
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateCreditRequest true "Credit request"
// @Success 201 {object} response.Response
// @Success 202 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /credit/request [post]
func (h *CreditHandler) Create(c *fiber.Ctx) error {
	var req CreateCreditRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	created, err := h.creditService.Create(c.UserContext(), services.CreateCreditRequestInput{
		ApplicantName:     req.ApplicantName,
		ApplicantIdentity: req.ApplicantIdentity,
		RequestedAmount:   req.RequestedAmount,
	})
	if err != nil {
		if created != nil && errors.Is(err, domain.ErrBroker) {
			return response.Accepted(c, "Request accepted, decision pending", CreditRequestSummary{
				RequestID: created.ID,
				Status:    created.Status,
			})
		}
		return h.handleError(c, err, "Failed to create credit request")
	}

	return response.Created(c, "Credit request created successfully", CreditRequestSummary{
		RequestID: created.ID,
		Status:    created.Status,
	})
}

// Evaluate evaluates a pending credit request immediately
// @Summary Evaluate credit request
// @Description Score and decide a Pending credit request
// @Tags Credit
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Response
// @Success 202 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /credit/evaluate/{id} [post]
func (h *CreditHandler) Evaluate(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid request ID")
	}

	decided, err := h.creditService.Evaluate(c.UserContext(), uint(id))
	if err != nil {
		if decided != nil && errors.Is(err, domain.ErrBroker) {
			return response.Accepted(c, "Decision stored, notification pending", toResponse(decided))
		}
		return h.handleError(c, err, "Failed to evaluate credit request")
	}

	return response.Success(c, "Credit request evaluated", toResponse(decided))
}

// Get gets a credit request by ID
// @Summary Get credit request
// @Tags Credit
// @Produce json
// @Security BearerAuth
// @Param id path int true "Request ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /credit/{id} [get]
func (h *CreditHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid request ID")
	}

	req, err := h.creditService.GetByID(c.UserContext(), uint(id))
	if err != nil {
		return h.handleError(c, err, "Failed to get credit request")
	}

	return response.Success(c, "", toResponse(req))
}

// List lists credit requests
// @Summary List credit requests
// @Tags Credit
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Filter by status" Enums(Pending, Approved, Rejected)
// @Failure 400 {object} response.Response
// @Success 200 {object} response.Response
// @Router /credit [get]
func (h *CreditHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	status := domain.Status(c.Query("status"))
	if status != "" && !status.IsValid() {
		return response.BadRequest(c, "status must be Pending, Approved or Rejected")
	}

	all, err := h.creditService.GetAll(c.UserContext())
	if err != nil {
		return h.handleError(c, err, "Failed to list credit requests")
	}

	if status != "" {
		filtered := make([]*domain.CreditRequest, 0, len(all))
		for _, r := range all {
			if r.Status == status {
				filtered = append(filtered, r)
			}
		}
		all = filtered
	}

	return response.Success(c, "", pagination.Map(pagination.Paginate(all, params), toResponse))
}

func (h *CreditHandler) handleError(c *fiber.Ctx, err error, fallback string) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return response.BadRequest(c, verr.Error())
	case errors.Is(err, domain.ErrNotFound):
		return response.NotFound(c, "Credit request not found")
	case errors.Is(err, domain.ErrInvalidState):
		return response.Conflict(c, domain.ErrInvalidState.Error())
	case errors.Is(err, domain.ErrScoreProvider):
		h.log.Warn("score provider unavailable", "path", c.Path(), "error", err)
		return response.ServiceUnavailable(c, "Credit score provider unavailable")
	case errors.Is(err, domain.ErrBroker):
		return response.ServiceUnavailable(c, "Message broker unavailable")
	}

	h.log.Error(fallback, "path", c.Path(), "error", err)
	return response.InternalServerError(c, fallback)
}
