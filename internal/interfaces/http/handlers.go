package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/destiin/travel-booking/internal/application/service"
)

// Services are the application entrypoints reachable over HTTP
type Services struct {
	Requests      service.RequestService
	Approvals     service.ApprovalService
	Confirmations service.ConfirmationService
	Cancellations service.CancellationService
	Payments      service.PaymentService
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, service.Result{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// respond writes res. Business failures keep status 200 with success=false;
// only unexpected faults are reported as 500.
func respond(c *gin.Context, res *service.Result) {
	code := http.StatusOK
	if !res.Success && res.Kind == "internal" {
		code = http.StatusInternalServerError
	}
	c.JSON(code, res)
}

// bindJSON decodes the body into out and answers malformed bodies itself
func (h *Handlers) bindJSON(c *gin.Context, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		h.logger.Info("Invalid request body", "path", c.FullPath(), "error", err)
		respond(c, &service.Result{Success: false, Error: "invalid request body: " + err.Error(), Kind: "validation"})
		return false
	}
	return true
}

// StoreRequest handles POST /api/requests
func (h *Handlers) StoreRequest(c *gin.Context) {
	var in service.StoreRequestInput
	if !h.bindJSON(c, &in) {
		return
	}
	respond(c, h.services.Requests.StoreRequest(c.Request.Context(), in))
}

// UpdateRequest handles PUT /api/requests/:id
func (h *Handlers) UpdateRequest(c *gin.Context) {
	var in service.UpdateRequestInput
	if !h.bindJSON(c, &in) {
		return
	}
	in.RequestID = c.Param("id")
	respond(c, h.services.Requests.UpdateRequest(c.Request.Context(), in))
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	respond(c, h.services.Requests.GetRequest(c.Request.Context(), c.Param("id")))
}

// ListRequests handles GET /api/requests
func (h *Handlers) ListRequests(c *gin.Context) {
	var in service.ListRequestsInput
	if err := c.ShouldBindQuery(&in); err != nil {
		h.logger.Info("Invalid query parameters", "error", err)
		respond(c, &service.Result{Success: false, Error: "invalid query parameters: " + err.Error(), Kind: "validation"})
		return
	}
	respond(c, h.services.Requests.ListRequests(c.Request.Context(), in))
}

func (h *Handlers) selection(c *gin.Context) (service.SelectionInput, bool) {
	var in service.SelectionInput
	if !h.bindJSON(c, &in) {
		return in, false
	}
	in.RequestID = c.Param("id")
	return in, true
}

// SendForApproval handles POST /api/requests/:id/send-for-approval
func (h *Handlers) SendForApproval(c *gin.Context) {
	if in, ok := h.selection(c); ok {
		respond(c, h.services.Approvals.SendForApproval(c.Request.Context(), in))
	}
}

// Approve handles POST /api/requests/:id/approve
func (h *Handlers) Approve(c *gin.Context) {
	if in, ok := h.selection(c); ok {
		respond(c, h.services.Approvals.Approve(c.Request.Context(), in))
	}
}

// Decline handles POST /api/requests/:id/decline
func (h *Handlers) Decline(c *gin.Context) {
	if in, ok := h.selection(c); ok {
		respond(c, h.services.Approvals.Decline(c.Request.Context(), in))
	}
}

// PrepareBooking handles POST /api/requests/:id/booking
func (h *Handlers) PrepareBooking(c *gin.Context) {
	if in, ok := h.selection(c); ok {
		respond(c, h.services.Confirmations.PrepareBooking(c.Request.Context(), in))
	}
}

// ConfirmBooking handles POST /api/webhooks/bookings/confirm
func (h *Handlers) ConfirmBooking(c *gin.Context) {
	var w service.BookingWebhook
	if !h.bindJSON(c, &w) {
		return
	}
	respond(c, h.services.Confirmations.ConfirmBooking(c.Request.Context(), &w))
}

// CreateBooking handles POST /api/webhooks/bookings/create
func (h *Handlers) CreateBooking(c *gin.Context) {
	var w service.BookingWebhook
	if !h.bindJSON(c, &w) {
		return
	}
	respond(c, h.services.Confirmations.CreateBooking(c.Request.Context(), &w))
}

// CancelBooking handles POST /api/bookings/:booking_id/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	respond(c, h.services.Cancellations.CancelBooking(c.Request.Context(), c.Param("booking_id")))
}

// CreatePaymentLink handles POST /api/payments/:id/link
func (h *Handlers) CreatePaymentLink(c *gin.Context) {
	respond(c, h.services.Payments.CreatePaymentURL(c.Request.Context(), c.Param("id")))
}
