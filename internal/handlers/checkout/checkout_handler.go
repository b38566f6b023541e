// internal/handlers/checkout/checkout_handler.go
package checkout

import (
	"errors"
	"io"
	"net/http"

	"prepcoach-service/internal/domain/session"
	xerrors "prepcoach-service/internal/pkg/errors"
	"prepcoach-service/internal/pkg/response"
	service "prepcoach-service/internal/service/checkout"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	checkoutService *service.CheckoutService
}

func NewCheckoutHandler(checkoutService *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
	}
}

// CreateCheckout starts a purchase. If the caller still has an unresolved
// paused session it is returned with 409; the client must offer resume or
// abandon, a second session is never created silently.
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	var req service.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.checkoutService.CreateCheckout(c.Request.Context(), &req)
	if err != nil {
		var conflict *service.ConflictError
		switch {
		case errors.As(err, &conflict):
			response.Conflict(c, "a paused session must be resumed or abandoned first", session.Conflict{
				PausedSession: conflict.PausedSession,
			})
		case errors.Is(err, xerrors.ErrCodeNotFound),
			errors.Is(err, xerrors.ErrCodeExpired),
			errors.Is(err, xerrors.ErrCodeNotApplicable),
			errors.Is(err, xerrors.ErrAlreadyRedeemed),
			errors.Is(err, xerrors.ErrMaxRedemptionsReached):
			response.Error(c, http.StatusUnprocessableEntity, "discount code rejected", err)
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid checkout request", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to create checkout", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "checkout created", result)
}

// Webhook receives payment processor callbacks.
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 64*1024))
	if err != nil {
		response.ValidationError(c, "unreadable payload", err)
		return
	}

	err = h.checkoutService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, xerrors.ErrUnauthorized) {
			response.Unauthorized(c, "invalid webhook signature")
			return
		}
		// Non-2xx makes the processor retry delivery.
		response.Error(c, http.StatusInternalServerError, "failed to process webhook", err)
		return
	}

	response.Success(c, http.StatusOK, "webhook processed", nil)
}
