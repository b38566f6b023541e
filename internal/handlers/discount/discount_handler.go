// internal/handlers/discount/discount_handler.go
package discount

import (
	"errors"
	"net/http"

	"prepcoach-service/internal/domain/discount"
	xerrors "prepcoach-service/internal/pkg/errors"
	"prepcoach-service/internal/pkg/response"
	service "prepcoach-service/internal/service/discount"

	"github.com/gin-gonic/gin"
)

type DiscountHandler struct {
	discountService *service.DiscountService
}

func NewDiscountHandler(discountService *service.DiscountService) *DiscountHandler {
	return &DiscountHandler{
		discountService: discountService,
	}
}

// Validate checks and reserves a promo code for the caller. Rejections are
// ordinary outcomes, returned with 200 and a user-displayable reason.
func (h *DiscountHandler) Validate(c *gin.Context) {
	var req discount.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	code, err := h.discountService.ValidateAndReserve(c.Request.Context(), req.Code, req.Email, req.Kind)
	if err != nil {
		if rejection(err) {
			response.Success(c, http.StatusOK, "code rejected", discount.ValidateResponse{
				Valid: false,
				Error: err.Error(),
			})
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to validate code", err)
		return
	}

	response.Success(c, http.StatusOK, "code accepted", discount.ValidateResponse{
		Valid:       true,
		Percent:     code.Percent,
		Description: code.Description,
		CodeID:      code.ID,
	})
}

// CreateCode registers a new promo code. Operator-only; the route sits
// behind the admin key middleware.
func (h *DiscountHandler) CreateCode(c *gin.Context) {
	var req discount.CreateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	code, err := h.discountService.CreateCode(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidInput) {
			response.ValidationError(c, "invalid discount code", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to create code", err)
		return
	}

	response.Success(c, http.StatusCreated, "discount code created", code)
}

func rejection(err error) bool {
	return errors.Is(err, xerrors.ErrCodeNotFound) ||
		errors.Is(err, xerrors.ErrCodeExpired) ||
		errors.Is(err, xerrors.ErrCodeNotApplicable) ||
		errors.Is(err, xerrors.ErrAlreadyRedeemed) ||
		errors.Is(err, xerrors.ErrMaxRedemptionsReached)
}
