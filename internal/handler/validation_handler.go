package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elo-edu/secretaria-api/internal/service"
	"github.com/elo-edu/secretaria-api/pkg/response"
)

// ValidationHandler exposes the public document verification endpoint.
type ValidationHandler struct {
	validation *service.ValidationService
}

// NewValidationHandler constructs ValidationHandler.
func NewValidationHandler(validation *service.ValidationService) *ValidationHandler {
	return &ValidationHandler{validation: validation}
}

// Validate godoc
// @Summary Validate a document by verification code
// @Description Public endpoint backing the QR code on printed documents. Unknown codes return a structured negative verdict, not an error.
// @Tags Validation
// @Produce json
// @Param code path string true "Verification code"
// @Success 200 {object} response.Envelope
// @Router /validacao/{code} [get]
func (h *ValidationHandler) Validate(c *gin.Context) {
	result, err := h.validation.Validate(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
