package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/archdemone/jewelry-backend/internal/clients/payment"
	"github.com/archdemone/jewelry-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps known service error kinds onto HTTP statuses.
// Validation problems are client errors with the offending field attached;
// everything else is a 500 with a generic code.
func RespondServiceError(c *gin.Context, err error) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, ErrorEnvelope{
			Error: APIError{
				Message: verr.Message,
				Code:    "validation_failed",
				Field:   verr.Field,
			},
		})
		return
	}
	var gerr *payment.GatewayError
	if errors.As(err, &gerr) {
		// Retryable processor trouble surfaces as 502 so clients know to
		// retry; a definitive decline is their 4xx to act on.
		status := http.StatusBadGateway
		if !gerr.Retryable() && gerr.Status >= 400 && gerr.Status < 500 {
			status = gerr.Status
		}
		RespondError(c, status, "payment_gateway_error", err)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
