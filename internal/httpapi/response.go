package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/voxa/internal/progression"
)

// Error codes carried in the error envelope.
const (
	CodeInvalidRequest     = "invalid_request"
	CodeInvalidInput       = "invalid_input"
	CodeStorageUnavailable = "storage_unavailable"
	CodeInternal           = "internal"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// respondLedgerError maps pipeline and ledger errors onto HTTP statuses.
func respondLedgerError(c *gin.Context, err error) {
	var se *progression.StorageError
	switch {
	case errors.Is(err, progression.ErrInvalidInput):
		RespondError(c, http.StatusBadRequest, CodeInvalidInput, err)
	case errors.As(err, &se):
		RespondError(c, http.StatusServiceUnavailable, CodeStorageUnavailable, err)
	default:
		RespondError(c, http.StatusInternalServerError, CodeInternal, err)
	}
}
