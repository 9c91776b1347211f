package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rulecast/internal/logging"
	"rulecast/internal/manifest"
	"rulecast/internal/services"
)

// Codes for failures that carry no in-band pipeline code.
const (
	codeNotFound        = "NOT_FOUND"
	codeBadRequest      = "BAD_REQUEST"
	codePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	codeInternal        = "INTERNAL_ERROR"
	codeUnavailable     = "UNAVAILABLE"
	codeNotReloadable   = "CONTRACT_NOT_RELOADABLE"
	codeRegression      = "CONTRACT_VERSION_REGRESSION"
)

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, body ErrorBody) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: &body})
}

// mapError translates a pipeline error into a status code and error body.
// Malformed input maps to 400, governance rejections to 422, and anything
// else to 500 with the cause withheld from the client.
func mapError(err error) (int, ErrorBody) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorBody{Code: codePayloadTooLarge, Message: "request body exceeds the configured limit"}
	}
	code := services.CodeOf(err)
	body := ErrorBody{Code: code, Message: err.Error()}

	var missing *manifest.MissingMetadataError
	if errors.As(err, &missing) {
		body.Fields = append([]string(nil), missing.Fields...)
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		body.Code = codeNotFound
		return http.StatusNotFound, body
	case code == services.CodeInputInvalid, code == services.CodeStoryboardInvalid:
		return http.StatusBadRequest, body
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrStructural), errors.Is(err, services.ErrBudgetExceeded):
		if body.Code == "" {
			body.Code = codeBadRequest
		}
		return http.StatusUnprocessableEntity, body
	default:
		return http.StatusInternalServerError, ErrorBody{Code: codeInternal, Message: "an internal error occurred"}
	}
}

// handleError logs server-side failures and writes the mapped response.
func (s *Server) handleError(c *gin.Context, err error) {
	status, body := mapError(err)
	if status >= http.StatusInternalServerError {
		logger := logging.WithContext(c.Request.Context(), s.logger)
		logging.ErrorWithContext(logger, "request failed", "api_request_failed",
			logging.String("path", c.FullPath()),
			logging.Error(err),
		)
	}
	respondError(c, status, body)
}
