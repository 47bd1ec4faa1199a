package api

import (
	"errors"
	"net/http"

	"fortune-report-api/internal/database"
	"fortune-report-api/internal/report"
	"fortune-report-api/internal/response"
	"fortune-report-api/internal/services"
	"fortune-report-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// statusFor maps service and store errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, report.ErrMissingID),
		errors.Is(err, report.ErrUnknownReportType),
		errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidImage),
		errors.Is(err, services.ErrFreeReport),
		errors.Is(err, services.ErrAmountMismatch),
		errors.Is(err, database.ErrCouponInactive),
		errors.Is(err, database.ErrCouponExhausted),
		errors.Is(err, database.ErrCouponNotApplicable):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrRecordNotFound),
		errors.Is(err, database.ErrRecordNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrCouponNotFound),
		errors.Is(err, services.ErrUnknownDomain):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyPaid),
		errors.Is(err, database.ErrCouponExists):
		return http.StatusConflict
	case errors.Is(err, report.ErrMissingFeatures):
		return http.StatusUnprocessableEntity
	case errors.Is(err, report.ErrGenerationFailed),
		errors.Is(err, report.ErrUnrecognizedShape),
		errors.Is(err, services.ErrRemoteCall):
		return http.StatusBadGateway
	case errors.Is(err, database.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError sends the mapped status. Server-side failures get a generic
// message; the cause only goes to the log.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	message := err.Error()
	if status >= http.StatusInternalServerError {
		logging.Errorf("Request failed - path: %s, error: %v", c.Request.URL.Path, err)
		message = report.UserMessage(err)
	}
	response.ErrorJSON(c, status, message)
}
