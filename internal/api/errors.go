package api

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"breezbook/internal/calendar"
	"breezbook/internal/models"
)

var (
	errMissingKey       = errors.New("missing api key headers")
	errInvalidKey       = errors.New("invalid api key")
	errInvalidExtra     = errors.New("invalid extra header")
	errPermissionDenied = errors.New("permission denied")
	errTenantDenied     = errors.New("tenant not permitted for this client")
)

// httpStatus maps an engine or service error to a response code.
func httpStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errPermissionDenied), errors.Is(err, errTenantDenied):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrPrecondition), errors.Is(err, calendar.ErrInvalidPeriod):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrQuoteExpired):
		return http.StatusGone
	case errors.Is(err, models.ErrNotAvailable),
		errors.Is(err, models.ErrPriceChanged),
		errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// grpcError converts err to a status error, hiding internal details.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var code codes.Code
	switch {
	case errors.Is(err, errPermissionDenied), errors.Is(err, errTenantDenied):
		code = codes.PermissionDenied
	case errors.Is(err, models.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, models.ErrPrecondition), errors.Is(err, calendar.ErrInvalidPeriod):
		code = codes.InvalidArgument
	case errors.Is(err, models.ErrRateLimited):
		code = codes.ResourceExhausted
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
