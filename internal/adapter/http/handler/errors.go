package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/Temutjin2k/ride-lifecycle/internal/domain/types"
	"github.com/Temutjin2k/ride-lifecycle/pkg/logger"
	wrap "github.com/Temutjin2k/ride-lifecycle/pkg/logger/wrapper"
)

func errorResponse(w http.ResponseWriter, status int, message any, kind string) {
	env := envelope{"error": message, "kind": kind}

	// Fall back to an empty 500 if the envelope cannot be written.
	if err := writeJSON(w, status, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// failedValidationResponse returns 422 UnprocessableEntity status.
// Clients that receive it should expect that repeating the request
// without modification will fail with the same error.
func failedValidationResponse(w http.ResponseWriter, fields map[string]string) {
	env := envelope{
		"error":  "validation failed",
		"kind":   types.KindValidation,
		"fields": fields,
	}
	if err := writeJSON(w, http.StatusUnprocessableEntity, env, nil); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// badRequestResponse returns 400 BadRequest status for malformed request syntax.
func badRequestResponse(w http.ResponseWriter, message any) {
	errorResponse(w, http.StatusBadRequest, message, types.KindValidation)
}

// internalErrorResponse returns 500 InternalServerError status.
// The message is never the underlying error.
func internalErrorResponse(w http.ResponseWriter) {
	errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request", types.KindInternal)
}

// serviceErrorResponse writes err using its kind and logs it at a level
// matching the status.
func serviceErrorResponse(ctx context.Context, w http.ResponseWriter, l logger.Logger, msg string, err error) {
	var fields types.FieldErrors
	if errors.As(err, &fields) {
		failedValidationResponse(w, fields)
		return
	}

	code := GetCode(err)
	switch {
	case code == http.StatusInternalServerError:
		l.Error(wrap.ErrorCtx(ctx, err), msg, err)
		internalErrorResponse(w)
		return
	case code == http.StatusServiceUnavailable:
		l.Error(wrap.ErrorCtx(ctx, err), msg, err)
	default:
		l.Warn(wrap.ErrorCtx(ctx, err), msg, "error", err.Error())
	}

	errorResponse(w, code, err.Error(), types.KindOf(err))
}
