package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/secdrive/internal/common"
)

// Status classifications carried in error bodies.
const (
	statusValidation   = "validation-error"
	statusUnauthorized = "unauthorized"
	statusForbidden    = "authorization-error"
	statusNotFound     = "not-found"
	statusConflict     = "conflict"
	statusDownstream   = "downstream-service-error"
	statusUnexpected   = "unexpected-error"
)

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, status, message string) {
	writeJSON(w, code, errorResponse{Error: message, Status: status})
}

// writeClassified writes err with the status its kind maps to.
func writeClassified(w http.ResponseWriter, err error) {
	code, status := classify(err)
	writeError(w, code, status, publicMessage(err, code))
}

// classify maps an error kind onto an HTTP status code and classification.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, statusValidation
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, statusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, statusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, statusNotFound
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, statusConflict
	case errors.Is(err, common.ErrKeyService),
		errors.Is(err, common.ErrStore),
		errors.Is(err, common.ErrObjectStore):
		return http.StatusBadGateway, statusDownstream
	default:
		return http.StatusInternalServerError, statusUnexpected
	}
}

// publicMessage hides downstream detail from clients; the full error is logged.
func publicMessage(err error, code int) string {
	switch {
	case code < http.StatusInternalServerError:
		return err.Error()
	case errors.Is(err, common.ErrKeyService):
		return "KMS Error: " + common.ErrKeyService.Error()
	case errors.Is(err, common.ErrStore):
		return "Database Error: " + common.ErrStore.Error()
	case errors.Is(err, common.ErrObjectStore):
		return "Storage Error: " + common.ErrObjectStore.Error()
	default:
		return "internal error"
	}
}
