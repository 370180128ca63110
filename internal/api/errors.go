package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"wasmdb/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
// Rejected input (bad rows, bad source) is 422; unknown names are 404;
// everything that failed on our side of the contract is 500.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var arity *domain.ArityError
	var unknownField *domain.UnknownFieldError
	var typeMismatch *domain.TypeMismatchError
	var reserved *domain.ReservedColumnError
	var compile *domain.CompileError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &arity),
		errors.As(err, &unknownField),
		errors.As(err, &typeMismatch),
		errors.As(err, &reserved),
		errors.As(err, &compile):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Code: status, Message: err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, httpStatusFromDomainError(err), err)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
