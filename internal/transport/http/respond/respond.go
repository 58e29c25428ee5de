// Package respond writes JSON responses and maps domain error kinds to HTTP
// status codes. Domain errors reach the client with both message languages;
// anything unrecognized collapses to a generic internal error so upstream
// detail never leaks.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/identity-api/internal/domain"
)

// ErrorBody is the wire shape of a failed request.
type ErrorBody struct {
	Kind    domain.Kind    `json:"kind"`
	Message domain.Message `json:"message"`
}

// ErrorEnvelope wraps ErrorBody under a stable top-level key.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error renders err. Domain errors keep their kind and bilingual message;
// everything else becomes the internal error.
func Error(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.ErrInternal
	}
	JSON(w, statusFor(de.Kind), ErrorEnvelope{Error: ErrorBody{Kind: de.Kind, Message: de.Message}})
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindInvalidCredentials, domain.KindInvalidToken:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidCode, domain.KindIncorrectCode, domain.KindExpiredCode,
		domain.KindAlreadyVerified, domain.KindInvalidRole:
		return http.StatusBadRequest
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
