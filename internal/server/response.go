package server

import (
	"encoding/json"
	"net/http"

	"github.com/matzehuels/versolve/pkg/errors"
	"github.com/matzehuels/versolve/pkg/resolve"
)

// errorResponse is the body of every non-2xx response. Conflict carries the
// structured explanation of a *resolve.ResolverError or the violations of a
// *resolve.GraphValidationError.
type errorResponse struct {
	Code     errors.Code `json:"code"`
	Error    string      `json:"error"`
	Conflict any         `json:"conflict,omitempty"`
}

// statusOf maps an error code to an HTTP status.
func statusOf(code errors.Code) int {
	switch code {
	case errors.ErrCodeUnsatisfiable, errors.ErrCodeGraphValidation:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInternal, "":
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	resp := errorResponse{Code: code, Error: err.Error()}

	var conflict *resolve.ResolverError
	var invalid *resolve.GraphValidationError
	switch {
	case errors.As(err, &conflict):
		resp.Conflict = conflict
	case errors.As(err, &invalid):
		resp.Conflict = invalid
	}
	if code == "" {
		resp.Code = errors.ErrCodeInternal
	}
	writeJSON(w, statusOf(code), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
