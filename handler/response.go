package handler

import (
	"encoding/json"
	"errors"
	"net/http"
)

// JSONResponse is the standard JSON response envelope.
type JSONResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string              `json:"code,omitempty"`
	Message string              `json:"message,omitempty"`
	Details map[string][]string `json:"details,omitempty"`
}

// JSON writes v inside the standard envelope with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, JSONResponse{Data: v})
}

// JSONWithMeta writes v plus response metadata inside the standard envelope.
func JSONWithMeta(w http.ResponseWriter, status int, v any, meta map[string]any) {
	writeJSON(w, status, JSONResponse{Data: v, Meta: meta})
}

// Error maps err to an HTTP status and writes it inside the standard envelope.
//
// Mapping rules, checked in order:
//   - ValidationError -> 422 with per-field details
//   - HTTPError       -> its status code and key
//   - anything else   -> 500 internal_error
func Error(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	detail := &ErrorDetail{Code: "internal_error", Message: err.Error()}

	var valErr ValidationError
	var httpErr HTTPError
	switch {
	case errors.As(err, &valErr):
		status = http.StatusUnprocessableEntity
		detail.Code = "validation_error"
		if len(valErr) > 0 {
			detail.Details = make(map[string][]string, len(valErr))
			for field, messages := range valErr {
				detail.Details[field] = messages
			}
		}
	case errors.As(err, &httpErr):
		status = httpErr.Code
		detail.Code = httpErr.Key
		detail.Message = http.StatusText(httpErr.Code)
	}

	writeJSON(w, status, JSONResponse{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, body JSONResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// DecodeJSON parses a JSON request body into v, rejecting unknown fields so
// client typos surface as errors instead of silently dropped data.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
