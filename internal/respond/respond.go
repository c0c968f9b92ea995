// Package respond writes JSON responses and converts errors at the HTTP boundary.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/apperr"
)

// MaxBodyBytes bounds every decoded request body.
const MaxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Kind   apperr.Kind       `json:"kind"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSON writes v with the given status. v is encoded before the header goes
// out, so a value that cannot be encoded is answered with a 500 instead.
func JSON(w http.ResponseWriter, logger *zap.SugaredLogger, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		if logger != nil {
			logger.Errorw("encode response failed", "status", status, "err", err)
		}
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorBody{Error: "internal server error", Kind: apperr.KindInternal})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil && logger != nil {
		logger.Debugw("write response failed", "err", err)
	}
}

// Error classifies err and writes it. Internal failures are logged with their
// cause and answered with a generic message only.
func Error(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	e := apperr.From(err)
	status := e.HTTPStatus()
	if logger != nil {
		if status >= http.StatusInternalServerError {
			logger.Errorw("request failed", "kind", e.Kind, "err", err)
		} else {
			logger.Debugw("request rejected", "kind", e.Kind, "err", err)
		}
	}
	JSON(w, logger, status, ErrorBody{Error: e.Message, Kind: e.Kind, Fields: e.Fields})
}

// Decode reads a JSON body into dst. Empty and malformed bodies are
// validation errors.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Wrap(err, apperr.KindValidation, "request body is required")
		}
		return apperr.Wrap(err, apperr.KindValidation, "invalid payload")
	}
	return nil
}
