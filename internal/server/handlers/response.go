package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/HakuMatsunoki/natours-api-typeorm/internal/server/auth"
	"github.com/HakuMatsunoki/natours-api-typeorm/pkg/api"
)

// Responder writes JSON bodies and maps errors to responses.
// It is shared by handlers and middleware so every failure has the same shape.
type Responder struct {
	logger     *slog.Logger
	production bool
}

// NewResponder creates a new Responder. Outside production, error
// responses carry the wrapped cause in the detail field.
func NewResponder(logger *slog.Logger, production bool) *Responder {
	return &Responder{
		logger:     logger,
		production: production,
	}
}

// SendJSON отправляет JSON ответ
func (rs *Responder) SendJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		rs.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// WriteError maps err to a status code and an api.ErrorResponse.
func (rs *Responder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := auth.KindOf(err).HTTPStatus()
	kind := auth.KindOf(err).String()
	message := auth.MessageOf(err)

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		status = http.StatusRequestEntityTooLarge
		kind = "request_too_large"
		message = fmt.Sprintf("Request body must not exceed %d bytes", tooLarge.Limit)
	}

	resp := api.ErrorResponse{
		Status:  api.StatusFail,
		Error:   kind,
		Message: message,
	}
	if status >= http.StatusInternalServerError {
		resp.Status = api.StatusError
	}
	if !rs.production {
		resp.Detail = err.Error()
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	rs.logger.Log(r.Context(), level, "request failed",
		slog.String("method", r.Method),
		slog.Int("status", status),
		slog.String("kind", kind),
		slog.Any("error", err),
	)

	rs.SendJSON(w, resp, status)
}

// WriteStatus sends a bare error response that has no auth error behind it.
func (rs *Responder) WriteStatus(w http.ResponseWriter, status int, kind, message string) {
	resp := api.ErrorResponse{
		Status:  api.StatusFail,
		Error:   kind,
		Message: message,
	}
	if status >= http.StatusInternalServerError {
		resp.Status = api.StatusError
	}
	rs.SendJSON(w, resp, status)
}

// decodeJSON decodes exactly one JSON object into dst, rejecting fields dst
// does not declare.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return badRequest(errors.New("request body must contain a single JSON object"))
	}
	return nil
}

func badRequest(err error) error {
	return &auth.Error{
		Kind:    auth.KindValidation,
		Message: "Invalid request body: " + err.Error(),
		Err:     err,
	}
}

// identity returns the authenticated caller, set by middleware.Authenticate.
func identity(r *http.Request) (*auth.Identity, error) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return id, nil
}
