package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/Simsar/internal/messaging"
	"github.com/BTreeMap/Simsar/internal/models"
	"github.com/BTreeMap/Simsar/internal/store"
)

// emptyTwiML acknowledges a webhook without a synchronous reply.
const emptyTwiML = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// fallbackErrorResponse is written when a response cannot be encoded.
var fallbackErrorResponse = mustMarshal(models.Error("Internal server error"))

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic("api: cannot marshal fallback response: " + err.Error())
	}
	return data
}

// writeJSONResponse encodes response before touching headers, so an encoding failure
// still produces a well-formed 500.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response any) {
	data, err := json.Marshal(response)
	if err != nil {
		slog.Error("writeJSONResponse: failed to marshal response", "error", err)
		data, statusCode = fallbackErrorResponse, http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(data); err != nil {
		slog.Error("writeJSONResponse: failed to write response", "error", err)
	}
}

// writeError maps err to a status and writes it as an error envelope. Server-side
// failures are logged with op and their details kept out of the body.
func writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error(op+": request failed", "error", err)
		msg = "Internal server error"
	}
	writeJSONResponse(w, status, models.Error(msg))
}

// writeTwiML acknowledges a Twilio webhook.
func writeTwiML(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(emptyTwiML)); err != nil {
		slog.Error("writeTwiML: failed to write response", "error", err)
	}
}

// statusFor maps domain and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrVersionConflict), errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyMessage), errors.Is(err, models.ErrMessageTooLong),
		errors.Is(err, models.ErrInvalidChannel), errors.Is(err, models.ErrEmptySessionID),
		errors.Is(err, messaging.ErrEmptyRecipient), errors.Is(err, messaging.ErrInvalidRecipient):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
