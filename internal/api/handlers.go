package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/Simsar/internal/models"
)

func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.createSessionHandler: processing request", "method", r.Method, "path", r.URL.Path)
	var req models.CreateSessionRequest
	// An empty body selects the default channel.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("Server.createSessionHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "Server.createSessionHandler", err)
		return
	}

	snap, welcome, err := s.sessions.Create(r.Context(), req.Channel)
	if err != nil {
		writeError(w, "Server.createSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.Success(models.SessionCreated{
		SessionID: snap.ID,
		Phase:     snap.Phase,
		Welcome:   welcome,
	}))
}

func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, "Server.getSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(snap))
}

func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		writeError(w, "Server.deleteSessionHandler", err)
		return
	}
	slog.Info("Server.deleteSessionHandler: session deleted", "id", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session deleted", nil))
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	var req models.MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody)).Decode(&req); err != nil {
		slog.Warn("Server.messageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, "Server.messageHandler", err)
		return
	}

	resp, err := s.sessions.Turn(r.Context(), r.PathValue("id"), req.Message, req.State)
	if err != nil {
		writeError(w, "Server.messageHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

func (s *Server) twilioWebhookHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.twilioWebhookHandler: failed to parse form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	if s.validator != nil && !s.validSignature(r) {
		slog.Warn("Server.twilioWebhookHandler: invalid signature")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	from, body := r.PostFormValue("From"), r.PostFormValue("Body")
	if from == "" || body == "" {
		slog.Warn("Server.twilioWebhookHandler: missing fields", "from_set", from != "", "body_set", body != "")
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}
	req := models.MessageRequest{Message: body}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.sessions.TurnForRecipient(r.Context(), from, body)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			slog.Error("Server.twilioWebhookHandler: turn failed", "error", err)
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	if s.sender != nil {
		if err := s.sender.SendMessage(r.Context(), from, resp.Reply); err != nil {
			slog.Error("Server.twilioWebhookHandler: failed to send reply", "error", err, "session", resp.SessionID)
		}
	} else {
		slog.Warn("Server.twilioWebhookHandler: no sender configured, reply dropped", "session", resp.SessionID)
	}
	writeTwiML(w)
}

func (s *Server) validSignature(r *http.Request) bool {
	params := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return s.validator.Validate(s.requestURL(r), params, r.Header.Get("X-Twilio-Signature"))
}

// requestURL rebuilds the URL Twilio signed.
func (s *Server) requestURL(r *http.Request) string {
	if s.publicURL != "" {
		return s.publicURL + r.URL.RequestURI()
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("ok", nil))
}
