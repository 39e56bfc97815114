package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/BotWeave/BotWeave/internal/messenger"
	"github.com/BotWeave/BotWeave/internal/models"
)

// verifyWebhookHandler answers the Messenger subscription handshake (GET /webhook).
func (s *Server) verifyWebhookHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.verifyWebhookHandler: processing handshake", "query", r.URL.RawQuery)
	if s.msgClient == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Messenger channel not configured"))
		return
	}

	q := r.URL.Query()
	challenge, ok := s.msgClient.VerifyWebhook(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"))
	if !ok {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(challenge)); err != nil {
		slog.Error("Server.verifyWebhookHandler: failed to write challenge", "error", err)
	}
}

// webhookHandler receives Messenger message events (POST /webhook). Events are
// acknowledged even when individual messages fail; Messenger retries the whole
// batch otherwise.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.webhookHandler: processing event", "method", r.Method)
	if s.msgClient == nil {
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Messenger channel not configured"))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		slog.Warn("Server.webhookHandler: failed to read body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Failed to read payload"))
		return
	}
	if !s.msgClient.VerifySignature(payload, r.Header.Get("X-Hub-Signature-256")) {
		slog.Warn("Server.webhookHandler: signature verification failed")
		writeJSONResponse(w, http.StatusForbidden, models.Error("Invalid signature"))
		return
	}

	ev, err := messenger.ParseWebhookEvent(payload)
	if err != nil {
		slog.Warn("Server.webhookHandler: malformed payload", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Malformed payload"))
		return
	}

	chatbotID, err := s.webhookChatbot()
	if err != nil {
		slog.Error("Server.webhookHandler: no chatbot available for channel", "error", err)
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("No chatbot configured for channel"))
		return
	}

	for _, entry := range ev.Entry {
		for _, m := range entry.Messaging {
			if m.Message.Text == "" || m.Sender.ID == "" {
				continue
			}
			if err := s.responder.HandleChannelMessage(r.Context(), chatbotID, m.Sender.ID, m.Message.Text); err != nil {
				slog.Error("Server.webhookHandler: failed to handle channel message", "error", err, "sender", m.Sender.ID)
			}
		}
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Event received", nil))
}

// webhookChatbot resolves the chatbot that answers channel traffic: the
// configured one, or the only registered chatbot as a fallback.
func (s *Server) webhookChatbot() (string, error) {
	if s.webhookChatbotID != "" {
		return s.webhookChatbotID, nil
	}
	bots, err := s.st.ListChatbots()
	if err != nil {
		return "", err
	}
	if len(bots) == 0 {
		return "", models.ErrNotFound
	}
	return bots[0].ID, nil
}
