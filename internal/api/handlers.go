// Package api provides HTTP handlers for BotWeave endpoints.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/BotWeave/BotWeave/internal/flow"
	"github.com/BotWeave/BotWeave/internal/models"
	"github.com/BotWeave/BotWeave/internal/util"
)

// createChatbotRequest is the payload for POST /api/chatbots.
type createChatbotRequest struct {
	Name     string          `json:"name"`
	Language models.Language `json:"language,omitempty"`
}

func (s *Server) createChatbotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createChatbotHandler: processing request", "method", r.Method, "path", r.URL.Path)

	var req createChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createChatbotHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.Language == "" {
		req.Language = models.LangEnglish
	}

	now := time.Now()
	bot := models.Chatbot{
		ID:        util.GenerateChatbotID(),
		Name:      req.Name,
		Language:  req.Language,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := bot.Validate(); err != nil {
		slog.Warn("Server.createChatbotHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	if err := s.st.SaveChatbot(bot); err != nil {
		slog.Error("Server.createChatbotHandler: failed to save chatbot", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save chatbot"))
		return
	}

	slog.Info("Server.createChatbotHandler: chatbot created", "id", bot.ID, "name", bot.Name)
	writeJSONResponse(w, http.StatusCreated, models.Success(bot))
}

func (s *Server) listChatbotsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.listChatbotsHandler: processing request", "method", r.Method, "path", r.URL.Path)
	bots, err := s.st.ListChatbots()
	if err != nil {
		slog.Error("Server.listChatbotsHandler: failed to list chatbots", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch chatbots"))
		return
	}
	slog.Debug("Server.listChatbotsHandler: chatbots fetched", "count", len(bots))
	writeJSONResponse(w, http.StatusOK, models.Success(bots))
}

func (s *Server) getChatbotHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	slog.Debug("Server.getChatbotHandler: processing request", "id", id)

	bot, err := s.st.GetChatbot(id)
	if err != nil {
		slog.Error("Server.getChatbotHandler: failed to load chatbot", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch chatbot"))
		return
	}
	if bot == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Chatbot not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(bot))
}

func (s *Server) deleteChatbotHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	slog.Debug("Server.deleteChatbotHandler: processing request", "id", id)

	bot, err := s.st.GetChatbot(id)
	if err != nil {
		slog.Error("Server.deleteChatbotHandler: failed to load chatbot", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch chatbot"))
		return
	}
	if bot == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Chatbot not found"))
		return
	}
	if err := s.st.DeleteChatbot(id); err != nil {
		slog.Error("Server.deleteChatbotHandler: failed to delete chatbot", "error", err, "id", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete chatbot"))
		return
	}
	slog.Info("Server.deleteChatbotHandler: chatbot deleted", "id", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Chatbot deleted", nil))
}

// putFlowHandler attaches or replaces a chatbot's flow. The request body is the
// flow document itself, either a step array or a node/edge graph export.
func (s *Server) putFlowHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	chatbotID := mux.Vars(r)["id"]
	slog.Debug("Server.putFlowHandler: processing request", "chatbot", chatbotID)

	bot, err := s.st.GetChatbot(chatbotID)
	if err != nil {
		slog.Error("Server.putFlowHandler: failed to load chatbot", "error", err, "chatbot", chatbotID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch chatbot"))
		return
	}
	if bot == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Chatbot not found"))
		return
	}

	doc, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		slog.Warn("Server.putFlowHandler: failed to read body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Failed to read flow document"))
		return
	}
	steps, err := flow.ParseFlowDocument(doc)
	if err != nil {
		slog.Warn("Server.putFlowHandler: rejected malformed flow document", "error", err, "chatbot", chatbotID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid flow document: "+err.Error()))
		return
	}

	now := time.Now()
	stored := models.StoredFlow{
		ID:        util.GenerateFlowID(),
		ChatbotID: chatbotID,
		Document:  doc,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := s.st.GetFlowByChatbot(chatbotID); err == nil && existing != nil {
		stored.ID = existing.ID
		stored.Name = existing.Name
		stored.CreatedAt = existing.CreatedAt
	}
	if err := s.st.SaveFlow(stored); err != nil {
		slog.Error("Server.putFlowHandler: failed to save flow", "error", err, "chatbot", chatbotID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save flow"))
		return
	}

	bot.FlowID = stored.ID
	bot.UpdatedAt = now
	if err := s.st.SaveChatbot(*bot); err != nil {
		slog.Error("Server.putFlowHandler: failed to attach flow to chatbot", "error", err, "chatbot", chatbotID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to attach flow"))
		return
	}

	slog.Info("Server.putFlowHandler: flow saved", "chatbot", chatbotID, "flow", stored.ID, "steps", len(steps))
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Flow saved", map[string]interface{}{
		"flow_id": stored.ID,
		"steps":   len(steps),
	}))
}

func (s *Server) getFlowHandler(w http.ResponseWriter, r *http.Request) {
	chatbotID := mux.Vars(r)["id"]
	slog.Debug("Server.getFlowHandler: processing request", "chatbot", chatbotID)

	stored, err := s.st.GetFlowByChatbot(chatbotID)
	if err != nil {
		slog.Error("Server.getFlowHandler: failed to load flow", "error", err, "chatbot", chatbotID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch flow"))
		return
	}
	if stored == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No flow attached to chatbot"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"flow_id":    stored.ID,
		"chatbot_id": stored.ChatbotID,
		"document":   json.RawMessage(stored.Document),
		"updated_at": stored.UpdatedAt,
	}))
}

// deleteFlowHandler detaches and removes the chatbot's flow; the chatbot falls
// back to the keyword engine afterwards.
func (s *Server) deleteFlowHandler(w http.ResponseWriter, r *http.Request) {
	chatbotID := mux.Vars(r)["id"]
	slog.Debug("Server.deleteFlowHandler: processing request", "chatbot", chatbotID)

	stored, err := s.st.GetFlowByChatbot(chatbotID)
	if err != nil {
		slog.Error("Server.deleteFlowHandler: failed to load flow", "error", err, "chatbot", chatbotID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch flow"))
		return
	}
	if stored == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("No flow attached to chatbot"))
		return
	}
	if err := s.st.DeleteFlow(stored.ID); err != nil {
		slog.Error("Server.deleteFlowHandler: failed to delete flow", "error", err, "flow", stored.ID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete flow"))
		return
	}

	if bot, err := s.st.GetChatbot(chatbotID); err == nil && bot != nil && bot.FlowID == stored.ID {
		bot.FlowID = ""
		bot.UpdatedAt = time.Now()
		if err := s.st.SaveChatbot(*bot); err != nil {
			slog.Error("Server.deleteFlowHandler: failed to detach flow from chatbot", "error", err, "chatbot", chatbotID)
		}
	}

	slog.Info("Server.deleteFlowHandler: flow deleted", "chatbot", chatbotID, "flow", stored.ID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Flow deleted", nil))
}

// createConversationRequest is the payload for POST /api/conversations.
type createConversationRequest struct {
	ChatbotID string `json:"chatbot_id"`
}

func (s *Server) createConversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.createConversationHandler: processing request", "method", r.Method, "path", r.URL.Path)

	var req createConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.createConversationHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	bot, err := s.st.GetChatbot(req.ChatbotID)
	if err != nil {
		slog.Error("Server.createConversationHandler: failed to load chatbot", "error", err, "chatbot", req.ChatbotID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch chatbot"))
		return
	}
	if bot == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Chatbot not found"))
		return
	}

	conv := models.Conversation{
		ID:        util.GenerateConversationID(),
		ChatbotID: bot.ID,
		CreatedAt: time.Now(),
	}
	if err := s.st.SaveConversation(conv); err != nil {
		slog.Error("Server.createConversationHandler: failed to save conversation", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save conversation"))
		return
	}

	slog.Info("Server.createConversationHandler: conversation created", "id", conv.ID, "chatbot", bot.ID)
	writeJSONResponse(w, http.StatusCreated, models.Success(conv))
}

// postMessageRequest is the payload for POST /api/conversations/{id}/messages.
type postMessageRequest struct {
	Content string `json:"content"`
}

// chatTurnResult carries one completed chat turn back to the caller.
type chatTurnResult struct {
	Reply      string `json:"reply,omitempty"`
	Suppressed bool   `json:"suppressed,omitempty"`
}

func (s *Server) postMessageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	conversationID := mux.Vars(r)["id"]
	slog.Debug("Server.postMessageHandler: processing request", "conversation", conversationID)

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.postMessageHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	reply, err := s.responder.HandleInbound(r.Context(), conversationID, req.Content)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
			return
		}
		if errors.Is(err, models.ErrEmptyMessage) || errors.Is(err, models.ErrMessageTooLong) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		slog.Error("Server.postMessageHandler: reply pipeline failed", "error", err, "conversation", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process message"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(chatTurnResult{Reply: reply, Suppressed: reply == ""}))
}

func (s *Server) getMessagesHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]
	slog.Debug("Server.getMessagesHandler: processing request", "conversation", conversationID)

	conv, err := s.st.GetConversation(conversationID)
	if err != nil {
		slog.Error("Server.getMessagesHandler: failed to load conversation", "error", err, "conversation", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch conversation"))
		return
	}
	if conv == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
		return
	}

	msgs, err := s.st.GetMessages(conversationID)
	if err != nil {
		slog.Error("Server.getMessagesHandler: failed to load messages", "error", err, "conversation", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch messages"))
		return
	}
	slog.Debug("Server.getMessagesHandler: messages fetched", "conversation", conversationID, "count", len(msgs))
	writeJSONResponse(w, http.StatusOK, models.Success(msgs))
}

// resetConversationHandler drops the conversation's flow session so the next
// message starts the flow from the beginning.
func (s *Server) resetConversationHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := mux.Vars(r)["id"]
	slog.Debug("Server.resetConversationHandler: processing request", "conversation", conversationID)

	conv, err := s.st.GetConversation(conversationID)
	if err != nil {
		slog.Error("Server.resetConversationHandler: failed to load conversation", "error", err, "conversation", conversationID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to fetch conversation"))
		return
	}
	if conv == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Conversation not found"))
		return
	}

	s.sessions.Reset(conversationID)
	slog.Info("Server.resetConversationHandler: session reset", "conversation", conversationID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Conversation session reset", nil))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if bots, err := s.st.ListChatbots(); err != nil {
		slog.Warn("Health check: store unavailable", "error", err)
		healthData["status"] = "degraded"
		healthData["error"] = "Failed to reach store"
	} else {
		healthData["chatbots"] = len(bots)
	}

	statusCode := http.StatusOK
	if healthData["status"] == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, statusCode, healthData)
}
