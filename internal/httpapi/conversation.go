package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/vocabtutor/internal/session"
	"github.com/antoniostano/vocabtutor/internal/transcript"
)

type startRequest struct {
	UnitNumber int `json:"unitNumber"`
}

type messageRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

type messageResponse struct {
	Response string `json:"response"`
}

type endRequest struct {
	ConversationID string `json:"conversationId"`
}

type historyResponse struct {
	ConversationID string            `json:"conversationId"`
	UnitNumber     int               `json:"unitNumber"`
	CreatedAt      time.Time         `json:"createdAt"`
	Messages       []session.Message `json:"messages"`
}

type transcriptResponse struct {
	ConversationID string                  `json:"conversationId"`
	Turns          []transcript.TurnRecord `json:"turns"`
}

func (s *Server) handleStartConversation(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	res, err := s.service.Start(r.Context(), req.UnitNumber)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleConversationMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing_conversation_id", "conversationId is required")
		return
	}
	reply, err := s.service.Message(r.Context(), id, req.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Response: reply})
}

// handleEndConversation always reports success; ending twice or ending an
// unknown conversation is not an error.
func (s *Server) handleEndConversation(w http.ResponseWriter, r *http.Request) {
	var req endRequest
	_ = decodeJSON(r, &req)
	if id := strings.TrimSpace(req.ConversationID); id != "" {
		s.service.End(id)
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleConversationHistory(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.History(chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, historyResponse{
		ConversationID: sess.ID,
		UnitNumber:     sess.UnitNumber,
		CreatedAt:      sess.CreatedAt,
		Messages:       sess.Messages,
	})
}

func (s *Server) handleConversationTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turns, err := s.service.Transcript(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transcriptResponse{ConversationID: id, Turns: turns})
}
