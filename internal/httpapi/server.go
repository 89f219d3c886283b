package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/vocabtutor/internal/config"
	"github.com/antoniostano/vocabtutor/internal/conversation"
	"github.com/antoniostano/vocabtutor/internal/curriculum"
	"github.com/antoniostano/vocabtutor/internal/observability"
	"github.com/antoniostano/vocabtutor/internal/realtime"
)

// Info describes the resolved backends, reported by the health endpoints.
type Info struct {
	AIProvider      string
	VoiceProvider   string
	RealtimeBroker  string
	TranscriptStore string
}

type Server struct {
	cfg      config.Config
	info     Info
	units    *curriculum.Store
	service  *conversation.Service
	broker   realtime.Broker
	metrics  *observability.Metrics
	upgrader websocket.Upgrader
	static   http.Handler
}

func New(cfg config.Config, info Info, units *curriculum.Store, service *conversation.Service, broker realtime.Broker, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:     cfg,
		info:    info,
		units:   units,
		service: service,
		broker:  broker,
		metrics: metrics,
		static:  newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin.
					return true
				}
				for _, allowed := range cfg.AllowedOrigins {
					if strings.EqualFold(allowed, origin) {
						return true
					}
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if origins := s.corsOrigins(); len(origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"X-Audio-Format"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/token", s.handleToken)

	r.Route("/api", func(r chi.Router) {
		r.Get("/units", s.handleListUnits)
		r.Get("/units/{n}", s.handleGetUnit)
		r.Get("/units/{n}/instructions", s.handleUnitInstructions)

		r.Post("/conversation/start", s.handleStartConversation)
		r.Post("/conversation/message", s.handleConversationMessage)
		r.Post("/conversation/end", s.handleEndConversation)
		r.Get("/conversation/ws", s.handleConversationWS)
		r.Get("/conversation/{id}/history", s.handleConversationHistory)
		r.Get("/conversation/{id}/transcript", s.handleConversationTranscript)

		r.Post("/speech-to-text", s.handleSpeechToText)
		r.Post("/text-to-speech", s.handleTextToSpeech)
	})

	r.Get("/*", s.static.ServeHTTP)
	return r
}

func (s *Server) corsOrigins() []string {
	if s.cfg.AllowAnyOrigin {
		return []string{"*"}
	}
	return s.cfg.AllowedOrigins
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"ai_provider":      s.info.AIProvider,
		"voice_provider":   s.info.VoiceProvider,
		"realtime_broker":  s.info.RealtimeBroker,
		"transcript_store": s.info.TranscriptStore,
		"active_sessions":  s.service.ActiveSessions(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ready",
		"ai_provider": s.info.AIProvider,
		"units":       len(s.units.List()),
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	cred, err := s.broker.IssueEphemeralCredential(r.Context())
	if err != nil {
		log.Printf("realtime credential request failed: %v", err)
		respondError(w, http.StatusInternalServerError, "credential_failed", "could not obtain a realtime session credential")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(cred.Raw)
}

// respondServiceError maps conversation errors onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, err error) {
	status, code, message := classifyError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed (%s): %v", code, err)
	}
	respondError(w, status, code, message)
}

func classifyError(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, conversation.ErrInvalidUnit):
		return http.StatusBadRequest, "invalid_unit", err.Error()
	case errors.Is(err, conversation.ErrSessionNotFound):
		return http.StatusNotFound, "conversation_not_found", err.Error()
	case errors.Is(err, conversation.ErrEmptyMessage):
		return http.StatusBadRequest, "empty_message", err.Error()
	case errors.Is(err, conversation.ErrTranscription):
		return http.StatusUnprocessableEntity, "transcription_failed", "could not understand the audio, please repeat"
	case errors.Is(err, conversation.ErrUpload):
		return http.StatusBadRequest, "invalid_upload", err.Error()
	case errors.Is(err, conversation.ErrUpstream):
		return http.StatusInternalServerError, "upstream_failure", "the language service is unavailable, please try again"
	default:
		return http.StatusInternalServerError, "internal_error", "internal error"
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		// A bare io.EOF means no body at all; a cut-off body is
		// io.ErrUnexpectedEOF and stays a decode error.
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
