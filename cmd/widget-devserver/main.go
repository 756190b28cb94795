// ABOUTME: Local development backend implementing the widget's four API operations in memory.
// ABOUTME: Echo-style agent plus an admin pause toggle that broadcasts status updates in-process.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/bridge"
	"github.com/Githafconsulting/Githaforge-chatbot-builder-V2-sub001/internal/transport"
)

type messageRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
	ChatbotID string `json:"chatbot_id,omitempty"`
}

type messageResponse struct {
	ResponseText string             `json:"response_text"`
	Sources      []transport.Source `json:"sources,omitempty"`
	TurnID       string             `json:"turn_id"`
}

type conversationEndRequest struct {
	SessionID string `json:"session_id"`
}

type feedbackRequest struct {
	TurnID  string           `json:"turn_id"`
	Rating  transport.Rating `json:"rating"`
	Comment string           `json:"comment,omitempty"`
}

type pauseRequest struct {
	Paused  bool   `json:"paused"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// chatbotState is the in-memory stand-in for a chatbot record.
type chatbotState struct {
	Paused        bool
	PausedMessage string
}

// Server holds all development state in memory. Restarting it wipes
// conversations, which is the point of a devserver.
type Server struct {
	router *mux.Router
	logger *slog.Logger
	status *bridge.Channel

	mu        sync.Mutex
	turnCount map[string]int          // session -> turns so far
	turnOwner map[string]string       // turn id -> session
	feedback  []feedbackRequest       // accepted submissions, in order
	ended     map[string]time.Time    // session -> first end signal
	chatbots  map[string]chatbotState // chatbot id -> state
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{
		router:    mux.NewRouter(),
		logger:    logger.With("component", "devserver"),
		status:    bridge.Open(bridge.StatusChannelName),
		turnCount: make(map[string]int),
		turnOwner: make(map[string]string),
		ended:     make(map[string]time.Time),
		chatbots:  make(map[string]chatbotState),
	}
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/v1/message", s.messageHandler).Methods("POST")
	s.router.HandleFunc("/api/v1/conversation-end", s.conversationEndHandler).Methods("POST")
	s.router.HandleFunc("/api/v1/feedback", s.feedbackHandler).Methods("POST")
	s.router.HandleFunc("/api/v1/chatbot-status", s.chatbotStatusHandler).Methods("GET")
	s.router.HandleFunc("/admin/chatbots/{id}/pause", s.pauseHandler).Methods("POST")
	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
}

func (s *Server) messageHandler(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	s.mu.Lock()
	if req.ChatbotID != "" {
		if state, ok := s.chatbots[req.ChatbotID]; ok && state.Paused {
			s.mu.Unlock()
			writeError(w, http.StatusServiceUnavailable, "chatbot is paused")
			return
		}
	}
	s.turnCount[req.SessionID]++
	n := s.turnCount[req.SessionID]
	turnID := uuid.NewString()
	s.turnOwner[turnID] = req.SessionID
	// A fresh message reopens a previously ended session
	delete(s.ended, req.SessionID)
	s.mu.Unlock()

	s.logger.Info("message received",
		"session_id", req.SessionID,
		"chatbot_id", req.ChatbotID,
		"turn", n)

	resp := messageResponse{
		ResponseText: fmt.Sprintf("You said: %q (turn %d of this session)", req.Text, n),
		TurnID:       turnID,
		Sources: []transport.Source{
			{Content: "Devserver echo knowledge base entry", Similarity: 0.42},
		},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) conversationEndHandler(w http.ResponseWriter, r *http.Request) {
	var req conversationEndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	s.mu.Lock()
	_, already := s.ended[req.SessionID]
	if !already {
		s.ended[req.SessionID] = time.Now()
	}
	s.mu.Unlock()

	if already {
		s.logger.Debug("duplicate conversation end", "session_id", req.SessionID)
	} else {
		s.logger.Info("conversation ended", "session_id", req.SessionID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) feedbackHandler(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TurnID == "" {
		writeError(w, http.StatusBadRequest, "turn_id is required")
		return
	}
	if req.Rating != transport.RatingNegative && req.Rating != transport.RatingPositive {
		writeError(w, http.StatusBadRequest, "rating must be 0 or 1")
		return
	}

	s.mu.Lock()
	_, known := s.turnOwner[req.TurnID]
	if known {
		s.feedback = append(s.feedback, req)
	}
	s.mu.Unlock()

	if !known {
		writeError(w, http.StatusNotFound, "unknown turn_id")
		return
	}

	s.logger.Info("feedback recorded",
		"turn_id", req.TurnID,
		"rating", int(req.Rating),
		"has_comment", req.Comment != "")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) chatbotStatusHandler(w http.ResponseWriter, r *http.Request) {
	chatbotID := r.URL.Query().Get("chatbotId")
	if chatbotID == "" {
		writeError(w, http.StatusBadRequest, "chatbotId is required")
		return
	}

	s.mu.Lock()
	state := s.chatbots[chatbotID] // zero value means active
	s.mu.Unlock()

	status := transport.ChatbotStatus{DeployStatus: transport.DeployActive}
	if state.Paused {
		status.DeployStatus = transport.DeployPaused
		status.PausedMessage = state.PausedMessage
	}
	writeJSON(w, http.StatusOK, status)
}

// pauseHandler toggles a chatbot's deploy status and broadcasts the change
// the way the operator dashboard does, so widget instances in the same
// process pick it up without polling.
func (s *Server) pauseHandler(w http.ResponseWriter, r *http.Request) {
	chatbotID := mux.Vars(r)["id"]

	var req pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	s.chatbots[chatbotID] = chatbotState{Paused: req.Paused, PausedMessage: req.Message}
	s.mu.Unlock()

	payload := bridge.ChatbotPayload{DeployStatus: transport.DeployActive}
	if req.Paused {
		payload.DeployStatus = transport.DeployPaused
		payload.PausedMessage = req.Message
	}
	s.status.Publish(bridge.StatusEvent{
		Type:      bridge.EventChatbotUpdated,
		ChatbotID: chatbotID,
		Chatbot:   payload,
	})

	s.logger.Info("chatbot status changed", "chatbot_id", chatbotID, "paused", req.Paused)
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	sessions := len(s.turnCount)
	feedbackCount := len(s.feedback)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"service":  "widget-devserver",
		"sessions": sessions,
		"feedback": feedbackCount,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: c.Handler(s.router),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info("devserver listening", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	}
}

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := NewServer(logger).Run(ctx, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
