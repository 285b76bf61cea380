package app

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shantamg/meet-without-fear-sub002/internal/util"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) http.Handler {
	s := &HTTPServer{service: service, corsOrigin: corsOrigin}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	return withMiddleware(mux)
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	s.setCORSHeaders(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) == 0 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown route", nil)
		return
	}
	parts = parts[1:]

	if len(parts) == 1 && parts[0] == "health" && r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	if len(parts) == 1 && parts[0] == "ready" && r.Method == http.MethodGet {
		if err := s.service.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "dependencies unavailable", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
		return
	}

	if token := s.service.ServiceToken(); token != "" {
		if r.Header.Get("x-mwf-service-token") != token {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid service token", nil)
			return
		}
	}

	if len(parts) < 3 || parts[0] != "sessions" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown route", nil)
		return
	}
	sessionID := parts[1]
	rest := parts[2:]

	switch {
	case len(rest) == 1 && rest[0] == "empathy" && r.Method == http.MethodPost:
		s.handleSubmitEmpathy(w, r, sessionID)
	case len(rest) == 1 && rest[0] == "listening-complete" && r.Method == http.MethodPost:
		s.handleListeningComplete(w, r, sessionID)
	case len(rest) == 2 && rest[0] == "empathy" && rest[1] == "validate" && r.Method == http.MethodPost:
		s.handleValidate(w, r, sessionID)
	case len(rest) == 3 && rest[0] == "share-offers" && rest[2] == "respond" && r.Method == http.MethodPost:
		s.handleShareOfferRespond(w, r, sessionID, rest[1])
	case len(rest) == 2 && rest[0] == "reconciler" && rest[1] == "status" && r.Method == http.MethodGet:
		s.handleReconcilerStatus(w, r, sessionID)
	case len(rest) == 1 && rest[0] == "share-suggestion" && r.Method == http.MethodGet:
		s.handleShareSuggestion(w, r, sessionID)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown route", nil)
	}
}

func (s *HTTPServer) handleSubmitEmpathy(w http.ResponseWriter, r *http.Request, sessionID string) {
	var body struct {
		UserID      string `json:"userId"`
		PartnerID   string `json:"partnerId"`
		DisplayName string `json:"displayName"`
		Content     string `json:"content"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	attempt, err := s.service.SubmitStatement(r.Context(), sessionID, body.UserID, body.PartnerID, body.DisplayName, body.Content)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attemptView(attempt))
}

func (s *HTTPServer) handleListeningComplete(w http.ResponseWriter, r *http.Request, sessionID string) {
	var body struct {
		UserID      string   `json:"userId"`
		PartnerID   string   `json:"partnerId"`
		DisplayName string   `json:"displayName"`
		Content     string   `json:"content"`
		Themes      []string `json:"themes"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.service.ListeningCompleted(r.Context(), sessionID, body.UserID, body.PartnerID, body.DisplayName, body.Content, body.Themes); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recorded": true})
}

func (s *HTTPServer) handleValidate(w http.ResponseWriter, r *http.Request, sessionID string) {
	var body struct {
		UserID    string `json:"userId"`
		PartnerID string `json:"partnerId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if err := s.service.ValidateRevealed(r.Context(), sessionID, body.UserID, body.PartnerID); err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"validated": true})
}

func (s *HTTPServer) handleShareOfferRespond(w http.ResponseWriter, r *http.Request, sessionID, offerID string) {
	var body struct {
		UserID         string `json:"userId"`
		Action         string `json:"action"`
		RefinedContent string `json:"refinedContent"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	result, err := s.service.RespondToShareOffer(r.Context(), sessionID, offerID, body.UserID, body.Action, body.RefinedContent)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleReconcilerStatus(w http.ResponseWriter, r *http.Request, sessionID string) {
	status, err := s.service.ReconcilerStatus(r.Context(), sessionID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *HTTPServer) handleShareSuggestion(w http.ResponseWriter, r *http.Request, sessionID string) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "userId query parameter is required", nil)
		return
	}
	suggestion, err := s.service.PendingShareSuggestion(r.Context(), sessionID, userID)
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestion)
}

func (s *HTTPServer) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-mwf-service-token")
	w.Header().Set("Cache-Control", "no-store")
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer io.Copy(io.Discard, r.Body)
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", "request body is not valid JSON", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

func mapError(w http.ResponseWriter, err error) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		writeError(w, domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details)
		return
	}
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
		return
	}
	log.Printf("internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("x-request-id")
		if requestID == "" {
			requestID = util.NewID("req")
		}
		w.Header().Set("x-request-id", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		entry, err := json.Marshal(map[string]any{
			"requestId": requestID,
			"method":    r.Method,
			"path":      r.URL.Path,
			"status":    rec.status,
			"ms":        time.Since(start).Milliseconds(),
		})
		if err != nil {
			return
		}
		log.Printf("%s", entry)
	})
}
