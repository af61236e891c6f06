// Package httpapi provides the local JSON HTTP adapter over the trackit stores.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/evanschultz/trackit/internal/adapters/server/common"
)

// maxRequestBodyBytes limits decoded JSON payload size for fail-closed request handling.
const maxRequestBodyBytes int64 = 1 << 20

// Handler serves the versioned API subrouter mounted under `/api/v1`.
type Handler struct {
	services common.Services
	mux      *http.ServeMux
}

// APIError represents one structured API failure response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// ErrorEnvelope wraps one structured API error.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// NewHandler constructs one HTTP API adapter over services.
func NewHandler(services common.Services) *Handler {
	h := &Handler{services: services, mux: http.NewServeMux()}
	h.mux.HandleFunc("/tasks", h.handleTasks)
	h.mux.HandleFunc("/tasks/{id}", methods(map[string]http.HandlerFunc{http.MethodDelete: h.handleDeleteTask}))
	h.mux.HandleFunc("/tasks/{id}/toggle", methods(map[string]http.HandlerFunc{http.MethodPost: h.handleToggleTask}))
	h.mux.HandleFunc("/habits", methods(map[string]http.HandlerFunc{http.MethodGet: h.handleListHabits}))
	h.mux.HandleFunc("/habits/{id}/log", methods(map[string]http.HandlerFunc{http.MethodPost: h.handleLogHabit}))
	h.mux.HandleFunc("/dashboard", methods(map[string]http.HandlerFunc{http.MethodGet: h.handleDashboard}))
	h.mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: "endpoint not found",
		})
	})
	return h
}

// ServeHTTP routes one versioned API request to the matching handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.services == nil {
		writeJSONError(w, http.StatusServiceUnavailable, APIError{
			Code:    "service_unavailable",
			Message: "trackit services are not configured",
		})
		return
	}
	if r.URL.Path == "" {
		r.URL.Path = "/"
	}
	h.mux.ServeHTTP(w, r)
}

// handleTasks serves the `/tasks` collection.
func (h *Handler) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleListTasks(w, r)
	case http.MethodPost:
		h.handleCreateTask(w, r)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// methods dispatches by request method, answering 405 for anything else.
func methods(byMethod map[string]http.HandlerFunc) http.HandlerFunc {
	allowed := make([]string, 0, len(byMethod))
	for method := range byMethod {
		allowed = append(allowed, method)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := byMethod[r.Method]; ok {
			handler(w, r)
			return
		}
		writeMethodNotAllowed(w, allowed...)
	}
}

// writeMethodNotAllowed writes one 405 envelope with an Allow header.
func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeJSONError(w, http.StatusMethodNotAllowed, APIError{
		Code:    "method_not_allowed",
		Message: "method not allowed",
	})
}

// handleListTasks serves GET `/tasks`.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := common.ListTasksRequest{
		View:     strings.TrimSpace(q.Get("view")),
		Category: strings.TrimSpace(q.Get("category")),
		Priority: strings.TrimSpace(q.Get("priority")),
	}
	if raw := strings.TrimSpace(q.Get("days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			writeErrorFrom(w, fmt.Errorf("days must be a positive integer: %w", common.ErrInvalidRequest))
			return
		}
		req.Days = days
	}
	tasks, err := h.services.ListTasks(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// handleCreateTask serves POST `/tasks`.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req common.CreateTaskRequest
	if err := decodeJSONBody(r.Context(), w, r, &req); err != nil {
		writeErrorFrom(w, err)
		return
	}
	task, err := h.services.CreateTask(r.Context(), req)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// handleToggleTask serves POST `/tasks/{id}/toggle`.
func (h *Handler) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	task, err := h.services.ToggleTask(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// handleDeleteTask serves DELETE `/tasks/{id}`.
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.services.DeleteTask(r.Context(), id); err != nil {
		writeErrorFrom(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListHabits serves GET `/habits`.
func (h *Handler) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := h.services.ListHabits(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"habits": habits})
}

// handleLogHabit serves POST `/habits/{id}/log`.
func (h *Handler) handleLogHabit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	habit, err := h.services.LogHabit(r.Context(), id)
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habit)
}

// handleDashboard serves GET `/dashboard`.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.services.Dashboard(r.Context())
	if err != nil {
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// pathID parses the `{id}` wildcard, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeErrorFrom(w, fmt.Errorf("id must be a positive integer: %w", common.ErrInvalidRequest))
		return 0, false
	}
	return id, true
}

// writeErrorFrom maps transport errors onto status codes.
func writeErrorFrom(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		writeJSONError(w, http.StatusUnauthorized, APIError{
			Code:    "unauthenticated",
			Message: err.Error(),
			Hint:    "Run `trackit login` and restart the server.",
		})
	case errors.Is(err, common.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, APIError{
			Code:    "not_found",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, APIError{
			Code:    "invalid_request",
			Message: err.Error(),
		})
	case errors.Is(err, common.ErrUpstream):
		writeJSONError(w, http.StatusBadGateway, APIError{
			Code:    "upstream_error",
			Message: err.Error(),
		})
	default:
		writeJSONError(w, http.StatusInternalServerError, APIError{
			Code:    "internal_error",
			Message: err.Error(),
		})
	}
}

// writeJSONError writes one structured error envelope.
func writeJSONError(w http.ResponseWriter, statusCode int, apiErr APIError) {
	writeJSON(w, statusCode, ErrorEnvelope{Error: apiErr})
}

// writeJSON writes one JSON response envelope.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSONBody decodes one required JSON request body with strict shape checks.
func decodeJSONBody(ctx context.Context, w http.ResponseWriter, r *http.Request, out any) error {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer reader.Close()

	decoder := json.NewDecoder(reader)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode request body: %w", errors.Join(common.ErrInvalidRequest, err))
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode request body: trailing content: %w", common.ErrInvalidRequest)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("request canceled: %w", err)
	}
	return nil
}
