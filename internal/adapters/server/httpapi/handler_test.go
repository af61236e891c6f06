package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evanschultz/trackit/internal/adapters/server/common"
)

// stubServices provides deterministic responses for handler tests.
type stubServices struct {
	tasks      []common.Task
	habits     []common.Habit
	dashboard  common.Dashboard
	err        error
	lastList   common.ListTasksRequest
	lastCreate common.CreateTaskRequest
	lastID     int64
}

func (s *stubServices) ListTasks(_ context.Context, req common.ListTasksRequest) ([]common.Task, error) {
	s.lastList = req
	return s.tasks, s.err
}

func (s *stubServices) CreateTask(_ context.Context, req common.CreateTaskRequest) (common.Task, error) {
	s.lastCreate = req
	if s.err != nil {
		return common.Task{}, s.err
	}
	return common.Task{ID: 42, Title: req.Title}, nil
}

func (s *stubServices) ToggleTask(_ context.Context, id int64) (common.Task, error) {
	s.lastID = id
	if s.err != nil {
		return common.Task{}, s.err
	}
	return common.Task{ID: id, Completed: true}, nil
}

func (s *stubServices) DeleteTask(_ context.Context, id int64) error {
	s.lastID = id
	return s.err
}

func (s *stubServices) ListHabits(context.Context) ([]common.Habit, error) {
	return s.habits, s.err
}

func (s *stubServices) LogHabit(_ context.Context, id int64) (common.Habit, error) {
	s.lastID = id
	if s.err != nil {
		return common.Habit{}, s.err
	}
	return common.Habit{ID: id, Streak: 2}, nil
}

func (s *stubServices) Dashboard(context.Context) (common.Dashboard, error) {
	return s.dashboard, s.err
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var env ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return env.Error
}

func TestHandlerListTasksPassesFilters(t *testing.T) {
	stub := &stubServices{tasks: []common.Task{{ID: 1, Title: "a"}}}
	rec := serve(NewHandler(stub), http.MethodGet, "/tasks?view=today&category=Work&priority=HIGH&days=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	want := common.ListTasksRequest{View: "today", Category: "Work", Priority: "HIGH", Days: 3}
	if stub.lastList != want {
		t.Fatalf("request = %#v, want %#v", stub.lastList, want)
	}
	var body struct {
		Tasks []common.Task `json:"tasks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || len(body.Tasks) != 1 {
		t.Fatalf("unexpected body %#v, err %v", body, err)
	}
}

func TestHandlerCreateTask(t *testing.T) {
	stub := &stubServices{}
	rec := serve(NewHandler(stub), http.MethodPost, "/tasks", `{"title":"Buy milk","due_date":"2024-01-01"}`)
	if rec.Code != http.StatusCreated || stub.lastCreate.Title != "Buy milk" || stub.lastCreate.DueDate != "2024-01-01" {
		t.Fatalf("status = %d, request %#v", rec.Code, stub.lastCreate)
	}

	for _, body := range []string{`{"title":`, `{"title":"x","unknown":1}`, `{"title":"x"}{}`} {
		rec := serve(NewHandler(stub), http.MethodPost, "/tasks", body)
		if rec.Code != http.StatusBadRequest || decodeError(t, rec).Code != "invalid_request" {
			t.Fatalf("body %s: status = %d", body, rec.Code)
		}
	}
}

func TestHandlerIDRoutes(t *testing.T) {
	stub := &stubServices{}
	h := NewHandler(stub)
	if rec := serve(h, http.MethodPost, "/tasks/7/toggle", ""); rec.Code != http.StatusOK || stub.lastID != 7 {
		t.Fatalf("toggle status = %d id = %d", rec.Code, stub.lastID)
	}
	if rec := serve(h, http.MethodDelete, "/tasks/8", ""); rec.Code != http.StatusNoContent || stub.lastID != 8 {
		t.Fatalf("delete status = %d id = %d", rec.Code, stub.lastID)
	}
	if rec := serve(h, http.MethodPost, "/habits/3/log", ""); rec.Code != http.StatusOK || stub.lastID != 3 {
		t.Fatalf("log status = %d id = %d", rec.Code, stub.lastID)
	}
	if rec := serve(h, http.MethodDelete, "/tasks/abc", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d", rec.Code)
	}
}

func TestHandlerMapsErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{err: fmt.Errorf("x: %w", common.ErrUnauthenticated), status: http.StatusUnauthorized, code: "unauthenticated"},
		{err: fmt.Errorf("x: %w", common.ErrNotFound), status: http.StatusNotFound, code: "not_found"},
		{err: fmt.Errorf("x: %w", common.ErrInvalidRequest), status: http.StatusBadRequest, code: "invalid_request"},
		{err: fmt.Errorf("x: %w", common.ErrUpstream), status: http.StatusBadGateway, code: "upstream_error"},
		{err: fmt.Errorf("boom"), status: http.StatusInternalServerError, code: "internal_error"},
	}
	for _, tc := range cases {
		rec := serve(NewHandler(&stubServices{err: tc.err}), http.MethodGet, "/dashboard", "")
		if rec.Code != tc.status {
			t.Fatalf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		if got := decodeError(t, rec).Code; got != tc.code {
			t.Fatalf("%v: code = %q, want %q", tc.err, got, tc.code)
		}
	}
}

func TestHandlerUnknownRouteAndMethod(t *testing.T) {
	h := NewHandler(&stubServices{})
	rec := serve(h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Code != "not_found" {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = serve(h, http.MethodPut, "/tasks", "")
	if rec.Code != http.StatusMethodNotAllowed || rec.Header().Get("Allow") != "GET, POST" {
		t.Fatalf("status = %d allow = %q, want 405", rec.Code, rec.Header().Get("Allow"))
	}
	if rec := serve(h, http.MethodGet, "/tasks/4", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestHandlerWithoutServices(t *testing.T) {
	rec := serve(NewHandler(nil), http.MethodGet, "/tasks", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
