package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/evanschultz/trackit/internal/adapters/server/common"
)

type stubServices struct{}

func (stubServices) ListTasks(context.Context, common.ListTasksRequest) ([]common.Task, error) {
	return []common.Task{{ID: 1, Title: "Write report"}}, nil
}

func (stubServices) CreateTask(_ context.Context, req common.CreateTaskRequest) (common.Task, error) {
	return common.Task{ID: 2, Title: req.Title}, nil
}

func (stubServices) ToggleTask(_ context.Context, id int64) (common.Task, error) {
	return common.Task{ID: id}, nil
}

func (stubServices) DeleteTask(context.Context, int64) error { return nil }

func (stubServices) ListHabits(context.Context) ([]common.Habit, error) { return nil, nil }

func (stubServices) LogHabit(_ context.Context, id int64) (common.Habit, error) {
	return common.Habit{ID: id}, nil
}

func (stubServices) Dashboard(context.Context) (common.Dashboard, error) {
	return common.Dashboard{TotalTasks: 1}, nil
}

func TestNewHandlerRoutes(t *testing.T) {
	handler, cfg, err := NewHandler(Config{}, Dependencies{Services: stubServices{}})
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	if cfg.HTTPBind != defaultBindAddress || cfg.APIEndpoint != "/api/v1" || cfg.MCPEndpoint != "/mcp" || cfg.ServerName != "trackit" {
		t.Fatalf("normalized config = %#v", cfg)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("tasks status = %d body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Tasks []common.Task `json:"tasks"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(body.Tasks) != 1 || body.Tasks[0].Title != "Write report" {
		t.Fatalf("tasks = %#v", body.Tasks)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
}

func TestNewHandlerValidation(t *testing.T) {
	if _, _, err := NewHandler(Config{}, Dependencies{}); err == nil {
		t.Fatal("NewHandler() without services error = nil")
	}
	if _, _, err := NewHandler(Config{APIEndpoint: "/x", MCPEndpoint: "x/"}, Dependencies{Services: stubServices{}}); err == nil {
		t.Fatal("NewHandler() with colliding endpoints error = nil")
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"":         "/api/v1",
		"/":        "/api/v1",
		"api":      "/api",
		"/api/v2/": "/api/v2",
	}
	for in, want := range cases {
		if got := normalizeEndpoint(in, "/api/v1"); got != want {
			t.Fatalf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{HTTPBind: addr}, Dependencies{Services: stubServices{}})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/readyz")
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestRunReturnsBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	addr := ln.Addr().String()
	err = Run(context.Background(), Config{HTTPBind: addr}, Dependencies{Services: stubServices{}})
	if err == nil || !strings.Contains(err.Error(), "bind "+addr) {
		t.Fatalf("Run() error = %v, want bind failure for %s", err, addr)
	}
}
