package common

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/evanschultz/trackit/internal/adapters/restapi"
	"github.com/evanschultz/trackit/internal/app"
	"github.com/evanschultz/trackit/internal/domain"
)

var fixedNow = time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

// newAdapter wires a StoreAdapter over the real API client against handler.
func newAdapter(t *testing.T, handler http.Handler) *StoreAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	creds := app.NewMemoryCredentials()
	_ = creds.Set(context.Background(), "tok", domain.User{ID: 1})
	client, err := restapi.New(restapi.Config{BaseURL: srv.URL, Timeout: 2 * time.Second}, creds)
	if err != nil {
		t.Fatalf("restapi.New() error = %v", err)
	}
	tasks := app.NewTaskService(client)
	habits := app.NewHabitService(client)
	return NewStoreAdapter(
		app.NewTaskStore(tasks, app.StoreDeps{}),
		app.NewHabitStore(habits, app.StoreDeps{}),
		app.NewDashboard(tasks, habits, app.NewAnalyticsService(client), app.DashboardConfig{}, nil),
		3,
		func() time.Time { return fixedNow },
	)
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

const taskFixture = `[
	{"id":1,"title":"Today","dueDate":"2026-02-21T09:00:00Z","priority":"HIGH","repeatType":"NONE","category":"Work"},
	{"id":2,"title":"Late","dueDate":"2026-02-18T09:00:00Z","priority":"LOW","repeatType":"NONE","category":"Home"},
	{"id":3,"title":"Soon","dueDate":"2026-02-23T09:00:00Z","priority":"HIGH","repeatType":"NONE","category":"work"},
	{"id":4,"title":"Gone","dueDate":"2026-02-21T09:00:00Z","priority":"HIGH","repeatType":"NONE","archived":true}
]`

func TestListTasksViewsAndFilters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", respond(http.StatusOK, taskFixture))
	a := newAdapter(t, mux)
	ctx := context.Background()

	cases := []struct {
		req  ListTasksRequest
		want []int64
	}{
		{req: ListTasksRequest{}, want: []int64{1, 2, 3}},
		{req: ListTasksRequest{View: "TODAY"}, want: []int64{1}},
		{req: ListTasksRequest{View: ViewOverdue}, want: []int64{2}},
		{req: ListTasksRequest{View: ViewUpcoming}, want: []int64{3}},
		{req: ListTasksRequest{Category: "WORK"}, want: []int64{1, 3}},
		{req: ListTasksRequest{Priority: "low"}, want: []int64{2}},
	}
	for _, tc := range cases {
		got, err := a.ListTasks(ctx, tc.req)
		if err != nil {
			t.Fatalf("ListTasks(%+v) error = %v", tc.req, err)
		}
		ids := make([]int64, 0, len(got))
		for _, task := range got {
			ids = append(ids, task.ID)
		}
		if len(ids) != len(tc.want) {
			t.Fatalf("ListTasks(%+v) = %v, want %v", tc.req, ids, tc.want)
		}
		for i := range ids {
			if ids[i] != tc.want[i] {
				t.Fatalf("ListTasks(%+v) = %v, want %v", tc.req, ids, tc.want)
			}
		}
	}

	if _, err := a.ListTasks(ctx, ListTasksRequest{View: "someday"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for unknown view, got %v", err)
	}
	if _, err := a.ListTasks(ctx, ListTasksRequest{Priority: "urgent"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for unknown priority, got %v", err)
	}
}

func TestListTasksMarksOverdue(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", respond(http.StatusOK, taskFixture))
	got, err := newAdapter(t, mux).ListTasks(context.Background(), ListTasksRequest{View: ViewOverdue})
	if err != nil || len(got) != 1 || !got[0].Overdue || got[0].DueDate != "2026-02-18T09:00:00Z" {
		t.Fatalf("ListTasks() = %#v, %v", got, err)
	}
}

func TestCreateTaskParsesInputAndMapsValidation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /tasks", respond(http.StatusCreated, `{"id":9,"title":"New","dueDate":"2026-03-01","priority":"HIGH","repeatType":"DAILY"}`))
	a := newAdapter(t, mux)
	ctx := context.Background()

	got, err := a.CreateTask(ctx, CreateTaskRequest{Title: "New", DueDate: "2026-03-01", Priority: "high", RepeatType: "daily", Hours: 1.5})
	if err != nil || got.ID != 9 || got.RepeatType != "DAILY" {
		t.Fatalf("CreateTask() = %#v, %v", got, err)
	}
	for _, bad := range []CreateTaskRequest{
		{Title: "x", DueDate: "tomorrow"},
		{Title: "", DueDate: "2026-03-01"},
		{Title: "x", DueDate: "2026-03-01", Priority: "urgent"},
	} {
		if _, err := a.CreateTask(ctx, bad); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("CreateTask(%+v) error = %v, want ErrInvalidRequest", bad, err)
		}
	}
}

func TestErrorsMapToTransportSentinels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", respond(http.StatusUnauthorized, `{}`))
	mux.HandleFunc("GET /habits", respond(http.StatusBadGateway, `{}`))
	mux.HandleFunc("DELETE /tasks/5", respond(http.StatusNotFound, `{}`))
	a := newAdapter(t, mux)
	ctx := context.Background()

	if err := a.DeleteTask(ctx, 5); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteTask() error = %v, want ErrNotFound", err)
	}
	if _, err := a.ListHabits(ctx); !errors.Is(err, ErrUpstream) {
		t.Fatalf("ListHabits() error = %v, want ErrUpstream", err)
	}
	if _, err := a.ListTasks(ctx, ListTasksRequest{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("ListTasks() error = %v, want ErrUnauthenticated", err)
	}
}

func TestToggleAndLogReportMissingIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /tasks", respond(http.StatusOK, taskFixture))
	mux.HandleFunc("PATCH /tasks/1/complete", respond(http.StatusOK, `{"id":1,"title":"Today","dueDate":"2026-02-21T09:00:00Z","priority":"HIGH","repeatType":"NONE","completed":true}`))
	mux.HandleFunc("GET /habits", respond(http.StatusOK, `[{"id":4,"name":"Read","streak":1}]`))
	a := newAdapter(t, mux)
	ctx := context.Background()

	got, err := a.ToggleTask(ctx, 1)
	if err != nil || !got.Completed {
		t.Fatalf("ToggleTask() = %#v, %v", got, err)
	}
	if _, err := a.ToggleTask(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ToggleTask(99) error = %v, want ErrNotFound", err)
	}
	if _, err := a.LogHabit(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LogHabit(99) error = %v, want ErrNotFound", err)
	}
}

func TestParseDueDate(t *testing.T) {
	got, err := ParseDueDate("2026-03-01", time.UTC)
	if err != nil || !got.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDueDate(date) = %v, %v", got, err)
	}
	got, err = ParseDueDate("2026-03-01T10:00:00+02:00", time.UTC)
	if err != nil || !got.Equal(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDueDate(rfc3339) = %v, %v", got, err)
	}
	if _, err := ParseDueDate("soon", nil); err == nil {
		t.Fatal("expected parse error")
	}
}
