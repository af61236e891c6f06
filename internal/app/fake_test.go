package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// fakeCall records one request seen by fakeAPI.
type fakeCall struct {
	Method string
	Path   string
	Body   string
}

// fakeAPI routes "METHOD path" keys to canned JSON responses or errors.
type fakeAPI struct {
	mu     sync.Mutex
	routes map[string]func(body string) (string, error)
	calls  []fakeCall
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{routes: map[string]func(string) (string, error){}}
}

func (f *fakeAPI) on(method, path, response string) {
	f.handle(method, path, func(string) (string, error) { return response, nil })
}

func (f *fakeAPI) fail(method, path string, err error) {
	f.handle(method, path, func(string) (string, error) { return "", err })
}

func (f *fakeAPI) handle(method, path string, fn func(body string) (string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[method+" "+path] = fn
}

func (f *fakeAPI) Do(_ context.Context, method, path string, body, out any) error {
	var encoded string
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		encoded = string(raw)
	}
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Method: method, Path: path, Body: encoded})
	fn, ok := f.routes[method+" "+path]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("unexpected request %s %s", method, path)
	}
	resp, err := fn(encoded)
	if err != nil {
		return err
	}
	if out == nil || strings.TrimSpace(resp) == "" {
		return nil
	}
	return json.Unmarshal([]byte(resp), out)
}

func (f *fakeAPI) called(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (f *fakeAPI) lastBody(method, path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Method == method && f.calls[i].Path == path {
			return f.calls[i].Body
		}
	}
	return ""
}

// notifiedErr mimics an API client error that was already surfaced to the user.
type notifiedErr struct{ msg string }

func (e *notifiedErr) Error() string       { return e.msg }
func (e *notifiedErr) UserMessage() string { return e.msg }
func (e *notifiedErr) Notified() bool      { return true }

var errServer = &notifiedErr{msg: "Server error. Please try again later."}

