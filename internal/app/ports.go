package app

import (
	"context"

	"github.com/evanschultz/trackit/internal/domain"
)

// Requester sends one JSON request to the Trackit API and decodes the response into out.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Credentials is the persisted session: bearer token plus user identity.
type Credentials struct {
	Token string
	User  domain.User
}

// CredentialStore holds the current session.
type CredentialStore interface {
	Get(context.Context) (Credentials, bool, error)
	Set(context.Context, string, domain.User) error
	Clear(context.Context) error
}

// Logger is the structured logging surface used by services.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Info(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	Error(msg string, keyvals ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger returns a Logger that drops every event.
func NopLogger() Logger {
	return nopLogger{}
}
