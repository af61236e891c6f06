package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evanschultz/trackit/internal/domain"
	"github.com/evanschultz/trackit/internal/events"
	"github.com/evanschultz/trackit/internal/notify"
)

func signedJWT(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func jwtWithExp(exp int64) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"sub":"ada","exp":%d}`, exp)))
	return header + "." + payload + ".sig"
}

func TestIsTokenExpired(t *testing.T) {
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "future", token: jwtWithExp(now.Add(time.Hour).Unix()), want: false},
		{name: "past", token: jwtWithExp(now.Add(-time.Second).Unix()), want: true},
		{name: "garbage", token: "not-a-jwt", want: true},
		{name: "bad payload", token: "a.!!!.c", want: true},
		{name: "no exp", token: signedJWT(t, jwt.RegisteredClaims{Subject: "ada"}), want: true},
		{name: "signed future", token: signedJWT(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute))}), want: false},
		{name: "signed past", token: signedJWT(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute))}), want: true},
		{name: "unknown alg", token: base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"XX1"}`)) + "." +
			base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"exp":%d}`, now.Add(time.Hour).Unix()))) + ".c", want: false},
		{name: "two segments", token: "a.b", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTokenExpired(tc.token, now); got != tc.want {
				t.Fatalf("IsTokenExpired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSessionLoginStoresProfile(t *testing.T) {
	api := newFakeAPI()
	api.on(http.MethodPost, "/users/login", `{"token":"tok","userId":7,"username":"ada"}`)
	api.on(http.MethodGet, "/users/profile", `{"id":7,"username":"ada","email":"ada@example.com","firstName":"Ada"}`)
	creds := NewMemoryCredentials()
	rec := &notify.Recorder{}
	bus := events.New()
	started := 0
	bus.Subscribe(events.TopicSessionStarted, func(events.Event) { started++ })
	s := NewSession(NewAuthService(api), creds, SessionDeps{Notifier: rec, Publisher: bus})

	user, err := s.Login(context.Background(), "ada", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Fatalf("expected profile user, got %#v", user)
	}
	got, err := s.Current(context.Background())
	if err != nil || got.Token != "tok" || got.User.FirstName != "Ada" {
		t.Fatalf("Current() = %#v, %v", got, err)
	}
	if started != 1 {
		t.Fatalf("session.started published %d times", started)
	}
	if msgs := rec.Messages(notify.LevelSuccess); len(msgs) != 1 || msgs[0] != MsgLoginSuccess {
		t.Fatalf("notifications = %v", msgs)
	}
}

func TestSessionLoginKeepsLoginIdentityWhenProfileFails(t *testing.T) {
	api := newFakeAPI()
	api.on(http.MethodPost, "/users/login", `{"token":"tok","user":{"id":7,"username":"ada"}}`)
	api.fail(http.MethodGet, "/users/profile", errServer)
	creds := NewMemoryCredentials()
	s := NewSession(NewAuthService(api), creds, SessionDeps{})
	user, err := s.Login(context.Background(), "ada", "pw")
	if err != nil || user.ID != 7 {
		t.Fatalf("Login() = %#v, %v", user, err)
	}
	if got, ok, _ := creds.Get(context.Background()); !ok || got.Token != "tok" {
		t.Fatalf("expected stored token, got %#v ok=%v", got, ok)
	}
}

func TestSessionLogoutAndRestore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)
	creds := NewMemoryCredentials()
	s := NewSession(NewAuthService(newFakeAPI()), creds, SessionDeps{})

	if _, err := s.Current(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	_ = creds.Set(ctx, jwtWithExp(now.Add(time.Hour).Unix()), domain.User{ID: 1})
	if _, err := s.Restore(ctx, now); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if _, err := s.Restore(ctx, now.Add(2*time.Hour)); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
	if creds.Clears() != 1 {
		t.Fatalf("expected expired session cleared once, got %d", creds.Clears())
	}

	_ = creds.Set(ctx, "tok", domain.User{ID: 1})
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, ok, _ := creds.Get(ctx); ok {
		t.Fatal("expected cleared session after logout")
	}
}

func TestSessionUpdateProfileKeepsToken(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	api.on(http.MethodPut, "/users/profile", `{"id":1,"username":"ada","timezone":"Europe/London"}`)
	creds := NewMemoryCredentials()
	_ = creds.Set(ctx, "tok", domain.User{ID: 1, Username: "ada"})
	s := NewSession(NewAuthService(api), creds, SessionDeps{})

	tz := "Europe/London"
	if _, err := s.UpdateProfile(ctx, domain.ProfilePatch{Timezone: &tz}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	got, _, _ := creds.Get(ctx)
	if got.Token != "tok" || got.User.Timezone != "Europe/London" {
		t.Fatalf("unexpected stored session %#v", got)
	}
	if body := api.lastBody(http.MethodPut, "/users/profile"); body != `{"timezone":"Europe/London"}` {
		t.Fatalf("unexpected profile payload %s", body)
	}
}

func TestSessionRegisterValidates(t *testing.T) {
	s := NewSession(NewAuthService(newFakeAPI()), NewMemoryCredentials(), SessionDeps{})
	if _, err := s.Register(context.Background(), domain.RegisterInput{Username: "a", Email: "nope", Password: "x"}); !errors.Is(err, domain.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}
