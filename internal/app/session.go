package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evanschultz/trackit/internal/domain"
	"github.com/evanschultz/trackit/internal/events"
	"github.com/evanschultz/trackit/internal/notify"
)

// Session notifications.
const (
	MsgLoginSuccess    = "Login successful!"
	MsgRegisterSuccess = "Registration successful! Please login."
	MsgLogoutSuccess   = "Logged out successfully"
	MsgProfileUpdated  = "Profile updated successfully!"
)

// Session owns login, logout, and profile flows over the credential store.
// These are the only writers of the store besides session expiry in the API client.
type Session struct {
	auth      *AuthService
	creds     CredentialStore
	notifier  notify.Notifier
	publisher events.Publisher
	logger    Logger
}

// SessionDeps holds Session collaborators.
type SessionDeps struct {
	Notifier  notify.Notifier
	Publisher events.Publisher
	Logger    Logger
}

// NewSession constructs a Session.
func NewSession(auth *AuthService, creds CredentialStore, deps SessionDeps) *Session {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard{}
	}
	if deps.Logger == nil {
		deps.Logger = NopLogger()
	}
	return &Session{
		auth:      auth,
		creds:     creds,
		notifier:  deps.Notifier,
		publisher: deps.Publisher,
		logger:    deps.Logger,
	}
}

// Login authenticates, stores the token, then stores the full profile.
// When the profile cannot be read the identity from the login response is kept.
func (s *Session) Login(ctx context.Context, username, password string) (domain.User, error) {
	token, user, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.creds.Set(ctx, token, user); err != nil {
		return domain.User{}, fmt.Errorf("store session: %w", err)
	}
	if profile, err := s.auth.Profile(ctx); err != nil {
		s.logger.Warn("load profile after login failed", "user", user.Username, "err", err)
	} else {
		user = profile
		if err := s.creds.Set(ctx, token, user); err != nil {
			return domain.User{}, fmt.Errorf("store session: %w", err)
		}
	}
	s.logger.Info("logged in", "user", user.Username)
	s.notifier.Notify(notify.Success(MsgLoginSuccess))
	if s.publisher != nil {
		s.publisher.Publish(events.TopicSessionStarted, user)
	}
	return user, nil
}

// Register creates an account. The caller logs in separately.
func (s *Session) Register(ctx context.Context, in domain.RegisterInput) (domain.User, error) {
	user, err := s.auth.Register(ctx, in)
	if err != nil {
		return domain.User{}, err
	}
	s.notifier.Notify(notify.Success(MsgRegisterSuccess))
	return user, nil
}

// Logout clears the stored session.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.creds.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.notifier.Notify(notify.Success(MsgLogoutSuccess))
	return nil
}

// Current returns the stored session, or ErrNotAuthenticated.
func (s *Session) Current(ctx context.Context) (Credentials, error) {
	creds, ok, err := s.creds.Get(ctx)
	if err != nil {
		return Credentials{}, fmt.Errorf("read session: %w", err)
	}
	if !ok || creds.Token == "" {
		return Credentials{}, ErrNotAuthenticated
	}
	return creds, nil
}

// Restore returns the stored session if its token is still valid at now.
// Expired tokens are cleared.
func (s *Session) Restore(ctx context.Context, now time.Time) (Credentials, error) {
	creds, err := s.Current(ctx)
	if err != nil {
		return Credentials{}, err
	}
	if IsTokenExpired(creds.Token, now) {
		if err := s.creds.Clear(ctx); err != nil {
			return Credentials{}, fmt.Errorf("clear expired session: %w", err)
		}
		return Credentials{}, ErrNotAuthenticated
	}
	return creds, nil
}

// UpdateProfile sends patch and stores the returned user alongside the current token.
func (s *Session) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (domain.User, error) {
	creds, err := s.Current(ctx)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.auth.UpdateProfile(ctx, patch)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.creds.Set(ctx, creds.Token, user); err != nil {
		return domain.User{}, fmt.Errorf("store session: %w", err)
	}
	s.notifier.Notify(notify.Success(MsgProfileUpdated))
	return user, nil
}

// Refresh reloads the profile into the stored session.
func (s *Session) Refresh(ctx context.Context) (domain.User, error) {
	creds, err := s.Current(ctx)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.auth.Profile(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.creds.Set(ctx, creds.Token, user); err != nil {
		return domain.User{}, fmt.Errorf("store session: %w", err)
	}
	return user, nil
}

// IsTokenExpired decodes the JWT exp claim. Tokens that cannot be decoded count as expired.
func IsTokenExpired(token string, now time.Time) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return true
	}
	return exp.Before(now)
}

// TokenExpiry returns the exp claim of a JWT. The signature is not checked.
func TokenExpiry(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), &claims)
	if err != nil && !errors.Is(err, jwt.ErrTokenUnverifiable) {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
