// Package resource holds the generic client-side collection store that
// reconciles local state with the Trackit API.
package resource

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/evanschultz/trackit/internal/events"
	"github.com/evanschultz/trackit/internal/notify"
)

// ErrDisposed is returned for operations started after Dispose.
var ErrDisposed = errors.New("store disposed")

// Entity is any record addressable by a numeric id.
type Entity interface {
	Key() int64
}

// Op names a committed mutation.
type Op string

// Op values.
const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpAction Op = "action"
)

// Change is the payload published after a committed mutation.
type Change struct {
	Resource string
	Op       Op
	ID       int64
}

// Messages holds success notification text per operation. Empty means silent.
type Messages struct {
	Created string
	Updated string
	Deleted string
}

// Logger is the logging surface used by a Store.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
}

// Config wires a Store to its resource service.
type Config[T Entity, I, P any] struct {
	Name     string
	List     func(context.Context) ([]T, error)
	Create   func(context.Context, I) (T, error)
	Update   func(context.Context, int64, P) (T, error)
	Delete   func(context.Context, int64) error
	Messages Messages

	Notifier  notify.Notifier
	Publisher events.Publisher
	Logger    Logger
}

// State is a point-in-time copy of a store.
type State[T Entity] struct {
	Items   []T
	Error   string
	Loading bool
}

// Store owns one ordered collection and reconciles it with the server.
// Operations are not serialized; when two calls race, the last response wins.
type Store[T Entity, I, P any] struct {
	cfg Config[T, I, P]

	mu       sync.Mutex
	items    []T
	errMsg   string
	inflight int
	disposed bool
}

// New constructs a Store.
func New[T Entity, I, P any](cfg Config[T, I, P]) *Store[T, I, P] {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard{}
	}
	return &Store[T, I, P]{cfg: cfg}
}

// Name returns the resource name.
func (s *Store[T, I, P]) Name() string {
	return s.cfg.Name
}

// Items returns a copy of the collection.
func (s *Store[T, I, P]) Items() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Get returns the entity with id, if present.
func (s *Store[T, I, P]) Get(id int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.items[idx], true
	}
	var zero T
	return zero, false
}

// Error returns the message of the last failed operation, cleared when the next one starts.
func (s *Store[T, I, P]) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Loading reports whether any operation is in flight.
func (s *Store[T, I, P]) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Snapshot returns items, error, and loading state together.
func (s *Store[T, I, P]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State[T]{Items: slices.Clone(s.items), Error: s.errMsg, Loading: s.inflight > 0}
}

// Dispose detaches the store. Responses that arrive afterwards are ignored.
func (s *Store[T, I, P]) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
}

// Disposed reports whether Dispose ran.
func (s *Store[T, I, P]) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// FetchAll replaces the collection with the server listing.
// On failure the previous collection stays visible.
func (s *Store[T, I, P]) FetchAll(ctx context.Context) error {
	if !s.begin() {
		return ErrDisposed
	}
	items, err := s.cfg.List(ctx)

	s.mu.Lock()
	s.inflight--
	if s.disposed {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		msg := s.failLocked(err)
		s.mu.Unlock()
		s.report(msg, err, OpFetch)
		return err
	}
	s.items = dedupe(items)
	s.mu.Unlock()
	s.publish(OpFetch, 0)
	return nil
}

// Create sends input to the server and prepends the created entity.
func (s *Store[T, I, P]) Create(ctx context.Context, input I) (T, error) {
	var zero T
	if !s.begin() {
		return zero, ErrDisposed
	}
	created, err := s.cfg.Create(ctx, input)

	s.mu.Lock()
	s.inflight--
	if s.disposed {
		s.mu.Unlock()
		return created, err
	}
	if err != nil {
		msg := s.failLocked(err)
		s.mu.Unlock()
		s.report(msg, err, OpCreate)
		return zero, err
	}
	s.upsertFrontLocked(created)
	s.mu.Unlock()

	s.succeed(s.cfg.Messages.Created)
	s.publish(OpCreate, created.Key())
	return created, nil
}

// Update sends patch for id. When optimistic is non-nil and id is present, its
// result is shown until the server answers. The server representation wins on
// success; on failure the entity is restored to its value before the call.
func (s *Store[T, I, P]) Update(ctx context.Context, id int64, patch P, optimistic func(T) T) (T, error) {
	out, _, err := s.mutate(ctx, id, OpUpdate, optimistic, s.cfg.Messages.Updated, func(ctx context.Context, _ T) (T, error) {
		return s.cfg.Update(ctx, id, patch)
	}, true)
	return out, err
}

// Apply runs an entity-specific action such as complete or log against the
// current value of id. Absent ids are a no-op and report found=false; the
// error field is still cleared.
func (s *Store[T, I, P]) Apply(ctx context.Context, id int64, action func(context.Context, T) (T, error), optimistic func(T) T, successMsg string) (T, bool, error) {
	return s.mutate(ctx, id, OpAction, optimistic, successMsg, action, false)
}

// Delete removes id only after the server confirms.
func (s *Store[T, I, P]) Delete(ctx context.Context, id int64) error {
	if !s.begin() {
		return ErrDisposed
	}
	err := s.cfg.Delete(ctx, id)

	s.mu.Lock()
	s.inflight--
	if s.disposed {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		msg := s.failLocked(err)
		s.mu.Unlock()
		s.report(msg, err, OpDelete)
		return err
	}
	if idx := s.indexLocked(id); idx >= 0 {
		s.items = slices.Delete(s.items, idx, idx+1)
	}
	s.mu.Unlock()

	s.succeed(s.cfg.Messages.Deleted)
	s.publish(OpDelete, id)
	return nil
}

// mutate is the shared optimistic update path for Update and Apply. With upsert
// false an id that is not held makes no call and reports found=false.
func (s *Store[T, I, P]) mutate(
	ctx context.Context,
	id int64,
	op Op,
	optimistic func(T) T,
	successMsg string,
	call func(context.Context, T) (T, error),
	upsert bool,
) (T, bool, error) {
	var zero T
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return zero, false, ErrDisposed
	}
	s.errMsg = ""
	var (
		current  T
		snapshot T
		had      bool
	)
	if idx := s.indexLocked(id); idx >= 0 {
		current, snapshot, had = s.items[idx], s.items[idx], true
		if optimistic != nil {
			s.items[idx] = optimistic(current)
		}
	}
	if !had && !upsert {
		s.mu.Unlock()
		return zero, false, nil
	}
	s.inflight++
	s.mu.Unlock()

	updated, err := call(ctx, current)

	s.mu.Lock()
	s.inflight--
	if s.disposed {
		s.mu.Unlock()
		return updated, true, err
	}
	if err != nil {
		if had && optimistic != nil {
			if idx := s.indexLocked(id); idx >= 0 {
				s.items[idx] = snapshot
			}
		}
		msg := s.failLocked(err)
		s.mu.Unlock()
		s.report(msg, err, op)
		return zero, true, err
	}
	if idx := s.indexLocked(updated.Key()); idx >= 0 {
		s.items[idx] = updated
	} else if upsert {
		s.upsertFrontLocked(updated)
	}
	s.mu.Unlock()

	s.succeed(successMsg)
	s.publish(op, updated.Key())
	return updated, true, nil
}

// begin marks an operation in flight and clears the error field.
func (s *Store[T, I, P]) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return false
	}
	s.errMsg = ""
	s.inflight++
	return true
}

// failLocked records err on the store and returns its user-facing message.
func (s *Store[T, I, P]) failLocked(err error) string {
	msg := MessageOf(err)
	s.errMsg = msg
	return msg
}

// report notifies failures that the API client has not surfaced already.
func (s *Store[T, I, P]) report(msg string, err error, op Op) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Warn("resource operation failed", "resource", s.cfg.Name, "op", string(op), "err", err)
	}
	if alreadyNotified(err) {
		return
	}
	s.cfg.Notifier.Notify(notify.Error(msg))
}

func (s *Store[T, I, P]) succeed(msg string) {
	if msg != "" {
		s.cfg.Notifier.Notify(notify.Success(msg))
	}
}

func (s *Store[T, I, P]) publish(op Op, id int64) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Debug("resource changed", "resource", s.cfg.Name, "op", string(op), "id", id)
	}
	if s.cfg.Publisher == nil || s.cfg.Name == "" {
		return
	}
	s.cfg.Publisher.Publish(s.cfg.Name+".changed", Change{Resource: s.cfg.Name, Op: op, ID: id})
}

func (s *Store[T, I, P]) indexLocked(id int64) int {
	return slices.IndexFunc(s.items, func(item T) bool { return item.Key() == id })
}

// upsertFrontLocked replaces an existing entity with the same id or prepends it.
func (s *Store[T, I, P]) upsertFrontLocked(item T) {
	if idx := s.indexLocked(item.Key()); idx >= 0 {
		s.items[idx] = item
		return
	}
	s.items = slices.Insert(s.items, 0, item)
}

// dedupe keeps the first occurrence of each id.
func dedupe[T Entity](items []T) []T {
	seen := make(map[int64]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Key()]; ok {
			continue
		}
		seen[item.Key()] = struct{}{}
		out = append(out, item)
	}
	return out
}

// userFacing is implemented by errors that carry their own display text and
// have already been surfaced to the user.
type userFacing interface {
	UserMessage() string
	Notified() bool
}

// MessageOf returns the human-readable text for err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var uf userFacing
	if errors.As(err, &uf) && uf.UserMessage() != "" {
		return uf.UserMessage()
	}
	return err.Error()
}

func alreadyNotified(err error) bool {
	var uf userFacing
	return errors.As(err, &uf) && uf.Notified()
}
